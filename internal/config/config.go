package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"researchdesk/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Database  DatabaseConfig
	Providers ProviderConfig
	Server    ServerConfig
	Report    ReportConfig
	Mail      MailConfig
	Retry     RetryConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL     string
	SSLMode string
}

// ProviderConfig holds API settings for the research providers
type ProviderConfig struct {
	OpenAIKey     string
	OpenAIModel   string
	OpenAIBaseURL string
	GeminiKey     string
	GeminiModel   string
	GeminiBaseURL string
	MaxTokens     int
	Temperature   float64
	Timeout       time.Duration
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string
	GinMode string
}

// ReportConfig holds artifact storage settings
type ReportConfig struct {
	// StoreMode is one of "minio", "local", "disabled".
	StoreMode      string
	LocalDir       string
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
	ExcelExport    bool
}

// MailConfig holds outbound report delivery settings
type MailConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// RetryConfig holds provider retry settings. A YAML policy file can
// override the defaults per provider.
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	PolicyFile   string
	Policies     map[string]RetryPolicy
}

// RetryPolicy is a per-provider override loaded from the policy file.
type RetryPolicy struct {
	MaxAttempts    int `yaml:"maxAttempts"`
	InitialDelayMs int `yaml:"initialDelayMs"`
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{}

	dbConfig, err := loadDatabaseConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load database configuration")
	}
	config.Database = *dbConfig

	providerConfig, err := loadProviderConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load provider configuration")
	}
	config.Providers = *providerConfig

	config.Server = *loadServerConfig()

	reportConfig, err := loadReportConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load report configuration")
	}
	config.Report = *reportConfig

	mailConfig, err := loadMailConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load mail configuration")
	}
	config.Mail = *mailConfig

	retryConfig, err := loadRetryConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load retry configuration")
	}
	config.Retry = *retryConfig

	return config, nil
}

func loadDatabaseConfig() (*DatabaseConfig, error) {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		return nil, errors.ConfigInvalid("DATABASE_URL is required")
	}

	return &DatabaseConfig{
		URL:     url,
		SSLMode: getEnvOrDefault("SSL_MODE", "disable"),
	}, nil
}

func loadProviderConfig() (*ProviderConfig, error) {
	openaiKey := os.Getenv("OPENAI_API_KEY")
	geminiKey := os.Getenv("GEMINI_API_KEY")
	if openaiKey == "" && geminiKey == "" {
		return nil, errors.ConfigInvalid("at least one of OPENAI_API_KEY or GEMINI_API_KEY is required")
	}

	return &ProviderConfig{
		OpenAIKey:     openaiKey,
		OpenAIModel:   getEnvOrDefault("OPENAI_MODEL", "gpt-4o"),
		OpenAIBaseURL: getEnvOrDefault("OPENAI_BASE_URL", ""),
		GeminiKey:     geminiKey,
		GeminiModel:   getEnvOrDefault("GEMINI_MODEL", "gemini-1.5-pro"),
		GeminiBaseURL: getEnvOrDefault("GEMINI_BASE_URL", ""),
		MaxTokens:     getEnvIntOrDefault("MAX_TOKENS", 4096),
		Temperature:   getEnvFloatOrDefault("TEMPERATURE", 0.2),
		Timeout:       getEnvDurationOrDefault("PROVIDER_TIMEOUT", 120*time.Second),
	}, nil
}

func loadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:    getEnvOrDefault("PORT", "8080"),
		GinMode: getEnvOrDefault("GIN_MODE", "debug"),
	}
}

func loadReportConfig() (*ReportConfig, error) {
	mode := getEnvOrDefault("REPORT_STORE", "local")
	switch mode {
	case "minio", "local", "disabled":
	default:
		return nil, errors.ConfigInvalid("REPORT_STORE must be one of minio, local, disabled")
	}

	config := &ReportConfig{
		StoreMode:      mode,
		LocalDir:       getEnvOrDefault("REPORT_DIR", "./reports"),
		MinioEndpoint:  getEnvOrDefault("MINIO_ENDPOINT", ""),
		MinioAccessKey: getEnvOrDefault("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getEnvOrDefault("MINIO_SECRET_KEY", ""),
		MinioBucket:    getEnvOrDefault("MINIO_BUCKET", "research-reports"),
		MinioUseSSL:    getEnvBoolOrDefault("MINIO_USE_SSL", false),
		ExcelExport:    getEnvBoolOrDefault("EXCEL_EXPORT", true),
	}

	if mode == "minio" && config.MinioEndpoint == "" {
		return nil, errors.ConfigInvalid("MINIO_ENDPOINT is required when REPORT_STORE=minio")
	}
	return config, nil
}

func loadMailConfig() (*MailConfig, error) {
	config := &MailConfig{
		Enabled:  getEnvBoolOrDefault("SMTP_ENABLED", false),
		Host:     getEnvOrDefault("SMTP_HOST", ""),
		Port:     getEnvIntOrDefault("SMTP_PORT", 587),
		Username: getEnvOrDefault("SMTP_USERNAME", ""),
		Password: getEnvOrDefault("SMTP_PASSWORD", ""),
		From:     getEnvOrDefault("SMTP_FROM", ""),
	}

	if config.Enabled && (config.Host == "" || config.From == "") {
		return nil, errors.ConfigInvalid("SMTP_HOST and SMTP_FROM are required when SMTP_ENABLED=true")
	}
	return config, nil
}

func loadRetryConfig() (*RetryConfig, error) {
	config := &RetryConfig{
		MaxAttempts:  getEnvIntOrDefault("RETRY_MAX_ATTEMPTS", 3),
		InitialDelay: getEnvDurationOrDefault("RETRY_INITIAL_DELAY", 2*time.Second),
		PolicyFile:   getEnvOrDefault("RETRY_POLICY_FILE", ""),
		Policies:     map[string]RetryPolicy{},
	}

	if config.MaxAttempts < 1 {
		return nil, errors.ConfigInvalid("RETRY_MAX_ATTEMPTS must be at least 1")
	}

	if config.PolicyFile != "" {
		policies, err := loadPolicyFile(config.PolicyFile)
		if err != nil {
			return nil, err
		}
		config.Policies = policies
	}
	return config, nil
}

func loadPolicyFile(path string) (map[string]RetryPolicy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.ConfigInvalid("retry policy file is not readable: " + err.Error())
	}

	var policies map[string]RetryPolicy
	if err := yaml.Unmarshal(data, &policies); err != nil {
		return nil, errors.ConfigInvalid("retry policy file is not valid YAML: " + err.Error())
	}

	for provider, policy := range policies {
		if policy.MaxAttempts < 1 {
			return nil, errors.ConfigInvalid("retry policy for " + provider + " must allow at least one attempt")
		}
	}
	return policies, nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
