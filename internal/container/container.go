package container

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"researchdesk/adapters/llm"
	"researchdesk/adapters/mail"
	"researchdesk/adapters/postgres"
	"researchdesk/adapters/report"
	"researchdesk/adapters/store"
	"researchdesk/internal"
	"researchdesk/internal/config"
	"researchdesk/internal/research"
	"researchdesk/models"
	"researchdesk/ports"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *internal.Logger

	// Infrastructure
	DB *sqlx.DB

	// Repositories (data access layer)
	ResearchRepo ports.ResearchRepository

	// Provider clients
	Clients     []ports.ProviderClient
	Normalizers map[models.Provider]ports.Normalizer

	// Research components
	Scheduler *research.Scheduler
	Finalizer *research.Finalizer

	// Report pipeline
	Builder   ports.ArtifactBuilder
	Store     ports.ArtifactStore
	Transport ports.DeliveryTransport
}

// New creates a new dependency injection container
func New(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	return &Container{
		Config: cfg,
		Logger: internal.NewDefaultLogger(),
	}, nil
}

// InitWithDatabase initializes components that require database access
func (c *Container) InitWithDatabase(ctx context.Context, db *sqlx.DB) error {
	if db == nil {
		return fmt.Errorf("database connection cannot be nil")
	}
	c.DB = db

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database connection test failed: %w", err)
	}

	c.ResearchRepo = postgres.NewResearchRepository(db)

	if err := c.initProviders(); err != nil {
		return fmt.Errorf("failed to initialize provider clients: %w", err)
	}
	if err := c.initReportPipeline(ctx); err != nil {
		return fmt.Errorf("failed to initialize report pipeline: %w", err)
	}
	c.initResearch()

	c.Logger.Info("container initialized: %d provider clients, %s artifact store",
		len(c.Clients), c.Config.Report.StoreMode)
	return nil
}

// initProviders builds one client per configured provider. Providers
// without an API key are simply absent; scheduling a run for one is a
// caller error surfaced by the scheduler.
func (c *Container) initProviders() error {
	c.Normalizers = map[models.Provider]ports.Normalizer{
		models.ProviderOpenAI: llm.NormalizeOpenAI,
		models.ProviderGemini: llm.NormalizeGemini,
	}

	providers := c.Config.Providers

	if providers.OpenAIKey != "" {
		client, err := llm.NewOpenAIClient(llm.Config{
			APIKey:      providers.OpenAIKey,
			BaseURL:     providers.OpenAIBaseURL,
			Model:       providers.OpenAIModel,
			Timeout:     providers.Timeout,
			MaxTokens:   providers.MaxTokens,
			Temperature: providers.Temperature,
		})
		if err != nil {
			return err
		}
		c.Clients = append(c.Clients, client)
	}

	if providers.GeminiKey != "" {
		client, err := llm.NewGeminiClient(llm.Config{
			APIKey:      providers.GeminiKey,
			BaseURL:     providers.GeminiBaseURL,
			Model:       providers.GeminiModel,
			Timeout:     providers.Timeout,
			MaxTokens:   providers.MaxTokens,
			Temperature: providers.Temperature,
		})
		if err != nil {
			return err
		}
		c.Clients = append(c.Clients, client)
	}

	if len(c.Clients) == 0 {
		return fmt.Errorf("no provider clients configured")
	}
	return nil
}

// initReportPipeline selects the artifact store and delivery transport
// from configuration.
func (c *Container) initReportPipeline(ctx context.Context) error {
	c.Builder = report.NewHTMLBuilder()

	switch c.Config.Report.StoreMode {
	case "minio":
		minioStore, err := store.NewMinioStore(ctx, store.MinioConfig{
			Endpoint:  c.Config.Report.MinioEndpoint,
			AccessKey: c.Config.Report.MinioAccessKey,
			SecretKey: c.Config.Report.MinioSecretKey,
			Bucket:    c.Config.Report.MinioBucket,
			UseSSL:    c.Config.Report.MinioUseSSL,
		})
		if err != nil {
			return err
		}
		c.Store = minioStore
	case "local":
		localStore, err := store.NewLocalStore(c.Config.Report.LocalDir)
		if err != nil {
			return err
		}
		c.Store = localStore
	default:
		c.Store = store.NewDisabledStore()
	}

	if c.Config.Mail.Enabled {
		transport, err := mail.NewSMTPTransport(mail.SMTPConfig{
			Host:     c.Config.Mail.Host,
			Port:     c.Config.Mail.Port,
			Username: c.Config.Mail.Username,
			Password: c.Config.Mail.Password,
			From:     c.Config.Mail.From,
		})
		if err != nil {
			return err
		}
		c.Transport = transport
	}
	return nil
}

// initResearch wires the scheduler and finalizer.
func (c *Container) initResearch() {
	policies := make(map[models.Provider]research.RetryPolicy, len(models.Providers))
	for _, provider := range models.Providers {
		policies[provider] = c.retryPolicyFor(provider)
	}

	c.Scheduler = research.NewScheduler(c.ResearchRepo, c.Clients, c.Normalizers, policies, c.Logger)

	var exporter ports.ArtifactBuilder
	if c.Config.Report.ExcelExport {
		exporter = report.NewExcelExporter()
	}
	c.Finalizer = research.NewFinalizer(c.ResearchRepo, c.Builder, c.Store, c.Transport, exporter, c.Logger)
}

// retryPolicyFor resolves the retry policy for one provider: the YAML
// policy file wins over the environment defaults.
func (c *Container) retryPolicyFor(provider models.Provider) research.RetryPolicy {
	policy := research.RetryPolicy{
		MaxAttempts:  c.Config.Retry.MaxAttempts,
		InitialDelay: c.Config.Retry.InitialDelay,
	}
	if override, ok := c.Config.Retry.Policies[string(provider)]; ok {
		policy.MaxAttempts = override.MaxAttempts
		if override.InitialDelayMs > 0 {
			policy.InitialDelay = time.Duration(override.InitialDelayMs) * time.Millisecond
		}
	}
	return policy
}

// Close releases held resources.
func (c *Container) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
