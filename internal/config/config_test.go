package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"researchdesk/internal/errors"
)

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	_, err := Load()
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
}

func TestLoadRequiresAProviderKey(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/research")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")

	_, err := Load()
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/research")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("REPORT_STORE", "")
	t.Setenv("RETRY_POLICY_FILE", "")

	config, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", config.Server.Port)
	assert.Equal(t, "gpt-4o", config.Providers.OpenAIModel)
	assert.Equal(t, 120*time.Second, config.Providers.Timeout)
	assert.Equal(t, "local", config.Report.StoreMode)
	assert.Equal(t, 3, config.Retry.MaxAttempts)
	assert.Equal(t, 2*time.Second, config.Retry.InitialDelay)
	assert.False(t, config.Mail.Enabled)
}

func TestLoadRejectsUnknownStoreMode(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/research")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("REPORT_STORE", "ftp")

	_, err := Load()
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
}

func TestLoadMinioRequiresEndpoint(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/research")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("REPORT_STORE", "minio")
	t.Setenv("MINIO_ENDPOINT", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadMailValidation(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/research")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("REPORT_STORE", "local")
	t.Setenv("SMTP_ENABLED", "true")
	t.Setenv("SMTP_HOST", "")

	_, err := Load()
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
}

func TestLoadRetryPolicyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "retry.yaml")
	content := "openai:\n  maxAttempts: 5\n  initialDelayMs: 500\ngemini:\n  maxAttempts: 2\n  initialDelayMs: 1000\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	t.Setenv("DATABASE_URL", "postgres://localhost/research")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("REPORT_STORE", "local")
	t.Setenv("RETRY_POLICY_FILE", path)

	config, err := Load()
	require.NoError(t, err)

	require.Contains(t, config.Retry.Policies, "openai")
	assert.Equal(t, 5, config.Retry.Policies["openai"].MaxAttempts)
	assert.Equal(t, 1000, config.Retry.Policies["gemini"].InitialDelayMs)
}

func TestLoadRetryPolicyFileRejectsZeroAttempts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "retry.yaml")
	require.NoError(t, os.WriteFile(path, []byte("openai:\n  maxAttempts: 0\n"), 0o644))

	t.Setenv("DATABASE_URL", "postgres://localhost/research")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("REPORT_STORE", "local")
	t.Setenv("RETRY_POLICY_FILE", path)

	_, err := Load()
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
}
