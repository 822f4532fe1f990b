package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	DeepLinkDomain string `envconfig:"DEEP_LINK_DOMAIN" required:"true"`
	Currency       string `envconfig:"CHECKOUT_CURRENCY" default:"usd"`
}

func writeEnvFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoad_DevelopmentReadsDotenv(t *testing.T) {
	p := writeEnvFile(t, "DEEP_LINK_DOMAIN=https://dev.example.app\n")
	t.Setenv("APP_ENV", "development")
	t.Setenv("APP_ENV_FILE", p)
	// make sure godotenv owns the key for this test
	t.Setenv("DEEP_LINK_DOMAIN", "")
	os.Unsetenv("DEEP_LINK_DOMAIN")

	var s sample
	rt, err := Load(&s)
	require.NoError(t, err)
	assert.False(t, rt.IsProduction())
	assert.Equal(t, "https://dev.example.app", s.DeepLinkDomain)
	assert.Equal(t, "usd", s.Currency)
}

func TestLoad_ProcessEnvWinsOverDotenv(t *testing.T) {
	p := writeEnvFile(t, "DEEP_LINK_DOMAIN=https://dev.example.app\n")
	t.Setenv("APP_ENV", "development")
	t.Setenv("APP_ENV_FILE", p)
	t.Setenv("DEEP_LINK_DOMAIN", "https://override.example.app")

	var s sample
	_, err := Load(&s)
	require.NoError(t, err)
	assert.Equal(t, "https://override.example.app", s.DeepLinkDomain)
}

func TestLoad_ProductionIgnoresDotenv(t *testing.T) {
	p := writeEnvFile(t, "DEEP_LINK_DOMAIN=https://dev.example.app\n")
	t.Setenv("APP_ENV", "production")
	t.Setenv("APP_ENV_FILE", p)
	t.Setenv("DEEP_LINK_DOMAIN", "")
	os.Unsetenv("DEEP_LINK_DOMAIN")

	var s sample
	rt, err := Load(&s)
	assert.True(t, rt.IsProduction())
	assert.Error(t, err)
}

func TestLoad_MissingDotenvIsFine(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("APP_ENV_FILE", filepath.Join(t.TempDir(), "nope.env"))
	t.Setenv("DEEP_LINK_DOMAIN", "https://x.example.app")

	var s sample
	_, err := Load(&s)
	require.NoError(t, err)
}

func TestStoreValidate(t *testing.T) {
	assert.NoError(t, Store{Backend: "firestore"}.Validate())
	assert.Error(t, Store{Backend: "postgres"}.Validate())
	assert.NoError(t, Store{Backend: "postgres", PGDSN: "postgres://x"}.Validate())
	assert.Error(t, Store{Backend: "redis"}.Validate())
}
