package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("ENV_FILE", "")
	return dir
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTP.Address)
	require.Equal(t, 0.6, cfg.FAQ.SimilarityThreshold)
	require.Equal(t, CatalogMemory, cfg.FAQ.Catalog.Source)
	require.Equal(t, 30*time.Minute, cfg.Session.TTL)
	require.Equal(t, []string{"/webhooks/whatsapp"}, cfg.HTTP.Retry.Exclude)
}

func TestLoadFileThenDotEnvThenEnv(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
clinic:
  id: downtown
  name: Clínica Sol
faq:
  similarityThreshold: 0.7
  catalog:
    source: file
    path: faq.yaml
    watch: true
`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("CLINIC_ADDRESS=Rua A, 100\nLLM_MODEL=from-dotenv\n"), 0o600))

	t.Setenv("CONFIG_PATH", path)
	t.Setenv("LLM_MODEL", "from-env")
	t.Setenv("SESSION_TTL", "45m")
	t.Setenv("HTTP_CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "downtown", cfg.Clinic.ID)
	require.Equal(t, "Clínica Sol", cfg.Clinic.Name)
	require.Equal(t, 0.7, cfg.FAQ.SimilarityThreshold)
	require.True(t, cfg.FAQ.Catalog.Watch)
	require.Equal(t, "Rua A, 100", cfg.Clinic.Address)
	require.Equal(t, "from-env", cfg.LLM.Model)
	require.Equal(t, 45*time.Minute, cfg.Session.TTL)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.CORSOrigins)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"threshold out of range": func(c *Config) { c.FAQ.SimilarityThreshold = 1 },
		"unknown catalog":        func(c *Config) { c.FAQ.Catalog.Source = "ftp" },
		"file without path":      func(c *Config) { c.FAQ.Catalog.Source = CatalogFile },
		"postgres without dsn":   func(c *Config) { c.FAQ.Catalog.Source = CatalogPostgres },
		"object without bucket":  func(c *Config) { c.FAQ.Catalog.Source = CatalogObject },
		"redis without addr":     func(c *Config) { c.Redis.Enabled = true },
		"zero session ttl":       func(c *Config) { c.Session.TTL = 0 },
		"empty clinic":           func(c *Config) { c.Clinic.ID = " " },
		"bad rate limit":         func(c *Config) { c.HTTP.RateLimit.Burst = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := defaultConfig()
			mutate(cfg)
			require.Error(t, cfg.Validate())
		})
	}
	require.NoError(t, defaultConfig().Validate())
}
