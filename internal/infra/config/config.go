package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Catalog source kinds.
const (
	CatalogMemory   = "memory"
	CatalogFile     = "file"
	CatalogPostgres = "postgres"
	CatalogObject   = "object"
)

// Config aggregates runtime configuration used across the service.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	LLM      LLMConfig      `yaml:"llm"`
	FAQ      FAQConfig      `yaml:"faq"`
	Session  SessionConfig  `yaml:"session"`
	Intake   IntakeConfig   `yaml:"intake"`
	Clinic   ClinicConfig   `yaml:"clinic"`
	Postgres PostgresConfig `yaml:"postgres"`
	Redis    RedisConfig    `yaml:"redis"`
	Storage  StorageConfig  `yaml:"storage"`
	Twilio   TwilioConfig   `yaml:"twilio"`
	Admin    AdminConfig    `yaml:"admin"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Address      string          `yaml:"address"`
	ReadTimeout  time.Duration   `yaml:"readTimeout"`
	WriteTimeout time.Duration   `yaml:"writeTimeout"`
	RateLimit    RateLimitConfig `yaml:"rateLimit"`
	Retry        RetryConfig     `yaml:"retry"`
	CORSOrigins  []string        `yaml:"corsOrigins"`
}

// RateLimitConfig drives the request limiting middleware.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
	Burst             int  `yaml:"burst"`
}

// RetryConfig configures best-effort retries for idempotent requests.
type RetryConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxAttempts int           `yaml:"maxAttempts"`
	BaseBackoff time.Duration `yaml:"baseBackoff"`
	Exclude     []string      `yaml:"exclude"`
}

// LLMConfig contains ChatGPT/OpenAI settings for the fallback generator.
type LLMConfig struct {
	APIKey            string        `yaml:"apiKey"`
	BaseURL           string        `yaml:"baseUrl"`
	Model             string        `yaml:"model"`
	Temperature       float32       `yaml:"temperature"`
	MaxTokens         int           `yaml:"maxTokens"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerMinute float64       `yaml:"requestsPerMinute"`
	Burst             int           `yaml:"burst"`
}

// FAQConfig controls the matcher and where its catalog comes from.
type FAQConfig struct {
	Algorithm           string        `yaml:"algorithm"`
	SimilarityThreshold float64       `yaml:"similarityThreshold"`
	TopRecommendations  int           `yaml:"topRecommendations"`
	Catalog             CatalogConfig `yaml:"catalog"`
}

// CatalogConfig selects the catalog source.
type CatalogConfig struct {
	Source          string        `yaml:"source"`
	Path            string        `yaml:"path"`
	Watch           bool          `yaml:"watch"`
	ObjectKey       string        `yaml:"objectKey"`
	RefreshInterval time.Duration `yaml:"refreshInterval"`
	Entries         []FAQEntry    `yaml:"entries"`
}

// FAQEntry is an inline catalog entry for the memory source.
type FAQEntry struct {
	Question string `yaml:"question"`
	Answer   string `yaml:"answer"`
}

// SessionConfig controls conversation state retention.
type SessionConfig struct {
	TTL           time.Duration `yaml:"ttl"`
	SweepInterval time.Duration `yaml:"sweepInterval"`
}

// IntakeConfig holds the booking flow copy and trigger words.
type IntakeConfig struct {
	Keywords        []string `yaml:"keywords"`
	AskName         string   `yaml:"askName"`
	AskService      string   `yaml:"askService"`
	AskAvailability string   `yaml:"askAvailability"`
	Confirmation    string   `yaml:"confirmation"`
}

// ClinicConfig describes the default clinic and its scripted replies.
type ClinicConfig struct {
	ID                 string   `yaml:"id"`
	Name               string   `yaml:"name"`
	Address            string   `yaml:"address"`
	LeadSource         string   `yaml:"leadSource"`
	SystemPrompt       string   `yaml:"systemPrompt"`
	GreetingKnown      string   `yaml:"greetingKnown"`
	GreetingAnonymous  string   `yaml:"greetingAnonymous"`
	AddressReply       string   `yaml:"addressReply"`
	ContinuationPrompt string   `yaml:"continuationPrompt"`
	Apology            string   `yaml:"apology"`
	AddressKeywords    []string `yaml:"addressKeywords"`
	Greetings          []string `yaml:"greetings"`
}

// PostgresConfig contains DSN and pooling settings.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"maxConns"`
	MinConns int32  `yaml:"minConns"`
}

// RedisConfig contains the Valkey connection used for sessions and stats.
type RedisConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Prefix  string `yaml:"prefix"`
}

// StorageConfig points at the S3-compatible bucket holding catalogs.
type StorageConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
}

// TwilioConfig controls webhook verification.
type TwilioConfig struct {
	AuthToken string `yaml:"authToken"`
	// PublicURL is the externally visible webhook URL Twilio signs.
	PublicURL string `yaml:"publicUrl"`
}

// AdminConfig controls bearer tokens for the admin API.
type AdminConfig struct {
	JWTSecret string        `yaml:"jwtSecret"`
	TokenTTL  time.Duration `yaml:"tokenTtl"`
	Issuer    string        `yaml:"issuer"`
}

// Load reads configuration from defaults, a YAML file, an optional .env file
// and environment variables, in that order.
func Load() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat("configs/config.yaml"); err == nil {
		if err := hydrateFromFile(cfg, "configs/config.yaml"); err != nil {
			return nil, err
		}
	}

	if err := loadDotEnv(envOr("ENV_FILE", ".env")); err != nil {
		return nil, err
	}
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

// loadDotEnv populates unset variables from path. A missing file is fine.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	setString(&cfg.HTTP.Address, "HTTP_ADDRESS")
	setBool(&cfg.HTTP.RateLimit.Enabled, "HTTP_RATE_LIMIT_ENABLED")
	setInt(&cfg.HTTP.RateLimit.RequestsPerMinute, "HTTP_RATE_LIMIT_RPM")
	setInt(&cfg.HTTP.RateLimit.Burst, "HTTP_RATE_LIMIT_BURST")
	setBool(&cfg.HTTP.Retry.Enabled, "HTTP_RETRY_ENABLED")
	setInt(&cfg.HTTP.Retry.MaxAttempts, "HTTP_RETRY_MAX_ATTEMPTS")
	setDuration(&cfg.HTTP.Retry.BaseBackoff, "HTTP_RETRY_BASE_BACKOFF")
	setList(&cfg.HTTP.CORSOrigins, "HTTP_CORS_ORIGINS")

	setString(&cfg.LLM.APIKey, "LLM_API_KEY")
	setString(&cfg.LLM.APIKey, "OPENAI_API_KEY")
	setString(&cfg.LLM.BaseURL, "LLM_BASE_URL")
	setString(&cfg.LLM.Model, "LLM_MODEL")
	if v := os.Getenv("LLM_TEMPERATURE"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 32); err == nil {
			cfg.LLM.Temperature = float32(parsed)
		}
	}
	setInt(&cfg.LLM.MaxTokens, "LLM_MAX_TOKENS")
	setDuration(&cfg.LLM.Timeout, "LLM_TIMEOUT")
	setFloat(&cfg.LLM.RequestsPerMinute, "LLM_RPM")

	setString(&cfg.FAQ.Algorithm, "FAQ_ALGORITHM")
	setFloat(&cfg.FAQ.SimilarityThreshold, "FAQ_SIMILARITY_THRESHOLD")
	setInt(&cfg.FAQ.TopRecommendations, "FAQ_RECOMMENDATIONS")
	setString(&cfg.FAQ.Catalog.Source, "FAQ_CATALOG_SOURCE")
	setString(&cfg.FAQ.Catalog.Path, "FAQ_CATALOG_PATH")
	setBool(&cfg.FAQ.Catalog.Watch, "FAQ_CATALOG_WATCH")
	setString(&cfg.FAQ.Catalog.ObjectKey, "FAQ_CATALOG_OBJECT_KEY")
	setDuration(&cfg.FAQ.Catalog.RefreshInterval, "FAQ_CATALOG_REFRESH")

	setDuration(&cfg.Session.TTL, "SESSION_TTL")

	setString(&cfg.Clinic.ID, "CLINIC_ID")
	setString(&cfg.Clinic.Name, "CLINIC_NAME")
	setString(&cfg.Clinic.Address, "CLINIC_ADDRESS")
	setString(&cfg.Clinic.SystemPrompt, "CLINIC_SYSTEM_PROMPT")

	setString(&cfg.Postgres.DSN, "POSTGRES_DSN")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setBool(&cfg.Redis.Enabled, "REDIS_ENABLED")
	setString(&cfg.Redis.Addr, "REDIS_ADDR")

	setString(&cfg.Storage.Endpoint, "STORAGE_ENDPOINT")
	setString(&cfg.Storage.AccessKey, "STORAGE_ACCESS_KEY")
	setString(&cfg.Storage.SecretKey, "STORAGE_SECRET_KEY")
	setString(&cfg.Storage.Bucket, "STORAGE_BUCKET")
	setString(&cfg.Storage.Region, "STORAGE_REGION")

	setString(&cfg.Twilio.AuthToken, "TWILIO_AUTH_TOKEN")
	setString(&cfg.Twilio.PublicURL, "TWILIO_WEBHOOK_URL")

	setString(&cfg.Admin.JWTSecret, "ADMIN_JWT_SECRET")
	setDuration(&cfg.Admin.TokenTTL, "ADMIN_TOKEN_TTL")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v == "1" || strings.EqualFold(v, "true")
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			*dst = parsed
		}
	}
}

func setFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = parsed
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			*dst = parsed
		}
	}
}

func setList(dst *[]string, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	*dst = out
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 120,
				Burst:             30,
			},
			Retry: RetryConfig{
				Enabled:     true,
				MaxAttempts: 3,
				BaseBackoff: 150 * time.Millisecond,
				Exclude: []string{
					"/webhooks/whatsapp",
				},
			},
		},
		LLM: LLMConfig{
			Model:             "gpt-4o-mini",
			Temperature:       0.3,
			MaxTokens:         300,
			Timeout:           20 * time.Second,
			RequestsPerMinute: 60,
			Burst:             5,
		},
		FAQ: FAQConfig{
			Algorithm:           "ratcliff_obershelp",
			SimilarityThreshold: 0.6,
			TopRecommendations:  10,
			Catalog: CatalogConfig{
				Source:          CatalogMemory,
				ObjectKey:       "faq.yaml",
				RefreshInterval: 5 * time.Minute,
			},
		},
		Session: SessionConfig{
			TTL:           30 * time.Minute,
			SweepInterval: 5 * time.Minute,
		},
		Intake: IntakeConfig{
			Keywords: []string{"consulta", "agendar"},
		},
		Clinic: ClinicConfig{
			ID:         "default",
			Name:       "the clinic",
			LeadSource: "whatsapp",
		},
		Postgres: PostgresConfig{
			MaxConns: 4,
		},
		Redis: RedisConfig{
			Prefix: "clinic",
		},
		Storage: StorageConfig{
			Region: "auto",
		},
		Admin: AdminConfig{
			TokenTTL: 24 * time.Hour,
			Issuer:   "clinic-assistant",
		},
	}
}

// Validate ensures the configuration is safe to use.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	if c.HTTP.RateLimit.Enabled {
		if c.HTTP.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("http.rateLimit.requestsPerMinute must be positive")
		}
		if c.HTTP.RateLimit.Burst <= 0 {
			return errors.New("http.rateLimit.burst must be positive")
		}
	}
	if c.HTTP.Retry.Enabled {
		if c.HTTP.Retry.MaxAttempts <= 0 {
			return errors.New("http.retry.maxAttempts must be positive")
		}
		if c.HTTP.Retry.BaseBackoff <= 0 {
			return errors.New("http.retry.baseBackoff must be positive")
		}
	}
	if c.LLM.Timeout < 0 {
		return errors.New("llm.timeout cannot be negative")
	}
	if c.LLM.RequestsPerMinute < 0 {
		return errors.New("llm.requestsPerMinute cannot be negative")
	}
	if c.FAQ.SimilarityThreshold < 0 || c.FAQ.SimilarityThreshold >= 1 {
		return errors.New("faq.similarityThreshold must be in [0, 1)")
	}
	if c.FAQ.TopRecommendations < 0 {
		return errors.New("faq.topRecommendations cannot be negative")
	}
	switch c.FAQ.Catalog.Source {
	case CatalogMemory:
	case CatalogFile:
		if strings.TrimSpace(c.FAQ.Catalog.Path) == "" {
			return errors.New("faq.catalog.path is required for the file source")
		}
	case CatalogPostgres:
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			return errors.New("postgres.dsn is required for the postgres catalog source")
		}
	case CatalogObject:
		if strings.TrimSpace(c.Storage.Bucket) == "" || strings.TrimSpace(c.Storage.Endpoint) == "" {
			return errors.New("storage.endpoint and storage.bucket are required for the object catalog source")
		}
		if strings.TrimSpace(c.FAQ.Catalog.ObjectKey) == "" {
			return errors.New("faq.catalog.objectKey cannot be empty")
		}
	default:
		return fmt.Errorf("faq.catalog.source %q is not supported", c.FAQ.Catalog.Source)
	}
	if c.Session.TTL <= 0 {
		return errors.New("session.ttl must be positive")
	}
	if strings.TrimSpace(c.Clinic.ID) == "" {
		return errors.New("clinic.id cannot be empty")
	}
	if c.Redis.Enabled && strings.TrimSpace(c.Redis.Addr) == "" {
		return errors.New("redis.addr cannot be empty when redis is enabled")
	}
	if c.Admin.TokenTTL <= 0 {
		return errors.New("admin.tokenTtl must be positive")
	}
	return nil
}
