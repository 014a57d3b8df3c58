package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "CLAIMINTAKE"

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	DB         DBConfig
	S3         S3Config
	Log        LogConfig
	Extraction ExtractionConfig
	Assistant  AssistantConfig
	Policy     PolicyConfig
	Schema     SchemaConfig
	CORS       CORSConfig
	Queue      QueueConfig
	Email      EmailConfig
}

// EmailConfig holds email delivery settings.
type EmailConfig struct {
	Provider    string `mapstructure:"provider"`
	Region      string `mapstructure:"region"`
	FromAddress string `mapstructure:"from_address"`
	FromName    string `mapstructure:"from_name"`
}

// QueueConfig holds intake queue worker settings.
type QueueConfig struct {
	PollIntervalSecs int `mapstructure:"poll_interval_secs"`
	Concurrency      int `mapstructure:"concurrency"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// SchemaConfig points at an optional directory of extra claim schemas.
type SchemaConfig struct {
	Dir string `mapstructure:"dir"`
}

// PolicyConfig holds settings for the policy and claim domain services.
type PolicyConfig struct {
	BaseURL     string `mapstructure:"base_url"`
	APIKey      string `mapstructure:"api_key"`
	LBU         string `mapstructure:"lbu"`
	TimeoutSecs int    `mapstructure:"timeout_secs"`
}

// Enabled reports whether a policy service is configured.
func (p *PolicyConfig) Enabled() bool { return p.BaseURL != "" }

// ProviderConfig holds settings for a single document extraction provider.
type ProviderConfig struct {
	Provider        string `mapstructure:"provider"`
	APIKey          string `mapstructure:"api_key"`
	Endpoint        string `mapstructure:"endpoint"`
	DefaultModel    string `mapstructure:"default_model"`
	AnalyzerID      string `mapstructure:"analyzer_id"`
	APIVersion      string `mapstructure:"api_version"`
	PollIntervalMs  int    `mapstructure:"poll_interval_ms"`
	PollTimeoutSecs int    `mapstructure:"poll_timeout_secs"`
	TimeoutSecs     int    `mapstructure:"timeout_secs"`
}

// ExtractionConfig holds document extraction settings with multi-provider support.
type ExtractionConfig struct {
	// Mode is "single", "fallback" (primary, then secondary, then tertiary)
	// or "dual" (primary and secondary in parallel, merged).
	Mode          string  `mapstructure:"mode"`
	MinConfidence float64 `mapstructure:"min_confidence"`
	MaxFileSizeMB int64   `mapstructure:"max_file_size_mb"`
	Concurrency   int     `mapstructure:"concurrency"`

	Primary   ProviderConfig `mapstructure:"primary"`
	Secondary ProviderConfig `mapstructure:"secondary"`
	Tertiary  ProviderConfig `mapstructure:"tertiary"`
}

// PrimaryConfig returns the primary provider config.
func (e *ExtractionConfig) PrimaryConfig() *ProviderConfig {
	return &e.Primary
}

// SecondaryConfig returns the secondary provider config, or nil if not configured.
func (e *ExtractionConfig) SecondaryConfig() *ProviderConfig {
	if e.Secondary.Provider != "" {
		return inherit(&e.Secondary, &e.Primary)
	}
	return nil
}

// TertiaryConfig returns the tertiary provider config, or nil if not configured.
func (e *ExtractionConfig) TertiaryConfig() *ProviderConfig {
	if e.Tertiary.Provider != "" {
		return inherit(&e.Tertiary, &e.Primary)
	}
	return nil
}

func inherit(c, from *ProviderConfig) *ProviderConfig {
	out := *c
	if out.TimeoutSecs == 0 {
		out.TimeoutSecs = from.TimeoutSecs
	}
	if out.PollIntervalMs == 0 {
		out.PollIntervalMs = from.PollIntervalMs
	}
	if out.PollTimeoutSecs == 0 {
		out.PollTimeoutSecs = from.PollTimeoutSecs
	}
	return &out
}

// AssistantConfig holds the claim assembly/classification provider settings.
type AssistantConfig struct {
	Provider           string  `mapstructure:"provider"`
	APIKey             string  `mapstructure:"api_key"`
	Endpoint           string  `mapstructure:"endpoint"`
	Model              string  `mapstructure:"model"`
	APIVersion         string  `mapstructure:"api_version"`
	Scope              string  `mapstructure:"scope"`
	Temperature        float64 `mapstructure:"temperature"`
	InsecureSkipVerify bool    `mapstructure:"insecure_skip_verify"`
	TimeoutSecs        int     `mapstructure:"timeout_secs"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// DBConfig holds database connection settings.
type DBConfig struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	Path     string `mapstructure:"path"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`

	// AutoMigrate applies pending migrations at server startup.
	AutoMigrate bool `mapstructure:"auto_migrate"`
}

// DSN returns the connection string for the configured driver.
func (d *DBConfig) DSN() string {
	if d.Driver == "sqlite" {
		return fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", d.Path)
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// S3Config holds AWS S3 settings.
type S3Config struct {
	Region        string `mapstructure:"region"`
	Bucket        string `mapstructure:"bucket"`
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	PresignExpiry int64  `mapstructure:"presign_expiry"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

var providerDefaults = map[string]interface{}{
	"provider":          "",
	"api_key":           "",
	"endpoint":          "",
	"default_model":     "",
	"analyzer_id":       "",
	"api_version":       "",
	"poll_interval_ms":  0,
	"poll_timeout_secs": 0,
	"timeout_secs":      0,
}

// Load reads an optional .env file, an optional config file named by
// CLAIMINTAKE_CONFIG_FILE, and environment variables with the CLAIMINTAKE_ prefix.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "120s")
	v.SetDefault("server.environment", "development")

	// DB defaults
	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "claimintake")
	v.SetDefault("db.password", "claimintake_secret")
	v.SetDefault("db.name", "claimintake")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.path", "claimintake.db")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)
	v.SetDefault("db.auto_migrate", true)

	// S3 defaults
	v.SetDefault("s3.region", "ap-southeast-1")
	v.SetDefault("s3.bucket", "claimintake-receipts")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.access_key", "")
	v.SetDefault("s3.secret_key", "")
	v.SetDefault("s3.presign_expiry", 3600)

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "console")

	// Extraction defaults
	v.SetDefault("extraction.mode", "single")
	v.SetDefault("extraction.min_confidence", 0.3)
	v.SetDefault("extraction.max_file_size_mb", 20)
	v.SetDefault("extraction.concurrency", 4)
	for _, slot := range []string{"primary", "secondary", "tertiary"} {
		for k, val := range providerDefaults {
			v.SetDefault("extraction."+slot+"."+k, val)
		}
	}
	v.SetDefault("extraction.primary.provider", "azurecu")
	v.SetDefault("extraction.primary.analyzer_id", "hclaim")
	v.SetDefault("extraction.primary.api_version", "2024-12-01-preview")
	v.SetDefault("extraction.primary.poll_interval_ms", 1000)
	v.SetDefault("extraction.primary.poll_timeout_secs", 60)
	v.SetDefault("extraction.primary.timeout_secs", 120)

	// Assistant defaults
	v.SetDefault("assistant.provider", "heuristic")
	v.SetDefault("assistant.api_key", "")
	v.SetDefault("assistant.endpoint", "")
	v.SetDefault("assistant.model", "")
	v.SetDefault("assistant.api_version", "")
	v.SetDefault("assistant.scope", "GIGACHAT_API_PERS")
	v.SetDefault("assistant.temperature", 0.1)
	v.SetDefault("assistant.insecure_skip_verify", false)
	v.SetDefault("assistant.timeout_secs", 120)

	// Policy service defaults
	v.SetDefault("policy.base_url", "")
	v.SetDefault("policy.api_key", "")
	v.SetDefault("policy.lbu", "COE")
	v.SetDefault("policy.timeout_secs", 30)

	v.SetDefault("schema.dir", "")

	// CORS defaults (localhost origins for development)
	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000,http://localhost:8501")

	// Queue defaults
	v.SetDefault("queue.poll_interval_secs", 5)
	v.SetDefault("queue.concurrency", 2)

	// Email defaults
	v.SetDefault("email.provider", "noop")
	v.SetDefault("email.region", "ap-southeast-1")
	v.SetDefault("email.from_address", "claims@claimintake.local")
	v.SetDefault("email.from_name", "Claim Intake")

	// Bind environment variables explicitly for nested keys
	for _, key := range v.AllKeys() {
		_ = v.BindEnv(key, envName(key))
	}

	if file := os.Getenv(envPrefix + "_CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", file, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	// Railway/Heroku/Render set a PORT env var. Use it if CLAIMINTAKE_SERVER_PORT is not explicitly set.
	if port := os.Getenv("PORT"); port != "" && os.Getenv(envName("server.port")) == "" {
		cfg.Server.Port = ":" + port
	}

	// Parse CORS allowed origins from comma-separated string
	var corsOrigins []string
	for _, o := range strings.Split(v.GetString("cors.allowed_origins"), ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			corsOrigins = append(corsOrigins, o)
		}
	}
	cfg.CORS = CORSConfig{AllowedOrigins: corsOrigins}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func envName(key string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func (c *Config) validate() error {
	switch c.DB.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported db driver: %s", c.DB.Driver)
	}
	switch c.Extraction.Mode {
	case "single", "fallback", "dual":
	default:
		return fmt.Errorf("unsupported extraction mode: %s", c.Extraction.Mode)
	}
	if c.Extraction.Mode == "dual" && c.Extraction.SecondaryConfig() == nil {
		return errors.New("extraction mode dual requires a secondary provider")
	}
	if c.Extraction.MinConfidence < 0 || c.Extraction.MinConfidence > 1 {
		return fmt.Errorf("extraction.min_confidence must be within [0,1], got %v", c.Extraction.MinConfidence)
	}
	return nil
}
