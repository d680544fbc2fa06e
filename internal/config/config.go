package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"claimflow/internal/domain"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	DB       DBConfig
	S3       S3Config
	Log      LogConfig
	Auth     AuthConfig
	Reasoner ReasonerConfig
	Pipeline PipelineConfig
	CORS     CORSConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
	MaxUploadMB  int64         `mapstructure:"max_upload_mb"`
}

// DBConfig holds PostgreSQL connection settings. Persistence is optional;
// the pipeline runs fully in-memory when Enabled is false.
type DBConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// S3Config holds AWS S3 settings for document archival. An empty Bucket
// disables archival.
type S3Config struct {
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// AuthConfig holds bearer-token settings. An empty Secret disables auth.
type AuthConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
}

// ReasonerProviderConfig holds settings for a single reasoning provider.
type ReasonerProviderConfig struct {
	Provider     string `mapstructure:"provider"`
	APIKey       string `mapstructure:"api_key"`
	DefaultModel string `mapstructure:"default_model"`
	TimeoutSecs  int    `mapstructure:"timeout_secs"`
}

// ReasonerConfig holds reasoning service settings with fallback support.
type ReasonerConfig struct {
	Primary   ReasonerProviderConfig `mapstructure:"primary"`
	Secondary ReasonerProviderConfig `mapstructure:"secondary"`
}

// SecondaryConfig returns the secondary provider config, or nil if not configured.
func (r *ReasonerConfig) SecondaryConfig() *ReasonerProviderConfig {
	if r.Secondary.Provider != "" {
		return &r.Secondary
	}
	return nil
}

// PipelineConfig holds the orchestration policy surface.
type PipelineConfig struct {
	MaxConcurrency  int      `mapstructure:"max_concurrency"`
	CallTimeoutSecs int      `mapstructure:"call_timeout_secs"`
	RetryBackoffMs  int      `mapstructure:"retry_backoff_ms"`
	ReviewThreshold float64  `mapstructure:"review_threshold"`
	RequiredTypes   []string `mapstructure:"required_types"`
	DecisionAssist  bool     `mapstructure:"decision_assist"`
}

// CallTimeout returns the per-call timeout as a duration.
func (p *PipelineConfig) CallTimeout() time.Duration {
	return time.Duration(p.CallTimeoutSecs) * time.Second
}

// RetryBackoff returns the retry backoff as a duration.
func (p *PipelineConfig) RetryBackoff() time.Duration {
	return time.Duration(p.RetryBackoffMs) * time.Millisecond
}

// RequiredDocumentTypes converts the configured required type names into
// domain types, falling back to the canonical set when unset.
func (p *PipelineConfig) RequiredDocumentTypes() []domain.DocumentType {
	if len(p.RequiredTypes) == 0 {
		return domain.RequiredDocumentTypes
	}
	types := make([]domain.DocumentType, 0, len(p.RequiredTypes))
	for _, t := range p.RequiredTypes {
		types = append(types, domain.DocumentType(strings.TrimSpace(t)))
	}
	return types
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Load reads configuration from environment variables with the CLAIMFLOW_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CLAIMFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "120s")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.max_upload_mb", 25)

	// DB defaults
	v.SetDefault("db.enabled", false)
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "claimflow")
	v.SetDefault("db.password", "claimflow_secret")
	v.SetDefault("db.name", "claimflow_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)

	// S3 defaults
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "")
	v.SetDefault("s3.endpoint", "")

	// Log defaults
	v.SetDefault("log.level", "info")

	// Auth defaults
	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.issuer", "claimflow")

	// Reasoner defaults
	v.SetDefault("reasoner.primary.provider", "gemini")
	v.SetDefault("reasoner.primary.api_key", "")
	v.SetDefault("reasoner.primary.default_model", "gemini-2.0-flash")
	v.SetDefault("reasoner.primary.timeout_secs", 30)
	v.SetDefault("reasoner.secondary.provider", "")
	v.SetDefault("reasoner.secondary.api_key", "")
	v.SetDefault("reasoner.secondary.default_model", "")
	v.SetDefault("reasoner.secondary.timeout_secs", 30)

	// Pipeline defaults
	v.SetDefault("pipeline.max_concurrency", 8)
	v.SetDefault("pipeline.call_timeout_secs", 30)
	v.SetDefault("pipeline.retry_backoff_ms", 500)
	v.SetDefault("pipeline.review_threshold", 0.7)
	v.SetDefault("pipeline.required_types", "bill,discharge_summary,id_card")
	v.SetDefault("pipeline.decision_assist", false)

	// CORS defaults (localhost origins for development)
	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000")

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":                      "CLAIMFLOW_SERVER_PORT",
		"server.read_timeout":              "CLAIMFLOW_SERVER_READ_TIMEOUT",
		"server.write_timeout":             "CLAIMFLOW_SERVER_WRITE_TIMEOUT",
		"server.environment":               "CLAIMFLOW_SERVER_ENVIRONMENT",
		"server.max_upload_mb":             "CLAIMFLOW_SERVER_MAX_UPLOAD_MB",
		"db.enabled":                       "CLAIMFLOW_DB_ENABLED",
		"db.host":                          "CLAIMFLOW_DB_HOST",
		"db.port":                          "CLAIMFLOW_DB_PORT",
		"db.user":                          "CLAIMFLOW_DB_USER",
		"db.password":                      "CLAIMFLOW_DB_PASSWORD",
		"db.name":                          "CLAIMFLOW_DB_NAME",
		"db.sslmode":                       "CLAIMFLOW_DB_SSLMODE",
		"db.max_open":                      "CLAIMFLOW_DB_MAX_OPEN",
		"db.max_idle":                      "CLAIMFLOW_DB_MAX_IDLE",
		"s3.region":                        "CLAIMFLOW_S3_REGION",
		"s3.bucket":                        "CLAIMFLOW_S3_BUCKET",
		"s3.endpoint":                      "CLAIMFLOW_S3_ENDPOINT",
		"s3.access_key":                    "CLAIMFLOW_S3_ACCESS_KEY",
		"s3.secret_key":                    "CLAIMFLOW_S3_SECRET_KEY",
		"log.level":                        "CLAIMFLOW_LOG_LEVEL",
		"auth.secret":                      "CLAIMFLOW_AUTH_SECRET",
		"auth.issuer":                      "CLAIMFLOW_AUTH_ISSUER",
		"reasoner.primary.provider":        "CLAIMFLOW_REASONER_PRIMARY_PROVIDER",
		"reasoner.primary.api_key":         "CLAIMFLOW_REASONER_PRIMARY_API_KEY",
		"reasoner.primary.default_model":   "CLAIMFLOW_REASONER_PRIMARY_DEFAULT_MODEL",
		"reasoner.primary.timeout_secs":    "CLAIMFLOW_REASONER_PRIMARY_TIMEOUT_SECS",
		"reasoner.secondary.provider":      "CLAIMFLOW_REASONER_SECONDARY_PROVIDER",
		"reasoner.secondary.api_key":       "CLAIMFLOW_REASONER_SECONDARY_API_KEY",
		"reasoner.secondary.default_model": "CLAIMFLOW_REASONER_SECONDARY_DEFAULT_MODEL",
		"reasoner.secondary.timeout_secs":  "CLAIMFLOW_REASONER_SECONDARY_TIMEOUT_SECS",
		"pipeline.max_concurrency":         "CLAIMFLOW_PIPELINE_MAX_CONCURRENCY",
		"pipeline.call_timeout_secs":       "CLAIMFLOW_PIPELINE_CALL_TIMEOUT_SECS",
		"pipeline.retry_backoff_ms":        "CLAIMFLOW_PIPELINE_RETRY_BACKOFF_MS",
		"pipeline.review_threshold":        "CLAIMFLOW_PIPELINE_REVIEW_THRESHOLD",
		"pipeline.required_types":          "CLAIMFLOW_PIPELINE_REQUIRED_TYPES",
		"pipeline.decision_assist":         "CLAIMFLOW_PIPELINE_DECISION_ASSIST",
		"cors.allowed_origins":             "CLAIMFLOW_CORS_ALLOWED_ORIGINS",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Railway/Heroku/Render set a PORT env var. Use it if CLAIMFLOW_SERVER_PORT
	// is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("CLAIMFLOW_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
		MaxUploadMB:  v.GetInt64("server.max_upload_mb"),
	}
	cfg.DB = DBConfig{
		Enabled:  v.GetBool("db.enabled"),
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.S3 = S3Config{
		Region:    v.GetString("s3.region"),
		Bucket:    v.GetString("s3.bucket"),
		Endpoint:  v.GetString("s3.endpoint"),
		AccessKey: v.GetString("s3.access_key"),
		SecretKey: v.GetString("s3.secret_key"),
	}
	cfg.Log = LogConfig{
		Level: v.GetString("log.level"),
	}
	cfg.Auth = AuthConfig{
		Secret: v.GetString("auth.secret"),
		Issuer: v.GetString("auth.issuer"),
	}
	cfg.Reasoner = ReasonerConfig{
		Primary: ReasonerProviderConfig{
			Provider:     v.GetString("reasoner.primary.provider"),
			APIKey:       v.GetString("reasoner.primary.api_key"),
			DefaultModel: v.GetString("reasoner.primary.default_model"),
			TimeoutSecs:  v.GetInt("reasoner.primary.timeout_secs"),
		},
		Secondary: ReasonerProviderConfig{
			Provider:     v.GetString("reasoner.secondary.provider"),
			APIKey:       v.GetString("reasoner.secondary.api_key"),
			DefaultModel: v.GetString("reasoner.secondary.default_model"),
			TimeoutSecs:  v.GetInt("reasoner.secondary.timeout_secs"),
		},
	}

	// Parse required types from comma-separated string
	var requiredTypes []string
	for _, t := range strings.Split(v.GetString("pipeline.required_types"), ",") {
		t = strings.TrimSpace(t)
		if t != "" {
			requiredTypes = append(requiredTypes, t)
		}
	}
	cfg.Pipeline = PipelineConfig{
		MaxConcurrency:  v.GetInt("pipeline.max_concurrency"),
		CallTimeoutSecs: v.GetInt("pipeline.call_timeout_secs"),
		RetryBackoffMs:  v.GetInt("pipeline.retry_backoff_ms"),
		ReviewThreshold: v.GetFloat64("pipeline.review_threshold"),
		RequiredTypes:   requiredTypes,
		DecisionAssist:  v.GetBool("pipeline.decision_assist"),
	}

	// Parse CORS allowed origins from comma-separated string
	var corsOrigins []string
	for _, o := range strings.Split(v.GetString("cors.allowed_origins"), ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			corsOrigins = append(corsOrigins, o)
		}
	}
	cfg.CORS = CORSConfig{
		AllowedOrigins: corsOrigins,
	}

	return cfg, nil
}
