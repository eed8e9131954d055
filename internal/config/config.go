package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrMissingParameter marks a required setting that is unset.
var ErrMissingParameter = errors.New("missing required parameter")

type Config struct {
	Server struct {
		Port        int               `yaml:"port"`
		APIKeys     map[string]string `yaml:"api_keys"`
		CORSOrigins []string          `yaml:"cors_origins"`
		RateLimit   struct {
			RPS   float64 `yaml:"rps"`
			Burst int     `yaml:"burst"`
		} `yaml:"rate_limit"`
	} `yaml:"server"`

	Database struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslmode"`
		Migrate  bool   `yaml:"migrate"`
	} `yaml:"database"`

	Minio struct {
		Enabled    bool   `yaml:"enabled"`
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`

	// ContextStore.Driver: memory | file | mysql | postgres
	ContextStore struct {
		Driver string `yaml:"driver"`
		Path   string `yaml:"path"`
	} `yaml:"context_store"`

	// Oracle.Provider: openai | gemini
	Oracle struct {
		Provider       string `yaml:"provider"`
		APIKey         string `yaml:"api_key"`
		BaseURL        string `yaml:"base_url"`
		Model          string `yaml:"model"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"oracle"`

	Pipeline struct {
		WebhookURL   string `yaml:"webhook_url"`
		TemplatePath string `yaml:"template_path"`
		ProjectInfo  string `yaml:"project_info"`
		ContextURL   string `yaml:"context_url"`
		ScanLogPath  string `yaml:"scan_log_path"`
	} `yaml:"pipeline"`

	Log struct {
		Level      string `yaml:"level"`
		Format     string `yaml:"format"` // json | console
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
	} `yaml:"log"`
}

// Load baca file config.yaml, lalu env override
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parse(data)
}

// LoadOptional is Load for tools that can run from the environment alone:
// a missing file is not an error.
func LoadOptional(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return parse(nil)
	}
	if err != nil {
		return nil, err
	}
	return parse(data)
}

// Path returns CONFIG_PATH or config.yaml.
func Path() string {
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return "config.yaml"
}

func parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg, nil
}

// env names match the original deployment
func (c *Config) applyEnv() {
	setFromEnv(&c.Pipeline.WebhookURL, "DISCORD_WEBHOOK_URL")
	setFromEnv(&c.Pipeline.TemplatePath, "MODEL_HUMOR_PATH1", "MODEL_HUMOR_PATH")
	setFromEnv(&c.Oracle.APIKey, "ORACLE_API_KEY", "DEEPSEEK_API_KEY")
	setFromEnv(&c.Pipeline.ProjectInfo, "PROJECT_CONTEXT_INFO")
	setFromEnv(&c.Pipeline.ContextURL, "MCP_CONTEXT_URL")
	setFromEnv(&c.Pipeline.ScanLogPath, "SCAN_LOG_PATH")
	setFromEnv(&c.Log.Level, "LOG_LEVEL")
}

// setFromEnv takes the first non-empty variable among names.
func setFromEnv(dst *string, names ...string) {
	for _, n := range names {
		if v := strings.TrimSpace(os.Getenv(n)); v != "" {
			*dst = v
			return
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.RateLimit.RPS == 0 {
		c.Server.RateLimit.RPS = 10
	}
	if c.Server.RateLimit.Burst == 0 {
		c.Server.RateLimit.Burst = 20
	}
	if c.ContextStore.Driver == "" {
		c.ContextStore.Driver = "memory"
	}
	if c.ContextStore.Driver == "file" && c.ContextStore.Path == "" {
		c.ContextStore.Path = "data/context.json"
	}
	if c.Oracle.Provider == "" {
		c.Oracle.Provider = "openai"
	}
	if c.Oracle.TimeoutSeconds == 0 {
		c.Oracle.TimeoutSeconds = 120
	}
	if c.Pipeline.ScanLogPath == "" {
		c.Pipeline.ScanLogPath = "trivy_output.json"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}

// ValidatePipeline reports every missing setting the report pipeline needs,
// joined into one error. Each part wraps ErrMissingParameter.
func (c *Config) ValidatePipeline() error {
	required := []struct {
		name  string
		value string
	}{
		{"DISCORD_WEBHOOK_URL (pipeline.webhook_url)", c.Pipeline.WebhookURL},
		{"MODEL_HUMOR_PATH1 (pipeline.template_path)", c.Pipeline.TemplatePath},
		{"ORACLE_API_KEY (oracle.api_key)", c.Oracle.APIKey},
		{"PROJECT_CONTEXT_INFO (pipeline.project_info)", c.Pipeline.ProjectInfo},
	}
	var errs []error
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs = append(errs, fmt.Errorf("%w: %s", ErrMissingParameter, r.name))
		}
	}
	switch c.Oracle.Provider {
	case "openai", "gemini":
	default:
		errs = append(errs, fmt.Errorf("unknown oracle provider %q", c.Oracle.Provider))
	}
	return errors.Join(errs...)
}

// Helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// PostgresDSN in lib/pq key=value form.
func (c *Config) PostgresDSN() string {
	ssl := c.Database.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		ssl,
	)
}
