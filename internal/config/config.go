// Package config manages application configuration from files and environment.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the application configuration.
type Config struct {
	Provider string `mapstructure:"provider"`
	Model    string `mapstructure:"model"`
	APIKeys  struct {
		Anthropic string `mapstructure:"anthropic"`
		OpenAI    string `mapstructure:"openai"`
	} `mapstructure:"api_keys"`
	Ollama struct {
		Host string `mapstructure:"host"`
	} `mapstructure:"ollama"`
	OpenAI struct {
		BaseURL string `mapstructure:"base_url"`
	} `mapstructure:"openai"`

	Suggest struct {
		// Endpoint is a remote suggestion service. Empty uses the local provider.
		Endpoint   string        `mapstructure:"endpoint"`
		Token      string        `mapstructure:"token"`
		SampleRows int           `mapstructure:"sample_rows"`
		Timeout    time.Duration `mapstructure:"timeout"`
		Attempts   int           `mapstructure:"attempts"`
	} `mapstructure:"suggest"`

	Storage struct {
		Database string `mapstructure:"database"`
		BlobDir  string `mapstructure:"blob_dir"`
	} `mapstructure:"storage"`

	Upload struct {
		MaxBytes int64 `mapstructure:"max_bytes"`
	} `mapstructure:"upload"`

	User struct {
		ID string `mapstructure:"id"`
	} `mapstructure:"user"`

	Server   ServerConfig   `mapstructure:"server"`
	Security SecurityConfig `mapstructure:"security"`

	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`

	Output struct {
		Format string `mapstructure:"format"`
		Color  bool   `mapstructure:"color"`
	} `mapstructure:"output"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// SecurityConfig holds the request limits applied by the server.
type SecurityConfig struct {
	RateLimitRPS   float64  `mapstructure:"rate_limit_rps"`
	RateLimitBurst int      `mapstructure:"rate_limit_burst"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Load reads the configuration from ~/.dash/config.yaml, or the file given to
// UseFile, and environment variables.
func Load() (*Config, error) {
	dir := configDir()

	// SetConfigName drops a file set by UseFile, so only search when none was.
	if viper.ConfigFileUsed() == "" {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(dir)
	}

	setDefaults(dir)

	// DASH_SERVER_PORT -> server.port
	viper.SetEnvPrefix("DASH")
	viper.SetEnvKeyReplacer(envKeys)
	viper.AutomaticEnv()

	// Read config file (non-fatal if missing)
	_ = viper.ReadInConfig()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(dir string) {
	viper.SetDefault("provider", "anthropic")
	viper.SetDefault("model", "claude-sonnet-4-20250514")
	viper.SetDefault("api_keys.anthropic", "")
	viper.SetDefault("api_keys.openai", "")
	viper.SetDefault("ollama.host", "http://localhost:11434")
	viper.SetDefault("openai.base_url", "")

	// Unmarshal only sees env overrides for keys viper already knows.
	viper.SetDefault("suggest.endpoint", "")
	viper.SetDefault("suggest.token", "")

	viper.SetDefault("suggest.sample_rows", 10)
	viper.SetDefault("suggest.timeout", 60*time.Second)
	viper.SetDefault("suggest.attempts", 1)

	viper.SetDefault("storage.database", filepath.Join(dir, "dash.db"))
	viper.SetDefault("storage.blob_dir", filepath.Join(dir, "files"))
	viper.SetDefault("upload.max_bytes", 20<<20)
	viper.SetDefault("user.id", "local")

	viper.SetDefault("server.host", "127.0.0.1")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 15*time.Second)
	// SSE streams stay open, so writes are not bounded by default.
	viper.SetDefault("server.write_timeout", 0)
	viper.SetDefault("server.idle_timeout", 60*time.Second)
	viper.SetDefault("server.shutdown_timeout", 30*time.Second)

	viper.SetDefault("security.rate_limit_rps", 10.0)
	viper.SetDefault("security.rate_limit_burst", 20)
	viper.SetDefault("security.allowed_origins", []string{"*"})

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")

	viper.SetDefault("output.color", true)
	viper.SetDefault("output.format", "text")
}

func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".dash"
	}
	return filepath.Join(home, ".dash")
}

var envKeys = strings.NewReplacer(".", "_")

// UseFile points Load at an explicit config file instead of ~/.dash/config.yaml.
func UseFile(path string) {
	if path != "" {
		viper.SetConfigFile(path)
	}
}
