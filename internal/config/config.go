package config

import (
	"fmt"
	"sync"

	"github.com/spf13/viper"
)

type ServerConfig struct {
	Address string `mapstructure:"address"`
	Port    int    `mapstructure:"port"`
	Mode    string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Path    string `mapstructure:"path"`
	LogMode bool   `mapstructure:"log_mode"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	Issuer      string `mapstructure:"issuer"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

type AppConfig struct {
	Debug           bool   `mapstructure:"debug"`
	DefaultCurrency string `mapstructure:"default_currency"`
	PageSize        int    `mapstructure:"page_size"`
}

type MailConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
}

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	App      AppConfig      `mapstructure:"app"`
	Mail     MailConfig     `mapstructure:"mail"`
}

var (
	appConfig *Config
	once      sync.Once
)

// Load loads configuration from the given file path (e.g.
// "config.yaml"). Environment variables with the FIN prefix override
// file values, e.g. FIN_APP_DEBUG=true or FIN_DATABASE_PATH.
func Load(path string) (*Config, error) {
	var err error
	once.Do(func() {
		appConfig, err = load(path)
	})
	if err != nil {
		return nil, err
	}
	return appConfig, nil
}

func load(path string) (*Config, error) {
	v := viper.New()

	if path == "" {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("FIN")
	v.AutomaticEnv()

	v.SetDefault("server.address", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("jwt.expire_hours", 24)
	v.SetDefault("app.default_currency", "COP")
	v.SetDefault("app.page_size", 20)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate fails fast on missing required values so a misconfigured
// process never starts serving.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret is required")
	}
	switch c.App.DefaultCurrency {
	case "COP", "USD", "EUR":
	default:
		return fmt.Errorf("app.default_currency must be one of COP, USD, EUR; got %q", c.App.DefaultCurrency)
	}
	return nil
}

// Get returns the loaded global configuration.
// Call Load() once at application startup.
func Get() *Config {
	return appConfig
}
