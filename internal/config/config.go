package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string   `mapstructure:"PORT"`
	Env         string   `mapstructure:"ENV"`
	DatabaseURL string   `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32    `mapstructure:"DB_MIN_CONNS"`
	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`

	AuthSecret      string `mapstructure:"AUTH_SECRET"`
	TokenTTLMinutes int    `mapstructure:"TOKEN_TTL_MINUTES"`

	// File-share collaborator. Backend is one of "smb", "s3" or "dir".
	ShareBackend string `mapstructure:"SHARE_BACKEND"`
	ShareName    string `mapstructure:"SHARE_NAME"`
	SMBAddress   string `mapstructure:"SMB_ADDRESS"`
	SMBUser      string `mapstructure:"SMB_USER"`
	SMBPassword  string `mapstructure:"SMB_PASSWORD"`
	S3Endpoint   string `mapstructure:"S3_ENDPOINT"`
	S3AccessKey  string `mapstructure:"S3_ACCESS_KEY"`
	S3SecretKey  string `mapstructure:"S3_SECRET_KEY"`
	S3UseSSL     bool   `mapstructure:"S3_USE_SSL"`
	ShareDir     string `mapstructure:"SHARE_DIR"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("TOKEN_TTL_MINUTES", 30)
	v.SetDefault("SHARE_BACKEND", "smb")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("AUTH_SECRET")
	v.BindEnv("TOKEN_TTL_MINUTES")
	v.BindEnv("SHARE_BACKEND")
	v.BindEnv("SHARE_NAME")
	v.BindEnv("SMB_ADDRESS")
	v.BindEnv("SMB_USER")
	v.BindEnv("SMB_PASSWORD")
	v.BindEnv("S3_ENDPOINT")
	v.BindEnv("S3_ACCESS_KEY")
	v.BindEnv("S3_SECRET_KEY")
	v.BindEnv("S3_USE_SSL")
	v.BindEnv("SHARE_DIR")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate checks that the configuration is safe to serve with. AUTH_SECRET is
// always required: every data route is behind bearer authentication. The
// selected share backend must carry its connection settings.
func (c *Config) Validate() error {
	if c.AuthSecret == "" {
		return fmt.Errorf("AUTH_SECRET is required")
	}
	if len(c.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be at least 32 characters, got %d", len(c.AuthSecret))
	}

	switch c.ShareBackend {
	case "smb":
		if c.SMBAddress == "" {
			return fmt.Errorf("SMB_ADDRESS is required when SHARE_BACKEND is \"smb\"")
		}
		if c.ShareName == "" {
			return fmt.Errorf("SHARE_NAME is required when SHARE_BACKEND is \"smb\"")
		}
	case "s3":
		if c.S3Endpoint == "" {
			return fmt.Errorf("S3_ENDPOINT is required when SHARE_BACKEND is \"s3\"")
		}
		if c.ShareName == "" {
			return fmt.Errorf("SHARE_NAME (bucket) is required when SHARE_BACKEND is \"s3\"")
		}
	case "dir":
		if c.ShareDir == "" {
			return fmt.Errorf("SHARE_DIR is required when SHARE_BACKEND is \"dir\"")
		}
	default:
		return fmt.Errorf("SHARE_BACKEND must be \"smb\", \"s3\", or \"dir\", got %q", c.ShareBackend)
	}

	return nil
}
