package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"parasite-blog/internal/auth"
)

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Server struct {
		Addr      string
		PublicURL string
	}
	Database struct {
		Path string
	}
	Auth struct {
		JWTSecret        string
		BcryptCost       int
		PrivilegedRoleID int64
		Bootstrap        struct {
			Name     string
			Email    string
			Password string
		}
	}
	Storage struct {
		Driver    string
		Bucket    string
		Region    string
		Endpoint  string
		AccessKey string
		SecretKey string
	}
	AWS struct {
		Profile string
	}
	Log struct {
		Level  string
		Format string
	}
}

// Load reads configuration from environment variables and optional config files.
// Variables use the BLOG_ prefix, e.g. BLOG_AUTH_JWTSECRET.
func Load() (Config, error) {
	// a missing .env is fine; existing variables win
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("BLOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", "0.0.0.0:3000")
	v.SetDefault("server.publicurl", "http://localhost:3000")
	v.SetDefault("database.path", "data/blog.db")
	v.SetDefault("auth.jwtsecret", "")
	v.SetDefault("auth.bcryptcost", auth.MinBcryptCost)
	v.SetDefault("auth.privilegedroleid", 1)
	v.SetDefault("auth.bootstrap.name", "")
	v.SetDefault("auth.bootstrap.email", "")
	v.SetDefault("auth.bootstrap.password", "")
	v.SetDefault("storage.driver", "s3")
	v.SetDefault("storage.bucket", "parasitologia")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.accesskey", "")
	v.SetDefault("storage.secretkey", "")
	v.SetDefault("aws.profile", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetConfigName("config")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// Validate reports settings the server cannot start without.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return fmt.Errorf("auth.jwtsecret: %w", auth.ErrMissingSecret)
	}
	if c.Auth.PrivilegedRoleID <= 0 {
		return fmt.Errorf("%w: auth.privilegedroleid must be positive", auth.ErrConfiguration)
	}
	switch c.Storage.Driver {
	case "s3":
		if c.Storage.Bucket == "" {
			return fmt.Errorf("%w: storage.bucket is required", auth.ErrConfiguration)
		}
		if (c.Storage.AccessKey == "") != (c.Storage.SecretKey == "") {
			return fmt.Errorf("%w: storage.accesskey and storage.secretkey must be set together", auth.ErrConfiguration)
		}
	case "memory":
	default:
		return fmt.Errorf("%w: unknown storage.driver %q", auth.ErrConfiguration, c.Storage.Driver)
	}
	return nil
}
