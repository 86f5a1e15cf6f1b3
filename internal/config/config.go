package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	RelayNone  = "none"
	RelayRedis = "redis"
	RelayNATS  = "nats"
)

type Config struct {
	Port        int    `mapstructure:"port" validate:"gt=0,lt=65536"`
	GinMode     string `mapstructure:"gin_mode" validate:"oneof=debug release test"`
	TLSCertFile string `mapstructure:"tls_cert_file" validate:"required_with=TLSKeyFile"`
	TLSKeyFile  string `mapstructure:"tls_key_file" validate:"required_with=TLSCertFile"`

	JWTSecret          string `mapstructure:"jwt_secret" validate:"required"`
	TokenExpirySeconds int    `mapstructure:"token_expiry_seconds" validate:"gt=0"`

	DatabaseDriver string `mapstructure:"database_driver" validate:"oneof=postgres sqlite"`
	DatabaseURL    string `mapstructure:"database_url" validate:"required"`

	// TrustClientIdentity lets a socket authenticate with a bare userId.
	TrustClientIdentity bool `mapstructure:"trust_client_identity"`
	// AllowClientBroadcast lets joined sockets emit newMessage directly.
	AllowClientBroadcast bool `mapstructure:"allow_client_broadcast"`
	EnableDevTokens      bool `mapstructure:"enable_dev_tokens"`

	RelayBackend string `mapstructure:"relay_backend" validate:"oneof=none redis nats"`
	RedisURL     string `mapstructure:"redis_url" validate:"required_if=RelayBackend redis"`
	NATSURL      string `mapstructure:"nats_url" validate:"required_if=RelayBackend nats"`
	RelaySubject string `mapstructure:"relay_subject" validate:"required"`
	InstanceID   string `mapstructure:"instance_id"`
}

func (c Config) TokenExpiry() time.Duration {
	return time.Duration(c.TokenExpirySeconds) * time.Second
}

func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

var defaults = map[string]any{
	"port":                   3000,
	"gin_mode":               "release",
	"tls_cert_file":          "",
	"tls_key_file":           "",
	"jwt_secret":             "",
	"token_expiry_seconds":   int((7 * 24 * time.Hour).Seconds()),
	"database_driver":        "sqlite",
	"database_url":           "billboard-realtime.db",
	"trust_client_identity":  false,
	"allow_client_broadcast": false,
	"enable_dev_tokens":      false,
	"relay_backend":          RelayNone,
	"redis_url":              "",
	"nats_url":               "",
	"relay_subject":          "billboard.dispatch",
	"instance_id":            "",
}

// LoadDotEnv loads a .env file into the process environment when present.
// Variables that are already set win.
func LoadDotEnv(paths ...string) {
	_ = godotenv.Load(paths...)
}

// Load reads defaults, then the optional config file, then the environment.
func Load(configFile string) (Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config %s: %w", configFile, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
