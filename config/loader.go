package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// envAliases binds the provider's flat environment contract onto nested
// config keys. These names are fixed by the deployment environment.
var envAliases = map[string]string{
	"oauth.client_id":                 "CLIENT_ID",
	"oauth.client_secret":             "CLIENT_SECRET",
	"oauth.authorization_endpoint":    "AUTHORIZATION_ENDPOINT",
	"oauth.token_endpoint":            "TOKEN_ENDPOINT",
	"oauth.user_information_endpoint": "USER_INFORMATION_ENDPOINT",
	"oauth.callback_url":              "CALLBACK_URL",
	"oauth.frontend_origin":           "FRONTEND_ORIGIN",
	"session.secret":                  "JWT_SECRET",
	"server.port":                     "PORT",
	"database.path":                   "DATABASE_PATH",
	"redis.enabled":                   "REDIS_ENABLED",
	"redis.addr":                      "REDIS_ADDR",
	"redis.password":                  "REDIS_PASSWORD",
	"logging.level":                   "LOG_LEVEL",
	"logging.format":                  "LOG_FORMAT",
	"tracing.enabled":                 "TRACING_ENABLED",
	"tracing.endpoint":                "OTLP_ENDPOINT",
}

// configSearchPaths are the candidate locations for config.yml, checked in order.
var configSearchPaths = []string{
	"./config.yml",
	"./config/config.yml",
	"./cmd/server/config.yml",
}

// Load reads configuration from config.yml (if found), .env (if present), and
// the environment, applies defaults, and validates the result.
func Load() (*Config, error) {
	// .env values become plain environment variables before viper binds them.
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			fmt.Printf("[config] warning: failed to load .env: %v\n", err)
		}
	}

	v := viper.New()

	for _, path := range configSearchPaths {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("config: read %s: %w", path, err)
			}
			break
		}
	}

	v.AutomaticEnv()
	for key, env := range envAliases {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("config: bind %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}
