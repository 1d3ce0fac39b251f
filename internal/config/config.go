package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env            string
	Port           string
	DatabaseURL    string
	RedisURL       string
	AllowedOrigins []string // comma-separated ALLOWED_ORIGINS
	HealthAdminKey string
	ScanCron       string // cron spec for the SLA scan runner
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	port := viper.GetString("PORT")
	if port == "" {
		port = "8080"
	}
	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	dbURL := viper.GetString("DATABASE_URL")
	if env == "test" && viper.GetString("DATABASE_URL_TEST") != "" {
		dbURL = viper.GetString("DATABASE_URL_TEST")
	}

	scanCron := viper.GetString("SLA_SCAN_CRON")
	if scanCron == "" {
		scanCron = "0 * * * *" // hourly
	}

	return &Config{
		Env:            env,
		Port:           port,
		DatabaseURL:    dbURL,
		RedisURL:       viper.GetString("REDIS_URL"),
		AllowedOrigins: splitOrigins(viper.GetString("ALLOWED_ORIGINS")),
		HealthAdminKey: viper.GetString("HEALTH_ADMIN_KEY"),
		ScanCron:       scanCron,
	}, nil
}

func splitOrigins(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
