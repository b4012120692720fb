package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

type Config struct {
	DBSource string
	Port     string
	Env      string
	LogLevel string

	MigrateOnStart bool

	TrancheFee          int64
	DefaultAcademicYear string
	Timezone            *time.Location

	JWTSecret string
	TokenTTL  time.Duration

	Admin AdminConfig

	KafkaBrokers []string
	AuditTopic   string
}

// AdminConfig is the single administrative principal record.
type AdminConfig struct {
	ID       string
	Username string
	Password string
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dbSource := os.Getenv("DB_SOURCE")
	if dbSource == "" {
		return nil, fmt.Errorf("DB_SOURCE environment variable is required")
	}

	cfg := &Config{
		DBSource:            dbSource,
		Port:                getEnvOrDefault("SERVER_PORT", "8080"),
		Env:                 getEnvOrDefault("ENVIRONMENT", "development"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		MigrateOnStart:      getEnvAsBool("MIGRATE_ON_START", true),
		DefaultAcademicYear: getEnvOrDefault("DEFAULT_ACADEMIC_YEAR", "2024-2025"),
		JWTSecret:           os.Getenv("JWT_SECRET"),
		TokenTTL:            getEnvAsDuration("TOKEN_TTL", 12*time.Hour),
		Admin: AdminConfig{
			ID:       getEnvOrDefault("ADMIN_ID", "admin"),
			Username: getEnvOrDefault("ADMIN_USERNAME", "admin"),
			Password: getEnvOrDefault("ADMIN_PASSWORD", "admin"),
		},
		AuditTopic: getEnvOrDefault("AUDIT_TOPIC", "tuition_payment_audit"),
	}

	if brokers := strings.TrimSpace(os.Getenv("KAFKA_BROKERS")); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	fee, err := getEnvAsInt64("TRANCHE_FEE", 25000)
	if err != nil {
		return nil, err
	}
	cfg.TrancheFee = fee

	loc, err := time.LoadLocation(getEnvOrDefault("TIMEZONE", "Africa/Abidjan"))
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}
	cfg.Timezone = loc

	if cfg.TrancheFee <= 0 {
		return nil, fmt.Errorf("TRANCHE_FEE must be positive, got %d", cfg.TrancheFee)
	}
	if cfg.JWTSecret == "" {
		if cfg.Env != "development" {
			return nil, fmt.Errorf("JWT_SECRET environment variable is required in %s", cfg.Env)
		}
		cfg.JWTSecret = "development-only-secret"
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt64 falls back only when the variable is unset or empty.
func getEnvAsInt64(key string, defaultValue int64) (int64, error) {
	raw := getEnvOrDefault(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return value, nil
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, err := strconv.ParseBool(getEnvOrDefault(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, err := time.ParseDuration(getEnvOrDefault(key, "")); err == nil {
		return value
	}
	return defaultValue
}
