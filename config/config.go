package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	JWTSecret         string `mapstructure:"JWT_SECRET"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// Storage. STORAGE_DRIVER is "mongo" or "memory".
	StorageDriver string `mapstructure:"STORAGE_DRIVER"`
	DatabaseURL   string `mapstructure:"DATABASE_URL"`
	DatabaseName  string `mapstructure:"DATABASE_NAME"`
	SeedDemoData  bool   `mapstructure:"SEED_DEMO_DATA"`

	// Redis configuration.
	RedisAddr             string `mapstructure:"REDIS_ADDR"`
	RedisPassword         string `mapstructure:"REDIS_PASSWORD"`
	RedisCacheDB          int    `mapstructure:"REDIS_CACHE_DB"`
	RedisQueueDB          int    `mapstructure:"REDIS_QUEUE_DB"`
	ConfigCacheTTLSeconds int    `mapstructure:"CONFIG_CACHE_TTL_SECONDS"`

	// Scheduling.
	Timezone            string `mapstructure:"TIMEZONE"`
	ReminderLeadMinutes int    `mapstructure:"REMINDER_LEAD_MINUTES"`
	OptimizeCron        string `mapstructure:"OPTIMIZE_CRON"`
	RejectPastSlots     bool   `mapstructure:"REJECT_PAST_SLOTS"`
	WorkerConcurrency   int    `mapstructure:"WORKER_CONCURRENCY"`
}

var AppConfig Config

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	// Set default values.
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("JWT_SECRET", "")
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 200)
	viper.SetDefault("STORAGE_DRIVER", "mongo")
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017/?replicaSet=rs0")
	viper.SetDefault("DATABASE_NAME", "civicdesk")
	viper.SetDefault("SEED_DEMO_DATA", false)
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_CACHE_DB", 0)
	viper.SetDefault("REDIS_QUEUE_DB", 1)
	viper.SetDefault("CONFIG_CACHE_TTL_SECONDS", 300)
	viper.SetDefault("TIMEZONE", "UTC")
	viper.SetDefault("REMINDER_LEAD_MINUTES", 24*60)
	viper.SetDefault("OPTIMIZE_CRON", "0 20 * * *")
	viper.SetDefault("REJECT_PAST_SLOTS", false)
	viper.SetDefault("WORKER_CONCURRENCY", 10)

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}

// UseMemoryStore reports whether the process runs against the in-memory store.
func UseMemoryStore() bool {
	return AppConfig.StorageDriver == "memory"
}
