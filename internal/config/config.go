/**
 * @description
 * This package handles the configuration management for the service. It uses the
 * Viper library to read configuration from environment variables, providing a
 * centralized and straightforward way to manage application settings.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the allocation service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort                  string `mapstructure:"SERVER_PORT"`
	DatabaseURL                 string `mapstructure:"DATABASE_URL"`
	RedisURL                    string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix        string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	RabbitMQURL                 string `mapstructure:"RABBITMQ_URL"`
	WorkerIntakeQueue           string `mapstructure:"WORKER_INTAKE_QUEUE"`
	SMSAPIBaseURL               string `mapstructure:"SMS_API_BASE_URL"`
	SMSAPIKey                   string `mapstructure:"SMS_API_KEY"`
	JWTSecret                   string `mapstructure:"JWT_SECRET"`
	ReservationTTLMinutes       int    `mapstructure:"RESERVATION_TTL_MINUTES"`
	ExtensionMinMinutes         int    `mapstructure:"EXTENSION_MIN_MINUTES"`
	ExtensionMaxMinutes         int    `mapstructure:"EXTENSION_MAX_MINUTES"`
	PaymentSessionTTLMinutes    int    `mapstructure:"PAYMENT_SESSION_TTL_MINUTES"`
	OTPMaxAttempts              int    `mapstructure:"OTP_MAX_ATTEMPTS"`
	OTPSendLimitPerWindow       int    `mapstructure:"OTP_SEND_LIMIT_PER_WINDOW"`
	OTPSendWindowSeconds        int    `mapstructure:"OTP_SEND_WINDOW_SECONDS"`
	InvoiceDueInDays            int    `mapstructure:"INVOICE_DUE_IN_DAYS"`
	DeadlockRetryBudget         int    `mapstructure:"DEADLOCK_RETRY_BUDGET"`
	ReservationSweepSchedule    string `mapstructure:"RESERVATION_SWEEP_SCHEDULE"`
	PaymentSessionSweepSchedule string `mapstructure:"PAYMENT_SESSION_SWEEP_SCHEDULE"`
	InvoiceOverdueSweepSchedule string `mapstructure:"INVOICE_OVERDUE_SWEEP_SCHEDULE"`
}

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	// Enable automatic binding of environment variables.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "allocation:rate_limit")
	viper.SetDefault("WORKER_INTAKE_QUEUE", "allocation_service.worker_intake")
	viper.SetDefault("RESERVATION_TTL_MINUTES", 1440)
	viper.SetDefault("EXTENSION_MIN_MINUTES", 15)
	viper.SetDefault("EXTENSION_MAX_MINUTES", 120)
	viper.SetDefault("PAYMENT_SESSION_TTL_MINUTES", 10)
	viper.SetDefault("OTP_MAX_ATTEMPTS", 5)
	viper.SetDefault("OTP_SEND_LIMIT_PER_WINDOW", 3)
	viper.SetDefault("OTP_SEND_WINDOW_SECONDS", 300)
	viper.SetDefault("INVOICE_DUE_IN_DAYS", 7)
	viper.SetDefault("DEADLOCK_RETRY_BUDGET", 3)
	viper.SetDefault("RESERVATION_SWEEP_SCHEDULE", "*/5 * * * *")
	viper.SetDefault("PAYMENT_SESSION_SWEEP_SCHEDULE", "* * * * *")
	viper.SetDefault("INVOICE_OVERDUE_SWEEP_SCHEDULE", "0 2 * * *")

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("REDIS_URL", "REDIS_URL", "ALLOCATION_REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("WORKER_INTAKE_QUEUE")
	_ = viper.BindEnv("SMS_API_BASE_URL")
	_ = viper.BindEnv("SMS_API_KEY")
	_ = viper.BindEnv("JWT_SECRET", "JWT_SECRET", "ALLOCATION_SERVICE_JWT_SECRET")
	_ = viper.BindEnv("RESERVATION_TTL_MINUTES")
	_ = viper.BindEnv("EXTENSION_MIN_MINUTES")
	_ = viper.BindEnv("EXTENSION_MAX_MINUTES")
	_ = viper.BindEnv("PAYMENT_SESSION_TTL_MINUTES")
	_ = viper.BindEnv("OTP_MAX_ATTEMPTS")
	_ = viper.BindEnv("OTP_SEND_LIMIT_PER_WINDOW")
	_ = viper.BindEnv("OTP_SEND_WINDOW_SECONDS")
	_ = viper.BindEnv("INVOICE_DUE_IN_DAYS")
	_ = viper.BindEnv("DEADLOCK_RETRY_BUDGET")
	_ = viper.BindEnv("RESERVATION_SWEEP_SCHEDULE")
	_ = viper.BindEnv("PAYMENT_SESSION_SWEEP_SCHEDULE")
	_ = viper.BindEnv("INVOICE_OVERDUE_SWEEP_SCHEDULE")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		// If the config file is not found, we can ignore the error.
		// For other errors, we should return them.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	// Unmarshal the configuration into the Config struct.
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisRateLimitPrefix = strings.TrimSpace(config.RedisRateLimitPrefix)
	if config.RedisRateLimitPrefix == "" {
		config.RedisRateLimitPrefix = "allocation:rate_limit"
	}
	if strings.TrimSpace(config.JWTSecret) == "" {
		config.JWTSecret = strings.TrimSpace(os.Getenv("ALLOCATION_SERVICE_JWT_SECRET"))
	}

	if config.ReservationTTLMinutes <= 0 {
		log.Printf("level=warn component=config msg=\"non-positive reservation ttl configured; using default\" minutes=%d", config.ReservationTTLMinutes)
		config.ReservationTTLMinutes = 1440
	}
	if config.ExtensionMinMinutes <= 0 {
		config.ExtensionMinMinutes = 15
	}
	if config.ExtensionMaxMinutes < config.ExtensionMinMinutes {
		log.Printf("level=warn component=config msg=\"extension max below min; raising to min\" min=%d max=%d", config.ExtensionMinMinutes, config.ExtensionMaxMinutes)
		config.ExtensionMaxMinutes = config.ExtensionMinMinutes
	}
	if config.PaymentSessionTTLMinutes <= 0 {
		config.PaymentSessionTTLMinutes = 10
	}
	if config.OTPMaxAttempts <= 0 {
		config.OTPMaxAttempts = 5
	}
	if config.OTPSendLimitPerWindow <= 0 {
		config.OTPSendLimitPerWindow = 3
	}
	if config.OTPSendWindowSeconds <= 0 {
		config.OTPSendWindowSeconds = 300
	}
	if config.InvoiceDueInDays <= 0 {
		config.InvoiceDueInDays = 7
	}
	if config.DeadlockRetryBudget <= 0 {
		config.DeadlockRetryBudget = 3
	}

	return
}
