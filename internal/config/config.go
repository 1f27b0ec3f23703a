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

// Config holds all the configuration variables for the wallet-service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort                   string  `mapstructure:"SERVER_PORT"`
	DatabaseURL                  string  `mapstructure:"DATABASE_URL"`
	RedisURL                     string  `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix         string  `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	RabbitMQURL                  string  `mapstructure:"RABBITMQ_URL"`
	WalletEventQueue             string  `mapstructure:"WALLET_EVENT_QUEUE"`
	JWTSecret                    string  `mapstructure:"JWT_SECRET"`
	InternalAPIKey               string  `mapstructure:"INTERNAL_API_KEY"`
	DirectoryURL                 string  `mapstructure:"DIRECTORY_URL"`
	DirectoryInternalAPIKey      string  `mapstructure:"DIRECTORY_INTERNAL_API_KEY"`
	CommissionRatePercent        float64 `mapstructure:"COMMISSION_RATE_PERCENT"`
	ReferralDiscountPercent      float64 `mapstructure:"REFERRAL_DISCOUNT_PERCENT"`
	WithdrawalRateLimitPerMin    int     `mapstructure:"WITHDRAWAL_RATE_LIMIT_PER_MINUTE"`
	ReferralApplyRateLimitPerMin int     `mapstructure:"REFERRAL_APPLY_RATE_LIMIT_PER_MINUTE"`
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
	viper.SetDefault("WALLET_EVENT_QUEUE", "wallet_service.wallet_events")
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "restomart:rate_limit")
	viper.SetDefault("COMMISSION_RATE_PERCENT", 5.0)
	viper.SetDefault("REFERRAL_DISCOUNT_PERCENT", 5.0)
	viper.SetDefault("WITHDRAWAL_RATE_LIMIT_PER_MINUTE", 10)
	viper.SetDefault("REFERRAL_APPLY_RATE_LIMIT_PER_MINUTE", 30)

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("REDIS_URL", "REDIS_URL", "WALLET_REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("WALLET_EVENT_QUEUE")
	_ = viper.BindEnv("JWT_SECRET")
	_ = viper.BindEnv("INTERNAL_API_KEY", "INTERNAL_API_KEY", "WALLET_SERVICE_INTERNAL_API_KEY")
	_ = viper.BindEnv("DIRECTORY_URL")
	_ = viper.BindEnv("DIRECTORY_INTERNAL_API_KEY")
	_ = viper.BindEnv("COMMISSION_RATE_PERCENT")
	_ = viper.BindEnv("REFERRAL_DISCOUNT_PERCENT")
	_ = viper.BindEnv("WITHDRAWAL_RATE_LIMIT_PER_MINUTE")
	_ = viper.BindEnv("REFERRAL_APPLY_RATE_LIMIT_PER_MINUTE")

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
	if strings.TrimSpace(config.InternalAPIKey) == "" {
		config.InternalAPIKey = strings.TrimSpace(os.Getenv("WALLET_SERVICE_INTERNAL_API_KEY"))
	}
	config.DirectoryInternalAPIKey = strings.TrimSpace(config.DirectoryInternalAPIKey)
	if config.DirectoryInternalAPIKey == "" {
		config.DirectoryInternalAPIKey = config.InternalAPIKey
	}
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisRateLimitPrefix = strings.TrimSpace(config.RedisRateLimitPrefix)
	if config.RedisRateLimitPrefix == "" {
		config.RedisRateLimitPrefix = "restomart:rate_limit"
	}

	if config.CommissionRatePercent < 0 {
		log.Printf("level=warn component=config msg=\"negative commission rate configured; coercing to zero\" rate_percent=%f", config.CommissionRatePercent)
		config.CommissionRatePercent = 0
	}
	if config.CommissionRatePercent > 100 {
		log.Printf("level=warn component=config msg=\"commission rate too high; capping at 100\" rate_percent=%f", config.CommissionRatePercent)
		config.CommissionRatePercent = 100
	}
	if config.ReferralDiscountPercent < 0 {
		log.Printf("level=warn component=config msg=\"negative referral discount configured; coercing to zero\" rate_percent=%f", config.ReferralDiscountPercent)
		config.ReferralDiscountPercent = 0
	}
	if config.ReferralDiscountPercent > 100 {
		log.Printf("level=warn component=config msg=\"referral discount too high; capping at 100\" rate_percent=%f", config.ReferralDiscountPercent)
		config.ReferralDiscountPercent = 100
	}

	if config.WithdrawalRateLimitPerMin <= 0 {
		config.WithdrawalRateLimitPerMin = 10
	}
	if config.ReferralApplyRateLimitPerMin <= 0 {
		config.ReferralApplyRateLimitPerMin = 30
	}

	return
}
