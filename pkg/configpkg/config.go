// Package configpkg provides parsing functionality for environment variables.
package configpkg

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config stores all configuration of the application.
//
// The values are read by viper from a config file or environment variables.
type Config struct {
	DBDriver            string        `mapstructure:"DB_DRIVER"`
	DBSource            string        `mapstructure:"DB_SOURCE"`
	ServerAddress       string        `mapstructure:"SERVER_ADDRESS"`
	TokenType           string        `mapstructure:"TOKEN_TYPE"`
	TokenSymmetricKey   string        `mapstructure:"TOKEN_SYMMETRIC_KEY"`
	AccessTokenDuration time.Duration `mapstructure:"ACCESS_TOKEN_DURATION"`
	Environement        string        `mapstructure:"GO_ENV"`
	MinBalance          string        `mapstructure:"MIN_BALANCE"`
	PINHashIterations   int           `mapstructure:"PIN_HASH_ITERATIONS"`
	MaxPINAttempts      int           `mapstructure:"MAX_PIN_ATTEMPTS"`
	LockTimeout         time.Duration `mapstructure:"LOCK_TIMEOUT"`
}

// Load read configuration from file or environment variables.
func Load(path string) (Config, error) {
	var c Config

	v := viper.New()

	v.AddConfigPath(path)
	v.SetConfigName("app")
	v.SetConfigType("env")

	setDefaults(v)

	v.AutomaticEnv()

	err := v.ReadInConfig()
	if err != nil {
		return c, err
	}

	err = v.Unmarshal(&c)
	if err != nil {
		return c, err
	}

	return c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("SERVER_ADDRESS", "0.0.0.0:8080")
	v.SetDefault("TOKEN_TYPE", "paseto")
	v.SetDefault("ACCESS_TOKEN_DURATION", 15*time.Minute)
	v.SetDefault("GO_ENV", "production")
	v.SetDefault("MIN_BALANCE", "500")
	v.SetDefault("PIN_HASH_ITERATIONS", 600_000)
	v.SetDefault("MAX_PIN_ATTEMPTS", 3)
	v.SetDefault("LOCK_TIMEOUT", 5*time.Second)
}

// MinBalanceDecimal returns the configured minimum balance.
func (c Config) MinBalanceDecimal() (decimal.Decimal, error) {
	return decimal.NewFromString(c.MinBalance)
}
