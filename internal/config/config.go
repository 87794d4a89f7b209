package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/clubledger/clubledger/internal/types"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Configuration struct {
	Deployment DeploymentConfig `validate:"required"`
	Server     ServerConfig     `validate:"required"`
	Logging    LoggingConfig    `validate:"required"`
	Postgres   PostgresConfig   `validate:"required"`
	Cache      CacheConfig
	Client     ClientConfig
	Catalog    CatalogConfig
}

type DeploymentConfig struct {
	Mode types.RunMode `validate:"required"`
}

type ServerConfig struct {
	Address string `validate:"required"`
}

type LoggingConfig struct {
	Level types.LogLevel `validate:"required"`
}

type PostgresConfig struct {
	Host                   string
	Port                   int
	User                   string
	Password               string
	DBName                 string
	SSLMode                string
	MaxOpenConns           int
	MaxIdleConns           int
	ConnMaxLifetimeMinutes int
}

type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

// ClientConfig configures the invoice API client used by the coordinator
type ClientConfig struct {
	BaseURL string
	Timeout time.Duration
	APIKey  string
}

// CatalogConfig holds the read-only option sets served by the catalog
// service: discount types and membership tiers
type CatalogConfig struct {
	DiscountTypes   []DiscountTypeConfig
	MembershipTiers []MembershipTierConfig
}

type DiscountTypeConfig struct {
	Code        string
	Name        string
	MaxPercent  int
	RequiresPin bool
}

type MembershipTierConfig struct {
	Code            string
	Name            string
	DiscountPercent int
}

func NewConfig() (*Configuration, error) {
	v := viper.New()

	// Load .env if present; env vars override file config
	_ = godotenv.Load()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/clubledger")

	v.SetEnvPrefix("CLUBLEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, err
		}
	}

	var config Configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c Configuration) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

// GetDefaultConfig returns a default configuration for local development.
// This is useful for running scripts or other non-web applications.
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Deployment: DeploymentConfig{Mode: types.ModeLocal},
		Server:     ServerConfig{Address: ":8080"},
		Logging:    LoggingConfig{Level: types.LogLevelDebug},
		Cache:      CacheConfig{Enabled: true, TTL: 30 * time.Minute},
		Client:     ClientConfig{BaseURL: "http://localhost:8080", Timeout: 30 * time.Second},
	}
}

func (c PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"user=%s password=%s dbname=%s host=%s port=%d sslmode=%s",
		c.User,
		c.Password,
		c.DBName,
		c.Host,
		c.Port,
		c.SSLMode,
	)
}
