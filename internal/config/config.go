package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rentwise/rentwise/internal/types"
	"github.com/spf13/viper"
)

type Configuration struct {
	Deployment     DeploymentConfig     `mapstructure:"deployment" validate:"required"`
	Server         ServerConfig         `mapstructure:"server" validate:"required"`
	Logging        LoggingConfig        `mapstructure:"logging" validate:"required"`
	Postgres       PostgresConfig       `mapstructure:"postgres" validate:"required"`
	Sentry         SentryConfig         `mapstructure:"sentry"`
	Temporal       TemporalConfig       `mapstructure:"temporal"`
	RecurringBills RecurringBillsConfig `mapstructure:"recurring_bills" validate:"required"`
}

type DeploymentConfig struct {
	Mode types.RunMode `mapstructure:"mode" validate:"required"`
}

type ServerConfig struct {
	Address string `mapstructure:"address" validate:"required"`
	// TriggerRatePerMinute caps manual generation triggers, 0 disables the limit
	TriggerRatePerMinute int `mapstructure:"trigger_rate_per_minute" validate:"gte=0"`
}

type LoggingConfig struct {
	Level types.LogLevel `mapstructure:"level" validate:"required"`
}

type PostgresConfig struct {
	Host                   string        `mapstructure:"host"`
	Port                   int           `mapstructure:"port"`
	User                   string        `mapstructure:"user"`
	Password               string        `mapstructure:"password"`
	DBName                 string        `mapstructure:"dbname"`
	SSLMode                string        `mapstructure:"sslmode"`
	MaxOpenConns           int           `mapstructure:"max_open_conns" validate:"gte=0"`
	MaxIdleConns           int           `mapstructure:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetimeMinutes int           `mapstructure:"conn_max_lifetime_minutes" validate:"gte=0"`
	SlowQueryThreshold     time.Duration `mapstructure:"slow_query_threshold"`
}

type SentryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	DSN         string  `mapstructure:"dsn" validate:"required_if=Enabled true"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate" validate:"gte=0,lte=1"`
}

type TemporalConfig struct {
	Address   string `mapstructure:"address"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

// RecurringBillsConfig tunes the recurring bill generation engine
type RecurringBillsConfig struct {
	HorizonDays     int                    `mapstructure:"horizon_days" validate:"gt=0,lte=366"`
	DefaultTimezone string                 `mapstructure:"default_timezone" validate:"required"`
	CronSchedule    string                 `mapstructure:"cron_schedule"`
	Scheduler       types.SchedulerBackend `mapstructure:"scheduler" validate:"omitempty,oneof=none cron temporal"`
	// OrphanGracePeriod protects instances that may still be mid-write by another run
	OrphanGracePeriod      time.Duration `mapstructure:"orphan_grace_period" validate:"gte=0"`
	CompensationMaxRetries uint64        `mapstructure:"compensation_max_retries"`
	TimezoneCacheTTL       time.Duration `mapstructure:"timezone_cache_ttl"`
}

func NewConfig() (*Configuration, error) {
	// local .env files are optional
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/rentwise")

	v.SetEnvPrefix("RENTWISE")
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, err
		}
		fmt.Printf("No config file found, using defaults and environment: %v\n", err)
	} else {
		fmt.Printf("Using config file: %s\n", v.ConfigFileUsed())
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

// setDefaults registers every key so AutomaticEnv can override it without a config file
func setDefaults(v *viper.Viper) {
	v.SetDefault("deployment.mode", types.ModeLocal)
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.trigger_rate_per_minute", 6)
	v.SetDefault("logging.level", types.LogLevelInfo)

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "rentwise")
	v.SetDefault("postgres.password", "")
	v.SetDefault("postgres.dbname", "rentwise")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.max_open_conns", 10)
	v.SetDefault("postgres.max_idle_conns", 5)
	v.SetDefault("postgres.conn_max_lifetime_minutes", 60)
	v.SetDefault("postgres.slow_query_threshold", "500ms")

	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "local")
	v.SetDefault("sentry.sample_rate", 1.0)

	v.SetDefault("temporal.address", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "recurring-bills")

	v.SetDefault("recurring_bills.horizon_days", 60)
	v.SetDefault("recurring_bills.default_timezone", types.DefaultTimezone)
	v.SetDefault("recurring_bills.cron_schedule", "0 6 * * *")
	v.SetDefault("recurring_bills.scheduler", types.SchedulerBackendCron)
	v.SetDefault("recurring_bills.orphan_grace_period", "15m")
	v.SetDefault("recurring_bills.compensation_max_retries", 3)
	v.SetDefault("recurring_bills.timezone_cache_ttl", "10m")
}

func (c Configuration) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return err
	}
	if _, err := types.LoadLocation(c.RecurringBills.DefaultTimezone); err != nil {
		return err
	}
	return nil
}

// GetDefaultConfig returns a default configuration for local development
// and tests that never touch the environment
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Deployment: DeploymentConfig{Mode: types.ModeLocal},
		Server:     ServerConfig{Address: ":8080", TriggerRatePerMinute: 6},
		Logging:    LoggingConfig{Level: types.LogLevelDebug},
		Postgres: PostgresConfig{
			Host:    "localhost",
			Port:    5432,
			User:    "rentwise",
			DBName:  "rentwise",
			SSLMode: "disable",
		},
		Temporal: TemporalConfig{
			Address:   "localhost:7233",
			Namespace: "default",
			TaskQueue: "recurring-bills",
		},
		RecurringBills: RecurringBillsConfig{
			HorizonDays:            60,
			DefaultTimezone:        types.DefaultTimezone,
			CronSchedule:           "0 6 * * *",
			Scheduler:              types.SchedulerBackendNone,
			OrphanGracePeriod:      15 * time.Minute,
			CompensationMaxRetries: 3,
			TimezoneCacheTTL:       10 * time.Minute,
		},
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
