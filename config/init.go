package config

import (
	"log"
	"reflect"
	"strconv"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	cron_config "github.com/customeros/mailbridge/internal/cron/config"
	"github.com/customeros/mailbridge/internal/logger"
	"github.com/customeros/mailbridge/internal/tracing"
)

type Config struct {
	AppConfig     *AppConfig
	Logger        *logger.Config
	Tracing       *tracing.JaegerConfig
	ImapConfig    *ImapConfig
	RetryConfig   *RetryConfig
	SlackConfig   *SlackConfig
	StorageConfig *StorageConfig
	CronConfig    *cron_config.Config
}

func InitConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Print("Unable to load .env file")
	}

	return ParseConfig()
}

// ParseConfig reads the environment and validates the result.
func ParseConfig() (*Config, error) {
	config := &Config{
		AppConfig:     &AppConfig{},
		Logger:        &logger.Config{},
		Tracing:       &tracing.JaegerConfig{},
		ImapConfig:    &ImapConfig{},
		RetryConfig:   &RetryConfig{},
		SlackConfig:   &SlackConfig{},
		StorageConfig: &StorageConfig{},
		CronConfig:    &cron_config.Config{},
	}

	if err := env.ParseWithFuncs(config, map[reflect.Type]env.ParserFunc{
		reflect.TypeOf(time.Duration(0)): parseDuration,
	}); err != nil {
		return nil, errors.Wrap(err, "error loading mailbridge config")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// parseDuration accepts Go duration strings ("90s", "1h") and bare integers,
// which are read as seconds.
func parseDuration(value string) (interface{}, error) {
	if seconds, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.Duration(seconds) * time.Second, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid duration %q", value)
	}
	return d, nil
}

func (c *Config) Validate() error {
	validate := validator.New()
	for _, section := range []any{c.AppConfig, c.ImapConfig, c.RetryConfig, c.SlackConfig, c.StorageConfig} {
		if err := validate.Struct(section); err != nil {
			return errors.Wrap(err, "invalid mailbridge config")
		}
	}
	return nil
}
