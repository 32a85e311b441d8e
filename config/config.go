package config

import (
	"fmt"
	"time"
)

type AppConfig struct {
	AppName     string `env:"APP_NAME" envDefault:"mailbridge"`
	RabbitMQURL string `env:"RABBITMQ_URL"`
	// Grace period for auxiliary tasks once the supervisor stops
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s" validate:"gt=0"`
}

type ImapConfig struct {
	Host     string `env:"IMAP_HOST,required" validate:"required,hostname_rfc1123|ip"`
	Port     int    `env:"IMAP_PORT" envDefault:"993" validate:"min=1,max=65535"`
	User     string `env:"IMAP_USER,required" validate:"required"`
	Password string `env:"IMAP_PASS,required" validate:"required"`
	TLS      bool   `env:"IMAP_TLS" envDefault:"true"`
	Folder   string `env:"MAILBOX" envDefault:"INBOX" validate:"required"`

	// Durations take Go syntax ("15m") or bare integer seconds ("900")
	SessionDuration   time.Duration `env:"IMAP_SESSION_DURATION,required" validate:"gt=0"`
	ConnectTimeout    time.Duration `env:"IMAP_CONNECT_TIMEOUT" envDefault:"5s" validate:"gt=0"`
	CommandTimeout    time.Duration `env:"IMAP_COMMAND_TIMEOUT" envDefault:"30s" validate:"gt=0"`
	IdleTimeout       time.Duration `env:"IMAP_IDLE_TIMEOUT" envDefault:"60s" validate:"gt=0"`
	IdleDoneTimeout   time.Duration `env:"IMAP_IDLE_DONE_TIMEOUT" envDefault:"5s" validate:"gt=0"`
	DisconnectTimeout time.Duration `env:"IMAP_DISCONNECT_TIMEOUT" envDefault:"5s" validate:"gt=0"`
	// Poll interval used by go-imap when the server lacks IDLE
	IdlePollInterval time.Duration `env:"IMAP_IDLE_POLL_INTERVAL" envDefault:"30s" validate:"gt=0"`
}

func (c *ImapConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type RetryConfig struct {
	History         int           `env:"RETRY_HISTORY" envDefault:"3" validate:"min=1"`
	Interval        time.Duration `env:"RETRY_INTERVAL" envDefault:"30s" validate:"gte=0"`
	RestartSuppress time.Duration `env:"RESTART_SUPPRESS" envDefault:"300s" validate:"gte=0"`
}

type SlackConfig struct {
	ApiToken        string  `env:"SLACK_API_TOKEN,required" validate:"required"`
	Channel         string  `env:"SLACK_CHANNEL,required" validate:"required"`
	AdministratorId string  `env:"ADMINISTRATOR_ID"`
	UnfurlLinks     bool    `env:"UNFURL_LINKS" envDefault:"false"`
	UnfurlMedia     bool    `env:"UNFURL_MEDIA" envDefault:"false"`
	RateLimit       float64 `env:"SLACK_RATE_LIMIT" envDefault:"1" validate:"gt=0"`
	RateBurst       int     `env:"SLACK_RATE_BURST" envDefault:"3" validate:"min=1"`
}

type StorageConfig struct {
	Enabled  bool   `env:"STORAGE_ENABLED" envDefault:"false"`
	Provider string `env:"STORAGE_PROVIDER" envDefault:"r2" validate:"oneof=r2 s3"`
	// R2 account id, only read by the r2 provider
	AccountID       string `env:"STORAGE_ACCOUNT_ID" validate:"required_if=Enabled true Provider r2"`
	Region          string `env:"STORAGE_REGION" envDefault:"us-east-1"`
	AccessKeyID     string `env:"STORAGE_ACCESS_KEY_ID" validate:"required_if=Enabled true"`
	AccessKeySecret string `env:"STORAGE_ACCESS_KEY_SECRET" validate:"required_if=Enabled true"`
	Bucket          string `env:"STORAGE_BUCKET" envDefault:"mailbridge-attachments"`
	Public          bool   `env:"STORAGE_PUBLIC" envDefault:"false"`
	CDNDomain       string `env:"STORAGE_CDN_DOMAIN"`
}
