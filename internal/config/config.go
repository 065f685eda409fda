package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string
	MetricsAddr string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	Broker   BrokerConfig
	SMTP     SMTPConfig
	Dispatch DispatchConfig

	RedisAddr     string
	RedisPassword string
}

// BrokerConfig carries the RabbitMQ connection and publish settings.
type BrokerConfig struct {
	URL            string
	Host           string
	Port           int
	User           string
	Password       string
	VHost          string
	Heartbeat      time.Duration
	ConnectTimeout time.Duration
	ReconnectDelay time.Duration
	ConfirmTimeout time.Duration
	PublishRetries int
	RetryBackoff   time.Duration
}

// SMTPConfig carries the outbound mail transport settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// DispatchConfig bounds the campaign dispatch worker.
type DispatchConfig struct {
	QuotaPerHour int
	BatchSize    int
	TickInterval time.Duration
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:     getenv("APP_SERVICE", "gymspot"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),
		MetricsAddr: getenv("METRICS_ADDR", ":9091"),

		DBType:            getenv("DATABASE_TYPE", "mysql"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "3306"),
		DBName:            getenv("DATABASE_NAME", "gymspot"),
		DBUser:            getenv("DATABASE_USER", "gymspot"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 25),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),

		Broker: BrokerConfig{
			URL:            strings.TrimSpace(getenv("RABBIT_URL", "")),
			Host:           getenv("RABBIT_HOST", "127.0.0.1"),
			Port:           getenvInt("RABBIT_PORT", 5672),
			User:           getenv("RABBIT_USER", "guest"),
			Password:       getenv("RABBIT_PASS", "guest"),
			VHost:          getenv("RABBIT_VHOST", "/"),
			Heartbeat:      getenvDuration("RABBIT_HEARTBEAT", 5*time.Second),
			ConnectTimeout: getenvDuration("RABBIT_CONN_TIMEOUT", 5*time.Second),
			ReconnectDelay: getenvDuration("RABBIT_RECONNECT_DELAY", 1500*time.Millisecond),
			ConfirmTimeout: getenvDuration("RABBIT_CONFIRM_TIMEOUT", 5*time.Second),
			PublishRetries: getenvInt("RABBIT_PUBLISH_RETRIES", 3),
			RetryBackoff:   getenvDuration("RABBIT_RETRY_BACKOFF", 300*time.Millisecond),
		},

		SMTP: SMTPConfig{
			Host:     getenv("SMTP_HOST", ""),
			Port:     getenvInt("SMTP_PORT", 465),
			Username: getenv("SMTP_USER", ""),
			Password: getenv("SMTP_PASS", ""),
			From:     getenv("MAIL_FROM", "no-reply@gymspot.it"),
		},

		Dispatch: DispatchConfig{
			QuotaPerHour: getenvInt("MAILS_PER_HOUR", 100),
			BatchSize:    getenvInt("MAIL_BATCH_SIZE", 50),
			TickInterval: getenvDuration("SENDER_TICK_INTERVAL", time.Minute),
		},

		RedisAddr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
		RedisPassword: getenv("REDIS_PASSWORD", ""),
	}

	return cfg
}

// AMQPURL returns the broker URL, building it from the separate parts
// when RABBIT_URL is not set. The vhost is escaped so "/" becomes %2F.
func (b BrokerConfig) AMQPURL() string {
	if b.URL != "" {
		return b.URL
	}
	return fmt.Sprintf("amqp://%s:%s@%s:%d/%s",
		url.QueryEscape(b.User),
		url.QueryEscape(b.Password),
		b.Host,
		b.Port,
		url.QueryEscape(b.VHost),
	)
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}
