package config

import (
	"os"
	"strconv"
	"time"
)

// Config carries everything the server needs. It is built once in main and
// injected into constructors so components never read ambient state.
type Config struct {
	Addr        string
	DatabaseURL string

	Redis     Redis
	Kafka     Kafka
	Directory Directory
	Mail      Mail
}

// Redis captures connection settings for the directory snapshot cache.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Kafka captures settings for the audit-event sink.
type Kafka struct {
	Brokers    string
	AuditTopic string
}

// Directory captures trust-directory provider settings. The upstream VCI
// snapshot is published daily, so the refresh interval defaults to 24h. The
// default URL pins a known-good snapshot; the nightly one has been corrupt
// before and broke verification for everyone.
type Directory struct {
	URL             string
	RefreshInterval time.Duration
	PollInterval    time.Duration
	FetchTimeout    time.Duration
	CacheTTL        time.Duration
}

// Mail captures SMTP settings for manual-review notifications.
type Mail struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       string
}

const defaultDirectoryURL = "https://raw.githubusercontent.com/the-commons-project/vci-directory/2377780c1b2e64ccbf659f9e446635e526a5e961/logs/vci_snapshot.json"

// FromEnv builds a Config from SHC_* environment variables so main stays lean.
func FromEnv() Config {
	return Config{
		Addr:        envString("SHC_ADDR", ":8080"),
		DatabaseURL: os.Getenv("SHC_DATABASE_URL"),
		Redis: Redis{
			URL:          os.Getenv("SHC_REDIS_URL"),
			PoolSize:     envInt("SHC_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("SHC_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("SHC_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("SHC_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("SHC_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: Kafka{
			Brokers:    os.Getenv("SHC_KAFKA_BROKERS"),
			AuditTopic: envString("SHC_AUDIT_TOPIC", "shc.verification.audit"),
		},
		Directory: Directory{
			URL:             envString("SHC_DIRECTORY_URL", defaultDirectoryURL),
			RefreshInterval: envDuration("SHC_DIRECTORY_REFRESH", 24*time.Hour),
			PollInterval:    envDuration("SHC_DIRECTORY_POLL", time.Hour),
			FetchTimeout:    envDuration("SHC_DIRECTORY_TIMEOUT", 10*time.Second),
			CacheTTL:        envDuration("SHC_DIRECTORY_CACHE_TTL", 7*24*time.Hour),
		},
		Mail: Mail{
			Host:     envString("SHC_SMTP_HOST", "localhost"),
			Port:     envInt("SHC_SMTP_PORT", 25),
			Username: os.Getenv("SHC_SMTP_USERNAME"),
			Password: os.Getenv("SHC_SMTP_PASSWORD"),
			From:     envString("SHC_REVIEW_FROM", "tech@fireflyartscollective.org"),
			To:       envString("SHC_REVIEW_TO", "tickets@fireflyartscollective.org"),
		},
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
