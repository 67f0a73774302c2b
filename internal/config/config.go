package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"medical-alert-service/internal/ratelimit"
)

// Channels with a configurable rate limit, in the order they are reported.
var Channels = []string{"email", "voice", "chat", "webhook"}

var defaultRateLimits = map[string]string{
	"email":   "10/60000",
	"voice":   "5/60000",
	"chat":    "30/60000",
	"webhook": "60/60000",
}

// Config holds application configuration loaded from environment.
type Config struct {
	Kafka struct {
		Broker          string
		Topic           string
		GroupID         string
		MonitoringTopic string
	}
	DB struct {
		DSN string
	}
	Email struct {
		SMTPServer string
		SMTPPort   int
		Username   string
		Password   string
		From       string
	}
	Twilio struct {
		AccountSID string
		AuthToken  string
		FromNumber string
	}
	Telegram struct {
		BotToken      string
		RatePerSecond int
	}
	API struct {
		Port     string
		BasePath string
	}
	Logging struct {
		Dir   string
		Level string
	}
	Pipeline struct {
		QueueSize       int
		MaxWorkers      int
		HistoryCapacity int
		DispatchTimeout time.Duration
		TeamsFile       string
	}
	RateLimits map[string]ratelimit.Limit
}

// Load reads .env if present, then the environment, applies defaults, and
// validates the result.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("failed to load .env file: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function.
func FromEnv(getenv func(string) string) (Config, error) {
	var cfg Config
	var errs []string
	atoi := func(key string, def int) int {
		v := getenv(key)
		if v == "" {
			return def
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			errs = append(errs, fmt.Sprintf("%s: invalid integer %q", key, v))
			return def
		}
		return n
	}
	str := func(key, def string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return def
	}

	// Kafka settings
	cfg.Kafka.Broker = getenv("KAFKA_BROKER")
	cfg.Kafka.Topic = str("KAFKA_TOPIC", "medical_errors")
	cfg.Kafka.GroupID = str("KAFKA_GROUP_ID", "medical-alert-service")
	cfg.Kafka.MonitoringTopic = str("KAFKA_MONITORING_TOPIC", "medical_monitoring")

	// Database DSN
	cfg.DB.DSN = getenv("DB_DSN")

	// Channel settings
	cfg.Email.SMTPServer = getenv("EMAIL_SMTP_SERVER")
	cfg.Email.SMTPPort = atoi("EMAIL_SMTP_PORT", 0)
	cfg.Email.Username = getenv("EMAIL_USERNAME")
	cfg.Email.Password = getenv("EMAIL_PASSWORD")
	cfg.Email.From = getenv("EMAIL_FROM")
	cfg.Twilio.AccountSID = getenv("TWILIO_ACCOUNT_SID")
	cfg.Twilio.AuthToken = getenv("TWILIO_AUTH_TOKEN")
	cfg.Twilio.FromNumber = getenv("TWILIO_FROM_NUMBER")
	cfg.Telegram.BotToken = getenv("TELEGRAM_BOT_TOKEN")
	cfg.Telegram.RatePerSecond = atoi("TELEGRAM_RATE_PER_SECOND", 25)

	// API settings
	cfg.API.Port = str("API_PORT", ":8080")
	cfg.API.BasePath = str("API_BASE_PATH", "/api/v0")

	cfg.Logging.Dir = str("LOG_DIR", "logs")
	cfg.Logging.Level = str("LOG_LEVEL", "info")

	// Pipeline settings
	cfg.Pipeline.QueueSize = atoi("QUEUE_SIZE", 500)
	cfg.Pipeline.MaxWorkers = atoi("MAX_WORKERS", 10)
	cfg.Pipeline.HistoryCapacity = atoi("HISTORY_CAPACITY", 100)
	cfg.Pipeline.DispatchTimeout = time.Duration(atoi("DISPATCH_TIMEOUT_MS", 5000)) * time.Millisecond
	cfg.Pipeline.TeamsFile = getenv("TEAMS_FILE")

	cfg.RateLimits = make(map[string]ratelimit.Limit, len(Channels))
	for _, ch := range Channels {
		key := "RATE_LIMIT_" + strings.ToUpper(ch)
		lim, err := ratelimit.ParseLimit(str(key, defaultRateLimits[ch]))
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
			continue
		}
		cfg.RateLimits[ch] = lim
	}

	if cfg.Pipeline.MaxWorkers == 0 {
		errs = append(errs, "MAX_WORKERS: must be positive")
	}
	if !strings.HasPrefix(cfg.API.BasePath, "/") {
		errs = append(errs, fmt.Sprintf("API_BASE_PATH: %q must start with /", cfg.API.BasePath))
	}
	if len(errs) > 0 {
		return Config{}, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}
