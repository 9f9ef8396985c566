package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App               AppConfig
	HTTP              ServerConfig
	GRPC              ServerConfig
	MySQL             MySQLConfig
	Redis             RedisConfig
	Log               LogConfig
	InternalEndpoints InternalEndpointsConfig
	Provider          ProviderConfig
	Orchestrator      OrchestratorConfig
	Checkout          CheckoutConfig
	Jobs              JobsConfig
	Events            EventsConfig
	Telemetry         TelemetryConfig
}

type AppConfig struct {
	ServiceName string
	APIKey      string
}

type ServerConfig struct {
	Host string
	Port string
}

type MySQLConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig is optional. An empty Addr keeps surfaces and locks in memory,
// which only works for a single replica.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type LogConfig struct {
	Level  string
	Format string
}

type InternalEndpointsConfig struct {
	AuthGRPCAddr string
}

// ProviderConfig holds the hosted payment page merchant credentials. They are
// sent in every request body.
type ProviderConfig struct {
	BaseURL      string
	AppReference string
	Secret       string
	AppID        string
	HTTPTimeout  time.Duration
}

type OrchestratorConfig struct {
	PollInterval     time.Duration
	WatchdogInterval time.Duration
	SessionTimeout   time.Duration
	ReadyTimeout     time.Duration
}

type CheckoutConfig struct {
	CallbackMaxAttempts   int32
	CallbackRetryInterval time.Duration
	CallbackHTTPTimeout   time.Duration
	PendingTimeout        time.Duration
	ReconcileStaleAfter   time.Duration
	JobBatchSize          int32
}

type JobsConfig struct {
	ReconcileInterval        time.Duration
	CallbackDispatchInterval time.Duration
	ExpirePendingInterval    time.Duration
}

type EventsConfig struct {
	Driver       string
	KafkaBrokers []string
	KafkaTopic   string
	NATSURL      string
	NATSSubject  string
}

type TelemetryConfig struct {
	OTLPEndpoint string
	Insecure     bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		return nil, errors.New("MYSQL_DSN environment variable is required")
	}

	return &Config{
		App: AppConfig{
			ServiceName: getEnv("APP_SERVICE_NAME", "checkout-service"),
			APIKey:      getEnv("APP_API_KEY", ""),
		},
		HTTP: ServerConfig{
			Host: getEnv("HTTP_HOST", "0.0.0.0"),
			Port: getEnv("HTTP_PORT", "8080"),
		},
		GRPC: ServerConfig{
			Host: getEnv("GRPC_HOST", "0.0.0.0"),
			Port: getEnv("GRPC_PORT", "9090"),
		},
		MySQL: MySQLConfig{
			DSN:             mysqlDSN,
			MaxOpenConns:    getIntEnv("MYSQL_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getIntEnv("MYSQL_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getMinutesEnv("MYSQL_CONN_MAX_LIFETIME_MINUTES", 30*time.Minute),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
		InternalEndpoints: InternalEndpointsConfig{
			AuthGRPCAddr: getEnv("AUTH_SERVICE_GRPC_ADDR", "localhost:9090"),
		},
		Provider: ProviderConfig{
			BaseURL:      getEnv("PROVIDER_BASE_URL", ""),
			AppReference: getEnv("PROVIDER_APP_REFERENCE", ""),
			Secret:       getEnv("PROVIDER_SECRET", ""),
			AppID:        getEnv("PROVIDER_APP_ID", ""),
			HTTPTimeout:  getSecondsEnv("PROVIDER_HTTP_TIMEOUT_SECONDS", 15*time.Second),
		},
		Orchestrator: OrchestratorConfig{
			PollInterval:     getSecondsEnv("CHECKOUT_POLL_INTERVAL_SECONDS", 3*time.Second),
			WatchdogInterval: getSecondsEnv("CHECKOUT_WATCHDOG_INTERVAL_SECONDS", time.Second),
			SessionTimeout:   getMinutesEnv("CHECKOUT_SESSION_TIMEOUT_MINUTES", 10*time.Minute),
			ReadyTimeout:     getSecondsEnv("CHECKOUT_READY_TIMEOUT_SECONDS", 30*time.Second),
		},
		Checkout: CheckoutConfig{
			CallbackMaxAttempts:   int32(getIntEnv("CHECKOUT_CALLBACK_MAX_ATTEMPTS", 10)),
			CallbackRetryInterval: getMinutesEnv("CHECKOUT_CALLBACK_RETRY_INTERVAL_MINUTES", 5*time.Minute),
			CallbackHTTPTimeout:   getSecondsEnv("CHECKOUT_CALLBACK_HTTP_TIMEOUT_SECONDS", 10*time.Second),
			PendingTimeout:        getMinutesEnv("CHECKOUT_PENDING_TIMEOUT_MINUTES", 15*time.Minute),
			ReconcileStaleAfter:   getMinutesEnv("CHECKOUT_RECONCILE_STALE_AFTER_MINUTES", 2*time.Minute),
			JobBatchSize:          int32(getIntEnv("CHECKOUT_JOB_BATCH_SIZE", 100)),
		},
		Jobs: JobsConfig{
			ReconcileInterval:        getMinutesEnv("CHECKOUT_RECONCILE_INTERVAL_MINUTES", time.Minute),
			CallbackDispatchInterval: getMinutesEnv("CHECKOUT_CALLBACK_DISPATCH_INTERVAL_MINUTES", time.Minute),
			ExpirePendingInterval:    getMinutesEnv("CHECKOUT_EXPIRE_PENDING_INTERVAL_MINUTES", 5*time.Minute),
		},
		Events: EventsConfig{
			Driver:       strings.ToLower(getEnv("EVENTS_DRIVER", "none")),
			KafkaBrokers: getListEnv("KAFKA_BROKERS"),
			KafkaTopic:   getEnv("KAFKA_TOPIC", "checkout.state.changed"),
			NATSURL:      getEnv("NATS_URL", ""),
			NATSSubject:  getEnv("NATS_SUBJECT", "checkout.state.changed"),
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Insecure:     getBoolEnv("OTEL_EXPORTER_OTLP_INSECURE", true),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getListEnv(key string) []string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return nil
	}
	items := make([]string, 0)
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	return items
}

func getMinutesEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}

func getSecondsEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}
