package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	GRPC     GRPCConfig     `yaml:"grpc"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Booking  BookingConfig  `yaml:"booking"`
	Log      LogConfig      `yaml:"log"`
	Tracing  TracingConfig  `yaml:"tracing"`
}

type HTTPConfig struct {
	Address        string   `yaml:"address"`
	CORSOrigins    []string `yaml:"cors_origins"`
	RateLimitRPS   float64  `yaml:"rate_limit_rps"`
	RateLimitBurst int      `yaml:"rate_limit_burst"`
	Swagger        bool     `yaml:"swagger"`
}

type GRPCConfig struct {
	Address string `yaml:"address"`
}

const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

type DatabaseConfig struct {
	Driver        string `yaml:"driver"`
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	User          string `yaml:"user"`
	Password      string `yaml:"password"`
	Name          string `yaml:"name"`
	SSLMode       string `yaml:"ssl_mode"`
	MongoURI      string `yaml:"mongo_uri"`
	MongoDatabase string `yaml:"mongo_database"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr                  string `yaml:"addr"`
	Password              string `yaml:"password"`
	DB                    int    `yaml:"db"`
	OpTimeoutMillis       int    `yaml:"op_timeout_ms"`
	HealthIntervalSeconds int    `yaml:"health_interval_seconds"`
}

func (r RedisConfig) OpTimeout() time.Duration {
	return time.Duration(r.OpTimeoutMillis) * time.Millisecond
}

func (r RedisConfig) HealthInterval() time.Duration {
	return time.Duration(r.HealthIntervalSeconds) * time.Second
}

type KafkaConfig struct {
	Brokers            []string `yaml:"brokers"`
	BookingEventsTopic string   `yaml:"booking_events_topic"`
	GroupID            string   `yaml:"group_id"`
}

type BookingConfig struct {
	LockTTLMillis        int `yaml:"lock_ttl_ms"`
	CacheTTLSeconds      int `yaml:"cache_ttl_seconds"`
	RouteCacheTTLSeconds int `yaml:"route_cache_ttl_seconds"`
	ListDefaultLimit     int `yaml:"list_default_limit"`
	ListMaxLimit         int `yaml:"list_max_limit"`
}

func (b BookingConfig) LockTTL() time.Duration {
	return time.Duration(b.LockTTLMillis) * time.Millisecond
}

func (b BookingConfig) CacheTTL() time.Duration {
	return time.Duration(b.CacheTTLSeconds) * time.Second
}

func (b BookingConfig) RouteCacheTTL() time.Duration {
	return time.Duration(b.RouteCacheTTLSeconds) * time.Second
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type TracingConfig struct {
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
}

func LoadConfig(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults fills every unset knob with its documented default.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":8080"
	}
	if c.HTTP.RateLimitBurst == 0 && c.HTTP.RateLimitRPS > 0 {
		c.HTTP.RateLimitBurst = int(c.HTTP.RateLimitRPS) * 2
	}
	if c.GRPC.Address == "" {
		c.GRPC.Address = ":9090"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverPostgres
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Database.MongoDatabase == "" {
		c.Database.MongoDatabase = "cargo"
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.Redis.OpTimeoutMillis == 0 {
		c.Redis.OpTimeoutMillis = 250
	}
	if c.Redis.HealthIntervalSeconds == 0 {
		c.Redis.HealthIntervalSeconds = 5
	}
	if c.Kafka.BookingEventsTopic == "" {
		c.Kafka.BookingEventsTopic = "booking-events"
	}
	if c.Kafka.GroupID == "" {
		c.Kafka.GroupID = "cargo-notifier"
	}
	if c.Booking.LockTTLMillis == 0 {
		c.Booking.LockTTLMillis = 5000
	}
	if c.Booking.CacheTTLSeconds == 0 {
		c.Booking.CacheTTLSeconds = 300
	}
	if c.Booking.RouteCacheTTLSeconds == 0 {
		c.Booking.RouteCacheTTLSeconds = 60
	}
	if c.Booking.ListDefaultLimit == 0 {
		c.Booking.ListDefaultLimit = 50
	}
	if c.Booking.ListMaxLimit == 0 {
		c.Booking.ListMaxLimit = 200
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "cargo-booking"
	}
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres:
	case DriverMongo:
		if c.Database.MongoURI == "" {
			return fmt.Errorf("database.mongo_uri is required for driver %q", DriverMongo)
		}
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Booking.ListDefaultLimit > c.Booking.ListMaxLimit {
		return fmt.Errorf("booking.list_default_limit (%d) exceeds list_max_limit (%d)", c.Booking.ListDefaultLimit, c.Booking.ListMaxLimit)
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.HTTP.Address, "HTTP_ADDRESS")
	setString(&c.GRPC.Address, "GRPC_ADDRESS")
	setString(&c.Database.Driver, "DATABASE_DRIVER")
	setString(&c.Database.Host, "DATABASE_HOST")
	setString(&c.Database.User, "DATABASE_USER")
	setString(&c.Database.Password, "DATABASE_PASSWORD")
	setString(&c.Database.Name, "DATABASE_NAME")
	setString(&c.Database.MongoURI, "MONGODB_URI")
	setString(&c.Database.MongoDatabase, "MONGODB_DATABASE")
	setString(&c.Redis.Addr, "REDIS_ADDR")
	setString(&c.Redis.Password, "REDIS_PASSWORD")
	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Log.Format, "LOG_FORMAT")
	setString(&c.Tracing.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")

	if v := strings.TrimSpace(os.Getenv("DATABASE_PORT")); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid DATABASE_PORT %q: %w", v, err)
		}
		c.Database.Port = port
	}
	if v := strings.TrimSpace(os.Getenv("KAFKA_BROKERS")); v != "" {
		var brokers []string
		for _, b := range strings.Split(v, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
		c.Kafka.Brokers = brokers
	}
	return nil
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}
