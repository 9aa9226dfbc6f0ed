package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Auth     AuthConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Database DatabaseConfig
	Booking  BookingConfig
}

type ServerConfig struct {
	Port         string
	Env          string
	CORSOrigins  []string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// IsProduction reports whether internal error details must be hidden from clients.
func (s ServerConfig) IsProduction() bool {
	return strings.EqualFold(s.Env, "production")
}

type AuthConfig struct {
	JWTSecret     string
	OIDCIssuer    string
	InternalToken string
}

type RedisConfig struct {
	Addr string
}

type KafkaConfig struct {
	Brokers []string
	GroupID string
	Topics  TopicConfig
	Enabled bool
}

type TopicConfig struct {
	TicketBooked     string
	PaymentUpdated   string
	TicketCheckedIn  string
	PaymentReconcile string
	UserRegistered   string
}

// All returns every topic the service produces to or consumes from.
func (t TopicConfig) All() []string {
	return []string{t.TicketBooked, t.PaymentUpdated, t.TicketCheckedIn, t.PaymentReconcile, t.UserRegistered}
}

type DatabaseConfig struct {
	DSN           string
	MaxOpenConns  int
	MaxIdleConns  int
	MaxLifetime   time.Duration
	MigrationsDir string
	AutoMigrate   bool
}

type BookingConfig struct {
	GuardTTL time.Duration
	QRSize   int
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", ":8084"),
			Env:          getEnv("APP_ENV", "development"),
			CORSOrigins:  getEnvList("CORS_ORIGINS", []string{"http://localhost:3000"}),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Auth: AuthConfig{
			JWTSecret:     getEnv("JWT_SECRET", ""),
			OIDCIssuer:    getEnv("OIDC_ISSUER", ""),
			InternalToken: getEnv("INTERNAL_API_TOKEN", ""),
		},
		Redis: RedisConfig{
			Addr: getEnv("REDIS_ADDR", ""),
		},
		Database: DatabaseConfig{
			DSN:           getEnv("POSTGRES_DSN", ""),
			MaxOpenConns:  getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:  getEnvInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:   time.Duration(getEnvInt("DB_MAX_LIFETIME_MINUTES", 5)) * time.Minute,
			MigrationsDir: getEnv("MIGRATIONS_DIR", "./migrations"),
			AutoMigrate:   getEnvBool("AUTO_MIGRATE", false),
		},
		Kafka: KafkaConfig{
			Brokers: getEnvList("KAFKA_BROKERS", []string{"localhost:9092"}),
			GroupID: getEnv("KAFKA_GROUP_ID", "eventgrid-ticketing"),
			Enabled: getEnvBool("KAFKA_ENABLED", false),
			Topics: TopicConfig{
				TicketBooked:     getEnv("KAFKA_TOPIC_TICKET_BOOKED", "ticketing.ticket.booked"),
				PaymentUpdated:   getEnv("KAFKA_TOPIC_PAYMENT_UPDATED", "ticketing.ticket.payment_updated"),
				TicketCheckedIn:  getEnv("KAFKA_TOPIC_CHECKED_IN", "ticketing.ticket.checked_in"),
				PaymentReconcile: getEnv("KAFKA_TOPIC_PAYMENT_RECONCILED", "ticketing.payment.reconciled"),
				UserRegistered:   getEnv("KAFKA_TOPIC_USER_REGISTERED", "ticketing.user.registered"),
			},
		},
		Booking: BookingConfig{
			GuardTTL: time.Duration(getEnvInt("BOOKING_GUARD_TTL_SECONDS", 10)) * time.Second,
			QRSize:   getEnvInt("QR_SIZE", 256),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated variable, dropping empty entries.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
