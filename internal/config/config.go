package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Store     StoreConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Gateway   GatewayConfig
	Kafka     KafkaConfig
	Booking   BookingConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type StoreConfig struct {
	// Driver is "postgres" or "memory".
	Driver string
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

type PostgresConfig struct {
	User        string
	Password    string
	Name        string
	Host        string
	Port        int
	SSLMode     string
	MaxConns    int32
	AutoMigrate bool
}

func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Name, p.SSLMode,
	)
}

type AuthConfig struct {
	JWTSecret string
	JWTIssuer string
}

type GatewayConfig struct {
	// BaseURL empty selects the logging mock gateway.
	BaseURL    string
	APIKey     string
	AccountRef string
	Timeout    time.Duration
}

type KafkaConfig struct {
	// Brokers empty disables event publishing.
	Brokers []string
	Topic   string
}

type BookingConfig struct {
	OccupancyBuffer time.Duration
	Currency        string
	CountryCode     string
	ManualMethods   []string
}

type RateLimitConfig struct {
	BookingsPerMinute int
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func getBool(key string, def bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func New() (*Config, error) {
	const op = "config.New"

	_ = godotenv.Load()

	var cfg Config

	serverPort, err := getInt("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	cfg.Server = ServerConfig{
		Host: getenv("SERVER_HOST", "localhost"),
		Port: serverPort,
	}

	cfg.Store.Driver = strings.ToLower(getenv("STORE_DRIVER", "postgres"))
	switch cfg.Store.Driver {
	case "postgres", "memory":
	default:
		return nil, fmt.Errorf("%s: invalid STORE_DRIVER %q", op, cfg.Store.Driver)
	}

	if cfg.Store.Driver == "postgres" {
		if cfg.Postgres, err = loadPostgres(); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	redisEnabled, err := getBool("REDIS_ENABLED", true)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	redisDB, err := getInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	cfg.Redis = RedisConfig{
		Enabled:  redisEnabled,
		Addr:     getenv("REDIS_ADDR", "localhost:6380"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       redisDB,
	}

	cfg.Auth = AuthConfig{
		JWTSecret: os.Getenv("AUTH_JWT_SECRET"),
		JWTIssuer: os.Getenv("AUTH_JWT_ISSUER"),
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("%s: missing AUTH_JWT_SECRET", op)
	}

	gwTimeout, err := getInt("GATEWAY_TIMEOUT_SEC", 10)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	cfg.Gateway = GatewayConfig{
		BaseURL:    os.Getenv("GATEWAY_BASE_URL"),
		APIKey:     os.Getenv("GATEWAY_API_KEY"),
		AccountRef: os.Getenv("GATEWAY_ACCOUNT_REF"),
		Timeout:    time.Duration(gwTimeout) * time.Second,
	}

	cfg.Kafka = KafkaConfig{
		Brokers: splitList(os.Getenv("KAFKA_BROKERS")),
		Topic:   getenv("KAFKA_TOPIC", "hotel.booking-events"),
	}

	bufferMin, err := getInt("BOOKING_OCCUPANCY_BUFFER_MIN", 60)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if bufferMin < 0 {
		return nil, fmt.Errorf("%s: BOOKING_OCCUPANCY_BUFFER_MIN must not be negative", op)
	}

	cfg.Booking = BookingConfig{
		OccupancyBuffer: time.Duration(bufferMin) * time.Minute,
		Currency:        getenv("BOOKING_CURRENCY", "TZS"),
		CountryCode:     getenv("BOOKING_COUNTRY_CODE", "255"),
		ManualMethods:   splitList(getenv("BOOKING_MANUAL_METHODS", "cash,merchant")),
	}

	perMin, err := getInt("RATE_LIMIT_BOOKINGS_PER_MIN", 10)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	cfg.RateLimit = RateLimitConfig{BookingsPerMinute: perMin}

	return &cfg, nil
}

func loadPostgres() (PostgresConfig, error) {
	port, err := getInt("POSTGRES_PORT", 5432)
	if err != nil {
		return PostgresConfig{}, err
	}

	maxConns, err := getInt("POSTGRES_MAX_CONNS", 0)
	if err != nil {
		return PostgresConfig{}, err
	}

	autoMigrate, err := getBool("POSTGRES_AUTO_MIGRATE", true)
	if err != nil {
		return PostgresConfig{}, err
	}

	pg := PostgresConfig{
		User:        os.Getenv("POSTGRES_USER"),
		Password:    os.Getenv("POSTGRES_PASSWORD"),
		Name:        os.Getenv("POSTGRES_DB"),
		Host:        getenv("POSTGRES_HOST", "localhost"),
		Port:        port,
		SSLMode:     getenv("POSTGRES_SSLMODE", "disable"),
		MaxConns:    int32(maxConns),
		AutoMigrate: autoMigrate,
	}

	switch {
	case pg.User == "":
		return pg, fmt.Errorf("missing POSTGRES_USER")
	case pg.Password == "":
		return pg, fmt.Errorf("missing POSTGRES_PASSWORD")
	case pg.Name == "":
		return pg, fmt.Errorf("missing POSTGRES_DB")
	}

	return pg, nil
}
