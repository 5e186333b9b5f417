package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Драйверы хранилища
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config содержит всю конфигурацию приложения
type Config struct {
	Server   ServerConfig   // Настройки HTTP сервера
	Database DatabaseConfig // Настройки подключения к БД
	Identity IdentityConfig // Настройки проверки токенов провайдера идентификации
	Realtime RealtimeConfig // Настройки живых соединений
	Invite   InviteConfig   // Настройки кодов приглашения
}

// ServerConfig содержит настройки HTTP сервера
type ServerConfig struct {
	Port           string        `envconfig:"SERVER_PORT" default:"8080"`
	Host           string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	RequestTimeout time.Duration `envconfig:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// DatabaseConfig содержит настройки подключения к PostgreSQL
type DatabaseConfig struct {
	Driver       string        `envconfig:"DB_DRIVER" default:"postgres"`
	Host         string        `envconfig:"DB_HOST" default:"localhost"`
	Port         string        `envconfig:"DB_PORT" default:"5432"`
	User         string        `envconfig:"DB_USER" default:"taskboard"`
	Password     string        `envconfig:"DB_PASSWORD" default:"taskboard_pass"`
	Name         string        `envconfig:"DB_NAME" default:"taskboard"`
	SSLMode      string        `envconfig:"DB_SSLMODE" default:"disable"`
	MaxConns     int32         `envconfig:"DB_MAX_CONNS" default:"25"`
	MinConns     int32         `envconfig:"DB_MIN_CONNS" default:"5"`
	QueryTimeout time.Duration `envconfig:"DB_QUERY_TIMEOUT" default:"5s"`
}

// IdentityConfig содержит настройки проверки токенов
type IdentityConfig struct {
	Secret   string        `envconfig:"IDENTITY_JWT_SECRET" required:"true"`
	Issuer   string        `envconfig:"IDENTITY_ISSUER"`
	Audience string        `envconfig:"IDENTITY_AUDIENCE"`
	Leeway   time.Duration `envconfig:"IDENTITY_LEEWAY" default:"30s"`
}

// RealtimeConfig содержит настройки WebSocket соединений и комнат
type RealtimeConfig struct {
	AllowedOrigins []string      `envconfig:"REALTIME_ALLOWED_ORIGINS" default:"http://localhost:5173"`
	SendBuffer     int           `envconfig:"REALTIME_SEND_BUFFER" default:"64"`
	RoomQueue      int           `envconfig:"REALTIME_ROOM_QUEUE" default:"256"`
	WriteWait      time.Duration `envconfig:"REALTIME_WRITE_WAIT" default:"10s"`
	PongWait       time.Duration `envconfig:"REALTIME_PONG_WAIT" default:"60s"`
	MaxMessageSize int64         `envconfig:"REALTIME_MAX_MESSAGE_SIZE" default:"4096"`
	JoinTimeout    time.Duration `envconfig:"REALTIME_JOIN_TIMEOUT" default:"5s"`
}

// InviteConfig содержит настройки выдачи кодов приглашения
type InviteConfig struct {
	MaxAttempts int `envconfig:"INVITE_MAX_ATTEMPTS" default:"5"`
}

// DSN возвращает строку подключения к PostgreSQL
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// Validate проверяет согласованность настроек
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Identity.Secret) == "" {
		return fmt.Errorf("IDENTITY_JWT_SECRET is required")
	}
	switch c.Database.Driver {
	case DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	if c.Invite.MaxAttempts < 1 {
		return fmt.Errorf("INVITE_MAX_ATTEMPTS must be positive")
	}
	return nil
}

// Load читает конфигурацию из переменных окружения
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
