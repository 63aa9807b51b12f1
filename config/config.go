package config

import (
	"fmt"
	"time"

	"github.com/fieldhail/dispatch-system/pkg/configparser"
)

// Config contains all configuration variables of the application
type (
	Config struct {
		Server   ServerConfig
		Database DatabaseConfig
		RabbitMQ RabbitMQConfig
		Auth     AuthConfig
		Dispatch DispatchConfig
		Tracking TrackingConfig
	}

	ServerConfig struct {
		Port         string `env:"SERVER_PORT" default:"3000"`
		LogLevel     string `env:"SERVER_LOG_LEVEL" default:"DEBUG"`
		PprofEnabled bool   `env:"SERVER_PPROF_ENABLED" default:"false"`
	}

	DatabaseConfig struct {
		Host     string `env:"DATABASE_HOST" default:"localhost"`
		Port     string `env:"DATABASE_PORT" default:"5432"`
		User     string `env:"DATABASE_USER" default:"dispatch_user"`
		Password string `env:"DATABASE_PASSWORD" default:"dispatch_pass"`
		Database string `env:"DATABASE_DATABASE" default:"dispatch_db"`

		MaxConns        int32         `env:"DATABASE_MAXCONNS" default:"20"`
		MinConns        int32         `env:"DATABASE_MINCONNS" default:"2"`
		MaxConnLifetime time.Duration `env:"DATABASE_MAXCONNLIFETIME" default:"30m"`
		MaxConnIdleTime time.Duration `env:"DATABASE_MAXCONNIDLETIME" default:"5m"`

		// QueryTimeout bounds every single storage call; a timeout surfaces
		// as a transient failure, never as a state change.
		QueryTimeout time.Duration `env:"DATABASE_QUERYTIMEOUT" default:"3s"`
	}

	RabbitMQConfig struct {
		Host     string `env:"RABBITMQ_HOST" default:"localhost"`
		Port     string `env:"RABBITMQ_PORT" default:"5672"`
		User     string `env:"RABBITMQ_USER" default:"guest"`
		Password string `env:"RABBITMQ_PASSWORD" default:"guest"`

		// ConsumePositions enables the queue-fed position stream in addition
		// to the websocket one.
		ConsumePositions bool `env:"RABBITMQ_CONSUMEPOSITIONS" default:"true"`
	}

	AuthConfig struct {
		JWTSecret string `env:"AUTH_JWT_SECRET" default:"supersecretkey"`
	}

	// DispatchConfig is the single matching policy. Older revisions of the
	// system disagreed on these values between code paths; there is exactly
	// one set now.
	DispatchConfig struct {
		DefaultRadiusKm   float64 `env:"DISPATCH_DEFAULTRADIUSKM" default:"25"`
		EmergencyRadiusKm float64 `env:"DISPATCH_EMERGENCYRADIUSKM" default:"50"`
		CandidateLimit    int     `env:"DISPATCH_CANDIDATELIMIT" default:"10"`
		EmergencyLimit    int     `env:"DISPATCH_EMERGENCYLIMIT" default:"5"`
	}

	TrackingConfig struct {
		PingInterval time.Duration `env:"TRACKING_PINGINTERVAL" default:"30s"`
	}
)

func (c DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

func (c RabbitMQConfig) GetDSN() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/",
		c.User,
		c.Password,
		c.Host,
		c.Port,
	)
}

func NewConfig(filepath string) (*Config, error) {
	cfg := &Config{}

	// Loading environment variables and parsing into the config struct.
	if err := configparser.LoadAndParseYaml(filepath, cfg); err != nil {
		return nil, fmt.Errorf("failed to load and parse config: %w", err)
	}

	return cfg, nil
}
