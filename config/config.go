package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type DBConfig struct {
	URL             string        `envconfig:"URL" required:"true"`
	MaxOpenConns    int           `envconfig:"MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"MAX_IDLE_CONNS" default:"5"`
	ConnMaxIdleTime time.Duration `envconfig:"CONN_MAX_IDLE_TIME" default:"5s"`
}

// RedisConfig configures the rate limiter backend. An empty Addr disables it.
type RedisConfig struct {
	Addr string `envconfig:"ADDR"`
}

type RateLimitConfig struct {
	MaxRequests int           `envconfig:"MAX_REQUESTS" default:"100"`
	Window      time.Duration `envconfig:"WINDOW" default:"1m"`
}

type LogConfig struct {
	Level  string `envconfig:"LEVEL" default:"info"`
	Format string `envconfig:"FORMAT" default:"json"`
}

type AppConfig struct {
	Env             string          `envconfig:"APP_ENV" default:"development"`
	Port            int             `envconfig:"APP_PORT" default:"3000"`
	ShutdownTimeout time.Duration   `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	Log             LogConfig       `envconfig:"LOG"`
	DB              DBConfig        `envconfig:"DB"`
	Redis           RedisConfig     `envconfig:"REDIS"`
	RateLimit       RateLimitConfig `envconfig:"RATE_LIMIT"`
}

// Load reads an optional .env file and then the process environment.
// A missing .env file is not an error; it reports whether one was loaded.
func Load(envFilePath ...string) (*AppConfig, bool, error) {
	var err error
	if len(envFilePath) > 0 && envFilePath[0] != "" {
		err = godotenv.Load(envFilePath[0])
	} else {
		err = godotenv.Load()
	}
	loaded := err == nil

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, loaded, fmt.Errorf("process env: %w", err)
	}

	return &cfg, loaded, nil
}
