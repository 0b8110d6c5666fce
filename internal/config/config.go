package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type HTTP struct {
	Addr            string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"20s"`
	IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	MaxBodyBytes    int64         `env:"HTTP_MAX_BODY_BYTES" envDefault:"1048576"`
	RateLimitRPS    float64       `env:"HTTP_RATE_LIMIT_RPS" envDefault:"50"`
	RateLimitBurst  int           `env:"HTTP_RATE_LIMIT_BURST" envDefault:"100"`
}

type DB struct {
	DSN string `env:"PG_DSN,required"`
}

type Token struct {
	PrivateKeyPEM string        `env:"TOKEN_PRIVATE_KEY_PEM,required"`
	PublicKeyPEM  string        `env:"TOKEN_PUBLIC_KEY_PEM,required"`
	Issuer        string        `env:"TOKEN_ISSUER" envDefault:"tenantcore"`
	KeyID         string        `env:"TOKEN_KEY_ID"`
	TTL           time.Duration `env:"TOKEN_TTL" envDefault:"12h"`
	CookieName    string        `env:"TOKEN_COOKIE_NAME" envDefault:"tc_session"`
}

type Build struct {
	Version string `env:"BUILD_VERSION" envDefault:"dev"`
	Commit  string `env:"BUILD_COMMIT" envDefault:"none"`
}

type Config struct {
	HTTP  HTTP
	DB    DB
	Token Token
	Build Build
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
