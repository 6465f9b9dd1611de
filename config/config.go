package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          int           `env:"PORT" envDefault:"4000"`
	Dsn           string        `env:"DSN"`
	VoteLockWait  time.Duration `env:"VOTE_LOCK_WAIT" envDefault:"2s"`
	AllowedOrigin string        `env:"ALLOWED_ORIGIN"`
}

func New() *Config {
	if loadErr := godotenv.Load(".env"); loadErr != nil {
		log.Printf("[Env]: unable to load .env file %v", loadErr)
	}

	var cfg Config

	if parseErr := env.Parse(&cfg); parseErr != nil {
		log.Printf("[Env]: failed to parse environment variables: %v", parseErr)
	}

	return &cfg
}
