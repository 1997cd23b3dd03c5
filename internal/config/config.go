package config

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port    string `envconfig:"PORT" default:"8080"`
	DBDSN   string `envconfig:"DB_DSN" default:"fefe.db"`
	LogFile string `envconfig:"LOG_FILE" default:"./fefe.log"`

	// Payment provider credentials. An empty secret key disables outbound
	// provider calls (intents are still recorded locally).
	PaymentBaseURL   string `envconfig:"PAYMENT_BASE_URL" default:"https://api.stripe.com"`
	PaymentSecretKey string `envconfig:"PAYMENT_SECRET_KEY"`
	WebhookSecret    string `envconfig:"PAYMENT_WEBHOOK_SECRET"`

	// Commission the platform takes on collaboration budgets, percent.
	DefaultCommission int `envconfig:"DEFAULT_COMMISSION" default:"15"`
}

func Load() Config {
	// .env is a local-dev convenience; absence is not an error.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("[config] %v", err)
	}
	log.Printf("[config] PORT=%s DB_DSN=%s LOG_FILE=%s PAYMENT_BASE_URL=%s", cfg.Port, cfg.DBDSN, cfg.LogFile, cfg.PaymentBaseURL)
	return cfg
}
