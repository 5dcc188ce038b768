package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

// config is read once at startup. A local .env is loaded first (without
// overriding variables already set) so development and the deploy host share
// the same knobs.
type config struct {
	Addr           string
	DBDSN          string
	JWTSecret      []byte
	AccountKeyword string // notifications must mention this to be ours
	WebhookToken   string // shared secret for the notification relay; empty disables the check
}

func loadConfig() config {
	if err := godotenv.Load(); err == nil {
		log.Println("loaded .env")
	}
	cfg := config{
		Addr:           getenv("ADDR", ":8081"),
		DBDSN:          os.Getenv("DB_DSN"),
		AccountKeyword: getenv("ACCOUNT_KEYWORD", "동아리통장"),
		WebhookToken:   os.Getenv("WEBHOOK_TOKEN"),
	}
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "dev-insecure-secret-change" // development fallback
	}
	cfg.JWTSecret = []byte(secret)
	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
