// Package config loads the intake service configuration from the
// environment once, in main. Handlers receive values explicitly and never
// read ambient process state, which keeps them testable.
package config

import (
	"errors"
	"os"
	"strings"
)

type Config struct {
	Port        string
	PostgresURL string
	// WebhookSecret guards the intake endpoint. Empty disables the check;
	// that is an operational choice for senders that cannot set headers.
	WebhookSecret string
	KafkaBrokers  []string
}

func Load() (Config, error) {
	postgresURL := strings.TrimSpace(os.Getenv("POSTGRES_URL"))
	if postgresURL == "" {
		return Config{}, errors.New("POSTGRES_URL environment variable is required")
	}

	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	var brokers []string
	if raw := strings.TrimSpace(os.Getenv("KAFKA_BROKERS")); raw != "" {
		for _, b := range strings.Split(raw, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
	}

	return Config{
		Port:          port,
		PostgresURL:   postgresURL,
		WebhookSecret: strings.TrimSpace(os.Getenv("WEBHOOK_SECRET")),
		KafkaBrokers:  brokers,
	}, nil
}
