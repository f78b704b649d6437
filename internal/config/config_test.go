package config

import "testing"

func TestLoad(t *testing.T) {
	t.Run("requires postgres url", func(t *testing.T) {
		t.Setenv("POSTGRES_URL", "")

		if _, err := Load(); err == nil {
			t.Fatal("expected error without POSTGRES_URL")
		}
	})

	t.Run("applies defaults", func(t *testing.T) {
		t.Setenv("POSTGRES_URL", "postgres://localhost/intake")
		t.Setenv("PORT", "")
		t.Setenv("WEBHOOK_SECRET", "")
		t.Setenv("KAFKA_BROKERS", "")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Port != "8080" {
			t.Errorf("expected default port 8080, got %q", cfg.Port)
		}
		if cfg.WebhookSecret != "" {
			t.Errorf("expected empty secret, got %q", cfg.WebhookSecret)
		}
		if cfg.KafkaBrokers != nil {
			t.Errorf("expected no brokers, got %v", cfg.KafkaBrokers)
		}
	})

	t.Run("parses broker list", func(t *testing.T) {
		t.Setenv("POSTGRES_URL", "postgres://localhost/intake")
		t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092 ,")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[0] != "k1:9092" || cfg.KafkaBrokers[1] != "k2:9092" {
			t.Errorf("unexpected brokers: %v", cfg.KafkaBrokers)
		}
	})
}
