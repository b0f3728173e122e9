package config

import (
	"testing"
	"time"
)

func TestParseCaps(t *testing.T) {
	caps := parseCaps("acme=650, globex=1200,broken,negative=-1")
	if caps["acme"] != 650 {
		t.Fatalf("expected acme cap 650, got %d", caps["acme"])
	}
	if caps["globex"] != 1200 {
		t.Fatalf("expected globex cap 1200, got %d", caps["globex"])
	}
	if _, ok := caps["broken"]; ok {
		t.Fatalf("expected malformed pair to be skipped")
	}
	if _, ok := caps["negative"]; ok {
		t.Fatalf("expected negative cap to be skipped")
	}
}

func TestFromEnvDefaults(t *testing.T) {
	cfg := FromEnv()
	if cfg.Addr != ":8080" {
		t.Fatalf("expected default addr, got %s", cfg.Addr)
	}
	if cfg.ContinuationTokenTTL != 15*time.Minute {
		t.Fatalf("expected default continuation TTL, got %s", cfg.ContinuationTokenTTL)
	}
	if cfg.Kafka.Topic != "membergate.audit" {
		t.Fatalf("expected default audit topic, got %s", cfg.Kafka.Topic)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("MEMBERGATE_ADDR", ":9999")
	t.Setenv("DELEGATE_API_TOKENS", "tok-a, tok-b")
	t.Setenv("CONTINUATION_TOKEN_TTL", "5m")

	cfg := FromEnv()
	if cfg.Addr != ":9999" {
		t.Fatalf("expected overridden addr, got %s", cfg.Addr)
	}
	if len(cfg.DelegateTokens) != 2 || cfg.DelegateTokens[1] != "tok-b" {
		t.Fatalf("expected two delegate tokens, got %v", cfg.DelegateTokens)
	}
	if cfg.ContinuationTokenTTL != 5*time.Minute {
		t.Fatalf("expected 5m TTL, got %s", cfg.ContinuationTokenTTL)
	}
}
