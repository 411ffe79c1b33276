package server

import (
	"flag"
	"testing"
	"time"
)

func TestParseConfigDefaultsAndFlags(t *testing.T) {
	t.Setenv("TASTEBOOK_SESSION_PRIVATE_KEY", "c3R1Yg==")

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-addr", ":9090"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Addr != ":9090" {
		t.Fatalf("expected flag override, got %q", cfg.Addr)
	}
	if cfg.DBPath != "tastebook.db" {
		t.Fatalf("expected default db path, got %q", cfg.DBPath)
	}
	if cfg.SessionIssuer != "tastebook" || cfg.SessionAudience != "tastebook-api" {
		t.Fatalf("unexpected session defaults %+v", cfg)
	}
}

func TestParseConfigEnvOverrides(t *testing.T) {
	t.Setenv("TASTEBOOK_ADDR", ":7070")
	t.Setenv("TASTEBOOK_DB_PATH", "/tmp/test.db")
	t.Setenv("TASTEBOOK_SESSION_TTL", "2h")
	t.Setenv("TASTEBOOK_SESSION_PRIVATE_KEY", "c3R1Yg==")

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Addr != ":7070" || cfg.DBPath != "/tmp/test.db" {
		t.Fatalf("expected env overrides, got %+v", cfg)
	}
	if cfg.SessionTTL != 2*time.Hour {
		t.Fatalf("expected 2h ttl, got %v", cfg.SessionTTL)
	}
}

func TestParseConfigRequiresSessionKey(t *testing.T) {
	t.Setenv("TASTEBOOK_SESSION_PRIVATE_KEY", "")

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	if _, err := ParseConfig(fs, nil); err == nil {
		t.Fatal("expected error without session key")
	}
}
