package genai

import (
	"testing"
	"time"
)

func TestNewClientRequiresAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	if _, err := NewClient(); err == nil {
		t.Error("expected error when no API key is configured, got nil")
	}
}

func TestNewClientDefaults(t *testing.T) {
	c, err := NewClient(WithAPIKey("test-key"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.timeout != DefaultTimeout {
		t.Errorf("expected default timeout %v, got %v", DefaultTimeout, c.timeout)
	}
	if c.model == "" {
		t.Error("expected a default model to be set")
	}
}

func TestNewClientOptions(t *testing.T) {
	c, err := NewClient(WithAPIKey("test-key"), WithModel("gpt-4o"), WithTimeout(3*time.Second))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(c.model) != "gpt-4o" {
		t.Errorf("expected model gpt-4o, got %q", c.model)
	}
	if c.timeout != 3*time.Second {
		t.Errorf("expected timeout 3s, got %v", c.timeout)
	}
}

func TestNewClientPrefersEnvKeyWhenOptionUnset(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "env-key")

	if _, err := NewClient(); err != nil {
		t.Fatalf("unexpected error with env key: %v", err)
	}
}
