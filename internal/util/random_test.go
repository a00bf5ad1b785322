package util

import (
	"strings"
	"testing"
)

func TestGenerateRandomHex(t *testing.T) {
	if got := GenerateRandomHex(0); got != "" {
		t.Errorf("zero length = %q, want empty", got)
	}
	got := GenerateRandomHex(32)
	if len(got) != 32 {
		t.Fatalf("length = %d, want 32", len(got))
	}
	for _, c := range got {
		if !strings.ContainsRune("0123456789abcdef", c) {
			t.Errorf("non-hex character %q in %q", c, got)
		}
	}
}

func TestGenerateSessionID(t *testing.T) {
	a, b := GenerateSessionID(), GenerateSessionID()
	if !strings.HasPrefix(a, "s_") || len(a) != 34 {
		t.Errorf("session ID format = %q", a)
	}
	if a == b {
		t.Errorf("consecutive session IDs collide: %q", a)
	}
}
