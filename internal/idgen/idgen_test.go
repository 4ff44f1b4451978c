package idgen_test

import (
	"strings"
	"testing"

	"github.com/flitsinc/glanced/internal/idgen"
	"github.com/google/uuid"
)

func TestNewIsUUIDv7(t *testing.T) {
	id := idgen.New()
	parsed, err := uuid.Parse(id)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.Version() != 7 {
		t.Fatalf("expected v7, got %d", parsed.Version())
	}
	if idgen.New() == id {
		t.Fatalf("expected unique ids")
	}
}

func TestValidateSourceID(t *testing.T) {
	valid := []string{"a", "weather", "com.example.weather", "battery_level", "cal-1"}
	for _, id := range valid {
		if err := idgen.ValidateSourceID(id); err != nil {
			t.Errorf("expected %q to be valid, got error: %v", id, err)
		}
	}
	invalid := []string{"", "-x", "x-", "1abc", "Weather", "a:b", "has space", strings.Repeat("a", 65)}
	for _, id := range invalid {
		if err := idgen.ValidateSourceID(id); err == nil {
			t.Errorf("expected %q to be invalid, got nil error", id)
		}
	}
}
