package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "debug", Format: "json", Service: "frontdesk", Out: &buf})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	logger.Info().Str("patient_id", "p-1").Msg("hello")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON line, got %q: %v", buf.String(), err)
	}
	if entry["service"] != "frontdesk" {
		t.Errorf("service = %v, want frontdesk", entry["service"])
	}
	if entry["patient_id"] != "p-1" {
		t.Errorf("patient_id = %v, want p-1", entry["patient_id"])
	}
}

func TestNew_ECS(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Format: "ecs", Out: &buf})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	logger.Warn().Msg("advisory write failed")

	if !strings.Contains(buf.String(), "log.level") {
		t.Errorf("expected ECS level field in %q", buf.String())
	}
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "warn", Format: "json", Out: &buf})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	logger.Info().Msg("dropped")
	if buf.Len() != 0 {
		t.Errorf("expected info to be filtered at warn level, got %q", buf.String())
	}
}

func TestNew_Errors(t *testing.T) {
	if _, err := New(Options{Level: "loud"}); err == nil {
		t.Error("expected error for bad level")
	}
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Error("expected error for bad format")
	}
}
