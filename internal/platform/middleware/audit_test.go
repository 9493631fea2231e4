package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/frontdesk/internal/platform/auth"
)

func runAudit(t *testing.T, method, path string, handler echo.HandlerFunc) map[string]interface{} {
	t.Helper()
	var buf bytes.Buffer
	e := echo.New()
	req := httptest.NewRequest(method, path, nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), "user-1", "Maria", auth.RoleReceptionist))
	c := e.NewContext(req, httptest.NewRecorder())
	c.Set("request_id", "req-123")

	Audit(zerolog.New(&buf))(handler)(c)

	if buf.Len() == 0 {
		return nil
	}
	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid audit line: %v", err)
	}
	return entry
}

func ok(c echo.Context) error { return c.String(http.StatusOK, "ok") }

func TestAudit_PatientRead(t *testing.T) {
	id := uuid.New().String()
	entry := runAudit(t, http.MethodGet, "/api/v1/patients/"+id+"/notes", ok)

	if entry["type"] != "access_audit" {
		t.Errorf("expected access_audit, got %v", entry["type"])
	}
	if entry["patient_id"] != id {
		t.Errorf("expected patient_id %s, got %v", id, entry["patient_id"])
	}
	if entry["resource"] != "notes" || entry["action"] != "read" {
		t.Errorf("unexpected resource/action: %v/%v", entry["resource"], entry["action"])
	}
	if entry["user_id"] != "user-1" || entry["request_id"] != "req-123" {
		t.Errorf("unexpected identity fields: %v", entry)
	}
}

func TestAudit_CheckIn(t *testing.T) {
	id := uuid.New().String()
	entry := runAudit(t, http.MethodPost, "/api/v1/patients/"+id+"/check-in", ok)
	if entry["resource"] != "check-in" || entry["action"] != "create" {
		t.Errorf("unexpected resource/action: %v/%v", entry["resource"], entry["action"])
	}
}

func TestAudit_RecordsErrorStatus(t *testing.T) {
	entry := runAudit(t, http.MethodDelete, "/api/v1/patients/"+uuid.New().String(), func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusForbidden, "required role: admin")
	})
	if entry["status"] != float64(http.StatusForbidden) || entry["action"] != "delete" {
		t.Errorf("unexpected entry %v", entry)
	}
	if entry["resource"] != "patients" {
		t.Errorf("expected patients resource, got %v", entry["resource"])
	}
}

func TestAudit_SkipsNonAPIPaths(t *testing.T) {
	if entry := runAudit(t, http.MethodGet, "/health", ok); entry != nil {
		t.Errorf("expected no audit line for /health, got %v", entry)
	}
}

func TestResourceOf(t *testing.T) {
	withID := "/api/v1/patients/" + uuid.NewString()
	tests := []struct {
		path string
		want string
	}{
		{"/api/v1/patients", "patients"},
		{"/api/v1/visit-flow/advance", "advance"},
		{"/api/v1/", "unknown"},
		{withID, "patients"},
	}
	for _, tt := range tests {
		if got := resourceOf(tt.path); got != tt.want {
			t.Errorf("resourceOf(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
