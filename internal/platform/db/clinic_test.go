package db

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/ehr/frontdesk/internal/platform/auth"
)

func TestExtractClinicID(t *testing.T) {
	tests := []struct {
		name   string
		jwt    string
		header string
		roles  []string
		want   string
	}{
		{"from token", "centro", "", []string{auth.RoleReceptionist}, "centro"},
		{"header from service account", "", "zona_sul", []string{auth.RoleService}, "zona_sul"},
		{"header from admin", "", "zona_sul", []string{auth.RoleAdmin}, "zona_sul"},
		{"header ignored for staff", "", "zona_sul", []string{auth.RoleReceptionist}, "default"},
		{"header ignored without identity", "", "zona_sul", nil, "default"},
		{"token wins", "centro", "zona_sul", []string{auth.RoleService}, "centro"},
		{"default", "", "", []string{auth.RoleService}, "default"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set(ClinicHeader, tt.header)
			}
			if tt.roles != nil {
				req = req.WithContext(auth.WithIdentity(req.Context(), "u1", "", tt.roles...))
			}
			c := e.NewContext(req, httptest.NewRecorder())
			if tt.jwt != "" {
				c.Set(auth.ClinicKey, tt.jwt)
			}
			if got := extractClinicID(c, "default"); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestClinicIDPattern(t *testing.T) {
	tests := []struct {
		input string
		valid bool
	}{
		{"default", true},
		{"clinica_1", true},
		{"A1B2", true},
		{"a-b", false},
		{"a.b", false},
		{"a b", false},
		{"'; DROP TABLE", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := clinicIDPattern.MatchString(tt.input); got != tt.valid {
			t.Errorf("clinicIDPattern.MatchString(%q) = %v, want %v", tt.input, got, tt.valid)
		}
	}
}

func TestSchemaFor(t *testing.T) {
	if got := SchemaFor("centro"); got != "clinic_centro" {
		t.Errorf("SchemaFor = %s", got)
	}
}

func TestClinicMiddleware_InvalidClinic(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/patients", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), "svc", "", auth.RoleService))
	req.Header.Set(ClinicHeader, "bad-id")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/api/v1/patients")

	err := ClinicMiddleware(nil, "default")(func(c echo.Context) error { return nil })(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestClinicMiddleware_SkipsPublicPaths(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/health", nil), httptest.NewRecorder())
	c.SetPath("/health")

	called := false
	err := ClinicMiddleware(nil, "default")(func(c echo.Context) error {
		called = true
		return nil
	})(c)
	if err != nil || !called {
		t.Errorf("expected public path to pass without a pool, err=%v", err)
	}
}

func TestConnFromContext(t *testing.T) {
	if ConnFromContext(context.Background()) != nil {
		t.Error("expected nil conn from empty context")
	}
	ctx := context.WithValue(context.Background(), DBConnKey, "not-a-conn")
	if ConnFromContext(ctx) != nil {
		t.Error("expected nil when context value is wrong type")
	}
}

func TestClinicFromContext(t *testing.T) {
	ctx := context.WithValue(context.Background(), ClinicIDKey, "centro")
	if got := ClinicFromContext(ctx); got != "centro" {
		t.Errorf("expected centro, got %s", got)
	}
	if got := ClinicFromContext(context.Background()); got != "" {
		t.Errorf("expected empty string, got %s", got)
	}
}

func TestCreateClinicSchema_InvalidIDs(t *testing.T) {
	for _, id := range []string{"clinic-with-dash", "a.b", "drop;table", ""} {
		if err := CreateClinicSchema(context.Background(), nil, id, nil); err == nil {
			t.Errorf("expected error for invalid clinic ID %q", id)
		}
	}
}
