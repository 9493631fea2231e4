package main

import (
	"io/fs"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/frontdesk/internal/config"
	"github.com/ehr/frontdesk/internal/platform/db"
	"github.com/ehr/frontdesk/internal/platform/events"
	"github.com/ehr/frontdesk/internal/platform/metrics"
)

func testConfig(env string) *config.Config {
	return &config.Config{
		Env:            env,
		StoreBackend:   config.StorePostgres,
		DefaultClinic:  "default",
		JWTSecret:      "test-secret",
		CORSOrigins:    []string{"http://localhost:3000"},
		RateLimitRPS:   50,
		RateLimitBurst: 100,
		MetricsEnabled: true,
	}
}

// testStores has no repositories; the routes exercised here never reach them.
func testStores() *stores {
	return &stores{
		health: func(c echo.Context) error {
			return c.JSON(http.StatusOK, map[string]string{"status": "ok", "store": "fake"})
		},
		close: func() {},
	}
}

func serve(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestServer_PublicEndpoints(t *testing.T) {
	e := newServer(testConfig("production"), zerolog.Nop(), testStores(), metrics.New(), events.Nop{})

	for _, path := range []string{"/health", "/health/db", "/metrics"} {
		if rec := serve(e, http.MethodGet, path, ""); rec.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, rec.Code)
		}
	}
}

func TestServer_RequiresTokenOutsideDev(t *testing.T) {
	e := newServer(testConfig("production"), zerolog.Nop(), testStores(), metrics.New(), events.Nop{})

	rec := serve(e, http.MethodPost, "/api/v1/visit-flow", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestServer_DevVisitFlow(t *testing.T) {
	e := newServer(testConfig("development"), zerolog.Nop(), testStores(), metrics.New(), events.Nop{})

	rec := serve(e, http.MethodPost, "/api/v1/visit-flow/advance", `{"stage":"doctor"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"active_stage":"exams"`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected a request id on the response")
	}
}

func TestServer_MetricsDisabled(t *testing.T) {
	cfg := testConfig("development")
	cfg.MetricsEnabled = false
	e := newServer(cfg, zerolog.Nop(), testStores(), metrics.New(), events.Nop{})

	if rec := serve(e, http.MethodGet, "/metrics", ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 without metrics, got %d", rec.Code)
	}
}

func TestNewPublisher_NopWithoutBrokers(t *testing.T) {
	pub, err := newPublisher(testConfig("development"), zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := pub.(events.Nop); !ok {
		t.Errorf("expected Nop publisher, got %T", pub)
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	src := migrationSource("")
	if _, err := fs.Stat(src, "001_frontdesk.sql"); err != nil {
		t.Fatalf("embedded migration missing: %v", err)
	}

	migs, err := db.NewMigrator(nil, src).LoadMigrations()
	if err != nil {
		t.Fatalf("load migrations: %v", err)
	}
	if len(migs) == 0 || migs[0].Version != 1 {
		t.Fatalf("unexpected migrations %+v", migs)
	}
	for _, table := range []string{"patients", "patient_additional_data", "patient_notes", "patient_logs"} {
		if !strings.Contains(migs[0].SQL, "CREATE TABLE IF NOT EXISTS "+table+" (") {
			t.Errorf("migration does not create %s", table)
		}
	}
}
