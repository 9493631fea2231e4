package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/frontdesk/internal/platform/auth"
)

// AccessEntry is one audited API call.
type AccessEntry struct {
	UserID    string
	Roles     []string
	Resource  string
	PatientID string
	Action    string
	Method    string
	Path      string
	IPAddress string
	RequestID string
	Status    int
}

// Audit logs every /api/v1 call that touches patient data, after the
// handler has run so the status is known.
func Audit(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			if !strings.HasPrefix(path, "/api/v1/") {
				return next(c)
			}

			err := next(c)

			entry := buildAccessEntry(c, err)
			logger.Info().
				Str("type", "access_audit").
				Str("request_id", entry.RequestID).
				Str("user_id", entry.UserID).
				Strs("user_roles", entry.Roles).
				Str("resource", entry.Resource).
				Str("patient_id", entry.PatientID).
				Str("action", entry.Action).
				Str("method", entry.Method).
				Str("path", entry.Path).
				Str("remote_ip", entry.IPAddress).
				Int("status", entry.Status).
				Msg("patient_data_access")

			return err
		}
	}
}

func buildAccessEntry(c echo.Context, err error) AccessEntry {
	req := c.Request()
	ctx := req.Context()
	status := c.Response().Status
	if he, ok := err.(*echo.HTTPError); ok {
		status = he.Code
	}
	return AccessEntry{
		UserID:    auth.UserIDFromContext(ctx),
		Roles:     auth.RolesFromContext(ctx),
		Resource:  resourceOf(req.URL.Path),
		PatientID: patientIDOf(c),
		Action:    actionOf(req.Method),
		Method:    req.Method,
		Path:      req.URL.Path,
		IPAddress: c.RealIP(),
		RequestID: requestID(c),
		Status:    status,
	}
}

func actionOf(method string) string {
	switch method {
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return "read"
	}
}

// resourceOf names the last non-id segment: /api/v1/patients/<id>/notes is
// "notes", /api/v1/patients is "patients".
func resourceOf(path string) string {
	segments := strings.Split(strings.Trim(strings.TrimPrefix(path, "/api/v1/"), "/"), "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if s := segments[i]; s != "" && !isUUID(s) {
			return s
		}
	}
	return "unknown"
}

func patientIDOf(c echo.Context) string {
	path := c.Request().URL.Path
	if rest, ok := strings.CutPrefix(path, "/api/v1/patients/"); ok {
		id, _, _ := strings.Cut(rest, "/")
		if isUUID(id) {
			return id
		}
	}
	return c.QueryParam("patient_id")
}

func isUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
