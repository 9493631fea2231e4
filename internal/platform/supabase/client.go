package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	supa "github.com/supabase-community/supabase-go"
)

// NewClient builds the hosted-store client with the service role key. The
// client is constructed once in bootstrap and injected into repositories.
func NewClient(url, serviceKey string) (*supa.Client, error) {
	if url == "" || serviceKey == "" {
		return nil, errors.New("supabase url and service key are required")
	}
	client, err := supa.NewClient(url, serviceKey, nil)
	if err != nil {
		return nil, fmt.Errorf("create supabase client: %w", err)
	}
	return client, nil
}

// Decode unmarshals a PostgREST response body into dst. An empty body decodes
// to nothing.
func Decode(data []byte, dst interface{}) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode supabase response: %w", err)
	}
	return nil
}

// HealthHandler reports whether the hosted store answers a minimal read.
func HealthHandler(client *supa.Client, table string) echo.HandlerFunc {
	return func(c echo.Context) error {
		_, _, err := client.From(table).Select("id", "", false).Limit(1, "").Execute()
		if err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
				"status":  "unhealthy",
				"backend": "supabase",
				"error":   err.Error(),
			})
		}
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":  "healthy",
			"backend": "supabase",
		})
	}
}

// CtxErr lets repositories bail out before issuing a request when the caller
// has already gone away; the PostgREST client itself takes no context.
func CtxErr(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	return ctx.Err()
}
