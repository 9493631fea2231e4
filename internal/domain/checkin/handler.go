package checkin

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ehr/frontdesk/internal/domain/patient"
	"github.com/ehr/frontdesk/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/patients/:id/check-in", h.Confirm, auth.RequireRole(auth.RoleReceptionist))
}

func (h *Handler) Confirm(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var d Data
	if err := c.Bind(&d); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if d.TargetStatus != "" {
		s, err := patient.ParseStatus(string(d.TargetStatus))
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "unknown target_status "+string(d.TargetStatus))
		}
		d.TargetStatus = s
	}
	ctx := c.Request().Context()
	d.Actor = auth.ActorFromContext(ctx)

	p, err := h.svc.Confirm(ctx, id, d)
	if err != nil {
		switch {
		case errors.Is(err, patient.ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "patient not found")
		case errors.Is(err, patient.ErrInvalidStatus):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.JSON(http.StatusOK, patient.NewView(p))
}
