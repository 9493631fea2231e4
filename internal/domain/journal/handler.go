package journal

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ehr/frontdesk/internal/domain/patient"
	"github.com/ehr/frontdesk/internal/platform/auth"
	"github.com/ehr/frontdesk/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	staff := api.Group("", auth.RequireRole(auth.RoleReceptionist, auth.RoleNurse, auth.RolePhysician))
	staff.GET("/patients/:id/notes", h.ListNotes)
	staff.POST("/patients/:id/notes", h.AddNote)
	staff.GET("/patients/:id/logs", h.ListLogs)
}

type noteRequest struct {
	Body string `json:"body"`
}

func parsePatientID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func (h *Handler) AddNote(c echo.Context) error {
	id, err := parsePatientID(c)
	if err != nil {
		return err
	}
	var req noteRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	e, err := h.svc.Append(ctx, KindNote, id, req.Body, auth.ActorFromContext(ctx))
	if err != nil {
		switch {
		case errors.Is(err, ErrEmptyBody):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, patient.ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "patient not found")
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.JSON(http.StatusCreated, e)
}

func (h *Handler) ListNotes(c echo.Context) error {
	return h.list(c, KindNote)
}

func (h *Handler) ListLogs(c echo.Context) error {
	return h.list(c, KindLog)
}

func (h *Handler) list(c echo.Context, kind Kind) error {
	id, err := parsePatientID(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), kind, id, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if items == nil {
		items = []*Entry{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
