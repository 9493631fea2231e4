package patient

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

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
	read := api.Group("", auth.RequireRole(auth.RoleReceptionist, auth.RoleNurse, auth.RolePhysician))
	read.GET("/patients", h.ListPatients)
	read.GET("/patients/:id", h.GetPatient)
	read.GET("/patients/:id/additional-data", h.GetAdditionalData)

	write := api.Group("", auth.RequireRole(auth.RoleReceptionist))
	write.POST("/patients", h.CreatePatient)
	write.PUT("/patients/:id", h.UpdatePatient)
	write.PUT("/patients/:id/additional-data", h.UpsertAdditionalData)

	admin := api.Group("", auth.RequireRole(auth.RoleAdmin))
	admin.DELETE("/patients/:id", h.DeletePatient)
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	case errors.Is(err, ErrInvalidStatus):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func parseDateParam(c echo.Context, name string) (*time.Time, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name+", expected YYYY-MM-DD")
	}
	return &t, nil
}

// CriteriaFromQuery reads the reception filter from query parameters.
func CriteriaFromQuery(c echo.Context) (Criteria, error) {
	start, err := parseDateParam(c, "start_date")
	if err != nil {
		return Criteria{}, err
	}
	end, err := parseDateParam(c, "end_date")
	if err != nil {
		return Criteria{}, err
	}
	return Criteria{
		Search:       c.QueryParam("search"),
		Status:       c.QueryParam("status"),
		Specialty:    c.QueryParam("specialty"),
		Professional: c.QueryParam("professional"),
		StartDate:    start,
		EndDate:      end,
	}, nil
}

// storedStatuses reads the comma-separated stored_status set. Values are
// passed to the store verbatim so legacy statuses can still be selected.
func storedStatuses(c echo.Context) []Status {
	var out []Status
	for _, s := range strings.Split(c.QueryParam("stored_status"), ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, Status(s))
		}
	}
	return out
}

func (h *Handler) ListPatients(c echo.Context) error {
	criteria, err := CriteriaFromQuery(c)
	if err != nil {
		return err
	}
	items, err := h.svc.Search(c.Request().Context(), storedStatuses(c), criteria)
	if err != nil {
		return httpError(err)
	}
	views := make([]View, len(items))
	for i, p := range items {
		views[i] = NewView(p)
	}
	pg := pagination.FromContext(c)
	return c.JSON(http.StatusOK, pagination.NewResponse(pagination.Page(views, pg), len(views), pg.Limit, pg.Offset))
}

func (h *Handler) GetPatient(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	p, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, NewView(p))
}

func (h *Handler) CreatePatient(c echo.Context) error {
	var p Patient
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Register(c.Request().Context(), &p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, NewView(&p))
}

func (h *Handler) UpdatePatient(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var p Patient
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p.ID = id
	if err := h.svc.Update(c.Request().Context(), &p); err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidStatus) {
			return httpError(err)
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, NewView(&p))
}

func (h *Handler) DeletePatient(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) GetAdditionalData(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	a, err := h.svc.GetAdditionalData(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "additional data not found")
		}
		return httpError(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) UpsertAdditionalData(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var a AdditionalData
	if err := c.Bind(&a); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a.PatientID = id
	if err := h.svc.UpsertAdditionalData(c.Request().Context(), &a); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, a)
}
