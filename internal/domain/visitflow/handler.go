package visitflow

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ehr/frontdesk/internal/platform/auth"
)

// Handler exposes the flow transitions. The client sends the state it holds
// and gets the next one back.
type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/visit-flow", auth.RequireRole(auth.RoleReceptionist, auth.RoleNurse, auth.RolePhysician))
	g.POST("", h.Start)
	g.POST("/advance", h.Advance)
	g.POST("/skip-exams", h.SkipExams)
}

type advanceRequest struct {
	Flow  *Flow `json:"flow"`
	Stage Stage `json:"stage"`
}

type skipExamsRequest struct {
	Flow  *Flow    `json:"flow"`
	Exams []string `json:"exams"`
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrUnknownStage), errors.Is(err, ErrInvalidFlow):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrStageNotActive), errors.Is(err, ErrExamsOrdered):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
}

func (h *Handler) Start(c echo.Context) error {
	return c.JSON(http.StatusOK, NewFlow())
}

func (h *Handler) Advance(c echo.Context) error {
	var req advanceRequest
	if err := c.Bind(&req); err != nil {
		return httpError(unwrapBind(err))
	}
	if req.Flow == nil {
		req.Flow = NewFlow()
	}
	if err := req.Flow.Advance(req.Stage); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, req.Flow)
}

func (h *Handler) SkipExams(c echo.Context) error {
	var req skipExamsRequest
	if err := c.Bind(&req); err != nil {
		return httpError(unwrapBind(err))
	}
	if req.Flow == nil {
		req.Flow = NewFlow()
	}
	if err := req.Flow.SkipExams(req.Exams); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, req.Flow)
}

// unwrapBind returns the decoding error behind echo's bind error so the
// flow's own sentinel errors survive.
func unwrapBind(err error) error {
	var he *echo.HTTPError
	if errors.As(err, &he) && he.Internal != nil {
		return he.Internal
	}
	return err
}
