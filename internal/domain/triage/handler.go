package triage

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/triageflow/triageflow/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/patients", h.RegisterPatient)
	api.GET("/patients", h.ListPatients)
	api.GET("/patients/:id", h.GetPatient)
	api.PUT("/patients/:id", h.UpdatePatient)
	api.PUT("/patients/:id/status", h.SetStatus)
	api.DELETE("/patients/:id", h.RemovePatient)
	api.POST("/score", h.CalculateScore)
}

// httpError maps domain errors onto HTTP status codes. Validation problems
// and bad transitions are the caller's to fix; nothing bubbles up as a 500
// unless the store itself failed.
func httpError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrTransition):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

func (h *Handler) RegisterPatient(c echo.Context) error {
	var in Intake
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, err := h.svc.Register(c.Request().Context(), in)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetPatient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "invalid id")
	}
	p, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListPatients(c echo.Context) error {
	status := Status(c.QueryParam("status"))
	if status != "" && status != "all" && !status.Known() {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown status filter")
	}
	if status == "all" {
		status = ""
	}

	patients, err := h.svc.List(c.Request().Context(), status)
	if err != nil {
		return httpError(err)
	}

	pg := pagination.FromContext(c)
	total := len(patients)
	page := pg.Slice(total)
	return c.JSON(http.StatusOK, pagination.NewResponse(patients[page.Start:page.End], total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdatePatient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "invalid id")
	}
	var req UpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, err := h.svc.Update(c.Request().Context(), id, req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}

type statusRequest struct {
	Status Status `json:"status"`
}

func (h *Handler) SetStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "invalid id")
	}
	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, err := h.svc.SetStatus(c.Request().Context(), id, req.Status)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) RemovePatient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "invalid id")
	}
	p, err := h.svc.Remove(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"removed": true,
		"patient": p,
	})
}

type scoreRequest struct {
	Age        *int        `json:"age"`
	Condition  string      `json:"condition"`
	Severity   Severity    `json:"severity"`
	VitalSigns *VitalSigns `json:"vitalSigns,omitempty"`
}

// CalculateScore answers a what-if scoring query without touching the queue.
func (h *Handler) CalculateScore(c echo.Context) error {
	var req scoreRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Age == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "age is required")
	}
	if *req.Age < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "age must be non-negative")
	}
	if req.Severity == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "severity is required")
	}
	score := h.svc.Score(req.Severity, req.Condition, *req.Age, req.VitalSigns)
	return c.JSON(http.StatusOK, map[string]int{"priority": score})
}
