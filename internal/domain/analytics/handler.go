package analytics

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

type Handler struct {
	reporter *Reporter
}

func NewHandler(reporter *Reporter) *Handler {
	return &Handler{reporter: reporter}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/analytics", h.GetSnapshot)
	api.GET("/analytics/export", h.ExportCSV)
}

func (h *Handler) GetSnapshot(c echo.Context) error {
	snap, err := h.reporter.Snapshot(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, snap)
}

// ExportCSV streams the queue as a report download, one row per patient in
// display order.
func (h *Handler) ExportCSV(c echo.Context) error {
	patients, err := h.reporter.queue.List(c.Request().Context(), "")
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/csv")
	res.Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="triage-queue-%s.csv"`, time.Now().Format("2006-01-02")))
	res.WriteHeader(http.StatusOK)

	w := csv.NewWriter(res)
	if err := w.Write([]string{"id", "name", "age", "condition", "severity", "priority", "status", "arrival_time"}); err != nil {
		return err
	}
	for _, p := range patients {
		row := []string{
			p.ID.String(),
			p.Name,
			fmt.Sprintf("%d", p.Age),
			p.Condition,
			string(p.Severity),
			fmt.Sprintf("%d", p.Priority),
			string(p.Status),
			p.ArrivalTime.Format(time.RFC3339),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
