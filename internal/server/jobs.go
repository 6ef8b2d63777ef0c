package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/mohammad-safakhou/notesmith/internal/store"
)

// JobsHandler serves async generation job status.
type JobsHandler struct {
	Store *store.Store
}

// Register mounts the jobs routes on the API group.
func (h *JobsHandler) Register(g *echo.Group) {
	g.GET("/jobs/:id", h.get)
}

func (h *JobsHandler) get(c echo.Context) error {
	rec, err := h.Store.GetJob(c.Request().Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "job not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	resp := map[string]interface{}{
		"id":         rec.ID,
		"video_url":  rec.VideoURL,
		"language":   rec.Language,
		"status":     rec.Status,
		"created_at": rec.CreatedAt,
		"updated_at": rec.UpdatedAt,
	}
	if rec.Error != "" {
		resp["error"] = rec.Error
	}
	if rec.NoteID != "" {
		resp["note_id"] = rec.NoteID
	}
	return c.JSON(http.StatusOK, resp)
}
