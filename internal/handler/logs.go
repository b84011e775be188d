package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/minsu-dev/factory-ops/internal/repository"
)

// LogsHandler serves the audit log listing. Access is gated upstream by
// the logs permission (or admin).
type LogsHandler struct {
	Logs *repository.LogRepo
}

func NewLogsHandler(logs *repository.LogRepo) *LogsHandler {
	return &LogsHandler{Logs: logs}
}

// List returns recent audit entries, newest first, optionally filtered by
// ?category= and bounded by ?limit=.
func (h *LogsHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "잘못된 limit 값입니다."})
		}
		limit = n
	}

	entries, err := h.Logs.List(ctx, c.QueryParam("category"), limit)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, entries)
}
