package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/school-finance/internal/domain/finance"
	"github.com/garyjia/school-finance/pkg/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handlers contains HTTP request handlers
type Handlers struct {
	health   HealthChecker
	logger   Logger
	services Services
}

// NewHandlers creates new HTTP handlers
func NewHandlers(services Services, health HealthChecker, logger Logger) *Handlers {
	return &Handlers{
		services: services,
		health:   health,
		logger:   logger,
	}
}

// Response represents a standard API response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents health check response
type HealthResponse struct {
	Status    string    `json:"status"`
	Database  string    `json:"database"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

// HealthCheck handles health check requests
func (h *Handlers) HealthCheck(c *gin.Context) {
	resp := HealthResponse{
		Status:    "healthy",
		Database:  "ok",
		Timestamp: time.Now(),
		Version:   "1.0.0",
	}

	status := http.StatusOK
	if h.health != nil {
		if err := h.health(c.Request.Context()); err != nil {
			h.logger.Error("Health check failed", "error", err)
			resp.Status = "unhealthy"
			resp.Database = "unreachable"
			status = http.StatusServiceUnavailable
		}
	}

	c.JSON(status, resp)
}

// respondError maps domain errors onto status codes; anything unrecognised is a 500
func (h *Handlers) respondError(c *gin.Context, op string, err error) {
	var status int
	switch {
	case errors.Is(err, finance.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, finance.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, finance.ErrConflict):
		status = http.StatusConflict
	default:
		h.logger.Error("Request failed",
			"operation", op,
			"path", c.Request.URL.Path,
			"error", err,
			"timeout", errors.Is(err, context.DeadlineExceeded))
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Error:   "Internal server error",
		})
		return
	}

	c.JSON(status, Response{
		Success: false,
		Error:   err.Error(),
	})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Response{
		Success: false,
		Error:   msg,
	})
}

// parseID reads a positive integer path parameter, writing a 400 when it is malformed
func parseID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, fmt.Sprintf("invalid %s", name))
		return 0, false
	}
	return id, true
}

// parseOptionalDate parses a YYYY-MM-DD (or RFC3339) field; empty yields the zero time
func parseOptionalDate(c *gin.Context, field, value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, true
	}
	t, err := utils.ParseDate(value)
	if err != nil {
		badRequest(c, fmt.Sprintf("invalid %s: %v", field, err))
		return time.Time{}, false
	}
	return t, true
}

// postedBy returns the authenticated subject set by authMiddleware
func postedBy(c *gin.Context) string {
	return c.GetString(ctxKeySubject)
}

// sendWorkbook renders a workbook into memory first so failures still produce a JSON error
func (h *Handlers) sendWorkbook(c *gin.Context, op, filename string, write func(ctx context.Context, buf *bytes.Buffer) error) {
	var buf bytes.Buffer
	if err := write(c.Request.Context(), &buf); err != nil {
		h.respondError(c, op, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
