package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"coachbot/internal/enrollment"
	"coachbot/internal/export"
	"coachbot/internal/models"
)

// UserHandler serves user status, stats and exports.
type UserHandler struct {
	svc    *enrollment.Service
	logger *zap.Logger
	now    func() time.Time
}

func NewUserHandler(svc *enrollment.Service, logger *zap.Logger) *UserHandler {
	return &UserHandler{svc: svc, logger: logger, now: time.Now}
}

type statusResponse struct {
	UserID      string       `json:"user_id"`
	Status      string       `json:"status"`
	ResumeStep  int          `json:"resume_step,omitempty"`
	Course      string       `json:"course"`
	CourseLabel string       `json:"course_label"`
	Violations  []string     `json:"violations,omitempty"`
	User        *models.User `json:"user,omitempty"`
}

// Status resolves the conversation status of one user.
// GET /api/users/:id/status
func (h *UserHandler) Status(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return errorResponse(c, http.StatusBadRequest, "id is required")
	}

	res, user, err := h.svc.Status(c.Request().Context(), id)
	if err != nil {
		h.logger.Error("Status lookup failed", zap.String("user_id", id), zap.Error(err))
		code, msg := errorStatus(err)
		return errorResponse(c, code, msg)
	}

	return successResponse(c, "Successful", statusResponse{
		UserID:      id,
		Status:      string(res.Tag),
		ResumeStep:  res.ResumeStep,
		Course:      string(res.Course),
		CourseLabel: res.CourseLabel,
		Violations:  res.Violations.Names(),
		User:        user,
	})
}

// Stats returns the admin counters.
// GET /api/stats
func (h *UserHandler) Stats(c echo.Context) error {
	st, err := h.svc.Stats(c.Request().Context())
	if err != nil {
		h.logger.Error("Failed to compute stats", zap.Error(err))
		code, msg := errorStatus(err)
		return errorResponse(c, code, msg)
	}
	return successResponse(c, "Successful", st)
}

// Export streams one dataset (users, payments, questionnaire) in the
// given format.
// GET /api/export/users.csv, /api/export/payments.xlsx, ...
func (h *UserHandler) Export(dataset, format string) echo.HandlerFunc {
	return func(c echo.Context) error {
		table, err := export.Build(c.Request().Context(), h.svc, dataset)
		if err != nil {
			h.logger.Error("Failed to load export data", zap.String("dataset", dataset), zap.Error(err))
			code, msg := errorStatus(err)
			return errorResponse(c, code, msg)
		}
		data, err := table.Encode(format)
		if err != nil {
			h.logger.Error("Failed to build export", zap.String("dataset", dataset), zap.String("format", format), zap.Error(err))
			return errorResponse(c, http.StatusInternalServerError, "Failed to build export")
		}
		c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+export.FileName(dataset, format, h.now())+`"`)
		return c.Blob(http.StatusOK, export.ContentType(format), data)
	}
}
