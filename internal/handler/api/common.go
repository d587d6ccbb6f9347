package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"coachbot/internal/enrollment"
	"coachbot/internal/models"
	"coachbot/internal/repository"
	"coachbot/internal/status"
)

// Notifier sends Telegram messages on behalf of API actions.
// *telegram.BotAPI satisfies it.
type Notifier interface {
	SendMessage(chatID string, text string, replyMarkup interface{}) error
}

func successResponse(c echo.Context, msg string, obj interface{}) error {
	return c.JSON(http.StatusOK, models.APIResponse{
		Status: true,
		Msg:    msg,
		Obj:    obj,
	})
}

func errorResponse(c echo.Context, code int, msg string) error {
	return c.JSON(code, models.APIResponse{
		Status: false,
		Msg:    msg,
		Obj:    nil,
	})
}

// errorStatus maps domain errors to HTTP status codes.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, enrollment.ErrUnknownUser):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, enrollment.ErrNotPending):
		return http.StatusConflict, "Payment is not awaiting approval"
	case errors.Is(err, status.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "Store unavailable"
	default:
		return http.StatusInternalServerError, "Internal error"
	}
}
