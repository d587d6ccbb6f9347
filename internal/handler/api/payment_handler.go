package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"coachbot/internal/enrollment"
	"coachbot/internal/models"
)

// apiReviewer is recorded as the reviewer of payments decided over HTTP.
const apiReviewer = "api"

// PaymentHandler lists and reviews payments.
type PaymentHandler struct {
	svc      *enrollment.Service
	notifier Notifier
	logger   *zap.Logger
}

func NewPaymentHandler(svc *enrollment.Service, notifier Notifier, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{svc: svc, notifier: notifier, logger: logger}
}

// List returns payments filtered by the optional status query.
// GET /api/payments?status=pending_approval
func (h *PaymentHandler) List(c echo.Context) error {
	filter := strings.TrimSpace(c.QueryParam("status"))
	switch filter {
	case "", models.PaymentPending, models.PaymentApproved, models.PaymentRejected:
	default:
		return errorResponse(c, http.StatusBadRequest, "Unknown status: "+filter)
	}

	payments, err := h.svc.Payments(c.Request().Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list payments", zap.Error(err))
		return errorResponse(c, http.StatusInternalServerError, "Failed to retrieve payments")
	}
	if payments == nil {
		payments = []models.Payment{}
	}
	return successResponse(c, "Successful", map[string]interface{}{
		"payments": payments,
		"total":    len(payments),
	})
}

// Approve accepts a pending payment.
// POST /api/payments/:id/approve
func (h *PaymentHandler) Approve(c echo.Context) error {
	p, user, err := h.svc.Approve(c.Request().Context(), c.Param("id"), apiReviewer)
	if err != nil {
		code, msg := errorStatus(err)
		return errorResponse(c, code, msg)
	}

	keyboard := map[string]interface{}{
		"inline_keyboard": [][]map[string]string{
			{{"text": "📝 شروع پرسشنامه", "callback_data": "continue_questionnaire"}},
		},
	}
	h.notify(user.ID, "✅ پرداخت شما تایید شد!\n\nبرای شخصی‌سازی برنامه تمرینتان، پرسشنامه را شروع کنید.", keyboard)
	return successResponse(c, "Payment approved", p)
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

// Reject declines a pending payment. The body may carry a reason.
// POST /api/payments/:id/reject
func (h *PaymentHandler) Reject(c echo.Context) error {
	var req rejectRequest
	if c.Request().ContentLength > 0 {
		if err := c.Bind(&req); err != nil {
			return errorResponse(c, http.StatusBadRequest, "Invalid request body")
		}
	}

	p, user, err := h.svc.Reject(c.Request().Context(), c.Param("id"), apiReviewer, strings.TrimSpace(req.Reason))
	if err != nil {
		code, msg := errorStatus(err)
		return errorResponse(c, code, msg)
	}

	text := "❌ متاسفانه پرداخت شما تایید نشد. لطفاً با پشتیبانی تماس بگیرید."
	if p.Reason != "" {
		text += "\n\nدلیل: " + p.Reason
	}
	h.notify(user.ID, text, nil)
	return successResponse(c, "Payment rejected", p)
}

func (h *PaymentHandler) notify(chatID, text string, markup interface{}) {
	if h.notifier == nil {
		return
	}
	if err := h.notifier.SendMessage(chatID, text, markup); err != nil {
		h.logger.Warn("Failed to notify user", zap.String("user_id", chatID), zap.Error(err))
	}
}
