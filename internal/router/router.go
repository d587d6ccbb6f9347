package router

import (
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"coachbot/internal/enrollment"
	"coachbot/internal/export"
	"coachbot/internal/handler/api"
	"coachbot/internal/middleware"
)

// Setup configures all routes for the Echo server.
func Setup(
	e *echo.Echo,
	svc *enrollment.Service,
	notifier api.Notifier,
	logger *zap.Logger,
	apiKey string,
	updateDeduper middleware.UpdateDeduper,
	webhookHandler http.Handler,
	webhookSecret string,
) {
	// Forwarded headers are ignored unless main installed a proxy-aware
	// extractor.
	if e.IPExtractor == nil {
		e.IPExtractor = echo.ExtractIPDirect()
	}

	// Global middleware
	e.Use(echomw.Recover())

	// Handlers
	userHandler := api.NewUserHandler(svc, logger)
	paymentHandler := api.NewPaymentHandler(svc, notifier, logger)

	// API group with CORS + auth + logging middleware
	apiGroup := e.Group("/api")
	apiGroup.Use(middleware.CORS())
	apiGroup.Use(middleware.RequestLogger(logger))
	apiGroup.Use(middleware.APIAuth(apiKey))

	apiGroup.GET("/users/:id/status", userHandler.Status)
	apiGroup.GET("/stats", userHandler.Stats)
	for _, dataset := range []string{export.DatasetUsers, export.DatasetPayments, export.DatasetAnswers} {
		for _, format := range []string{export.FormatCSV, export.FormatXLSX} {
			apiGroup.GET("/export/"+dataset+"."+format, userHandler.Export(dataset, format))
		}
	}
	apiGroup.GET("/payments", paymentHandler.List)
	apiGroup.POST("/payments/:id/approve", paymentHandler.Approve)
	apiGroup.POST("/payments/:id/reject", paymentHandler.Reject)

	// Telegram webhook (protected by IP check + secret token + deduplication)
	if webhookHandler != nil {
		botWebhookGroup := e.Group("/bot")
		botWebhookGroup.Use(middleware.TelegramIPCheck())
		botWebhookGroup.Use(middleware.TelegramSecretToken(webhookSecret))
		botWebhookGroup.Use(middleware.TelegramUpdateDedup(updateDeduper, logger))
		botWebhookGroup.POST("/webhook", echo.WrapHandler(webhookHandler))
	} else {
		logger.Info("Telegram webhook routes disabled (bot update mode is polling)")
	}

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
}

// IPExtractor returns the client address extractor for the server. With no
// trusted proxies the peer address is used as is; otherwise X-Forwarded-For
// is honored only when it was appended by one of the given CIDR ranges.
func IPExtractor(trustedProxies []string) (echo.IPExtractor, error) {
	if len(trustedProxies) == 0 {
		return echo.ExtractIPDirect(), nil
	}
	opts := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, cidr := range trustedProxies {
		cidr = strings.TrimSpace(cidr)
		if !strings.Contains(cidr, "/") {
			if ip := net.ParseIP(cidr); ip != nil && ip.To4() == nil {
				cidr += "/128"
			} else {
				cidr += "/32"
			}
		}
		_, ipNet, err := net.ParseCIDR(cidr)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", cidr, err)
		}
		opts = append(opts, echo.TrustIPRange(ipNet))
	}
	return echo.ExtractIPFromXFFHeader(opts...), nil
}
