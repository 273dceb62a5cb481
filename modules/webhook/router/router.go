package router

import (
	"tripfluence-api/core/middleware"
	"tripfluence-api/modules/webhook/controller"

	"github.com/labstack/echo/v4"
)

type WebhookRouter struct {
	WebhookController *controller.WebhookController
}

func NewWebhookRouter(webhookController *controller.WebhookController) *WebhookRouter {
	return &WebhookRouter{WebhookController: webhookController}
}

func (r *WebhookRouter) Setup(e *echo.Echo, mw *middleware.Middleware) {
	v1 := e.Group("/api/v1")

	endpoints := v1.Group("/private/webhooks", mw.AuthMiddleware(), mw.RequireBusinessUser())
	endpoints.POST("", r.WebhookController.CreateEndpoint)
	endpoints.GET("", r.WebhookController.ListEndpoints)
	endpoints.DELETE("/:id", r.WebhookController.DeactivateEndpoint)
	endpoints.GET("/:id/deliveries", r.WebhookController.ListDeliveries)
}
