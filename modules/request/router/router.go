package router

import (
	"tripfluence-api/core/middleware"
	"tripfluence-api/modules/request/controller"

	"github.com/labstack/echo/v4"
)

type RequestRouter struct {
	RequestController *controller.RequestController
}

func NewRequestRouter(requestController *controller.RequestController) *RequestRouter {
	return &RequestRouter{RequestController: requestController}
}

func (r *RequestRouter) Setup(e *echo.Echo, mw *middleware.Middleware) {
	v1 := e.Group("/api/v1")

	requests := v1.Group("/private/requests", mw.AuthMiddleware())
	requests.POST("", r.RequestController.CreateRequest)
	requests.GET("/:id", r.RequestController.GetRequest)
	requests.POST("/:id/cancel", r.RequestController.CancelRequest)
	requests.POST("/:id/confirm-payment", r.RequestController.ConfirmPayment)
	requests.POST("/:id/messages", r.RequestController.AddMessage)
	requests.GET("/:id/messages", r.RequestController.GetMessages)

	// Business-side operations on requests for a space.
	business := v1.Group("/private/requests", mw.AuthMiddleware(), mw.RequireBusinessUser())
	business.POST("/:id/approve", r.RequestController.ApproveRequest)

	spaces := v1.Group("/private/spaces", mw.AuthMiddleware(), mw.RequireBusinessUser())
	spaces.GET("/:id/requests", r.RequestController.GetSpaceRequests)
}
