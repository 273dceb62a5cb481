package router

import (
	"tripfluence-api/core/middleware"
	"tripfluence-api/modules/social/controller"

	"github.com/labstack/echo/v4"
)

type SocialRouter struct {
	SocialController *controller.SocialController
}

func NewSocialRouter(socialController *controller.SocialController) *SocialRouter {
	return &SocialRouter{SocialController: socialController}
}

func (r *SocialRouter) Setup(e *echo.Echo, mw *middleware.Middleware) {
	v1 := e.Group("/api/v1")

	social := v1.Group("/private/social", mw.AuthMiddleware(), mw.RequireBusinessUser())
	social.POST("/accounts", r.SocialController.ConnectAccount)
	social.GET("/accounts", r.SocialController.ListAccounts)
	social.POST("/accounts/:id/disconnect", r.SocialController.DisconnectAccount)
	social.POST("/accounts/:id/validate", r.SocialController.ValidateAccount)
	social.POST("/jobs", r.SocialController.CreateJob)
	social.GET("/jobs", r.SocialController.ListJobs)
	social.GET("/jobs/:id", r.SocialController.GetJob)
	social.POST("/jobs/:id/retry", r.SocialController.RetryJob)
}
