package router

import (
	"tripfluence-api/core/middleware"
	"tripfluence-api/modules/space/controller"

	"github.com/labstack/echo/v4"
)

type SpaceRouter struct {
	SpaceController *controller.SpaceController
}

func NewSpaceRouter(spaceController *controller.SpaceController) *SpaceRouter {
	return &SpaceRouter{SpaceController: spaceController}
}

func (r *SpaceRouter) Setup(e *echo.Echo, mw *middleware.Middleware) {
	v1 := e.Group("/api/v1")

	// Public quote preview for the discovery site.
	v1.POST("/spaces/:id/quote", r.SpaceController.Quote)

	spaces := v1.Group("/private/spaces", mw.AuthMiddleware(), mw.RequireBusinessUser())
	spaces.POST("", r.SpaceController.CreateSpace)
	spaces.GET("", r.SpaceController.GetMySpaces)
	spaces.GET("/:id", r.SpaceController.GetSpace)
	spaces.POST("/:id/publish", r.SpaceController.PublishSpace)
	spaces.POST("/:id/pricing-rules", r.SpaceController.AddPricingRule)
	spaces.GET("/:id/pricing-rules", r.SpaceController.GetPricingRules)
	spaces.POST("/:id/blocks", r.SpaceController.AddBlock)
	spaces.GET("/:id/blocks", r.SpaceController.GetBlocks)
}
