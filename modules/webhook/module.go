package webhook

import (
	"tripfluence-api/core/constants"
	"tripfluence-api/core/database"
	"tripfluence-api/core/jobs"
	"tripfluence-api/core/middleware"
	"tripfluence-api/modules/webhook/controller"
	"tripfluence-api/modules/webhook/repository"
	"tripfluence-api/modules/webhook/router"
	"tripfluence-api/modules/webhook/service"

	"github.com/labstack/echo/v4"
)

// Init wires the webhook module and returns the dispatcher other modules
// emit domain events through.
func Init(e *echo.Echo, db database.IDatabase, jobClient *jobs.Client, worker *jobs.Worker, signingSecret string, mw *middleware.Middleware) *service.WebhookDispatcher {
	repo := repository.NewWebhookRepository(db)
	dispatcher := service.NewWebhookDispatcher(repo, jobClient, signingSecret)
	endpoints := service.NewEndpointService(repo)
	ctrl := controller.NewWebhookController(endpoints)
	rtr := router.NewWebhookRouter(ctrl)

	rtr.Setup(e, mw)
	worker.Handle(constants.TaskWebhookDeliver, dispatcher.HandleDeliver)

	return dispatcher
}
