package request

import (
	"tripfluence-api/core/audit"
	"tripfluence-api/core/cache"
	"tripfluence-api/core/constants"
	"tripfluence-api/core/database"
	"tripfluence-api/core/jobs"
	"tripfluence-api/core/middleware"
	"tripfluence-api/modules/request/controller"
	"tripfluence-api/modules/request/repository"
	"tripfluence-api/modules/request/router"
	"tripfluence-api/modules/request/service"
	spacerepo "tripfluence-api/modules/space/repository"
	webhooksvc "tripfluence-api/modules/webhook/service"

	"github.com/labstack/echo/v4"
)

func Init(
	e *echo.Echo,
	db database.IDatabase,
	cacheClient *cache.Cache,
	jobClient *jobs.Client,
	worker *jobs.Worker,
	auditLog *audit.Logger,
	dispatcher webhooksvc.Dispatcher,
	spaceRepo spacerepo.SpaceRepositoryInterface,
	mw *middleware.Middleware,
) service.RequestServiceInterface {
	repo := repository.NewRequestRepository(db)
	svc := service.NewRequestService(repo, spaceRepo, db, cacheClient, jobClient, auditLog, dispatcher)
	ctrl := controller.NewRequestController(svc)
	rtr := router.NewRequestRouter(ctrl)

	rtr.Setup(e, mw)
	worker.Handle(constants.TaskHoldExpiry, service.HoldExpiryHandler(svc))

	return svc
}
