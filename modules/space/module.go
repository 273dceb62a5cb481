package space

import (
	"tripfluence-api/core/audit"
	"tripfluence-api/core/database"
	"tripfluence-api/core/middleware"
	"tripfluence-api/modules/space/controller"
	"tripfluence-api/modules/space/repository"
	"tripfluence-api/modules/space/router"
	"tripfluence-api/modules/space/service"
	webhooksvc "tripfluence-api/modules/webhook/service"

	"github.com/labstack/echo/v4"
)

// Init wires the space module and returns the repository and service for
// the request module, which prices and conflict-checks against spaces.
func Init(e *echo.Echo, db database.IDatabase, auditLog *audit.Logger, dispatcher webhooksvc.Dispatcher, mw *middleware.Middleware) (repository.SpaceRepositoryInterface, service.SpaceServiceInterface) {
	repo := repository.NewSpaceRepository(db)
	svc := service.NewSpaceService(repo, db, auditLog, dispatcher)
	ctrl := controller.NewSpaceController(svc)
	rtr := router.NewSpaceRouter(ctrl)

	rtr.Setup(e, mw)
	return repo, svc
}
