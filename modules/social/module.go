package social

import (
	"net/http"
	"time"

	"tripfluence-api/core/audit"
	"tripfluence-api/core/config"
	"tripfluence-api/core/constants"
	"tripfluence-api/core/database"
	"tripfluence-api/core/jobs"
	"tripfluence-api/core/middleware"
	"tripfluence-api/core/secrets"
	"tripfluence-api/core/storage"
	"tripfluence-api/modules/social/controller"
	"tripfluence-api/modules/social/entity"
	"tripfluence-api/modules/social/provider"
	"tripfluence-api/modules/social/repository"
	"tripfluence-api/modules/social/router"
	"tripfluence-api/modules/social/service"

	"github.com/labstack/echo/v4"
)

// buildRegistry wires one adapter instance per provider identifier.
// Facebook and Instagram share a Graph API client.
func buildRegistry(cfg *config.ProvidersConfig) *provider.Registry {
	client := &http.Client{Timeout: 30 * time.Second}

	facebook := provider.NewFacebookAdapter(client)
	registry := provider.NewRegistry()
	registry.Register(entity.ProviderFacebook, facebook)
	registry.Register(entity.ProviderInstagram, provider.NewInstagramAdapter(facebook))
	registry.Register(entity.ProviderGoogleBusiness,
		provider.NewGoogleBusinessAdapter(client, cfg.GoogleClientID, cfg.GoogleClientSecret))
	registry.Register(entity.ProviderEventbrite,
		provider.NewEventbriteAdapter(client, cfg.EventbriteClientID, cfg.EventbriteClientSecret))
	registry.Register(entity.ProviderMeetup,
		provider.NewMeetupAdapter(client, cfg.MeetupClientID, cfg.MeetupClientSecret))

	return registry
}

func Init(
	e *echo.Echo,
	db database.IDatabase,
	cfg *config.Config,
	encryptor *secrets.Encryptor,
	media *storage.Storage,
	jobClient *jobs.Client,
	worker *jobs.Worker,
	auditLog *audit.Logger,
	mw *middleware.Middleware,
) service.PublishServiceInterface {
	registry := buildRegistry(&cfg.Providers)

	repo := repository.NewSocialRepository(db)
	tokens := service.NewTokenService(repo, encryptor, registry)
	publish := service.NewPublishService(repo, tokens, registry, media, jobClient, auditLog)
	ctrl := controller.NewSocialController(publish, tokens)
	rtr := router.NewSocialRouter(ctrl)

	rtr.Setup(e, mw)
	worker.Handle(constants.TaskSocialPublish, publish.HandlePublish)
	worker.Handle(constants.TaskTokenSweep, publish.HandleTokenSweep)

	return publish
}
