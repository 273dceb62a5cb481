package controller

import (
	"tripfluence-api/core/controller"
	"tripfluence-api/core/errors"
	"tripfluence-api/core/middleware"
	"tripfluence-api/modules/social/dto"
	"tripfluence-api/modules/social/service"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type SocialController struct {
	controller.BaseController
	publishService service.PublishServiceInterface
	tokenService   service.TokenServiceInterface
}

func NewSocialController(publishService service.PublishServiceInterface, tokenService service.TokenServiceInterface) *SocialController {
	return &SocialController{
		BaseController: controller.NewBaseController(),
		publishService: publishService,
		tokenService:   tokenService,
	}
}

func (ctrl *SocialController) parseID(c echo.Context) (uuid.UUID, *echo.HTTPError) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, ctrl.BadRequest(errors.ErrInvalidInput, "invalid id")
	}
	return id, nil
}

func (ctrl *SocialController) ConnectAccount(c echo.Context) error {
	actor, appErr := middleware.ActorFromContext(c)
	if appErr != nil {
		return ctrl.ErrorResponse(c, appErr)
	}

	var req dto.ConnectAccountRequest
	if err := c.Bind(&req); err != nil {
		return ctrl.BadRequest(errors.ErrInvalidRequestData, "invalid request body")
	}

	account, appErr := ctrl.publishService.ConnectAccount(c.Request().Context(), actor, &req)
	if appErr != nil {
		return ctrl.ErrorResponse(c, appErr)
	}

	return ctrl.CreatedResponse(c, account, "account connected")
}

func (ctrl *SocialController) ListAccounts(c echo.Context) error {
	actor, appErr := middleware.ActorFromContext(c)
	if appErr != nil {
		return ctrl.ErrorResponse(c, appErr)
	}

	accounts, appErr := ctrl.publishService.ListAccounts(c.Request().Context(), actor)
	if appErr != nil {
		return ctrl.ErrorResponse(c, appErr)
	}

	return ctrl.SuccessResponse(c, accounts, "accounts")
}

func (ctrl *SocialController) DisconnectAccount(c echo.Context) error {
	actor, appErr := middleware.ActorFromContext(c)
	if appErr != nil {
		return ctrl.ErrorResponse(c, appErr)
	}

	accountID, httpErr := ctrl.parseID(c)
	if httpErr != nil {
		return httpErr
	}

	if appErr := ctrl.publishService.DisconnectAccount(c.Request().Context(), actor, accountID); appErr != nil {
		return ctrl.ErrorResponse(c, appErr)
	}

	return ctrl.SuccessResponse(c, nil, "account disconnected")
}

func (ctrl *SocialController) ValidateAccount(c echo.Context) error {
	actor, appErr := middleware.ActorFromContext(c)
	if appErr != nil {
		return ctrl.ErrorResponse(c, appErr)
	}

	accountID, httpErr := ctrl.parseID(c)
	if httpErr != nil {
		return httpErr
	}

	// Scope check happens through the account list; validation itself
	// only pings the provider.
	accounts, appErr := ctrl.publishService.ListAccounts(c.Request().Context(), actor)
	if appErr != nil {
		return ctrl.ErrorResponse(c, appErr)
	}
	owned := false
	for i := range accounts {
		if accounts[i].ID == accountID {
			owned = true
			break
		}
	}
	if !owned {
		return ctrl.ErrorResponse(c, errors.NewAppError(errors.ErrNotFound, "Account not found", nil))
	}

	healthy := ctrl.tokenService.ValidateAndRefreshToken(c.Request().Context(), accountID)
	return ctrl.SuccessResponse(c, map[string]bool{"healthy": healthy}, "account validated")
}

func (ctrl *SocialController) CreateJob(c echo.Context) error {
	actor, appErr := middleware.ActorFromContext(c)
	if appErr != nil {
		return ctrl.ErrorResponse(c, appErr)
	}

	var req dto.CreatePublishJobRequest
	if err := c.Bind(&req); err != nil {
		return ctrl.BadRequest(errors.ErrInvalidRequestData, "invalid request body")
	}

	job, appErr := ctrl.publishService.CreateJob(c.Request().Context(), actor, &req)
	if appErr != nil {
		return ctrl.ErrorResponse(c, appErr)
	}

	return ctrl.CreatedResponse(c, job, "publish job created")
}

func (ctrl *SocialController) GetJob(c echo.Context) error {
	actor, appErr := middleware.ActorFromContext(c)
	if appErr != nil {
		return ctrl.ErrorResponse(c, appErr)
	}

	jobID, httpErr := ctrl.parseID(c)
	if httpErr != nil {
		return httpErr
	}

	job, appErr := ctrl.publishService.GetJob(c.Request().Context(), actor, jobID)
	if appErr != nil {
		return ctrl.ErrorResponse(c, appErr)
	}

	return ctrl.SuccessResponse(c, job, "publish job")
}

func (ctrl *SocialController) ListJobs(c echo.Context) error {
	actor, appErr := middleware.ActorFromContext(c)
	if appErr != nil {
		return ctrl.ErrorResponse(c, appErr)
	}

	jobsList, appErr := ctrl.publishService.ListJobs(c.Request().Context(), actor)
	if appErr != nil {
		return ctrl.ErrorResponse(c, appErr)
	}

	return ctrl.SuccessResponse(c, jobsList, "publish jobs")
}

func (ctrl *SocialController) RetryJob(c echo.Context) error {
	actor, appErr := middleware.ActorFromContext(c)
	if appErr != nil {
		return ctrl.ErrorResponse(c, appErr)
	}

	jobID, httpErr := ctrl.parseID(c)
	if httpErr != nil {
		return httpErr
	}

	job, appErr := ctrl.publishService.RetryJob(c.Request().Context(), actor, jobID)
	if appErr != nil {
		return ctrl.ErrorResponse(c, appErr)
	}

	return ctrl.CreatedResponse(c, job, "retry job created")
}
