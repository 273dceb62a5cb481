package controller

import (
	"tripfluence-api/core/controller"
	"tripfluence-api/core/errors"
	"tripfluence-api/core/middleware"
	"tripfluence-api/modules/space/dto"
	"tripfluence-api/modules/space/service"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type SpaceController struct {
	controller.BaseController
	spaceService service.SpaceServiceInterface
}

func NewSpaceController(spaceService service.SpaceServiceInterface) *SpaceController {
	return &SpaceController{
		BaseController: controller.NewBaseController(),
		spaceService:   spaceService,
	}
}

func (ctrl *SpaceController) parseSpaceID(c echo.Context) (uuid.UUID, *echo.HTTPError) {
	spaceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, ctrl.BadRequest(errors.ErrInvalidInput, "invalid space id")
	}
	return spaceID, nil
}

func (ctrl *SpaceController) CreateSpace(c echo.Context) error {
	actor, appErr := middleware.ActorFromContext(c)
	if appErr != nil {
		return ctrl.ErrorResponse(c, appErr)
	}

	var req dto.CreateSpaceRequest
	if err := c.Bind(&req); err != nil {
		return ctrl.BadRequest(errors.ErrInvalidRequestData, "invalid request body")
	}

	space, appErr := ctrl.spaceService.CreateSpace(c.Request().Context(), actor, &req)
	if appErr != nil {
		return ctrl.ErrorResponse(c, appErr)
	}

	return ctrl.CreatedResponse(c, space, "space created")
}

func (ctrl *SpaceController) GetSpace(c echo.Context) error {
	actor, appErr := middleware.ActorFromContext(c)
	if appErr != nil {
		return ctrl.ErrorResponse(c, appErr)
	}

	spaceID, httpErr := ctrl.parseSpaceID(c)
	if httpErr != nil {
		return httpErr
	}

	space, appErr := ctrl.spaceService.GetSpace(c.Request().Context(), actor, spaceID)
	if appErr != nil {
		return ctrl.ErrorResponse(c, appErr)
	}

	return ctrl.SuccessResponse(c, space, "space")
}

func (ctrl *SpaceController) GetMySpaces(c echo.Context) error {
	actor, appErr := middleware.ActorFromContext(c)
	if appErr != nil {
		return ctrl.ErrorResponse(c, appErr)
	}

	spaces, appErr := ctrl.spaceService.GetMySpaces(c.Request().Context(), actor)
	if appErr != nil {
		return ctrl.ErrorResponse(c, appErr)
	}

	return ctrl.SuccessResponse(c, spaces, "spaces")
}

func (ctrl *SpaceController) PublishSpace(c echo.Context) error {
	actor, appErr := middleware.ActorFromContext(c)
	if appErr != nil {
		return ctrl.ErrorResponse(c, appErr)
	}

	spaceID, httpErr := ctrl.parseSpaceID(c)
	if httpErr != nil {
		return httpErr
	}

	space, appErr := ctrl.spaceService.PublishSpace(c.Request().Context(), actor, spaceID)
	if appErr != nil {
		return ctrl.ErrorResponse(c, appErr)
	}

	return ctrl.SuccessResponse(c, space, "space published")
}

func (ctrl *SpaceController) AddPricingRule(c echo.Context) error {
	actor, appErr := middleware.ActorFromContext(c)
	if appErr != nil {
		return ctrl.ErrorResponse(c, appErr)
	}

	spaceID, httpErr := ctrl.parseSpaceID(c)
	if httpErr != nil {
		return httpErr
	}

	var req dto.CreatePricingRuleRequest
	if err := c.Bind(&req); err != nil {
		return ctrl.BadRequest(errors.ErrInvalidRequestData, "invalid request body")
	}

	rule, appErr := ctrl.spaceService.AddPricingRule(c.Request().Context(), actor, spaceID, &req)
	if appErr != nil {
		return ctrl.ErrorResponse(c, appErr)
	}

	return ctrl.CreatedResponse(c, rule, "pricing rule created")
}

func (ctrl *SpaceController) GetPricingRules(c echo.Context) error {
	actor, appErr := middleware.ActorFromContext(c)
	if appErr != nil {
		return ctrl.ErrorResponse(c, appErr)
	}

	spaceID, httpErr := ctrl.parseSpaceID(c)
	if httpErr != nil {
		return httpErr
	}

	rules, appErr := ctrl.spaceService.GetPricingRules(c.Request().Context(), actor, spaceID)
	if appErr != nil {
		return ctrl.ErrorResponse(c, appErr)
	}

	return ctrl.SuccessResponse(c, rules, "pricing rules")
}

// Quote is public: the discovery site previews pricing before a guest
// submits a request.
func (ctrl *SpaceController) Quote(c echo.Context) error {
	spaceID, httpErr := ctrl.parseSpaceID(c)
	if httpErr != nil {
		return httpErr
	}

	var req dto.QuoteRequest
	if err := c.Bind(&req); err != nil {
		return ctrl.BadRequest(errors.ErrInvalidRequestData, "invalid request body")
	}

	result, appErr := ctrl.spaceService.Quote(c.Request().Context(), spaceID, &req)
	if appErr != nil {
		return ctrl.ErrorResponse(c, appErr)
	}

	return ctrl.SuccessResponse(c, result, "quote")
}

func (ctrl *SpaceController) AddBlock(c echo.Context) error {
	actor, appErr := middleware.ActorFromContext(c)
	if appErr != nil {
		return ctrl.ErrorResponse(c, appErr)
	}

	spaceID, httpErr := ctrl.parseSpaceID(c)
	if httpErr != nil {
		return httpErr
	}

	var req dto.CreateBlockRequest
	if err := c.Bind(&req); err != nil {
		return ctrl.BadRequest(errors.ErrInvalidRequestData, "invalid request body")
	}

	block, appErr := ctrl.spaceService.AddBlock(c.Request().Context(), actor, spaceID, &req)
	if appErr != nil {
		return ctrl.ErrorResponse(c, appErr)
	}

	return ctrl.CreatedResponse(c, block, "availability block created")
}

func (ctrl *SpaceController) GetBlocks(c echo.Context) error {
	actor, appErr := middleware.ActorFromContext(c)
	if appErr != nil {
		return ctrl.ErrorResponse(c, appErr)
	}

	spaceID, httpErr := ctrl.parseSpaceID(c)
	if httpErr != nil {
		return httpErr
	}

	blocks, appErr := ctrl.spaceService.GetBlocks(c.Request().Context(), actor, spaceID)
	if appErr != nil {
		return ctrl.ErrorResponse(c, appErr)
	}

	return ctrl.SuccessResponse(c, blocks, "availability blocks")
}
