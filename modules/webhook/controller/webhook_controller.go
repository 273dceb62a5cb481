package controller

import (
	"tripfluence-api/core/controller"
	"tripfluence-api/core/errors"
	"tripfluence-api/core/middleware"
	"tripfluence-api/modules/webhook/service"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type WebhookController struct {
	controller.BaseController
	endpoints *service.EndpointService
}

func NewWebhookController(endpoints *service.EndpointService) *WebhookController {
	return &WebhookController{
		BaseController: controller.NewBaseController(),
		endpoints:      endpoints,
	}
}

type createEndpointRequest struct {
	URL    string   `json:"url"`
	Events []string `json:"events"`
}

func (ctrl *WebhookController) CreateEndpoint(c echo.Context) error {
	actor, appErr := middleware.ActorFromContext(c)
	if appErr != nil {
		return ctrl.ErrorResponse(c, appErr)
	}

	var req createEndpointRequest
	if err := c.Bind(&req); err != nil {
		return ctrl.BadRequest(errors.ErrInvalidRequestData, "invalid request body")
	}

	endpoint, appErr := ctrl.endpoints.Create(c.Request().Context(), actor, req.URL, req.Events)
	if appErr != nil {
		return ctrl.ErrorResponse(c, appErr)
	}

	return ctrl.CreatedResponse(c, endpoint, "webhook endpoint created")
}

func (ctrl *WebhookController) ListEndpoints(c echo.Context) error {
	actor, appErr := middleware.ActorFromContext(c)
	if appErr != nil {
		return ctrl.ErrorResponse(c, appErr)
	}

	endpoints, appErr := ctrl.endpoints.List(c.Request().Context(), actor)
	if appErr != nil {
		return ctrl.ErrorResponse(c, appErr)
	}

	return ctrl.SuccessResponse(c, endpoints, "webhook endpoints")
}

func (ctrl *WebhookController) DeactivateEndpoint(c echo.Context) error {
	actor, appErr := middleware.ActorFromContext(c)
	if appErr != nil {
		return ctrl.ErrorResponse(c, appErr)
	}

	endpointID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return ctrl.BadRequest(errors.ErrInvalidInput, "invalid endpoint id")
	}

	if appErr := ctrl.endpoints.Deactivate(c.Request().Context(), actor, endpointID); appErr != nil {
		return ctrl.ErrorResponse(c, appErr)
	}

	return ctrl.SuccessResponse(c, nil, "webhook endpoint deactivated")
}

func (ctrl *WebhookController) ListDeliveries(c echo.Context) error {
	actor, appErr := middleware.ActorFromContext(c)
	if appErr != nil {
		return ctrl.ErrorResponse(c, appErr)
	}

	endpointID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return ctrl.BadRequest(errors.ErrInvalidInput, "invalid endpoint id")
	}

	deliveries, appErr := ctrl.endpoints.ListDeliveries(c.Request().Context(), actor, endpointID)
	if appErr != nil {
		return ctrl.ErrorResponse(c, appErr)
	}

	return ctrl.SuccessResponse(c, deliveries, "webhook deliveries")
}
