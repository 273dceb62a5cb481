package controller

import (
	"tripfluence-api/core/controller"
	"tripfluence-api/core/errors"
	"tripfluence-api/core/middleware"
	"tripfluence-api/core/params"
	"tripfluence-api/modules/request/dto"
	"tripfluence-api/modules/request/service"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type RequestController struct {
	controller.BaseController
	requestService service.RequestServiceInterface
}

func NewRequestController(requestService service.RequestServiceInterface) *RequestController {
	return &RequestController{
		BaseController: controller.NewBaseController(),
		requestService: requestService,
	}
}

func (ctrl *RequestController) parseRequestID(c echo.Context) (uuid.UUID, *echo.HTTPError) {
	requestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, ctrl.BadRequest(errors.ErrInvalidInput, "invalid request id")
	}
	return requestID, nil
}

func (ctrl *RequestController) CreateRequest(c echo.Context) error {
	actor, appErr := middleware.ActorFromContext(c)
	if appErr != nil {
		return ctrl.ErrorResponse(c, appErr)
	}

	var req dto.CreateRequestRequest
	if err := c.Bind(&req); err != nil {
		return ctrl.BadRequest(errors.ErrInvalidRequestData, "invalid request body")
	}

	request, appErr := ctrl.requestService.Create(c.Request().Context(), actor, &req)
	if appErr != nil {
		return ctrl.ErrorResponse(c, appErr)
	}

	return ctrl.CreatedResponse(c, request, "request created")
}

func (ctrl *RequestController) GetRequest(c echo.Context) error {
	actor, appErr := middleware.ActorFromContext(c)
	if appErr != nil {
		return ctrl.ErrorResponse(c, appErr)
	}

	requestID, httpErr := ctrl.parseRequestID(c)
	if httpErr != nil {
		return httpErr
	}

	request, appErr := ctrl.requestService.GetByID(c.Request().Context(), actor, requestID)
	if appErr != nil {
		return ctrl.ErrorResponse(c, appErr)
	}

	return ctrl.SuccessResponse(c, request, "request")
}

func (ctrl *RequestController) GetSpaceRequests(c echo.Context) error {
	actor, appErr := middleware.ActorFromContext(c)
	if appErr != nil {
		return ctrl.ErrorResponse(c, appErr)
	}

	spaceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return ctrl.BadRequest(errors.ErrInvalidInput, "invalid space id")
	}

	requests, appErr := ctrl.requestService.GetBySpace(c.Request().Context(), actor, spaceID, params.NewQueryParams(c))
	if appErr != nil {
		return ctrl.ErrorResponse(c, appErr)
	}

	return ctrl.SuccessResponse(c, requests, "requests")
}

func (ctrl *RequestController) ApproveRequest(c echo.Context) error {
	actor, appErr := middleware.ActorFromContext(c)
	if appErr != nil {
		return ctrl.ErrorResponse(c, appErr)
	}

	requestID, httpErr := ctrl.parseRequestID(c)
	if httpErr != nil {
		return httpErr
	}

	request, appErr := ctrl.requestService.Approve(c.Request().Context(), actor, requestID)
	if appErr != nil {
		return ctrl.ErrorResponse(c, appErr)
	}

	return ctrl.SuccessResponse(c, request, "request approved")
}

// ConfirmPayment stands in for the payment provider callback. It is
// mounted on the private group so it still requires an authenticated
// caller, but any actor who can see the request may drive it.
func (ctrl *RequestController) ConfirmPayment(c echo.Context) error {
	actor, appErr := middleware.ActorFromContext(c)
	if appErr != nil {
		return ctrl.ErrorResponse(c, appErr)
	}

	requestID, httpErr := ctrl.parseRequestID(c)
	if httpErr != nil {
		return httpErr
	}

	if _, appErr := ctrl.requestService.GetByID(c.Request().Context(), actor, requestID); appErr != nil {
		return ctrl.ErrorResponse(c, appErr)
	}

	request, appErr := ctrl.requestService.ConfirmPayment(c.Request().Context(), requestID)
	if appErr != nil {
		return ctrl.ErrorResponse(c, appErr)
	}

	return ctrl.SuccessResponse(c, request, "payment confirmed")
}

func (ctrl *RequestController) CancelRequest(c echo.Context) error {
	actor, appErr := middleware.ActorFromContext(c)
	if appErr != nil {
		return ctrl.ErrorResponse(c, appErr)
	}

	requestID, httpErr := ctrl.parseRequestID(c)
	if httpErr != nil {
		return httpErr
	}

	var req dto.CancelRequestRequest
	if err := c.Bind(&req); err != nil {
		return ctrl.BadRequest(errors.ErrInvalidRequestData, "invalid request body")
	}

	request, appErr := ctrl.requestService.Cancel(c.Request().Context(), actor, requestID, req.Reason)
	if appErr != nil {
		return ctrl.ErrorResponse(c, appErr)
	}

	return ctrl.SuccessResponse(c, request, "request cancelled")
}

func (ctrl *RequestController) AddMessage(c echo.Context) error {
	actor, appErr := middleware.ActorFromContext(c)
	if appErr != nil {
		return ctrl.ErrorResponse(c, appErr)
	}

	requestID, httpErr := ctrl.parseRequestID(c)
	if httpErr != nil {
		return httpErr
	}

	var req dto.AddMessageRequest
	if err := c.Bind(&req); err != nil {
		return ctrl.BadRequest(errors.ErrInvalidRequestData, "invalid request body")
	}

	message, appErr := ctrl.requestService.AddMessage(c.Request().Context(), actor, requestID, req.Body)
	if appErr != nil {
		return ctrl.ErrorResponse(c, appErr)
	}

	return ctrl.CreatedResponse(c, message, "message added")
}

func (ctrl *RequestController) GetMessages(c echo.Context) error {
	actor, appErr := middleware.ActorFromContext(c)
	if appErr != nil {
		return ctrl.ErrorResponse(c, appErr)
	}

	requestID, httpErr := ctrl.parseRequestID(c)
	if httpErr != nil {
		return httpErr
	}

	messages, appErr := ctrl.requestService.GetMessages(c.Request().Context(), actor, requestID)
	if appErr != nil {
		return ctrl.ErrorResponse(c, appErr)
	}

	return ctrl.SuccessResponse(c, messages, "messages")
}
