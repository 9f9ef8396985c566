package controller

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-checkout/app/factory"
	"github.com/vibast-solutions/ms-go-checkout/app/mapper"
	"github.com/vibast-solutions/ms-go-checkout/app/service"
	"github.com/vibast-solutions/ms-go-checkout/app/types"
)

type CheckoutController struct {
	checkoutService *service.CheckoutService
	logger          logrus.FieldLogger
}

func NewCheckoutController(checkoutService *service.CheckoutService) *CheckoutController {
	return &CheckoutController{
		checkoutService: checkoutService,
		logger:          factory.NewModuleLogger("checkout-controller"),
	}
}

func (c *CheckoutController) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, &types.HealthResponse{Status: "ok"})
}

func (c *CheckoutController) StartCheckout(ctx echo.Context) error {
	req, err := types.NewStartCheckoutRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := c.checkoutService.StartCheckout(ctx.Request().Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, service.ErrEmptyCart), errors.Is(err, service.ErrAmountMismatch):
			return c.writeError(ctx, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrCheckoutAlreadyExists), errors.Is(err, service.ErrCheckoutLocked):
			return c.writeError(ctx, http.StatusConflict, err.Error())
		case errors.Is(err, service.ErrPaymentSetupFailed):
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Warn("Checkout payment setup failed")
			return c.writeError(ctx, http.StatusBadGateway, err.Error())
		case errors.Is(err, service.ErrUnavailable):
			return c.writeError(ctx, http.StatusServiceUnavailable, err.Error())
		default:
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Start checkout failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusCreated, &types.CheckoutEnvelopeResponse{Checkout: mapper.CheckoutToProto(item)})
}

func (c *CheckoutController) GetCheckout(ctx echo.Context) error {
	req, err := types.NewGetCheckoutRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := c.checkoutService.GetCheckout(ctx.Request().Context(), req.GetId())
	if err != nil {
		if errors.Is(err, service.ErrCheckoutNotFound) {
			return c.writeError(ctx, http.StatusNotFound, "checkout not found")
		}
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Get checkout failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusOK, &types.CheckoutEnvelopeResponse{Checkout: mapper.CheckoutToProto(item)})
}

func (c *CheckoutController) ListCheckouts(ctx echo.Context) error {
	req, err := types.NewListCheckoutsRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	items, err := c.checkoutService.ListCheckouts(ctx.Request().Context(), req)
	if err != nil {
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("List checkouts failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusOK, &types.ListCheckoutsResponse{Checkouts: mapper.CheckoutsToProto(items)})
}

func (c *CheckoutController) AbortCheckout(ctx echo.Context) error {
	req, err := types.NewAbortCheckoutRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := c.checkoutService.AbortCheckout(ctx.Request().Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCheckoutNotFound):
			return c.writeError(ctx, http.StatusNotFound, "checkout not found")
		case errors.Is(err, service.ErrInvalidStatus):
			return c.writeError(ctx, http.StatusConflict, err.Error())
		default:
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Abort checkout failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusOK, &types.CheckoutEnvelopeResponse{Checkout: mapper.CheckoutToProto(item)})
}

func (c *CheckoutController) ReportSurfaceClosed(ctx echo.Context) error {
	req, err := types.NewReportSurfaceClosedRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := c.checkoutService.ReportSurfaceClosed(ctx.Request().Context(), req.GetId())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCheckoutNotFound):
			return c.writeError(ctx, http.StatusNotFound, "checkout not found")
		case errors.Is(err, service.ErrSurfaceNotFound):
			return c.writeError(ctx, http.StatusNotFound, err.Error())
		default:
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Report surface closed failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusOK, &types.CheckoutEnvelopeResponse{Checkout: mapper.CheckoutToProto(item)})
}

func (c *CheckoutController) writeError(ctx echo.Context, statusCode int, message string) error {
	return ctx.JSON(statusCode, &types.ErrorResponse{Error: message})
}
