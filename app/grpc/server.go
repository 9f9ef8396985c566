package grpc

import (
	"context"
	"errors"

	"github.com/vibast-solutions/ms-go-checkout/app/mapper"
	"github.com/vibast-solutions/ms-go-checkout/app/service"
	"github.com/vibast-solutions/ms-go-checkout/app/types"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type Server struct {
	types.UnimplementedCheckoutServiceServer
	checkoutService *service.CheckoutService
}

func NewServer(checkoutService *service.CheckoutService) *Server {
	return &Server{checkoutService: checkoutService}
}

func (s *Server) Health(_ context.Context, _ *types.HealthRequest) (*types.HealthResponse, error) {
	return &types.HealthResponse{Status: "ok"}, nil
}

func (s *Server) StartCheckout(ctx context.Context, req *types.StartCheckoutRequest) (*types.CheckoutEnvelopeResponse, error) {
	l := loggerWithContext(ctx)
	if req.RequestId == "" {
		req.RequestId = RequestIDFromContext(ctx)
	}
	if err := req.Validate(); err != nil {
		l.WithError(err).Debug("Start checkout validation failed")
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	item, err := s.checkoutService.StartCheckout(ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, service.ErrEmptyCart), errors.Is(err, service.ErrAmountMismatch):
			return nil, status.Error(codes.InvalidArgument, err.Error())
		case errors.Is(err, service.ErrCheckoutAlreadyExists):
			return nil, status.Error(codes.AlreadyExists, err.Error())
		case errors.Is(err, service.ErrCheckoutLocked):
			return nil, status.Error(codes.Aborted, err.Error())
		case errors.Is(err, service.ErrPaymentSetupFailed):
			l.WithError(err).Warn("Checkout payment setup failed")
			return nil, status.Error(codes.FailedPrecondition, err.Error())
		case errors.Is(err, service.ErrUnavailable):
			return nil, status.Error(codes.Unavailable, err.Error())
		default:
			l.WithError(err).Error("Start checkout failed")
			return nil, status.Error(codes.Internal, "internal server error")
		}
	}

	return &types.CheckoutEnvelopeResponse{Checkout: mapper.CheckoutToProto(item)}, nil
}

func (s *Server) GetCheckout(ctx context.Context, req *types.GetCheckoutRequest) (*types.CheckoutEnvelopeResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	item, err := s.checkoutService.GetCheckout(ctx, req.GetId())
	if err != nil {
		if errors.Is(err, service.ErrCheckoutNotFound) {
			return nil, status.Error(codes.NotFound, "checkout not found")
		}
		loggerWithContext(ctx).WithError(err).Error("Get checkout failed")
		return nil, status.Error(codes.Internal, "internal server error")
	}

	return &types.CheckoutEnvelopeResponse{Checkout: mapper.CheckoutToProto(item)}, nil
}

func (s *Server) ListCheckouts(ctx context.Context, req *types.ListCheckoutsRequest) (*types.ListCheckoutsResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	items, err := s.checkoutService.ListCheckouts(ctx, req)
	if err != nil {
		loggerWithContext(ctx).WithError(err).Error("List checkouts failed")
		return nil, status.Error(codes.Internal, "internal server error")
	}

	return &types.ListCheckoutsResponse{Checkouts: mapper.CheckoutsToProto(items)}, nil
}

func (s *Server) AbortCheckout(ctx context.Context, req *types.AbortCheckoutRequest) (*types.CheckoutEnvelopeResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	item, err := s.checkoutService.AbortCheckout(ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCheckoutNotFound):
			return nil, status.Error(codes.NotFound, "checkout not found")
		case errors.Is(err, service.ErrInvalidStatus):
			return nil, status.Error(codes.FailedPrecondition, err.Error())
		default:
			loggerWithContext(ctx).WithError(err).Error("Abort checkout failed")
			return nil, status.Error(codes.Internal, "internal server error")
		}
	}

	return &types.CheckoutEnvelopeResponse{Checkout: mapper.CheckoutToProto(item)}, nil
}

func (s *Server) ReportSurfaceClosed(ctx context.Context, req *types.ReportSurfaceClosedRequest) (*types.CheckoutEnvelopeResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	item, err := s.checkoutService.ReportSurfaceClosed(ctx, req.GetId())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCheckoutNotFound), errors.Is(err, service.ErrSurfaceNotFound):
			return nil, status.Error(codes.NotFound, err.Error())
		default:
			loggerWithContext(ctx).WithError(err).Error("Report surface closed failed")
			return nil, status.Error(codes.Internal, "internal server error")
		}
	}

	return &types.CheckoutEnvelopeResponse{Checkout: mapper.CheckoutToProto(item)}, nil
}
