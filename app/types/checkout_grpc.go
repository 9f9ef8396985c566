package types

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	CheckoutService_Health_FullMethodName              = "/checkout.CheckoutService/Health"
	CheckoutService_StartCheckout_FullMethodName       = "/checkout.CheckoutService/StartCheckout"
	CheckoutService_GetCheckout_FullMethodName         = "/checkout.CheckoutService/GetCheckout"
	CheckoutService_ListCheckouts_FullMethodName       = "/checkout.CheckoutService/ListCheckouts"
	CheckoutService_AbortCheckout_FullMethodName       = "/checkout.CheckoutService/AbortCheckout"
	CheckoutService_ReportSurfaceClosed_FullMethodName = "/checkout.CheckoutService/ReportSurfaceClosed"
)

type CheckoutServiceClient interface {
	Health(ctx context.Context, in *HealthRequest, opts ...grpc.CallOption) (*HealthResponse, error)
	StartCheckout(ctx context.Context, in *StartCheckoutRequest, opts ...grpc.CallOption) (*CheckoutEnvelopeResponse, error)
	GetCheckout(ctx context.Context, in *GetCheckoutRequest, opts ...grpc.CallOption) (*CheckoutEnvelopeResponse, error)
	ListCheckouts(ctx context.Context, in *ListCheckoutsRequest, opts ...grpc.CallOption) (*ListCheckoutsResponse, error)
	AbortCheckout(ctx context.Context, in *AbortCheckoutRequest, opts ...grpc.CallOption) (*CheckoutEnvelopeResponse, error)
	ReportSurfaceClosed(ctx context.Context, in *ReportSurfaceClosedRequest, opts ...grpc.CallOption) (*CheckoutEnvelopeResponse, error)
}

type checkoutServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewCheckoutServiceClient returns a client that always speaks the json
// content subtype.
func NewCheckoutServiceClient(cc grpc.ClientConnInterface) CheckoutServiceClient {
	return &checkoutServiceClient{cc}
}

func (c *checkoutServiceClient) invoke(ctx context.Context, method string, in, out interface{}, opts []grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	return c.cc.Invoke(ctx, method, in, out, opts...)
}

func (c *checkoutServiceClient) Health(ctx context.Context, in *HealthRequest, opts ...grpc.CallOption) (*HealthResponse, error) {
	out := new(HealthResponse)
	if err := c.invoke(ctx, CheckoutService_Health_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *checkoutServiceClient) StartCheckout(ctx context.Context, in *StartCheckoutRequest, opts ...grpc.CallOption) (*CheckoutEnvelopeResponse, error) {
	out := new(CheckoutEnvelopeResponse)
	if err := c.invoke(ctx, CheckoutService_StartCheckout_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *checkoutServiceClient) GetCheckout(ctx context.Context, in *GetCheckoutRequest, opts ...grpc.CallOption) (*CheckoutEnvelopeResponse, error) {
	out := new(CheckoutEnvelopeResponse)
	if err := c.invoke(ctx, CheckoutService_GetCheckout_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *checkoutServiceClient) ListCheckouts(ctx context.Context, in *ListCheckoutsRequest, opts ...grpc.CallOption) (*ListCheckoutsResponse, error) {
	out := new(ListCheckoutsResponse)
	if err := c.invoke(ctx, CheckoutService_ListCheckouts_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *checkoutServiceClient) AbortCheckout(ctx context.Context, in *AbortCheckoutRequest, opts ...grpc.CallOption) (*CheckoutEnvelopeResponse, error) {
	out := new(CheckoutEnvelopeResponse)
	if err := c.invoke(ctx, CheckoutService_AbortCheckout_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *checkoutServiceClient) ReportSurfaceClosed(ctx context.Context, in *ReportSurfaceClosedRequest, opts ...grpc.CallOption) (*CheckoutEnvelopeResponse, error) {
	out := new(CheckoutEnvelopeResponse)
	if err := c.invoke(ctx, CheckoutService_ReportSurfaceClosed_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

type CheckoutServiceServer interface {
	Health(context.Context, *HealthRequest) (*HealthResponse, error)
	StartCheckout(context.Context, *StartCheckoutRequest) (*CheckoutEnvelopeResponse, error)
	GetCheckout(context.Context, *GetCheckoutRequest) (*CheckoutEnvelopeResponse, error)
	ListCheckouts(context.Context, *ListCheckoutsRequest) (*ListCheckoutsResponse, error)
	AbortCheckout(context.Context, *AbortCheckoutRequest) (*CheckoutEnvelopeResponse, error)
	ReportSurfaceClosed(context.Context, *ReportSurfaceClosedRequest) (*CheckoutEnvelopeResponse, error)
}

// UnimplementedCheckoutServiceServer should be embedded by servers that only
// implement part of the service.
type UnimplementedCheckoutServiceServer struct{}

func (UnimplementedCheckoutServiceServer) Health(context.Context, *HealthRequest) (*HealthResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Health not implemented")
}

func (UnimplementedCheckoutServiceServer) StartCheckout(context.Context, *StartCheckoutRequest) (*CheckoutEnvelopeResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method StartCheckout not implemented")
}

func (UnimplementedCheckoutServiceServer) GetCheckout(context.Context, *GetCheckoutRequest) (*CheckoutEnvelopeResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetCheckout not implemented")
}

func (UnimplementedCheckoutServiceServer) ListCheckouts(context.Context, *ListCheckoutsRequest) (*ListCheckoutsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListCheckouts not implemented")
}

func (UnimplementedCheckoutServiceServer) AbortCheckout(context.Context, *AbortCheckoutRequest) (*CheckoutEnvelopeResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method AbortCheckout not implemented")
}

func (UnimplementedCheckoutServiceServer) ReportSurfaceClosed(context.Context, *ReportSurfaceClosedRequest) (*CheckoutEnvelopeResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ReportSurfaceClosed not implemented")
}

func RegisterCheckoutServiceServer(s grpc.ServiceRegistrar, srv CheckoutServiceServer) {
	s.RegisterService(&CheckoutService_ServiceDesc, srv)
}

// unaryHandler adapts a typed method to grpc.MethodDesc.
func unaryHandler[Req any, Resp any](fullMethod string, call func(CheckoutServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(CheckoutServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(CheckoutServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var CheckoutService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "checkout.CheckoutService",
	HandlerType: (*CheckoutServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Health",
			Handler:    unaryHandler(CheckoutService_Health_FullMethodName, CheckoutServiceServer.Health),
		},
		{
			MethodName: "StartCheckout",
			Handler:    unaryHandler(CheckoutService_StartCheckout_FullMethodName, CheckoutServiceServer.StartCheckout),
		},
		{
			MethodName: "GetCheckout",
			Handler:    unaryHandler(CheckoutService_GetCheckout_FullMethodName, CheckoutServiceServer.GetCheckout),
		},
		{
			MethodName: "ListCheckouts",
			Handler:    unaryHandler(CheckoutService_ListCheckouts_FullMethodName, CheckoutServiceServer.ListCheckouts),
		},
		{
			MethodName: "AbortCheckout",
			Handler:    unaryHandler(CheckoutService_AbortCheckout_FullMethodName, CheckoutServiceServer.AbortCheckout),
		},
		{
			MethodName: "ReportSurfaceClosed",
			Handler:    unaryHandler(CheckoutService_ReportSurfaceClosed_FullMethodName, CheckoutServiceServer.ReportSurfaceClosed),
		},
	},
	Streams: []grpc.StreamDesc{},
}
