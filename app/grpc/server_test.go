package grpc

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-checkout/app/entity"
	"github.com/vibast-solutions/ms-go-checkout/app/lock"
	"github.com/vibast-solutions/ms-go-checkout/app/orchestrator"
	"github.com/vibast-solutions/ms-go-checkout/app/provider"
	"github.com/vibast-solutions/ms-go-checkout/app/repository"
	"github.com/vibast-solutions/ms-go-checkout/app/service"
	"github.com/vibast-solutions/ms-go-checkout/app/surface"
	"github.com/vibast-solutions/ms-go-checkout/app/types"
	"github.com/vibast-solutions/ms-go-checkout/config"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

type grpcCheckoutRepo struct {
	createFn     func(ctx context.Context, checkout *entity.Checkout) error
	transitionFn func(ctx context.Context, checkout *entity.Checkout, from int32) error
	findByIDFn   func(ctx context.Context, id uint64) (*entity.Checkout, error)
	listFn       func(ctx context.Context, filter repository.CheckoutFilter) ([]*entity.Checkout, error)
}

func (r *grpcCheckoutRepo) Create(ctx context.Context, checkout *entity.Checkout) error {
	if r.createFn != nil {
		return r.createFn(ctx, checkout)
	}
	return nil
}

func (r *grpcCheckoutRepo) Update(context.Context, *entity.Checkout) error {
	return nil
}

func (r *grpcCheckoutRepo) Transition(ctx context.Context, checkout *entity.Checkout, from int32) error {
	if r.transitionFn != nil {
		return r.transitionFn(ctx, checkout, from)
	}
	return nil
}

func (r *grpcCheckoutRepo) FindByID(ctx context.Context, id uint64) (*entity.Checkout, error) {
	if r.findByIDFn != nil {
		return r.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (r *grpcCheckoutRepo) FindByCallerRequestID(context.Context, string, string) (*entity.Checkout, error) {
	return nil, nil
}

func (r *grpcCheckoutRepo) List(ctx context.Context, filter repository.CheckoutFilter) ([]*entity.Checkout, error) {
	if r.listFn != nil {
		return r.listFn(ctx, filter)
	}
	return []*entity.Checkout{}, nil
}

func (r *grpcCheckoutRepo) ListDueCallbackDispatch(context.Context, time.Time, int32) ([]*entity.Checkout, error) {
	return []*entity.Checkout{}, nil
}

func (r *grpcCheckoutRepo) ListExpiredPending(context.Context, time.Time, int32) ([]*entity.Checkout, error) {
	return []*entity.Checkout{}, nil
}

func (r *grpcCheckoutRepo) ListForReconcile(context.Context, time.Time, int32) ([]*entity.Checkout, error) {
	return []*entity.Checkout{}, nil
}

type grpcEventRepo struct{}

func (r *grpcEventRepo) Create(context.Context, *entity.CheckoutEvent) error {
	return nil
}

type grpcProvider struct{}

func (p *grpcProvider) CreateInvoice(_ context.Context, req *provider.InvoiceRequest) (*provider.Invoice, error) {
	return &provider.Invoice{PayToken: "tok_abc", Amount: req.Amount}, nil
}

func (p *grpcProvider) InitiatePayment(context.Context, string, decimal.Decimal, provider.Customer) (*provider.Initiation, error) {
	return &provider.Initiation{PaymentURL: "https://pay.example/abc"}, nil
}

func (p *grpcProvider) CheckStatus(context.Context, string) (*provider.StatusSnapshot, error) {
	return &provider.StatusSnapshot{Status: 99}, nil
}

func newGRPCServerForTest(t *testing.T, repo *grpcCheckoutRepo) *Server {
	t.Helper()
	p := &grpcProvider{}
	surfaces := surface.NewMemoryRegistry()
	orch := orchestrator.New(p, surfaces, orchestrator.Config{PollInterval: 50 * time.Millisecond}, nil)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = orch.Shutdown(ctx)
	})

	checkoutService := service.NewCheckoutService(repo, &grpcEventRepo{}, orch, p, surfaces, lock.NewMemoryLocker(), nil, service.Options{
		Checkout:     config.CheckoutConfig{CallbackMaxAttempts: 3, CallbackRetryInterval: time.Minute, JobBatchSize: 100},
		ReadyTimeout: 2 * time.Second,
		AppAPIKey:    "checkout-app-key",
	})
	return NewServer(checkoutService)
}

func TestStartCheckoutInvalidArgument(t *testing.T) {
	srv := newGRPCServerForTest(t, &grpcCheckoutRepo{})

	_, err := srv.StartCheckout(context.Background(), &types.StartCheckoutRequest{})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
}

func TestStartCheckoutEmptyCart(t *testing.T) {
	srv := newGRPCServerForTest(t, &grpcCheckoutRepo{})

	_, err := srv.StartCheckout(context.Background(), &types.StartCheckoutRequest{RequestId: "req-1", CallerService: "orders"})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument for empty cart, got %v", err)
	}
}

func TestGetCheckoutNotFound(t *testing.T) {
	srv := newGRPCServerForTest(t, &grpcCheckoutRepo{})

	_, err := srv.GetCheckout(context.Background(), &types.GetCheckoutRequest{Id: 9})
	if status.Code(err) != codes.NotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestAbortCheckoutSucceededFailedPrecondition(t *testing.T) {
	repo := &grpcCheckoutRepo{findByIDFn: func(_ context.Context, id uint64) (*entity.Checkout, error) {
		return &entity.Checkout{ID: id, Status: entity.CheckoutStatusSucceeded}, nil
	}}
	srv := newGRPCServerForTest(t, repo)

	_, err := srv.AbortCheckout(context.Background(), &types.AbortCheckoutRequest{Id: 9})
	if status.Code(err) != codes.FailedPrecondition {
		t.Fatalf("expected FailedPrecondition, got %v", err)
	}
}

func TestListCheckoutsSuccess(t *testing.T) {
	repo := &grpcCheckoutRepo{listFn: func(context.Context, repository.CheckoutFilter) ([]*entity.Checkout, error) {
		return []*entity.Checkout{{
			ID:              5,
			RequestID:       "req-1",
			CallerService:   "orders",
			MerchantOrderID: "ORDER_5",
			Amount:          decimal.RequireFromString("400"),
			Status:          entity.CheckoutStatusPolling,
			Metadata:        map[string]string{},
			CreatedAt:       time.Now().UTC(),
			UpdatedAt:       time.Now().UTC(),
		}}, nil
	}}
	srv := newGRPCServerForTest(t, repo)

	resp, err := srv.ListCheckouts(context.Background(), &types.ListCheckoutsRequest{Limit: 10})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(resp.GetCheckouts()) != 1 || resp.GetCheckouts()[0].GetId() != 5 {
		t.Fatalf("unexpected checkouts response: %+v", resp)
	}
}

func TestCheckoutServiceOverJSONCodec(t *testing.T) {
	var mu sync.Mutex
	stored := map[uint64]*entity.Checkout{}
	repo := &grpcCheckoutRepo{
		createFn: func(_ context.Context, checkout *entity.Checkout) error {
			mu.Lock()
			defer mu.Unlock()
			checkout.ID = 42
			copyItem := *checkout
			stored[checkout.ID] = &copyItem
			return nil
		},
		transitionFn: func(_ context.Context, checkout *entity.Checkout, _ int32) error {
			mu.Lock()
			defer mu.Unlock()
			copyItem := *checkout
			stored[checkout.ID] = &copyItem
			return nil
		},
		findByIDFn: func(_ context.Context, id uint64) (*entity.Checkout, error) {
			mu.Lock()
			defer mu.Unlock()
			item, ok := stored[id]
			if !ok {
				return nil, nil
			}
			copyItem := *item
			return &copyItem, nil
		},
	}

	listener := bufconn.Listen(1 << 20)
	grpcSrv := grpc.NewServer(grpc.ChainUnaryInterceptor(RecoveryInterceptor(), RequestIDInterceptor(), LoggingInterceptor()))
	types.RegisterCheckoutServiceServer(grpcSrv, newGRPCServerForTest(t, repo))
	go func() { _ = grpcSrv.Serve(listener) }()
	t.Cleanup(grpcSrv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return listener.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	client := types.NewCheckoutServiceClient(conn)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Health(ctx, &types.HealthRequest{}); status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected missing request id to be rejected, got %v", err)
	}

	ctx = metadata.AppendToOutgoingContext(ctx, requestIDHeader, "grpc-req-1")
	resp, err := client.StartCheckout(ctx, &types.StartCheckoutRequest{
		CallerService: "orders",
		Items: []*types.LineItem{{
			Name:      "Full Chicken",
			Quantity:  2,
			UnitPrice: decimal.RequireFromString("200"),
		}},
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	checkout := resp.GetCheckout()
	if checkout.GetId() != 42 || checkout.RequestId != "grpc-req-1" {
		t.Fatalf("expected request id from metadata, got %+v", checkout)
	}
	if checkout.GetPaymentUrl() != "https://pay.example/abc" {
		t.Fatalf("expected payment url, got %q", checkout.GetPaymentUrl())
	}
	if !checkout.Amount.Equal(decimal.RequireFromString("400")) {
		t.Fatalf("expected amount 400, got %s", checkout.Amount)
	}
}
