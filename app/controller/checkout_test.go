package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
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
)

type controllerCheckoutRepo struct {
	createFn                func(ctx context.Context, checkout *entity.Checkout) error
	transitionFn            func(ctx context.Context, checkout *entity.Checkout, from int32) error
	findByIDFn              func(ctx context.Context, id uint64) (*entity.Checkout, error)
	findByCallerRequestIDFn func(ctx context.Context, callerService, requestID string) (*entity.Checkout, error)
	listFn                  func(ctx context.Context, filter repository.CheckoutFilter) ([]*entity.Checkout, error)
}

func (r *controllerCheckoutRepo) Create(ctx context.Context, checkout *entity.Checkout) error {
	if r.createFn != nil {
		return r.createFn(ctx, checkout)
	}
	return nil
}

func (r *controllerCheckoutRepo) Update(context.Context, *entity.Checkout) error {
	return nil
}

func (r *controllerCheckoutRepo) Transition(ctx context.Context, checkout *entity.Checkout, from int32) error {
	if r.transitionFn != nil {
		return r.transitionFn(ctx, checkout, from)
	}
	return nil
}

func (r *controllerCheckoutRepo) FindByID(ctx context.Context, id uint64) (*entity.Checkout, error) {
	if r.findByIDFn != nil {
		return r.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (r *controllerCheckoutRepo) FindByCallerRequestID(ctx context.Context, callerService, requestID string) (*entity.Checkout, error) {
	if r.findByCallerRequestIDFn != nil {
		return r.findByCallerRequestIDFn(ctx, callerService, requestID)
	}
	return nil, nil
}

func (r *controllerCheckoutRepo) List(ctx context.Context, filter repository.CheckoutFilter) ([]*entity.Checkout, error) {
	if r.listFn != nil {
		return r.listFn(ctx, filter)
	}
	return []*entity.Checkout{}, nil
}

func (r *controllerCheckoutRepo) ListDueCallbackDispatch(context.Context, time.Time, int32) ([]*entity.Checkout, error) {
	return []*entity.Checkout{}, nil
}

func (r *controllerCheckoutRepo) ListExpiredPending(context.Context, time.Time, int32) ([]*entity.Checkout, error) {
	return []*entity.Checkout{}, nil
}

func (r *controllerCheckoutRepo) ListForReconcile(context.Context, time.Time, int32) ([]*entity.Checkout, error) {
	return []*entity.Checkout{}, nil
}

type controllerEventRepo struct{}

func (r *controllerEventRepo) Create(context.Context, *entity.CheckoutEvent) error {
	return nil
}

type controllerProvider struct {
	invoiceErr error
}

func (p *controllerProvider) CreateInvoice(_ context.Context, req *provider.InvoiceRequest) (*provider.Invoice, error) {
	if p.invoiceErr != nil {
		return nil, p.invoiceErr
	}
	return &provider.Invoice{PayToken: "tok_abc", Amount: req.Amount}, nil
}

func (p *controllerProvider) InitiatePayment(context.Context, string, decimal.Decimal, provider.Customer) (*provider.Initiation, error) {
	return &provider.Initiation{PaymentURL: "https://pay.example/abc"}, nil
}

func (p *controllerProvider) CheckStatus(context.Context, string) (*provider.StatusSnapshot, error) {
	return &provider.StatusSnapshot{Status: 99}, nil
}

func newControllerForTest(t *testing.T, repo *controllerCheckoutRepo, p *controllerProvider) *CheckoutController {
	t.Helper()
	surfaces := surface.NewMemoryRegistry()
	orch := orchestrator.New(p, surfaces, orchestrator.Config{PollInterval: 50 * time.Millisecond}, nil)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = orch.Shutdown(ctx)
	})

	svc := service.NewCheckoutService(repo, &controllerEventRepo{}, orch, p, surfaces, lock.NewMemoryLocker(), nil, service.Options{
		Checkout:     config.CheckoutConfig{CallbackMaxAttempts: 3},
		ReadyTimeout: 2 * time.Second,
	})
	return NewCheckoutController(svc)
}

func storedCheckoutRepo() *controllerCheckoutRepo {
	stored := map[uint64]*entity.Checkout{}
	return &controllerCheckoutRepo{
		createFn: func(_ context.Context, checkout *entity.Checkout) error {
			checkout.ID = uint64(len(stored) + 1)
			copyItem := *checkout
			stored[checkout.ID] = &copyItem
			return nil
		},
		transitionFn: func(_ context.Context, checkout *entity.Checkout, _ int32) error {
			copyItem := *checkout
			stored[checkout.ID] = &copyItem
			return nil
		},
		findByIDFn: func(_ context.Context, id uint64) (*entity.Checkout, error) {
			item, ok := stored[id]
			if !ok {
				return nil, nil
			}
			copyItem := *item
			return &copyItem, nil
		},
	}
}

const startBody = `{"caller_service":"orders","merchant_order_id":"ORDER_123","amount":"400","items":[{"name":"Full Chicken","quantity":2,"unit_price":"200","total_price":"400"}]}`

func TestStartCheckoutBadBody(t *testing.T) {
	ctrl := newControllerForTest(t, &controllerCheckoutRepo{}, &controllerProvider{})
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/checkouts", bytes.NewBufferString("{"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	if err := ctrl.StartCheckout(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestStartCheckoutEmptyCart(t *testing.T) {
	ctrl := newControllerForTest(t, &controllerCheckoutRepo{}, &controllerProvider{})
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/checkouts", bytes.NewBufferString(`{"caller_service":"orders","items":[]}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(echo.HeaderXRequestID, "req-1")
	rec := httptest.NewRecorder()

	if err := ctrl.StartCheckout(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestStartCheckoutSuccess(t *testing.T) {
	ctrl := newControllerForTest(t, storedCheckoutRepo(), &controllerProvider{})
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/checkouts", bytes.NewBufferString(startBody))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(echo.HeaderXRequestID, "req-1")
	rec := httptest.NewRecorder()

	if err := ctrl.StartCheckout(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp types.CheckoutEnvelopeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if resp.GetCheckout().GetPaymentUrl() != "https://pay.example/abc" {
		t.Fatalf("expected payment url, got %+v", resp.GetCheckout())
	}
	if resp.GetCheckout().GetStatus() != types.CheckoutStatus_CHECKOUT_STATUS_POLLING {
		t.Fatalf("expected polling status, got %v", resp.GetCheckout().GetStatus())
	}
}

func TestStartCheckoutProviderFailure(t *testing.T) {
	ctrl := newControllerForTest(t, storedCheckoutRepo(), &controllerProvider{invoiceErr: errors.New("provider rejected request: Invalid merchant")})
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/checkouts", bytes.NewBufferString(startBody))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(echo.HeaderXRequestID, "req-1")
	rec := httptest.NewRecorder()

	if err := ctrl.StartCheckout(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
}

func TestGetCheckoutNotFound(t *testing.T) {
	ctrl := newControllerForTest(t, &controllerCheckoutRepo{}, &controllerProvider{})
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/checkouts/99", nil)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	ctx.SetParamNames("id")
	ctx.SetParamValues("99")

	if err := ctrl.GetCheckout(ctx); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestListCheckoutsSuccess(t *testing.T) {
	var gotFilter repository.CheckoutFilter
	repo := &controllerCheckoutRepo{
		listFn: func(_ context.Context, filter repository.CheckoutFilter) ([]*entity.Checkout, error) {
			gotFilter = filter
			return []*entity.Checkout{{ID: 1, Status: entity.CheckoutStatusSucceeded}}, nil
		},
	}
	ctrl := newControllerForTest(t, repo, &controllerProvider{})
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/checkouts?caller_service=orders&status=succeeded", nil)
	rec := httptest.NewRecorder()

	if err := ctrl.ListCheckouts(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotFilter.CallerService != "orders" || !gotFilter.HasStatus || gotFilter.Status != entity.CheckoutStatusSucceeded {
		t.Fatalf("unexpected filter: %+v", gotFilter)
	}

	var resp types.ListCheckoutsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if len(resp.GetCheckouts()) != 1 || resp.GetCheckouts()[0].StatusName != "succeeded" {
		t.Fatalf("unexpected list response: %s", rec.Body.String())
	}
}

func TestAbortCheckoutSucceededConflict(t *testing.T) {
	repo := &controllerCheckoutRepo{
		findByIDFn: func(_ context.Context, id uint64) (*entity.Checkout, error) {
			return &entity.Checkout{ID: id, Status: entity.CheckoutStatusSucceeded}, nil
		},
	}
	ctrl := newControllerForTest(t, repo, &controllerProvider{})
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/checkouts/5/abort", nil)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	ctx.SetParamNames("id")
	ctx.SetParamValues("5")

	if err := ctrl.AbortCheckout(ctx); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestReportSurfaceClosedUnknownSurface(t *testing.T) {
	surfaceID := "missing"
	repo := &controllerCheckoutRepo{
		findByIDFn: func(_ context.Context, id uint64) (*entity.Checkout, error) {
			return &entity.Checkout{ID: id, Status: entity.CheckoutStatusPolling, SurfaceID: &surfaceID}, nil
		},
	}
	ctrl := newControllerForTest(t, repo, &controllerProvider{})
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/checkouts/5/surface/closed", nil)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	ctx.SetParamNames("id")
	ctx.SetParamValues("5")

	if err := ctrl.ReportSurfaceClosed(ctx); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
