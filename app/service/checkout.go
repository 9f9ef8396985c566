package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-checkout/app/entity"
	"github.com/vibast-solutions/ms-go-checkout/app/events"
	"github.com/vibast-solutions/ms-go-checkout/app/factory"
	"github.com/vibast-solutions/ms-go-checkout/app/lock"
	"github.com/vibast-solutions/ms-go-checkout/app/metrics"
	"github.com/vibast-solutions/ms-go-checkout/app/orchestrator"
	"github.com/vibast-solutions/ms-go-checkout/app/provider"
	"github.com/vibast-solutions/ms-go-checkout/app/repository"
	"github.com/vibast-solutions/ms-go-checkout/app/surface"
	"github.com/vibast-solutions/ms-go-checkout/app/types"
	"github.com/vibast-solutions/ms-go-checkout/config"
)

const (
	defaultListLimit    = int32(100)
	defaultBatchSize    = int32(100)
	defaultReadyTimeout = 30 * time.Second
	persistTimeout      = 10 * time.Second
	persistAttempts     = 3
	persistRetryDelay   = 100 * time.Millisecond
	sessionSettleWait   = 5 * time.Second
	defaultSessionTTL   = 10 * time.Minute
)

type startCheckoutRequest interface {
	GetRequestId() string
	GetCallerService() string
	GetMerchantOrderId() string
	GetItems() []*types.LineItem
	GetAmount() decimal.Decimal
	GetDescription() string
	GetCustomerName() string
	GetCustomerEmail() string
	GetCustomerPhone() string
	GetStatusCallbackUrl() string
	GetMetadata() map[string]string
}

type listCheckoutsRequest interface {
	GetRequestId() string
	GetCallerService() string
	GetMerchantOrderId() string
	GetHasStatus() bool
	GetStatus() types.CheckoutStatus
	GetLimit() int32
	GetOffset() int32
}

type abortCheckoutRequest interface {
	GetId() uint64
	GetReason() string
}

type checkoutRepository interface {
	Create(ctx context.Context, checkout *entity.Checkout) error
	Update(ctx context.Context, checkout *entity.Checkout) error
	Transition(ctx context.Context, checkout *entity.Checkout, from int32) error
	FindByID(ctx context.Context, id uint64) (*entity.Checkout, error)
	FindByCallerRequestID(ctx context.Context, callerService, requestID string) (*entity.Checkout, error)
	List(ctx context.Context, filter repository.CheckoutFilter) ([]*entity.Checkout, error)
	ListDueCallbackDispatch(ctx context.Context, now time.Time, limit int32) ([]*entity.Checkout, error)
	ListExpiredPending(ctx context.Context, cutoff time.Time, limit int32) ([]*entity.Checkout, error)
	ListForReconcile(ctx context.Context, before time.Time, limit int32) ([]*entity.Checkout, error)
}

type checkoutEventRepository interface {
	Create(ctx context.Context, event *entity.CheckoutEvent) error
}

type sessionRunner interface {
	ProcessPayment(ctx context.Context, key string, req *provider.InvoiceRequest, cb orchestrator.Callbacks) (*orchestrator.Session, error)
	Session(key string) (*orchestrator.Session, bool)
	Abort(key string) error
}

type statusChecker interface {
	CheckStatus(ctx context.Context, payToken string) (*provider.StatusSnapshot, error)
}

type surfaceMarker interface {
	MarkClosed(ctx context.Context, id string) error
}

type Options struct {
	Checkout     config.CheckoutConfig
	ReadyTimeout time.Duration
	// SessionTimeout bounds how long a session holds its checkout lock.
	SessionTimeout time.Duration
	AppAPIKey      string
	Metrics        *metrics.Metrics
}

type CheckoutService struct {
	checkoutRepo checkoutRepository
	eventRepo    checkoutEventRepository
	runner       sessionRunner
	statuses     statusChecker
	surfaces     surfaceMarker
	locker       lock.Locker
	publisher    events.Publisher
	checkoutCfg  config.CheckoutConfig
	readyTimeout time.Duration
	sessionTTL   time.Duration
	appAPIKey    string
	callbackHTTP *http.Client
	metrics      *metrics.Metrics
	logger       logrus.FieldLogger
}

func NewCheckoutService(
	checkoutRepo checkoutRepository,
	eventRepo checkoutEventRepository,
	runner sessionRunner,
	statuses statusChecker,
	surfaces surfaceMarker,
	locker lock.Locker,
	publisher events.Publisher,
	opts Options,
) *CheckoutService {
	timeout := opts.Checkout.CallbackHTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	readyTimeout := opts.ReadyTimeout
	if readyTimeout <= 0 {
		readyTimeout = defaultReadyTimeout
	}
	sessionTimeout := opts.SessionTimeout
	if sessionTimeout <= 0 {
		sessionTimeout = defaultSessionTTL
	}
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}

	return &CheckoutService{
		checkoutRepo: checkoutRepo,
		eventRepo:    eventRepo,
		runner:       runner,
		statuses:     statuses,
		surfaces:     surfaces,
		locker:       locker,
		publisher:    publisher,
		checkoutCfg:  opts.Checkout,
		readyTimeout: readyTimeout,
		sessionTTL:   readyTimeout + sessionTimeout + time.Minute,
		appAPIKey:    strings.TrimSpace(opts.AppAPIKey),
		callbackHTTP: &http.Client{Timeout: timeout},
		metrics:      opts.Metrics,
		logger:       factory.NewModuleLogger("checkout_service"),
	}
}

// StartCheckout persists a checkout, starts its payment session and returns
// once the hosted payment page is known. Repeating a request id for the same
// caller returns the checkout created by the first call.
func (s *CheckoutService) StartCheckout(ctx context.Context, req startCheckoutRequest) (*entity.Checkout, error) {
	requestID := strings.TrimSpace(req.GetRequestId())
	callerService := strings.TrimSpace(req.GetCallerService())
	if requestID == "" || callerService == "" {
		return nil, ErrInvalidRequest
	}
	if len(req.GetItems()) == 0 {
		return nil, ErrEmptyCart
	}

	items, total, err := buildItems(req.GetItems())
	if err != nil {
		return nil, err
	}
	amount := req.GetAmount()
	if amount.IsZero() {
		amount = total
	} else if !amount.Equal(total) {
		return nil, fmt.Errorf("%w: declared %s, items %s", ErrAmountMismatch, amount.StringFixed(2), total.StringFixed(2))
	}

	lk, err := s.locker.Acquire(ctx, "start:"+callerService+":"+requestID, s.readyTimeout+sessionSettleWait)
	if err != nil {
		if errors.Is(err, lock.ErrLocked) {
			return nil, ErrCheckoutLocked
		}
		return nil, err
	}
	defer s.releaseLock(ctx, lk)

	existing, err := s.checkoutRepo.FindByCallerRequestID(ctx, callerService, requestID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	merchantOrderID := strings.TrimSpace(req.GetMerchantOrderId())
	if merchantOrderID == "" {
		merchantOrderID = "ORDER_" + uuid.NewString()
	}

	now := time.Now().UTC()
	checkout := &entity.Checkout{
		RequestID:              requestID,
		CallerService:          callerService,
		MerchantOrderID:        merchantOrderID,
		Items:                  items,
		Amount:                 amount,
		Description:            strings.TrimSpace(req.GetDescription()),
		CustomerName:           strings.TrimSpace(req.GetCustomerName()),
		CustomerEmail:          strings.TrimSpace(req.GetCustomerEmail()),
		CustomerPhone:          strings.TrimSpace(req.GetCustomerPhone()),
		Status:                 entity.CheckoutStatusCreated,
		StatusCallbackURL:      strings.TrimSpace(req.GetStatusCallbackUrl()),
		Metadata:               cloneMetadata(req.GetMetadata()),
		CallbackDeliveryStatus: entity.CallbackDeliveryNone,
		CreatedAt:              now,
		UpdatedAt:              now,
	}

	if err := s.checkoutRepo.Create(ctx, checkout); err != nil {
		if errors.Is(err, repository.ErrCheckoutAlreadyExists) {
			return nil, ErrCheckoutAlreadyExists
		}
		return nil, err
	}

	_ = s.eventRepo.Create(ctx, &entity.CheckoutEvent{
		CheckoutID: checkout.ID,
		EventType:  "checkout_created",
		NewStatus:  checkout.Status,
		CreatedAt:  now,
	})

	// Held for the whole session so jobs in any process leave the checkout alone.
	owner, err := s.locker.Acquire(ctx, checkoutLockKey(checkout.ID), s.sessionTTL)
	if err != nil {
		_ = s.resolveCheckout(ctx, checkout, resolution{status: entity.CheckoutStatusFailed, failureReason: "checkout lock unavailable"})
		return nil, err
	}

	// The session goroutine owns tracked from here on.
	tracked := *checkout
	session, err := s.runner.ProcessPayment(ctx, sessionKey(checkout.ID), invoiceRequestFor(checkout), s.sessionCallbacks(&tracked))
	if err != nil {
		s.releaseLock(ctx, owner)
		_ = s.resolveCheckout(ctx, &tracked, resolution{status: entity.CheckoutStatusFailed, failureReason: err.Error()})
		if errors.Is(err, orchestrator.ErrShuttingDown) {
			return nil, ErrUnavailable
		}
		return nil, err
	}
	go func() {
		<-session.Done()
		s.releaseLock(context.Background(), owner)
	}()

	readyCtx, cancel := context.WithTimeout(ctx, s.readyTimeout)
	defer cancel()
	if _, err := session.Ready(readyCtx); err != nil {
		return s.abandonStart(ctx, session, checkout.ID, err)
	}

	current, err := s.GetCheckout(ctx, checkout.ID)
	if err != nil {
		return nil, err
	}
	if current.Status != entity.CheckoutStatusPolling && !current.Terminal() {
		return s.abandonStart(ctx, session, checkout.ID, errors.New("payment page could not be stored"))
	}
	return current, nil
}

// abandonStart stops a session whose payment page never reached the caller
// and reports the stored checkout with ErrPaymentSetupFailed.
func (s *CheckoutService) abandonStart(ctx context.Context, session *orchestrator.Session, id uint64, cause error) (*entity.Checkout, error) {
	if !errors.Is(cause, orchestrator.ErrSessionResolved) {
		session.Abort(orchestrator.CancelAborted)
		s.waitSettled(session)
	}
	current, err := s.GetCheckout(context.WithoutCancel(ctx), id)
	if err != nil {
		return nil, err
	}
	return current, fmt.Errorf("%w: %v", ErrPaymentSetupFailed, cause)
}

func (s *CheckoutService) GetCheckout(ctx context.Context, id uint64) (*entity.Checkout, error) {
	checkout, err := s.checkoutRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if checkout == nil {
		return nil, ErrCheckoutNotFound
	}
	return checkout, nil
}

func (s *CheckoutService) ListCheckouts(ctx context.Context, req listCheckoutsRequest) ([]*entity.Checkout, error) {
	limit := req.GetLimit()
	if limit <= 0 {
		limit = defaultListLimit
	}

	filter := repository.CheckoutFilter{
		RequestID:       strings.TrimSpace(req.GetRequestId()),
		CallerService:   strings.TrimSpace(req.GetCallerService()),
		MerchantOrderID: strings.TrimSpace(req.GetMerchantOrderId()),
		HasStatus:       req.GetHasStatus(),
		Status:          int32(req.GetStatus()),
		Limit:           limit,
		Offset:          req.GetOffset(),
	}

	return s.checkoutRepo.List(ctx, filter)
}

// AbortCheckout cancels a checkout. A session running in this process is
// aborted and awaited; otherwise the stored checkout is cancelled directly and
// its surface is marked closed so a session on another replica stops too.
func (s *CheckoutService) AbortCheckout(ctx context.Context, req abortCheckoutRequest) (*entity.Checkout, error) {
	checkout, err := s.GetCheckout(ctx, req.GetId())
	if err != nil {
		return nil, err
	}

	switch checkout.Status {
	case entity.CheckoutStatusCancelled:
		return checkout, nil
	case entity.CheckoutStatusSucceeded:
		return nil, fmt.Errorf("%w: succeeded checkouts cannot be aborted", ErrInvalidStatus)
	case entity.CheckoutStatusFailed:
		return nil, fmt.Errorf("%w: failed checkouts cannot be aborted", ErrInvalidStatus)
	}

	key := sessionKey(checkout.ID)
	if session, ok := s.runner.Session(key); ok {
		if err := s.runner.Abort(key); err != nil &&
			!errors.Is(err, orchestrator.ErrSessionResolved) &&
			!errors.Is(err, orchestrator.ErrSessionNotFound) {
			return nil, err
		}
		select {
		case <-session.Done():
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return s.GetCheckout(ctx, checkout.ID)
	}

	if checkout.SurfaceID != nil {
		if err := s.surfaces.MarkClosed(ctx, *checkout.SurfaceID); err != nil && !errors.Is(err, surface.ErrSurfaceNotFound) {
			s.logger.WithError(err).WithField("checkout_id", checkout.ID).Warn("Failed to mark surface closed")
		}
	}

	err = s.resolveCheckout(ctx, checkout, resolution{
		status:       entity.CheckoutStatusCancelled,
		cancelReason: string(orchestrator.CancelAborted),
		note:         req.GetReason(),
	})
	if err != nil {
		if errors.Is(err, repository.ErrCheckoutStatusChanged) {
			return s.GetCheckout(ctx, checkout.ID)
		}
		return nil, err
	}

	return checkout, nil
}

// ReportSurfaceClosed records that the shopper closed the hosted payment
// page. The owning session notices on its next watchdog tick.
func (s *CheckoutService) ReportSurfaceClosed(ctx context.Context, id uint64) (*entity.Checkout, error) {
	checkout, err := s.GetCheckout(ctx, id)
	if err != nil {
		return nil, err
	}
	if checkout.Terminal() {
		return checkout, nil
	}
	if checkout.SurfaceID == nil || strings.TrimSpace(*checkout.SurfaceID) == "" {
		return nil, ErrSurfaceNotFound
	}

	if err := s.surfaces.MarkClosed(ctx, *checkout.SurfaceID); err != nil {
		if errors.Is(err, surface.ErrSurfaceNotFound) {
			return nil, ErrSurfaceNotFound
		}
		return nil, err
	}

	if session, ok := s.runner.Session(sessionKey(checkout.ID)); ok {
		s.waitSettled(session)
	}

	return s.GetCheckout(ctx, checkout.ID)
}

func (s *CheckoutService) sessionCallbacks(tracked *entity.Checkout) orchestrator.Callbacks {
	logger := s.logger.WithFields(logrus.Fields{
		"checkout_id": tracked.ID,
		"request_id":  tracked.RequestID,
	})
	persist := func(step string, fn func(ctx context.Context) error) {
		for attempt := 1; ; attempt++ {
			ctx, cancel := context.WithTimeout(factory.ContextWithRequestID(context.Background(), tracked.RequestID), persistTimeout)
			err := fn(ctx)
			cancel()
			if err == nil {
				return
			}
			if attempt >= persistAttempts || errors.Is(err, ErrInvalidStatus) {
				logger.WithError(err).WithField("step", step).Error("Failed to persist checkout state")
				return
			}
			logger.WithError(err).WithFields(logrus.Fields{"step": step, "attempt": attempt}).Warn("Retrying checkout state write")
			time.Sleep(time.Duration(attempt) * persistRetryDelay)
		}
	}

	// Callbacks run one after another on the session goroutine.
	var initiated *orchestrator.Initiated

	return orchestrator.Callbacks{
		OnInitiated: func(in orchestrator.Initiated) {
			initiated = &in
			persist("polling", func(ctx context.Context) error {
				return s.markPolling(ctx, tracked, in)
			})
		},
		OnSuccess: func(snapshot *provider.StatusSnapshot) {
			persist("succeeded", func(ctx context.Context) error {
				return s.resolveTracked(ctx, tracked, initiated, resolution{
					status:        entity.CheckoutStatusSucceeded,
					transactionID: snapshot.TransactionID,
					statusPayload: string(snapshot.Payload),
				})
			})
		},
		OnError: func(message string) {
			persist("failed", func(ctx context.Context) error {
				return s.resolveTracked(ctx, tracked, initiated, resolution{
					status:        entity.CheckoutStatusFailed,
					failureReason: message,
				})
			})
		},
		OnCancel: func(reason orchestrator.CancelReason) {
			if reason == orchestrator.CancelShutdown {
				// The shopper may still pay; reconcile settles the stored row.
				logger.WithField("status", types.CheckoutStatus(tracked.Status).String()).Info("Checkout left open on shutdown")
				return
			}
			persist("cancelled", func(ctx context.Context) error {
				return s.resolveTracked(ctx, tracked, initiated, resolution{
					status:       entity.CheckoutStatusCancelled,
					cancelReason: string(reason),
				})
			})
		},
	}
}

func (s *CheckoutService) markPolling(ctx context.Context, checkout *entity.Checkout, in orchestrator.Initiated) error {
	prev := *checkout
	from := checkout.Status

	checkout.Status = entity.CheckoutStatusPolling
	applyInitiated(checkout, in)
	checkout.UpdatedAt = time.Now().UTC()

	if err := s.checkoutRepo.Transition(ctx, checkout, from); err != nil {
		*checkout = prev
		return err
	}
	s.recordTransition(ctx, checkout, from, "checkout_polling", nil)
	return nil
}

// resolveTracked resolves the session's copy of a checkout. When the stored
// status moved away from the copy, the copy is reloaded and the write retried
// unless the stored checkout already ended.
func (s *CheckoutService) resolveTracked(ctx context.Context, tracked *entity.Checkout, in *orchestrator.Initiated, res resolution) error {
	if in != nil && tracked.PayToken == nil {
		applyInitiated(tracked, *in)
	}

	err := s.resolveCheckout(ctx, tracked, res)
	if !errors.Is(err, repository.ErrCheckoutStatusChanged) {
		return err
	}

	stored, findErr := s.checkoutRepo.FindByID(ctx, tracked.ID)
	if findErr != nil {
		return findErr
	}
	if stored == nil {
		return ErrCheckoutNotFound
	}
	*tracked = *stored
	if stored.Terminal() {
		s.logger.WithFields(logrus.Fields{
			"checkout_id": stored.ID,
			"status":      types.CheckoutStatus(stored.Status).String(),
		}).Info("Checkout already settled elsewhere")
		return nil
	}
	if in != nil && tracked.PayToken == nil {
		applyInitiated(tracked, *in)
	}
	return s.resolveCheckout(ctx, tracked, res)
}

func applyInitiated(checkout *entity.Checkout, in orchestrator.Initiated) {
	payToken := in.PayToken
	paymentURL := in.PaymentURL
	checkout.PayToken = &payToken
	checkout.PaymentURL = &paymentURL
	if in.Surface != nil {
		surfaceID := in.Surface.ID
		checkout.SurfaceID = &surfaceID
	}
}

type resolution struct {
	status        int32
	transactionID string
	statusPayload string
	failureReason string
	cancelReason  string
	note          string
}

// resolveCheckout moves a non-terminal checkout to its terminal status. The
// write only applies while the stored status is unchanged.
func (s *CheckoutService) resolveCheckout(ctx context.Context, checkout *entity.Checkout, res resolution) error {
	from := checkout.Status
	if entity.IsTerminalCheckoutStatus(from) {
		return fmt.Errorf("%w: checkout already %s", ErrInvalidStatus, types.CheckoutStatus(from).String())
	}
	prev := *checkout

	now := time.Now().UTC()
	checkout.Status = res.status
	checkout.TransactionID = normalizeOptionalString(res.transactionID)
	checkout.StatusPayload = normalizeOptionalString(res.statusPayload)
	checkout.FailureReason = normalizeOptionalString(truncate(res.failureReason, 1024))
	checkout.CancelReason = normalizeOptionalString(res.cancelReason)
	checkout.ResolvedAt = &now
	checkout.UpdatedAt = now
	if strings.TrimSpace(checkout.StatusCallbackURL) != "" {
		s.markForCallbackDelivery(checkout, now)
	}

	if err := s.checkoutRepo.Transition(ctx, checkout, from); err != nil {
		*checkout = prev
		return err
	}

	payload := map[string]string{}
	if res.transactionID != "" {
		payload["transaction_id"] = res.transactionID
	}
	if res.failureReason != "" {
		payload["failure_reason"] = res.failureReason
	}
	if res.cancelReason != "" {
		payload["cancel_reason"] = res.cancelReason
	}
	if note := strings.TrimSpace(res.note); note != "" {
		payload["note"] = note
	}
	s.recordTransition(ctx, checkout, from, "checkout_"+types.CheckoutStatus(res.status).String(), payload)
	return nil
}

func (s *CheckoutService) recordTransition(ctx context.Context, checkout *entity.Checkout, from int32, eventType string, payload map[string]string) {
	now := checkout.UpdatedAt
	event := &entity.CheckoutEvent{
		CheckoutID: checkout.ID,
		EventType:  eventType,
		OldStatus:  &from,
		NewStatus:  checkout.Status,
		CreatedAt:  now,
	}
	if len(payload) > 0 {
		if raw, err := json.Marshal(payload); err == nil {
			encoded := string(raw)
			event.PayloadJSON = &encoded
		}
	}
	_ = s.eventRepo.Create(ctx, event)

	stateChanged := events.StateChanged{
		CheckoutID:      checkout.ID,
		MerchantOrderID: checkout.MerchantOrderID,
		CallerService:   checkout.CallerService,
		State:           types.CheckoutStatus(checkout.Status).String(),
		PreviousState:   types.CheckoutStatus(from).String(),
		Timestamp:       now,
	}
	if checkout.CancelReason != nil {
		stateChanged.Reason = *checkout.CancelReason
	} else if checkout.FailureReason != nil {
		stateChanged.Reason = *checkout.FailureReason
	}
	if checkout.TransactionID != nil {
		stateChanged.TransactionID = *checkout.TransactionID
	}
	if err := s.publisher.Publish(ctx, stateChanged); err != nil {
		s.logger.WithError(err).WithField("checkout_id", checkout.ID).Warn("Failed to publish checkout state change")
	}
}

func (s *CheckoutService) markForCallbackDelivery(checkout *entity.Checkout, now time.Time) {
	checkout.CallbackDeliveryStatus = entity.CallbackDeliveryPending
	checkout.CallbackDeliveryAttempts = 0
	checkout.CallbackDeliveryNextAt = &now
	checkout.CallbackDeliveryLastErr = nil
}

func (s *CheckoutService) waitSettled(session *orchestrator.Session) {
	timer := time.NewTimer(sessionSettleWait)
	defer timer.Stop()
	select {
	case <-session.Done():
	case <-timer.C:
	}
}

func (s *CheckoutService) releaseLock(ctx context.Context, lk *lock.Lock) {
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	if err := s.locker.Release(releaseCtx, lk); err != nil {
		s.logger.WithError(err).WithField("lock", lk.Key).Warn("Failed to release lock")
	}
}

func (s *CheckoutService) batchSize() int32 {
	if s.checkoutCfg.JobBatchSize > 0 {
		return s.checkoutCfg.JobBatchSize
	}
	return defaultBatchSize
}

func buildItems(src []*types.LineItem) ([]entity.CheckoutItem, decimal.Decimal, error) {
	items := make([]entity.CheckoutItem, 0, len(src))
	total := decimal.Zero
	for i, item := range src {
		if item == nil || strings.TrimSpace(item.GetName()) == "" || item.GetQuantity() <= 0 || !item.GetUnitPrice().IsPositive() {
			return nil, decimal.Zero, fmt.Errorf("%w: items[%d] is invalid", ErrInvalidRequest, i)
		}

		lineTotal := item.GetUnitPrice().Mul(decimal.NewFromInt32(item.GetQuantity()))
		if declared := item.GetTotalPrice(); !declared.IsZero() && !declared.Equal(lineTotal) {
			return nil, decimal.Zero, fmt.Errorf("%w: items[%d] total %s, expected %s", ErrAmountMismatch, i, declared.StringFixed(2), lineTotal.StringFixed(2))
		}

		items = append(items, entity.CheckoutItem{
			Name:       strings.TrimSpace(item.GetName()),
			Quantity:   item.GetQuantity(),
			UnitPrice:  item.GetUnitPrice(),
			TotalPrice: lineTotal,
		})
		total = total.Add(lineTotal)
	}
	return items, total, nil
}

func invoiceRequestFor(checkout *entity.Checkout) *provider.InvoiceRequest {
	items := make([]provider.LineItem, 0, len(checkout.Items))
	for _, item := range checkout.Items {
		items = append(items, provider.LineItem{
			Name:       item.Name,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			TotalPrice: item.TotalPrice,
		})
	}
	return &provider.InvoiceRequest{
		MerchantOrderID: checkout.MerchantOrderID,
		Amount:          checkout.Amount,
		Items:           items,
		Description:     checkout.Description,
		Customer: provider.Customer{
			Name:  checkout.CustomerName,
			Email: checkout.CustomerEmail,
			Phone: checkout.CustomerPhone,
		},
	}
}

func sessionKey(id uint64) string {
	return "checkout-" + strconv.FormatUint(id, 10)
}

func checkoutLockKey(id uint64) string {
	return "checkout:" + strconv.FormatUint(id, 10)
}

func normalizeOptionalString(v string) *string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func cloneMetadata(src map[string]string) map[string]string {
	if len(src) == 0 {
		return map[string]string{}
	}
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// truncate cuts v to at most max bytes without splitting a UTF-8 sequence.
func truncate(v string, max int) string {
	if len(v) <= max {
		return v
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(v[cut]) {
		cut--
	}
	return v[:cut]
}
