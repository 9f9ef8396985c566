package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-checkout/app/provider"
	"github.com/vibast-solutions/ms-go-checkout/app/surface"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const surfaceCloseTimeout = 5 * time.Second

type pollResult struct {
	snapshot *provider.StatusSnapshot
	err      error
}

// Session is one checkout attempt. All state transitions happen on the
// session goroutine; the exported methods are safe for concurrent use.
type Session struct {
	key    string
	o      *Orchestrator
	cb     Callbacks
	logger logrus.FieldLogger
	cancel context.CancelFunc

	state    atomic.Int32
	resolved atomic.Bool

	mu          sync.Mutex
	abortReason CancelReason
	initiated   *Initiated
	handle      *surface.Handle
	stopTimers  func()
	outcome     Outcome

	ready     chan struct{}
	readyOnce sync.Once
	done      chan struct{}
}

func newSession(key string, o *Orchestrator, cb Callbacks, cancel context.CancelFunc) *Session {
	return &Session{
		key:    key,
		o:      o,
		cb:     cb,
		logger: o.logger,
		cancel: cancel,
		ready:  make(chan struct{}),
		done:   make(chan struct{}),
	}
}

func (s *Session) Key() string {
	return s.key
}

func (s *Session) State() State {
	return State(s.state.Load())
}

// Ready blocks until the hosted payment page is known. A session that
// resolved before reaching polling yields ErrSessionResolved.
func (s *Session) Ready(ctx context.Context) (Initiated, error) {
	select {
	case <-s.ready:
	case <-ctx.Done():
		return Initiated{}, ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initiated != nil {
		return *s.initiated, nil
	}
	return Initiated{}, fmt.Errorf("%w: %s", ErrSessionResolved, describe(s.outcome))
}

func (s *Session) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-s.done:
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.outcome, nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Abort asks the session to resolve as cancelled with reason. It reports
// whether the session was still live.
func (s *Session) Abort(reason CancelReason) bool {
	if s.resolved.Load() {
		return false
	}

	s.mu.Lock()
	if s.abortReason == "" {
		s.abortReason = reason
	}
	s.mu.Unlock()

	s.cancel()
	return true
}

func (s *Session) run(ctx context.Context, req *provider.InvoiceRequest) {
	ctx, span := otel.Tracer("github.com/vibast-solutions/ms-go-checkout/app/orchestrator").Start(ctx, "payment.session")
	span.SetAttributes(attribute.String("checkout.session", s.key))
	defer func() {
		span.SetAttributes(attribute.String("checkout.outcome", s.State().String()))
		span.End()
	}()

	invoice, err := s.o.client.CreateInvoice(ctx, req)
	if err != nil {
		s.failSetup(ctx, "invoice creation failed", err)
		return
	}
	s.setState(StateInvoiceCreated)
	s.logger = s.logger.WithField("pay_token", invoice.PayToken)

	initiation, err := s.o.client.InitiatePayment(ctx, invoice.PayToken, invoice.Amount, req.Customer)
	if err != nil {
		s.failSetup(ctx, "payment initiation failed", err)
		return
	}
	s.setState(StatePaymentInitiated)

	if ctx.Err() != nil {
		s.resolve(ctx, s.cancelOutcome())
		return
	}

	handle, err := s.o.surface.Open(ctx, initiation.PaymentURL)
	if err != nil {
		s.logger.WithError(err).Warn("Payment surface could not be opened, relying on timeout")
		handle = nil
	}

	initiated := Initiated{
		PayToken:   invoice.PayToken,
		Amount:     invoice.Amount,
		PaymentURL: initiation.PaymentURL,
		Surface:    handle,
	}
	s.mu.Lock()
	s.handle = handle
	s.initiated = &initiated
	s.mu.Unlock()

	s.setState(StatePolling)
	if s.cb.OnInitiated != nil {
		s.safeCall("initiated", func() { s.cb.OnInitiated(initiated) })
	}
	s.markReady()

	s.poll(ctx, invoice.PayToken, handle)
}

func (s *Session) poll(ctx context.Context, payToken string, handle *surface.Handle) {
	cfg := s.o.cfg
	pollCtx, cancelPoll := context.WithCancel(ctx)
	pollTimer := time.NewTimer(cfg.PollInterval)
	watchdog := time.NewTicker(cfg.WatchdogInterval)
	deadline := time.NewTimer(cfg.Timeout)

	s.mu.Lock()
	s.stopTimers = func() {
		cancelPoll()
		pollTimer.Stop()
		watchdog.Stop()
		deadline.Stop()
	}
	s.mu.Unlock()

	// Buffered so an in-flight poll never blocks after the session resolved.
	results := make(chan pollResult, 1)

	for {
		select {
		case <-pollTimer.C:
			go func() {
				snapshot, err := s.o.client.CheckStatus(pollCtx, payToken)
				results <- pollResult{snapshot: snapshot, err: err}
			}()
		case res := <-results:
			if outcome, terminal := s.evaluate(res); terminal {
				s.resolve(ctx, outcome)
				return
			}
			pollTimer.Reset(cfg.PollInterval)
		case <-watchdog.C:
			if handle != nil && s.o.surface.IsClosed(ctx, handle) {
				s.resolve(ctx, Outcome{State: StateCancelled, Reason: CancelPopupClosed})
				return
			}
		case <-deadline.C:
			s.resolve(ctx, Outcome{State: StateCancelled, Reason: CancelTimeout})
			return
		case <-ctx.Done():
			s.resolve(ctx, s.cancelOutcome())
			return
		}
	}
}

func (s *Session) evaluate(res pollResult) (Outcome, bool) {
	if res.err != nil {
		s.o.metrics.PollCompleted("error")
		s.logger.WithError(res.err).Warn("Status poll failed")
		return Outcome{}, false
	}

	switch res.snapshot.Status {
	case provider.StatusSuccess:
		s.o.metrics.PollCompleted("success")
		if res.snapshot.TransactionID == "" {
			s.logger.Warn("Successful status has no transaction id")
		}
		return Outcome{State: StateSucceeded, Snapshot: res.snapshot}, true
	case provider.StatusTechnicalError:
		s.o.metrics.PollCompleted("technical_error")
		return Outcome{State: StateFailed, Message: technicalErrorMessage}, true
	case provider.StatusCustomerCancelled:
		s.o.metrics.PollCompleted("cancelled")
		return Outcome{State: StateCancelled, Reason: CancelProviderCancelled}, true
	default:
		s.o.metrics.PollCompleted("pending")
		return Outcome{}, false
	}
}

func (s *Session) failSetup(ctx context.Context, msg string, err error) {
	if ctx.Err() != nil {
		s.resolve(ctx, s.cancelOutcome())
		return
	}
	s.logger.WithError(err).Warn(msg)
	s.resolve(ctx, Outcome{State: StateFailed, Message: msg + ": " + err.Error()})
}

// resolve is the single exit of a session. Only the first call has effect.
func (s *Session) resolve(ctx context.Context, outcome Outcome) bool {
	if !s.resolved.CompareAndSwap(false, true) {
		return false
	}

	s.release(ctx)

	s.mu.Lock()
	s.outcome = outcome
	s.mu.Unlock()
	s.setState(outcome.State)
	s.o.remove(s)
	s.o.metrics.SessionResolved(outcome.State.String(), string(outcome.Reason))

	s.logger.WithFields(logrus.Fields{
		"outcome": outcome.State.String(),
		"reason":  string(outcome.Reason),
	}).Info("Payment session resolved")

	switch outcome.State {
	case StateSucceeded:
		if s.cb.OnSuccess != nil {
			s.safeCall("success", func() { s.cb.OnSuccess(outcome.Snapshot) })
		}
	case StateFailed:
		if s.cb.OnError != nil {
			s.safeCall("error", func() { s.cb.OnError(outcome.Message) })
		}
	case StateCancelled:
		if s.cb.OnCancel != nil {
			s.safeCall("cancel", func() { s.cb.OnCancel(outcome.Reason) })
		}
	}

	s.cancel()
	close(s.done)
	s.markReady()
	return true
}

// release stops the poll, both tickers and the deadline, then closes the
// surface if one was opened.
func (s *Session) release(ctx context.Context) {
	s.mu.Lock()
	stop := s.stopTimers
	handle := s.handle
	s.mu.Unlock()

	if stop != nil {
		stop()
	}
	if handle == nil {
		return
	}

	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), surfaceCloseTimeout)
	defer cancel()
	if err := s.o.surface.Close(closeCtx, handle); err != nil {
		s.logger.WithError(err).Warn("Payment surface close failed")
	}
}

func (s *Session) cancelOutcome() Outcome {
	s.mu.Lock()
	reason := s.abortReason
	s.mu.Unlock()
	if reason == "" {
		reason = CancelShutdown
	}
	return Outcome{State: StateCancelled, Reason: reason}
}

func (s *Session) setState(state State) {
	s.state.Store(int32(state))
}

func (s *Session) markReady() {
	s.readyOnce.Do(func() { close(s.ready) })
}

func (s *Session) safeCall(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.WithField("callback", name).Errorf("Session callback panicked: %v", r)
		}
	}()
	fn()
}

func describe(o Outcome) string {
	switch o.State {
	case StateFailed:
		return o.Message
	case StateCancelled:
		return "cancelled: " + string(o.Reason)
	default:
		return o.State.String()
	}
}
