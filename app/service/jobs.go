package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/vibast-solutions/ms-go-checkout/app/entity"
	"github.com/vibast-solutions/ms-go-checkout/app/lock"
	"github.com/vibast-solutions/ms-go-checkout/app/mapper"
	"github.com/vibast-solutions/ms-go-checkout/app/orchestrator"
	"github.com/vibast-solutions/ms-go-checkout/app/provider"
	"github.com/vibast-solutions/ms-go-checkout/app/repository"
	"github.com/vibast-solutions/ms-go-checkout/app/types"
)

const jobLockTTL = time.Minute

// RunReconcileBatch settles polling checkouts whose session is gone, usually
// because the process that owned it restarted. Each one is checked once.
func (s *CheckoutService) RunReconcileBatch(ctx context.Context) error {
	now := time.Now().UTC()
	before := now.Add(-s.checkoutCfg.ReconcileStaleAfter)
	items, err := s.checkoutRepo.ListForReconcile(ctx, before, s.batchSize())
	if err != nil {
		return err
	}

	var firstErr error
	for _, checkout := range items {
		if checkout == nil || checkout.PayToken == nil || strings.TrimSpace(*checkout.PayToken) == "" {
			continue
		}
		if err := s.withCheckoutLock(ctx, checkout, func() error {
			return s.reconcile(ctx, checkout)
		}); err != nil {
			firstErr = keepFirstErr(firstErr, err)
		}
	}

	return firstErr
}

func (s *CheckoutService) reconcile(ctx context.Context, checkout *entity.Checkout) error {
	snapshot, err := s.statuses.CheckStatus(ctx, strings.TrimSpace(*checkout.PayToken))
	if err != nil {
		return err
	}

	var res resolution
	switch snapshot.Status {
	case provider.StatusSuccess:
		res = resolution{
			status:        entity.CheckoutStatusSucceeded,
			transactionID: snapshot.TransactionID,
			statusPayload: string(snapshot.Payload),
		}
	case provider.StatusTechnicalError:
		res = resolution{
			status:        entity.CheckoutStatusFailed,
			failureReason: "payment failed due to a technical error at the provider",
		}
	case provider.StatusCustomerCancelled:
		res = resolution{
			status:       entity.CheckoutStatusCancelled,
			cancelReason: string(orchestrator.CancelProviderCancelled),
		}
	default:
		return nil
	}
	res.note = "reconciled"

	return s.ignoreStatusChanged(s.resolveCheckout(ctx, checkout, res))
}

// RunExpirePendingBatch cancels checkouts that stayed non-terminal past the
// pending timeout without a live session.
func (s *CheckoutService) RunExpirePendingBatch(ctx context.Context) error {
	now := time.Now().UTC()
	cutoff := now.Add(-s.checkoutCfg.PendingTimeout)
	items, err := s.checkoutRepo.ListExpiredPending(ctx, cutoff, s.batchSize())
	if err != nil {
		return err
	}

	var firstErr error
	for _, checkout := range items {
		if checkout == nil || checkout.Terminal() {
			continue
		}
		if err := s.withCheckoutLock(ctx, checkout, func() error {
			return s.ignoreStatusChanged(s.resolveCheckout(ctx, checkout, resolution{
				status:       entity.CheckoutStatusCancelled,
				cancelReason: string(orchestrator.CancelTimeout),
				note:         "expired",
			}))
		}); err != nil {
			firstErr = keepFirstErr(firstErr, err)
		}
	}

	return firstErr
}

func (s *CheckoutService) RunDispatchCallbacksBatch(ctx context.Context) error {
	now := time.Now().UTC()
	items, err := s.checkoutRepo.ListDueCallbackDispatch(ctx, now, s.batchSize())
	if err != nil {
		return err
	}

	var firstErr error
	for _, checkout := range items {
		if checkout == nil {
			continue
		}
		if err := s.dispatchCallback(ctx, checkout, now); err != nil {
			firstErr = keepFirstErr(firstErr, err)
		}
	}

	return firstErr
}

// withCheckoutLock skips checkouts owned by a live session, in this process
// or another one, and checkouts locked by another worker.
func (s *CheckoutService) withCheckoutLock(ctx context.Context, checkout *entity.Checkout, fn func() error) error {
	if _, live := s.runner.Session(sessionKey(checkout.ID)); live {
		return nil
	}

	lk, err := s.locker.Acquire(ctx, checkoutLockKey(checkout.ID), jobLockTTL)
	if err != nil {
		if errors.Is(err, lock.ErrLocked) {
			return nil
		}
		return err
	}
	defer s.releaseLock(ctx, lk)

	return fn()
}

func (s *CheckoutService) ignoreStatusChanged(err error) error {
	if errors.Is(err, repository.ErrCheckoutStatusChanged) {
		return nil
	}
	return err
}

func (s *CheckoutService) dispatchCallback(ctx context.Context, checkout *entity.Checkout, now time.Time) error {
	if strings.TrimSpace(checkout.StatusCallbackURL) == "" {
		errMsg := "status_callback_url is empty"
		checkout.CallbackDeliveryStatus = entity.CallbackDeliveryFailed
		checkout.CallbackDeliveryNextAt = nil
		checkout.CallbackDeliveryLastErr = &errMsg
		checkout.UpdatedAt = now
		return s.checkoutRepo.Update(ctx, checkout)
	}

	payload := &types.CheckoutEnvelopeResponse{Checkout: mapper.CheckoutToProto(checkout)}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, checkout.StatusCallbackURL, bytes.NewReader(body))
	if err != nil {
		return s.recordDispatchFailure(ctx, checkout, now, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", checkout.RequestID)
	if s.appAPIKey != "" {
		req.Header.Set("X-API-Key", s.appAPIKey)
	}

	resp, err := s.callbackHTTP.Do(req)
	if err != nil {
		return s.recordDispatchFailure(ctx, checkout, now, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return s.recordDispatchFailure(ctx, checkout, now, fmt.Errorf("callback endpoint returned status=%d", resp.StatusCode))
	}

	checkout.CallbackDeliveryStatus = entity.CallbackDeliverySuccess
	checkout.CallbackDeliveryNextAt = nil
	checkout.CallbackDeliveryLastErr = nil
	checkout.UpdatedAt = now

	if err := s.checkoutRepo.Update(ctx, checkout); err != nil {
		return err
	}
	s.metrics.CallbackDispatched(nil)

	_ = s.eventRepo.Create(ctx, &entity.CheckoutEvent{
		CheckoutID: checkout.ID,
		EventType:  "callback_dispatched",
		NewStatus:  checkout.Status,
		CreatedAt:  now,
	})

	return nil
}

func (s *CheckoutService) recordDispatchFailure(ctx context.Context, checkout *entity.Checkout, now time.Time, dispatchErr error) error {
	s.metrics.CallbackDispatched(dispatchErr)

	checkout.CallbackDeliveryAttempts++
	trimmed := truncate(dispatchErr.Error(), 1024)
	checkout.CallbackDeliveryLastErr = &trimmed

	maxAttempts := s.checkoutCfg.CallbackMaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	if checkout.CallbackDeliveryAttempts >= maxAttempts {
		checkout.CallbackDeliveryStatus = entity.CallbackDeliveryFailed
		checkout.CallbackDeliveryNextAt = nil
	} else {
		retryInterval := s.checkoutCfg.CallbackRetryInterval
		if retryInterval <= 0 {
			retryInterval = 5 * time.Minute
		}
		next := now.Add(retryInterval)
		checkout.CallbackDeliveryStatus = entity.CallbackDeliveryPending
		checkout.CallbackDeliveryNextAt = &next
	}
	checkout.UpdatedAt = now

	if err := s.checkoutRepo.Update(ctx, checkout); err != nil {
		return err
	}

	_ = s.eventRepo.Create(ctx, &entity.CheckoutEvent{
		CheckoutID: checkout.ID,
		EventType:  "callback_dispatch_failed",
		NewStatus:  checkout.Status,
		CreatedAt:  now,
	})

	return dispatchErr
}

func keepFirstErr(current error, candidate error) error {
	if current != nil {
		return current
	}
	return candidate
}
