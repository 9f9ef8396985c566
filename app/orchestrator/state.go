package orchestrator

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-checkout/app/provider"
	"github.com/vibast-solutions/ms-go-checkout/app/surface"
)

var (
	ErrInvalidRequest  = errors.New("session key and invoice request are required")
	ErrSessionNotFound = errors.New("payment session not found")
	ErrSessionExists   = errors.New("payment session already running")
	ErrSessionResolved = errors.New("payment session resolved")
	ErrShuttingDown    = errors.New("orchestrator is shutting down")
)

type State int32

const (
	StateIdle State = iota
	StateInvoiceCreated
	StatePaymentInitiated
	StatePolling
	StateSucceeded
	StateFailed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInvoiceCreated:
		return "invoice_created"
	case StatePaymentInitiated:
		return "payment_initiated"
	case StatePolling:
		return "polling"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed || s == StateCancelled
}

type CancelReason string

const (
	CancelPopupClosed       CancelReason = "popup_closed"
	CancelProviderCancelled CancelReason = "provider_cancelled"
	CancelTimeout           CancelReason = "timeout"
	CancelAborted           CancelReason = "aborted"
	CancelShutdown          CancelReason = "shutdown"
)

const technicalErrorMessage = "payment failed due to a technical error at the provider"

// Outcome is the terminal result of a session. Exactly one of Snapshot,
// Message or Reason is meaningful, depending on State.
type Outcome struct {
	State    State
	Snapshot *provider.StatusSnapshot
	Message  string
	Reason   CancelReason
}

// Initiated describes a session that reached polling.
type Initiated struct {
	PayToken   string
	Amount     decimal.Decimal
	PaymentURL string
	Surface    *surface.Handle
}

// Callbacks are invoked from the session goroutine. At most one of OnSuccess,
// OnError and OnCancel runs per session.
type Callbacks struct {
	OnInitiated func(Initiated)
	OnSuccess   func(*provider.StatusSnapshot)
	OnError     func(message string)
	OnCancel    func(reason CancelReason)
}
