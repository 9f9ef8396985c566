package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	CheckoutStatusCreated          int32 = 1
	CheckoutStatusInvoiceCreated   int32 = 2
	CheckoutStatusPaymentInitiated int32 = 3
	CheckoutStatusPolling          int32 = 4
	CheckoutStatusSucceeded        int32 = 10
	CheckoutStatusFailed           int32 = 20
	CheckoutStatusCancelled        int32 = 30
)

const (
	CallbackDeliveryNone    int32 = 0
	CallbackDeliveryPending int32 = 1
	CallbackDeliverySuccess int32 = 10
	CallbackDeliveryFailed  int32 = 20
)

type CheckoutItem struct {
	Name       string          `json:"name"`
	Quantity   int32           `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

type Checkout struct {
	ID uint64

	RequestID     string
	CallerService string

	MerchantOrderID string
	Items           []CheckoutItem
	Amount          decimal.Decimal
	Description     string

	CustomerName  string
	CustomerEmail string
	CustomerPhone string

	Status int32

	PayToken      *string
	PaymentURL    *string
	SurfaceID     *string
	TransactionID *string
	FailureReason *string
	CancelReason  *string
	StatusPayload *string

	StatusCallbackURL string

	Metadata map[string]string

	CallbackDeliveryStatus   int32
	CallbackDeliveryAttempts int32
	CallbackDeliveryNextAt   *time.Time
	CallbackDeliveryLastErr  *string

	CreatedAt  time.Time
	UpdatedAt  time.Time
	ResolvedAt *time.Time
}

func (c *Checkout) Terminal() bool {
	return IsTerminalCheckoutStatus(c.Status)
}

func IsTerminalCheckoutStatus(status int32) bool {
	switch status {
	case CheckoutStatusSucceeded, CheckoutStatusFailed, CheckoutStatusCancelled:
		return true
	default:
		return false
	}
}
