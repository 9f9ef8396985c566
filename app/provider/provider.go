package provider

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/shopspring/decimal"
)

// Status codes reported by payment/status. Any other value means the payment
// is still pending.
const (
	StatusSuccess           = 0
	StatusTechnicalError    = -1
	StatusCustomerCancelled = -2
)

var ErrProviderRejected = errors.New("provider rejected request")

type LineItem struct {
	Name       string
	Quantity   int32
	UnitPrice  decimal.Decimal
	TotalPrice decimal.Decimal
}

type Customer struct {
	Name  string
	Email string
	Phone string
}

type InvoiceRequest struct {
	MerchantOrderID string
	Amount          decimal.Decimal
	Items           []LineItem
	Description     string
	Customer        Customer
}

type Invoice struct {
	PayToken string
	Amount   decimal.Decimal
}

type Initiation struct {
	PaymentURL string
}

// StatusSnapshot is the result of one poll. Payload holds the raw data object
// returned by the provider.
type StatusSnapshot struct {
	Status        int
	TransactionID string
	Payload       json.RawMessage
}

func (s *StatusSnapshot) Terminal() bool {
	switch s.Status {
	case StatusSuccess, StatusTechnicalError, StatusCustomerCancelled:
		return true
	default:
		return false
	}
}

type Client interface {
	CreateInvoice(ctx context.Context, req *InvoiceRequest) (*Invoice, error)
	InitiatePayment(ctx context.Context, payToken string, amount decimal.Decimal, customer Customer) (*Initiation, error)
	CheckStatus(ctx context.Context, payToken string) (*StatusSnapshot, error)
}
