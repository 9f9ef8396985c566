package types

import "github.com/shopspring/decimal"

type CheckoutStatus int32

const (
	CheckoutStatus_CHECKOUT_STATUS_UNSPECIFIED       CheckoutStatus = 0
	CheckoutStatus_CHECKOUT_STATUS_CREATED           CheckoutStatus = 1
	CheckoutStatus_CHECKOUT_STATUS_INVOICE_CREATED   CheckoutStatus = 2
	CheckoutStatus_CHECKOUT_STATUS_PAYMENT_INITIATED CheckoutStatus = 3
	CheckoutStatus_CHECKOUT_STATUS_POLLING           CheckoutStatus = 4
	CheckoutStatus_CHECKOUT_STATUS_SUCCEEDED         CheckoutStatus = 10
	CheckoutStatus_CHECKOUT_STATUS_FAILED            CheckoutStatus = 20
	CheckoutStatus_CHECKOUT_STATUS_CANCELLED         CheckoutStatus = 30
)

var checkoutStatusNames = map[CheckoutStatus]string{
	CheckoutStatus_CHECKOUT_STATUS_CREATED:           "created",
	CheckoutStatus_CHECKOUT_STATUS_INVOICE_CREATED:   "invoice_created",
	CheckoutStatus_CHECKOUT_STATUS_PAYMENT_INITIATED: "payment_initiated",
	CheckoutStatus_CHECKOUT_STATUS_POLLING:           "polling",
	CheckoutStatus_CHECKOUT_STATUS_SUCCEEDED:         "succeeded",
	CheckoutStatus_CHECKOUT_STATUS_FAILED:            "failed",
	CheckoutStatus_CHECKOUT_STATUS_CANCELLED:         "cancelled",
}

func (s CheckoutStatus) String() string {
	if name, ok := checkoutStatusNames[s]; ok {
		return name
	}
	return "unspecified"
}

func ParseCheckoutStatus(raw string) (CheckoutStatus, bool) {
	for status, name := range checkoutStatusNames {
		if name == raw {
			return status, true
		}
	}
	return CheckoutStatus_CHECKOUT_STATUS_UNSPECIFIED, false
}

type HealthRequest struct{}

type HealthResponse struct {
	Status string `json:"status"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type LineItem struct {
	Name       string          `json:"name"`
	Quantity   int32           `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

func (x *LineItem) GetName() string {
	if x == nil {
		return ""
	}
	return x.Name
}

func (x *LineItem) GetQuantity() int32 {
	if x == nil {
		return 0
	}
	return x.Quantity
}

func (x *LineItem) GetUnitPrice() decimal.Decimal {
	if x == nil {
		return decimal.Zero
	}
	return x.UnitPrice
}

func (x *LineItem) GetTotalPrice() decimal.Decimal {
	if x == nil {
		return decimal.Zero
	}
	return x.TotalPrice
}

type StartCheckoutRequest struct {
	RequestId         string            `json:"request_id"`
	CallerService     string            `json:"caller_service"`
	MerchantOrderId   string            `json:"merchant_order_id"`
	Items             []*LineItem       `json:"items"`
	Amount            decimal.Decimal   `json:"amount"`
	Description       string            `json:"description"`
	CustomerName      string            `json:"customer_name"`
	CustomerEmail     string            `json:"customer_email"`
	CustomerPhone     string            `json:"customer_phone"`
	StatusCallbackUrl string            `json:"status_callback_url"`
	Metadata          map[string]string `json:"metadata"`
}

func (x *StartCheckoutRequest) GetRequestId() string {
	if x == nil {
		return ""
	}
	return x.RequestId
}

func (x *StartCheckoutRequest) GetCallerService() string {
	if x == nil {
		return ""
	}
	return x.CallerService
}

func (x *StartCheckoutRequest) GetMerchantOrderId() string {
	if x == nil {
		return ""
	}
	return x.MerchantOrderId
}

func (x *StartCheckoutRequest) GetItems() []*LineItem {
	if x == nil {
		return nil
	}
	return x.Items
}

func (x *StartCheckoutRequest) GetAmount() decimal.Decimal {
	if x == nil {
		return decimal.Zero
	}
	return x.Amount
}

func (x *StartCheckoutRequest) GetDescription() string {
	if x == nil {
		return ""
	}
	return x.Description
}

func (x *StartCheckoutRequest) GetCustomerName() string {
	if x == nil {
		return ""
	}
	return x.CustomerName
}

func (x *StartCheckoutRequest) GetCustomerEmail() string {
	if x == nil {
		return ""
	}
	return x.CustomerEmail
}

func (x *StartCheckoutRequest) GetCustomerPhone() string {
	if x == nil {
		return ""
	}
	return x.CustomerPhone
}

func (x *StartCheckoutRequest) GetStatusCallbackUrl() string {
	if x == nil {
		return ""
	}
	return x.StatusCallbackUrl
}

func (x *StartCheckoutRequest) GetMetadata() map[string]string {
	if x == nil {
		return nil
	}
	return x.Metadata
}

type GetCheckoutRequest struct {
	Id uint64 `json:"id"`
}

func (x *GetCheckoutRequest) GetId() uint64 {
	if x == nil {
		return 0
	}
	return x.Id
}

type ListCheckoutsRequest struct {
	RequestId       string         `json:"request_id"`
	CallerService   string         `json:"caller_service"`
	MerchantOrderId string         `json:"merchant_order_id"`
	HasStatus       bool           `json:"has_status"`
	Status          CheckoutStatus `json:"status"`
	Limit           int32          `json:"limit"`
	Offset          int32          `json:"offset"`
}

func (x *ListCheckoutsRequest) GetRequestId() string {
	if x == nil {
		return ""
	}
	return x.RequestId
}

func (x *ListCheckoutsRequest) GetCallerService() string {
	if x == nil {
		return ""
	}
	return x.CallerService
}

func (x *ListCheckoutsRequest) GetMerchantOrderId() string {
	if x == nil {
		return ""
	}
	return x.MerchantOrderId
}

func (x *ListCheckoutsRequest) GetHasStatus() bool {
	if x == nil {
		return false
	}
	return x.HasStatus
}

func (x *ListCheckoutsRequest) GetStatus() CheckoutStatus {
	if x == nil {
		return CheckoutStatus_CHECKOUT_STATUS_UNSPECIFIED
	}
	return x.Status
}

func (x *ListCheckoutsRequest) GetLimit() int32 {
	if x == nil {
		return 0
	}
	return x.Limit
}

func (x *ListCheckoutsRequest) GetOffset() int32 {
	if x == nil {
		return 0
	}
	return x.Offset
}

type AbortCheckoutRequest struct {
	Id     uint64 `json:"id"`
	Reason string `json:"reason"`
}

func (x *AbortCheckoutRequest) GetId() uint64 {
	if x == nil {
		return 0
	}
	return x.Id
}

func (x *AbortCheckoutRequest) GetReason() string {
	if x == nil {
		return ""
	}
	return x.Reason
}

type ReportSurfaceClosedRequest struct {
	Id uint64 `json:"id"`
}

func (x *ReportSurfaceClosedRequest) GetId() uint64 {
	if x == nil {
		return 0
	}
	return x.Id
}

type Checkout struct {
	Id                uint64            `json:"id"`
	RequestId         string            `json:"request_id"`
	CallerService     string            `json:"caller_service"`
	MerchantOrderId   string            `json:"merchant_order_id"`
	Items             []*LineItem       `json:"items"`
	Amount            decimal.Decimal   `json:"amount"`
	Description       string            `json:"description,omitempty"`
	CustomerName      string            `json:"customer_name,omitempty"`
	CustomerEmail     string            `json:"customer_email,omitempty"`
	CustomerPhone     string            `json:"customer_phone,omitempty"`
	Status            CheckoutStatus    `json:"status"`
	StatusName        string            `json:"status_name"`
	PayToken          string            `json:"pay_token,omitempty"`
	PaymentUrl        string            `json:"payment_url,omitempty"`
	SurfaceId         string            `json:"surface_id,omitempty"`
	TransactionId     string            `json:"transaction_id,omitempty"`
	FailureReason     string            `json:"failure_reason,omitempty"`
	CancelReason      string            `json:"cancel_reason,omitempty"`
	StatusCallbackUrl string            `json:"status_callback_url,omitempty"`
	Metadata          map[string]string `json:"metadata"`
	CreatedAt         string            `json:"created_at"`
	UpdatedAt         string            `json:"updated_at"`
	ResolvedAt        string            `json:"resolved_at,omitempty"`
}

func (x *Checkout) GetId() uint64 {
	if x == nil {
		return 0
	}
	return x.Id
}

func (x *Checkout) GetStatus() CheckoutStatus {
	if x == nil {
		return CheckoutStatus_CHECKOUT_STATUS_UNSPECIFIED
	}
	return x.Status
}

func (x *Checkout) GetPaymentUrl() string {
	if x == nil {
		return ""
	}
	return x.PaymentUrl
}

type CheckoutEnvelopeResponse struct {
	Checkout *Checkout `json:"checkout"`
}

func (x *CheckoutEnvelopeResponse) GetCheckout() *Checkout {
	if x == nil {
		return nil
	}
	return x.Checkout
}

type ListCheckoutsResponse struct {
	Checkouts []*Checkout `json:"checkouts"`
}

func (x *ListCheckoutsResponse) GetCheckouts() []*Checkout {
	if x == nil {
		return nil
	}
	return x.Checkouts
}
