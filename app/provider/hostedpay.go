package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-checkout/app/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	endpointCreateInvoice   = "invoice/create"
	endpointInitiatePayment = "payment/paynow"
	endpointCheckStatus     = "payment/status"
)

type HostedPayConfig struct {
	BaseURL      string
	AppReference string
	Secret       string
	AppID        string
	HTTPTimeout  time.Duration
}

type HostedPayClient struct {
	baseURL     string
	credentials merchantCredentials
	client      *http.Client
	tracer      trace.Tracer
	metrics     *metrics.Metrics
}

func NewHostedPayClient(cfg HostedPayConfig, m *metrics.Metrics) *HostedPayClient {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL != "" && !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	return &HostedPayClient{
		baseURL: baseURL,
		credentials: merchantCredentials{
			AppReference: cfg.AppReference,
			Secret:       cfg.Secret,
			AppID:        cfg.AppID,
		},
		client:  &http.Client{Timeout: timeout},
		tracer:  otel.Tracer("github.com/vibast-solutions/ms-go-checkout/app/provider"),
		metrics: m,
	}
}

// merchantCredentials travel inside every request body.
type merchantCredentials struct {
	AppReference string `json:"app_reference"`
	Secret       string `json:"secret"`
	AppID        string `json:"app_id"`
}

func (m *merchantCredentials) sign(creds merchantCredentials) {
	*m = creds
}

type signable interface {
	sign(creds merchantCredentials)
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type wireLineItem struct {
	Name       string      `json:"name"`
	Quantity   int32       `json:"quantity"`
	UnitPrice  json.Number `json:"unit_price"`
	TotalPrice json.Number `json:"total_price"`
}

type createInvoiceBody struct {
	merchantCredentials
	MerchantOrderID string         `json:"merchant_order_id"`
	Amount          json.Number    `json:"amount"`
	Items           []wireLineItem `json:"items"`
	Description     string         `json:"description"`
	CustomerName    string         `json:"customer_name"`
	CustomerEmail   string         `json:"customer_email"`
	CustomerPhone   string         `json:"customer_phone"`
}

type initiatePaymentBody struct {
	merchantCredentials
	PayToken      string      `json:"pay_token"`
	Amount        json.Number `json:"amount"`
	CustomerName  string      `json:"customer_name"`
	CustomerEmail string      `json:"customer_email"`
	CustomerPhone string      `json:"customer_phone"`
}

type checkStatusBody struct {
	merchantCredentials
	PayToken string `json:"pay_token"`
}

func (c *HostedPayClient) CreateInvoice(ctx context.Context, req *InvoiceRequest) (*Invoice, error) {
	if req == nil {
		return nil, errors.New("invoice request is required")
	}

	items := make([]wireLineItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, wireLineItem{
			Name:       item.Name,
			Quantity:   item.Quantity,
			UnitPrice:  decimalNumber(item.UnitPrice),
			TotalPrice: decimalNumber(item.TotalPrice),
		})
	}

	body := &createInvoiceBody{
		MerchantOrderID: req.MerchantOrderID,
		Amount:          decimalNumber(req.Amount),
		Items:           items,
		Description:     req.Description,
		CustomerName:    req.Customer.Name,
		CustomerEmail:   req.Customer.Email,
		CustomerPhone:   req.Customer.Phone,
	}

	data, err := c.postJSON(ctx, endpointCreateInvoice, body, "invoice creation failed")
	if err != nil {
		return nil, err
	}

	var payload struct {
		PayToken string          `json:"pay_token"`
		Amount   decimal.Decimal `json:"amount"`
	}
	if len(data) == 0 || json.Unmarshal(data, &payload) != nil {
		return nil, fmt.Errorf("%w: invoice response has no data", ErrProviderRejected)
	}
	if strings.TrimSpace(payload.PayToken) == "" {
		return nil, fmt.Errorf("%w: invoice response has no pay_token", ErrProviderRejected)
	}

	amount := payload.Amount
	if amount.IsZero() {
		amount = req.Amount
	}

	return &Invoice{
		PayToken: strings.TrimSpace(payload.PayToken),
		Amount:   amount,
	}, nil
}

func (c *HostedPayClient) InitiatePayment(ctx context.Context, payToken string, amount decimal.Decimal, customer Customer) (*Initiation, error) {
	body := &initiatePaymentBody{
		PayToken:      payToken,
		Amount:        decimalNumber(amount),
		CustomerName:  customer.Name,
		CustomerEmail: customer.Email,
		CustomerPhone: customer.Phone,
	}

	data, err := c.postJSON(ctx, endpointInitiatePayment, body, "payment initiation failed")
	if err != nil {
		return nil, err
	}

	var payload struct {
		PaymentURL string `json:"payment_url"`
	}
	if len(data) == 0 || json.Unmarshal(data, &payload) != nil {
		return nil, fmt.Errorf("%w: payment response has no data", ErrProviderRejected)
	}
	if strings.TrimSpace(payload.PaymentURL) == "" {
		return nil, fmt.Errorf("%w: payment response has no payment_url", ErrProviderRejected)
	}

	return &Initiation{PaymentURL: strings.TrimSpace(payload.PaymentURL)}, nil
}

func (c *HostedPayClient) CheckStatus(ctx context.Context, payToken string) (*StatusSnapshot, error) {
	data, err := c.postJSON(ctx, endpointCheckStatus, &checkStatusBody{PayToken: payToken}, "status check failed")
	if err != nil {
		return nil, err
	}

	var payload struct {
		Status        *int   `json:"status"`
		TransactionID string `json:"transaction_id"`
	}
	if len(data) == 0 || json.Unmarshal(data, &payload) != nil {
		return nil, fmt.Errorf("%w: status response has no data", ErrProviderRejected)
	}
	if payload.Status == nil {
		return nil, fmt.Errorf("%w: status response has no status", ErrProviderRejected)
	}

	return &StatusSnapshot{
		Status:        *payload.Status,
		TransactionID: strings.TrimSpace(payload.TransactionID),
		Payload:       append(json.RawMessage(nil), data...),
	}, nil
}

// postJSON signs body with the merchant credentials, posts it and returns the
// data member of a successful envelope.
func (c *HostedPayClient) postJSON(ctx context.Context, endpoint string, body signable, fallbackMsg string) (data json.RawMessage, err error) {
	ctx, span := c.tracer.Start(ctx, "provider."+endpoint, trace.WithSpanKind(trace.SpanKindClient))
	start := time.Now()
	defer func() {
		result := "ok"
		switch {
		case errors.Is(err, ErrProviderRejected):
			result = "rejected"
		case err != nil:
			result = "error"
		}
		c.metrics.ObserveProviderCall(endpoint, result, time.Since(start))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	span.SetAttributes(attribute.String("provider.endpoint", endpoint))

	if c.baseURL == "" {
		return nil, errors.New("provider base url is not configured")
	}

	body.sign(c.credentials)
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s read response failed: %w", endpoint, err)
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode >= 400 {
		if decodeErr == nil && strings.TrimSpace(env.Message) != "" {
			return nil, fmt.Errorf("%w: %s", ErrProviderRejected, strings.TrimSpace(env.Message))
		}
		return nil, fmt.Errorf("%s request failed: status=%d body=%s", endpoint, resp.StatusCode, truncateBody(raw))
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("%s invalid response: %w", endpoint, decodeErr)
	}
	if !env.Success {
		msg := strings.TrimSpace(env.Message)
		if msg == "" {
			msg = fallbackMsg
		}
		return nil, fmt.Errorf("%w: %s", ErrProviderRejected, msg)
	}
	if string(env.Data) == "null" {
		return nil, nil
	}

	return env.Data, nil
}

func decimalNumber(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

func truncateBody(raw []byte) string {
	const max = 512
	if len(raw) <= max {
		return string(raw)
	}
	return string(raw[:max])
}
