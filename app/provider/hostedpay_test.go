package provider

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *HostedPayClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewHostedPayClient(HostedPayConfig{
		BaseURL:      server.URL + "/api",
		AppReference: "ref-1",
		Secret:       "s3cret",
		AppID:        "app-9",
	}, nil)
}

func decodeBody(t *testing.T, r *http.Request) map[string]interface{} {
	t.Helper()
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		t.Fatalf("read body failed: %v", err)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("decode body failed: %v", err)
	}
	return body
}

func assertCredentials(t *testing.T, body map[string]interface{}) {
	t.Helper()
	if body["app_reference"] != "ref-1" || body["secret"] != "s3cret" || body["app_id"] != "app-9" {
		t.Fatalf("credentials missing from body: %v", body)
	}
}

func TestCreateInvoiceSendsCredentialsAndItems(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/invoice/create" {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		body := decodeBody(t, r)
		assertCredentials(t, body)
		if body["merchant_order_id"] != "ORDER_123" {
			t.Fatalf("unexpected merchant order id: %v", body["merchant_order_id"])
		}
		if body["amount"] != float64(400) {
			t.Fatalf("expected numeric amount, got %#v", body["amount"])
		}
		items, ok := body["items"].([]interface{})
		if !ok || len(items) != 1 {
			t.Fatalf("unexpected items: %v", body["items"])
		}
		item := items[0].(map[string]interface{})
		if item["name"] != "Full Chicken" || item["quantity"] != float64(2) || item["unit_price"] != float64(200) || item["total_price"] != float64(400) {
			t.Fatalf("unexpected item: %v", item)
		}
		_, _ = w.Write([]byte(`{"success":true,"data":{"pay_token":"tok_abc","amount":400}}`))
	})

	invoice, err := client.CreateInvoice(context.Background(), &InvoiceRequest{
		MerchantOrderID: "ORDER_123",
		Amount:          decimal.NewFromInt(400),
		Items: []LineItem{{
			Name:       "Full Chicken",
			Quantity:   2,
			UnitPrice:  decimal.NewFromInt(200),
			TotalPrice: decimal.NewFromInt(400),
		}},
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if invoice.PayToken != "tok_abc" {
		t.Fatalf("unexpected pay token: %s", invoice.PayToken)
	}
	if !invoice.Amount.Equal(decimal.NewFromInt(400)) {
		t.Fatalf("unexpected amount: %s", invoice.Amount)
	}
}

func TestCreateInvoiceRejectedUsesProviderMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"message":"invalid merchant"}`))
	})

	_, err := client.CreateInvoice(context.Background(), &InvoiceRequest{Amount: decimal.NewFromInt(10)})
	if !errors.Is(err, ErrProviderRejected) {
		t.Fatalf("expected ErrProviderRejected, got %v", err)
	}
	if !strings.Contains(err.Error(), "invalid merchant") {
		t.Fatalf("expected provider message in error, got %v", err)
	}
}

func TestCreateInvoiceRejectedFallsBackToGenericMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false}`))
	})

	_, err := client.CreateInvoice(context.Background(), &InvoiceRequest{Amount: decimal.NewFromInt(10)})
	if !errors.Is(err, ErrProviderRejected) || !strings.Contains(err.Error(), "invoice creation failed") {
		t.Fatalf("expected generic rejection, got %v", err)
	}
}

func TestCreateInvoiceMissingPayToken(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"data":{"amount":400}}`))
	})

	_, err := client.CreateInvoice(context.Background(), &InvoiceRequest{Amount: decimal.NewFromInt(400)})
	if !errors.Is(err, ErrProviderRejected) {
		t.Fatalf("expected ErrProviderRejected, got %v", err)
	}
}

func TestInitiatePaymentReturnsURL(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/payment/paynow" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		body := decodeBody(t, r)
		assertCredentials(t, body)
		if body["pay_token"] != "tok_abc" || body["customer_email"] != "ana@example.com" {
			t.Fatalf("unexpected body: %v", body)
		}
		_, _ = w.Write([]byte(`{"success":true,"data":{"payment_url":"https://pay.example/abc"}}`))
	})

	initiation, err := client.InitiatePayment(context.Background(), "tok_abc", decimal.NewFromInt(400), Customer{Email: "ana@example.com"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if initiation.PaymentURL != "https://pay.example/abc" {
		t.Fatalf("unexpected payment url: %s", initiation.PaymentURL)
	}
}

func TestInitiatePaymentMissingURL(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"data":{}}`))
	})

	_, err := client.InitiatePayment(context.Background(), "tok_abc", decimal.NewFromInt(1), Customer{})
	if !errors.Is(err, ErrProviderRejected) {
		t.Fatalf("expected ErrProviderRejected, got %v", err)
	}
}

func TestCheckStatusKeepsPayload(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body := decodeBody(t, r)
		assertCredentials(t, body)
		if body["pay_token"] != "tok_abc" {
			t.Fatalf("unexpected pay token: %v", body["pay_token"])
		}
		_, _ = w.Write([]byte(`{"success":true,"data":{"status":0,"transaction_id":"tx_789"}}`))
	})

	snapshot, err := client.CheckStatus(context.Background(), "tok_abc")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if snapshot.Status != StatusSuccess || snapshot.TransactionID != "tx_789" {
		t.Fatalf("unexpected snapshot: %+v", snapshot)
	}
	if !strings.Contains(string(snapshot.Payload), "tx_789") {
		t.Fatalf("expected payload to carry transaction id, got %s", snapshot.Payload)
	}
	if !snapshot.Terminal() {
		t.Fatal("expected success snapshot to be terminal")
	}
}

func TestCheckStatusPendingIsNotTerminal(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"data":{"status":99}}`))
	})

	snapshot, err := client.CheckStatus(context.Background(), "tok_abc")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if snapshot.Terminal() {
		t.Fatalf("expected pending snapshot, got %+v", snapshot)
	}
}

func TestHTTPErrorStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`upstream down`))
	})

	_, err := client.CheckStatus(context.Background(), "tok_abc")
	if err == nil || errors.Is(err, ErrProviderRejected) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if !strings.Contains(err.Error(), "status=502") {
		t.Fatalf("expected status in error, got %v", err)
	}
}

func TestMissingBaseURL(t *testing.T) {
	client := NewHostedPayClient(HostedPayConfig{}, nil)
	if _, err := client.CheckStatus(context.Background(), "tok"); err == nil {
		t.Fatal("expected error when base url is missing")
	}
}
