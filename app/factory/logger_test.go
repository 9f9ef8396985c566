package factory

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

func TestNewModuleLogger(t *testing.T) {
	logger := NewModuleLogger("checkout-controller")
	if logger == nil {
		t.Fatal("expected logger")
	}
}

func TestLoggerWithContextAddsRequestID(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	logger := LoggerWithContext(NewModuleLogger("checkout-controller"), ctx)
	entry, ok := logger.(*logrus.Entry)
	if !ok {
		t.Fatalf("expected *logrus.Entry, got %T", logger)
	}
	if entry.Data["request_id"] != "req-123" {
		t.Fatalf("expected request_id field, got %v", entry.Data)
	}
}

func TestLoggerFromContextCarriesRequestID(t *testing.T) {
	ctx := ContextWithRequestID(context.Background(), " req-9 ")
	if got := RequestIDFromContext(ctx); got != "req-9" {
		t.Fatalf("expected req-9, got %q", got)
	}

	entry, ok := LoggerFromContext(NewModuleLogger("orchestrator"), ctx).(*logrus.Entry)
	if !ok || entry.Data["request_id"] != "req-9" || entry.Data["module"] != "orchestrator" {
		t.Fatalf("unexpected logger fields: %v", entry)
	}
}

func TestConfigureLoggingRejectsUnknownLevel(t *testing.T) {
	if err := ConfigureLogging("loud", "text"); err == nil {
		t.Fatal("expected error for unknown level")
	}
	if err := ConfigureLogging("info", "json"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	logrus.SetFormatter(&logrus.TextFormatter{})
}
