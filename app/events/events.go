package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/segmentio/kafka-go"
	"github.com/vibast-solutions/ms-go-checkout/app/metrics"
	"github.com/vibast-solutions/ms-go-checkout/config"
)

const (
	DriverNone  = "none"
	DriverKafka = "kafka"
	DriverNATS  = "nats"
)

// StateChanged is emitted whenever a checkout moves between statuses.
type StateChanged struct {
	CheckoutID      uint64    `json:"checkout_id"`
	MerchantOrderID string    `json:"merchant_order_id"`
	CallerService   string    `json:"caller_service"`
	State           string    `json:"state"`
	PreviousState   string    `json:"previous_state"`
	Reason          string    `json:"reason,omitempty"`
	TransactionID   string    `json:"transaction_id,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

type Publisher interface {
	Publish(ctx context.Context, event StateChanged) error
	Close() error
}

func New(cfg config.EventsConfig, m *metrics.Metrics) (Publisher, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", DriverNone:
		return NoopPublisher{}, nil
	case DriverKafka:
		if len(cfg.KafkaBrokers) == 0 {
			return nil, fmt.Errorf("KAFKA_BROKERS is required for events driver %q", DriverKafka)
		}
		writer := &kafka.Writer{
			Addr:     kafka.TCP(cfg.KafkaBrokers...),
			Topic:    cfg.KafkaTopic,
			Balancer: &kafka.LeastBytes{},
		}
		return NewKafkaPublisher(writer, m), nil
	case DriverNATS:
		if strings.TrimSpace(cfg.NATSURL) == "" {
			return nil, fmt.Errorf("NATS_URL is required for events driver %q", DriverNATS)
		}
		nc, err := nats.Connect(cfg.NATSURL, nats.Name("checkout-service"))
		if err != nil {
			return nil, err
		}
		return NewNATSPublisher(nc, cfg.NATSSubject, m), nil
	default:
		return nil, fmt.Errorf("unsupported events driver %q", cfg.Driver)
	}
}

type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, StateChanged) error { return nil }

func (NoopPublisher) Close() error { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer  messageWriter
	metrics *metrics.Metrics
}

func NewKafkaPublisher(writer messageWriter, m *metrics.Metrics) *KafkaPublisher {
	return &KafkaPublisher{writer: writer, metrics: m}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event StateChanged) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.MerchantOrderID),
		Value: payload,
	})
	p.metrics.EventPublished(DriverKafka, err)
	return err
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

type natsConn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

type NATSPublisher struct {
	conn    natsConn
	subject string
	metrics *metrics.Metrics
}

func NewNATSPublisher(conn natsConn, subject string, m *metrics.Metrics) *NATSPublisher {
	if strings.TrimSpace(subject) == "" {
		subject = "checkout.state.changed"
	}
	return &NATSPublisher{conn: conn, subject: subject, metrics: m}
}

func (p *NATSPublisher) Publish(_ context.Context, event StateChanged) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	err = p.conn.Publish(p.subject, payload)
	p.metrics.EventPublished(DriverNATS, err)
	return err
}

func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}
