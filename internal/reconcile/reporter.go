package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/fjod/go_cart/cart-client/internal/domain"
)

const EventTypeUnrecorded = "payment_unrecorded"

type Item struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
}

// Event is the record a support operator settles by hand.
type Event struct {
	PaymentID      string    `json:"payment_id"`
	GatewayOrderID string    `json:"gateway_order_id"`
	Signature      string    `json:"signature"`
	AmountMinor    int64     `json:"amount_minor"`
	Currency       string    `json:"currency"`
	Items          []Item    `json:"items"`
	Error          string    `json:"error"`
	OccurredAt     time.Time `json:"occurred_at"`
}

func NewEvent(p domain.UnrecordedPayment) Event {
	items := make([]Item, 0, len(p.Items))
	for _, l := range p.Items {
		items = append(items, Item{
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			Quantity:    l.Quantity,
			UnitPrice:   l.ProductPrice.String(),
		})
	}
	return Event{
		PaymentID:      p.Confirmation.PaymentID,
		GatewayOrderID: p.Confirmation.GatewayOrderID,
		Signature:      p.Confirmation.Signature,
		AmountMinor:    p.AmountMinor,
		Currency:       p.Currency,
		Items:          items,
		Error:          p.Reason,
		OccurredAt:     p.OccurredAt.UTC(),
	}
}

// MessageWriter is the part of kafka.Writer the reporter uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaReporter publishes unrecorded payments for the support team.
type KafkaReporter struct {
	writer  MessageWriter
	timeout time.Duration
	log     logrus.FieldLogger
}

func NewKafkaReporter(log logrus.FieldLogger, topic string, brokers ...string) *KafkaReporter {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &KafkaReporter{writer: w, timeout: 10 * time.Second, log: log}
}

func (r *KafkaReporter) ReportUnrecorded(ctx context.Context, p domain.UnrecordedPayment) error {
	event := NewEvent(p)
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal unrecorded payment: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.GatewayOrderID), // one partition per gateway order
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventTypeUnrecorded)},
		},
	}

	writeCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	if err := r.writer.WriteMessages(writeCtx, msg); err != nil {
		return fmt.Errorf("publish unrecorded payment %s: %w", event.PaymentID, err)
	}
	r.log.WithField("payment_id", event.PaymentID).Info("unrecorded payment reported")
	return nil
}

func (r *KafkaReporter) Close() error {
	return r.writer.Close()
}

// LogReporter records unrecorded payments in the log when no broker is
// configured.
type LogReporter struct {
	log logrus.FieldLogger
}

func NewLogReporter(log logrus.FieldLogger) *LogReporter {
	return &LogReporter{log: log}
}

func (r *LogReporter) ReportUnrecorded(_ context.Context, p domain.UnrecordedPayment) error {
	event := NewEvent(p)
	r.log.WithFields(logrus.Fields{
		"event_type":       EventTypeUnrecorded,
		"payment_id":       event.PaymentID,
		"gateway_order_id": event.GatewayOrderID,
		"amount_minor":     event.AmountMinor,
		"currency":         event.Currency,
		"items":            len(event.Items),
		"reason":           event.Error,
	}).Error("payment taken but order not recorded, manual reconciliation needed")
	return nil
}

func (r *LogReporter) Close() error { return nil }
