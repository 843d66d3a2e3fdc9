package events

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type EventType string

const StatusChanged EventType = "transaction.status_changed"

const (
	DriverNone = "none"
	DriverNATS = "nats"
	DriverAMQP = "amqp"
)

// Event is published whenever a transaction's mirrored status changes.
type Event struct {
	Type                 EventType           `json:"type"`
	TransactionID        int64               `json:"transactionId"`
	UserID               int64               `json:"userId"`
	MoonpayTransactionID string              `json:"moonpayTransactionId,omitempty"`
	PreviousStatus       string              `json:"previousStatus"`
	Status               string              `json:"status"`
	CryptoAmount         decimal.NullDecimal `json:"cryptoAmount"`
	Source               string              `json:"source"`
	OccurredAt           time.Time           `json:"occurredAt"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

type Config struct {
	Driver  string
	NATSURL string
	Subject string
	AMQPURL string
}

// New returns the publisher selected by cfg.Driver.
func New(cfg Config) (Publisher, error) {
	switch cfg.Driver {
	case DriverNone, "":
		return Noop{}, nil
	case DriverNATS:
		return NewNATSPublisher(cfg.NATSURL, cfg.Subject)
	case DriverAMQP:
		return NewAMQPPublisher(cfg.AMQPURL)
	default:
		return nil, fmt.Errorf("unknown events driver %q", cfg.Driver)
	}
}

type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close() error                         { return nil }
