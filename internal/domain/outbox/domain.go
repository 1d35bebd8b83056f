package outbox

import (
	"context"
	"time"
)

type Status string

const (
	StatusCreated    Status = "CREATED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusSuccess    Status = "SUCCESS"
)

type Kind int

const (
	KindSiteStatusChanged Kind = 1
)

func (k Kind) String() string {
	switch k {
	case KindSiteStatusChanged:
		return "site_status_changed"
	default:
		return "unknown"
	}
}

type Message struct {
	IdempotencyKey string
	Kind           Kind
	Data           []byte
	Status         Status
	CreatedAt      time.Time
	UpdatedAt      time.Time

	// Trace context captured at enqueue time.
	Traceparent string
	Tracestate  string
	Baggage     string
}

type Repository interface {
	// Enqueue joins the transaction carried by ctx, if any, and records the
	// trace context of ctx alongside the message.
	Enqueue(ctx context.Context, key string, kind Kind, data []byte) error

	PickBatch(ctx context.Context, batch int, inProgressTTL time.Duration) ([]Message, error)

	MarkSuccess(ctx context.Context, keys []string) error
}

type KindHandler func(ctx context.Context, data []byte) error

type GlobalHandler func(kind Kind) (KindHandler, error)
