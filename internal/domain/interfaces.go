package domain

import (
	"context"

	"handover/internal/models"
)

// Tx is the view inside a store transaction. Reads reflect the state the
// transaction observed; writes are buffered and applied atomically on commit.
type Tx interface {
	Item() *models.Item
	Request(id string) *models.Request
	PutItem(item *models.Item)
	PutRequest(req *models.Request)
}

// Store exposes document reads/writes and transactions over the items and
// requests collections. It deliberately has no bare counter operation: the
// request counter only moves inside InTx, together with the request write.
type Store interface {
	GetItem(ctx context.Context, id string) (*models.Item, error)
	PutItem(ctx context.Context, item *models.Item) error
	ListItems(ctx context.Context) ([]*models.Item, error)

	GetRequest(ctx context.Context, itemID, requestID string) (*models.Request, error)
	ListRequests(ctx context.Context, itemID string) ([]*models.Request, error)

	// NewRequestID assigns a collision-free request identifier.
	NewRequestID() string

	// InTx runs fn against the item document and the named request documents.
	// Concurrent transactions touching the same item are serialized; a losing
	// commit surfaces ErrTxConflict and nothing is applied. An error from fn
	// aborts the transaction with no partial writes.
	InTx(ctx context.Context, itemID string, requestIDs []string, fn func(tx Tx) error) error

	Ping(ctx context.Context) error
	Close() error
}

// Dispatcher accepts a notification for best-effort, out-of-band delivery.
type Dispatcher interface {
	Dispatch(ctx context.Context, payload models.NotificationPayload) error
}

// EventPublisher fans domain events out to in-process subscribers.
type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// AuthorizationPolicy answers capability checks for privileged operations.
type AuthorizationPolicy interface {
	IsPrivileged(identity string) bool
}
