package models

import "time"

// NotificationPayload is the summary handed to the notification transport
// after a successful submission.
type NotificationPayload struct {
	RequestID        string `json:"request_id"`
	ItemID           string `json:"item_id"`
	ItemName         string `json:"item_name"`
	RequesterName    string `json:"requester_name"`
	RequesterAddress string `json:"requester_address"`
	RequesterPhone   string `json:"requester_phone"`
}

// NotificationTask is a journaled delivery attempt. Tasks survive restarts;
// delivery is best effort and never blocks a submission.
type NotificationTask struct {
	ID          int64      `json:"id"`
	RequestID   string     `json:"request_id"`
	Payload     string     `json:"payload"`
	Status      string     `json:"status"` // pending, retry, delivered, failed
	RetryCount  int        `json:"retry_count"`
	LastError   string     `json:"last_error"`
	CreatedAt   time.Time  `json:"created_at"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	NextRetryAt *time.Time `json:"next_retry_at,omitempty"`
}

const (
	NotifyStatusPending   = "pending"
	NotifyStatusRetry     = "retry"
	NotifyStatusDelivered = "delivered"
	NotifyStatusFailed    = "failed"
)
