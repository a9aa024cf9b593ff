package models

import "time"

type Request struct {
	ID               string    `json:"id"`
	ItemID           string    `json:"item_id"`
	RequesterName    string    `json:"requester_name"`
	RequesterAddress string    `json:"requester_address"`
	RequesterPhone   string    `json:"requester_phone"`
	Status           string    `json:"status"` // pending, approved, rejected, withdrawn
	SubmittedAt      time.Time `json:"submitted_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Active reports whether the request still counts against the item's
// request counter.
func (r *Request) Active() bool {
	return r.Status != RequestStatusWithdrawn
}

// SubmissionPayload is the raw, untrusted form input for a new request.
type SubmissionPayload struct {
	ItemID           string `json:"item_id"`
	RequesterName    string `json:"requester_name"`
	RequesterAddress string `json:"requester_address"`
	RequesterPhone   string `json:"requester_phone"`
}

// SubmissionResult is the uniform outcome shape handed back to callers.
// Message is always populated, success or failure. Outcome is for internal
// consumers (transport status mapping, metrics) and is not serialized.
type SubmissionResult struct {
	Success   bool   `json:"success"`
	RequestID string `json:"request_id,omitempty"`
	Message   string `json:"message"`
	Outcome   string `json:"-"`
}

const (
	OutcomeSuccess          = "success"
	OutcomeValidationFailed = "validation_failed"
	OutcomeItemNotFound     = "item_not_found"
	OutcomeConflict         = "conflict"
	OutcomeStoreUnavailable = "store_unavailable"
)
