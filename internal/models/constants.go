package models

const (
	ItemStatusAvailable = "available"
	ItemStatusReserved  = "reserved"
	ItemStatusDelivered = "delivered"
)

const (
	RequestStatusPending   = "pending"
	RequestStatusApproved  = "approved"
	RequestStatusRejected  = "rejected"
	RequestStatusWithdrawn = "withdrawn"
)

const (
	// DefaultSubmitAttempts is the transaction retry budget for one submission.
	DefaultSubmitAttempts = 3

	// DefaultSubmitTimeout bounds a single submission end to end.
	DefaultSubmitTimeout = 10 // seconds

	// DefaultJournalBatchSize is how many pending notifications the worker
	// picks up per poll.
	DefaultJournalBatchSize = 20

	// NotifyQueueSize is the in-memory wake-up queue size for the
	// notification worker.
	NotifyQueueSize = 128
)
