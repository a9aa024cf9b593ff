package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"handover/internal/database"
	"handover/internal/metrics"
	"handover/internal/models"
	"handover/internal/worker"

	"github.com/rs/zerolog"
)

// Dispatcher journals notifications and drains the journal in the background.
// Dispatch never blocks on delivery; a slow or broken transport only delays
// the notification itself.
type Dispatcher struct {
	journal      *database.Journal
	transport    Transport
	retryPolicy  worker.RetryPolicy
	queue        chan struct{}
	pollInterval time.Duration
	batchSize    int
	logger       zerolog.Logger
}

// NewDispatcher builds a dispatcher with sane defaults. A nil transport means
// notifications are disabled: Dispatch becomes a logged no-op and the worker
// never runs.
func NewDispatcher(journal *database.Journal, transport Transport, retry worker.RetryPolicy, logger *zerolog.Logger) *Dispatcher {
	if retry.MaxRetries == 0 {
		retry.MaxRetries = 5
	}
	if retry.InitialDelay == 0 {
		retry.InitialDelay = 2 * time.Second
	}
	if retry.MaxDelay == 0 {
		retry.MaxDelay = time.Minute
	}
	if retry.BackoffFactor == 0 {
		retry.BackoffFactor = 2
	}

	base := zerolog.Nop()
	if logger != nil {
		base = logger.With().Str("component", "notify").Logger()
	}

	return &Dispatcher{
		journal:      journal,
		transport:    transport,
		retryPolicy:  retry,
		queue:        make(chan struct{}, models.NotifyQueueSize),
		pollInterval: 2 * time.Second,
		batchSize:    models.DefaultJournalBatchSize,
		logger:       base,
	}
}

// Enabled reports whether a transport is configured.
func (d *Dispatcher) Enabled() bool {
	return d.transport != nil
}

// Dispatch persists the notification and wakes the worker. Errors are
// journal-level only; they never concern the submission outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, payload models.NotificationPayload) error {
	if !d.Enabled() {
		d.logger.Debug().Str("request_id", payload.RequestID).Msg("notifications disabled, skipping")
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode notification payload: %w", err)
	}

	task := models.NotificationTask{
		RequestID: payload.RequestID,
		Payload:   string(raw),
	}
	if err := d.journal.Enqueue(ctx, &task); err != nil {
		return fmt.Errorf("journal notification: %w", err)
	}

	select {
	case d.queue <- struct{}{}:
	default:
		// Worker is already busy; the poll loop will pick the task up.
	}

	return nil
}

// Start launches the delivery loop; stops when ctx is done.
func (d *Dispatcher) Start(ctx context.Context) {
	if !d.Enabled() {
		return
	}

	d.logger.Info().Msg("notification worker started")
	defer d.logger.Info().Msg("notification worker stopped")

	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-d.queue:
			d.drain(ctx)
		case <-ticker.C:
			d.drain(ctx)
		}
	}
}

func (d *Dispatcher) drain(ctx context.Context) {
	tasks, err := d.journal.Pending(ctx, d.batchSize)
	if err != nil {
		d.logger.Error().Err(err).Msg("failed to read pending notifications")
		return
	}

	for i := range tasks {
		if ctx.Err() != nil {
			return
		}
		d.deliver(ctx, &tasks[i])
	}
}

func (d *Dispatcher) deliver(ctx context.Context, task *models.NotificationTask) {
	var payload models.NotificationPayload
	if err := json.Unmarshal([]byte(task.Payload), &payload); err != nil {
		d.logger.Error().Err(err).Int64("task_id", task.ID).Msg("corrupt notification payload")
		_ = d.journal.MarkFailed(ctx, task.ID, err.Error())
		metrics.IncNotifyFailure()
		return
	}

	err := d.transport.Deliver(ctx, payload)
	if err == nil {
		if err := d.journal.MarkDelivered(ctx, task.ID); err != nil {
			d.logger.Error().Err(err).Int64("task_id", task.ID).Msg("failed to mark notification delivered")
		}
		return
	}

	attempt := task.RetryCount + 1
	if attempt >= d.retryPolicy.MaxRetries {
		d.logger.Error().Err(err).
			Int64("task_id", task.ID).
			Str("request_id", task.RequestID).
			Msg("notification dead-lettered")
		_ = d.journal.MarkFailed(ctx, task.ID, err.Error())
		metrics.IncNotifyFailure()
		return
	}

	nextRetryAt := time.Now().Add(d.retryPolicy.NextDelay(attempt))
	d.logger.Warn().Err(err).
		Int64("task_id", task.ID).
		Int("attempt", attempt).
		Time("next_retry_at", nextRetryAt).
		Msg("notification delivery failed, will retry")
	_ = d.journal.MarkRetry(ctx, task.ID, err.Error(), nextRetryAt)
}
