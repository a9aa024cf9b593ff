package service

import (
	"context"
	"errors"
	"time"

	"handover/internal/domain"
	"handover/internal/events"
	"handover/internal/metrics"
	"handover/internal/models"
	"handover/internal/repository"
	"handover/internal/worker"

	"github.com/rs/zerolog"
)

// User-facing result messages. Every outcome carries one.
const (
	msgSubmitted        = "Your request has been submitted."
	msgItemNotFound     = "This item is no longer available."
	msgConflict         = "The item is receiving a lot of requests right now. Please try again."
	msgStoreUnavailable = "We could not record your request right now. Please try again later."
	msgWithdrawn        = "The request has been withdrawn."
)

// SubmissionService is the only writer of requests and request counters. The
// request write and the counter increment always commit in one store
// transaction; there is no non-transactional path.
type SubmissionService struct {
	store         domain.Store
	dispatcher    domain.Dispatcher
	eventBus      domain.EventPublisher
	retryPolicy   worker.RetryPolicy
	submitTimeout time.Duration
	logger        zerolog.Logger
	clock         func() time.Time
}

func NewSubmissionService(
	store domain.Store,
	dispatcher domain.Dispatcher,
	eventBus domain.EventPublisher,
	attempts int,
	backoff worker.RetryPolicy,
	submitTimeout time.Duration,
	logger *zerolog.Logger,
) *SubmissionService {
	if attempts <= 0 {
		attempts = models.DefaultSubmitAttempts
	}
	if submitTimeout <= 0 {
		submitTimeout = models.DefaultSubmitTimeout * time.Second
	}
	backoff.MaxRetries = attempts
	if backoff.InitialDelay == 0 {
		backoff.InitialDelay = 50 * time.Millisecond
	}
	if backoff.MaxDelay == 0 {
		backoff.MaxDelay = time.Second
	}
	if backoff.BackoffFactor == 0 {
		backoff.BackoffFactor = 2
	}

	base := zerolog.Nop()
	if logger != nil {
		base = logger.With().Str("component", "submission").Logger()
	}

	return &SubmissionService{
		store:         store,
		dispatcher:    dispatcher,
		eventBus:      eventBus,
		retryPolicy:   backoff,
		submitTimeout: submitTimeout,
		logger:        base,
		clock:         time.Now,
	}
}

// Submit validates the payload, then creates the request and increments the
// item's counter in a single transaction, retrying bounded times on conflict.
// The notification dispatch happens after commit and is never awaited.
func (s *SubmissionService) Submit(ctx context.Context, payload models.SubmissionPayload) models.SubmissionResult {
	normalized, verr := ValidateSubmission(payload)
	if verr != nil {
		metrics.IncSubmission(models.OutcomeValidationFailed)
		return models.SubmissionResult{Success: false, Message: verr.Error(), Outcome: models.OutcomeValidationFailed}
	}

	ctx, cancel := context.WithTimeout(ctx, s.submitTimeout)
	defer cancel()

	for attempt := 1; ; attempt++ {
		var created *models.Request
		var itemName string

		err := s.store.InTx(ctx, normalized.ItemID, nil, func(tx domain.Tx) error {
			item := tx.Item()
			now := s.clock().UTC()

			created = &models.Request{
				ID:               s.store.NewRequestID(),
				ItemID:           item.ID,
				RequesterName:    normalized.RequesterName,
				RequesterAddress: normalized.RequesterAddress,
				RequesterPhone:   normalized.RequesterPhone,
				Status:           models.RequestStatusPending,
				SubmittedAt:      now,
				UpdatedAt:        now,
			}

			item.RequestCount++
			item.UpdatedAt = now
			itemName = item.Name

			tx.PutItem(item)
			tx.PutRequest(created)
			return nil
		})

		switch {
		case err == nil:
			metrics.IncSubmission(models.OutcomeSuccess)
			s.logger.Info().
				Str("request_id", created.ID).
				Str("item_id", created.ItemID).
				Int("attempt", attempt).
				Msg("request submitted")
			s.afterCommit(created, itemName, normalized)
			return models.SubmissionResult{Success: true, RequestID: created.ID, Message: msgSubmitted, Outcome: models.OutcomeSuccess}

		case errors.Is(err, repository.ErrItemNotFound):
			metrics.IncSubmission(models.OutcomeItemNotFound)
			return models.SubmissionResult{Success: false, Message: msgItemNotFound, Outcome: models.OutcomeItemNotFound}

		case errors.Is(err, repository.ErrTxConflict):
			if attempt >= s.retryPolicy.MaxRetries {
				metrics.IncSubmission(models.OutcomeConflict)
				s.logger.Warn().
					Str("item_id", normalized.ItemID).
					Int("attempts", attempt).
					Msg("submission conflict retries exhausted")
				return models.SubmissionResult{Success: false, Message: msgConflict, Outcome: models.OutcomeConflict}
			}
			metrics.IncConflictRetry()
			if !s.backoff(ctx, attempt) {
				metrics.IncSubmission(models.OutcomeStoreUnavailable)
				return models.SubmissionResult{Success: false, Message: msgStoreUnavailable, Outcome: models.OutcomeStoreUnavailable}
			}

		default:
			metrics.IncSubmission(models.OutcomeStoreUnavailable)
			s.logger.Error().Err(err).
				Str("item_id", normalized.ItemID).
				Msg("submission failed")
			return models.SubmissionResult{Success: false, Message: msgStoreUnavailable, Outcome: models.OutcomeStoreUnavailable}
		}
	}
}

// Withdraw transitions a pending request to withdrawn and decrements the
// counter in the same transaction, keeping the invariant intact. Withdrawing
// an already-withdrawn request is a no-op.
func (s *SubmissionService) Withdraw(ctx context.Context, itemID, requestID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.submitTimeout)
	defer cancel()

	for attempt := 1; ; attempt++ {
		var withdrawn *models.Request
		var itemName string

		err := s.store.InTx(ctx, itemID, []string{requestID}, func(tx domain.Tx) error {
			req := tx.Request(requestID)
			if req == nil {
				return repository.ErrRequestNotFound
			}
			if req.Status == models.RequestStatusWithdrawn {
				return nil
			}

			item := tx.Item()
			now := s.clock().UTC()

			req.Status = models.RequestStatusWithdrawn
			req.UpdatedAt = now
			item.RequestCount--
			item.UpdatedAt = now
			itemName = item.Name
			withdrawn = req

			tx.PutItem(item)
			tx.PutRequest(req)
			return nil
		})

		switch {
		case err == nil:
			if withdrawn != nil {
				s.logger.Info().
					Str("request_id", requestID).
					Str("item_id", itemID).
					Msg("request withdrawn")
				s.publishEvent(events.EventRequestWithdrawn, withdrawn, itemName)
			}
			return nil

		case errors.Is(err, repository.ErrTxConflict):
			if attempt >= s.retryPolicy.MaxRetries {
				return repository.ErrTxConflict
			}
			if !s.backoff(ctx, attempt) {
				return ctx.Err()
			}

		default:
			return err
		}
	}
}

// backoff sleeps for the attempt's delay; false when the context expired.
func (s *SubmissionService) backoff(ctx context.Context, attempt int) bool {
	timer := time.NewTimer(s.retryPolicy.NextDelay(attempt))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// afterCommit runs the advisory side effects. They never influence the
// result already returned to the caller.
func (s *SubmissionService) afterCommit(req *models.Request, itemName string, payload models.SubmissionPayload) {
	s.publishEvent(events.EventRequestSubmitted, req, itemName)

	if s.dispatcher == nil {
		return
	}

	notification := models.NotificationPayload{
		RequestID:        req.ID,
		ItemID:           req.ItemID,
		ItemName:         itemName,
		RequesterName:    payload.RequesterName,
		RequesterAddress: payload.RequesterAddress,
		RequesterPhone:   payload.RequesterPhone,
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.dispatcher.Dispatch(ctx, notification); err != nil {
			s.logger.Error().Err(err).
				Str("request_id", req.ID).
				Msg("notification dispatch failed")
		}
	}()
}

func (s *SubmissionService) publishEvent(eventType string, req *models.Request, itemName string) {
	if s.eventBus == nil {
		return
	}

	err := s.eventBus.PublishJSON(eventType, events.RequestEventPayload{
		RequestID:     req.ID,
		ItemID:        req.ItemID,
		ItemName:      itemName,
		RequesterName: req.RequesterName,
		Status:        req.Status,
		SubmittedAt:   req.SubmittedAt,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("event", eventType).Msg("failed to publish event")
	}
}
