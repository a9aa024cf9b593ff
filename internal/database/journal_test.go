package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"handover/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJournal(t *testing.T) *Journal {
	t.Helper()
	journal, err := NewJournal(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { journal.Close() })
	return journal
}

func TestJournalEnqueue(t *testing.T) {
	journal := newTestJournal(t)
	ctx := context.Background()

	task := &models.NotificationTask{RequestID: "r1", Payload: `{"item_id":"X"}`}
	require.NoError(t, journal.Enqueue(ctx, task))

	assert.NotZero(t, task.ID)
	assert.Equal(t, models.NotifyStatusPending, task.Status)
	assert.False(t, task.CreatedAt.IsZero())

	pending, err := journal.Pending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "r1", pending[0].RequestID)
	assert.Equal(t, `{"item_id":"X"}`, pending[0].Payload)
}

func TestJournalLifecycle(t *testing.T) {
	journal := newTestJournal(t)
	ctx := context.Background()

	delivered := &models.NotificationTask{RequestID: "r1", Payload: "{}"}
	retried := &models.NotificationTask{RequestID: "r2", Payload: "{}"}
	failed := &models.NotificationTask{RequestID: "r3", Payload: "{}"}
	for _, task := range []*models.NotificationTask{delivered, retried, failed} {
		require.NoError(t, journal.Enqueue(ctx, task))
	}

	require.NoError(t, journal.MarkDelivered(ctx, delivered.ID))
	require.NoError(t, journal.MarkRetry(ctx, retried.ID, "timeout", time.Now().Add(-time.Second)))
	require.NoError(t, journal.MarkFailed(ctx, failed.ID, "chat not found"))

	// Delivered and failed tasks leave the pending queue; a retry whose
	// time has come is picked up again.
	pending, err := journal.Pending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "r2", pending[0].RequestID)
	assert.Equal(t, models.NotifyStatusRetry, pending[0].Status)
	assert.Equal(t, 1, pending[0].RetryCount)
	assert.Equal(t, "timeout", pending[0].LastError)

	deadLetters, err := journal.Failed(ctx)
	require.NoError(t, err)
	require.Len(t, deadLetters, 1)
	assert.Equal(t, "r3", deadLetters[0].RequestID)
	assert.Equal(t, "chat not found", deadLetters[0].LastError)
}

func TestJournalRetryNotDueYet(t *testing.T) {
	journal := newTestJournal(t)
	ctx := context.Background()

	task := &models.NotificationTask{RequestID: "r1", Payload: "{}"}
	require.NoError(t, journal.Enqueue(ctx, task))
	require.NoError(t, journal.MarkRetry(ctx, task.ID, "timeout", time.Now().Add(time.Hour)))

	pending, err := journal.Pending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestJournalPendingLimit(t *testing.T) {
	journal := newTestJournal(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, journal.Enqueue(ctx, &models.NotificationTask{RequestID: "r", Payload: "{}"}))
	}

	pending, err := journal.Pending(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, pending, 3)
}

func TestJournalSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	ctx := context.Background()

	journal, err := NewJournal(path)
	require.NoError(t, err)
	require.NoError(t, journal.Enqueue(ctx, &models.NotificationTask{RequestID: "r1", Payload: "{}"}))
	require.NoError(t, journal.Close())

	reopened, err := NewJournal(path)
	require.NoError(t, err)
	defer reopened.Close()

	pending, err := reopened.Pending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "r1", pending[0].RequestID)
}
