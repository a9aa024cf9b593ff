package export

import (
	"bytes"
	"context"
	"testing"
	"time"

	"handover/internal/domain"
	"handover/internal/models"
	"handover/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestRequestsWorkbook(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()

	require.NoError(t, store.PutItem(ctx, &models.Item{
		ID: "X", Name: "Armchair", Status: models.ItemStatusAvailable, CreatedAt: time.Now(),
	}))
	require.NoError(t, store.InTx(ctx, "X", nil, func(tx domain.Tx) error {
		tx.PutRequest(&models.Request{
			ID:               "r1",
			ItemID:           "X",
			RequesterName:    "A",
			RequesterAddress: "Main St",
			RequesterPhone:   "555-0100",
			Status:           models.RequestStatusPending,
			SubmittedAt:      time.Date(2026, 2, 3, 10, 30, 0, 0, time.UTC),
		})
		return nil
	}))

	data, err := RequestsWorkbook(ctx, store)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(requestsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, requestHeaders, rows[0])
	assert.Equal(t, []string{
		"r1", "Armchair", "A", "Main St", "555-0100", "pending", "2026-02-03 10:30:00",
	}, rows[1])
}

func TestRequestsWorkbookEmptyStore(t *testing.T) {
	data, err := RequestsWorkbook(context.Background(), repository.NewMemoryStore())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(requestsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 1) // header only
}
