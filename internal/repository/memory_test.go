package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"handover/internal/domain"
	"handover/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreItems(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.GetItem(ctx, "missing")
	assert.ErrorIs(t, err, ErrItemNotFound)

	item := testItem("A", 3)
	require.NoError(t, store.PutItem(ctx, item))

	got, err := store.GetItem(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.RequestCount)

	// Mutating the returned copy must not leak into the store.
	got.RequestCount = 100
	again, err := store.GetItem(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, int64(3), again.RequestCount)
}

func TestMemoryStoreInTx(t *testing.T) {
	ctx := context.Background()

	t.Run("CommitsBufferedWrites", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.PutItem(ctx, testItem("X", 0)))

		err := store.InTx(ctx, "X", nil, func(tx domain.Tx) error {
			item := tx.Item()
			item.RequestCount++
			tx.PutItem(item)
			tx.PutRequest(&models.Request{
				ID: "r1", ItemID: "X", Status: models.RequestStatusPending,
				SubmittedAt: time.Now(),
			})
			return nil
		})
		require.NoError(t, err)

		item, err := store.GetItem(ctx, "X")
		require.NoError(t, err)
		assert.Equal(t, int64(1), item.RequestCount)

		req, err := store.GetRequest(ctx, "X", "r1")
		require.NoError(t, err)
		assert.Equal(t, models.RequestStatusPending, req.Status)
	})

	t.Run("CallbackErrorAbortsWithoutWrites", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.PutItem(ctx, testItem("X", 7)))

		boom := errors.New("boom")
		err := store.InTx(ctx, "X", nil, func(tx domain.Tx) error {
			item := tx.Item()
			item.RequestCount = 99
			tx.PutItem(item)
			tx.PutRequest(&models.Request{ID: "r1", ItemID: "X"})
			return boom
		})
		assert.ErrorIs(t, err, boom)

		item, err := store.GetItem(ctx, "X")
		require.NoError(t, err)
		assert.Equal(t, int64(7), item.RequestCount)

		_, err = store.GetRequest(ctx, "X", "r1")
		assert.ErrorIs(t, err, ErrRequestNotFound)
	})

	t.Run("MissingItem", func(t *testing.T) {
		store := NewMemoryStore()
		err := store.InTx(ctx, "ghost", nil, func(tx domain.Tx) error {
			t.Fatal("callback must not run for a missing item")
			return nil
		})
		assert.ErrorIs(t, err, ErrItemNotFound)
	})

	t.Run("LoadsNamedRequests", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.PutItem(ctx, testItem("X", 1)))
		require.NoError(t, store.InTx(ctx, "X", nil, func(tx domain.Tx) error {
			tx.PutRequest(&models.Request{ID: "r1", ItemID: "X", Status: models.RequestStatusPending})
			return nil
		}))

		err := store.InTx(ctx, "X", []string{"r1", "absent"}, func(tx domain.Tx) error {
			require.NotNil(t, tx.Request("r1"))
			assert.Nil(t, tx.Request("absent"))
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("SerializedUnderConcurrency", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.PutItem(ctx, testItem("X", 0)))

		const numGoroutines = 100
		var wg sync.WaitGroup
		wg.Add(numGoroutines)
		for i := 0; i < numGoroutines; i++ {
			go func() {
				defer wg.Done()
				err := store.InTx(ctx, "X", nil, func(tx domain.Tx) error {
					item := tx.Item()
					item.RequestCount++
					tx.PutItem(item)
					return nil
				})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		item, err := store.GetItem(ctx, "X")
		require.NoError(t, err)
		assert.Equal(t, int64(numGoroutines), item.RequestCount)
	})
}
