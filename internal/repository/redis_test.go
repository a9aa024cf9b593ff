package repository

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"handover/internal/domain"
	"handover/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	s, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(s.Close)

	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client), s
}

func testItem(id string, count int64) *models.Item {
	return &models.Item{
		ID:           id,
		Name:         "Armchair",
		Description:  "Green, lightly used",
		Status:       models.ItemStatusAvailable,
		RequestCount: count,
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
	}
}

func TestRedisStoreItems(t *testing.T) {
	store, _ := newRedisTestStore(t)
	ctx := context.Background()

	t.Run("RoundTrip", func(t *testing.T) {
		item := testItem("A", 5)
		require.NoError(t, store.PutItem(ctx, item))

		got, err := store.GetItem(ctx, "A")
		require.NoError(t, err)
		assert.Equal(t, item.ID, got.ID)
		assert.Equal(t, item.Name, got.Name)
		assert.Equal(t, int64(5), got.RequestCount)
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := store.GetItem(ctx, "missing")
		assert.ErrorIs(t, err, ErrItemNotFound)
	})

	t.Run("ListSortedByCreation", func(t *testing.T) {
		older := testItem("B", 0)
		older.CreatedAt = older.CreatedAt.Add(-time.Hour)
		require.NoError(t, store.PutItem(ctx, older))

		items, err := store.ListItems(ctx)
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, "B", items[0].ID)
		assert.Equal(t, "A", items[1].ID)
	})
}

func TestRedisStoreRequests(t *testing.T) {
	store, _ := newRedisTestStore(t)
	ctx := context.Background()

	_, err := store.GetRequest(ctx, "X", "missing")
	assert.ErrorIs(t, err, ErrRequestNotFound)

	requests, err := store.ListRequests(ctx, "X")
	require.NoError(t, err)
	assert.Empty(t, requests)
}

func TestRedisStoreInTx(t *testing.T) {
	ctx := context.Background()

	t.Run("CommitsItemAndRequestTogether", func(t *testing.T) {
		store, _ := newRedisTestStore(t)
		require.NoError(t, store.PutItem(ctx, testItem("X", 0)))

		var requestID string
		err := store.InTx(ctx, "X", nil, func(tx domain.Tx) error {
			item := tx.Item()
			item.RequestCount++

			requestID = store.NewRequestID()
			tx.PutItem(item)
			tx.PutRequest(&models.Request{
				ID:          requestID,
				ItemID:      "X",
				Status:      models.RequestStatusPending,
				SubmittedAt: time.Now().UTC(),
			})
			return nil
		})
		require.NoError(t, err)

		item, err := store.GetItem(ctx, "X")
		require.NoError(t, err)
		assert.Equal(t, int64(1), item.RequestCount)

		req, err := store.GetRequest(ctx, "X", requestID)
		require.NoError(t, err)
		assert.Equal(t, models.RequestStatusPending, req.Status)

		requests, err := store.ListRequests(ctx, "X")
		require.NoError(t, err)
		require.Len(t, requests, 1)
		assert.Equal(t, requestID, requests[0].ID)
	})

	t.Run("MissingItem", func(t *testing.T) {
		store, _ := newRedisTestStore(t)
		err := store.InTx(ctx, "ghost", nil, func(tx domain.Tx) error {
			t.Fatal("callback must not run for a missing item")
			return nil
		})
		assert.ErrorIs(t, err, ErrItemNotFound)
	})

	t.Run("CallbackErrorAbortsWithoutWrites", func(t *testing.T) {
		store, _ := newRedisTestStore(t)
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

		requests, err := store.ListRequests(ctx, "X")
		require.NoError(t, err)
		assert.Empty(t, requests)
	})

	t.Run("ConcurrentWriteConflicts", func(t *testing.T) {
		store, srv := newRedisTestStore(t)
		require.NoError(t, store.PutItem(ctx, testItem("X", 0)))

		outer := redis.NewClient(&redis.Options{Addr: srv.Addr()})
		defer outer.Close()

		// The watched item key changes between the read and EXEC, so the
		// transaction must fail and apply nothing.
		err := store.InTx(ctx, "X", nil, func(tx domain.Tx) error {
			item := tx.Item()
			item.RequestCount++

			stolen := *item
			stolen.RequestCount = 40
			data, merr := json.Marshal(&stolen)
			require.NoError(t, merr)
			require.NoError(t, outer.Set(ctx, itemKey("X"), data, 0).Err())

			tx.PutItem(item)
			tx.PutRequest(&models.Request{ID: "r1", ItemID: "X"})
			return nil
		})
		assert.ErrorIs(t, err, ErrTxConflict)

		item, err := store.GetItem(ctx, "X")
		require.NoError(t, err)
		assert.Equal(t, int64(40), item.RequestCount)

		requests, err := store.ListRequests(ctx, "X")
		require.NoError(t, err)
		assert.Empty(t, requests)
	})

	t.Run("WatchesNamedRequests", func(t *testing.T) {
		store, srv := newRedisTestStore(t)
		require.NoError(t, store.PutItem(ctx, testItem("X", 1)))

		require.NoError(t, store.InTx(ctx, "X", nil, func(tx domain.Tx) error {
			tx.PutRequest(&models.Request{
				ID: "r1", ItemID: "X", Status: models.RequestStatusPending,
			})
			return nil
		}))

		outer := redis.NewClient(&redis.Options{Addr: srv.Addr()})
		defer outer.Close()

		err := store.InTx(ctx, "X", []string{"r1"}, func(tx domain.Tx) error {
			req := tx.Request("r1")
			require.NotNil(t, req)
			req.Status = models.RequestStatusWithdrawn

			// Touch the watched request key from outside.
			data, merr := json.Marshal(&models.Request{
				ID: "r1", ItemID: "X", Status: models.RequestStatusApproved,
			})
			require.NoError(t, merr)
			require.NoError(t, outer.Set(ctx, requestKey("X", "r1"), data, 0).Err())

			tx.PutRequest(req)
			return nil
		})
		assert.ErrorIs(t, err, ErrTxConflict)

		req, err := store.GetRequest(ctx, "X", "r1")
		require.NoError(t, err)
		assert.Equal(t, models.RequestStatusApproved, req.Status)
	})
}
