package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"handover/internal/config"
	"handover/internal/domain"
	"handover/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const itemsSetKey = "items"

func itemKey(id string) string {
	return fmt.Sprintf("item:%s", id)
}

func requestKey(itemID, requestID string) string {
	return fmt.Sprintf("request:%s:%s", itemID, requestID)
}

func itemRequestsKey(itemID string) string {
	return fmt.Sprintf("item:%s:requests", itemID)
}

// RedisStore keeps items and requests as JSON documents and coordinates
// concurrent submissions with WATCH/MULTI/EXEC optimistic transactions.
type RedisStore struct {
	client *redis.Client
}

// NewRedisClient создает новый клиент Redis на основе конфигурации
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	options := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}

	return redis.NewClient(options)
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) GetItem(ctx context.Context, id string) (*models.Item, error) {
	data, err := s.client.Get(ctx, itemKey(id)).Result()
	if err == redis.Nil {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item %s: %w", id, err)
	}

	var item models.Item
	if err := json.Unmarshal([]byte(data), &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal item %s: %w", id, err)
	}
	return &item, nil
}

func (s *RedisStore) PutItem(ctx context.Context, item *models.Item) error {
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal item %s: %w", item.ID, err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, itemKey(item.ID), data, 0)
	pipe.SAdd(ctx, itemsSetKey, item.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to put item %s: %w", item.ID, err)
	}
	return nil
}

func (s *RedisStore) ListItems(ctx context.Context) ([]*models.Item, error) {
	ids, err := s.client.SMembers(ctx, itemsSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	if len(ids) == 0 {
		return []*models.Item{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.Get(ctx, itemKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to fetch items: %w", err)
	}

	items := make([]*models.Item, 0, len(ids))
	for _, cmd := range cmds {
		data, err := cmd.Result()
		if err != nil {
			if err == redis.Nil {
				continue
			}
			return nil, fmt.Errorf("failed to fetch item: %w", err)
		}
		var item models.Item
		if err := json.Unmarshal([]byte(data), &item); err != nil {
			return nil, fmt.Errorf("failed to unmarshal item: %w", err)
		}
		items = append(items, &item)
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

func (s *RedisStore) GetRequest(ctx context.Context, itemID, requestID string) (*models.Request, error) {
	data, err := s.client.Get(ctx, requestKey(itemID, requestID)).Result()
	if err == redis.Nil {
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get request %s: %w", requestID, err)
	}

	var req models.Request
	if err := json.Unmarshal([]byte(data), &req); err != nil {
		return nil, fmt.Errorf("failed to unmarshal request %s: %w", requestID, err)
	}
	return &req, nil
}

func (s *RedisStore) ListRequests(ctx context.Context, itemID string) ([]*models.Request, error) {
	ids, err := s.client.SMembers(ctx, itemRequestsKey(itemID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list requests for item %s: %w", itemID, err)
	}
	if len(ids) == 0 {
		return []*models.Request{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.Get(ctx, requestKey(itemID, id))
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to fetch requests for item %s: %w", itemID, err)
	}

	requests := make([]*models.Request, 0, len(ids))
	for _, cmd := range cmds {
		data, err := cmd.Result()
		if err != nil {
			if err == redis.Nil {
				continue
			}
			return nil, fmt.Errorf("failed to fetch request: %w", err)
		}
		var req models.Request
		if err := json.Unmarshal([]byte(data), &req); err != nil {
			return nil, fmt.Errorf("failed to unmarshal request: %w", err)
		}
		requests = append(requests, &req)
	}

	sort.Slice(requests, func(i, j int) bool {
		if requests[i].SubmittedAt.Equal(requests[j].SubmittedAt) {
			return requests[i].ID < requests[j].ID
		}
		return requests[i].SubmittedAt.Before(requests[j].SubmittedAt)
	})
	return requests, nil
}

func (s *RedisStore) NewRequestID() string {
	return uuid.NewString()
}

// InTx reads the item (and any named requests) under WATCH, runs fn, then
// applies the buffered writes in a MULTI/EXEC block. A concurrent commit on
// the same item fails EXEC and surfaces ErrTxConflict with nothing applied.
func (s *RedisStore) InTx(ctx context.Context, itemID string, requestIDs []string, fn func(tx domain.Tx) error) error {
	keys := make([]string, 0, len(requestIDs)+1)
	keys = append(keys, itemKey(itemID))
	for _, id := range requestIDs {
		keys = append(keys, requestKey(itemID, id))
	}

	err := s.client.Watch(ctx, func(rtx *redis.Tx) error {
		data, err := rtx.Get(ctx, itemKey(itemID)).Result()
		if err == redis.Nil {
			return ErrItemNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to read item %s in tx: %w", itemID, err)
		}
		var item models.Item
		if err := json.Unmarshal([]byte(data), &item); err != nil {
			return fmt.Errorf("failed to unmarshal item %s in tx: %w", itemID, err)
		}

		requests := make(map[string]*models.Request, len(requestIDs))
		for _, id := range requestIDs {
			raw, err := rtx.Get(ctx, requestKey(itemID, id)).Result()
			if err == redis.Nil {
				continue
			}
			if err != nil {
				return fmt.Errorf("failed to read request %s in tx: %w", id, err)
			}
			var req models.Request
			if err := json.Unmarshal([]byte(raw), &req); err != nil {
				return fmt.Errorf("failed to unmarshal request %s in tx: %w", id, err)
			}
			requests[id] = &req
		}

		tx := &bufferedTx{item: &item, requests: requests}
		if err := fn(tx); err != nil {
			return err
		}

		_, err = rtx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if tx.itemWrite != nil {
				data, err := json.Marshal(tx.itemWrite)
				if err != nil {
					return fmt.Errorf("failed to marshal item %s: %w", tx.itemWrite.ID, err)
				}
				pipe.Set(ctx, itemKey(tx.itemWrite.ID), data, 0)
			}
			for _, req := range tx.requestWrites {
				data, err := json.Marshal(req)
				if err != nil {
					return fmt.Errorf("failed to marshal request %s: %w", req.ID, err)
				}
				pipe.Set(ctx, requestKey(req.ItemID, req.ID), data, 0)
				pipe.SAdd(ctx, itemRequestsKey(req.ItemID), req.ID)
			}
			return nil
		})
		return err
	}, keys...)

	if errors.Is(err, redis.TxFailedErr) {
		return ErrTxConflict
	}
	return err
}

func (s *RedisStore) Ping(ctx context.Context) error {
	if _, err := s.client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}
