package repository

import (
	"context"
	"sort"
	"sync"

	"handover/internal/domain"
	"handover/internal/models"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store with the same transactional contract as
// the Redis store. Transactions are serialized by a mutex, so they never
// conflict; a callback error still aborts with no partial writes. Used in
// tests and for single-process deployments without Redis.
type MemoryStore struct {
	mu       sync.Mutex
	items    map[string]*models.Item
	requests map[string]map[string]*models.Request
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items:    make(map[string]*models.Item),
		requests: make(map[string]map[string]*models.Request),
	}
}

func copyItem(item *models.Item) *models.Item {
	c := *item
	return &c
}

func copyRequest(req *models.Request) *models.Request {
	c := *req
	return &c
}

func (s *MemoryStore) GetItem(ctx context.Context, id string) (*models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return nil, ErrItemNotFound
	}
	return copyItem(item), nil
}

func (s *MemoryStore) PutItem(ctx context.Context, item *models.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[item.ID] = copyItem(item)
	return nil
}

func (s *MemoryStore) ListItems(ctx context.Context) ([]*models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]*models.Item, 0, len(s.items))
	for _, item := range s.items {
		items = append(items, copyItem(item))
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

func (s *MemoryStore) GetRequest(ctx context.Context, itemID, requestID string) (*models.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[itemID][requestID]
	if !ok {
		return nil, ErrRequestNotFound
	}
	return copyRequest(req), nil
}

func (s *MemoryStore) ListRequests(ctx context.Context, itemID string) ([]*models.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	requests := make([]*models.Request, 0, len(s.requests[itemID]))
	for _, req := range s.requests[itemID] {
		requests = append(requests, copyRequest(req))
	}
	sort.Slice(requests, func(i, j int) bool {
		if requests[i].SubmittedAt.Equal(requests[j].SubmittedAt) {
			return requests[i].ID < requests[j].ID
		}
		return requests[i].SubmittedAt.Before(requests[j].SubmittedAt)
	})
	return requests, nil
}

func (s *MemoryStore) NewRequestID() string {
	return uuid.NewString()
}

func (s *MemoryStore) InTx(ctx context.Context, itemID string, requestIDs []string, fn func(tx domain.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[itemID]
	if !ok {
		return ErrItemNotFound
	}

	requests := make(map[string]*models.Request, len(requestIDs))
	for _, id := range requestIDs {
		if req, ok := s.requests[itemID][id]; ok {
			requests[id] = copyRequest(req)
		}
	}

	tx := &bufferedTx{item: copyItem(item), requests: requests}
	if err := fn(tx); err != nil {
		return err
	}

	if tx.itemWrite != nil {
		s.items[tx.itemWrite.ID] = copyItem(tx.itemWrite)
	}
	for _, req := range tx.requestWrites {
		if s.requests[req.ItemID] == nil {
			s.requests[req.ItemID] = make(map[string]*models.Request)
		}
		s.requests[req.ItemID][req.ID] = copyRequest(req)
	}
	return nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
