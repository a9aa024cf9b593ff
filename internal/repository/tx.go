package repository

import "handover/internal/models"

// bufferedTx collects writes made by a transaction callback. Nothing is
// visible to other readers until the owning store commits the buffer.
type bufferedTx struct {
	item     *models.Item
	requests map[string]*models.Request

	itemWrite     *models.Item
	requestWrites []*models.Request
}

func (t *bufferedTx) Item() *models.Item {
	return t.item
}

func (t *bufferedTx) Request(id string) *models.Request {
	return t.requests[id]
}

func (t *bufferedTx) PutItem(item *models.Item) {
	t.itemWrite = item
}

func (t *bufferedTx) PutRequest(req *models.Request) {
	t.requestWrites = append(t.requestWrites, req)
}
