// Package queue holds events awaiting a human decision. Items are
// lightweight snapshots, never full envelopes, so memory stays bounded
// regardless of payload size.
package queue

import (
	"sync"

	"github.com/samber/lo"

	"github.com/vburojevic/hookd/internal/domain"
)

// Queue is an ordered holding area of pending items.
type Queue struct {
	mu    sync.Mutex
	items []domain.QueueItem
}

// New creates an empty queue.
func New() *Queue {
	return &Queue{}
}

// Enqueue appends an item.
func (q *Queue) Enqueue(item domain.QueueItem) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, item)
}

// RemoveByID removes the item with the given request id, returning it and
// whether it was present.
func (q *Queue) RemoveByID(requestID string) (domain.QueueItem, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, it := range q.items {
		if it.RequestID == requestID {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return it, true
		}
	}
	return domain.QueueItem{}, false
}

// RemoveAll removes every item whose request id appears in ids, returning
// how many were removed.
func (q *Queue) RemoveAll(ids []string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	before := len(q.items)
	drop := lo.SliceToMap(ids, func(id string) (string, struct{}) { return id, struct{}{} })
	q.items = lo.Reject(q.items, func(it domain.QueueItem, _ int) bool {
		_, ok := drop[it.RequestID]
		return ok
	})
	return before - len(q.items)
}

// Peek returns the head item plus the count of items behind it. ok is false
// when the queue is empty.
func (q *Queue) Peek() (head domain.QueueItem, trailing int, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return domain.QueueItem{}, 0, false
	}
	return q.items[0], len(q.items) - 1, true
}

// Len returns the number of pending items.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Items returns a copy of the pending items in order.
func (q *Queue) Items() []domain.QueueItem {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]domain.QueueItem, len(q.items))
	copy(out, q.items)
	return out
}

// Manager groups the two holding areas.
type Manager struct {
	Permission *Queue
	Question   *Queue
}

// NewManager creates empty permission and question queues.
func NewManager() *Manager {
	return &Manager{Permission: New(), Question: New()}
}
