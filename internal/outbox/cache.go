package outbox

import (
	"sync"

	"hospital-service/internal/models"
)

// Cache keeps the last known slot array per doctor so reads can be served
// while the store is unreachable.
type Cache struct {
	mu    sync.RWMutex
	slots map[string][]models.TimeSlot
}

func NewCache() *Cache {
	return &Cache{slots: make(map[string][]models.TimeSlot)}
}

func (c *Cache) Put(doctorID string, slots []models.TimeSlot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slots[doctorID] = append([]models.TimeSlot{}, slots...)
}

func (c *Cache) Get(doctorID string) ([]models.TimeSlot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s, ok := c.slots[doctorID]
	if !ok {
		return nil, false
	}
	return append([]models.TimeSlot{}, s...), true
}
