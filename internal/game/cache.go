package game

import (
	"fmt"
	"sync"

	"github.com/annel0/drill-dungeon/internal/storage"
)

// LayerCache хранит снимки соседних слоёв.
// Реализации: storage.LayerStash, cache.RedisLayerCache и память процесса.
type LayerCache interface {
	Put(slot storage.Slot, snap *storage.Snapshot) error
	Get(slot storage.Slot) (*storage.Snapshot, error)
	Drop(slot storage.Slot) error
	Has(slot storage.Slot) bool
}

// memoryCache — кэш без сжатия, когда хранилище слоёв выключено
type memoryCache struct {
	mu    sync.Mutex
	slots map[storage.Slot]*storage.Snapshot
}

func newMemoryCache() *memoryCache {
	return &memoryCache{slots: make(map[storage.Slot]*storage.Snapshot)}
}

func (c *memoryCache) Put(slot storage.Slot, snap *storage.Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slots[slot] = snap
	return nil
}

func (c *memoryCache) Get(slot storage.Slot) (*storage.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap, ok := c.slots[slot]
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrSlotEmpty, slot)
	}
	return snap, nil
}

func (c *memoryCache) Drop(slot storage.Slot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.slots, slot)
	return nil
}

func (c *memoryCache) Has(slot storage.Slot) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.slots[slot]
	return ok
}
