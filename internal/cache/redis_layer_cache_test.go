package cache

import (
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/drill-dungeon/internal/storage"
	"github.com/annel0/drill-dungeon/internal/vec"
)

func setupTestCache(t *testing.T) (*RedisLayerCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	c, err := NewRedisLayerCache(Config{Addr: mr.Addr(), Prefix: "test:", TTL: time.Minute})
	require.NoError(t, err, "Не удалось подключиться к Redis")
	t.Cleanup(func() { c.Close() })
	return c, mr
}

func testSnapshot() *storage.Snapshot {
	return &storage.Snapshot{
		Depth:     3,
		Seed:      42,
		Rows:      []string{"BBBB", "BDDB", "BccB", "BBBB"},
		Destroyed: []vec.Vec2{{X: 1, Y: 1}},
	}
}

func TestPutTake(t *testing.T) {
	c, mr := setupTestCache(t)
	snap := testSnapshot()

	require.NoError(t, c.Put(storage.SlotAbove, snap))
	assert.True(t, c.Has(storage.SlotAbove))
	assert.True(t, mr.Exists("test:layer:above"), "Ключ содержит префикс и слот")
	assert.Equal(t, time.Minute, mr.TTL("test:layer:above"))

	got, err := c.Take(storage.SlotAbove)
	require.NoError(t, err)
	assert.Equal(t, snap, got)
	assert.False(t, c.Has(storage.SlotAbove), "Take освобождает слот")

	m := c.GetMetrics()
	assert.Equal(t, int64(1), m.Puts)
	assert.Equal(t, int64(1), m.Hits)
	assert.Equal(t, 1.0, m.HitRatio)
}

func TestTakeEmptySlot(t *testing.T) {
	c, _ := setupTestCache(t)

	_, err := c.Take(storage.SlotBelow)
	assert.True(t, errors.Is(err, storage.ErrSlotEmpty))
	assert.Equal(t, int64(1), c.GetMetrics().Misses)
}

func TestSlotsAreIndependent(t *testing.T) {
	c, _ := setupTestCache(t)
	above := testSnapshot()
	below := testSnapshot()
	below.Depth = 5

	require.NoError(t, c.Put(storage.SlotAbove, above))
	require.NoError(t, c.Put(storage.SlotBelow, below))

	got, err := c.Take(storage.SlotBelow)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Depth)
	assert.True(t, c.Has(storage.SlotAbove))
}

func TestGetKeepsSlotAndDrop(t *testing.T) {
	c, mr := setupTestCache(t)
	require.NoError(t, c.Put(storage.SlotBelow, testSnapshot()))

	got, err := c.Get(storage.SlotBelow)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Depth)
	assert.True(t, mr.Exists("test:layer:below"), "Get не удаляет ключ")

	require.NoError(t, c.Drop(storage.SlotBelow))
	assert.False(t, c.Has(storage.SlotBelow))
	assert.NoError(t, c.Drop(storage.SlotBelow), "Drop пустого слота не ошибка")

	_, err = c.Get(storage.SlotBelow)
	assert.ErrorIs(t, err, storage.ErrSlotEmpty)
}

func TestUniquePrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	a, err := NewRedisLayerCache(Config{Addr: mr.Addr()})
	require.NoError(t, err)
	defer a.Close()
	b, err := NewRedisLayerCache(Config{Addr: mr.Addr()})
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, a.Put(storage.SlotAbove, testSnapshot()))
	assert.False(t, b.Has(storage.SlotAbove), "Процессы не делят слоты")
}

func TestCloseRemovesSlots(t *testing.T) {
	mr := miniredis.RunT(t)
	c, err := NewRedisLayerCache(Config{Addr: mr.Addr(), Prefix: "p:"})
	require.NoError(t, err)

	require.NoError(t, c.Put(storage.SlotBelow, testSnapshot()))
	require.NoError(t, c.Close())
	assert.False(t, mr.Exists("p:layer:below"))
}

func TestConnectFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisLayerCache(Config{Addr: addr})
	assert.Error(t, err)
}
