package world

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/annel0/drill-dungeon/internal/physics"
	"github.com/annel0/drill-dungeon/internal/vec"
)

// SpatialIndex — пространственный хеш для быстрого поиска подвижных объектов
// (сущностей, снарядов) по прямоугольнику.
type SpatialIndex struct {
	cellSize float64
	mu       sync.RWMutex
	cells    map[cellKey]map[uint64]struct{}
	items    map[uint64]*indexedItem
}

// cellKey представляет ключ ячейки в пространственной сетке
type cellKey struct {
	x, y int
}

// indexedItem представляет индексированный объект
type indexedItem struct {
	bounds physics.Rect
	cells  []cellKey
}

// NewSpatialIndex создаёт новый пространственный индекс
func NewSpatialIndex(cellSize float64) *SpatialIndex {
	if cellSize <= 0 {
		cellSize = 64.0 // Размер ячейки по умолчанию
	}

	return &SpatialIndex{
		cellSize: cellSize,
		cells:    make(map[cellKey]map[uint64]struct{}),
		items:    make(map[uint64]*indexedItem),
	}
}

// Insert добавляет объект в индекс или обновляет его границы
func (si *SpatialIndex) Insert(id uint64, bounds physics.Rect) {
	si.mu.Lock()
	defer si.mu.Unlock()

	if _, exists := si.items[id]; exists {
		si.removeLocked(id)
	}

	item := &indexedItem{
		bounds: bounds,
		cells:  si.cellsForBounds(bounds),
	}
	for _, key := range item.cells {
		cell, ok := si.cells[key]
		if !ok {
			cell = make(map[uint64]struct{})
			si.cells[key] = cell
		}
		cell[id] = struct{}{}
	}
	si.items[id] = item
}

// Update обновляет позицию объекта в индексе
func (si *SpatialIndex) Update(id uint64, bounds physics.Rect) {
	si.Insert(id, bounds)
}

// Remove удаляет объект из индекса
func (si *SpatialIndex) Remove(id uint64) {
	si.mu.Lock()
	defer si.mu.Unlock()
	si.removeLocked(id)
}

func (si *SpatialIndex) removeLocked(id uint64) {
	item, exists := si.items[id]
	if !exists {
		return
	}
	delete(si.items, id)

	for _, key := range item.cells {
		if cell, ok := si.cells[key]; ok {
			delete(cell, id)
			if len(cell) == 0 {
				delete(si.cells, key)
			}
		}
	}
}

// QueryRect возвращает объекты, строго пересекающие прямоугольник.
// Результат отсортирован по возрастанию ID.
func (si *SpatialIndex) QueryRect(rect physics.Rect) []uint64 {
	si.mu.RLock()
	defer si.mu.RUnlock()

	seen := make(map[uint64]struct{})
	result := make([]uint64, 0)
	for _, key := range si.cellsForBounds(rect) {
		for id := range si.cells[key] {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			if si.items[id].bounds.Overlaps(rect) {
				result = append(result, id)
			}
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

// QueryRange возвращает объекты, центр которых не дальше radius от точки
func (si *SpatialIndex) QueryRange(center vec.Vec2Float, radius float64) []uint64 {
	rect := physics.Rect{
		MinX: center.X - radius,
		MinY: center.Y - radius,
		MaxX: center.X + radius,
		MaxY: center.Y + radius,
	}

	si.mu.RLock()
	defer si.mu.RUnlock()

	seen := make(map[uint64]struct{})
	result := make([]uint64, 0)
	for _, key := range si.cellsForBounds(rect) {
		for id := range si.cells[key] {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			if si.items[id].bounds.Center().DistanceTo(center) <= radius {
				result = append(result, id)
			}
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

// Len возвращает количество индексированных объектов
func (si *SpatialIndex) Len() int {
	si.mu.RLock()
	defer si.mu.RUnlock()
	return len(si.items)
}

// GetStats возвращает статистику индекса
func (si *SpatialIndex) GetStats() string {
	si.mu.RLock()
	defer si.mu.RUnlock()

	total, maxPerCell := 0, 0
	for _, cell := range si.cells {
		total += len(cell)
		if len(cell) > maxPerCell {
			maxPerCell = len(cell)
		}
	}
	avg := 0.0
	if len(si.cells) > 0 {
		avg = float64(total) / float64(len(si.cells))
	}

	return fmt.Sprintf("SpatialIndex Stats: %d items, %d cells, avg %.2f items/cell, max %d items/cell",
		len(si.items), len(si.cells), avg, maxPerCell)
}

// cellsForBounds возвращает ключи ячеек, которые пересекаются с границами
func (si *SpatialIndex) cellsForBounds(bounds physics.Rect) []cellKey {
	minX := int(math.Floor(bounds.MinX / si.cellSize))
	minY := int(math.Floor(bounds.MinY / si.cellSize))
	maxX := int(math.Floor(bounds.MaxX / si.cellSize))
	maxY := int(math.Floor(bounds.MaxY / si.cellSize))

	cells := make([]cellKey, 0, (maxX-minX+1)*(maxY-minY+1))
	for x := minX; x <= maxX; x++ {
		for y := minY; y <= maxY; y++ {
			cells = append(cells, cellKey{x: x, y: y})
		}
	}
	return cells
}
