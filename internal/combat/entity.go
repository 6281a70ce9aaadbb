package combat

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/annel0/drill-dungeon/internal/physics"
	"github.com/annel0/drill-dungeon/internal/vec"
	"github.com/annel0/drill-dungeon/internal/world"
)

// DefaultOwnerDepth — глубина обхода цепочки владельцев по умолчанию
const DefaultOwnerDepth = 8

var (
	// ErrEntityExists возвращается при повторной регистрации сущности
	ErrEntityExists = errors.New("сущность уже зарегистрирована")
	// ErrInvalidEntityID возвращается для нулевого идентификатора
	ErrInvalidEntityID = errors.New("идентификатор сущности должен быть > 0")
)

// Entity — живая сущность, по которой могут попасть снаряды
type Entity struct {
	ID        ID                  `json:"id"`
	Owner     ID                  `json:"owner,omitempty"` // Родитель в цепочке «выпущен кем»
	Position  vec.Vec2Float       `json:"position"`
	Collider  physics.BoxCollider `json:"collider"`
	Health    int                 `json:"health"`
	MaxHealth int                 `json:"max_health"`
	Shielded  bool                `json:"shielded"`
}

// Alive возвращает true, пока у сущности есть здоровье
func (e *Entity) Alive() bool {
	return e.Health > 0
}

// Bounds возвращает прямоугольник сущности
func (e *Entity) Bounds() physics.Rect {
	return e.Collider.Bounds(e.Position)
}

// Registry хранит живые сущности слоя и их пространственный индекс
type Registry struct {
	mu       sync.RWMutex
	entities map[ID]*Entity
	index    *world.SpatialIndex
	maxDepth int
}

// NewRegistry создаёт реестр. cellSize — размер ячейки пространственного хеша.
func NewRegistry(cellSize float64, maxOwnerDepth int) *Registry {
	if maxOwnerDepth <= 0 {
		maxOwnerDepth = DefaultOwnerDepth
	}
	return &Registry{
		entities: make(map[ID]*Entity),
		index:    world.NewSpatialIndex(cellSize),
		maxDepth: maxOwnerDepth,
	}
}

// Add регистрирует сущность
func (r *Registry) Add(e *Entity) error {
	if e.ID == NoOwner {
		return ErrInvalidEntityID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entities[e.ID]; exists {
		return fmt.Errorf("%w: %d", ErrEntityExists, e.ID)
	}
	r.entities[e.ID] = e
	r.index.Insert(uint64(e.ID), e.Bounds())
	return nil
}

// Get возвращает сущность по ID
func (r *Registry) Get(id ID) (*Entity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entities[id]
	return e, ok
}

// Remove удаляет сущность
func (r *Registry) Remove(id ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entities, id)
	r.index.Remove(uint64(id))
}

// Move перемещает сущность и обновляет индекс
func (r *Registry) Move(id ID, pos vec.Vec2Float) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entities[id]
	if !ok {
		return false
	}
	e.Position = pos
	r.index.Update(uint64(id), e.Bounds())
	return true
}

// Len возвращает число зарегистрированных сущностей
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entities)
}

// All возвращает сущности в порядке возрастания ID
func (r *Registry) All() []*Entity {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Entity, 0, len(r.entities))
	for _, e := range r.entities {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Overlapping возвращает живые сущности, пересекающие rect, по возрастанию ID
func (r *Registry) Overlapping(rect physics.Rect) []*Entity {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.index.QueryRect(rect)
	out := make([]*Entity, 0, len(ids))
	for _, id := range ids {
		e, ok := r.entities[ID(id)]
		if ok && e.Alive() {
			out = append(out, e)
		}
	}
	return out
}

// IsAncestor проверяет, входит ли candidate в цепочку владельцев,
// начинающуюся с from (from тоже считается). Обход ограничен глубиной реестра,
// поэтому циклы в цепочке не приводят к зависанию.
func (r *Registry) IsAncestor(candidate, from ID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	current := from
	for depth := 0; depth <= r.maxDepth && current != NoOwner; depth++ {
		if current == candidate {
			return true
		}
		e, ok := r.entities[current]
		if !ok {
			return false
		}
		current = e.Owner
	}
	return false
}

// MaxOwnerDepth возвращает предельную глубину цепочки владельцев
func (r *Registry) MaxOwnerDepth() int {
	return r.maxDepth
}
