package combat

import (
	"sync"

	"github.com/annel0/drill-dungeon/internal/vec"
	"github.com/annel0/drill-dungeon/internal/world"
)

// EventKind — вид события столкновения
type EventKind uint8

const (
	EventBlockDestroyed  EventKind = iota // Блок разрушен
	EventResourceGranted                  // Ресурс начислен в инвентарь
	EventParticle                         // Частицы материала (уголь, земля, ...)
	EventImpact                           // Удар о неразрушаемый блок
	EventShieldImpact                     // Снаряд поглощён щитом
	EventEntityDamaged                    // Сущность получила урон
	EventSmoke                            // Дым
)

func (k EventKind) String() string {
	switch k {
	case EventBlockDestroyed:
		return "block_destroyed"
	case EventResourceGranted:
		return "resource_granted"
	case EventParticle:
		return "particle"
	case EventImpact:
		return "impact"
	case EventShieldImpact:
		return "shield_impact"
	case EventEntityDamaged:
		return "entity_damaged"
	case EventSmoke:
		return "smoke"
	}
	return "unknown"
}

// MarshalText сериализует вид события по имени
func (k EventKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// CollisionEvent — результат одного срабатывания резолвера
type CollisionEvent struct {
	Kind     EventKind      `json:"kind"`
	Tick     uint64         `json:"tick"`
	Actor    ID             `json:"actor"`
	Block    *world.Block   `json:"block,omitempty"`
	Entity   ID             `json:"entity,omitempty"`
	Material world.Material `json:"material"`
	Position vec.Vec2Float  `json:"position"`
	Damage   int            `json:"damage,omitempty"`
	Amount   int            `json:"amount,omitempty"`
	Killed   bool           `json:"killed,omitempty"`
}

// EventSink потребляет события столкновений
type EventSink interface {
	Emit(ev CollisionEvent)
}

// SinkFunc адаптирует функцию к EventSink
type SinkFunc func(ev CollisionEvent)

// Emit вызывает функцию
func (f SinkFunc) Emit(ev CollisionEvent) { f(ev) }

// SliceSink накапливает события в памяти
type SliceSink struct {
	mu     sync.Mutex
	events []CollisionEvent
}

// Emit добавляет событие
func (s *SliceSink) Emit(ev CollisionEvent) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	s.mu.Unlock()
}

// Events возвращает копию накопленных событий
func (s *SliceSink) Events() []CollisionEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]CollisionEvent, len(s.events))
	copy(out, s.events)
	return out
}

// Drain возвращает накопленные события и очищает буфер
func (s *SliceSink) Drain() []CollisionEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.events
	s.events = nil
	return out
}

// CountKind считает события указанного вида
func (s *SliceSink) CountKind(kind EventKind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, ev := range s.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

// MultiSink рассылает событие всем вложенным приёмникам по порядку
type MultiSink []EventSink

// Emit передаёт событие каждому приёмнику
func (m MultiSink) Emit(ev CollisionEvent) {
	for _, s := range m {
		if s != nil {
			s.Emit(ev)
		}
	}
}
