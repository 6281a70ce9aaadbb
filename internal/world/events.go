package world

import (
	"github.com/annel0/drill-dungeon/internal/vec"
)

// EventType определяет тип события мира
type EventType uint8

const (
	EventTypeChunkEntered EventType = iota // Чанк вошёл в окно активации
	EventTypeChunkLeft                     // Чанк покинул окно активации
	EventTypeLayerSwitched                 // Смена слоя
)

func (t EventType) String() string {
	switch t {
	case EventTypeChunkEntered:
		return "chunk_entered"
	case EventTypeChunkLeft:
		return "chunk_left"
	case EventTypeLayerSwitched:
		return "layer_switched"
	}
	return "unknown"
}

// Event представляет собой интерфейс для всех событий
type Event interface {
	GetType() EventType
}

// ChunkEvent представляет событие входа/выхода чанка из окна активации
type ChunkEvent struct {
	EventType EventType     `json:"-"`
	ChunkID   ChunkID       `json:"chunk_id"`
	Center    vec.Vec2Float `json:"center"`
}

// GetType возвращает тип события
func (e ChunkEvent) GetType() EventType {
	return e.EventType
}

// LayerEvent представляет событие смены слоя
type LayerEvent struct {
	FromDepth int  `json:"from_depth"`
	ToDepth   int  `json:"to_depth"`
	Restored  bool `json:"restored"` // Слой восстановлен из кэша, а не сгенерирован
}

// GetType возвращает тип события
func (e LayerEvent) GetType() EventType {
	return EventTypeLayerSwitched
}

// Events превращает изменения окна активации в события чанков
func (d ActivationDiff) Events(index *ChunkIndex) []Event {
	events := make([]Event, 0, len(d.Entered)+len(d.Left))
	for _, id := range d.Entered {
		if chunk, ok := index.Get(id); ok {
			events = append(events, ChunkEvent{EventType: EventTypeChunkEntered, ChunkID: id, Center: chunk.Center})
		}
	}
	for _, id := range d.Left {
		if chunk, ok := index.Get(id); ok {
			events = append(events, ChunkEvent{EventType: EventTypeChunkLeft, ChunkID: id, Center: chunk.Center})
		}
	}
	return events
}
