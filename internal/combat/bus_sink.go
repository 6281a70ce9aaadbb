package combat

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/annel0/drill-dungeon/internal/eventbus"
	"github.com/annel0/drill-dungeon/internal/logging"
)

// BusSource — имя источника событий столкновений в шине
const BusSource = "combat"

// BusSink публикует события столкновений в шину событий.
// Ошибки публикации только логируются: тик не зависит от доставки.
type BusSink struct {
	bus   eventbus.EventBus
	layer func() int
	ctx   context.Context
}

// NewBusSink создаёт приёмник. layer возвращает текущую глубину слоя.
func NewBusSink(ctx context.Context, bus eventbus.EventBus, layer func() int) *BusSink {
	if layer == nil {
		layer = func() int { return 0 }
	}
	return &BusSink{bus: bus, layer: layer, ctx: ctx}
}

// Emit упаковывает событие в Envelope и публикует его
func (s *BusSink) Emit(ev CollisionEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		logging.GetCombatLogger().Error("BusSink: не удалось сериализовать событие %s: %v", ev.Kind, err)
		return
	}

	env := &eventbus.Envelope{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Source:    BusSource,
		EventType: ev.Kind.String(),
		Version:   1,
		Tick:      ev.Tick,
		Layer:     s.layer(),
		Priority:  priorityFor(ev.Kind),
		Payload:   payload,
		Metadata: map[string]string{
			"actor": strconv.FormatUint(uint64(ev.Actor), 10),
		},
	}

	if err := s.bus.Publish(s.ctx, env); err != nil {
		logging.GetCombatLogger().Warn("BusSink: ошибка публикации %s: %v", env.EventType, err)
	}
}

// Урон и начисление ресурсов важнее визуальных эффектов
func priorityFor(kind EventKind) int {
	switch kind {
	case EventEntityDamaged, EventResourceGranted, EventBlockDestroyed:
		return 7
	case EventShieldImpact, EventImpact:
		return 4
	default:
		return 1
	}
}
