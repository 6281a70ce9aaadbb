package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/annel0/drill-dungeon/internal/combat"
	"github.com/annel0/drill-dungeon/internal/dungeon"
	"github.com/annel0/drill-dungeon/internal/eventbus"
	"github.com/annel0/drill-dungeon/internal/logging"
	"github.com/annel0/drill-dungeon/internal/metrics"
	"github.com/annel0/drill-dungeon/internal/observability"
	"github.com/annel0/drill-dungeon/internal/physics"
	"github.com/annel0/drill-dungeon/internal/storage"
	"github.com/annel0/drill-dungeon/internal/vec"
	"github.com/annel0/drill-dungeon/internal/world"
)

// ErrNoLayerAbove возвращается при подъёме, когда слоя выше нет
var ErrNoLayerAbove = errors.New("выше нет сохранённого слоя")

// SourceWorld — источник событий мира в шине
const SourceWorld = "world"

// Deps — внешние зависимости сессии. Все поля необязательны.
type Deps struct {
	Stash   *storage.LayerStash // nil — снимки хранятся в памяти без сжатия
	Cache   LayerCache          // приоритетнее Stash, например Redis
	Bus     eventbus.EventBus
	Metrics *metrics.SimMetrics
	Sink    combat.EventSink // дополнительный приёмник событий столкновений
}

// TickResult — итог одного тика
type TickResult struct {
	Tick   uint64                  `json:"tick"`
	Depth  int                     `json:"depth"`
	Events []combat.CollisionEvent `json:"events"`
	Actors []*combat.Actor         `json:"actors"`
	Active world.ActiveSet         `json:"active"`
	Diff   world.ActivationDiff    `json:"diff"`
}

// Session владеет текущим слоем, его соседями в кэше и циклом тиков.
// Все операции сериализуются мьютексом, тик выполняется целиком.
type Session struct {
	mu sync.Mutex

	opts    Options
	cache   LayerCache
	bus     eventbus.EventBus
	metrics *metrics.SimMetrics
	tracer  trace.Tracer

	layer     *world.Layer
	entities  *combat.Registry
	resolver  *combat.Resolver
	collected combat.SliceSink
	sink      combat.MultiSink

	tick    uint64
	focal   vec.Vec2Float
	pending []*combat.Actor

	generated int
	restored  int
}

// NewSession генерирует слой глубины 0 и ставит фокус в центр мира
func NewSession(ctx context.Context, opts Options, deps Deps) (*Session, error) {
	if err := opts.Base.Validate(); err != nil {
		return nil, err
	}

	s := &Session{
		opts:    opts,
		bus:     deps.Bus,
		metrics: deps.Metrics,
		tracer:  observability.Tracer(),
		focal:   vec.Vec2Float{X: opts.Layer.WorldWidth / 2, Y: opts.Layer.WorldHeight / 2},
	}
	switch {
	case deps.Cache != nil:
		s.cache = deps.Cache
	case deps.Stash != nil:
		s.cache = deps.Stash
	default:
		s.cache = newMemoryCache()
	}

	s.sink = combat.MultiSink{&s.collected}
	if deps.Bus != nil {
		s.sink = append(s.sink, combat.NewBusSink(context.Background(), deps.Bus, s.currentDepth))
	}
	if deps.Metrics != nil {
		s.sink = append(s.sink, deps.Metrics)
	}
	if deps.Sink != nil {
		s.sink = append(s.sink, deps.Sink)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	layer, err := s.generateLayer(ctx, 0)
	if err != nil {
		return nil, err
	}
	s.switchTo(ctx, 0, layer, false, nil, start)
	return s, nil
}

// currentDepth вызывается приёмником шины внутри тика, мьютекс уже захвачен
func (s *Session) currentDepth() int {
	return s.layer.Depth
}

func (s *Session) generateLayer(ctx context.Context, depth int) (*world.Layer, error) {
	_, span := s.tracer.Start(ctx, "layer.generate", trace.WithAttributes(attribute.Int("depth", depth)))
	defer span.End()

	params := s.opts.paramsFor(depth)
	seed := s.opts.seedFor(depth)

	grid, err := dungeon.Generate(params, seed)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("генерация слоя %d: %w", depth, err)
	}
	layer, err := world.BuildLayer(grid, s.opts.Layer)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("сборка слоя %d: %w", depth, err)
	}
	layer.Depth, layer.Seed, layer.Params = depth, seed, params

	span.SetAttributes(attribute.Int("blocks", layer.Blocks.Len()), attribute.Int("chunks", layer.Chunks.Len()))
	return layer, nil
}

// restoreLayer собирает слой заново из снимка и повторяет разрушения
func (s *Session) restoreLayer(ctx context.Context, snap *storage.Snapshot) (*world.Layer, error) {
	_, span := s.tracer.Start(ctx, "layer.restore", trace.WithAttributes(attribute.Int("depth", snap.Depth)))
	defer span.End()

	grid, err := snap.Grid()
	if err != nil {
		return nil, fmt.Errorf("снимок слоя %d: %w", snap.Depth, err)
	}
	layer, err := world.BuildLayer(grid, s.opts.Layer)
	if err != nil {
		return nil, fmt.Errorf("сборка слоя %d: %w", snap.Depth, err)
	}
	for _, cell := range snap.Destroyed {
		layer.Blocks.BreakAt(cell)
	}
	layer.Depth, layer.Seed, layer.Params = snap.Depth, snap.Seed, snap.Params
	return layer, nil
}

// snapshotLocked снимает текущий слой вместе с разрушенными блоками
// и ячейками убитых врагов
func (s *Session) snapshotLocked() *storage.Snapshot {
	spawns := s.layer.Grid.EnemySpawns()
	var killed []vec.Vec2
	for _, e := range s.entities.All() {
		i := int(e.ID - enemyIDBase)
		if e.ID < enemyIDBase || i >= len(spawns) || e.Alive() {
			continue
		}
		killed = append(killed, spawns[i])
	}
	return &storage.Snapshot{
		Depth:     s.layer.Depth,
		Seed:      s.layer.Seed,
		Params:    s.layer.Params,
		Rows:      s.layer.Grid.Rows(),
		Destroyed: s.layer.Blocks.DestroyedCells(),
		Killed:    killed,
	}
}

// switchTo делает layer текущим: новый реестр сущностей, резолвер и окно активации
// killed — ячейки врагов, убитых до сохранения слоя.
func (s *Session) switchTo(ctx context.Context, from int, layer *world.Layer, restored bool, killed []vec.Vec2, start time.Time) {
	if restored {
		s.restored++
	} else {
		s.generated++
	}
	s.layer = layer
	s.entities = combat.NewRegistry(s.opts.EntityCellSize, s.opts.OwnerDepth)
	s.spawnEnemies(killed)
	s.resolver = combat.NewResolver(layer.Blocks, s.entities, s.sink, s.opts.Combat)
	s.resolver.SetTick(s.tick)

	active, diff := layer.Tracker.Update(s.focal)
	s.observeActivation(ctx, active, diff)

	if s.metrics != nil {
		s.metrics.ObserveLayer(layer.Depth, time.Since(start), restored)
	}
	logging.LogLayerSwitch(from, layer.Depth, restored)
	s.publishWorld(ctx, world.LayerEvent{FromDepth: from, ToDepth: layer.Depth, Restored: restored})
}

// spawnEnemies ставит врагов в ячейки EnemySpawn, кроме убитых.
// Идентификатор врага — enemyIDBase плюс номер ячейки в порядке обхода строк.
func (s *Session) spawnEnemies(killed []vec.Vec2) {
	hp := s.opts.EnemyHealth
	if hp <= 0 {
		hp = defaultEnemyHP
	}
	dead := make(map[vec.Vec2]bool, len(killed))
	for _, cell := range killed {
		dead[cell] = true
	}
	collider := physics.NewBoxCollider(
		s.layer.Coords.BlockWidth*enemyColliderPart,
		s.layer.Coords.BlockHeight*enemyColliderPart,
	)
	for i, cell := range s.layer.Grid.EnemySpawns() {
		if dead[cell] {
			continue
		}
		e := &combat.Entity{
			ID:        enemyIDBase + combat.ID(i),
			Position:  s.layer.Coords.CenterOf(cell.Row(), cell.Col()),
			Collider:  collider,
			Health:    hp,
			MaxHealth: hp,
		}
		if err := s.entities.Add(e); err != nil {
			logging.GetGameLogger().Warn("Не удалось добавить врага %d: %v", e.ID, err)
		}
	}
}

// DrillDown уходит на слой ниже: текущий слой сохраняется как верхний,
// нижний восстанавливается из кэша или генерируется.
// При ошибке сессия и оба слота кэша остаются прежними.
func (s *Session) DrillDown(ctx context.Context) (LayerInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	from := s.layer.Depth

	var (
		next   *world.Layer
		killed []vec.Vec2
		err    error
	)
	restored := s.cache.Has(storage.SlotBelow)
	if restored {
		var snap *storage.Snapshot
		if snap, err = s.cache.Get(storage.SlotBelow); err == nil {
			next, err = s.restoreLayer(ctx, snap)
			killed = snap.Killed
		}
	} else {
		next, err = s.generateLayer(ctx, from+1)
	}
	if err != nil {
		return LayerInfo{}, err
	}

	if err := s.shiftSlots(storage.SlotAbove, storage.SlotBelow); err != nil {
		return LayerInfo{}, err
	}
	s.switchTo(ctx, from, next, restored, killed, start)
	return s.layerInfoLocked(), nil
}

// DrillUp возвращается на сохранённый верхний слой, текущий становится нижним.
// При ошибке сессия и оба слота кэша остаются прежними.
func (s *Session) DrillUp(ctx context.Context) (LayerInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.cache.Has(storage.SlotAbove) {
		return LayerInfo{}, ErrNoLayerAbove
	}

	start := time.Now()
	from := s.layer.Depth

	snap, err := s.cache.Get(storage.SlotAbove)
	if err != nil {
		return LayerInfo{}, err
	}
	next, err := s.restoreLayer(ctx, snap)
	if err != nil {
		return LayerInfo{}, err
	}
	if err := s.shiftSlots(storage.SlotBelow, storage.SlotAbove); err != nil {
		return LayerInfo{}, err
	}
	s.switchTo(ctx, from, next, true, snap.Killed, start)
	return s.layerInfoLocked(), nil
}

// shiftSlots кладёт текущий слой в save и освобождает leave, откуда
// берётся следующий слой. Если освободить leave не удалось, прежнее
// содержимое save возвращается на место.
func (s *Session) shiftSlots(save, leave storage.Slot) error {
	prev, err := s.cache.Get(save)
	if err != nil && !errors.Is(err, storage.ErrSlotEmpty) {
		return fmt.Errorf("чтение слота %s: %w", save, err)
	}

	if err := s.cache.Put(save, s.snapshotLocked()); err != nil {
		return fmt.Errorf("сохранение слоя %d: %w", s.layer.Depth, err)
	}
	if err := s.cache.Drop(leave); err != nil {
		var rerr error
		if prev != nil {
			rerr = s.cache.Put(save, prev)
		} else {
			rerr = s.cache.Drop(save)
		}
		if rerr != nil {
			logging.GetGameLogger().Error("Сессия: не удалось вернуть слот %s: %v", save, rerr)
		}
		return fmt.Errorf("освобождение слота %s: %w", leave, err)
	}
	return nil
}

// Tick разрешает столкновения акторов и пересчитывает окно активации.
// Акторы изменяются на месте: Removed, Inventory.
func (s *Session) Tick(ctx context.Context, actors []*combat.Actor) (TickResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tickLocked(ctx, actors)
}

func (s *Session) tickLocked(ctx context.Context, actors []*combat.Actor) (TickResult, error) {
	if err := ctx.Err(); err != nil {
		return TickResult{}, err
	}
	ctx, span := s.tracer.Start(ctx, "session.tick")
	defer span.End()

	start := time.Now()
	s.tick++
	s.resolver.SetTick(s.tick)

	ordered := combat.OrderActors(actors)
	s.collected.Drain()
	s.resolver.ResolveAll(ordered)
	events := s.collected.Drain()

	active, diff := s.layer.Tracker.Update(s.focal)
	s.observeActivation(ctx, active, diff)

	span.SetAttributes(
		attribute.Int64("tick", int64(s.tick)),
		attribute.Int("depth", s.layer.Depth),
		attribute.Int("actors", len(ordered)),
		attribute.Int("events", len(events)),
	)
	if s.metrics != nil {
		s.metrics.ObserveTick(time.Since(start))
	}

	return TickResult{
		Tick:   s.tick,
		Depth:  s.layer.Depth,
		Events: events,
		Actors: ordered,
		Active: active,
		Diff:   diff,
	}, nil
}

// Enqueue ставит акторов в очередь следующего тика фонового цикла
func (s *Session) Enqueue(actors ...*combat.Actor) {
	s.mu.Lock()
	s.pending = append(s.pending, actors...)
	s.mu.Unlock()
}

// Run выполняет тики с интервалом interval до отмены ctx.
// В каждом тике обрабатываются акторы из очереди Enqueue.
func (s *Session) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.mu.Lock()
			actors := s.pending
			s.pending = nil
			if _, err := s.tickLocked(ctx, actors); err != nil && ctx.Err() == nil {
				logging.GetGameLogger().Error("Тик %d завершился ошибкой: %v", s.tick, err)
			}
			s.mu.Unlock()
		}
	}
}

// SetFocus переносит точку фокуса и пересчитывает окно активации
func (s *Session) SetFocus(ctx context.Context, focal vec.Vec2Float) (world.ActiveSet, world.ActivationDiff) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.focal = focal
	active, diff := s.layer.Tracker.Update(focal)
	s.observeActivation(ctx, active, diff)
	return active, diff
}

func (s *Session) observeActivation(ctx context.Context, active world.ActiveSet, diff world.ActivationDiff) {
	if s.metrics != nil {
		s.metrics.ObserveActivation(len(active), len(diff.Entered), len(diff.Left))
	}
	if diff.Empty() {
		return
	}
	logging.LogChunkActivation(len(diff.Entered), len(diff.Left), len(active))
	for _, ev := range diff.Events(s.layer.Chunks) {
		s.publishWorld(ctx, ev)
	}
}

// publishWorld отправляет событие мира в шину, если она подключена
func (s *Session) publishWorld(ctx context.Context, ev world.Event) {
	if s.bus == nil {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		logging.GetGameLogger().Error("Сессия: не удалось сериализовать %s: %v", ev.GetType(), err)
		return
	}

	priority := 2
	if ev.GetType() == world.EventTypeLayerSwitched {
		priority = eventbus.PriorityHigh
	}
	env := &eventbus.Envelope{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Source:    SourceWorld,
		EventType: ev.GetType().String(),
		Version:   1,
		Tick:      s.tick,
		Layer:     s.layer.Depth,
		Priority:  priority,
		Payload:   payload,
	}
	if err := s.bus.Publish(ctx, env); err != nil {
		logging.GetGameLogger().Warn("Сессия: ошибка публикации %s: %v", env.EventType, err)
	}
}

// SpawnEntity регистрирует сущность в текущем слое
func (s *Session) SpawnEntity(e *combat.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entities.Add(e)
}

// VerifyLayer проверяет согласованность арены блоков текущего слоя
func (s *Session) VerifyLayer() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.layer.Blocks.Verify()
}

// Depth возвращает глубину текущего слоя
func (s *Session) Depth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.layer.Depth
}

// CurrentTick возвращает номер последнего выполненного тика
func (s *Session) CurrentTick() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tick
}
