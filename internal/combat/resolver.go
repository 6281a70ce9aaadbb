package combat

import (
	"sort"

	"github.com/annel0/drill-dungeon/internal/world"
)

// DefaultProjectileDamage — урон снаряда, если у актора не задан свой
const DefaultProjectileDamage = 15

// Options — параметры резолвера
type Options struct {
	ProjectileDamage int
}

// Resolver разрешает столкновения акторов с блоками и сущностями слоя.
// Все изменения арены видны следующим проверкам того же тика сразу.
type Resolver struct {
	blocks   *world.BlockGrid
	entities *Registry
	sink     EventSink
	damage   int
	tick     uint64
}

// NewResolver создаёт резолвер для арены блоков и реестра сущностей слоя
func NewResolver(blocks *world.BlockGrid, entities *Registry, sink EventSink, opts Options) *Resolver {
	if opts.ProjectileDamage <= 0 {
		opts.ProjectileDamage = DefaultProjectileDamage
	}
	if sink == nil {
		sink = SinkFunc(func(CollisionEvent) {})
	}
	if entities == nil {
		entities = NewRegistry(0, 0)
	}
	return &Resolver{
		blocks:   blocks,
		entities: entities,
		sink:     sink,
		damage:   opts.ProjectileDamage,
	}
}

// SetTick задаёт номер тика для создаваемых событий
func (r *Resolver) SetTick(tick uint64) {
	r.tick = tick
}

// Entities возвращает реестр сущностей
func (r *Resolver) Entities() *Registry {
	return r.entities
}

// Resolve обрабатывает одного актора в зависимости от его вида
func (r *Resolver) Resolve(actor *Actor) {
	if actor == nil || actor.Removed {
		return
	}
	switch actor.Kind {
	case ActorDigger:
		r.ResolveDig(actor)
	case ActorProjectile:
		r.ResolveProjectile(actor)
	}
}

// ResolveAll обрабатывает акторов в фиксированном порядке:
// сначала буры по возрастанию ID, затем снаряды по возрастанию ID.
func (r *Resolver) ResolveAll(actors []*Actor) {
	for _, a := range OrderActors(actors) {
		r.Resolve(a)
	}
}

// OrderActors возвращает копию списка в порядке обработки
func OrderActors(actors []*Actor) []*Actor {
	ordered := make([]*Actor, 0, len(actors))
	for _, a := range actors {
		if a != nil {
			ordered = append(ordered, a)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Kind != ordered[j].Kind {
			return ordered[i].Kind < ordered[j].Kind
		}
		return ordered[i].ID < ordered[j].ID
	})
	return ordered
}

// ResolveDig разрушает все разрушаемые блоки под буром и начисляет ресурсы.
// Возвращает число разрушенных блоков.
func (r *Resolver) ResolveDig(actor *Actor) int {
	destroyed := 0
	for _, id := range r.blocks.Overlapping(actor.Bounds(), world.FilterDestructible) {
		b, ok := r.blocks.Break(id)
		if !ok {
			continue
		}
		destroyed++
		r.emitBlock(EventBlockDestroyed, actor, b)

		if actor.Inventory == nil {
			continue
		}
		switch b.Material {
		case world.MaterialCoal:
			actor.Inventory.Coal++
			r.emitResource(actor, b)
		case world.MaterialGold:
			actor.Inventory.Gold++
			r.emitResource(actor, b)
		case world.MaterialDirt, world.MaterialBorderWall, world.MaterialShop:
		}
	}
	return destroyed
}

// ResolveProjectile проверяет снаряд по порядку: разрушаемые блоки,
// неразрушаемые блоки, живые сущности. Первый контакт удаляет снаряд.
func (r *Resolver) ResolveProjectile(actor *Actor) {
	if actor.Removed {
		return
	}
	bounds := actor.Bounds()

	for _, id := range r.blocks.Overlapping(bounds, world.FilterDestructible) {
		b, ok := r.blocks.Break(id)
		if !ok {
			continue
		}
		r.emitBlock(EventParticle, actor, b)
		if b.Material == world.MaterialCoal {
			r.emitBlock(EventSmoke, actor, b)
		}
		r.emitBlock(EventBlockDestroyed, actor, b)
		actor.Removed = true
		return
	}

	for _, id := range r.blocks.Overlapping(bounds, world.FilterIndestructible) {
		b, ok := r.blocks.Get(id)
		if !ok {
			continue
		}
		r.emitBlock(EventImpact, actor, b)
		actor.Removed = true
		return
	}

	for _, e := range r.entities.Overlapping(bounds) {
		if actor.Owner != NoOwner && r.entities.IsAncestor(e.ID, actor.Owner) {
			continue
		}
		r.hitEntity(actor, e)
		actor.Removed = true
		return
	}
}

func (r *Resolver) hitEntity(actor *Actor, e *Entity) {
	if e.Shielded {
		r.sink.Emit(CollisionEvent{
			Kind:     EventShieldImpact,
			Tick:     r.tick,
			Actor:    actor.ID,
			Entity:   e.ID,
			Position: actor.Position,
		})
		return
	}

	damage := actor.Damage
	if damage <= 0 {
		damage = r.damage
	}
	e.Health -= damage
	if e.Health < 0 {
		e.Health = 0
	}

	r.sink.Emit(CollisionEvent{
		Kind:     EventEntityDamaged,
		Tick:     r.tick,
		Actor:    actor.ID,
		Entity:   e.ID,
		Position: e.Position,
		Damage:   damage,
		Killed:   !e.Alive(),
	})
	r.sink.Emit(CollisionEvent{
		Kind:     EventParticle,
		Tick:     r.tick,
		Actor:    actor.ID,
		Entity:   e.ID,
		Material: world.MaterialDirt,
		Position: e.Position,
	})
	r.sink.Emit(CollisionEvent{
		Kind:     EventSmoke,
		Tick:     r.tick,
		Actor:    actor.ID,
		Entity:   e.ID,
		Position: e.Position,
	})
}

func (r *Resolver) emitBlock(kind EventKind, actor *Actor, b world.Block) {
	block := b
	r.sink.Emit(CollisionEvent{
		Kind:     kind,
		Tick:     r.tick,
		Actor:    actor.ID,
		Block:    &block,
		Material: b.Material,
		Position: b.Position,
	})
}

func (r *Resolver) emitResource(actor *Actor, b world.Block) {
	block := b
	r.sink.Emit(CollisionEvent{
		Kind:     EventResourceGranted,
		Tick:     r.tick,
		Actor:    actor.ID,
		Block:    &block,
		Material: b.Material,
		Position: b.Position,
		Amount:   1,
	})
}
