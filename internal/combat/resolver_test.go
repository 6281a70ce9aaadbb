package combat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/drill-dungeon/internal/dungeon"
	"github.com/annel0/drill-dungeon/internal/physics"
	"github.com/annel0/drill-dungeon/internal/vec"
	"github.com/annel0/drill-dungeon/internal/world"
)

// Слой 6x6 с блоком 10x10: строка 0 — нижняя
var arenaRows = []string{
	"OOOOOO",
	"OXC  O",
	"O    O",
	"O    O",
	"O G  O",
	"OOOOOO",
}

func newArena(t *testing.T) (*world.BlockGrid, *Registry, *SliceSink, *Resolver) {
	t.Helper()
	grid, err := dungeon.GridFromRows(arenaRows)
	require.NoError(t, err)
	layer, err := world.BuildLayer(grid, world.LayerOptions{
		WorldWidth:  60,
		WorldHeight: 60,
		ChunkSide:   3,
		Strict:      true,
	})
	require.NoError(t, err)

	registry := NewRegistry(16, 0)
	sink := &SliceSink{}
	resolver := NewResolver(layer.Blocks, registry, sink, Options{})
	return layer.Blocks, registry, sink, resolver
}

func pos(x, y float64) vec.Vec2Float {
	return vec.Vec2Float{X: x, Y: y}
}

func TestDiggerCollectsCoalAndDestroysDirt(t *testing.T) {
	blocks, _, sink, resolver := newArena(t)

	dirt, ok := blocks.At(1, 1)
	require.True(t, ok)
	coal, ok := blocks.At(1, 2)
	require.True(t, ok)

	// Бур перекрывает ровно (1,1) и (1,2); (1,3) пустая
	digger := NewDigger(1, pos(25, 15), physics.NewBoxCollider(18, 8))
	resolver.SetTick(3)
	resolver.Resolve(digger)

	assert.Equal(t, 1, digger.Inventory.Coal, "Уголь начисляется")
	assert.Equal(t, 0, digger.Inventory.Gold)
	assert.False(t, blocks.Exists(dirt.ID))
	assert.False(t, blocks.Exists(coal.ID))
	assert.Equal(t, 0, blocks.Count(world.MaterialCoal))
	assert.False(t, digger.Removed, "Бур не удаляется при копании")

	assert.Equal(t, 2, sink.CountKind(EventBlockDestroyed))
	assert.Equal(t, 1, sink.CountKind(EventResourceGranted))
	for _, ev := range sink.Events() {
		assert.Equal(t, uint64(3), ev.Tick)
		assert.Equal(t, ID(1), ev.Actor)
		if ev.Kind == EventResourceGranted {
			assert.Equal(t, world.MaterialCoal, ev.Material)
			assert.Equal(t, 1, ev.Amount)
		}
	}
}

func TestDiggerWithoutInventoryGrantsNothing(t *testing.T) {
	blocks, _, sink, resolver := newArena(t)

	digger := &Actor{ID: 2, Kind: ActorDigger, Position: pos(25, 45), Collider: physics.NewBoxCollider(4, 4)}
	assert.Equal(t, 1, resolver.ResolveDig(digger))

	assert.Equal(t, 0, blocks.Count(world.MaterialGold))
	assert.Equal(t, 1, sink.CountKind(EventBlockDestroyed))
	assert.Zero(t, sink.CountKind(EventResourceGranted))
}

func TestDiggerNeverBreaksIndestructible(t *testing.T) {
	blocks, _, sink, resolver := newArena(t)
	before := blocks.IndestructibleCount()

	digger := NewDigger(1, pos(5, 30), physics.NewBoxCollider(8, 30))
	resolver.Resolve(digger)

	assert.Equal(t, before, blocks.IndestructibleCount())
	assert.Empty(t, sink.Events())
}

func TestProjectileHitsIndestructibleOnce(t *testing.T) {
	blocks, _, sink, resolver := newArena(t)

	wall, ok := blocks.At(2, 0)
	require.True(t, ok)

	p := NewProjectile(10, NoOwner, pos(5, 25), pos(-1, 0), physics.NewBoxCollider(4, 4))
	resolver.Resolve(p)

	assert.True(t, p.Removed)
	require.Len(t, sink.Events(), 1, "Ровно одно событие удара")
	assert.Equal(t, EventImpact, sink.Events()[0].Kind)
	assert.True(t, blocks.Exists(wall.ID), "Неразрушаемый блок остаётся")

	// Удалённый снаряд дальше не обрабатывается
	resolver.Resolve(p)
	assert.Len(t, sink.Events(), 1)
}

func TestProjectileDestroysCoalWithParticlesAndSmoke(t *testing.T) {
	blocks, _, sink, resolver := newArena(t)

	// Снаряд задевает уголь (1,2) и пустую ячейку (1,3)
	p := NewProjectile(10, NoOwner, pos(30, 15), pos(1, 0), physics.NewBoxCollider(4, 4))
	resolver.Resolve(p)

	assert.True(t, p.Removed)
	assert.Equal(t, 0, blocks.Count(world.MaterialCoal))

	events := sink.Events()
	require.Len(t, events, 3)
	assert.Equal(t, EventParticle, events[0].Kind)
	assert.Equal(t, world.MaterialCoal, events[0].Material)
	assert.Equal(t, EventSmoke, events[1].Kind)
	assert.Equal(t, EventBlockDestroyed, events[2].Kind)
}

func TestProjectileFirstContactWins(t *testing.T) {
	blocks, _, sink, resolver := newArena(t)

	// Перекрывает землю (1,1), уголь (1,2) и стену (0,1), (0,2)
	p := NewProjectile(10, NoOwner, pos(20, 10), pos(0, -1), physics.NewBoxCollider(6, 6))
	resolver.Resolve(p)

	assert.True(t, p.Removed)
	assert.Equal(t, 1, sink.CountKind(EventBlockDestroyed), "Снаряд разрушает только один блок")
	assert.Zero(t, sink.CountKind(EventImpact))

	_, dirtAlive := blocks.At(1, 1)
	_, coalAlive := blocks.At(1, 2)
	assert.False(t, dirtAlive, "Первым считается блок с меньшим ID")
	assert.True(t, coalAlive)
}

func TestProjectileNeverHitsFiringChain(t *testing.T) {
	_, registry, sink, resolver := newArena(t)

	drill := &Entity{ID: 1, Position: pos(30, 30), Collider: physics.NewBoxCollider(10, 10), Health: 100, MaxHealth: 100}
	turret := &Entity{ID: 2, Owner: 1, Position: pos(30, 30), Collider: physics.NewBoxCollider(4, 4), Health: 50, MaxHealth: 50}
	require.NoError(t, registry.Add(drill))
	require.NoError(t, registry.Add(turret))

	// Снаряд турели появляется внутри турели и бура
	p := NewProjectile(100, 2, pos(30, 30), pos(1, 0), physics.NewBoxCollider(2, 2))
	resolver.Resolve(p)

	assert.False(t, p.Removed, "Снаряд не должен поражать свою цепочку владельцев")
	assert.Equal(t, 100, drill.Health)
	assert.Equal(t, 50, turret.Health)
	assert.Empty(t, sink.Events())

	enemy := &Entity{ID: 3, Position: pos(32, 30), Collider: physics.NewBoxCollider(6, 6), Health: 40, MaxHealth: 40}
	require.NoError(t, registry.Add(enemy))

	resolver.Resolve(p)
	assert.True(t, p.Removed)
	assert.Equal(t, 40-DefaultProjectileDamage, enemy.Health)
	assert.Equal(t, 100, drill.Health)

	events := sink.Events()
	require.Len(t, events, 3)
	assert.Equal(t, EventEntityDamaged, events[0].Kind)
	assert.Equal(t, ID(3), events[0].Entity)
	assert.Equal(t, DefaultProjectileDamage, events[0].Damage)
	assert.False(t, events[0].Killed)
	assert.Equal(t, EventParticle, events[1].Kind)
	assert.Equal(t, EventSmoke, events[2].Kind)
}

func TestShieldAbsorbsProjectile(t *testing.T) {
	_, registry, sink, resolver := newArena(t)

	target := &Entity{ID: 5, Position: pos(30, 30), Collider: physics.NewBoxCollider(8, 8), Health: 30, MaxHealth: 30, Shielded: true}
	require.NoError(t, registry.Add(target))

	p := NewProjectile(7, 99, pos(30, 30), pos(0, 1), physics.NewBoxCollider(2, 2))
	resolver.Resolve(p)

	assert.True(t, p.Removed)
	assert.Equal(t, 30, target.Health)
	require.Len(t, sink.Events(), 1)
	assert.Equal(t, EventShieldImpact, sink.Events()[0].Kind)
}

func TestProjectileKillsAndSkipsDeadEntities(t *testing.T) {
	_, registry, sink, resolver := newArena(t)

	target := &Entity{ID: 5, Position: pos(30, 30), Collider: physics.NewBoxCollider(8, 8), Health: 10, MaxHealth: 30}
	require.NoError(t, registry.Add(target))

	first := &Actor{ID: 1, Kind: ActorProjectile, Position: pos(30, 30), Collider: physics.NewBoxCollider(2, 2), Damage: 25}
	second := NewProjectile(2, NoOwner, pos(30, 30), pos(0, 0), physics.NewBoxCollider(2, 2))
	resolver.ResolveAll([]*Actor{second, first})

	assert.Equal(t, 0, target.Health)
	assert.True(t, first.Removed)
	assert.False(t, second.Removed, "Мёртвая сущность не является целью")
	assert.Equal(t, 1, sink.CountKind(EventEntityDamaged))
	assert.True(t, sink.Events()[0].Killed)
}

func TestEntityHitEffectsAtEntity(t *testing.T) {
	_, registry, sink, resolver := newArena(t)

	target := &Entity{ID: 5, Position: pos(30, 30), Collider: physics.NewBoxCollider(8, 8), Health: 30, MaxHealth: 30}
	require.NoError(t, registry.Add(target))

	// Снаряд задевает край сущности, его центр смещён
	p := NewProjectile(1, NoOwner, pos(33, 31), pos(0, 0), physics.NewBoxCollider(2, 2))
	resolver.Resolve(p)

	require.Equal(t, 1, sink.CountKind(EventParticle))
	require.Equal(t, 1, sink.CountKind(EventSmoke))
	for _, ev := range sink.Events() {
		assert.Equal(t, target.Position, ev.Position, "Событие %s в точке сущности", ev.Kind)
	}
}

func TestDuplicateDestroyWithinTickIsNoop(t *testing.T) {
	blocks, _, sink, resolver := newArena(t)

	gold, ok := blocks.At(4, 2)
	require.True(t, ok)

	p1 := NewProjectile(1, NoOwner, pos(25, 45), pos(0, 0), physics.NewBoxCollider(2, 2))
	p2 := NewProjectile(2, NoOwner, pos(25, 45), pos(0, 0), physics.NewBoxCollider(2, 2))
	resolver.ResolveAll([]*Actor{p2, p1})

	assert.False(t, blocks.Exists(gold.ID))
	assert.True(t, p1.Removed)
	assert.False(t, p2.Removed, "Второй снаряд проходит сквозь уже разрушенный блок")
	assert.Equal(t, 1, sink.CountKind(EventBlockDestroyed))

	// Явное повторное разрушение по устаревшему ID
	_, ok = blocks.Break(gold.ID)
	assert.False(t, ok)
}

func TestDiggersResolveBeforeProjectiles(t *testing.T) {
	blocks, _, sink, resolver := newArena(t)

	projectile := NewProjectile(1, NoOwner, pos(25, 15), pos(0, 0), physics.NewBoxCollider(2, 2))
	digger := NewDigger(50, pos(25, 15), physics.NewBoxCollider(4, 4))

	ordered := OrderActors([]*Actor{projectile, nil, digger})
	require.Len(t, ordered, 2)
	assert.Equal(t, ActorDigger, ordered[0].Kind)

	resolver.ResolveAll([]*Actor{projectile, digger})

	assert.Equal(t, 1, digger.Inventory.Coal, "Бур обрабатывается первым и забирает уголь")
	assert.False(t, projectile.Removed)
	assert.Equal(t, 1, sink.CountKind(EventBlockDestroyed))
	assert.NoError(t, blocks.Verify())
}
