package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/annel0/drill-dungeon/internal/combat"
	"github.com/annel0/drill-dungeon/internal/world"
)

func TestSimMetricsCountsCollisionEvents(t *testing.T) {
	m := NewSimMetrics(prometheus.NewRegistry())

	m.Emit(combat.CollisionEvent{Kind: combat.EventBlockDestroyed, Material: world.MaterialCoal})
	m.Emit(combat.CollisionEvent{Kind: combat.EventBlockDestroyed, Material: world.MaterialCoal})
	m.Emit(combat.CollisionEvent{Kind: combat.EventResourceGranted, Material: world.MaterialGold, Amount: 1})
	m.Emit(combat.CollisionEvent{Kind: combat.EventEntityDamaged, Damage: 15})
	m.Emit(combat.CollisionEvent{Kind: combat.EventSmoke})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.blocksDestroyed.WithLabelValues("coal")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.resources.WithLabelValues("gold")))
	assert.Equal(t, 15.0, testutil.ToFloat64(m.entityDamage))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.collisionEvents.WithLabelValues("smoke")))
}

func TestSimMetricsGauges(t *testing.T) {
	m := NewSimMetrics(prometheus.NewRegistry())

	m.ObserveActivation(9, 9, 0)
	m.ObserveActivation(6, 3, 6)
	assert.Equal(t, 6.0, testutil.ToFloat64(m.activeChunks))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.chunkSwitches.WithLabelValues("entered")))
	assert.Equal(t, 6.0, testutil.ToFloat64(m.chunkSwitches.WithLabelValues("left")))

	m.ObserveLayer(3, time.Millisecond, true)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.depth))

	m.ObserveTick(time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ticks))
}
