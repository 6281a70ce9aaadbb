package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/annel0/drill-dungeon/internal/combat"
)

// SimMetrics — Prometheus-метрики симуляции подземелья.
// Реализует combat.EventSink, поэтому подключается к резолверу через MultiSink.
type SimMetrics struct {
	tickDuration    prometheus.Histogram
	ticks           prometheus.Counter
	collisionEvents *prometheus.CounterVec
	blocksDestroyed *prometheus.CounterVec
	resources       *prometheus.CounterVec
	entityDamage    prometheus.Counter
	activeChunks    prometheus.Gauge
	chunkSwitches   *prometheus.CounterVec
	layerBuild      *prometheus.HistogramVec
	depth           prometheus.Gauge
}

// NewSimMetrics регистрирует метрики в reg (nil — глобальный регистр)
func NewSimMetrics(reg prometheus.Registerer) *SimMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &SimMetrics{
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "drill",
			Name:      "tick_duration_seconds",
			Help:      "Длительность тика симуляции.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14),
		}),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "drill",
			Name:      "ticks_total",
			Help:      "Число выполненных тиков.",
		}),
		collisionEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "drill",
			Name:      "collision_events_total",
			Help:      "События резолвера столкновений по типам.",
		}, []string{"kind"}),
		blocksDestroyed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "drill",
			Name:      "blocks_destroyed_total",
			Help:      "Разрушенные блоки по материалам.",
		}, []string{"material"}),
		resources: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "drill",
			Name:      "resources_granted_total",
			Help:      "Начисленные ресурсы.",
		}, []string{"material"}),
		entityDamage: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "drill",
			Name:      "entity_damage_total",
			Help:      "Суммарный урон сущностям от снарядов.",
		}),
		activeChunks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "drill",
			Name:      "active_chunks",
			Help:      "Размер текущего активного набора чанков.",
		}),
		chunkSwitches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "drill",
			Name:      "chunk_activation_changes_total",
			Help:      "Входы и выходы чанков из активного набора.",
		}, []string{"direction"}),
		layerBuild: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "drill",
			Name:      "layer_build_seconds",
			Help:      "Время генерации или восстановления слоя.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
		depth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "drill",
			Name:      "layer_depth",
			Help:      "Глубина текущего слоя.",
		}),
	}

	reg.MustRegister(m.tickDuration, m.ticks, m.collisionEvents, m.blocksDestroyed,
		m.resources, m.entityDamage, m.activeChunks, m.chunkSwitches, m.layerBuild, m.depth)
	return m
}

// Emit учитывает событие резолвера
func (m *SimMetrics) Emit(ev combat.CollisionEvent) {
	m.collisionEvents.WithLabelValues(ev.Kind.String()).Inc()
	switch ev.Kind {
	case combat.EventBlockDestroyed:
		m.blocksDestroyed.WithLabelValues(ev.Material.String()).Inc()
	case combat.EventResourceGranted:
		m.resources.WithLabelValues(ev.Material.String()).Add(float64(ev.Amount))
	case combat.EventEntityDamaged:
		m.entityDamage.Add(float64(ev.Damage))
	}
}

// ObserveTick фиксирует длительность тика
func (m *SimMetrics) ObserveTick(d time.Duration) {
	m.ticks.Inc()
	m.tickDuration.Observe(d.Seconds())
}

// ObserveActivation фиксирует изменение активного набора
func (m *SimMetrics) ObserveActivation(active, entered, left int) {
	m.activeChunks.Set(float64(active))
	m.chunkSwitches.WithLabelValues("entered").Add(float64(entered))
	m.chunkSwitches.WithLabelValues("left").Add(float64(left))
}

// ObserveLayer фиксирует смену слоя. restored — слой взят из кэша.
func (m *SimMetrics) ObserveLayer(depth int, d time.Duration, restored bool) {
	source := "generated"
	if restored {
		source = "restored"
	}
	m.layerBuild.WithLabelValues(source).Observe(d.Seconds())
	m.depth.Set(float64(depth))
}
