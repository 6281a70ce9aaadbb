package eventbus

import (
	"context"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// maxLayerLabel ограничивает метку layer: глубже всё попадает в "deep"
const maxLayerLabel = 16

var (
	busPublishedDesc = prometheus.NewDesc("drill_eventbus_published_total",
		"Опубликовано конвертов.", nil, nil)
	busConsumedDesc = prometheus.NewDesc("drill_eventbus_consumed_total",
		"Доставлено конвертов подписчикам.", nil, nil)
	busDroppedDesc = prometheus.NewDesc("drill_eventbus_dropped_total",
		"Отброшено конвертов.", nil, nil)
	busInflightDesc = prometheus.NewDesc("drill_eventbus_inflight",
		"Конверты в очередях подписчиков.", nil, nil)
)

// BusCollector читает Stats шины при каждом сборе Prometheus.
type BusCollector struct {
	bus EventBus
}

// NewBusCollector создаёт коллектор; регистрировать его должен вызывающий.
func NewBusCollector(bus EventBus) *BusCollector {
	return &BusCollector{bus: bus}
}

func (c *BusCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- busPublishedDesc
	ch <- busConsumedDesc
	ch <- busDroppedDesc
	ch <- busInflightDesc
}

func (c *BusCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.bus.Metrics()
	ch <- prometheus.MustNewConstMetric(busPublishedDesc, prometheus.CounterValue, float64(s.Published))
	ch <- prometheus.MustNewConstMetric(busConsumedDesc, prometheus.CounterValue, float64(s.Consumed))
	ch <- prometheus.MustNewConstMetric(busDroppedDesc, prometheus.CounterValue, float64(s.Dropped))
	ch <- prometheus.MustNewConstMetric(busInflightDesc, prometheus.GaugeValue, float64(s.InFlight))
}

// EventCounter считает события шины по источнику, типу и глубине слоя.
type EventCounter struct {
	events *prometheus.CounterVec
	sub    Subscription
}

// CountEvents подписывает счётчик на все события bus и регистрирует его в reg.
func CountEvents(ctx context.Context, bus EventBus, reg prometheus.Registerer) (*EventCounter, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	ec := &EventCounter{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "drill",
			Name:      "events_total",
			Help:      "События подземелья, прошедшие через шину.",
		}, []string{"source", "type", "layer"}),
	}
	if err := reg.Register(ec.events); err != nil {
		return nil, err
	}

	sub, err := bus.Subscribe(ctx, Filter{}, func(_ context.Context, ev *Envelope) {
		ec.events.WithLabelValues(ev.Source, ev.EventType, layerLabel(ev.Layer)).Inc()
	})
	if err != nil {
		reg.Unregister(ec.events)
		return nil, err
	}
	ec.sub = sub
	return ec, nil
}

// Stop отписывает счётчик; накопленные значения остаются в регистре
func (ec *EventCounter) Stop() {
	if ec.sub != nil {
		ec.sub.Unsubscribe()
	}
}

func layerLabel(layer int) string {
	if layer > maxLayerLabel {
		return "deep"
	}
	return strconv.Itoa(layer)
}
