package eventbus

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/drill-dungeon/internal/logging"
)

func TestMemoryBusFiltersByType(t *testing.T) {
	bus := NewMemoryBus(16)
	defer bus.Close()

	var mu sync.Mutex
	var got []string
	done := make(chan struct{}, 4)

	_, err := bus.Subscribe(context.Background(), Filter{Types: []string{"block_destroyed"}}, func(ctx context.Context, ev *Envelope) {
		mu.Lock()
		got = append(got, ev.EventType)
		mu.Unlock()
		done <- struct{}{}
	})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, bus.Publish(ctx, &Envelope{ID: "1", EventType: "smoke"}))
	require.NoError(t, bus.Publish(ctx, &Envelope{ID: "2", EventType: "block_destroyed", Tick: 4}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Событие не доставлено подписчику")
	}

	mu.Lock()
	assert.Equal(t, []string{"block_destroyed"}, got)
	mu.Unlock()
	assert.Equal(t, uint64(2), bus.Metrics().Published)
}

func TestMemoryBusDropsLowPriorityWhenFull(t *testing.T) {
	mb := newMemoryBus(1)
	// dispatchLoop не запущен: буфер остаётся заполненным

	ctx := context.Background()
	require.NoError(t, mb.Publish(ctx, &Envelope{EventType: "a", Priority: 1}))
	require.NoError(t, mb.Publish(ctx, &Envelope{EventType: "b", Priority: 1}))

	stats := mb.Metrics()
	assert.Equal(t, uint64(1), stats.Published)
	assert.Equal(t, uint64(1), stats.Dropped)
	assert.Equal(t, 1, stats.InFlight)

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	err := mb.Publish(cctx, &Envelope{EventType: "c", Priority: 9})
	assert.True(t, errors.Is(err, context.Canceled), "Высокий приоритет ждёт места до отмены контекста")
}

func TestSlowSubscriberKeepsHighPriority(t *testing.T) {
	bus := NewMemoryBus(1)
	defer bus.Close()

	release := make(chan struct{})
	var delivered int64
	_, err := bus.Subscribe(context.Background(), Filter{}, func(ctx context.Context, ev *Envelope) {
		<-release
		atomic.AddInt64(&delivered, 1)
	})
	require.NoError(t, err)

	published := make(chan error, 1)
	go func() {
		for i := uint64(1); i <= 6; i++ {
			if err := bus.Publish(context.Background(), &Envelope{EventType: "layer_switched", Tick: i, Priority: PriorityHigh}); err != nil {
				published <- err
				return
			}
		}
		published <- nil
	}()

	// Обработчик, ящик, раздача и общий буфер держат по событию; пятое ждёт
	require.Eventually(t, func() bool {
		st := bus.Metrics()
		return st.Published == 4 && st.InFlight == 1
	}, 2*time.Second, 5*time.Millisecond, "Раздача ждёт места в ящике подписчика")

	close(release)
	select {
	case err := <-published:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Публикация не завершилась")
	}
	require.Eventually(t, func() bool { return atomic.LoadInt64(&delivered) == 6 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, uint64(0), bus.Metrics().Dropped, "Важные события не отбрасываются")
}

func TestSlowSubscriberDropsLowPriority(t *testing.T) {
	bus := NewMemoryBus(1)
	defer bus.Close()

	release := make(chan struct{})
	defer close(release)
	var delivered int64
	_, err := bus.Subscribe(context.Background(), Filter{}, func(ctx context.Context, ev *Envelope) {
		<-release
		atomic.AddInt64(&delivered, 1)
	})
	require.NoError(t, err)

	for i := uint64(1); i <= 6; i++ {
		require.NoError(t, bus.Publish(context.Background(), &Envelope{EventType: "smoke", Tick: i, Priority: 1}))
		// Общий буфер пуст: отбрасывать может только ящик подписчика
		require.Eventually(t, func() bool { return bus.Metrics().InFlight == 0 }, 2*time.Second, 5*time.Millisecond)
	}

	require.Eventually(t, func() bool { return bus.Metrics().Dropped >= 4 }, 2*time.Second, 5*time.Millisecond,
		"Ящик на одно событие и занятый обработчик вмещают не больше двух")
	assert.Equal(t, uint64(6), bus.Metrics().Published)
	assert.Zero(t, atomic.LoadInt64(&delivered))
}

func TestMemoryBusClose(t *testing.T) {
	bus := NewMemoryBus(4)
	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close(), "Повторное закрытие безопасно")

	err := bus.Publish(context.Background(), &Envelope{EventType: "x"})
	assert.True(t, errors.Is(err, ErrBusClosed))
}

func TestMemoryBusKeepsOrderPerSubscriber(t *testing.T) {
	bus := NewMemoryBus(64)

	var got []uint64
	_, err := bus.Subscribe(context.Background(), Filter{}, func(ctx context.Context, ev *Envelope) {
		got = append(got, ev.Tick)
	})
	require.NoError(t, err)

	for i := uint64(1); i <= 20; i++ {
		require.NoError(t, bus.Publish(context.Background(), &Envelope{EventType: "tick", Tick: i}))
	}
	require.NoError(t, bus.Close(), "Close дожидается обработки")

	require.Len(t, got, 20)
	for i, tick := range got {
		assert.Equal(t, uint64(i+1), tick, "События приходят в порядке публикации")
	}
}

func TestMemoryBusMinPriority(t *testing.T) {
	bus := NewMemoryBus(8)

	var got []string
	_, err := bus.Subscribe(context.Background(), Filter{MinPriority: PriorityHigh}, func(ctx context.Context, ev *Envelope) {
		got = append(got, ev.EventType)
	})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, bus.Publish(ctx, &Envelope{EventType: "block_destroyed", Priority: 2}))
	require.NoError(t, bus.Publish(ctx, &Envelope{EventType: "layer_switched", Priority: PriorityHigh}))
	require.NoError(t, bus.Close())

	assert.Equal(t, []string{"layer_switched"}, got)
}

func TestSubscribeAfterClose(t *testing.T) {
	bus := NewMemoryBus(2)
	require.NoError(t, bus.Close())
	_, err := bus.Subscribe(context.Background(), Filter{}, func(context.Context, *Envelope) {})
	assert.ErrorIs(t, err, ErrBusClosed)
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestLoggingListenerWritesLayerSwitches(t *testing.T) {
	var out syncBuffer
	bus := NewMemoryBus(8)

	_, err := StartLoggingListener(bus, logging.NewConsoleLogger("events", &out))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, bus.Publish(ctx, &Envelope{EventType: "layer_switched", Source: "world", Layer: 2, Priority: PriorityHigh}))
	require.NoError(t, bus.Publish(ctx, &Envelope{EventType: "block_destroyed", Source: "combat", Priority: 2}))
	require.NoError(t, bus.Close())

	log := out.String()
	assert.Contains(t, log, "layer_switched src=world tick=0 layer=2")
	assert.NotContains(t, log, "block_destroyed", "Поток столкновений пишется только на TRACE")
}

type fixedStats struct {
	EventBus
	stats Stats
}

func (f *fixedStats) Metrics() Stats { return f.stats }

func TestBusCollectorReadsStatsOnScrape(t *testing.T) {
	src := &fixedStats{stats: Stats{Published: 5, Consumed: 3, Dropped: 1, InFlight: 2}}
	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(NewBusCollector(src)))

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 4)

	src.stats = Stats{Published: 9, Consumed: 3, Dropped: 1}
	values := gatherValues(t, reg)
	assert.Equal(t, 9.0, values["drill_eventbus_published_total"], "Значение берётся в момент сбора")
	assert.Equal(t, 3.0, values["drill_eventbus_consumed_total"])
	assert.Equal(t, 0.0, values["drill_eventbus_inflight"])
}

func gatherValues(t *testing.T, reg *prometheus.Registry) map[string]float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	out := make(map[string]float64, len(families))
	for _, f := range families {
		m := f.GetMetric()[0]
		if c := m.GetCounter(); c != nil {
			out[f.GetName()] = c.GetValue()
		} else {
			out[f.GetName()] = m.GetGauge().GetValue()
		}
	}
	return out
}

func TestEventCounterLabels(t *testing.T) {
	bus := NewMemoryBus(16)
	defer bus.Close()

	ec, err := CountEvents(context.Background(), bus, prometheus.NewRegistry())
	require.NoError(t, err)
	defer ec.Stop()

	ctx := context.Background()
	require.NoError(t, bus.Publish(ctx, &Envelope{Source: "combat", EventType: "block_destroyed", Layer: 2, Priority: 5}))
	require.NoError(t, bus.Publish(ctx, &Envelope{Source: "combat", EventType: "block_destroyed", Layer: 2, Priority: 5}))
	require.NoError(t, bus.Publish(ctx, &Envelope{Source: "world", EventType: "layer_switched", Layer: 40, Priority: PriorityHigh}))

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(ec.events.WithLabelValues("combat", "block_destroyed", "2")) == 2
	}, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(ec.events.WithLabelValues("world", "layer_switched", "deep")) == 1
	}, 2*time.Second, 10*time.Millisecond, "Глубокие слои сводятся в одну метку")
}

func TestSubjectFor(t *testing.T) {
	assert.Equal(t, "drill.events.smoke", SubjectFor(DefaultSubjectPrefix, "smoke"))
}
