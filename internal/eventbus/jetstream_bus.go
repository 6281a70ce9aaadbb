package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	nats "github.com/nats-io/nats.go"
)

// DefaultSubjectPrefix — префикс subject'ов событий подземелья
const DefaultSubjectPrefix = "drill.events"

// Заголовки сообщений NATS
const (
	HeaderLayer = "Drill-Layer"
	HeaderTick  = "Drill-Tick"
)

// JetStreamConfig — параметры подключения к NATS JetStream
type JetStreamConfig struct {
	URL       string
	Stream    string
	Prefix    string
	Retention time.Duration // MaxAge стрима; 0 — без ограничения
	Replay    bool          // новые подписки получают историю стрима
}

// JetStreamBus реализует EventBus поверх NATS JetStream.
// Стрим хранится в памяти сервера NATS: события не переживают его перезапуск.
type JetStreamBus struct {
	nc     *nats.Conn
	js     nats.JetStreamContext
	stream string
	prefix string
	replay bool

	published uint64
	consumed  uint64
	dropped   uint64
}

// NewJetStreamBus подключается к NATS и создаёт стрим, если его нет.
func NewJetStreamBus(cfg JetStreamConfig) (*JetStreamBus, error) {
	if cfg.Stream == "" {
		cfg.Stream = "DRILL_EVENTS"
	}
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultSubjectPrefix
	}

	nc, err := nats.Connect(cfg.URL,
		nats.Name("drill-dungeon"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	if _, err = js.StreamInfo(cfg.Stream); err != nil {
		_, err = js.AddStream(&nats.StreamConfig{
			Name:       cfg.Stream,
			Subjects:   []string{cfg.Prefix + ".*"},
			Retention:  nats.LimitsPolicy,
			MaxAge:     cfg.Retention,
			Storage:    nats.MemoryStorage,
			Duplicates: time.Minute,
		})
		if err != nil {
			nc.Close()
			return nil, fmt.Errorf("add stream %s: %w", cfg.Stream, err)
		}
	}

	return &JetStreamBus{nc: nc, js: js, stream: cfg.Stream, prefix: cfg.Prefix, replay: cfg.Replay}, nil
}

// Subject возвращает subject для типа события
func (jb *JetStreamBus) Subject(eventType string) string {
	return SubjectFor(jb.prefix, eventType)
}

// SubjectFor строит subject <prefix>.<type>
func SubjectFor(prefix, eventType string) string {
	return prefix + "." + eventType
}

// Publish публикует Envelope в JSON. ID события становится Nats-Msg-Id,
// поэтому повторная публикация в окне дедупликации не создаёт дубль.
func (jb *JetStreamBus) Publish(ctx context.Context, ev *Envelope) error {
	data, err := json.Marshal(ev)
	if err != nil {
		atomic.AddUint64(&jb.dropped, 1)
		return err
	}

	msg := nats.NewMsg(jb.Subject(ev.EventType))
	msg.Data = data
	msg.Header.Set(HeaderLayer, strconv.Itoa(ev.Layer))
	msg.Header.Set(HeaderTick, strconv.FormatUint(ev.Tick, 10))

	opts := []nats.PubOpt{nats.Context(ctx)}
	if ev.ID != "" {
		opts = append(opts, nats.MsgId(ev.ID))
	}
	if _, err := jb.js.PublishMsg(msg, opts...); err != nil {
		atomic.AddUint64(&jb.dropped, 1)
		return err
	}
	atomic.AddUint64(&jb.published, 1)
	return nil
}

// Subscribe создаёт эфемерный consumer; он удаляется при Unsubscribe.
// Фильтр по одному типу сужается до subject'а, остальное проверяется на клиенте.
func (jb *JetStreamBus) Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error) {
	subj := jb.prefix + ".*"
	if len(f.Types) == 1 {
		subj = jb.Subject(f.Types[0])
	}

	deliver := nats.DeliverNew()
	if jb.replay {
		deliver = nats.DeliverAll()
	}

	natSub, err := jb.js.Subscribe(subj, func(msg *nats.Msg) {
		var ev Envelope
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			_ = msg.Term()
			return
		}
		if matchFilter(&ev, f) {
			h(ctx, &ev)
			atomic.AddUint64(&jb.consumed, 1)
		}
		_ = msg.Ack()
	}, nats.BindStream(jb.stream), nats.ManualAck(), nats.AckExplicit(), deliver, nats.AckWait(30*time.Second))
	if err != nil {
		return nil, err
	}

	return &jetSub{natSub}, nil
}

// jetSub обёртка вокруг *nats.Subscription
type jetSub struct {
	s *nats.Subscription
}

func (j *jetSub) Unsubscribe() {
	_ = j.s.Unsubscribe()
}

// Metrics возвращает счётчики клиента; очередь ведёт сам JetStream.
func (jb *JetStreamBus) Metrics() Stats {
	return Stats{
		Published: atomic.LoadUint64(&jb.published),
		Consumed:  atomic.LoadUint64(&jb.consumed),
		Dropped:   atomic.LoadUint64(&jb.dropped),
	}
}

// Close дренирует соединение с NATS
func (jb *JetStreamBus) Close() error {
	return jb.nc.Drain()
}
