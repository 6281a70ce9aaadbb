package eventbus

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// ErrBusClosed возвращается при публикации в закрытую шину.
var ErrBusClosed = errors.New("шина событий закрыта")

// Envelope описывает универсальный контейнер события.
// Все поля фиксированы для версиирования и трассировки.
type Envelope struct {
	ID            string            `json:"id"`                       // Глобально уникальный идентификатор (UUID).
	Timestamp     time.Time         `json:"timestamp"`                // Время создания события (UTC).
	Source        string            `json:"source"`                   // Подсистема-источник (combat, world, game).
	EventType     string            `json:"event_type"`               // Тип события (block_destroyed, chunk_entered…).
	Version       int               `json:"version"`                  // Схема полезной нагрузки.
	CorrelationID string            `json:"correlation_id,omitempty"` // Для связывания цепочек.
	Tick          uint64            `json:"tick"`                     // Номер тика симуляции.
	Layer         int               `json:"layer"`                    // Глубина слоя подземелья.
	Priority      int               `json:"priority"`                 // 0=Low … 9=Critical (для backpressure).
	Payload       []byte            `json:"payload"`                  // Полезная нагрузка в JSON.
	Metadata      map[string]string `json:"metadata,omitempty"`       // Произвольные метаданные.
}

// Filter позволяет подписаться только на нужные события.
type Filter struct {
	Types       []string // Если пусто — все типы.
	Sources     []string // Если пусто — все источники.
	MinPriority int      // События с меньшим приоритетом пропускаются.
}

// Subscription возвращается при подписке; позволяет отписаться.
type Subscription interface {
	Unsubscribe()
}

// Handler потребляет события.
type Handler func(ctx context.Context, ev *Envelope)

// Stats агрегированные метрики шины.
type Stats struct {
	Published uint64
	Consumed  uint64
	Dropped   uint64
	InFlight  int
}

// EventBus определяет абстракцию шины событий.
// Реализации: in-memory и NATS JetStream.
type EventBus interface {
	Publish(ctx context.Context, ev *Envelope) error
	Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error)
	Metrics() Stats
	Close() error
}

//================ In-Memory implementation =================//

// Приоритет ниже dropPriority отбрасывается при заполненном буфере или
// почтовом ящике; остальные события ждут места.
const dropPriority = 5

// closeTimeout ограничивает ожидание обработчиков при Close
const closeTimeout = 2 * time.Second

// memoryBus доставляет события в процессе. Каждый подписчик получает
// события по порядку публикации через собственный почтовый ящик.
// Медленный подписчик теряет только низкоприоритетные события; важные
// ждут места в его ящике и задерживают раздачу остальным.
type memoryBus struct {
	mu          sync.RWMutex
	subscribers map[int]*subscriber
	nextID      int
	closed      bool

	buffer   chan *Envelope
	capacity int
	sendMu   sync.RWMutex // удерживается на время отправки в buffer
	done     chan struct{}
	abort    chan struct{} // закрывается, если Close ждёт дольше closeTimeout
	handlers sync.WaitGroup

	published uint64
	consumed  uint64
	dropped   uint64
}

type subscriber struct {
	filter  Filter
	handler Handler
	ctx     context.Context
	cancel  context.CancelFunc
	inbox   chan *Envelope
}

// NewMemoryBus создаёт in-memory шину. capacity задаёт размер общего
// буфера и почтового ящика каждого подписчика.
func NewMemoryBus(capacity int) EventBus {
	if capacity <= 0 {
		capacity = 1024
	}
	mb := newMemoryBus(capacity)
	go mb.dispatchLoop()
	return mb
}

func newMemoryBus(capacity int) *memoryBus {
	return &memoryBus{
		subscribers: make(map[int]*subscriber),
		buffer:      make(chan *Envelope, capacity),
		capacity:    capacity,
		done:        make(chan struct{}),
		abort:       make(chan struct{}),
	}
}

func (mb *memoryBus) Publish(ctx context.Context, ev *Envelope) error {
	mb.sendMu.RLock()
	defer mb.sendMu.RUnlock()

	mb.mu.RLock()
	closed := mb.closed
	mb.mu.RUnlock()
	if closed {
		return ErrBusClosed
	}

	select {
	case mb.buffer <- ev:
		atomic.AddUint64(&mb.published, 1)
		return nil
	default:
	}

	if ev.Priority < dropPriority {
		atomic.AddUint64(&mb.dropped, 1)
		return nil
	}
	// Важные события ждут места до отмены контекста или закрытия шины
	select {
	case mb.buffer <- ev:
		atomic.AddUint64(&mb.published, 1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-mb.abort:
		atomic.AddUint64(&mb.dropped, 1)
		return ErrBusClosed
	}
}

func (mb *memoryBus) Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	if mb.closed {
		return nil, ErrBusClosed
	}

	cctx, cancel := context.WithCancel(ctx)
	sub := &subscriber{
		filter:  f,
		handler: h,
		ctx:     cctx,
		cancel:  cancel,
		inbox:   make(chan *Envelope, mb.capacity),
	}
	id := mb.nextID
	mb.nextID++
	mb.subscribers[id] = sub

	mb.handlers.Add(1)
	go mb.deliver(sub)

	return &memSub{bus: mb, id: id}, nil
}

// deliver вызывает обработчик подписчика по порядку поступления
func (mb *memoryBus) deliver(sub *subscriber) {
	defer mb.handlers.Done()
	for {
		select {
		case <-sub.ctx.Done():
			return
		case ev, ok := <-sub.inbox:
			if !ok {
				return
			}
			sub.handler(sub.ctx, ev)
			atomic.AddUint64(&mb.consumed, 1)
		}
	}
}

func (mb *memoryBus) Metrics() Stats {
	return Stats{
		Published: atomic.LoadUint64(&mb.published),
		Consumed:  atomic.LoadUint64(&mb.consumed),
		Dropped:   atomic.LoadUint64(&mb.dropped),
		InFlight:  len(mb.buffer),
	}
}

// Close прекращает приём событий и даёт подписчикам дообработать
// уже опубликованные, но не дольше closeTimeout.
func (mb *memoryBus) Close() error {
	mb.mu.Lock()
	if mb.closed {
		mb.mu.Unlock()
		return nil
	}
	mb.closed = true
	mb.mu.Unlock()

	// Раздача, застрявшая на медленном подписчике, сбрасывается по таймауту
	abortTimer := time.AfterFunc(closeTimeout, func() { close(mb.abort) })

	mb.sendMu.Lock()
	close(mb.buffer)
	mb.sendMu.Unlock()
	<-mb.done
	abortTimer.Stop()

	mb.mu.Lock()
	subs := make([]*subscriber, 0, len(mb.subscribers))
	for id, sub := range mb.subscribers {
		close(sub.inbox)
		subs = append(subs, sub)
		delete(mb.subscribers, id)
	}
	mb.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		mb.handlers.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-time.After(closeTimeout):
	}
	for _, sub := range subs {
		sub.cancel()
	}
	return nil
}

// dispatchLoop раскладывает события по почтовым ящикам подписчиков.
// Отправка идёт без блокировки mu, чтобы ожидание места не мешало
// Subscribe и Unsubscribe.
func (mb *memoryBus) dispatchLoop() {
	defer close(mb.done)
	var targets []*subscriber
	for ev := range mb.buffer {
		targets = targets[:0]
		mb.mu.RLock()
		for _, sub := range mb.subscribers {
			if matchFilter(ev, sub.filter) {
				targets = append(targets, sub)
			}
		}
		mb.mu.RUnlock()

		for _, sub := range targets {
			mb.offer(sub, ev)
		}
	}
}

// offer кладёт событие в ящик подписчика
func (mb *memoryBus) offer(sub *subscriber, ev *Envelope) {
	select {
	case sub.inbox <- ev:
		return
	case <-sub.ctx.Done():
		return
	default:
	}

	if ev.Priority < dropPriority {
		atomic.AddUint64(&mb.dropped, 1)
		return
	}
	select {
	case sub.inbox <- ev:
	case <-sub.ctx.Done():
	case <-mb.abort:
		atomic.AddUint64(&mb.dropped, 1)
	}
}

func matchFilter(ev *Envelope, f Filter) bool {
	return contains(f.Types, ev.EventType) && contains(f.Sources, ev.Source) && ev.Priority >= f.MinPriority
}

// contains: пустой список пропускает всё
func contains(list []string, val string) bool {
	if len(list) == 0 {
		return true
	}
	for _, v := range list {
		if v == val {
			return true
		}
	}
	return false
}

type memSub struct {
	bus *memoryBus
	id  int
}

// Unsubscribe останавливает доставку. Почтовый ящик закрывает только Close.
func (s *memSub) Unsubscribe() {
	s.bus.mu.Lock()
	if sub, ok := s.bus.subscribers[s.id]; ok {
		sub.cancel()
		delete(s.bus.subscribers, s.id)
	}
	s.bus.mu.Unlock()
}
