package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/annel0/drill-dungeon/internal/combat"
	"github.com/annel0/drill-dungeon/internal/logging"
)

const (
	hubWriteTimeout = 5 * time.Second
	hubReadTimeout  = 60 * time.Second
)

// EventHub рассылает события столкновений подключённым websocket-клиентам.
// Реализует combat.EventSink. Медленный клиент теряет события, тик не ждёт.
type EventHub struct {
	mu       sync.RWMutex
	clients  map[*hubClient]struct{}
	upgrader websocket.Upgrader
	buffer   int
	dropped  atomic.Uint64
}

type hubClient struct {
	out chan []byte
}

// NewEventHub создаёт хаб с очередью buffer сообщений на клиента
func NewEventHub(buffer int) *EventHub {
	if buffer <= 0 {
		buffer = 256
	}
	return &EventHub{
		clients: make(map[*hubClient]struct{}),
		buffer:  buffer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Emit сериализует событие и рассылает его
func (h *EventHub) Emit(ev combat.CollisionEvent) {
	msg, err := json.Marshal(ev)
	if err != nil {
		logging.GetAPILogger().Error("EventHub: не удалось сериализовать %s: %v", ev.Kind, err)
		return
	}
	h.Broadcast(msg)
}

// Broadcast отправляет сообщение всем клиентам без блокировки
func (h *EventHub) Broadcast(msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.out <- msg:
		default:
			h.dropped.Add(1)
		}
	}
}

// Clients возвращает число подключённых клиентов
func (h *EventHub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Dropped возвращает число сообщений, не доставленных медленным клиентам
func (h *EventHub) Dropped() uint64 {
	return h.dropped.Load()
}

func (h *EventHub) register() *hubClient {
	c := &hubClient{out: make(chan []byte, h.buffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	return c
}

func (h *EventHub) unregister(c *hubClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

// Handler обслуживает GET /ws/events
func (h *EventHub) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logging.GetAPILogger().Warn("EventHub: upgrade не удался: %v", err)
			return
		}
		defer conn.Close()

		client := h.register()
		defer h.unregister(client)
		logging.GetAPILogger().Debug("🔌 EventHub: клиент %s подключён", c.ClientIP())

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine
		writeDone := make(chan struct{})
		go func() {
			defer close(writeDone)
			for {
				select {
				case <-ctx.Done():
					return
				case msg := <-client.out:
					_ = conn.SetWriteDeadline(time.Now().Add(hubWriteTimeout))
					if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop: входящие сообщения игнорируются, ждём закрытия
		for {
			_ = conn.SetReadDeadline(time.Now().Add(hubReadTimeout))
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}

		cancel()
		<-writeDone
		logging.GetAPILogger().Debug("🔌 EventHub: клиент %s отключён", c.ClientIP())
	}
}
