package eventbus

import (
	"context"

	"github.com/annel0/drill-dungeon/internal/logging"
)

// PriorityHigh — события с таким приоритетом и выше пишутся в лог на INFO
const PriorityHigh = 8

// StartLoggingListener подписывается на все события шины и пишет их в logger.
// Важные события (смена слоя) идут на INFO, поток столкновений на TRACE.
// nil logger — логгер компонента game.
func StartLoggingListener(bus EventBus, logger *logging.Logger) (Subscription, error) {
	if logger == nil {
		logger = logging.GetGameLogger()
	}

	sub, err := bus.Subscribe(context.Background(), Filter{}, func(ctx context.Context, ev *Envelope) {
		if ev.Priority >= PriorityHigh {
			logger.Info("[EventBus] %s src=%s tick=%d layer=%d %s",
				ev.EventType, ev.Source, ev.Tick, ev.Layer, ev.Payload)
			return
		}
		logger.Trace("[EventBus] %s %s src=%s tick=%d layer=%d size=%dB",
			ev.ID, ev.EventType, ev.Source, ev.Tick, ev.Layer, len(ev.Payload))
	})
	if err != nil {
		return nil, err
	}
	logger.Info("🪵 Журнал событий: подписка на шину активирована")
	return sub, nil
}
