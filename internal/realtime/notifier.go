package realtime

import (
	"context"

	"github.com/google/uuid"

	"github.com/escriba-legal/escriba-backend/internal/clients/redis"
	"github.com/escriba-legal/escriba-backend/internal/domain"
	"github.com/escriba-legal/escriba-backend/internal/platform/logger"
	"github.com/escriba-legal/escriba-backend/internal/sse"
)

// Notifier turns edit outcomes into SSE frames. With a bus attached,
// outcomes go through redis so multi-instance deployments stay in sync;
// without one they broadcast to the local hub only.
type Notifier struct {
	log *logger.Logger
	hub *sse.Hub
	bus redis.OutcomeBus
}

func NewNotifier(log *logger.Logger, hub *sse.Hub, bus redis.OutcomeBus) *Notifier {
	return &Notifier{
		log: log.With("service", "RealtimeNotifier"),
		hub: hub,
		bus: bus,
	}
}

func (n *Notifier) EditApplied(sessionID uuid.UUID, result domain.EditResult) {
	event := sse.EventEditApplied
	if result.ErrorKind == domain.ErrorStoreConflict {
		event = sse.EventEditConflict
	}
	n.send(sse.Message{
		Channel: sse.SessionChannel(sessionID),
		Event:   event,
		Data:    result,
	})
}

func (n *Notifier) SessionEnded(sessionID uuid.UUID) {
	n.send(sse.Message{
		Channel: sse.SessionChannel(sessionID),
		Event:   sse.EventSessionEnded,
	})
}

func (n *Notifier) send(msg sse.Message) {
	if n.bus != nil {
		if err := n.bus.Publish(context.Background(), msg); err != nil {
			n.log.Warn("bus publish failed; falling back to local broadcast", "error", err)
			n.hub.Broadcast(msg)
		}
		return
	}
	n.hub.Broadcast(msg)
}
