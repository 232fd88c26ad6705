package handlers

import (
	"encoding/json"
	"sync"

	"github.com/gofiber/contrib/websocket"
	"github.com/mongodesk/backend/internal/core/ports"
	"github.com/mongodesk/backend/internal/domain"
	"github.com/mongodesk/backend/internal/infrastructure/logger"
)

// EventHub fans installation events out to every connected frontend over the
// websocket and routes credential responses back to the broker. Publishing is
// non-blocking: a client that cannot keep up has its oldest events dropped
// rather than stalling the installation pipeline.
type EventHub struct {
	logger *logger.Logger
	broker ports.CredentialBroker

	mu      sync.Mutex
	clients map[*websocket.Conn]chan domain.Event
}

const clientBufferSize = 256

func NewEventHub(log *logger.Logger) *EventHub {
	return &EventHub{
		logger:  log,
		clients: make(map[*websocket.Conn]chan domain.Event),
	}
}

// SetBroker wires the credential broker after construction; the hub must
// exist before the broker because the broker publishes through it.
func (h *EventHub) SetBroker(broker ports.CredentialBroker) {
	h.broker = broker
}

// Publish implements ports.EventSink. Events go to every connected client;
// with no clients the event is dropped, matching fire-and-forget emission.
func (h *EventHub) Publish(event domain.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, ch := range h.clients {
		select {
		case ch <- event:
		default:
			// Buffer full: drop the oldest event to make room.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- event:
			default:
			}
			h.logger.Debugw("event_client_lagging", "client", conn.RemoteAddr())
		}
	}
}

// Handle owns one websocket connection for its lifetime. A writer goroutine
// drains the client's event channel while this goroutine reads inbound
// messages until the connection drops.
func (h *EventHub) Handle(c *websocket.Conn) {
	events := make(chan domain.Event, clientBufferSize)

	h.mu.Lock()
	h.clients[c] = events
	h.mu.Unlock()
	h.logger.Infow("event_client_connected", "client", c.RemoteAddr())

	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range events {
			payload, err := json.Marshal(ev)
			if err != nil {
				h.logger.Errorw("event_marshal_failed", "event", ev.Name, "error", err)
				continue
			}
			if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		}
	}()

	for {
		_, msg, err := c.ReadMessage()
		if err != nil {
			break
		}
		h.handleInbound(msg)
	}

	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	close(events)
	<-done
	c.Close()
	h.logger.Infow("event_client_disconnected", "client", c.RemoteAddr())
}

// handleInbound routes client messages. The only inbound message today is the
// sudo password response; its payload is never logged.
func (h *EventHub) handleInbound(msg []byte) {
	var resp domain.CredentialResponse
	if err := json.Unmarshal(msg, &resp); err != nil {
		h.logger.Warnw("event_inbound_parse_failed", "error", err)
		return
	}
	if resp.Type != domain.MessageCredentialResponse {
		h.logger.Debugw("event_inbound_unknown_type", "type", resp.Type)
		return
	}
	if h.broker == nil {
		h.logger.Warnw("event_credential_response_no_broker")
		return
	}
	h.logger.Infow("event_credential_response", "request_id", resp.RequestID)
	h.broker.Resolve(resp.RequestID, resp.Password)
}
