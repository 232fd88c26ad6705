package handlers

import (
	"context"
	"testing"

	"github.com/mongodesk/backend/internal/domain"
	"github.com/mongodesk/backend/internal/infrastructure/logger"
)

type resolveRecorder struct {
	token  string
	secret string
	calls  int
}

func (r *resolveRecorder) RequestSecret(ctx context.Context) (string, error) { return "", nil }

func (r *resolveRecorder) Resolve(token, secret string) {
	r.token = token
	r.secret = secret
	r.calls++
}

func TestPublishWithoutClientsIsDropped(t *testing.T) {
	hub := NewEventHub(logger.Nop())
	// Must not block or panic with nobody connected.
	hub.Publish(domain.Event{Name: domain.EventInstallLog})
}

func TestInboundCredentialResponseReachesBroker(t *testing.T) {
	hub := NewEventHub(logger.Nop())
	broker := &resolveRecorder{}
	hub.SetBroker(broker)

	hub.handleInbound([]byte(`{"type":"sudo-password-response","requestId":"tok-1","password":"hunter2"}`))

	if broker.calls != 1 || broker.token != "tok-1" || broker.secret != "hunter2" {
		t.Fatalf("broker got (%q, %q) after %d calls", broker.token, broker.secret, broker.calls)
	}
}

func TestInboundUnknownTypeIgnored(t *testing.T) {
	hub := NewEventHub(logger.Nop())
	broker := &resolveRecorder{}
	hub.SetBroker(broker)

	hub.handleInbound([]byte(`{"type":"something-else","requestId":"tok-1","password":"x"}`))
	hub.handleInbound([]byte(`not json at all`))

	if broker.calls != 0 {
		t.Fatalf("broker called %d times for non-credential messages", broker.calls)
	}
}

func TestInboundWithoutBrokerDoesNotPanic(t *testing.T) {
	hub := NewEventHub(logger.Nop())
	hub.handleInbound([]byte(`{"type":"sudo-password-response","requestId":"tok-1","password":"x"}`))
}
