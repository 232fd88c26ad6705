package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mongodesk/backend/internal/core/ports"
	"github.com/mongodesk/backend/internal/domain"
	"github.com/mongodesk/backend/internal/infrastructure/logger"
)

// credentialBroker matches sudo-password responses from the UI to pending
// requests through an in-memory correlation table. Each request registers a
// one-shot waiter under a fresh token before the request event is published,
// and deregisters it on resolve, timeout, or cancellation, so waiters are
// never leaked. Tokens are single-use and independent of each other.
type credentialBroker struct {
	sink    ports.EventSink
	logger  *logger.Logger
	timeout time.Duration

	mu      sync.Mutex
	waiters map[string]chan string
}

func NewCredentialBroker(sink ports.EventSink, log *logger.Logger, timeout time.Duration) ports.CredentialBroker {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &credentialBroker{
		sink:    sink,
		logger:  log,
		timeout: timeout,
		waiters: make(map[string]chan string),
	}
}

func (b *credentialBroker) RequestSecret(ctx context.Context) (string, error) {
	token := uuid.New().String()
	waiter := make(chan string, 1)

	b.mu.Lock()
	b.waiters[token] = waiter
	b.mu.Unlock()
	defer b.deregister(token)

	b.logger.Infow("credential_request", "request_id", token)
	b.sink.Publish(domain.Event{
		Name:    domain.EventCredentialRequest,
		Payload: domain.CredentialRequest{RequestID: token},
	})

	timer := time.NewTimer(b.timeout)
	defer timer.Stop()

	select {
	case secret := <-waiter:
		b.logger.Infow("credential_received", "request_id", token)
		return secret, nil
	case <-timer.C:
		b.logger.Warnw("credential_timeout", "request_id", token, "timeout", b.timeout)
		return "", ErrCredentialTimeout
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %v", ErrCredentialCancelled, ctx.Err())
	}
}

// Resolve hands a response to the waiter registered for token. The waiter is
// removed under the lock, so a token resolves at most once; responses for
// unknown or already-consumed tokens are dropped.
func (b *credentialBroker) Resolve(token, secret string) {
	b.mu.Lock()
	waiter, ok := b.waiters[token]
	if ok {
		delete(b.waiters, token)
	}
	b.mu.Unlock()

	if !ok {
		b.logger.Debugw("credential_response_ignored", "request_id", token)
		return
	}
	waiter <- secret
}

func (b *credentialBroker) deregister(token string) {
	b.mu.Lock()
	delete(b.waiters, token)
	b.mu.Unlock()
}
