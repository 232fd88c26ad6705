package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mongodesk/backend/internal/domain"
	"github.com/mongodesk/backend/internal/infrastructure/logger"
)

// recordingSink captures published events for assertions.
type recordingSink struct {
	mu     sync.Mutex
	events []domain.Event
}

func (s *recordingSink) Publish(event domain.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *recordingSink) all() []domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Event, len(s.events))
	copy(out, s.events)
	return out
}

func (s *recordingSink) named(name string) []domain.Event {
	var out []domain.Event
	for _, ev := range s.all() {
		if ev.Name == name {
			out = append(out, ev)
		}
	}
	return out
}

// waitForTokens polls the sink until n credential requests have been
// published, returning their tokens in publish order.
func waitForTokens(t *testing.T, sink *recordingSink, n int) []string {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		requests := sink.named(domain.EventCredentialRequest)
		if len(requests) >= n {
			tokens := make([]string, n)
			for i := 0; i < n; i++ {
				tokens[i] = requests[i].Payload.(domain.CredentialRequest).RequestID
			}
			return tokens
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d credential requests", n)
	return nil
}

func TestRequestSecretResolved(t *testing.T) {
	sink := &recordingSink{}
	broker := NewCredentialBroker(sink, logger.Nop(), 5*time.Second)

	type result struct {
		secret string
		err    error
	}
	done := make(chan result, 1)
	go func() {
		secret, err := broker.RequestSecret(context.Background())
		done <- result{secret, err}
	}()

	token := waitForTokens(t, sink, 1)[0]
	broker.Resolve(token, "hunter2")

	res := <-done
	if res.err != nil {
		t.Fatalf("RequestSecret: %v", res.err)
	}
	if res.secret != "hunter2" {
		t.Fatalf("secret = %q, want hunter2", res.secret)
	}
}

func TestRequestSecretTimesOut(t *testing.T) {
	sink := &recordingSink{}
	broker := NewCredentialBroker(sink, logger.Nop(), 30*time.Millisecond)

	_, err := broker.RequestSecret(context.Background())
	if !errors.Is(err, ErrCredentialTimeout) {
		t.Fatalf("err = %v, want ErrCredentialTimeout", err)
	}
}

func TestRequestSecretCancelled(t *testing.T) {
	sink := &recordingSink{}
	broker := NewCredentialBroker(sink, logger.Nop(), 5*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() {
		_, err := broker.RequestSecret(ctx)
		errs <- err
	}()

	waitForTokens(t, sink, 1)
	cancel()

	if err := <-errs; !errors.Is(err, ErrCredentialCancelled) {
		t.Fatalf("err = %v, want ErrCredentialCancelled", err)
	}
}

func TestResolveUnknownTokenIgnored(t *testing.T) {
	sink := &recordingSink{}
	broker := NewCredentialBroker(sink, logger.Nop(), 30*time.Millisecond)

	// Must not panic or resolve anything.
	broker.Resolve("never-requested", "secret")

	_, err := broker.RequestSecret(context.Background())
	if !errors.Is(err, ErrCredentialTimeout) {
		t.Fatalf("err = %v, want ErrCredentialTimeout", err)
	}
}

func TestResolveAfterTimeoutIgnored(t *testing.T) {
	sink := &recordingSink{}
	broker := NewCredentialBroker(sink, logger.Nop(), 20*time.Millisecond)

	_, err := broker.RequestSecret(context.Background())
	if !errors.Is(err, ErrCredentialTimeout) {
		t.Fatalf("err = %v, want ErrCredentialTimeout", err)
	}

	// The waiter is already torn down; the late response must be dropped.
	token := waitForTokens(t, sink, 1)[0]
	broker.Resolve(token, "too-late")
	broker.Resolve(token, "too-late-again")
}

func TestConcurrentRequestsAreIndependent(t *testing.T) {
	sink := &recordingSink{}
	broker := NewCredentialBroker(sink, logger.Nop(), 150*time.Millisecond)

	type result struct {
		secret string
		err    error
	}
	first := make(chan result, 1)
	second := make(chan result, 1)

	go func() {
		secret, err := broker.RequestSecret(context.Background())
		first <- result{secret, err}
	}()
	waitForTokens(t, sink, 1)
	go func() {
		secret, err := broker.RequestSecret(context.Background())
		second <- result{secret, err}
	}()

	tokens := waitForTokens(t, sink, 2)
	broker.Resolve(tokens[1], "for-the-second")

	resB := <-second
	if resB.err != nil || resB.secret != "for-the-second" {
		t.Fatalf("second request = (%q, %v), want resolved secret", resB.secret, resB.err)
	}

	// The first waiter must still be pending and time out on its own.
	resA := <-first
	if !errors.Is(resA.err, ErrCredentialTimeout) {
		t.Fatalf("first request err = %v, want ErrCredentialTimeout", resA.err)
	}
}
