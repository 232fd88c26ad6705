package runner

import (
	"context"
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/mongodesk/backend/internal/core/ports"
	"github.com/mongodesk/backend/internal/infrastructure/logger"
)

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("tests drive /bin/sh")
	}
}

func collect(t *testing.T, h ports.CommandHandle) []ports.OutputEvent {
	t.Helper()
	var events []ports.OutputEvent
	timeout := time.After(10 * time.Second)
	for {
		select {
		case ev, ok := <-h.Events():
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatal("timed out waiting for process events")
		}
	}
}

func TestStartStreamsStdoutInOrder(t *testing.T) {
	requireShell(t)

	r := New(logger.Nop())
	h, err := r.Start(context.Background(), "sh", "-c", "echo first; echo second")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	events := collect(t, h)

	var lines []string
	for _, ev := range events {
		if ev.Kind == ports.OutputStdout {
			lines = append(lines, ev.Line)
		}
	}
	if len(lines) != 2 || lines[0] != "first" || lines[1] != "second" {
		t.Fatalf("stdout lines = %v, want [first second]", lines)
	}

	last := events[len(events)-1]
	if last.Kind != ports.OutputTerminated || last.ExitCode != 0 {
		t.Fatalf("last event = %+v, want clean termination", last)
	}
}

func TestStartSeparatesStderr(t *testing.T) {
	requireShell(t)

	r := New(logger.Nop())
	h, err := r.Start(context.Background(), "sh", "-c", "echo oops 1>&2")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	var sawStderr bool
	for _, ev := range collect(t, h) {
		if ev.Kind == ports.OutputStderr && ev.Line == "oops" {
			sawStderr = true
		}
		if ev.Kind == ports.OutputStdout {
			t.Fatalf("unexpected stdout event %+v", ev)
		}
	}
	if !sawStderr {
		t.Fatal("stderr line was not delivered")
	}
}

func TestStartReportsExitCode(t *testing.T) {
	requireShell(t)

	r := New(logger.Nop())
	h, err := r.Start(context.Background(), "sh", "-c", "exit 3")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	events := collect(t, h)
	last := events[len(events)-1]
	if last.Kind != ports.OutputTerminated || last.ExitCode != 3 {
		t.Fatalf("terminal event = %+v, want exit code 3", last)
	}
}

func TestStartSpawnFailure(t *testing.T) {
	requireShell(t)

	r := New(logger.Nop())
	_, err := r.Start(context.Background(), "/nonexistent/mongodesk-test-binary")
	if err == nil {
		t.Fatal("expected spawn error")
	}
	var spawnErr *SpawnError
	if !errors.As(err, &spawnErr) {
		t.Fatalf("error %v is not a SpawnError", err)
	}
}

func TestContextCancelKillsProcess(t *testing.T) {
	requireShell(t)

	ctx, cancel := context.WithCancel(context.Background())
	r := New(logger.Nop())
	h, err := r.Start(ctx, "sh", "-c", "sleep 30")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	cancel()

	done := make(chan []ports.OutputEvent, 1)
	go func() {
		var events []ports.OutputEvent
		for ev := range h.Events() {
			events = append(events, ev)
		}
		done <- events
	}()

	select {
	case events := <-done:
		last := events[len(events)-1]
		if last.Kind != ports.OutputTerminated {
			t.Fatalf("last event = %+v, want termination", last)
		}
		if !last.Signaled {
			t.Fatalf("terminal event = %+v, want signaled", last)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("cancelled process did not terminate")
	}
}
