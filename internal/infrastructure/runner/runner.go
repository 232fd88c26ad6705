package runner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"github.com/mongodesk/backend/internal/core/ports"
	"github.com/mongodesk/backend/internal/infrastructure/logger"
)

// SpawnError wraps the OS error returned when a process could not be started
// at all, as opposed to starting and then exiting nonzero.
type SpawnError struct {
	Command string
	Err     error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("runner: failed to spawn %s: %v", e.Command, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

type ExecRunner struct {
	logger *logger.Logger
}

func New(log *logger.Logger) *ExecRunner {
	return &ExecRunner{logger: log}
}

// Start spawns the command and streams its output as line events. The
// terminal event is always the last one delivered; the channel is closed
// afterwards. Cancelling ctx kills the process, so a caller that walks away
// never leaks a child.
func (r *ExecRunner) Start(ctx context.Context, name string, args ...string) (ports.CommandHandle, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &SpawnError{Command: name, Err: err}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, &SpawnError{Command: name, Err: err}
	}

	if err := cmd.Start(); err != nil {
		return nil, &SpawnError{Command: name, Err: err}
	}

	h := &execHandle{
		cmd:    cmd,
		events: make(chan ports.OutputEvent, 64),
	}

	var streams sync.WaitGroup
	streams.Add(2)
	go h.scan(stdout, ports.OutputStdout, &streams)
	go h.scan(stderr, ports.OutputStderr, &streams)

	go func() {
		// Both pipes must be drained before Wait closes them.
		streams.Wait()
		err := cmd.Wait()

		term := ports.OutputEvent{Kind: ports.OutputTerminated}
		if cmd.ProcessState != nil {
			term.ExitCode = cmd.ProcessState.ExitCode()
		}
		if err != nil && term.ExitCode == -1 {
			term.Signaled = true
		}

		r.logger.Debugw("process_terminated",
			"command", name,
			"exit_code", term.ExitCode,
			"signaled", term.Signaled,
		)

		h.events <- term
		close(h.events)
	}()

	return h, nil
}

type execHandle struct {
	cmd    *exec.Cmd
	events chan ports.OutputEvent
}

func (h *execHandle) Events() <-chan ports.OutputEvent {
	return h.events
}

func (h *execHandle) Kill() error {
	if h.cmd.Process == nil {
		return nil
	}
	return h.cmd.Process.Kill()
}

func (h *execHandle) scan(pipe io.Reader, kind ports.OutputKind, wg *sync.WaitGroup) {
	defer wg.Done()
	scanner := bufio.NewScanner(pipe)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		h.events <- ports.OutputEvent{Kind: kind, Line: scanner.Text()}
	}
}
