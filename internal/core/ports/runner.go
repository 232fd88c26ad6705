package ports

import "context"

type OutputKind int

const (
	OutputStdout OutputKind = iota
	OutputStderr
	OutputTerminated
)

// OutputEvent is one element of a spawned process's live output stream: a
// stdout line, a stderr line, or the single terminal event. Lines keep their
// per-stream order; no ordering is guaranteed between the two streams.
type OutputEvent struct {
	Kind     OutputKind
	Line     string
	ExitCode int
	// Signaled is set when the process was killed by a signal instead of
	// exiting with a code.
	Signaled bool
}

// CommandHandle owns one spawned process. The events channel is closed after
// the terminal event has been delivered.
type CommandHandle interface {
	Events() <-chan OutputEvent
	Kill() error
}

// CommandRunner spawns external commands without blocking the caller on the
// process lifetime. A spawn failure is reported immediately via the returned
// error; after a successful start all outcomes flow through the handle.
type CommandRunner interface {
	Start(ctx context.Context, name string, args ...string) (CommandHandle, error)
}
