package services

import (
	"context"
	"fmt"

	"github.com/mongodesk/backend/internal/config"
	"github.com/mongodesk/backend/internal/core/ports"
	"github.com/mongodesk/backend/internal/domain"
	"github.com/mongodesk/backend/internal/infrastructure/logger"
)

type stepInfo struct {
	Step  int
	Total int
}

// planStep is one atomic unit of an installation plan, mapped to a single
// external procedure. Steps are immutable once the plan is built and are
// consumed strictly in order.
type planStep struct {
	description string
	run         func(ctx context.Context, info stepInfo, secret string) error
}

// PlanProvider supplies the ordered installation steps for one platform.
// Adding a platform means adding a provider, not branching inside the
// sequencer.
type PlanProvider interface {
	Platform() string
	// RequiresPrivilege reports whether the plan needs the sudo secret; the
	// sequencer then obtains it once, before the first step.
	RequiresPrivilege() bool
	Steps() []planStep
}

// NewPlanProvider selects the provider for goos, or nil when no installation
// procedure exists for that platform.
func NewPlanProvider(
	goos string,
	runner ports.CommandRunner,
	downloader ports.Downloader,
	sink ports.EventSink,
	log *logger.Logger,
	cfg config.InstallerConfig,
) PlanProvider {
	switch goos {
	case "linux":
		return newUbuntuPlan(runner, sink, log)
	case "windows":
		return newWindowsPlan(runner, downloader, sink, log, cfg.MongoVersion)
	default:
		return nil
	}
}

// streamCommand runs one plan step's process, forwarding its output to the
// UI tagged with the step position, and maps the exit status to the step
// result. Stdout becomes install-log events and stderr install-error events;
// a nonzero exit or signal death fails the step.
func streamCommand(ctx context.Context, runner ports.CommandRunner, sink ports.EventSink, info stepInfo, description, name string, args ...string) error {
	handle, err := runner.Start(ctx, name, args...)
	if err != nil {
		return fmt.Errorf("failed to spawn command at step %d: %w", info.Step, err)
	}

	for ev := range handle.Events() {
		switch ev.Kind {
		case ports.OutputStdout:
			sink.Publish(domain.Event{
				Name:    domain.EventInstallLog,
				Payload: domain.InstallProgress{Step: info.Step, TotalSteps: info.Total, Message: ev.Line},
			})
		case ports.OutputStderr:
			sink.Publish(domain.Event{
				Name:    domain.EventInstallError,
				Payload: domain.InstallProgress{Step: info.Step, TotalSteps: info.Total, Message: ev.Line, IsError: true},
			})
		case ports.OutputTerminated:
			if ev.Signaled {
				return fmt.Errorf("command was terminated by a signal during step %d: %s", info.Step, description)
			}
			if ev.ExitCode != 0 {
				return fmt.Errorf("command failed with exit code %d during step %d: %s", ev.ExitCode, info.Step, description)
			}
		}
	}
	return nil
}

// captureCommand runs a command to completion and returns its stdout lines
// and exit code, for probes and verifications whose output is inspected
// rather than forwarded.
func captureCommand(ctx context.Context, runner ports.CommandRunner, name string, args ...string) ([]string, int, error) {
	handle, err := runner.Start(ctx, name, args...)
	if err != nil {
		return nil, -1, err
	}

	var lines []string
	exitCode := 0
	for ev := range handle.Events() {
		switch ev.Kind {
		case ports.OutputStdout:
			lines = append(lines, ev.Line)
		case ports.OutputTerminated:
			exitCode = ev.ExitCode
		}
	}
	return lines, exitCode, nil
}
