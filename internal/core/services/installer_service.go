package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mongodesk/backend/internal/core/ports"
	"github.com/mongodesk/backend/internal/domain"
	"github.com/mongodesk/backend/internal/infrastructure/logger"
)

// installerService sequences the platform installation plan. At most one run
// is active at a time; a second Install fails fast instead of queueing. Steps
// execute strictly in order and the first failure aborts the run, because
// later steps assume the side effects of earlier ones.
type installerService struct {
	provider PlanProvider
	broker   ports.CredentialBroker
	sink     ports.EventSink
	logger   *logger.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	outcome domain.Outcome
}

func NewInstallerService(provider PlanProvider, broker ports.CredentialBroker, sink ports.EventSink, log *logger.Logger) ports.InstallerService {
	return &installerService{
		provider: provider,
		broker:   broker,
		sink:     sink,
		logger:   log,
		outcome:  domain.Outcome{State: domain.RunStateNotStarted},
	}
}

func (s *installerService) Install(ctx context.Context) error {
	ctx, err := s.begin(ctx)
	if err != nil {
		return err
	}
	return s.run(ctx)
}

// Start launches the installation on a background context so the HTTP
// handler can return 202 immediately. Progress and the terminal outcome
// travel over the event sink.
func (s *installerService) Start() error {
	ctx, err := s.begin(context.Background())
	if err != nil {
		return err
	}
	go func() {
		if err := s.run(ctx); err != nil {
			s.logger.Errorw("install_failed", "error", err)
		}
	}()
	return nil
}

func (s *installerService) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running || s.cancel == nil {
		return false
	}
	s.cancel()
	return true
}

func (s *installerService) LastOutcome() domain.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcome
}

// begin claims the single run slot and arms the cancel function. The returned
// context governs every step of the run, including the credential exchange.
func (s *installerService) begin(parent context.Context) (context.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil, ErrInstallInProgress
	}
	ctx, cancel := context.WithCancel(parent)
	s.running = true
	s.cancel = cancel
	s.outcome = domain.Outcome{State: domain.RunStateRunning}
	return ctx, nil
}

func (s *installerService) run(ctx context.Context) error {
	if s.provider == nil {
		s.emitError(0, 0, ErrUnsupportedPlatform.Error())
		return s.finish(domain.Outcome{State: domain.RunStateFailed, Reason: ErrUnsupportedPlatform.Error()}, ErrUnsupportedPlatform)
	}

	steps := s.provider.Steps()
	total := len(steps)
	s.logger.Infow("install_started", "platform", s.provider.Platform(), "steps", total)

	// The sudo secret is requested once, before the first step, and lives
	// only in this frame. It must never reach the logger or the sink.
	secret := ""
	if s.provider.RequiresPrivilege() {
		var err error
		secret, err = s.broker.RequestSecret(ctx)
		if err != nil {
			s.emitError(0, total, "Installation aborted: "+err.Error())
			return s.fail(ctx, 0, total, err)
		}
	}

	for i, step := range steps {
		info := stepInfo{Step: i + 1, Total: total}
		s.setProgress(info)
		s.emitLog(info.Step, total, step.description+" - Starting")

		if err := step.run(ctx, info, secret); err != nil {
			s.emitError(info.Step, total, err.Error())
			return s.fail(ctx, info.Step, total, err)
		}
		s.emitLog(info.Step, total, step.description+" - Completed")
	}

	s.emitLog(total, total, "MongoDB installation completed successfully")
	s.logger.Infow("install_succeeded", "steps", total)
	return s.finish(domain.Outcome{State: domain.RunStateSucceeded, Step: total, TotalSteps: total}, nil)
}

// fail classifies the terminal state: a run whose context was cancelled ends
// CANCELLED regardless of which error surfaced the cancellation.
func (s *installerService) fail(ctx context.Context, step, total int, err error) error {
	if ctx.Err() != nil || errors.Is(err, ErrCredentialCancelled) {
		s.logger.Infow("install_cancelled", "step", step)
		return s.finish(domain.Outcome{
			State:      domain.RunStateCancelled,
			Step:       step,
			TotalSteps: total,
			Reason:     ErrInstallCancelled.Error(),
		}, ErrInstallCancelled)
	}
	s.logger.Errorw("install_step_failed", "step", step, "error", err)
	return s.finish(domain.Outcome{
		State:      domain.RunStateFailed,
		Step:       step,
		TotalSteps: total,
		FailedStep: step,
		Reason:     err.Error(),
	}, fmt.Errorf("installation failed at step %d: %w", step, err))
}

func (s *installerService) finish(outcome domain.Outcome, err error) error {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.running = false
	s.outcome = outcome
	s.mu.Unlock()
	return err
}

func (s *installerService) setProgress(info stepInfo) {
	s.mu.Lock()
	s.outcome.Step = info.Step
	s.outcome.TotalSteps = info.Total
	s.mu.Unlock()
}

func (s *installerService) emitLog(step, total int, message string) {
	s.sink.Publish(domain.Event{
		Name:    domain.EventInstallLog,
		Payload: domain.InstallProgress{Step: step, TotalSteps: total, Message: message},
	})
}

func (s *installerService) emitError(step, total int, message string) {
	s.sink.Publish(domain.Event{
		Name:    domain.EventInstallError,
		Payload: domain.InstallProgress{Step: step, TotalSteps: total, Message: message, IsError: true},
	})
}
