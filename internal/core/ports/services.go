package ports

import (
	"context"

	"github.com/mongodesk/backend/internal/domain"
)

// EventSink receives progress events bound for the UI. Implementations must
// not block: publishing from the installation pipeline is fire-and-forget.
type EventSink interface {
	Publish(event domain.Event)
}

type InstallerService interface {
	// Install runs the platform installation plan to completion or first
	// failure. Only one run may be active; concurrent calls fail with
	// ErrInstallInProgress. Cancelling ctx kills the running step's process.
	Install(ctx context.Context) error
	// Start launches Install on a background context and returns immediately.
	Start() error
	// Cancel aborts the active run, if any.
	Cancel() bool
	LastOutcome() domain.Outcome
}

type DetectorService interface {
	// IsInstalled aggregates the platform probes by majority vote.
	// It has no side effects and is safe to call repeatedly.
	IsInstalled(ctx context.Context) bool
	Runtime(ctx context.Context) domain.RuntimeStatus
}

// CredentialBroker performs the correlated secret exchange with the UI.
type CredentialBroker interface {
	// RequestSecret publishes a credential request and waits for the matching
	// response, the configured timeout, or ctx cancellation.
	RequestSecret(ctx context.Context) (string, error)
	// Resolve delivers a response for token. Responses for unknown or
	// already-consumed tokens are ignored.
	Resolve(token, secret string)
}

// Downloader fetches a remote file to a local destination with progress
// events, bounded retries, and atomic promotion of the completed transfer.
type Downloader interface {
	Fetch(ctx context.Context, url, dest string) error
}

// DocumentService is the thin CRUD pass-through over the MongoDB client.
// It performs no orchestration; callers connect explicitly (or rely on the
// bootstrap auto-connect) after installation.
type DocumentService interface {
	Connect(ctx context.Context, uri string) error
	Disconnect(ctx context.Context) error
	Insert(ctx context.Context, collection string, document map[string]any) (string, error)
	Find(ctx context.Context, collection string, filter map[string]any) ([]map[string]any, error)
	Update(ctx context.Context, collection, id string, fields map[string]any) (bool, error)
	Delete(ctx context.Context, collection, id string) (bool, error)
	ListCollections(ctx context.Context) ([]string, error)
}
