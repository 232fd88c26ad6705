package services

import "errors"

// Installer errors
var (
	ErrUnsupportedPlatform = errors.New("installer: no installation procedure for this operating system")
	ErrInstallInProgress   = errors.New("installer: an installation is already running")
	ErrInstallCancelled    = errors.New("installer: installation cancelled")
	ErrNoActiveInstall     = errors.New("installer: no installation is running")
)

// Credential broker errors
var (
	ErrCredentialTimeout   = errors.New("credentials: no response received before the timeout")
	ErrCredentialCancelled = errors.New("credentials: request cancelled")
)

// Download errors
var (
	ErrDownloadFailed   = errors.New("download: all attempts failed")
	ErrDownloadZeroSize = errors.New("download: transfer completed but the file is missing or empty")
)

// Document service errors
var (
	ErrNotConnected = errors.New("documents: database connection not initialized, call connect first")
	ErrInvalidID    = errors.New("documents: invalid document id")
)
