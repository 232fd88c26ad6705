package domain

// Event names on the UI boundary. The frontend subscribes to these over the
// websocket; names match the original desktop wire contract.
const (
	EventInstallLog        = "mongodb-install-log"
	EventInstallError      = "mongodb-install-error"
	EventDownloadProgress  = "mongodb-download-progress"
	EventInstallerPath     = "mongodb-installer-path"
	EventCredentialRequest = "sudo-password-request"

	// Inbound message type carrying the sudo password back from the UI.
	MessageCredentialResponse = "sudo-password-response"
)

// Event is one fire-and-forget message pushed to the UI. Delivery is
// best-effort: slow or absent clients never block the installation pipeline.
type Event struct {
	Name    string `json:"event"`
	Payload any    `json:"payload"`
}

type InstallProgress struct {
	Step       int    `json:"step"`
	TotalSteps int    `json:"totalSteps"`
	Message    string `json:"message"`
	IsError    bool   `json:"isError"`
}

type DownloadProgress struct {
	BytesDownloaded int64   `json:"bytesDownloaded"`
	TotalBytes      int64   `json:"totalBytes"`
	Percentage      float64 `json:"percentage"`
}

type InstallerPath struct {
	Path string `json:"path"`
}

// CredentialRequest asks the UI for the sudo password. RequestID is a
// single-use correlation token; the matching CredentialResponse must echo it.
type CredentialRequest struct {
	RequestID string `json:"requestId"`
}

type CredentialResponse struct {
	Type      string `json:"type"`
	RequestID string `json:"requestId"`
	Password  string `json:"password"`
}
