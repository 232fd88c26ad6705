package domain

type RunState string

const (
	RunStateNotStarted RunState = "NOT_STARTED"
	RunStateRunning    RunState = "RUNNING"
	RunStateSucceeded  RunState = "SUCCEEDED"
	RunStateFailed     RunState = "FAILED"
	RunStateCancelled  RunState = "CANCELLED"
)

// Outcome is the terminal result of one installation run. FailedStep is the
// 1-based index of the failing step when State is FAILED, zero otherwise.
// Nothing is retained across runs; a new run always starts from step 1.
type Outcome struct {
	State      RunState `json:"state"`
	Step       int      `json:"step,omitempty"`
	TotalSteps int      `json:"totalSteps,omitempty"`
	FailedStep int      `json:"failedStep,omitempty"`
	Reason     string   `json:"reason,omitempty"`
}

// RuntimeStatus describes the live mongod process, independent of the
// installation verdict.
type RuntimeStatus struct {
	ProcessRunning bool    `json:"processRunning"`
	PID            int32   `json:"pid,omitempty"`
	CPUPercent     float64 `json:"cpuPercent,omitempty"`
	MemoryMB       float64 `json:"memoryMb,omitempty"`
	PortOpen       bool    `json:"portOpen"`
}
