package services

import (
	"context"
	"net"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	goversion "github.com/hashicorp/go-version"
	"github.com/mongodesk/backend/internal/core/ports"
	"github.com/mongodesk/backend/internal/domain"
	"github.com/mongodesk/backend/internal/infrastructure/logger"
	"github.com/shirou/gopsutil/v3/process"
)

// Probe is one independent, side-effect-free installation check. An error
// counts as a false vote and never surfaces to the caller.
type Probe struct {
	Name  string
	Check func(ctx context.Context) (bool, error)
}

type detectorService struct {
	logger *logger.Logger
	probes []Probe
}

// NewDetectorService builds the detector with the probe set for the current
// platform. Unsupported platforms get no probes and always report not
// installed.
func NewDetectorService(log *logger.Logger) ports.DetectorService {
	return NewDetectorServiceWithProbes(log, platformProbes()...)
}

func NewDetectorServiceWithProbes(log *logger.Logger, probes ...Probe) ports.DetectorService {
	return &detectorService{logger: log, probes: probes}
}

// IsInstalled aggregates the probes by majority vote: installed iff more than
// half pass. With the standard odd-sized probe set this tolerates exactly one
// flaky or erroring probe in either direction.
func (d *detectorService) IsInstalled(ctx context.Context) bool {
	if len(d.probes) == 0 {
		return false
	}

	votes := 0
	for _, probe := range d.probes {
		ok, err := probe.Check(ctx)
		if err != nil {
			d.logger.Debugw("install_probe_error", "probe", probe.Name, "error", err)
			ok = false
		}
		d.logger.Debugw("install_probe", "probe", probe.Name, "passed", ok)
		if ok {
			votes++
		}
	}

	installed := votes*2 > len(d.probes)
	d.logger.Infow("install_check",
		"votes", votes,
		"probes", len(d.probes),
		"installed", installed,
	)
	return installed
}

// Runtime reports on the live mongod process, independent of the installation
// verdict: useful for the UI's status view after installation.
func (d *detectorService) Runtime(ctx context.Context) domain.RuntimeStatus {
	var status domain.RuntimeStatus

	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		d.logger.Debugw("runtime_process_scan_failed", "error", err)
	}
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		if name != "mongod" && name != "mongod.exe" {
			continue
		}
		status.ProcessRunning = true
		status.PID = p.Pid
		if cpu, err := p.CPUPercentWithContext(ctx); err == nil {
			status.CPUPercent = cpu
		}
		if mem, err := p.MemoryInfoWithContext(ctx); err == nil && mem != nil {
			status.MemoryMB = float64(mem.RSS) / (1024 * 1024)
		}
		break
	}

	if conn, err := net.DialTimeout("tcp", "localhost:27017", 2*time.Second); err == nil {
		conn.Close()
		status.PortOpen = true
	}

	return status
}

func platformProbes() []Probe {
	switch runtime.GOOS {
	case "linux":
		return linuxProbes()
	case "windows":
		return windowsProbes()
	default:
		return nil
	}
}

func linuxProbes() []Probe {
	return []Probe{
		{
			Name: "systemd-unit",
			Check: func(ctx context.Context) (bool, error) {
				out, err := exec.CommandContext(ctx, "systemctl", "list-unit-files", "mongod.service").Output()
				if err != nil {
					return false, err
				}
				return strings.Contains(string(out), "mongod.service"), nil
			},
		},
		{
			Name: "binary-on-path",
			Check: func(ctx context.Context) (bool, error) {
				_, err := exec.LookPath("mongod")
				return err == nil, nil
			},
		},
		{
			Name: "version-query",
			Check: func(ctx context.Context) (bool, error) {
				out, err := exec.CommandContext(ctx, "mongod", "--version").Output()
				if err != nil {
					return false, err
				}
				return parseMongodVersion(string(out)), nil
			},
		},
	}
}

func windowsProbes() []Probe {
	return []Probe{
		{
			Name: "service-registered",
			Check: func(ctx context.Context) (bool, error) {
				out, err := exec.CommandContext(ctx, "sc", "query", "MongoDB").CombinedOutput()
				if err != nil {
					return false, err
				}
				return !strings.Contains(string(out), "DOES_NOT_EXIST"), nil
			},
		},
		{
			Name: "install-dir",
			Check: func(ctx context.Context) (bool, error) {
				_, err := os.Stat(`C:\Program Files\MongoDB\Server`)
				return err == nil, nil
			},
		},
		{
			Name: "port-reachable",
			Check: func(ctx context.Context) (bool, error) {
				conn, err := net.DialTimeout("tcp", "localhost:27017", 2*time.Second)
				if err != nil {
					return false, nil
				}
				conn.Close()
				return true, nil
			},
		},
	}
}

// parseMongodVersion accepts `mongod --version` output whose first line looks
// like "db version v8.0.6" and reports whether it carries a parseable version.
func parseMongodVersion(out string) bool {
	line, _, _ := strings.Cut(out, "\n")
	idx := strings.LastIndex(line, "v")
	if idx < 0 || idx == len(line)-1 {
		return false
	}
	_, err := goversion.NewVersion(strings.TrimSpace(line[idx+1:]))
	return err == nil
}
