package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/mongodesk/backend/internal/core/ports"
	"github.com/mongodesk/backend/internal/domain"
	"github.com/mongodesk/backend/internal/infrastructure/logger"
)

const windowsDataDir = `C:\data\db`

// windowsPlan installs MongoDB on Windows: the signed MSI is downloaded with
// progress, the installer GUI is opened for the user to complete, and the
// server is wired into PATH and started. No elevation is requested; the MSI
// itself triggers UAC.
type windowsPlan struct {
	runner     ports.CommandRunner
	downloader ports.Downloader
	sink       ports.EventSink
	logger     *logger.Logger
	version    string
}

func newWindowsPlan(runner ports.CommandRunner, downloader ports.Downloader, sink ports.EventSink, log *logger.Logger, version string) *windowsPlan {
	if version == "" {
		version = "8.0.6"
	}
	return &windowsPlan{
		runner:     runner,
		downloader: downloader,
		sink:       sink,
		logger:     log,
		version:    version,
	}
}

func (p *windowsPlan) Platform() string { return "windows" }

func (p *windowsPlan) RequiresPrivilege() bool { return false }

func (p *windowsPlan) Steps() []planStep {
	downloadURL := fmt.Sprintf("https://fastdl.mongodb.org/windows/mongodb-windows-x86_64-%s-signed.msi", p.version)
	installerPath := filepath.Join(os.TempDir(), fmt.Sprintf("mongodb-installer-%s.msi", uuid.New()))
	binPath := fmt.Sprintf(`C:\Program Files\MongoDB\Server\%s\bin`, p.version)

	return []planStep{
		{
			description: "Creating MongoDB data directory",
			run: func(ctx context.Context, info stepInfo, secret string) error {
				if err := os.MkdirAll(windowsDataDir, 0o755); err != nil {
					return fmt.Errorf("failed to create data directory: %w", err)
				}
				return nil
			},
		},
		{
			description: "Downloading MongoDB installer",
			run: func(ctx context.Context, info stepInfo, secret string) error {
				p.sink.Publish(domain.Event{
					Name:    domain.EventInstallerPath,
					Payload: domain.InstallerPath{Path: installerPath},
				})
				if err := p.downloader.Fetch(ctx, downloadURL, installerPath); err != nil {
					return fmt.Errorf("failed to download MongoDB installer: %w", err)
				}
				return nil
			},
		},
		{
			description: "Installing MongoDB",
			run: func(ctx context.Context, info stepInfo, secret string) error {
				return p.runInstallerWizard(ctx, info, installerPath)
			},
		},
		{
			description: "Adding MongoDB to system PATH",
			run: func(ctx context.Context, info stepInfo, secret string) error {
				return p.addToPath(ctx, info, binPath)
			},
		},
		{
			description: "Starting MongoDB service",
			run: func(ctx context.Context, info stepInfo, secret string) error {
				return p.startService(ctx, info, binPath)
			},
		},
	}
}

// runInstallerWizard opens the MSI with Windows Installer and waits for the
// user to finish the interactive wizard, then verifies the install location
// showed up. A missing location only warns: the user may have chosen a
// custom path.
func (p *windowsPlan) runInstallerWizard(ctx context.Context, info stepInfo, installerPath string) error {
	p.emitLog(info, "Opening MongoDB installer. Please follow the on-screen instructions to complete the installation.")

	script := fmt.Sprintf("Start-Process '%s' -Wait", installerPath)
	if err := streamCommand(ctx, p.runner, p.sink, info, "Installing MongoDB", "powershell", "-Command", script); err != nil {
		return err
	}
	p.emitLog(info, "MongoDB installation wizard completed")

	lines, _, err := captureCommand(ctx, p.runner, "powershell", "-Command", `Test-Path 'C:\Program Files\MongoDB\Server'`)
	if err != nil || !containsFold(lines, "true") {
		p.emitError(info, "Warning: Could not verify MongoDB installation. If installation failed, please try again.")
		return nil
	}
	p.emitLog(info, "MongoDB installation verified successfully")
	return nil
}

func (p *windowsPlan) addToPath(ctx context.Context, info stepInfo, binPath string) error {
	script := fmt.Sprintf(
		`$ErrorActionPreference = 'Stop';
$path = [Environment]::GetEnvironmentVariable('Path', 'Machine');
if (-not $path.Contains('%s')) {
  [Environment]::SetEnvironmentVariable('Path', "$path;%s", 'Machine');
  Write-Output 'MongoDB bin directory added to PATH';
} else {
  Write-Output 'MongoDB bin directory already in PATH';
}`, binPath, binPath)
	return streamCommand(ctx, p.runner, p.sink, info, "Adding MongoDB to system PATH", "powershell", "-Command", script)
}

// startService tries the Windows service first and falls back to launching
// mongod directly against the data directory when no service was installed.
func (p *windowsPlan) startService(ctx context.Context, info stepInfo, binPath string) error {
	lines, _, err := captureCommand(ctx, p.runner, "powershell", "-Command",
		"try { Start-Service -Name 'MongoDB' -ErrorAction Stop; 'Service started' } catch { 'Service not found' }")
	if err != nil {
		return fmt.Errorf("failed to start MongoDB service: %w", err)
	}
	if containsFold(lines, "service started") {
		return nil
	}

	p.emitLog(info, "MongoDB service not found. Starting mongod manually...")

	mongodPath := filepath.Join(binPath, "mongod.exe")
	script := fmt.Sprintf(
		"if (Test-Path '%s') { Start-Process '%s' -ArgumentList '--dbpath', '%s' -NoNewWindow -PassThru }",
		mongodPath, mongodPath, windowsDataDir)
	return streamCommand(ctx, p.runner, p.sink, info, "Starting MongoDB service", "powershell", "-Command", script)
}

func (p *windowsPlan) emitLog(info stepInfo, message string) {
	p.sink.Publish(domain.Event{
		Name:    domain.EventInstallLog,
		Payload: domain.InstallProgress{Step: info.Step, TotalSteps: info.Total, Message: message},
	})
}

func (p *windowsPlan) emitError(info stepInfo, message string) {
	p.sink.Publish(domain.Event{
		Name:    domain.EventInstallError,
		Payload: domain.InstallProgress{Step: info.Step, TotalSteps: info.Total, Message: message, IsError: true},
	})
}

func containsFold(lines []string, want string) bool {
	for _, line := range lines {
		if strings.EqualFold(strings.TrimSpace(line), want) {
			return true
		}
	}
	return false
}
