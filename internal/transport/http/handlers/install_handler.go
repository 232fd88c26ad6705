package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/mongodesk/backend/internal/core/ports"
	"github.com/mongodesk/backend/internal/core/services"
	"github.com/mongodesk/backend/internal/infrastructure/logger"
	"github.com/mongodesk/backend/internal/transport/http/dto"
)

type InstallHandler struct {
	installer ports.InstallerService
	detector  ports.DetectorService
	logger    *logger.Logger
}

func NewInstallHandler(installer ports.InstallerService, detector ports.DetectorService, logger *logger.Logger) *InstallHandler {
	return &InstallHandler{installer: installer, detector: detector, logger: logger}
}

func (h *InstallHandler) IsInstalled(c *fiber.Ctx) error {
	installed := h.detector.IsInstalled(c.Context())
	h.logger.Infow("install_check_request", "installed", installed)
	return c.JSON(dto.InstalledResponse{Installed: installed})
}

// StartInstall kicks off the installation in the background and returns 202.
// Progress streams over the websocket; the terminal outcome is also available
// from GetStatus.
func (h *InstallHandler) StartInstall(c *fiber.Ctx) error {
	h.logger.Infow("install_start_request")
	if err := h.installer.Start(); err != nil {
		if errors.Is(err, services.ErrInstallInProgress) {
			h.logger.Warnw("install_start_conflict")
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
				Error: "an installation is already running",
			})
		}
		h.logger.Errorw("install_start_failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: err.Error(),
		})
	}
	return c.Status(fiber.StatusAccepted).JSON(dto.InstallAcceptedResponse{
		Message: "installation started",
	})
}

func (h *InstallHandler) GetStatus(c *fiber.Ctx) error {
	return c.JSON(h.installer.LastOutcome())
}

func (h *InstallHandler) CancelInstall(c *fiber.Ctx) error {
	h.logger.Infow("install_cancel_request")
	if !h.installer.Cancel() {
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
			Error: "no installation is running",
		})
	}
	return c.JSON(dto.SuccessResponse{Message: "installation cancelled"})
}

func (h *InstallHandler) GetRuntime(c *fiber.Ctx) error {
	return c.JSON(h.detector.Runtime(c.Context()))
}
