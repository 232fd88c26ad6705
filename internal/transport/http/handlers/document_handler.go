package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/mongodesk/backend/internal/config"
	"github.com/mongodesk/backend/internal/core/ports"
	"github.com/mongodesk/backend/internal/core/services"
	"github.com/mongodesk/backend/internal/infrastructure/logger"
	"github.com/mongodesk/backend/internal/transport/http/dto"
)

type DocumentHandler struct {
	service ports.DocumentService
	config  *config.Config
	logger  *logger.Logger
}

func NewDocumentHandler(service ports.DocumentService, cfg *config.Config, logger *logger.Logger) *DocumentHandler {
	return &DocumentHandler{service: service, config: cfg, logger: logger}
}

// Connect dials MongoDB. An empty uri in the body falls back to the
// configured default, which suits the local single-node setup.
func (h *DocumentHandler) Connect(c *fiber.Ctx) error {
	var req dto.ConnectRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		h.logger.Warnw("mongo_connect_body_parse_failed", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: "invalid request body",
		})
	}
	uri := req.URI
	if uri == "" {
		uri = h.config.Mongo.URI
	}

	h.logger.Infow("mongo_connect_request")
	if err := h.service.Connect(c.Context(), uri); err != nil {
		h.logger.Errorw("mongo_connect_failed", "error", err)
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{
			Error: err.Error(),
		})
	}
	return c.JSON(dto.SuccessResponse{Message: "connected"})
}

func (h *DocumentHandler) Disconnect(c *fiber.Ctx) error {
	h.logger.Infow("mongo_disconnect_request")
	if err := h.service.Disconnect(c.Context()); err != nil {
		h.logger.Errorw("mongo_disconnect_failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: err.Error(),
		})
	}
	return c.JSON(dto.SuccessResponse{Message: "disconnected"})
}

func (h *DocumentHandler) ListCollections(c *fiber.Ctx) error {
	names, err := h.service.ListCollections(c.Context())
	if err != nil {
		return h.serviceError(c, "collections_list_failed", err)
	}
	if names == nil {
		names = []string{}
	}
	return c.JSON(dto.CollectionsResponse{Collections: names})
}

func (h *DocumentHandler) InsertDocument(c *fiber.Ctx) error {
	var req dto.InsertDocumentRequest
	if err := c.BodyParser(&req); err != nil {
		h.logger.Warnw("document_insert_body_parse_failed", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: "invalid request body",
		})
	}
	if errs := req.Validate(); len(errs) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error:   "validation failed",
			Details: errs,
		})
	}

	id, err := h.service.Insert(c.Context(), c.Params("collection"), req.Document)
	if err != nil {
		return h.serviceError(c, "document_insert_failed", err)
	}
	h.logger.Infow("document_insert_success", "collection", c.Params("collection"), "id", id)
	return c.Status(fiber.StatusCreated).JSON(dto.InsertDocumentResponse{ID: id})
}

func (h *DocumentHandler) FindDocuments(c *fiber.Ctx) error {
	var req dto.FindDocumentsRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: "invalid request body",
		})
	}

	docs, err := h.service.Find(c.Context(), c.Params("collection"), req.Filter)
	if err != nil {
		return h.serviceError(c, "documents_find_failed", err)
	}
	return c.JSON(dto.DocumentsResponse{Documents: docs})
}

func (h *DocumentHandler) UpdateDocument(c *fiber.Ctx) error {
	var req dto.UpdateDocumentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: "invalid request body",
		})
	}
	if errs := req.Validate(); len(errs) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error:   "validation failed",
			Details: errs,
		})
	}

	matched, err := h.service.Update(c.Context(), c.Params("collection"), c.Params("id"), req.Fields)
	if err != nil {
		return h.serviceError(c, "document_update_failed", err)
	}
	if !matched {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Error: "document not found",
		})
	}
	return c.JSON(dto.MutationResponse{Matched: true})
}

func (h *DocumentHandler) DeleteDocument(c *fiber.Ctx) error {
	matched, err := h.service.Delete(c.Context(), c.Params("collection"), c.Params("id"))
	if err != nil {
		return h.serviceError(c, "document_delete_failed", err)
	}
	if !matched {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Error: "document not found",
		})
	}
	return c.JSON(dto.MutationResponse{Matched: true})
}

func (h *DocumentHandler) serviceError(c *fiber.Ctx, event string, err error) error {
	switch {
	case errors.Is(err, services.ErrNotConnected):
		h.logger.Warnw(event, "error", err)
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
			Error: "not connected to MongoDB, call connect first",
		})
	case errors.Is(err, services.ErrInvalidID):
		h.logger.Warnw(event, "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: "invalid document id",
		})
	default:
		h.logger.Errorw(event, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: err.Error(),
		})
	}
}
