package handlers

import (
	"io"
	"strconv"

	"github.com/arzan03/SecureDrop/internal/middleware"
	"github.com/arzan03/SecureDrop/internal/models"
	"github.com/arzan03/SecureDrop/internal/services"
	"github.com/gofiber/fiber/v2"
)

// UploadTransfer accepts a multipart "file" and creates a transfer session.
func (h *Handler) UploadTransfer(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "No file provided"})
	}
	if fh.Size > h.transfers.MaxFileSize() {
		return mapServiceError(c, services.ErrFileTooLarge)
	}

	f, err := fh.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Failed to read file"})
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Failed to read file"})
	}

	res, err := h.transfers.Upload(c.UserContext(), services.UploadRequest{
		FileName:    fh.Filename,
		ContentType: fh.Header.Get(fiber.HeaderContentType),
		Data:        data,
		OwnerID:     middleware.UserID(c),
	})
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(res)
}

// GetTransfer returns the public session info for a code.
func (h *Handler) GetTransfer(c *fiber.Ctx) error {
	info, err := h.transfers.GetSession(c.UserContext(), c.Params("code"))
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(info)
}

// DownloadTransfer decrypts and streams the file once.
func (h *Handler) DownloadTransfer(c *fiber.Ctx) error {
	res, err := h.transfers.Download(c.UserContext(), c.Params("code"))
	if err != nil {
		return mapServiceError(c, err)
	}

	c.Attachment(res.FileName)
	if res.ContentType != "" {
		c.Set(fiber.HeaderContentType, res.ContentType)
	} else {
		c.Set(fiber.HeaderContentType, fiber.MIMEOctetStream)
	}
	c.Set("X-Download-Count", strconv.Itoa(res.DownloadCount))
	return c.Send(res.Data)
}

// ListTransfers lists the caller's own sessions.
func (h *Handler) ListTransfers(c *fiber.Ctx) error {
	list, err := h.transfers.ListByOwner(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{"transfers": list, "count": len(list)})
}

// DeleteTransfer removes one of the caller's sessions.
func (h *Handler) DeleteTransfer(c *fiber.Ctx) error {
	isAdmin := middleware.Role(c) == models.RoleAdmin
	if err := h.transfers.Delete(c.UserContext(), c.Params("code"), middleware.UserID(c), isAdmin); err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Transfer deleted successfully"})
}
