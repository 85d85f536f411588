package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/points-service/internal/storage"
	apperrors "github.com/spec-kit/points-service/pkg/util/errorutil"
)

// UploadsHandler stores proof attachments for requests.
type UploadsHandler struct {
	store *storage.ProofStore
}

// NewUploadsHandler accepts a nil store; uploads then answer 503.
func NewUploadsHandler(store *storage.ProofStore) *UploadsHandler {
	return &UploadsHandler{store: store}
}

// Proof POST /uploads/proof (multipart field "file").
func (h *UploadsHandler) Proof(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return err
	}
	if h.store == nil {
		return apperrors.NewUnavailable("proof uploads are disabled")
	}
	header, err := c.FormFile("file")
	if err != nil {
		return apperrors.NewValidationError("file is required", nil)
	}
	file, err := header.Open()
	if err != nil {
		return apperrors.NewValidationError("unreadable file", nil)
	}
	defer file.Close()

	upload, err := h.store.PutProof(c.UserContext(), session.UserID, header.Header.Get("Content-Type"), header.Size, file)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": upload})
}
