package api

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"conversational-rag/internal/models"
	"conversational-rag/internal/parser"
)

type Ingester interface {
	Ingest(ctx context.Context, path, source string) (int, error)
}

type DocumentHandler struct {
	rag       Ingester
	uploadDir string
}

func NewDocumentHandler(rag Ingester, uploadDir string) *DocumentHandler {
	if uploadDir == "" {
		uploadDir = os.TempDir()
	}
	return &DocumentHandler{rag: rag, uploadDir: uploadDir}
}

// HandleUpload stores the multipart "file" in a temporary file, indexes it
// and removes the temporary file again.
func (h *DocumentHandler) HandleUpload(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return ErrMissingFile()
	}

	filename := filepath.Base(fileHeader.Filename)
	ext := strings.ToLower(filepath.Ext(filename))
	if !parser.IsSupported(filename) {
		return fmt.Errorf("%w: %q", models.ErrUnsupportedFormat, ext)
	}

	tmp, err := os.CreateTemp(h.uploadDir, "upload-*"+ext)
	if err != nil {
		return fmt.Errorf("failed to create upload file: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer func() {
		if err := os.Remove(tmpPath); err != nil && !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", tmpPath).Msg("Failed to remove upload file")
		}
	}()

	if err := c.SaveFile(fileHeader, tmpPath); err != nil {
		return fmt.Errorf("failed to save upload: %w", err)
	}

	log.Info().Str("filename", filename).Int64("size", fileHeader.Size).Msg("Received document")

	n, err := h.rag.Ingest(c.UserContext(), tmpPath, filename)
	if err != nil {
		return err
	}
	return c.JSON(DocumentResponse{Filename: filename, ChunksIndexed: n})
}
