// README: Driver document upload/download handlers.
package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"courier/internal/docs"
)

// maxDocumentBytes bounds a single upload (license scans, ID photos).
const maxDocumentBytes = 10 << 20

type DocumentHandler struct {
	storage *docs.Storage
}

func NewDocumentHandler(storage *docs.Storage) *DocumentHandler {
	return &DocumentHandler{storage: storage}
}

func (h *DocumentHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		writeError(c, http.StatusBadRequest, "validation", "missing file field")
		return
	}
	if file.Size > maxDocumentBytes {
		writeError(c, http.StatusRequestEntityTooLarge, "too_large", "document exceeds size limit")
		return
	}
	src, err := file.Open()
	if err != nil {
		writeError(c, http.StatusBadRequest, "validation", "unreadable upload")
		return
	}
	defer src.Close()

	name, err := h.storage.Save(src, file.Filename)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	writeJSON(c, http.StatusCreated, map[string]any{"name": name})
}

func (h *DocumentHandler) Download(c *gin.Context) {
	name := c.Param("name")
	f, err := h.storage.Open(name)
	switch {
	case errors.Is(err, docs.ErrInvalidName):
		writeError(c, http.StatusBadRequest, "validation", err.Error())
		return
	case errors.Is(err, docs.ErrNotFound):
		writeError(c, http.StatusNotFound, "not_found", err.Error())
		return
	case err != nil:
		writeError(c, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	defer f.Close()
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, f)
}
