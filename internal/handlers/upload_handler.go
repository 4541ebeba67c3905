package handlers

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"chatline/internal/observability"
	"chatline/internal/transport"
)

const maxUploadSize = 25 << 20 // 25 MiB

// UploadHandler stores message attachments on disk and hands back the
// descriptor the client embeds in sendMessage events.
type UploadHandler struct {
	dir     string
	baseURL string
}

func NewUploadHandler(dir, baseURL string) (*UploadHandler, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &UploadHandler{dir: dir, baseURL: baseURL}, nil
}

// Upload POST /api/upload
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	file, header, err := r.FormFile("file")
	if err != nil {
		transport.WriteError(w, http.StatusBadRequest, errMissingParams, "no file uploaded")
		return
	}
	defer file.Close()

	name := uuid.NewString() + filepath.Ext(header.Filename)
	dst, err := os.Create(filepath.Join(h.dir, name))
	if err != nil {
		observability.GetLogger(r.Context()).Error("upload create failed", zap.Error(err))
		transport.WriteError(w, http.StatusInternalServerError, errInternalError, "upload failed")
		return
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		observability.GetLogger(r.Context()).Error("upload write failed", zap.Error(err))
		transport.WriteError(w, http.StatusInternalServerError, errInternalError, "upload failed")
		return
	}

	transport.WriteJSON(w, http.StatusOK, map[string]string{
		"url":  h.baseURL + "/uploads/" + name,
		"name": header.Filename,
		"type": header.Header.Get("Content-Type"),
	})
}

// Serve returns a handler for GET /uploads/*.
func (h *UploadHandler) Serve() http.Handler {
	return http.StripPrefix("/uploads/", http.FileServer(http.Dir(h.dir)))
}
