package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/morriswong/datachat/internal/api/middleware"
	"github.com/morriswong/datachat/internal/api/response"
	"github.com/morriswong/datachat/internal/chat"
	"github.com/morriswong/datachat/internal/domain"
)

// FilesHandler exposes assistant-generated files for download
type FilesHandler struct {
	chatService *chat.Service
}

// NewFilesHandler creates a new files handler
func NewFilesHandler(chatService *chat.Service) *FilesHandler {
	return &FilesHandler{chatService: chatService}
}

// List returns the files generated during this analysis session
func (h *FilesHandler) List(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.GetSession(r.Context())
	if !ok {
		response.InternalError(w, "session not resolved")
		return
	}

	files := h.chatService.GeneratedFiles(r.Context(), sess)
	if files == nil {
		files = []domain.GeneratedFile{}
	}
	response.OK(w, map[string]any{"files": files})
}

// Download proxies the content of one generated file
func (h *FilesHandler) Download(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.GetSession(r.Context())
	if !ok {
		response.InternalError(w, "session not resolved")
		return
	}

	fileID := chi.URLParam(r, "fileID")
	filename, content, err := h.chatService.DownloadFile(r.Context(), sess, fileID)
	if err != nil {
		if errors.Is(err, chat.ErrUnknownFile) {
			response.NotFound(w, "file not found")
			return
		}
		response.InternalError(w, "failed to download file")
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Write(content)
}
