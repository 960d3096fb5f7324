package handler

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/morriswong/datachat/internal/api/middleware"
	"github.com/morriswong/datachat/internal/api/response"
	"github.com/morriswong/datachat/internal/chat"
)

// allowedExts is the fixed set of tabular formats accepted for analysis
var allowedExts = map[string]bool{
	".csv":  true,
	".xlsx": true,
	".xls":  true,
	".json": true,
	".txt":  true,
}

// UploadHandler handles dataset upload endpoints
type UploadHandler struct {
	chatService *chat.Service
	maxBytes    int64
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(chatService *chat.Service, maxSizeMB int64) *UploadHandler {
	return &UploadHandler{
		chatService: chatService,
		maxBytes:    maxSizeMB << 20,
	}
}

type uploadedFile struct {
	FileID   string `json:"file_id"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
}

// Upload pushes one or more dataset files to the remote service. Files must
// land before the first question so the thread can attach them.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.GetSession(r.Context())
	if !ok {
		response.InternalError(w, "session not resolved")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		response.BadRequest(w, "invalid upload")
		return
	}

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		headers = r.MultipartForm.File["file"]
	}
	if len(headers) == 0 {
		response.BadRequest(w, "no file uploaded")
		return
	}

	var uploaded []uploadedFile
	var failed []string

	for _, header := range headers {
		ext := strings.ToLower(filepath.Ext(header.Filename))
		if !allowedExts[ext] {
			response.BadRequest(w, "invalid file type. Allowed: .csv, .xlsx, .xls, .json, .txt")
			return
		}

		src, err := header.Open()
		if err != nil {
			log.Error().Err(err).Str("filename", header.Filename).Msg("Failed to open upload")
			failed = append(failed, header.Filename)
			continue
		}

		file, err := h.chatService.Upload(r.Context(), sess, header.Filename, src)
		src.Close()
		if err != nil {
			log.Error().Err(err).Str("filename", header.Filename).Msg("Failed to upload file")
			failed = append(failed, header.Filename)
			continue
		}

		uploaded = append(uploaded, uploadedFile{
			FileID:   file.ID,
			Filename: header.Filename,
			Size:     header.Size,
		})
	}

	if len(uploaded) == 0 {
		response.InternalError(w, "all uploads failed")
		return
	}

	response.OK(w, map[string]any{
		"files":  uploaded,
		"failed": failed,
	})
}
