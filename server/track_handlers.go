package server

import (
	"errors"
	"mime/multipart"
	"net/http"

	"musicbox/core/upload"
	"musicbox/logger"
	"musicbox/storage"
)

// multipart parts beyond this stay on disk until the upload finishes
const maxMemory = 32 << 20

// UploadTrackHandler accepts a multipart "file" field from an admin.
func (h *APIHandler) UploadTrackHandler(w http.ResponseWriter, r *http.Request) {
	logger.Info("开始处理上传请求",
		logger.String("remoteAddr", r.RemoteAddr),
		logger.Int64("contentLength", r.ContentLength),
		logger.String("requestId", RequestIDFromContext(r.Context())))

	// shortcut: anonymous callers are refused before the body is read
	if !h.guard.Authorize(r) {
		logger.Warn("[Upload] unauthorized upload attempt", logger.String("remoteAddr", r.RemoteAddr))
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := r.ParseMultipartForm(maxMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request too large")
			return
		}
		logger.Warn("[Upload] 解析表单失败", logger.ErrorField(err))
		writeError(w, http.StatusBadRequest, "No file part")
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			logger.Warn("[Upload] failed to remove temporary files", logger.ErrorField(err))
		}
	}()

	// re-checked after the body arrives; a session revoked mid-upload is refused
	file := formFile(r.MultipartForm)
	result, err := h.uploads.Upload(r.Context(), h.guard.Authorize(r), file)
	if err != nil {
		h.writeUploadError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "File uploaded successfully",
		"key":     result.Key,
		"size":    result.Size,
	})
}

// formFile returns the "file" part. A part sent without a filename is
// parsed as a plain value; it is reported as a file with an empty name.
func formFile(form *multipart.Form) *multipart.FileHeader {
	if files := form.File["file"]; len(files) > 0 {
		return files[0]
	}
	if _, ok := form.Value["file"]; ok {
		return &multipart.FileHeader{}
	}
	return nil
}

func (h *APIHandler) writeUploadError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, upload.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, upload.ErrMissingFile):
		writeError(w, http.StatusBadRequest, "No file part")
	case errors.Is(err, upload.ErrEmptyFilename):
		writeError(w, http.StatusBadRequest, "No selected file")
	case errors.Is(err, upload.ErrUnsupportedType):
		writeError(w, http.StatusBadRequest, "File type not allowed")
	default:
		logger.Error("Upload error", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to upload file")
	}
}

// MusicListHandler returns the playlist as a JSON array.
func (h *APIHandler) MusicListHandler(w http.ResponseWriter, r *http.Request) {
	tracks, err := h.catalog.BuildPlaylist(r.Context())
	if err != nil {
		logger.Error("Error fetching music list",
			logger.String("requestId", RequestIDFromContext(r.Context())),
			logger.ErrorField(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":   "Failed to fetch music list",
			"details": publicDetails(err),
		})
		return
	}
	writeJSON(w, http.StatusOK, tracks)
}

// publicDetails gives a category only; raw store errors stay in the logs.
func publicDetails(err error) string {
	switch {
	case errors.Is(err, storage.ErrTimeout):
		return "object store timed out"
	case errors.Is(err, storage.ErrAuth):
		return "object store rejected credentials"
	case errors.Is(err, storage.ErrNotFound):
		return "bucket not found"
	default:
		return "object store unavailable"
	}
}
