package server

import (
	"net/http"

	"musicbox/logger"
)

// TestFilebaseHandler probes the object store and reports the bucket state.
func (h *APIHandler) TestFilebaseHandler(w http.ResponseWriter, r *http.Request) {
	bucket := h.cfg.S3Bucket
	if h.store == nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"status":  "error",
			"message": "Filebase connection failed: object store not configured",
			"bucket":  bucket,
		})
		return
	}

	result, err := h.store.Probe(r.Context())
	if err != nil {
		logger.Error("Filebase connection test failed",
			logger.String("bucket", bucket),
			logger.ErrorField(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"status":  "error",
			"message": "Filebase connection failed: " + err.Error(),
			"bucket":  bucket,
		})
		return
	}

	logger.Info("Filebase connection test succeeded",
		logger.String("bucket", bucket),
		logger.Duration("latency", result.Latency))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "success",
		"message":  "Filebase connection successful",
		"bucket":   bucket,
		"response": result,
	})
}

// HealthHandler 存活检查, never touches the object store.
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
