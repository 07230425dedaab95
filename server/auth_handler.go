package server

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"

	"musicbox/core/auth"
	"musicbox/logger"
)

// LoginRequest represents the login request body
type LoginRequest struct {
	Password string `json:"password"`
}

func mediaType(r *http.Request) string {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return ""
	}
	return mt
}

// LoginHandler handles admin login with a JSON body or a form field.
func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	switch mediaType(r) {
	case "application/json":
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Warn("[Login] 解析请求体失败", logger.ErrorField(err))
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	case "multipart/form-data":
		// ParseForm leaves PostForm empty for multipart bodies
		if err := r.ParseMultipartForm(maxMemory); err != nil {
			logger.Warn("[Login] 解析表单失败", logger.ErrorField(err))
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		defer func() {
			if err := r.MultipartForm.RemoveAll(); err != nil {
				logger.Warn("[Login] failed to remove temporary files", logger.ErrorField(err))
			}
		}()
		req.Password = r.PostFormValue("password")
	default:
		if err := r.ParseForm(); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		req.Password = r.PostFormValue("password")
	}

	_, err := h.guard.Login(w, req.Password)
	switch {
	case err == nil:
		logger.Info("[Login] Admin logged in successfully", logger.String("mode", h.guard.Mode()))
		writeMessage(w, "Login successful")
	case errors.Is(err, auth.ErrMissingCredential):
		writeError(w, http.StatusBadRequest, "Password is required")
	case errors.Is(err, auth.ErrInvalidCredential):
		logger.Warn("[Login] 密码验证失败", logger.String("remoteAddr", r.RemoteAddr))
		writeError(w, http.StatusUnauthorized, "Invalid password")
	default:
		logger.Error("[Login] Admin login error", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "An error occurred during login")
	}
}

// LogoutHandler clears the admin session.
func (h *APIHandler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.guard.Revoke(w, r); err != nil {
		logger.Error("[Logout] Admin logout error", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "An error occurred during logout")
		return
	}
	logger.Info("[Logout] Admin logged out")
	writeMessage(w, "Logout successful")
}
