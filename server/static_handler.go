package server

import (
	"net/http"
	"os"
	"path/filepath"

	"musicbox/logger"
)

// StaticHandler 处理前端页面和静态资源
type StaticHandler struct {
	webDir string
}

// NewStaticHandler 创建 StaticHandler 实例
func NewStaticHandler(webDir string) *StaticHandler {
	return &StaticHandler{webDir: webDir}
}

// Page serves a single HTML file from the web directory.
func (h *StaticHandler) Page(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := filepath.Join(h.webDir, name)
		if _, err := os.Stat(path); err != nil {
			logger.Warn("page not found", logger.String("path", path), logger.ErrorField(err))
			notFoundHandler(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		http.ServeFile(w, r, path)
	}
}

// Assets serves everything under <webDir>/static at /static/.
func (h *StaticHandler) Assets() http.Handler {
	fs := http.FileServer(http.Dir(filepath.Join(h.webDir, "static")))
	return http.StripPrefix("/static/", fs)
}

// RedirectToPlayer sends the site root to the player page.
func RedirectToPlayer(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/player", http.StatusFound)
}
