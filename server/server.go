package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"musicbox/cache"
	"musicbox/config"
	"musicbox/core/auth"
	"musicbox/core/catalog"
	"musicbox/core/upload"
	"musicbox/logger"
	"musicbox/model"
	"musicbox/storage"

	"github.com/gorilla/mux"
)

// Deps are the collaborators the HTTP layer needs. Tests build them by hand.
type Deps struct {
	Store   storage.ObjectStore // nil when the static catalog runs without a bucket
	Revoker auth.Revoker
	Catalog catalog.Provider

	closers []func() error
}

// Close releases connections opened by BuildDeps.
func (d *Deps) Close() error {
	var errs []error
	for _, c := range d.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// BuildDeps connects the object store and, when configured, Redis.
func BuildDeps(cfg *config.Config) (*Deps, error) {
	deps := &Deps{}

	if cfg.CatalogProvider == config.CatalogProviderStorage || cfg.ValidateStorage() == nil {
		store, err := storage.NewMinioStore(cfg)
		if err != nil {
			return nil, fmt.Errorf("初始化对象存储失败: %w", err)
		}
		deps.Store = store
	}

	if cfg.SessionMode == config.SessionModeToken && cfg.RedisEnabled() {
		client, err := cache.NewRedisClient(cfg)
		if err != nil {
			return nil, err
		}
		revoker := cache.NewRedisRevoker(client)
		deps.Revoker = revoker
		deps.closers = append(deps.closers, revoker.Close)
		logger.Info("Redis 吊销列表已启用",
			logger.String("host", cfg.RedisHost),
			logger.String("port", cfg.RedisPort))
	}

	switch cfg.CatalogProvider {
	case config.CatalogProviderStatic:
		var tracks []model.Track
		if cfg.StaticCatalog != "" {
			parsed, err := catalog.ParseStatic(cfg.StaticCatalog)
			if err != nil {
				return nil, err
			}
			tracks = parsed
		}
		deps.Catalog = catalog.NewStaticProvider(tracks)
	default:
		deps.Catalog = catalog.NewStorageProvider(deps.Store, cfg.SignedURLTTL)
	}
	return deps, nil
}

// Server wires the router to an http.Server.
type Server struct {
	cfg     *config.Config
	handler http.Handler
	api     *APIHandler
}

// New builds the router. It fails only on an unusable auth configuration.
func New(cfg *config.Config, deps *Deps) (*Server, error) {
	guard, err := auth.NewGuard(cfg, deps.Revoker)
	if err != nil {
		return nil, err
	}

	var uploads *upload.Service
	if deps.Store != nil {
		uploads = upload.NewService(deps.Store, cfg.UploadTimeout)
	}
	api := NewAPIHandler(cfg, guard, uploads, deps.Catalog, deps.Store)
	static := NewStaticHandler(cfg.WebDir)

	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(notFoundHandler)
	router.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowedHandler)

	// 页面
	router.HandleFunc("/", RedirectToPlayer).Methods(http.MethodGet)
	router.HandleFunc("/player", static.Page("player.html")).Methods(http.MethodGet)
	router.HandleFunc("/upload-page", static.Page("upload.html")).Methods(http.MethodGet)
	router.PathPrefix("/static/").Handler(static.Assets()).Methods(http.MethodGet)

	// 认证
	router.HandleFunc("/admin-login", api.LoginHandler).Methods(http.MethodPost)
	router.HandleFunc("/admin-logout", api.LogoutHandler).Methods(http.MethodPost)

	// 曲目
	if uploads != nil {
		router.HandleFunc("/upload", api.UploadTrackHandler).Methods(http.MethodPost)
	} else {
		router.HandleFunc("/upload", func(w http.ResponseWriter, r *http.Request) {
			writeError(w, http.StatusServiceUnavailable, "Uploads are disabled")
		}).Methods(http.MethodPost)
	}
	router.HandleFunc("/music-list", api.MusicListHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/songs", api.MusicListHandler).Methods(http.MethodGet)

	// 诊断
	router.HandleFunc("/test-filebase", api.RequireAdmin(api.TestFilebaseHandler)).Methods(http.MethodGet)
	router.HandleFunc("/healthz", api.HealthHandler).Methods(http.MethodGet)

	return &Server{cfg: cfg, handler: chain(router, cfg.MaxUploadBytes), api: api}, nil
}

// Handler returns the fully wrapped router.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.cfg.UploadTimeout,
		WriteTimeout:      s.cfg.UploadTimeout + 30*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting",
			logger.String("addr", srv.Addr),
			logger.String("sessionMode", s.api.guard.Mode()),
			logger.String("catalog", s.cfg.CatalogProvider))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}

// Start validates cfg, builds dependencies and serves until SIGINT/SIGTERM.
func Start(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	deps, err := BuildDeps(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := deps.Close(); err != nil {
			logger.Warn("failed to close dependencies", logger.ErrorField(err))
		}
	}()

	srv, err := New(cfg, deps)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return srv.Run(ctx)
}
