package server

import (
	"musicbox/config"
	"musicbox/core/auth"
	"musicbox/core/catalog"
	"musicbox/core/upload"
	"musicbox/storage"
)

// APIHandler 处理所有API请求
type APIHandler struct {
	cfg     *config.Config
	guard   *auth.Guard
	uploads *upload.Service
	catalog catalog.Provider
	store   storage.ObjectStore // nil in the static catalog profile
}

// NewAPIHandler 创建新的API处理器
func NewAPIHandler(
	cfg *config.Config,
	guard *auth.Guard,
	uploads *upload.Service,
	provider catalog.Provider,
	store storage.ObjectStore,
) *APIHandler {
	return &APIHandler{
		cfg:     cfg,
		guard:   guard,
		uploads: uploads,
		catalog: provider,
		store:   store,
	}
}
