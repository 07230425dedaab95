package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Session modes.
const (
	SessionModeMarker = "marker" // legacy is_admin=true cookie, no expiry
	SessionModeToken  = "token"  // signed, time-bound JWT cookie
)

// Catalog providers.
const (
	CatalogProviderStorage = "storage"
	CatalogProviderStatic  = "static"
)

// Config stores the application configuration.
// It is built once at startup and must be treated as read-only afterwards.
type Config struct {
	Port   string
	WebDir string // Directory holding player.html, upload.html and static/

	// S3 兼容对象存储配置 (Filebase / MinIO / AWS)
	S3Endpoint  string
	S3Region    string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3UseSSL    bool

	// 管理员认证
	AdminPassword     string
	AdminPasswordHash string // bcrypt hash, takes precedence over AdminPassword
	SessionMode       string
	SessionSecret     string
	SessionTTL        time.Duration
	CookieSecure      bool

	// Redis配置 (token 模式下的吊销列表, 可选)
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	MaxUploadBytes  int64
	SignedURLTTL    time.Duration
	StorageTimeout  time.Duration
	UploadTimeout   time.Duration
	CatalogProvider string
	StaticCatalog   string // key|url pairs separated by ';'

	// 日志配置
	LogLevel      string
	LogFile       string
	LogMaxSize    int
	LogMaxBackups int
	LogMaxAge     int
	LogCompress   bool
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvFirst returns the first non-empty variable among keys.
func getEnvFirst(fallback string, keys ...string) string {
	for _, key := range keys {
		if value, exists := os.LookupEnv(key); exists && value != "" {
			return value
		}
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration accepts Go durations ("10s") or plain seconds ("3600").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// godotenv.Load() will not override existing env vars.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading .env, relying on existing environment variables and defaults.")
	}
	return FromEnv()
}

// FromEnv builds a Config from the current process environment only.
func FromEnv() *Config {
	mode := strings.ToLower(getEnv("SESSION_MODE", SessionModeMarker))
	provider := strings.ToLower(getEnv("CATALOG_PROVIDER", CatalogProviderStorage))

	return &Config{
		Port:   getEnv("PORT", "5006"),
		WebDir: getEnv("WEB_DIR", "web"),

		S3Endpoint:  getEnv("S3_ENDPOINT", "s3.filebase.com"),
		S3Region:    getEnv("S3_REGION", "us-east-1"),
		S3AccessKey: getEnvFirst("", "S3_ACCESS_KEY", "FILEBASE_ACCESS_KEY"),
		S3SecretKey: getEnvFirst("", "S3_SECRET_KEY", "FILEBASE_SECRET_KEY"),
		S3Bucket:    getEnvFirst("", "S3_BUCKET", "FILEBASE_BUCKET_NAME"),
		S3UseSSL:    getEnvBool("S3_USE_SSL", true),

		AdminPassword:     os.Getenv("ADMIN_PASSWORD"), // no hardcoded default for secrets
		AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
		SessionMode:       mode,
		SessionSecret:     os.Getenv("SESSION_SECRET"),
		SessionTTL:        getEnvDuration("SESSION_TTL", 12*time.Hour),
		CookieSecure:      getEnvBool("COOKIE_SECURE", false),

		RedisHost:     getEnv("REDIS_HOST", ""),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		MaxUploadBytes:  getEnvInt64("MAX_UPLOAD_BYTES", 200<<20),
		SignedURLTTL:    getEnvDuration("SIGNED_URL_TTL", time.Hour),
		StorageTimeout:  getEnvDuration("STORAGE_TIMEOUT", 10*time.Second),
		UploadTimeout:   getEnvDuration("UPLOAD_TIMEOUT", 5*time.Minute),
		CatalogProvider: provider,
		StaticCatalog:   os.Getenv("STATIC_CATALOG"),

		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFile:       getEnv("LOG_FILE", ""),
		LogMaxSize:    getEnvInt("LOG_MAX_SIZE_MB", 100),
		LogMaxBackups: getEnvInt("LOG_MAX_BACKUPS", 3),
		LogMaxAge:     getEnvInt("LOG_MAX_AGE_DAYS", 28),
		LogCompress:   getEnvBool("LOG_COMPRESS", true),
	}
}

// Validate reports configuration that would leave the server unusable.
func (c *Config) Validate() error {
	var errs []error
	if c.AdminPassword == "" && c.AdminPasswordHash == "" {
		errs = append(errs, errors.New("ADMIN_PASSWORD or ADMIN_PASSWORD_HASH is required"))
	}
	switch c.SessionMode {
	case SessionModeMarker:
	case SessionModeToken:
		if c.SessionSecret == "" {
			errs = append(errs, errors.New("SESSION_SECRET is required when SESSION_MODE=token"))
		}
		if c.SessionTTL <= 0 {
			errs = append(errs, errors.New("SESSION_TTL must be positive"))
		}
	default:
		errs = append(errs, errors.New("SESSION_MODE must be marker or token"))
	}
	switch c.CatalogProvider {
	case CatalogProviderStorage:
		if err := c.ValidateStorage(); err != nil {
			errs = append(errs, err)
		}
	case CatalogProviderStatic:
	default:
		errs = append(errs, errors.New("CATALOG_PROVIDER must be storage or static"))
	}
	if c.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_BYTES must be positive"))
	}
	return errors.Join(errs...)
}

// ValidateStorage checks only the object store settings.
func (c *Config) ValidateStorage() error {
	var errs []error
	if c.S3Endpoint == "" {
		errs = append(errs, errors.New("S3_ENDPOINT is required"))
	}
	if c.S3Bucket == "" {
		errs = append(errs, errors.New("S3_BUCKET (or FILEBASE_BUCKET_NAME) is required"))
	}
	if c.S3AccessKey == "" || c.S3SecretKey == "" {
		errs = append(errs, errors.New("S3 access key and secret key are required"))
	}
	return errors.Join(errs...)
}

// RedisEnabled reports whether a Redis revocation store was configured.
func (c *Config) RedisEnabled() bool {
	return c.RedisHost != ""
}
