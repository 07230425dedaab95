package upload

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"path"
	"regexp"
	"strings"
	"time"
	"unicode"

	"musicbox/logger"
	"musicbox/storage"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrMissingFile     = errors.New("no file part")
	ErrEmptyFilename   = errors.New("no selected file")
	ErrUnsupportedType = errors.New("file type not allowed")
)

// AllowedExtensions is the audio allow-list, lowercase without dot.
var AllowedExtensions = []string{"mp3", "wav", "ogg"}

var contentTypes = map[string]string{
	"mp3": "audio/mpeg",
	"wav": "audio/wav",
	"ogg": "audio/ogg",
}

var nonSafeChars = regexp.MustCompile(`[^a-zA-Z0-9_\-\.]`)
var multipleSpaces = regexp.MustCompile(`\s+`)

const maxKeyLength = 255

// Extension returns the lowercase extension of name without the dot.
func Extension(name string) string {
	return strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
}

// IsAllowed reports whether name has an allow-listed audio extension.
func IsAllowed(name string) bool {
	ext := Extension(name)
	for _, allowed := range AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// ContentType maps an allowed filename to its audio MIME type.
func ContentType(name string) string {
	if ct, ok := contentTypes[Extension(name)]; ok {
		return ct
	}
	return "application/octet-stream"
}

// fallbackNamespace seeds generated keys for names with no usable characters.
var fallbackNamespace = uuid.MustParse("6f1c2a4e-8d3b-4c71-9a2e-5b0d7e3f1c90")

// foldASCII decomposes with NFKD and drops combining marks, so "café"
// becomes "cafe" and fullwidth letters become ASCII.
func foldASCII(name string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	out, _, err := transform.String(t, name)
	if err != nil {
		return name
	}
	return out
}

// SanitizeFilename reduces a client supplied filename to a safe object key:
// path components are dropped, accents are folded to ASCII, whitespace runs
// become '_', anything outside [A-Za-z0-9_.-] is removed and leading dots
// are stripped. A name left with only separators (e.g. all CJK) gets a
// generated base derived from the original name, keeping the extension.
// Returns "" when nothing usable is left.
func SanitizeFilename(name string) string {
	// browsers on Windows may send the full client path
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(path.Clean("/" + name))
	if name == "/" || name == "." {
		return ""
	}
	original := name

	name = foldASCII(name)
	name = multipleSpaces.ReplaceAllString(strings.TrimSpace(name), "_")
	name = nonSafeChars.ReplaceAllString(name, "")

	ext := path.Ext(name)
	base := strings.TrimLeft(strings.TrimSuffix(name, ext), ".")
	if strings.Trim(base, "_-.") == "" {
		if len(ext) <= 1 {
			return ""
		}
		id := uuid.NewSHA1(fallbackNamespace, []byte(original))
		base = "track_" + strings.ReplaceAll(id.String(), "-", "")
	}
	if len(ext) >= maxKeyLength {
		ext = ""
	}
	if len(base)+len(ext) > maxKeyLength {
		base = base[:maxKeyLength-len(ext)]
	}
	return base + ext
}

// Result 表示上传操作的结果
type Result struct {
	Key  string
	Size int64
}

// Service validates uploads and writes them to the object store.
type Service struct {
	store   storage.ObjectStore
	timeout time.Duration
}

// NewService returns an upload service. timeout bounds a single store
// write; zero means only the caller's context applies.
func NewService(store storage.ObjectStore, timeout time.Duration) *Service {
	return &Service{store: store, timeout: timeout}
}

// Upload runs the checks in order and stops at the first failure:
// authorization, file presence, filename, extension. The body size
// ceiling is enforced by the HTTP layer before this runs.
func (s *Service) Upload(ctx context.Context, authorized bool, file *multipart.FileHeader) (*Result, error) {
	if !authorized {
		return nil, ErrUnauthorized
	}
	if file == nil {
		return nil, ErrMissingFile
	}
	if strings.TrimSpace(file.Filename) == "" {
		return nil, ErrEmptyFilename
	}
	if !IsAllowed(file.Filename) {
		return nil, ErrUnsupportedType
	}

	key := SanitizeFilename(file.Filename)
	if key == "" || !IsAllowed(key) {
		// e.g. a name made only of unsafe characters
		return nil, ErrUnsupportedType
	}

	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer func() {
		if err := src.Close(); err != nil {
			logger.Warn("[Upload] failed to close source file", logger.ErrorField(err))
		}
	}()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	if err := s.store.Put(ctx, key, src, file.Size, ContentType(key)); err != nil {
		logger.Error("[Upload] store write failed",
			logger.String("key", key),
			logger.Int64("size", file.Size),
			logger.ErrorField(err))
		return nil, fmt.Errorf("upload %s: %w", key, err)
	}

	logger.Info("[Upload] file uploaded",
		logger.String("key", key),
		logger.Int64("size", file.Size),
		logger.Duration("elapsed", time.Since(start)))
	return &Result{Key: key, Size: file.Size}, nil
}
