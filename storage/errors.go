package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/minio/minio-go/v7"
)

// Kind classifies a storage failure.
type Kind string

const (
	KindNetwork  Kind = "network"
	KindAuth     Kind = "auth"
	KindTimeout  Kind = "timeout"
	KindNotFound Kind = "not_found"
	KindRejected Kind = "rejected" // size limit or invalid request refused by the store
)

// Sentinels matched with errors.Is against a *StorageError.
var (
	ErrNetwork  = errors.New("storage network failure")
	ErrAuth     = errors.New("storage authentication failure")
	ErrTimeout  = errors.New("storage operation timed out")
	ErrNotFound = errors.New("storage object or bucket not found")
	ErrRejected = errors.New("storage request rejected")
)

// StorageError wraps a failed gateway call.
type StorageError struct {
	Op   string // put, list, sign, probe
	Key  string
	Kind Kind
	Err  error
}

func (e *StorageError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("storage %s %q: %s: %v", e.Op, e.Key, e.Kind, e.Err)
	}
	return fmt.Sprintf("storage %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrTimeout) and friends match on Kind.
func (e *StorageError) Is(target error) bool {
	switch target {
	case ErrNetwork:
		return e.Kind == KindNetwork
	case ErrAuth:
		return e.Kind == KindAuth
	case ErrTimeout:
		return e.Kind == KindTimeout
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrRejected:
		return e.Kind == KindRejected
	}
	return false
}

// classify maps a minio-go or context error onto a Kind.
func classify(ctx context.Context, err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) || (ctx != nil && errors.Is(ctx.Err(), context.DeadlineExceeded)) {
		return KindTimeout
	}

	switch minio.ToErrorResponse(err).Code {
	case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch", "ExpiredToken", "InvalidToken":
		return KindAuth
	case "NoSuchKey", "NoSuchBucket", "NotFound":
		return KindNotFound
	case "EntityTooLarge", "InvalidArgument", "InvalidRequest":
		return KindRejected
	}
	return KindNetwork
}

func wrapError(ctx context.Context, op, key string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Key: key, Kind: classify(ctx, err), Err: err}
}
