// Package storage persists uploaded media under server-derived keys.
//
// Keys look like <prefix>/<namespace>/<yyyy>/<mm>/<uuidv7><ext>. The namespace is a
// validated slug chosen by the server and the extension is the only part taken from
// the caller's filename, so no caller-supplied path ever reaches a backend verbatim.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned by Get when no object exists under the key.
	ErrNotFound = errors.New("storage: object not found")
	// ErrStorageUnavailable marks transient backend failures; callers may retry with backoff.
	ErrStorageUnavailable = errors.New("storage: backend unavailable")
	// ErrQuotaExceeded marks a full backend; retrying will not help without intervention.
	ErrQuotaExceeded = errors.New("storage: quota exceeded")
	// ErrExists is returned by PutKey when the key already holds an object.
	ErrExists = errors.New("storage: object already exists")
	// ErrInvalidKey is returned for keys that were not produced by NewKey.
	ErrInvalidKey = errors.New("storage: invalid key")
	// ErrPresignUnsupported is returned by drivers that cannot mint presigned URLs themselves.
	ErrPresignUnsupported = errors.New("storage: presign unsupported")
)

// Object describes a stored asset. Objects are immutable once written.
type Object struct {
	Key         string    `json:"key"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	CreatedAt   time.Time `json:"created_at"`
}

// PutOptions controls key derivation for Put.
type PutOptions struct {
	// Namespace groups keys by content category, e.g. "team" or "blog".
	Namespace string
	// SuggestedName is only consulted for its extension.
	SuggestedName string
	ContentType   string
}

// Store is implemented by every storage driver.
type Store interface {
	// Put derives a fresh key and writes data under it.
	Put(ctx context.Context, data []byte, opts PutOptions) (*Object, error)
	// PutKey writes data under a key previously returned by NewKey. The write is
	// exclusive: a key that already holds an object yields ErrExists.
	PutKey(ctx context.Context, key string, data []byte, contentType string) (*Object, error)
	// Get returns the object bytes together with the metadata recorded at write time.
	Get(ctx context.Context, key string) ([]byte, *Object, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
}

// Presigner is implemented by drivers that can hand out direct-upload URLs.
type Presigner interface {
	PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (string, error)
}

var (
	namespacePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{0,31}$`)
	extPattern       = regexp.MustCompile(`^\.[a-z0-9]{1,8}$`)
	keyPattern       = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*(/[A-Za-z0-9][A-Za-z0-9._-]*)*$`)
)

// ValidNamespace reports whether ns can be used as a key namespace.
func ValidNamespace(ns string) bool {
	return namespacePattern.MatchString(ns)
}

// NewKey derives a collision-free key. Two calls never return the same key.
func NewKey(prefix string, opts PutOptions, now time.Time) (string, error) {
	if !ValidNamespace(opts.Namespace) {
		return "", fmt.Errorf("%w: namespace %q", ErrInvalidKey, opts.Namespace)
	}
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate key id: %w", err)
	}
	parts := []string{}
	if p := strings.Trim(prefix, "/"); p != "" {
		parts = append(parts, p)
	}
	parts = append(parts, opts.Namespace, now.UTC().Format("2006"), now.UTC().Format("01"), id.String()+safeExt(opts.SuggestedName))
	return strings.Join(parts, "/"), nil
}

// ValidateKey rejects keys that could escape the store's namespace.
func ValidateKey(prefix, key string) error {
	if key == "" || len(key) > 512 || !keyPattern.MatchString(key) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == "." || seg == ".." {
			return fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	if p := strings.Trim(prefix, "/"); p != "" && !strings.HasPrefix(key, p+"/") {
		return fmt.Errorf("%w: %q outside %q", ErrInvalidKey, key, p)
	}
	return nil
}

func safeExt(name string) string {
	ext := strings.ToLower(path.Ext(strings.ReplaceAll(name, "\\", "/")))
	if ext == ".jpeg" {
		ext = ".jpg"
	}
	if !extPattern.MatchString(ext) {
		return ""
	}
	return ext
}

var (
	_ Store     = (*LocalStore)(nil)
	_ Store     = (*MemoryStore)(nil)
	_ Store     = (*S3Store)(nil)
	_ Presigner = (*S3Store)(nil)
)
