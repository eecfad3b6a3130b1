package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

// LocalStore keeps objects on the local filesystem under Root.
type LocalStore struct {
	root   string
	prefix string
	now    func() time.Time
}

// NewLocalStore creates the root directory if needed.
func NewLocalStore(root, prefix string) (*LocalStore, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("local store root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("abs(root): %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create root: %w", classifyFSError(err))
	}
	return &LocalStore{root: abs, prefix: strings.Trim(prefix, "/"), now: time.Now}, nil
}

// Root returns the absolute root directory.
func (s *LocalStore) Root() string { return s.root }

func (s *LocalStore) Put(ctx context.Context, data []byte, opts PutOptions) (*Object, error) {
	key, err := NewKey(s.prefix, opts, s.now())
	if err != nil {
		return nil, err
	}
	return s.PutKey(ctx, key, data, opts.ContentType)
}

// PutKey writes to a hidden temp file in the target directory and hard-links it into
// place. Readers never observe a partially written object, and link fails with EEXIST
// when another writer got there first.
func (s *LocalStore) PutKey(ctx context.Context, key string, data []byte, contentType string) (*Object, error) {
	full, err := s.path(key)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir := filepath.Dir(full)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir: %w", classifyFSError(err))
	}
	tmpName, err := writeTemp(dir, data)
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmpName)

	// last chance to abort before the object becomes visible
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := os.Link(tmpName, full); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, ErrExists
		}
		return nil, fmt.Errorf("link: %w", classifyFSError(err))
	}

	obj := &Object{Key: key, Size: int64(len(data)), ContentType: contentType, CreatedAt: s.now().UTC()}
	if err := s.writeMeta(full, obj); err != nil {
		_ = os.Remove(full)
		return nil, err
	}
	return obj, nil
}

func writeTemp(dir string, data []byte) (string, error) {
	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp: %w", classifyFSError(err))
	}
	name := tmp.Name()
	fail := func(op string, err error) (string, error) {
		_ = tmp.Close()
		_ = os.Remove(name)
		return "", fmt.Errorf("%s: %w", op, classifyFSError(err))
	}
	if _, err := tmp.Write(data); err != nil {
		return fail("write", err)
	}
	if err := tmp.Sync(); err != nil {
		return fail("sync", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		return fail("chmod", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(name)
		return "", fmt.Errorf("close: %w", classifyFSError(err))
	}
	return name, nil
}

// metaPath names the sidecar holding an object's metadata. The leading dot keeps it
// outside the key space, so it can never be fetched as an object.
func metaPath(full string) string {
	return filepath.Join(filepath.Dir(full), "."+filepath.Base(full)+".json")
}

func (s *LocalStore) writeMeta(full string, obj *Object) error {
	b, err := json.Marshal(obj)
	if err != nil {
		return fmt.Errorf("encode meta: %w", err)
	}
	tmpName, err := writeTemp(filepath.Dir(full), b)
	if err != nil {
		return err
	}
	if err := os.Rename(tmpName, metaPath(full)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename meta: %w", classifyFSError(err))
	}
	return nil
}

func (s *LocalStore) Get(ctx context.Context, key string) ([]byte, *Object, error) {
	full, err := s.path(key)
	if err != nil {
		return nil, nil, err
	}
	b, err := os.ReadFile(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("read: %w", classifyFSError(err))
	}
	obj := &Object{Key: key, Size: int64(len(b))}
	// a missing sidecar leaves the content type empty
	if raw, err := os.ReadFile(metaPath(full)); err == nil {
		var meta Object
		if json.Unmarshal(raw, &meta) == nil {
			obj.ContentType = meta.ContentType
			obj.CreatedAt = meta.CreatedAt
		}
	}
	return b, obj, nil
}

func (s *LocalStore) Exists(ctx context.Context, key string) (bool, error) {
	full, err := s.path(key)
	if err != nil {
		return false, err
	}
	fi, err := os.Stat(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat: %w", classifyFSError(err))
	}
	return fi.Mode().IsRegular(), nil
}

func (s *LocalStore) Delete(ctx context.Context, key string) error {
	full, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove: %w", classifyFSError(err))
	}
	_ = os.Remove(metaPath(full))
	return nil
}

func (s *LocalStore) path(key string) (string, error) {
	if err := ValidateKey(s.prefix, key); err != nil {
		return "", err
	}
	full := filepath.Join(s.root, filepath.FromSlash(key))
	sep := string(os.PathSeparator)
	if !strings.HasPrefix(full+sep, s.root+sep) {
		return "", fmt.Errorf("%w: %q escapes root", ErrInvalidKey, key)
	}
	return full, nil
}

func classifyFSError(err error) error {
	if errors.Is(err, syscall.ENOSPC) {
		return fmt.Errorf("%w: %v", ErrQuotaExceeded, err)
	}
	return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
}
