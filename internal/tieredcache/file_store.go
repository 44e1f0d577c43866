package tieredcache

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"shelfscan/internal/services"
)

const (
	fileSuffix    = ".json"
	tempPrefix    = ".tmp-"
	fileStoreRoot = "."
)

var fileNameEncoding = base64.RawURLEncoding

// FileStore keeps one file per key on a billy filesystem. Writes go through a
// temp file and rename so readers never observe partial values.
type FileStore struct {
	fs         billy.Filesystem
	quotaBytes int64
}

// NewFileStore returns a store rooted at the given filesystem.
func NewFileStore(filesystem billy.Filesystem, quotaBytes int64) *FileStore {
	return &FileStore{fs: filesystem, quotaBytes: quotaBytes}
}

func fileNameForKey(key string) string {
	return fileNameEncoding.EncodeToString([]byte(key)) + fileSuffix
}

func keyForFileName(name string) (string, bool) {
	if strings.HasPrefix(name, tempPrefix) || !strings.HasSuffix(name, fileSuffix) {
		return "", false
	}
	decoded, err := fileNameEncoding.DecodeString(strings.TrimSuffix(name, fileSuffix))
	if err != nil {
		return "", false
	}
	return string(decoded), true
}

// Get returns the stored value for key.
func (s *FileStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	data, err := util.ReadFile(s.fs, fileNameForKey(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read cache file: %w", err)
	}
	return data, true, nil
}

// Set writes key atomically. It fails with services.ErrCapacityExceeded when
// the quota would be exceeded.
func (s *FileStore) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name := fileNameForKey(key)
	if s.quotaBytes > 0 {
		used, err := s.usedBytes(name)
		if err != nil {
			return err
		}
		if used+int64(len(value)) > s.quotaBytes {
			return services.Wrap(services.ErrCapacityExceeded, "tieredcache", "file set",
				fmt.Sprintf("%d of %d bytes used", used, s.quotaBytes), nil)
		}
	}

	tmp, err := util.TempFile(s.fs, fileStoreRoot, tempPrefix)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(value); err != nil {
		_ = tmp.Close()
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := s.fs.Rename(tmpName, name); err != nil {
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// Delete removes key. Missing keys are not an error.
func (s *FileStore) Delete(_ context.Context, key string) error {
	if err := s.fs.Remove(fileNameForKey(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove cache file: %w", err)
	}
	return nil
}

// Keys lists every key starting with prefix.
func (s *FileStore) Keys(_ context.Context, prefix string) ([]string, error) {
	infos, err := s.fs.ReadDir(fileStoreRoot)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list cache dir: %w", err)
	}
	var keys []string
	for _, info := range infos {
		if info.IsDir() {
			continue
		}
		key, ok := keyForFileName(info.Name())
		if ok && strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// Close is a no-op; billy filesystems hold no handles between calls.
func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) usedBytes(exclude string) (int64, error) {
	infos, err := s.fs.ReadDir(fileStoreRoot)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("list cache dir: %w", err)
	}
	var used int64
	for _, info := range infos {
		if info.IsDir() || info.Name() == exclude {
			continue
		}
		if _, ok := keyForFileName(info.Name()); ok {
			used += info.Size()
		}
	}
	return used, nil
}
