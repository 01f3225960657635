// Package filestore mirrors snapshots to JSON files, one per key.
package filestore

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

const ext = ".json"

var (
	keyRegex = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

	ErrInvalidKey = errors.New("invalid storage key")
)

type Storage struct {
	dir    string
	logger core.Logger

	mu      sync.Mutex
	written map[string][]byte // last bytes written per key
}

var _ core.Storage = (*Storage)(nil)

// New returns a Storage writing under `dir`, creating it if needed.
func New(dir string, logger core.Logger) (*Storage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating storage dir")
	}
	return &Storage{dir: dir, logger: logger, written: make(map[string][]byte)}, nil
}

func (s *Storage) path(key string) (string, error) {
	if !keyRegex.MatchString(key) {
		return "", ErrInvalidKey
	}
	return filepath.Join(s.dir, key+ext), nil
}

func (s *Storage) Load(_ context.Context, key string) ([]byte, error) {
	fp, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(fp)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, core.ErrSnapshotNotFound
		}
		return nil, errors.Wrap(err, "reading snapshot")
	}
	return data, nil
}

// Save replaces the file atomically: it writes a temp file then renames it over the previous one.
func (s *Storage) Save(_ context.Context, key string, data []byte) error {
	fp, err := s.path(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, "."+key+"-*.tmp")
	if err != nil {
		return errors.Wrap(err, "creating temp file")
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "writing temp file")
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "syncing temp file")
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrap(err, "closing temp file")
	}
	if err = os.Rename(tmp.Name(), fp); err != nil {
		return errors.Wrap(err, "replacing snapshot")
	}
	s.written[key] = append([]byte(nil), data...)
	return nil
}

// Watch calls `onChange` whenever a snapshot file is modified by another process, until ctx is done.
func (s *Storage) Watch(ctx context.Context, onChange func(key string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "creating watcher")
	}
	defer func() { _ = watcher.Close() }()

	if err = watcher.Add(s.dir); err != nil {
		return errors.Wrap(err, "watching storage dir")
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			key, ok := s.keyOf(event.Name)
			if !ok || !s.changedExternally(key) {
				continue
			}
			s.logger.Info(fmt.Sprintf("filestore.Watch: %s changed on disk", key))
			onChange(key)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error(fmt.Sprintf("filestore.Watch: %v", err), err)
		}
	}
}

func (s *Storage) keyOf(name string) (string, bool) {
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") || filepath.Ext(base) != ext {
		return "", false
	}
	key := strings.TrimSuffix(base, ext)
	return key, keyRegex.MatchString(key)
}

func (s *Storage) changedExternally(key string) bool {
	data, err := s.Load(context.Background(), key)
	if err != nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return !bytes.Equal(data, s.written[key])
}
