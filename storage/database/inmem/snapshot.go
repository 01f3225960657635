package inmemdb

import (
	"context"

	"github.com/trezcool/shule/core"
)

type snapshotStorage struct {
	db *snapshotTable
}

var _ core.Storage = (*snapshotStorage)(nil)

// NewSnapshotStorage returns a core.Storage that keeps snapshots in memory.
func NewSnapshotStorage(db *DB) core.Storage {
	return &snapshotStorage{db: db.snapshot}
}

func (s *snapshotStorage) Load(_ context.Context, key string) ([]byte, error) {
	s.db.mutex.RLock()
	defer s.db.mutex.RUnlock()

	data, ok := s.db.table[key]
	if !ok {
		return nil, core.ErrSnapshotNotFound
	}
	return append([]byte(nil), data...), nil
}

func (s *snapshotStorage) Save(_ context.Context, key string, data []byte) error {
	s.db.mutex.Lock()
	defer s.db.mutex.Unlock()

	s.db.table[key] = append([]byte(nil), data...)
	return nil
}
