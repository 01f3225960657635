package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

type snapshotStorage struct {
	exec    core.DBExecutor
	nowFunc func() time.Time
}

var _ core.Storage = (*snapshotStorage)(nil)

// NewSnapshotStorage returns a core.Storage backed by the site_snapshots table.
func NewSnapshotStorage(exec core.DBExecutor) core.Storage {
	return &snapshotStorage{exec: exec, nowFunc: time.Now}
}

func (s snapshotStorage) Load(ctx context.Context, key string) ([]byte, error) {
	var value string
	q := `SELECT "value" FROM site_snapshots WHERE "key" = ?`
	if err := s.exec.GetContext(ctx, &value, s.exec.Rebind(q), key); err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return nil, core.ErrSnapshotNotFound
		}
		return nil, errors.Wrap(err, "loading snapshot")
	}
	return []byte(value), nil
}

func (s snapshotStorage) Save(ctx context.Context, key string, data []byte) error {
	q := `INSERT INTO site_snapshots ("key", "value", updated_at) VALUES (?, ?, ?)
		ON CONFLICT ("key") DO UPDATE SET "value" = excluded."value", updated_at = excluded.updated_at`
	if _, err := s.exec.ExecContext(ctx, s.exec.Rebind(q), key, string(data), s.nowFunc().UTC()); err != nil {
		return errors.Wrap(err, "saving snapshot")
	}
	return nil
}
