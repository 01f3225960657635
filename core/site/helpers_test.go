package site

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core"
)

type (
	memStorage struct {
		mu      sync.Mutex
		data    map[string][]byte
		saves   int
		loadErr error
		saveErr error
	}

	logEntry struct {
		level string
		msg   string
	}

	recLogger struct {
		mu      sync.Mutex
		entries []logEntry
	}

	bogusAction struct{}
)

var (
	_ core.Storage = (*memStorage)(nil)
	_ core.Logger  = (*recLogger)(nil)

	errStorageDown = errors.New("storage down")
)

func (bogusAction) Kind() ActionKind { return "BOGUS" }

func newMemStorage() *memStorage {
	return &memStorage{data: make(map[string][]byte)}
}

func (s *memStorage) Load(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	data, ok := s.data[key]
	if !ok {
		return nil, core.ErrSnapshotNotFound
	}
	return data, nil
}

func (s *memStorage) Save(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.data[key] = append([]byte(nil), data...)
	s.saves++
	return nil
}

func (s *memStorage) saveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

func (l *recLogger) log(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg})
}

func (l *recLogger) Debug(msg string, _ ...interface{}) { l.log("debug", msg) }
func (l *recLogger) Info(msg string, _ ...interface{})  { l.log("info", msg) }
func (l *recLogger) Warn(msg string, _ ...interface{})  { l.log("warn", msg) }
func (l *recLogger) Error(msg string, _ ...interface{}) { l.log("error", msg) }
func (l *recLogger) Fatal(msg string, _ ...interface{}) { l.log("fatal", msg) }

func (l *recLogger) count(level string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	var n int
	for _, e := range l.entries {
		if e.level == level {
			n++
		}
	}
	return n
}

func newTestStore(t *testing.T, storage core.Storage, opts ...func(*StoreDeps)) (*Store, *recLogger) {
	t.Helper()
	validate, _ := core.NewValidator()
	logger := new(recLogger)
	deps := StoreDeps{
		Storage:  storage,
		Logger:   logger,
		Validate: validate,
		NowFunc:  func() time.Time { return testNow },
	}
	for _, opt := range opts {
		opt(&deps)
	}
	store, err := NewStore(deps)
	require.NoError(t, err)
	return store, logger
}

var testNow = time.Date(2024, time.July, 15, 10, 0, 0, 0, time.UTC)

func newInquiry(id, submitted string) AdmissionInquiry {
	return AdmissionInquiry{
		ID:             id,
		StudentName:    fmt.Sprintf("STUDENT %s", id),
		ClassApplied:   "Class 5",
		FatherName:     "FATHER",
		PrimaryContact: "9999999999",
		SubmittedDate:  submitted,
	}
}

func inquiryIDs(inqs []AdmissionInquiry) []string {
	ids := make([]string, 0, len(inqs))
	for _, inq := range inqs {
		ids = append(ids, inq.ID)
	}
	return ids
}
