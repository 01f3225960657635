package site

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

// DefaultStorageKey is the key the site document is stored under.
const DefaultStorageKey = "schoolData"

type (
	StoreDeps struct {
		Storage  core.Storage
		Logger   core.Logger
		Validate *validator.Validate

		Key                 string // defaults to DefaultStorageKey
		PersistOnChangeOnly bool   // skip writes when the serialized document did not change
		NowFunc             func() time.Time
	}

	subscriber struct {
		id int
		fn func(State)
	}

	// Store holds the site State. Transitions are serialized: each Dispatch reduces, persists the document,
	// then notifies subscribers before the next one starts.
	Store struct {
		deps StoreDeps

		mu        sync.Mutex
		state     State
		lastSaved []byte
		subs      []subscriber
		nextSubID int
	}
)

func NewStore(deps StoreDeps) (*Store, error) {
	if err := vala.BeginValidation().Validate(
		vala.IsNotNil(deps.Storage, "Storage"),
		vala.IsNotNil(deps.Logger, "Logger"),
		vala.IsNotNil(deps.Validate, "Validate"),
	).Check(); err != nil {
		return nil, errors.Wrap(err, "creating site store")
	}

	if deps.Key == "" {
		deps.Key = DefaultStorageKey
	}
	if deps.NowFunc == nil {
		deps.NowFunc = time.Now
	}
	return &Store{deps: deps, state: InitialState()}, nil
}

// State returns the current state. The returned lists are shared and must not be modified.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// View calls `fn` with the current state while transitions wait for it to return.
// `fn` must not call the store.
func (s *Store) View(fn func(State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.state)
}

// Hydrate loads the stored document over the defaults.
// A missing document keeps the defaults; an unreadable one is logged and keeps the defaults too.
func (s *Store) Hydrate(ctx context.Context) {
	raw, err := s.deps.Storage.Load(ctx, s.deps.Key)
	if err != nil {
		if errors.Is(err, core.ErrSnapshotNotFound) {
			s.deps.Logger.Info("site.Store.Hydrate: no stored document, using defaults")
		} else {
			s.deps.Logger.Error(fmt.Sprintf("site.Store.Hydrate: %v", err), err)
		}
		return
	}

	patch, err := DecodeSnapshot(raw)
	if err != nil {
		s.deps.Logger.Error(fmt.Sprintf("site.Store.Hydrate: %v", err), err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSaved = raw
	if err := s.dispatchLocked(ctx, LoadPersistedData{Data: patch}); err != nil {
		s.deps.Logger.Error(fmt.Sprintf("site.Store.Hydrate: %v", err), err)
	}
}

// Dispatch applies `action`. Invalid payloads return their validation error and change nothing;
// unknown actions are ignored. Persistence failures are logged, never returned.
func (s *Store) Dispatch(ctx context.Context, action Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dispatchLocked(ctx, action)
}

// Apply computes an action from the current state and dispatches it atomically.
// A nil action is a no-op.
func (s *Store) Apply(ctx context.Context, fn func(State) (Action, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	action, err := fn(s.state)
	if err != nil || action == nil {
		return err
	}
	return s.dispatchLocked(ctx, action)
}

// Subscribe registers `fn` to be called with the new state after every transition, in registration order.
// `fn` runs while the store is locked: it must not call the store.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextSubID++
	id := s.nextSubID
	s.subs = append(s.subs, subscriber{id: id, fn: fn})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		subs := make([]subscriber, 0, len(s.subs))
		for _, sub := range s.subs {
			if sub.id != id {
				subs = append(subs, sub)
			}
		}
		s.subs = subs
	}
}

func (s *Store) dispatchLocked(ctx context.Context, action Action) error {
	if action == nil {
		return nil
	}
	if a, ok := action.(CleanupOldInquiries); ok && a.Now.IsZero() {
		a.Now = s.deps.NowFunc()
		action = a
	}
	if _, ok := action.(LoadPersistedData); !ok {
		if err := s.deps.Validate.Struct(action); err != nil {
			var invalid *validator.InvalidValidationError
			if !errors.As(err, &invalid) {
				return err
			}
		}
	}

	next, recognized, err := Reduce(s.state, action)
	if err != nil {
		return err
	}
	if !recognized {
		s.deps.Logger.Debug(fmt.Sprintf("site.Store.Dispatch: unknown action %q", action.Kind()))
		return nil
	}

	s.state = next
	s.persist(ctx)
	for _, sub := range s.subs {
		sub.fn(next)
	}
	return nil
}

func (s *Store) persist(ctx context.Context) {
	data, err := EncodeSnapshot(s.state.Data)
	if err != nil {
		s.deps.Logger.Error(fmt.Sprintf("site.Store.persist: %v", err), err)
		return
	}
	if s.deps.PersistOnChangeOnly && bytes.Equal(data, s.lastSaved) {
		return
	}
	if err := s.deps.Storage.Save(ctx, s.deps.Key, data); err != nil {
		s.deps.Logger.Error(fmt.Sprintf("site.Store.persist: %v", err), err)
		return
	}
	s.lastSaved = data
}
