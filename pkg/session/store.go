package session

import (
	"log/slog"
	"sync"
)

// Snapshot is an immutable view of the session handed to subscribers.
type Snapshot struct {
	Status    Status
	User      *User
	Pending   bool
	LastError string
}

// Authenticated reports whether the snapshot carries a logged-in user.
func (s Snapshot) Authenticated() bool {
	return s.Status == StatusAuthenticated
}

// Store is the single source of truth for the client session. It starts
// in StatusLoading and is mutated only through Apply, which keeps the
// invariant that User is non-nil exactly when the status is authenticated.
type Store struct {
	mu        sync.Mutex
	status    Status
	user      *User
	pending   bool
	lastError string

	subs   map[int]func(Snapshot)
	nextID int
	log    *slog.Logger
}

// NewStore creates a Store in StatusLoading.
// A nil logger falls back to slog.Default.
func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		status: StatusLoading,
		subs:   make(map[int]func(Snapshot)),
		log:    logger,
	}
}

// Snapshot returns the current session state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Status returns the current status.
func (s *Store) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Subscribe registers fn to observe every state change. fn is invoked
// with the post-transition snapshot. The returned function unsubscribes.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Apply performs one transition. Matching is exhaustive over the closed
// (Op, Phase) space; an event outside it is a programming error and is
// logged and ignored rather than corrupting state.
func (s *Store) Apply(ev Event) {
	s.mu.Lock()

	switch ev.Phase {
	case PhaseStart:
		s.lastError = ""
		switch ev.Op {
		case OpLoadUser:
			// Re-entering the loading state discards any stale profile;
			// User is non-nil only while the status is authenticated.
			s.status = StatusLoading
			s.user = nil
		case OpLogin, OpRegister, OpLogout:
			s.pending = true
		}

	case PhaseSuccess:
		switch ev.Op {
		case OpLoadUser, OpLogin, OpRegister:
			s.status = StatusAuthenticated
			s.user = ev.User
			s.pending = false
			s.lastError = ""
		case OpLogout:
			s.status = StatusAnonymous
			s.user = nil
			s.pending = false
			s.lastError = ""
		}

	case PhaseFailure:
		switch ev.Op {
		case OpLoadUser:
			s.status = StatusAnonymous
			s.user = nil
		case OpLogin, OpRegister:
			s.pending = false
			s.lastError = ev.Err
		case OpLogout:
			s.pending = false
			s.lastError = ev.Err
		}

	default:
		s.mu.Unlock()
		s.log.Error("session: unknown event phase", "op", ev.Op, "phase", int(ev.Phase))
		return
	}

	// A success event without a user would break the status/user
	// invariant; force anonymous instead.
	if s.status == StatusAuthenticated && s.user == nil {
		s.status = StatusAnonymous
	}

	snap := s.snapshotLocked()
	subs := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	s.log.Debug("session: transition",
		"op", ev.Op.String(),
		"phase", int(ev.Phase),
		"status", snap.Status.String(),
	)
	for _, fn := range subs {
		fn(snap)
	}
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{
		Status:    s.status,
		Pending:   s.pending,
		LastError: s.lastError,
	}
	if s.user != nil {
		u := *s.user
		snap.User = &u
	}
	return snap
}
