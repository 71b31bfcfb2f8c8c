// Package session holds the application's authentication state.
//
// The Store owns the (user, loading) pair for the lifetime of the application.
// Request methods such as Login only report the outcome of their provider call;
// the state itself changes when the provider announces the resulting AuthEvent.
package session

import (
	"context"
	"sync"

	"github.com/mkrupp/fintrack/internal/app/guard"
	"github.com/mkrupp/fintrack/internal/domain"
	"github.com/mkrupp/fintrack/internal/infra/logging"
)

// State is a snapshot of the store.
type State = guard.State

// AuthProvider is the auth client the store delegates to.
type AuthProvider interface {
	GetSession(ctx context.Context) (*domain.AuthSession, error)
	OnAuthStateChange(fn func(domain.AuthEvent)) (unsubscribe func())
	SignIn(ctx context.Context, creds domain.Credentials) error
	SignUp(ctx context.Context, reg domain.Registration) error
	SignOut(ctx context.Context) error
	SendPasswordReset(ctx context.Context, email string) error
	UpdatePassword(ctx context.Context, password string) error
}

// Navigator performs navigation side effects.
type Navigator func(path string)

type listener[T any] struct {
	id int
	fn func(T)
}

// Store is the single owner of the application's session state.
type Store struct {
	provider AuthProvider
	navigate Navigator
	log      logging.Logger

	mu      sync.Mutex
	state   State
	applied bool // an AuthEvent has been applied
	loaded  chan struct{}

	// notifyMu orders state changes and their announcement.
	notifyMu  sync.Mutex
	listeners []listener[State]
	notices   []listener[Notice]
	nextID    int

	queueMu sync.Mutex
	queue   []domain.AuthEvent
	wake    chan struct{}

	mountOnce   sync.Once
	consumeOnce sync.Once
	closeOnce   sync.Once
	unsubscribe func()
	done        chan struct{}
	wg          sync.WaitGroup
}

// NewStore creates a store in the loading state. navigate may be nil.
func NewStore(provider AuthProvider, navigate Navigator) *Store {
	if navigate == nil {
		navigate = func(string) {}
	}

	return &Store{
		provider: provider,
		navigate: navigate,
		log:      logging.GetLogger("app.session.store"),
		state:    State{User: nil, IsLoading: true},
		loaded:   make(chan struct{}),
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// Mount starts the event consumer, subscribes to the provider and fetches the
// initial session in the background. Calls after the first are ignored.
func (s *Store) Mount(ctx context.Context) {
	s.mountOnce.Do(func() {
		s.wg.Add(1)

		go func() {
			defer s.wg.Done()

			s.Initialize(ctx)
		}()

		s.Subscribe()
	})
}

// Initialize fetches the current session from the provider. A failure is logged
// and leaves the user signed out. If an AuthEvent was applied in the meantime,
// that event's user is kept. Either way the store stops loading.
func (s *Store) Initialize(ctx context.Context) {
	authSession, err := s.provider.GetSession(ctx)
	if err != nil {
		s.log.WarnContext(ctx, "initial session fetch failed", "error", err)

		authSession = nil
	}

	s.update(func(state *State) {
		if !s.applied {
			state.User = userOf(authSession)
		}

		state.IsLoading = false
	})

	s.log.DebugContext(ctx, "session initialized", "signed_in", authSession != nil)
}

// Subscribe registers the store with the provider's auth event channel and
// starts the consumer that applies the queued events in order.
func (s *Store) Subscribe() {
	s.consumeOnce.Do(func() {
		s.wg.Add(1)

		go s.consume()
	})

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unsubscribe != nil {
		return
	}

	s.unsubscribe = s.provider.OnAuthStateChange(s.enqueue)
}

func (s *Store) enqueue(event domain.AuthEvent) {
	s.queueMu.Lock()
	s.queue = append(s.queue, event)
	s.queueMu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Store) consume() {
	defer s.wg.Done()

	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}

		for {
			s.queueMu.Lock()
			if len(s.queue) == 0 {
				s.queueMu.Unlock()

				break
			}

			event := s.queue[0]
			s.queue = s.queue[1:]
			s.queueMu.Unlock()

			s.apply(event)
		}
	}
}

// apply sets the user from event, ends loading and navigates for sign in and sign out.
func (s *Store) apply(event domain.AuthEvent) {
	s.log.Debug("auth event", "kind", event.Kind)

	s.update(func(state *State) {
		s.applied = true
		state.User = userOf(event.Session)
		state.IsLoading = false
	}, func() {
		switch event.Kind {
		case domain.AuthEventSignedIn:
			s.navigate(guard.DashboardPath)
		case domain.AuthEventSignedOut:
			s.navigate(guard.LoginPath)
		case domain.AuthEventTokenRefreshed, domain.AuthEventUserUpdated, domain.AuthEventPasswordRecovery:
		}
	})
}

// update changes the state, announces it to listeners and runs the given effects,
// in that order, before the next update can start.
func (s *Store) update(fn func(*State), effects ...func()) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	fn(&s.state)
	state := s.state

	if !state.IsLoading {
		select {
		case <-s.loaded:
		default:
			close(s.loaded)
		}
	}
	s.mu.Unlock()

	for _, l := range s.listeners {
		l.fn(state)
	}

	for _, effect := range effects {
		effect()
	}
}

// State returns the current state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Loaded is closed once the store has stopped loading.
func (s *Store) Loaded() <-chan struct{} {
	return s.loaded
}

// Listen calls fn with every new state. The returned function stops the calls.
func (s *Store) Listen(fn func(State)) (cancel func()) {
	return subscribe(s, &s.listeners, fn)
}

// OnNotice calls fn with every notice. The returned function stops the calls.
func (s *Store) OnNotice(fn func(Notice)) (cancel func()) {
	return subscribe(s, &s.notices, fn)
}

func subscribe[T any](s *Store, list *[]listener[T], fn func(T)) func() {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.nextID++
	id := s.nextID
	*list = append(*list, listener[T]{id: id, fn: fn})

	var once sync.Once

	return func() {
		once.Do(func() {
			s.notifyMu.Lock()
			defer s.notifyMu.Unlock()

			for i, l := range *list {
				if l.id == id {
					*list = append((*list)[:i:i], (*list)[i+1:]...)

					break
				}
			}
		})
	}
}

// Close cancels the provider subscription and stops the consumer.
// It is safe to call more than once.
func (s *Store) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		unsubscribe := s.unsubscribe
		s.mu.Unlock()

		if unsubscribe != nil {
			unsubscribe()
		}

		close(s.done)
		s.wg.Wait()
	})
}

func userOf(authSession *domain.AuthSession) *domain.User {
	if authSession == nil {
		return nil
	}

	u := authSession.User

	return &u
}
