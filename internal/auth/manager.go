package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Event describes a session change.
type Event int

const (
	EventSignedIn Event = iota + 1
	EventSignedOut
	EventExpired
)

func (e Event) String() string {
	switch e {
	case EventSignedIn:
		return "signed_in"
	case EventSignedOut:
		return "signed_out"
	case EventExpired:
		return "expired"
	}
	return "unknown"
}

// Listener is notified after a session changes.
type Listener func(event Event, session Session)

// ManagerOptions configures a Manager.
type ManagerOptions struct {
	TTL               time.Duration  // Upper bound on a session's life
	MagicLinkRedirect string         // Where emailed sign-in links land
	Verifier          *TokenVerifier // Optional local access-token check
	AllowList         AllowList
	Logger            zerolog.Logger
}

// Manager owns the admin session state. It is created once at startup and
// passed to the handlers that need it.
type Manager struct {
	auth              Authenticator
	store             SessionStore
	verifier          *TokenVerifier
	allow             AllowList
	ttl               time.Duration
	magicLinkRedirect string
	log               zerolog.Logger
	now               func() time.Time
	newID             func() string

	mu        sync.RWMutex
	listeners map[int]Listener
	nextID    int
}

// NewManager creates a new Manager.
func NewManager(authenticator Authenticator, store SessionStore, opts ManagerOptions) *Manager {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Manager{
		auth:              authenticator,
		store:             store,
		verifier:          opts.Verifier,
		allow:             opts.AllowList,
		ttl:               ttl,
		magicLinkRedirect: opts.MagicLinkRedirect,
		log:               opts.Logger,
		now:               time.Now,
		newID:             uuid.NewString,
		listeners:         make(map[int]Listener),
	}
}

// Init checks that the session store is usable. Call it once before serving.
func (m *Manager) Init(ctx context.Context) error {
	if err := m.store.Ping(ctx); err != nil {
		return fmt.Errorf("auth: session store unavailable: %w", err)
	}
	return nil
}

// OnChange registers l for session changes and returns a function that removes it.
func (m *Manager) OnChange(l Listener) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = l
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

func (m *Manager) notify(event Event, session Session) {
	m.mu.RLock()
	listeners := make([]Listener, 0, len(m.listeners))
	for _, l := range m.listeners {
		listeners = append(listeners, l)
	}
	m.mu.RUnlock()

	for _, l := range listeners {
		l(event, session)
	}
}

// Permits reports whether email is on the admin allow-list.
func (m *Manager) Permits(email string) bool {
	return m.allow.Permits(email)
}

// SignIn authenticates with email and password and stores a new session.
func (m *Manager) SignIn(ctx context.Context, email, password string) (*Session, error) {
	token, err := m.auth.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}

	ttl := m.ttl
	if token.ExpiresIn > 0 {
		if tokenTTL := time.Duration(token.ExpiresIn) * time.Second; tokenTTL < ttl {
			ttl = tokenTTL
		}
	}

	session := Session{
		ID:           m.newID(),
		UserID:       token.User.ID,
		Email:        token.User.Email,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    m.now().Add(ttl),
	}
	if err := m.store.Save(ctx, session, ttl); err != nil {
		return nil, err
	}

	m.notify(EventSignedIn, session)
	return &session, nil
}

// RequestMagicLink asks the auth service to email a sign-in link. Following the
// link completes sign-in outside this service.
func (m *Manager) RequestMagicLink(ctx context.Context, email string) error {
	return m.auth.SignInWithOTP(ctx, email, m.magicLinkRedirect)
}

// Current loads the session with the given id. Expired sessions and sessions
// whose access token no longer verifies are removed.
func (m *Manager) Current(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, ErrNoSession
	}
	session, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if session.Expired(m.now()) {
		m.end(ctx, *session, EventExpired)
		return nil, ErrNoSession
	}
	if m.verifier != nil {
		if _, err := m.verifier.Verify(session.AccessToken); err != nil {
			m.end(ctx, *session, EventExpired)
			return nil, err
		}
	}
	return session, nil
}

// Authenticate resolves a bearer access token presented by an API client into
// an unsaved session.
func (m *Manager) Authenticate(ctx context.Context, accessToken string) (*Session, error) {
	if accessToken == "" {
		return nil, ErrNoSession
	}

	if m.verifier != nil {
		claims, err := m.verifier.Verify(accessToken)
		if err != nil {
			return nil, err
		}
		session := &Session{UserID: claims.Subject, Email: claims.Email, AccessToken: accessToken}
		if claims.ExpiresAt != nil {
			session.ExpiresAt = claims.ExpiresAt.Time
		}
		return session, nil
	}

	user, err := m.auth.GetUser(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	return &Session{UserID: user.ID, Email: user.Email, AccessToken: accessToken}, nil
}

// SignOut logs the session out at the auth service and removes it. A failing
// remote logout is logged; the local session is removed regardless.
func (m *Manager) SignOut(ctx context.Context, id string) error {
	session, err := m.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNoSession) {
			return nil
		}
		return err
	}

	if err := m.auth.SignOut(ctx, session.AccessToken); err != nil {
		m.log.Warn().Err(err).Str("user_id", session.UserID).Msg("remote sign-out failed")
	}
	return m.end(ctx, *session, EventSignedOut)
}

func (m *Manager) end(ctx context.Context, session Session, event Event) error {
	if err := m.store.Delete(ctx, session.ID); err != nil {
		m.log.Error().Err(err).Str("session_id", session.ID).Msg("failed to delete session")
		return err
	}
	m.notify(event, session)
	return nil
}
