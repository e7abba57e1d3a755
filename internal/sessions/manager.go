// Package sessions keeps browser login sessions in memory.
package sessions

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// CookieName is the name of the session cookie.
const CookieName = "tracker_session"

// Session is one browser session. User is empty until login.
type Session struct {
	ID        string
	User      string
	Role      string
	Locale    string
	CSRFToken string
	CreatedAt time.Time
	LastSeen  time.Time
}

// Authenticated reports whether a user has logged in on this session.
func (s *Session) Authenticated() bool { return s != nil && s.User != "" }

// Options configures a Manager.
type Options struct {
	TTL          time.Duration
	SecureCookie bool
}

// Manager owns the session table.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	secure   bool
	now      func() time.Time
}

// NewManager creates a session manager. A zero TTL means 12 hours.
func NewManager(opts Options) *Manager {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Manager{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		secure:   opts.SecureCookie,
		now:      time.Now,
	}
}

func newToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}

// Start creates an anonymous session with the given locale.
func (m *Manager) Start(locale string) *Session {
	now := m.now()
	s := &Session{
		ID:        uuid.NewString(),
		Locale:    locale,
		CSRFToken: newToken(),
		CreatedAt: now,
		LastSeen:  now,
	}
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s.clone()
}

// Get returns a copy of the session for id and refreshes its last-seen time.
// Expired sessions are dropped and reported as missing.
func (m *Manager) Get(id string) (*Session, bool) {
	if id == "" {
		return nil, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	now := m.now()
	if now.Sub(s.LastSeen) > m.ttl {
		delete(m.sessions, id)
		return nil, false
	}
	s.LastSeen = now
	return s.clone(), true
}

// Login binds a user to the session. The session id and CSRF token are
// rotated; the locale is kept. The new session is returned.
func (m *Manager) Login(id, user, role string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	delete(m.sessions, id)
	now := m.now()
	s := &Session{
		ID:        uuid.NewString(),
		User:      user,
		Role:      role,
		Locale:    old.Locale,
		CSRFToken: newToken(),
		CreatedAt: now,
		LastSeen:  now,
	}
	m.sessions[s.ID] = s
	return s.clone(), true
}

// SetLocale changes the locale of a session.
func (m *Manager) SetLocale(id, locale string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if ok {
		s.Locale = locale
	}
	return ok
}

// Destroy removes a session.
func (m *Manager) Destroy(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep drops every session idle for longer than the TTL and returns how
// many were removed.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	n := 0
	for id, s := range m.sessions {
		if now.Sub(s.LastSeen) > m.ttl {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}

// Run sweeps expired sessions periodically until ctx is done.
func (m *Manager) Run(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := m.Sweep(); n > 0 {
				slog.Debug("expired sessions removed", "count", n)
			}
		}
	}
}

// VerifyCSRF checks token against the session's token in constant time.
func VerifyCSRF(s *Session, token string) bool {
	if s == nil || s.CSRFToken == "" || token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(s.CSRFToken), []byte(token)) == 1
}

// Cookie returns the cookie carrying the session id.
func (m *Manager) Cookie(s *Session) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    s.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// ExpiredCookie clears the session cookie in the browser.
func (m *Manager) ExpiredCookie() *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (s *Session) clone() *Session {
	c := *s
	return &c
}
