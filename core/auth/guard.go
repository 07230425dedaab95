package auth

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"musicbox/config"
	"musicbox/logger"
)

const (
	// CookieName carries the admin marker or token.
	CookieName = "is_admin"
	// markerValue is the legacy authorized marker.
	markerValue = "true"
)

// Session is the result of a successful Authenticate. Value is what the
// cookie carries: the legacy marker, or a signed token in token mode.
type Session struct {
	ID        string
	Value     string
	IssuedAt  time.Time
	ExpiresAt time.Time // zero in marker mode: the cookie never expires
}

// Revoker stores revoked token IDs until their natural expiry.
type Revoker interface {
	Revoke(ctx context.Context, id string, until time.Time) error
	IsRevoked(ctx context.Context, id string) (bool, error)
}

// Guard validates the admin secret and gates privileged requests on the
// session cookie. Anonymous -> Authenticated on Authenticate + Issue,
// back to Anonymous on Revoke.
type Guard struct {
	verifier *Verifier
	mode     string
	tokens   *tokenCodec
	revoker  Revoker
	secure   bool
	now      func() time.Time
}

// NewGuard builds a guard for the configured session mode. revoker may be
// nil, in which case token mode keeps revocations in process memory.
func NewGuard(cfg *config.Config, revoker Revoker) (*Guard, error) {
	g := &Guard{
		verifier: NewVerifier(cfg.AdminPassword, cfg.AdminPasswordHash),
		mode:     cfg.SessionMode,
		secure:   cfg.CookieSecure,
		now:      time.Now,
	}

	switch cfg.SessionMode {
	case config.SessionModeMarker, "":
		g.mode = config.SessionModeMarker
	case config.SessionModeToken:
		if cfg.SessionSecret == "" {
			return nil, errors.New("session secret is required in token mode")
		}
		if cfg.SessionTTL <= 0 {
			return nil, errors.New("session ttl must be positive in token mode")
		}
		g.tokens = &tokenCodec{
			secret: []byte(cfg.SessionSecret),
			ttl:    cfg.SessionTTL,
			now:    func() time.Time { return g.now() },
		}
		if revoker == nil {
			revoker = NewMemoryRevoker()
		}
		g.revoker = revoker
	default:
		return nil, errors.New("unknown session mode " + cfg.SessionMode)
	}
	return g, nil
}

// Mode returns marker or token.
func (g *Guard) Mode() string {
	return g.mode
}

// Authenticate checks candidate against the admin secret.
func (g *Guard) Authenticate(candidate string) (Session, error) {
	if err := g.verifier.Verify(candidate); err != nil {
		return Session{}, err
	}
	if g.tokens == nil {
		return Session{Value: markerValue}, nil
	}
	return g.tokens.issue()
}

// Issue writes the session cookie.
func (g *Guard) Issue(w http.ResponseWriter, s Session) {
	g.setCookie(w, s.Value, s.ExpiresAt)
}

// Login authenticates and writes the session cookie in one step.
func (g *Guard) Login(w http.ResponseWriter, candidate string) (Session, error) {
	s, err := g.Authenticate(candidate)
	if err != nil {
		return Session{}, err
	}
	g.Issue(w, s)
	return s, nil
}

// Authorize reports whether the request carries a valid admin session.
func (g *Guard) Authorize(r *http.Request) bool {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return false
	}

	if g.tokens == nil {
		return cookie.Value == markerValue
	}

	s, err := g.tokens.parse(cookie.Value, false)
	if err != nil {
		logger.Debug("[Auth] admin token rejected", logger.ErrorField(err))
		return false
	}
	revoked, err := g.revoker.IsRevoked(r.Context(), s.ID)
	if err != nil {
		// fail closed when the revocation list is unreachable
		logger.Error("[Auth] revocation lookup failed", logger.ErrorField(err))
		return false
	}
	return !revoked
}

// Revoke clears the cookie and, for tokens, records the ID as revoked.
func (g *Guard) Revoke(w http.ResponseWriter, r *http.Request) error {
	g.clearCookie(w)

	if g.tokens == nil {
		return nil
	}
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	s, err := g.tokens.parse(cookie.Value, true)
	if err != nil {
		return nil // forged or foreign token, nothing to revoke
	}
	if !s.ExpiresAt.After(g.now()) {
		return nil
	}
	return g.revoker.Revoke(r.Context(), s.ID, s.ExpiresAt)
}

func (g *Guard) setCookie(w http.ResponseWriter, value string, expires time.Time) {
	cookie := &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   g.secure,
		SameSite: http.SameSiteLaxMode,
	}
	if !expires.IsZero() {
		cookie.Expires = expires
	}
	http.SetCookie(w, cookie)
}

func (g *Guard) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   g.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// MemoryRevoker is the in-process Revoker used when Redis is not configured.
type MemoryRevoker struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

func NewMemoryRevoker() *MemoryRevoker {
	return &MemoryRevoker{revoked: make(map[string]time.Time), now: time.Now}
}

func (m *MemoryRevoker) Revoke(_ context.Context, id string, until time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for k, exp := range m.revoked {
		if !exp.After(now) {
			delete(m.revoked, k)
		}
	}
	m.revoked[id] = until
	return nil
}

func (m *MemoryRevoker) IsRevoked(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	until, ok := m.revoked[id]
	return ok && until.After(m.now()), nil
}
