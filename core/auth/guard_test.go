package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"musicbox/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// requestWith replays the cookies a response set, as a browser would.
func requestWith(rec *httptest.ResponseRecorder) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/upload", nil)
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 || c.Value == "" {
			continue
		}
		req.AddCookie(c)
	}
	return req
}

func TestVerifier(t *testing.T) {
	v := NewVerifier("s3cret", "")
	assert.NoError(t, v.Verify("s3cret"))
	assert.ErrorIs(t, v.Verify(""), ErrMissingCredential)
	assert.ErrorIs(t, v.Verify("wrong"), ErrInvalidCredential)
	assert.ErrorIs(t, v.Verify("s3cret "), ErrInvalidCredential)
}

func TestVerifierBcrypt(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)

	v := NewVerifier("ignored", hash)
	assert.NoError(t, v.Verify("hunter2"))
	assert.ErrorIs(t, v.Verify("ignored"), ErrInvalidCredential)
}

func TestVerifierWithoutSecret(t *testing.T) {
	assert.ErrorIs(t, NewVerifier("", "").Verify("anything"), ErrInvalidCredential)
}

type MarkerGuardTestSuite struct {
	suite.Suite
	guard *Guard
}

func (s *MarkerGuardTestSuite) SetupTest() {
	var err error
	s.guard, err = NewGuard(&config.Config{AdminPassword: "s3cret", SessionMode: config.SessionModeMarker}, nil)
	s.Require().NoError(err)
}

func (s *MarkerGuardTestSuite) TestLoginAuthorizeRevoke() {
	rec := httptest.NewRecorder()
	_, err := s.guard.Login(rec, "s3cret")
	s.Require().NoError(err)

	cookies := rec.Result().Cookies()
	s.Require().Len(cookies, 1)
	s.Equal(CookieName, cookies[0].Name)
	s.Equal("true", cookies[0].Value)
	s.True(cookies[0].HttpOnly)
	s.Equal(http.SameSiteLaxMode, cookies[0].SameSite)
	s.True(cookies[0].Expires.IsZero())

	req := requestWith(rec)
	s.True(s.guard.Authorize(req))

	out := httptest.NewRecorder()
	s.Require().NoError(s.guard.Revoke(out, req))
	cleared := out.Result().Cookies()
	s.Require().Len(cleared, 1)
	s.Equal(-1, cleared[0].MaxAge)

	s.False(s.guard.Authorize(requestWith(out)))
}

func (s *MarkerGuardTestSuite) TestAuthorizeRejectsOtherValues() {
	for _, v := range []string{"false", "TRUE", "1", "true "} {
		req := httptest.NewRequest(http.MethodPost, "/upload", nil)
		req.AddCookie(&http.Cookie{Name: CookieName, Value: v})
		s.False(s.guard.Authorize(req), v)
	}
	s.False(s.guard.Authorize(httptest.NewRequest(http.MethodPost, "/upload", nil)))
}

func (s *MarkerGuardTestSuite) TestWrongPasswordSetsNoCookie() {
	rec := httptest.NewRecorder()
	_, err := s.guard.Login(rec, "wrong")
	s.ErrorIs(err, ErrInvalidCredential)
	s.Empty(rec.Result().Cookies())
	s.False(s.guard.Authorize(requestWith(rec)))
}

func TestMarkerGuardTestSuite(t *testing.T) {
	suite.Run(t, new(MarkerGuardTestSuite))
}

type TokenGuardTestSuite struct {
	suite.Suite
	guard   *Guard
	revoker *MemoryRevoker
	now     time.Time
}

func (s *TokenGuardTestSuite) SetupTest() {
	s.now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.revoker = NewMemoryRevoker()
	s.revoker.now = func() time.Time { return s.now }

	var err error
	s.guard, err = NewGuard(&config.Config{
		AdminPassword: "s3cret",
		SessionMode:   config.SessionModeToken,
		SessionSecret: "signing-key",
		SessionTTL:    time.Hour,
	}, s.revoker)
	s.Require().NoError(err)
	s.guard.now = func() time.Time { return s.now }
}

func (s *TokenGuardTestSuite) TestTokenExpires() {
	rec := httptest.NewRecorder()
	sess, err := s.guard.Login(rec, "s3cret")
	s.Require().NoError(err)
	s.NotEmpty(sess.ID)
	s.Equal(s.now.Add(time.Hour), sess.ExpiresAt)

	req := requestWith(rec)
	s.True(s.guard.Authorize(req))

	s.now = s.now.Add(59 * time.Minute)
	s.True(s.guard.Authorize(req))

	s.now = s.now.Add(2 * time.Minute)
	s.False(s.guard.Authorize(req))
}

func (s *TokenGuardTestSuite) TestRevokedTokenIsRejected() {
	rec := httptest.NewRecorder()
	_, err := s.guard.Login(rec, "s3cret")
	s.Require().NoError(err)
	req := requestWith(rec)

	s.Require().NoError(s.guard.Revoke(httptest.NewRecorder(), req))
	// the stolen cookie no longer works even though it has not expired
	s.False(s.guard.Authorize(req))
}

func (s *TokenGuardTestSuite) TestForgedTokens() {
	other, err := NewGuard(&config.Config{
		AdminPassword: "s3cret",
		SessionMode:   config.SessionModeToken,
		SessionSecret: "another-key",
		SessionTTL:    time.Hour,
	}, nil)
	s.Require().NoError(err)

	rec := httptest.NewRecorder()
	_, err = other.Login(rec, "s3cret")
	s.Require().NoError(err)
	s.False(s.guard.Authorize(requestWith(rec)))

	req := httptest.NewRequest(http.MethodPost, "/upload", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "true"})
	s.False(s.guard.Authorize(req))
}

func (s *TokenGuardTestSuite) TestRevokerFailureFailsClosed() {
	g, err := NewGuard(&config.Config{
		AdminPassword: "s3cret",
		SessionMode:   config.SessionModeToken,
		SessionSecret: "signing-key",
		SessionTTL:    time.Hour,
	}, failingRevoker{})
	s.Require().NoError(err)

	rec := httptest.NewRecorder()
	_, err = g.Login(rec, "s3cret")
	s.Require().NoError(err)
	s.False(g.Authorize(requestWith(rec)))
}

func TestTokenGuardTestSuite(t *testing.T) {
	suite.Run(t, new(TokenGuardTestSuite))
}

type failingRevoker struct{}

func (failingRevoker) Revoke(context.Context, string, time.Time) error { return errors.New("down") }
func (failingRevoker) IsRevoked(context.Context, string) (bool, error) {
	return false, errors.New("down")
}

func TestNewGuardValidatesTokenMode(t *testing.T) {
	_, err := NewGuard(&config.Config{SessionMode: config.SessionModeToken, SessionTTL: time.Hour}, nil)
	assert.Error(t, err)

	_, err = NewGuard(&config.Config{SessionMode: "cookie"}, nil)
	assert.Error(t, err)
}
