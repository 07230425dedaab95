package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenSubject = "admin"

type adminClaims struct {
	Admin bool `json:"admin"`
	jwt.RegisteredClaims
}

// tokenCodec issues and parses HS256 admin tokens.
type tokenCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func (c *tokenCodec) issue() (Session, error) {
	now := c.now()
	s := Session{
		ID:        uuid.NewString(),
		IssuedAt:  now,
		ExpiresAt: now.Add(c.ttl),
	}
	claims := adminClaims{
		Admin: true,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        s.ID,
			Subject:   tokenSubject,
			IssuedAt:  jwt.NewNumericDate(s.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return Session{}, err
	}
	s.Value = signed
	return s, nil
}

// parse validates signature and expiry. With allowExpired the expiry check
// is skipped, which Revoke needs for tokens that are already stale.
func (c *tokenCodec) parse(tokenStr string, allowExpired bool) (Session, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithSubject(tokenSubject),
	}
	if allowExpired {
		opts = append(opts, jwt.WithoutClaimsValidation())
	} else {
		opts = append(opts, jwt.WithExpirationRequired())
	}

	token, err := jwt.ParseWithClaims(tokenStr, &adminClaims{}, func(*jwt.Token) (interface{}, error) {
		return c.secret, nil
	}, opts...)
	if err != nil {
		return Session{}, err
	}
	claims, ok := token.Claims.(*adminClaims)
	if !ok || !token.Valid || !claims.Admin || claims.ID == "" {
		return Session{}, errors.New("invalid admin token")
	}

	s := Session{ID: claims.ID, Value: tokenStr}
	if claims.IssuedAt != nil {
		s.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time
	}
	return s, nil
}
