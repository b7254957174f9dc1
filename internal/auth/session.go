package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/DjordjeVuckovic/lantern/internal/apperr"
	"github.com/DjordjeVuckovic/lantern/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	sessionIssuer     = "lantern"
	MinSecretLength   = 32
	DefaultSessionTTL = 8 * time.Hour
)

type sessionClaims struct {
	Author string `json:"author"`
	jwt.RegisteredClaims
}

// SessionIssuer signs and verifies time-bounded HS256 session tokens.
type SessionIssuer struct {
	secret []byte
	ttl    time.Duration
}

func NewSessionIssuer(secret []byte, ttl time.Duration) (*SessionIssuer, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("session secret must be at least %d bytes", MinSecretLength)
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionIssuer{secret: secret, ttl: ttl}, nil
}

func (s *SessionIssuer) Issue(actor domain.Actor, now time.Time) (domain.Session, error) {
	expiresAt := now.Add(s.ttl)
	claims := sessionClaims{
		Author: actor.Author(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    sessionIssuer,
			Subject:   actor.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return domain.Session{}, fmt.Errorf("failed to sign session: %w", err)
	}

	return domain.Session{
		Token:     token,
		ActorID:   actor.ID,
		Author:    claims.Author,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Parse verifies token at now. Expired, malformed and forged tokens all
// yield apperr.ErrSessionExpired.
func (s *SessionIssuer) Parse(token string, now time.Time) (domain.Session, error) {
	if token == "" {
		return domain.Session{}, apperr.ErrSessionExpired
	}

	var claims sessionClaims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.Session{}, fmt.Errorf("%w: token expired", apperr.ErrSessionExpired)
		}
		return domain.Session{}, fmt.Errorf("%w: %v", apperr.ErrSessionExpired, err)
	}
	if claims.Subject == "" {
		return domain.Session{}, fmt.Errorf("%w: token has no subject", apperr.ErrSessionExpired)
	}

	session := domain.Session{
		Token:     token,
		ActorID:   claims.Subject,
		Author:    claims.Author,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		session.IssuedAt = claims.IssuedAt.Time
	}
	return session, nil
}
