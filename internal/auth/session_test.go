package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/DjordjeVuckovic/lantern/internal/apperr"
	"github.com/DjordjeVuckovic/lantern/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func TestNewSessionIssuer_RejectsShortSecret(t *testing.T) {
	_, err := NewSessionIssuer([]byte("short"), time.Hour)
	assert.Error(t, err)
}

func TestSessionIssuer_IssueAndParse(t *testing.T) {
	issuer, err := NewSessionIssuer(testSecret, time.Hour)
	require.NoError(t, err)

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	actor := domain.Actor{ID: "reporter-1", Email: "reporter@lantern.news", DisplayName: "Reporter One"}

	session, err := issuer.Issue(actor, now)
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, now.Add(time.Hour), session.ExpiresAt.UTC())

	parsed, err := issuer.Parse(session.Token, now.Add(30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "reporter-1", parsed.ActorID)
	assert.Equal(t, "Reporter One", parsed.Author)
}

func TestSessionIssuer_Expiry(t *testing.T) {
	issuer, err := NewSessionIssuer(testSecret, time.Hour)
	require.NoError(t, err)

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	session, err := issuer.Issue(domain.Actor{ID: "a", Email: "a@lantern.news"}, now)
	require.NoError(t, err)

	_, err = issuer.Parse(session.Token, now.Add(time.Hour-time.Second))
	assert.NoError(t, err)

	_, err = issuer.Parse(session.Token, now.Add(time.Hour))
	assert.ErrorIs(t, err, apperr.ErrSessionExpired)

	_, err = issuer.Parse(session.Token, now.Add(time.Hour+time.Second))
	assert.ErrorIs(t, err, apperr.ErrSessionExpired)
}

func TestSessionIssuer_RejectsForgedAndMalformed(t *testing.T) {
	issuer, err := NewSessionIssuer(testSecret, time.Hour)
	require.NoError(t, err)
	other, err := NewSessionIssuer([]byte(strings.Repeat("x", MinSecretLength)), time.Hour)
	require.NoError(t, err)

	now := time.Now()
	forged, err := other.Issue(domain.Actor{ID: "a", Email: "a@lantern.news"}, now)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not-a-token"},
		{"other secret", forged.Token},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := issuer.Parse(tt.token, now)
			assert.ErrorIs(t, err, apperr.ErrSessionExpired)
		})
	}
}
