// Package auth gates the staff panel: it checks credentials against salted
// hashes, enforces per-identity rate ceilings, issues sessions and writes
// an audit entry for every gated attempt.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/DjordjeVuckovic/lantern/internal/apperr"
	"github.com/DjordjeVuckovic/lantern/internal/domain"
	"github.com/DjordjeVuckovic/lantern/internal/metrics"
	"golang.org/x/crypto/bcrypt"
)

type Action string

const (
	ActionPublish Action = "publish"
	ActionEdit    Action = "edit"
)

var ErrUnknownAction = errors.New("unknown gated action")

// AuditAction maps a gated action to the audit trail's action name.
func (a Action) AuditAction() (domain.AuditAction, bool) {
	switch a {
	case ActionPublish:
		return domain.AuditPublish, true
	case ActionEdit:
		return domain.AuditEdit, true
	default:
		return "", false
	}
}

// AuditSink appends audit entries. An error means the entry was not stored.
type AuditSink interface {
	AppendAudit(ctx context.Context, entry domain.AuditLogEntry) error
}

type Config struct {
	SessionSecret []byte
	SessionTTL    time.Duration
	LoginLimit    Limit
	ActionLimit   Limit
	BcryptCost    int
}

func DefaultConfig() Config {
	return Config{
		SessionTTL:  DefaultSessionTTL,
		LoginLimit:  Limit{Max: 5, Window: time.Minute},
		ActionLimit: Limit{Max: 30, Window: time.Minute},
		BcryptCost:  bcrypt.DefaultCost,
	}
}

type Gateway struct {
	directory Directory
	audit     AuditSink
	sessions  *SessionIssuer
	login     Limiter
	actions   Limiter
	dummyHash []byte
	now       func() time.Time
	metrics   *metrics.Collector
}

type Option func(*Gateway)

func WithClock(now func() time.Time) Option {
	return func(g *Gateway) { g.now = now }
}

func WithMetrics(m *metrics.Collector) Option {
	return func(g *Gateway) { g.metrics = m }
}

// WithLimiters replaces the in-process login and action limiters, e.g.
// with Redis-backed ones shared by every replica.
func WithLimiters(login, actions Limiter) Option {
	return func(g *Gateway) {
		g.login = login
		g.actions = actions
	}
}

func NewGateway(cfg Config, directory Directory, audit AuditSink, opts ...Option) (*Gateway, error) {
	if directory == nil || audit == nil {
		return nil, errors.New("auth gateway needs a directory and an audit sink")
	}
	sessions, err := NewSessionIssuer(cfg.SessionSecret, cfg.SessionTTL)
	if err != nil {
		return nil, err
	}

	// Unknown accounts are compared against this hash so both paths cost
	// one bcrypt comparison.
	dummy, err := HashPassword("lantern-unknown-account", cfg.BcryptCost)
	if err != nil {
		return nil, err
	}

	g := &Gateway{
		directory: directory,
		audit:     audit,
		sessions:  sessions,
		login:     NewFixedWindowLimiter(cfg.LoginLimit),
		actions:   NewFixedWindowLimiter(cfg.ActionLimit),
		dummyHash: []byte(dummy),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Authenticate checks credentials and issues a session. Every call appends
// exactly one audit entry; when that append fails the attempt is denied.
func (g *Gateway) Authenticate(ctx context.Context, creds domain.Credentials) (domain.Session, error) {
	now := g.now()

	if !g.login.Allow("login:"+creds.RemoteAddr, now) {
		g.metrics.AuthAttempt("rate_limited")
		g.metrics.GateRejected("login", "rate_limited")
		return domain.Session{}, g.deny(ctx, domain.NewAuditEntry("", domain.AuditLoginFailure, domain.OutcomeFailure,
			"rate limited", now), creds.RemoteAddr, apperr.ErrRateLimited)
	}

	actor, found, err := g.directory.Lookup(ctx, creds.Email)
	if err != nil {
		g.metrics.AuthAttempt("error")
		return domain.Session{}, g.deny(ctx, domain.NewAuditEntry("", domain.AuditLoginFailure, domain.OutcomeFailure,
			"staff directory unavailable", now), creds.RemoteAddr, fmt.Errorf("failed to look up actor: %w", err))
	}

	hash := g.dummyHash
	if found {
		hash = []byte(actor.PasswordHash)
	}
	if cmpErr := bcrypt.CompareHashAndPassword(hash, []byte(creds.Password)); cmpErr != nil || !found {
		g.metrics.AuthAttempt("invalid")
		return domain.Session{}, g.deny(ctx, domain.NewAuditEntry("", domain.AuditLoginFailure, domain.OutcomeFailure,
			"invalid credentials for "+normalizeEmail(creds.Email), now), creds.RemoteAddr, apperr.ErrInvalidCredentials)
	}

	session, err := g.sessions.Issue(actor, now)
	if err != nil {
		g.metrics.AuthAttempt("error")
		return domain.Session{}, g.deny(ctx, domain.NewAuditEntry(actor.ID, domain.AuditLoginFailure, domain.OutcomeFailure,
			"session could not be issued", now), creds.RemoteAddr, err)
	}

	entry := domain.NewAuditEntry(actor.ID, domain.AuditLoginSuccess, domain.OutcomeSuccess, "login", now)
	entry.RemoteAddr = creds.RemoteAddr
	if err := g.audit.AppendAudit(ctx, entry); err != nil {
		g.metrics.AuthAttempt("error")
		slog.Error("audit write failed, denying login", "actor", actor.ID, "error", err)
		return domain.Session{}, fmt.Errorf("%w: %w", apperr.ErrAuditUnavailable, err)
	}

	g.metrics.AuthAttempt("success")
	slog.Info("staff login", "actor", actor.ID, "remote_addr", creds.RemoteAddr)
	return session, nil
}

// RejectLogin records a login call whose credentials could not be read or
// failed validation. It counts against the caller's login ceiling like any
// other attempt and appends exactly one audit entry. It returns cause, or
// ErrRateLimited when the ceiling is already spent.
func (g *Gateway) RejectLogin(ctx context.Context, remoteAddr string, cause error) error {
	now := g.now()

	if !g.login.Allow("login:"+remoteAddr, now) {
		g.metrics.AuthAttempt("rate_limited")
		g.metrics.GateRejected("login", "rate_limited")
		return g.deny(ctx, domain.NewAuditEntry("", domain.AuditLoginFailure, domain.OutcomeFailure,
			"rate limited", now), remoteAddr, apperr.ErrRateLimited)
	}

	g.metrics.AuthAttempt("malformed")
	return g.deny(ctx, domain.NewAuditEntry("", domain.AuditLoginFailure, domain.OutcomeFailure,
		"malformed credentials", now), remoteAddr, cause)
}

// Authorize validates a session token for a gated action and applies the
// per-actor ceiling. Rejections are audited.
func (g *Gateway) Authorize(ctx context.Context, token string, action Action, remoteAddr string) (domain.Session, error) {
	now := g.now()

	audited, ok := action.AuditAction()
	if !ok {
		return domain.Session{}, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}

	session, err := g.sessions.Parse(token, now)
	if err != nil {
		g.metrics.GateRejected(string(action), "session")
		return domain.Session{}, g.deny(ctx, domain.NewAuditEntry("", audited, domain.OutcomeFailure,
			"session expired or missing", now), remoteAddr, err)
	}

	if !g.actions.Allow("actor:"+session.ActorID, now) {
		g.metrics.GateRejected(string(action), "rate_limited")
		return domain.Session{}, g.deny(ctx, domain.NewAuditEntry(session.ActorID, audited, domain.OutcomeFailure,
			"rate limited", now), remoteAddr, apperr.ErrRateLimited)
	}

	return session, nil
}

// Session verifies a token without consuming rate budget or auditing,
// for read-only dashboard views.
func (g *Gateway) Session(token string) (domain.Session, error) {
	return g.sessions.Parse(token, g.now())
}

func (g *Gateway) deny(ctx context.Context, entry domain.AuditLogEntry, remoteAddr string, cause error) error {
	entry.RemoteAddr = remoteAddr
	if err := g.audit.AppendAudit(ctx, entry); err != nil {
		slog.Error("audit write failed", "action", entry.Action, "error", err)
		return fmt.Errorf("%w: %w", apperr.ErrAuditUnavailable, errors.Join(cause, err))
	}
	return cause
}
