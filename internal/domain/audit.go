package domain

import (
	"time"

	"github.com/google/uuid"
)

type AuditAction string

const (
	AuditLoginSuccess AuditAction = "login-success"
	AuditLoginFailure AuditAction = "login-failure"
	AuditPublish      AuditAction = "publish"
	AuditEdit         AuditAction = "edit"
	AuditDelete       AuditAction = "delete"
)

type AuditOutcome string

const (
	OutcomeSuccess AuditOutcome = "success"
	OutcomeFailure AuditOutcome = "failure"
)

// AuditLogEntry is append-only. ActorID is nil when the action failed
// before an actor could be identified.
type AuditLogEntry struct {
	ID         uuid.UUID    `json:"id"`
	ActorID    *string      `json:"actorId,omitempty"`
	Action     AuditAction  `json:"action"`
	Outcome    AuditOutcome `json:"outcome"`
	Detail     string       `json:"detail,omitempty"`
	RemoteAddr string       `json:"remoteAddr,omitempty"`
	Timestamp  time.Time    `json:"timestamp"`
}

func NewAuditEntry(actorID string, action AuditAction, outcome AuditOutcome, detail string, at time.Time) AuditLogEntry {
	var actor *string
	if actorID != "" {
		actor = &actorID
	}
	return AuditLogEntry{
		ID:        uuid.New(),
		ActorID:   actor,
		Action:    action,
		Outcome:   outcome,
		Detail:    detail,
		Timestamp: at,
	}
}
