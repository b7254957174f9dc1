package pg

import (
	"context"
	"log/slog"
	"time"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker reports the database healthy when a ping succeeds within
// the timeout.
type HealthChecker struct {
	db      Pinger
	timeout time.Duration
}

func NewHealthChecker(db Pinger) *HealthChecker {
	return &HealthChecker{db: db, timeout: 2 * time.Second}
}

func (hc *HealthChecker) Healthy(ctx context.Context) bool {
	if hc.db == nil {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, hc.timeout)
	defer cancel()

	if err := hc.db.Ping(ctx); err != nil {
		slog.Warn("database health check failed", "error", err)
		return false
	}
	return true
}
