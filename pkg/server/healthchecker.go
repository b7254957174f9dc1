package server

import "context"

type HealthChecker interface {
	Healthy(ctx context.Context) bool
}

type OkHealthChecker struct {
}

func NewOkHealthChecker() *OkHealthChecker {
	return &OkHealthChecker{}
}

func (hc *OkHealthChecker) Healthy(ctx context.Context) bool {
	return true
}

// HealthCheckFunc adapts a probe function to HealthChecker.
type HealthCheckFunc func(ctx context.Context) bool

func (f HealthCheckFunc) Healthy(ctx context.Context) bool {
	return f(ctx)
}

// AllHealthy reports healthy only when every checker does. Nil checkers
// are skipped.
func AllHealthy(checkers ...HealthChecker) HealthChecker {
	return HealthCheckFunc(func(ctx context.Context) bool {
		for _, c := range checkers {
			if c != nil && !c.Healthy(ctx) {
				return false
			}
		}
		return true
	})
}
