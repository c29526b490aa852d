// Package ratelimit counts requests per key in fixed windows.
package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Store increments the counter for key, starting a new window of the given
// length when none is active, and reports when the current window ends.
type Store interface {
	Hit(ctx context.Context, key string, window time.Duration) (count int64, resetAt time.Time, err error)
}

// Rule overrides the default limit for one method and path.
type Rule struct {
	Method string
	Path   string
	Max    int
}

type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

type Limiter struct {
	Store  Store
	Window time.Duration
	Max    int
	Rules  []Rule
}

func NewLimiter(store Store, window time.Duration, max int, rules ...Rule) *Limiter {
	if window <= 0 {
		window = time.Minute
	}
	if max <= 0 {
		max = 60
	}
	return &Limiter{Store: store, Window: window, Max: max, Rules: rules}
}

func Key(subject, method, path string) string {
	return fmt.Sprintf("%s:%s:%s", subject, strings.ToUpper(method), path)
}

func (l *Limiter) limitFor(method, path string) int {
	path = trimSlash(path)
	for _, rule := range l.Rules {
		if strings.EqualFold(rule.Method, method) && trimSlash(rule.Path) == path && rule.Max > 0 {
			return rule.Max
		}
	}
	return l.Max
}

// Allow records one request by subject against method and path.
func (l *Limiter) Allow(ctx context.Context, subject, method, path string) (Decision, error) {
	path = trimSlash(path)
	limit := l.limitFor(method, path)
	count, resetAt, err := l.Store.Hit(ctx, Key(subject, method, path), l.Window)
	if err != nil {
		return Decision{Allowed: true, Limit: limit, Remaining: limit}, err
	}

	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   count <= int64(limit),
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}, nil
}

// trimSlash lets "/api/files" and "/api/files/" share a rule.
func trimSlash(path string) string {
	if len(path) > 1 {
		return strings.TrimSuffix(path, "/")
	}
	return path
}
