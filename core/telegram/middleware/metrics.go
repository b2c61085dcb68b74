package middleware

import (
	"context"
	"sync/atomic"

	tele "gopkg.in/telebot.v4"
)

const countersKey = "counters"

type countersCtxKey struct{}

// Counters tracks how many messages a handler sent and whether any carried a keyboard.
// Sends go through the outbound gateway, which only sees context.Context, so the
// counters travel in both the tele.Context store and the request context.
type Counters struct {
	messages atomic.Int64
	kb       atomic.Bool
}

// Inc records one delivered message. It is safe on a nil receiver.
func (c *Counters) Inc(hasKB bool) {
	if c == nil {
		return
	}
	c.messages.Add(1)
	if hasKB {
		c.kb.Store(true)
	}
}

// Snapshot returns the current message count and keyboard flag.
func (c *Counters) Snapshot() (int, bool) {
	if c == nil {
		return 0, false
	}
	return int(c.messages.Load()), c.kb.Load()
}

// WithCounters stores counters in ctx for the outbound gateway.
func WithCounters(ctx context.Context, c *Counters) context.Context {
	if c == nil {
		return ctx
	}
	return context.WithValue(ctx, countersCtxKey{}, c)
}

// CountersFrom returns counters stored by WithCounters or nil.
func CountersFrom(ctx context.Context) *Counters {
	if ctx == nil {
		return nil
	}
	c, _ := ctx.Value(countersCtxKey{}).(*Counters)
	return c
}

// MessageMetricsMiddleware attaches fresh counters to every update.
func MessageMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		c.Set(countersKey, &Counters{})
		return next(c)
	}
}

// CountersOf returns the counters attached to c by MessageMetricsMiddleware.
func CountersOf(c tele.Context) *Counters {
	if c == nil {
		return nil
	}
	counters, _ := c.Get(countersKey).(*Counters)
	return counters
}

// GetCounters reads message count and keyboard presence flags from context.
func GetCounters(c tele.Context) (int, bool) {
	return CountersOf(c).Snapshot()
}
