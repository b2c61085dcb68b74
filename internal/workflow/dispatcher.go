package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/accbot/core/logger"
	"github.com/m3rciful/accbot/core/telegram/sender"
	"github.com/m3rciful/accbot/core/telegram/state"
)

// DispatcherOptions configures a Dispatcher.
type DispatcherOptions struct {
	AllowedUsers []string
	Factory      Factory
	// Cooldown delays the next turn of a user after a transient gateway failure.
	Cooldown time.Duration
	// IsTransient classifies turn errors; sender.IsTransient when nil.
	IsTransient func(error) bool
	// Now and Sleep are replaced in tests.
	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

// Dispatcher authorizes inputs and forwards them to the user's Manager.
type Dispatcher struct {
	allowed     map[string]struct{}
	sessions    *state.Sessions[string, *Manager]
	cooldown    time.Duration
	isTransient func(error) bool
	now         func() time.Time
	sleep       func(ctx context.Context, d time.Duration) error

	mu        sync.Mutex
	coolUntil map[string]time.Time
}

// NewDispatcher builds a dispatcher with one lazily created Manager per allowed user.
func NewDispatcher(opts DispatcherOptions) *Dispatcher {
	allowed := make(map[string]struct{}, len(opts.AllowedUsers))
	for _, u := range opts.AllowedUsers {
		allowed[u] = struct{}{}
	}
	factory := opts.Factory
	d := &Dispatcher{
		allowed: allowed,
		sessions: state.NewSessions(func(user string) *Manager {
			return NewManager(user, factory)
		}),
		cooldown:    opts.Cooldown,
		isTransient: opts.IsTransient,
		now:         opts.Now,
		sleep:       opts.Sleep,
		coolUntil:   make(map[string]time.Time),
	}
	if d.isTransient == nil {
		d.isTransient = sender.IsTransient
	}
	if d.now == nil {
		d.now = time.Now
	}
	if d.sleep == nil {
		d.sleep = sleepContext
	}
	return d
}

// Dispatch runs one turn for in.UserName. Unauthorized inputs are dropped
// without a reply. Turn errors are logged and never returned, so one user's
// failure cannot leak into another session.
func (d *Dispatcher) Dispatch(ctx context.Context, in Input) error {
	if _, ok := d.allowed[in.UserName]; !ok || in.UserName == "" {
		logger.Debug(ctx, "workflow", "update.unauthorized",
			slog.String("status", "dropped"),
		)
		return nil
	}

	if wait := d.pending(in.UserName); wait > 0 {
		if err := d.sleep(ctx, wait); err != nil {
			return err
		}
	}

	mgr := d.sessions.Get(in.UserName)
	err := mgr.HandleInput(ctx, in)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrUnreachable):
		logger.Error(ctx, "workflow", "turn.unreachable",
			slog.String("status", "fail"),
			slog.String("command", string(mgr.Current())),
			slog.String("err", err.Error()),
		)
	case d.isTransient(err):
		d.startCooldown(in.UserName)
		logger.Warn(ctx, "workflow", "turn.transient",
			slog.String("status", "retry"),
			slog.String("command", string(mgr.Current())),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.Duration("backoff", d.cooldown),
		)
	default:
		logger.Error(ctx, "workflow", "turn.fail",
			slog.String("status", "fail"),
			slog.String("command", string(mgr.Current())),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
	}
	return nil
}

// Sessions reports how many users have an active session.
func (d *Dispatcher) Sessions() int { return d.sessions.Len() }

// Session returns the manager of user, if one exists.
func (d *Dispatcher) Session(user string) (*Manager, bool) {
	return d.sessions.Lookup(user)
}

func (d *Dispatcher) pending(user string) time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	until, ok := d.coolUntil[user]
	if !ok {
		return 0
	}
	delete(d.coolUntil, user)
	if wait := until.Sub(d.now()); wait > 0 {
		return wait
	}
	return 0
}

func (d *Dispatcher) startCooldown(user string) {
	if d.cooldown <= 0 {
		return
	}
	d.mu.Lock()
	d.coolUntil[user] = d.now().Add(d.cooldown)
	d.mu.Unlock()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
