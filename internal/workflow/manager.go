package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/m3rciful/accbot/core/logger"
)

// Factory builds a fresh command of the given kind for user.
type Factory func(user string, kind Kind) (Command, error)

// Manager owns the active command of one user. Turns are serialised.
type Manager struct {
	mu      sync.Mutex
	user    string
	factory Factory
	current Command
}

// NewManager creates a session for user. The root command is built lazily on
// the first input.
func NewManager(user string, factory Factory) *Manager {
	return &Manager{user: user, factory: factory}
}

// HandleInput runs one turn.
func (m *Manager) HandleInput(ctx context.Context, in Input) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		root, err := m.build(KindRoot)
		if err != nil {
			return err
		}
		m.current = root
	}
	return m.current.Handle(ctx, turn{m}, in)
}

// Current returns the kind of the active command, or "" before the first turn.
func (m *Manager) Current() Kind {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return ""
	}
	return m.current.Name()
}

func (m *Manager) build(kind Kind) (Command, error) {
	cmd, err := m.factory(m.user, kind)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", kind, err)
	}
	return cmd, nil
}

// turn is the Switcher handed to commands; it runs under the manager lock.
type turn struct{ m *Manager }

func (t turn) SwitchTo(ctx context.Context, kind Kind, in Input) error {
	cmd, err := t.m.build(kind)
	if err != nil {
		return err
	}
	from := Kind("")
	if t.m.current != nil {
		from = t.m.current.Name()
	}
	t.m.current = cmd
	logger.Debug(ctx, "workflow", "command.switch",
		slog.String("command", string(kind)),
		slog.String("from", string(from)),
	)
	return cmd.OnEntered(ctx, t, in)
}
