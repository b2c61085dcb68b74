package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/m3rciful/accbot/core/buildinfo"
	coreconfig "github.com/m3rciful/accbot/core/config"
)

var (
	initOnce   sync.Once
	shutdownMu sync.Mutex
	logClosers []io.Closer

	levelVar slog.LevelVar

	componentsMu sync.RWMutex
	components   = map[string]*slog.Logger{}

	// L is the base logger.
	L = slog.New(newStructuredHandler(handlerConfig{
		level:  &levelVar,
		writer: &lockedWriter{sinks: []io.Writer{os.Stderr}},
		format: formatKV,
	}))

	// DB logs database connection events.
	DB = Component("db")
	// TG logs Telegram transport events.
	TG = Component("tg")
	// MIG logs database migration events.
	MIG = Component("db.migrate")
	// TWire logs Telegram wiring steps.
	TWire = Component("tg.wire")
)

// settings is the resolved logging section of the configuration.
type settings struct {
	level    slog.Level
	format   logFormat
	keyOrder []string
	file     string
	profile  string
}

func resolve(cfg *coreconfig.Config) settings {
	s := settings{
		level:    slog.LevelInfo,
		format:   formatJSON,
		keyOrder: append([]string(nil), defaultKeyOrder...),
		profile:  "prod",
	}
	if cfg == nil {
		return s
	}
	lc := cfg.Logging
	if p := strings.ToLower(strings.TrimSpace(lc.Profile)); p != "" {
		s.profile = p
	}

	switch strings.ToLower(strings.TrimSpace(lc.Level)) {
	case "debug":
		s.level = slog.LevelDebug
	case "warn", "warning":
		s.level = slog.LevelWarn
	case "error":
		s.level = slog.LevelError
	}

	switch strings.ToLower(strings.TrimSpace(lc.Format)) {
	case "kv", "text", "pretty":
		s.format = formatKV
	case "json":
	default:
		if s.profile == "debug" || s.profile == "dev" {
			s.format = formatKV
		}
	}

	if raw := strings.TrimSpace(lc.KeysOrder); raw != "" && raw != "default" {
		var order []string
		for _, p := range strings.Split(raw, ",") {
			if p = strings.TrimSpace(p); p != "" {
				order = append(order, p)
			}
		}
		if len(order) > 0 {
			s.keyOrder = order
		}
	}

	if dir, file := strings.TrimSpace(lc.Dir), strings.TrimSpace(lc.BotFile); dir != "" && file != "" {
		s.file = filepath.Join(dir, file)
	}
	return s
}

// InitLogger configures the global structured logger. Only the first call
// has an effect. A log file that cannot be opened is an error.
func InitLogger(cfg *coreconfig.Config) error {
	var initErr error
	initOnce.Do(func() {
		s := resolve(cfg)
		levelVar.Set(s.level)

		sinks := []io.Writer{os.Stdout}
		if s.file != "" {
			f, err := openLogFile(s.file)
			if err != nil {
				initErr = err
				return
			}
			sinks = append(sinks, f)
			logClosers = append(logClosers, f)
		}

		Use(slog.New(newStructuredHandler(handlerConfig{
			level:    &levelVar,
			writer:   &lockedWriter{sinks: sinks},
			format:   s.format,
			keyOrder: s.keyOrder,
		})))
		L.LogAttrs(context.Background(), slog.LevelInfo, "startup",
			slog.String("component", "app"),
			slog.String("event", "startup"),
			slog.String("build", buildinfo.String()),
			slog.String("go_version", runtime.Version()),
			slog.String("cfg_profile", s.profile),
		)
	})
	return initErr
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("logger: create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logger: open log file: %w", err)
	}
	return f, nil
}

// Use replaces the base logger. Component loggers are derived again on
// first use.
func Use(l *slog.Logger) {
	if l == nil {
		return
	}
	componentsMu.Lock()
	L = l
	components = map[string]*slog.Logger{}
	componentsMu.Unlock()
	slog.SetDefault(l)
	DB = Component("db")
	TG = Component("tg")
	MIG = Component("db.migrate")
	TWire = Component("tg.wire")
}

// Shutdown closes opened log files.
func Shutdown() error {
	shutdownMu.Lock()
	defer shutdownMu.Unlock()
	var errs []error
	for _, c := range logClosers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	logClosers = nil
	return errors.Join(errs...)
}

// LogEvent logs attrs with the event attribute placed first.
func LogEvent(ctx context.Context, logg *slog.Logger, level slog.Level, event string, attrs ...slog.Attr) {
	if logg == nil {
		logg = FromContext(ctx)
	}
	if event != "" {
		attrs = append([]slog.Attr{slog.String("event", event)}, attrs...)
	}
	logg.LogAttrs(ctx, level, "", attrs...)
}

// Component returns the logger scoped to name, built once per base logger.
func Component(name string) *slog.Logger {
	name = strings.TrimSpace(name)
	if name == "" {
		return L
	}
	componentsMu.RLock()
	l, ok := components[name]
	componentsMu.RUnlock()
	if ok {
		return l
	}
	componentsMu.Lock()
	defer componentsMu.Unlock()
	if l, ok := components[name]; ok {
		return l
	}
	l = L.With("component", name)
	components[name] = l
	return l
}

// Debug logs a debug-level event for the given component.
func Debug(ctx context.Context, component, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), slog.LevelDebug, event, attrs...)
}

// Info logs an info-level event for the given component.
func Info(ctx context.Context, component, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), slog.LevelInfo, event, attrs...)
}

// Warn logs a warn-level event for the given component.
func Warn(ctx context.Context, component, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), slog.LevelWarn, event, attrs...)
}

// Error logs an error-level event for the given component.
func Error(ctx context.Context, component, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), slog.LevelError, event, attrs...)
}
