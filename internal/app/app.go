// Package app wires storage, event publishing and the conversation engine
// into the Telegram runtime.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/accbot/core/bootstrap"
	corecmd "github.com/m3rciful/accbot/core/cmd"
	"github.com/m3rciful/accbot/core/logger"
	tg "github.com/m3rciful/accbot/core/telegram"
	tgcommands "github.com/m3rciful/accbot/core/telegram/commands"
	"github.com/m3rciful/accbot/core/telegram/router"
	"github.com/m3rciful/accbot/internal/commands"
	"github.com/m3rciful/accbot/internal/config"
	"github.com/m3rciful/accbot/internal/events"
	"github.com/m3rciful/accbot/internal/storage"
	"github.com/m3rciful/accbot/internal/workflow"
)

// App is the accountant bot.
type App struct {
	cfg       *config.Config
	db        *sqlx.DB
	store     *storage.Store
	publisher events.Publisher
}

// Bootstrap prepares logger, database and migrations, then builds the App.
func Bootstrap(carrier corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
	cfg, ok := carrier.(*config.Config)
	if !ok {
		return nil, fmt.Errorf("app: unexpected config type %T", carrier)
	}
	res, err := bootstrap.Run(bootstrap.Options{
		Config:     &cfg.Config,
		Database:   cfg.Database,
		Migrations: storage.Migrations(),
	})
	if err != nil {
		return nil, err
	}
	return New(cfg, res.DB), nil
}

// New builds the App on an open database. Event publishing falls back to a
// no-op when the broker is not configured or cannot be reached.
func New(cfg *config.Config, db *sqlx.DB) *App {
	return &App{
		cfg:       cfg,
		db:        db,
		store:     storage.New(db),
		publisher: newPublisher(cfg.Events),
	}
}

func newPublisher(cfg config.EventsConfig) events.Publisher {
	if cfg.URL == "" {
		logger.Info(context.Background(), "events", "amqp.disabled", slog.String("status", "skip"))
		return events.Nop{}
	}
	p, err := events.Dial(cfg.URL, cfg.Exchange, cfg.RoutingKey)
	if err != nil {
		logger.Warn(context.Background(), "events", "amqp.unavailable",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return events.Nop{}
	}
	return p
}

// TelegramRunOptions implements cmd.TelegramApp.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	return tg.RunOptions{
		Config:      &a.cfg.Config,
		Registry:    tg.NewRegistry(),
		Middlewares: tg.DefaultMiddlewares(&a.cfg.Config),
		BuildRoutes: a.routes,
	}, nil
}

func (a *App) routes(rt tg.Runtime) ([]tg.Route, error) {
	dispatcher := workflow.NewDispatcher(workflow.DispatcherOptions{
		AllowedUsers: a.cfg.Bot.AllowedUsers,
		Cooldown:     time.Duration(a.cfg.Bot.ErrorCooldownMS) * time.Millisecond,
		Factory: commands.NewFactory(commands.Deps{
			Messenger: rt.Gateway,
			Store:     a.store,
			Events:    a.publisher,
			Currency:  a.cfg.Bot.Currency,
		}),
	})
	sink := Sink(dispatcher)

	for i, kind := range workflow.MenuKinds {
		rt.Registry.RegisterCommand(string(kind), tgcommands.Command{
			Handler:     router.Forward(sink, string(kind)),
			Description: commands.Descriptions[kind],
			Position:    i,
		})
	}

	routes := router.CommandRoutes(rt.Registry)
	routes = append(routes, router.TextRoutes(sink, router.TextOptions{})...)
	routes = append(routes, router.CallbackRoute(sink))
	return routes, nil
}

// Sink turns routed updates into workflow inputs.
func Sink(d *workflow.Dispatcher) router.Sink {
	return router.SinkFunc(func(ctx context.Context, u router.Update) error {
		return d.Dispatch(ctx, workflow.Input{
			UserName:  u.UserName,
			ChatID:    u.ChatID,
			Text:      u.Text,
			MessageID: u.MessageID,
		})
	})
}

// Close releases the broker connection and the database.
func (a *App) Close() error {
	return errors.Join(a.publisher.Close(), a.db.Close())
}
