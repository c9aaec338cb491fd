// Package app assembles the ledger bot: session backend, settings store,
// conversation flows, command surface, and the Telegram runtime options.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/ledgerbot/core/bootstrap"
	"github.com/m3rciful/ledgerbot/core/buildinfo"
	coreconfig "github.com/m3rciful/ledgerbot/core/config"
	coretelegram "github.com/m3rciful/ledgerbot/core/telegram"
	"github.com/m3rciful/ledgerbot/core/telegram/commands"
	"github.com/m3rciful/ledgerbot/core/telegram/helpers"
	"github.com/m3rciful/ledgerbot/core/telegram/keyboard"
	"github.com/m3rciful/ledgerbot/core/telegram/menu"
	"github.com/m3rciful/ledgerbot/core/telegram/router"
	"github.com/m3rciful/ledgerbot/core/telegram/state"
	"github.com/m3rciful/ledgerbot/internal/firefly"
	"github.com/m3rciful/ledgerbot/internal/flows"
	"github.com/m3rciful/ledgerbot/internal/flows/categories"
	settingsflow "github.com/m3rciful/ledgerbot/internal/flows/settings"
	"github.com/m3rciful/ledgerbot/internal/flows/transactions"
	"github.com/m3rciful/ledgerbot/internal/session"
	"github.com/m3rciful/ledgerbot/internal/settings"
)

// App carries everything the running bot needs.
type App struct {
	cfg      *Config
	db       *sqlx.DB
	sessions session.Manager
	registry *coretelegram.Registry
	steps    *state.Router
	mainMenu *menu.Graph
}

// Bootstrap initializes infrastructure and wires the bot surface. Token
// templates are validated here so a routing collision fails startup.
func Bootstrap(cfg *Config) (*App, error) {
	res, err := bootstrap.Run(bootstrap.Options{
		Config:   &cfg.Config,
		Database: cfg.Database,
	})
	if err != nil {
		return nil, err
	}

	sessions, err := buildSessions(cfg)
	if err != nil {
		_ = res.DB.Close()
		return nil, err
	}

	store := settings.NewStore(res.DB)
	ledger := func(ctx context.Context, userID int64) (*firefly.Client, error) {
		conn, err := store.Get(ctx, userID)
		if err != nil {
			return nil, err
		}
		return firefly.New(conn.BaseURL, conn.Token), nil
	}

	a := &App{
		cfg:      cfg,
		db:       res.DB,
		sessions: sessions,
		registry: coretelegram.NewRegistry(),
		steps:    state.NewRouter(),
	}
	if err := a.wire(store, ledger); err != nil {
		_ = res.DB.Close()
		return nil, err
	}
	return a, nil
}

func buildSessions(cfg *Config) (session.Manager, error) {
	if cfg.Session.Backend == coreconfig.SessionBackendRedis {
		return session.NewRedisManager(session.RedisOptions{
			Addr:     cfg.Session.RedisAddr,
			Password: cfg.Session.RedisPassword,
			DB:       cfg.Session.RedisDB,
			TTL:      time.Duration(cfg.Session.TTLMinutes) * time.Minute,
		})
	}
	return session.NewMemoryManager(), nil
}

func (a *App) wire(store *settings.Store, ledger flows.LedgerFunc) error {
	txFlow := transactions.New(a.sessions, store, ledger)
	catFlow := categories.New(a.sessions, ledger)
	setFlow := settingsflow.New(a.sessions, store, ledger)

	if err := errors.Join(
		txFlow.Register(a.registry, a.steps),
		catFlow.Register(a.registry, a.steps),
		setFlow.Register(a.registry, a.steps),
		a.registry.RegisterToken(flows.CancelTemplate, flows.CancelHandler(a.sessions)),
	); err != nil {
		return err
	}

	mainMenu, err := buildMainMenu(a.registry)
	if err != nil {
		return err
	}
	a.mainMenu = mainMenu

	a.registry.RegisterCommand("/start", commands.Command{
		Handler:     a.handleStart,
		Description: "Intro and main menu",
	})
	a.registry.RegisterCommand("/categories", commands.Command{
		Handler:     catFlow.Show,
		Description: "Manage categories",
	})
	a.registry.RegisterCommand("/settings", commands.Command{
		Handler:     setFlow.Show,
		Description: "Ledger connection and defaults",
	})
	a.registry.RegisterCommand("/cancel", commands.Command{
		Handler:     a.handleCancel,
		Description: "Abort the current operation",
		Aliases:     []string{"abort"},
	})
	a.registry.RegisterCommand("/version", commands.Command{
		Handler:     handleVersion,
		Description: "Build information",
		AdminOnly:   true,
		Hidden:      true,
	})

	a.registry.SetTextFallback(txFlow.HandleText)
	a.registry.SetCallbackNotFound(func(c tele.Context) error {
		return c.Respond(&tele.CallbackResponse{Text: "This button has expired."})
	})

	return a.registry.ValidateTokens()
}

// buildMainMenu declares the static navigation graph shown by /start.
func buildMainMenu(reg *coretelegram.Registry) (*menu.Graph, error) {
	catTok, err := categories.ListToken()
	if err != nil {
		return nil, err
	}
	setTok, err := settingsflow.MenuToken()
	if err != nil {
		return nil, err
	}

	g := menu.NewGraph("main", "Send an amount to record a transaction, or pick an action:")
	g.Root().AddRow(
		keyboard.Button{Text: "🏷 Categories", Token: catTok},
		keyboard.Button{Text: "⚙️ Settings", Token: setTok},
	)

	if err := g.Register(reg.Tokens(), func(c tele.Context, n *menu.Node) error {
		return c.Edit(n.Title(), n.Markup())
	}); err != nil {
		return nil, err
	}
	return g, nil
}

func (a *App) handleStart(c tele.Context) error {
	intro := "I record your spending into your ledger.\n\n" +
		"Type \"Coffee 3.5\" for a quick entry, or just \"12\" to pick a category."
	return c.Send(intro, a.mainMenu.Root().Markup())
}

// handleCancel is the text twin of the cancel button.
func (a *App) handleCancel(c tele.Context) error {
	ctx := helpers.BuildContext(c)
	userID := c.Sender().ID

	sess, err := a.sessions.Get(ctx, userID)
	if err != nil {
		return err
	}
	if sess.Step.Idle() && sess.Cleanup == nil {
		return c.Send("Nothing to cancel.")
	}

	flows.DeleteCleanup(c, sess.Cleanup)
	if err := a.sessions.Update(ctx, userID, func(s *session.Session) {
		s.ClearFlow()
	}); err != nil {
		return err
	}
	return c.Send("Cancelled.")
}

func handleVersion(c tele.Context) error {
	text := fmt.Sprintf("version %s\ncommit %s", buildinfo.Version, buildinfo.Commit)
	if buildinfo.Date != "" {
		text += "\nbuilt " + buildinfo.Date
	}
	return c.Send(text)
}

// TelegramRunOptions builds the runtime wiring consumed by the core runner.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	routes := router.CommandRoutes(a.registry, router.CommandRouteOptions{
		AdminID: a.cfg.Telegram.AdminID,
	})
	routes = append(routes, router.TextRoutes(a.sessions, a.steps, a.registry, router.TextOptions{})...)
	routes = append(routes, router.CallbackRoute(a.registry, router.CallbackOptions{}))

	mws := coretelegram.DefaultMiddlewares(&a.cfg.Config, nil)

	return coretelegram.RunOptions{
		Config:      &a.cfg.Config,
		Registry:    a.registry,
		Middlewares: mws,
		Routes:      routes,
		OnStop: func(context.Context, coretelegram.Runtime) error {
			return a.db.Close()
		},
	}, nil
}
