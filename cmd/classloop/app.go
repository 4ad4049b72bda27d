package main

import (
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/classloop/classloop/internal/config"
	"github.com/classloop/classloop/pkg/api"
	"github.com/classloop/classloop/pkg/auth"
	"github.com/classloop/classloop/pkg/guard"
	"github.com/classloop/classloop/pkg/session"
	"github.com/classloop/classloop/pkg/toast"
)

// app wires the full client stack for one CLI invocation: config, HTTP
// client, session store, auth manager, guard, and a notification center
// routed to the terminal logger.
type app struct {
	cfg     *config.Config
	client  *api.Client
	store   *session.Store
	manager *auth.Manager
	guard   *guard.Guard
	toasts  *toast.Center
	jar     *persistentJar
	log     *slog.Logger
}

// cliNavigator is the terminal stand-in for client-side navigation.
type cliNavigator struct {
	log *slog.Logger
}

func (n *cliNavigator) Navigate(path string) {
	n.log.Info("navigation requested", "path", path)
}

func newApp(logger *slog.Logger) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	base, err := url.Parse(cfg.BaseURL())
	if err != nil {
		return nil, err
	}
	jar, err := newPersistentJar(cookieFilePath(), base)
	if err != nil {
		return nil, err
	}

	toasts := toast.NewCenter()
	toast.LogTo(toasts, logger)

	client := api.New(cfg.BaseURL(),
		api.WithTimeout(cfg.Timeout()),
		api.WithHTTPClient(&http.Client{Jar: jar}),
		api.WithNotifier(toasts),
		api.WithNavigator(&cliNavigator{log: logger}),
		api.WithLogger(logger),
	)

	store := session.NewStore(logger)
	manager := auth.NewManager(store, auth.NewGateway(client), client.Tokens(), logger)

	return &app{
		cfg:     cfg,
		client:  client,
		store:   store,
		manager: manager,
		guard:   guard.New(store),
		toasts:  toasts,
		jar:     jar,
		log:     logger,
	}, nil
}

// close persists the cookie jar so the session survives across CLI runs.
func (a *app) close() {
	if err := a.jar.save(); err != nil {
		a.log.Warn("could not persist session cookies", "error", err)
	}
}

func configDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "classloop")
	}
	return ".classloop"
}

func cookieFilePath() string {
	return filepath.Join(configDir(), "cookies.json")
}
