// Package app wires the SmartClip components together and runs the HTTP
// service.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/Liu-design-beep/smartclip/internal/smartclip/agent"
	"github.com/Liu-design-beep/smartclip/internal/smartclip/api"
	"github.com/Liu-design-beep/smartclip/internal/smartclip/chat"
	"github.com/Liu-design-beep/smartclip/internal/smartclip/config"
	"github.com/Liu-design-beep/smartclip/internal/smartclip/documents"
	"github.com/Liu-design-beep/smartclip/internal/smartclip/session"
)

const shutdownTimeout = 10 * time.Second

// App is the assembled service.
type App struct {
	cfg        *config.Config
	store      documents.Store
	backend    agent.Backend
	sessions   *session.Manager
	dispatcher *chat.Dispatcher
	limiter    *api.RateLimiter
	server     *api.Server
}

// New opens the document store and builds every component. Call Close when
// done.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	store, err := OpenStore(ctx, cfg.Documents)
	if err != nil {
		return nil, err
	}

	backend, err := NewBackend(cfg.Agent)
	switch {
	case errors.Is(err, agent.ErrNotConfigured):
		slog.Warn("agent credentials missing; messages will not be understood until they are set",
			"provider", cfg.Agent.Provider)
	case err != nil:
		store.Close()
		return nil, err
	default:
		slog.Info("agent configured", "backend", backend.Name())
	}

	msgs := chat.DefaultCatalogue()
	if cfg.MessagesFile != "" {
		if msgs, err = chat.LoadCatalogue(cfg.MessagesFile); err != nil {
			store.Close()
			return nil, err
		}
	}

	a := &App{
		cfg:        cfg,
		store:      store,
		backend:    backend,
		sessions:   session.NewManager(chat.SessionFactory(store, backend, cfg.Agent.Timeout), cfg.SessionTTL),
		dispatcher: chat.NewDispatcher(store, msgs),
		limiter:    api.NewRateLimiter(cfg.ChatRateLimit, time.Minute),
	}
	a.server = api.New(api.Deps{
		Dispatcher:      a.dispatcher,
		Sessions:        a.sessions,
		Store:           store,
		Limiter:         a.limiter,
		CORSOrigins:     cfg.CORSOrigins,
		AgentConfigured: backend != nil,
	})
	return a, nil
}

// OpenStore opens the configured document backend.
func OpenStore(ctx context.Context, cfg config.DocumentsConfig) (documents.Store, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		return documents.OpenSQLite(ctx, cfg.DatabasePath)
	case config.BackendFile, "":
		return documents.OpenFileStore(cfg.Dir)
	}
	return nil, fmt.Errorf("app: unknown document backend %q", cfg.Backend)
}

// NewBackend builds the configured agent backend. It returns a nil Backend
// and agent.ErrNotConfigured when credentials are missing.
func NewBackend(cfg config.AgentConfig) (agent.Backend, error) {
	if !cfg.Configured() {
		return nil, agent.ErrNotConfigured
	}
	switch cfg.Provider {
	case config.ProviderOpenAI:
		b, err := agent.NewOpenAICompat(agent.OpenAICompatConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.Endpoint,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		})
		if err != nil {
			return nil, err
		}
		return b, nil
	default:
		b, err := agent.NewDashScope(agent.DashScopeConfig{
			APIKey:  cfg.APIKey,
			AppID:   cfg.AppID,
			BaseURL: cfg.Endpoint,
			Timeout: cfg.Timeout,
		})
		if err != nil {
			return nil, err
		}
		return b, nil
	}
}

// Handler returns the HTTP handler.
func (a *App) Handler() http.Handler { return a.server }

// Dispatcher returns the chat dispatcher.
func (a *App) Dispatcher() *chat.Dispatcher { return a.dispatcher }

// Sessions returns the session manager.
func (a *App) Sessions() *session.Manager { return a.sessions }

// Store returns the document store.
func (a *App) Store() documents.Store { return a.store }

// Run serves HTTP on the configured address until ctx is cancelled, then
// shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.cfg.HTTPAddr)
	if err != nil {
		return fmt.Errorf("app: listen %s: %w", a.cfg.HTTPAddr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           a.server,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Agent calls may take up to the agent timeout.
		WriteTimeout: a.cfg.Agent.Timeout + 15*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go a.sessions.Run(ctx, 0)
	go a.cleanupLimiter(ctx)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("app: serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("app: shutdown: %w", err)
	}
	return <-errCh
}

func (a *App) cleanupLimiter(ctx context.Context) {
	t := time.NewTicker(5 * time.Minute)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			a.limiter.Cleanup()
		}
	}
}

// Close releases the document store.
func (a *App) Close() error {
	return a.store.Close()
}
