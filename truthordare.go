// Package truthordare is the top-level entry point for the Truth or Dare
// game server.
//
// Use the Builder to compose an application:
//
//	app, err := truthordare.NewBuilder().Build()
//	app.Start(ctx)
//
// Or replace components:
//
//	app, err := truthordare.NewBuilder().
//	    WithContent(myTable).
//	    WithLogger(logger).
//	    Build()
package truthordare

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/jxucoder/truthordare/content"
	"github.com/jxucoder/truthordare/engine"
	"github.com/jxucoder/truthordare/eventbus"
	"github.com/jxucoder/truthordare/httpapi"
	"github.com/jxucoder/truthordare/internal/config"
	"github.com/jxucoder/truthordare/session"
)

// Builder constructs an App.
type Builder struct {
	config  config.Config
	content content.Store
	bus     eventbus.Bus
	logger  *zap.Logger
	engine  []engine.Option
}

// NewBuilder creates a new Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// WithConfig sets the application configuration.
func (b *Builder) WithConfig(cfg config.Config) *Builder {
	b.config = cfg
	return b
}

// WithContent sets the prompt store. It overrides ContentDB and ContentFile.
func (b *Builder) WithContent(s content.Store) *Builder {
	b.content = s
	return b
}

// WithBus sets the event bus implementation.
func (b *Builder) WithBus(bus eventbus.Bus) *Builder {
	b.bus = bus
	return b
}

// WithLogger sets the logger.
func (b *Builder) WithLogger(l *zap.Logger) *Builder {
	b.logger = l
	return b
}

// WithEngineOptions adds options applied to every session engine, after
// the ones derived from the configuration.
func (b *Builder) WithEngineOptions(opts ...engine.Option) *Builder {
	b.engine = append(b.engine, opts...)
	return b
}

// Build creates the App. Missing components are filled with defaults.
func (b *Builder) Build() (*App, error) {
	if err := applyDefaults(b); err != nil {
		return nil, err
	}

	opts := []engine.Option{
		engine.WithDrawDelay(b.config.DrawDelay),
		engine.WithSpinDuration(b.config.SpinDuration),
	}
	opts = append(opts, b.engine...)

	sessions := session.NewManager(b.content, b.bus, session.Config{
		IdleTimeout:   b.config.IdleTimeout,
		MaxSessions:   b.config.MaxSessions,
		EngineOptions: opts,
	}, b.logger)

	return &App{
		config:   b.config,
		logger:   b.logger,
		sessions: sessions,
		handler:  httpapi.New(sessions, b.content, b.logger),
	}, nil
}

// App is a runnable game server.
type App struct {
	config   config.Config
	logger   *zap.Logger
	sessions *session.Manager
	handler  *httpapi.Handler
}

// Sessions returns the session manager for direct access.
func (a *App) Sessions() *session.Manager { return a.sessions }

// Handler returns the HTTP handler of the app.
func (a *App) Handler() http.Handler { return a.handler.Router() }

// Start serves the HTTP API. Blocks until ctx is done.
func (a *App) Start(ctx context.Context) error {
	a.sessions.Start(ctx)
	defer a.sessions.Stop()

	srv := &http.Server{
		Addr:    a.config.ServerAddr,
		Handler: a.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	a.logger.Info("server listening", zap.String("addr", a.config.ServerAddr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
