package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/go-chi/cors"
	"github.com/putto11262002/roomrelay/core"
	"github.com/putto11262002/roomrelay/pkg/router"
)

type App struct {
	config      *Config
	context     context.Context
	server      *http.Server
	logger      *slog.Logger
	router      *router.Router
	eventRouter *core.EventRouter
	wsManager   *core.ConnManager

	relay         *core.Relay
	registrations *core.Registrations

	exit chan int

	cleanupFuncs []func(context.Context)

	wg sync.WaitGroup
}

// New wires the application. A nil ctx is replaced by one cancelled on
// SIGINT/SIGTERM, and a nil config is loaded with LoadConfig.
func New(ctx context.Context, config *Config) (*App, error) {
	app := &App{
		exit: make(chan int),
	}
	if ctx == nil {
		ctx, _ = signal.NotifyContext(
			context.Background(),
			syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGHUP)
	}
	app.context = ctx

	if config == nil {
		var err error
		config, err = LoadConfig()
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}
	if err := config.Validate(); err != nil {
		return nil, errors.New(FormatValidationErrors(err))
	}
	app.config = config

	app.logger = newLogger(config.Log.Level)

	app.relay = core.NewRelay(core.WithHistoryLimit(config.History.Limit))
	app.registrations = core.NewRegistrations()

	app.wsManager = core.NewConnManager(app.context, &app.wg, app.logger,
		core.WithCheckOrigin(checkOrigin(config.AllowedOrigins)),
		core.WithMaxEventSize(config.WS.MaxEventSize),
		core.WithWriteBuffer(config.WS.WriteBuffer),
		core.WithRateLimit(config.WS.RateLimit, config.WS.RateBurst),
	)
	app.wsManager.OnConnectionOpened(app.onConnectionOpen)

	app.eventRouter = core.NewEventRouter(app.logger, app.wsManager)
	app.registerEventHandlers()

	app.router = router.New(router.WithLogger(app.logger))
	app.router.RegisterErrorMapper(core.ErrRegistrationConflict, func(err error) router.Error {
		return router.NewJsonError(http.StatusBadRequest, core.ErrRegistrationConflict.Error())
	})

	app.router.Router.Use(cors.Handler(cors.Options{
		AllowedOrigins: app.config.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	app.router.Get("/", app.RootHandler)
	app.router.Get("/ws", app.WSHandler)
	app.router.Route("/api", func(r *router.Router) {
		r.Get("/messages", app.GetMessagesHandler)
		r.Get("/messages/{room}", app.GetRoomMessagesHandler)
		r.Get("/users", app.GetUsersHandler)
		r.Post("/register", app.RegisterHandler)
	})

	app.server = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", app.config.Hostname, app.config.Port),
		Handler: app.router.Router,
		BaseContext: func(listener net.Listener) context.Context {
			return app.context
		},
	}

	return app, nil
}

// Handler returns the root HTTP handler.
func (app *App) Handler() http.Handler {
	return app.router.Router
}

// Listen starts the event dispatcher. It stops when the app context is done.
func (app *App) Listen() {
	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		app.eventRouter.Listen(app.context)
	}()
}

func (app *App) Start() {
	app.Listen()

	// listen for shutdown signal
	go func() {
		<-app.context.Done()
		closeCtx, closeCancel := context.WithTimeout(context.Background(), app.config.ShutdownTimeout)
		defer closeCancel()

		var wg sync.WaitGroup
		for _, f := range app.cleanupFuncs {
			wg.Add(1)
			go func() {
				defer wg.Done()
				f(closeCtx)
			}()
		}

		done := make(chan struct{})
		go func() {
			wg.Wait()
			app.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
			app.logger.Info("app shutdown gracefully")
			app.exit <- 0
		case <-closeCtx.Done():
			app.logger.Info("app shutdown timed out")
			app.exit <- 1
		}
	}()

	app.AddCleanupFunc(func(ctx context.Context) {
		app.server.Shutdown(ctx)
	})
	app.AddCleanupFunc(func(ctx context.Context) {
		app.wsManager.Close()
	})
	app.logger.Info(fmt.Sprintf("app running on: %s:%d", app.config.Hostname, app.config.Port))

	err := app.server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		Failed(1, "server error: %v\n", err)
	}

	code := <-app.exit
	if code != 0 {
		Failed(code, "app exit with code: %d\n", code)
	}
	os.Exit(0)
}

func (app *App) AddCleanupFunc(f func(context.Context)) {
	app.cleanupFuncs = append(app.cleanupFuncs, f)
}

func Failed(code int, s string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, s, args...)
	os.Exit(code)
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl,
		AddSource: true,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.SourceKey {
				source, _ := a.Value.Any().(*slog.Source)
				if source != nil {
					source.File = filepath.Base(source.File)
				}
			}
			return a
		},
	}))
}
