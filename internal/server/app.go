// Package server initializes and runs the messaging backend. It opens the
// database, applies migrations, connects Redis, assembles the services and
// serves the HTTP API until shutdown.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/mzhurin/convo/internal/logging"
	"github.com/mzhurin/convo/internal/server/config"
	"github.com/mzhurin/convo/internal/server/httpapi"
	"github.com/mzhurin/convo/internal/server/notify"
	"github.com/mzhurin/convo/internal/server/repositories/repomanager"
	"github.com/mzhurin/convo/internal/server/services"
	"github.com/mzhurin/convo/internal/server/ws"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config *config.Config
	logger logging.Logger

	db  *sql.DB
	hub *ws.Hub

	identityService *services.IdentityService
	messageService  *services.MessageService
	contactService  *services.ContactService
	profileService  *services.ProfileService
}

func NewApp(c *config.Config) (*App, error) {

	logger := logging.NewJSONLogger(os.Stdout)

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	manager := repomanager.NewPostgresRepositoryManager()
	if err := manager.RunMigrations(context.Background(), db); err != nil {
		return nil, fmt.Errorf("db migration error: %w", err)
	}

	rdb, err := notify.NewRedisClient(c.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("redis init error: %w", err)
	}

	is := services.NewIdentityService(db, manager, c)
	ms := services.NewMessageService(db, manager)
	cs := services.NewContactService(db, manager, notify.NewRedisDispatcher(rdb), logger)
	ps := services.NewProfileService(db, manager, c)

	hub := ws.NewHub(rdb, logger)

	return &App{
		config:          c,
		logger:          logger,
		db:              db,
		hub:             hub,
		identityService: is,
		messageService:  ms,
		contactService:  cs,
		profileService:  ps,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {

	api := httpapi.NewServer(
		app.identityService,
		app.messageService,
		app.contactService,
		app.profileService,
		app.hub,
		app.config.SecretKey,
		app.logger,
	)

	srv := &http.Server{
		Addr:    app.config.EndpointAddrHTTP,
		Handler: api.Router(),
	}

	go func() {
		<-ctx.Done()
		app.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(ctx, "HTTP server shutdown error", "error", err.Error())
		}
	}()

	app.logger.Info(ctx, "Starting HTTP server", "address", app.config.EndpointAddrHTTP)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.hub.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err.Error())
	}
}
