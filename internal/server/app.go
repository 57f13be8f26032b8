// Package server initializes and runs the chunkvault server application.
// It wires the catalog database, the blob store, the upload manager and
// the access gate into the transfer service, starts the HTTP endpoint and
// the session sweeper, and handles graceful shutdown.
package server

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/ava-vs/chunkvault/internal/logging"
	"github.com/ava-vs/chunkvault/internal/server/access"
	"github.com/ava-vs/chunkvault/internal/server/blob"
	"github.com/ava-vs/chunkvault/internal/server/config"
	"github.com/ava-vs/chunkvault/internal/server/manifest"
	"github.com/ava-vs/chunkvault/internal/server/repositories/repomanager"
	"github.com/ava-vs/chunkvault/internal/server/transfer"
	"github.com/ava-vs/chunkvault/internal/server/upload"
	"github.com/ava-vs/chunkvault/internal/server/web"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	service *transfer.Service
	sweeper *upload.Sweeper
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	sl := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(sl)

	db, err := repomanager.OpenDB(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	repos := &repomanager.PostgresRepositoryManager{}
	if err := repos.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	store, err := blob.NewS3Store(ctx, blob.S3Config{
		AccessKey:    c.S3AccessKey,
		SecretKey:    c.S3SecretKey,
		Bucket:       c.S3Bucket,
		Region:       c.S3Region,
		BaseEndpoint: c.S3BaseEndpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("blob store init error: %w", err)
	}

	uploads := upload.NewManager(upload.NewMemorySessionStore(), store, db, repos,
		manifest.NewValidator(), logger, c.MaxChunkSize, c.VerifyChunksOnComplete)
	gate := access.NewGate(db, repos, logger)

	// The wrapping key is derived, not stored: the secret never reaches
	// the catalog.
	wrappingKey := sha256.Sum256([]byte(c.KeyWrappingSecret))

	service := transfer.NewService(db, repos, uploads, gate, store, logger,
		c.VerifyChunksOnDownload, wrappingKey[:])

	sweeper := upload.NewSweeper(uploads, c.SweepInterval, c.SessionMaxAge, logger)

	return &App{config: c, logger: logger, service: service, sweeper: sweeper}, nil
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
	s := web.NewServer(app.config.EndpointAddrHTTP, app.logger, app.service,
		app.config.SecretKey, app.config.MaxChunkSize)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.sweeper.Run(ctx)
	}()

	wg.Wait()

}
