package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/pmorozov/vidhub/internal/assets"
	"github.com/pmorozov/vidhub/internal/db"
	"github.com/pmorozov/vidhub/internal/handlers"
	"github.com/pmorozov/vidhub/internal/logger"
	"github.com/pmorozov/vidhub/internal/repository/postgres"
	"github.com/pmorozov/vidhub/internal/service/auth"
	"github.com/pmorozov/vidhub/internal/service/auth/tokenmanager"
	"github.com/pmorozov/vidhub/internal/service/user"
)

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler

	logger logger.Logger
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	// Initialize logger
	log, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	// Connect to the database and run migrations
	pool, err := db.ConnectAndMigrate(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}

	// Initialize repositories
	storage := postgres.NewStorage(pool)

	// Initialize asset store. Without it the service still runs but
	// register and media update endpoints report upload errors.
	var assetStore auth.AssetStore
	if c.S3Endpoint != "" {
		store, err := assets.New(ctx, assets.Config{
			Endpoint:      c.S3Endpoint,
			AccessKey:     c.S3AccessKey,
			SecretKey:     c.S3SecretKey,
			Bucket:        c.S3Bucket,
			Region:        c.S3Region,
			PublicBaseURL: c.S3PublicBaseURL,
		})
		if err != nil {
			return nil, fmt.Errorf("error while creating asset store. Err: %w", err)
		}
		assetStore = store
	} else {
		log.Warn("asset store is not configured, media uploads are disabled")
	}

	// Initialize services
	tokenManager, err := tokenmanager.New(tokenmanager.Config{
		AccessSecret:  c.AccessSecret,
		RefreshSecret: c.RefreshSecret,
		AccessTTL:     c.AccessTTL,
		RefreshTTL:    c.RefreshTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("error while creating token manager. Err: %w", err)
	}

	authService, err := auth.NewService(auth.Config{}, tokenManager, storage.User(), assetStore)
	if err != nil {
		return nil, fmt.Errorf("error while creating auth service. Err: %w", err)
	}
	userService := user.NewService(storage.User(), storage.Subscription(), storage.History(), assetStore)

	mux := handlers.NewRouter(authService, userService, log)

	return &ServerApp{
		ListenAddr: c.ListenAddr,
		Handler:    mux,
		logger:     log,
	}, nil
}

// Run starts http server and closes gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    s.ListenAddr,
		Handler: s.Handler,
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); err == context.DeadlineExceeded {
			s.logger.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		s.logger.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close gracefully connections
	s.logger.Info("Starting server", "address", s.ListenAddr)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed

	return err
}
