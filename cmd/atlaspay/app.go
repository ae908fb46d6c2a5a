package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ybenkirane/atlaspay/internal/db"
	"github.com/ybenkirane/atlaspay/internal/handlers"
	"github.com/ybenkirane/atlaspay/internal/handlers/middleware"
	"github.com/ybenkirane/atlaspay/internal/logger"
	"github.com/ybenkirane/atlaspay/internal/repository/postgres"
	"github.com/ybenkirane/atlaspay/internal/service/account"
	"github.com/ybenkirane/atlaspay/internal/service/adminauth"
	"github.com/ybenkirane/atlaspay/internal/service/identity"
	"github.com/ybenkirane/atlaspay/internal/service/reconciler"
	"github.com/ybenkirane/atlaspay/internal/service/request"
)

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler

	logger    logger.Logger
	processor *reconciler.Processor
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	// Initialize logger
	l, err := logger.New(c.Environment, c.LogLevel)
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

	// Initialize services
	identitySecret := c.IdentitySecretKey
	if identitySecret == "" {
		identitySecret = c.SecretKey
	}
	verifier, err := identity.NewVerifier(identity.Config{SecretKey: identitySecret})
	if err != nil {
		return nil, fmt.Errorf("error while creating identity verifier. Err: %w", err)
	}

	adminAuth, err := adminauth.NewService(adminauth.Config{SecretKey: c.SecretKey}, storage.Admin())
	if err != nil {
		return nil, fmt.Errorf("error while creating admin auth service. Err: %w", err)
	}

	if c.AdminUsername != "" && c.AdminPassword != "" {
		if _, err := adminAuth.EnsureAdmin(ctx, c.AdminUsername, c.AdminPassword); err != nil {
			return nil, fmt.Errorf("error while bootstrapping admin. Err: %w", err)
		}
	}

	accountService := account.NewService(storage, l)
	requestService := request.NewService(request.Config{}, storage, l)

	applier := reconciler.New(reconciler.Config{}, storage, l)
	processor := reconciler.NewProcessorFromStorage(reconciler.ProcessorConfig{}, applier, storage, l)

	mux := handlers.NewRouter(handlers.RouterDeps{
		AccountService: accountService,
		RequestService: requestService,
		AdminAuth:      adminAuth,
		Logger:         l,

		IdentityRequired: middleware.IdentityMiddleware(verifier),
		AccountRequired:  middleware.AccountMiddleware(verifier, accountService),
		AdminRequired:    middleware.AdminMiddleware(adminAuth),
		Middlewares: []func(http.Handler) http.Handler{
			middleware.LoggerMiddleware(l),
			middleware.MetricsMiddleware(),
		},
	})

	return &ServerApp{
		ListenAddr: c.ListenAddr,
		Handler:    mux,
		logger:     l,
		processor:  processor,
	}, nil
}

// Run starts the http server and the reconciler, closes gracefully on
// context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    s.ListenAddr,
		Handler: s.Handler,
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	processorStopped := s.processor.Process(srvCtx)

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
	<-processorStopped

	return err
}
