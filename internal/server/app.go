// Package server initializes and runs the ParamaShop server: it wires
// configuration, storage, the cryptographic services, and the HTTP
// endpoint, and handles graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/paramashop/internal/cryptox"
	"github.com/dmitrijs2005/paramashop/internal/logging"
	"github.com/dmitrijs2005/paramashop/internal/server/config"
	"github.com/dmitrijs2005/paramashop/internal/server/httpapi"
	"github.com/dmitrijs2005/paramashop/internal/server/mail"
	"github.com/dmitrijs2005/paramashop/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/paramashop/internal/server/services"
	"github.com/dmitrijs2005/paramashop/internal/signx"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	handler     *httpapi.Handler
}

func NewApp(cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()

	key, err := cryptox.ParseKey(cfg.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("encryption key error: %w", err)
	}
	cipher, err := cryptox.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cipher init error: %w", err)
	}

	signer, err := signx.NewService(cfg.RSAKeyDir, logger)
	if err != nil {
		return nil, fmt.Errorf("signing init error: %w", err)
	}

	mailer := mail.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPSender)

	otp := services.NewOTPService(db, rm, mailer, logger, cfg)
	users := services.NewUserService(db, rm, otp, logger)
	authz := services.NewAuthzService(db, rm, logger, cfg)
	orders := services.NewOrderService(db, rm, cipher, signer, logger)

	handler := httpapi.NewHandler(users, otp, authz, orders, signer, logger)

	return &App{config: cfg, logger: logger, db: db, repomanager: rm, handler: handler}, nil
}

// Run migrates the schema, starts the HTTP server, and blocks until the
// context is cancelled or a termination signal arrives.
func (app *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer cancel()
	defer app.db.Close()

	if err := app.repomanager.RunMigrations(ctx, app.db); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}

	srv := &http.Server{
		Addr:    app.config.EndpointAddrHTTP,
		Handler: app.handler.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info(ctx, "starting HTTP server", "addr", app.config.EndpointAddrHTTP)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
	}

	app.logger.Info(ctx, "shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	return nil
}
