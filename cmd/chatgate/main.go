package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	adapthttp "chatgate/internal/adapter/http"
	"chatgate/internal/adapter/memory"
	"chatgate/internal/adapter/postgres"
	"chatgate/internal/adapter/sso"
	"chatgate/internal/app"
	"chatgate/internal/config"
	"chatgate/internal/domain"
	"chatgate/internal/logging"
	"chatgate/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logging.New(os.Stdout, cfg.LogLevel)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.SessionSecretGenerated {
		log.Warn(ctx, "CHATGATE_SESSION_SECRET is not set; using a random secret, sessions will not survive a restart")
	}

	credDoc, sessDoc, closeDocs, err := openDocuments(cfg)
	if err != nil {
		return err
	}
	defer closeDocs()

	creds, err := store.OpenCredentials(ctx, credDoc)
	if err != nil {
		return err
	}
	sessions, err := store.OpenSessions(ctx, sessDoc, nil)
	if err != nil {
		return err
	}
	log.Info(ctx, "stores loaded", "backend", cfg.Backend, "users", creds.Len(), "credentials", credDoc.Name(), "sessions", sessDoc.Name())

	ssoCfg := sso.Config{
		Issuer:       cfg.SSOIssuer,
		ClientID:     cfg.SSOClientID,
		ClientSecret: cfg.SSOClientSecret,
		Scopes:       cfg.SSOScopes,
	}
	mgr := app.NewAccessManager(creds, sessions, app.Options{
		UseSSO: cfg.UseSSO,
		SSOFactory: func(ctx context.Context) (domain.SSOVerifier, error) {
			return sso.New(ctx, ssoCfg)
		},
		Logger: log.With("component", "access"),
	})

	tokens := adapthttp.NewTokenIssuer([]byte(cfg.SessionSecret), cfg.SessionTTL)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           adapthttp.New(mgr, tokens, log.With("component", "http")).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "listening", "addr", cfg.Addr, "sso", cfg.UseSSO)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Info(shutdownCtx, "shutting down")
	return srv.Shutdown(shutdownCtx)
}

func openDocuments(cfg *config.Config) (credentials, sessions domain.DocumentStore, closeFn func(), err error) {
	credName, sessName := config.DocumentNames()
	switch cfg.Backend {
	case config.BackendMemory:
		db := memory.New()
		return db.Document(credName), db.Document(sessName), func() {}, nil
	case config.BackendPostgres:
		db, err := postgres.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("db open: %w", err)
		}
		return db.Document(credName), db.Document(sessName), func() { _ = db.Close() }, nil
	default:
		return store.NewFileDocument(cfg.CredentialsPath()), store.NewFileDocument(cfg.SessionsPath()), func() {}, nil
	}
}
