package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"mvn-audit/audit"
	"mvn-audit/handlers"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
)

func (a *app) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the audit HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	initCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	store, closeStore, err := a.openStore(initCtx)
	if err != nil {
		return err
	}
	defer closeStore()

	auditor := &audit.Auditor{
		API:           a.osvClient(),
		Store:         store,
		Log:           a.log,
		MaxConcurrent: a.settings.MaxConcurrent,
	}

	handler := &handlers.Handler{
		Store:   store,
		Auditor: auditor,
		Log:     a.log,
	}

	r := a.router(handler)

	if a.settings.InitialRefresh {
		if err := auditor.RefreshVulnerabilities(ctx); err != nil {
			return err
		}
	}

	if a.settings.DailyRefresh {
		c := cron.New()
		_, err := c.AddFunc(a.settings.RefreshCron, func() {
			a.log.Info("Scheduled refresh triggered")
			if err := auditor.RefreshVulnerabilities(ctx); err != nil {
				a.log.Errorf("scheduled refresh failed: %v", err)
			}
		})
		if err != nil {
			return err
		}
		c.Start()
		defer c.Stop()
	}

	srv := &http.Server{Addr: ":" + a.settings.Port, Handler: r}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	a.log.Infof("starting on port %s...", a.settings.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *app) router(handler *handlers.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   a.settings.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(middleware.Logger)

	handler.Routes(r)
	return r
}
