package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	httpapi "github.com/tbourn/go-chat-archive/internal/http"
	"github.com/tbourn/go-chat-archive/internal/observability"
)

const shutdownGrace = 10 * time.Second

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API",
		Long:  "Serve the archive over HTTP until SIGINT or SIGTERM, then drain in-flight requests.",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}

	RootCmd.AddCommand(cmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openArchive(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	shutdownOTel, err := observability.SetupOTel(ctx, a.cfg.OTEL, Version)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			a.log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	a.svc.LoadChats(ctx)
	if a.origin != "" {
		go a.svc.FollowRemote(ctx, a.origin)
	}

	gin.SetMode(a.cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, a.svc, a.store, a.cfg, a.log)

	srv := &http.Server{
		Addr:              ":" + a.cfg.Port,
		Handler:           r,
		ReadTimeout:       a.cfg.ReadTimeout,
		ReadHeaderTimeout: a.cfg.ReadHeaderTimeout,
		WriteTimeout:      a.cfg.WriteTimeout,
		IdleTimeout:       a.cfg.IdleTimeout,
		MaxHeaderBytes:    a.cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info().Str("addr", srv.Addr).Str("db", a.cfg.DBPath).Str("version", Version).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return srv.Shutdown(sctx)
}
