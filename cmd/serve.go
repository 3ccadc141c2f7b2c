package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/darren-wangg/court-booker-sub000/internal/web"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			app, err := buildApp(ctx, "api")
			if err != nil {
				return err
			}
			defer app.close()

			router := web.NewRouter(web.Deps{
				Core:     app.booker,
				Results:  app.store,
				Registry: app.metrics.Registry,
				Log:      app.log,
			})

			srv := &http.Server{
				Addr:              app.cfg.Server.Addr,
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				app.log.Info("http server listening", "addr", srv.Addr)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			app.log.Info("shutting down")
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer shutdownCancel()
			if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
}
