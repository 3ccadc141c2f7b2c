package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func newMonitorCmd() *cobra.Command {
	var (
		accountID string
		interval  time.Duration
		testEmail bool
	)

	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Check availability on an interval and email when slots open",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			app, err := buildApp(ctx, "monitor")
			if err != nil {
				return err
			}
			defer app.close()

			if testEmail {
				if err := app.notifier.TestConnection(); err != nil {
					return fmt.Errorf("email test failed: %w", err)
				}
				fmt.Println("Email test successful.")
				return nil
			}

			if !app.cfg.Email.Enabled() {
				app.log.Warn("email is not configured; monitor will only log")
			}
			app.log.Info("monitor started", "interval", interval)

			run := func() {
				result := app.booker.CheckAvailability(ctx, accountID)
				if err := app.notifier.NotifyAvailability(result); err != nil {
					app.log.Warn("notification failed", "error", err)
				}
			}

			// One check up front so starting the monitor gives immediate signal.
			run()

			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					app.log.Info("monitor stopped")
					return nil
				case <-ticker.C:
					run()
				}
			}
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "account id (default: first configured)")
	cmd.Flags().DurationVar(&interval, "interval", 10*time.Minute, "time between checks")
	cmd.Flags().BoolVar(&testEmail, "test-email", false, "send a test email and exit")

	return cmd
}
