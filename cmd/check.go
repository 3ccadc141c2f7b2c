package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newCheckCmd() *cobra.Command {
	var (
		accountID string
		asJSON    bool
		notify    bool
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run one availability check and print the open slots",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApp(cmd.Context(), "cli")
			if err != nil {
				return err
			}
			defer app.close()

			result := app.booker.CheckAvailability(cmd.Context(), accountID)

			if notify {
				if err := app.notifier.NotifyAvailability(result); err != nil {
					app.log.Warn("notification failed", "error", err)
				}
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}

			if result.FallbackMode {
				fmt.Println("Availability unknown: no automation engine could be started.")
				return nil
			}
			if !result.Success {
				return fmt.Errorf("check failed: %s", result.Error)
			}

			for _, day := range result.Dates {
				fmt.Printf("%s: %d of %d open\n", day.Date, len(day.Available), day.TotalSlots)
				for _, slot := range day.Available {
					fmt.Printf("  %s\n", slot)
				}
			}
			fmt.Printf("\nTotal open slots: %d\n", result.TotalAvailableSlots)
			return nil
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "account id (default: first configured)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full result as JSON")
	cmd.Flags().BoolVar(&notify, "notify", false, "email the result using the configured notifier")

	return cmd
}
