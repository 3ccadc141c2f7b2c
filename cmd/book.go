package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/darren-wangg/court-booker-sub000/internal/models"
	"github.com/darren-wangg/court-booker-sub000/internal/slots"
)

func newBookCmd() *cobra.Command {
	var (
		accountID string
		date      string
		startHour int
		notify    bool
	)

	cmd := &cobra.Command{
		Use:   "book",
		Short: "Book one court slot",
		Example: `  courtbooker book --date 2025-09-06 --start-hour 17
  courtbooker book --date 2025-09-06 --start-hour 10 --account secondary`,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := parseBookingRequest(date, startHour)
			if err != nil {
				return err
			}

			app, err := buildApp(cmd.Context(), "cli")
			if err != nil {
				return err
			}
			defer app.close()

			result := app.booker.BookTimeSlot(cmd.Context(), accountID, req)

			if notify {
				if err := app.notifier.NotifyBooking(result); err != nil {
					app.log.Warn("notification failed", "error", err)
				}
			}

			if !result.Success {
				if result.Retryable {
					return fmt.Errorf("booking failed (transient, try again): %s", result.Error)
				}
				return fmt.Errorf("booking failed: %s", result.Error)
			}
			fmt.Printf("Booked %s, %s: %s\n", req.Formatted.Date, req.Formatted.Time, result.Message)
			return nil
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "account id (default: first configured)")
	cmd.Flags().StringVar(&date, "date", "", "date to book, YYYY-MM-DD (required)")
	cmd.Flags().IntVar(&startHour, "start-hour", 0, "24-hour start of the slot, e.g. 17 for 5 PM (required)")
	cmd.Flags().BoolVar(&notify, "notify", false, "email the outcome using the configured notifier")
	_ = cmd.MarkFlagRequired("date")
	_ = cmd.MarkFlagRequired("start-hour")

	return cmd
}

func parseBookingRequest(date string, startHour int) (models.BookingRequest, error) {
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return models.BookingRequest{}, fmt.Errorf("invalid --date %q: expected YYYY-MM-DD", date)
	}
	return slots.RequestFor(day, startHour)
}
