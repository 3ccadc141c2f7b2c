// Package booking drives the calendar/time-selection/submission UI for one
// booking request. The flow is a state machine that is terminal on the first
// unrecoverable error: navigate calendar, select day, select times, submit.
package booking

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/darren-wangg/court-booker-sub000/internal/driver"
	"github.com/darren-wangg/court-booker-sub000/internal/models"
	"github.com/darren-wangg/court-booker-sub000/internal/slots"
)

// DateNotFoundError means the target day is absent from the rendered
// calendar. Terminal: the widget simply does not offer the date.
type DateNotFoundError struct {
	Date string
}

func (e *DateNotFoundError) Error() string {
	return fmt.Sprintf("date %s not found in calendar", e.Date)
}

var dateInputSelectors = []string{
	"input#booking-date",
	"input[name='date']",
	".date-picker input",
}

var calendarSelectors = []string{
	".calendar",
	".datepicker",
	"[data-calendar]",
}

var startTimeSelectors = []string{
	"select#start-time",
	"select[name='start_time']",
}

var endTimeSelectors = []string{
	"select#end-time",
	"select[name='end_time']",
}

var submitSelectors = []string{
	"button[type='submit']",
	"button.book-now",
	"button:has-text('Book')",
}

var successSelectors = []string{
	".booking-confirmation",
	".success-message",
	".alert-success",
}

const (
	navigateTimeout = 30 * time.Second
	widgetTimeout   = 10 * time.Second

	// Delay after submit before probing for success indicators.
	submitSettleDelay = 2 * time.Second

	// Dropdown populate polling.
	populateAttempts = 10
	populateInterval = 500 * time.Millisecond
)

// Executor runs the booking UI flow over a Driver.
type Executor struct {
	bookingURL string
	log        *slog.Logger

	sleep func(time.Duration)
}

func NewExecutor(bookingURL string, log *slog.Logger) *Executor {
	return &Executor{
		bookingURL: bookingURL,
		log:        log,
		sleep:      time.Sleep,
	}
}

// Run executes the full flow and returns a confirmation message. Any error
// is terminal for this attempt; the caller decides whether the class is
// retryable.
func (e *Executor) Run(ctx context.Context, drv driver.Driver, req models.BookingRequest) (string, error) {
	e.log.Info("booking slot",
		"date", req.Formatted.Date, "time", req.Time.Formatted)

	if err := drv.Navigate(ctx, e.bookingURL, driver.WaitNetworkIdle, navigateTimeout); err != nil {
		return "", fmt.Errorf("open booking page: %w", err)
	}
	if err := e.openCalendar(ctx, drv); err != nil {
		return "", err
	}
	if err := e.selectDay(ctx, drv, req.Date); err != nil {
		return "", err
	}
	if err := e.selectTimes(ctx, drv, req.Time); err != nil {
		return "", err
	}
	return e.submit(ctx, drv)
}

// openCalendar clicks the date input and waits for the picker widget's DOM.
func (e *Executor) openCalendar(ctx context.Context, drv driver.Driver) error {
	input, err := drv.WaitForAny(ctx, dateInputSelectors, widgetTimeout)
	if err != nil {
		return fmt.Errorf("date input: %w", err)
	}
	if err := drv.Click(ctx, input); err != nil {
		return fmt.Errorf("open calendar: %w", err)
	}
	if _, err := drv.WaitForAny(ctx, calendarSelectors, widgetTimeout); err != nil {
		return fmt.Errorf("calendar widget: %w", err)
	}
	return nil
}

// selectDay scans the rendered day cells in-page for an exact
// day/month/year match and clicks it. The widget indexes months from zero;
// the translation happens here and nowhere else.
func (e *Executor) selectDay(ctx context.Context, drv driver.Driver, date time.Time) error {
	script := fmt.Sprintf(`(() => {
		const cells = document.querySelectorAll('[data-day]');
		for (const cell of cells) {
			if (Number(cell.dataset.day) === %d &&
				Number(cell.dataset.month) === %d &&
				Number(cell.dataset.year) === %d) {
				cell.click();
				return true;
			}
		}
		return false;
	})()`, date.Day(), int(date.Month())-1, date.Year())

	result, err := drv.Evaluate(ctx, script)
	if err != nil {
		return fmt.Errorf("scan calendar days: %w", err)
	}
	if clicked, ok := result.(bool); !ok || !clicked {
		return &DateNotFoundError{Date: date.Format("2006-01-02")}
	}
	return nil
}

// selectTimes waits for the start/end dropdowns to populate and selects both
// by their 12-hour labels.
func (e *Executor) selectTimes(ctx context.Context, drv driver.Driver, slot models.TimeSlot) error {
	startSel, err := drv.WaitForAny(ctx, startTimeSelectors, widgetTimeout)
	if err != nil {
		return fmt.Errorf("start time dropdown: %w", err)
	}
	endSel, err := drv.WaitForAny(ctx, endTimeSelectors, widgetTimeout)
	if err != nil {
		return fmt.Errorf("end time dropdown: %w", err)
	}
	if err := e.waitForOptions(ctx, drv, startSel); err != nil {
		return err
	}
	if err := e.waitForOptions(ctx, drv, endSel); err != nil {
		return err
	}

	if err := drv.SelectOption(ctx, startSel, slots.HourLabel(slot.StartHour)); err != nil {
		return fmt.Errorf("select start time: %w", err)
	}
	if err := drv.SelectOption(ctx, endSel, slots.HourLabel(slot.EndHour)); err != nil {
		return fmt.Errorf("select end time: %w", err)
	}
	return nil
}

// waitForOptions polls until the dropdown has real options beyond its
// placeholder. Selecting against an empty select silently picks nothing.
func (e *Executor) waitForOptions(ctx context.Context, drv driver.Driver, selector string) error {
	script := fmt.Sprintf(
		`(() => { const el = document.querySelector(%q); return !!el && el.options.length > 1; })()`,
		selector)
	for attempt := 0; attempt < populateAttempts; attempt++ {
		result, err := drv.Evaluate(ctx, script)
		if err != nil {
			return fmt.Errorf("probe dropdown options: %w", err)
		}
		if populated, ok := result.(bool); ok && populated {
			return nil
		}
		e.sleep(populateInterval)
	}
	return fmt.Errorf("time dropdown %s never populated", selector)
}

// submit clicks the submit control and classifies the outcome. A visible
// success indicator is a confirmed booking; no indicator with the submit
// control gone means the site redirected away from the form, which also
// counts as success; neither signal is reported as an ambiguous success
// with no confirmation text.
func (e *Executor) submit(ctx context.Context, drv driver.Driver) (string, error) {
	submitSel, err := drv.WaitForAny(ctx, submitSelectors, widgetTimeout)
	if err != nil {
		return "", fmt.Errorf("submit control: %w", err)
	}
	if err := drv.Click(ctx, submitSel); err != nil {
		return "", fmt.Errorf("click submit: %w", err)
	}
	e.sleep(submitSettleDelay)

	for _, sel := range successSelectors {
		visible, err := drv.IsVisible(ctx, sel)
		if err != nil || !visible {
			continue
		}
		if msg := e.confirmationText(ctx, drv, sel); msg != "" {
			e.log.Info("booking confirmed", "message", msg)
			return msg, nil
		}
		return "booking confirmed", nil
	}

	stillThere, err := drv.IsVisible(ctx, submitSel)
	if err == nil && !stillThere {
		e.log.Info("booking submitted, redirected away from booking form")
		return "booking submitted (redirected away from booking form)", nil
	}

	e.log.Warn("booking submitted but no confirmation indicator found")
	return "booking submitted (no confirmation text)", nil
}

func (e *Executor) confirmationText(ctx context.Context, drv driver.Driver, selector string) string {
	result, err := drv.Evaluate(ctx, fmt.Sprintf(
		`(() => { const el = document.querySelector(%q); return el ? el.textContent.trim() : ''; })()`,
		selector))
	if err != nil {
		return ""
	}
	msg, _ := result.(string)
	return strings.TrimSpace(msg)
}
