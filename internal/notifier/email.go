// Package notifier emails availability and booking summaries. It is a pure
// consumer of core results: nothing here touches a browser, and a send
// failure never fails the run that produced the result.
package notifier

import (
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/darren-wangg/court-booker-sub000/internal/config"
	"github.com/darren-wangg/court-booker-sub000/internal/models"
)

// Re-alerting the same set of openings every monitor tick is noise; a day's
// availability fingerprint is suppressed until this window lapses.
const dedupWindow = time.Hour

const dedupSize = 512

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailNotifier sends plain-text summaries over SMTP.
type EmailNotifier struct {
	config config.EmailConfig
	auth   smtp.Auth
	seen   *expirable.LRU[string, struct{}]

	send sendFunc
}

func NewEmailNotifier(cfg config.EmailConfig) *EmailNotifier {
	return &EmailNotifier{
		config: cfg,
		auth:   smtp.PlainAuth("", cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.Host),
		seen:   expirable.NewLRU[string, struct{}](dedupSize, nil, dedupWindow),
		send:   smtp.SendMail,
	}
}

// NotifyAvailability emails the days that have open slots. Fallback-mode
// results are announced too, so a dead automation engine does not silently
// stop the mail cadence. Returns nil without sending when there is nothing
// new to report.
func (e *EmailNotifier) NotifyAvailability(result models.CheckResult) error {
	if !e.config.Enabled() {
		return nil
	}

	if result.FallbackMode {
		if !e.firstSighting("fallback") {
			return nil
		}
		return e.deliver(e.config.Subject, e.buildFallbackBody(result))
	}

	open := openDays(result)
	if len(open) == 0 {
		return nil
	}
	if !e.firstSighting(fingerprint(open)) {
		return nil
	}
	return e.deliver(e.config.Subject, e.buildAvailabilityBody(open, result.CheckedAt))
}

// NotifyBooking emails the outcome of a booking attempt, success or not.
func (e *EmailNotifier) NotifyBooking(result models.BookingResult) error {
	if !e.config.Enabled() {
		return nil
	}
	subject := "Court booking failed"
	if result.Success {
		subject = "Court booked"
	}
	return e.deliver(subject, e.buildBookingBody(result))
}

// TestConnection sends a short test email with the configured settings.
func (e *EmailNotifier) TestConnection() error {
	body := fmt.Sprintf("Test email from the court booker.\nTime: %s\n",
		time.Now().Format("2006-01-02 15:04:05"))
	return e.deliver(e.config.Subject, body)
}

func (e *EmailNotifier) deliver(subject, body string) error {
	message := e.buildMessage(subject, body)
	addr := fmt.Sprintf("%s:%d", e.config.SMTP.Host, e.config.SMTP.Port)
	if err := e.send(addr, e.auth, e.config.From, e.config.To, []byte(message)); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

// firstSighting records the key and reports whether it was new.
func (e *EmailNotifier) firstSighting(key string) bool {
	if _, ok := e.seen.Get(key); ok {
		return false
	}
	e.seen.Add(key, struct{}{})
	return true
}

func openDays(result models.CheckResult) []models.DayResult {
	var open []models.DayResult
	for _, day := range result.Dates {
		if len(day.Available) > 0 {
			open = append(open, day)
		}
	}
	return open
}

// fingerprint identifies one availability picture, so the same openings are
// not announced twice inside the dedup window.
func fingerprint(days []models.DayResult) string {
	var sb strings.Builder
	for _, day := range days {
		sb.WriteString(day.Date)
		sb.WriteString("|")
		sb.WriteString(strings.Join(day.Available, ","))
		sb.WriteString(";")
	}
	return sb.String()
}

func (e *EmailNotifier) buildAvailabilityBody(open []models.DayResult, checkedAt time.Time) string {
	var sb strings.Builder

	sb.WriteString("Court time is open!\n\n")
	for _, day := range open {
		sb.WriteString(fmt.Sprintf("%s (%d open):\n", day.Date, len(day.Available)))
		for _, slot := range day.Available {
			sb.WriteString(fmt.Sprintf("  - %s\n", slot))
		}
		sb.WriteString("\n")
	}
	sb.WriteString(fmt.Sprintf("Checked at: %s\n", checkedAt.Format("2006-01-02 15:04:05")))
	sb.WriteString("Book quickly before it fills up!\n")

	return sb.String()
}

func (e *EmailNotifier) buildFallbackBody(result models.CheckResult) string {
	var sb strings.Builder

	sb.WriteString("Availability is currently unknown: no automation engine could be started.\n")
	sb.WriteString("The checker will keep trying on its normal schedule.\n\n")
	sb.WriteString(fmt.Sprintf("Checked at: %s\n", result.CheckedAt.Format("2006-01-02 15:04:05")))

	return sb.String()
}

func (e *EmailNotifier) buildBookingBody(result models.BookingResult) string {
	var sb strings.Builder

	if result.Success {
		sb.WriteString("Booking succeeded.\n\n")
	} else {
		sb.WriteString("Booking failed.\n\n")
	}
	if result.Request.Formatted.Date != "" {
		sb.WriteString(fmt.Sprintf("Date: %s\n", result.Request.Formatted.Date))
	} else if !result.Request.Date.IsZero() {
		sb.WriteString(fmt.Sprintf("Date: %s\n", result.Request.Date.Format("Monday, January 2, 2006")))
	}
	if result.Request.Time.Formatted != "" {
		sb.WriteString(fmt.Sprintf("Time: %s\n", result.Request.Time.Formatted))
	}
	if result.Message != "" {
		sb.WriteString(fmt.Sprintf("Details: %s\n", result.Message))
	}
	if result.Error != "" {
		sb.WriteString(fmt.Sprintf("Error: %s\n", result.Error))
		if result.Retryable {
			sb.WriteString("This failure is transient; try again.\n")
		}
	}

	return sb.String()
}

func (e *EmailNotifier) buildMessage(subject, body string) string {
	var message strings.Builder

	message.WriteString(fmt.Sprintf("From: %s\r\n", e.config.From))
	message.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(e.config.To, ", ")))
	message.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	message.WriteString("MIME-Version: 1.0\r\n")
	message.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	message.WriteString("\r\n")
	message.WriteString(body)

	return message.String()
}
