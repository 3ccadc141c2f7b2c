// Package booker is the automation core's entry point: it wires session
// acquisition, login, scraping and the booking executor into the two public
// operations, CheckAvailability and BookTimeSlot. Each invocation owns
// exactly one browser session end to end and holds no state after returning.
package booker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/darren-wangg/court-booker-sub000/internal/driver"
	"github.com/darren-wangg/court-booker-sub000/internal/models"
	"github.com/darren-wangg/court-booker-sub000/internal/resilience"
	"github.com/darren-wangg/court-booker-sub000/internal/session"
	"github.com/darren-wangg/court-booker-sub000/internal/slots"
)

// Authenticator logs an account in over a driver.
type Authenticator interface {
	Login(ctx context.Context, drv driver.Driver, creds models.Credentials) error
}

// AvailabilityLoader scrapes the full reservation listing.
type AvailabilityLoader interface {
	LoadAll(ctx context.Context, drv driver.Driver) (models.BookedIndex, error)
}

// BookingRunner executes the booking UI flow.
type BookingRunner interface {
	Run(ctx context.Context, drv driver.Driver, req models.BookingRequest) (string, error)
}

// ResultSink persists operation results. Implementations must tolerate
// concurrent invocations; the core never shares anything else between them.
type ResultSink interface {
	SaveCheck(ctx context.Context, result models.CheckResult, source, accountID string) error
	SaveBooking(ctx context.Context, result models.BookingResult, source, accountID string) error
}

// Deps carries the collaborators for a Booker.
type Deps struct {
	Sessions   *session.Manager
	Auth       Authenticator
	Scraper    AvailabilityLoader
	Executor   BookingRunner
	Runner     *resilience.Runner
	Accounts   []models.Credentials
	WindowDays int
	Sink       ResultSink // optional; nil disables persistence
	Source     string     // label recorded with persisted results
	Log        *slog.Logger
}

// Booker exposes the two core operations.
type Booker struct {
	deps Deps

	acquire func(ctx context.Context, purpose string) (resilience.Handle, error)
	now     func() time.Time
}

func New(deps Deps) *Booker {
	if deps.Source == "" {
		deps.Source = "core"
	}
	b := &Booker{
		deps: deps,
		now:  time.Now,
	}
	b.acquire = func(ctx context.Context, purpose string) (resilience.Handle, error) {
		s, err := deps.Sessions.Acquire(ctx, purpose)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return b
}

// CheckAvailability logs in, scrapes every reservation page and computes
// per-day availability for the configured window. It always returns a
// result: infrastructure exhaustion degrades to a fallback-mode result
// instead of an error so callers can still report "unknown availability".
func (b *Booker) CheckAvailability(ctx context.Context, accountID string) models.CheckResult {
	checkedAt := b.now()
	window := slots.Window(checkedAt, b.deps.WindowDays)

	creds, err := b.account(accountID)
	if err != nil {
		return b.saveCheck(ctx, accountID, models.CheckResult{
			CheckedAt: checkedAt,
			Error:     err.Error(),
		})
	}

	var index models.BookedIndex
	err = b.deps.Runner.WithDriver(ctx,
		func(ctx context.Context) (resilience.Handle, error) { return b.acquire(ctx, "check") },
		func(ctx context.Context, drv driver.Driver) error {
			if err := b.deps.Auth.Login(ctx, drv, creds); err != nil {
				return err
			}
			idx, err := b.deps.Scraper.LoadAll(ctx, drv)
			if err != nil {
				return err
			}
			index = idx
			return nil
		})

	if errors.Is(err, session.ErrFallback) {
		b.deps.Log.Warn("availability check degraded to fallback mode", "account", creds.ID)
		return b.saveCheck(ctx, creds.ID, fallbackResult(window, checkedAt))
	}
	if err != nil {
		b.deps.Log.Error("availability check failed", "account", creds.ID, "error", err)
		return b.saveCheck(ctx, creds.ID, models.CheckResult{
			CheckedAt: checkedAt,
			Error:     err.Error(),
		})
	}

	days := make([]models.DayResult, 0, len(window))
	total := 0
	for _, entry := range window {
		day := slots.ForDay(entry, index)
		total += len(day.Available)
		days = append(days, day)
	}

	b.deps.Log.Info("availability check complete",
		"account", creds.ID, "days", len(days), "available", total)
	return b.saveCheck(ctx, creds.ID, models.CheckResult{
		Success:             true,
		Dates:               days,
		TotalAvailableSlots: total,
		CheckedAt:           checkedAt,
	})
}

// BookTimeSlot logs in and runs the booking flow for one request. The
// outcome is always a structured result; session-tier exhaustion is an
// infrastructure condition, not a booking-logic failure, and is marked
// retryable.
func (b *Booker) BookTimeSlot(ctx context.Context, accountID string, req models.BookingRequest) models.BookingResult {
	creds, err := b.account(accountID)
	if err != nil {
		return b.saveBooking(ctx, accountID, models.BookingResult{
			Request: req,
			Error:   err.Error(),
		})
	}
	if err := validateRequest(req); err != nil {
		return b.saveBooking(ctx, creds.ID, models.BookingResult{
			Request: req,
			Error:   err.Error(),
		})
	}

	var message string
	err = b.deps.Runner.WithDriver(ctx,
		func(ctx context.Context) (resilience.Handle, error) { return b.acquire(ctx, "book") },
		func(ctx context.Context, drv driver.Driver) error {
			if err := b.deps.Auth.Login(ctx, drv, creds); err != nil {
				return err
			}
			msg, err := b.deps.Executor.Run(ctx, drv, req)
			if err != nil {
				return err
			}
			message = msg
			return nil
		})

	if errors.Is(err, session.ErrFallback) {
		b.deps.Log.Warn("booking degraded: no automation engine", "account", creds.ID)
		return b.saveBooking(ctx, creds.ID, models.BookingResult{
			Request:   req,
			Error:     "no automation engine available",
			Retryable: true,
		})
	}
	if err != nil {
		b.deps.Log.Error("booking failed", "account", creds.ID, "error", err)
		return b.saveBooking(ctx, creds.ID, models.BookingResult{
			Request: req,
			Error:   err.Error(),
		})
	}

	b.deps.Log.Info("booking succeeded", "account", creds.ID, "message", message)
	return b.saveBooking(ctx, creds.ID, models.BookingResult{
		Success: true,
		Request: req,
		Message: message,
	})
}

func (b *Booker) account(id string) (models.Credentials, error) {
	if len(b.deps.Accounts) == 0 {
		return models.Credentials{}, fmt.Errorf("no accounts configured")
	}
	if id == "" {
		return b.deps.Accounts[0], nil
	}
	for _, acct := range b.deps.Accounts {
		if acct.ID == id {
			return acct, nil
		}
	}
	return models.Credentials{}, fmt.Errorf("unknown account id %q", id)
}

func validateRequest(req models.BookingRequest) error {
	if req.Date.IsZero() {
		return fmt.Errorf("booking request has no date")
	}
	s := req.Time
	if s.StartHour < 0 || s.StartHour > 23 || s.EndHour < 0 || s.EndHour > 23 {
		return fmt.Errorf("booking request hours out of range: %d-%d", s.StartHour, s.EndHour)
	}
	if s.EndHour <= s.StartHour {
		return fmt.Errorf("booking request end hour must follow start hour")
	}
	return nil
}

// fallbackResult reports unknown availability for every window day: the
// result still carries one entry per day so downstream consumers keep their
// shape, but with zeroed slot data.
func fallbackResult(window []models.DateWindowEntry, checkedAt time.Time) models.CheckResult {
	days := make([]models.DayResult, 0, len(window))
	for _, entry := range window {
		days = append(days, models.DayResult{
			Date:      entry.Label(),
			Booked:    []string{},
			Available: []string{},
			CheckedAt: checkedAt,
		})
	}
	return models.CheckResult{
		Dates:               days,
		TotalAvailableSlots: 0,
		CheckedAt:           checkedAt,
		FallbackMode:        true,
		Error:               "no automation engine available; availability unknown",
	}
}

func (b *Booker) saveCheck(ctx context.Context, accountID string, result models.CheckResult) models.CheckResult {
	if b.deps.Sink != nil {
		if err := b.deps.Sink.SaveCheck(ctx, result, b.deps.Source, accountID); err != nil {
			b.deps.Log.Warn("persisting check result failed", "error", err)
		}
	}
	return result
}

func (b *Booker) saveBooking(ctx context.Context, accountID string, result models.BookingResult) models.BookingResult {
	if b.deps.Sink != nil {
		if err := b.deps.Sink.SaveBooking(ctx, result, b.deps.Source, accountID); err != nil {
			b.deps.Log.Warn("persisting booking result failed", "error", err)
		}
	}
	return result
}
