package booker

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darren-wangg/court-booker-sub000/internal/driver"
	"github.com/darren-wangg/court-booker-sub000/internal/driver/drivertest"
	"github.com/darren-wangg/court-booker-sub000/internal/models"
	"github.com/darren-wangg/court-booker-sub000/internal/resilience"
	"github.com/darren-wangg/court-booker-sub000/internal/session"
)

type stubAuth struct {
	err    error
	logins int
}

func (s *stubAuth) Login(_ context.Context, _ driver.Driver, _ models.Credentials) error {
	s.logins++
	return s.err
}

type stubLoader struct {
	index models.BookedIndex
	err   error
}

func (s *stubLoader) LoadAll(_ context.Context, _ driver.Driver) (models.BookedIndex, error) {
	return s.index, s.err
}

type stubExecutor struct {
	message string
	err     error
	got     models.BookingRequest
}

func (s *stubExecutor) Run(_ context.Context, _ driver.Driver, req models.BookingRequest) (string, error) {
	s.got = req
	return s.message, s.err
}

type stubSink struct {
	checks   []models.CheckResult
	bookings []models.BookingResult
	sources  []string
	accounts []string
}

func (s *stubSink) SaveCheck(_ context.Context, r models.CheckResult, source, accountID string) error {
	s.checks = append(s.checks, r)
	s.sources = append(s.sources, source)
	s.accounts = append(s.accounts, accountID)
	return nil
}

func (s *stubSink) SaveBooking(_ context.Context, r models.BookingResult, source, accountID string) error {
	s.bookings = append(s.bookings, r)
	s.sources = append(s.sources, source)
	s.accounts = append(s.accounts, accountID)
	return nil
}

type stubHandle struct {
	drv      driver.Driver
	released int
}

func (h *stubHandle) Driver() driver.Driver { return h.drv }
func (h *stubHandle) Release()              { h.released++ }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestBooker(t *testing.T, deps Deps) (*Booker, *stubHandle) {
	t.Helper()
	if deps.Runner == nil {
		deps.Runner = resilience.NewRunner(testLogger())
	}
	if deps.Log == nil {
		deps.Log = testLogger()
	}
	if deps.Accounts == nil {
		deps.Accounts = []models.Credentials{{ID: "primary", Email: "p@example.com", Password: "pw"}}
	}
	if deps.WindowDays == 0 {
		deps.WindowDays = 7
	}
	b := New(deps)
	handle := &stubHandle{drv: drivertest.New()}
	b.acquire = func(ctx context.Context, purpose string) (resilience.Handle, error) {
		return handle, nil
	}
	b.now = func() time.Time {
		return time.Date(2025, time.September, 5, 8, 0, 0, 0, time.UTC)
	}
	return b, handle
}

func TestCheckAvailabilityHappyPath(t *testing.T) {
	index := models.BookedIndex{}
	index.Add("Saturday, September 06", "5:00 PM - 6:00 PM")
	index.Add("Saturday, September 06", "10:00 AM - 11:00 AM")

	auth := &stubAuth{}
	sink := &stubSink{}
	b, handle := newTestBooker(t, Deps{
		Auth:    auth,
		Scraper: &stubLoader{index: index},
		Sink:    sink,
		Source:  "test",
	})

	result := b.CheckAvailability(context.Background(), "primary")

	require.True(t, result.Success)
	require.Len(t, result.Dates, 7)
	assert.Equal(t, 1, auth.logins)
	assert.Equal(t, 1, handle.released)

	saturday := result.Dates[0]
	assert.Equal(t, "Saturday, September 6, 2025", saturday.Date)
	assert.Len(t, saturday.Booked, 2)
	assert.Len(t, saturday.Available, 10)

	// Days the index never mentions are fully open.
	assert.Len(t, result.Dates[1].Available, 12)
	assert.Equal(t, 10+6*12, result.TotalAvailableSlots)

	require.Len(t, sink.checks, 1)
	assert.Equal(t, "test", sink.sources[0])
	assert.Equal(t, "primary", sink.accounts[0])
}

func TestCheckAvailabilityFallbackResolves(t *testing.T) {
	b, _ := newTestBooker(t, Deps{
		Auth:    &stubAuth{},
		Scraper: &stubLoader{},
	})
	b.acquire = func(ctx context.Context, purpose string) (resilience.Handle, error) {
		return nil, session.ErrFallback
	}

	result := b.CheckAvailability(context.Background(), "")

	assert.False(t, result.Success)
	assert.True(t, result.FallbackMode)
	assert.Equal(t, 0, result.TotalAvailableSlots)
	require.Len(t, result.Dates, 7)
	for _, day := range result.Dates {
		assert.Empty(t, day.Booked)
		assert.Empty(t, day.Available)
	}
	assert.NotEmpty(t, result.Error)
}

func TestCheckAvailabilityLoginFailure(t *testing.T) {
	b, handle := newTestBooker(t, Deps{
		Auth:    &stubAuth{err: fmt.Errorf("login verification failed")},
		Scraper: &stubLoader{},
	})

	result := b.CheckAvailability(context.Background(), "primary")

	assert.False(t, result.Success)
	assert.False(t, result.FallbackMode)
	assert.Contains(t, result.Error, "login verification failed")
	assert.Equal(t, 1, handle.released)
}

func TestCheckAvailabilityUnknownAccount(t *testing.T) {
	auth := &stubAuth{}
	b, _ := newTestBooker(t, Deps{Auth: auth, Scraper: &stubLoader{}})

	result := b.CheckAvailability(context.Background(), "nobody")

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "nobody")
	assert.Zero(t, auth.logins)
}

func TestBookTimeSlotSuccess(t *testing.T) {
	exec := &stubExecutor{message: "Reservation confirmed"}
	sink := &stubSink{}
	b, handle := newTestBooker(t, Deps{
		Auth:     &stubAuth{},
		Scraper:  &stubLoader{},
		Executor: exec,
		Sink:     sink,
	})

	req := models.BookingRequest{
		Date:      time.Date(2025, time.September, 6, 0, 0, 0, 0, time.UTC),
		Time:      models.TimeSlot{StartHour: 17, EndHour: 18, Formatted: "5:00 PM - 6:00 PM"},
		Formatted: models.BookingLabels{Date: "Saturday, September 6, 2025", Time: "5:00 PM - 6:00 PM"},
	}
	result := b.BookTimeSlot(context.Background(), "primary", req)

	require.True(t, result.Success)
	assert.Equal(t, "Reservation confirmed", result.Message)
	assert.Equal(t, req, exec.got)
	assert.Equal(t, 1, handle.released)
	require.Len(t, sink.bookings, 1)
}

func TestBookTimeSlotFallbackRetryable(t *testing.T) {
	b, _ := newTestBooker(t, Deps{
		Auth:     &stubAuth{},
		Executor: &stubExecutor{},
	})
	b.acquire = func(ctx context.Context, purpose string) (resilience.Handle, error) {
		return nil, session.ErrFallback
	}

	req := models.BookingRequest{
		Date: time.Date(2025, time.September, 6, 0, 0, 0, 0, time.UTC),
		Time: models.TimeSlot{StartHour: 17, EndHour: 18},
	}
	result := b.BookTimeSlot(context.Background(), "", req)

	assert.False(t, result.Success)
	assert.True(t, result.Retryable)
	assert.NotEmpty(t, result.Error)
}

func TestBookTimeSlotExecutorFailure(t *testing.T) {
	b, _ := newTestBooker(t, Deps{
		Auth:     &stubAuth{},
		Executor: &stubExecutor{err: fmt.Errorf("date not present in booking calendar")},
	})

	req := models.BookingRequest{
		Date: time.Date(2025, time.December, 25, 0, 0, 0, 0, time.UTC),
		Time: models.TimeSlot{StartHour: 10, EndHour: 11},
	}
	result := b.BookTimeSlot(context.Background(), "primary", req)

	assert.False(t, result.Success)
	assert.False(t, result.Retryable)
	assert.Contains(t, result.Error, "booking calendar")
}

func TestBookTimeSlotRejectsBadHours(t *testing.T) {
	exec := &stubExecutor{}
	b, _ := newTestBooker(t, Deps{Auth: &stubAuth{}, Executor: exec})

	req := models.BookingRequest{
		Date: time.Date(2025, time.September, 6, 0, 0, 0, 0, time.UTC),
		Time: models.TimeSlot{StartHour: 18, EndHour: 17},
	}
	result := b.BookTimeSlot(context.Background(), "primary", req)

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "end hour")
	assert.Zero(t, exec.got.Date.Year(), "executor should not run for invalid requests")
}

func TestBookTimeSlotRetriesSessionLoss(t *testing.T) {
	callErr := []error{&driver.SessionLossError{Err: fmt.Errorf("target closed")}, nil}
	calls := 0
	runner := resilience.NewRunner(testLogger())
	runner.RetryDelay = time.Millisecond
	b, handle := newTestBooker(t, Deps{Auth: &stubAuth{}, Executor: &stubExecutor{}, Runner: runner})
	b.deps.Executor = runnerFunc(func(ctx context.Context, drv driver.Driver, req models.BookingRequest) (string, error) {
		err := callErr[calls]
		calls++
		if err != nil {
			return "", err
		}
		return "Reservation confirmed", nil
	})

	req := models.BookingRequest{
		Date: time.Date(2025, time.September, 6, 0, 0, 0, 0, time.UTC),
		Time: models.TimeSlot{StartHour: 17, EndHour: 18},
	}
	result := b.BookTimeSlot(context.Background(), "primary", req)

	require.True(t, result.Success)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 2, handle.released, "each attempt releases its session")
}

type runnerFunc func(ctx context.Context, drv driver.Driver, req models.BookingRequest) (string, error)

func (f runnerFunc) Run(ctx context.Context, drv driver.Driver, req models.BookingRequest) (string, error) {
	return f(ctx, drv, req)
}
