package models

import (
	"sort"
	"time"
)

// Credentials identifies one configured account on the reservation site.
// Accounts are immutable for the process lifetime and selected by ID.
type Credentials struct {
	ID       string `yaml:"id" json:"id"`
	Email    string `yaml:"email" json:"email"`
	Password string `yaml:"password" json:"-"`
}

// TimeSlot is one canonical hourly window in the club's operating hours.
type TimeSlot struct {
	StartHour int    `yaml:"start_hour" json:"start_hour"` // 0..23
	EndHour   int    `yaml:"end_hour" json:"end_hour"`     // 0..23
	Formatted string `yaml:"formatted" json:"formatted"`   // "5:00 PM - 6:00 PM"
}

// DateWindowEntry is one day in the forward-looking check window.
type DateWindowEntry struct {
	Date      time.Time `json:"date"`
	DayOfWeek string    `json:"day_of_week"` // "Saturday"
	MonthName string    `json:"month_name"`  // "September"
	Day       int       `json:"day"`
	Year      int       `json:"year"`
}

// Label renders the entry the way day results present dates,
// e.g. "Saturday, September 6, 2025".
func (e DateWindowEntry) Label() string {
	return e.Date.Format("Monday, January 2, 2006")
}

// BookedIndex maps a raw scraped date label (e.g. "Saturday, September 06",
// no year) to the set of raw scraped time labels booked on that date. Built
// fresh on every scrape and never persisted; set semantics dedupe entries
// that repeat across overlapping pages.
type BookedIndex map[string]map[string]struct{}

// Add records one (date, time) pair.
func (idx BookedIndex) Add(dateLabel, timeLabel string) {
	times, ok := idx[dateLabel]
	if !ok {
		times = make(map[string]struct{})
		idx[dateLabel] = times
	}
	times[timeLabel] = struct{}{}
}

// Times returns the time labels booked under a date label, sorted for
// deterministic output.
func (idx BookedIndex) Times(dateLabel string) []string {
	set, ok := idx[dateLabel]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Size reports the total number of (date, time) pairs in the index.
func (idx BookedIndex) Size() int {
	n := 0
	for _, times := range idx {
		n += len(times)
	}
	return n
}

// DayResult is the availability verdict for a single day. Booked and
// Available always partition the canonical slot set: no slot in both,
// no slot in neither.
type DayResult struct {
	Date       string    `json:"date"`
	Booked     []string  `json:"booked"`
	Available  []string  `json:"available"`
	TotalSlots int       `json:"total_slots"`
	CheckedAt  time.Time `json:"checked_at"`
}

// CheckResult is the outcome of one availability check. The caller owns it
// after return; the core holds no state between invocations.
type CheckResult struct {
	Success             bool        `json:"success"`
	Dates               []DayResult `json:"dates"`
	TotalAvailableSlots int         `json:"total_available_slots"`
	CheckedAt           time.Time   `json:"checked_at"`
	FallbackMode        bool        `json:"fallback_mode,omitempty"`
	Error               string      `json:"error,omitempty"`
}

// BookingLabels carries the human-facing date/time strings for a request,
// as produced by the booking-request source.
type BookingLabels struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

// BookingRequest asks for one slot on one date. Immutable; supplied by the
// external booking-request source.
type BookingRequest struct {
	Date      time.Time     `json:"date"`
	Time      TimeSlot      `json:"time"`
	Formatted BookingLabels `json:"formatted"`
}

// BookingResult is the structured outcome of one booking attempt. A failed
// booking is still a result, never a panic, so the notification collaborator
// can always report the outcome to the requester.
type BookingResult struct {
	Success   bool           `json:"success"`
	Request   BookingRequest `json:"booking_request"`
	Message   string         `json:"message,omitempty"`
	Error     string         `json:"error,omitempty"`
	Retryable bool           `json:"retryable,omitempty"`
}
