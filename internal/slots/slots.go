// Package slots is the pure slot model: canonical operating-hour slots, the
// forward-looking date window, and the booked/available computation. Nothing
// here touches a browser.
package slots

import (
	"fmt"
	"strings"
	"time"

	"github.com/darren-wangg/court-booker-sub000/internal/models"
)

const (
	// Courts open at 10:00 and the last slot starts at 21:00.
	OpenHour  = 10
	CloseHour = 22
)

// ReferenceZone is the club's local time zone. The window is always computed
// here so results do not drift when the process runs in another region.
const ReferenceZone = "America/Los_Angeles"

// HourLabel formats a 24-hour integer as the site's 12-hour label.
func HourLabel(hour int) string {
	switch {
	case hour == 0:
		return "12:00 AM"
	case hour == 12:
		return "12:00 PM"
	case hour < 12:
		return fmt.Sprintf("%d:00 AM", hour)
	default:
		return fmt.Sprintf("%d:00 PM", hour-12)
	}
}

// Canonical returns the fixed hourly slots for the operating window,
// one per hour in [OpenHour, CloseHour). Deterministic across calls.
func Canonical() []models.TimeSlot {
	out := make([]models.TimeSlot, 0, CloseHour-OpenHour)
	for h := OpenHour; h < CloseHour; h++ {
		out = append(out, models.TimeSlot{
			StartHour: h,
			EndHour:   h + 1,
			Formatted: fmt.Sprintf("%s - %s", HourLabel(h), HourLabel(h+1)),
		})
	}
	return out
}

// Window returns one entry per day for the given number of days starting
// tomorrow, computed in the reference zone.
func Window(now time.Time, days int) []models.DateWindowEntry {
	loc, err := time.LoadLocation(ReferenceZone)
	if err != nil {
		loc = time.UTC
	}
	local := now.In(loc)
	out := make([]models.DateWindowEntry, 0, days)
	for i := 1; i <= days; i++ {
		d := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, i)
		out = append(out, models.DateWindowEntry{
			Date:      d,
			DayOfWeek: d.Weekday().String(),
			MonthName: d.Month().String(),
			Day:       d.Day(),
			Year:      d.Year(),
		})
	}
	return out
}

// RequestFor builds the booking request for a start hour on a date. Both
// wire entry points (CLI and HTTP) construct requests here, so the
// operating-hours check and label formats cannot drift between them.
func RequestFor(date time.Time, startHour int) (models.BookingRequest, error) {
	if startHour < OpenHour || startHour >= CloseHour {
		return models.BookingRequest{}, fmt.Errorf("start hour %d outside operating hours %d-%d",
			startHour, OpenHour, CloseHour-1)
	}
	label := fmt.Sprintf("%s - %s", HourLabel(startHour), HourLabel(startHour+1))
	return models.BookingRequest{
		Date: date,
		Time: models.TimeSlot{
			StartHour: startHour,
			EndHour:   startHour + 1,
			Formatted: label,
		},
		Formatted: models.BookingLabels{
			Date: date.Format("Monday, January 2, 2006"),
			Time: label,
		},
	}, nil
}

// ForDay correlates one window entry with the scraped index and splits the
// canonical slots into booked and available. Matching is by month name and
// day number only: the site never renders a year on reservation rows, so the
// index keys have none to compare. Comparison between scraped time labels and
// canonical labels is exact string equality; the site's labels are the ground
// truth unit, and any drift between the two is a bug.
func ForDay(entry models.DateWindowEntry, index models.BookedIndex) models.DayResult {
	var booked []string
	for label := range index {
		if labelMatchesDay(label, entry) {
			booked = index.Times(label)
			break
		}
	}

	bookedSet := make(map[string]struct{}, len(booked))
	for _, t := range booked {
		bookedSet[t] = struct{}{}
	}

	canonical := Canonical()
	available := make([]string, 0, len(canonical))
	for _, slot := range canonical {
		if _, taken := bookedSet[slot.Formatted]; !taken {
			available = append(available, slot.Formatted)
		}
	}
	if booked == nil {
		booked = []string{}
	}

	return models.DayResult{
		Date:       entry.Label(),
		Booked:     booked,
		Available:  available,
		TotalSlots: len(canonical),
		CheckedAt:  time.Now(),
	}
}

// labelMatchesDay reports whether a scraped date label like
// "Saturday, September 06" names the entry's month and day. The weekday part
// is ignored (the site's label and the computed window can disagree on
// abbreviations) and so is the year, which the site omits entirely.
func labelMatchesDay(label string, entry models.DateWindowEntry) bool {
	if !strings.Contains(label, entry.MonthName) {
		return false
	}
	day, ok := trailingDayNumber(label)
	return ok && day == entry.Day
}

// trailingDayNumber extracts the day-of-month from the end of a scraped date
// label, tolerating a leading zero ("September 06").
func trailingDayNumber(label string) (int, bool) {
	fields := strings.Fields(strings.TrimSpace(label))
	if len(fields) == 0 {
		return 0, false
	}
	last := strings.Trim(fields[len(fields)-1], ",.")
	var day int
	if _, err := fmt.Sscanf(last, "%d", &day); err != nil {
		return 0, false
	}
	if day < 1 || day > 31 {
		return 0, false
	}
	return day, true
}
