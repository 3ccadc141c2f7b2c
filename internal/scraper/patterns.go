package scraper

import "regexp"

// The site renders date headers like "Saturday, September 06" (weekday,
// month name, zero-padded day, never a year) and time rows like
// "5:00 PM - 6:00 PM". These labels are the ground truth unit the slot
// model compares against, verbatim.
var (
	dateLabelPattern = regexp.MustCompile(`^[A-Z][a-z]+,\s+[A-Z][a-z]+\s+\d{1,2}$`)
	timeLabelPattern = regexp.MustCompile(`^\d{1,2}:\d{2}\s+[AP]M\s+-\s+\d{1,2}:\d{2}\s+[AP]M$`)
)
