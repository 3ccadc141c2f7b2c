package cmd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBookingRequest(t *testing.T) {
	req, err := parseBookingRequest("2025-09-06", 17)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2025, time.September, 6, 0, 0, 0, 0, time.UTC), req.Date)
	assert.Equal(t, "5:00 PM - 6:00 PM", req.Time.Formatted)
	assert.Equal(t, 18, req.Time.EndHour)
	assert.Equal(t, "Saturday, September 6, 2025", req.Formatted.Date)
	assert.Equal(t, "5:00 PM - 6:00 PM", req.Formatted.Time)
}

func TestParseBookingRequestRejectsBadInput(t *testing.T) {
	_, err := parseBookingRequest("06/09/2025", 17)
	assert.ErrorContains(t, err, "expected YYYY-MM-DD")

	_, err = parseBookingRequest("2025-09-06", 9)
	assert.ErrorContains(t, err, "outside operating hours")

	_, err = parseBookingRequest("2025-09-06", 22)
	assert.ErrorContains(t, err, "outside operating hours")
}
