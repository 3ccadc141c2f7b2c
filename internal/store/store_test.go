package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darren-wangg/court-booker-sub000/internal/models"
)

func checkFixture() models.CheckResult {
	return models.CheckResult{Success: true, CheckedAt: time.Now()}
}

func bookingFixture() models.BookingResult {
	return models.BookingResult{Success: true, Message: "Reservation confirmed"}
}

func TestBuildInsert(t *testing.T) {
	id := uuid.New()
	query, args, err := buildInsert(id, KindCheck, "primary", "api", true, []byte(`{"success":true}`))
	require.NoError(t, err)

	assert.Equal(t,
		"INSERT INTO results (id,kind,account_id,source,success,payload) VALUES ($1,$2,$3,$4,$5,$6)",
		query)
	require.Len(t, args, 6)
	assert.Equal(t, id, args[0])
	assert.Equal(t, KindCheck, args[1])
	assert.Equal(t, "primary", args[2])
	assert.Equal(t, "api", args[3])
	assert.Equal(t, true, args[4])
}

func TestBuildRecentFiltersByKind(t *testing.T) {
	query, args, err := buildRecent(KindBooking, 5)
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT id, kind, account_id, source, success, payload, created_at FROM results WHERE kind = $1 ORDER BY created_at DESC LIMIT 5",
		query)
	assert.Equal(t, []any{KindBooking}, args)
}

func TestBuildRecentAllKindsWithDefaultLimit(t *testing.T) {
	query, args, err := buildRecent("", 0)
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT id, kind, account_id, source, success, payload, created_at FROM results ORDER BY created_at DESC LIMIT 20",
		query)
	assert.Empty(t, args)
}

func TestNilStoreIsDisabled(t *testing.T) {
	var s *Store

	require.NoError(t, s.SaveCheck(context.Background(), checkFixture(), "cli", "primary"))
	require.NoError(t, s.SaveBooking(context.Background(), bookingFixture(), "cli", "primary"))

	recs, err := s.Recent(context.Background(), "", 10)
	require.NoError(t, err)
	assert.Empty(t, recs)

	s.Close()
}
