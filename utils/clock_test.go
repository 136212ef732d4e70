package utils

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotInstantKeepsWallClockAcrossDST(t *testing.T) {
	paris, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)

	// 2025-03-30: clocks go from 02:00 to 03:00.
	at, err := SlotInstant("2025-03-30", 8*60, paris)
	require.NoError(t, err)
	assert.Equal(t, 8, at.Hour())
	assert.Equal(t, 0, at.Minute())
	assert.True(t, time.Date(2025, 3, 30, 6, 0, 0, 0, time.UTC).Equal(at))

	// 2025-10-26: clocks go from 03:00 back to 02:00.
	at, err = SlotInstant("2025-10-26", 9*60+30, paris)
	require.NoError(t, err)
	assert.Equal(t, 9, at.Hour())
	assert.Equal(t, 30, at.Minute())
}

func TestSlotInstantRejectsBadDate(t *testing.T) {
	_, err := SlotInstant("2025-02-30", 480, time.UTC)
	assert.Error(t, err)
}

func TestFormatAndParseClock(t *testing.T) {
	assert.Equal(t, "08:05", FormatMinutes(485))
	m, err := ParseClock("16:30")
	require.NoError(t, err)
	assert.Equal(t, 990, m)
	_, err = ParseClock("4pm")
	assert.Error(t, err)
}
