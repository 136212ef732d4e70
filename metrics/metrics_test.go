package metrics

import (
	"errors"
	"fmt"
	"testing"

	"civicdesk/models"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestBookingResult(t *testing.T) {
	assert.Equal(t, ResultBooked, BookingResult(nil))
	assert.Equal(t, ResultConflict, BookingResult(fmt.Errorf("slot 08:00: %w", models.ErrSlotConflict)))
	assert.Equal(t, ResultError, BookingResult(models.ErrTransient))
	assert.Equal(t, ResultRejected, BookingResult(errors.New("bad input")))
}

func TestBookingsTotalIsRegistered(t *testing.T) {
	before := testutil.ToFloat64(BookingsTotal.WithLabelValues(ResultConflict))
	BookingsTotal.WithLabelValues(ResultConflict).Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(BookingsTotal.WithLabelValues(ResultConflict)))

	families, err := Registry.Gather()
	assert.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["scheduling_bookings_total"])
}
