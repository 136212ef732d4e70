package scheduling

import (
	"fmt"
	"time"

	"civicdesk/models"
)

// CalendarDay is a working calendar resolved against one concrete date.
type CalendarDay struct {
	Date    string
	Hours   models.DayHours
	Holiday bool
	Closed  bool // holiday, or no hours configured for the weekday
}

// ResolveDay looks up the opening hours that apply on date. The only error
// is an unparseable date; a closed day is reported through Closed.
func ResolveDay(cal models.WorkingCalendar, date string) (CalendarDay, error) {
	d, err := time.Parse(models.DateLayout, date)
	if err != nil {
		return CalendarDay{}, fmt.Errorf("%w: date %q is not YYYY-MM-DD", models.ErrInvalidRequest, date)
	}
	day := CalendarDay{Date: date}
	if cal.IsHoliday(date) {
		day.Holiday = true
		day.Closed = true
		return day, nil
	}
	hours, ok := cal.Weekly[d.Weekday()]
	if !ok {
		day.Closed = true
		return day, nil
	}
	day.Hours = hours
	return day, nil
}

// BuildSlots lays consecutive slots of slotLength minutes over the day's
// opening window. A slot that would overlap a break is not emitted; the
// cursor jumps to the end of that break instead, so the first slot after a
// break starts exactly when the break ends. Breaks are expected sorted, as
// DayHours.Validate leaves them.
func BuildSlots(day CalendarDay, slotLength int) []models.TimeSlot {
	slots := []models.TimeSlot{}
	if day.Closed || slotLength <= 0 {
		return slots
	}

	cursor := day.Hours.Open
	for cursor+slotLength <= day.Hours.Close {
		candidate := models.Interval{Start: cursor, End: cursor + slotLength}
		if brk, ok := overlappingBreak(candidate, day.Hours.Breaks); ok {
			// brk.End > cursor whenever they overlap, so the loop always advances.
			cursor = brk.End
			continue
		}
		slots = append(slots, models.TimeSlot{Start: candidate.Start, End: candidate.End})
		cursor += slotLength
	}
	return slots
}

func overlappingBreak(iv models.Interval, breaks []models.Interval) (models.Interval, bool) {
	for _, b := range breaks {
		if iv.Overlaps(b) {
			return b, true
		}
	}
	return models.Interval{}, false
}

// FindSlot returns the grid slot starting at slotStart.
func FindSlot(slots []models.TimeSlot, slotStart int) (models.TimeSlot, bool) {
	for _, s := range slots {
		if s.Start == slotStart {
			return s, true
		}
	}
	return models.TimeSlot{}, false
}
