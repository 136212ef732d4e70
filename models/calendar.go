package models

import (
	"fmt"
	"sort"
	"time"
)

// Interval is a half-open window [Start, End) in minutes from midnight.
type Interval struct {
	Start int `bson:"start" json:"start"`
	End   int `bson:"end" json:"end"`
}

// Overlaps reports whether two half-open intervals share at least one minute.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start < other.End && other.Start < iv.End
}

// DayHours is the opening definition for one weekday, or for one concrete
// date once resolved against the holiday table.
type DayHours struct {
	Open   int        `bson:"open" json:"open"`   // minutes from midnight (e.g., 480 for 08:00)
	Close  int        `bson:"close" json:"close"` // minutes from midnight (e.g., 960 for 16:00)
	Breaks []Interval `bson:"breaks,omitempty" json:"breaks,omitempty"`
}

// Validate checks open < close and that breaks sit inside the
// opening window without overlapping each other. Breaks are sorted in place.
func (d *DayHours) Validate() error {
	if d.Open < 0 || d.Close > MinutesPerDay {
		return fmt.Errorf("%w: opening hours [%d, %d) outside the day", ErrInvalidConfig, d.Open, d.Close)
	}
	if d.Open >= d.Close {
		return fmt.Errorf("%w: open %d must be before close %d", ErrInvalidConfig, d.Open, d.Close)
	}
	sort.Slice(d.Breaks, func(i, j int) bool { return d.Breaks[i].Start < d.Breaks[j].Start })
	for i, b := range d.Breaks {
		if b.Start >= b.End {
			return fmt.Errorf("%w: break %d has start %d not before end %d", ErrInvalidConfig, i, b.Start, b.End)
		}
		if b.Start < d.Open || b.End > d.Close {
			return fmt.Errorf("%w: break [%d, %d) not within [%d, %d)", ErrInvalidConfig, b.Start, b.End, d.Open, d.Close)
		}
		if i > 0 && d.Breaks[i-1].Overlaps(b) {
			return fmt.Errorf("%w: breaks [%d, %d) and [%d, %d) overlap", ErrInvalidConfig,
				d.Breaks[i-1].Start, d.Breaks[i-1].End, b.Start, b.End)
		}
	}
	return nil
}

// WorkingCalendar is an organization's weekly opening schedule plus holidays.
type WorkingCalendar struct {
	OrganizationID string                    `bson:"organization_id" json:"organizationId"`
	Timezone       string                    `bson:"timezone,omitempty" json:"timezone,omitempty"`
	Weekly         map[time.Weekday]DayHours `bson:"weekly" json:"weekly"`     // weekdays absent from the map are closed
	Holidays       []string                  `bson:"holidays" json:"holidays"` // "2006-01-02"
	UpdatedAt      time.Time                 `bson:"updated_at" json:"updatedAt"`
}

// Validate checks every configured weekday and the holiday date format.
func (wc *WorkingCalendar) Validate() error {
	if wc.OrganizationID == "" {
		return fmt.Errorf("%w: organization is required", ErrInvalidConfig)
	}
	if wc.Timezone != "" {
		if _, err := time.LoadLocation(wc.Timezone); err != nil {
			return fmt.Errorf("%w: unknown timezone %q", ErrInvalidConfig, wc.Timezone)
		}
	}
	for wd, hours := range wc.Weekly {
		if wd < time.Sunday || wd > time.Saturday {
			return fmt.Errorf("%w: unknown weekday %d", ErrInvalidConfig, wd)
		}
		if err := hours.Validate(); err != nil {
			return fmt.Errorf("%s: %w", wd, err)
		}
		wc.Weekly[wd] = hours
	}
	for _, h := range wc.Holidays {
		if _, err := time.Parse(DateLayout, h); err != nil {
			return fmt.Errorf("%w: holiday %q is not a YYYY-MM-DD date", ErrInvalidConfig, h)
		}
	}
	return nil
}

// IsHoliday reports whether date appears in the holiday set.
func (wc WorkingCalendar) IsHoliday(date string) bool {
	for _, h := range wc.Holidays {
		if h == date {
			return true
		}
	}
	return false
}
