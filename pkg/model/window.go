package model

import (
	"fmt"
	"time"
)

const (
	DateLayout = "2006-01-02"
	HourLayout = "15:04"

	minutesPerDay = 24 * 60
)

// Window is a requested or booked interval: one court, one calendar date,
// a half-open [start, end) range of whole hours. Overnight windows cross
// midnight and their duration is computed modulo 24h.
type Window struct {
	CourtID   string `json:"court_id" bson:"court_id" validate:"required"`
	Date      string `json:"date" bson:"date" validate:"required,datetime=2006-01-02"`
	Start     string `json:"start" bson:"start" validate:"required,datetime=15:04"`
	End       string `json:"end" bson:"end" validate:"required,datetime=15:04"`
	Overnight bool   `json:"overnight,omitempty" bson:"overnight,omitempty"`
}

// ParseHour converts "HH:MM" to minutes since midnight.
func ParseHour(s string) (int, error) {
	t, err := time.Parse(HourLayout, s)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: must be HH:MM", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// Validate checks the window is well-formed: parseable date and times,
// on-the-hour boundaries, and a positive whole-hour duration.
func (w Window) Validate() error {
	if _, err := time.Parse(DateLayout, w.Date); err != nil {
		return fmt.Errorf("invalid date %q: must be YYYY-MM-DD", w.Date)
	}
	startMin, err := ParseHour(w.Start)
	if err != nil {
		return err
	}
	endMin, err := ParseHour(w.End)
	if err != nil {
		return err
	}
	if startMin%60 != 0 || endMin%60 != 0 {
		return fmt.Errorf("window %s-%s must start and end on the hour", w.Start, w.End)
	}
	if !w.Overnight && endMin <= startMin {
		return fmt.Errorf("end %s must be after start %s", w.End, w.Start)
	}
	if w.Overnight && endMin >= startMin {
		return fmt.Errorf("overnight window %s-%s must cross midnight", w.Start, w.End)
	}
	return nil
}

// Hours returns the window duration in whole hours, modulo 24 for
// overnight windows. Call Validate first; Hours assumes a valid window.
func (w Window) Hours() int {
	startMin, _ := ParseHour(w.Start)
	endMin, _ := ParseHour(w.End)
	span := endMin - startMin
	if w.Overnight {
		span += minutesPerDay
	}
	return span / 60
}

// StartTime returns the window start as a UTC instant.
func (w Window) StartTime() time.Time {
	day, _ := time.Parse(DateLayout, w.Date)
	startMin, _ := ParseHour(w.Start)
	return day.Add(time.Duration(startMin) * time.Minute).UTC()
}

// EndTime returns the window end as a UTC instant. For overnight windows
// the end falls on the following day.
func (w Window) EndTime() time.Time {
	return w.StartTime().Add(time.Duration(w.Hours()) * time.Hour)
}

// Weekday returns the booking date's weekday (Sunday=0..Saturday=6).
// Overnight windows are attributed to the date they start on.
func (w Window) Weekday() time.Weekday {
	day, _ := time.Parse(DateLayout, w.Date)
	return day.Weekday()
}

// SlotStarts returns the start instant of every hour slot the window
// covers, in ascending order.
func (w Window) SlotStarts() []time.Time {
	hours := w.Hours()
	starts := make([]time.Time, 0, hours)
	t := w.StartTime()
	for i := 0; i < hours; i++ {
		starts = append(starts, t.Add(time.Duration(i)*time.Hour))
	}
	return starts
}

// Overlaps reports whether two windows on the same court intersect in
// absolute time. Ranges are half-open, so back-to-back windows do not
// overlap.
func (w Window) Overlaps(other Window) bool {
	if w.CourtID != other.CourtID {
		return false
	}
	return w.StartTime().Before(other.EndTime()) && w.EndTime().After(other.StartTime())
}

func (w Window) String() string {
	return fmt.Sprintf("%s %s %s-%s", w.CourtID, w.Date, w.Start, w.End)
}
