package model

import (
	"fmt"
	"time"
)

// Rule kinds. Each kind carries only the fields it needs; the
// kind-specific requirements are enforced by the catalog validator so
// invalid combinations cannot be persisted.
const (
	RulePeakHours  = "peak_hours"
	RuleWeekend    = "weekend"
	RuleCustomDays = "custom_days"
)

// PricingRule is a demand-based multiplier attached to exactly one court.
//
//   - peak_hours: requires Start/End (same-day, end after start); DaysOfWeek
//     optionally narrows the weekdays it fires on.
//   - weekend: no extra fields; fires on Saturday and Sunday.
//   - custom_days: requires DaysOfWeek.
type PricingRule struct {
	ID         string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	CourtID    string    `json:"court_id" bson:"court_id" validate:"required,mongodb"`
	Kind       string    `json:"kind" bson:"kind" validate:"required,oneof=peak_hours weekend custom_days"`
	Multiplier float64   `json:"multiplier" bson:"multiplier" validate:"gte=0"`
	Start      string    `json:"start,omitempty" bson:"start,omitempty" validate:"omitempty,datetime=15:04"`
	End        string    `json:"end,omitempty" bson:"end,omitempty" validate:"omitempty,datetime=15:04"`
	DaysOfWeek []int     `json:"days_of_week,omitempty" bson:"days_of_week,omitempty" validate:"omitempty,dive,min=0,max=6"`
	Active     bool      `json:"active" bson:"active"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
}

// AppliesTo reports whether an active rule matches the window. Weekday
// applicability is decided by the booking date (the day the window starts).
func (r *PricingRule) AppliesTo(w Window) bool {
	if !r.Active {
		return false
	}
	weekday := int(w.Weekday())
	switch r.Kind {
	case RuleWeekend:
		return weekday == 0 || weekday == 6
	case RuleCustomDays:
		return containsDay(r.DaysOfWeek, weekday)
	case RulePeakHours:
		if len(r.DaysOfWeek) > 0 && !containsDay(r.DaysOfWeek, weekday) {
			return false
		}
		return r.containsWindow(w)
	}
	return false
}

// containsWindow checks that [w.Start, w.End) lies fully inside the
// rule's same-day sub-window. Overnight booking windows wrap past
// midnight and are never contained in a peak window.
func (r *PricingRule) containsWindow(w Window) bool {
	if w.Overnight {
		return false
	}
	ruleStart, err := ParseHour(r.Start)
	if err != nil {
		return false
	}
	ruleEnd, err := ParseHour(r.End)
	if err != nil {
		return false
	}
	winStart, _ := ParseHour(w.Start)
	winEnd, _ := ParseHour(w.End)
	return winStart >= ruleStart && winEnd <= ruleEnd
}

// Describe renders the trail entry recorded when the rule fires.
func (r *PricingRule) Describe() string {
	switch r.Kind {
	case RuleWeekend:
		return fmt.Sprintf("weekend x%.2f", r.Multiplier)
	case RuleCustomDays:
		return fmt.Sprintf("custom-days %v x%.2f", r.DaysOfWeek, r.Multiplier)
	case RulePeakHours:
		return fmt.Sprintf("peak-hours %s-%s x%.2f", r.Start, r.End, r.Multiplier)
	}
	return fmt.Sprintf("%s x%.2f", r.Kind, r.Multiplier)
}

func containsDay(days []int, day int) bool {
	for _, d := range days {
		if d == day {
			return true
		}
	}
	return false
}

// Holiday is a global calendar-date override, the highest pricing
// precedence. It can only raise a price, never lower it.
type Holiday struct {
	ID         string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Date       string    `json:"date" bson:"date" validate:"required,datetime=2006-01-02"`
	Name       string    `json:"name" bson:"name" validate:"required,min=2,max=100"`
	Multiplier float64   `json:"multiplier" bson:"multiplier" validate:"gte=0"`
	Active     bool      `json:"active" bson:"active"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
}

func (h *Holiday) Describe() string {
	return fmt.Sprintf("holiday %s x%.2f", h.Name, h.Multiplier)
}
