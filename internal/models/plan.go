package models

import (
	"sort"
	"time"
)

// WeekLayout is the storage format of WeeklyPlan.WeekStart
const WeekLayout = "2006-01-02"

type Weekday string

const (
	Monday    Weekday = "monday"
	Tuesday   Weekday = "tuesday"
	Wednesday Weekday = "wednesday"
	Thursday  Weekday = "thursday"
	Friday    Weekday = "friday"
	Saturday  Weekday = "saturday"
	Sunday    Weekday = "sunday"
)

// Weekdays in plan order, Monday first
var Weekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

func (d Weekday) Valid() bool {
	return d.Offset() >= 0
}

// Offset is the number of days from Monday, or -1 for an unknown value
func (d Weekday) Offset() int {
	for i, day := range Weekdays {
		if day == d {
			return i
		}
	}
	return -1
}

type TimeSlot string

const (
	SlotMorning   TimeSlot = "morning"
	SlotAfternoon TimeSlot = "afternoon"
)

type PlanStatus string

const (
	PlanSuggested PlanStatus = "suggested"
	PlanConfirmed PlanStatus = "confirmed"
	PlanCompleted PlanStatus = "completed"
)

func (s PlanStatus) Valid() bool {
	switch s {
	case PlanSuggested, PlanConfirmed, PlanCompleted:
		return true
	}
	return false
}

// PlanActivity is one scheduled entry within a weekday
type PlanActivity struct {
	ActivityID string     `json:"activityId"`
	TimeSlot   TimeSlot   `json:"timeSlot"`
	Status     PlanStatus `json:"status"`
	Order      int        `json:"order"`
	Notes      string     `json:"notes,omitempty"`
}

// WeeklyPlan is a per-child schedule for the week starting WeekStart (a Monday)
type WeeklyPlan struct {
	ID        int64                      `json:"id"`
	ChildID   int64                      `json:"childId"`
	UserID    int64                      `json:"userId"`
	WeekStart time.Time                  `json:"weekStarting"`
	CreatedBy string                     `json:"createdBy"`
	CreatedAt time.Time                  `json:"createdAt"`
	Days      map[Weekday][]PlanActivity `json:"days"`
}

// SortDays orders each weekday's entries by their explicit order field
func (p *WeeklyPlan) SortDays() {
	for _, entries := range p.Days {
		sort.SliceStable(entries, func(i, j int) bool { return entries[i].Order < entries[j].Order })
	}
}

// ActivityIDs lists the distinct activities referenced by the plan, in weekday order
func (p *WeeklyPlan) ActivityIDs() []string {
	seen := make(map[string]bool)
	var ids []string
	for _, day := range Weekdays {
		for _, entry := range p.Days[day] {
			if !seen[entry.ActivityID] {
				seen[entry.ActivityID] = true
				ids = append(ids, entry.ActivityID)
			}
		}
	}
	return ids
}

// Count returns the number of scheduled entries across the week
func (p *WeeklyPlan) Count() int {
	n := 0
	for _, entries := range p.Days {
		n += len(entries)
	}
	return n
}

// StartOfWeek returns the Monday 00:00 UTC of the week containing t
func StartOfWeek(t time.Time) time.Time {
	t = t.UTC()
	offset := (int(t.Weekday()) + 6) % 7
	return time.Date(t.Year(), t.Month(), t.Day()-offset, 0, 0, 0, 0, time.UTC)
}

// WeekdayOf maps a date onto the plan's weekday name
func WeekdayOf(t time.Time) Weekday {
	return Weekdays[(int(t.UTC().Weekday())+6)%7]
}
