// Package models defines data structures for the collection and merge engine.
package models

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

// DateLayout is the calendar date format used for work unit bounds.
const DateLayout = "2006-01-02"

// Work unit validation errors.
var (
	ErrEmptyKeyword      = errors.New("keyword must not be empty")
	ErrBadQuarterLabel   = errors.New("quarter label must match YYYY_Q[1-4]")
	ErrInvertedDateRange = errors.New("start date must not be after end date")
)

var quarterLabelPattern = regexp.MustCompile(`^\d{4}_Q[1-4]$`)

// WorkUnit is one (keyword, quarter) collection task with resolved date
// bounds. Identity is (Keyword, Quarter); units are never mutated after
// creation.
type WorkUnit struct {
	Keyword   string    `json:"keyword"`
	Quarter   string    `json:"quarter"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

// NewWorkUnit builds a validated work unit. Both dates are normalized to
// UTC midnight so range checks compare calendar days only.
func NewWorkUnit(keyword, quarter string, startDate, endDate time.Time) (WorkUnit, error) {
	if keyword == "" {
		return WorkUnit{}, ErrEmptyKeyword
	}

	if !quarterLabelPattern.MatchString(quarter) {
		return WorkUnit{}, fmt.Errorf("%w: %q", ErrBadQuarterLabel, quarter)
	}

	start := DateOnly(startDate)
	end := DateOnly(endDate)

	if start.After(end) {
		return WorkUnit{}, fmt.Errorf("%w: %s > %s",
			ErrInvertedDateRange, start.Format(DateLayout), end.Format(DateLayout))
	}

	return WorkUnit{
		Keyword:   keyword,
		Quarter:   quarter,
		StartDate: start,
		EndDate:   end,
	}, nil
}

// DateOnly strips the time of day, keeping the calendar date t shows in its
// own location.
func DateOnly(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Contains reports whether t's calendar date falls inside the unit's
// inclusive date range.
func (u WorkUnit) Contains(t time.Time) bool {
	d := DateOnly(t)
	return !d.Before(u.StartDate) && !d.After(u.EndDate)
}

// Before reports whether t's calendar date falls before the unit's start.
func (u WorkUnit) Before(t time.Time) bool {
	return DateOnly(t).Before(u.StartDate)
}

// ID returns the sink key for this unit.
func (u WorkUnit) ID() string {
	return fmt.Sprintf("%s_%s", u.Keyword, u.Quarter)
}

// String returns a human-readable description of the unit.
func (u WorkUnit) String() string {
	return fmt.Sprintf("%s %s (%s ~ %s)",
		u.Keyword,
		u.Quarter,
		u.StartDate.Format(DateLayout),
		u.EndDate.Format(DateLayout),
	)
}
