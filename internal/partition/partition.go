// Package partition derives the keyword-by-quarter work unit matrix.
package partition

import (
	"errors"
	"fmt"
	"time"

	"qnews/internal/models"
)

// ErrFutureQuarter is returned when a requested quarter starts after the
// reference date.
var ErrFutureQuarter = errors.New("quarter starts after the reference date")

// Quarter is one fixed three-month calendar range of a year, possibly
// clamped at the reference date.
type Quarter struct {
	Label string
	Start time.Time
	End   time.Time
}

var quarterMonths = []struct {
	name       string
	startMonth time.Month
	endMonth   time.Month
}{
	{"Q1", time.January, time.March},
	{"Q2", time.April, time.June},
	{"Q3", time.July, time.September},
	{"Q4", time.October, time.December},
}

// QuarterRanges enumerates quarters from startYear through the reference
// year. Quarters starting after the reference date are excluded; the final
// quarter's end date is clamped to the reference date. A start year past the
// reference year yields an empty slice, which is not an error.
func QuarterRanges(startYear int, reference time.Time) []Quarter {
	ref := models.DateOnly(reference)

	var quarters []Quarter

	for year := startYear; year <= ref.Year(); year++ {
		for _, qm := range quarterMonths {
			q := quarterOf(year, qm.name, qm.startMonth, qm.endMonth)

			if q.Start.After(ref) {
				break
			}

			if q.End.After(ref) {
				q.End = ref
			}

			quarters = append(quarters, q)
		}
	}

	return quarters
}

func quarterOf(year int, name string, startMonth, endMonth time.Month) Quarter {
	start := time.Date(year, startMonth, 1, 0, 0, 0, 0, time.UTC)
	// First day of the following month, minus one day. Month 13 normalizes
	// to January of the next year, covering the Q4 boundary.
	end := time.Date(year, endMonth+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)

	return Quarter{
		Label: fmt.Sprintf("%d_%s", year, name),
		Start: start,
		End:   end,
	}
}

// QuarterByLabel resolves a single quarter label such as "2023_Q2" to its
// date range, clamped at the reference date.
func QuarterByLabel(label string, reference time.Time) (Quarter, error) {
	var year, num int
	if _, err := fmt.Sscanf(label, "%d_Q%d", &year, &num); err != nil || year < 1 || num < 1 || num > 4 {
		return Quarter{}, fmt.Errorf("%w: %q", models.ErrBadQuarterLabel, label)
	}

	qm := quarterMonths[num-1]
	q := quarterOf(year, qm.name, qm.startMonth, qm.endMonth)

	ref := models.DateOnly(reference)
	if q.Start.After(ref) {
		return Quarter{}, fmt.Errorf("%w: %s", ErrFutureQuarter, label)
	}

	if q.End.After(ref) {
		q.End = ref
	}

	return q, nil
}

// Units crosses every keyword with every reachable quarter. Ordering is
// keyword-major, quarter-minor so that resumption and progress reporting
// stay reproducible.
func Units(keywords []string, startYear int, reference time.Time) ([]models.WorkUnit, error) {
	quarters := QuarterRanges(startYear, reference)

	units := make([]models.WorkUnit, 0, len(keywords)*len(quarters))

	for _, keyword := range keywords {
		for _, q := range quarters {
			unit, err := models.NewWorkUnit(keyword, q.Label, q.Start, q.End)
			if err != nil {
				return nil, fmt.Errorf("failed to build work unit: %w", err)
			}

			units = append(units, unit)
		}
	}

	return units, nil
}
