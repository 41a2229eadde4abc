package partition

import (
	"errors"
	"testing"
	"time"

	"qnews/internal/models"
)

func mustDate(t *testing.T, value string) time.Time {
	t.Helper()

	d, err := time.Parse(models.DateLayout, value)
	if err != nil {
		t.Fatalf("Failed to parse date %q: %v", value, err)
	}

	return d
}

func TestQuarterRanges_FixedBoundaries(t *testing.T) {
	reference := mustDate(t, "2023-12-31")

	quarters := QuarterRanges(2022, reference)
	if len(quarters) != 8 {
		t.Fatalf("Expected 8 quarters for 2022..2023, got %d", len(quarters))
	}

	tests := []struct {
		label string
		start string
		end   string
	}{
		{"2022_Q1", "2022-01-01", "2022-03-31"},
		{"2022_Q2", "2022-04-01", "2022-06-30"},
		{"2022_Q3", "2022-07-01", "2022-09-30"},
		{"2022_Q4", "2022-10-01", "2022-12-31"},
		{"2023_Q1", "2023-01-01", "2023-03-31"},
		{"2023_Q4", "2023-10-01", "2023-12-31"},
	}

	byLabel := make(map[string]Quarter)
	for _, q := range quarters {
		byLabel[q.Label] = q
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			q, ok := byLabel[tt.label]
			if !ok {
				t.Fatalf("Quarter %s missing", tt.label)
			}

			if got := q.Start.Format(models.DateLayout); got != tt.start {
				t.Errorf("Start = %s, want %s", got, tt.start)
			}

			if got := q.End.Format(models.DateLayout); got != tt.end {
				t.Errorf("End = %s, want %s", got, tt.end)
			}
		})
	}
}

func TestQuarterRanges_NeverStartsAfterReference(t *testing.T) {
	references := []string{"2022-01-01", "2023-02-15", "2024-06-30", "2025-11-03"}

	for _, ref := range references {
		reference := mustDate(t, ref)

		for _, q := range QuarterRanges(2020, reference) {
			if q.Start.After(reference) {
				t.Errorf("reference %s: quarter %s starts after reference", ref, q.Label)
			}
		}
	}
}

func TestQuarterRanges_ClampsFinalQuarter(t *testing.T) {
	// Reference inside 2023 Q2.
	reference := mustDate(t, "2023-05-15")

	quarters := QuarterRanges(2022, reference)
	if len(quarters) != 6 {
		t.Fatalf("Expected 6 quarters (4 of 2022 + Q1,Q2 of 2023), got %d", len(quarters))
	}

	last := quarters[len(quarters)-1]
	if last.Label != "2023_Q2" {
		t.Fatalf("Expected last quarter 2023_Q2, got %s", last.Label)
	}

	if got := last.End.Format(models.DateLayout); got != "2023-05-15" {
		t.Errorf("Expected clamped end 2023-05-15, got %s", got)
	}

	// All earlier quarters keep their natural boundary.
	for _, q := range quarters[:len(quarters)-1] {
		if q.End.Equal(reference) {
			t.Errorf("Quarter %s should not be clamped", q.Label)
		}
	}
}

func TestQuarterRanges_StartYearInFuture(t *testing.T) {
	reference := mustDate(t, "2023-05-15")

	quarters := QuarterRanges(2024, reference)
	if len(quarters) != 0 {
		t.Errorf("Expected empty sequence for future start year, got %d quarters", len(quarters))
	}
}

func TestQuarterRanges_ReferenceOnQuarterFirstDay(t *testing.T) {
	// Q3 starts exactly on the reference date: the quarter is included,
	// clamped to a single day.
	reference := mustDate(t, "2023-07-01")

	quarters := QuarterRanges(2023, reference)
	if len(quarters) != 3 {
		t.Fatalf("Expected 3 quarters, got %d", len(quarters))
	}

	last := quarters[len(quarters)-1]
	if last.Label != "2023_Q3" {
		t.Fatalf("Expected last quarter 2023_Q3, got %s", last.Label)
	}

	if !last.Start.Equal(last.End) {
		t.Errorf("Expected single-day quarter, got %s ~ %s", last.Start, last.End)
	}
}

// --- QuarterByLabel Tests ---

func TestQuarterByLabel(t *testing.T) {
	reference := mustDate(t, "2024-01-01")

	q, err := QuarterByLabel("2022_Q3", reference)
	if err != nil {
		t.Fatalf("QuarterByLabel failed: %v", err)
	}

	if got := q.Start.Format(models.DateLayout); got != "2022-07-01" {
		t.Errorf("Start = %s, want 2022-07-01", got)
	}

	if got := q.End.Format(models.DateLayout); got != "2022-09-30" {
		t.Errorf("End = %s, want 2022-09-30", got)
	}
}

func TestQuarterByLabel_Clamped(t *testing.T) {
	reference := mustDate(t, "2023-05-15")

	q, err := QuarterByLabel("2023_Q2", reference)
	if err != nil {
		t.Fatalf("QuarterByLabel failed: %v", err)
	}

	if got := q.End.Format(models.DateLayout); got != "2023-05-15" {
		t.Errorf("End = %s, want clamped 2023-05-15", got)
	}
}

func TestQuarterByLabel_Future(t *testing.T) {
	reference := mustDate(t, "2023-05-15")

	_, err := QuarterByLabel("2023_Q4", reference)
	if !errors.Is(err, ErrFutureQuarter) {
		t.Errorf("Expected ErrFutureQuarter, got %v", err)
	}
}

func TestQuarterByLabel_Malformed(t *testing.T) {
	reference := mustDate(t, "2023-05-15")

	for _, label := range []string{"2023Q1", "2023_Q5", "2023_Q0", "Q1_2023", ""} {
		if _, err := QuarterByLabel(label, reference); err == nil {
			t.Errorf("Expected error for label %q", label)
		}
	}
}

// --- Units Tests ---

func TestUnits_KeywordMajorOrder(t *testing.T) {
	reference := mustDate(t, "2022-12-31")
	keywords := []string{"청도군", "경북시민재단"}

	units, err := Units(keywords, 2022, reference)
	if err != nil {
		t.Fatalf("Units failed: %v", err)
	}

	if len(units) != 8 {
		t.Fatalf("Expected 8 units (2 keywords x 4 quarters), got %d", len(units))
	}

	expected := []string{
		"청도군_2022_Q1", "청도군_2022_Q2", "청도군_2022_Q3", "청도군_2022_Q4",
		"경북시민재단_2022_Q1", "경북시민재단_2022_Q2", "경북시민재단_2022_Q3", "경북시민재단_2022_Q4",
	}

	for i, want := range expected {
		if got := units[i].ID(); got != want {
			t.Errorf("units[%d] = %s, want %s", i, got, want)
		}
	}
}

func TestUnits_EmptyKeywordFails(t *testing.T) {
	reference := mustDate(t, "2022-12-31")

	_, err := Units([]string{"청도군", ""}, 2022, reference)
	if !errors.Is(err, models.ErrEmptyKeyword) {
		t.Errorf("Expected ErrEmptyKeyword, got %v", err)
	}
}

func TestUnits_Deterministic(t *testing.T) {
	reference := mustDate(t, "2023-08-20")
	keywords := []string{"a", "b", "c"}

	first, err := Units(keywords, 2022, reference)
	if err != nil {
		t.Fatalf("Units failed: %v", err)
	}

	second, err := Units(keywords, 2022, reference)
	if err != nil {
		t.Fatalf("Units failed: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("Expected identical unit counts, got %d and %d", len(first), len(second))
	}

	for i := range first {
		if first[i] != second[i] {
			t.Errorf("units[%d] differ: %v vs %v", i, first[i], second[i])
		}
	}
}
