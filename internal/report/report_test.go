package report

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"qnews/internal/merge"
	"qnews/internal/models"
)

func TestRenderTable_AlignsMixedHangulAndASCII(t *testing.T) {
	got := renderTable(
		[]string{"keyword", "rows"},
		[][]string{
			{"청도혁신센터", "120"},
			{"tests", "7"},
		},
	)

	expected := strings.TrimPrefix(`
| keyword      | rows |
| ------------ | ---- |
| 청도혁신센터 | 120  |
| tests        | 7    |
`, "\n")

	if got != expected {
		t.Errorf("renderTable() =\n%s\nwant\n%s", got, expected)
	}
}

func TestRenderTable_PadsShortRows(t *testing.T) {
	got := renderTable([]string{"a", "b", "c"}, [][]string{{"only"}})

	for i, line := range strings.Split(strings.TrimRight(got, "\n"), "\n") {
		if strings.Count(line, "|") != 4 {
			t.Errorf("line %d has wrong column count: %q", i, line)
		}
	}
}

func TestUnitTable(t *testing.T) {
	units := []models.UnitOutcome{
		{Keyword: "테스트", Quarter: "2022_Q1", Status: models.UnitStatusSuccess, PagesFetched: 2, ItemsCollected: 150, ItemsRetained: 40, DurationMs: 830},
		{Keyword: "테스트", Quarter: "2022_Q2", Status: models.UnitStatusPartial, PagesFetched: 1, ItemsCollected: 100, ItemsRetained: 25, Error: "all 3 attempts failed: rate limited", DurationMs: 12045},
	}

	got := UnitTable(units)

	for _, want := range []string{"2022_Q1", "success", "partial", "rate limited", "12045ms"} {
		if !strings.Contains(got, want) {
			t.Errorf("UnitTable() missing %q:\n%s", want, got)
		}
	}
}

func TestUnitTable_TruncatesLongErrors(t *testing.T) {
	units := []models.UnitOutcome{
		{Keyword: "테스트", Quarter: "2022_Q1", Status: models.UnitStatusFailed, Error: strings.Repeat("x", 200)},
	}

	got := UnitTable(units)

	if strings.Contains(got, strings.Repeat("x", 60)) {
		t.Error("error cell was not truncated")
	}

	if !strings.Contains(got, "...") {
		t.Error("truncated cell should carry an ellipsis")
	}
}

func TestKeywordTable_SortsByCountDescending(t *testing.T) {
	stats := &merge.Stats{
		ByKeyword: map[string]int{"청도군": 3, "경북시민재단": 11, "테스트": 3},
	}

	got := KeywordTable(stats)

	first := strings.Index(got, "경북시민재단")
	second := strings.Index(got, "청도군")
	third := strings.Index(got, "테스트")

	if !(first < second && second < third) {
		t.Errorf("keyword order wrong (count desc, then label):\n%s", got)
	}
}

func TestQuarterTable_KeepsMostRecentTen(t *testing.T) {
	stats := &merge.Stats{ByQuarter: map[string]int{}}

	for year := 2020; year <= 2023; year++ {
		for q := 1; q <= 4; q++ {
			stats.ByQuarter[fmt.Sprintf("%d_Q%d", year, q)] = 1
		}
	}

	got := QuarterTable(stats)

	if strings.Contains(got, "2020_Q1") {
		t.Error("oldest quarters should be dropped beyond the limit")
	}

	for _, want := range []string{"2021_Q3", "2023_Q4"} {
		if !strings.Contains(got, want) {
			t.Errorf("QuarterTable() missing %q:\n%s", want, got)
		}
	}

	lines := strings.Split(strings.TrimRight(got, "\n"), "\n")
	if len(lines) != quarterTableLimit+2 {
		t.Errorf("got %d lines, want %d rows plus header and separator", len(lines), quarterTableLimit)
	}
}

func TestSummary(t *testing.T) {
	state := &models.RunState{
		RunID:      "7d4a1b9e-2f13-4b8a-9c7e-0d5f6a8b1c2d",
		Mode:       "auto",
		StartedAt:  time.Date(2023, 5, 15, 10, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2023, 5, 15, 10, 2, 30, 0, time.UTC),
		Units: []models.UnitOutcome{
			{Keyword: "테스트", Quarter: "2022_Q1", Status: models.UnitStatusSuccess, ItemsRetained: 5},
			{Keyword: "테스트", Quarter: "2022_Q2", Status: models.UnitStatusEmpty},
		},
	}

	stats := &merge.Stats{
		FilesRead:    2,
		RowsRead:     5,
		RowsWritten:  5,
		ByKeyword:    map[string]int{"테스트": 5},
		ByQuarter:    map[string]int{"2022_Q1": 5},
		OutputPath:   "data/output/news_merged.csv",
		OutputSHA256: "abc123",
	}

	got := Summary(state, stats)

	for _, want := range []string{
		"7d4a1b9e",
		"auto mode",
		"1 success, 0 partial, 1 empty, 0 failed",
		"5 articles retained",
		"2 files read",
		"news_merged.csv",
		"sha256 abc123",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Summary() missing %q:\n%s", want, got)
		}
	}
}

func TestSummary_CollectOnlyOmitsMergeSection(t *testing.T) {
	state := &models.RunState{
		RunID: "run", Mode: "single",
		StartedAt:  time.Now(),
		FinishedAt: time.Now(),
		Units: []models.UnitOutcome{
			{Keyword: "테스트", Quarter: "2022_Q1", Status: models.UnitStatusSuccess},
		},
	}

	got := Summary(state, nil)

	if strings.Contains(got, "Merge:") {
		t.Errorf("Summary() without stats should omit the merge section:\n%s", got)
	}
}
