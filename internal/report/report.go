// Package report renders run summaries as aligned text tables. Column
// widths are computed from display width rather than byte length so Hangul
// cells line up in terminal output.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"qnews/internal/merge"
	"qnews/internal/models"
	"qnews/pkg/utils"
)

// quarterTableLimit caps the quarter breakdown at the most recent labels.
const quarterTableLimit = 10

// errorColumnWidth caps the error cell so one bad unit cannot blow up the
// table.
const errorColumnWidth = 48

// UnitTable renders one row per unit outcome.
func UnitTable(units []models.UnitOutcome) string {
	header := []string{"keyword", "quarter", "status", "pages", "collected", "retained", "duration", "error"}
	rows := make([][]string, 0, len(units))

	helper := utils.NewStringHelper()

	for _, u := range units {
		rows = append(rows, []string{
			u.Keyword,
			u.Quarter,
			u.Status,
			fmt.Sprintf("%d", u.PagesFetched),
			fmt.Sprintf("%d", u.ItemsCollected),
			fmt.Sprintf("%d", u.ItemsRetained),
			fmt.Sprintf("%dms", u.DurationMs),
			helper.TruncateString(u.Error, errorColumnWidth),
		})
	}

	return renderTable(header, rows)
}

// KeywordTable renders retained row counts per keyword, largest first.
func KeywordTable(stats *merge.Stats) string {
	type entry struct {
		keyword string
		count   int
	}

	entries := make([]entry, 0, len(stats.ByKeyword))
	for keyword, count := range stats.ByKeyword {
		entries = append(entries, entry{keyword, count})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}

		return entries[i].keyword < entries[j].keyword
	})

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{e.keyword, fmt.Sprintf("%d", e.count)})
	}

	return renderTable([]string{"keyword", "rows"}, rows)
}

// QuarterTable renders retained row counts per quarter in label order,
// keeping only the most recent labels. Quarter labels sort
// chronologically, so the tail of the sorted list is the newest.
func QuarterTable(stats *merge.Stats) string {
	labels := make([]string, 0, len(stats.ByQuarter))
	for label := range stats.ByQuarter {
		labels = append(labels, label)
	}

	sort.Strings(labels)

	if len(labels) > quarterTableLimit {
		labels = labels[len(labels)-quarterTableLimit:]
	}

	rows := make([][]string, 0, len(labels))
	for _, label := range labels {
		rows = append(rows, []string{label, fmt.Sprintf("%d", stats.ByQuarter[label])})
	}

	return renderTable([]string{"quarter", "rows"}, rows)
}

// Summary renders the whole run: per-unit outcomes followed by merge
// statistics when a merge ran.
func Summary(state *models.RunState, stats *merge.Stats) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Run %s (%s mode), %s\n\n", state.RunID, state.Mode,
		state.FinishedAt.Sub(state.StartedAt).Round(10*time.Millisecond))

	if len(state.Units) > 0 {
		sb.WriteString(UnitTable(state.Units))
		fmt.Fprintf(&sb, "\nUnits: %d success, %d partial, %d empty, %d failed | %d articles retained\n",
			state.CountByStatus(models.UnitStatusSuccess),
			state.CountByStatus(models.UnitStatusPartial),
			state.CountByStatus(models.UnitStatusEmpty),
			state.CountByStatus(models.UnitStatusFailed),
			state.TotalRetained(),
		)
	}

	if stats != nil {
		fmt.Fprintf(&sb, "\nMerge: %d files read (%d failed), %d rows in, %d duplicates removed, %d rows out\n",
			stats.FilesRead, stats.FilesFailed, stats.RowsRead, stats.DuplicatesRemoved, stats.RowsWritten)
		fmt.Fprintf(&sb, "Output: %s (sha256 %s)\n\n", stats.OutputPath, stats.OutputSHA256)
		sb.WriteString(KeywordTable(stats))
		sb.WriteString("\n")
		sb.WriteString(QuarterTable(stats))
	}

	return sb.String()
}

// renderTable builds a pipe-delimited table with a dashed separator row.
func renderTable(header []string, rows [][]string) string {
	widths := make([]int, len(header))

	for i, cell := range header {
		widths[i] = runewidth.StringWidth(cell)
	}

	for _, row := range rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			if w := runewidth.StringWidth(row[i]); w > widths[i] {
				widths[i] = w
			}
		}
	}

	for i := range widths {
		if widths[i] < 3 {
			widths[i] = 3
		}
	}

	var sb strings.Builder

	writeRow := func(cells []string) {
		sb.WriteString("|")

		for i := range widths {
			content := ""
			if i < len(cells) {
				content = cells[i]
			}

			sb.WriteString(" ")
			sb.WriteString(content)

			if padding := widths[i] - runewidth.StringWidth(content); padding > 0 {
				sb.WriteString(strings.Repeat(" ", padding))
			}

			sb.WriteString(" |")
		}

		sb.WriteString("\n")
	}

	writeRow(header)

	sb.WriteString("|")

	for i := range widths {
		sb.WriteString(" ")
		sb.WriteString(strings.Repeat("-", widths[i]))
		sb.WriteString(" |")
	}

	sb.WriteString("\n")

	for _, row := range rows {
		writeRow(row)
	}

	return sb.String()
}
