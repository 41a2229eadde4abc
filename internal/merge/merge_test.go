package merge

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"qnews/internal/config"
	"qnews/internal/logger"
	"qnews/internal/models"
	"qnews/internal/sink"
	"qnews/pkg/manifest"
)

// --- Test Fixtures ---

func testEngine(t *testing.T) (*Engine, *sink.Store, *config.Config) {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Output.PartsDir = t.TempDir()
	cfg.Output.MergedDir = t.TempDir()

	store := sink.NewStore(cfg.Output.PartsDir)

	return NewEngine(store, cfg, logger.NewLogger("error")), store, cfg
}

func unitOf(t *testing.T, keyword, quarter string) models.WorkUnit {
	t.Helper()

	unit, err := models.NewWorkUnit(
		keyword,
		quarter,
		time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2022, 3, 31, 0, 0, 0, 0, time.UTC),
	)
	if err != nil {
		t.Fatalf("NewWorkUnit() error = %v", err)
	}

	return unit
}

func art(url, keyword, quarter string) models.Article {
	return models.Article{
		Title:       "기사 " + url,
		URL:         url,
		SourceURL:   url,
		Description: "요약",
		Date:        "Thu, 10 Feb 2022 09:00:00 +0900",
		Quarter:     quarter,
		Keyword:     keyword,
	}
}

func writeSink(t *testing.T, store *sink.Store, unit models.WorkUnit, articles []models.Article) {
	t.Helper()

	if _, err := store.WriteUnit(unit, articles); err != nil {
		t.Fatalf("WriteUnit() error = %v", err)
	}
}

// --- Merge Tests ---

func TestMerge_DedupKeepsFirstEncountered(t *testing.T) {
	engine, store, cfg := testEngine(t)

	q1 := unitOf(t, "테스트", "2022_Q1")
	q2 := unitOf(t, "테스트", "2022_Q2")

	// The same article shows up in two adjacent quarter queries.
	shared := "https://news.example.com/boundary"
	writeSink(t, store, q1, []models.Article{art(shared, "테스트", "2022_Q1")})
	writeSink(t, store, q2, []models.Article{
		art(shared, "테스트", "2022_Q2"),
		art("https://news.example.com/other", "테스트", "2022_Q2"),
	})

	stats, err := engine.Merge([]models.WorkUnit{q1, q2})
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}

	if stats.DuplicatesRemoved != 1 || stats.RowsWritten != 2 {
		t.Errorf("removed/written = %d/%d, want 1/2", stats.DuplicatesRemoved, stats.RowsWritten)
	}

	merged, _, err := sink.ReadFile(cfg.MergedPath())
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}

	var boundary *models.Article

	for i := range merged {
		if merged[i].URL == shared {
			if boundary != nil {
				t.Fatal("duplicate URL survived the merge")
			}

			boundary = &merged[i]
		}
	}

	if boundary == nil {
		t.Fatal("boundary article missing from merge")
	}

	if boundary.Quarter != "2022_Q1" {
		t.Errorf("retained quarter = %q, want first-encountered 2022_Q1", boundary.Quarter)
	}
}

func TestMerge_Deterministic(t *testing.T) {
	engine, store, cfg := testEngine(t)

	q1 := unitOf(t, "청도군", "2022_Q1")
	q2 := unitOf(t, "테스트", "2022_Q1")

	writeSink(t, store, q1, []models.Article{
		art("https://news.example.com/a", "청도군", "2022_Q1"),
		art("https://news.example.com/b", "청도군", "2022_Q1"),
	})
	writeSink(t, store, q2, []models.Article{
		art("https://news.example.com/c", "테스트", "2022_Q1"),
	})

	units := []models.WorkUnit{q1, q2}

	first, err := engine.Merge(units)
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}

	firstBytes, err := os.ReadFile(cfg.MergedPath())
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}

	second, err := engine.Merge(units)
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}

	secondBytes, err := os.ReadFile(cfg.MergedPath())
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}

	if string(firstBytes) != string(secondBytes) {
		t.Error("two merge runs produced different bytes")
	}

	if first.OutputSHA256 != second.OutputSHA256 {
		t.Errorf("checksums differ: %s vs %s", first.OutputSHA256, second.OutputSHA256)
	}
}

func TestMerge_RemoveDuplicatesDisabled(t *testing.T) {
	engine, store, cfg := testEngine(t)
	cfg.Filtering.RemoveDuplicates = false

	q1 := unitOf(t, "테스트", "2022_Q1")
	q2 := unitOf(t, "테스트", "2022_Q2")

	shared := "https://news.example.com/boundary"
	writeSink(t, store, q1, []models.Article{art(shared, "테스트", "2022_Q1")})
	writeSink(t, store, q2, []models.Article{art(shared, "테스트", "2022_Q2")})

	stats, err := engine.Merge([]models.WorkUnit{q1, q2})
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}

	if stats.RowsWritten != 2 || stats.DuplicatesRemoved != 0 {
		t.Errorf("written/removed = %d/%d, want 2/0", stats.RowsWritten, stats.DuplicatesRemoved)
	}
}

func TestMerge_MissingSinksAreNotErrors(t *testing.T) {
	engine, store, _ := testEngine(t)

	collected := unitOf(t, "테스트", "2022_Q1")
	uncollected := unitOf(t, "테스트", "2022_Q2")

	writeSink(t, store, collected, []models.Article{art("https://news.example.com/a", "테스트", "2022_Q1")})

	stats, err := engine.Merge([]models.WorkUnit{collected, uncollected})
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}

	if stats.FilesRead != 1 || stats.RowsWritten != 1 {
		t.Errorf("files/rows = %d/%d, want 1/1", stats.FilesRead, stats.RowsWritten)
	}
}

func TestMerge_StrayFilesAppendedAfterUnits(t *testing.T) {
	engine, store, cfg := testEngine(t)

	unit := unitOf(t, "테스트", "2022_Q1")
	writeSink(t, store, unit, []models.Article{art("https://news.example.com/unit", "테스트", "2022_Q1")})

	// A leftover file from an earlier keyword set still participates.
	stray := unitOf(t, "옛키워드", "2021_Q4")
	writeSink(t, store, stray, []models.Article{art("https://news.example.com/stray", "옛키워드", "2021_Q4")})

	stats, err := engine.Merge([]models.WorkUnit{unit})
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}

	if stats.FilesRead != 2 {
		t.Fatalf("FilesRead = %d, want 2", stats.FilesRead)
	}

	merged, _, err := sink.ReadFile(cfg.MergedPath())
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}

	if len(merged) != 2 {
		t.Fatalf("merged rows = %d, want 2", len(merged))
	}

	if merged[0].URL != "https://news.example.com/unit" || merged[1].URL != "https://news.example.com/stray" {
		t.Errorf("order = %q, %q; unit sinks must precede strays", merged[0].URL, merged[1].URL)
	}
}

func TestMerge_NoPartsFails(t *testing.T) {
	engine, _, _ := testEngine(t)

	_, err := engine.Merge([]models.WorkUnit{unitOf(t, "테스트", "2022_Q1")})
	if !errors.Is(err, ErrNoParts) {
		t.Errorf("Merge() error = %v, want ErrNoParts", err)
	}
}

func TestMerge_UnreadablePartSkipped(t *testing.T) {
	engine, store, cfg := testEngine(t)

	unit := unitOf(t, "테스트", "2022_Q1")
	writeSink(t, store, unit, []models.Article{art("https://news.example.com/a", "테스트", "2022_Q1")})

	foreign := filepath.Join(cfg.Output.PartsDir, "zz_foreign.csv")
	if err := os.WriteFile(foreign, []byte("colA,colB\n1,2\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	stats, err := engine.Merge([]models.WorkUnit{unit})
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}

	if stats.FilesFailed != 1 || stats.FilesRead != 1 {
		t.Errorf("failed/read = %d/%d, want 1/1", stats.FilesFailed, stats.FilesRead)
	}
}

func TestMerge_AllPartsUnreadableFails(t *testing.T) {
	engine, _, cfg := testEngine(t)

	if err := os.MkdirAll(cfg.Output.PartsDir, 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}

	bad := filepath.Join(cfg.Output.PartsDir, "bad.csv")
	if err := os.WriteFile(bad, []byte("colA,colB\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	_, err := engine.Merge(nil)
	if !errors.Is(err, ErrNoReadableParts) {
		t.Errorf("Merge() error = %v, want ErrNoReadableParts", err)
	}
}

func TestMerge_StatsAndManifest(t *testing.T) {
	engine, store, cfg := testEngine(t)

	q1 := unitOf(t, "청도군", "2022_Q1")
	q2 := unitOf(t, "청도군", "2022_Q2")
	q3 := unitOf(t, "테스트", "2022_Q1")

	writeSink(t, store, q1, []models.Article{
		art("https://news.example.com/a", "청도군", "2022_Q1"),
		art("https://news.example.com/b", "청도군", "2022_Q1"),
	})
	writeSink(t, store, q2, []models.Article{art("https://news.example.com/c", "청도군", "2022_Q2")})
	writeSink(t, store, q3, []models.Article{art("https://news.example.com/d", "테스트", "2022_Q1")})

	stats, err := engine.Merge([]models.WorkUnit{q1, q2, q3})
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}

	if stats.ByKeyword["청도군"] != 3 || stats.ByKeyword["테스트"] != 1 {
		t.Errorf("ByKeyword = %v", stats.ByKeyword)
	}

	if stats.ByQuarter["2022_Q1"] != 3 || stats.ByQuarter["2022_Q2"] != 1 {
		t.Errorf("ByQuarter = %v", stats.ByQuarter)
	}

	m, err := manifest.Verify(cfg.MergedPath())
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}

	if m.Rows != stats.RowsWritten {
		t.Errorf("manifest rows = %d, want %d", m.Rows, stats.RowsWritten)
	}

	if m.SHA256 != stats.OutputSHA256 {
		t.Errorf("manifest checksum %s != stats checksum %s", m.SHA256, stats.OutputSHA256)
	}
}
