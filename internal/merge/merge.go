// Package merge consolidates partition sinks into one deduplicated dataset.
package merge

import (
	"errors"
	"fmt"

	"qnews/internal/config"
	"qnews/internal/logger"
	"qnews/internal/models"
	"qnews/internal/sink"
	"qnews/pkg/manifest"
)

// Merge errors.
var (
	ErrNoParts         = errors.New("no partition files found")
	ErrNoReadableParts = errors.New("no partition file could be read")
)

// Stats summarizes one merge pass.
type Stats struct {
	FilesRead         int            `json:"files_read"`
	FilesFailed       int            `json:"files_failed"`
	RowsRead          int            `json:"rows_read"`
	RowsSkipped       int            `json:"rows_skipped"`
	DuplicatesRemoved int            `json:"duplicates_removed"`
	RowsWritten       int            `json:"rows_written"`
	ByKeyword         map[string]int `json:"by_keyword"`
	ByQuarter         map[string]int `json:"by_quarter"`
	OutputPath        string         `json:"output_path"`
	OutputSHA256      string         `json:"output_sha256"`
}

// Engine rebuilds the consolidated dataset from partition sinks.
type Engine struct {
	store  *sink.Store
	cfg    *config.Config
	logger *logger.Logger
}

// NewEngine creates a merge engine over a sink store.
func NewEngine(store *sink.Store, cfg *config.Config, log *logger.Logger) *Engine {
	return &Engine{store: store, cfg: cfg, logger: log}
}

// Merge reads every existing partition sink and writes the consolidated
// dataset atomically. Sinks are visited in the given unit order so the
// output is deterministic; stray csv files not belonging to any unit are
// appended afterwards in lexical order rather than dropped. Units without
// a sink on disk are simply absent, not an error.
func (e *Engine) Merge(units []models.WorkUnit) (*Stats, error) {
	paths, err := e.orderedPaths(units)
	if err != nil {
		return nil, err
	}

	if len(paths) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoParts, e.store.Dir())
	}

	e.logger.Info(fmt.Sprintf("Merging %d partition files", len(paths)))

	stats := &Stats{
		ByKeyword: make(map[string]int),
		ByQuarter: make(map[string]int),
	}

	var all []models.Article

	for _, path := range paths {
		articles, skipped, err := sink.ReadFile(path)
		if err != nil {
			stats.FilesFailed++
			e.logger.Warn(fmt.Sprintf("Skipping unreadable partition %s: %v", path, err))

			continue
		}

		stats.FilesRead++
		stats.RowsRead += len(articles)
		stats.RowsSkipped += skipped
		all = append(all, articles...)
	}

	if stats.FilesRead == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoReadableParts, e.store.Dir())
	}

	retained := all
	if e.cfg.Filtering.RemoveDuplicates {
		retained = dedupe(all)
		stats.DuplicatesRemoved = len(all) - len(retained)
	}

	stats.RowsWritten = len(retained)

	for _, a := range retained {
		stats.ByKeyword[a.Keyword]++
		stats.ByQuarter[a.Quarter]++
	}

	outputPath := e.cfg.MergedPath()
	if err := sink.WriteMergedAtomic(outputPath, retained); err != nil {
		return nil, err
	}

	stats.OutputPath = outputPath

	m, err := manifest.Write(outputPath, stats.RowsWritten)
	if err != nil {
		return nil, err
	}

	stats.OutputSHA256 = m.SHA256

	e.logger.Info(fmt.Sprintf("Merged %d rows (%d duplicates removed) into %s",
		stats.RowsWritten, stats.DuplicatesRemoved, outputPath))

	return stats, nil
}

// orderedPaths resolves the deterministic read order: each unit's sink in
// unit order first, then any leftover csv files in lexical order.
func (e *Engine) orderedPaths(units []models.WorkUnit) ([]string, error) {
	listed, err := e.store.ListParts()
	if err != nil {
		return nil, err
	}

	onDisk := make(map[string]bool, len(listed))
	for _, path := range listed {
		onDisk[path] = true
	}

	var paths []string

	for _, unit := range units {
		path := e.store.PartPath(unit)
		if onDisk[path] {
			paths = append(paths, path)
			delete(onDisk, path)
		}
	}

	for _, path := range listed {
		if onDisk[path] {
			paths = append(paths, path)
		}
	}

	return paths, nil
}

// dedupe keeps the first occurrence of each article URL, preserving input
// order.
func dedupe(articles []models.Article) []models.Article {
	seen := make(map[string]bool, len(articles))
	kept := make([]models.Article, 0, len(articles))

	for _, a := range articles {
		if seen[a.URL] {
			continue
		}

		seen[a.URL] = true
		kept = append(kept, a)
	}

	return kept
}
