// Package sink persists articles as CSV partition files and reads them back
// for consolidation.
package sink

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"qnews/internal/models"
	"qnews/pkg/utils"
)

// Columns is the persisted CSV schema, in order.
var Columns = []string{"title", "url", "source_url", "description", "date", "quarter", "keyword"}

// utf8BOM prefixes every file so spreadsheet tools detect the encoding.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Sink errors.
var (
	ErrHeaderMismatch = errors.New("unexpected csv header")
	ErrEmptyFile      = errors.New("csv file has no header row")
)

// Store manages per-unit partition files under a single directory.
type Store struct {
	partsDir string
}

// NewStore creates a store rooted at partsDir. The directory is created on
// first write, not here.
func NewStore(partsDir string) *Store {
	return &Store{partsDir: partsDir}
}

// Dir returns the parts directory.
func (s *Store) Dir() string {
	return s.partsDir
}

// PartPath returns the partition file path for a work unit.
func (s *Store) PartPath(unit models.WorkUnit) string {
	keyword := utils.NewStringHelper().SanitizeFilename(unit.Keyword)

	return filepath.Join(s.partsDir, fmt.Sprintf("%s_%s.csv", keyword, unit.Quarter))
}

// WriteUnit replaces the unit's partition file wholesale with the given
// articles. A unit with zero articles still produces a valid header-only
// file, so re-runs always leave fresh state behind.
func (s *Store) WriteUnit(unit models.WorkUnit, articles []models.Article) (string, error) {
	if err := os.MkdirAll(s.partsDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create parts directory: %w", err)
	}

	path := s.PartPath(unit)
	if err := writeFile(path, articles); err != nil {
		return "", err
	}

	return path, nil
}

// ListParts returns every csv file under the parts directory in lexical
// order. A missing directory yields an empty list.
func (s *Store) ListParts() ([]string, error) {
	entries, err := os.ReadDir(s.partsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to read parts directory: %w", err)
	}

	var paths []string

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".csv") {
			continue
		}

		paths = append(paths, filepath.Join(s.partsDir, entry.Name()))
	}

	return paths, nil
}

// ReadFile loads the articles from one partition file. Rows that do not
// decode cleanly are skipped and counted instead of failing the whole file.
func ReadFile(path string) ([]models.Article, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open %s: %w", path, err)
	}

	defer func() {
		_ = f.Close()
	}()

	br := bufio.NewReader(f)
	if lead, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(lead, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	r := csv.NewReader(br)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, 0, fmt.Errorf("%w: %s", ErrEmptyFile, path)
		}

		return nil, 0, fmt.Errorf("failed to read header of %s: %w", path, err)
	}

	if !headerMatches(header) {
		return nil, 0, fmt.Errorf("%w: %s has %v", ErrHeaderMismatch, path, header)
	}

	var (
		articles []models.Article
		skipped  int
	)

	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil || len(record) != len(Columns) {
			skipped++
			continue
		}

		articles = append(articles, models.Article{
			Title:       record[0],
			URL:         record[1],
			SourceURL:   record[2],
			Description: record[3],
			Date:        record[4],
			Quarter:     record[5],
			Keyword:     record[6],
		})
	}

	return articles, skipped, nil
}

// WriteMergedAtomic writes the consolidated dataset through a temp file in
// the target directory followed by a rename, so readers never observe a
// partially written merge.
func WriteMergedAtomic(path string, articles []models.Article) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create merged directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".merged-*.csv")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	if err := writeTo(tmp, articles); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())

		return err
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("failed to move merged file into place: %w", err)
	}

	return nil
}

// writeFile truncates path and writes BOM, header and rows.
func writeFile(path string, articles []models.Article) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	if err := writeTo(f, articles); err != nil {
		_ = f.Close()

		return err
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}

	return nil
}

func writeTo(f *os.File, articles []models.Article) error {
	if _, err := f.Write(utf8BOM); err != nil {
		return fmt.Errorf("failed to write BOM: %w", err)
	}

	w := csv.NewWriter(f)

	if err := w.Write(Columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, a := range articles {
		record := []string{a.Title, a.URL, a.SourceURL, a.Description, a.Date, a.Quarter, a.Keyword}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	w.Flush()

	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}

	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to sync csv: %w", err)
	}

	return nil
}

func headerMatches(header []string) bool {
	if len(header) != len(Columns) {
		return false
	}

	for i, col := range Columns {
		if header[i] != col {
			return false
		}
	}

	return true
}
