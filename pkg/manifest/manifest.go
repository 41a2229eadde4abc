// Package manifest provides utilities for stamping and verifying the
// integrity of merged dataset files.
package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// Suffix is appended to the dataset path to form its manifest path.
const Suffix = ".meta.json"

// Manifest verification errors.
var (
	ErrNoManifest       = errors.New("no manifest found")
	ErrNoChecksum       = errors.New("no checksum found in manifest")
	ErrChecksumMismatch = errors.New("checksum mismatch")
)

// Manifest describes one merged dataset file.
type Manifest struct {
	GeneratedAt time.Time `json:"generated_at"`
	Rows        int       `json:"rows"`
	SHA256      string    `json:"sha256"`
}

// ChecksumFile computes the hex SHA-256 of the file at path.
func ChecksumFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}

	defer func() {
		_ = f.Close()
	}()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// Write computes the dataset's checksum and stores a manifest beside it.
func Write(datasetPath string, rows int) (*Manifest, error) {
	sum, err := ChecksumFile(datasetPath)
	if err != nil {
		return nil, err
	}

	m := &Manifest{
		GeneratedAt: time.Now().UTC(),
		Rows:        rows,
		SHA256:      sum,
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode manifest: %w", err)
	}

	if err := os.WriteFile(datasetPath+Suffix, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write manifest: %w", err)
	}

	return m, nil
}

// Read loads the manifest stored beside a dataset.
func Read(datasetPath string) (*Manifest, error) {
	data, err := os.ReadFile(datasetPath + Suffix)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoManifest
		}

		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode manifest: %w", err)
	}

	return &m, nil
}

// Verify checks that the dataset still matches the checksum in its manifest.
func Verify(datasetPath string) (*Manifest, error) {
	m, err := Read(datasetPath)
	if err != nil {
		return nil, err
	}

	if m.SHA256 == "" {
		return nil, ErrNoChecksum
	}

	sum, err := ChecksumFile(datasetPath)
	if err != nil {
		return nil, err
	}

	if sum != m.SHA256 {
		return m, fmt.Errorf("%w: expected %s, got %s", ErrChecksumMismatch, m.SHA256, sum)
	}

	return m, nil
}
