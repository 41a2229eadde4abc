// Package config provides configuration management for the collection engine.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"qnews/pkg/utils"
)

// Configuration validation errors.
var (
	ErrConfigNotFound        = errors.New("config file not found")
	ErrNoKeywords            = errors.New("at least one keyword is required")
	ErrBlankKeyword          = errors.New("keywords must not be blank")
	ErrInvalidStartYear      = errors.New("collection.start_year must be a positive year")
	ErrInvalidDisplay        = errors.New("collection.display_per_page must be between 1 and 100")
	ErrInvalidMaxItems       = errors.New("collection.max_items_per_query must be between 1 and 1000")
	ErrMaxItemsBelowDisplay  = errors.New("collection.max_items_per_query must be at least display_per_page")
	ErrInvalidCallDelay      = errors.New("collection.api_call_delay must be non-negative")
	ErrInvalidTimeout        = errors.New("collection.request_timeout must be at least 1 second")
	ErrInvalidDedupColumn    = errors.New("filtering.duplicate_check_column must be 'url'")
	ErrMissingPartsDir       = errors.New("output.parts_dir is required")
	ErrMissingMergedDir      = errors.New("output.merged_dir is required")
	ErrMissingMergedFilename = errors.New("output.merged_filename is required")
	ErrInvalidLogLevel       = errors.New("logging.level must be one of: debug, info, warn, error")
	ErrMissingEndpoint       = errors.New("api.search_endpoint is required")
	ErrInvalidEndpoint       = errors.New("api.search_endpoint must be an absolute http(s) URL")
	ErrInvalidSort           = errors.New("api.sort must be 'date' or 'relevance'")
	ErrInvalidRetryCount     = errors.New("api.retry_count must be at least 1")
	ErrInvalidRetryDelay     = errors.New("api.retry_delay must be non-negative")
	ErrRetryDelayExceedsMax  = errors.New("api.retry_delay cannot exceed api.max_retry_delay")
)

// Config represents the complete collection configuration.
type Config struct {
	Keywords   []string         `yaml:"keywords"`
	Collection CollectionConfig `yaml:"collection"`
	Filtering  FilteringConfig  `yaml:"filtering"`
	Output     OutputConfig     `yaml:"output"`
	Logging    LoggingConfig    `yaml:"logging"`
	API        APIConfig        `yaml:"api"`
}

// CollectionConfig contains the pagination and pacing settings.
type CollectionConfig struct {
	StartYear        int     `yaml:"start_year"`
	DisplayPerPage   int     `yaml:"display_per_page"`
	MaxItemsPerQuery int     `yaml:"max_items_per_query"`
	APICallDelay     float64 `yaml:"api_call_delay"`
	RequestTimeout   int     `yaml:"request_timeout"`
}

// FilteringConfig controls the exact-phrase filter and merge deduplication.
type FilteringConfig struct {
	ExactPhraseMatch     bool   `yaml:"exact_phrase_match"`
	RemoveDuplicates     bool   `yaml:"remove_duplicates"`
	DuplicateCheckColumn string `yaml:"duplicate_check_column"`
}

// OutputConfig defines where partition and merged files are written.
type OutputConfig struct {
	PartsDir       string `yaml:"parts_dir"`
	MergedDir      string `yaml:"merged_dir"`
	MergedFilename string `yaml:"merged_filename"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir"`
}

// APIConfig contains search API endpoint and retry settings.
type APIConfig struct {
	SearchEndpoint string  `yaml:"search_endpoint"`
	Sort           string  `yaml:"sort"`
	RetryCount     int     `yaml:"retry_count"`
	RetryDelay     float64 `yaml:"retry_delay"`
	MaxRetryDelay  float64 `yaml:"max_retry_delay"`
}

// DefaultConfig returns the documented default configuration.
func DefaultConfig() *Config {
	return &Config{
		Keywords: []string{"청도혁신센터", "경북시민재단", "로컬임팩트랩", "경북지속가능캠프", "청도군"},
		Collection: CollectionConfig{
			StartYear:        2022,
			DisplayPerPage:   100,
			MaxItemsPerQuery: 1000,
			APICallDelay:     0.1,
			RequestTimeout:   10,
		},
		Filtering: FilteringConfig{
			ExactPhraseMatch:     true,
			RemoveDuplicates:     true,
			DuplicateCheckColumn: "url",
		},
		Output: OutputConfig{
			PartsDir:       "data/output_parts",
			MergedDir:      "data/output",
			MergedFilename: "news_merged.csv",
		},
		Logging: LoggingConfig{
			Level: "info",
			Dir:   "data/logs",
		},
		API: APIConfig{
			SearchEndpoint: "https://openapi.naver.com/v1/search",
			Sort:           "date",
			RetryCount:     3,
			RetryDelay:     1.0,
			MaxRetryDelay:  8.0,
		},
	}
}

// LoadConfig loads configuration from a YAML file. Settings omitted from the
// file keep their defaults. A missing file is reported as ErrConfigNotFound
// so callers can fall back to DefaultConfig.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}

		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves configuration to a YAML file.
func (c *Config) SaveConfig(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if len(c.Keywords) == 0 {
		return ErrNoKeywords
	}

	strHelper := utils.NewStringHelper()
	for i, kw := range c.Keywords {
		if strHelper.TrimWhitespace(kw) == "" {
			return fmt.Errorf("%w: keywords[%d]", ErrBlankKeyword, i)
		}
	}

	if c.Collection.StartYear < 1 {
		return ErrInvalidStartYear
	}

	if c.Collection.DisplayPerPage < 1 || c.Collection.DisplayPerPage > 100 {
		return ErrInvalidDisplay
	}

	if c.Collection.MaxItemsPerQuery < 1 || c.Collection.MaxItemsPerQuery > 1000 {
		return ErrInvalidMaxItems
	}

	if c.Collection.MaxItemsPerQuery < c.Collection.DisplayPerPage {
		return ErrMaxItemsBelowDisplay
	}

	if c.Collection.APICallDelay < 0 {
		return ErrInvalidCallDelay
	}

	if c.Collection.RequestTimeout < 1 {
		return ErrInvalidTimeout
	}

	if c.Filtering.DuplicateCheckColumn != "url" {
		return ErrInvalidDedupColumn
	}

	if c.Output.PartsDir == "" {
		return ErrMissingPartsDir
	}

	if c.Output.MergedDir == "" {
		return ErrMissingMergedDir
	}

	if c.Output.MergedFilename == "" {
		return ErrMissingMergedFilename
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return ErrInvalidLogLevel
	}

	if c.API.SearchEndpoint == "" {
		return ErrMissingEndpoint
	}

	if !utils.NewHTTPHelper().IsValidURL(c.API.SearchEndpoint) {
		return ErrInvalidEndpoint
	}

	if c.API.Sort != "date" && c.API.Sort != "relevance" {
		return ErrInvalidSort
	}

	if c.API.RetryCount < 1 {
		return ErrInvalidRetryCount
	}

	if c.API.RetryDelay < 0 {
		return ErrInvalidRetryDelay
	}

	if c.API.RetryDelay > c.API.MaxRetryDelay {
		return ErrRetryDelayExceedsMax
	}

	return nil
}

// CallDelay returns the mandatory delay applied before every API call.
func (c *CollectionConfig) CallDelay() time.Duration {
	return time.Duration(c.APICallDelay * float64(time.Second))
}

// GetTimeout returns the per-request timeout duration.
func (c *CollectionConfig) GetTimeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// GetRetryDelay calculates exponential backoff delay for attempt number.
func (a *APIConfig) GetRetryDelay(attempt int) time.Duration {
	if attempt <= 1 {
		return time.Duration(a.RetryDelay * float64(time.Second))
	}

	delay := a.RetryDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
	}

	// Cap at max delay
	if delay > a.MaxRetryDelay {
		delay = a.MaxRetryDelay
	}

	return time.Duration(delay * float64(time.Second))
}

// MergedPath returns the full path of the consolidated output file.
func (c *Config) MergedPath() string {
	return filepath.Join(c.Output.MergedDir, c.Output.MergedFilename)
}

// String returns a string representation of the config.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Keywords: %d, StartYear: %d, PartsDir: %s}",
		len(c.Keywords),
		c.Collection.StartYear,
		c.Output.PartsDir,
	)
}
