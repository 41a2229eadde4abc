// Package collector drains one work unit from the search API into its
// partition sink.
//
// The API has no native date-range filter. Results arrive in descending
// date order, so the collector pages forward from the most recent item and
// stops once returned dates fall before the unit's start date. That
// early-stop, together with the per-item range check, is what bounds each
// partition to its quarter.
package collector

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"qnews/internal/config"
	"qnews/internal/logger"
	"qnews/internal/models"
	"qnews/internal/search"
	"qnews/internal/sink"
	"qnews/pkg/utils"
)

// Collector fetches, filters and persists articles for single work units.
type Collector struct {
	client   search.Client
	store    *sink.Store
	cfg      *config.Config
	logger   *logger.Logger
	sanitize *bluemonday.Policy
	strings  *utils.StringHelper
}

// New creates a collector around a search client and a sink store.
func New(client search.Client, store *sink.Store, cfg *config.Config, log *logger.Logger) *Collector {
	return &Collector{
		client:   client,
		store:    store,
		cfg:      cfg,
		logger:   log,
		sanitize: bluemonday.StrictPolicy(),
		strings:  utils.NewStringHelper(),
	}
}

// drainResult carries what one unit's paging loop produced.
type drainResult struct {
	items    []search.Item // items inside the unit's date range, in API order
	rawCount int           // items returned by the API before range filtering
	pages    int
	dropped  int   // items discarded for unparseable dates
	failure  error // retries exhausted; collected data is still usable
}

// Collect drains the unit and replaces its partition sink with the result.
// The returned error is non-nil only for conditions that must abort the
// whole run (credential rejection, canceled context); everything else is
// reported through the outcome status.
func (c *Collector) Collect(ctx context.Context, unit models.WorkUnit) (models.UnitOutcome, error) {
	started := time.Now()
	outcome := models.UnitOutcome{Keyword: unit.Keyword, Quarter: unit.Quarter}

	c.logger.Info(fmt.Sprintf("Collecting %s", unit))

	result, err := c.drain(ctx, unit)
	outcome.PagesFetched = result.pages
	outcome.ItemsCollected = result.rawCount

	if err != nil {
		outcome.Status = models.UnitStatusFailed
		outcome.Error = err.Error()
		outcome.DurationMs = time.Since(started).Milliseconds()

		return outcome, err
	}

	if result.dropped > 0 {
		c.logger.Warn(fmt.Sprintf("%s: dropped %d items with unparseable dates", unit.ID(), result.dropped))
	}

	articles := c.transform(unit, result.items)
	outcome.ItemsRetained = len(articles)

	path, err := c.store.WriteUnit(unit, articles)
	if err != nil {
		outcome.Status = models.UnitStatusFailed
		outcome.Error = err.Error()
		outcome.DurationMs = time.Since(started).Milliseconds()
		c.logger.Error(fmt.Sprintf("%s: %v", unit.ID(), err))

		return outcome, nil
	}

	switch {
	case result.failure != nil:
		outcome.Status = models.UnitStatusPartial
		outcome.Error = result.failure.Error()
		c.logger.Warn(fmt.Sprintf("%s: partial result, %d articles kept: %v",
			unit.ID(), len(articles), result.failure))
	case len(articles) == 0:
		outcome.Status = models.UnitStatusEmpty
		c.logger.Info(fmt.Sprintf("%s: no matching articles", unit.ID()))
	default:
		outcome.Status = models.UnitStatusSuccess
		c.logger.Info(fmt.Sprintf("%s: wrote %d articles to %s", unit.ID(), len(articles), path))
	}

	outcome.DurationMs = time.Since(started).Milliseconds()

	return outcome, nil
}

// drain pages through the unit's query until a stop condition hits: a short
// page, the provider total, the absolute result cap, or dates falling
// before the unit's start.
func (c *Collector) drain(ctx context.Context, unit models.WorkUnit) (drainResult, error) {
	display := c.cfg.Collection.DisplayPerPage
	maxItems := c.cfg.Collection.MaxItemsPerQuery
	bound := maxItems

	var result drainResult

	for offset := 1; offset <= bound && offset+display-1 <= search.ResultCap; offset += display {
		page, err := c.client.FetchPage(ctx, unit.Keyword, offset, display)
		if err != nil {
			if search.IsAuth(err) || ctx.Err() != nil {
				return result, err
			}

			if search.IsMalformed(err) {
				c.logger.Warn(fmt.Sprintf("%s: skipping page at offset %d: %v", unit.ID(), offset, err))
				continue
			}

			result.failure = err

			return result, nil
		}

		result.pages++

		if offset == 1 && page.Total < bound {
			bound = page.Total
		}

		items := page.Items
		if result.rawCount+len(items) > maxItems {
			items = items[:maxItems-result.rawCount]
		}

		result.rawCount += len(items)

		kept, belowStart, dropped := c.keepInRange(unit, items)
		result.items = append(result.items, kept...)
		result.dropped += dropped

		if result.rawCount >= maxItems {
			break
		}

		if belowStart && c.cfg.API.Sort == search.SortDate {
			break
		}

		if len(page.Items) < display {
			break
		}
	}

	return result, nil
}

// keepInRange splits a page into items whose publication date falls inside
// the unit's range. Items newer than the end date are skipped; any item
// older than the start date marks the page as past the quarter.
func (c *Collector) keepInRange(unit models.WorkUnit, items []search.Item) ([]search.Item, bool, int) {
	var (
		kept       []search.Item
		belowStart bool
		dropped    int
	)

	for _, item := range items {
		published, err := item.PublishedAt()
		if err != nil {
			dropped++
			continue
		}

		if unit.Before(published) {
			belowStart = true
			continue
		}

		if unit.Contains(published) {
			kept = append(kept, item)
		}
	}

	return kept, belowStart, dropped
}

// transform strips markup from the raw items, applies the exact-phrase
// filter and tags survivors with the unit identity.
func (c *Collector) transform(unit models.WorkUnit, items []search.Item) []models.Article {
	articles := make([]models.Article, 0, len(items))

	for _, item := range items {
		title := c.cleanText(item.Title)
		description := c.cleanText(item.Description)

		if c.cfg.Filtering.ExactPhraseMatch && !containsPhrase(title, description, unit.Keyword) {
			continue
		}

		articles = append(articles, models.Article{
			Title:       title,
			URL:         item.Link,
			SourceURL:   item.OriginalLink,
			Description: description,
			Date:        item.PubDate,
			Quarter:     unit.Quarter,
			Keyword:     unit.Keyword,
		})
	}

	return articles
}

// cleanText removes markup tags, decodes entities and collapses runs of
// whitespace.
func (c *Collector) cleanText(s string) string {
	return c.strings.NormalizeWhitespace(html.UnescapeString(c.sanitize.Sanitize(s)))
}

// containsPhrase applies the exact-phrase rule: the keyword must appear as
// a literal contiguous substring of the title or the description.
func containsPhrase(title, description, phrase string) bool {
	return strings.Contains(title, phrase) || strings.Contains(description, phrase)
}
