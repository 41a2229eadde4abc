package models

// Article is one persisted record: a search result that survived the
// exact-phrase filter, tagged with the work unit that collected it. Quarter
// and Keyword always carry the collecting unit's identity even when the
// article's own publish date straddles a quarter boundary.
type Article struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	SourceURL   string `json:"source_url"`
	Description string `json:"description"`
	Date        string `json:"date"`
	Quarter     string `json:"quarter"`
	Keyword     string `json:"keyword"`
}
