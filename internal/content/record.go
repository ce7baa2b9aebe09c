package content

import (
	"regexp"
	"strings"
	"time"
)

// Status is the publication state of a record.
type Status string

const (
	// StatusDraft records are stored but not publicly visible.
	StatusDraft Status = "draft"
	// StatusPublished records are live.
	StatusPublished Status = "published"
	// StatusArchived records are soft-deleted; they do not count for
	// title deduplication and an incoming document with the same title
	// is imported again.
	StatusArchived Status = "archived"
)

// ValidStatus reports whether s is a known publication state.
func ValidStatus(s Status) bool {
	return s == StatusDraft || s == StatusPublished || s == StatusArchived
}

// Record is one imported content item, owned by the host store after import.
type Record struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	Slug       string    `json:"slug"`
	Body       string    `json:"body"`
	AuthorID   int64     `json:"author_id"`
	CategoryID int64     `json:"category_id"`
	Status     Status    `json:"status"`
	Tags       []string  `json:"tags"`
	CreatedAt  time.Time `json:"created_at"`
}

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a URL-safe slug from a title.
func Slugify(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	s = slugStrip.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
