// Package article parses staged feed documents into content records.
//
// A staged document is an XML file with a required title and optional
// subheader, abstract, bodytext, copyright, author, and keywords fields.
// Asset references inside bodytext use the fixed "syndicationAssets/" folder
// token, which is rewritten to the locally served asset base so published
// links resolve publicly.
package article

import (
	"encoding/xml"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redmaple/streamsync/internal/apperr"
	"github.com/redmaple/streamsync/internal/content"
)

// assetFolderToken is the relative folder name the feed uses for asset
// references inside bodytext.
const assetFolderToken = "syndicationAssets/"

// document mirrors the staged XML schema. Only title is required.
type document struct {
	Title     string `xml:"title"`
	Subheader string `xml:"subheader"`
	Abstract  string `xml:"abstract"`
	BodyText  string `xml:"bodytext"`
	Copyright string `xml:"copyright"`
	Author    string `xml:"author"`
	Keywords  string `xml:"keywords"`
}

// TagEnsurer creates tags in the host taxonomy as keywords are mapped.
type TagEnsurer interface {
	EnsureTag(name string) (int64, error)
}

// Settings carries the host-store defaults applied to every parsed record.
type Settings struct {
	AuthorID   int64
	CategoryID int64
	Status     content.Status
}

// Parser turns staged documents into content records.
type Parser struct {
	assetBaseURL string
	tags         TagEnsurer
	settings     Settings
	logger       *slog.Logger
}

// New creates a Parser. assetBaseURL is the public base the asset folder
// token is rewritten to (a per-document uid segment is appended).
func New(assetBaseURL string, tags TagEnsurer, settings Settings, logger *slog.Logger) *Parser {
	if settings.Status == "" {
		settings.Status = content.StatusDraft
	}
	return &Parser{
		assetBaseURL: strings.TrimRight(assetBaseURL, "/"),
		tags:         tags,
		settings:     settings,
		logger:       logger,
	}
}

// Parse converts one staged document into a record. uid keys the rewritten
// asset paths. The document itself is never mutated; the only side effect is
// tag creation in the host taxonomy.
func (p *Parser) Parse(uid string, data []byte) (*content.Record, error) {
	var doc document
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("article: parse %s: %v: %w", uid, err, apperr.ErrMalformed)
	}

	title := strings.TrimSpace(doc.Title)
	if title == "" {
		return nil, fmt.Errorf("article: parse %s: missing title: %w", uid, apperr.ErrMalformed)
	}

	return &content.Record{
		Title:      title,
		Slug:       content.Slugify(title),
		Body:       p.assembleBody(uid, doc),
		AuthorID:   p.settings.AuthorID,
		CategoryID: p.settings.CategoryID,
		Status:     p.settings.Status,
		Tags:       p.mapKeywords(doc.Keywords),
	}, nil
}

// assembleBody builds the record body in the fixed fragment order. Absent
// optional fields produce no markup at all rather than empty blocks.
func (p *Parser) assembleBody(uid string, doc document) string {
	var b strings.Builder

	if s := strings.TrimSpace(doc.Subheader); s != "" {
		b.WriteString("<h2>" + s + "</h2>")
	}
	if s := strings.TrimSpace(doc.Abstract); s != "" {
		b.WriteString(`<p><span class="stream-meta">Abstract:</span> ` + s + "</p>")
	}
	if s := strings.TrimSpace(doc.Author); s != "" {
		b.WriteString(`<p><span class="stream-meta">Author:</span> ` + s + "</p>")
	}
	if s := doc.BodyText; s != "" {
		b.WriteString(p.rewriteAssetRefs(uid, s))
	}
	if s := strings.TrimSpace(doc.Copyright); s != "" {
		b.WriteString(`<p><span class="stream-meta">Copyright:</span> ` + s + "</p>")
	}
	return b.String()
}

// rewriteAssetRefs replaces the staging asset folder token with the served
// asset base for this document.
func (p *Parser) rewriteAssetRefs(uid, body string) string {
	return strings.ReplaceAll(body, assetFolderToken, p.assetBaseURL+"/"+uid+"/")
}

// mapKeywords splits the comma-separated keyword list into trimmed tag names,
// ensuring each exists in the host taxonomy. A creation failure drops that one
// keyword and moves on.
func (p *Parser) mapKeywords(keywords string) []string {
	if strings.TrimSpace(keywords) == "" {
		return nil
	}
	var out []string
	for _, kw := range strings.Split(keywords, ",") {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		if _, err := p.tags.EnsureTag(kw); err != nil {
			p.logger.Warn("article: ensure tag failed",
				slog.String("tag", kw),
				slog.String("error", err.Error()))
			continue
		}
		out = append(out, kw)
	}
	return out
}
