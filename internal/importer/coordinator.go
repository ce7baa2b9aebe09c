// Package importer orchestrates the ingestion cycle: list the remote queue,
// download each item's document and assets into staging, optionally
// acknowledge-delete the remote item, then parse, deduplicate, publish, and
// archive every staged document. Failures are isolated per item; one bad item
// never aborts the batch.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redmaple/streamsync/internal/apperr"
	"github.com/redmaple/streamsync/internal/content"
	"github.com/redmaple/streamsync/internal/feed"
	"github.com/redmaple/streamsync/internal/fetch"
	"github.com/redmaple/streamsync/internal/staging"
)

// Staging is the slice of the staging store the coordinator uses.
type Staging interface {
	DocPath(uid string) (string, error)
	AssetPath(uid, fileName string) (string, error)
	ListUnimported() ([]staging.Doc, error)
	Read(doc staging.Doc) ([]byte, error)
	MarkImported(doc staging.Doc) (string, error)
}

// Parser converts staged document bytes into a content record.
type Parser interface {
	Parse(uid string, data []byte) (*content.Record, error)
}

// Publisher is the slice of the host store the coordinator publishes through.
type Publisher interface {
	FindByTitle(title string) (*content.Record, error)
	Create(r *content.Record) (int64, error)
}

// Coordinator drives import cycles. A run-lock drops triggers that arrive
// while a cycle is active, so the staging directory has a single writer.
type Coordinator struct {
	queue    feed.Queue
	fetcher  fetch.Fetcher
	staging  Staging
	parser   Parser
	store    Publisher
	logger   *slog.Logger
	pageSize int

	mu sync.Mutex
}

// New creates a Coordinator with injected collaborators. pageSize bounds how
// much of the remote queue one cycle drains; leftovers reappear next cycle.
func New(queue feed.Queue, fetcher fetch.Fetcher, stage Staging, parser Parser, store Publisher, pageSize int, logger *slog.Logger) *Coordinator {
	if pageSize <= 0 {
		pageSize = 10
	}
	return &Coordinator{
		queue:    queue,
		fetcher:  fetcher,
		staging:  stage,
		parser:   parser,
		store:    store,
		logger:   logger,
		pageSize: pageSize,
	}
}

// RunCycle executes one full ingestion cycle and returns its outcome.
// It returns apperr.ErrCycleActive when a cycle is already running; the
// trigger is dropped, not queued.
//
// deleteAfterDownload controls whether successfully staged items are
// acknowledged on the remote queue. With it off, items stay queued remotely
// and are re-downloaded (overwritten in place) on the next cycle; dedupe by
// title prevents duplicate publication either way.
func (c *Coordinator) RunCycle(ctx context.Context, deleteAfterDownload bool) (*Outcome, error) {
	if !c.mu.TryLock() {
		return nil, apperr.ErrCycleActive
	}
	defer c.mu.Unlock()

	out := &Outcome{StartedAt: time.Now()}
	defer func() { out.FinishedAt = time.Now() }()

	c.logger.Info("import: cycle started", slog.Bool("delete_after_download", deleteAfterDownload))

	c.downloadPass(ctx, deleteAfterDownload, out)
	c.importPass(out)

	c.logger.Info("import: cycle finished",
		slog.Int("downloaded", out.Downloaded),
		slog.Int("imported", out.Imported),
		slog.Int("skipped", out.Skipped),
		slog.Int("errors", len(out.Errors)))
	return out, nil
}

// downloadPass drains one page of the remote queue into staging. A list
// failure aborts the pass (nothing to iterate); per-item failures are
// recorded and skipped.
func (c *Coordinator) downloadPass(ctx context.Context, deleteAfterDownload bool, out *Outcome) {
	items, total, err := c.queue.List(ctx, c.pageSize, 0)
	if err != nil {
		c.logger.Error("import: list remote queue failed", slog.String("error", err.Error()))
		out.recordError("list", err)
		return
	}
	c.logger.Info("import: remote queue listed",
		slog.Int("page", len(items)),
		slog.Int("total_in_queue", total))

	for _, item := range items {
		if err := c.downloadItem(ctx, item, out); err != nil {
			c.logger.Warn("import: download failed",
				slog.String("uid", item.UID),
				slog.String("error", err.Error()))
			out.recordError(item.UID, err)
			continue
		}
		out.Downloaded++

		if deleteAfterDownload {
			if err := c.queue.Delete(ctx, item.UID); err != nil {
				// Best effort: the item reappears in the next list and
				// is re-downloaded over the same staged file.
				c.logger.Warn("import: remote delete failed",
					slog.String("uid", item.UID),
					slog.String("error", err.Error()))
			}
		}
	}
}

// downloadItem stages one item's document and assets. A document failure
// means the item is not staged at all; an asset failure leaves the document
// staged (a missing image is a content-quality issue, not pipeline-fatal)
// and is recorded in the outcome without failing the item.
func (c *Coordinator) downloadItem(ctx context.Context, item feed.QueueItemRef, out *Outcome) error {
	doc, err := c.queue.Fetch(ctx, item.UID)
	if err != nil {
		return err
	}

	docPath, err := c.staging.DocPath(doc.UID)
	if err != nil {
		return err
	}
	if err := c.fetcher.FetchToFile(ctx, doc.DocumentURL, docPath); err != nil {
		return fmt.Errorf("document: %w", err)
	}

	for _, asset := range doc.Assets {
		name := asset.FileName
		if name == "" {
			name = asset.URL
		}
		assetPath, err := c.staging.AssetPath(doc.UID, name)
		if err != nil {
			c.logger.Warn("import: unusable asset name",
				slog.String("uid", doc.UID),
				slog.String("asset", asset.URL),
				slog.String("error", err.Error()))
			out.recordError(doc.UID, fmt.Errorf("asset %s: %w", asset.URL, err))
			continue
		}
		if err := c.fetcher.FetchToFile(ctx, asset.URL, assetPath); err != nil {
			c.logger.Warn("import: asset download failed",
				slog.String("uid", doc.UID),
				slog.String("asset", asset.URL),
				slog.String("error", err.Error()))
			out.recordError(doc.UID, fmt.Errorf("asset %s: %w", asset.URL, err))
		}
	}
	return nil
}

// importPass processes every unimported staged document, including leftovers
// from prior failed cycles. Parse and publish failures leave the file staged
// so the next cycle retries it; duplicates are archived without publishing.
func (c *Coordinator) importPass(out *Outcome) {
	docs, err := c.staging.ListUnimported()
	if err != nil {
		c.logger.Error("import: list staging failed", slog.String("error", err.Error()))
		out.recordError("staging", err)
		return
	}

	for _, doc := range docs {
		imported, skipped, err := c.importOne(doc)
		switch {
		case err != nil:
			c.logger.Warn("import: staged document failed",
				slog.String("uid", doc.UID),
				slog.String("error", err.Error()))
			out.recordError(doc.Path, err)
		case skipped:
			out.Skipped++
		case imported:
			out.Imported++
		}
	}
}

// importOne handles a single staged document end to end.
func (c *Coordinator) importOne(doc staging.Doc) (imported, skipped bool, err error) {
	data, err := c.staging.Read(doc)
	if err != nil {
		return false, false, err
	}

	rec, err := c.parser.Parse(doc.UID, data)
	if err != nil {
		return false, false, err
	}

	existing, err := c.store.FindByTitle(rec.Title)
	switch {
	case err == nil:
		// Fully consumed, just not republished.
		c.logger.Info("import: duplicate title, skipping",
			slog.String("uid", doc.UID),
			slog.String("title", rec.Title),
			slog.Int64("existing_id", existing.ID))
		if _, err := c.staging.MarkImported(doc); err != nil {
			return false, false, err
		}
		return false, true, nil
	case !errors.Is(err, apperr.ErrNotFound):
		return false, false, err
	}

	id, err := c.store.Create(rec)
	if err != nil {
		return false, false, fmt.Errorf("publish: %w", err)
	}

	if _, err := c.staging.MarkImported(doc); err != nil {
		// The record exists but the file stayed staged; the next cycle
		// sees it as a duplicate and archives it then.
		return false, false, err
	}

	c.logger.Info("import: published",
		slog.String("uid", doc.UID),
		slog.String("title", rec.Title),
		slog.Int64("record_id", id))
	return true, false, nil
}
