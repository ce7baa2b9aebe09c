package content

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/redmaple/streamsync/internal/apperr"
)

// FindByTitle implements Store. Archived records are ignored so a redelivered
// document whose earlier copy was archived imports cleanly.
func (db *DB) FindByTitle(title string) (*Record, error) {
	row := db.conn.QueryRow(`
		SELECT id, title, slug, body, author_id, category_id, status, created_at
		FROM records
		WHERE title = ? AND status != ?
		ORDER BY id LIMIT 1
	`, title, StatusArchived)

	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("content: title %q: %w", title, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("content: find by title: %w", err)
	}
	r.Tags, err = db.tagsFor(r.ID)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Create implements Store. The record and its tag links are written in one
// transaction; tags must already exist (EnsureTag runs during parsing).
func (db *DB) Create(r *Record) (int64, error) {
	if r.Status == "" {
		r.Status = StatusDraft
	}
	if !ValidStatus(r.Status) {
		return 0, fmt.Errorf("content: create: unknown status %q", r.Status)
	}
	if r.Slug == "" {
		r.Slug = Slugify(r.Title)
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("content: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	res, err := tx.Exec(`
		INSERT INTO records (title, slug, body, author_id, category_id, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, r.Title, r.Slug, r.Body, r.AuthorID, r.CategoryID, string(r.Status), r.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("content: insert record: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("content: record id: %w", err)
	}

	if len(r.Tags) > 0 {
		stmt, err := tx.Prepare(`
			INSERT OR IGNORE INTO record_tags (record_id, tag_id)
			SELECT ?, id FROM tags WHERE name = ?
		`)
		if err != nil {
			return 0, fmt.Errorf("content: prepare tag link: %w", err)
		}
		defer stmt.Close()
		for _, tag := range r.Tags {
			if _, err := stmt.Exec(id, tag); err != nil {
				return 0, fmt.Errorf("content: link tag %q: %w", tag, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("content: commit: %w", err)
	}
	r.ID = id
	return id, nil
}

// EnsureTag implements Store.
func (db *DB) EnsureTag(name string) (int64, error) {
	var id int64
	err := db.conn.QueryRow(`SELECT id FROM tags WHERE name = ?`, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("content: lookup tag %q: %w", name, err)
	}

	res, err := db.conn.Exec(`INSERT INTO tags (name, slug) VALUES (?, ?)`, name, Slugify(name))
	if err != nil {
		return 0, fmt.Errorf("content: create tag %q: %w", name, err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("content: tag id: %w", err)
	}
	return id, nil
}

// Get implements Store.
func (db *DB) Get(id int64) (*Record, error) {
	row := db.conn.QueryRow(`
		SELECT id, title, slug, body, author_id, category_id, status, created_at
		FROM records WHERE id = ?
	`, id)

	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("content: record %d: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("content: get record: %w", err)
	}
	r.Tags, err = db.tagsFor(r.ID)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// List implements Store.
func (db *DB) List(limit, offset int) ([]Record, int, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM records`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("content: count records: %w", err)
	}

	rows, err := db.conn.Query(`
		SELECT id, title, slug, body, author_id, category_id, status, created_at
		FROM records ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("content: list records: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("content: scan record: %w", err)
		}
		r.Tags, err = db.tagsFor(r.ID)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *r)
	}
	return out, total, rows.Err()
}

func (db *DB) tagsFor(recordID int64) ([]string, error) {
	rows, err := db.conn.Query(`
		SELECT t.name FROM tags t
		JOIN record_tags rt ON rt.tag_id = t.id
		WHERE rt.record_id = ?
		ORDER BY t.name
	`, recordID)
	if err != nil {
		return nil, fmt.Errorf("content: tags for %d: %w", recordID, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var r Record
	var status string
	if err := row.Scan(&r.ID, &r.Title, &r.Slug, &r.Body, &r.AuthorID, &r.CategoryID, &status, &r.CreatedAt); err != nil {
		return nil, err
	}
	r.Status = Status(status)
	return &r, nil
}
