package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_record_store.go -package=mocks legacy-sync/internal/storage RecordStore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when a record is not found.
	ErrNotFound = errors.New("record not found")
)

// RecordStore defines the interface for target store operations.
// Records are addressed by collection and source id.
type RecordStore interface {
	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error
	// Get gets one record. Returns nil and ErrNotFound if not found.
	Get(ctx context.Context, collection string, id int64) (*Record, error)
	// Upsert inserts or replaces records, keyed by id, atomically per call.
	Upsert(ctx context.Context, collection string, records []*Record) error
	// List returns records matching the filter ordered by id.
	List(ctx context.Context, collection string, filter Filter) ([]*Record, error)
	// Remove deletes records by id. Missing ids are ignored.
	Remove(ctx context.Context, collection string, ids []int64) error
}

// RecordRepo provides methods for record operations.
// It implements the RecordStore interface.
type RecordRepo struct {
	db *sql.DB
}

// NewRecordRepo creates a new RecordRepo.
func NewRecordRepo(db *sql.DB) *RecordRepo {
	return &RecordRepo{db: db}
}

const recordColumns = "id, title, content, excerpt, date, slug, type, status, featured_image, terms, meta, content_hash, updated_at"

// Ping checks the database connection.
func (r *RecordRepo) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}

// Get gets a record by collection and id.
// Returns nil and ErrNotFound if not found.
func (r *RecordRepo) Get(ctx context.Context, collection string, id int64) (*Record, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+recordColumns+" FROM records WHERE collection = ? AND id = ?",
		collection, id,
	)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query record: %w", err)
	}
	return rec, nil
}

// Upsert inserts new records or replaces existing ones in one transaction.
// Either every record of the call is written or none is.
func (r *RecordRepo) Upsert(ctx context.Context, collection string, records []*Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO records (collection, id, title, content, excerpt, date, slug, type, status, featured_image, terms, meta, content_hash, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (collection, id) DO UPDATE SET
		 title = excluded.title, content = excluded.content, excerpt = excluded.excerpt,
		 date = excluded.date, slug = excluded.slug, type = excluded.type, status = excluded.status,
		 featured_image = excluded.featured_image, terms = excluded.terms, meta = excluded.meta,
		 content_hash = excluded.content_hash, updated_at = CURRENT_TIMESTAMP`,
	)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer func() {
		_ = stmt.Close()
	}()

	for _, rec := range records {
		terms, err := json.Marshal(nonNilTerms(rec.Terms))
		if err != nil {
			return fmt.Errorf("failed to encode terms of record %d: %w", rec.ID, err)
		}
		meta, err := json.Marshal(nonNilMeta(rec.Meta))
		if err != nil {
			return fmt.Errorf("failed to encode meta of record %d: %w", rec.ID, err)
		}
		if rec.ContentHash == "" {
			rec.ContentHash = rec.ComputeHash()
		}

		_, err = stmt.ExecContext(ctx,
			collection, rec.ID, rec.Title, rec.Content, rec.Excerpt, rec.Date.UTC().Format(timeLayout),
			rec.Slug, rec.Type, rec.Status, rec.FeaturedImage, string(terms), string(meta), rec.ContentHash,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert record %d: %w", rec.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit upsert: %w", err)
	}
	return nil
}

// List returns the records of a collection matching filter, ordered by id.
// Returns an empty slice if nothing matches (not an error).
func (r *RecordRepo) List(ctx context.Context, collection string, filter Filter) ([]*Record, error) {
	query := "SELECT " + recordColumns + " FROM records WHERE collection = ?"
	args := []any{collection}

	if filter.IDs != nil {
		if len(filter.IDs) == 0 {
			return []*Record{}, nil
		}
		query += " AND id IN (" + placeholders(len(filter.IDs)) + ")"
		for _, id := range filter.IDs {
			args = append(args, id)
		}
	}
	if filter.Type != "" {
		query += " AND type = ?"
		args = append(args, filter.Type)
	}
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, filter.Status)
	}
	query += " ORDER BY id"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	records := []*Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return records, nil
}

// Remove deletes records by id.
func (r *RecordRepo) Remove(ctx context.Context, collection string, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	args := []any{collection}
	for _, id := range ids {
		args = append(args, id)
	}

	_, err := r.db.ExecContext(ctx,
		"DELETE FROM records WHERE collection = ? AND id IN ("+placeholders(len(ids))+")",
		args...,
	)
	if err != nil {
		return fmt.Errorf("failed to remove records: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*Record, error) {
	var (
		rec                 Record
		date, updatedAt     string
		termsJSON, metaJSON string
	)
	err := s.Scan(&rec.ID, &rec.Title, &rec.Content, &rec.Excerpt, &date, &rec.Slug, &rec.Type,
		&rec.Status, &rec.FeaturedImage, &termsJSON, &metaJSON, &rec.ContentHash, &updatedAt)
	if err != nil {
		return nil, err
	}

	if rec.Date, err = parseTimestamp(date); err != nil {
		return nil, fmt.Errorf("failed to parse date: %w", err)
	}
	// Parse updated_at DATETIME string
	if rec.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at timestamp: %w", err)
	}
	if err := json.Unmarshal([]byte(termsJSON), &rec.Terms); err != nil {
		return nil, fmt.Errorf("failed to decode terms: %w", err)
	}
	if err := json.Unmarshal([]byte(metaJSON), &rec.Meta); err != nil {
		return nil, fmt.Errorf("failed to decode meta: %w", err)
	}
	if len(rec.Terms) == 0 {
		rec.Terms = nil
	}
	if len(rec.Meta) == 0 {
		rec.Meta = nil
	}
	return &rec, nil
}

// parseTimestamp accepts our fixed layout and the formats SQLite and the
// driver produce for CURRENT_TIMESTAMP.
func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	var err error
	for _, layout := range []string{timeLayout, "2006-01-02 15:04:05", time.RFC3339Nano} {
		var t time.Time
		if t, err = time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, err
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func nonNilTerms(t []string) []string {
	if t == nil {
		return []string{}
	}
	return t
}

func nonNilMeta(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
