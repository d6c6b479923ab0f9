package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/caputdraconis050630/feishu-invitor/internal/biz/domain"
	"github.com/caputdraconis050630/feishu-invitor/internal/biz/repo"

	_ "modernc.org/sqlite"
)

const defaultStorePageSize = 100

// conventionRepo implements the Convention repository on SQLite
type conventionRepo struct {
	db       *sql.DB
	pageSize int
	logger   *log.Logger
}

// NewConventionRepo creates a new Convention repository
// pageSize bounds each ListAll query; <= 0 uses the default
func NewConventionRepo(dbPath string, pageSize int) (repo.ConventionRepo, error) {
	if pageSize <= 0 {
		pageSize = defaultStorePageSize
	}

	// Ensure directory exists
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("%w: create db directory: %w", domain.ErrStoreUnavailable, err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open database: %w", domain.ErrStoreUnavailable, err)
	}
	// Single writer; SQLite serializes anyway
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS conventions (
			channel_id TEXT PRIMARY KEY,
			pattern TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			revision INTEGER NOT NULL DEFAULT 1
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: create table: %w", domain.ErrStoreUnavailable, err)
	}
	if err := addRevisionColumn(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: migrate table: %w", domain.ErrStoreUnavailable, err)
	}

	return &conventionRepo{db: db, pageSize: pageSize, logger: log.WithPrefix("Store")}, nil
}

// GetByChannel gets the convention of a channel
func (r *conventionRepo) GetByChannel(ctx context.Context, channelID string) (*domain.Convention, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT channel_id, pattern, created_at, updated_at, revision
		FROM conventions
		WHERE channel_id = ?
	`, channelID)

	conv, err := scanConvention(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: query convention: %w", domain.ErrStoreUnavailable, err)
	}
	return conv, nil
}

// PutOrUpdate creates or replaces the channel's pattern
func (r *conventionRepo) PutOrUpdate(ctx context.Context, channelID, pattern string) (*domain.Convention, error) {
	now := time.Now().UnixMilli()
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO conventions (channel_id, pattern, created_at, updated_at, revision)
		VALUES (?, ?, ?, ?, 1)
		ON CONFLICT(channel_id) DO UPDATE SET
			pattern = excluded.pattern,
			updated_at = excluded.updated_at,
			revision = conventions.revision + 1
		RETURNING channel_id, pattern, created_at, updated_at, revision
	`, channelID, pattern, now, now)

	conv, err := scanConvention(row)
	if err != nil {
		return nil, fmt.Errorf("%w: save convention: %w", domain.ErrStoreUnavailable, err)
	}

	r.logger.Debug("Convention stored", "channel", channelID, "pattern", pattern, "revision", conv.Revision)
	return conv, nil
}

// Delete deletes the channel's convention
func (r *conventionRepo) Delete(ctx context.Context, channelID string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM conventions WHERE channel_id = ?`, channelID)
	if err != nil {
		return false, fmt.Errorf("%w: delete convention: %w", domain.ErrStoreUnavailable, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: delete convention: %w", domain.ErrStoreUnavailable, err)
	}
	return n > 0, nil
}

// ListAll lists every convention, one keyset page at a time
func (r *conventionRepo) ListAll(ctx context.Context) ([]*domain.Convention, error) {
	var all []*domain.Convention
	cursor := ""
	for {
		page, err := r.listPage(ctx, cursor)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < r.pageSize {
			return all, nil
		}
		cursor = page[len(page)-1].ChannelID
	}
}

func (r *conventionRepo) listPage(ctx context.Context, after string) ([]*domain.Convention, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT channel_id, pattern, created_at, updated_at, revision
		FROM conventions
		WHERE channel_id > ?
		ORDER BY channel_id
		LIMIT ?
	`, after, r.pageSize)
	if err != nil {
		return nil, fmt.Errorf("%w: list conventions: %w", domain.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var page []*domain.Convention
	for rows.Next() {
		conv, err := scanConvention(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan convention: %w", domain.ErrStoreUnavailable, err)
		}
		page = append(page, conv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list conventions: %w", domain.ErrStoreUnavailable, err)
	}
	return page, nil
}

// Close closes the database connection
func (r *conventionRepo) Close() error {
	return r.db.Close()
}

// addRevisionColumn upgrades tables created before revisions were tracked
func addRevisionColumn(db *sql.DB) error {
	rows, err := db.Query(`PRAGMA table_info(conventions)`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid       int
			name      string
			colType   string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return err
		}
		if name == "revision" {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	rows.Close()

	_, err = db.Exec(`ALTER TABLE conventions ADD COLUMN revision INTEGER NOT NULL DEFAULT 1`)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanConvention(s scanner) (*domain.Convention, error) {
	var conv domain.Convention
	var createdAt, updatedAt int64
	if err := s.Scan(&conv.ChannelID, &conv.Pattern, &createdAt, &updatedAt, &conv.Revision); err != nil {
		return nil, err
	}
	conv.CreatedAt = time.UnixMilli(createdAt)
	conv.UpdatedAt = time.UnixMilli(updatedAt)
	return &conv, nil
}
