// Package sqlite implements link storage on top of an SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/vadimbarashkov/linkly/internal/entity"
	"modernc.org/sqlite"

	sqlite3 "modernc.org/sqlite/lib"
)

func isUniqueViolationError(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}

	switch sqliteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	case sqlite3.SQLITE_CONSTRAINT:
		return strings.Contains(sqliteErr.Error(), "UNIQUE constraint failed")
	default:
		return false
	}
}

const linkColumns = `id, code, target_url, created_at, total_clicks, last_clicked, deleted_at`

type linkDB struct {
	ID          string       `db:"id"`
	Code        string       `db:"code"`
	TargetURL   string       `db:"target_url"`
	CreatedAt   time.Time    `db:"created_at"`
	TotalClicks int64        `db:"total_clicks"`
	LastClicked sql.NullTime `db:"last_clicked"`
	DeletedAt   sql.NullTime `db:"deleted_at"`
}

func (l *linkDB) toEntity() *entity.Link {
	link := &entity.Link{
		ID:        l.ID,
		Code:      l.Code,
		TargetURL: l.TargetURL,
		LinkStats: entity.LinkStats{
			TotalClicks: l.TotalClicks,
		},
		CreatedAt: l.CreatedAt.UTC(),
	}
	if l.LastClicked.Valid {
		t := l.LastClicked.Time.UTC()
		link.LastClicked = &t
	}
	if l.DeletedAt.Valid {
		t := l.DeletedAt.Time.UTC()
		link.DeletedAt = &t
	}
	return link
}

// LinkRepository stores links in SQLite. Timestamps are produced by now so
// they are written in a single, sortable format.
type LinkRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewLinkRepository(db *sqlx.DB) *LinkRepository {
	return &LinkRepository{
		db: db,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func (r *LinkRepository) List(ctx context.Context) ([]*entity.Link, error) {
	const op = "adapter.repository.sqlite.LinkRepository.List"
	const query = `SELECT ` + linkColumns + ` FROM links WHERE deleted_at IS NULL ORDER BY created_at, rowid`

	var rows []linkDB

	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("%s: failed to select from links table: %w", op, err)
	}

	links := make([]*entity.Link, 0, len(rows))
	for i := range rows {
		links = append(links, rows[i].toEntity())
	}

	return links, nil
}

func (r *LinkRepository) RetrieveByCode(ctx context.Context, code string) (*entity.Link, error) {
	const op = "adapter.repository.sqlite.LinkRepository.RetrieveByCode"
	const query = `SELECT ` + linkColumns + ` FROM links WHERE code = ?`

	var link linkDB

	if err := r.db.GetContext(ctx, &link, query, code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrLinkNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get row from links table: %w", op, err)
	}

	return link.toEntity(), nil
}

func (r *LinkRepository) Save(ctx context.Context, code, targetURL string) (*entity.Link, error) {
	const op = "adapter.repository.sqlite.LinkRepository.Save"
	const query = `INSERT INTO links(id, code, target_url, created_at) VALUES (?, ?, ?, ?) RETURNING ` + linkColumns

	var link linkDB

	if err := r.db.GetContext(ctx, &link, query, uuid.NewString(), code, targetURL, r.now()); err != nil {
		if isUniqueViolationError(err) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrCodeTaken)
		}

		return nil, fmt.Errorf("%s: failed to insert into links table: %w", op, err)
	}

	return link.toEntity(), nil
}

func (r *LinkRepository) SoftDelete(ctx context.Context, code string) error {
	const op = "adapter.repository.sqlite.LinkRepository.SoftDelete"
	const query = `UPDATE links SET deleted_at = ? WHERE code = ? AND deleted_at IS NULL`

	res, err := r.db.ExecContext(ctx, query, r.now(), code)
	if err != nil {
		return fmt.Errorf("%s: failed to update links table row: %w", op, err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: failed to get number of affected rows: %w", op, err)
	}

	if rowsAffected != 1 {
		return fmt.Errorf("%s: %w", op, entity.ErrLinkNotFound)
	}

	return nil
}

func (r *LinkRepository) IncrementClicks(ctx context.Context, code string) (*entity.Link, error) {
	const op = "adapter.repository.sqlite.LinkRepository.IncrementClicks"
	const query = `UPDATE links SET total_clicks = total_clicks + 1, last_clicked = ?
		WHERE code = ? AND deleted_at IS NULL RETURNING ` + linkColumns

	var link linkDB

	if err := r.db.GetContext(ctx, &link, query, r.now(), code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrLinkNotFound)
		}

		return nil, fmt.Errorf("%s: failed to update links table row: %w", op, err)
	}

	return link.toEntity(), nil
}
