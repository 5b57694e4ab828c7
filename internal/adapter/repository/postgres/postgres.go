package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/vadimbarashkov/linkly/internal/entity"
)

const uniqueViolationErrCode = "23505"

func isUniqueViolationError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.SQLState() == uniqueViolationErrCode
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
		CreatedAt: l.CreatedAt,
	}
	if l.LastClicked.Valid {
		t := l.LastClicked.Time
		link.LastClicked = &t
	}
	if l.DeletedAt.Valid {
		t := l.DeletedAt.Time
		link.DeletedAt = &t
	}
	return link
}

type LinkRepository struct {
	db *sqlx.DB
}

func NewLinkRepository(db *sqlx.DB) *LinkRepository {
	return &LinkRepository{db: db}
}

func (r *LinkRepository) List(ctx context.Context) ([]*entity.Link, error) {
	const op = "adapter.repository.postgres.LinkRepository.List"
	const query = `SELECT ` + linkColumns + ` FROM links WHERE deleted_at IS NULL ORDER BY created_at, id`

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
	const op = "adapter.repository.postgres.LinkRepository.RetrieveByCode"
	const query = `SELECT ` + linkColumns + ` FROM links WHERE code = $1`

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
	const op = "adapter.repository.postgres.LinkRepository.Save"
	const query = `INSERT INTO links(id, code, target_url) VALUES ($1, $2, $3) RETURNING ` + linkColumns

	var link linkDB

	if err := r.db.GetContext(ctx, &link, query, uuid.NewString(), code, targetURL); err != nil {
		if isUniqueViolationError(err) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrCodeTaken)
		}

		return nil, fmt.Errorf("%s: failed to insert into links table: %w", op, err)
	}

	return link.toEntity(), nil
}

// SoftDelete marks the active link as deleted. A missing or already deleted
// link is left untouched and reported as entity.ErrLinkNotFound.
func (r *LinkRepository) SoftDelete(ctx context.Context, code string) error {
	const op = "adapter.repository.postgres.LinkRepository.SoftDelete"
	const query = `UPDATE links SET deleted_at = NOW() WHERE code = $1 AND deleted_at IS NULL`

	res, err := r.db.ExecContext(ctx, query, code)
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

// IncrementClicks counts a redirect in a single statement and returns the
// updated link. Deleted links are not counted.
func (r *LinkRepository) IncrementClicks(ctx context.Context, code string) (*entity.Link, error) {
	const op = "adapter.repository.postgres.LinkRepository.IncrementClicks"
	const query = `UPDATE links SET total_clicks = total_clicks + 1, last_clicked = NOW()
		WHERE code = $1 AND deleted_at IS NULL RETURNING ` + linkColumns

	var link linkDB

	if err := r.db.GetContext(ctx, &link, query, code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrLinkNotFound)
		}

		return nil, fmt.Errorf("%s: failed to update links table row: %w", op, err)
	}

	return link.toEntity(), nil
}
