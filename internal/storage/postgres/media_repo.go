package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/romariotrain/visa-docs/internal/media/models"
)

const mediaColumns = `id, original_name, file_name, path, type, category, created_at, updated_at`

// MediaRepo is the Postgres record store. SetPath and Delete also queue a
// lifecycle event in the outbox within the same transaction.
type MediaRepo struct {
	db     *sqlx.DB
	outbox *OutboxRepo
}

func NewMediaRepo(db *sqlx.DB, outbox *OutboxRepo) *MediaRepo {
	return &MediaRepo{db: db, outbox: outbox}
}

func (r *MediaRepo) Create(ctx context.Context, m *models.Media) error {
	const q = `
		INSERT INTO media (original_name, file_name, path, type, category)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	row := r.db.QueryRowxContext(ctx, q, m.OriginalName, m.FileName, m.Path, m.Type, m.Category)
	if err := row.Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return fmt.Errorf("media create: %w", err)
	}
	return nil
}

func (r *MediaRepo) GetByID(ctx context.Context, id int64) (*models.Media, error) {
	q := `SELECT ` + mediaColumns + ` FROM media WHERE id = $1`

	var m models.Media
	if err := r.db.GetContext(ctx, &m, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("media get by id: %w", err)
	}
	return &m, nil
}

func (r *MediaRepo) List(ctx context.Context) ([]*models.Media, error) {
	q := `SELECT ` + mediaColumns + ` FROM media ORDER BY id ASC`

	var out []*models.Media
	if err := r.db.SelectContext(ctx, &out, q); err != nil {
		return nil, fmt.Errorf("media list: %w", err)
	}
	return out, nil
}

func (r *MediaRepo) SetPath(ctx context.Context, id int64, path string) (*models.Media, error) {
	q := `
		UPDATE media
		SET path = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + mediaColumns

	var m models.Media
	err := r.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := tx.GetContext(ctx, &m, q, id, path); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return models.ErrNotFound
			}
			return fmt.Errorf("media set path: %w", err)
		}
		return r.outbox.Add(ctx, tx, models.NewMediaUploaded(&m))
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MediaRepo) Delete(ctx context.Context, id int64) error {
	q := `DELETE FROM media WHERE id = $1 RETURNING ` + mediaColumns

	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		var m models.Media
		if err := tx.GetContext(ctx, &m, q, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return models.ErrNotFound
			}
			return fmt.Errorf("media delete: %w", err)
		}
		// Rollbacks of half-finished uploads never announced the record.
		if !m.Stored() {
			return nil
		}
		return r.outbox.Add(ctx, tx, models.NewMediaDeleted(&m))
	})
}

func (r *MediaRepo) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
