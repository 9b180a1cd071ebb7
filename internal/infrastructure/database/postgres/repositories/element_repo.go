package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scenedex/scenedex/internal/domain/element"
	"github.com/scenedex/scenedex/internal/infrastructure/monitoring/logging"
	"github.com/scenedex/scenedex/pkg/errors"
	"github.com/scenedex/scenedex/pkg/types/common"
)

// ElementRepository is the PostgreSQL implementation of element.Repository.
type ElementRepository struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

// NewElementRepository creates a PostgreSQL-backed element repository.
func NewElementRepository(pool *pgxpool.Pool, log logging.Logger) *ElementRepository {
	return &ElementRepository{
		pool:   pool,
		logger: log.Named("element_repo"),
	}
}

// Create persists a new element.
func (r *ElementRepository) Create(ctx context.Context, el *element.Element) error {
	if err := insertElement(ctx, r.pool, el); err != nil {
		r.logger.Error("Failed to insert element", logging.String("element_id", el.ID.String()), logging.Err(err))
		return err
	}
	return nil
}

// GetByID loads one element.
func (r *ElementRepository) GetByID(ctx context.Context, id common.ID) (*element.Element, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+elementColumns+" FROM elements WHERE id = $1", id)
	el, err := scanElement(row)
	if err == pgx.ErrNoRows {
		return nil, errors.New(errors.ErrCodeElementNotFound, "element not found").
			WithDetail(fmt.Sprintf("element_id=%s", id))
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load element")
	}
	return el, nil
}

// ActiveByScript lists a script version's ACTIVE elements ordered by creation
// time then id.
func (r *ElementRepository) ActiveByScript(ctx context.Context, scriptID common.ID) ([]*element.Element, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT "+elementColumns+" FROM elements WHERE script_id = $1 AND status = $2 ORDER BY created_at, id",
		scriptID, element.StatusActive,
	)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list active elements")
	}
	defer rows.Close()

	return collectElements(rows)
}

// ListByScript lists all elements of a script version regardless of status.
func (r *ElementRepository) ListByScript(ctx context.Context, scriptID common.ID, page common.Pagination) ([]*element.Element, int64, error) {
	page.Normalize()

	var total int64
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM elements WHERE script_id = $1", scriptID).Scan(&total)
	if err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to count elements")
	}

	rows, err := r.pool.Query(ctx,
		"SELECT "+elementColumns+" FROM elements WHERE script_id = $1 ORDER BY created_at, id LIMIT $2 OFFSET $3",
		scriptID, page.PageSize, page.Offset(),
	)
	if err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list elements")
	}
	defer rows.Close()

	out, err := collectElements(rows)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Update persists the current state of an existing element.
func (r *ElementRepository) Update(ctx context.Context, el *element.Element) error {
	return updateElement(ctx, r.pool, el)
}

func collectElements(rows pgx.Rows) ([]*element.Element, error) {
	var out []*element.Element
	for rows.Next() {
		el, err := scanElement(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan element row")
		}
		out = append(out, el)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate element rows")
	}
	return out, nil
}

func insertElement(ctx context.Context, q querier, el *element.Element) error {
	touch(&el.BaseEntity)

	_, err := q.Exec(ctx, insertElementSQL,
		el.ID, el.ProjectID, el.ScriptID, el.Name, el.Type, el.Status,
		el.Source, el.Department, el.HighlightPage, el.HighlightText,
		el.CreatedAt, el.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to insert element")
	}
	return nil
}

func updateElement(ctx context.Context, q querier, el *element.Element) error {
	touch(&el.BaseEntity)

	tag, err := q.Exec(ctx, updateElementSQL,
		el.ScriptID, el.Name, el.Status, el.Department,
		el.HighlightPage, el.HighlightText, el.UpdatedAt, el.ID,
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to update element")
	}
	if tag.RowsAffected() == 0 {
		return errors.New(errors.ErrCodeElementNotFound, "element not found").
			WithDetail(fmt.Sprintf("element_id=%s", el.ID))
	}
	return nil
}

const insertElementSQL = `
	INSERT INTO elements (
		id, project_id, script_id, name, type, status, source, department,
		highlight_page, highlight_text, created_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

const updateElementSQL = `
	UPDATE elements
	SET script_id = $1, name = $2, status = $3, department = $4,
		highlight_page = $5, highlight_text = $6, updated_at = $7
	WHERE id = $8`
