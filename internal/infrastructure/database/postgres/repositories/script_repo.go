package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scenedex/scenedex/internal/domain/script"
	"github.com/scenedex/scenedex/internal/infrastructure/monitoring/logging"
	"github.com/scenedex/scenedex/pkg/errors"
	"github.com/scenedex/scenedex/pkg/types/common"
)

// ScriptRepository is the PostgreSQL implementation of script.Repository.
type ScriptRepository struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

// NewScriptRepository creates a PostgreSQL-backed script repository.
func NewScriptRepository(pool *pgxpool.Pool, log logging.Logger) *ScriptRepository {
	return &ScriptRepository{
		pool:   pool,
		logger: log.Named("script_repo"),
	}
}

// Create persists a new script version.
func (r *ScriptRepository) Create(ctx context.Context, s *script.Script) error {
	touch(&s.BaseEntity)

	_, err := r.pool.Exec(ctx, insertScriptSQL,
		s.ID, s.ProjectID, s.Title, s.StorageKey, s.UploadedBy,
		nullable(s.ParentID), s.RevisionNumber, s.RevisionColor, s.Status,
		s.PageCount, s.ErrorDetail, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to insert script", logging.String("script_id", s.ID.String()), logging.Err(err))
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to insert script")
	}
	return nil
}

// GetByID loads one script version.
func (r *ScriptRepository) GetByID(ctx context.Context, id common.ID) (*script.Script, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+scriptColumns+" FROM scripts WHERE id = $1", id)
	s, err := scanScript(row)
	if err == pgx.ErrNoRows {
		return nil, errors.New(errors.ErrCodeScriptNotFound, "script not found").
			WithDetail(fmt.Sprintf("script_id=%s", id))
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load script")
	}
	return s, nil
}

// ListByProject lists a project's script versions, newest first.
func (r *ScriptRepository) ListByProject(ctx context.Context, projectID common.ProjectID, page common.Pagination) ([]*script.Script, int64, error) {
	page.Normalize()

	var total int64
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM scripts WHERE project_id = $1", projectID).Scan(&total)
	if err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to count scripts")
	}

	rows, err := r.pool.Query(ctx,
		"SELECT "+scriptColumns+" FROM scripts WHERE project_id = $1 ORDER BY created_at DESC, id LIMIT $2 OFFSET $3",
		projectID, page.PageSize, page.Offset(),
	)
	if err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list scripts")
	}
	defer rows.Close()

	var out []*script.Script
	for rows.Next() {
		s, err := scanScript(rows)
		if err != nil {
			return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan script row")
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate script rows")
	}
	return out, total, nil
}

// UpdateStatus persists a lifecycle transition guarded on the current status.
func (r *ScriptRepository) UpdateStatus(ctx context.Context, id common.ID, from, to script.Status) error {
	tag, err := r.pool.Exec(ctx,
		"UPDATE scripts SET status = $1, updated_at = now() WHERE id = $2 AND status = $3",
		to, id, from,
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to update script status")
	}
	if tag.RowsAffected() == 0 {
		return errors.New(errors.ErrCodeScriptStatusInvalid, "script is not in the expected lifecycle state").
			WithDetail(fmt.Sprintf("script_id=%s expected=%s", id, from))
	}
	return nil
}

// Update persists the current state of a script version.
func (r *ScriptRepository) Update(ctx context.Context, s *script.Script) error {
	touch(&s.BaseEntity)

	tag, err := r.pool.Exec(ctx, updateScriptSQL,
		s.Title, s.StorageKey, s.Status, s.PageCount, s.ErrorDetail, s.UpdatedAt, s.ID,
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to update script")
	}
	if tag.RowsAffected() == 0 {
		return errors.New(errors.ErrCodeScriptNotFound, "script not found").
			WithDetail(fmt.Sprintf("script_id=%s", s.ID))
	}
	return nil
}

const insertScriptSQL = `
	INSERT INTO scripts (
		id, project_id, title, storage_key, uploaded_by, parent_id,
		revision_number, revision_color, status, page_count, error_detail,
		created_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

const updateScriptSQL = `
	UPDATE scripts
	SET title = $1, storage_key = $2, status = $3, page_count = $4,
		error_detail = $5, updated_at = $6
	WHERE id = $7`
