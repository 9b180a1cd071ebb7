package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scenedex/scenedex/internal/domain/script"
	"github.com/scenedex/scenedex/internal/infrastructure/monitoring/logging"
	"github.com/scenedex/scenedex/pkg/errors"
	"github.com/scenedex/scenedex/pkg/types/common"
)

// MatchRepository is the PostgreSQL implementation of script.MatchRepository.
type MatchRepository struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

// NewMatchRepository creates a PostgreSQL-backed revision match repository.
func NewMatchRepository(pool *pgxpool.Pool, log logging.Logger) *MatchRepository {
	return &MatchRepository{
		pool:   pool,
		logger: log.Named("match_repo"),
	}
}

// CreateBatch persists a set of revision matches.
func (r *MatchRepository) CreateBatch(ctx context.Context, matches []*script.RevisionMatch) error {
	if len(matches) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to begin transaction")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, m := range matches {
		if err := insertMatch(ctx, tx, m); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to commit match batch")
	}
	return nil
}

// Unresolved lists a script's pending matches ordered by creation time.
func (r *MatchRepository) Unresolved(ctx context.Context, scriptID common.ID) ([]*script.RevisionMatch, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT "+matchColumns+" FROM revision_matches WHERE script_id = $1 AND NOT resolved ORDER BY created_at, id",
		scriptID,
	)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list unresolved matches")
	}
	defer rows.Close()

	var out []*script.RevisionMatch
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan match row")
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate match rows")
	}
	return out, nil
}

// Update persists the decision state of a revision match.
func (r *MatchRepository) Update(ctx context.Context, m *script.RevisionMatch) error {
	return updateMatch(ctx, r.pool, m)
}

func updateMatch(ctx context.Context, q querier, m *script.RevisionMatch) error {
	touch(&m.BaseEntity)

	tag, err := q.Exec(ctx,
		"UPDATE revision_matches SET user_decision = $1, resolved = $2, updated_at = $3 WHERE id = $4",
		m.UserDecision, m.Resolved, m.UpdatedAt, m.ID,
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to update revision match")
	}
	if tag.RowsAffected() == 0 {
		return errors.New(errors.ErrCodeMatchNotFound, "revision match not found").
			WithDetail(fmt.Sprintf("match_id=%s", m.ID))
	}
	return nil
}

func insertMatch(ctx context.Context, q querier, m *script.RevisionMatch) error {
	touch(&m.BaseEntity)

	_, err := q.Exec(ctx, insertMatchSQL,
		m.ID, m.ScriptID, m.MatchStatus, m.DetectedName, m.DetectedType,
		m.DetectedPage, m.DetectedHighlightText, nullable(m.OldElementID),
		m.Similarity, m.UserDecision, m.Resolved, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to insert revision match")
	}
	return nil
}

const insertMatchSQL = `
	INSERT INTO revision_matches (
		id, script_id, match_status, detected_name, detected_type,
		detected_page, detected_highlight_text, old_element_id, similarity,
		user_decision, resolved, created_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
