package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scenedex/scenedex/internal/application/revision"
	"github.com/scenedex/scenedex/internal/domain/element"
	"github.com/scenedex/scenedex/internal/domain/script"
	"github.com/scenedex/scenedex/internal/infrastructure/monitoring/logging"
	"github.com/scenedex/scenedex/pkg/errors"
	"github.com/scenedex/scenedex/pkg/types/common"
)

// Store is the PostgreSQL implementation of the revision pipeline's
// persistence port.  Plan application runs in a single transaction guarded
// on the script's stored status.
type Store struct {
	pool     *pgxpool.Pool
	scripts  *ScriptRepository
	elements *ElementRepository
	matches  *MatchRepository
	logger   logging.Logger
}

var _ revision.Store = (*Store)(nil)

// NewStore creates a PostgreSQL-backed pipeline store.
func NewStore(pool *pgxpool.Pool, log logging.Logger) *Store {
	return &Store{
		pool:     pool,
		scripts:  NewScriptRepository(pool, log),
		elements: NewElementRepository(pool, log),
		matches:  NewMatchRepository(pool, log),
		logger:   log.Named("revision_store"),
	}
}

// Scripts returns the underlying script repository.
func (s *Store) Scripts() *ScriptRepository { return s.scripts }

// Elements returns the underlying element repository.
func (s *Store) Elements() *ElementRepository { return s.elements }

// Matches returns the underlying match repository.
func (s *Store) Matches() *MatchRepository { return s.matches }

// CreateScript persists a new script version.
func (s *Store) CreateScript(ctx context.Context, sc *script.Script) error {
	return s.scripts.Create(ctx, sc)
}

// GetScript loads one script version.
func (s *Store) GetScript(ctx context.Context, id common.ID) (*script.Script, error) {
	return s.scripts.GetByID(ctx, id)
}

// GetElement loads one element.
func (s *Store) GetElement(ctx context.Context, id common.ID) (*element.Element, error) {
	return s.elements.GetByID(ctx, id)
}

// ActiveElements lists a script version's ACTIVE elements in matching order.
func (s *Store) ActiveElements(ctx context.Context, scriptID common.ID) ([]*element.Element, error) {
	return s.elements.ActiveByScript(ctx, scriptID)
}

// UnresolvedMatches lists a script version's pending revision matches.
func (s *Store) UnresolvedMatches(ctx context.Context, scriptID common.ID) ([]*script.RevisionMatch, error) {
	return s.matches.Unresolved(ctx, scriptID)
}

// ApplyReconciliation commits one reconciliation outcome atomically.  The
// status transition is guarded so a concurrent run that already moved the
// script cannot be overwritten.
func (s *Store) ApplyReconciliation(ctx context.Context, plan *revision.ReconciliationPlan) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to begin transaction")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tag, err := tx.Exec(ctx,
		"UPDATE scripts SET status = $1, page_count = $2, updated_at = now() WHERE id = $3 AND status = $4",
		plan.ToStatus, plan.PageCount, plan.ScriptID, plan.FromStatus,
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to transition script status")
	}
	if tag.RowsAffected() == 0 {
		return errors.New(errors.ErrCodeScriptStatusInvalid, "script is not in the expected lifecycle state").
			WithDetail(fmt.Sprintf("script_id=%s expected=%s", plan.ScriptID, plan.FromStatus))
	}

	for _, el := range plan.Migrations {
		if err := updateElement(ctx, tx, el); err != nil {
			return err
		}
	}
	for _, el := range plan.Creations {
		if err := insertElement(ctx, tx, el); err != nil {
			return err
		}
	}
	for _, m := range plan.Matches {
		if err := insertMatch(ctx, tx, m); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to commit reconciliation")
	}

	s.logger.Info("Applied reconciliation plan",
		logging.String("script_id", plan.ScriptID.String()),
		logging.String("to_status", string(plan.ToStatus)),
		logging.Int("migrated", len(plan.Migrations)),
		logging.Int("created", len(plan.Creations)),
		logging.Int("pending_matches", len(plan.Matches)),
	)
	return nil
}

// ApplyResolution commits one decision batch atomically.  The script row is
// locked for the duration so concurrent batches serialize.
func (s *Store) ApplyResolution(ctx context.Context, plan *revision.ResolutionPlan) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to begin transaction")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var status script.Status
	err = tx.QueryRow(ctx, "SELECT status FROM scripts WHERE id = $1 FOR UPDATE", plan.ScriptID).Scan(&status)
	if err == pgx.ErrNoRows {
		return errors.New(errors.ErrCodeScriptNotFound, "script not found").
			WithDetail(fmt.Sprintf("script_id=%s", plan.ScriptID))
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to lock script row")
	}
	if status != script.StatusReconciling {
		return errors.New(errors.ErrCodeScriptStatusInvalid, "script is not in the expected lifecycle state").
			WithDetail(fmt.Sprintf("script_id=%s status=%s", plan.ScriptID, status))
	}

	for _, el := range plan.UpdatedElements {
		if err := updateElement(ctx, tx, el); err != nil {
			return err
		}
	}
	for _, el := range plan.CreatedElements {
		if err := insertElement(ctx, tx, el); err != nil {
			return err
		}
	}
	for _, m := range plan.ResolvedMatches {
		if err := updateMatch(ctx, tx, m); err != nil {
			return err
		}
	}

	if plan.ToStatus != "" {
		_, err := tx.Exec(ctx,
			"UPDATE scripts SET status = $1, updated_at = now() WHERE id = $2",
			plan.ToStatus, plan.ScriptID,
		)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to transition script status")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to commit resolution")
	}

	s.logger.Info("Applied resolution plan",
		logging.String("script_id", plan.ScriptID.String()),
		logging.Int("resolved", len(plan.ResolvedMatches)),
		logging.String("to_status", string(plan.ToStatus)),
	)
	return nil
}

// UpdateScriptStatus persists a guarded lifecycle transition.
func (s *Store) UpdateScriptStatus(ctx context.Context, id common.ID, from, to script.Status) error {
	return s.scripts.UpdateStatus(ctx, id, from, to)
}

// MarkScriptError moves a script to the terminal ERROR state and records the
// failure detail.  Only non-terminal states can be failed.
func (s *Store) MarkScriptError(ctx context.Context, id common.ID, detail string) error {
	tag, err := s.pool.Exec(ctx,
		"UPDATE scripts SET status = $1, error_detail = $2, updated_at = now() WHERE id = $3 AND status = ANY($4)",
		script.StatusError, detail, id,
		[]string{string(script.StatusProcessing), string(script.StatusReconciling)},
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to mark script as failed")
	}
	if tag.RowsAffected() == 0 {
		return errors.New(errors.ErrCodeScriptStatusInvalid, "script cannot be failed from its current state").
			WithDetail(fmt.Sprintf("script_id=%s", id))
	}
	return nil
}
