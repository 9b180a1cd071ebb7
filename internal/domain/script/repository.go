package script

import (
	"context"

	"github.com/scenedex/scenedex/pkg/types/common"
)

// Repository is the persistence port for script versions.
type Repository interface {
	Create(ctx context.Context, s *Script) error

	// GetByID loads one script version, ErrCodeScriptNotFound when absent.
	GetByID(ctx context.Context, id common.ID) (*Script, error)

	// ListByProject lists a project's script versions, newest first.
	ListByProject(ctx context.Context, projectID common.ProjectID, page common.Pagination) ([]*Script, int64, error)

	// UpdateStatus persists a lifecycle transition, guarded so the write
	// only applies when the stored status still equals from.
	UpdateStatus(ctx context.Context, id common.ID, from, to Status) error

	Update(ctx context.Context, s *Script) error
}

// MatchRepository is the persistence port for revision matches.
type MatchRepository interface {
	CreateBatch(ctx context.Context, matches []*RevisionMatch) error

	// Unresolved lists a script's pending matches ordered by creation time.
	Unresolved(ctx context.Context, scriptID common.ID) ([]*RevisionMatch, error)

	Update(ctx context.Context, m *RevisionMatch) error
}
