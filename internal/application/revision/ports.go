// Package revision implements the script revision pipeline: submission,
// detection, matching, reconciliation of a new version against its parent,
// and the application of human decisions for the cases the pipeline could
// not settle on its own.
package revision

import (
	"context"
	"time"

	"github.com/scenedex/scenedex/internal/domain/element"
	"github.com/scenedex/scenedex/internal/domain/script"
	"github.com/scenedex/scenedex/pkg/types/common"
)

// Store is the persistence port of the pipeline.  Implementations must make
// ApplyReconciliation and ApplyResolution atomic: every write in a plan
// commits or none does, including the status transition.
type Store interface {
	CreateScript(ctx context.Context, s *script.Script) error

	// GetScript loads one script version, ErrCodeScriptNotFound when absent.
	GetScript(ctx context.Context, id common.ID) (*script.Script, error)

	// GetElement loads one element, ErrCodeElementNotFound when absent.
	GetElement(ctx context.Context, id common.ID) (*element.Element, error)

	// ActiveElements lists a version's ACTIVE elements ordered by creation
	// time then id, the order fuzzy tie-breaking depends on.
	ActiveElements(ctx context.Context, scriptID common.ID) ([]*element.Element, error)

	// UnresolvedMatches lists a version's pending revision matches.
	UnresolvedMatches(ctx context.Context, scriptID common.ID) ([]*script.RevisionMatch, error)

	// ApplyReconciliation commits a reconciliation outcome in one
	// transaction, re-checking the script's status before writing.
	ApplyReconciliation(ctx context.Context, plan *ReconciliationPlan) error

	// ApplyResolution commits a decision batch in one transaction,
	// re-checking the script's status before writing.
	ApplyResolution(ctx context.Context, plan *ResolutionPlan) error

	// UpdateScriptStatus persists a lifecycle transition, guarded so the
	// write only applies when the stored status still equals from.
	UpdateScriptStatus(ctx context.Context, id common.ID, from, to script.Status) error

	// MarkScriptError moves a script to the terminal ERROR state.
	MarkScriptError(ctx context.Context, id common.ID, detail string) error
}

// ObjectStore fetches raw document bytes by storage key.
type ObjectStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

// Locker serializes reconciliation runs per script.  Acquire returns a
// release function, or an error when the lock is already held.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// ReconciliationPlan is the write set of one reconciliation run.
type ReconciliationPlan struct {
	ScriptID common.ID

	// FromStatus guards the transition: the plan applies only while the
	// stored status still equals it.
	FromStatus script.Status
	ToStatus   script.Status

	PageCount int

	// Migrations are parent elements re-homed in place (exact matches),
	// already mutated to their new state.
	Migrations []*element.Element

	// Creations are brand-new elements for NEW detections.
	Creations []*element.Element

	// Matches are the FUZZY/MISSING rows awaiting a decision.
	Matches []*script.RevisionMatch
}

// ResolutionPlan is the write set of one decision batch.
type ResolutionPlan struct {
	ScriptID common.ID

	// UpdatedElements carry MAP/KEEP/ARCHIVE mutations.
	UpdatedElements []*element.Element

	// CreatedElements carry CREATE_NEW decisions.
	CreatedElements []*element.Element

	// ResolvedMatches are the match rows with decisions recorded.
	ResolvedMatches []*script.RevisionMatch

	// ToStatus is StatusReady once no unresolved matches remain, empty when
	// the batch was partial and the script stays RECONCILING.
	ToStatus script.Status
}
