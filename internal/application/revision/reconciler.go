package revision

import (
	"context"
	"time"

	"github.com/scenedex/scenedex/internal/detect"
	"github.com/scenedex/scenedex/internal/domain/element"
	"github.com/scenedex/scenedex/internal/domain/script"
	"github.com/scenedex/scenedex/internal/infrastructure/monitoring/logging"
	"github.com/scenedex/scenedex/internal/match"
	"github.com/scenedex/scenedex/pkg/errors"
	"github.com/scenedex/scenedex/pkg/types/common"
)

// lockTTL bounds how long a reconciliation lock outlives a crashed worker.
const lockTTL = 5 * time.Minute

// Reconciler drives an uploaded script version from PROCESSING to its
// settled state.  It runs at most once per version; per-script serialization
// is enforced through the Locker.  A run either commits its full outcome or
// moves the script to ERROR, never anything in between.
type Reconciler struct {
	store   Store
	objects ObjectStore
	locker  Locker
	logger  logging.Logger
	opts    detect.StructuredOptions
}

// NewReconciler wires a reconciler.  locker may be nil when the caller
// guarantees serialization by other means.
func NewReconciler(store Store, objects ObjectStore, locker Locker, logger logging.Logger) *Reconciler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Reconciler{
		store:   store,
		objects: objects,
		locker:  locker,
		logger:  logger.Named("reconciler"),
		opts:    detect.DefaultStructuredOptions(),
	}
}

// Reconcile fetches the version's document, detects entities, matches them
// against the parent version's elements, and commits the outcome.
//
// Fetch, parse, and persistence failures move the script to terminal ERROR;
// no retry happens here.  A script not in PROCESSING is rejected without
// side effects.
func (r *Reconciler) Reconcile(ctx context.Context, scriptID common.ID) error {
	if r.locker != nil {
		release, err := r.locker.Acquire(ctx, "reconcile:"+scriptID.String(), lockTTL)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeScriptLocked,
				"reconciliation already in progress")
		}
		defer release()
	}

	s, err := r.store.GetScript(ctx, scriptID)
	if err != nil {
		return err
	}
	if s.Status != script.StatusProcessing {
		return errors.New(errors.ErrCodeScriptStatusInvalid,
			"script is not awaiting reconciliation").WithDetail(string(s.Status))
	}

	log := r.logger.With(
		logging.String("script_id", s.ID.String()),
		logging.Int("revision", s.RevisionNumber),
	)

	result, pageCount, err := r.detectFromStorage(ctx, s)
	if err != nil {
		return r.fail(ctx, s, log, err)
	}

	var existing []*element.Element
	if s.IsRevision() {
		existing, err = r.store.ActiveElements(ctx, s.ParentID)
		if err != nil {
			return r.fail(ctx, s, log, err)
		}
	}

	plan, err := buildPlan(s, existing, match.Match(existing, result.Entities), pageCount)
	if err != nil {
		return r.fail(ctx, s, log, err)
	}
	if err := r.store.ApplyReconciliation(ctx, plan); err != nil {
		return r.fail(ctx, s, log, err)
	}

	log.Info("reconciliation complete",
		logging.String("status", string(plan.ToStatus)),
		logging.Int("migrated", len(plan.Migrations)),
		logging.Int("created", len(plan.Creations)),
		logging.Int("pending", len(plan.Matches)),
	)
	return nil
}

// detectFromStorage fetches the raw document and runs the strategy matching
// its format.
func (r *Reconciler) detectFromStorage(ctx context.Context, s *script.Script) (detect.Result, int, error) {
	data, err := r.objects.Get(ctx, s.StorageKey)
	if err != nil {
		return detect.Result{}, 0, errors.Wrap(err, errors.ErrCodeStorageError,
			"failed to fetch script document")
	}

	if detect.LooksStructured(data) {
		doc, err := detect.ParseStructuredDocument(data)
		if err != nil {
			return detect.Result{}, 0, err
		}
		res, err := detect.DetectStructured(doc, r.opts)
		return res, doc.PageCount, err
	}

	pages := detect.SplitPages(string(data))
	res, err := detect.Detect(pages)
	return res, len(pages), err
}

// buildPlan translates matcher output into the write set for one run.
// EXACT matches carry the stored element forward untouched except for its
// highlight; names and departments only change through explicit decisions.
func buildPlan(s *script.Script, existing []*element.Element, res match.Result, pageCount int) (*ReconciliationPlan, error) {
	plan := &ReconciliationPlan{
		ScriptID:   s.ID,
		FromStatus: script.StatusProcessing,
		PageCount:  pageCount,
	}

	byID := make(map[common.ID]*element.Element, len(existing))
	for _, el := range existing {
		byID[el.ID] = el
	}

	for _, m := range res.Matches {
		switch m.Status {
		case match.StatusExact:
			el := byID[m.OldElementID]
			if el == nil {
				continue
			}
			d := m.Detected
			if err := el.CarryForward(s.ID, d.HighlightPage, d.HighlightText); err != nil {
				return nil, err
			}
			plan.Migrations = append(plan.Migrations, el)

		case match.StatusFuzzy:
			plan.Matches = append(plan.Matches,
				script.NewFuzzyMatch(s.ID, m.Detected, m.OldElementID, m.Similarity))

		case match.StatusNew:
			el, err := element.FromDetected(s.ID, s.ProjectID, m.Detected)
			if err != nil {
				return nil, err
			}
			plan.Creations = append(plan.Creations, el)
		}
	}

	for _, missing := range res.Missing {
		plan.Matches = append(plan.Matches,
			script.NewMissingMatch(s.ID, missing.ID, missing.Name, missing.Type))
	}

	switch {
	case len(plan.Matches) > 0:
		plan.ToStatus = script.StatusReconciling
	case !s.IsRevision():
		plan.ToStatus = script.StatusReviewing
	default:
		plan.ToStatus = script.StatusReady
	}
	return plan, nil
}

// fail records a terminal pipeline failure on the script and returns the
// original error.
func (r *Reconciler) fail(ctx context.Context, s *script.Script, log logging.Logger, cause error) error {
	log.Error("reconciliation failed", logging.Err(cause))
	if markErr := r.store.MarkScriptError(ctx, s.ID, cause.Error()); markErr != nil {
		log.Error("failed to record script error state", logging.Err(markErr))
	}
	return cause
}
