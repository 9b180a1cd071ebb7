package revision

import (
	"context"
	"strings"

	"github.com/scenedex/scenedex/internal/domain/element"
	"github.com/scenedex/scenedex/internal/domain/script"
	"github.com/scenedex/scenedex/internal/infrastructure/monitoring/logging"
	"github.com/scenedex/scenedex/pkg/errors"
	"github.com/scenedex/scenedex/pkg/types/common"
)

// DecisionInput is one human decision in a resolve batch.
type DecisionInput struct {
	MatchID  common.ID       `json:"match_id"`
	Decision script.Decision `json:"decision"`

	// Department optionally reassigns the affected element.
	Department string `json:"department,omitempty"`
}

// Resolver applies decision batches to scripts in RECONCILING.  A batch is
// all-or-nothing: every decision is validated against the script's pending
// matches before any mutation, and the whole write set commits in one
// transaction.
type Resolver struct {
	store  Store
	logger logging.Logger
}

func NewResolver(store Store, logger logging.Logger) *Resolver {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Resolver{store: store, logger: logger.Named("resolver")}
}

// Resolve validates and applies one decision batch.
//
// Preconditions, all checked before any mutation: the script is RECONCILING,
// every match id references one of its unresolved matches exactly once, and
// every decision value is valid.  Violations fail the whole batch with a
// validation error naming the offending ids.  Once every pending match is
// resolved the script moves to READY; a partial batch leaves it RECONCILING.
func (r *Resolver) Resolve(ctx context.Context, scriptID common.ID, decisions []DecisionInput) error {
	if len(decisions) == 0 {
		return errors.Validation("decision batch must not be empty")
	}

	s, err := r.store.GetScript(ctx, scriptID)
	if err != nil {
		return err
	}
	if s.Status != script.StatusReconciling {
		return errors.New(errors.ErrCodeScriptStatusInvalid,
			"script is not awaiting decisions").WithDetail(string(s.Status))
	}

	pending, err := r.store.UnresolvedMatches(ctx, s.ID)
	if err != nil {
		return err
	}
	byID := make(map[common.ID]*script.RevisionMatch, len(pending))
	for _, m := range pending {
		byID[m.ID] = m
	}

	if err := validateBatch(byID, decisions); err != nil {
		return err
	}

	plan := &ResolutionPlan{ScriptID: s.ID}
	for _, in := range decisions {
		m := byID[in.MatchID]
		if err := r.applyDecision(ctx, s, m, in, plan); err != nil {
			return err
		}
		if err := m.Resolve(in.Decision); err != nil {
			return err
		}
		plan.ResolvedMatches = append(plan.ResolvedMatches, m)
	}

	if len(plan.ResolvedMatches) == len(pending) {
		plan.ToStatus = script.StatusReady
	}

	if err := r.store.ApplyResolution(ctx, plan); err != nil {
		return err
	}

	r.logger.Info("decision batch applied",
		logging.String("script_id", s.ID.String()),
		logging.Int("resolved", len(plan.ResolvedMatches)),
		logging.Int("pending_before", len(pending)),
		logging.String("status", string(plan.ToStatus)),
	)
	return nil
}

// validateBatch rejects unknown, duplicate, or invalidly decided match ids,
// collecting every offender so the caller sees the full list at once.
func validateBatch(pending map[common.ID]*script.RevisionMatch, decisions []DecisionInput) error {
	var offenders []string
	seen := make(map[common.ID]bool, len(decisions))

	for _, in := range decisions {
		switch {
		case in.MatchID.IsZero():
			offenders = append(offenders, "(empty id)")
		case pending[in.MatchID] == nil:
			offenders = append(offenders, in.MatchID.String())
		case seen[in.MatchID]:
			offenders = append(offenders, in.MatchID.String()+" (duplicate)")
		case !in.Decision.IsValid():
			offenders = append(offenders, in.MatchID.String()+" (decision "+string(in.Decision)+")")
		}
		seen[in.MatchID] = true
	}

	if len(offenders) > 0 {
		return errors.New(errors.ErrCodeDecisionInvalid,
			"decision batch references invalid matches").
			WithDetail(strings.Join(offenders, ", "))
	}
	return nil
}

// applyDecision translates one decision into element mutations on the plan.
func (r *Resolver) applyDecision(ctx context.Context, s *script.Script, m *script.RevisionMatch, in DecisionInput, plan *ResolutionPlan) error {
	switch in.Decision {
	case script.DecisionCreateNew:
		el, err := element.New(s.ID, s.ProjectID, m.DetectedName, m.DetectedType, element.SourceAuto)
		if err != nil {
			return err
		}
		el.HighlightPage = m.DetectedPage
		el.HighlightText = m.DetectedHighlightText
		el.Department = in.Department
		plan.CreatedElements = append(plan.CreatedElements, el)
		return nil

	case script.DecisionMap, script.DecisionKeep, script.DecisionArchive:
		if m.OldElementID.IsZero() {
			return errors.New(errors.ErrCodeDecisionInvalid,
				"decision requires an existing element").WithDetail(m.ID.String())
		}
		el, err := r.store.GetElement(ctx, m.OldElementID)
		if err != nil {
			return err
		}

		switch in.Decision {
		case script.DecisionMap:
			err = el.ApplyDetected(s.ID, m.DetectedName, m.DetectedPage, m.DetectedHighlightText, in.Department)
		case script.DecisionKeep:
			err = el.MoveToScript(s.ID)
			if err == nil && in.Department != "" {
				el.Department = in.Department
			}
		case script.DecisionArchive:
			err = el.Archive()
		}
		if err != nil {
			return err
		}
		plan.UpdatedElements = append(plan.UpdatedElements, el)
		return nil

	default:
		return errors.New(errors.ErrCodeDecisionInvalid,
			"unknown reconciliation decision").WithDetail(string(in.Decision))
	}
}
