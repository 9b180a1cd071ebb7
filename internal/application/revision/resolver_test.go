package revision

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scenedex/scenedex/internal/detect"
	"github.com/scenedex/scenedex/internal/domain/element"
	"github.com/scenedex/scenedex/internal/domain/script"
	appErrors "github.com/scenedex/scenedex/pkg/errors"
	"github.com/scenedex/scenedex/pkg/types/common"
)

type resolverFixture struct {
	store *fakeStore
	rev   *script.Script

	smith *element.Element // FUZZY target
	bob   *element.Element // MISSING, to keep
	carl  *element.Element // MISSING, to archive

	fuzzySmith  *script.RevisionMatch
	fuzzyMiller *script.RevisionMatch
	missingBob  *script.RevisionMatch
	missingCarl *script.RevisionMatch
}

// newResolverFixture seeds a RECONCILING revision with four pending matches,
// one for each decision kind.
func newResolverFixture(t *testing.T) *resolverFixture {
	t.Helper()
	store := newFakeStore()

	parent, err := script.New("proj-1", "Heist Movie", "scripts/v1.txt", "user-1")
	require.NoError(t, err)
	require.NoError(t, parent.TransitionTo(script.StatusReady))
	require.NoError(t, store.CreateScript(context.Background(), parent))

	rev, err := script.NewRevision(parent, "scripts/v2.txt", "user-1")
	require.NoError(t, err)
	require.NoError(t, rev.TransitionTo(script.StatusReconciling))
	require.NoError(t, store.CreateScript(context.Background(), rev))

	mk := func(name string) *element.Element {
		el, err := element.New(parent.ID, parent.ProjectID, name, detect.EntityCharacter, element.SourceAuto)
		require.NoError(t, err)
		store.addElement(el)
		return el
	}
	f := &resolverFixture{store: store, rev: rev}
	f.smith = mk("JOHN SMITH")
	f.bob = mk("BOB")
	f.carl = mk("CARL")
	miller := mk("MILLER")

	f.fuzzySmith = script.NewFuzzyMatch(rev.ID, detect.DetectedEntity{
		Name: "JOHN SMITHE", Type: detect.EntityCharacter,
		HighlightPage: 2, HighlightText: "JOHN SMITHE (V.O.)",
	}, f.smith.ID, 0.91)
	f.fuzzyMiller = script.NewFuzzyMatch(rev.ID, detect.DetectedEntity{
		Name: "DET. MILLER", Type: detect.EntityCharacter,
		HighlightPage: 5, HighlightText: "DET. MILLER",
	}, miller.ID, 0.72)
	f.missingBob = script.NewMissingMatch(rev.ID, f.bob.ID, "BOB", detect.EntityCharacter)
	f.missingCarl = script.NewMissingMatch(rev.ID, f.carl.ID, "CARL", detect.EntityCharacter)

	for _, m := range []*script.RevisionMatch{f.fuzzySmith, f.fuzzyMiller, f.missingBob, f.missingCarl} {
		store.addMatch(m)
	}
	return f
}

func TestResolver_AllFourDecisions(t *testing.T) {
	f := newResolverFixture(t)
	r := NewResolver(f.store, nil)

	err := r.Resolve(context.Background(), f.rev.ID, []DecisionInput{
		{MatchID: f.fuzzySmith.ID, Decision: script.DecisionMap},
		{MatchID: f.fuzzyMiller.ID, Decision: script.DecisionCreateNew, Department: detect.DeptCast},
		{MatchID: f.missingBob.ID, Decision: script.DecisionKeep},
		{MatchID: f.missingCarl.ID, Decision: script.DecisionArchive},
	})
	require.NoError(t, err)

	assert.Equal(t, script.StatusReady, f.rev.Status)

	// MAP: old element re-homed and renamed with the detected highlight.
	assert.Equal(t, f.rev.ID, f.smith.ScriptID)
	assert.Equal(t, "JOHN SMITHE", f.smith.Name)
	assert.Equal(t, 2, f.smith.HighlightPage)
	assert.Equal(t, "JOHN SMITHE (V.O.)", f.smith.HighlightText)

	// CREATE_NEW: a fresh element, the old MILLER untouched.
	created := elementByName(f.store, "DET. MILLER")
	require.NotNil(t, created)
	assert.Equal(t, f.rev.ID, created.ScriptID)
	assert.Equal(t, element.SourceAuto, created.Source)
	assert.Equal(t, detect.DeptCast, created.Department)
	assert.NotEqual(t, f.rev.ID, elementByName(f.store, "MILLER").ScriptID)

	// KEEP: BOB carried forward unchanged.
	assert.Equal(t, f.rev.ID, f.bob.ScriptID)
	assert.Equal(t, "BOB", f.bob.Name)

	// ARCHIVE: CARL retired in place.
	assert.True(t, f.carl.IsArchived())
	assert.NotEqual(t, f.rev.ID, f.carl.ScriptID)

	for _, m := range []*script.RevisionMatch{f.fuzzySmith, f.fuzzyMiller, f.missingBob, f.missingCarl} {
		assert.True(t, m.Resolved, string(m.MatchStatus))
	}

	pending, err := f.store.UnresolvedMatches(context.Background(), f.rev.ID)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestResolver_UnknownMatchRejectsBatch(t *testing.T) {
	f := newResolverFixture(t)
	r := NewResolver(f.store, nil)

	bogus := common.NewID()
	err := r.Resolve(context.Background(), f.rev.ID, []DecisionInput{
		{MatchID: f.fuzzySmith.ID, Decision: script.DecisionMap},
		{MatchID: bogus, Decision: script.DecisionKeep},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrCodeDecisionInvalid, appErrors.GetCode(err))
	assert.Contains(t, err.Error(), bogus.String())

	// Nothing moved: the valid decision in the batch was not applied either.
	assert.Equal(t, script.StatusReconciling, f.rev.Status)
	assert.NotEqual(t, f.rev.ID, f.smith.ScriptID)
	assert.False(t, f.fuzzySmith.Resolved)
}

func TestResolver_InvalidDecisionRejectsBatch(t *testing.T) {
	f := newResolverFixture(t)
	r := NewResolver(f.store, nil)

	err := r.Resolve(context.Background(), f.rev.ID, []DecisionInput{
		{MatchID: f.fuzzySmith.ID, Decision: "DELETE"},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrCodeDecisionInvalid, appErrors.GetCode(err))
	assert.Contains(t, err.Error(), f.fuzzySmith.ID.String())
	assert.False(t, f.fuzzySmith.Resolved)
}

func TestResolver_DuplicateMatchRejectsBatch(t *testing.T) {
	f := newResolverFixture(t)
	r := NewResolver(f.store, nil)

	err := r.Resolve(context.Background(), f.rev.ID, []DecisionInput{
		{MatchID: f.missingBob.ID, Decision: script.DecisionKeep},
		{MatchID: f.missingBob.ID, Decision: script.DecisionArchive},
	})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "duplicate"))
	assert.False(t, f.missingBob.Resolved)
}

func TestResolver_PartialBatchStaysReconciling(t *testing.T) {
	f := newResolverFixture(t)
	r := NewResolver(f.store, nil)

	err := r.Resolve(context.Background(), f.rev.ID, []DecisionInput{
		{MatchID: f.fuzzySmith.ID, Decision: script.DecisionMap},
	})
	require.NoError(t, err)

	assert.Equal(t, script.StatusReconciling, f.rev.Status)
	assert.True(t, f.fuzzySmith.Resolved)

	pending, perr := f.store.UnresolvedMatches(context.Background(), f.rev.ID)
	require.NoError(t, perr)
	assert.Len(t, pending, 3)

	// Resolving the remainder completes the lifecycle.
	err = r.Resolve(context.Background(), f.rev.ID, []DecisionInput{
		{MatchID: f.fuzzyMiller.ID, Decision: script.DecisionCreateNew},
		{MatchID: f.missingBob.ID, Decision: script.DecisionKeep},
		{MatchID: f.missingCarl.ID, Decision: script.DecisionArchive},
	})
	require.NoError(t, err)
	assert.Equal(t, script.StatusReady, f.rev.Status)
}

func TestResolver_WrongStatusRejected(t *testing.T) {
	f := newResolverFixture(t)
	require.NoError(t, f.rev.TransitionTo(script.StatusReady))

	r := NewResolver(f.store, nil)
	err := r.Resolve(context.Background(), f.rev.ID, []DecisionInput{
		{MatchID: f.fuzzySmith.ID, Decision: script.DecisionMap},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrCodeScriptStatusInvalid, appErrors.GetCode(err))
}

func TestResolver_EmptyBatchRejected(t *testing.T) {
	f := newResolverFixture(t)
	r := NewResolver(f.store, nil)
	err := r.Resolve(context.Background(), f.rev.ID, nil)
	require.Error(t, err)
	assert.True(t, appErrors.IsValidation(err))
}
