package script

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scenedex/scenedex/internal/detect"
	appErrors "github.com/scenedex/scenedex/pkg/errors"
	"github.com/scenedex/scenedex/pkg/types/common"
)

func newReadyScript(t *testing.T) *Script {
	t.Helper()
	s, err := New("proj-1", "Heist Movie", "scripts/heist-v1.fdx", "user-1")
	require.NoError(t, err)
	require.NoError(t, s.TransitionTo(StatusReady))
	return s
}

func TestNew(t *testing.T) {
	s, err := New("proj-1", "Heist Movie", "scripts/heist-v1.fdx", "user-1")
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, s.Status)
	assert.Equal(t, 1, s.RevisionNumber)
	assert.Equal(t, "White", s.RevisionColor)
	assert.False(t, s.IsRevision())

	_, err = New("", "Heist Movie", "key", "user-1")
	assert.True(t, appErrors.IsValidation(err))
	_, err = New("proj-1", "", "key", "user-1")
	assert.Error(t, err)
	_, err = New("proj-1", "Heist Movie", "", "user-1")
	assert.Error(t, err)
}

func TestNewRevision(t *testing.T) {
	parent := newReadyScript(t)

	rev, err := NewRevision(parent, "scripts/heist-v2.fdx", "user-2")
	require.NoError(t, err)
	assert.Equal(t, parent.ID, rev.ParentID)
	assert.True(t, rev.IsRevision())
	assert.Equal(t, 2, rev.RevisionNumber)
	assert.Equal(t, "Blue", rev.RevisionColor)
	assert.Equal(t, StatusProcessing, rev.Status)
	assert.Equal(t, parent.Title, rev.Title)

	t.Run("parent must be revisable", func(t *testing.T) {
		stuck, err := New("proj-1", "Heist Movie", "key", "user-1")
		require.NoError(t, err)
		_, err = NewRevision(stuck, "key2", "user-1")
		require.Error(t, err)
		assert.Equal(t, appErrors.ErrCodeScriptStatusInvalid, appErrors.GetCode(err))
	})

	t.Run("nil parent", func(t *testing.T) {
		_, err := NewRevision(nil, "key", "user-1")
		assert.Error(t, err)
	})
}

func TestNextRevisionColor(t *testing.T) {
	assert.Equal(t, "Blue", NextRevisionColor("White"))
	assert.Equal(t, "Pink", NextRevisionColor("Blue"))
	assert.Equal(t, "White", NextRevisionColor("Cherry"))
	assert.Equal(t, "Blue", NextRevisionColor("Chartreuse"))
}

func TestScript_Transitions(t *testing.T) {
	tests := []struct {
		name string
		from Status
		to   Status
		ok   bool
	}{
		{"processing to reviewing", StatusProcessing, StatusReviewing, true},
		{"processing to reconciling", StatusProcessing, StatusReconciling, true},
		{"processing to ready", StatusProcessing, StatusReady, true},
		{"processing to error", StatusProcessing, StatusError, true},
		{"reviewing to ready", StatusReviewing, StatusReady, true},
		{"reconciling to ready", StatusReconciling, StatusReady, true},
		{"reconciling to error", StatusReconciling, StatusError, true},
		{"reviewing to error", StatusReviewing, StatusError, false},
		{"ready is terminal", StatusReady, StatusProcessing, false},
		{"error is terminal", StatusError, StatusProcessing, false},
		{"no skipping back", StatusReady, StatusReconciling, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Script{Status: tt.from}
			err := s.TransitionTo(tt.to)
			if tt.ok {
				require.NoError(t, err)
				assert.Equal(t, tt.to, s.Status)
			} else {
				require.Error(t, err)
				assert.Equal(t, appErrors.ErrCodeScriptStatusInvalid, appErrors.GetCode(err))
				assert.Equal(t, tt.from, s.Status)
			}
		})
	}
}

func TestScript_MarkError(t *testing.T) {
	s, err := New("proj-1", "Heist Movie", "key", "user-1")
	require.NoError(t, err)

	require.NoError(t, s.MarkError("storage fetch failed"))
	assert.Equal(t, StatusError, s.Status)
	assert.Equal(t, "storage fetch failed", s.ErrorDetail)

	ready := newReadyScript(t)
	assert.Error(t, ready.MarkError("too late"))
}

func TestDecision_IsValid(t *testing.T) {
	for _, d := range []Decision{DecisionMap, DecisionCreateNew, DecisionKeep, DecisionArchive} {
		assert.True(t, d.IsValid(), string(d))
	}
	assert.False(t, Decision("DELETE").IsValid())
	assert.False(t, Decision("").IsValid())
}

func TestRevisionMatch_Resolve(t *testing.T) {
	scriptID := common.NewID()
	oldID := common.NewID()

	m := NewFuzzyMatch(scriptID, detect.DetectedEntity{
		Name: "JOHN SMITHE", Type: detect.EntityCharacter, HighlightPage: 2,
	}, oldID, 0.91)
	assert.Equal(t, MatchFuzzy, m.MatchStatus)
	require.NotNil(t, m.Similarity)
	assert.InDelta(t, 0.91, *m.Similarity, 1e-9)

	require.NoError(t, m.Resolve(DecisionMap))
	assert.True(t, m.Resolved)
	assert.Equal(t, DecisionMap, m.UserDecision)

	err := m.Resolve(DecisionKeep)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrCodeMatchAlreadyResolved, appErrors.GetCode(err))

	t.Run("invalid decision", func(t *testing.T) {
		m := NewMissingMatch(scriptID, oldID, "BOB", detect.EntityCharacter)
		assert.Nil(t, m.Similarity)
		err := m.Resolve("DELETE")
		require.Error(t, err)
		assert.Equal(t, appErrors.ErrCodeDecisionInvalid, appErrors.GetCode(err))
		assert.False(t, m.Resolved)
	})
}
