package element

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scenedex/scenedex/internal/detect"
	appErrors "github.com/scenedex/scenedex/pkg/errors"
	"github.com/scenedex/scenedex/pkg/types/common"
)

func TestNew(t *testing.T) {
	scriptID := common.NewID()

	t.Run("valid", func(t *testing.T) {
		el, err := New(scriptID, "proj-1", "JOHN", detect.EntityCharacter, SourceManual)
		require.NoError(t, err)
		assert.Equal(t, StatusActive, el.Status)
		assert.Equal(t, SourceManual, el.Source)
		assert.False(t, el.ID.IsZero())
	})

	t.Run("missing script id", func(t *testing.T) {
		_, err := New("", "proj-1", "JOHN", detect.EntityCharacter, SourceAuto)
		require.Error(t, err)
		assert.True(t, appErrors.IsValidation(err))
	})

	t.Run("empty name", func(t *testing.T) {
		_, err := New(scriptID, "proj-1", "", detect.EntityCharacter, SourceAuto)
		require.Error(t, err)
	})

	t.Run("invalid type", func(t *testing.T) {
		_, err := New(scriptID, "proj-1", "JOHN", "GADGET", SourceAuto)
		require.Error(t, err)
		assert.Equal(t, appErrors.ErrCodeElementTypeInvalid, appErrors.GetCode(err))
	})

	t.Run("invalid source", func(t *testing.T) {
		_, err := New(scriptID, "proj-1", "JOHN", detect.EntityCharacter, "IMPORTED")
		require.Error(t, err)
	})
}

func TestFromDetected(t *testing.T) {
	scriptID := common.NewID()
	el, err := FromDetected(scriptID, "proj-1", detect.DetectedEntity{
		Name:                "REVOLVER",
		Type:                detect.EntityOther,
		HighlightPage:       7,
		HighlightText:       "She loads the REVOLVER.",
		SuggestedDepartment: detect.DeptProps,
	})
	require.NoError(t, err)
	assert.Equal(t, SourceAuto, el.Source)
	assert.Equal(t, 7, el.HighlightPage)
	assert.Equal(t, detect.DeptProps, el.Department)
}

func TestElement_Archive(t *testing.T) {
	el, err := New(common.NewID(), "proj-1", "JOHN", detect.EntityCharacter, SourceAuto)
	require.NoError(t, err)

	require.NoError(t, el.Archive())
	assert.True(t, el.IsArchived())

	err = el.Archive()
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrCodeConflict, appErrors.GetCode(err))
}

func TestElement_MoveToScript(t *testing.T) {
	el, err := New(common.NewID(), "proj-1", "JOHN", detect.EntityCharacter, SourceAuto)
	require.NoError(t, err)
	el.HighlightPage = 3
	el.Department = detect.DeptCast

	next := common.NewID()
	require.NoError(t, el.MoveToScript(next))
	assert.Equal(t, next, el.ScriptID)
	// KEEP semantics: everything else is preserved.
	assert.Equal(t, "JOHN", el.Name)
	assert.Equal(t, 3, el.HighlightPage)
	assert.Equal(t, detect.DeptCast, el.Department)

	require.NoError(t, el.Archive())
	assert.Error(t, el.MoveToScript(common.NewID()))
}

func TestElement_CarryForward(t *testing.T) {
	el, err := New(common.NewID(), "proj-1", "John Smith", detect.EntityCharacter, SourceManual)
	require.NoError(t, err)
	el.Department = detect.DeptCostume

	next := common.NewID()
	require.NoError(t, el.CarryForward(next, 7, "JOHN SMITH"))
	assert.Equal(t, next, el.ScriptID)
	assert.Equal(t, 7, el.HighlightPage)
	assert.Equal(t, "JOHN SMITH", el.HighlightText)
	// Stored identity survives: name and department are untouched.
	assert.Equal(t, "John Smith", el.Name)
	assert.Equal(t, detect.DeptCostume, el.Department)

	require.NoError(t, el.Archive())
	assert.Error(t, el.CarryForward(common.NewID(), 8, "JOHN SMITH"))
}

func TestElement_ApplyDetected(t *testing.T) {
	el, err := New(common.NewID(), "proj-1", "JOHN", detect.EntityCharacter, SourceAuto)
	require.NoError(t, err)
	el.Department = detect.DeptCast

	next := common.NewID()
	require.NoError(t, el.ApplyDetected(next, "JOHNNY", 4, "JOHNNY (V.O.)", ""))
	assert.Equal(t, next, el.ScriptID)
	assert.Equal(t, "JOHNNY", el.Name)
	assert.Equal(t, 4, el.HighlightPage)
	// Empty department keeps the current assignment.
	assert.Equal(t, detect.DeptCast, el.Department)

	require.NoError(t, el.ApplyDetected(next, "JOHNNY", 4, "JOHNNY", detect.DeptProps))
	assert.Equal(t, detect.DeptProps, el.Department)

	assert.Error(t, el.ApplyDetected(next, "", 4, "x", ""))
}
