package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeScriptNotFound, "script not found")
	require.NotNil(t, err)
	assert.Equal(t, ErrCodeScriptNotFound, err.Code)
	assert.Equal(t, "script not found", err.Message)
	assert.NotEmpty(t, err.Stack)
	assert.Equal(t, "[SCRIPT_001] script not found", err.Error())
}

func TestError_WithDetail(t *testing.T) {
	base := New(ErrCodeMatchNotFound, "revision match not found")
	detailed := base.WithDetail("match_id=abc")

	assert.Equal(t, "[MATCH_001] revision match not found: match_id=abc", detailed.Error())
	// Original is untouched.
	assert.Empty(t, base.Detail)

	var nilErr *AppError
	assert.Nil(t, nilErr.WithDetail("x"))
}

func TestWrap(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := Wrap(cause, ErrCodeDatabaseError, "failed to load elements")

	require.NotNil(t, err)
	assert.Equal(t, ErrCodeDatabaseError, err.Code)
	assert.True(t, stderrors.Is(err, cause))
	assert.Nil(t, Wrap(nil, ErrCodeDatabaseError, "no-op"))
}

func TestWrap_PreservesCodeWhenUnknown(t *testing.T) {
	inner := New(ErrCodeScriptParseFailed, "bad xml")
	outer := Wrap(inner, ErrCodeUnknown, "detection failed")
	assert.Equal(t, ErrCodeScriptParseFailed, outer.Code)
}

func TestIsCode(t *testing.T) {
	inner := New(ErrCodeConflict, "not reconciling")
	outer := fmt.Errorf("resolve: %w", inner)

	assert.True(t, IsCode(outer, ErrCodeConflict))
	assert.False(t, IsCode(outer, ErrCodeValidation))
	assert.False(t, IsCode(nil, ErrCodeConflict))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(New(ErrCodeScriptNotFound, "x")))
	assert.True(t, IsNotFound(New(ErrCodeElementNotFound, "x")))
	assert.True(t, IsNotFound(New(ErrCodeObjectNotFound, "x")))
	assert.True(t, IsNotFound(NotFound("generic")))
	assert.False(t, IsNotFound(New(ErrCodeConflict, "x")))
	assert.False(t, IsNotFound(stderrors.New("plain")))
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, CodeOK, GetCode(nil))
	assert.Equal(t, ErrCodeValidation, GetCode(Validation("bad decision")))
	assert.Equal(t, ErrCodeUnknown, GetCode(stderrors.New("plain")))
}

func TestHTTPStatusForCode(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, HTTPStatusForCode(ErrCodeScriptNotFound))
	assert.Equal(t, http.StatusConflict, HTTPStatusForCode(ErrCodeScriptStatusInvalid))
	assert.Equal(t, http.StatusUnprocessableEntity, HTTPStatusForCode(ErrCodeDecisionInvalid))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatusForCode(ErrorCode("NOPE_999")))
}

func TestClientServerSplit(t *testing.T) {
	assert.True(t, IsClientError(ErrCodeValidation))
	assert.False(t, IsServerError(ErrCodeValidation))
	assert.True(t, IsServerError(ErrCodeStorageError))
}

func TestModuleForCode(t *testing.T) {
	assert.Equal(t, "SCRIPT", ModuleForCode(ErrCodeScriptParseFailed))
	assert.Equal(t, "MATCH", ModuleForCode(ErrCodeDecisionInvalid))
	assert.Equal(t, "COMMON", ModuleForCode(ErrCodeInternal))
}
