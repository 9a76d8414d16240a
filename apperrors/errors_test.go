package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessageNamesIdsAndInvariant(t *testing.T) {
	err := DataIntegrity(7, 42, InvariantWinnerPresent, "knockout session has no winner")

	assert.Equal(t, "data integrity violation: tournament 7 session 42: invariant completed_session_has_winner: knockout session has no winner", err.Error())
	assert.ErrorIs(t, err, ErrDataIntegrity)
	assert.NotErrorIs(t, err, ErrValidation)
}

func TestWrapKeepsClassifiedErrors(t *testing.T) {
	inner := Validation(0, 0, InvariantProbabilitySum, "sum is 0.9")
	wrapped := Wrap(ErrDataIntegrity, 3, 0, "", fmt.Errorf("load: %w", inner))

	assert.ErrorIs(t, wrapped, ErrValidation)
	assert.NotErrorIs(t, wrapped, ErrDataIntegrity)
	assert.Equal(t, InvariantProbabilitySum, InvariantOf(wrapped))

	var e *Error
	assert.True(t, errors.As(wrapped, &e))
	assert.Equal(t, 3, e.TournamentID)
}

func TestWrapKeepsOuterContext(t *testing.T) {
	inner := Validation(0, 0, InvariantGroupSettings, "5 participants cannot form 3 groups")
	err := Wrap(ErrValidation, 3, 0, "", fmt.Errorf("GroupKnockout: %w", inner))

	assert.Equal(t, "validation failed: tournament 3: invariant group_settings_satisfiable: GroupKnockout: 5 participants cannot form 3 groups", err.Error())
	assert.Equal(t, "5 participants cannot form 3 groups", inner.Detail, "inner error is not modified")

	bare := Wrap(ErrValidation, 3, 0, "", Validation(0, 0, InvariantGroupSettings, "x"))
	assert.Equal(t, "validation failed: tournament 3: invariant group_settings_satisfiable: x", bare.Error())
}

func TestWrapClassifiesPlainErrors(t *testing.T) {
	cause := errors.New("duplicate key")
	err := Wrap(ErrConcurrencyConflict, 9, 0, InvariantNextRoundOnce, cause)

	assert.ErrorIs(t, err, ErrConcurrencyConflict)
	assert.ErrorIs(t, err, cause)
	assert.Nil(t, Wrap(ErrValidation, 1, 0, "", nil))
}
