package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationError_CollectsFields(t *testing.T) {
	t.Parallel()

	ve := &ValidationError{}
	require.NoError(t, ve.Err())

	ve.Add("supplier_id", "is required")
	ve.Add("price", "must be positive")

	err := ve.Err()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Contains(t, err.Error(), "supplier_id: is required")
	assert.Len(t, FieldErrors(err), 2)
}

func TestValidationError_MatchesCause(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("admit: %w", NewValidationError("consumer_id", ErrSameParty))

	assert.True(t, errors.Is(err, ErrValidation))
	assert.True(t, errors.Is(err, ErrSameParty))
	assert.False(t, errors.Is(err, ErrInvalidPrice))
	assert.Equal(t, []FieldError{{Field: "consumer_id", Message: ErrSameParty.Error()}}, FieldErrors(err))
}

func TestIsConflict(t *testing.T) {
	t.Parallel()

	assert.True(t, IsConflict(ErrVersionConflict))
	assert.True(t, IsConflict(fmt.Errorf("commit: %w", ErrDuplicateBusinessKey)))
	assert.False(t, IsConflict(ErrProfitFloorBreached))
	assert.False(t, IsConflict(nil))
}

func TestPage_Normalize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Page{Number: 0, Size: DefaultPageSize}, Page{Number: -1}.Normalize())
	assert.Equal(t, Page{Number: 2, Size: MaxPageSize}, Page{Number: 2, Size: 1000}.Normalize())
	assert.Equal(t, 30, Page{Number: 3, Size: 10}.Offset())
}
