package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestAboveFloor(t *testing.T) {
	t.Parallel()

	assert.False(t, AboveFloor(decimal.NewFromInt(-1000)))
	assert.False(t, AboveFloor(decimal.RequireFromString("-1000.01")))
	assert.True(t, AboveFloor(decimal.RequireFromString("-999.99")))
	assert.True(t, AboveFloor(decimal.Zero))
}

func TestValidPrice(t *testing.T) {
	t.Parallel()

	assert.True(t, ValidPrice(decimal.RequireFromString("0.01")))
	assert.True(t, ValidPrice(decimal.RequireFromString("10.500")))
	assert.False(t, ValidPrice(decimal.RequireFromString("0.001")))
	assert.False(t, ValidPrice(decimal.Zero))
	assert.False(t, ValidPrice(decimal.NewFromInt(-5)))
}
