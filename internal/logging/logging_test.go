package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew_RejectsUnknownSettings(t *testing.T) {
	t.Parallel()

	_, _, err := New("loud", FormatJSON)
	assert.Error(t, err)

	_, _, err = New("info", "xml")
	assert.Error(t, err)
}

func TestNew_BuildsLogger(t *testing.T) {
	t.Parallel()

	logger, sync, err := New("debug", FormatConsole)
	require.NoError(t, err)
	require.NotNil(t, logger)
	require.NotNil(t, sync)
}

func TestFromCore_WritesAttributes(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)
	logger := FromCore(core)

	logger.Debug("dropped")
	logger.Info("order committed", "order_id", "o-1", "price", "10")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "order committed", entries[0].Message)
	fields := entries[0].ContextMap()
	assert.Equal(t, "o-1", fields["order_id"])
	assert.Equal(t, "10", fields["price"])
}
