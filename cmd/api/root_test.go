package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_Subcommands(t *testing.T) {
	root := newRootCommand()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "migrate", "scenario"}, names)
	assert.NotNil(t, root.RunE, "serve is the default")
}

func TestScenarioCommand_RejectsUnknownNames(t *testing.T) {
	root := newRootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})

	root.SetArgs([]string{"scenario", "nope"})
	err := root.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid argument")

	root.SetArgs([]string{"scenario"})
	require.Error(t, root.ExecuteContext(context.Background()))
}

func TestScenarioCommand_RunsAgainstSQLite(t *testing.T) {
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", t.TempDir()+"/ledger.db")
	t.Setenv("PROCESSING_WINDOW_MIN", "0")
	t.Setenv("PROCESSING_WINDOW_MAX", "0")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("REDIS_ADDR", "")

	root := newRootCommand()
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetArgs([]string{"scenario", "floor"})

	require.NoError(t, root.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), `"scenario": "floor"`)
	assert.Contains(t, out.String(), `"committed": 1`)
}
