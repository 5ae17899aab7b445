package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "faultsim", cmd.Use)
	assert.True(t, cmd.SilenceUsage)

	for _, name := range []string{"design", "simulate", "topology", "namespaces", "events", "scenario", "mcp"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, sub.Name())
	}

	run, _, err := cmd.Find([]string{"scenario", "run"})
	require.NoError(t, err)
	assert.Equal(t, "run", run.Name())
}

func TestRootCommand_GlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	format := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "text", format.DefValue)

	api := cmd.PersistentFlags().Lookup("api")
	require.NotNil(t, api)
}

func TestRootCommand_InvalidFormat(t *testing.T) {
	_, err := execute(t, "--format", "xml", "namespaces")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
	assert.Equal(t, exitCommandError, exitCode(err))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, exitFailure, exitCode(&failureError{msg: "x"}))
	assert.Equal(t, exitCommandError, exitCode(errors.New("boom")))
}

func TestParsePairs(t *testing.T) {
	got, err := parsePairs([]string{"a=1", "b=x=y"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "1", "b": "x=y"}, got)

	_, err = parsePairs([]string{"novalue"})
	assert.Error(t, err)

	got, err = parsePairs(nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}
