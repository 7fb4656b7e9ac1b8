package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandTree(t *testing.T) {
	t.Parallel()

	root := newRootCmd()
	for _, path := range [][]string{
		{"serve"},
		{"migrate"},
		{"tenant", "create"},
		{"tenant", "list"},
		{"tenant", "activate"},
		{"tenant", "deactivate"},
		{"invite"},
		{"admin", "create"},
	} {
		cmd, _, err := root.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}
}

func TestMigrateRejectsUnknownDirection(t *testing.T) {
	t.Parallel()

	root := newRootCmd()
	root.SetArgs([]string{"migrate", "sideways"})
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid argument")
}

func TestAdminCreateNeedsPassword(t *testing.T) {
	t.Parallel()

	root := newRootCmd()
	root.SetArgs([]string{"admin", "create", "ops@example.com"})
	assert.ErrorIs(t, root.Execute(), errNoPassword)
}
