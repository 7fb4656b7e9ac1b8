package statemachine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xamu/xamu/pkg/statemachine"
)

type (
	state string
	event string
)

const (
	draft     state = "draft"
	published state = "published"
	archived  state = "archived"

	publish event = "publish"
	archive event = "archive"
)

func TestTable(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	onlyAdmins := func(_ context.Context, _ state, _ event, data any) bool {
		return data == "admin"
	}

	table, err := statemachine.NewBuilder[state, event]().
		Allow(draft, publish, published, onlyAdmins).
		Allow(draft, archive, archived).
		Allow(published, archive, archived).
		Build()
	require.NoError(t, err)

	t.Run("transition allowed", func(t *testing.T) {
		t.Parallel()

		to, err := table.Next(ctx, draft, publish, "admin")
		require.NoError(t, err)
		assert.Equal(t, published, to)
		assert.True(t, table.Can(ctx, published, archive, nil))
	})

	t.Run("guard rejects", func(t *testing.T) {
		t.Parallel()

		to, err := table.Next(ctx, draft, publish, "guest")
		assert.True(t, statemachine.IsTransitionRejectedError(err))
		assert.Equal(t, draft, to)
	})

	t.Run("no edge", func(t *testing.T) {
		t.Parallel()

		_, err := table.Next(ctx, archived, publish, "admin")
		assert.True(t, statemachine.IsNoTransitionAvailableError(err))
		assert.Contains(t, err.Error(), "archived")
	})

	t.Run("introspection", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, []event{archive, publish}, table.Events(draft))
		assert.True(t, table.IsTerminal(archived))
		assert.False(t, table.IsTerminal(draft))
	})

	t.Run("invalid edge", func(t *testing.T) {
		t.Parallel()

		_, err := statemachine.NewBuilder[state, event]().Allow("", publish, published).Build()
		assert.ErrorIs(t, err, statemachine.ErrInvalidTransition)
		assert.Panics(t, func() {
			statemachine.NewBuilder[state, event]().Allow(draft, "", published).MustBuild()
		})
	})
}
