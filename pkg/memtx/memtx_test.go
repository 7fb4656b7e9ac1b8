package memtx_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xamu/xamu/pkg/memtx"
)

type counter struct {
	mu sync.Mutex
	n  int
}

func (c *counter) add(ctx context.Context, d int) {
	c.mu.Lock()
	c.n += d
	c.mu.Unlock()
	memtx.OnRollback(ctx, func() {
		c.mu.Lock()
		c.n -= d
		c.mu.Unlock()
	})
}

func (c *counter) get() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

func TestInTx(t *testing.T) {
	t.Parallel()

	t.Run("commit keeps changes", func(t *testing.T) {
		t.Parallel()
		tx := memtx.NewTransactor()
		c := &counter{}
		err := tx.InTx(context.Background(), func(ctx context.Context) error {
			assert.True(t, memtx.Active(ctx))
			c.add(ctx, 2)
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 2, c.get())
	})

	t.Run("error rolls back nested work", func(t *testing.T) {
		t.Parallel()
		tx := memtx.NewTransactor()
		c := &counter{}
		boom := errors.New("boom")
		err := tx.InTx(context.Background(), func(ctx context.Context) error {
			c.add(ctx, 1)
			return tx.InTx(ctx, func(ctx context.Context) error {
				c.add(ctx, 5)
				return boom
			})
		})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 0, c.get())
	})

	t.Run("panic rolls back", func(t *testing.T) {
		t.Parallel()
		tx := memtx.NewTransactor()
		c := &counter{}
		assert.Panics(t, func() {
			_ = tx.InTx(context.Background(), func(ctx context.Context) error {
				c.add(ctx, 3)
				panic("x")
			})
		})
		assert.Equal(t, 0, c.get())
	})

	t.Run("outside a unit of work", func(t *testing.T) {
		t.Parallel()
		c := &counter{}
		c.add(context.Background(), 4)
		assert.False(t, memtx.Active(context.Background()))
		assert.Equal(t, 4, c.get())
	})
}
