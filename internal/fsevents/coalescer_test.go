package fsevents

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoalescer_AddAndFlushReady(t *testing.T) {
	c := NewCoalescer(50*time.Millisecond, nil)
	now := time.Now()

	c.Add(DirtyPath{Path: "/a", Kind: ChangeCreate, Seen: now.Add(-100 * time.Millisecond)})
	c.Add(DirtyPath{Path: "/b", Kind: ChangeWrite, Seen: now})

	batch := c.FlushReady(now)
	require.Len(t, batch.Paths, 1)
	assert.Equal(t, "/a", batch.Paths[0].Path)
	assert.Equal(t, 1, c.Len())
}

func TestCoalescer_LastWriterWins(t *testing.T) {
	c := NewCoalescer(time.Millisecond, nil)
	now := time.Now()

	c.Add(DirtyPath{Path: "/a", Kind: ChangeCreate, Seen: now})
	c.Add(DirtyPath{Path: "/a", Kind: ChangeWrite, Seen: now})

	batch := c.FlushReady(now.Add(time.Second))
	require.Len(t, batch.Paths, 1)
	assert.Equal(t, ChangeWrite, batch.Paths[0].Kind)
}

func TestCoalescer_FlushReady_SortsByPath(t *testing.T) {
	c := NewCoalescer(time.Millisecond, nil)
	now := time.Now()

	c.AddAll([]DirtyPath{
		{Path: "/z", Seen: now},
		{Path: "/a", Seen: now},
		{Path: "/m", Seen: now},
	})

	batch := c.FlushReady(now.Add(time.Second))
	require.Len(t, batch.Paths, 3)
	assert.Equal(t, []string{"/a", "/m", "/z"}, []string{batch.Paths[0].Path, batch.Paths[1].Path, batch.Paths[2].Path})
}

func TestCoalescer_FlushAll_ClearsPending(t *testing.T) {
	c := NewCoalescer(time.Hour, nil)
	c.Add(DirtyPath{Path: "/a", Seen: time.Now()})

	batch := c.FlushAll()
	require.Len(t, batch.Paths, 1)
	assert.Equal(t, 0, c.Len())
}

func TestCoalescer_Run_FlushesOnTickAndDrainsOnCancel(t *testing.T) {
	c := NewCoalescer(time.Millisecond, nil)
	ctx, cancel := context.WithCancel(context.Background())

	out := make(chan Batch, 4)
	done := make(chan struct{})

	go func() {
		c.Run(ctx, 5*time.Millisecond, out)
		close(done)
	}()

	c.Add(DirtyPath{Path: "/a", Seen: time.Now()})

	select {
	case batch := <-out:
		assert.Equal(t, "/a", batch.Paths[0].Path)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for batch")
	}

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}

	_, open := <-out
	assert.False(t, open)
}
