package absent

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPutThenGetHits(t *testing.T) {
	c := New(2)
	c.Put([]byte("missing1"))
	require.True(t, c.Get([]byte("missing1")))
	require.False(t, c.Get([]byte("missing2")))
}

func TestEvictsTailWhenOverCapacity(t *testing.T) {
	c := New(2)
	c.Put([]byte("a"))
	c.Put([]byte("b"))
	c.Put([]byte("c")) // evicts "a"

	require.False(t, c.Get([]byte("a")))
	require.True(t, c.Get([]byte("b")))
	require.True(t, c.Get([]byte("c")))
}

func TestDeleteRemovesEntry(t *testing.T) {
	c := New(2)
	c.Put([]byte("a"))
	c.Delete([]byte("a"))
	require.False(t, c.Get([]byte("a")))
}

func TestResizeTrimsFromTail(t *testing.T) {
	c := New(3)
	c.Put([]byte("a"))
	c.Put([]byte("b"))
	c.Put([]byte("c"))
	c.Resize(1)
	require.Equal(t, 1, c.Len())
	require.True(t, c.Get([]byte("c")))
}
