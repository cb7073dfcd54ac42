package rio

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemEngineGetPutDel(t *testing.T) {
	e := NewMemEngine()
	_, found, err := e.Get(CFMeta, []byte("k"))
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, e.Put(CFMeta, []byte("k"), []byte("v1")))
	val, found, err := e.Get(CFMeta, []byte("k"))
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte("v1"), val)

	require.NoError(t, e.Del(CFMeta, []byte("k")))
	_, found, err = e.Get(CFMeta, []byte("k"))
	require.NoError(t, err)
	require.False(t, found)
}

func TestMemEngineMultiGetPreservesOrderAndMisses(t *testing.T) {
	e := NewMemEngine()
	require.NoError(t, e.Put(CFData, []byte("a"), []byte("1")))
	require.NoError(t, e.Put(CFData, []byte("c"), []byte("3")))

	got, err := e.MultiGet(CFData, [][]byte{[]byte("a"), []byte("b"), []byte("c")})
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, []byte("1"), got[0].Val)
	require.Nil(t, got[1].Val)
	require.Equal(t, []byte("3"), got[2].Val)
}

func TestMemEngineWriteBatchIsAtomicAcrossColumnFamilies(t *testing.T) {
	e := NewMemEngine()
	require.NoError(t, e.Put(CFMeta, []byte("k"), []byte("old")))

	b := &WriteBatch{}
	b.Put(CFMeta, []byte("k"), []byte("new"))
	b.Put(CFData, []byte("k:f1"), []byte("v"))
	b.Del(CFMeta, []byte("gone"))
	require.Equal(t, 3, b.Len())
	require.NoError(t, e.Write(b))

	v, found, _ := e.Get(CFMeta, []byte("k"))
	require.True(t, found)
	require.Equal(t, []byte("new"), v)
	v, found, _ = e.Get(CFData, []byte("k:f1"))
	require.True(t, found)
	require.Equal(t, []byte("v"), v)
}

func TestMemEngineIteratePaginates(t *testing.T) {
	e := NewMemEngine()
	for _, k := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, e.Put(CFData, []byte(k), []byte(k)))
	}

	items, next, err := e.Iterate(CFData, nil, nil, 2)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, []byte("a"), items[0].Key)
	require.Equal(t, []byte("b"), items[1].Key)
	require.Equal(t, []byte("c"), next)

	items, next, err = e.Iterate(CFData, next, nil, 10)
	require.NoError(t, err)
	require.Len(t, items, 3)
	require.Nil(t, next)
}
