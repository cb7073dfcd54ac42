package extractor

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/swapdb/swapcore/internal/swap/types"
)

func argv(parts ...string) Command {
	out := make([][]byte, len(parts))
	for i, p := range parts {
		out[i] = []byte(p)
	}
	return Command{Argv: out}
}

func TestGetProducesWholeKeyIn(t *testing.T) {
	tbl := NewTable()
	reqs, err := tbl.Extract(1, 0, 0, argv("GET", "foo"))
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	require.Equal(t, types.IN, reqs[0].Intention)
	require.Equal(t, types.ShapeWholeKey, reqs[0].Shape.Kind)
	require.Equal(t, []byte("foo"), reqs[0].Key)
}

func TestDelProducesOneRequestPerKey(t *testing.T) {
	tbl := NewTable()
	reqs, err := tbl.Extract(1, 0, 0, argv("DEL", "a", "b", "c"))
	require.NoError(t, err)
	require.Len(t, reqs, 3)
	for _, r := range reqs {
		require.Equal(t, types.DEL, r.Intention)
	}
}

func TestHMGetProducesSubKeyShape(t *testing.T) {
	tbl := NewTable()
	reqs, err := tbl.Extract(1, 0, 0, argv("HMGET", "h", "f1", "f2"))
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	require.Equal(t, types.ShapeSubKeys, reqs[0].Shape.Kind)
	require.Equal(t, [][]byte{[]byte("f1"), []byte("f2")}, reqs[0].Shape.SubKeys)
}

func TestHSetExtractsFieldsFromPairs(t *testing.T) {
	tbl := NewTable()
	reqs, err := tbl.Extract(1, 0, 0, argv("HSET", "h", "f1", "v1", "f2", "v2"))
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	require.Equal(t, [][]byte{[]byte("f1"), []byte("f2")}, reqs[0].Shape.SubKeys)
}

func TestHSetRejectsOddPairs(t *testing.T) {
	tbl := NewTable()
	_, err := tbl.Extract(1, 0, 0, argv("HSET", "h", "f1", "v1", "f2"))
	require.Error(t, err)
}

func TestLPopSynthesisesHeadRange(t *testing.T) {
	tbl := NewTable()
	reqs, err := tbl.Extract(1, 0, 0, argv("LPOP", "l", "3"))
	require.NoError(t, err)
	require.Equal(t, types.ShapeIndexRange, reqs[0].Shape.Kind)
	require.Equal(t, int64(0), reqs[0].Shape.IndexRange.Start)
	require.Equal(t, int64(2), reqs[0].Shape.IndexRange.Stop)
}

func TestRPopSynthesisesTailRange(t *testing.T) {
	tbl := NewTable()
	reqs, err := tbl.Extract(1, 0, 0, argv("RPOP", "l", "2"))
	require.NoError(t, err)
	require.Equal(t, int64(-2), reqs[0].Shape.IndexRange.Start)
	require.Equal(t, int64(-1), reqs[0].Shape.IndexRange.Stop)
}

func TestLMoveEmitsSourceAndDestination(t *testing.T) {
	tbl := NewTable()
	reqs, err := tbl.Extract(1, 0, 0, argv("LMOVE", "src", "dst", "LEFT", "RIGHT"))
	require.NoError(t, err)
	require.Len(t, reqs, 2)
	require.Equal(t, []byte("src"), reqs[0].Key)
	require.Equal(t, types.IN, reqs[0].Intention)
	require.Equal(t, []byte("dst"), reqs[1].Key)
	require.Equal(t, types.OUT, reqs[1].Intention)
}

func TestSInterStoreEmitsDestinationPlusSources(t *testing.T) {
	tbl := NewTable()
	reqs, err := tbl.Extract(1, 0, 0, argv("SINTERSTORE", "dst", "s1", "s2"))
	require.NoError(t, err)
	require.Len(t, reqs, 3)
	require.Equal(t, types.OUT, reqs[0].Intention)
	require.Equal(t, []byte("dst"), reqs[0].Key)
}

func TestSortWithoutStoreOnlyReadsSource(t *testing.T) {
	tbl := NewTable()
	reqs, err := tbl.Extract(1, 0, 0, argv("SORT", "l"))
	require.NoError(t, err)
	require.Len(t, reqs, 1)
}

func TestSortWithStoreAddsDestination(t *testing.T) {
	tbl := NewTable()
	reqs, err := tbl.Extract(1, 0, 0, argv("SORT", "l", "STORE", "dst"))
	require.NoError(t, err)
	require.Len(t, reqs, 2)
	require.Equal(t, types.OUT, reqs[1].Intention)
	require.Equal(t, []byte("dst"), reqs[1].Key)
}

func TestFlushAllEmitsServerLevelSentinel(t *testing.T) {
	tbl := NewTable()
	reqs, err := tbl.Extract(1, 0, 0, argv("FLUSHALL"))
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	require.Equal(t, types.LevelServer, reqs[0].Level)
}

func TestFlushDbEmitsDatabaseLevelSentinel(t *testing.T) {
	tbl := NewTable()
	reqs, err := tbl.Extract(1, 0, 0, argv("FLUSHDB"))
	require.NoError(t, err)
	require.Equal(t, types.LevelDatabase, reqs[0].Level)
}

func TestScanEmitsMetascanFlagWithoutKey(t *testing.T) {
	tbl := NewTable()
	reqs, err := tbl.Extract(1, 0, 0, argv("SCAN", "0"))
	require.NoError(t, err)
	require.True(t, reqs[0].IntentionFlags.Has(types.MetascanScan))
	require.Nil(t, reqs[0].Key)
}

func TestHScanEmitsMetascanFlagWithKey(t *testing.T) {
	tbl := NewTable()
	reqs, err := tbl.Extract(1, 0, 0, argv("HSCAN", "h", "0"))
	require.NoError(t, err)
	require.True(t, reqs[0].IntentionFlags.Has(types.MetascanScan))
	require.Equal(t, []byte("h"), reqs[0].Key)
}

func TestUnregisteredCommandReturnsNoRequests(t *testing.T) {
	tbl := NewTable()
	reqs, err := tbl.Extract(1, 0, 0, argv("PING"))
	require.NoError(t, err)
	require.Nil(t, reqs)
}

func TestZRangeByScoreParsesInfBounds(t *testing.T) {
	tbl := NewTable()
	reqs, err := tbl.Extract(1, 0, 0, argv("ZRANGEBYSCORE", "z", "-inf", "(5"))
	require.NoError(t, err)
	require.Equal(t, types.ShapeScoreRange, reqs[0].Shape.Kind)
	require.True(t, reqs[0].Shape.ScoreRange.MaxExcl)
	require.False(t, reqs[0].Shape.ScoreRange.MinExcl)
}
