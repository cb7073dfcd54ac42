package lock

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/swapdb/swapcore/internal/swap/types"
)

func keyReq(txid types.TxID, dbid int, key string) *types.KeyRequest {
	return &types.KeyRequest{TxID: txid, Level: types.LevelKey, DBID: dbid, Key: []byte(key)}
}

func TestAcquireReadyImmediatelyWhenUncontended(t *testing.T) {
	m := NewManager(1)
	acquired := false
	e := m.Acquire(keyReq(1, 0, "a"), func() { acquired = true })
	require.True(t, acquired)
	m.Proceed(e)
	m.Unlock(e)
}

func TestSecondTransactionWaitsForUnlockNotProceed(t *testing.T) {
	m := NewManager(1)
	var order []string

	e1 := m.Acquire(keyReq(1, 0, "k"), func() { order = append(order, "acquire1") })

	var e2 *Entry
	e2 = m.Acquire(keyReq(2, 0, "k"), func() { order = append(order, "acquire2") })
	require.Equal(t, []string{"acquire1"}, order, "txid 2 must not acquire while txid 1 holds the key")

	m.Proceed(e1)
	require.Equal(t, []string{"acquire1"}, order, "proceed must not let a different transaction in")

	m.Unlock(e1)
	require.Equal(t, []string{"acquire1", "acquire2"}, order, "unlock must release the next transaction")

	m.Proceed(e2)
	m.Unlock(e2)
}

func TestReentrantRequestsShareOneLockAndProceedTogether(t *testing.T) {
	m := NewManager(1)
	var acquires int
	e1 := m.Acquire(keyReq(5, 0, "k"), func() { acquires++ })
	e2 := m.Acquire(keyReq(5, 0, "k"), func() { acquires++ })
	require.Equal(t, 2, acquires, "both requests of the same transaction acquire immediately")

	m.Proceed(e1)
	m.Proceed(e2)
	m.Unlock(e1)
	m.Unlock(e2)
}

func TestCrossKeyRequestsAreIndependent(t *testing.T) {
	m := NewManager(1)
	var order []string
	e1 := m.Acquire(keyReq(1, 0, "a"), func() { order = append(order, "a") })
	e2 := m.Acquire(keyReq(2, 0, "b"), func() { order = append(order, "b") })
	require.ElementsMatch(t, []string{"a", "b"}, order, "unrelated keys never block each other")
	m.Unlock(e1)
	m.Unlock(e2)
}

func TestServerLevelWaitsForAllInFlightKeyLocks(t *testing.T) {
	m := NewManager(2)
	var order []string
	eA := m.Acquire(keyReq(1, 0, "a"), func() { order = append(order, "a") })
	eB := m.Acquire(keyReq(2, 1, "b"), func() { order = append(order, "b") })

	serverReq := &types.KeyRequest{TxID: 3, Level: types.LevelServer}
	eServer := m.Acquire(serverReq, func() { order = append(order, "server") })
	require.Equal(t, []string{"a", "b"}, order, "server-level op must not acquire before in-flight key ops unlock")

	m.Unlock(eA)
	require.NotContains(t, order, "server")
	m.Unlock(eB)
	require.Equal(t, []string{"a", "b", "server"}, order)

	m.Unlock(eServer)
}

func TestWouldBlock(t *testing.T) {
	m := NewManager(1)
	require.False(t, m.WouldBlock(1, 0, []byte("k")))
	e := m.Acquire(keyReq(1, 0, "k"), func() {})
	require.False(t, m.WouldBlock(1, 0, []byte("k")), "same txid never blocks itself")
	require.True(t, m.WouldBlock(2, 0, []byte("k")), "a different txid must wait")
	m.Unlock(e)
}

func TestKeyContainerIsFreedAfterFullUnlock(t *testing.T) {
	m := NewManager(1)
	e := m.Acquire(keyReq(1, 0, "k"), func() {})
	m.Unlock(e)
	require.Empty(t, m.dbs[0].keys, "a drained key container must be removed from its parent map")
}
