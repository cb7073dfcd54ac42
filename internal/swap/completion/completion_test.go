package completion

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/swapdb/swapcore/internal/swap/batch"
	"github.com/swapdb/swapcore/internal/swap/exec"
)

func TestPushThenDrainReturnsInOrder(t *testing.T) {
	q, err := New()
	require.NoError(t, err)
	defer q.Close()

	q.Push(exec.Result{Batch: &batch.ExecBatch{WorkerID: 0}})
	q.Push(exec.Result{Batch: &batch.ExecBatch{WorkerID: 1}})

	items := q.Drain()
	require.Len(t, items, 2)
	require.Equal(t, 0, items[0].Batch.WorkerID)
	require.Equal(t, 1, items[1].Batch.WorkerID)

	require.Empty(t, q.Drain(), "a second drain with nothing pushed returns empty")
}

func TestWakeFDBecomesReadableAfterPush(t *testing.T) {
	q, err := New()
	require.NoError(t, err)
	defer q.Close()

	q.Push(exec.Result{})

	buf := make([]byte, 1)
	q.WakeFD().SetReadDeadline(time.Now().Add(time.Second))
	n, err := q.WakeFD().Read(buf)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}
