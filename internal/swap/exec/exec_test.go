package exec

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/swapdb/swapcore/internal/swap/batch"
	"github.com/swapdb/swapcore/internal/swap/rio"
	"github.com/swapdb/swapcore/internal/swap/types"
)

func TestFingerprintIsStableAndInRange(t *testing.T) {
	p := NewPool(4, rio.NewMemEngine(), func(Result) {})
	idx := p.Fingerprint([]byte("somekey"))
	require.GreaterOrEqual(t, idx, 0)
	require.Less(t, idx, 4)
	require.Equal(t, idx, p.Fingerprint([]byte("somekey")))
}

func TestNewPoolClampsWorkerCount(t *testing.T) {
	p := NewPool(0, rio.NewMemEngine(), func(Result) {})
	require.Equal(t, DefaultWorkers, p.Workers())

	p = NewPool(1000, rio.NewMemEngine(), func(Result) {})
	require.Equal(t, MaxWorkers, p.Workers())
}

func TestPoolWriteThenGetRoundTrip(t *testing.T) {
	engine := rio.NewMemEngine()
	var mu sync.Mutex
	results := make(map[int]Result)
	done := make(chan struct{}, 2)

	p := NewPool(2, engine, func(r Result) {
		mu.Lock()
		results[len(results)] = r
		mu.Unlock()
		done <- struct{}{}
	})
	p.Start()
	defer p.Stop()

	key := []byte("k")
	wid := p.Fingerprint(key)
	rawkey := []byte("data:k")

	p.Dispatch(&batch.ExecBatch{
		WorkerID:  wid,
		Intention: types.OUT,
		Action:    rio.ActionWrite,
		Requests: []*batch.Request{{
			Pairs: []rio.KV{{CF: rio.CFData, Key: rawkey, Val: []byte("v")}},
		}},
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("write batch never completed")
	}

	p.Dispatch(&batch.ExecBatch{
		WorkerID:  wid,
		Intention: types.IN,
		Action:    rio.ActionGet,
		Requests: []*batch.Request{{
			CF:      rio.CFData,
			Rawkeys: [][]byte{rawkey},
		}},
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("get batch never completed")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, results, 2)
	require.NoError(t, results[1].Err)
	require.Equal(t, []byte("v"), results[1].Pairs[0].Val)
}
