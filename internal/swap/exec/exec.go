// Package exec is the fixed worker pool backing the swap I/O pipeline:
// each worker owns a mutex, condition variable and FIFO of pending
// exec batches, and runs blocking RIO calls against a shared Engine.
// Requests for the same key are always routed to the same worker, so
// per-key I/O completes in lock-proceed order.
//
// Grounded on pkg/tools/batcher's run()/Start() goroutine shape and its
// stringutil.GetHashCode sharding idiom
// (internal/msgtransfer/online_history_msg_handler.go), adapted from a
// channel-fed batcher into a condvar-guarded FIFO since every worker
// shares one RIO Engine rather than a dedicated channel per call site.
package exec

import (
	"sync"

	"github.com/openimsdk/tools/utils/stringutil"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/swapdb/swapcore/internal/swap/batch"
	"github.com/swapdb/swapcore/internal/swap/rio"
)

const (
	DefaultWorkers = 6
	MaxWorkers     = 64

	// getFanout bounds how many rawkeys a single GET exec batch fetches
	// concurrently, mirroring the errgroup.SetLimit(n) idiom used
	// elsewhere in this codebase for fan-out RPCs.
	getFanout = 8
)

// Result is what a completed ExecBatch produced: the raw pairs a
// GET/MULTIGET/ITERATE returned, or nil for a WRITE/DEL.
type Result struct {
	Batch *batch.ExecBatch
	Pairs []rio.KV
	Err   error
}

// OnComplete receives a finished batch off the worker goroutine; it is
// expected to hand the result to the completion queue (C4).
type OnComplete func(Result)

type worker struct {
	mu   sync.Mutex
	cond *sync.Cond
	fifo []*batch.ExecBatch
	stop bool
}

// Pool is the C3 worker pool.
type Pool struct {
	workers    []*worker
	engine     rio.Engine
	onComplete OnComplete
	wg         sync.WaitGroup

	// sf collapses concurrent GETs for the same (CF, rawkey) into one
	// engine round trip, the same group.Do(key, ...)
	// shape rockscache's client.go uses to guard its own cache-aside
	// fetch.
	sf singleflight.Group
}

// NewPool creates a pool of n workers executing against engine,
// delivering completions to onComplete. n <= 0 selects DefaultWorkers;
// n above MaxWorkers is clamped to MaxWorkers.
func NewPool(n int, engine rio.Engine, onComplete OnComplete) *Pool {
	if n <= 0 {
		n = DefaultWorkers
	}
	if n > MaxWorkers {
		n = MaxWorkers
	}
	p := &Pool{
		workers:    make([]*worker, n),
		engine:     engine,
		onComplete: onComplete,
	}
	for i := range p.workers {
		w := &worker{}
		w.cond = sync.NewCond(&w.mu)
		p.workers[i] = w
	}
	return p
}

// Workers reports the pool's worker count, for Fingerprint callers.
func (p *Pool) Workers() int { return len(p.workers) }

// Fingerprint maps key to a worker index: "fingerprint(key) mod N".
func (p *Pool) Fingerprint(key []byte) int {
	return int(stringutil.GetHashCode(string(key))) % len(p.workers)
}

// Start launches every worker goroutine.
func (p *Pool) Start() {
	p.wg.Add(len(p.workers))
	for _, w := range p.workers {
		go p.run(w)
	}
}

// Stop signals every worker to exit once its FIFO drains, and waits
// for them to do so.
func (p *Pool) Stop() {
	for _, w := range p.workers {
		w.mu.Lock()
		w.stop = true
		w.cond.Broadcast()
		w.mu.Unlock()
	}
	p.wg.Wait()
}

// Dispatch enqueues eb on its target worker's FIFO. Callers must have
// set eb.WorkerID via Fingerprint so same-key batches serialise.
func (p *Pool) Dispatch(eb *batch.ExecBatch) {
	w := p.workers[eb.WorkerID]
	w.mu.Lock()
	w.fifo = append(w.fifo, eb)
	w.cond.Signal()
	w.mu.Unlock()
}

func (p *Pool) run(w *worker) {
	defer p.wg.Done()
	for {
		w.mu.Lock()
		for len(w.fifo) == 0 && !w.stop {
			w.cond.Wait()
		}
		if len(w.fifo) == 0 && w.stop {
			w.mu.Unlock()
			return
		}
		eb := w.fifo[0]
		w.fifo = w.fifo[1:]
		w.mu.Unlock()

		p.onComplete(p.execute(eb))
	}
}

type getResult struct {
	val   []byte
	found bool
}

// dedupedGet runs engine.Get through the pool's singleflight group, so
// fetches of the identical rawkey that are in flight at the same time
// share one RocksDB round trip. Same-key batches all go to one worker,
// which runs them one after another, so in practice the sharing happens
// between requests of a single GET batch's fan-out.
func (p *Pool) dedupedGet(cf rio.ColumnFamily, key []byte) ([]byte, bool, error) {
	v, err, _ := p.sf.Do(cf.String()+"\x00"+string(key), func() (any, error) {
		val, found, err := p.engine.Get(cf, key)
		if err != nil {
			return nil, err
		}
		return getResult{val: val, found: found}, nil
	})
	if err != nil {
		return nil, false, err
	}
	res := v.(getResult)
	return res.val, res.found, nil
}

// executeGet fetches every rawkey an ActionGet batch names, fanning
// the calls out across a bounded errgroup so independent requests in
// the same batch don't serialise behind one another.
func (p *Pool) executeGet(eb *batch.ExecBatch) Result {
	g := new(errgroup.Group)
	g.SetLimit(getFanout)

	for _, r := range eb.Requests {
		r := r
		r.Pairs = make([]rio.KV, len(r.Rawkeys))
		for i, k := range r.Rawkeys {
			i, k := i, k
			g.Go(func() error {
				val, found, err := p.dedupedGet(r.CF, k)
				if err != nil {
					return err
				}
				kv := rio.KV{CF: r.CF, Key: k}
				if found {
					kv.Val = val
				}
				r.Pairs[i] = kv
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return Result{Batch: eb, Err: err}
	}

	var pairs []rio.KV
	for _, r := range eb.Requests {
		pairs = append(pairs, r.Pairs...)
	}
	return Result{Batch: eb, Pairs: pairs}
}

// execute performs the blocking RIO call an ExecBatch's action
// compiles to, gathering every request's rawkeys/pairs into one call
// where the engine supports it.
func (p *Pool) execute(eb *batch.ExecBatch) Result {
	switch eb.Action {
	case rio.ActionGet:
		return p.executeGet(eb)

	case rio.ActionMultiGet:
		var pairs []rio.KV
		for _, r := range eb.Requests {
			got, err := p.engine.MultiGet(r.CF, r.Rawkeys)
			if err != nil {
				return Result{Batch: eb, Err: err}
			}
			r.Pairs = got
			pairs = append(pairs, got...)
		}
		return Result{Batch: eb, Pairs: pairs}

	case rio.ActionWrite:
		wb := &rio.WriteBatch{}
		for _, r := range eb.Requests {
			for _, kv := range r.Pairs {
				wb.Put(kv.CF, kv.Key, kv.Val)
			}
		}
		if err := p.engine.Write(wb); err != nil {
			return Result{Batch: eb, Err: err}
		}
		return Result{Batch: eb}

	case rio.ActionDel:
		wb := &rio.WriteBatch{}
		for _, r := range eb.Requests {
			for _, k := range r.Rawkeys {
				wb.Del(r.CF, k)
			}
		}
		if err := p.engine.Write(wb); err != nil {
			return Result{Batch: eb, Err: err}
		}
		return Result{Batch: eb}

	case rio.ActionIterate:
		var pairs []rio.KV
		for _, r := range eb.Requests {
			r.Pairs = r.Pairs[:0]
			for i := 0; i+1 < len(r.Rawkeys); i += 2 {
				items, _, err := p.engine.Iterate(r.CF, r.Rawkeys[i], r.Rawkeys[i+1], 0)
				if err != nil {
					return Result{Batch: eb, Err: err}
				}
				r.Pairs = append(r.Pairs, items...)
				pairs = append(pairs, items...)
			}
		}
		return Result{Batch: eb, Pairs: pairs}

	default:
		return Result{Batch: eb}
	}
}
