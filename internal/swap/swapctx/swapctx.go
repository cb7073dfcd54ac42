// Package swapctx wires together the request extractor, lock manager,
// swap-data vtables, batch accumulator, worker pool and completion
// queue into the swap context lifecycle: create on extraction, bind to
// a lock entry, dispatch its RIO, and destroy after finish() runs.
package swapctx

import (
	"sync/atomic"
	"time"

	"github.com/swapdb/swapcore/internal/swap/absent"
	"github.com/swapdb/swapcore/internal/swap/batch"
	"github.com/swapdb/swapcore/internal/swap/codec"
	"github.com/swapdb/swapcore/internal/swap/completion"
	"github.com/swapdb/swapcore/internal/swap/data"
	"github.com/swapdb/swapcore/internal/swap/db"
	"github.com/swapdb/swapcore/internal/swap/exec"
	"github.com/swapdb/swapcore/internal/swap/extractor"
	"github.com/swapdb/swapcore/internal/swap/lock"
	"github.com/swapdb/swapcore/internal/swap/rio"
	"github.com/swapdb/swapcore/internal/swap/stats"
	"github.com/swapdb/swapcore/internal/swap/types"
)

// Ctx is one key-request's swap context: everything finish() needs to
// reconcile RAM state once the request's RIO completes.
type Ctx struct {
	Req            *types.KeyRequest
	Intention      types.Intention
	IntentionFlags types.IntentionFlags
	VTable         data.VTable
	DataCtx        *data.Ctx
	ErrCode        error

	entry *lock.Entry
	start time.Time
}

// Executor is the single-goroutine owner of every swap component: the
// lock manager, the per-database RAM state, the batch accumulators,
// and the handles onto the worker pool and completion queue. Every
// method here must be called from one goroutine.
type Executor struct {
	locks      *lock.Manager
	dbs        []*db.Database
	registry   *data.Registry
	extractors *extractor.Table
	pool       *exec.Pool
	completion *completion.Queue
	absentKeys *absent.Cache
	stats      *stats.Stats

	stringVTable data.VTable
	hashVTable   data.VTable

	accumulators []batch.Accumulator
	pending      map[*batch.Request]*Ctx

	nextTxID atomic.Int64
}

// New builds an Executor over numDBs databases and a worker pool of
// workerCount size, dispatching RIO against engine.
func New(numDBs, workerCount int, engine rio.Engine, st *stats.Stats, absentCapacity int) *Executor {
	e := &Executor{
		locks:      lock.NewManager(numDBs),
		dbs:        make([]*db.Database, numDBs),
		extractors: extractor.NewTable(),
		absentKeys: absent.New(absentCapacity),
		stats:      st,
		pending:    make(map[*batch.Request]*Ctx),
	}
	for i := range e.dbs {
		e.dbs[i] = db.New(i)
	}

	e.stringVTable = data.NewWholeKey(codec.ObjectString)
	e.hashVTable = data.NewHash()
	e.registry = data.NewRegistry(e.stringVTable, e.hashVTable)

	q, err := completion.New()
	if err != nil {
		panic(err) // os.Pipe failure is unrecoverable at startup
	}
	e.completion = q
	e.pool = exec.NewPool(workerCount, engine, func(r exec.Result) { e.completion.Push(r) })
	e.accumulators = make([]batch.Accumulator, e.pool.Workers())
	return e
}

func (e *Executor) Start() { e.pool.Start() }
func (e *Executor) Stop()  { e.pool.Stop(); e.completion.Close() }

// WakeFD is the fd the host event loop polls for completion readiness.
func (e *Executor) WakeFD() interface{ Fd() uintptr } { return e.completion.WakeFD() }

// HandleCommand extracts dbid/cmd's key-requests under a fresh txid
// and submits each to the lock manager, returning their swap contexts.
func (e *Executor) HandleCommand(dbid int, cmd extractor.Command) ([]*Ctx, error) {
	txid := types.TxID(e.nextTxID.Add(1))
	reqs, err := e.extractors.Extract(txid, dbid, 0, cmd)
	if err != nil {
		return nil, err
	}
	ctxs := make([]*Ctx, len(reqs))
	for i, r := range reqs {
		ctxs[i] = e.submit(r)
	}
	return ctxs, nil
}

func (e *Executor) submit(req *types.KeyRequest) *Ctx {
	c := &Ctx{Req: req, start: time.Now()}
	c.entry = e.locks.Acquire(req, func() { e.onAcquire(c) })
	return c
}

// onAcquire runs once req's lock is granted: it decides the swap
// intention (swapAna), compiles the RIO, and either resolves
// synchronously (NOP) or hands off to the batch accumulator / worker
// pool, deferring the lock's Unlock until finish() runs.
func (e *Executor) onAcquire(c *Ctx) {
	if c.Req.Level != types.LevelKey {
		// Server/database-level sentinel (FLUSHALL/FLUSHDB): nothing
		// of its own to swap, it exists purely to serialise against
		// in-flight key-level work via the lock lattice.
		e.locks.Proceed(c.entry)
		e.locks.Unlock(c.entry)
		return
	}

	database := e.dbs[c.Req.DBID]
	key := string(c.Req.Key)
	state := database.State(key)

	vt, ok := e.registry.Lookup(state.ObjType)
	if !ok {
		if c.Req.Shape.Kind == types.ShapeSubKeys {
			vt = e.hashVTable
		} else {
			vt = e.stringVTable
		}
		state.ObjType = vt.ObjectType()
	}

	dataCtx := &data.Ctx{
		DBID:     c.Req.DBID,
		Key:      c.Req.Key,
		RAMValue: state.Value,
		Partial:  state.Partial,
		Dirty:    state.Dirty,
		Version:  state.Version,
		Shape:    c.Req.Shape,
	}
	if state.HasMeta {
		dataCtx.Meta = &codec.Meta{ObjectType: state.ObjType, Version: state.Version, Extend: state.MetaExtend}
	}

	// A key already known absent needs no RIO round trip to confirm it
	// again: resolve as NOP directly.
	if c.Req.Intention == types.IN && state.Value == nil && !state.HasMeta && e.absentKeys.Get(c.Req.Key) {
		c.Intention, c.IntentionFlags, c.VTable, c.DataCtx = types.NOP, 0, vt, dataCtx
		e.locks.Proceed(c.entry)
		e.locks.Unlock(c.entry)
		return
	}

	intention, flags := vt.Analyze(c.Req, dataCtx)
	c.Intention, c.IntentionFlags, c.VTable, c.DataCtx = intention, flags, vt, dataCtx

	if intention == types.NOP || intention == types.UTIL {
		e.locks.Proceed(c.entry)
		e.locks.Unlock(c.entry)
		return
	}

	workerID := e.pool.Fingerprint(c.Req.Key)
	breq := &batch.Request{KeyRequest: c.Req, Intention: intention, Action: vt.Action(intention), WorkerID: workerID}

	switch intention {
	case types.IN:
		breq.CF, breq.Rawkeys = vt.EncodeKeys(dataCtx)
		// GETDEL-style requests (IN carrying InDel) must observe their
		// own fetch before the caller can act on it, so drain this
		// request's batch immediately rather than let it ride with
		// unrelated GETs to the same worker.
		breq.ForceFlush = flags.Has(types.InDel)
	case types.OUT:
		frag := vt.SwapOut(dataCtx)
		breq.CF, breq.Pairs = vt.EncodeData(dataCtx, frag)
	case types.DEL:
		breq.CF, breq.Rawkeys = vt.SwapDel(dataCtx, flags.Has(types.FinDelSkip))
	}

	e.pending[breq] = c
	for _, shifted := range e.accumulators[workerID].Add(breq) {
		e.dispatch(shifted)
	}

	// Sibling requests of this transaction may proceed now; the
	// unlock that lets the *next* transaction in waits for finish().
	e.locks.Proceed(c.entry)
}

// FlushBoundary drains every accumulator's open batch at a command
// boundary.
func (e *Executor) FlushBoundary() {
	for i := range e.accumulators {
		if sb, ok := e.accumulators[i].Flush(); ok {
			e.dispatch(sb)
		}
	}
}

func (e *Executor) dispatch(sb *batch.SubmissionBatch) {
	for _, eb := range batch.ExpandExec(sb) {
		e.stats.BumpBatch(eb.Intention)
		e.pool.Dispatch(eb)
	}
}

// DrainCompletions runs finish() for every request in every batch the
// completion queue has received since the last drain, then unlocks
// each request's entry.
func (e *Executor) DrainCompletions() {
	for _, res := range e.completion.Drain() {
		for _, r := range res.Batch.Requests {
			c, ok := e.pending[r]
			if !ok {
				continue
			}
			delete(e.pending, r)
			e.finish(c, r.Pairs, res.Err)
		}
	}
}

// finish reconciles RAM state for the completed intention, then
// releases the request's lock. pairs carries only this request's own
// rawkeys' results, not the whole exec batch's (several requests can
// share one batch when they land on the same worker and action).
func (e *Executor) finish(c *Ctx, pairs []rio.KV, batchErr error) {
	defer e.locks.Unlock(c.entry)

	if batchErr != nil {
		c.ErrCode = batchErr
		return
	}

	database := e.dbs[c.Req.DBID]
	key := string(c.Req.Key)
	state := database.State(key)

	switch c.Intention {
	case types.NOP:
		// nothing.
	case types.IN:
		wasCold := state.Residency() == types.Cold
		frag, err := c.VTable.DecodeData(c.DataCtx, pairs)
		if err != nil {
			c.ErrCode = err
			return
		}
		merged, _ := c.VTable.CreateOrMergeObject(c.DataCtx, frag)
		state.Value = merged
		c.VTable.SwapIn(c.DataCtx, merged)
		if wasCold {
			if c.DataCtx.Meta != nil && c.DataCtx.Meta.Expire != 0 {
				database.SetExpire(key, c.DataCtx.Meta.Expire)
			}
			database.DecrColdKeys()
		}
		if merged == nil {
			state.Partial = false
			if !state.HasMeta {
				e.absentKeys.Put(c.Req.Key)
			}
		} else {
			e.absentKeys.Delete(c.Req.Key)
			// A merge that now covers every sub-key the type has (the
			// whole blob for WholeKey, every field for a Hash whose meta
			// recorded the total) lets the key go fully HOT again, even
			// if it was COLD a moment ago.
			if c.VTable.MergedIsHot(c.DataCtx, merged) {
				state.Partial = false
				state.HasMeta = false
			} else {
				state.Partial = true
			}
		}
	case types.OUT:
		wasHot := state.Residency() == types.Hot
		if c.IntentionFlags.Has(types.OutMeta) && wasHot {
			database.ClearExpire(key)
			database.IncrColdKeys()
			state.HasMeta = true
		}
		if c.DataCtx.Meta != nil {
			state.MetaExtend = c.DataCtx.Meta.Extend
		}
		e.absentKeys.Delete(c.Req.Key)
		c.VTable.CleanObject(c.DataCtx)
		state.Value = nil
		state.Dirty = false
	case types.DEL:
		wasColdOrWarm := state.Residency() == types.Cold || state.Residency() == types.Warm
		if wasColdOrWarm {
			database.DecrColdKeys()
		}
		database.ClearExpire(key)
		database.Forget(key)
	case types.UTIL:
		// Not reached: onAcquire resolves UTIL requests without I/O and
		// never hands them to a worker.
	}

	e.stats.Observe(c.Req.TxID, string(c.Req.Key), c.Intention, time.Since(c.start), approxMemory(pairs), nil)
}

// approxMemory sums the rawval bytes a request's own pairs carried, a
// cheap per-request memory figure for the latency histogram's sibling
// counter without the vtable exposing a dedicated sizer.
func approxMemory(pairs []rio.KV) int64 {
	var n int64
	for _, kv := range pairs {
		n += int64(len(kv.Val))
	}
	return n
}
