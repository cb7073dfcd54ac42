// Package batch implements the submission/exec batch accumulator,
// grounded on pkg/tools/batcher's generic accumulate-then-shift shape:
// a process-wide accumulator groups requests bound for the same worker
// and sharing an intention into one open "submission batch", shifting
// it out whenever the grouping key changes, a force-flush hint arrives,
// or the caller drains it at a command boundary.
package batch

import (
	"github.com/swapdb/swapcore/internal/swap/rio"
	"github.com/swapdb/swapcore/internal/swap/types"
)

// Request is one analyzed key-request ready for batching: swapAna has
// already resolved its intention and swapAnaAction its RIO action.
type Request struct {
	KeyRequest *types.KeyRequest
	Intention  types.Intention
	Action     rio.Action
	WorkerID   int
	// ForceFlush mirrors pkg/tools/batcher's OnComplete-triggering hint:
	// set by callers that need the accumulator drained right after this
	// request (e.g. a command that must observe its own write).
	ForceFlush bool

	// CF/Rawkeys/Pairs carry the originating VTable's encoded output
	// (EncodeKeys, EncodeData or SwapDel) so the worker can run the RIO
	// without this package importing data.
	CF      rio.ColumnFamily
	Rawkeys [][]byte
	Pairs   []rio.KV
}

// SubmissionBatch is a run of Requests sharing (WorkerID, Intention).
type SubmissionBatch struct {
	WorkerID  int
	Intention types.Intention
	Requests  []*Request
}

// Accumulator holds at most one open SubmissionBatch. It is owned by
// the single executor goroutine, like the lock manager; no mutex.
type Accumulator struct {
	open *SubmissionBatch
}

// Add appends req to the open batch and reports every batch that must
// now be dispatched, in order: the previously open batch first, if
// req's (WorkerID, Intention) differs from it, and then the batch req
// itself just joined, if req carries a force-flush hint. Both can fire
// for the same call (a grouping-key shift immediately followed by a
// force-flushed request), so callers must dispatch every entry, not
// just the first.
func (a *Accumulator) Add(req *Request) []*SubmissionBatch {
	var out []*SubmissionBatch
	if a.open != nil && (a.open.WorkerID != req.WorkerID || a.open.Intention != req.Intention) {
		out = append(out, a.open)
		a.open = nil
	}
	if a.open == nil {
		a.open = &SubmissionBatch{WorkerID: req.WorkerID, Intention: req.Intention}
	}
	a.open.Requests = append(a.open.Requests, req)
	if req.ForceFlush {
		out = append(out, a.open)
		a.open = nil
	}
	return out
}

// Flush drains whatever batch is currently open, for a force-flush
// hint or a command-boundary drain.
func (a *Accumulator) Flush() (flushed *SubmissionBatch, ok bool) {
	if a.open == nil {
		return nil, false
	}
	flushed, a.open = a.open, nil
	return flushed, true
}

// ExecBatch is a SubmissionBatch expanded by Action: requests sharing
// (intention, RIO action) compile into one RIO-batch.
type ExecBatch struct {
	WorkerID  int
	Intention types.Intention
	Action    rio.Action
	Requests  []*Request
}

// ExpandExec splits sb into ExecBatches, one per distinct Action, in
// first-seen order.
func ExpandExec(sb *SubmissionBatch) []*ExecBatch {
	order := make([]rio.Action, 0, 2)
	groups := make(map[rio.Action]*ExecBatch, 2)
	for _, r := range sb.Requests {
		eb, ok := groups[r.Action]
		if !ok {
			eb = &ExecBatch{WorkerID: sb.WorkerID, Intention: sb.Intention, Action: r.Action}
			groups[r.Action] = eb
			order = append(order, r.Action)
		}
		eb.Requests = append(eb.Requests, r)
	}
	out := make([]*ExecBatch, len(order))
	for i, a := range order {
		out[i] = groups[a]
	}
	return out
}
