// Package completion implements the completion queue and wake-pipe:
// workers append finished batches to a mutex-protected list, then
// write one byte to a self-pipe the server's event loop polls for
// read-readiness.
package completion

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/openimsdk/tools/log"
	"github.com/swapdb/swapcore/internal/swap/exec"
)

// Queue is the completion queue.
type Queue struct {
	mu    sync.Mutex
	items []exec.Result

	r, w *os.File

	// wakeFails rate-limits the "wake pipe write failed" log line so a
	// stuck reader can't flood the log.
	wakeFails   atomic.Int64
	lastLogged  atomic.Int64 // unix nanos of the last emitted warning
}

// New opens the self-pipe and returns an empty Queue.
func New() (*Queue, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	return &Queue{r: r, w: w}, nil
}

// WakeFD is the read end the event loop registers for read-readiness.
func (q *Queue) WakeFD() *os.File { return q.r }

// Push appends res and signals the wake pipe. A full pipe buffer
// (EAGAIN-equivalent) is tolerated: the item is still queued, the
// reader will drain it on its next wake regardless of whether this
// particular byte made it through.
func (q *Queue) Push(res exec.Result) {
	q.mu.Lock()
	q.items = append(q.items, res)
	q.mu.Unlock()

	// A raw, non-retrying write: a full pipe returns EAGAIN here instead
	// of parking the worker until the reader makes room.
	rc, err := q.w.SyscallConn()
	if err == nil {
		var werr error
		err = rc.Write(func(fd uintptr) bool {
			_, werr = syscall.Write(int(fd), []byte{0})
			return true
		})
		if err == nil {
			err = werr
		}
	}
	if err != nil {
		q.noteWakeFailure(err)
	}
}

func (q *Queue) noteWakeFailure(err error) {
	n := q.wakeFails.Add(1)
	now := time.Now().UnixNano()
	last := q.lastLogged.Load()
	if now-last < int64(time.Second) {
		return
	}
	if !q.lastLogged.CompareAndSwap(last, now) {
		return
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return
	}
	log.ZWarn(context.Background(), "completion wake pipe write failed", err, "totalFailures", n)
}

// Drain removes and returns every queued result, and consumes any
// pending wake bytes so the next Push's write doesn't pile up against
// a full pipe buffer.
func (q *Queue) Drain() []exec.Result {
	q.mu.Lock()
	items := q.items
	q.items = nil
	q.mu.Unlock()

	q.drainWakeBytes()
	return items
}

func (q *Queue) drainWakeBytes() {
	buf := make([]byte, 512)
	// A deadline already in the past fails every Read before it reads
	// anything, so give the loop a short window to empty the pipe.
	q.r.SetReadDeadline(time.Now().Add(time.Millisecond))
	for {
		n, err := q.r.Read(buf)
		if n == 0 || err != nil {
			break
		}
	}
	q.r.SetReadDeadline(time.Time{})
}

// Close releases both pipe ends.
func (q *Queue) Close() {
	q.w.Close()
	q.r.Close()
}
