// Package scan implements the scan-session table: a fixed-size table
// of sessions addressed by a reversible cursor bit-stuffing scheme, so
// a SCAN cursor survives across commands without the server keeping
// per-client state.
package scan

import (
	"time"

	"github.com/swapdb/swapcore/internal/swap/swaperr"
)

// SessionBits is B: the number of low bits of a cursor that hold the
// session id. The table therefore has 1<<SessionBits slots.
const SessionBits = 10

const sessionMask = 1<<SessionBits - 1

// Cursor is the user-visible value returned from and accepted into a
// SCAN command.
type Cursor uint64

// Split decodes a cursor into its session id and sequence halves.
func Split(c Cursor) (sessionID int, seq uint64) {
	return int(c & sessionMask), uint64(c) >> SessionBits
}

// Pack is the inverse of Split.
func Pack(sessionID int, seq uint64) Cursor {
	return Cursor(uint64(sessionID)&sessionMask | seq<<SessionBits)
}

type session struct {
	inUse       bool
	bound       bool // true while a request currently holds this session
	nextCursor  uint64
	nextSeek    []byte
	lastTouched time.Time
}

// Table is the C9 scan-session manager.
type Table struct {
	sessions []session
	free     []int
}

// NewTable builds a table with 1<<SessionBits slots, all initially free.
func NewTable() *Table {
	t := &Table{sessions: make([]session, 1<<SessionBits)}
	t.free = make([]int, len(t.sessions))
	for i := range t.free {
		t.free[i] = len(t.sessions) - 1 - i
	}
	return t
}

// Assign pops a free session, or evicts the least-recently-touched
// session whose idle time exceeds maxIdle, and returns its id with a
// fresh cursor (seq 0).
func (t *Table) Assign(maxIdle time.Duration, now time.Time) (Cursor, bool) {
	if n := len(t.free); n > 0 {
		id := t.free[n-1]
		t.free = t.free[:n-1]
		t.sessions[id] = session{inUse: true, lastTouched: now}
		return Pack(id, 0), true
	}

	lruID := -1
	var lruTouched time.Time
	for id := range t.sessions {
		s := &t.sessions[id]
		if !s.inUse || s.bound {
			continue
		}
		if lruID == -1 || s.lastTouched.Before(lruTouched) {
			lruID, lruTouched = id, s.lastTouched
		}
	}
	if lruID == -1 || now.Sub(lruTouched) <= maxIdle {
		return 0, false
	}
	t.sessions[lruID] = session{inUse: true, lastTouched: now}
	return Pack(lruID, 0), true
}

// Bind resolves cursor to its session, checking each of the three ways
// it can be invalid, and marks it in-progress until Unbind releases it.
func (t *Table) Bind(c Cursor) error {
	id, seq := Split(c)
	if id < 0 || id >= len(t.sessions) || !t.sessions[id].inUse {
		return swaperr.ErrScanUnassigned
	}
	s := &t.sessions[id]
	if s.bound {
		return swaperr.ErrScanInProgress
	}
	if s.nextCursor != seq {
		return swaperr.ErrScanSeqUnmatch
	}
	s.bound = true
	return nil
}

// Unbind stores the next engine seek position and advances the
// session's cursor sequence, or frees the session entirely when nextSeek
// is empty (the scan finished). now updates the session's idle clock.
func (t *Table) Unbind(c Cursor, nextSeek []byte, now time.Time) Cursor {
	id, _ := Split(c)
	s := &t.sessions[id]
	s.bound = false
	s.lastTouched = now

	if len(nextSeek) == 0 {
		t.release(id)
		return Pack(id, 0)
	}
	s.nextSeek = nextSeek
	s.nextCursor++
	return Pack(id, s.nextCursor)
}

func (t *Table) release(id int) {
	t.sessions[id] = session{}
	t.free = append(t.free, id)
}

// Seek returns the raw bytes a bound session should resume iteration
// from, or nil for a freshly assigned session.
func (t *Table) Seek(c Cursor) []byte {
	id, _ := Split(c)
	return t.sessions[id].nextSeek
}
