// Package swaperr defines the sentinel errors the swap core can raise.
//
// Each error kind is a distinct sentinel so callers can branch with
// errs.Unwrap(err) == swaperr.ErrX instead of string matching.
package swaperr

import "github.com/openimsdk/tools/errs"

var (
	// ErrDecode: persistent bytes could not be parsed into a meta or
	// sub-key record. The key is left COLD.
	ErrDecode = errs.New("swap: decode error")
	// ErrIO: the engine call itself failed (rocksdb status != ok).
	ErrIO = errs.New("swap: io error")
	// ErrSetup: swap-data could not be constructed, e.g. unknown object type.
	ErrSetup = errs.New("swap: setup error")
	// ErrScanUnassigned: cursor names a session that no longer exists.
	ErrScanUnassigned = errs.New("swap: scan session unassigned")
	// ErrScanInProgress: cursor's session is currently bound to another request.
	ErrScanInProgress = errs.New("swap: scan session in progress")
	// ErrScanSeqUnmatch: cursor's sequence does not match the session's next_cursor.
	ErrScanSeqUnmatch = errs.New("swap: scan cursor sequence mismatch")
	// ErrUnexpectedAction: a RIO action the worker did not expect for the given intention.
	ErrUnexpectedAction = errs.New("swap: unexpected rio action")
	// ErrUnexpectedIntention: a request reached finish() carrying an intention its
	// state machine has no case for.
	ErrUnexpectedIntention = errs.New("swap: unexpected intention")
)
