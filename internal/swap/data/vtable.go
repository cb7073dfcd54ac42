// Package data implements the swap-data type vtable: the per-object-type
// strategy that decides what a key-request means in terms of RocksDB
// I/O, and that knows how to encode, decode, merge, and install a value
// of its type.
package data

import (
	"github.com/swapdb/swapcore/internal/swap/codec"
	"github.com/swapdb/swapcore/internal/swap/rio"
	"github.com/swapdb/swapcore/internal/swap/types"
)

// Ctx is the per-key context a VTable operates on: everything swapAna
// and its neighbours need about a key's current residency without
// reaching back into the RAM dict or the lock manager themselves.
type Ctx struct {
	DBID int
	Key  []byte

	// Meta is the decoded persistent header, or nil if no meta record
	// exists (key is HOT-only or MISSING).
	Meta *codec.Meta

	// RAMValue is the value currently resident in the RAM dict, or nil.
	RAMValue any
	// Partial is true when RAMValue holds only a subset of the type's
	// sub-keys (WARM: a big-hash with some fields evicted).
	Partial bool
	// Dirty is true when RAMValue has been mutated since it was last
	// flushed to the DATA column family.
	Dirty bool
	// Version is the live version stamp for this key's sub-key records.
	Version uint64

	// Shape is what the triggering command actually needs; Analyze uses
	// it to tell a satisfied WARM read from one that still needs a
	// sub-key fetch.
	Shape types.Shape
}

// Residency derives the key's residency state from Ctx.
func (c *Ctx) Residency() types.Residency {
	return types.DeriveResidency(c.RAMValue != nil, c.Meta != nil)
}

// Fragment is an opaque type-specific decoded payload threaded between
// DecodeData and CreateOrMergeObject. Each VTable defines its own
// concrete fragment type and type-asserts it back out.
type Fragment any

// VTable is the strategy every registered object type supplies.
// Implementations are stateless and safe to share across keys; all
// per-key state lives in Ctx.
type VTable interface {
	ObjectType() codec.ObjectType

	// Analyze decides the swap intention for req given ctx's current
	// residency, and the flags the caller should carry forward.
	Analyze(req *types.KeyRequest, ctx *Ctx) (types.Intention, types.IntentionFlags)

	// Action maps an already-decided intention to the RIO action it
	// compiles to.
	Action(intention types.Intention) rio.Action

	// EncodeKeys returns the rawkeys a GET/MULTIGET/DEL must address to
	// satisfy ctx.Shape.
	EncodeKeys(ctx *Ctx) (cf rio.ColumnFamily, rawkeys [][]byte)

	// EncodeData returns the rawkey/rawval pairs an OUT must write,
	// built from fragment (the value SwapOut produced).
	EncodeData(ctx *Ctx, fragment Fragment) (cf rio.ColumnFamily, pairs []rio.KV)

	// EncodeRange returns the [lo, hi) rawkey range a ranged shape
	// (index/score/lex) compiles to, for types that support it.
	EncodeRange(ctx *Ctx) (cf rio.ColumnFamily, lo, hi []byte)

	// DecodeData turns raw engine pairs back into a type-specific
	// fragment.
	DecodeData(ctx *Ctx, pairs []rio.KV) (Fragment, error)

	// CreateOrMergeObject folds a decoded fragment into ctx.RAMValue
	// (or creates a fresh value if ctx.RAMValue is nil), returning the
	// merged value and whether every sub-key the type has is now
	// resident.
	CreateOrMergeObject(ctx *Ctx, fragment Fragment) (value any, complete bool)

	// SwapIn installs value into the RAM dict side (the caller commits
	// it; SwapIn only updates type-local bookkeeping if any).
	SwapIn(ctx *Ctx, value any)

	// SwapOut produces the fragment to persist and signals the value
	// can be evicted from RAM once EncodeData's write commits.
	SwapOut(ctx *Ctx) Fragment

	// SwapDel produces the rawkeys to tombstone. skipTombstone is true
	// when the caller already knows no persistent record exists
	// (the FinDelSkip intention flag).
	SwapDel(ctx *Ctx, skipTombstone bool) (cf rio.ColumnFamily, rawkeys [][]byte)

	// CleanObject releases any type-local resources after a swap-out
	// commits (e.g. clearing a dirty bit). Most types no-op.
	CleanObject(ctx *Ctx)

	// MergedIsHot reports whether value, after a swap-in, holds every
	// sub-key the type has (so the key can be marked fully HOT rather
	// than left WARM).
	MergedIsHot(ctx *Ctx, value any) bool

	// RocksDel returns the rawkeys a full key deletion must tombstone,
	// including the meta record itself.
	RocksDel(ctx *Ctx) (cf rio.ColumnFamily, rawkeys [][]byte)
}

// Registry resolves a VTable by the object type recorded in a key's
// meta record.
type Registry struct {
	byType map[codec.ObjectType]VTable
}

// NewRegistry builds a registry from the given vtables, indexed by
// their own ObjectType().
func NewRegistry(vtables ...VTable) *Registry {
	r := &Registry{byType: make(map[codec.ObjectType]VTable, len(vtables))}
	for _, v := range vtables {
		r.byType[v.ObjectType()] = v
	}
	return r
}

func (r *Registry) Lookup(t codec.ObjectType) (VTable, bool) {
	v, ok := r.byType[t]
	return v, ok
}
