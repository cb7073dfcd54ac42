package data

import (
	"github.com/swapdb/swapcore/internal/swap/codec"
	"github.com/swapdb/swapcore/internal/swap/rio"
	"github.com/swapdb/swapcore/internal/swap/types"
)

// Hash is the vtable for the big-hash sub-key-addressable type: each
// field is its own DATA rawkey, so a command touching a handful of
// fields on an otherwise-COLD hash only fetches those fields (WARM).
type Hash struct{}

func NewHash() *Hash { return &Hash{} }

func (h *Hash) ObjectType() codec.ObjectType { return codec.ObjectHash }

// fields holds the RAM-resident subset of a hash's fields. A field
// fetched and found absent upstream is not recorded (DecodeData skips
// nil values), so a later request for it still counts as missing.
type fields map[string][]byte

func subsetMissing(ctx *Ctx, req *types.KeyRequest) bool {
	if req.Shape.Kind != types.ShapeSubKeys {
		// Whole-hash shapes (HGETALL, HKEYS) need every field; a
		// Partial RAM value never satisfies them.
		return ctx.Partial
	}
	current, _ := ctx.RAMValue.(fields)
	for _, sk := range req.Shape.SubKeys {
		if _, ok := current[string(sk)]; !ok {
			return true
		}
	}
	return false
}

func (h *Hash) Analyze(req *types.KeyRequest, ctx *Ctx) (types.Intention, types.IntentionFlags) {
	return analyzeCommon(ctx.Residency(), req, subsetMissing(ctx, req), ctx.Dirty)
}

func (h *Hash) Action(intention types.Intention) rio.Action {
	switch intention {
	case types.IN:
		return rio.ActionMultiGet
	case types.OUT:
		return rio.ActionWrite
	case types.DEL:
		return rio.ActionDel
	default:
		return rio.ActionNop
	}
}

func (h *Hash) EncodeKeys(ctx *Ctx) (rio.ColumnFamily, [][]byte) {
	subkeys := ctx.Shape.SubKeys
	rawkeys := make([][]byte, len(subkeys))
	for i, sk := range subkeys {
		rawkeys[i] = codec.EncodeDataKey(ctx.DBID, ctx.Key, ctx.Version, sk)
	}
	return rio.CFData, rawkeys
}

func (h *Hash) EncodeRange(ctx *Ctx) (rio.ColumnFamily, []byte, []byte) {
	lo := codec.EncodeDataKey(ctx.DBID, ctx.Key, ctx.Version, nil)
	hi := codec.EncodeDataKey(ctx.DBID, ctx.Key, ctx.Version+1, nil)
	return rio.CFData, lo, hi
}

// hashFragment carries the decoded field/value pairs a MULTIGET or a
// full-range ITERATE returned.
type hashFragment struct {
	Pairs fields
}

func (h *Hash) DecodeData(ctx *Ctx, pairs []rio.KV) (Fragment, error) {
	f := hashFragment{Pairs: make(fields, len(pairs))}
	for _, kv := range pairs {
		if kv.Val == nil {
			continue
		}
		_, _, _, subkey, err := codec.DecodeDataKey(kv.Key)
		if err != nil {
			return nil, err
		}
		f.Pairs[string(subkey)] = kv.Val
	}
	return f, nil
}

func (h *Hash) CreateOrMergeObject(ctx *Ctx, fragment Fragment) (any, bool) {
	f := fragment.(hashFragment)
	merged, _ := ctx.RAMValue.(fields)
	if merged == nil {
		merged = make(fields, len(f.Pairs))
	}
	for k, v := range f.Pairs {
		merged[k] = v
	}
	return merged, h.MergedIsHot(ctx, merged)
}

func (h *Hash) EncodeData(ctx *Ctx, fragment Fragment) (rio.ColumnFamily, []rio.KV) {
	f := fragment.(hashFragment)
	pairs := make([]rio.KV, 0, len(f.Pairs))
	for k, v := range f.Pairs {
		pairs = append(pairs, rio.KV{CF: rio.CFData, Key: codec.EncodeDataKey(ctx.DBID, ctx.Key, ctx.Version, []byte(k)), Val: v})
	}
	return rio.CFData, pairs
}

func (h *Hash) SwapIn(ctx *Ctx, value any) {}

func (h *Hash) SwapOut(ctx *Ctx) Fragment {
	val, _ := ctx.RAMValue.(fields)
	// Only a fully-resident hash's field count is the type's true total;
	// a Partial swap-out would otherwise stamp a WARM subset's size as if
	// it were the whole hash.
	if !ctx.Partial {
		if ctx.Meta == nil {
			ctx.Meta = &codec.Meta{ObjectType: codec.ObjectHash, Version: ctx.Version}
		}
		ctx.Meta.Extend = codec.EncodeFieldCount(len(val))
	}
	return hashFragment{Pairs: val}
}

func (h *Hash) SwapDel(ctx *Ctx, skipTombstone bool) (rio.ColumnFamily, [][]byte) {
	if skipTombstone {
		return rio.CFData, nil
	}
	lo, hi := codec.EncodeDataKey(ctx.DBID, ctx.Key, ctx.Version, nil), codec.EncodeDataKey(ctx.DBID, ctx.Key, ctx.Version+1, nil)
	return rio.CFData, [][]byte{lo, hi}
}

func (h *Hash) CleanObject(ctx *Ctx) {}

// MergedIsHot compares the merged field set against the total field
// count recorded in the meta record's Extend at the last OUT. With no
// recorded count (a key that has never been swapped out) any merge is
// necessarily the whole hash.
func (h *Hash) MergedIsHot(ctx *Ctx, value any) bool {
	v, ok := value.(fields)
	if !ok {
		return false
	}
	if ctx.Meta == nil {
		return true
	}
	count, ok := codec.DecodeFieldCount(ctx.Meta.Extend)
	if !ok {
		return true
	}
	return len(v) >= count
}

func (h *Hash) RocksDel(ctx *Ctx) (rio.ColumnFamily, [][]byte) {
	return rio.CFMeta, [][]byte{codec.EncodeMetaKey(ctx.DBID, ctx.Key)}
}
