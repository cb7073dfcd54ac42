package data

import (
	"github.com/swapdb/swapcore/internal/swap/codec"
	"github.com/swapdb/swapcore/internal/swap/rio"
	"github.com/swapdb/swapcore/internal/swap/types"
)

// WholeKey is the vtable for types stored as a single blob under one
// DATA rawkey: strings and any small aggregate cheap enough to swap in
// one piece. Grounded on ctrip_swap_wholekey.c's wholeKeySwapAna /
// wholeKeyEncodeKeys, which never address sub-keys.
type WholeKey struct {
	objType codec.ObjectType
}

// NewWholeKey returns a WholeKey vtable for the given object type
// (ObjectString is the common case; small lists/sets can reuse it).
func NewWholeKey(objType codec.ObjectType) *WholeKey {
	return &WholeKey{objType: objType}
}

func (w *WholeKey) ObjectType() codec.ObjectType { return w.objType }

func (w *WholeKey) Analyze(req *types.KeyRequest, ctx *Ctx) (types.Intention, types.IntentionFlags) {
	return analyzeCommon(ctx.Residency(), req, false, ctx.Dirty)
}

func (w *WholeKey) Action(intention types.Intention) rio.Action {
	switch intention {
	case types.IN:
		return rio.ActionGet
	case types.OUT:
		return rio.ActionWrite
	case types.DEL:
		return rio.ActionDel
	default:
		return rio.ActionNop
	}
}

func (w *WholeKey) EncodeKeys(ctx *Ctx) (rio.ColumnFamily, [][]byte) {
	return rio.CFData, [][]byte{codec.EncodeDataKey(ctx.DBID, ctx.Key, ctx.Version, nil)}
}

func (w *WholeKey) EncodeRange(ctx *Ctx) (rio.ColumnFamily, []byte, []byte) {
	return rio.CFData, nil, nil
}

// blobFragment carries the raw bytes of a whole-key value between
// DecodeData/SwapOut and CreateOrMergeObject.
type blobFragment struct {
	Value []byte
}

func (w *WholeKey) DecodeData(ctx *Ctx, pairs []rio.KV) (Fragment, error) {
	if len(pairs) == 0 || pairs[0].Val == nil {
		return blobFragment{}, nil
	}
	return blobFragment{Value: append([]byte(nil), pairs[0].Val...)}, nil
}

func (w *WholeKey) CreateOrMergeObject(ctx *Ctx, fragment Fragment) (any, bool) {
	f := fragment.(blobFragment)
	if f.Value == nil {
		return nil, true
	}
	return f.Value, true
}

func (w *WholeKey) EncodeData(ctx *Ctx, fragment Fragment) (rio.ColumnFamily, []rio.KV) {
	f := fragment.(blobFragment)
	key := codec.EncodeDataKey(ctx.DBID, ctx.Key, ctx.Version, nil)
	return rio.CFData, []rio.KV{{CF: rio.CFData, Key: key, Val: f.Value}}
}

func (w *WholeKey) SwapIn(ctx *Ctx, value any) {}

func (w *WholeKey) SwapOut(ctx *Ctx) Fragment {
	val, _ := ctx.RAMValue.([]byte)
	return blobFragment{Value: val}
}

func (w *WholeKey) SwapDel(ctx *Ctx, skipTombstone bool) (rio.ColumnFamily, [][]byte) {
	if skipTombstone {
		return rio.CFData, nil
	}
	return rio.CFData, [][]byte{codec.EncodeDataKey(ctx.DBID, ctx.Key, ctx.Version, nil)}
}

func (w *WholeKey) CleanObject(ctx *Ctx) {}

func (w *WholeKey) MergedIsHot(ctx *Ctx, value any) bool { return true }

func (w *WholeKey) RocksDel(ctx *Ctx) (rio.ColumnFamily, [][]byte) {
	return rio.CFMeta, [][]byte{codec.EncodeMetaKey(ctx.DBID, ctx.Key)}
}
