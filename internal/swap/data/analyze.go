package data

import "github.com/swapdb/swapcore/internal/swap/types"

// analyzeCommon implements the abstract swapAna decision table. It is
// residency/intention-driven only and does not depend on the object
// type, so every VTable's Analyze delegates to it;
// subsetMissing is the one type-specific input (whether ctx.Shape asks
// for sub-keys the RAM value doesn't already hold).
func analyzeCommon(residency types.Residency, req *types.KeyRequest, subsetMissing bool, dirty bool) (types.Intention, types.IntentionFlags) {
	switch req.Intention {
	case types.IN:
		switch residency {
		case types.Missing, types.Cold:
			var flags types.IntentionFlags
			if req.IntentionFlags.Has(types.InDel) {
				flags |= types.InDel
			}
			if req.IntentionFlags.Has(types.InMeta) {
				flags |= types.InMeta
			}
			return types.IN, flags
		case types.Hot:
			if req.IntentionFlags.Has(types.InDel) {
				return types.DEL, types.FinDelSkip
			}
			return types.NOP, 0
		case types.Warm:
			if req.IntentionFlags.Has(types.InDel) {
				return types.DEL, 0
			}
			if subsetMissing {
				return types.IN, 0
			}
			return types.NOP, 0
		}
	case types.OUT:
		if residency == types.Hot || residency == types.Warm {
			if dirty {
				return types.OUT, types.OutMeta
			}
			return types.NOP, 0
		}
		return types.NOP, 0
	case types.DEL:
		return types.DEL, 0
	case types.UTIL:
		return types.UTIL, req.IntentionFlags
	}
	return types.NOP, 0
}
