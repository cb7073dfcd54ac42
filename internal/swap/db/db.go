// Package db holds the per-database RAM-side state the swap core
// mutates outside of RocksDB: the value dict, the expire index, and
// the cold_keys counter invariants.
package db

import (
	"github.com/swapdb/swapcore/internal/swap/codec"
	"github.com/swapdb/swapcore/internal/swap/types"
)

// KeyState is one key's RAM-side bookkeeping. A zero KeyState
// describes a MISSING key.
type KeyState struct {
	Value   any
	Partial bool
	Dirty   bool
	HasMeta bool
	Version uint64
	ObjType codec.ObjectType

	// MetaExtend mirrors the META record's Extend field (e.g. a hash's
	// sub-key count) across RAM/COLD transitions, so a vtable's
	// MergedIsHot has something to compare a swap-in's merged field set
	// against without this package re-decoding a rawval on every access.
	MetaExtend []byte
}

// Residency derives HOT/WARM/COLD/MISSING from the state.
func (s *KeyState) Residency() types.Residency {
	return types.DeriveResidency(s.Value != nil, s.HasMeta)
}

// Database is one logical Redis database's RAM-side state.
type Database struct {
	id       int
	keys     map[string]*KeyState
	expires  map[string]int64 // unix millis TTL, present iff not COLD (invariant 3)
	coldKeys int
}

func New(id int) *Database {
	return &Database{
		id:      id,
		keys:    make(map[string]*KeyState),
		expires: make(map[string]int64),
	}
}

// State returns key's state, creating an empty (MISSING) entry on
// first access so callers can mutate it in place.
func (d *Database) State(key string) *KeyState {
	s, ok := d.keys[key]
	if !ok {
		s = &KeyState{}
		d.keys[key] = s
	}
	return s
}

// Peek returns key's state without creating one, and whether it exists.
func (d *Database) Peek(key string) (*KeyState, bool) {
	s, ok := d.keys[key]
	return s, ok
}

// Forget drops key's state entirely (used after a full DEL).
func (d *Database) Forget(key string) {
	delete(d.keys, key)
}

func (d *Database) SetExpire(key string, atMillis int64) { d.expires[key] = atMillis }
func (d *Database) ClearExpire(key string)                { delete(d.expires, key) }
func (d *Database) Expire(key string) (int64, bool) {
	v, ok := d.expires[key]
	return v, ok
}

func (d *Database) IncrColdKeys() { d.coldKeys++ }
func (d *Database) DecrColdKeys() {
	if d.coldKeys > 0 {
		d.coldKeys--
	}
}
func (d *Database) ColdKeys() int { return d.coldKeys }

func (d *Database) ID() int { return d.id }
