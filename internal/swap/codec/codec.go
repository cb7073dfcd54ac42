// Package codec implements the persistent-key/value encoding described
// in ctrip_swap_meta.c / ctrip_swap_wholekey.c:
// fixed-width big-endian integers, length-prefixed byte strings.
//
// META column family rawkey:   dbid(4) | keylen(4) | key
// META column family rawval:   objectType(1) | expire(8) | version(8) | extlen(4) | ext
// DATA column family rawkey:   dbid(4) | keylen(4) | key | version(8) | subkey
package codec

import (
	"encoding/binary"

	"github.com/swapdb/swapcore/internal/swap/swaperr"
)

// ObjectType identifies which vtable owns a key's value.
type ObjectType uint8

const (
	ObjectString ObjectType = iota
	ObjectHash
	ObjectList
	ObjectSet
	ObjectZSet
	ObjectStream
)

// Meta is the decoded persistent header for one key.
type Meta struct {
	ObjectType ObjectType
	Expire     int64 // unix millis, 0 = no TTL
	Version    uint64
	Extend     []byte // type-specific extension, e.g. sub-key count
}

// EncodeMetaKey builds the META column family rawkey.
func EncodeMetaKey(dbid int, key []byte) []byte {
	buf := make([]byte, 4+4+len(key))
	binary.BigEndian.PutUint32(buf[0:4], uint32(dbid))
	binary.BigEndian.PutUint32(buf[4:8], uint32(len(key)))
	copy(buf[8:], key)
	return buf
}

// DecodeMetaKey is the inverse of EncodeMetaKey.
func DecodeMetaKey(raw []byte) (dbid int, key []byte, err error) {
	if len(raw) < 8 {
		return 0, nil, swaperr.ErrDecode
	}
	dbid = int(binary.BigEndian.Uint32(raw[0:4]))
	klen := int(binary.BigEndian.Uint32(raw[4:8]))
	if len(raw)-8 != klen {
		return 0, nil, swaperr.ErrDecode
	}
	key = append([]byte(nil), raw[8:]...)
	return dbid, key, nil
}

// EncodeMetaValue builds the META column family rawval.
func EncodeMetaValue(m Meta) []byte {
	buf := make([]byte, 1+8+8+4+len(m.Extend))
	buf[0] = byte(m.ObjectType)
	binary.BigEndian.PutUint64(buf[1:9], uint64(m.Expire))
	binary.BigEndian.PutUint64(buf[9:17], m.Version)
	binary.BigEndian.PutUint32(buf[17:21], uint32(len(m.Extend)))
	copy(buf[21:], m.Extend)
	return buf
}

// DecodeMetaValue is the inverse of EncodeMetaValue.
func DecodeMetaValue(raw []byte) (Meta, error) {
	if len(raw) < 21 {
		return Meta{}, swaperr.ErrDecode
	}
	m := Meta{
		ObjectType: ObjectType(raw[0]),
		Expire:     int64(binary.BigEndian.Uint64(raw[1:9])),
		Version:    binary.BigEndian.Uint64(raw[9:17]),
	}
	extLen := int(binary.BigEndian.Uint32(raw[17:21]))
	if len(raw)-21 != extLen {
		return Meta{}, swaperr.ErrDecode
	}
	if extLen > 0 {
		m.Extend = append([]byte(nil), raw[21:]...)
	}
	return m, nil
}

// EncodeDataKey builds a DATA column family rawkey for one sub-key.
// version must equal the owning meta record's current version; a
// sub-key whose encoded version is less than the live meta version is
// logically deleted.
func EncodeDataKey(dbid int, key []byte, version uint64, subkey []byte) []byte {
	buf := make([]byte, 4+4+len(key)+8+len(subkey))
	off := 0
	binary.BigEndian.PutUint32(buf[off:off+4], uint32(dbid))
	off += 4
	binary.BigEndian.PutUint32(buf[off:off+4], uint32(len(key)))
	off += 4
	copy(buf[off:], key)
	off += len(key)
	binary.BigEndian.PutUint64(buf[off:off+8], version)
	off += 8
	copy(buf[off:], subkey)
	return buf
}

// EncodeFieldCount encodes a sub-key count for storage in Meta.Extend,
// the representation Hash uses to tell a fully-resident merge from a
// partial one.
func EncodeFieldCount(n int) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, uint32(n))
	return buf
}

// DecodeFieldCount is the inverse of EncodeFieldCount. ok is false if
// extend isn't a 4-byte field count (absent, or another type's Extend).
func DecodeFieldCount(extend []byte) (n int, ok bool) {
	if len(extend) != 4 {
		return 0, false
	}
	return int(binary.BigEndian.Uint32(extend)), true
}

// DecodeDataKey is the inverse of EncodeDataKey.
func DecodeDataKey(raw []byte) (dbid int, key []byte, version uint64, subkey []byte, err error) {
	if len(raw) < 8 {
		return 0, nil, 0, nil, swaperr.ErrDecode
	}
	dbid = int(binary.BigEndian.Uint32(raw[0:4]))
	klen := int(binary.BigEndian.Uint32(raw[4:8]))
	if len(raw) < 8+klen+8 {
		return 0, nil, 0, nil, swaperr.ErrDecode
	}
	key = append([]byte(nil), raw[8:8+klen]...)
	version = binary.BigEndian.Uint64(raw[8+klen : 8+klen+8])
	subkey = append([]byte(nil), raw[8+klen+8:]...)
	return dbid, key, version, subkey, nil
}
