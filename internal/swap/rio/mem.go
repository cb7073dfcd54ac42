package rio

import (
	"bytes"
	"sort"
)

// memEngine is a pure-Go Engine used by unit tests and by any caller
// that wants to exercise the swap pipeline without linking cgo/RocksDB.
type memEngine struct {
	cf [2]map[string][]byte
}

// NewMemEngine returns an in-memory Engine. Keys are compared as raw
// bytes, matching RocksDB's default bytewise comparator.
func NewMemEngine() Engine {
	return &memEngine{cf: [2]map[string][]byte{
		CFMeta: make(map[string][]byte),
		CFData: make(map[string][]byte),
	}}
}

func (e *memEngine) Get(cf ColumnFamily, key []byte) ([]byte, bool, error) {
	v, ok := e.cf[cf][string(key)]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (e *memEngine) Put(cf ColumnFamily, key, val []byte) error {
	e.cf[cf][string(key)] = append([]byte(nil), val...)
	return nil
}

func (e *memEngine) Del(cf ColumnFamily, key []byte) error {
	delete(e.cf[cf], string(key))
	return nil
}

func (e *memEngine) MultiGet(cf ColumnFamily, keys [][]byte) ([]KV, error) {
	out := make([]KV, len(keys))
	for i, k := range keys {
		v, ok := e.cf[cf][string(k)]
		out[i] = KV{CF: cf, Key: k}
		if ok {
			out[i].Val = append([]byte(nil), v...)
		}
	}
	return out, nil
}

func (e *memEngine) Write(batch *WriteBatch) error {
	for _, op := range batch.Ops {
		switch op.Kind {
		case OpPut:
			e.cf[op.CF][string(op.Key)] = append([]byte(nil), op.Val...)
		case OpDel:
			delete(e.cf[op.CF], string(op.Key))
		}
	}
	return nil
}

func (e *memEngine) Iterate(cf ColumnFamily, lo, hi []byte, limit int) ([]KV, []byte, error) {
	keys := make([]string, 0, len(e.cf[cf]))
	for k := range e.cf[cf] {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var items []KV
	var next []byte
	for _, k := range keys {
		kb := []byte(k)
		if lo != nil && bytes.Compare(kb, lo) < 0 {
			continue
		}
		if hi != nil && bytes.Compare(kb, hi) >= 0 {
			break
		}
		if limit > 0 && len(items) == limit {
			next = kb
			break
		}
		items = append(items, KV{CF: cf, Key: kb, Val: append([]byte(nil), e.cf[cf][k]...)})
	}
	return items, next, nil
}

func (e *memEngine) Close() {}
