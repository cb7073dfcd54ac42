// Package rio is the bit-level interface to the persistent KV engine:
// GET/PUT/DEL/MULTIGET/WRITE/ITERATE against the META and DATA column
// families. Engine is satisfied by a RocksDB-backed implementation
// (rocks.go, github.com/linxGnu/grocksdb) and by an in-memory one used
// by tests (mem.go).
package rio

// ColumnFamily names one of the two logical column families every
// rawkey lives in.
type ColumnFamily int

const (
	CFMeta ColumnFamily = iota
	CFData
)

func (cf ColumnFamily) String() string {
	if cf == CFMeta {
		return "meta"
	}
	return "data"
}

// Action is the RocksDB action a swap intention compiles to: the
// vocabulary ctrip_swap_rio.c dispatches against its column family
// handles.
type Action int

const (
	ActionNop Action = iota
	ActionGet
	ActionMultiGet
	ActionWrite
	ActionDel
	ActionIterate
)

// KV is one rawkey/rawval pair. Val is nil for a MultiGet miss.
type KV struct {
	CF  ColumnFamily
	Key []byte
	Val []byte
}

// OpKind distinguishes a WriteBatch entry.
type OpKind int

const (
	OpPut OpKind = iota
	OpDel
)

// Op is one mutation inside a WriteBatch.
type Op struct {
	CF  ColumnFamily
	Kind OpKind
	Key  []byte
	Val  []byte
}

// WriteBatch aggregates PUT/DEL RIOs so they commit atomically. Each
// Op carries its own column family, so one batch may span both.
type WriteBatch struct {
	Ops []Op
}

func (b *WriteBatch) Put(cf ColumnFamily, key, val []byte) {
	b.Ops = append(b.Ops, Op{CF: cf, Kind: OpPut, Key: key, Val: val})
}

func (b *WriteBatch) Del(cf ColumnFamily, key []byte) {
	b.Ops = append(b.Ops, Op{CF: cf, Kind: OpDel, Key: key})
}

func (b *WriteBatch) Len() int { return len(b.Ops) }

// Engine is the abstract persistent KV vocabulary the executor and
// worker pool depend on.
type Engine interface {
	Get(cf ColumnFamily, key []byte) (val []byte, found bool, err error)
	Put(cf ColumnFamily, key, val []byte) error
	Del(cf ColumnFamily, key []byte) error
	// MultiGet returns one KV per requested key, in request order; a
	// missing key comes back with Val == nil, never an error.
	MultiGet(cf ColumnFamily, keys [][]byte) ([]KV, error)
	// Write commits every op in batch atomically.
	Write(batch *WriteBatch) error
	// Iterate scans [lo, hi) within cf in key order, returning at most
	// limit pairs and the raw seek bytes to resume from, or nil when
	// the range is exhausted.
	Iterate(cf ColumnFamily, lo, hi []byte, limit int) (items []KV, nextSeek []byte, err error)
	// Close releases the underlying engine handle.
	Close()
}
