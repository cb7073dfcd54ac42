package rio

import (
	"github.com/linxGnu/grocksdb"
	"github.com/swapdb/swapcore/internal/swap/swaperr"
)

// rocksEngine backs Engine with a real RocksDB handle opened against two
// column families, "meta" and "data" (grounded on the grocksdb column
// family API, see _examples/other_examples' rocksdb-kvstore reference).
type rocksEngine struct {
	db *grocksdb.DB
	cf [2]*grocksdb.ColumnFamilyHandle

	wo *grocksdb.WriteOptions
	ro *grocksdb.ReadOptions
}

// ColumnFamilyNames is the fixed CF layout every swapcored data
// directory is opened with, in the order OpenDbColumnFamilies expects.
var ColumnFamilyNames = []string{"default", "meta", "data"}

// OpenRocksEngine opens dir with the meta/data column families,
// creating them if this is a fresh data directory.
func OpenRocksEngine(dir string) (Engine, error) {
	opts := grocksdb.NewDefaultOptions()
	opts.SetCreateIfMissing(true)
	opts.SetCreateIfMissingColumnFamilies(true)

	cfOpts := make([]*grocksdb.Options, len(ColumnFamilyNames))
	for i := range cfOpts {
		cfOpts[i] = grocksdb.NewDefaultOptions()
	}

	db, handles, err := grocksdb.OpenDbColumnFamilies(opts, dir, ColumnFamilyNames, cfOpts)
	if err != nil {
		return nil, swaperr.ErrSetup.WrapMsg(err.Error())
	}

	wo := grocksdb.NewDefaultWriteOptions()
	ro := grocksdb.NewDefaultReadOptions()

	return &rocksEngine{
		db: db,
		cf: [2]*grocksdb.ColumnFamilyHandle{
			CFMeta: handles[1],
			CFData: handles[2],
		},
		wo: wo,
		ro: ro,
	}, nil
}

func (e *rocksEngine) Get(cf ColumnFamily, key []byte) ([]byte, bool, error) {
	slice, err := e.db.GetCF(e.ro, e.cf[cf], key)
	if err != nil {
		return nil, false, err
	}
	defer slice.Free()
	if slice.Size() == 0 {
		return nil, false, nil
	}
	return append([]byte(nil), slice.Data()...), true, nil
}

func (e *rocksEngine) Put(cf ColumnFamily, key, val []byte) error {
	return e.db.PutCF(e.wo, e.cf[cf], key, val)
}

func (e *rocksEngine) Del(cf ColumnFamily, key []byte) error {
	return e.db.DeleteCF(e.wo, e.cf[cf], key)
}

func (e *rocksEngine) MultiGet(cf ColumnFamily, keys [][]byte) ([]KV, error) {
	slices, err := e.db.MultiGetCF(e.ro, e.cf[cf], keys...)
	if err != nil {
		return nil, err
	}
	defer slices.Destroy()

	out := make([]KV, len(keys))
	for i, k := range keys {
		out[i] = KV{CF: cf, Key: k}
		if slices[i].Size() > 0 {
			out[i].Val = append([]byte(nil), slices[i].Data()...)
		}
	}
	return out, nil
}

func (e *rocksEngine) Write(batch *WriteBatch) error {
	wb := grocksdb.NewWriteBatch()
	defer wb.Destroy()
	for _, op := range batch.Ops {
		switch op.Kind {
		case OpPut:
			wb.PutCF(e.cf[op.CF], op.Key, op.Val)
		case OpDel:
			wb.DeleteCF(e.cf[op.CF], op.Key)
		}
	}
	return e.db.Write(e.wo, wb)
}

func (e *rocksEngine) Iterate(cf ColumnFamily, lo, hi []byte, limit int) ([]KV, []byte, error) {
	it := e.db.NewIteratorCF(e.ro, e.cf[cf])
	defer it.Close()

	var items []KV
	var next []byte
	for it.Seek(lo); it.Valid(); it.Next() {
		k := it.Key()
		key := append([]byte(nil), k.Data()...)
		k.Free()
		if hi != nil && compareBytes(key, hi) >= 0 {
			break
		}
		if limit > 0 && len(items) == limit {
			next = key
			break
		}
		v := it.Value()
		items = append(items, KV{CF: cf, Key: key, Val: append([]byte(nil), v.Data()...)})
		v.Free()
	}
	if err := it.Err(); err != nil {
		return nil, nil, err
	}
	return items, next, nil
}

func (e *rocksEngine) Close() {
	e.wo.Destroy()
	e.ro.Destroy()
	e.db.Close()
}

func compareBytes(a, b []byte) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}
