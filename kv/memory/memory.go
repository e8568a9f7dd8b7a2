// Package memory is a kv engine which keeps everything in a btree in memory.
package memory

import (
	"bytes"
	"fmt"
	"strconv"
	"sync"

	"github.com/google/btree"

	"github.com/leftmike/kvcore/kv"
	"github.com/leftmike/kvcore/slice"
	"github.com/leftmike/kvcore/status"
)

var (
	errClosed   = status.IOError(slice.FromString("memory"), slice.FromString("db is closed"))
	errSnapshot = status.IOError(slice.FromString("memory"),
		slice.FromString("snapshot is released or the db is closed"))
)

type item struct {
	key []byte
	val []byte
}

func (it item) Less(than btree.Item) bool {
	return bytes.Compare(it.key, than.(item).key) < 0
}

type memDB struct {
	mutex sync.RWMutex
	tree  *btree.BTree
}

type snapshot struct {
	kv.SnapshotBase
	tree *btree.BTree
}

type iterator struct {
	tree  *btree.BTree
	cur   item
	valid bool
	st    status.Status
}

type batchHandler struct {
	tree *btree.BTree
}

func init() {
	kv.Register("memory",
		kv.Engine{
			Open: func(path string, opts kv.Options) (kv.DB, status.Status) {
				return Open(), status.OK()
			},
		})
}

func Open() kv.DB {
	return &memDB{
		tree: btree.New(16),
	}
}

func (mdb *memDB) Put(wo kv.WriteOptions, key, val slice.Slice) status.Status {
	mdb.mutex.Lock()
	defer mdb.mutex.Unlock()

	if mdb.tree == nil {
		return errClosed
	}
	mdb.tree.ReplaceOrInsert(item{key: key.Bytes(), val: val.Bytes()})
	return status.OK()
}

func (mdb *memDB) Delete(wo kv.WriteOptions, key slice.Slice) status.Status {
	mdb.mutex.Lock()
	defer mdb.mutex.Unlock()

	if mdb.tree == nil {
		return errClosed
	}
	mdb.tree.Delete(item{key: key.Data()})
	return status.OK()
}

func (bh batchHandler) Put(key, val slice.Slice) {
	bh.tree.ReplaceOrInsert(item{key: key.Bytes(), val: val.Bytes()})
}

func (bh batchHandler) Delete(key slice.Slice) {
	bh.tree.Delete(item{key: key.Data()})
}

func (mdb *memDB) Write(wo kv.WriteOptions, b *kv.WriteBatch) status.Status {
	mdb.mutex.Lock()
	defer mdb.mutex.Unlock()

	if mdb.tree == nil {
		return errClosed
	}
	b.Iterate(batchHandler{tree: mdb.tree})
	return status.OK()
}

// readTree returns the tree to read from: the snapshot's tree, or a clone of the
// current tree.
func (mdb *memDB) readTree(ro kv.ReadOptions) (*btree.BTree, status.Status) {
	if ro.Snapshot != nil {
		tree := ro.Snapshot.(*snapshot).tree
		if tree == nil {
			return nil, errSnapshot
		}
		return tree, status.OK()
	}

	// Cloning marks the current tree read-only, so it needs the write lock.
	mdb.mutex.Lock()
	defer mdb.mutex.Unlock()

	if mdb.tree == nil {
		return nil, errClosed
	}
	return mdb.tree.Clone(), status.OK()
}

func (mdb *memDB) Get(ro kv.ReadOptions, key slice.Slice) ([]byte, status.Status) {
	var it btree.Item
	if ro.Snapshot != nil {
		tree := ro.Snapshot.(*snapshot).tree
		if tree == nil {
			return nil, errSnapshot
		}
		it = tree.Get(item{key: key.Data()})
	} else {
		mdb.mutex.RLock()
		defer mdb.mutex.RUnlock()

		if mdb.tree == nil {
			return nil, errClosed
		}
		it = mdb.tree.Get(item{key: key.Data()})
	}

	if it == nil {
		return nil, status.NotFound(key)
	}
	return slice.New(it.(item).val).Bytes(), status.OK()
}

func (mdb *memDB) NewIterator(ro kv.ReadOptions) kv.Iterator {
	tree, st := mdb.readTree(ro)
	return &iterator{
		tree: tree,
		st:   st,
	}
}

// GetSnapshot of a closed DB returns a snapshot which fails every read.
func (mdb *memDB) GetSnapshot() kv.Snapshot {
	tree, _ := mdb.readTree(kv.ReadOptions{})
	return &snapshot{
		tree: tree,
	}
}

func (mdb *memDB) ReleaseSnapshot(snap kv.Snapshot) {
	snap.(*snapshot).tree = nil
}

func (mdb *memDB) GetProperty(prop slice.Slice) (string, bool) {
	mdb.mutex.RLock()
	defer mdb.mutex.RUnlock()

	if mdb.tree == nil {
		return "", false
	}

	switch prop.String() {
	case "memory.num-entries":
		return strconv.Itoa(mdb.tree.Len()), true
	}
	return "", false
}

func (mdb *memDB) CompactRange(begin, end *slice.Slice) {}

func (mdb *memDB) Close() status.Status {
	mdb.mutex.Lock()
	defer mdb.mutex.Unlock()

	if mdb.tree == nil {
		return errClosed
	}
	mdb.tree = nil
	return status.OK()
}

func (it *iterator) Valid() bool {
	return it.valid
}

func (it *iterator) SeekToFirst() {
	it.valid = false
	if it.tree == nil {
		return
	}
	it.tree.Ascend(
		func(bi btree.Item) bool {
			it.cur = bi.(item)
			it.valid = true
			return false
		})
}

// seek positions the iterator at the first key >= key, or > key if after is
// true.
func (it *iterator) seek(key []byte, after bool) {
	it.valid = false
	if it.tree == nil {
		return
	}
	it.tree.AscendGreaterOrEqual(item{key: key},
		func(bi btree.Item) bool {
			ki := bi.(item)
			if after && bytes.Equal(ki.key, key) {
				return true
			}
			it.cur = ki
			it.valid = true
			return false
		})
}

func (it *iterator) Seek(target slice.Slice) {
	it.seek(target.Data(), false)
}

func (it *iterator) mustBeValid(op string) {
	if !it.valid {
		panic(fmt.Sprintf("memory: iterator: %s: not valid", op))
	}
}

func (it *iterator) Next() {
	it.mustBeValid("next")
	it.seek(it.cur.key, true)
}

func (it *iterator) Key() slice.Slice {
	it.mustBeValid("key")
	return slice.New(it.cur.key)
}

func (it *iterator) Value() slice.Slice {
	it.mustBeValid("value")
	return slice.New(it.cur.val)
}

func (it *iterator) Status() status.Status {
	return it.st
}

func (it *iterator) Close() {
	it.tree = nil
	it.valid = false
}
