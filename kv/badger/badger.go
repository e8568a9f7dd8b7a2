// Package badger is a kv engine backed by badger.
package badger

import (
	"fmt"
	"sync"

	"github.com/dgraph-io/badger"
	log "github.com/sirupsen/logrus"

	"github.com/leftmike/kvcore/kv"
	"github.com/leftmike/kvcore/slice"
	"github.com/leftmike/kvcore/status"
)

var (
	errClosed   = status.IOError(slice.FromString("badger"), slice.FromString("db is closed"))
	errSnapshot = status.IOError(slice.FromString("badger"),
		slice.FromString("snapshot is released or the db is closed"))
)

type badgerDB struct {
	db     *badger.DB
	logger *log.Logger

	mutex  sync.RWMutex
	closed bool
	snaps  map[*snapshot]struct{}
}

type snapshot struct {
	kv.SnapshotBase
	tx *badger.Txn
}

type iterator struct {
	tx    *badger.Txn
	ownTx bool
	it    *badger.Iterator
	key   []byte
	val   []byte
	st    status.Status
}

type batchHandler struct {
	tx  *badger.Txn
	err error
}

func init() {
	kv.Register("badger",
		kv.Engine{
			Open:       Open,
			Persistent: true,
		})
}

func toStatus(err error) status.Status {
	switch err {
	case badger.ErrKeyNotFound:
		return status.NotFound(slice.FromString("badger"), slice.FromString(err.Error()))
	case badger.ErrEmptyKey, badger.ErrInvalidKey, badger.ErrTxnTooBig:
		return status.InvalidArgument(slice.FromString("badger"), slice.FromString(err.Error()))
	}
	return status.IOError(slice.FromString("badger"), slice.FromString(err.Error()))
}

func Open(path string, opts kv.Options) (kv.DB, status.Status) {
	if opts.Logger == nil {
		opts.Logger = log.StandardLogger()
	}
	db, err := badger.Open(badger.DefaultOptions(path).WithLogger(opts.Logger))
	if err != nil {
		return nil, toStatus(err)
	}

	return &badgerDB{
		db:     db,
		logger: opts.Logger,
		snaps:  map[*snapshot]struct{}{},
	}, status.OK()
}

func (bdb *badgerDB) update(fn func(tx *badger.Txn) error) status.Status {
	bdb.mutex.RLock()
	defer bdb.mutex.RUnlock()

	if bdb.closed {
		return errClosed
	}
	tx := bdb.db.NewTransaction(true)
	defer tx.Discard()

	err := fn(tx)
	if err == nil {
		err = tx.Commit()
	}
	if err != nil {
		return toStatus(err)
	}
	return status.OK()
}

// Put and the other updates ignore wo.Sync: badger syncs every write unless it
// was opened with SyncWrites turned off.
func (bdb *badgerDB) Put(wo kv.WriteOptions, key, val slice.Slice) status.Status {
	return bdb.update(
		func(tx *badger.Txn) error {
			return tx.Set(key.Bytes(), val.Bytes())
		})
}

func (bdb *badgerDB) Delete(wo kv.WriteOptions, key slice.Slice) status.Status {
	return bdb.update(
		func(tx *badger.Txn) error {
			return tx.Delete(key.Bytes())
		})
}

func (bh *batchHandler) Put(key, val slice.Slice) {
	if bh.err == nil {
		bh.err = bh.tx.Set(key.Bytes(), val.Bytes())
	}
}

func (bh *batchHandler) Delete(key slice.Slice) {
	if bh.err == nil {
		bh.err = bh.tx.Delete(key.Bytes())
	}
}

func (bdb *badgerDB) Write(wo kv.WriteOptions, b *kv.WriteBatch) status.Status {
	return bdb.update(
		func(tx *badger.Txn) error {
			bh := batchHandler{tx: tx}
			b.Iterate(&bh)
			return bh.err
		})
}

// readTx returns the transaction to read from and whether the caller must
// discard it; the caller must hold the read lock.
func (bdb *badgerDB) readTx(ro kv.ReadOptions) (*badger.Txn, bool, status.Status) {
	if bdb.closed {
		return nil, false, errClosed
	}
	if ro.Snapshot != nil {
		tx := ro.Snapshot.(*snapshot).tx
		if tx == nil {
			return nil, false, errSnapshot
		}
		return tx, false, status.OK()
	}
	return bdb.db.NewTransaction(false), true, status.OK()
}

func (bdb *badgerDB) Get(ro kv.ReadOptions, key slice.Slice) ([]byte, status.Status) {
	bdb.mutex.RLock()
	defer bdb.mutex.RUnlock()

	tx, own, st := bdb.readTx(ro)
	if !st.IsOK() {
		return nil, st
	}
	if own {
		defer tx.Discard()
	}

	item, err := tx.Get(key.Data())
	if err == badger.ErrKeyNotFound {
		return nil, status.NotFound(key)
	} else if err != nil {
		return nil, toStatus(err)
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return nil, toStatus(err)
	}
	if val == nil {
		val = []byte{}
	}
	return val, status.OK()
}

func (bdb *badgerDB) NewIterator(ro kv.ReadOptions) kv.Iterator {
	bdb.mutex.RLock()
	defer bdb.mutex.RUnlock()

	tx, own, st := bdb.readTx(ro)
	if !st.IsOK() {
		return &iterator{st: st}
	}
	iopts := badger.DefaultIteratorOptions
	iopts.PrefetchValues = ro.FillCache
	return &iterator{
		tx:    tx,
		ownTx: own,
		it:    tx.NewIterator(iopts),
	}
}

// GetSnapshot of a closed DB returns a snapshot which fails every read.
func (bdb *badgerDB) GetSnapshot() kv.Snapshot {
	bdb.mutex.Lock()
	defer bdb.mutex.Unlock()

	if bdb.closed {
		return &snapshot{}
	}
	bs := &snapshot{
		tx: bdb.db.NewTransaction(false),
	}
	bdb.snaps[bs] = struct{}{}
	return bs
}

func (bdb *badgerDB) ReleaseSnapshot(snap kv.Snapshot) {
	bdb.mutex.Lock()
	defer bdb.mutex.Unlock()

	bs := snap.(*snapshot)
	delete(bdb.snaps, bs)
	if bs.tx != nil {
		bs.tx.Discard()
		bs.tx = nil
	}
}

func (bdb *badgerDB) GetProperty(prop slice.Slice) (string, bool) {
	bdb.mutex.RLock()
	defer bdb.mutex.RUnlock()

	if bdb.closed {
		return "", false
	}
	switch prop.String() {
	case "badger.size":
		lsm, vlog := bdb.db.Size()
		return fmt.Sprintf("lsm: %d\nvlog: %d\n", lsm, vlog), true
	}
	return "", false
}

// CompactRange compacts the whole LSM tree and then collects garbage from the
// value log; badger can not compact a range of keys.
func (bdb *badgerDB) CompactRange(begin, end *slice.Slice) {
	bdb.mutex.RLock()
	defer bdb.mutex.RUnlock()

	if bdb.closed {
		return
	}
	err := bdb.db.Flatten(1)
	if err != nil {
		bdb.logger.WithField("error", err).Warn("badger: flatten failed")
	}
	err = bdb.db.RunValueLogGC(0.5)
	if err != nil && err != badger.ErrNoRewrite {
		bdb.logger.WithField("error", err).Warn("badger: value log gc failed")
	}
}

// Close discards any snapshots which are still held before closing the DB.
func (bdb *badgerDB) Close() status.Status {
	bdb.mutex.Lock()
	defer bdb.mutex.Unlock()

	if bdb.closed {
		return errClosed
	}
	bdb.closed = true

	for bs := range bdb.snaps {
		if bs.tx != nil {
			bs.tx.Discard()
			bs.tx = nil
		}
	}
	bdb.snaps = map[*snapshot]struct{}{}

	err := bdb.db.Close()
	if err != nil {
		return toStatus(err)
	}
	return status.OK()
}

func (it *iterator) load() {
	if it.it.Valid() {
		item := it.it.Item()
		it.key = item.KeyCopy(it.key[:0])
		val, err := item.ValueCopy(it.val[:0])
		if err != nil {
			it.st = toStatus(err)
		}
		it.val = val
	}
}

func (it *iterator) Valid() bool {
	return it.it != nil && it.st.IsOK() && it.it.Valid()
}

func (it *iterator) SeekToFirst() {
	if it.it != nil {
		it.it.Rewind()
		it.load()
	}
}

func (it *iterator) Seek(target slice.Slice) {
	if it.it != nil {
		it.it.Seek(target.Data())
		it.load()
	}
}

func (it *iterator) Next() {
	if !it.Valid() {
		panic("badger: iterator: next: not valid")
	}
	it.it.Next()
	it.load()
}

func (it *iterator) Key() slice.Slice {
	return slice.New(it.key)
}

func (it *iterator) Value() slice.Slice {
	return slice.New(it.val)
}

func (it *iterator) Status() status.Status {
	return it.st
}

func (it *iterator) Close() {
	if it.it != nil {
		it.it.Close()
		it.it = nil
	}
	if it.ownTx && it.tx != nil {
		it.tx.Discard()
	}
	it.tx = nil
}
