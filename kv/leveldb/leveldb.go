// Package leveldb is a kv engine backed by goleveldb.
package leveldb

import (
	log "github.com/sirupsen/logrus"
	"github.com/syndtr/goleveldb/leveldb"
	ldberr "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/leftmike/kvcore/kv"
	"github.com/leftmike/kvcore/slice"
	"github.com/leftmike/kvcore/status"
)

var (
	errSnapshot = status.IOError(slice.FromString("leveldb"),
		slice.FromString("snapshot is released or the db is closed"))
)

type levelDB struct {
	db     *leveldb.DB
	logger *log.Logger
	strict opt.Strict
}

type snapshot struct {
	kv.SnapshotBase
	snap *leveldb.Snapshot
}

type ldbIterator struct {
	it iterator.Iterator
	st status.Status
}

type batchHandler struct {
	batch *leveldb.Batch
}

func init() {
	kv.Register("leveldb",
		kv.Engine{
			Open:       Open,
			Repair:     Repair,
			Persistent: true,
		})
}

func toStatus(err error) status.Status {
	msg := slice.FromString(err.Error())
	if err == leveldb.ErrNotFound {
		return status.NotFound(slice.FromString("leveldb"), msg)
	} else if ldberr.IsCorrupted(err) {
		return status.Corruption(slice.FromString("leveldb"), msg)
	}
	return status.IOError(slice.FromString("leveldb"), msg)
}

func options(opts kv.Options) *opt.Options {
	o := &opt.Options{}
	if opts.ParanoidChecks {
		o.Strict = opt.StrictAll
	}
	return o
}

func Open(path string, opts kv.Options) (kv.DB, status.Status) {
	if opts.Logger == nil {
		opts.Logger = log.StandardLogger()
	}
	o := options(opts)
	db, err := leveldb.OpenFile(path, o)
	if err != nil {
		return nil, toStatus(err)
	}
	return &levelDB{
		db:     db,
		logger: opts.Logger,
		strict: o.Strict,
	}, status.OK()
}

// Repair rebuilds the manifest of the store at path from its table files.
func Repair(path string, opts kv.Options) status.Status {
	db, err := leveldb.RecoverFile(path, options(opts))
	if err != nil {
		return toStatus(err)
	}
	err = db.Close()
	if err != nil {
		return toStatus(err)
	}
	return status.OK()
}

func (ldb *levelDB) readOptions(ro kv.ReadOptions) *opt.ReadOptions {
	o := &opt.ReadOptions{
		DontFillCache: !ro.FillCache,
		Strict:        ldb.strict,
	}
	if ro.VerifyChecksums {
		o.Strict |= opt.StrictBlockChecksum
	}
	return o
}

func (ldb *levelDB) Put(wo kv.WriteOptions, key, val slice.Slice) status.Status {
	err := ldb.db.Put(key.Data(), val.Data(), &opt.WriteOptions{Sync: wo.Sync})
	if err != nil {
		return toStatus(err)
	}
	return status.OK()
}

func (ldb *levelDB) Delete(wo kv.WriteOptions, key slice.Slice) status.Status {
	err := ldb.db.Delete(key.Data(), &opt.WriteOptions{Sync: wo.Sync})
	if err != nil {
		return toStatus(err)
	}
	return status.OK()
}

func (bh batchHandler) Put(key, val slice.Slice) {
	bh.batch.Put(key.Data(), val.Data())
}

func (bh batchHandler) Delete(key slice.Slice) {
	bh.batch.Delete(key.Data())
}

func (ldb *levelDB) Write(wo kv.WriteOptions, b *kv.WriteBatch) status.Status {
	batch := new(leveldb.Batch)
	b.Iterate(batchHandler{batch: batch})
	err := ldb.db.Write(batch, &opt.WriteOptions{Sync: wo.Sync})
	if err != nil {
		return toStatus(err)
	}
	return status.OK()
}

func (ldb *levelDB) Get(ro kv.ReadOptions, key slice.Slice) ([]byte, status.Status) {
	var val []byte
	var err error
	if ro.Snapshot != nil {
		snap := ro.Snapshot.(*snapshot).snap
		if snap == nil {
			return nil, errSnapshot
		}
		val, err = snap.Get(key.Data(), ldb.readOptions(ro))
	} else {
		val, err = ldb.db.Get(key.Data(), ldb.readOptions(ro))
	}
	if err == leveldb.ErrNotFound {
		return nil, status.NotFound(key)
	} else if err != nil {
		return nil, toStatus(err)
	}
	if val == nil {
		val = []byte{}
	}
	return val, status.OK()
}

func (ldb *levelDB) NewIterator(ro kv.ReadOptions) kv.Iterator {
	if ro.Snapshot != nil {
		snap := ro.Snapshot.(*snapshot).snap
		if snap == nil {
			return &ldbIterator{
				it: iterator.NewEmptyIterator(nil),
				st: errSnapshot,
			}
		}
		return &ldbIterator{
			it: snap.NewIterator(nil, ldb.readOptions(ro)),
		}
	}
	return &ldbIterator{
		it: ldb.db.NewIterator(nil, ldb.readOptions(ro)),
	}
}

// GetSnapshot of a closed DB returns a snapshot which fails every read.
func (ldb *levelDB) GetSnapshot() kv.Snapshot {
	snap, err := ldb.db.GetSnapshot()
	if err != nil {
		ldb.logger.WithField("error", err).Warn("leveldb: snapshot")
		return &snapshot{}
	}
	return &snapshot{
		snap: snap,
	}
}

func (ldb *levelDB) ReleaseSnapshot(snap kv.Snapshot) {
	ls := snap.(*snapshot)
	if ls.snap != nil {
		ls.snap.Release()
		ls.snap = nil
	}
}

// GetProperty supports the goleveldb properties, such as leveldb.stats and
// leveldb.num-files-at-level<N>.
func (ldb *levelDB) GetProperty(prop slice.Slice) (string, bool) {
	val, err := ldb.db.GetProperty(prop.String())
	if err != nil {
		return "", false
	}
	return val, true
}

func (ldb *levelDB) CompactRange(begin, end *slice.Slice) {
	var r util.Range
	if begin != nil {
		r.Start = begin.Data()
	}
	if end != nil {
		// Limit is exclusive; extend it so that end itself is compacted.
		r.Limit = append(end.Bytes(), 0)
	}

	err := ldb.db.CompactRange(r)
	if err != nil {
		ldb.logger.WithField("error", err).Warn("leveldb: compact range")
	}
}

func (ldb *levelDB) Close() status.Status {
	err := ldb.db.Close()
	if err != nil {
		return toStatus(err)
	}
	return status.OK()
}

func (it *ldbIterator) Valid() bool {
	return it.it.Valid()
}

func (it *ldbIterator) SeekToFirst() {
	it.it.First()
}

func (it *ldbIterator) Seek(target slice.Slice) {
	it.it.Seek(target.Data())
}

func (it *ldbIterator) Next() {
	if !it.it.Valid() {
		panic("leveldb: iterator: next: not valid")
	}
	it.it.Next()
}

func (it *ldbIterator) Key() slice.Slice {
	return slice.New(it.it.Key())
}

func (it *ldbIterator) Value() slice.Slice {
	return slice.New(it.it.Value())
}

func (it *ldbIterator) Status() status.Status {
	if !it.st.IsOK() {
		return it.st
	}
	if err := it.it.Error(); err != nil {
		return toStatus(err)
	}
	return status.OK()
}

func (it *ldbIterator) Close() {
	it.it.Release()
}
