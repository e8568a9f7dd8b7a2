// Package bbolt is a kv engine which stores keys and values in a single bucket
// of a bbolt database.
package bbolt

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"

	"go.etcd.io/bbolt"

	"github.com/leftmike/kvcore/kv"
	"github.com/leftmike/kvcore/slice"
	"github.com/leftmike/kvcore/status"
)

const (
	dbFile = "kvcore.bbolt"

	// Large enough that snapshots held by the writing goroutine never block a
	// remap of the file.
	initialMmapSize = 1 << 28
)

var (
	kvBucket = []byte("kvcore")

	errSnapshot = errors.New("snapshot is released or the db is closed")
)

type bboltDB struct {
	db *bbolt.DB
}

type snapshot struct {
	kv.SnapshotBase
	tx *bbolt.Tx
}

type iterator struct {
	tx    *bbolt.Tx
	ownTx bool
	cr    *bbolt.Cursor
	key   []byte
	val   []byte
	st    status.Status
}

type batchHandler struct {
	bkt *bbolt.Bucket
	err error
}

func init() {
	kv.Register("bbolt",
		kv.Engine{
			Open:       Open,
			Persistent: true,
		})
}

func toStatus(err error) status.Status {
	if err == bbolt.ErrKeyRequired || err == bbolt.ErrKeyTooLarge ||
		err == bbolt.ErrValueTooLarge {

		return status.InvalidArgument(slice.FromString("bbolt"), slice.FromString(err.Error()))
	} else if err == bbolt.ErrInvalid || err == bbolt.ErrChecksum || err == bbolt.ErrVersionMismatch {
		return status.Corruption(slice.FromString("bbolt"), slice.FromString(err.Error()))
	}
	return status.IOError(slice.FromString("bbolt"), slice.FromString(err.Error()))
}

func Open(path string, opts kv.Options) (kv.DB, status.Status) {
	db, err := bbolt.Open(filepath.Join(path, dbFile), 0644,
		&bbolt.Options{
			InitialMmapSize: initialMmapSize,
		})
	if err != nil {
		return nil, toStatus(err)
	}

	err = db.Update(
		func(tx *bbolt.Tx) error {
			_, err := tx.CreateBucketIfNotExists(kvBucket)
			return err
		})
	if err != nil {
		db.Close()
		return nil, toStatus(err)
	}

	if opts.ParanoidChecks {
		err = db.View(
			func(tx *bbolt.Tx) error {
				var first error
				for err := range tx.Check() {
					if first == nil {
						first = err
					}
				}
				return first
			})
		if err != nil {
			db.Close()
			return nil, status.Corruption(slice.FromString(path), slice.FromString(err.Error()))
		}
	}

	return &bboltDB{
		db: db,
	}, status.OK()
}

func bucket(tx *bbolt.Tx) (*bbolt.Bucket, error) {
	bkt := tx.Bucket(kvBucket)
	if bkt == nil {
		return nil, errors.New("missing kvcore bucket")
	}
	return bkt, nil
}

func (bdb *bboltDB) update(wo kv.WriteOptions, fn func(bkt *bbolt.Bucket) error) status.Status {
	tx, err := bdb.db.Begin(true)
	if err != nil {
		return toStatus(err)
	}
	bkt, err := bucket(tx)
	if err == nil {
		err = fn(bkt)
	}
	if err != nil {
		tx.Rollback()
		return toStatus(err)
	}

	// NoSync is only read when committing.
	bdb.db.NoSync = !wo.Sync
	err = tx.Commit()
	if err != nil {
		return toStatus(err)
	}
	return status.OK()
}

func (bdb *bboltDB) Put(wo kv.WriteOptions, key, val slice.Slice) status.Status {
	return bdb.update(wo,
		func(bkt *bbolt.Bucket) error {
			return bkt.Put(key.Bytes(), val.Bytes())
		})
}

func (bdb *bboltDB) Delete(wo kv.WriteOptions, key slice.Slice) status.Status {
	if key.Empty() {
		return toStatus(bbolt.ErrKeyRequired)
	}
	return bdb.update(wo,
		func(bkt *bbolt.Bucket) error {
			return bkt.Delete(key.Data())
		})
}

func (bh *batchHandler) Put(key, val slice.Slice) {
	if bh.err == nil {
		bh.err = bh.bkt.Put(key.Bytes(), val.Bytes())
	}
}

func (bh *batchHandler) Delete(key slice.Slice) {
	if bh.err == nil {
		if key.Empty() {
			bh.err = bbolt.ErrKeyRequired
		} else {
			bh.err = bh.bkt.Delete(key.Data())
		}
	}
}

func (bdb *bboltDB) Write(wo kv.WriteOptions, b *kv.WriteBatch) status.Status {
	return bdb.update(wo,
		func(bkt *bbolt.Bucket) error {
			bh := batchHandler{bkt: bkt}
			b.Iterate(&bh)
			return bh.err
		})
}

// readTx returns the transaction to read from and whether the caller must roll
// it back.
func (bdb *bboltDB) readTx(ro kv.ReadOptions) (*bbolt.Tx, bool, error) {
	if ro.Snapshot != nil {
		tx := ro.Snapshot.(*snapshot).tx
		if tx == nil {
			return nil, false, errSnapshot
		}
		return tx, false, nil
	}
	tx, err := bdb.db.Begin(false)
	if err != nil {
		return nil, false, err
	}
	return tx, true, nil
}

func (bdb *bboltDB) Get(ro kv.ReadOptions, key slice.Slice) ([]byte, status.Status) {
	tx, own, err := bdb.readTx(ro)
	if err != nil {
		return nil, toStatus(err)
	}
	if own {
		defer tx.Rollback()
	}

	bkt, err := bucket(tx)
	if err != nil {
		return nil, toStatus(err)
	}

	// Bucket.Get can not tell a missing key from an empty value.
	k, v := bkt.Cursor().Seek(key.Data())
	if k == nil || !bytes.Equal(k, key.Data()) {
		return nil, status.NotFound(key)
	}
	return slice.New(v).Bytes(), status.OK()
}

func (bdb *bboltDB) NewIterator(ro kv.ReadOptions) kv.Iterator {
	tx, own, err := bdb.readTx(ro)
	if err != nil {
		return &iterator{st: toStatus(err)}
	}
	bkt, err := bucket(tx)
	if err != nil {
		if own {
			tx.Rollback()
		}
		return &iterator{st: toStatus(err)}
	}

	return &iterator{
		tx:    tx,
		ownTx: own,
		cr:    bkt.Cursor(),
	}
}

// GetSnapshot of a closed DB returns a snapshot which fails every read.
func (bdb *bboltDB) GetSnapshot() kv.Snapshot {
	tx, err := bdb.db.Begin(false)
	if err != nil {
		return &snapshot{}
	}
	return &snapshot{
		tx: tx,
	}
}

func (bdb *bboltDB) ReleaseSnapshot(snap kv.Snapshot) {
	bs := snap.(*snapshot)
	if bs.tx != nil {
		bs.tx.Rollback()
		bs.tx = nil
	}
}

func (bdb *bboltDB) GetProperty(prop slice.Slice) (string, bool) {
	switch prop.String() {
	case "bbolt.stats":
		st := bdb.db.Stats()
		return fmt.Sprintf("free pages: %d\npending pages: %d\nread txs: %d\nwrite txs: %d\n",
			st.FreePageN, st.PendingPageN, st.TxN, st.TxStats.Write), true
	case "bbolt.num-entries":
		var n int
		err := bdb.db.View(
			func(tx *bbolt.Tx) error {
				bkt, err := bucket(tx)
				if err != nil {
					return err
				}
				n = bkt.Stats().KeyN
				return nil
			})
		if err != nil {
			return "", false
		}
		return fmt.Sprintf("%d", n), true
	}
	return "", false
}

// CompactRange does nothing: bbolt reuses free pages in place.
func (bdb *bboltDB) CompactRange(begin, end *slice.Slice) {}

func (bdb *bboltDB) Close() status.Status {
	err := bdb.db.Close()
	if err != nil {
		return toStatus(err)
	}
	return status.OK()
}

func (it *iterator) Valid() bool {
	return it.key != nil
}

func (it *iterator) SeekToFirst() {
	if it.cr != nil {
		it.key, it.val = it.cr.First()
	}
}

func (it *iterator) Seek(target slice.Slice) {
	if it.cr == nil {
		return
	}
	if target.Empty() {
		it.key, it.val = it.cr.First()
	} else {
		it.key, it.val = it.cr.Seek(target.Data())
	}
}

func (it *iterator) Next() {
	if it.key == nil {
		panic("bbolt: iterator: next: not valid")
	}
	it.key, it.val = it.cr.Next()
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
	if it.ownTx && it.tx != nil {
		it.tx.Rollback()
	}
	it.tx = nil
	it.cr = nil
	it.key = nil
	it.val = nil
}
