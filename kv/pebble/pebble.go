// Package pebble is a kv engine backed by pebble.
package pebble

import (
	"io"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"

	"github.com/leftmike/kvcore/kv"
	"github.com/leftmike/kvcore/slice"
	"github.com/leftmike/kvcore/status"
)

var (
	errClosed   = status.IOError(slice.FromString("pebble"), slice.FromString("db is closed"))
	errSnapshot = status.IOError(slice.FromString("pebble"),
		slice.FromString("snapshot is released or the db is closed"))
)

type pebbleDB struct {
	db     *pebble.DB
	logger *log.Logger

	// pebble panics when a closed DB is used; readers and writers hold the read
	// lock, Close and changes to snaps hold the write lock.
	mutex  sync.RWMutex
	closed bool
	snaps  map[*snapshot]struct{}
}

type snapshot struct {
	kv.SnapshotBase
	snap *pebble.Snapshot
}

type iterator struct {
	it *pebble.Iterator
	st status.Status
}

type batchHandler struct {
	batch *pebble.Batch
	err   error
}

func init() {
	kv.Register("pebble",
		kv.Engine{
			Open:       Open,
			Persistent: true,
		})
}

func toStatus(err error) status.Status {
	if err == pebble.ErrNotFound {
		return status.NotFound(slice.FromString("pebble"), slice.FromString(err.Error()))
	}
	return status.IOError(slice.FromString("pebble"), slice.FromString(err.Error()))
}

func writeOptions(wo kv.WriteOptions) *pebble.WriteOptions {
	if wo.Sync {
		return pebble.Sync
	}
	return pebble.NoSync
}

func Open(path string, opts kv.Options) (kv.DB, status.Status) {
	if opts.Logger == nil {
		opts.Logger = log.StandardLogger()
	}
	db, err := pebble.Open(path, &pebble.Options{Logger: opts.Logger})
	if err != nil {
		return nil, toStatus(err)
	}
	return &pebbleDB{
		db:     db,
		logger: opts.Logger,
		snaps:  map[*snapshot]struct{}{},
	}, status.OK()
}

func (pdb *pebbleDB) Put(wo kv.WriteOptions, key, val slice.Slice) status.Status {
	pdb.mutex.RLock()
	defer pdb.mutex.RUnlock()

	if pdb.closed {
		return errClosed
	}
	err := pdb.db.Set(key.Data(), val.Data(), writeOptions(wo))
	if err != nil {
		return toStatus(err)
	}
	return status.OK()
}

func (pdb *pebbleDB) Delete(wo kv.WriteOptions, key slice.Slice) status.Status {
	pdb.mutex.RLock()
	defer pdb.mutex.RUnlock()

	if pdb.closed {
		return errClosed
	}
	err := pdb.db.Delete(key.Data(), writeOptions(wo))
	if err != nil {
		return toStatus(err)
	}
	return status.OK()
}

func (bh *batchHandler) Put(key, val slice.Slice) {
	if bh.err == nil {
		bh.err = bh.batch.Set(key.Data(), val.Data(), nil)
	}
}

func (bh *batchHandler) Delete(key slice.Slice) {
	if bh.err == nil {
		bh.err = bh.batch.Delete(key.Data(), nil)
	}
}

func (pdb *pebbleDB) Write(wo kv.WriteOptions, b *kv.WriteBatch) status.Status {
	pdb.mutex.RLock()
	defer pdb.mutex.RUnlock()

	if pdb.closed {
		return errClosed
	}
	batch := pdb.db.NewBatch()
	defer batch.Close()

	bh := batchHandler{batch: batch}
	b.Iterate(&bh)
	err := bh.err
	if err == nil {
		err = batch.Commit(writeOptions(wo))
	}
	if err != nil {
		return toStatus(err)
	}
	return status.OK()
}

func (pdb *pebbleDB) Get(ro kv.ReadOptions, key slice.Slice) ([]byte, status.Status) {
	pdb.mutex.RLock()
	defer pdb.mutex.RUnlock()

	if pdb.closed {
		return nil, errClosed
	}

	var val []byte
	var closer io.Closer
	var err error
	if ro.Snapshot != nil {
		snap := ro.Snapshot.(*snapshot).snap
		if snap == nil {
			return nil, errSnapshot
		}
		val, closer, err = snap.Get(key.Data())
	} else {
		val, closer, err = pdb.db.Get(key.Data())
	}
	if err == pebble.ErrNotFound {
		return nil, status.NotFound(key)
	} else if err != nil {
		return nil, toStatus(err)
	}
	defer closer.Close()

	return slice.New(val).Bytes(), status.OK()
}

func (pdb *pebbleDB) NewIterator(ro kv.ReadOptions) kv.Iterator {
	pdb.mutex.RLock()
	defer pdb.mutex.RUnlock()

	if pdb.closed {
		return &iterator{st: errClosed}
	}
	if ro.Snapshot != nil {
		snap := ro.Snapshot.(*snapshot).snap
		if snap == nil {
			return &iterator{st: errSnapshot}
		}
		return &iterator{
			it: snap.NewIter(nil),
		}
	}
	return &iterator{
		it: pdb.db.NewIter(nil),
	}
}

// GetSnapshot of a closed DB returns a snapshot which fails every read.
func (pdb *pebbleDB) GetSnapshot() kv.Snapshot {
	pdb.mutex.Lock()
	defer pdb.mutex.Unlock()

	if pdb.closed {
		return &snapshot{}
	}
	ps := &snapshot{
		snap: pdb.db.NewSnapshot(),
	}
	pdb.snaps[ps] = struct{}{}
	return ps
}

func (pdb *pebbleDB) ReleaseSnapshot(snap kv.Snapshot) {
	ps := snap.(*snapshot)

	pdb.mutex.Lock()
	defer pdb.mutex.Unlock()

	delete(pdb.snaps, ps)

	if ps.snap != nil {
		err := ps.snap.Close()
		if err != nil {
			pdb.logger.WithField("error", err).Warn("pebble: release snapshot")
		}
		ps.snap = nil
	}
}

func (pdb *pebbleDB) GetProperty(prop slice.Slice) (string, bool) {
	pdb.mutex.RLock()
	defer pdb.mutex.RUnlock()

	if pdb.closed {
		return "", false
	}
	switch prop.String() {
	case "pebble.metrics":
		return pdb.db.Metrics().String(), true
	}
	return "", false
}

// bounds returns the first and last keys in the DB.
func (pdb *pebbleDB) bounds() ([]byte, []byte, bool) {
	it := pdb.db.NewIter(nil)
	defer it.Close()

	if !it.First() {
		return nil, nil, false
	}
	first := slice.New(it.Key()).Bytes()
	it.Last()
	return first, slice.New(it.Key()).Bytes(), true
}

func (pdb *pebbleDB) CompactRange(begin, end *slice.Slice) {
	pdb.mutex.RLock()
	defer pdb.mutex.RUnlock()

	if pdb.closed {
		return
	}
	first, last, ok := pdb.bounds()
	if !ok {
		return
	}
	if begin != nil {
		first = begin.Data()
	}
	if end != nil {
		last = end.Data()
	}

	err := pdb.db.Compact(first, last)
	if err != nil {
		pdb.logger.WithFields(log.Fields{
			"begin": first,
			"end":   last,
			"error": err,
		}).Warn("pebble: compact range")
	}
}

// Close releases any snapshots which are still held before closing the DB.
func (pdb *pebbleDB) Close() status.Status {
	var errs error

	pdb.mutex.Lock()
	defer pdb.mutex.Unlock()

	if pdb.closed {
		return errClosed
	}
	pdb.closed = true

	for ps := range pdb.snaps {
		if ps.snap != nil {
			err := ps.snap.Close()
			if err != nil {
				errs = multierror.Append(errs, err)
			}
			ps.snap = nil
		}
	}
	pdb.snaps = map[*snapshot]struct{}{}

	err := pdb.db.Close()
	if err != nil {
		errs = multierror.Append(errs, err)
	}
	if errs != nil {
		return toStatus(errs)
	}
	return status.OK()
}

func (it *iterator) Valid() bool {
	return it.it != nil && it.it.Valid()
}

func (it *iterator) SeekToFirst() {
	if it.it != nil {
		it.it.First()
	}
}

func (it *iterator) Seek(target slice.Slice) {
	if it.it != nil {
		it.it.SeekGE(target.Data())
	}
}

func (it *iterator) Next() {
	if !it.Valid() {
		panic("pebble: iterator: next: not valid")
	}
	it.it.Next()
}

func (it *iterator) Key() slice.Slice {
	return slice.New(it.it.Key())
}

func (it *iterator) Value() slice.Slice {
	return slice.New(it.it.Value())
}

func (it *iterator) Status() status.Status {
	if it.st.IsOK() && it.it != nil {
		if err := it.it.Error(); err != nil {
			it.st = toStatus(err)
		}
	}
	return it.st
}

func (it *iterator) Close() {
	if it.it != nil {
		err := it.it.Close()
		if err != nil && it.st.IsOK() {
			it.st = toStatus(err)
		}
		it.it = nil
	}
}
