// Package metrics wraps a kv.DB and counts the outcome of every fallible
// operation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/leftmike/kvcore/kv"
	"github.com/leftmike/kvcore/slice"
	"github.com/leftmike/kvcore/status"
)

type metricsDB struct {
	db  kv.DB
	ops *prometheus.CounterVec
}

type iterator struct {
	kv.Iterator
	ops *prometheus.CounterVec
}

// Wrap returns a DB which passes every operation to db and counts them in
// kvcore_operations_total, labeled by operation and status code.
func Wrap(db kv.DB, reg prometheus.Registerer) (kv.DB, error) {
	ops := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kvcore",
			Name:      "operations_total",
			Help:      "Number of store operations by operation and status code.",
		},
		[]string{"op", "code"})
	err := reg.Register(ops)
	if err != nil {
		return nil, err
	}

	return &metricsDB{
		db:  db,
		ops: ops,
	}, nil
}

func count(ops *prometheus.CounterVec, op string, st status.Status) status.Status {
	ops.WithLabelValues(op, st.Code().String()).Inc()
	return st
}

func (mdb *metricsDB) Put(wo kv.WriteOptions, key, val slice.Slice) status.Status {
	return count(mdb.ops, "put", mdb.db.Put(wo, key, val))
}

func (mdb *metricsDB) Delete(wo kv.WriteOptions, key slice.Slice) status.Status {
	return count(mdb.ops, "delete", mdb.db.Delete(wo, key))
}

func (mdb *metricsDB) Write(wo kv.WriteOptions, b *kv.WriteBatch) status.Status {
	return count(mdb.ops, "write", mdb.db.Write(wo, b))
}

func (mdb *metricsDB) Get(ro kv.ReadOptions, key slice.Slice) ([]byte, status.Status) {
	val, st := mdb.db.Get(ro, key)
	return val, count(mdb.ops, "get", st)
}

func (mdb *metricsDB) NewIterator(ro kv.ReadOptions) kv.Iterator {
	return &iterator{
		Iterator: mdb.db.NewIterator(ro),
		ops:      mdb.ops,
	}
}

func (mdb *metricsDB) GetSnapshot() kv.Snapshot {
	return mdb.db.GetSnapshot()
}

func (mdb *metricsDB) ReleaseSnapshot(snap kv.Snapshot) {
	mdb.db.ReleaseSnapshot(snap)
}

func (mdb *metricsDB) GetProperty(prop slice.Slice) (string, bool) {
	return mdb.db.GetProperty(prop)
}

func (mdb *metricsDB) CompactRange(begin, end *slice.Slice) {
	mdb.db.CompactRange(begin, end)
}

func (mdb *metricsDB) Close() status.Status {
	return count(mdb.ops, "close", mdb.db.Close())
}

// Close counts the final status of the iterator.
func (it *iterator) Close() {
	count(it.ops, "iterate", it.Iterator.Status())
	it.Iterator.Close()
}
