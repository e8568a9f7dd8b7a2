// Package kv defines the interface to an ordered key/value store. Every
// fallible operation returns a status.Status.
package kv

import (
	log "github.com/sirupsen/logrus"

	"github.com/leftmike/kvcore/slice"
	"github.com/leftmike/kvcore/status"
)

type Options struct {
	CreateIfMissing bool
	ErrorIfExists   bool
	ParanoidChecks  bool
	Logger          *log.Logger
}

type ReadOptions struct {
	VerifyChecksums bool
	FillCache       bool

	// Snapshot, if not nil, must have been returned by GetSnapshot of the same DB.
	Snapshot Snapshot
}

type WriteOptions struct {
	Sync bool
}

func DefaultReadOptions() ReadOptions {
	return ReadOptions{FillCache: true}
}

// Snapshot is an immutable view of the state of a DB.
type Snapshot interface {
	snapshot()
}

// SnapshotBase is embedded by the snapshot types of engines.
type SnapshotBase struct{}

func (_ SnapshotBase) snapshot() {}

// Iterator walks the keys of a DB in ascending order. Key and Value remain
// valid until the iterator is moved or closed.
type Iterator interface {
	Valid() bool
	SeekToFirst()
	Seek(target slice.Slice)
	Next()
	Key() slice.Slice
	Value() slice.Slice
	Status() status.Status
	Close()
}

type DB interface {
	Put(wo WriteOptions, key, val slice.Slice) status.Status
	Delete(wo WriteOptions, key slice.Slice) status.Status
	Write(wo WriteOptions, b *WriteBatch) status.Status

	// Get returns a copy of the value for key; if there is no value, the status
	// will be NotFound.
	Get(ro ReadOptions, key slice.Slice) ([]byte, status.Status)

	NewIterator(ro ReadOptions) Iterator

	// GetSnapshot does not fail: the snapshot of a closed DB, like a released
	// snapshot, fails every read with an IO error.
	GetSnapshot() Snapshot
	ReleaseSnapshot(snap Snapshot)

	// GetProperty returns the value of an engine specific property and true, or
	// false if the property is not known.
	GetProperty(prop slice.Slice) (string, bool)

	// CompactRange compacts the keys in [begin, end]; nil means before all keys or
	// after all keys.
	CompactRange(begin, end *slice.Slice)

	Close() status.Status
}
