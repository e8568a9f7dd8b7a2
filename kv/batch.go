package kv

import (
	"github.com/leftmike/kvcore/slice"
)

type opKind byte

const (
	opPut opKind = iota
	opDelete
)

type batchOp struct {
	kind opKind
	key  []byte
	val  []byte
}

// WriteBatch collects updates to be applied atomically by DB.Write. The batch
// keeps its own copies of keys and values.
type WriteBatch struct {
	ops []batchOp
}

type Handler interface {
	Put(key, val slice.Slice)
	Delete(key slice.Slice)
}

func (wb *WriteBatch) Put(key, val slice.Slice) {
	wb.ops = append(wb.ops, batchOp{kind: opPut, key: key.Bytes(), val: val.Bytes()})
}

func (wb *WriteBatch) Delete(key slice.Slice) {
	wb.ops = append(wb.ops, batchOp{kind: opDelete, key: key.Bytes()})
}

func (wb *WriteBatch) Clear() {
	wb.ops = nil
}

func (wb *WriteBatch) Count() int {
	return len(wb.ops)
}

// Iterate calls h for each update in the order they were added.
func (wb *WriteBatch) Iterate(h Handler) {
	for _, op := range wb.ops {
		switch op.kind {
		case opPut:
			h.Put(slice.New(op.key), slice.New(op.val))
		case opDelete:
			h.Delete(slice.New(op.key))
		}
	}
}
