// Package test contains tests which every kv engine must pass.
package test

import (
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/leftmike/kvcore/kv"
	"github.com/leftmike/kvcore/slice"
	"github.com/leftmike/kvcore/status"
)

// Opener returns an open DB. When fresh is true, the DB must be empty;
// otherwise it must contain whatever was written before the last Close.
type Opener func(t *testing.T, fresh bool) kv.DB

type keyVal struct {
	Key string
	Val string
}

func s(str string) slice.Slice {
	return slice.FromString(str)
}

func makeKey(n int) string {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(n))
	return string(key)
}

func withDB(t *testing.T, open Opener, fn func(db kv.DB)) {
	t.Helper()

	db := open(t, true)
	defer func() {
		st := db.Close()
		if !st.IsOK() {
			t.Errorf("Close() failed with %s", st)
		}
	}()

	fn(db)
}

func put(t *testing.T, db kv.DB, key, val string) {
	t.Helper()

	st := db.Put(kv.WriteOptions{}, s(key), s(val))
	if !st.IsOK() {
		t.Errorf("Put(%q, %q) failed with %s", key, val, st)
	}
}

func del(t *testing.T, db kv.DB, key string) {
	t.Helper()

	st := db.Delete(kv.WriteOptions{}, s(key))
	if !st.IsOK() {
		t.Errorf("Delete(%q) failed with %s", key, st)
	}
}

func getAt(t *testing.T, db kv.DB, ro kv.ReadOptions, key, want string) {
	t.Helper()

	val, st := db.Get(ro, s(key))
	if !st.IsOK() {
		t.Errorf("Get(%q) failed with %s", key, st)
	} else if string(val) != want {
		t.Errorf("Get(%q) got %q want %q", key, val, want)
	}
}

func get(t *testing.T, db kv.DB, key, want string) {
	t.Helper()

	getAt(t, db, kv.DefaultReadOptions(), key, want)
}

func notFoundAt(t *testing.T, db kv.DB, ro kv.ReadOptions, key string) {
	t.Helper()

	val, st := db.Get(ro, s(key))
	if !st.IsNotFound() {
		t.Errorf("Get(%q) got %q and %s want NotFound", key, val, st)
	}
}

func notFound(t *testing.T, db kv.DB, key string) {
	t.Helper()

	notFoundAt(t, db, kv.DefaultReadOptions(), key)
}

func scan(t *testing.T, db kv.DB, ro kv.ReadOptions, start *string) []keyVal {
	t.Helper()

	it := db.NewIterator(ro)
	defer it.Close()

	if start == nil {
		it.SeekToFirst()
	} else {
		it.Seek(s(*start))
	}

	kvs := []keyVal{}
	for ; it.Valid(); it.Next() {
		kvs = append(kvs, keyVal{it.Key().String(), it.Value().String()})
	}
	if st := it.Status(); !st.IsOK() {
		t.Errorf("Iterator.Status() got %s want OK", st)
	}
	return kvs
}

func checkScan(t *testing.T, what string, got, want []keyVal) {
	t.Helper()

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("%s: scan mismatch (-want +got):\n%s", what, diff)
	}
}

func RunDBTest(t *testing.T, open Opener) {
	t.Helper()

	withDB(t, open,
		func(db kv.DB) {
			notFound(t, db, "abc")

			put(t, db, "abc", "one")
			get(t, db, "abc", "one")
			put(t, db, "abc", "two")
			get(t, db, "abc", "two")

			put(t, db, "abcd", "")
			get(t, db, "abcd", "")
			get(t, db, "abc", "two")
			notFound(t, db, "ab")

			del(t, db, "abc")
			notFound(t, db, "abc")
			get(t, db, "abcd", "")

			del(t, db, "never-written")

			bin := string([]byte{0, 0xff, 1, 0})
			put(t, db, bin, string([]byte{0, 0, 0}))
			get(t, db, bin, string([]byte{0, 0, 0}))

			big := make([]byte, 100000)
			for i := range big {
				big[i] = byte(i)
			}
			put(t, db, "big", string(big))
			get(t, db, "big", string(big))

			put(t, db, "mutable", "abc")
			val, st := db.Get(kv.DefaultReadOptions(), s("mutable"))
			if st.IsOK() && len(val) == 3 {
				val[0] = 'X'
				get(t, db, "mutable", "abc")
			}

			key := []byte("borrowed")
			db.Put(kv.WriteOptions{Sync: true}, slice.New(key), s("value"))
			key[0] = 'B'
			get(t, db, "borrowed", "value")
			notFound(t, db, "Borrowed")
		})
}

func RunBatchTest(t *testing.T, open Opener) {
	t.Helper()

	withDB(t, open,
		func(db kv.DB) {
			put(t, db, "a", "1")
			put(t, db, "b", "2")

			var wb kv.WriteBatch
			wb.Put(s("c"), s("3"))
			wb.Delete(s("a"))
			wb.Put(s("d"), s("4"))
			wb.Delete(s("d"))
			wb.Delete(s("e"))
			wb.Put(s("e"), s("5"))
			wb.Put(s("b"), s("22"))
			if wb.Count() != 7 {
				t.Errorf("WriteBatch.Count() got %d want 7", wb.Count())
			}

			st := db.Write(kv.WriteOptions{}, &wb)
			if !st.IsOK() {
				t.Errorf("Write() failed with %s", st)
			}
			checkScan(t, "after batch", scan(t, db, kv.DefaultReadOptions(), nil),
				[]keyVal{{"b", "22"}, {"c", "3"}, {"e", "5"}})

			wb.Clear()
			if wb.Count() != 0 {
				t.Errorf("WriteBatch.Count() after Clear() got %d want 0", wb.Count())
			}
			st = db.Write(kv.WriteOptions{Sync: true}, &wb)
			if !st.IsOK() {
				t.Errorf("Write(empty) failed with %s", st)
			}
			checkScan(t, "after empty batch", scan(t, db, kv.DefaultReadOptions(), nil),
				[]keyVal{{"b", "22"}, {"c", "3"}, {"e", "5"}})

			for n := 0; n < 100; n++ {
				wb.Put(s(makeKey(n)), s(fmt.Sprintf("%d", n)))
			}
			st = db.Write(kv.WriteOptions{}, &wb)
			if !st.IsOK() {
				t.Errorf("Write() failed with %s", st)
			}
			for n := 0; n < 100; n += 7 {
				get(t, db, makeKey(n), fmt.Sprintf("%d", n))
			}
		})
}

func RunIteratorTest(t *testing.T, open Opener) {
	t.Helper()

	withDB(t, open,
		func(db kv.DB) {
			checkScan(t, "empty", scan(t, db, kv.DefaultReadOptions(), nil), []keyVal{})

			for _, k := range []string{"m", "c", "x", "a", "ab", "q"} {
				put(t, db, k, k+k)
			}

			all := []keyVal{{"a", "aa"}, {"ab", "abab"}, {"c", "cc"}, {"m", "mm"},
				{"q", "qq"}, {"x", "xx"}}
			checkScan(t, "all", scan(t, db, kv.DefaultReadOptions(), nil), all)

			cases := []struct {
				seek string
				want []keyVal
			}{
				{"", all},
				{"a", all},
				{"aa", all[1:]},
				{"b", all[2:]},
				{"m", all[3:]},
				{"n", all[4:]},
				{"x", all[5:]},
				{"y", []keyVal{}},
			}
			for _, c := range cases {
				seek := c.seek
				checkScan(t, fmt.Sprintf("Seek(%q)", seek),
					scan(t, db, kv.DefaultReadOptions(), &seek), c.want)
			}

			it := db.NewIterator(kv.DefaultReadOptions())
			it.Seek(s("c"))
			if !it.Valid() || it.Key().String() != "c" {
				t.Errorf("Seek(c) got %v", it.Valid())
			}
			it.SeekToFirst()
			if !it.Valid() || it.Key().String() != "a" || it.Value().String() != "aa" {
				t.Errorf("SeekToFirst() after Seek(c) got %v", it.Valid())
			}
			it.Close()

			it = db.NewIterator(kv.DefaultReadOptions())
			it.SeekToFirst()
			put(t, db, "b", "bb")
			del(t, db, "x")
			var keys []string
			for ; it.Valid(); it.Next() {
				keys = append(keys, it.Key().String())
			}
			it.Close()
			if diff := cmp.Diff([]string{"a", "ab", "c", "m", "q", "x"}, keys); diff != "" {
				t.Errorf("iterator saw later writes (-want +got):\n%s", diff)
			}
		})
}

func RunSnapshotTest(t *testing.T, open Opener) {
	t.Helper()

	withDB(t, open,
		func(db kv.DB) {
			put(t, db, "a", "1")
			put(t, db, "c", "3")

			snap := db.GetSnapshot()
			put(t, db, "a", "11")
			put(t, db, "b", "2")
			del(t, db, "c")

			ro := kv.DefaultReadOptions()
			ro.Snapshot = snap
			getAt(t, db, ro, "a", "1")
			notFoundAt(t, db, ro, "b")
			getAt(t, db, ro, "c", "3")
			checkScan(t, "snapshot", scan(t, db, ro, nil), []keyVal{{"a", "1"}, {"c", "3"}})

			get(t, db, "a", "11")
			get(t, db, "b", "2")
			notFound(t, db, "c")
			checkScan(t, "current", scan(t, db, kv.DefaultReadOptions(), nil),
				[]keyVal{{"a", "11"}, {"b", "2"}})

			snap2 := db.GetSnapshot()
			db.ReleaseSnapshot(snap)

			var wb kv.WriteBatch
			wb.Put(s("d"), s("4"))
			wb.Delete(s("a"))
			st := db.Write(kv.WriteOptions{}, &wb)
			if !st.IsOK() {
				t.Errorf("Write() failed with %s", st)
			}

			ro.Snapshot = snap2
			checkScan(t, "second snapshot", scan(t, db, ro, nil),
				[]keyVal{{"a", "11"}, {"b", "2"}})
			db.ReleaseSnapshot(snap2)
		})
}

func RunPropertyTest(t *testing.T, open Opener, props ...string) {
	t.Helper()

	withDB(t, open,
		func(db kv.DB) {
			for n := 0; n < 200; n++ {
				put(t, db, makeKey(n), fmt.Sprintf("value %d", n))
			}
			for n := 0; n < 200; n += 2 {
				del(t, db, makeKey(n))
			}

			if val, ok := db.GetProperty(s("kvcore.no-such-property")); ok {
				t.Errorf("GetProperty(no-such-property) got %q want false", val)
			}
			for _, prop := range props {
				if _, ok := db.GetProperty(s(prop)); !ok {
					t.Errorf("GetProperty(%q) got false want true", prop)
				}
			}

			begin := s(makeKey(50))
			end := s(makeKey(150))
			db.CompactRange(&begin, &end)
			db.CompactRange(nil, nil)

			for n := 0; n < 200; n++ {
				if n%2 == 0 {
					notFound(t, db, makeKey(n))
				} else {
					get(t, db, makeKey(n), fmt.Sprintf("value %d", n))
				}
			}
		})
}

func RunReopenTest(t *testing.T, open Opener) {
	t.Helper()

	db := open(t, true)
	put(t, db, "durable", "yes")
	put(t, db, "deleted", "no")
	del(t, db, "deleted")
	var wb kv.WriteBatch
	wb.Put(s("batched"), s("yes"))
	st := db.Write(kv.WriteOptions{Sync: true}, &wb)
	if !st.IsOK() {
		t.Errorf("Write() failed with %s", st)
	}
	st = db.Close()
	if !st.IsOK() {
		t.Fatalf("Close() failed with %s", st)
	}

	db = open(t, false)
	get(t, db, "durable", "yes")
	get(t, db, "batched", "yes")
	notFound(t, db, "deleted")
	st = db.Close()
	if !st.IsOK() {
		t.Errorf("Close() failed with %s", st)
	}
}

// RunStatusTest checks that results from the engine fit the status taxonomy.
func RunStatusTest(t *testing.T, open Opener) {
	t.Helper()

	withDB(t, open,
		func(db kv.DB) {
			_, st := db.Get(kv.DefaultReadOptions(), s("missing"))
			if !st.IsNotFound() || st.Err() == nil {
				t.Errorf("Get(missing) got %s want NotFound", st)
			}
			if st.Code() != status.CodeNotFound {
				t.Errorf("Get(missing).Code() got %s want NotFound", st.Code())
			}

			st = db.Put(kv.WriteOptions{}, s("present"), s("v"))
			if st.String() != "OK" {
				t.Errorf("Put() got %q want \"OK\"", st.String())
			}
		})
}

// RunAllTests runs every test except RunReopenTest and RunPropertyTest.
func failedScan(t *testing.T, what string, db kv.DB, ro kv.ReadOptions) {
	t.Helper()

	it := db.NewIterator(ro)
	defer it.Close()

	it.SeekToFirst()
	if it.Valid() {
		t.Errorf("%s: SeekToFirst() got valid iterator", what)
	}
	it.Seek(s("a"))
	if it.Valid() {
		t.Errorf("%s: Seek(a) got valid iterator", what)
	}
	if st := it.Status(); !st.IsIOError() {
		t.Errorf("%s: iterator Status() got %s want IO error", what, st)
	}
}

// RunClosedTest checks that a released snapshot and a closed DB fail reads and
// writes with an IO error rather than looking empty.
func RunClosedTest(t *testing.T, open Opener) {
	t.Helper()

	db := open(t, true)
	put(t, db, "a", "1")

	snap := db.GetSnapshot()
	db.ReleaseSnapshot(snap)
	ro := kv.DefaultReadOptions()
	ro.Snapshot = snap
	if _, st := db.Get(ro, s("a")); !st.IsIOError() {
		t.Errorf("Get(a) with released snapshot got %s want IO error", st)
	}
	failedScan(t, "released snapshot", db, ro)

	st := db.Close()
	if !st.IsOK() {
		t.Fatalf("Close() failed with %s", st)
	}

	wo := kv.WriteOptions{}
	if st := db.Put(wo, s("b"), s("2")); !st.IsIOError() {
		t.Errorf("Put(b) after Close() got %s want IO error", st)
	}
	if st := db.Delete(wo, s("a")); !st.IsIOError() {
		t.Errorf("Delete(a) after Close() got %s want IO error", st)
	}
	var wb kv.WriteBatch
	wb.Put(s("c"), s("3"))
	if st := db.Write(wo, &wb); !st.IsIOError() {
		t.Errorf("Write() after Close() got %s want IO error", st)
	}
	if _, st := db.Get(kv.DefaultReadOptions(), s("a")); !st.IsIOError() {
		t.Errorf("Get(a) after Close() got %s want IO error", st)
	}
	failedScan(t, "closed", db, kv.DefaultReadOptions())

	snap = db.GetSnapshot()
	ro.Snapshot = snap
	if _, st := db.Get(ro, s("a")); !st.IsIOError() {
		t.Errorf("Get(a) with snapshot after Close() got %s want IO error", st)
	}
	failedScan(t, "snapshot after close", db, ro)
	db.ReleaseSnapshot(snap)
}

func RunAllTests(t *testing.T, open Opener) {
	t.Helper()

	RunDBTest(t, open)
	RunBatchTest(t, open)
	RunIteratorTest(t, open)
	RunSnapshotTest(t, open)
	RunStatusTest(t, open)
	RunClosedTest(t, open)
}
