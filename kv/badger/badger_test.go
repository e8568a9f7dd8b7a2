package badger_test

import (
	"path/filepath"
	"testing"

	log "github.com/sirupsen/logrus"

	"github.com/leftmike/kvcore/kv"
	_ "github.com/leftmike/kvcore/kv/badger"
	"github.com/leftmike/kvcore/kv/test"
	"github.com/leftmike/kvcore/slice"
	"github.com/leftmike/kvcore/testutil"
)

var logger *log.Logger

func openBadger(t *testing.T, fresh bool) kv.DB {
	t.Helper()

	if logger == nil {
		logger = testutil.SetupLogger(filepath.Join("testdata", "badger_test.log"))
	}
	db, st := kv.Open("badger", testutil.DataDir(t, "badger", fresh),
		kv.Options{CreateIfMissing: true, Logger: logger})
	if !st.IsOK() {
		t.Fatalf("Open(badger) failed with %s", st)
	}
	return db
}

func TestBadger(t *testing.T) {
	test.RunAllTests(t, openBadger)
	test.RunPropertyTest(t, openBadger, "badger.size")
	test.RunReopenTest(t, openBadger)
}

func TestEmptyKey(t *testing.T) {
	db := openBadger(t, true)
	defer db.Close()

	st := db.Put(kv.WriteOptions{}, slice.Slice{}, slice.FromString("v"))
	if !st.IsInvalidArgument() {
		t.Errorf("Put(empty key) got %s want InvalidArgument", st)
	}
	_, st = db.Get(kv.DefaultReadOptions(), slice.Slice{})
	if !st.IsInvalidArgument() {
		t.Errorf("Get(empty key) got %s want InvalidArgument", st)
	}

	var wb kv.WriteBatch
	wb.Put(slice.FromString("k"), slice.FromString("v"))
	wb.Delete(slice.Slice{})
	st = db.Write(kv.WriteOptions{}, &wb)
	if !st.IsInvalidArgument() {
		t.Errorf("Write(empty key) got %s want InvalidArgument", st)
	}
	if _, st = db.Get(kv.DefaultReadOptions(), slice.FromString("k")); !st.IsNotFound() {
		t.Errorf("Write(empty key) was not atomic: Get(k) got %s want NotFound", st)
	}
}
