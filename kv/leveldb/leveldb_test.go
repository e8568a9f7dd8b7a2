package leveldb_test

import (
	"testing"

	"github.com/leftmike/kvcore/kv"
	_ "github.com/leftmike/kvcore/kv/leveldb"
	"github.com/leftmike/kvcore/kv/test"
	"github.com/leftmike/kvcore/slice"
	"github.com/leftmike/kvcore/testutil"
)

func openLevelDB(t *testing.T, fresh bool) kv.DB {
	t.Helper()

	db, st := kv.Open("leveldb", testutil.DataDir(t, "leveldb", fresh),
		kv.Options{CreateIfMissing: true, ParanoidChecks: true})
	if !st.IsOK() {
		t.Fatalf("Open(leveldb) failed with %s", st)
	}
	return db
}

func TestLevelDB(t *testing.T) {
	test.RunAllTests(t, openLevelDB)
	test.RunPropertyTest(t, openLevelDB, "leveldb.stats", "leveldb.num-files-at-level0")
	test.RunReopenTest(t, openLevelDB)
}

func TestRepair(t *testing.T) {
	db := openLevelDB(t, true)
	st := db.Put(kv.WriteOptions{Sync: true}, slice.FromString("k"), slice.FromString("v"))
	if !st.IsOK() {
		t.Errorf("Put() failed with %s", st)
	}
	db.Close()

	dir := testutil.DataDir(t, "leveldb", false)
	st = kv.Repair("leveldb", dir, kv.Options{})
	if !st.IsOK() {
		t.Fatalf("Repair(leveldb) failed with %s", st)
	}

	db = openLevelDB(t, false)
	defer db.Close()
	val, st := db.Get(kv.DefaultReadOptions(), slice.FromString("k"))
	if !st.IsOK() || string(val) != "v" {
		t.Errorf("Get(k) after Repair() got %q and %s want \"v\"", val, st)
	}
}
