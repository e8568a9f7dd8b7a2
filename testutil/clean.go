package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// CleanDir removes everything in the directory named by dirname except for
// any directory entries specified by keeps.
func CleanDir(dirname string, keeps []string) error {
	ents, err := os.ReadDir(dirname)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	m := map[string]struct{}{}
	for _, k := range keeps {
		m[k] = struct{}{}
	}

	for _, ent := range ents {
		n := ent.Name()
		if _, found := m[n]; found {
			continue
		}
		err = os.RemoveAll(filepath.Join(dirname, n))
		if err != nil {
			return err
		}
	}
	return nil
}

// DataDir returns the path of a directory named name under testdata. When
// fresh is true, the directory is emptied first.
func DataDir(t *testing.T, name string, fresh bool) string {
	t.Helper()

	dir := filepath.Join("testdata", name)
	if fresh {
		err := CleanDir(dir, nil)
		if err != nil {
			t.Fatal(err)
		}
	}
	return dir
}
