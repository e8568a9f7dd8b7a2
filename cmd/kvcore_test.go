package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/leftmike/kvcore/flags"
)

func TestLoadConfig(t *testing.T) {
	usedFlags = map[string]struct{}{}
	dir := t.TempDir()
	configFile = filepath.Join(dir, "kvcore.hcl")
	defer func() {
		configFile = "kvcore.hcl"
		engine = "memory"
		logLevel = "info"
		flgs = flags.Default()
	}()

	err := os.WriteFile(configFile, []byte(`
engine = "pebble"
log-level = "debug"
sync = true
fill_cache = false
`), 0644)
	if err != nil {
		t.Fatal(err)
	}

	err = loadConfig()
	if err != nil {
		t.Fatalf("loadConfig() failed with %s", err)
	}
	if engine != "pebble" {
		t.Errorf("loadConfig() engine got %s want pebble", engine)
	}
	if logLevel != "debug" {
		t.Errorf("loadConfig() log-level got %s want debug", logLevel)
	}
	if !flgs.GetFlag(flags.Sync) || flgs.GetFlag(flags.FillCache) {
		t.Errorf("loadConfig() flags got %v", flgs)
	}

	for _, cfgData := range []string{
		`no_such_variable = 1`,
		`sync = "yes"`,
		`engine = "pebble`,
		`engine = {`,
	} {
		cfg = map[string]interface{}{}
		err = os.WriteFile(configFile, []byte(cfgData), 0644)
		if err != nil {
			t.Fatal(err)
		}
		if loadConfig() == nil {
			t.Errorf("loadConfig(%q) did not fail", cfgData)
		}
	}
}

func TestShellCommand(t *testing.T) {
	defer func() {
		cmdArgs = []string{}
	}()

	kvcoreCmd.SetArgs([]string{"shell", "--no-config", "-s", "--log-level", "error",
		"--engine", "memory", "--cmd", "put a 1", "--cmd", "get a"})
	err := kvcoreCmd.Execute()
	if err != nil {
		t.Errorf("kvcore shell failed with %s", err)
	}

	cmdArgs = []string{}
	kvcoreCmd.SetArgs([]string{"shell", "--no-config", "-s", "--engine", "memory",
		"--cmd", "get a"})
	err = kvcoreCmd.Execute()
	if err == nil {
		t.Error("kvcore shell with a failing command did not fail")
	}

	cmdArgs = []string{}
	kvcoreCmd.SetArgs([]string{"shell", "--no-config", "-s", "--engine", "no-such-engine",
		"--cmd", "get a"})
	err = kvcoreCmd.Execute()
	if err == nil {
		t.Error("kvcore shell with an unknown engine did not fail")
	}
}

func TestPrintOptions(t *testing.T) {
	defer func() {
		flgs = flags.Default()
	}()

	flgs.SetFlag(flags.Sync, true)
	var b bytes.Buffer
	printOptions(&b)

	want := `create_if_missing = true
error_if_exists = false
fill_cache = true
paranoid_checks = false
sync = true
verify_checksums = false
`
	if b.String() != want {
		t.Errorf("printOptions() got\n%s\nwant\n%s", b.String(), want)
	}
}
