package flags

import (
	"sort"
	"strings"

	"github.com/leftmike/kvcore/kv"
)

type Flag int

const (
	CreateIfMissing Flag = iota
	ErrorIfExists
	ParanoidChecks
	Sync
	VerifyChecksums
	FillCache
)

type flagDefault struct {
	flag Flag
	def  bool
}

var (
	defaultFlags = map[string]flagDefault{
		"create_if_missing": {CreateIfMissing, true},
		"error_if_exists":   {ErrorIfExists, false},
		"paranoid_checks":   {ParanoidChecks, false},
		"sync":              {Sync, false},
		"verify_checksums":  {VerifyChecksums, false},
		"fill_cache":        {FillCache, true},
	}
)

func LookupFlag(nam string) (Flag, bool) {
	fd, ok := defaultFlags[strings.ToLower(nam)]
	return fd.flag, ok
}

// ListFlags calls fn for each flag in order by name.
func ListFlags(fn func(nam string, f Flag)) {
	var nams []string
	for nam := range defaultFlags {
		nams = append(nams, nam)
	}
	sort.Strings(nams)

	for _, nam := range nams {
		fn(nam, defaultFlags[nam].flag)
	}
}

type Flags []bool

func (flgs Flags) GetFlag(f Flag) bool {
	return flgs[f]
}

func (flgs Flags) SetFlag(f Flag, b bool) {
	flgs[f] = b
}

func Default() Flags {
	flgs := make([]bool, len(defaultFlags))
	for _, fd := range defaultFlags {
		flgs[fd.flag] = fd.def
	}
	return flgs
}

func (flgs Flags) Options() kv.Options {
	return kv.Options{
		CreateIfMissing: flgs[CreateIfMissing],
		ErrorIfExists:   flgs[ErrorIfExists],
		ParanoidChecks:  flgs[ParanoidChecks],
	}
}

func (flgs Flags) ReadOptions() kv.ReadOptions {
	return kv.ReadOptions{
		VerifyChecksums: flgs[VerifyChecksums],
		FillCache:       flgs[FillCache],
	}
}

func (flgs Flags) WriteOptions() kv.WriteOptions {
	return kv.WriteOptions{
		Sync: flgs[Sync],
	}
}
