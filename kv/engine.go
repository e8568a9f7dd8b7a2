package kv

import (
	"os"
	"sort"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/leftmike/kvcore/slice"
	"github.com/leftmike/kvcore/status"
)

type Engine struct {
	Open func(path string, opts Options) (DB, status.Status)

	// Repair is optional.
	Repair func(path string, opts Options) status.Status

	// Persistent engines keep their data in the directory named by path.
	Persistent bool
}

var (
	enginesMutex sync.RWMutex
	engines      = map[string]Engine{}
)

func Register(name string, eng Engine) {
	enginesMutex.Lock()
	defer enginesMutex.Unlock()

	if eng.Open == nil {
		panic("kv: register engine open is nil")
	}
	if _, dup := engines[name]; dup {
		panic("kv: register called twice for engine: " + name)
	}
	engines[name] = eng
}

func lookupEngine(name string) (Engine, bool) {
	enginesMutex.RLock()
	defer enginesMutex.RUnlock()

	eng, ok := engines[name]
	return eng, ok
}

func Engines() []string {
	enginesMutex.RLock()
	defer enginesMutex.RUnlock()

	var ret []string
	for name := range engines {
		ret = append(ret, name)
	}
	sort.Strings(ret)
	return ret
}

func ioError(path string, err error) status.Status {
	return status.IOError(slice.FromString(path), slice.FromString(err.Error()))
}

// dirExists returns true if path is a directory containing at least one entry.
func dirExists(path string) (bool, status.Status) {
	ents, err := os.ReadDir(path)
	if os.IsNotExist(err) {
		return false, status.OK()
	} else if err != nil {
		return false, ioError(path, err)
	}
	return len(ents) > 0, status.OK()
}

func Open(name, path string, opts Options) (DB, status.Status) {
	eng, ok := lookupEngine(name)
	if !ok {
		return nil, status.NotSupported(slice.FromString("kv: engine"), slice.FromString(name))
	}

	if opts.Logger == nil {
		opts.Logger = log.StandardLogger()
	}
	entry := opts.Logger.WithFields(log.Fields{
		"engine": name,
		"path":   path,
	})

	if eng.Persistent {
		exists, st := dirExists(path)
		if !st.IsOK() {
			return nil, st
		}
		if !exists {
			if !opts.CreateIfMissing {
				return nil, status.InvalidArgument(slice.FromString(path),
					slice.FromString("does not exist (create_if_missing is false)"))
			}
			err := os.MkdirAll(path, 0755)
			if err != nil {
				return nil, ioError(path, err)
			}
		} else if opts.ErrorIfExists {
			return nil, status.InvalidArgument(slice.FromString(path),
				slice.FromString("exists (error_if_exists is true)"))
		}
	}

	db, st := eng.Open(path, opts)
	if !st.IsOK() {
		entry.WithField("status", st).Error("kv: open failed")
		return nil, st
	}
	entry.Info("kv: opened")
	return db, st
}

func Repair(name, path string, opts Options) status.Status {
	eng, ok := lookupEngine(name)
	if !ok {
		return status.NotSupported(slice.FromString("kv: engine"), slice.FromString(name))
	}
	if eng.Repair == nil {
		return status.NotSupported(slice.FromString("kv: repair"), slice.FromString(name))
	}
	if opts.Logger == nil {
		opts.Logger = log.StandardLogger()
	}

	st := eng.Repair(path, opts)
	opts.Logger.WithFields(log.Fields{
		"engine": name,
		"path":   path,
		"status": st,
	}).Info("kv: repair")
	return st
}

// Destroy removes the contents of a persistent store. Destroying a store that
// does not exist is not an error.
func Destroy(path string) status.Status {
	err := os.RemoveAll(path)
	if err != nil {
		return ioError(path, err)
	}
	return status.OK()
}
