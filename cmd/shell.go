package cmd

import (
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/leftmike/kvcore/kv"
	_ "github.com/leftmike/kvcore/kv/badger"
	_ "github.com/leftmike/kvcore/kv/bbolt"
	_ "github.com/leftmike/kvcore/kv/leveldb"
	_ "github.com/leftmike/kvcore/kv/memory"
	"github.com/leftmike/kvcore/kv/metrics"
	_ "github.com/leftmike/kvcore/kv/pebble"
	"github.com/leftmike/kvcore/repl"
)

var (
	shellCmd = &cobra.Command{
		Use:   "shell",
		Short: "Open a store and run commands against it",
		RunE:  shellRun,
	}

	engine      = "memory"
	dataDir     = "kvcore-data"
	metricsAddr = ""

	cmdArgs = []string{}
)

func initStoreFlags(fs *pflag.FlagSet) {
	fs.StringVar(&engine, "engine", engine, "storage `engine` to use")
	cfgVars["engine"] = fs.Lookup("engine")

	fs.StringVar(&dataDir, "data", dataDir, "`directory` containing the store")
	cfgVars["data"] = fs.Lookup("data")
}

func init() {
	fs := shellCmd.Flags()
	initStoreFlags(fs)

	fs.StringVar(&metricsAddr, "metrics-addr", metricsAddr,
		"`address` used to serve prometheus metrics")
	cfgVars["metrics-addr"] = fs.Lookup("metrics-addr")

	fs.StringArrayVar(&cmdArgs, "cmd", cmdArgs, "`command` to execute; multiple allowed")

	kvcoreCmd.AddCommand(shellCmd)
}

func openStore() (kv.DB, error) {
	opts := flgs.Options()
	opts.Logger = log.StandardLogger()

	db, st := kv.Open(engine, dataDir, opts)
	if !st.IsOK() {
		return nil, fmt.Errorf("kvcore: %s", st)
	}

	if metricsAddr != "" {
		var err error
		db, err = metrics.Wrap(db, prometheus.DefaultRegisterer)
		if err != nil {
			return nil, fmt.Errorf("kvcore: %s", err)
		}

		go func() {
			log.WithField("addr", metricsAddr).Info("kvcore: serving metrics")
			err := http.ListenAndServe(metricsAddr, promhttp.Handler())
			log.WithField("addr", metricsAddr).WithError(err).Error("kvcore: metrics")
		}()
	}

	return db, nil
}

func shellRun(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("kvcore: unexpected arguments: %v", args)
	}

	db, err := openStore()
	if err != nil {
		return err
	}

	sh := repl.NewShell(db, flgs.ReadOptions(), flgs.WriteOptions(), os.Stdout)

	var failed int
	if len(cmdArgs) == 0 {
		repl.Interact(sh)
	} else {
		for _, line := range cmdArgs {
			if !sh.Execute(line).IsOK() {
				failed += 1
			}
		}
	}
	sh.Close()

	if st := db.Close(); !st.IsOK() {
		return fmt.Errorf("kvcore: %s", st)
	}
	if failed > 0 {
		return fmt.Errorf("kvcore: %d of %d commands failed", failed, len(cmdArgs))
	}
	return nil
}
