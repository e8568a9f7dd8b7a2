package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/leftmike/kvcore/flags"
	"github.com/leftmike/kvcore/kv"
)

var (
	repairCmd = &cobra.Command{
		Use:   "repair",
		Short: "Recover as much data as possible from a damaged store",
		RunE:  repairRun,
	}

	destroyCmd = &cobra.Command{
		Use:   "destroy",
		Short: "Remove a store and all of its files",
		RunE:  destroyRun,
	}
)

func init() {
	initStoreFlags(repairCmd.Flags())

	destroyCmd.Flags().StringVar(&dataDir, "data", dataDir, "`directory` containing the store")

	kvcoreCmd.AddCommand(
		&cobra.Command{
			Use:   "engines",
			Short: "List the available storage engines",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Println(strings.Join(kv.Engines(), "\n"))
			},
		},
		&cobra.Command{
			Use:   "options",
			Short: "List the store options and their values",
			Run: func(cmd *cobra.Command, args []string) {
				printOptions(os.Stdout)
			},
		},
		repairCmd,
		destroyCmd)
}

func repairRun(cmd *cobra.Command, args []string) error {
	opts := flgs.Options()
	opts.Logger = log.StandardLogger()

	st := kv.Repair(engine, dataDir, opts)
	fmt.Println(st)
	if !st.IsOK() {
		return fmt.Errorf("kvcore: repair failed")
	}
	return nil
}

func destroyRun(cmd *cobra.Command, args []string) error {
	st := kv.Destroy(dataDir)
	fmt.Println(st)
	if !st.IsOK() {
		return fmt.Errorf("kvcore: destroy failed")
	}
	return nil
}

func printOptions(w io.Writer) {
	flags.ListFlags(
		func(nam string, f flags.Flag) {
			fmt.Fprintf(w, "%s = %t\n", nam, flgs.GetFlag(f))
		})
}
