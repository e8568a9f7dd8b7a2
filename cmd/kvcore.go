package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/hashicorp/hcl"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/leftmike/kvcore/flags"
)

var (
	kvcoreCmd = &cobra.Command{
		Use:               "kvcore",
		Short:             "An ordered key/value store shell",
		Long:              "Kvcore opens an ordered key/value store using one of several engines.",
		PersistentPreRunE: kvcorePreRun,
		PersistentPostRun: kvcorePostRun,
		SilenceUsage:      true,
	}

	logFile   = "kvcore.log"
	logLevel  = "info"
	logStderr = false
	logWriter io.WriteCloser

	configFile = "kvcore.hcl"
	noConfig   = false

	cfgVars   = map[string]*pflag.Flag{}
	cfg       = map[string]interface{}{}
	flgs      = flags.Default()
	usedFlags = map[string]struct{}{}
)

func init() {
	log.SetFormatter(&log.TextFormatter{
		DisableLevelTruncation: true,
	})

	fs := kvcoreCmd.PersistentFlags()

	fs.StringVar(&logFile, "log-file", logFile, "`file` to use for logging")
	cfgVars["log-file"] = fs.Lookup("log-file")

	fs.StringVar(&logLevel, "log-level", logLevel,
		"log level: trace, debug, info, warn, error, fatal, or panic")
	cfgVars["log-level"] = fs.Lookup("log-level")

	fs.BoolVarP(&logStderr, "log-stderr", "s", logStderr, "log to standard error")

	fs.StringVar(&configFile, "config-file", configFile, "`file` to load config from")
	fs.BoolVar(&noConfig, "no-config", noConfig, "don't load config file")
}

func Execute() error {
	return kvcoreCmd.Execute()
}

func kvcorePreRun(cmd *cobra.Command, args []string) error {
	cmd.Flags().Visit(
		func(flg *pflag.Flag) {
			usedFlags[flg.Name] = struct{}{}
		})

	if configFile != "" && !noConfig {
		err := loadConfig()
		if err != nil && !(os.IsNotExist(err) && !configFileUsed()) {
			return fmt.Errorf("kvcore: %s", err)
		}
	}

	if !logStderr && logFile != "" {
		var err error
		logWriter, err = os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
		if err != nil {
			logWriter = nil
			return fmt.Errorf("kvcore: %s", err)
		}
		log.SetOutput(logWriter)
	}

	ll, err := log.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("kvcore: %s", err)
	}
	log.SetLevel(ll)

	log.WithField("pid", os.Getpid()).Info("kvcore starting")
	return nil
}

func kvcorePostRun(cmd *cobra.Command, args []string) {
	log.WithField("pid", os.Getpid()).Info("kvcore done")

	if logWriter != nil {
		logWriter.Close()
	}
}

// A missing config file is only an error when it was named explicitly.
func configFileUsed() bool {
	_, ok := usedFlags["config-file"]
	return ok
}

func loadConfig() error {
	b, err := os.ReadFile(configFile)
	if err != nil {
		return err
	}

	err = hcl.Decode(&cfg, string(b))
	if err != nil {
		return err
	}

	for name, val := range cfg {
		if flg, ok := cfgVars[name]; ok {
			if flg == nil {
				continue
			}
			if _, ok := usedFlags[flg.Name]; ok {
				continue
			}
			err := flg.Value.Set(fmt.Sprintf("%v", val))
			if err != nil {
				return fmt.Errorf("%s: %s", name, err)
			}
		} else if f, ok := flags.LookupFlag(name); ok {
			b, ok := val.(bool)
			if !ok {
				return fmt.Errorf("%s: expected boolean value; got %v", name, val)
			}
			flgs.SetFlag(f, b)
		} else {
			return fmt.Errorf("%s is not a config variable", name)
		}
	}

	return nil
}
