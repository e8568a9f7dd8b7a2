package testutil

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
)

var (
	logFile   = ""
	logLevel  = "info"
	logStderr = false
)

func init() {
	flag.StringVar(&logFile, "log-file", logFile, "`file` to use for logging")
	flag.StringVar(&logLevel, "log-level", logLevel,
		"log level: trace, debug, info, warn, error, fatal, or panic")
	flag.BoolVar(&logStderr, "log-stderr", logStderr, "log to standard error")
	flag.BoolVar(&logStderr, "s", logStderr, "log to standard error")
}

// SetupLogger returns a logger for engines under test. Unless -log-stderr is
// given, output goes to file, or to the file named by -log-file.
func SetupLogger(file string) *log.Logger {
	logger := log.New()
	if !logStderr {
		if logFile != "" {
			file = logFile
		}

		err := os.MkdirAll(filepath.Dir(file), 0755)
		if err != nil {
			panic(err)
		}
		w, err := os.OpenFile(file, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
		if err != nil {
			panic(err)
		}
		fmt.Fprintln(w)
		logger.SetOutput(w)
	}

	ll, err := log.ParseLevel(logLevel)
	if err != nil {
		panic(err)
	}
	logger.SetLevel(ll)

	logger.WithField("pid", os.Getpid()).Info("tests starting")
	return logger
}
