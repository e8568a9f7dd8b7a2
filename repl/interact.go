package repl

import (
	"fmt"
	"io"
	"os"

	"github.com/peterh/liner"
)

const (
	kvcoreHistory = ".kvcore_history"
)

// Interact runs an interactive session on the console until EOF or ^C.
func Interact(sh *Shell) {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)

	if f, err := os.Open(kvcoreHistory); err == nil {
		line.ReadHistory(f)
		f.Close()
	}

	for {
		s, err := line.Prompt("kvcore: ")
		if err == io.EOF || err == liner.ErrPromptAborted {
			break
		} else if err != nil {
			fmt.Fprintf(os.Stderr, "kvcore: %s\n", err)
			break
		}
		line.AppendHistory(s)
		sh.Execute(s)
	}

	if f, err := os.Create(kvcoreHistory); err != nil {
		fmt.Fprintf(os.Stderr, "kvcore: error writing history file, %s: %s\n", kvcoreHistory,
			err)
	} else {
		line.WriteHistory(f)
		f.Close()
	}
}
