// Package repl runs line commands against a kv.DB.
package repl

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	log "github.com/sirupsen/logrus"

	"github.com/leftmike/kvcore/kv"
	"github.com/leftmike/kvcore/slice"
	"github.com/leftmike/kvcore/status"
)

type command struct {
	usage string
	fn    func(sh *Shell, args []string) status.Status

	// quiet commands print their own output and only print a status on failure.
	quiet bool
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"put":      {"put <key> <value>", (*Shell).put, false},
		"get":      {"get <key>", (*Shell).get, true},
		"delete":   {"delete <key>", (*Shell).delete, false},
		"batch":    {"batch put <key> <value> | delete <key> ...", (*Shell).batch, false},
		"scan":     {"scan [<start> [<limit>]]", (*Shell).scan, true},
		"snapshot": {"snapshot", (*Shell).snapshot, false},
		"release":  {"release", (*Shell).release, false},
		"property": {"property <name>", (*Shell).property, true},
		"compact":  {"compact [<begin> [<end>]]", (*Shell).compact, false},
		"help":     {"help", (*Shell).help, true},
	}
}

// Shell holds the state of a session: the DB, the options used for reads and
// writes, and the current snapshot, if any.
type Shell struct {
	db   kv.DB
	ro   kv.ReadOptions
	wo   kv.WriteOptions
	snap kv.Snapshot
	w    io.Writer
}

func NewShell(db kv.DB, ro kv.ReadOptions, wo kv.WriteOptions, w io.Writer) *Shell {
	return &Shell{
		db: db,
		ro: ro,
		wo: wo,
		w:  w,
	}
}

// Close releases the current snapshot; it does not close the DB.
func (sh *Shell) Close() {
	if sh.snap != nil {
		sh.db.ReleaseSnapshot(sh.snap)
		sh.snap = nil
	}
}

func (sh *Shell) readOptions() kv.ReadOptions {
	ro := sh.ro
	ro.Snapshot = sh.snap
	return ro
}

func usage(cmd command) status.Status {
	return status.InvalidArgument(slice.FromString("usage"), slice.FromString(cmd.usage))
}

// Execute runs a single line; blank lines and lines starting with # are
// ignored. The returned status is also printed.
func (sh *Shell) Execute(line string) status.Status {
	args := strings.Fields(line)
	if len(args) == 0 || strings.HasPrefix(args[0], "#") {
		return status.OK()
	}

	cmd, ok := commands[strings.ToLower(args[0])]
	var st status.Status
	if !ok {
		st = status.InvalidArgument(slice.FromString("unknown command"),
			slice.FromString(args[0]))
	} else {
		st = cmd.fn(sh, args[1:])
	}

	log.WithFields(log.Fields{
		"command": args[0],
		"status":  st.Code(),
	}).Debug("repl: execute")

	if !st.IsOK() || !cmd.quiet {
		fmt.Fprintln(sh.w, st)
	}
	return st
}

// Repl executes each line read from r until EOF; it returns the number of
// lines which failed.
func Repl(sh *Shell, r io.Reader) int {
	var failed int
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if !sh.Execute(scanner.Text()).IsOK() {
			failed += 1
		}
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintln(sh.w, status.FromError(err))
		failed += 1
	}
	return failed
}

func (sh *Shell) put(args []string) status.Status {
	if len(args) != 2 {
		return usage(commands["put"])
	}
	return sh.db.Put(sh.wo, slice.FromString(args[0]), slice.FromString(args[1]))
}

func (sh *Shell) get(args []string) status.Status {
	if len(args) != 1 {
		return usage(commands["get"])
	}
	val, st := sh.db.Get(sh.readOptions(), slice.FromString(args[0]))
	if st.IsOK() {
		fmt.Fprintln(sh.w, string(val))
	}
	return st
}

func (sh *Shell) delete(args []string) status.Status {
	if len(args) != 1 {
		return usage(commands["delete"])
	}
	return sh.db.Delete(sh.wo, slice.FromString(args[0]))
}

func (sh *Shell) batch(args []string) status.Status {
	var wb kv.WriteBatch
	for len(args) > 0 {
		switch strings.ToLower(args[0]) {
		case "put":
			if len(args) < 3 {
				return usage(commands["batch"])
			}
			wb.Put(slice.FromString(args[1]), slice.FromString(args[2]))
			args = args[3:]
		case "delete":
			if len(args) < 2 {
				return usage(commands["batch"])
			}
			wb.Delete(slice.FromString(args[1]))
			args = args[2:]
		default:
			return usage(commands["batch"])
		}
	}
	if wb.Count() == 0 {
		return usage(commands["batch"])
	}
	return sh.db.Write(sh.wo, &wb)
}

func (sh *Shell) scan(args []string) status.Status {
	if len(args) > 2 {
		return usage(commands["scan"])
	}

	it := sh.db.NewIterator(sh.readOptions())
	defer it.Close()

	if len(args) > 0 {
		it.Seek(slice.FromString(args[0]))
	} else {
		it.SeekToFirst()
	}

	var limit slice.Slice
	if len(args) > 1 {
		limit = slice.FromString(args[1])
	}

	tw := tablewriter.NewWriter(sh.w)
	tw.SetAutoFormatHeaders(false)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	tw.SetHeader([]string{"key", "value"})

	for ; it.Valid(); it.Next() {
		if len(args) > 1 && it.Key().Compare(limit) >= 0 {
			break
		}
		tw.Append([]string{it.Key().String(), it.Value().String()})
	}
	tw.Render()
	fmt.Fprintf(sh.w, "(%d rows)\n", tw.NumLines())

	return it.Status()
}

func (sh *Shell) snapshot(args []string) status.Status {
	if len(args) != 0 {
		return usage(commands["snapshot"])
	}
	if sh.snap != nil {
		sh.db.ReleaseSnapshot(sh.snap)
	}
	sh.snap = sh.db.GetSnapshot()
	return status.OK()
}

func (sh *Shell) release(args []string) status.Status {
	if len(args) != 0 {
		return usage(commands["release"])
	}
	if sh.snap == nil {
		return status.InvalidArgument(slice.FromString("no snapshot"))
	}
	sh.db.ReleaseSnapshot(sh.snap)
	sh.snap = nil
	return status.OK()
}

func (sh *Shell) property(args []string) status.Status {
	if len(args) != 1 {
		return usage(commands["property"])
	}
	val, ok := sh.db.GetProperty(slice.FromString(args[0]))
	if !ok {
		return status.NotFound(slice.FromString("property"), slice.FromString(args[0]))
	}
	fmt.Fprintln(sh.w, val)
	return status.OK()
}

func (sh *Shell) compact(args []string) status.Status {
	if len(args) > 2 {
		return usage(commands["compact"])
	}

	var begin, end *slice.Slice
	if len(args) > 0 {
		s := slice.FromString(args[0])
		begin = &s
	}
	if len(args) > 1 {
		s := slice.FromString(args[1])
		end = &s
	}
	sh.db.CompactRange(begin, end)
	return status.OK()
}

func (sh *Shell) help(args []string) status.Status {
	for _, nam := range []string{"put", "get", "delete", "batch", "scan", "snapshot",
		"release", "property", "compact", "help"} {

		fmt.Fprintln(sh.w, commands[nam].usage)
	}
	return status.OK()
}
