// Command mdclient is the interactive collaborative-editing client: it
// connects to a running mdserverd, keeps a local replica in sync via
// broadcasts, and offers an interactive readline-style prompt (via
// peterh/liner, the same way cmd/sloty's REPL does) for submitting edit
// commands and the client-local DOC?/LOG?/PERM? affordances.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/calvinalkan/mdcollab/internal/config"
	"github.com/calvinalkan/mdcollab/internal/engine"
	"github.com/calvinalkan/mdcollab/internal/transport"
)

func main() {
	os.Exit(run(os.Args, os.Stdout, os.Stderr))
}

func run(args []string, out, errOut io.Writer) int {
	fs, overrides := config.ClientFlagSet()
	if err := fs.Parse(args[1:]); err != nil {
		fmt.Fprintln(errOut, "error:", err)

		return 1
	}

	// See the matching check in cmd/mdserverd for why this can't just be
	// config.LoadClient's own cfg.FifoDir == "" check.
	if fs.Changed("fifo-dir") && overrides.FifoDir == "" {
		fmt.Fprintln(errOut, "error:", config.ErrFifoDirEmpty)

		return 1
	}

	workDir, err := os.Getwd()
	if err != nil {
		fmt.Fprintln(errOut, "error:", err)

		return 1
	}

	cfg, err := config.LoadClient(workDir, "", *overrides, os.Environ())
	if err != nil {
		fmt.Fprintln(errOut, "error:", err)

		return 1
	}

	if cfg.ServerPID == 0 || cfg.Username == "" {
		fmt.Fprintln(errOut, "error: --server-pid and --username are required")

		return 1
	}

	client, err := transport.Connect(cfg.FifoDir, cfg.Username)
	if err != nil {
		fmt.Fprintln(errOut, "error:", err)

		return 1
	}

	go func() {
		if err := client.Listen(); err != nil {
			fmt.Fprintln(errOut, "server connection lost:", err)
			os.Exit(1)
		}
	}()

	return newREPL(client, out).run()
}

// repl is the interactive command loop, mirroring cmd/sloty's REPL
// struct and liner setup.
type repl struct {
	client *transport.Client
	out    io.Writer
	liner  *liner.State
}

func newREPL(client *transport.Client, out io.Writer) *repl {
	return &repl{client: client, out: out}
}

func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".mdclient_history")
}

func (r *repl) run() int {
	r.liner = liner.NewLiner()
	defer r.liner.Close()

	r.liner.SetCtrlCAborts(true)

	if f, err := os.Open(historyFile()); err == nil {
		r.liner.ReadHistory(f) //nolint:errcheck
		f.Close()
	}

	fmt.Fprintf(r.out, "connected as %s (%s)\n", "client", r.client.Permission)

	for {
		line, err := r.liner.Prompt("mdcollab> ")
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				break
			}

			fmt.Fprintln(r.out, "error reading input:", err)

			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		r.liner.AppendHistory(line)

		if r.dispatch(line) {
			break
		}
	}

	r.saveHistory()

	_ = r.client.Disconnect()

	return 0
}

// dispatch handles the client-local affordances (DOC?, LOG?, PERM?,
// DISCONNECT) from client.c's main loop before falling back to sending
// the line to the server verbatim. Returns true when the REPL should
// exit.
func (r *repl) dispatch(line string) bool {
	switch line {
	case "DOC?":
		r.client.Doc(func(doc *engine.Document) {
			r.out.Write(doc.Snapshot()) //nolint:errcheck
		})

		return false
	case "LOG?":
		fmt.Fprint(r.out, r.client.Log())

		return false
	case "PERM?":
		fmt.Fprintln(r.out, r.client.Permission)

		return false
	case "DISCONNECT":
		return true
	}

	if err := r.client.Send(line); err != nil {
		fmt.Fprintln(r.out, "error sending command:", err)
	}

	return false
}

func (r *repl) saveHistory() {
	path := historyFile()
	if path == "" {
		return
	}

	if f, err := os.Create(path); err == nil {
		r.liner.WriteHistory(f) //nolint:errcheck
		f.Close()
	}
}
