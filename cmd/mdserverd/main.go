// Command mdserverd is the collaborative Markdown document server
// daemon: it loads a role table and (optionally) a persisted snapshot,
// then drives the tick engine over FIFO transport until interrupted.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/calvinalkan/mdcollab/internal/config"
	"github.com/calvinalkan/mdcollab/internal/persist"
	"github.com/calvinalkan/mdcollab/internal/roles"
	"github.com/calvinalkan/mdcollab/internal/transport"
)

func main() {
	os.Exit(run(os.Args, os.Stderr))
}

func run(args []string, errOut io.Writer) int {
	fs, overrides := config.ServerFlagSet()
	if err := fs.Parse(args[1:]); err != nil {
		fmt.Fprintln(errOut, "error:", err)

		return 1
	}

	// An explicit --fifo-dir="" is rejected here, before config.LoadServer
	// ever sees it: mergeServer only overwrites on a non-empty overlay
	// value, so a zero-value empty string is indistinguishable from the
	// flag never having been passed at all. flagSet.Changed catches the
	// distinction the same way internal/cli/run.go's "ticket-dir" check
	// does for its own CLI-flag layer.
	if fs.Changed("fifo-dir") && overrides.FifoDir == "" {
		fmt.Fprintln(errOut, "error:", config.ErrFifoDirEmpty)

		return 1
	}

	workDir, err := os.Getwd()
	if err != nil {
		fmt.Fprintln(errOut, "error:", err)

		return 1
	}

	cfg, err := config.LoadServer(workDir, "", *overrides, os.Environ())
	if err != nil {
		fmt.Fprintln(errOut, "error:", err)

		return 1
	}

	tbl, err := roles.Load(cfg.RoleTablePath)
	if err != nil {
		fmt.Fprintln(errOut, "error:", err)

		return 1
	}

	doc, err := persist.LoadDocument(cfg.DocPath)
	if err != nil {
		fmt.Fprintln(errOut, "error:", err)

		return 1
	}

	fmt.Println("mdserverd PID:", os.Getpid())

	srv := transport.NewServer(
		cfg.FifoDir, cfg.DocPath,
		time.Duration(cfg.TickIntervalMS)*time.Millisecond,
		tbl, doc,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		<-sigCh
		cancel()
	}()

	if err := srv.Run(ctx); err != nil {
		fmt.Fprintln(errOut, "error:", err)

		return 1
	}

	return 0
}
