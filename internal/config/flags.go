package config

import (
	"strings"

	flag "github.com/spf13/pflag"
)

// ServerFlagSet builds the daemon's flag set the way the teacher's
// run.go builds its global flag set: ContinueOnError, interspersed args
// disabled, usage silenced (the caller prints its own).
func ServerFlagSet() (*flag.FlagSet, *Server) {
	fs := flag.NewFlagSet("mdserverd", flag.ContinueOnError)
	fs.SetInterspersed(false)
	fs.Usage = func() {}
	fs.SetOutput(&strings.Builder{})

	overrides := &Server{}
	fs.IntVar(&overrides.TickIntervalMS, "tick-interval-ms", 0, "Tick cadence in milliseconds")
	fs.StringVar(&overrides.FifoDir, "fifo-dir", "", "Directory holding client FIFOs")
	fs.StringVar(&overrides.DocPath, "doc-path", "", "Path the snapshot is persisted to on clean shutdown")
	fs.StringVar(&overrides.RoleTablePath, "role-table", "", "Path to the YAML role table")

	return fs, overrides
}

// ClientFlagSet builds the interactive client's flag set.
func ClientFlagSet() (*flag.FlagSet, *Client) {
	fs := flag.NewFlagSet("mdclient", flag.ContinueOnError)
	fs.SetInterspersed(false)
	fs.Usage = func() {}
	fs.SetOutput(&strings.Builder{})

	overrides := &Client{}
	fs.IntVar(&overrides.ServerPID, "server-pid", 0, "PID of the mdserverd process to connect to")
	fs.StringVar(&overrides.Username, "username", "", "Username to authenticate as")
	fs.StringVar(&overrides.FifoDir, "fifo-dir", "", "Directory holding client FIFOs")

	return fs, overrides
}
