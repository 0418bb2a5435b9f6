package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// An explicit --fifo-dir="" must be rejected before mdserverd ever touches
// the role table, the snapshot file, or the FIFO directory -- config.LoadServer's
// own merge would otherwise silently treat it as "flag not passed".
func TestRunRejectsExplicitEmptyFifoDirFlag(t *testing.T) {
	var errOut strings.Builder

	code := run([]string{"mdserverd", "--fifo-dir="}, &errOut)

	require.Equal(t, 1, code)
	require.Contains(t, errOut.String(), "fifo_dir cannot be empty")
}

func TestRunAcceptsOmittedFifoDirFlag(t *testing.T) {
	var errOut strings.Builder

	// No --fifo-dir at all must not trip the same check: the flag set
	// defaults FifoDir to "", indistinguishable from an override by value
	// alone, so the rejection must be gated on flagSet.Changed, not on the
	// value itself. The run still exits non-zero here (no role table in
	// this test's working directory), but not for the empty-fifo-dir reason.
	code := run([]string{"mdserverd", "--tick-interval-ms=50"}, &errOut)

	require.Equal(t, 1, code)
	require.NotContains(t, errOut.String(), "fifo_dir cannot be empty")
}
