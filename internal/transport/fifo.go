// Package transport is the external collaborator spec.md's §1 explicitly
// places outside the document engine's core: named-pipe IPC, the
// connect/handshake rendezvous, client FIFO bookkeeping, and the tick
// driver that turns the engine's TickReport into a broadcast block. It
// depends on internal/engine, internal/commandline and internal/roles
// but none of those depend back on it, matching SPEC_FULL.md §4's layering.
package transport

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// connectFifoName is the single well-known FIFO every client writes its
// PID to when it wants to join. It stands in for the original
// implementation's SIGRTMIN-based rendezvous (original_source/source/server.c's
// handle_sig/client_thread pair): a realtime signal's sender PID has no
// portable Go equivalent without cgo, so a connect FIFO carrying the PID
// as its payload is the idiomatic replacement for the same rendezvous
// step, not a different protocol.
const connectFifoName = "connect"

// ConnectFifoPath returns the path of the shared connect FIFO under dir.
func ConnectFifoPath(dir string) string {
	return filepath.Join(dir, connectFifoName)
}

// clientFifoPaths returns the per-client command (c2s) and broadcast
// (s2c) FIFO paths, named after the client's PID the same way
// original_source/source/server.c's client_thread formats "FIFO_C2S_%d"/
// "FIFO_S2C_%d".
func clientFifoPaths(dir string, pid int) (c2s, s2c string) {
	return filepath.Join(dir, fmt.Sprintf("FIFO_C2S_%d", pid)),
		filepath.Join(dir, fmt.Sprintf("FIFO_S2C_%d", pid))
}

// ensureFifo removes any stale entry at path and creates a fresh FIFO,
// mirroring client_thread's unlink-then-mkfifo pair.
func ensureFifo(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale fifo %s: %w", path, err)
	}

	if err := unix.Mkfifo(path, 0o666); err != nil {
		return fmt.Errorf("mkfifo %s: %w", path, err)
	}

	return nil
}
