// Package persist handles the one piece of durability spec.md's core
// keeps: writing the document snapshot to a plain-text file on clean
// shutdown, and reloading it (parsed back into a Document, see
// engine.ParseDocument) when a fresh daemon starts up and finds one.
// Everything beyond the flat snapshot file -- an on-disk command log,
// a database, incremental journaling -- is out of scope per spec.md
// §1's Non-goals ("persistence beyond the plain-text snapshot written
// on clean shutdown").
package persist

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/natefinch/atomic"

	"github.com/calvinalkan/mdcollab/internal/engine"
)

// ErrSnapshotRead means doc.md exists but could not be read.
var ErrSnapshotRead = errors.New("cannot read snapshot file")

// WriteSnapshot atomically writes data to path (temp file + rename),
// the same pattern the teacher's ticket.go uses via atomic.WriteFile for
// every ticket-file mutation, here applied to the single shared
// document snapshot instead of one file per ticket.
func WriteSnapshot(path string, data []byte) error {
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("writing snapshot %s: %w", path, err)
	}

	return nil
}

// LoadDocument reads path (if present) and rebuilds a Document from it
// via engine.ParseDocument, for the case where mdserverd restarts and
// finds a prior clean-shutdown snapshot. A missing file is not an
// error: the daemon just starts from an empty document, matching
// engine.NewDocument's zero state.
func LoadDocument(path string) (*engine.Document, error) {
	data, err := os.ReadFile(path) //nolint:gosec // operator-configured path
	if err != nil {
		if os.IsNotExist(err) {
			return engine.NewDocument(), nil
		}

		return nil, fmt.Errorf("%w: %s: %w", ErrSnapshotRead, path, err)
	}

	doc := engine.ParseDocument(data)
	doc.Seed(data)

	return doc, nil
}
