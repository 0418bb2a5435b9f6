package transport

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/calvinalkan/mdcollab/internal/commandline"
	"github.com/calvinalkan/mdcollab/internal/engine"
)

// ErrRejectedUnauthorised means the server rejected the handshake itself
// because the username isn't in its role table at all -- distinct from a
// queued write command later being rejected with the same string, per
// SPEC_FULL.md §5.
var ErrRejectedUnauthorised = errors.New("server rejected connection: unauthorised")

// Client is the client-side half of the FIFO transport: it performs the
// connect handshake, seeds a local replica from the handshake payload,
// and applies every subsequent broadcast to keep that replica in sync.
// Mirrors local_doc/local_log/permission and pipe_listener_thread in
// original_source/source/client.c.
type Client struct {
	c2s *os.File
	s2c *bufio.Reader
	raw *os.File

	Permission string

	mu                sync.Mutex
	doc               *engine.Document
	log               strings.Builder
	lastLoggedVersion uint64
}

// Connect performs the handshake against a server listening at fifoDir:
// write our PID to the connect FIFO, open our per-PID FIFOs, send our
// username, and read back the role/version/length/snapshot reply.
func Connect(fifoDir, username string) (*Client, error) {
	pid := os.Getpid()
	c2sPath, s2cPath := clientFifoPaths(fifoDir, pid)

	connect, err := os.OpenFile(ConnectFifoPath(fifoDir), os.O_WRONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("opening connect fifo: %w", err)
	}

	fmt.Fprintf(connect, "%d\n", pid)
	_ = connect.Close()

	c2s, err := waitOpen(c2sPath, os.O_WRONLY)
	if err != nil {
		return nil, fmt.Errorf("opening c2s: %w", err)
	}

	s2cFile, err := waitOpen(s2cPath, os.O_RDONLY)
	if err != nil {
		_ = c2s.Close()

		return nil, fmt.Errorf("opening s2c: %w", err)
	}

	fmt.Fprintf(c2s, "%s\n", username)

	reader := bufio.NewReader(s2cFile)

	roleLine, err := readLine(reader)
	if err != nil {
		return nil, err
	}

	if roleLine == "Reject UNAUTHORISED" {
		return nil, ErrRejectedUnauthorised
	}

	if _, err := readLine(reader); err != nil { // version, unused at handshake time
		return nil, err
	}

	lenLine, err := readLine(reader)
	if err != nil {
		return nil, err
	}

	docLen, err := strconv.Atoi(lenLine)
	if err != nil {
		return nil, fmt.Errorf("parsing snapshot length %q: %w", lenLine, err)
	}

	buf := make([]byte, docLen)
	if _, err := io.ReadFull(reader, buf); err != nil {
		return nil, fmt.Errorf("reading snapshot payload: %w", err)
	}

	doc := engine.ParseDocument(buf)
	doc.Seed(buf)

	return &Client{
		c2s:        c2s,
		s2c:        reader,
		raw:        s2cFile,
		Permission: roleLine,
		doc:        doc,
	}, nil
}

// waitOpen retries opening path with flag until it exists -- the server
// creates the per-client FIFOs after reading our connect-line PID, so a
// short existence-poll here replaces the original's rendezvous-by-signal
// ordering guarantee.
func waitOpen(path string, flag int) (*os.File, error) {
	var lastErr error

	for range 200 {
		f, err := os.OpenFile(path, flag, 0)
		if err == nil {
			return f, nil
		}

		lastErr = err

		if !os.IsNotExist(err) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("timed out waiting for %s: %w", path, lastErr)
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("reading line: %w", err)
	}

	return strings.TrimRight(line, "\n"), nil
}

// Send writes one raw command line to the server.
func (c *Client) Send(raw string) error {
	_, err := fmt.Fprintf(c.c2s, "%s\n", raw)

	return err
}

// Disconnect sends the DISCONNECT control line and closes both FIFOs.
func (c *Client) Disconnect() error {
	_, err := fmt.Fprint(c.c2s, "DISCONNECT\n")
	_ = c.c2s.Close()
	_ = c.raw.Close()

	return err
}

// Listen reads broadcast blocks off the server FIFO and applies each to
// the local replica until the connection closes, mirroring
// pipe_listener_thread. It blocks; run it in its own goroutine.
func (c *Client) Listen() error {
	for {
		block, err := readBlock(c.s2c)
		if err != nil {
			return err
		}

		c.applyBroadcast(block)
	}
}

// readBlock reads lines up to and including the END\n terminator.
func readBlock(r *bufio.Reader) (string, error) {
	var b strings.Builder

	for {
		line, err := r.ReadString('\n')
		if line != "" {
			b.WriteString(line)
		}

		if err != nil {
			return "", fmt.Errorf("reading broadcast block: %w", err)
		}

		if line == "END\n" {
			return b.String(), nil
		}
	}
}

// applyBroadcast parses one VERSION/EDIT.../END block, appends it to the
// local log if its version is new, and replays every SUCCESS command
// against the local replica via the same ApplyTick the server used --
// since the set of successful commands and their order fully determine
// the resulting document, replaying just that subset reproduces the
// server's state exactly. Mirrors apply_broadcast in
// original_source/source/ipc_client_helpers.c.
func (c *Client) applyBroadcast(block string) {
	lines := strings.Split(strings.TrimSuffix(block, "\n"), "\n")
	if len(lines) == 0 {
		return
	}

	var version uint64

	_, _ = fmt.Sscanf(lines[0], "VERSION %d", &version)

	c.mu.Lock()
	defer c.mu.Unlock()

	if version > c.lastLoggedVersion {
		c.log.WriteString(block)
		c.lastLoggedVersion = version
	}

	var successful []engine.Command

	for _, line := range lines[1:] {
		if !strings.HasPrefix(line, "EDIT ") {
			continue
		}

		if !strings.HasSuffix(line, " SUCCESS") {
			continue
		}

		rest := strings.TrimSuffix(strings.TrimPrefix(line, "EDIT "), " SUCCESS")

		_, raw, ok := strings.Cut(rest, " ")
		if !ok {
			continue
		}

		cmd, err := commandline.Parse(raw)
		if err != nil {
			continue
		}

		cmd.Role = engine.RoleWrite
		successful = append(successful, cmd)
	}

	if len(successful) > 0 {
		c.doc.ApplyTick(successful)
	}
}

// Doc returns the local replica under its own lock for the duration of
// fn, for a DOC?-style client-local command.
func (c *Client) Doc(fn func(*engine.Document)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c.doc)
}

// Log returns the locally accumulated broadcast log, for LOG?.
func (c *Client) Log() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.log.String()
}
