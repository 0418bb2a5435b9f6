package transport

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/calvinalkan/mdcollab/internal/commandline"
	"github.com/calvinalkan/mdcollab/internal/engine"
	"github.com/calvinalkan/mdcollab/internal/fs"
	"github.com/calvinalkan/mdcollab/internal/persist"
	"github.com/calvinalkan/mdcollab/internal/roles"
)

// instanceLockName is the file a single running mdserverd holds an
// exclusive flock on for as long as it owns fifoDir, guarding against
// two daemons racing to mkfifo the same paths.
const instanceLockName = "mdserverd.lock"

// clientConn is one connected client's server-side bookkeeping: its PID,
// username, and the open write end of its broadcast FIFO. Mirrors
// client_info in original_source/libs/ipc_helpers.h (pid, fd_s2c,
// username, permission).
type clientConn struct {
	pid      int
	username string
	role     engine.Role
	s2c      *os.File
}

// Server drives the tick engine's COLLECTING->BROADCASTING cycle over
// FIFO transport. It owns the three mutex-guarded shared structures
// spec.md §5 names: the document (docMu), the incoming command queue
// (cmdMu), and the connected-client registry (clientsMu), plus the
// broadcast log's own mutex (broadcastLog).
type Server struct {
	fifoDir      string
	docPath      string
	tickInterval time.Duration
	roles        *roles.Table
	filesystem   fs.FS

	docMu sync.Mutex
	doc   *engine.Document

	cmdMu    sync.Mutex
	cmdQueue []engine.Command
	nextSeq  int

	clientsMu sync.Mutex
	clients   map[int]*clientConn

	log broadcastLog
}

// NewServer builds a Server over an already-loaded document (see
// persist.LoadDocument for restart-from-snapshot) and role table.
func NewServer(fifoDir, docPath string, tickInterval time.Duration, tbl *roles.Table, doc *engine.Document) *Server {
	return &Server{
		fifoDir:      fifoDir,
		docPath:      docPath,
		tickInterval: tickInterval,
		roles:        tbl,
		filesystem:   fs.NewReal(),
		doc:          doc,
		clients:      make(map[int]*clientConn),
	}
}

// Run creates the shared FIFO directory and connect FIFO, then drives
// the accept loop and the tick loop until ctx is cancelled. On a clean
// return with no clients still connected, the document snapshot is
// persisted to docPath, matching the teacher's QUIT? handler
// (original_source/source/ipc_server_helpers.c) gated on an empty
// connected_clients list.
//
// Run holds an exclusive [fs.Locker] on instanceLockName for its whole
// lifetime, so a second mdserverd pointed at the same fifoDir fails
// fast instead of racing the first one's mkfifo calls.
func (s *Server) Run(ctx context.Context) error {
	if err := os.MkdirAll(s.fifoDir, 0o755); err != nil {
		return fmt.Errorf("creating fifo dir %s: %w", s.fifoDir, err)
	}

	instanceLock, err := s.filesystem.Lock(filepath.Join(s.fifoDir, instanceLockName))
	if err != nil {
		return fmt.Errorf("another mdserverd already owns %s: %w", s.fifoDir, err)
	}
	defer instanceLock.Close()

	connectPath := ConnectFifoPath(s.fifoDir)
	if err := ensureFifo(connectPath); err != nil {
		return err
	}

	var wg sync.WaitGroup

	wg.Add(1)

	go func() {
		defer wg.Done()
		s.acceptLoop(ctx, connectPath)
	}()

	s.tickLoop(ctx)
	wg.Wait()

	if s.numClients() == 0 {
		s.docMu.Lock()
		snap := append([]byte(nil), s.doc.Snapshot()...)
		s.docMu.Unlock()

		if err := persist.WriteSnapshot(s.docPath, snap); err != nil {
			return err
		}
	}

	return nil
}

func (s *Server) numClients() int {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()

	return len(s.clients)
}

// acceptLoop reads PID lines off the shared connect FIFO and spawns one
// handleClient goroutine per line. It replaces the original signal-based
// rendezvous (see fifo.go's doc comment on connectFifoName) with a
// FIFO-carried PID, the same information a SIGRTMIN siginfo would have
// carried.
func (s *Server) acceptLoop(ctx context.Context, connectPath string) {
	for ctx.Err() == nil {
		fd, err := unix.Open(connectPath, unix.O_RDONLY|unix.O_NONBLOCK, 0)
		if err != nil {
			log.Printf("transport: open connect fifo: %v", err)

			return
		}

		_ = unix.SetNonblock(fd, false)
		f := os.NewFile(uintptr(fd), connectPath)

		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())

			pid, err := strconv.Atoi(line)
			if err != nil || pid <= 0 {
				continue
			}

			go s.handleClient(pid)
		}

		_ = f.Close()
	}
}

// handleClient performs the per-client handshake (role lookup, role/
// version/length/snapshot reply) and then reads command lines off the
// client's c2s FIFO until DISCONNECT or EOF, mirroring client_thread in
// original_source/source/server.c.
func (s *Server) handleClient(pid int) {
	c2sPath, s2cPath := clientFifoPaths(s.fifoDir, pid)

	if err := ensureFifo(c2sPath); err != nil {
		log.Printf("transport: client %d: %v", pid, err)

		return
	}

	if err := ensureFifo(s2cPath); err != nil {
		log.Printf("transport: client %d: %v", pid, err)

		return
	}

	defer func() {
		_ = os.Remove(c2sPath)
		_ = os.Remove(s2cPath)
	}()

	c2s, err := os.OpenFile(c2sPath, os.O_RDONLY, 0)
	if err != nil {
		log.Printf("transport: client %d: opening c2s: %v", pid, err)

		return
	}
	defer c2s.Close()

	s2c, err := os.OpenFile(s2cPath, os.O_WRONLY, 0)
	if err != nil {
		log.Printf("transport: client %d: opening s2c: %v", pid, err)

		return
	}
	defer s2c.Close()

	reader := bufio.NewReader(c2s)

	usernameLine, err := reader.ReadString('\n')
	if err != nil {
		return
	}

	username := strings.TrimSpace(usernameLine)

	role, err := s.roles.RoleOf(username)
	if err != nil {
		fmt.Fprint(s2c, "Reject UNAUTHORISED\n")

		return
	}

	roleStr := "read"
	if role == engine.RoleWrite {
		roleStr = "write"
	}

	fmt.Fprintf(s2c, "%s\n", roleStr)

	s.docMu.Lock()
	version := s.doc.Version()
	snapshot := append([]byte(nil), s.doc.Snapshot()...)
	s.docMu.Unlock()

	fmt.Fprintf(s2c, "%d\n", version)
	fmt.Fprintf(s2c, "%d\n", len(snapshot))
	s2c.Write(snapshot) //nolint:errcheck // best-effort handshake payload

	conn := &clientConn{pid: pid, username: username, role: role, s2c: s2c}

	s.clientsMu.Lock()
	s.clients[pid] = conn
	s.clientsMu.Unlock()

	defer func() {
		s.clientsMu.Lock()
		delete(s.clients, pid)
		s.clientsMu.Unlock()
	}()

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}

		line = strings.TrimRight(line, "\n")
		if line == "DISCONNECT" {
			return
		}

		s.submit(username, role, line)
	}
}

// submit parses one raw command line and inserts it into the pending
// queue in timestamp order, matching insert_sorted_cmd in
// original_source/source/ipc_server_helpers.c. A line that fails to
// parse becomes an engine.Malformed command, which always resolves to
// engine.StatusMalformed ("REJECT UNKNOWN_ERROR") without touching the
// document.
func (s *Server) submit(username string, role engine.Role, raw string) {
	cmd, err := commandline.Parse(raw)
	if err != nil {
		cmd = engine.Command{Kind: engine.Malformed, Raw: raw}
	}

	cmd.Username = username
	cmd.Role = role

	now := time.Now()
	cmd.Timestamp = engine.Timestamp{Sec: now.Unix(), Usec: int64(now.Nanosecond() / 1000)}

	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()

	cmd.Seq = s.nextSeq
	s.nextSeq++

	i := len(s.cmdQueue)
	s.cmdQueue = append(s.cmdQueue, cmd)

	for i > 0 && cmd.Timestamp.Less(s.cmdQueue[i-1].Timestamp) {
		s.cmdQueue[i], s.cmdQueue[i-1] = s.cmdQueue[i-1], s.cmdQueue[i]
		i--
	}
}

// tickLoop drives one ApplyTick per tickInterval until ctx is
// cancelled, matching the teacher's sleep_ms/apply/broadcast cycle in
// original_source/source/server.c's main loop.
func (s *Server) tickLoop(ctx context.Context) {
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

func (s *Server) tick() {
	s.cmdMu.Lock()
	cmds := s.cmdQueue
	s.cmdQueue = nil
	s.cmdMu.Unlock()

	s.docMu.Lock()
	var report engine.TickReport
	if len(cmds) == 0 {
		report = engine.TickReport{Version: s.doc.Version()}
	} else {
		report = s.doc.ApplyTick(cmds)
	}
	s.docMu.Unlock()

	block := buildBroadcast(report.Version, report.Outcomes)
	s.log.append(block)
	s.broadcast(block)
}

// broadcast writes the current tick's block to every connected client's
// s2c FIFO, matching send_broadcast_to_all_clients.
func (s *Server) broadcast(block string) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()

	for _, c := range s.clients {
		_, _ = c.s2c.WriteString(block)
	}
}

// Log returns the full accumulated broadcast log, for a LOG?-style
// introspection request.
func (s *Server) Log() string {
	return s.log.snapshot()
}

// Doc returns the live document under the document mutex's protection
// for the duration of fn, for a DOC?-style introspection request.
func (s *Server) Doc(fn func(*engine.Document)) {
	s.docMu.Lock()
	defer s.docMu.Unlock()
	fn(s.doc)
}
