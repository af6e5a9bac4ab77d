// Package ipc implements the control-socket command surface of spec.md
// §6: a Unix domain socket accepting one NUL-terminated, space-separated
// request per connection and replying with a single JSON (or plain text)
// response, grounded line-for-line on the original's handle_conn in
// original_source/src/ipc.rs.
package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/posindexer/posindexer/internal/types"
)

// Handlers is the read surface the control socket dispatches to. The
// witness tree and store implement it; ipc itself never touches either
// directly, mirroring the original's separation between ipc.rs and
// state.rs.
type Handlers interface {
	Account(pk types.PublicKey) (*types.Account, bool)
	BestChain(n int) ([]*types.PrecomputedBlock, error)
	BestLedgerJSON() (string, error)
	LedgerByHash(hash string) (string, bool, error)
	LedgerAtHeight(height uint32) (string, bool, error)
	MaxCanonicalHeight() (uint32, bool)
	Summary(verbose bool) (string, error)
}

// Server serves each accepted connection on its own goroutine and
// dispatches its request to Handlers. Shutdown causes the process to exit(0), matching the
// original's "shutdown" command.
type Server struct {
	socketPath string
	handlers   Handlers
	log        *zap.SugaredLogger
}

// New returns a Server bound to socketPath (not yet listening).
func New(socketPath string, h Handlers, log *zap.SugaredLogger) *Server {
	return &Server{socketPath: socketPath, handlers: h, log: log}
}

// Run listens on the configured Unix domain socket and serves requests
// until the listener is closed.
func (s *Server) Run() error {
	_ = os.Remove(s.socketPath)
	if err := os.MkdirAll(filepath.Dir(s.socketPath), 0o755); err != nil {
		return errors.Wrap(err, "creating socket directory")
	}
	ln, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return errors.Wrap(err, "listening on control socket")
	}
	defer ln.Close()

	for {
		conn, err := ln.Accept()
		if err != nil {
			return errors.Wrap(err, "accepting control connection")
		}
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	if err := s.dispatch(conn); err != nil {
		s.log.Errorw("control connection error", "err", err)
	}
}

func (s *Server) dispatch(conn net.Conn) error {
	reader := bufio.NewReader(conn)
	line, err := reader.ReadString(0)
	if err != nil {
		return errors.Wrap(err, "reading request")
	}
	line = strings.TrimSuffix(line, "\x00")

	fields := strings.Split(line, " ")
	if len(fields) == 0 || fields[0] == "" {
		return errors.New("malformed request: empty command")
	}
	command, args := fields[0], fields[1:]

	response, err := s.execute(command, args)
	if err != nil {
		return errors.Wrapf(err, "handling %q", command)
	}
	if response == "" {
		response = `"no response 404"`
	}
	_, err = conn.Write([]byte(response))
	return err
}

func (s *Server) execute(command string, args []string) (string, error) {
	switch command {
	case "account":
		if len(args) < 1 {
			return "", errors.New("account requires a public key")
		}
		pk, err := types.NewPublicKey(args[0])
		if err != nil {
			return "", err
		}
		acc, ok := s.handlers.Account(pk)
		if !ok {
			return "", nil
		}
		data, err := json.Marshal(acc)
		return string(data), err

	case "best_chain":
		if len(args) < 1 {
			return "", errors.New("best_chain requires a count")
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return "", errors.Wrap(err, "parsing count")
		}
		blocks, err := s.handlers.BestChain(n)
		if err != nil {
			return "", err
		}
		data, err := json.Marshal(blocks)
		return string(data), err

	case "best_ledger":
		ledger, err := s.handlers.BestLedgerJSON()
		if err != nil {
			return "", err
		}
		return s.writeOrReturn(ledger, args, 0, "Best ledger")

	case "ledger":
		if len(args) < 1 {
			return "", errors.New("ledger requires a hash")
		}
		ledger, ok, err := s.handlers.LedgerByHash(args[0])
		if err != nil {
			return "", err
		}
		if !ok {
			return fmtInvalid("ledger at %s cannot be determined", args[0]), nil
		}
		return s.writeOrReturn(ledger, args, 1, "Ledger at "+args[0])

	case "ledger_at_height":
		if len(args) < 1 {
			return "", errors.New("ledger_at_height requires a height")
		}
		height, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			return "", errors.Wrap(err, "parsing height")
		}
		maxHeight, ok := s.handlers.MaxCanonicalHeight()
		if !ok || uint32(height) > maxHeight {
			return fmtInvalid("ledger at height %d cannot be determined", height), nil
		}
		ledger, ok, err := s.handlers.LedgerAtHeight(uint32(height))
		if err != nil {
			return "", err
		}
		if !ok {
			return "", nil
		}
		return s.writeOrReturn(ledger, args, 1, "Ledger at height "+args[0])

	case "summary":
		if len(args) < 1 {
			return "", errors.New("summary requires a verbose flag")
		}
		verbose, err := strconv.ParseBool(args[0])
		if err != nil {
			return "", errors.Wrap(err, "parsing verbose flag")
		}
		summary, err := s.handlers.Summary(verbose)
		if err != nil {
			return "", err
		}
		return summary, nil

	case "shutdown":
		s.log.Info("received shutdown command")
		os.Exit(0)
		return "", nil

	default:
		return "", errors.Errorf("malformed request: %s", command)
	}
}

func fmtInvalid(format string, a ...interface{}) string {
	data, _ := json.Marshal("Invalid query: " + fmt.Sprintf(format, a...))
	return string(data)
}

// writeOrReturn implements the "no path argument -> return inline,
// path argument -> write to file and return a confirmation message"
// branch shared by best_ledger/ledger/ledger_at_height.
func (s *Server) writeOrReturn(content string, args []string, pathIdx int, label string) (string, error) {
	if len(args) <= pathIdx || args[pathIdx] == "" {
		return content, nil
	}
	path := args[pathIdx]
	info, err := os.Stat(path)
	if err == nil && info.IsDir() {
		data, _ := json.Marshal("The path provided must not be a directory: " + path)
		return string(data), nil
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", errors.Wrapf(err, "writing %s to %s", label, path)
	}
	data, _ := json.Marshal(label + " written to " + path)
	return string(data), nil
}
