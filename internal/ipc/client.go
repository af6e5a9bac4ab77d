package ipc

import (
	"io"
	"net"
	"strings"

	"github.com/pkg/errors"
)

// Send opens socketPath, writes a NUL-terminated "command arg1 arg2"
// request, and returns the server's full response body. Used by the
// `client` subcommand family of cmd/indexer.
func Send(socketPath string, command string, args ...string) (string, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return "", errors.Wrap(err, "connecting to control socket")
	}
	defer conn.Close()

	req := strings.Join(append([]string{command}, args...), " ") + "\x00"
	if _, err := conn.Write([]byte(req)); err != nil {
		return "", errors.Wrap(err, "writing request")
	}

	body, err := io.ReadAll(conn)
	if err != nil {
		return "", errors.Wrap(err, "reading response")
	}
	return string(body), nil
}
