package connection

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// Console reply terminators.
const (
	replyOK  = "+OK"
	replyErr = "-ERR"
)

// CommandError is a "-ERR" reply from the console.
type CommandError struct {
	Message string
}

func (e *CommandError) Error() string { return e.Message }

// SocketClient talks to the management console over its Unix socket.
type SocketClient struct {
	path    string
	timeout time.Duration
	conn    net.Conn
	reader  *bufio.Reader
}

// NewSocketClient creates a new socket client.
func NewSocketClient(socketPath string) *SocketClient {
	return &SocketClient{path: socketPath, timeout: 5 * time.Minute}
}

// Path returns the socket path.
func (c *SocketClient) Path() string { return c.path }

// Connect connects to the local socket.
func (c *SocketClient) Connect() error {
	conn, err := net.Dial("unix", c.path)
	if err != nil {
		return fmt.Errorf("connect %s: %w", c.path, err)
	}
	c.conn = conn
	c.reader = bufio.NewReader(conn)
	return nil
}

// Close closes the socket connection.
func (c *SocketClient) Close() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn, c.reader = nil, nil
	return err
}

// Execute sends one command line and returns the reply body without its
// terminator. A "-ERR" reply is returned as *CommandError together with
// any body lines that preceded it.
func (c *SocketClient) Execute(cmd string) (string, error) {
	if strings.ContainsAny(cmd, "\r\n") {
		return "", errors.New("command must be a single line")
	}
	if c.conn == nil {
		if err := c.Connect(); err != nil {
			return "", err
		}
	}
	if c.timeout > 0 {
		c.conn.SetDeadline(time.Now().Add(c.timeout))
	}

	if _, err := c.conn.Write([]byte(cmd + "\n")); err != nil {
		c.Close()
		return "", err
	}

	var body strings.Builder
	for {
		line, err := c.reader.ReadString('\n')
		if err != nil {
			c.Close()
			return body.String(), fmt.Errorf("read reply: %w", err)
		}
		line = strings.TrimRight(line, "\r\n")
		switch {
		case line == replyOK:
			return body.String(), nil
		case line == replyErr || strings.HasPrefix(line, replyErr+" "):
			msg := strings.TrimSpace(strings.TrimPrefix(line, replyErr))
			return body.String(), &CommandError{Message: msg}
		}
		body.WriteString(line)
		body.WriteByte('\n')
	}
}
