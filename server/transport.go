package server

import (
	"bufio"
	"net"

	"github.com/pkg/errors"
)

// Transport is the scheduler connection: one newline-delimited JSON message
// out, one newline-delimited JSON message back, per round trip. It is the
// explicit seam between the event loop and the actual socket, so tests can
// substitute an in-memory fake instead of binding a real listener.
type Transport interface {
	Send(msg []byte) error
	Receive() ([]byte, error)
	Close() error
}

// connTransport implements Transport over a net.Conn (a TCP or unix-domain
// socket accepted from --socket-endpoint), matching the line-delimited
// framing the scheduler side of the protocol expects.
type connTransport struct {
	conn   net.Conn
	reader *bufio.Reader
}

// NewConnTransport wraps an already-accepted connection.
func NewConnTransport(conn net.Conn) Transport {
	return &connTransport{conn: conn, reader: bufio.NewReader(conn)}
}

// Listen accepts a single scheduler connection on endpoint ("unix:///path"
// or "tcp://host:port", mirroring --socket-endpoint's two accepted forms).
func Listen(endpoint string) (Transport, error) {
	network, address, err := splitEndpoint(endpoint)
	if err != nil {
		return nil, err
	}
	ln, err := net.Listen(network, address)
	if err != nil {
		return nil, errors.Wrapf(err, "server: listen on %s", endpoint)
	}
	defer ln.Close()
	conn, err := ln.Accept()
	if err != nil {
		return nil, errors.Wrapf(err, "server: accept scheduler connection on %s", endpoint)
	}
	return NewConnTransport(conn), nil
}

func splitEndpoint(endpoint string) (network, address string, err error) {
	switch {
	case len(endpoint) > 7 && endpoint[:7] == "unix://":
		return "unix", endpoint[7:], nil
	case len(endpoint) > 6 && endpoint[:6] == "tcp://":
		return "tcp", endpoint[6:], nil
	default:
		return "", "", errors.Errorf("server: socket endpoint %q must start with unix:// or tcp://", endpoint)
	}
}

func (t *connTransport) Send(msg []byte) error {
	_, err := t.conn.Write(append(msg, '\n'))
	return errors.Wrap(err, "server: send to scheduler")
}

func (t *connTransport) Receive() ([]byte, error) {
	line, err := t.reader.ReadBytes('\n')
	if err != nil {
		return nil, errors.Wrap(err, "server: receive from scheduler")
	}
	if n := len(line); n > 0 && line[n-1] == '\n' {
		line = line[:n-1]
	}
	return line, nil
}

func (t *connTransport) Close() error { return t.conn.Close() }
