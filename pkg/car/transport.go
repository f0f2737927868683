// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Michele De Stefano

package car

import (
	"io"
	"net"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// Connection is a bidirectional byte stream to the car. Implementations
// must bound Read by a timeout and surface expiry as ErrReadTimeout so
// that callers can tell a slow sensor from a dead link.
type Connection interface {
	io.Reader
	io.Writer
	io.Closer
}

// ErrReadTimeout is returned when the car produces no data within the
// connection timeout.
var ErrReadTimeout = errors.New("read timeout")

// ErrConnectionClosed is returned when operating on a closed connection.
var ErrConnectionClosed = errors.New("connection closed")

// TCPConnection is a Connection over the car's TCP control port. Every
// read and write carries a fresh deadline.
type TCPConnection struct {
	conn    net.Conn
	timeout time.Duration
}

// DialTCP connects to the car's control port. The timeout bounds the dial
// and every subsequent read and write on the returned connection.
func DialTCP(host string, port int, timeout time.Duration) (*TCPConnection, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, errors.Wrapf(err, "dialing %s", addr)
	}
	return &TCPConnection{conn: conn, timeout: timeout}, nil
}

func (c *TCPConnection) Read(p []byte) (int, error) {
	if err := c.conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, errors.Wrap(err, "setting read deadline")
	}
	n, err := c.conn.Read(p)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return n, ErrReadTimeout
		}
		return n, err
	}
	return n, nil
}

func (c *TCPConnection) Write(p []byte) (int, error) {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, errors.Wrap(err, "setting write deadline")
	}
	return c.conn.Write(p)
}

func (c *TCPConnection) Close() error {
	return c.conn.Close()
}

// IsTimeout reports whether err is a read timeout, either this package's
// sentinel or a timeout surfaced by the underlying transport.
func IsTimeout(err error) bool {
	if errors.Is(err, ErrReadTimeout) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
