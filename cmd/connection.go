// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Michele De Stefano

package cmd

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/micdestefano/elegoo-robot-car4/pkg/car"
	"go.bug.st/serial"
	"golang.org/x/term"
)

// SerialConnection wraps a serial port as a car.Connection. The firmware
// accepts the same JSON commands over the UART header as over WiFi.
type SerialConnection struct {
	port serial.Port
}

func (s *SerialConnection) Read(p []byte) (int, error) {
	n, err := s.port.Read(p)
	if err != nil {
		return n, err
	}
	// The port signals an expired read timeout with an empty read.
	if n == 0 {
		return 0, car.ErrReadTimeout
	}
	return n, nil
}

func (s *SerialConnection) Write(p []byte) (int, error) {
	return s.port.Write(p)
}

func (s *SerialConnection) Close() error {
	return s.port.Close()
}

// WebSocketConnection adapts a WebSocket bridge to a car.Connection. A
// pump goroutine owns all reads from the socket; Read drains its channel
// so that a reply timeout does not poison the WebSocket (gorilla treats
// any ReadMessage error, deadline expiry included, as permanent).
type WebSocketConnection struct {
	conn    *websocket.Conn
	timeout time.Duration

	incoming chan []byte
	done     chan struct{}
	readErr  error // set by the pump before incoming closes

	buf       []byte
	bufOffset int
	closeOnce sync.Once
}

func (w *WebSocketConnection) pump() {
	for {
		messageType, data, err := w.conn.ReadMessage()
		if err != nil {
			w.readErr = err
			close(w.incoming)
			return
		}

		// The bridge relays the firmware's text frames; some relays
		// repackage them as binary. Anything else is ignored.
		if messageType != websocket.TextMessage && messageType != websocket.BinaryMessage {
			continue
		}

		select {
		case w.incoming <- data:
		case <-w.done:
			return
		}
	}
}

func (w *WebSocketConnection) Read(p []byte) (int, error) {
	// Serve buffered data first
	if w.bufOffset < len(w.buf) {
		n := copy(p, w.buf[w.bufOffset:])
		w.bufOffset += n
		return n, nil
	}

	select {
	case data, ok := <-w.incoming:
		if !ok {
			if w.readErr != nil {
				return 0, w.readErr
			}
			return 0, car.ErrConnectionClosed
		}
		w.buf = data
		w.bufOffset = 0
		n := copy(p, w.buf)
		w.bufOffset = n
		return n, nil

	case <-time.After(w.timeout):
		return 0, car.ErrReadTimeout
	}
}

func (w *WebSocketConnection) Write(p []byte) (int, error) {
	err := w.conn.WriteMessage(websocket.TextMessage, p)
	if err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *WebSocketConnection) Close() error {
	w.closeOnce.Do(func() { close(w.done) })
	return w.conn.Close()
}

// OpenSerialConnection opens a serial port connection. The timeout bounds
// each read so that lost replies surface as car.ErrReadTimeout.
func OpenSerialConnection(portName string, baudRate int, timeout time.Duration) (car.Connection, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %v", portName, err)
	}

	if err := port.SetReadTimeout(timeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to set read timeout on %s: %v", portName, err)
	}

	return &SerialConnection{port: port}, nil
}

// OpenWebSocketConnection opens a WebSocket connection with HTTP Basic auth
func OpenWebSocketConnection(wsURL, username, password string, skipSSLVerify bool, timeout time.Duration) (car.Connection, error) {
	// Parse and validate URL
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %v", err)
	}

	// Validate scheme
	switch u.Scheme {
	case "ws", "wss":
		// OK
	default:
		return nil, fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}

	// Create dialer with timeout
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	// Configure TLS for wss://
	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: skipSSLVerify,
		}
	}

	// Build HTTP headers with Basic auth
	headers := http.Header{}
	if username != "" && password != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
		headers.Set("Authorization", "Basic "+credentials)
	}

	// Connect
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	conn, resp, err := dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("WebSocket connection failed (HTTP %d): %v", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("WebSocket connection failed: %v", err)
	}

	ws := &WebSocketConnection{
		conn:     conn,
		timeout:  timeout,
		incoming: make(chan []byte, 32),
		done:     make(chan struct{}),
	}
	go ws.pump()

	return ws, nil
}

// GetPassword retrieves password from environment or prompts user
func GetPassword() (string, error) {
	// First check environment variable
	if pw := os.Getenv("CAR_WS_PASSWORD"); pw != "" {
		return pw, nil
	}

	// Prompt user for password (hide input)
	fmt.Fprint(os.Stderr, "Password: ")

	// Read password without echo
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		// Fallback to regular input if terminal functions fail
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read password: %v", err)
		}
		fmt.Fprintln(os.Stderr) // newline after password
		return strings.TrimSpace(password), nil
	}

	fmt.Fprintln(os.Stderr) // newline after password
	return string(passwordBytes), nil
}

// OpenConnection opens a connection to the car based on the root flags:
// WebSocket when --ws-url is set, serial when --serial-port is set, and
// the firmware's TCP control port otherwise.
func OpenConnection() (car.Connection, string, error) {
	if wsURL != "" {
		// WebSocket mode
		password := ""
		if wsUsername != "" {
			var err error
			password, err = GetPassword()
			if err != nil {
				return nil, "", err
			}
		}

		conn, err := OpenWebSocketConnection(wsURL, wsUsername, password, wsNoSSLVerify, ioTimeout)
		if err != nil {
			return nil, "", err
		}

		return conn, fmt.Sprintf("WebSocket: %s", wsURL), nil
	}

	if serialPort != "" {
		// Serial mode
		conn, err := OpenSerialConnection(serialPort, baudRate, ioTimeout)
		if err != nil {
			return nil, "", err
		}

		return conn, fmt.Sprintf("Serial: %s @ %d baud", serialPort, baudRate), nil
	}

	// TCP mode (the car's own access point)
	conn, err := car.DialTCP(carHost, carPort, ioTimeout)
	if err != nil {
		return nil, "", err
	}

	return conn, fmt.Sprintf("TCP: %s:%d", carHost, carPort), nil
}
