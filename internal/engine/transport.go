package engine

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/frontline-chat/frontline/internal/protocol/wire"
)

const sendDeadline = 5 * time.Second

var (
	ErrTransportClosed = errors.New("engine: transport closed")
	ErrShortWebFrame   = errors.New("engine: websocket message shorter than frame")
)

// Transport is the engine's view of one connection: send bytes, receive
// exactly N bytes or fail, close. Implementations are a raw TCP socket and a
// WebSocket carrying one complete frame per binary message.
type Transport interface {
	Send(b []byte) error
	ReceiveExactly(b []byte) error
	Close() error
	RemoteAddr() net.Addr
	Mode() wire.Protocol
}

// transportReader adapts a Transport to io.Reader for the wire frame
// readers. Each Read fills the whole buffer or fails, so io.ReadFull makes
// exactly one call per phase.
type transportReader struct {
	tr Transport
}

func (r transportReader) Read(p []byte) (int, error) {
	if err := r.tr.ReceiveExactly(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

type tcpTransport struct {
	conn      net.Conn
	closeOnce sync.Once
	writeMu   sync.Mutex
}

// NewTCPTransport wraps an established TCP connection.
func NewTCPTransport(conn net.Conn) Transport {
	return &tcpTransport{conn: conn}
}

func (t *tcpTransport) Send(b []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if err := t.conn.SetWriteDeadline(time.Now().Add(sendDeadline)); err != nil {
		return err
	}
	if _, err := t.conn.Write(b); err != nil {
		return fmt.Errorf("tcp send: %w", err)
	}
	return nil
}

func (t *tcpTransport) ReceiveExactly(b []byte) error {
	total := 0
	for total < len(b) {
		n, err := t.conn.Read(b[total:])
		if err != nil {
			return wire.ErrClosed
		}
		if n == 0 {
			return wire.ErrClosed
		}
		total += n
	}
	return nil
}

func (t *tcpTransport) Close() error {
	t.closeOnce.Do(func() {
		_ = t.conn.Close()
	})
	return nil
}

func (t *tcpTransport) RemoteAddr() net.Addr {
	return t.conn.RemoteAddr()
}

func (t *tcpTransport) Mode() wire.Protocol {
	return wire.ProtoTCP
}

// wsTransport carries frames over a WebSocket. A binary message holds one
// complete frame (header and body concatenated); ReceiveExactly serves the
// current message and refuses to cross into the next one mid-frame.
type wsTransport struct {
	conn      *websocket.Conn
	pending   []byte
	closeOnce sync.Once
	writeMu   sync.Mutex
}

// NewWSTransport wraps an upgraded WebSocket connection.
func NewWSTransport(conn *websocket.Conn) Transport {
	return &wsTransport{conn: conn}
}

func (t *wsTransport) Send(b []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if err := t.conn.SetWriteDeadline(time.Now().Add(sendDeadline)); err != nil {
		return err
	}
	if err := t.conn.WriteMessage(websocket.BinaryMessage, b); err != nil {
		return fmt.Errorf("websocket send: %w", err)
	}
	return nil
}

func (t *wsTransport) ReceiveExactly(b []byte) error {
	if len(t.pending) == 0 {
		kind, data, err := t.conn.ReadMessage()
		if err != nil {
			return wire.ErrClosed
		}
		if kind != websocket.BinaryMessage {
			return fmt.Errorf("%w: non-binary message", ErrShortWebFrame)
		}
		t.pending = data
	}
	if len(t.pending) < len(b) {
		t.pending = nil
		return fmt.Errorf("%w: want %d bytes", ErrShortWebFrame, len(b))
	}
	copy(b, t.pending[:len(b)])
	t.pending = t.pending[len(b):]
	return nil
}

func (t *wsTransport) Close() error {
	t.closeOnce.Do(func() {
		_ = t.conn.Close()
	})
	return nil
}

func (t *wsTransport) RemoteAddr() net.Addr {
	return t.conn.RemoteAddr()
}

func (t *wsTransport) Mode() wire.Protocol {
	return wire.ProtoWeb
}
