package engine

import (
	"net"
	"sync"

	"github.com/frontline-chat/frontline/internal/protocol/wire"
)

// fakeTransport records everything sent through it. Receives are driven by
// the tests calling dispatch directly, so ReceiveExactly just reports closed.
type fakeTransport struct {
	mode wire.Protocol
	port int

	mu     sync.Mutex
	sent   [][]byte
	closed bool
	failed bool
}

func newFakeTransport(port int) *fakeTransport {
	return &fakeTransport{mode: wire.ProtoTCP, port: port}
}

func (f *fakeTransport) Send(b []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed || f.failed {
		return wire.ErrClosed
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	f.sent = append(f.sent, cp)
	return nil
}

func (f *fakeTransport) ReceiveExactly([]byte) error {
	return wire.ErrClosed
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeTransport) RemoteAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: f.port}
}

func (f *fakeTransport) Mode() wire.Protocol {
	return f.mode
}

func (f *fakeTransport) fail() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed = true
}

func (f *fakeTransport) frames() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.sent))
	copy(out, f.sent)
	return out
}

func (f *fakeTransport) lastCF() (wire.CFHeader, []byte, bool) {
	frames := f.frames()
	if len(frames) == 0 {
		return wire.CFHeader{}, nil, false
	}
	raw := frames[len(frames)-1]
	h, err := wire.DecodeCFHeader(raw[:wire.CFHeaderLen])
	if err != nil {
		return wire.CFHeader{}, nil, false
	}
	return h, raw[wire.CFHeaderLen:], true
}

func (f *fakeTransport) lastFB() (wire.FBHeader, []byte, bool) {
	frames := f.frames()
	if len(frames) == 0 {
		return wire.FBHeader{}, nil, false
	}
	raw := frames[len(frames)-1]
	h, err := wire.DecodeFBHeader(raw[:wire.FBHeaderLen])
	if err != nil {
		return wire.FBHeader{}, nil, false
	}
	return h, raw[wire.FBHeaderLen:], true
}
