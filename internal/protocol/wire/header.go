package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	CFHeaderLen = 8
	FBHeaderLen = 12

	// MaxBodyLen bounds a single frame body against hostile peers.
	MaxBodyLen = 64 * 1024
)

var (
	ErrShortHeader  = errors.New("wire: short header")
	ErrBodyTooLarge = errors.New("wire: body too large")
	ErrClosed       = errors.New("wire: connection closed by peer")
)

// State is the shared request/response state triple. A front end only ever
// relays StateRequest upstream and StateSuccess/StateFail downstream.
type State uint16

const (
	StateRequest State = 100
	StateSuccess State = 200
	StateFail    State = 400
)

// MsgType numbering is shared across the CF and FB protocols: 100s account,
// 200s login, 300s rooms and connection passing, 400s chat, 500s health and
// cookie handoff, 600s administrative (backend only).
type MsgType uint16

const (
	MsgIDDup          MsgType = 110
	MsgSignup         MsgType = 120
	MsgChangePassword MsgType = 130
	MsgDeleteID       MsgType = 140

	MsgLogin  MsgType = 210
	MsgLogout MsgType = 220

	MsgRoomCreate MsgType = 310
	MsgRoomLeave  MsgType = 320
	MsgRoomJoin   MsgType = 330
	MsgRoomList   MsgType = 340

	// 350 is ConnectionPass on the CF side and RoomDelete on the FB side.
	MsgConnectionPass MsgType = 350
	MsgRoomDelete     MsgType = 350

	// 410 is ChatFromClient on the CF side and ChatCount on the FB side.
	MsgChatFromClient MsgType = 410
	MsgChatCount      MsgType = 410
	MsgChatBroadcast  MsgType = 420

	MsgHealthCheck MsgType = 510

	// 520 is AgentQuit on the CF side (loopback-restricted terminate) and
	// CookieRun on the FB side.
	MsgAgentQuit MsgType = 520
	MsgCookieRun MsgType = 520

	MsgConnectionInfo MsgType = 610
	MsgKillRequest    MsgType = 620
)

// Protocol identifies a transport family on the wire.
type Protocol uint16

const (
	ProtoTCP Protocol = 1
	ProtoWeb Protocol = 3
)

// CFHeader is the client-facing envelope.
type CFHeader struct {
	Type   MsgType
	State  State
	Length int32
}

// FBHeader is the backend-facing envelope. SessionID correlates asynchronous
// backend responses to the originating client session.
type FBHeader struct {
	Type      MsgType
	State     State
	Length    int32
	SessionID int32
}

func EncodeCFHeader(h CFHeader) []byte {
	buf := make([]byte, CFHeaderLen)
	binary.LittleEndian.PutUint16(buf[0:2], uint16(h.Type))
	binary.LittleEndian.PutUint16(buf[2:4], uint16(h.State))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(h.Length))
	return buf
}

func DecodeCFHeader(b []byte) (CFHeader, error) {
	if len(b) != CFHeaderLen {
		return CFHeader{}, fmt.Errorf("%w: got %d bytes", ErrShortHeader, len(b))
	}
	return CFHeader{
		Type:   MsgType(binary.LittleEndian.Uint16(b[0:2])),
		State:  State(binary.LittleEndian.Uint16(b[2:4])),
		Length: int32(binary.LittleEndian.Uint32(b[4:8])),
	}, nil
}

func EncodeFBHeader(h FBHeader) []byte {
	buf := make([]byte, FBHeaderLen)
	binary.LittleEndian.PutUint16(buf[0:2], uint16(h.Type))
	binary.LittleEndian.PutUint16(buf[2:4], uint16(h.State))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(h.Length))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(h.SessionID))
	return buf
}

func DecodeFBHeader(b []byte) (FBHeader, error) {
	if len(b) != FBHeaderLen {
		return FBHeader{}, fmt.Errorf("%w: got %d bytes", ErrShortHeader, len(b))
	}
	return FBHeader{
		Type:      MsgType(binary.LittleEndian.Uint16(b[0:2])),
		State:     State(binary.LittleEndian.Uint16(b[2:4])),
		Length:    int32(binary.LittleEndian.Uint32(b[4:8])),
		SessionID: int32(binary.LittleEndian.Uint32(b[8:12])),
	}, nil
}

// ReadCFFrame reads one complete client-facing frame: exactly CFHeaderLen
// header bytes, then exactly Length body bytes. A nil body means a
// header-only message.
func ReadCFFrame(r io.Reader) (CFHeader, []byte, error) {
	var fixed [CFHeaderLen]byte
	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return CFHeader{}, nil, ErrClosed
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return CFHeader{}, nil, ErrShortHeader
		}
		return CFHeader{}, nil, err
	}
	h, err := DecodeCFHeader(fixed[:])
	if err != nil {
		return CFHeader{}, nil, err
	}
	body, err := readBody(r, h.Length)
	if err != nil {
		return CFHeader{}, nil, err
	}
	return h, body, nil
}

// ReadFBFrame reads one complete backend-facing frame.
func ReadFBFrame(r io.Reader) (FBHeader, []byte, error) {
	var fixed [FBHeaderLen]byte
	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return FBHeader{}, nil, ErrClosed
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return FBHeader{}, nil, ErrShortHeader
		}
		return FBHeader{}, nil, err
	}
	h, err := DecodeFBHeader(fixed[:])
	if err != nil {
		return FBHeader{}, nil, err
	}
	body, err := readBody(r, h.Length)
	if err != nil {
		return FBHeader{}, nil, err
	}
	return h, body, nil
}

func readBody(r io.Reader, length int32) ([]byte, error) {
	if length == 0 {
		return nil, nil
	}
	if length < 0 || length > MaxBodyLen {
		return nil, fmt.Errorf("%w: %d bytes", ErrBodyTooLarge, length)
	}
	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrClosed
		}
		return nil, err
	}
	return body, nil
}

// CFFrame concatenates a client-facing header and optional body into one
// wire buffer, fixing up the header length from the body.
func CFFrame(h CFHeader, body []byte) []byte {
	h.Length = int32(len(body))
	return append(EncodeCFHeader(h), body...)
}

// FBFrame concatenates a backend-facing header and optional body.
func FBFrame(h FBHeader, body []byte) []byte {
	h.Length = int32(len(body))
	return append(EncodeFBHeader(h), body...)
}
