package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

// Fixed text field widths. IDs and passwords are NUL-padded ASCII.
const (
	IDLen       = 12
	PasswordLen = 16
	AddrLen     = 15
)

var (
	ErrShortBody = errors.New("wire: short body")
	ErrTextWidth = errors.New("wire: text exceeds field width")
)

// Body sizes on the wire.
const (
	LoginRequestLen          = IDLen + PasswordLen
	SignupRequestLen         = IDLen + PasswordLen + 1
	ChangePasswordRequestLen = IDLen + 2*PasswordLen
	CFLoginResponseLen       = AddrLen + 4 + 2 + 4
	FBLoginResponseLen       = IDLen + AddrLen + 4 + 2 + 4
	ConnectionPassRequestLen = IDLen + 4
	CookieRunLen             = IDLen + 4
	CFRoomRequestLen         = 4
	FBRoomRequestLen         = IDLen + 4
	RoomAckLen               = 4
	ChatBroadcastFixedLen    = IDLen + 8 + 4
	ChatCountLen             = IDLen
	ConnectionInfoLen        = AddrLen + 4 + 2
)

func putText(dst []byte, s string) error {
	if len(s) > len(dst) {
		return fmt.Errorf("%w: %q in %d bytes", ErrTextWidth, s, len(dst))
	}
	copy(dst, s)
	return nil
}

func text(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

func checkLen(b []byte, want int) error {
	if len(b) < want {
		return fmt.Errorf("%w: got %d want %d", ErrShortBody, len(b), want)
	}
	return nil
}

// LoginRequest carries credentials for login, logout, id-duplication checks
// and account deletion. The CF and FB layouts are identical.
type LoginRequest struct {
	ID       string
	Password string
}

func EncodeLoginRequest(v LoginRequest) ([]byte, error) {
	buf := make([]byte, LoginRequestLen)
	if err := putText(buf[0:IDLen], v.ID); err != nil {
		return nil, err
	}
	if err := putText(buf[IDLen:], v.Password); err != nil {
		return nil, err
	}
	return buf, nil
}

func DecodeLoginRequest(b []byte) (LoginRequest, error) {
	if err := checkLen(b, LoginRequestLen); err != nil {
		return LoginRequest{}, err
	}
	return LoginRequest{
		ID:       text(b[0:IDLen]),
		Password: text(b[IDLen : IDLen+PasswordLen]),
	}, nil
}

// SignupRequest adds the dummy-account marker used by load tooling.
type SignupRequest struct {
	ID       string
	Password string
	IsDummy  bool
}

func EncodeSignupRequest(v SignupRequest) ([]byte, error) {
	buf := make([]byte, SignupRequestLen)
	if err := putText(buf[0:IDLen], v.ID); err != nil {
		return nil, err
	}
	if err := putText(buf[IDLen:IDLen+PasswordLen], v.Password); err != nil {
		return nil, err
	}
	if v.IsDummy {
		buf[IDLen+PasswordLen] = 1
	}
	return buf, nil
}

func DecodeSignupRequest(b []byte) (SignupRequest, error) {
	if err := checkLen(b, SignupRequestLen); err != nil {
		return SignupRequest{}, err
	}
	return SignupRequest{
		ID:       text(b[0:IDLen]),
		Password: text(b[IDLen : IDLen+PasswordLen]),
		IsDummy:  b[IDLen+PasswordLen] != 0,
	}, nil
}

type ChangePasswordRequest struct {
	ID              string
	CurrentPassword string
	NewPassword     string
}

func EncodeChangePasswordRequest(v ChangePasswordRequest) ([]byte, error) {
	buf := make([]byte, ChangePasswordRequestLen)
	if err := putText(buf[0:IDLen], v.ID); err != nil {
		return nil, err
	}
	if err := putText(buf[IDLen:IDLen+PasswordLen], v.CurrentPassword); err != nil {
		return nil, err
	}
	if err := putText(buf[IDLen+PasswordLen:], v.NewPassword); err != nil {
		return nil, err
	}
	return buf, nil
}

func DecodeChangePasswordRequest(b []byte) (ChangePasswordRequest, error) {
	if err := checkLen(b, ChangePasswordRequestLen); err != nil {
		return ChangePasswordRequest{}, err
	}
	return ChangePasswordRequest{
		ID:              text(b[0:IDLen]),
		CurrentPassword: text(b[IDLen : IDLen+PasswordLen]),
		NewPassword:     text(b[IDLen+PasswordLen:]),
	}, nil
}

// Handoff describes where a client should reconnect and the one-time cookie
// that lets it resume its identity there.
type Handoff struct {
	Addr     string
	Port     int32
	Protocol Protocol
	Cookie   int32
}

func encodeHandoff(buf []byte, v Handoff) error {
	if err := putText(buf[0:AddrLen], v.Addr); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(buf[AddrLen:AddrLen+4], uint32(v.Port))
	binary.LittleEndian.PutUint16(buf[AddrLen+4:AddrLen+6], uint16(v.Protocol))
	binary.LittleEndian.PutUint32(buf[AddrLen+6:AddrLen+10], uint32(v.Cookie))
	return nil
}

func decodeHandoff(b []byte) Handoff {
	return Handoff{
		Addr:     text(b[0:AddrLen]),
		Port:     int32(binary.LittleEndian.Uint32(b[AddrLen : AddrLen+4])),
		Protocol: Protocol(binary.LittleEndian.Uint16(b[AddrLen+4 : AddrLen+6])),
		Cookie:   int32(binary.LittleEndian.Uint32(b[AddrLen+6 : AddrLen+10])),
	}
}

// CFLoginResponse is the login SUCCESS body relayed to the client: the chat
// instance to connect to next plus the handoff cookie.
type CFLoginResponse struct {
	Handoff
}

func EncodeCFLoginResponse(v CFLoginResponse) ([]byte, error) {
	buf := make([]byte, CFLoginResponseLen)
	if err := encodeHandoff(buf, v.Handoff); err != nil {
		return nil, err
	}
	return buf, nil
}

func DecodeCFLoginResponse(b []byte) (CFLoginResponse, error) {
	if err := checkLen(b, CFLoginResponseLen); err != nil {
		return CFLoginResponse{}, err
	}
	return CFLoginResponse{Handoff: decodeHandoff(b)}, nil
}

// FBLoginResponse is the backend's login SUCCESS body: the authenticated id
// followed by the handoff details.
type FBLoginResponse struct {
	ID string
	Handoff
}

func EncodeFBLoginResponse(v FBLoginResponse) ([]byte, error) {
	buf := make([]byte, FBLoginResponseLen)
	if err := putText(buf[0:IDLen], v.ID); err != nil {
		return nil, err
	}
	if err := encodeHandoff(buf[IDLen:], v.Handoff); err != nil {
		return nil, err
	}
	return buf, nil
}

func DecodeFBLoginResponse(b []byte) (FBLoginResponse, error) {
	if err := checkLen(b, FBLoginResponseLen); err != nil {
		return FBLoginResponse{}, err
	}
	return FBLoginResponse{
		ID:      text(b[0:IDLen]),
		Handoff: decodeHandoff(b[IDLen:]),
	}, nil
}

// CookieBody is the shared id+cookie layout used by ConnectionPass requests
// and FB CookieRun messages.
type CookieBody struct {
	ID     string
	Cookie int32
}

func EncodeCookieBody(v CookieBody) ([]byte, error) {
	buf := make([]byte, CookieRunLen)
	if err := putText(buf[0:IDLen], v.ID); err != nil {
		return nil, err
	}
	binary.LittleEndian.PutUint32(buf[IDLen:], uint32(v.Cookie))
	return buf, nil
}

func DecodeCookieBody(b []byte) (CookieBody, error) {
	if err := checkLen(b, CookieRunLen); err != nil {
		return CookieBody{}, err
	}
	return CookieBody{
		ID:     text(b[0:IDLen]),
		Cookie: int32(binary.LittleEndian.Uint32(b[IDLen : IDLen+4])),
	}, nil
}

// CFRoomRequest names the room a client wants to create, join or leave.
type CFRoomRequest struct {
	RoomNo int32
}

func EncodeCFRoomRequest(v CFRoomRequest) []byte {
	buf := make([]byte, CFRoomRequestLen)
	binary.LittleEndian.PutUint32(buf, uint32(v.RoomNo))
	return buf
}

func DecodeCFRoomRequest(b []byte) (CFRoomRequest, error) {
	if err := checkLen(b, CFRoomRequestLen); err != nil {
		return CFRoomRequest{}, err
	}
	return CFRoomRequest{RoomNo: int32(binary.LittleEndian.Uint32(b[0:4]))}, nil
}

// FBRoomRequest stamps the requesting identity onto the room operation.
type FBRoomRequest struct {
	ID     string
	RoomNo int32
}

func EncodeFBRoomRequest(v FBRoomRequest) ([]byte, error) {
	buf := make([]byte, FBRoomRequestLen)
	if err := putText(buf[0:IDLen], v.ID); err != nil {
		return nil, err
	}
	binary.LittleEndian.PutUint32(buf[IDLen:], uint32(v.RoomNo))
	return buf, nil
}

func DecodeFBRoomRequest(b []byte) (FBRoomRequest, error) {
	if err := checkLen(b, FBRoomRequestLen); err != nil {
		return FBRoomRequest{}, err
	}
	return FBRoomRequest{
		ID:     text(b[0:IDLen]),
		RoomNo: int32(binary.LittleEndian.Uint32(b[IDLen : IDLen+4])),
	}, nil
}

// RoomAck is the room number echoed in room SUCCESS/FAIL responses.
type RoomAck struct {
	RoomNo int32
}

func EncodeRoomAck(v RoomAck) []byte {
	buf := make([]byte, RoomAckLen)
	binary.LittleEndian.PutUint32(buf, uint32(v.RoomNo))
	return buf
}

func DecodeRoomAck(b []byte) (RoomAck, error) {
	if err := checkLen(b, RoomAckLen); err != nil {
		return RoomAck{}, err
	}
	return RoomAck{RoomNo: int32(binary.LittleEndian.Uint32(b[0:4]))}, nil
}

// ChatBroadcast is the fan-out body: sender id, send time, then the chat
// text itself appended after the fixed part.
type ChatBroadcast struct {
	ID      string
	SentAt  time.Time
	Message []byte
}

func EncodeChatBroadcast(v ChatBroadcast) ([]byte, error) {
	buf := make([]byte, ChatBroadcastFixedLen, ChatBroadcastFixedLen+len(v.Message))
	if err := putText(buf[0:IDLen], v.ID); err != nil {
		return nil, err
	}
	binary.LittleEndian.PutUint64(buf[IDLen:IDLen+8], uint64(v.SentAt.UnixMilli()))
	binary.LittleEndian.PutUint32(buf[IDLen+8:IDLen+12], uint32(len(v.Message)))
	return append(buf, v.Message...), nil
}

func DecodeChatBroadcast(b []byte) (ChatBroadcast, error) {
	if err := checkLen(b, ChatBroadcastFixedLen); err != nil {
		return ChatBroadcast{}, err
	}
	msgLen := int(int32(binary.LittleEndian.Uint32(b[IDLen+8 : IDLen+12])))
	if msgLen < 0 || len(b) < ChatBroadcastFixedLen+msgLen {
		return ChatBroadcast{}, fmt.Errorf("%w: message truncated", ErrShortBody)
	}
	return ChatBroadcast{
		ID:      text(b[0:IDLen]),
		SentAt:  time.UnixMilli(int64(binary.LittleEndian.Uint64(b[IDLen : IDLen+8]))),
		Message: b[ChatBroadcastFixedLen : ChatBroadcastFixedLen+msgLen],
	}, nil
}

// ChatCount notifies the backend that a user sent one more chat message.
type ChatCount struct {
	ID string
}

func EncodeChatCount(v ChatCount) ([]byte, error) {
	buf := make([]byte, ChatCountLen)
	if err := putText(buf, v.ID); err != nil {
		return nil, err
	}
	return buf, nil
}

func DecodeChatCount(b []byte) (ChatCount, error) {
	if err := checkLen(b, ChatCountLen); err != nil {
		return ChatCount{}, err
	}
	return ChatCount{ID: text(b[0:IDLen])}, nil
}

// ConnectionInfo advertises this instance's client-facing endpoint to the
// backend.
type ConnectionInfo struct {
	Addr     string
	Port     int32
	Protocol Protocol
}

func EncodeConnectionInfo(v ConnectionInfo) ([]byte, error) {
	buf := make([]byte, ConnectionInfoLen)
	if err := putText(buf[0:AddrLen], v.Addr); err != nil {
		return nil, err
	}
	binary.LittleEndian.PutUint32(buf[AddrLen:AddrLen+4], uint32(v.Port))
	binary.LittleEndian.PutUint16(buf[AddrLen+4:], uint16(v.Protocol))
	return buf, nil
}

func DecodeConnectionInfo(b []byte) (ConnectionInfo, error) {
	if err := checkLen(b, ConnectionInfoLen); err != nil {
		return ConnectionInfo{}, err
	}
	return ConnectionInfo{
		Addr:     text(b[0:AddrLen]),
		Port:     int32(binary.LittleEndian.Uint32(b[AddrLen : AddrLen+4])),
		Protocol: Protocol(binary.LittleEndian.Uint16(b[AddrLen+4 : AddrLen+6])),
	}, nil
}
