// Command frontline-client is an interactive terminal client for poking a
// relay instance: sign up, log in, join rooms and chat over the binary
// protocol, printing every frame the server pushes back.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/frontline-chat/frontline/internal/logging"
	"github.com/frontline-chat/frontline/internal/protocol/wire"
)

var errQuit = errors.New("quit")

func main() {
	addr := flag.String("addr", "127.0.0.1:9000", "relay address")
	flag.Parse()

	logging.ConfigureRuntime()

	conn, err := net.Dial("tcp", *addr)
	if err != nil {
		log.Fatal().Err(err).Str("addr", *addr).Msg("dial failed")
	}
	defer conn.Close()
	fmt.Printf("connected to %s\n", *addr)

	go printInbound(conn)

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("> ")
	for scanner.Scan() {
		if err := runCommand(conn, scanner.Text()); err != nil {
			if errors.Is(err, errQuit) {
				return
			}
			fmt.Printf("error: %v\n", err)
		}
		fmt.Print("> ")
	}
}

func printInbound(conn net.Conn) {
	for {
		h, body, err := wire.ReadCFFrame(conn)
		if err != nil {
			fmt.Println("\nconnection closed")
			os.Exit(0)
		}
		describe(h, body)
	}
}

func describe(h wire.CFHeader, body []byte) {
	state := "?"
	switch h.State {
	case wire.StateRequest:
		state = "REQUEST"
	case wire.StateSuccess:
		state = "SUCCESS"
	case wire.StateFail:
		state = "FAIL"
	}
	switch h.Type {
	case wire.MsgChatBroadcast:
		bc, err := wire.DecodeChatBroadcast(body)
		if err == nil {
			fmt.Printf("\n[%s] %s: %s\n> ", bc.SentAt.Format("15:04:05"), bc.ID, bc.Message)
			return
		}
	case wire.MsgLogin:
		if h.State == wire.StateSuccess {
			if resp, err := wire.DecodeCFLoginResponse(body); err == nil {
				fmt.Printf("\nlogin %s: next hop %s:%d cookie %d\n> ", state, resp.Addr, resp.Port, resp.Cookie)
				return
			}
		}
	case wire.MsgRoomJoin, wire.MsgRoomLeave:
		if notice, err := wire.DecodeFBRoomRequest(body); err == nil {
			fmt.Printf("\nroom %d notice: %s (%d %s)\n> ", notice.RoomNo, notice.ID, h.Type, state)
			return
		}
	}
	fmt.Printf("\ntype %d %s (%d body bytes)\n> ", h.Type, state, len(body))
}

func runCommand(conn net.Conn, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, args := fields[0], fields[1:]
	switch cmd {
	case "help":
		fmt.Println("commands: signup id pw | dup id | login id pw | logout | passwd id old new")
		fmt.Println("          create n | join n | leave n | list | say text... | pass id cookie")
		fmt.Println("          ping | quit")
		return nil
	case "quit":
		return errQuit
	case "ping":
		return send(conn, wire.MsgHealthCheck, nil)
	case "logout":
		return send(conn, wire.MsgLogout, nil)
	case "list":
		return send(conn, wire.MsgRoomList, nil)
	case "signup":
		if len(args) != 2 {
			return errors.New("usage: signup id pw")
		}
		body, err := wire.EncodeSignupRequest(wire.SignupRequest{ID: args[0], Password: args[1]})
		if err != nil {
			return err
		}
		return send(conn, wire.MsgSignup, body)
	case "dup":
		if len(args) != 1 {
			return errors.New("usage: dup id")
		}
		body, err := wire.EncodeLoginRequest(wire.LoginRequest{ID: args[0]})
		if err != nil {
			return err
		}
		return send(conn, wire.MsgIDDup, body)
	case "login":
		if len(args) != 2 {
			return errors.New("usage: login id pw")
		}
		body, err := wire.EncodeLoginRequest(wire.LoginRequest{ID: args[0], Password: args[1]})
		if err != nil {
			return err
		}
		return send(conn, wire.MsgLogin, body)
	case "passwd":
		if len(args) != 3 {
			return errors.New("usage: passwd id old new")
		}
		body, err := wire.EncodeChangePasswordRequest(wire.ChangePasswordRequest{
			ID: args[0], CurrentPassword: args[1], NewPassword: args[2],
		})
		if err != nil {
			return err
		}
		return send(conn, wire.MsgChangePassword, body)
	case "create", "join", "leave":
		if len(args) != 1 {
			return fmt.Errorf("usage: %s roomNo", cmd)
		}
		no, err := strconv.ParseInt(args[0], 10, 32)
		if err != nil {
			return err
		}
		body := wire.EncodeCFRoomRequest(wire.CFRoomRequest{RoomNo: int32(no)})
		switch cmd {
		case "create":
			return send(conn, wire.MsgRoomCreate, body)
		case "join":
			return send(conn, wire.MsgRoomJoin, body)
		default:
			return send(conn, wire.MsgRoomLeave, body)
		}
	case "say":
		if len(args) == 0 {
			return errors.New("usage: say text...")
		}
		return send(conn, wire.MsgChatFromClient, []byte(strings.Join(args, " ")))
	case "pass":
		if len(args) != 2 {
			return errors.New("usage: pass id cookie")
		}
		cookie, err := strconv.ParseInt(args[1], 10, 32)
		if err != nil {
			return err
		}
		body, err := wire.EncodeCookieBody(wire.CookieBody{ID: args[0], Cookie: int32(cookie)})
		if err != nil {
			return err
		}
		return send(conn, wire.MsgConnectionPass, body)
	default:
		return fmt.Errorf("unknown command %q (try help)", cmd)
	}
}

func send(conn net.Conn, t wire.MsgType, body []byte) error {
	frame := wire.CFFrame(wire.CFHeader{Type: t, State: wire.StateRequest}, body)
	_, err := conn.Write(frame)
	return err
}
