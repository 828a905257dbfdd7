package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"idlebakery.ai/internal/protocol"
	"idlebakery.ai/internal/sim/catalogs"
	"idlebakery.ai/internal/sim/economy"
	"idlebakery.ai/internal/sim/scheduler"
)

type Config struct {
	CommandRatePerSec   float64
	CommandBurst        int
	StatePushEveryTicks int
}

type Server struct {
	loop *scheduler.Loop
	cat  *catalogs.Catalog
	cfg  Config
	log  *log.Logger

	upgrader websocket.Upgrader
	sessions atomic.Uint64
	active   atomic.Int64
}

func NewServer(loop *scheduler.Loop, cat *catalogs.Catalog, cfg Config, logger *log.Logger) *Server {
	if cfg.CommandRatePerSec <= 0 {
		cfg.CommandRatePerSec = 20
	}
	if cfg.CommandBurst <= 0 {
		cfg.CommandBurst = 40
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Server{
		loop: loop,
		cat:  cat,
		cfg:  cfg,
		log:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

// ActiveSessions reports currently connected clients.
func (s *Server) ActiveSessions() int64 { return s.active.Load() }

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sessionID, ok := s.handshake(conn)
		if !ok {
			return
		}
		s.active.Add(1)
		defer s.active.Add(-1)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		subID, states := s.loop.Subscribe()
		defer s.loop.Unsubscribe(subID)
		out := make(chan any, 16)

		// Writer goroutine.
		go func() {
			defer cancel()
			for {
				var v any
				select {
				case <-ctx.Done():
					return
				case st, ok := <-states:
					if !ok {
						return
					}
					v = protocol.NewStateMsg(st)
				case v = <-out:
				}
				if err := writeJSON(conn, v); err != nil {
					return
				}
			}
		}()

		limiter := rate.NewLimiter(rate.Limit(s.cfg.CommandRatePerSec), s.cfg.CommandBurst)

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			res, state := s.handleMessage(ctx, limiter, msg)
			if res == nil {
				continue
			}
			if !s.enqueue(ctx, out, *res) {
				break
			}
			if state != nil && !s.enqueue(ctx, out, protocol.NewStateMsg(*state)) {
				break
			}
		}
		s.log.Printf("session %s closed", sessionID)
	}
}

func (s *Server) enqueue(ctx context.Context, out chan<- any, v any) bool {
	select {
	case out <- v:
		return true
	case <-ctx.Done():
		return false
	}
}

// handleMessage returns the RESULT to send back, plus a fresh state after a
// successful command. Non-CMD messages are ignored.
func (s *Server) handleMessage(ctx context.Context, limiter *rate.Limiter, msg []byte) (*protocol.ResultMsg, *economy.StateView) {
	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeCmd {
		return nil, nil
	}
	var cmd protocol.CmdMsg
	if err := json.Unmarshal(msg, &cmd); err != nil {
		return rejected(cmd, protocol.ErrProtoBadRequest, "malformed CMD"), nil
	}
	if cmd.ProtocolVersion != protocol.Version {
		return rejected(cmd, protocol.ErrProtoBadRequest, "bad protocol_version"), nil
	}
	if !limiter.Allow() {
		return rejected(cmd, protocol.ErrRateLimit, "too many commands"), nil
	}
	return s.Execute(ctx, cmd)
}

// Execute runs cmd on the scheduler loop. The returned state is set only
// when the command succeeded. A command is applied at most once: if the
// caller gives up before the loop picks it up, it is skipped and reported as
// E_INTERNAL; once the loop has started it, its real outcome is returned.
func (s *Server) Execute(ctx context.Context, cmd protocol.CmdMsg) (*protocol.ResultMsg, *economy.StateView) {
	type outcome struct {
		res   protocol.ResultMsg
		state *economy.StateView
	}
	const (
		queued int32 = iota
		taken
		abandoned
	)
	var claim atomic.Int32
	done := make(chan outcome, 1)
	err := s.loop.Do(ctx, func(e *economy.Engine) error {
		if !claim.CompareAndSwap(queued, taken) {
			return nil
		}
		res, cmdErr := cmd.Execute(e)
		o := outcome{res: res}
		if cmdErr == nil {
			st := e.Snapshot()
			o.state = &st
		}
		done <- o
		return cmdErr
	})
	select {
	case o := <-done:
		return &o.res, o.state
	default:
	}
	if claim.CompareAndSwap(queued, abandoned) {
		// The loop never ran the command and now never will.
		return rejected(cmd, protocol.ErrInternal, fmt.Sprint(err)), nil
	}
	o := <-done
	return &o.res, o.state
}

func rejected(cmd protocol.CmdMsg, code, message string) *protocol.ResultMsg {
	return &protocol.ResultMsg{
		Type:            protocol.TypeResult,
		ProtocolVersion: protocol.Version,
		ID:              cmd.ID,
		Cmd:             cmd.Cmd,
		Code:            code,
		Message:         message,
	}
}

func (s *Server) handshake(conn *websocket.Conn) (sessionID string, ok bool) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", false
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return "", false
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return "", false
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return "", false
	}

	sessionID = fmt.Sprintf("S%06d", s.sessions.Add(1))
	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       sessionID,
		Params: protocol.ServerParams{
			TickIntervalMs:      int(s.loop.TickInterval() / time.Millisecond),
			StatePushEveryTicks: s.cfg.StatePushEveryTicks,
			CommandRatePerSec:   s.cfg.CommandRatePerSec,
			CommandBurst:        s.cfg.CommandBurst,
		},
	}
	if s.cat != nil {
		welcome.Catalog = protocol.CatalogRef{Digest: s.cat.Digest, Pastries: len(s.cat.Pastries)}
	}
	if err := writeJSON(conn, welcome); err != nil {
		return "", false
	}

	// Send the current state immediately.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	st, err := s.loop.State(ctx)
	if err != nil {
		s.log.Printf("session %s: initial state: %v", sessionID, err)
		return "", false
	}
	if err := writeJSON(conn, protocol.NewStateMsg(st)); err != nil {
		return "", false
	}
	name := hello.ClientName
	if name == "" {
		name = "client"
	}
	s.log.Printf("session %s opened (%s)", sessionID, name)
	return sessionID, true
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
