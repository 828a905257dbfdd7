package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/gorilla/websocket"

	"idlebakery.ai/internal/protocol"
	"idlebakery.ai/internal/sim/bignum"
	"idlebakery.ai/internal/sim/economy"
)

func main() {
	var (
		url  = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name = flag.String("name", "bot", "client name")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ClientName:      *name,
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	b := &bot{}
	for {
		select {
		case <-stop:
			return
		default:
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeWelcome:
			var w protocol.WelcomeMsg
			if err := json.Unmarshal(msg, &w); err != nil {
				continue
			}
			logger.Printf("WELCOME session=%s tick_ms=%d pastries=%d", w.SessionID, w.Params.TickIntervalMs, w.Catalog.Pastries)

		case protocol.TypeState:
			var st protocol.StateMsg
			if err := json.Unmarshal(msg, &st); err != nil {
				continue
			}
			if cmd, ok := b.next(st.State); ok {
				_ = conn.WriteJSON(cmd)
			}

		case protocol.TypeResult:
			var r protocol.ResultMsg
			if err := json.Unmarshal(msg, &r); err != nil {
				continue
			}
			b.pending = false
			if !r.OK {
				logger.Printf("%s %s: %s", r.ID, r.Cmd, r.Code)
			}
		}
	}
}

// bot issues at most one command per observed state and waits for its
// RESULT before sending another.
type bot struct {
	seq     int
	pending bool
}

// next picks the bot's move: buy any affordable upgrade, then the cheapest
// affordable level, then start idle manual bakes.
func (b *bot) next(st economy.StateView) (protocol.CmdMsg, bool) {
	if b.pending {
		return protocol.CmdMsg{}, false
	}
	cmd, ok := choose(st)
	if !ok {
		return cmd, false
	}
	b.seq++
	cmd.Type = protocol.TypeCmd
	cmd.ProtocolVersion = protocol.Version
	cmd.ID = fmt.Sprintf("B%d", b.seq)
	b.pending = true
	return cmd, true
}

func choose(st economy.StateView) (protocol.CmdMsg, bool) {
	for _, p := range st.Pastries {
		for _, u := range p.Upgrades {
			if u.Affordable {
				return protocol.CmdMsg{Cmd: protocol.CmdBuyUpgrade, PastryID: p.ID, UpgradeID: u.ID}, true
			}
		}
	}

	best := -1
	for i, p := range st.Pastries {
		if !p.CanLevelUp {
			continue
		}
		if best < 0 || bignum.Compare(p.NextCost, st.Pastries[best].NextCost) < 0 {
			best = i
		}
	}
	if best >= 0 {
		return protocol.CmdMsg{Cmd: protocol.CmdLevelUp, PastryID: st.Pastries[best].ID}, true
	}

	for _, p := range st.Pastries {
		if p.Level > 0 && !p.Automation && !p.Building {
			return protocol.CmdMsg{Cmd: protocol.CmdStartBuild, PastryID: p.ID}, true
		}
	}
	return protocol.CmdMsg{}, false
}
