package protocol

import "idlebakery.ai/internal/sim/economy"

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ClientName      string `json:"client_name,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string       `json:"type"`
	ProtocolVersion string       `json:"protocol_version"`
	SessionID       string       `json:"session_id"`
	Params          ServerParams `json:"params"`
	Catalog         CatalogRef   `json:"catalog"`
}

type ServerParams struct {
	TickIntervalMs      int     `json:"tick_interval_ms"`
	StatePushEveryTicks int     `json:"state_push_every_ticks"`
	CommandRatePerSec   float64 `json:"command_rate_per_sec"`
	CommandBurst        int     `json:"command_burst"`
}

type CatalogRef struct {
	Digest   string `json:"digest"`
	Pastries int    `json:"pastries"`
}

// STATE (server -> client): a full economy view.
type StateMsg struct {
	Type            string            `json:"type"`
	ProtocolVersion string            `json:"protocol_version"`
	State           economy.StateView `json:"state"`
}

func NewStateMsg(v economy.StateView) StateMsg {
	return StateMsg{Type: TypeState, ProtocolVersion: Version, State: v}
}

// RESULT (server -> client): the outcome of one CMD.
type ResultMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id,omitempty"`
	Cmd             string `json:"cmd,omitempty"`
	OK              bool   `json:"ok"`
	Code            string `json:"code,omitempty"`
	Message         string `json:"message,omitempty"`
	Tick            uint64 `json:"tick,omitempty"`
	// Earned is set by CLEAR_SAVE: life lessons gained by the reset.
	Earned int `json:"earned,omitempty"`
}

// ResultFor builds the RESULT for cmd given its outcome.
func ResultFor(cmd CmdMsg, err error) ResultMsg {
	r := ResultMsg{Type: TypeResult, ProtocolVersion: Version, ID: cmd.ID, Cmd: cmd.Cmd, OK: err == nil}
	if err != nil {
		r.Code = CodeFor(err)
		r.Message = err.Error()
	}
	return r
}
