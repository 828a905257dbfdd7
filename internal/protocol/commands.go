package protocol

import (
	"errors"
	"fmt"

	"idlebakery.ai/internal/sim/economy"
)

const (
	CmdLevelUp    = "LEVEL_UP"
	CmdBuyUpgrade = "BUY_UPGRADE"
	CmdStartBuild = "START_BUILD"
	CmdStopBuild  = "STOP_BUILD"
	CmdClearSave  = "CLEAR_SAVE"
)

var ErrBadCommand = errors.New("bad command")

// CMD (client -> server). Also the body of POST /v1/commands.
type CmdMsg struct {
	Type            string `json:"type,omitempty"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
	ID              string `json:"id,omitempty"`
	Cmd             string `json:"cmd"`
	PastryID        int    `json:"pastry_id,omitempty"`
	UpgradeID       int    `json:"upgrade_id,omitempty"`
}

func (c CmdMsg) Validate() error {
	switch c.Cmd {
	case CmdLevelUp, CmdStartBuild, CmdStopBuild:
		if c.PastryID <= 0 {
			return fmt.Errorf("%s: missing pastry_id: %w", c.Cmd, ErrBadCommand)
		}
	case CmdBuyUpgrade:
		if c.PastryID <= 0 || c.UpgradeID <= 0 {
			return fmt.Errorf("%s: missing pastry_id or upgrade_id: %w", c.Cmd, ErrBadCommand)
		}
	case CmdClearSave:
	case "":
		return fmt.Errorf("missing cmd: %w", ErrBadCommand)
	default:
		return fmt.Errorf("unknown cmd %q: %w", c.Cmd, ErrBadCommand)
	}
	return nil
}

// Execute validates c and applies it to e. It must run on the goroutine
// that owns e.
func (c CmdMsg) Execute(e *economy.Engine) (ResultMsg, error) {
	if err := c.Validate(); err != nil {
		return ResultFor(c, err), err
	}
	var (
		err    error
		earned int
	)
	switch c.Cmd {
	case CmdLevelUp:
		err = e.LevelUp(c.PastryID)
	case CmdBuyUpgrade:
		err = e.BuyUpgrade(c.PastryID, c.UpgradeID)
	case CmdStartBuild:
		err = e.StartBuild(c.PastryID)
	case CmdStopBuild:
		if _, ok := e.Pastry(c.PastryID); !ok {
			err = fmt.Errorf("stop build %d: %w", c.PastryID, economy.ErrUnknownPastry)
		} else {
			e.StopBuild(c.PastryID)
		}
	case CmdClearSave:
		earned = e.ClearSave()
	}
	r := ResultFor(c, err)
	r.Tick = e.CurrentTick()
	r.Earned = earned
	return r, err
}
