package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/sahilm/fuzzy"

	"idlebakery.ai/internal/protocol"
	"idlebakery.ai/internal/sim/economy"
	"idlebakery.ai/internal/sim/scheduler"
)

// pastryNames implements fuzzy.Source over the live pastry list.
type pastryNames []economy.Pastry

func (p pastryNames) String(i int) string { return p[i].Name }
func (p pastryNames) Len() int            { return len(p) }

// console drives the engine from one goroutine: commands run directly on
// the engine and time only moves through loop.Step.
type console struct {
	eng  *economy.Engine
	loop *scheduler.Loop
	out  io.Writer
	seq  int
}

func newConsole(eng *economy.Engine, loop *scheduler.Loop, out io.Writer) *console {
	return &console{eng: eng, loop: loop, out: out}
}

func (c *console) Run(in io.Reader) {
	sc := bufio.NewScanner(in)
	fmt.Fprint(c.out, "> ")
	for sc.Scan() {
		if !c.exec(sc.Text()) {
			return
		}
		fmt.Fprint(c.out, "> ")
	}
}

// exec runs one line. It returns false when the session should end.
func (c *console) exec(line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return true
	}
	verb, args := strings.ToLower(fields[0]), fields[1:]
	switch verb {
	case "quit", "exit":
		return false
	case "help", "?":
		c.help()
	case "state", "s":
		c.printState()
	case "level", "l":
		c.pastryCmd(protocol.CmdLevelUp, args)
	case "start", "bake":
		c.pastryCmd(protocol.CmdStartBuild, args)
	case "stop":
		c.pastryCmd(protocol.CmdStopBuild, args)
	case "buy", "b":
		c.buy(args)
	case "wait", "w":
		c.wait(args)
	case "reset":
		c.run(protocol.CmdMsg{Cmd: protocol.CmdClearSave})
	default:
		fmt.Fprintf(c.out, "unknown command %q (try help)\n", verb)
	}
	return true
}

func (c *console) help() {
	fmt.Fprint(c.out, `commands:
  state                   show money and pastries
  level <pastry>          buy one level
  start <pastry>          start a manual bake
  stop <pastry>           cancel a manual bake
  buy <pastry> <upgrade>  buy an upgrade by id
  wait <duration>         advance time, e.g. wait 2s
  reset                   clear the save for life lessons
  quit
pastries can be given by id or (partial) name
`)
}

// resolve maps an id or a fuzzy name to a pastry id.
func (c *console) resolve(args []string) (int, bool) {
	if len(args) == 0 {
		fmt.Fprintln(c.out, "missing pastry")
		return 0, false
	}
	query := strings.Join(args, " ")
	if id, err := strconv.Atoi(query); err == nil {
		return id, true
	}
	var src pastryNames
	for _, id := range c.eng.PastryIDs() {
		if p, ok := c.eng.Pastry(id); ok {
			src = append(src, p)
		}
	}
	matches := fuzzy.FindFrom(query, src)
	if len(matches) == 0 {
		fmt.Fprintf(c.out, "no pastry matches %q\n", query)
		return 0, false
	}
	return src[matches[0].Index].ID, true
}

func (c *console) pastryCmd(name string, args []string) {
	id, ok := c.resolve(args)
	if !ok {
		return
	}
	c.run(protocol.CmdMsg{Cmd: name, PastryID: id})
}

func (c *console) buy(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(c.out, "usage: buy <pastry> <upgrade-id>")
		return
	}
	upgradeID, err := strconv.Atoi(args[len(args)-1])
	if err != nil {
		fmt.Fprintf(c.out, "bad upgrade id %q\n", args[len(args)-1])
		return
	}
	id, ok := c.resolve(args[:len(args)-1])
	if !ok {
		return
	}
	c.run(protocol.CmdMsg{Cmd: protocol.CmdBuyUpgrade, PastryID: id, UpgradeID: upgradeID})
}

func (c *console) run(cmd protocol.CmdMsg) {
	c.seq++
	cmd.Type = protocol.TypeCmd
	cmd.ProtocolVersion = protocol.Version
	cmd.ID = fmt.Sprintf("K%d", c.seq)
	res, _ := cmd.Execute(c.eng)
	switch {
	case !res.OK:
		fmt.Fprintf(c.out, "%s: %s (%s)\n", cmd.Cmd, res.Code, res.Message)
	case cmd.Cmd == protocol.CmdClearSave:
		fmt.Fprintf(c.out, "reset: +%d life lessons (total %d)\n", res.Earned, c.eng.LifeLessons())
	default:
		fmt.Fprintf(c.out, "%s ok; money %s\n", cmd.Cmd, c.eng.Money())
	}
}

func (c *console) wait(args []string) {
	d := time.Second
	if len(args) > 0 {
		v, err := time.ParseDuration(args[0])
		if err != nil || v <= 0 {
			fmt.Fprintf(c.out, "bad duration %q\n", args[0])
			return
		}
		d = v
	}
	before := c.loop.Metrics().BuildsCompletedTotal
	steps := int(d / c.loop.TickInterval())
	for i := 0; i < steps; i++ {
		c.loop.Step()
	}
	done := c.loop.Metrics().BuildsCompletedTotal - before
	fmt.Fprintf(c.out, "waited %s (%d ticks): %d bakes sold; money %s\n", d, steps, done, c.eng.Money())
}

func (c *console) printState() {
	st := c.eng.Snapshot()
	fmt.Fprintf(c.out, "money %s  levels %d  life lessons %d  generation %d\n",
		st.MoneyDisplay, st.TotalLevels, st.LifeLessons, st.Generation)
	for _, p := range st.Pastries {
		status := "idle"
		switch {
		case p.Automation:
			status = fmt.Sprintf("auto %3.0f%%", p.Progress)
		case p.Building:
			status = fmt.Sprintf("baking %3.0f%%", p.Progress)
		}
		fmt.Fprintf(c.out, "  [%d] %-14s lvl %-4d next %-8s earns %-8s %s\n",
			p.ID, p.Name, p.Level, p.NextCostDisplay, p.EarningsDisplay, status)
		for _, u := range p.Upgrades {
			if u.Purchased || !u.Unlocked {
				continue
			}
			fmt.Fprintf(c.out, "      upgrade %d %s (%s) %s\n", u.ID, u.Name, u.Type, u.CostDisplay)
		}
	}
}
