package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"idlebakery.ai/internal/sim/bignum"
	"idlebakery.ai/internal/sim/catalogs"
	"idlebakery.ai/internal/sim/economy"
	"idlebakery.ai/internal/sim/scheduler"
)

func newTestConsole(t *testing.T) (*console, *bytes.Buffer) {
	t.Helper()
	eng := economy.New(economy.DefaultConfig(), catalogs.Default(), nil)
	loop := scheduler.New(scheduler.Config{TickInterval: 50 * time.Millisecond}, eng, nil)
	var out bytes.Buffer
	return newConsole(eng, loop, &out), &out
}

func TestResolve_IDAndFuzzyName(t *testing.T) {
	c, out := newTestConsole(t)
	cases := map[string]int{
		"3":       3,
		"bread":   1,
		"crois":   2,
		"wedding": 5,
		"chscake": 4,
	}
	for q, want := range cases {
		got, ok := c.resolve(strings.Fields(q))
		if !ok || got != want {
			t.Fatalf("resolve(%q) = %d,%v want %d (out=%q)", q, got, ok, want, out.String())
		}
	}
	if _, ok := c.resolve([]string{"zzzz"}); ok {
		t.Fatalf("expected no match")
	}
}

func TestExec_BakeAndWait(t *testing.T) {
	c, out := newTestConsole(t)
	c.exec("start bread")
	if !c.eng.Building(1) {
		t.Fatalf("expected bread to be baking: %s", out.String())
	}
	c.exec("wait 1s")
	if !strings.Contains(out.String(), "1 bakes sold") {
		t.Fatalf("expected one completed bake: %s", out.String())
	}
	if bignum.Compare(c.eng.Money(), bignum.New(1, 0)) != 0 {
		t.Fatalf("expected money 1, got %s", c.eng.Money())
	}
}

func TestExec_ReportsRejections(t *testing.T) {
	c, out := newTestConsole(t)
	c.exec("level bread")
	if !strings.Contains(out.String(), "E_NO_FUNDS") {
		t.Fatalf("expected E_NO_FUNDS: %s", out.String())
	}
	out.Reset()
	c.exec("buy bread 105")
	if !strings.Contains(out.String(), "E_LOCKED") {
		t.Fatalf("expected E_LOCKED: %s", out.String())
	}
	out.Reset()
	c.exec("wait forever")
	if !strings.Contains(out.String(), "bad duration") {
		t.Fatalf("expected bad duration: %s", out.String())
	}
	out.Reset()
	c.exec("dance")
	if !strings.Contains(out.String(), "unknown command") {
		t.Fatalf("expected unknown command: %s", out.String())
	}
}

func TestExec_LevelBuyAndState(t *testing.T) {
	c, out := newTestConsole(t)
	c.eng.AddMoney(bignum.New(1, 3))
	c.exec("level 1")
	c.exec("buy bread 101")
	if p, _ := c.eng.Pastry(1); p.Level != 2 || p.SellMultiplier != 2 {
		t.Fatalf("unexpected bread after level+buy: %+v\n%s", p, out.String())
	}
	out.Reset()
	c.exec("state")
	if !strings.Contains(out.String(), "Bread Loaf") || !strings.Contains(out.String(), "lvl 2") {
		t.Fatalf("state missing bread at level 2:\n%s", out.String())
	}
	if strings.Contains(out.String(), "upgrade 101") || strings.Contains(out.String(), "upgrade 102") {
		t.Fatalf("state should hide purchased and locked upgrades:\n%s", out.String())
	}
}

func TestRun_StopsOnQuit(t *testing.T) {
	c, out := newTestConsole(t)
	c.Run(strings.NewReader("help\nquit\nlevel bread\n"))
	if strings.Contains(out.String(), "E_NO_FUNDS") {
		t.Fatalf("commands after quit should not run:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "commands:") {
		t.Fatalf("expected help text:\n%s", out.String())
	}
}
