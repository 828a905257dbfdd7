package main

import (
	"bytes"
	"strings"
	"testing"

	persistlog "idlebakery.ai/internal/persistence/log"
	"idlebakery.ai/internal/persistence/snapshot"
	"idlebakery.ai/internal/sim/bignum"
	"idlebakery.ai/internal/sim/catalogs"
	"idlebakery.ai/internal/sim/economy"
	"idlebakery.ai/internal/sim/scheduler"
)

func TestSummaries_FromLiveLogs(t *testing.T) {
	dir := t.TempDir()
	audit := persistlog.NewAuditLogger(dir)
	ticks := persistlog.NewTickLogger(dir)

	e := economy.New(economy.DefaultConfig(), catalogs.Default(), nil)
	e.SetAuditLogger(audit)
	loop := scheduler.New(scheduler.Config{}, e, nil)
	loop.SetTickLogger(ticks)

	e.AddMoney(bignum.New(1, 3))
	if err := e.LevelUp(1); err != nil {
		t.Fatalf("level up: %v", err)
	}
	if err := e.LevelUp(1); err != nil {
		t.Fatalf("level up: %v", err)
	}
	if err := e.StartBuild(1); err != nil {
		t.Fatalf("start: %v", err)
	}
	for i := 0; i < 20; i++ {
		loop.Step()
	}
	_ = audit.Close()
	_ = ticks.Close()

	files, err := audit.Files()
	if err != nil || len(files) == 0 {
		t.Fatalf("audit files: %v %v", files, err)
	}
	s, err := summarizeAudit(files, 0, 0)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if s.ByAction[economy.AuditLevelUp] != 2 || s.ByAction[economy.AuditBuild] != 1 || s.Levels[1] != 3 {
		t.Fatalf("unexpected summary: %+v", s)
	}
	if bignum.Compare(s.LastMoney, e.Money()) != 0 {
		t.Fatalf("last money %s, engine %s", s.LastMoney, e.Money())
	}
	var out bytes.Buffer
	s.print(&out)
	if !strings.Contains(out.String(), "pastry 1 reached level 3") {
		t.Fatalf("unexpected print:\n%s", out.String())
	}

	tfiles, _ := ticks.Files()
	ts, err := summarizeTicks(tfiles)
	if err != nil {
		t.Fatalf("ticks: %v", err)
	}
	if ts.Completed != 1 || ts.LastTick != 20 {
		t.Fatalf("unexpected tick summary: %+v", ts)
	}

	snap := snapshot.SnapshotV1{State: e.Export()}
	if bad := checkLevels(snap, s); len(bad) != 0 {
		t.Fatalf("unexpected mismatches: %v", bad)
	}
	snap.State.Pastries[0].Level = 9
	if bad := checkLevels(snap, s); len(bad) != 1 {
		t.Fatalf("expected one mismatch, got %v", bad)
	}
}

func TestSummarizeAudit_ResetClearsLevels(t *testing.T) {
	dir := t.TempDir()
	audit := persistlog.NewAuditLogger(dir)
	e := economy.New(economy.DefaultConfig(), catalogs.Default(), nil)
	e.SetAuditLogger(audit)
	e.AddMoney(bignum.New(1, 2))
	_ = e.LevelUp(1)
	e.ClearSave()
	_ = audit.Close()

	files, _ := audit.Files()
	s, err := summarizeAudit(files, 0, 0)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if len(s.Levels) != 0 || s.ByAction[economy.AuditReset] != 1 {
		t.Fatalf("reset should clear tracked levels: %+v", s)
	}
}
