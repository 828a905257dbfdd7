package main

import (
	"flag"
	"fmt"
	"os"

	persistlog "idlebakery.ai/internal/persistence/log"
	"idlebakery.ai/internal/persistence/snapshot"
)

func main() {
	var (
		snapPath = flag.String("snapshot", "", "path to .snap.zst (optional)")
		dataDir  = flag.String("data", "", "data dir containing audit/ and ticks/ logs (optional)")
		fromTick = flag.Uint64("from_tick", 0, "ignore audit entries before this tick")
		toTick   = flag.Uint64("to_tick", 0, "ignore audit entries after this tick (0 = no limit)")
	)
	flag.Parse()

	if *snapPath == "" && *dataDir == "" {
		fmt.Fprintln(os.Stderr, "need -snapshot and/or -data")
		os.Exit(2)
	}

	var snap *snapshot.SnapshotV1
	if *snapPath != "" {
		s, err := snapshot.Read(*snapPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "read snapshot:", err)
			os.Exit(1)
		}
		snap = &s
		printSnapshot(os.Stdout, s)
	}
	if *dataDir == "" {
		return
	}

	audit := persistlog.NewAuditLogger(*dataDir)
	files, err := audit.Files()
	_ = audit.Close()
	if err != nil {
		fmt.Fprintln(os.Stderr, "list audit logs:", err)
		os.Exit(1)
	}
	sum, err := summarizeAudit(files, *fromTick, *toTick)
	if err != nil {
		fmt.Fprintln(os.Stderr, "audit:", err)
		os.Exit(1)
	}
	sum.print(os.Stdout)

	ticks := persistlog.NewTickLogger(*dataDir)
	tfiles, err := ticks.Files()
	_ = ticks.Close()
	if err == nil && len(tfiles) > 0 {
		ts, err := summarizeTicks(tfiles)
		if err != nil {
			fmt.Fprintln(os.Stderr, "ticks:", err)
			os.Exit(1)
		}
		fmt.Printf("ticks: entries=%d commands=%d bakes=%d last_tick=%d last_money=%s\n",
			ts.Entries, ts.Commands, ts.Completed, ts.LastTick, ts.LastMoney)
	}

	if snap != nil {
		if bad := checkLevels(*snap, sum); len(bad) > 0 {
			for _, b := range bad {
				fmt.Println("mismatch:", b)
			}
			os.Exit(1)
		}
		fmt.Println("levels ok")
	}
}
