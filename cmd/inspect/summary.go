package main

import (
	"fmt"
	"io"
	"math"
	"sort"

	persistlog "idlebakery.ai/internal/persistence/log"
	"idlebakery.ai/internal/persistence/snapshot"
	"idlebakery.ai/internal/sim/bignum"
	"idlebakery.ai/internal/sim/economy"
	"idlebakery.ai/internal/sim/scheduler"
)

type auditSummary struct {
	Files     int
	Entries   int
	ByAction  map[string]int
	Earned    bignum.Number
	Spent     bignum.Number
	Lessons   int
	FirstTick uint64
	LastTick  uint64
	LastMoney bignum.Number
	// Levels holds the highest level seen per pastry since the last reset.
	Levels map[int]int
}

func summarizeAudit(files []string, fromTick, toTick uint64) (auditSummary, error) {
	s := auditSummary{Files: len(files), ByAction: map[string]int{}, Levels: map[int]int{}}
	for _, path := range files {
		err := persistlog.ReadJSONL(path, func(e economy.AuditEntry) error {
			if e.Tick < fromTick || (toTick != 0 && e.Tick > toTick) {
				return nil
			}
			if s.Entries == 0 {
				s.FirstTick = e.Tick
			}
			s.Entries++
			s.ByAction[e.Action]++
			s.LastTick = e.Tick
			s.LastMoney = e.Money
			switch e.Action {
			case economy.AuditBuild, economy.AuditEarn:
				s.Earned = bignum.Add(s.Earned, e.Amount)
			case economy.AuditLevelUp, economy.AuditBuyUpgrade:
				s.Spent = bignum.Add(s.Spent, e.Amount)
			case economy.AuditReset:
				s.Lessons += int(math.Round(e.Amount.Float64()))
				s.Levels = map[int]int{}
			case economy.AuditRestore:
				s.Levels = map[int]int{}
			}
			if e.PastryID != 0 && e.Level > s.Levels[e.PastryID] {
				s.Levels[e.PastryID] = e.Level
			}
			return nil
		})
		if err != nil {
			return s, err
		}
	}
	return s, nil
}

func (s auditSummary) print(w io.Writer) {
	fmt.Fprintf(w, "audit: files=%d entries=%d ticks=%d..%d\n", s.Files, s.Entries, s.FirstTick, s.LastTick)
	actions := make([]string, 0, len(s.ByAction))
	for a := range s.ByAction {
		actions = append(actions, a)
	}
	sort.Strings(actions)
	for _, a := range actions {
		fmt.Fprintf(w, "  %-15s %d\n", a, s.ByAction[a])
	}
	fmt.Fprintf(w, "  earned=%s spent=%s life_lessons+%d last_money=%s\n", s.Earned, s.Spent, s.Lessons, s.LastMoney)
	ids := make([]int, 0, len(s.Levels))
	for id := range s.Levels {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		fmt.Fprintf(w, "  pastry %d reached level %d\n", id, s.Levels[id])
	}
}

type tickSummary struct {
	Entries   int
	Commands  int
	Completed int
	LastTick  uint64
	LastMoney string
}

func summarizeTicks(files []string) (tickSummary, error) {
	var s tickSummary
	for _, path := range files {
		err := persistlog.ReadJSONL(path, func(e scheduler.TickEntry) error {
			s.Entries++
			s.Commands += e.Commands
			s.Completed += e.Completed
			s.LastTick = e.Tick
			s.LastMoney = e.Money
			return nil
		})
		if err != nil {
			return s, err
		}
	}
	return s, nil
}

func printSnapshot(w io.Writer, snap snapshot.SnapshotV1) {
	h := snap.Header
	fmt.Fprintf(w, "snapshot v%d save_key=%s tick=%d generation=%d catalog=%s created=%s\n",
		h.Version, h.SaveKey, h.Tick, h.Generation, h.CatalogDigest, h.CreatedAt)
	st := snap.State
	fmt.Fprintf(w, "  money=%s life_lessons=%d pastries=%d\n", st.Money, st.LifeLessons, len(st.Pastries))
	for _, p := range st.Pastries {
		bought := 0
		for _, u := range p.Upgrades {
			if u.Purchased {
				bought++
			}
		}
		fmt.Fprintf(w, "  pastry %d level=%d upgrades=%d/%d\n", p.ID, p.Level, bought, len(p.Upgrades))
	}
}

// checkLevels reports pastries whose audited level disagrees with the snapshot.
func checkLevels(snap snapshot.SnapshotV1, s auditSummary) []string {
	var out []string
	for _, p := range snap.State.Pastries {
		if lvl, ok := s.Levels[p.ID]; ok && lvl != p.Level {
			out = append(out, fmt.Sprintf("pastry %d: audit level %d, snapshot level %d", p.ID, lvl, p.Level))
		}
	}
	return out
}
