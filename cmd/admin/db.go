package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"idlebakery.ai/internal/persistence/indexdb"
)

// dbCmd queries the server's sqlite index offline: snapshots, audits,
// counts or catalogs.
func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	dbPath := fs.String("db", "", "sqlite db path (optional; defaults to <data>/index/index.db)")
	limit := fs.Int("limit", 20, "result limit (audits)")
	pastryID := fs.Int("pastry", 0, "pastry id filter (audits)")
	_ = fs.Parse(args)

	q := "snapshots"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		path = filepath.Join(*dataDir, "index", "index.db")
	}
	if _, err := os.Stat(path); err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	idx, err := indexdb.OpenSQLite(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer idx.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := runQuery(ctx, idx, q, *pastryID, *limit, printJSON); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runQuery(ctx context.Context, idx *indexdb.SQLiteIndex, q string, pastryID, limit int, emit func(any)) error {
	switch q {
	case "snapshots":
		rows, err := idx.Snapshots(ctx)
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}
		for _, r := range rows {
			emit(r)
		}
	case "audits":
		rows, err := idx.RecentAudits(ctx, pastryID, limit)
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}
		for _, r := range rows {
			emit(r)
		}
	case "counts":
		counts, err := idx.ActionCounts(ctx)
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}
		emit(counts)
	case "catalogs":
		out := map[string]string{}
		for _, name := range []string{"pastries", "tuning"} {
			d, err := idx.CatalogDigest(ctx, name)
			if err != nil {
				return fmt.Errorf("query: %w", err)
			}
			out[name] = d
		}
		emit(out)
	default:
		return fmt.Errorf("unknown query %q (want snapshots|audits|counts|catalogs)", q)
	}
	return nil
}

func printJSON(v any) {
	b, _ := json.Marshal(v)
	fmt.Println(string(b))
}
