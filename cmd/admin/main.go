package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"idlebakery.ai/internal/persistence/kv"
	"idlebakery.ai/internal/persistence/save"
	"idlebakery.ai/internal/persistence/snapshot"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "restore":
			restoreCmd(os.Args[2:])
			return
		case "db":
			dbCmd(os.Args[2:])
			return
		case "state":
			stateCmd(os.Args[2:])
			return
		case "snapshot":
			snapshotCmd(os.Args[2:])
			return
		case "audit":
			auditCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	_ = fs.Parse(args)

	snaps, err := listSnapshots(*dataDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	for _, s := range snaps {
		h, err := snapshot.ReadHeader(s.path)
		if err != nil {
			fmt.Printf("%s\tunreadable: %v\n", filepath.Base(s.path), err)
			continue
		}
		fmt.Printf("%s\ttick=%d generation=%d save_key=%s created=%s\n",
			filepath.Base(s.path), h.Tick, h.Generation, h.SaveKey, h.CreatedAt)
	}
}

// restoreCmd writes a snapshot's state into the save store. The server must
// be stopped; a running server would overwrite the restored blob.
func restoreCmd(args []string) {
	fs := flag.NewFlagSet("restore", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	storeKind := fs.String("store", kv.KindFile, "save store: file|sqlite|postgres")
	pgDSN := fs.String("pg_dsn", "", "postgres dsn (or set BAKERY_PG_DSN)")
	snapPath := fs.String("snapshot", "", "snapshot path (optional; defaults to latest)")
	saveKey := fs.String("save_key", "", "save key (optional; defaults to the snapshot's)")
	dryRun := fs.Bool("dry_run", false, "print what would be restored without writing")
	_ = fs.Parse(args)

	path := strings.TrimSpace(*snapPath)
	if path == "" {
		path = latestSnapshot(*dataDir)
	}
	if path == "" {
		fmt.Fprintln(os.Stderr, "no snapshot found; provide -snapshot or POST /admin/v1/snapshot first")
		os.Exit(2)
	}
	snap, err := snapshot.Read(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read snapshot:", err)
		os.Exit(1)
	}
	key := strings.TrimSpace(*saveKey)
	if key == "" {
		key = snap.Header.SaveKey
	}
	if key == "" {
		key = save.DefaultKey
	}
	if *dryRun {
		fmt.Printf("would restore snapshot=%s tick=%d money=%s into %s key=%s\n",
			filepath.Base(path), snap.Header.Tick, snap.State.Money, *storeKind, key)
		return
	}

	dsn := strings.TrimSpace(*pgDSN)
	if dsn == "" {
		dsn = strings.TrimSpace(os.Getenv("BAKERY_PG_DSN"))
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	store, err := kv.Open(ctx, kv.Options{Kind: *storeKind, Dir: *dataDir, DSN: dsn})
	if err != nil {
		fmt.Fprintln(os.Stderr, "open store:", err)
		os.Exit(1)
	}
	defer store.Close()

	if err := restoreSave(ctx, store, key, snap); err != nil {
		fmt.Fprintln(os.Stderr, "restore:", err)
		os.Exit(1)
	}
	fmt.Printf("restore ok: snapshot=%s tick=%d generation=%d key=%s money=%s\n",
		filepath.Base(path), snap.Header.Tick, snap.Header.Generation, key, snap.State.Money)
}

func restoreSave(ctx context.Context, store kv.Store, key string, snap snapshot.SnapshotV1) error {
	raw, err := save.Encode(snap.State)
	if err != nil {
		return err
	}
	return store.Set(ctx, key, raw)
}

type snapFile struct {
	path string
	tick uint64
}

// listSnapshots returns snapshot files under dataDir ordered by tick.
func listSnapshots(dataDir string) ([]snapFile, error) {
	dir := filepath.Join(dataDir, "snapshots")
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []snapFile
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".snap.zst") {
			continue
		}
		tick, err := strconv.ParseUint(strings.TrimSuffix(name, ".snap.zst"), 10, 64)
		if err != nil {
			continue
		}
		out = append(out, snapFile{path: filepath.Join(dir, name), tick: tick})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].tick < out[j].tick })
	return out, nil
}

func latestSnapshot(dataDir string) string {
	snaps, err := listSnapshots(dataDir)
	if err != nil || len(snaps) == 0 {
		return ""
	}
	return snaps[len(snaps)-1].path
}
