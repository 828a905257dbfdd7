package indexdb

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"lukechampine.com/blake3"
	_ "modernc.org/sqlite"

	"idlebakery.ai/internal/persistence/snapshot"
	"idlebakery.ai/internal/sim/catalogs"
	"idlebakery.ai/internal/sim/economy"
	"idlebakery.ai/internal/sim/scheduler"
	"idlebakery.ai/internal/sim/tuning"
)

// SQLiteIndex is a queryable read model of the audit trail, the tick log and
// written snapshots. Writes are queued and applied in batches by one
// goroutine; a full queue drops rows since the JSONL logs stay authoritative.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed  atomic.Bool
	dropped atomic.Uint64

	commitEvery   int
	commitMaxWait time.Duration
}

type reqKind int

const (
	reqTick reqKind = iota + 1
	reqAudit
	reqSnapshot
)

type req struct {
	kind reqKind

	tick     scheduler.TickEntry
	audit    economy.AuditEntry
	snapshot snapshotRow
}

type snapshotRow struct {
	Tick       uint64
	Generation uint64
	Path       string
	SaveKey    string
	Money      string
	Pastries   int
	Levels     int
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	return openSQLite(path, 4096, 2000, 2*time.Second)
}

func openSQLite(path string, queue, commitEvery int, commitMaxWait time.Duration) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db:            db,
		ch:            make(chan req, queue),
		commitEvery:   commitEvery,
		commitMaxWait: commitMaxWait,
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS ticks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tick INTEGER NOT NULL,
			generation INTEGER NOT NULL,
			commands INTEGER NOT NULL,
			completed INTEGER NOT NULL,
			money TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_ticks_tick ON ticks(tick);`,
		`CREATE TABLE IF NOT EXISTS audits (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tick INTEGER NOT NULL,
			action TEXT NOT NULL,
			pastry_id INTEGER NOT NULL,
			upgrade_id INTEGER NOT NULL,
			level INTEGER NOT NULL,
			amount TEXT NOT NULL,
			money TEXT NOT NULL,
			reason TEXT,
			raw_json TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_audits_action ON audits(action, id);`,
		`CREATE INDEX IF NOT EXISTS idx_audits_pastry ON audits(pastry_id, id);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			path TEXT PRIMARY KEY,
			tick INTEGER NOT NULL,
			generation INTEGER NOT NULL,
			save_key TEXT NOT NULL,
			money TEXT NOT NULL,
			pastries INTEGER NOT NULL,
			levels INTEGER NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// Dropped reports rows discarded because the queue was full.
func (s *SQLiteIndex) Dropped() uint64 {
	if s == nil {
		return 0
	}
	return s.dropped.Load()
}

func (s *SQLiteIndex) enqueue(r req) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- r:
	default:
		s.dropped.Add(1)
	}
}

func (s *SQLiteIndex) WriteTick(entry scheduler.TickEntry) error {
	s.enqueue(req{kind: reqTick, tick: entry})
	return nil
}

func (s *SQLiteIndex) WriteAudit(entry economy.AuditEntry) error {
	s.enqueue(req{kind: reqAudit, audit: entry})
	return nil
}

func (s *SQLiteIndex) RecordSnapshot(path string, snap snapshot.SnapshotV1) {
	r := snapshotRow{
		Tick:       snap.Header.Tick,
		Generation: snap.Header.Generation,
		Path:       path,
		SaveKey:    snap.Header.SaveKey,
		Money:      snap.State.Money.String(),
		Pastries:   len(snap.State.Pastries),
	}
	for _, p := range snap.State.Pastries {
		r.Levels += p.Level
	}
	s.enqueue(req{kind: reqSnapshot, snapshot: r})
}

// UpsertCatalogs records the catalog and tuning actually applied at startup.
func (s *SQLiteIndex) UpsertCatalogs(cat *catalogs.Catalog, tune tuning.Tuning) error {
	if s == nil {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	type row struct {
		name   string
		digest string
		json   []byte
	}
	var rows []row
	if cat != nil {
		if b, err := json.Marshal(cat.Pastries); err == nil {
			rows = append(rows, row{name: "pastries", digest: cat.Digest, json: b})
		}
	}
	if b, err := json.Marshal(tune); err == nil {
		sum := blake3.Sum256(b)
		rows = append(rows, row{name: "tuning", digest: hex.EncodeToString(sum[:]), json: b})
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if _, err := stmt.Exec(r.name, r.digest, string(r.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertTick, _ := s.db.Prepare(`INSERT INTO ticks(tick,generation,commands,completed,money) VALUES(?,?,?,?,?)`)
	insertAudit, _ := s.db.Prepare(`INSERT INTO audits(tick,action,pastry_id,upgrade_id,level,amount,money,reason,raw_json) VALUES(?,?,?,?,?,?,?,?,?)`)
	insertSnapshot, _ := s.db.Prepare(`INSERT OR REPLACE INTO snapshots(path,tick,generation,save_key,money,pastries,levels) VALUES(?,?,?,?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertTick, insertAudit, insertSnapshot} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx      *sql.Tx
		opCount int
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
	}
	exec := func(st *sql.Stmt, args ...any) {
		if st == nil || tx == nil {
			return
		}
		if _, err := tx.Stmt(st).Exec(args...); err != nil {
			rollback()
			return
		}
		opCount++
	}

	flush := time.NewTicker(s.commitMaxWait)
	defer flush.Stop()

	for {
		var r req
		select {
		case <-flush.C:
			commit()
			continue
		case rr, ok := <-s.ch:
			if !ok {
				commit()
				return
			}
			r = rr
		}
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqTick:
			t := r.tick
			exec(insertTick, int64(t.Tick), int64(t.Generation), t.Commands, t.Completed, t.Money)

		case reqAudit:
			a := r.audit
			raw, _ := json.Marshal(a)
			exec(insertAudit, int64(a.Tick), a.Action, a.PastryID, a.UpgradeID, a.Level,
				a.Amount.String(), a.Money.String(), a.Reason, string(raw))

		case reqSnapshot:
			sn := r.snapshot
			exec(insertSnapshot, sn.Path, int64(sn.Tick), int64(sn.Generation), sn.SaveKey, sn.Money, sn.Pastries, sn.Levels)
		}
		if opCount >= s.commitEvery {
			commit()
		}
	}
}
