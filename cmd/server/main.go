package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"idlebakery.ai/internal/persistence/archive"
	"idlebakery.ai/internal/persistence/indexdb"
	"idlebakery.ai/internal/persistence/kv"
	persistlog "idlebakery.ai/internal/persistence/log"
	"idlebakery.ai/internal/persistence/save"
	"idlebakery.ai/internal/persistence/snapshot"
	"idlebakery.ai/internal/sim/bignum"
	"idlebakery.ai/internal/sim/catalogs"
	"idlebakery.ai/internal/sim/economy"
	"idlebakery.ai/internal/sim/scheduler"
	"idlebakery.ai/internal/sim/tuning"
	"idlebakery.ai/internal/transport/ws"
)

func main() {
	var (
		addr         = flag.String("addr", ":8080", "http listen address")
		configDir    = flag.String("configs", "./configs", "config directory")
		dataDir      = flag.String("data", "./data", "runtime data directory")
		tuningPath   = flag.String("tuning", "", "path to tuning.yaml or *.toml (default: <configs>/tuning.yaml)")
		storeKind    = flag.String("store", kv.KindFile, "save store: memory|file|sqlite|postgres")
		pgDSN        = flag.String("pg_dsn", "", "postgres dsn (or set BAKERY_PG_DSN) for -store=postgres")
		snapPath     = flag.String("snapshot", "", "path to snapshot to import at startup (optional)")
		disableAudit = flag.Bool("disable_audit", false, "disable audit and tick JSONL logs")
		disableDB    = flag.Bool("disable_db", false, "disable the sqlite audit/tick/snapshot index")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)
	_ = os.MkdirAll(*dataDir, 0o755)

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}
	if tune.MaxExponent != bignum.MaxExponent {
		logger.Printf("tuning max_exponent=%d ignored; numbers cap at 1e%d", tune.MaxExponent, bignum.MaxExponent)
	}

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}
	logger.Printf("catalog: %d pastries digest=%s", len(cats.Pastries), cats.Digest)

	ctx, cancel := signalContext()
	defer cancel()

	dsn := strings.TrimSpace(*pgDSN)
	if dsn == "" {
		dsn = strings.TrimSpace(os.Getenv("BAKERY_PG_DSN"))
	}
	saves, closeStore := openSaves(ctx, kv.Options{Kind: *storeKind, Dir: *dataDir, DSN: dsn}, tune.SaveKey, logger)
	defer closeStore()

	eng := economy.New(economy.ConfigFromTuning(tune), cats, logger)

	if p := strings.TrimSpace(*snapPath); p != "" {
		snap, err := snapshot.Read(p)
		if err != nil {
			logger.Fatalf("read snapshot: %v", err)
		}
		if snap.Header.CatalogDigest != "" && snap.Header.CatalogDigest != cats.Digest {
			logger.Printf("snapshot catalog digest %s differs from loaded catalog %s", snap.Header.CatalogDigest, cats.Digest)
		}
		eng.Restore(snap.State)
		saves.Save(eng.Export())
		logger.Printf("imported snapshot=%s tick=%d generation=%d", filepath.Base(p), snap.Header.Tick, snap.Header.Generation)
	} else if saves.Load(eng) {
		logger.Printf("loaded save %q: money=%s levels=%d", saves.Key(), eng.Money(), eng.TotalLevels())
	} else {
		logger.Printf("no usable save under %q; starting fresh", saves.Key())
	}
	eng.SetPersistence(saves)
	eng.SetResetHook(func(final economy.SaveState, tick, generation uint64) {
		path, err := archive.ArchiveGeneration(*dataDir, saves.Key(), cats.Digest, final, tick, generation)
		if err != nil {
			logger.Printf("archive generation %d: %v", generation, err)
			return
		}
		logger.Printf("archived generation=%d path=%s", generation, path)
	})

	loop := scheduler.New(scheduler.Config{
		TickInterval:        tune.TickInterval(),
		StatePushEveryTicks: tune.StatePushEveryTicks,
	}, eng, logger)

	// Optional read-model index; the JSONL logs stay authoritative.
	var idx *indexdb.SQLiteIndex
	if !*disableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(*dataDir, "index", "index.db"))
		if err != nil {
			logger.Fatalf("open index: %v", err)
		}
		defer idx.Close()
		if err := idx.UpsertCatalogs(cats, tune); err != nil {
			logger.Printf("index: upsert catalogs: %v", err)
		}
	}

	var audits multiAuditLogger
	var ticks multiTickLogger
	if !*disableAudit {
		auditLog := persistlog.NewAuditLogger(*dataDir)
		tickLog := persistlog.NewTickLogger(*dataDir)
		defer auditLog.Close()
		defer tickLog.Close()
		audits = append(audits, auditLog)
		ticks = append(ticks, tickLog)
	}
	if idx != nil {
		audits = append(audits, idx)
		ticks = append(ticks, idx)
	}
	if len(audits) > 0 {
		eng.SetAuditLogger(audits)
		loop.SetTickLogger(ticks)
	}

	wsSrv := ws.NewServer(loop, cats, ws.Config{
		CommandRatePerSec:   tune.RateLimits.CommandsPerSec,
		CommandBurst:        tune.RateLimits.CommandBurst,
		StatePushEveryTicks: tune.StatePushEveryTicks,
	}, logger)

	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		if err := loop.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("loop stopped: %v", err)
		}
	}()

	a := &app{
		loop:        loop,
		ws:          wsSrv,
		saves:       saves,
		index:       idx,
		cat:         cats,
		dataDir:     *dataDir,
		log:         logger,
		enableAdmin: envBool("BAKERY_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP()),
		enablePprof: envBool("BAKERY_ENABLE_PPROF_HTTP", false),
	}
	srv := &http.Server{
		Addr:              *addr,
		Handler:           a.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s (store=%s save_key=%s tick=%s)", *addr, *storeKind, saves.Key(), tune.TickInterval())
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
	<-loopDone
	writes, failures := saves.Stats()
	logger.Printf("shutdown: save writes=%d failures=%d", writes, failures)
}

// openSaves builds the save adapter. An unavailable store leaves the adapter
// without one: the game runs and nothing is persisted.
func openSaves(ctx context.Context, opts kv.Options, key string, logger *log.Logger) (*save.Adapter, func()) {
	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	store := kv.OpenOptional(openCtx, opts, logger)
	if store == nil {
		return save.NewAdapter(nil, key, logger), func() {}
	}
	return save.NewAdapter(store, key, logger), func() { _ = store.Close() }
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

type multiAuditLogger []economy.AuditLogger

func (m multiAuditLogger) WriteAudit(entry economy.AuditEntry) error {
	for _, l := range m {
		_ = l.WriteAudit(entry)
	}
	return nil
}

type multiTickLogger []scheduler.TickLogger

func (m multiTickLogger) WriteTick(entry scheduler.TickEntry) error {
	for _, l := range m {
		_ = l.WriteTick(entry)
	}
	return nil
}
