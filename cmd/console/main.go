package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"
	"strings"

	"idlebakery.ai/internal/persistence/kv"
	"idlebakery.ai/internal/persistence/save"
	"idlebakery.ai/internal/sim/catalogs"
	"idlebakery.ai/internal/sim/economy"
	"idlebakery.ai/internal/sim/scheduler"
	"idlebakery.ai/internal/sim/tuning"
)

func main() {
	var (
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml or *.toml (default: <configs>/tuning.yaml)")
		storeKind  = flag.String("store", kv.KindFile, "save store: memory|file|sqlite")
	)
	flag.Parse()

	logger := log.New(os.Stderr, "[console] ", log.LstdFlags|log.Lmicroseconds)

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		tune = tuning.Defaults()
	}
	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}

	store := kv.OpenOptional(context.Background(), kv.Options{Kind: *storeKind, Dir: *dataDir}, logger)
	if store != nil {
		defer store.Close()
	}

	eng := economy.New(economy.ConfigFromTuning(tune), cats, logger)
	saves := save.NewAdapter(store, tune.SaveKey, logger)
	if saves.Load(eng) {
		logger.Printf("loaded save %q", saves.Key())
	}
	eng.SetPersistence(saves)

	loop := scheduler.New(scheduler.Config{TickInterval: tune.TickInterval()}, eng, logger)
	c := newConsole(eng, loop, os.Stdout)
	c.printState()
	c.Run(os.Stdin)
}
