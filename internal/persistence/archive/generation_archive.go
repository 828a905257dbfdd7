// Package archive keeps the final state of every finished bakery generation.
package archive

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"idlebakery.ai/internal/persistence/snapshot"
	"idlebakery.ai/internal/sim/economy"
)

type GenerationMeta struct {
	Generation    uint64 `json:"generation"`
	EndTick       uint64 `json:"end_tick"`
	Snapshot      string `json:"snapshot"`
	CreatedAt     string `json:"created_at"`
	Money         string `json:"money"`
	TotalLevels   int    `json:"total_levels"`
	LifeLessons   int    `json:"life_lessons"`
	CatalogDigest string `json:"catalog_digest"`
}

// Dir returns the archive directory for a generation.
func Dir(dataDir string, generation uint64) string {
	return filepath.Join(dataDir, "archives", fmt.Sprintf("generation_%03d", generation))
}

// ArchiveGeneration writes the final state of a generation as a snapshot
// into Dir(dataDir, generation) next to a meta.json summary. It returns the
// snapshot path.
func ArchiveGeneration(dataDir, saveKey, catalogDigest string, final economy.SaveState, tick, generation uint64) (string, error) {
	dir := Dir(dataDir, generation)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	now := time.Now().UTC()
	snap := snapshot.SnapshotV1{
		Header: snapshot.Header{
			Version:       snapshot.Version,
			SaveKey:       saveKey,
			Tick:          tick,
			Generation:    generation,
			CatalogDigest: catalogDigest,
			CreatedAt:     now.Format(time.RFC3339),
		},
		State: final,
	}
	dst := filepath.Join(dir, fmt.Sprintf("%020d.snap.zst", tick))
	if err := snapshot.Write(dst, snap); err != nil {
		return "", err
	}

	meta := GenerationMeta{
		Generation:    generation,
		EndTick:       tick,
		Snapshot:      filepath.Base(dst),
		CreatedAt:     now.Format(time.RFC3339Nano),
		Money:         final.Money.String(),
		LifeLessons:   final.LifeLessons,
		CatalogDigest: catalogDigest,
	}
	for _, p := range final.Pastries {
		meta.TotalLevels += p.Level
	}
	if b, err := json.MarshalIndent(meta, "", "  "); err == nil {
		_ = os.WriteFile(filepath.Join(dir, "meta.json"), b, 0o644)
	}
	return dst, nil
}

// ReadMeta loads the meta.json of an archived generation.
func ReadMeta(dataDir string, generation uint64) (GenerationMeta, error) {
	var m GenerationMeta
	b, err := os.ReadFile(filepath.Join(Dir(dataDir, generation), "meta.json"))
	if err != nil {
		return m, err
	}
	err = json.Unmarshal(b, &m)
	return m, err
}
