package snapshot

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"idlebakery.ai/internal/sim/bignum"
	"idlebakery.ai/internal/sim/economy"
)

func sampleState() economy.SaveState {
	e := economy.New(economy.DefaultConfig(), nil, nil)
	e.AddMoney(bignum.New(7.5, 42))
	_ = e.LevelUp(1)
	_ = e.LevelUp(2)
	_ = e.BuyUpgrade(1, 101)
	return e.Export()
}

func TestWriteRead_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := Path(dir, 120)
	snap := SnapshotV1{
		Header: Header{SaveKey: "bakery_save_v1", Tick: 120, Generation: 2, CatalogDigest: "abc"},
		State:  sampleState(),
	}
	if err := Write(path, snap); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := Read(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	snap.Header.Version = Version
	if !reflect.DeepEqual(got, snap) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, snap)
	}
	h, err := ReadHeader(path)
	if err != nil || h.Tick != 120 || h.Generation != 2 {
		t.Fatalf("header: %+v err=%v", h, err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind")
	}
}

func TestRead_RejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.snap.zst")
	if err := os.WriteFile(path, []byte("not zstd"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Read(path); err == nil {
		t.Fatalf("expected error for garbage snapshot")
	}
	if _, err := Read(filepath.Join(t.TempDir(), "missing")); !os.IsNotExist(err) {
		t.Fatalf("expected not-exist, got %v", err)
	}
}
