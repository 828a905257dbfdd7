package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"idlebakery.ai/internal/persistence/indexdb"
	"idlebakery.ai/internal/persistence/kv"
	"idlebakery.ai/internal/persistence/save"
	"idlebakery.ai/internal/persistence/snapshot"
	"idlebakery.ai/internal/protocol"
	"idlebakery.ai/internal/sim/bignum"
	"idlebakery.ai/internal/sim/catalogs"
	"idlebakery.ai/internal/sim/economy"
	"idlebakery.ai/internal/sim/scheduler"
	"idlebakery.ai/internal/transport/ws"
)

func newTestApp(t *testing.T, run bool) *app {
	t.Helper()
	cat := catalogs.Default()
	eng := economy.New(economy.DefaultConfig(), cat, nil)
	saves := save.NewAdapter(kv.NewMemStore(), "", nil)
	eng.SetPersistence(saves)
	loop := scheduler.New(scheduler.Config{TickInterval: 10 * time.Millisecond}, eng, nil)
	if run {
		ctx, cancel := context.WithCancel(context.Background())
		go func() { _ = loop.Run(ctx) }()
		t.Cleanup(cancel)
	}
	return &app{
		loop:        loop,
		ws:          ws.NewServer(loop, cat, ws.Config{}, nil),
		saves:       saves,
		cat:         cat,
		dataDir:     t.TempDir(),
		log:         nil,
		enableAdmin: true,
	}
}

func serve(t *testing.T, a *app) *httptest.Server {
	t.Helper()
	if a.log == nil {
		a.log = discardLogger()
	}
	srv := httptest.NewServer(a.routes())
	t.Cleanup(srv.Close)
	return srv
}

func postCommand(t *testing.T, url string, body string) (int, commandResponse) {
	t.Helper()
	resp, err := http.Post(url+"/v1/commands", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	var out commandResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp.StatusCode, out
}

func TestOpenSaves_UnavailableStoreKeepsServing(t *testing.T) {
	notADir := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(notADir, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	for _, opts := range []kv.Options{
		{Kind: "bogus"},
		{Kind: kv.KindPostgres, DSN: ""},
		{Kind: kv.KindFile, Dir: filepath.Join(notADir, "data")},
	} {
		saves, closeStore := openSaves(context.Background(), opts, "", discardLogger())
		closeStore()

		a := newTestApp(t, true)
		a.saves = saves
		err := a.loop.Do(context.Background(), func(e *economy.Engine) error {
			if saves.Load(e) {
				t.Errorf("%s: nothing to load without a store", opts.Kind)
			}
			e.SetPersistence(saves)
			e.AddMoney(bignum.New(5, 2))
			return nil
		})
		if err != nil {
			t.Fatalf("do: %v", err)
		}
		srv := serve(t, a)

		if code, out := postCommand(t, srv.URL, `{"cmd":"LEVEL_UP","pastry_id":1}`); code != http.StatusOK || !out.Result.OK {
			t.Fatalf("%s: level up without store: %d %+v", opts.Kind, code, out)
		}
		resp, err := http.Get(srv.URL + "/v1/state")
		if err != nil {
			t.Fatalf("get state: %v", err)
		}
		var st economy.StateView
		decErr := json.NewDecoder(resp.Body).Decode(&st)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK || decErr != nil || st.TotalLevels != 2 {
			t.Fatalf("%s: state without store: %d %v levels=%d", opts.Kind, resp.StatusCode, decErr, st.TotalLevels)
		}
		if w, f := saves.Stats(); w != 0 || f != 0 {
			t.Fatalf("%s: expected no save attempts, got writes=%d failures=%d", opts.Kind, w, f)
		}
	}
}

func TestHealthz(t *testing.T) {
	srv := serve(t, newTestApp(t, false))
	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != 200 || string(b) != "ok" {
		t.Fatalf("unexpected healthz: %d %q", resp.StatusCode, b)
	}
}

func TestCommands_HTTP(t *testing.T) {
	a := newTestApp(t, true)
	srv := serve(t, a)

	code, out := postCommand(t, srv.URL, `{"cmd":"LEVEL_UP","pastry_id":1}`)
	if code != http.StatusConflict || out.Result.Code != protocol.ErrNoFunds || out.State != nil {
		t.Fatalf("expected 409 E_NO_FUNDS, got %d %+v", code, out)
	}

	code, out = postCommand(t, srv.URL, `{"cmd":`)
	if code != http.StatusBadRequest || out.Result.Code != protocol.ErrProtoBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d %+v", code, out)
	}

	code, out = postCommand(t, srv.URL, `{"cmd":"LEVEL_UP","pastry_id":42}`)
	if code != http.StatusNotFound || out.Result.Code != protocol.ErrUnknownTarget {
		t.Fatalf("expected 404 for unknown pastry, got %d %+v", code, out)
	}

	err := a.loop.Do(context.Background(), func(e *economy.Engine) error {
		e.AddMoney(bignum.New(5, 2))
		return nil
	})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	code, out = postCommand(t, srv.URL, `{"id":"x","cmd":"LEVEL_UP","pastry_id":1}`)
	if code != http.StatusOK || !out.Result.OK || out.Result.ID != "x" || out.State == nil {
		t.Fatalf("expected success, got %d %+v", code, out)
	}
	if out.State.Pastries[0].Level != 2 {
		t.Fatalf("expected level 2 in returned state, got %d", out.State.Pastries[0].Level)
	}

	resp, err := http.Get(srv.URL + "/v1/state")
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	defer resp.Body.Close()
	var st economy.StateView
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if st.TotalLevels != 2 || len(st.Pastries) != 5 {
		t.Fatalf("unexpected state: levels=%d pastries=%d", st.TotalLevels, len(st.Pastries))
	}
	if w, _ := a.saves.Stats(); w == 0 {
		t.Fatalf("expected committed level up to be saved")
	}
}

func TestMetrics_Exposition(t *testing.T) {
	a := newTestApp(t, false)
	a.loop.Step()
	srv := serve(t, a)

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	body := string(b)
	for _, want := range []string{
		"bakery_tick 1\n",
		"bakery_total_levels 1\n",
		"bakery_money_exponent 0\n",
		"# TYPE bakery_commands_total counter\n",
		"bakery_ws_sessions 0\n",
		"bakery_save_writes_total",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics missing %q:\n%s", want, body)
		}
	}
}

func TestAdminSnapshot_WritesReadableFile(t *testing.T) {
	a := newTestApp(t, true)
	srv := serve(t, a)

	resp, err := http.Post(srv.URL+"/admin/v1/snapshot", "application/json", bytes.NewReader(nil))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	var out struct {
		OK   bool   `json:"ok"`
		Tick uint64 `json:"tick"`
		Path string `json:"path"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !out.OK || out.Path != snapshot.Path(a.dataDir, out.Tick) {
		t.Fatalf("unexpected response: %+v", out)
	}
	snap, err := snapshot.Read(out.Path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if snap.Header.SaveKey != save.DefaultKey || snap.Header.CatalogDigest != a.cat.Digest || len(snap.State.Pastries) != 5 {
		t.Fatalf("unexpected snapshot: %+v", snap.Header)
	}
}

func TestAdminAudit_ReadsIndex(t *testing.T) {
	a := newTestApp(t, true)
	idx, err := indexdb.OpenSQLite(a.dataDir + "/index/index.db")
	if err != nil {
		t.Fatalf("open index: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	a.index = idx
	err = a.loop.Do(context.Background(), func(e *economy.Engine) error {
		e.SetAuditLogger(idx)
		e.AddMoney(bignum.New(5, 2))
		return nil
	})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	srv := serve(t, a)
	if code, out := postCommand(t, srv.URL, `{"cmd":"LEVEL_UP","pastry_id":1}`); code != http.StatusOK {
		t.Fatalf("level up: %d %+v", code, out)
	}

	type auditResp struct {
		Counts map[string]int     `json:"counts"`
		Recent []indexdb.AuditRow `json:"recent"`
	}
	var out auditResp
	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := http.Get(srv.URL + "/admin/v1/audit?pastry_id=1&limit=10")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		out = auditResp{}
		_ = json.NewDecoder(resp.Body).Decode(&out)
		resp.Body.Close()
		if out.Counts[economy.AuditLevelUp] == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("index never committed the level up: %+v", out)
		}
		time.Sleep(50 * time.Millisecond)
	}
	if out.Counts[economy.AuditEarn] != 1 || len(out.Recent) != 1 || out.Recent[0].Level != 2 {
		t.Fatalf("unexpected audit view: %+v", out)
	}
}

func TestAdmin_RejectsRemoteAndDisabled(t *testing.T) {
	a := newTestApp(t, false)
	a.log = discardLogger()
	mux := a.routes()

	req := httptest.NewRequest(http.MethodPost, "/admin/v1/snapshot", nil)
	req.RemoteAddr = "10.1.2.3:5555"
	rw := httptest.NewRecorder()
	mux.ServeHTTP(rw, req)
	if rw.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for remote admin call, got %d", rw.Code)
	}

	a.enableAdmin = false
	mux = a.routes()
	req = httptest.NewRequest(http.MethodGet, "/admin/v1/state", nil)
	req.RemoteAddr = "127.0.0.1:5555"
	rw = httptest.NewRecorder()
	mux.ServeHTTP(rw, req)
	if rw.Code != http.StatusNotFound {
		t.Fatalf("expected 404 when admin disabled, got %d", rw.Code)
	}
}

func TestIsLoopbackRemote(t *testing.T) {
	cases := map[string]bool{
		"127.0.0.1:80": true,
		"[::1]:443":    true,
		"::1":          true,
		"10.0.0.1:80":  false,
		"example:80":   false,
		"":             false,
	}
	for in, want := range cases {
		if got := isLoopbackRemote(in); got != want {
			t.Fatalf("isLoopbackRemote(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestEnvBool(t *testing.T) {
	t.Setenv("BAKERY_TEST_FLAG", "off")
	if envBool("BAKERY_TEST_FLAG", true) {
		t.Fatalf("expected off to parse false")
	}
	t.Setenv("BAKERY_TEST_FLAG", "garbage")
	if !envBool("BAKERY_TEST_FLAG", true) {
		t.Fatalf("expected default on unparseable value")
	}
	t.Setenv("DEPLOY_ENV", "production")
	if defaultEnableAdminHTTP() {
		t.Fatalf("admin should default off in production")
	}
}

func discardLogger() *log.Logger { return log.New(io.Discard, "", 0) }
