package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"strconv"
	"strings"
	"time"

	"idlebakery.ai/internal/persistence/indexdb"
	"idlebakery.ai/internal/persistence/save"
	"idlebakery.ai/internal/persistence/snapshot"
	"idlebakery.ai/internal/protocol"
	"idlebakery.ai/internal/sim/catalogs"
	"idlebakery.ai/internal/sim/economy"
	"idlebakery.ai/internal/sim/scheduler"
	"idlebakery.ai/internal/transport/ws"
)

type app struct {
	loop    *scheduler.Loop
	ws      *ws.Server
	saves   *save.Adapter
	index   *indexdb.SQLiteIndex
	cat     *catalogs.Catalog
	dataDir string
	log     *log.Logger

	enableAdmin bool
	enablePprof bool
}

func (a *app) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", a.handleMetrics)
	mux.HandleFunc("/v1/state", a.handleState)
	mux.HandleFunc("/v1/commands", a.handleCommand)
	mux.HandleFunc("/v1/ws", a.ws.Handler())

	if a.enableAdmin {
		mux.HandleFunc("/admin/v1/state", a.loopbackOnly(a.handleAdminState))
		mux.HandleFunc("/admin/v1/snapshot", a.loopbackOnly(a.handleAdminSnapshot))
		if a.index != nil {
			mux.HandleFunc("/admin/v1/audit", a.loopbackOnly(a.handleAdminAudit))
		}
	} else {
		a.log.Printf("admin endpoints disabled (BAKERY_ENABLE_ADMIN_HTTP=false)")
	}
	if a.enablePprof {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	return mux
}

func (a *app) handleMetrics(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
	m := a.loop.Metrics()

	gauge := func(name, help string, v any) {
		fmt.Fprintf(rw, "# HELP %s %s\n", name, help)
		fmt.Fprintf(rw, "# TYPE %s gauge\n", name)
		fmt.Fprintf(rw, "%s %v\n", name, v)
	}
	counter := func(name, help string, v uint64) {
		fmt.Fprintf(rw, "# HELP %s %s\n", name, help)
		fmt.Fprintf(rw, "# TYPE %s counter\n", name)
		fmt.Fprintf(rw, "%s %d\n", name, v)
	}

	gauge("bakery_tick", "Current engine tick.", m.Tick)
	gauge("bakery_generation", "Number of prestige resets.", m.Generation)
	gauge("bakery_money_mantissa", "Money mantissa.", m.MoneyMant)
	gauge("bakery_money_exponent", "Money base-10 exponent.", m.MoneyExp)
	gauge("bakery_total_levels", "Sum of pastry levels.", m.TotalLevels)
	gauge("bakery_life_lessons", "Life lessons earned across resets.", m.LifeLessons)
	gauge("bakery_automated_pastries", "Pastries with automation.", m.Automated)
	gauge("bakery_subscribers", "State stream subscribers.", m.Subscribers)
	gauge("bakery_inbox_depth", "Loop inbox backlog.", m.InboxDepth)
	gauge("bakery_ws_sessions", "Connected websocket sessions.", a.ws.ActiveSessions())
	gauge("bakery_step_ms", "Last tick step duration in milliseconds.", fmt.Sprintf("%.3f", m.StepMS))

	counter("bakery_commands_total", "Commands applied on the loop.", m.CommandsTotal)
	counter("bakery_command_errors_total", "Commands rejected by the engine.", m.CommandErrorsTotal)
	counter("bakery_builds_completed_total", "Completed bake cycles.", m.BuildsCompletedTotal)
	if a.index != nil {
		counter("bakery_index_dropped_total", "Index rows dropped on a full queue.", a.index.Dropped())
	}
	if a.saves != nil {
		writes, failures := a.saves.Stats()
		counter("bakery_save_writes_total", "Save attempts.", writes)
		counter("bakery_save_failures_total", "Failed save attempts.", failures)
	}
}

func (a *app) handleState(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	st, err := a.loop.State(ctx)
	if err != nil {
		http.Error(rw, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(rw, http.StatusOK, st)
}

type commandResponse struct {
	Result protocol.ResultMsg `json:"result"`
	State  *economy.StateView `json:"state,omitempty"`
}

func (a *app) handleCommand(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var cmd protocol.CmdMsg
	if err := json.NewDecoder(io.LimitReader(r.Body, 64*1024)).Decode(&cmd); err != nil {
		res := protocol.ResultMsg{
			Type:            protocol.TypeResult,
			ProtocolVersion: protocol.Version,
			Code:            protocol.ErrProtoBadRequest,
			Message:         "malformed CMD",
		}
		writeJSON(rw, http.StatusBadRequest, commandResponse{Result: res})
		return
	}
	if cmd.Type == "" {
		cmd.Type = protocol.TypeCmd
	}
	if cmd.ProtocolVersion == "" {
		cmd.ProtocolVersion = protocol.Version
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	res, st := a.ws.Execute(ctx, cmd)
	writeJSON(rw, statusForCode(res.Code), commandResponse{Result: *res, State: st})
}

func statusForCode(code string) int {
	switch code {
	case "":
		return http.StatusOK
	case protocol.ErrBadRequest, protocol.ErrProtoBadRequest:
		return http.StatusBadRequest
	case protocol.ErrUnknownTarget:
		return http.StatusNotFound
	case protocol.ErrNoFunds, protocol.ErrLocked, protocol.ErrConflict:
		return http.StatusConflict
	case protocol.ErrRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusServiceUnavailable
	}
}

func (a *app) handleAdminState(rw http.ResponseWriter, r *http.Request) {
	resp := struct {
		Metrics scheduler.Metrics `json:"metrics"`
		SaveKey string            `json:"save_key"`
		Catalog string            `json:"catalog_digest"`
	}{Metrics: a.loop.Metrics()}
	if a.saves != nil {
		resp.SaveKey = a.saves.Key()
	}
	if a.cat != nil {
		resp.Catalog = a.cat.Digest
	}
	writeJSON(rw, http.StatusOK, resp)
}

func (a *app) handleAdminSnapshot(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	snap, err := a.captureSnapshot(ctx)
	if err != nil {
		writeJSON(rw, http.StatusServiceUnavailable, map[string]any{"ok": false, "error": err.Error()})
		return
	}
	path := snapshot.Path(a.dataDir, snap.Header.Tick)
	if err := snapshot.Write(path, snap); err != nil {
		a.log.Printf("snapshot write: %v", err)
		writeJSON(rw, http.StatusInternalServerError, map[string]any{"ok": false, "tick": snap.Header.Tick, "error": err.Error()})
		return
	}
	if a.index != nil {
		a.index.RecordSnapshot(path, snap)
	}
	a.log.Printf("snapshot written tick=%d path=%s", snap.Header.Tick, path)
	writeJSON(rw, http.StatusOK, map[string]any{"ok": true, "tick": snap.Header.Tick, "path": path})
}

func (a *app) handleAdminAudit(rw http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	pastryID, _ := strconv.Atoi(q.Get("pastry_id"))

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	counts, err := a.index.ActionCounts(ctx)
	if err != nil {
		http.Error(rw, err.Error(), http.StatusInternalServerError)
		return
	}
	recent, err := a.index.RecentAudits(ctx, pastryID, limit)
	if err != nil {
		http.Error(rw, err.Error(), http.StatusInternalServerError)
		return
	}
	snaps, err := a.index.Snapshots(ctx)
	if err != nil {
		http.Error(rw, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(rw, http.StatusOK, map[string]any{"counts": counts, "recent": recent, "snapshots": snaps})
}

// captureSnapshot exports the engine on the loop goroutine.
func (a *app) captureSnapshot(ctx context.Context) (snapshot.SnapshotV1, error) {
	var snap snapshot.SnapshotV1
	err := a.loop.Do(ctx, func(e *economy.Engine) error {
		snap = snapshot.SnapshotV1{
			Header: snapshot.Header{
				Version:    snapshot.Version,
				Tick:       e.CurrentTick(),
				Generation: e.Generation(),
				CreatedAt:  time.Now().UTC().Format(time.RFC3339),
			},
			State: e.Export(),
		}
		if c := e.Catalog(); c != nil {
			snap.Header.CatalogDigest = c.Digest
		}
		return nil
	})
	if err != nil {
		return snapshot.SnapshotV1{}, err
	}
	if a.saves != nil {
		snap.Header.SaveKey = a.saves.Key()
	}
	return snap, nil
}

func (a *app) loopbackOnly(h http.HandlerFunc) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		h(rw, r)
	}
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func envBool(name string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}
