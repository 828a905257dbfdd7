package indexdb

import (
	"context"
	"database/sql"
	"errors"
)

type AuditRow struct {
	ID        int64  `json:"id"`
	Tick      uint64 `json:"tick"`
	Action    string `json:"action"`
	PastryID  int    `json:"pastry_id,omitempty"`
	UpgradeID int    `json:"upgrade_id,omitempty"`
	Level     int    `json:"level,omitempty"`
	Amount    string `json:"amount"`
	Money     string `json:"money"`
	Reason    string `json:"reason,omitempty"`
}

// RecentAudits returns the newest committed audit rows, newest first. A
// positive pastryID restricts the result to that pastry.
func (s *SQLiteIndex) RecentAudits(ctx context.Context, pastryID, limit int) ([]AuditRow, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	q := `SELECT id,tick,action,pastry_id,upgrade_id,level,amount,money,COALESCE(reason,'') FROM audits`
	args := []any{}
	if pastryID > 0 {
		q += ` WHERE pastry_id=?`
		args = append(args, pastryID)
	}
	q += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AuditRow
	for rows.Next() {
		var r AuditRow
		var tick int64
		if err := rows.Scan(&r.ID, &tick, &r.Action, &r.PastryID, &r.UpgradeID, &r.Level, &r.Amount, &r.Money, &r.Reason); err != nil {
			return nil, err
		}
		r.Tick = uint64(tick)
		out = append(out, r)
	}
	return out, rows.Err()
}

// ActionCounts counts committed audit rows per action.
func (s *SQLiteIndex) ActionCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT action, COUNT(*) FROM audits GROUP BY action`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var action string
		var n int
		if err := rows.Scan(&action, &n); err != nil {
			return nil, err
		}
		out[action] = n
	}
	return out, rows.Err()
}

type SnapshotRow struct {
	Path       string `json:"path"`
	Tick       uint64 `json:"tick"`
	Generation uint64 `json:"generation"`
	Money      string `json:"money"`
	Levels     int    `json:"levels"`
}

// Snapshots lists recorded snapshots, newest tick first.
func (s *SQLiteIndex) Snapshots(ctx context.Context) ([]SnapshotRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT path,tick,generation,money,levels FROM snapshots ORDER BY tick DESC, path DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SnapshotRow
	for rows.Next() {
		var r SnapshotRow
		var tick, gen int64
		if err := rows.Scan(&r.Path, &tick, &gen, &r.Money, &r.Levels); err != nil {
			return nil, err
		}
		r.Tick, r.Generation = uint64(tick), uint64(gen)
		out = append(out, r)
	}
	return out, rows.Err()
}

// CatalogDigest returns the digest recorded under name, or "" if absent.
func (s *SQLiteIndex) CatalogDigest(ctx context.Context, name string) (string, error) {
	var d string
	err := s.db.QueryRowContext(ctx, `SELECT digest FROM catalogs WHERE name=?`, name).Scan(&d)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return d, nil
}
