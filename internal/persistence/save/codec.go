// Package save converts economy save state to and from the stored JSON blob.
package save

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"idlebakery.ai/internal/sim/bignum"
	"idlebakery.ai/internal/sim/economy"
)

var ErrNotObject = errors.New("save: payload is not a JSON object")

func Encode(s economy.SaveState) (string, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Decode overlays raw onto base field by field. A missing or malformed field
// keeps its base value and is reported in dropped; only a payload that is not
// a JSON object fails as a whole.
func Decode(raw string, base economy.SaveState) (out economy.SaveState, dropped []string, err error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &top); err != nil || top == nil {
		return base, nil, ErrNotObject
	}
	d := decoder{}
	out = base

	if m, ok := d.money(top, "money"); ok {
		out.Money = m
	}
	if f, ok := d.float(top, "lifeLessons"); ok {
		// Older saves may carry a fractional count; whole lessons are kept.
		if f >= 0 && f <= math.MaxInt32 {
			out.LifeLessons = int(math.Floor(f))
		} else {
			d.drop("lifeLessons")
		}
	}
	if f, ok := d.float(top, "globalSellMultiplier"); ok {
		out.GlobalSellMultiplier = f
	}
	if f, ok := d.float(top, "globalSpeedMultiplier"); ok {
		out.GlobalSpeedMultiplier = f
	}
	if ps, ok := d.pastries(top, base); ok {
		out.Pastries = ps
	}
	return out, d.dropped, nil
}

type decoder struct {
	dropped []string
}

func (d *decoder) drop(path string) { d.dropped = append(d.dropped, path) }

func (d *decoder) field(obj map[string]json.RawMessage, name string) (json.RawMessage, bool) {
	raw, ok := obj[name]
	if !ok {
		return nil, false
	}
	if string(raw) == "null" {
		d.drop(name)
		return nil, false
	}
	return raw, true
}

func (d *decoder) float(obj map[string]json.RawMessage, name string) (float64, bool) {
	raw, ok := d.field(obj, name)
	if !ok {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		d.drop(name)
		return 0, false
	}
	return f, true
}

func (d *decoder) int(obj map[string]json.RawMessage, name string) (int, bool) {
	f, ok := d.float(obj, name)
	if !ok {
		return 0, false
	}
	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		d.drop(name)
		return 0, false
	}
	return int(f), true
}

func (d *decoder) bool(obj map[string]json.RawMessage, name string) (bool, bool) {
	raw, ok := d.field(obj, name)
	if !ok {
		return false, false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		d.drop(name)
		return false, false
	}
	return b, true
}

func (d *decoder) object(raw json.RawMessage, path string) (map[string]json.RawMessage, bool) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		d.drop(path)
		return nil, false
	}
	return obj, true
}

func (d *decoder) list(raw json.RawMessage, path string) ([]json.RawMessage, bool) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		d.drop(path)
		return nil, false
	}
	return items, true
}

// money needs both halves; a half-valid number is dropped whole.
func (d *decoder) money(top map[string]json.RawMessage, name string) (bignum.Number, bool) {
	raw, ok := d.field(top, name)
	if !ok {
		return bignum.Number{}, false
	}
	obj, ok := d.object(raw, name)
	if !ok {
		return bignum.Number{}, false
	}
	inner := decoder{}
	m, okM := inner.float(obj, "mantissa")
	e, okE := inner.int(obj, "exponent")
	if !okM || !okE {
		d.drop(name)
		return bignum.Number{}, false
	}
	return bignum.New(m, e), true
}

func (d *decoder) pastries(top map[string]json.RawMessage, base economy.SaveState) ([]economy.SavedPastry, bool) {
	raw, ok := d.field(top, "pastries")
	if !ok {
		return nil, false
	}
	items, ok := d.list(raw, "pastries")
	if !ok {
		return nil, false
	}
	byID := make(map[int]economy.SavedPastry, len(base.Pastries))
	for _, p := range base.Pastries {
		byID[p.ID] = p
	}

	out := make([]economy.SavedPastry, 0, len(items))
	for i, item := range items {
		path := fmt.Sprintf("pastries[%d]", i)
		obj, ok := d.object(item, path)
		if !ok {
			continue
		}
		id, ok := d.int(obj, "id")
		if !ok {
			d.drop(path)
			continue
		}
		// Unknown ids pass through with no level; the engine ignores them.
		sp, known := byID[id]
		if !known {
			sp = economy.SavedPastry{ID: id, Level: -1}
		}
		sp.Upgrades = append([]economy.SavedUpgrade(nil), sp.Upgrades...)
		if lvl, ok := d.int(obj, "level"); ok && lvl >= 0 {
			sp.Level = lvl
		} else if ok {
			d.drop(path + ".level")
		}
		if ups, ok := d.field(obj, "upgrades"); ok {
			sp.Upgrades = d.upgrades(ups, path+".upgrades", sp.Upgrades)
		}
		out = append(out, sp)
	}
	return out, true
}

func (d *decoder) upgrades(raw json.RawMessage, path string, base []economy.SavedUpgrade) []economy.SavedUpgrade {
	items, ok := d.list(raw, path)
	if !ok {
		return base
	}
	idx := make(map[int]int, len(base))
	for i, u := range base {
		idx[u.ID] = i
	}
	out := base
	for i, item := range items {
		upath := fmt.Sprintf("%s[%d]", path, i)
		obj, ok := d.object(item, upath)
		if !ok {
			continue
		}
		id, ok := d.int(obj, "id")
		if !ok {
			d.drop(upath)
			continue
		}
		purchased, ok := d.bool(obj, "purchased")
		if !ok {
			continue
		}
		if j, known := idx[id]; known {
			out[j].Purchased = purchased
		} else {
			idx[id] = len(out)
			out = append(out, economy.SavedUpgrade{ID: id, Purchased: purchased})
		}
	}
	return out
}
