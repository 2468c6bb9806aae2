package inventory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	pkgerrors "github.com/angelmondragon/bakehouse-backend/pkg/errors"
)

// Record is the stock known for one item.
type Record struct {
	ItemID            string `json:"item_id" yaml:"item_id"`
	Stock             int    `json:"stock" yaml:"stock"`
	LowStockThreshold int    `json:"low_stock_threshold" yaml:"low_stock_threshold"`
}

// IsLow reports an in-stock item at or below its threshold.
func (r Record) IsLow() bool {
	return r.Stock > 0 && r.Stock <= r.LowStockThreshold
}

func (r Record) validate() error {
	if strings.TrimSpace(r.ItemID) == "" {
		return fmt.Errorf("item_id is required")
	}
	if r.Stock < 0 {
		return fmt.Errorf("stock for %s must be non-negative", r.ItemID)
	}
	if r.LowStockThreshold < 0 {
		return fmt.Errorf("low_stock_threshold for %s must be non-negative", r.ItemID)
	}
	return nil
}

// Snapshot is an immutable item id to record mapping.
type Snapshot struct {
	records map[string]Record
}

// NewSnapshot validates records and indexes them by item id.
func NewSnapshot(records ...Record) (Snapshot, error) {
	index := make(map[string]Record, len(records))
	for _, rec := range records {
		rec.ItemID = strings.TrimSpace(rec.ItemID)
		if err := rec.validate(); err != nil {
			return Snapshot{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid inventory record")
		}
		if _, dup := index[rec.ItemID]; dup {
			return Snapshot{}, pkgerrors.New(pkgerrors.CodeValidation, "duplicate inventory record").
				WithDetails(map[string]any{"item_id": rec.ItemID})
		}
		index[rec.ItemID] = rec
	}
	return Snapshot{records: index}, nil
}

// Lookup returns the record for id. Items without a record are unconstrained.
func (s Snapshot) Lookup(id string) (Record, bool) {
	rec, ok := s.records[id]
	return rec, ok
}

// Len reports how many items are tracked.
func (s Snapshot) Len() int {
	return len(s.records)
}

// Records lists every record ordered by item id.
func (s Snapshot) Records() []Record {
	out := make([]Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemID < out[j].ItemID })
	return out
}

// Source hands out the current snapshot.
type Source interface {
	Snapshot(ctx context.Context) (Snapshot, error)
}

// Static always returns the same snapshot.
type Static struct {
	snapshot Snapshot
}

func NewStatic(snapshot Snapshot) Static {
	return Static{snapshot: snapshot}
}

func (s Static) Snapshot(context.Context) (Snapshot, error) {
	return s.snapshot, nil
}

// Swappable serves a snapshot that can be replaced while readers hold the old one.
type Swappable struct {
	current atomic.Pointer[Snapshot]
}

func NewSwappable(initial Snapshot) *Swappable {
	s := &Swappable{}
	s.current.Store(&initial)
	return s
}

func (s *Swappable) Snapshot(context.Context) (Snapshot, error) {
	return *s.current.Load(), nil
}

// Replace installs next for every subsequent Snapshot call.
func (s *Swappable) Replace(next Snapshot) {
	s.current.Store(&next)
}
