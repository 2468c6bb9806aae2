package orders

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/angelmondragon/bakehouse-backend/internal/cart"
	"github.com/angelmondragon/bakehouse-backend/internal/storage"
	pkgerrors "github.com/angelmondragon/bakehouse-backend/pkg/errors"
	"github.com/angelmondragon/bakehouse-backend/pkg/logger"
	"github.com/angelmondragon/bakehouse-backend/pkg/pagination"
	"github.com/shopspring/decimal"
)

var idRe = regexp.MustCompile(`^BKH-\d{12}$`)

func TestIDGeneratorFormat(t *testing.T) {
	now := time.UnixMilli(1_773_480_600_123)
	gen := NewIDGenerator("bkh", func() time.Time { return now }, func(int) int { return 42 })

	id, err := gen.Next(nil)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if !idRe.MatchString(id) {
		t.Fatalf("unexpected id format %q", id)
	}
	if id != "BKH-806001230042" {
		t.Fatalf("unexpected id %q", id)
	}
}

func TestIDGeneratorRegeneratesOnCollision(t *testing.T) {
	now := time.UnixMilli(1_000)
	draws := []int{7, 7, 8}
	gen := NewIDGenerator("BKH", func() time.Time { return now }, func(int) int {
		v := draws[0]
		draws = draws[1:]
		return v
	})

	taken := map[string]bool{"BKH-000010000007": true}
	id, err := gen.Next(func(id string) bool { return taken[id] })
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if id != "BKH-000010000008" {
		t.Fatalf("expected collision to be skipped, got %q", id)
	}
}

func TestIDGeneratorGivesUp(t *testing.T) {
	gen := NewIDGenerator("BKH", nil, nil)
	if _, err := gen.Next(func(string) bool { return true }); err == nil {
		t.Fatal("expected error when every id is taken")
	}
}

func TestHistory(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory(0, logger.Nop())
	keys := storage.Keys{Namespace: "test", Session: "s1"}
	history, err := NewHistory(store, keys)
	if err != nil {
		t.Fatalf("history: %v", err)
	}

	if _, err := history.Last(ctx); !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found before any order, got %v", err)
	}

	first := Order{ID: "BKH-1", Items: []cart.LineItem{{ID: "croissant", Name: "Croissant", Price: decimal.NewFromInt(3), Quantity: 1}}}
	if err := store.Apply(ctx, CommitOps(keys, nil, first)...); err != nil {
		t.Fatalf("commit first: %v", err)
	}
	existing, _ := history.List(ctx)
	second := Order{ID: "BKH-2"}
	if err := store.Apply(ctx, CommitOps(keys, existing, second)...); err != nil {
		t.Fatalf("commit second: %v", err)
	}

	list, err := history.List(ctx)
	if err != nil || len(list) != 2 || list[0].ID != "BKH-1" || list[1].ID != "BKH-2" {
		t.Fatalf("unexpected history %+v err=%v", list, err)
	}
	last, err := history.Last(ctx)
	if err != nil || last.ID != "BKH-2" {
		t.Fatalf("unexpected last order %+v err=%v", last, err)
	}
	got, err := history.Get(ctx, "BKH-1")
	if err != nil || len(got.Items) != 1 {
		t.Fatalf("unexpected get %+v err=%v", got, err)
	}
	if _, err := history.Get(ctx, "BKH-9"); !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if !Contains(list, "BKH-2") || Contains(list, "BKH-3") {
		t.Fatal("unexpected Contains result")
	}
}

func TestCommitOpsArePersistent(t *testing.T) {
	keys := storage.Keys{Namespace: "test", Session: "s1"}
	ops := CommitOps(keys, nil, Order{ID: "BKH-1"})
	if len(ops) != 2 {
		t.Fatalf("expected 2 ops, got %d", len(ops))
	}
	for _, op := range ops {
		if !op.Persistent {
			t.Fatalf("expected %s to be written without expiry", op.Key)
		}
	}
}

func TestHistoryPage(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory(0, logger.Nop())
	keys := storage.Keys{Namespace: "test", Session: "s1"}
	history, err := NewHistory(store, keys)
	if err != nil {
		t.Fatalf("history: %v", err)
	}

	base := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	var existing []Order
	for i, id := range []string{"BKH-1", "BKH-2", "BKH-3"} {
		order := Order{ID: id, PlacedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := store.Apply(ctx, CommitOps(keys, existing, order)...); err != nil {
			t.Fatalf("commit %s: %v", id, err)
		}
		existing = append(existing, order)
	}

	first, err := history.Page(ctx, pagination.Params{Limit: 2})
	if err != nil {
		t.Fatalf("first page: %v", err)
	}
	if len(first.Orders) != 2 || first.Orders[0].ID != "BKH-1" || first.NextCursor == "" {
		t.Fatalf("unexpected first page %+v", first)
	}

	second, err := history.Page(ctx, pagination.Params{Limit: 2, Cursor: first.NextCursor})
	if err != nil {
		t.Fatalf("second page: %v", err)
	}
	if len(second.Orders) != 1 || second.Orders[0].ID != "BKH-3" || second.NextCursor != "" {
		t.Fatalf("unexpected second page %+v", second)
	}

	stale := pagination.EncodeCursor(pagination.Cursor{PlacedAt: base, ID: "BKH-9"})
	if _, err := history.Page(ctx, pagination.Params{Cursor: stale}); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for unknown cursor, got %v", err)
	}
}

func TestCloneIsDeep(t *testing.T) {
	o := Order{ID: "BKH-1", Items: []cart.LineItem{{ID: "croissant", Quantity: 2}}}
	c := o.Clone()
	c.Items[0].Quantity = 9
	if o.Items[0].Quantity != 2 {
		t.Fatal("clone shares items with original")
	}
}
