package storage

import (
	"context"
	"testing"

	pkgerrors "github.com/angelmondragon/bakehouse-backend/pkg/errors"
	"github.com/angelmondragon/bakehouse-backend/pkg/logger"
)

type storedItem struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
}

func TestMemoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemory(0, logger.Nop())

	want := []storedItem{{ID: "croissant", Quantity: 2}, {ID: "baguette", Quantity: 1}}
	if err := store.Set(ctx, "k", want); err != nil {
		t.Fatalf("set: %v", err)
	}

	var got []storedItem
	found, err := store.Get(ctx, "k", &got)
	if err != nil || !found {
		t.Fatalf("expected value, found=%v err=%v", found, err)
	}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("unexpected round trip %+v", got)
	}

	if err := store.Remove(ctx, "k"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	found, err = store.Get(ctx, "k", &got)
	if err != nil || found {
		t.Fatalf("expected absent after remove, found=%v err=%v", found, err)
	}
}

func TestMemoryMalformedValueReadsAsAbsent(t *testing.T) {
	store := NewMemory(0, logger.Nop())
	store.Put("k", []byte("{not json"))

	var got []storedItem
	found, err := store.Get(context.Background(), "k", &got)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Fatal("expected malformed value to read as absent")
	}
}

func TestMemoryQuotaKeepsPriorValue(t *testing.T) {
	ctx := context.Background()
	store := NewMemory(40, logger.Nop())

	if err := store.Set(ctx, "k", "small"); err != nil {
		t.Fatalf("set small: %v", err)
	}
	err := store.Set(ctx, "k", "a value that is much too large for the configured quota")
	if !pkgerrors.HasCode(err, pkgerrors.CodeStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}

	var got string
	if found, _ := store.Get(ctx, "k", &got); !found || got != "small" {
		t.Fatalf("expected prior value to survive, got %q", got)
	}
}

func TestMemoryApplyIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	store := NewMemory(60, logger.Nop())
	if err := store.Set(ctx, "a", 1); err != nil {
		t.Fatalf("seed: %v", err)
	}

	err := store.Apply(ctx,
		RemoveOp("a"),
		SetOp("b", "this batch overflows the quota in one of its writes by a wide margin"),
	)
	if err == nil {
		t.Fatal("expected quota error")
	}
	var got int
	if found, _ := store.Get(ctx, "a", &got); !found || got != 1 {
		t.Fatal("expected the remove in the failed batch to be discarded")
	}
	if _, ok := store.Raw("b"); ok {
		t.Fatal("expected no write for b")
	}

	if err := store.Apply(ctx, RemoveOp("a"), SetOp("b", 2)); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if store.Len() != 1 {
		t.Fatalf("expected 1 key, got %d", store.Len())
	}
}

func TestMemoryRejectsEmptyKeyAndUnencodable(t *testing.T) {
	store := NewMemory(0, logger.Nop())
	if err := store.Set(context.Background(), "", 1); !pkgerrors.HasCode(err, pkgerrors.CodeStorage) {
		t.Fatalf("expected storage error for empty key, got %v", err)
	}
	if err := store.Set(context.Background(), "k", make(chan int)); !pkgerrors.HasCode(err, pkgerrors.CodeStorage) {
		t.Fatalf("expected storage error for unencodable value, got %v", err)
	}
}

func TestKeys(t *testing.T) {
	keys := Keys{Namespace: "bakehouse", Session: "s1"}
	cases := map[string]string{
		keys.Cart():            "bakehouse:s1:cart",
		keys.SavedForLater():   "bakehouse:s1:saved_for_later",
		keys.Promotion():       "bakehouse:s1:promotion",
		keys.Orders():          "bakehouse:s1:orders",
		keys.LastOrder():       "bakehouse:s1:last_order",
		keys.Notes():           "bakehouse:s1:notes",
		keys.GiftOptions():     "bakehouse:s1:gift_options",
		keys.Shipping():        "bakehouse:s1:shipping",
		keys.LastInteraction(): "bakehouse:s1:last_interaction",
	}
	for got, want := range cases {
		if got != want {
			t.Fatalf("expected %q got %q", want, got)
		}
	}
}
