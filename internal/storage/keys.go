package storage

import "github.com/angelmondragon/bakehouse-backend/pkg/redis"

// Keys builds the namespaced keys one shopping session writes.
type Keys struct {
	Namespace string
	Session   string
}

func (k Keys) key(name string) string {
	return redis.Key(k.Namespace, k.Session, name)
}

func (k Keys) Cart() string            { return k.key("cart") }
func (k Keys) SavedForLater() string   { return k.key("saved_for_later") }
func (k Keys) Promotion() string       { return k.key("promotion") }
func (k Keys) Orders() string          { return k.key("orders") }
func (k Keys) LastOrder() string       { return k.key("last_order") }
func (k Keys) Notes() string           { return k.key("notes") }
func (k Keys) GiftOptions() string     { return k.key("gift_options") }
func (k Keys) Shipping() string        { return k.key("shipping") }
func (k Keys) LastInteraction() string { return k.key("last_interaction") }

// Idempotency keys the replay record for one client-supplied idempotency token.
func (k Keys) Idempotency(token string) string {
	return redis.Key(k.Namespace, k.Session, "idempotency", token)
}
