package storage

import (
	"context"
	"encoding/json"
	"reflect"

	pkgerrors "github.com/angelmondragon/bakehouse-backend/pkg/errors"
	"github.com/angelmondragon/bakehouse-backend/pkg/logger"
)

// Store persists JSON values under namespaced keys.
type Store interface {
	// Get decodes the value at key into dest. Absent or malformed values
	// report false without an error.
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Remove(ctx context.Context, key string) error
	// Apply writes every op or none of them.
	Apply(ctx context.Context, ops ...Op) error
}

// Op is one write inside an Apply batch. Persistent values ignore any
// backend expiry.
type Op struct {
	Key        string
	Value      any
	Delete     bool
	Persistent bool
}

// SetOp stores value at key.
func SetOp(key string, value any) Op {
	return Op{Key: key, Value: value}
}

// PersistentSetOp stores value at key without expiry.
func PersistentSetOp(key string, value any) Op {
	return Op{Key: key, Value: value, Persistent: true}
}

// RemoveOp deletes key.
func RemoveOp(key string) Op {
	return Op{Key: key, Delete: true}
}

type encodedOp struct {
	key        string
	data       []byte
	persistent bool
}

func (e encodedOp) isDelete() bool {
	return e.data == nil
}

func encodeOps(ops []Op) ([]encodedOp, error) {
	out := make([]encodedOp, 0, len(ops))
	for _, op := range ops {
		if op.Key == "" {
			return nil, pkgerrors.New(pkgerrors.CodeStorage, "storage key is required")
		}
		if op.Delete {
			out = append(out, encodedOp{key: op.Key})
			continue
		}
		data, err := json.Marshal(op.Value)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "encode value for "+op.Key)
		}
		out = append(out, encodedOp{key: op.Key, data: data, persistent: op.Persistent})
	}
	return out, nil
}

// decodeInto leaves dest untouched unless raw decodes cleanly.
func decodeInto(ctx context.Context, logg *logger.Logger, key string, raw []byte, dest any) bool {
	target := reflect.ValueOf(dest)
	if target.Kind() != reflect.Pointer || target.IsNil() {
		return false
	}
	fresh := reflect.New(target.Elem().Type())
	if err := json.Unmarshal(raw, fresh.Interface()); err != nil {
		if logg != nil {
			logg.Warn(logg.WithFields(ctx, map[string]any{"key": key, "error": err.Error()}), "discarding malformed stored value")
		}
		return false
	}
	target.Elem().Set(fresh.Elem())
	return true
}
