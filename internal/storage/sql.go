package storage

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/bakehouse-backend/pkg/db"
	"github.com/angelmondragon/bakehouse-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/bakehouse-backend/pkg/errors"
	"github.com/angelmondragon/bakehouse-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SQL keeps values in the kv_entries table; Apply runs in one transaction.
type SQL struct {
	client *db.Client
	logg   *logger.Logger
	now    func() time.Time
}

// NewSQL wraps a db client whose schema includes kv_entries.
func NewSQL(client *db.Client, logg *logger.Logger) (*SQL, error) {
	if client == nil {
		return nil, errors.New("db client is required")
	}
	return &SQL{client: client, logg: logg, now: time.Now}, nil
}

func (s *SQL) Get(ctx context.Context, key string, dest any) (bool, error) {
	var entry models.KVEntry
	err := s.client.DB().WithContext(ctx).
		Where("entry_key = ?", key).
		Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "sql read "+key)
	}
	return decodeInto(ctx, s.logg, key, entry.Value, dest), nil
}

func (s *SQL) Set(ctx context.Context, key string, value any) error {
	return s.Apply(ctx, SetOp(key, value))
}

func (s *SQL) Remove(ctx context.Context, key string) error {
	return s.Apply(ctx, RemoveOp(key))
}

func (s *SQL) Apply(ctx context.Context, ops ...Op) error {
	encoded, err := encodeOps(ops)
	if err != nil {
		return err
	}
	if len(encoded) == 0 {
		return nil
	}

	now := s.now().UTC()
	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		for _, op := range encoded {
			if op.isDelete() {
				if err := tx.Where("entry_key = ?", op.key).Delete(&models.KVEntry{}).Error; err != nil {
					return err
				}
				continue
			}
			entry := models.KVEntry{Key: op.key, Value: op.data, UpdatedAt: now}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "entry_key"}},
				DoUpdates: clause.AssignmentColumns([]string{"entry_value", "updated_at"}),
			}).Create(&entry).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if db.IsUniqueViolation(err, "") {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "concurrent sql write")
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "sql write batch")
	}
	return nil
}
