package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/uniportal-api/internal/models"
)

// ErrLocalItemNotFound is returned when no value is stored under a key.
var ErrLocalItemNotFound = errors.New("local storage item not found")

// LocalStorage is a namespaced key/value document store used when the portal backend is unreachable.
type LocalStorage interface {
	GetItem(ctx context.Context, key string) ([]byte, error)
	SetItem(ctx context.Context, key string, value []byte) error
}

type redisLocalStorage struct {
	client *redis.Client
}

// NewRedisLocalStorage keeps local documents as plain Redis strings without expiry.
func NewRedisLocalStorage(client *redis.Client) LocalStorage {
	return &redisLocalStorage{client: client}
}

func (s *redisLocalStorage) GetItem(ctx context.Context, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrLocalItemNotFound
		}
		return nil, fmt.Errorf("read local item %s: %w", key, err)
	}
	return value, nil
}

func (s *redisLocalStorage) SetItem(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("write local item %s: %w", key, err)
	}
	return nil
}

type gormLocalStorage struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormLocalStorage stores local documents in the local_storage_entries table.
func NewGormLocalStorage(db *gorm.DB) LocalStorage {
	return &gormLocalStorage{db: db, now: time.Now}
}

func (s *gormLocalStorage) GetItem(ctx context.Context, key string) ([]byte, error) {
	var entry models.LocalStorageEntry
	err := s.db.WithContext(ctx).Where("storage_key = ?", key).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLocalItemNotFound
		}
		return nil, fmt.Errorf("read local item %s: %w", key, err)
	}
	return []byte(entry.Value), nil
}

func (s *gormLocalStorage) SetItem(ctx context.Context, key string, value []byte) error {
	entry := models.LocalStorageEntry{
		Key:       key,
		Value:     datatypes.JSON(value),
		UpdatedAt: s.now().UTC(),
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "storage_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("write local item %s: %w", key, err)
	}
	return nil
}
