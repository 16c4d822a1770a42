package repository

import (
	"context"
	"fmt"
	"strings"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/uniportal-api/internal/models"
)

func TestLocalStorageDrivers(t *testing.T) {
	drivers := map[string]func(t *testing.T) LocalStorage{
		"redis": func(t *testing.T) LocalStorage {
			server, err := miniredis.Run()
			require.NoError(t, err)
			t.Cleanup(server.Close)

			client := redis.NewClient(&redis.Options{Addr: server.Addr()})
			t.Cleanup(func() { _ = client.Close() })
			return NewRedisLocalStorage(client)
		},
		"sqlite": func(t *testing.T) LocalStorage {
			return NewGormLocalStorage(setupLocalStorageDB(t))
		},
	}

	for name, build := range drivers {
		t.Run(name, func(t *testing.T) {
			store := build(t)
			ctx := context.Background()

			_, err := store.GetItem(ctx, "university-portal:submissions")
			require.ErrorIs(t, err, ErrLocalItemNotFound)

			require.NoError(t, store.SetItem(ctx, "university-portal:submissions", []byte(`[{"id":"a"}]`)))
			value, err := store.GetItem(ctx, "university-portal:submissions")
			require.NoError(t, err)
			require.JSONEq(t, `[{"id":"a"}]`, string(value))

			require.NoError(t, store.SetItem(ctx, "university-portal:submissions", []byte(`[{"id":"a"},{"id":"b"}]`)))
			value, err = store.GetItem(ctx, "university-portal:submissions")
			require.NoError(t, err)
			require.JSONEq(t, `[{"id":"a"},{"id":"b"}]`, string(value))

			_, err = store.GetItem(ctx, "university-portal:other")
			require.ErrorIs(t, err, ErrLocalItemNotFound)
		})
	}
}

func TestGormLocalStorageKeepsSingleRowPerKey(t *testing.T) {
	db := setupLocalStorageDB(t)
	store := NewGormLocalStorage(db)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, store.SetItem(ctx, "university-portal:submissions", []byte(fmt.Sprintf(`{"n":%d}`, i))))
	}

	var count int64
	require.NoError(t, db.Model(&models.LocalStorageEntry{}).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func setupLocalStorageDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.LocalStorageEntry{}))
	return db
}
