package database

import (
	"path/filepath"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func TestConnectRedis(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(server.Close)

	client, err := ConnectRedis("redis://" + server.Addr() + "/0")
	require.NoError(t, err)
	require.NoError(t, client.Close())

	_, err = ConnectRedis("")
	require.Error(t, err)

	_, err = ConnectRedis("not-a-url")
	require.ErrorContains(t, err, "parse redis url")
}

func TestConnectSQLiteCreatesDatabaseFile(t *testing.T) {
	db, err := ConnectSQLite(filepath.Join(t.TempDir(), "portal.db"))
	require.NoError(t, err)
	require.NoError(t, db.Exec("SELECT 1").Error)

	_, err = ConnectSQLite("")
	require.Error(t, err)
}

func TestConnectPostgresRequiresDSN(t *testing.T) {
	_, err := ConnectPostgres("")
	require.Error(t, err)
}
