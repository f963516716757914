package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/datallboy/gocol/internal/domain"
	"github.com/segmentio/ksuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *PersistentStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "db", "gocol.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestTransferRoundTrip(t *testing.T) {
	s := openTestStore(t)

	started := time.Unix(1700000000, 0)
	tr := &domain.Transfer{
		ID:          ksuid.New().String(),
		ConsoleID:   "X1234",
		ConsoleName: "XBOXTEST",
		ItemPath:    "/col/content/%7BA89ECE52-7E8E-444F-BBD0-C68B76C2ECA4%7D%23game",
		FileName:    "game",
		State:       domain.StateIdle,
	}
	require.NoError(t, s.SaveTransfer(tr))

	tr.State = domain.StateFailed
	tr.TotalBytes = 4200
	tr.BytesWritten.Store(2048)
	tr.StartedAt = started
	tr.FinishedAt = started.Add(time.Minute)
	tr.Error = "chunk 2: connection reset"
	require.NoError(t, s.SaveTransfer(tr))

	got, err := s.GetTransfer(tr.ID)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, tr.ID, got.ID)
	assert.Equal(t, "XBOXTEST", got.ConsoleName)
	assert.Equal(t, tr.ItemPath, got.ItemPath)
	assert.Equal(t, tr.ItemPath, got.Item.Path)
	assert.Equal(t, domain.StateFailed, got.State)
	assert.Equal(t, int64(4200), got.TotalBytes)
	assert.Equal(t, int64(2048), got.BytesWritten.Load())
	assert.True(t, started.Equal(got.StartedAt))
	assert.True(t, started.Add(time.Minute).Equal(got.FinishedAt))
	assert.Equal(t, tr.Error, got.Error)
}

func TestGetTransferMissing(t *testing.T) {
	s := openTestStore(t)

	got, err := s.GetTransfer("nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestListTransfersNewestFirst(t *testing.T) {
	s := openTestStore(t)

	var ids []string
	for i := range 3 {
		id := ksuid.New()
		// ksuid ordering is by second, so space them out explicitly
		id, err := ksuid.FromParts(time.Now().Add(time.Duration(i)*time.Second), id.Payload())
		require.NoError(t, err)

		tr := &domain.Transfer{ID: id.String(), ItemPath: "p", FileName: "f", State: domain.StateComplete}
		require.NoError(t, s.SaveTransfer(tr))
		ids = append(ids, tr.ID)
	}

	all, err := s.ListTransfers(0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, ids[2], all[0].ID)
	assert.Equal(t, ids[0], all[2].ID)

	limited, err := s.ListTransfers(2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gocol.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	var (
		version int
		dirty   bool
	)
	require.NoError(t, s.db.QueryRow("SELECT version, dirty FROM schema_migrations").Scan(&version, &dirty))
	assert.Equal(t, 1, version)
	assert.False(t, dirty)

	// down migration is embedded alongside the up step
	_, err = migrationFiles.ReadFile("migrations/0001_transfers.down.sql")
	assert.NoError(t, err)
}

func TestRebind(t *testing.T) {
	pg := &PersistentStore{dialect: dialectPostgres}
	assert.Equal(t, "SELECT a FROM t WHERE x = $1 AND y = $2", pg.rebind("SELECT a FROM t WHERE x = ? AND y = ?"))

	lite := &PersistentStore{dialect: dialectSQLite}
	assert.Equal(t, "x = ?", lite.rebind("x = ?"))
}
