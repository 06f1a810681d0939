package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"ledger/internal/config"
	"ledger/internal/core"
	"ledger/internal/log"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger(buf *bytes.Buffer) *log.Logger {
	return log.New(log.Config{Output: buf})
}

func TestRunBootstrap(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "ledger.db")

	ok := RunBootstrap(context.Background(), testLogger(&buf), path, true)
	assert.True(t, ok)
	assert.Contains(t, buf.String(), "Demo data seeded")
}

func TestRunBootstrap_FailureIsLogged(t *testing.T) {
	var buf bytes.Buffer
	dir := t.TempDir()
	// A regular file where the parent directory should be makes the bootstrap fail.
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	ok := RunBootstrap(context.Background(), testLogger(&buf), filepath.Join(blocker, "ledger.db"), true)
	assert.False(t, ok)
	assert.Contains(t, buf.String(), "Schema bootstrap failed")
}

func TestOpenStore_AutoMigrate(t *testing.T) {
	var buf bytes.Buffer
	cfg := &config.Config{
		SQLiteDBPath: filepath.Join(t.TempDir(), "ledger.db"),
		AutoMigrate:  true,
		SeedDemo:     true,
	}

	repo, err := OpenStore(context.Background(), testLogger(&buf), cfg)
	require.NoError(t, err)
	defer repo.Close()

	rows, err := repo.ListTransactions(context.Background(), core.DefaultPage())
	require.NoError(t, err)
	assert.Len(t, rows, 5)
}

func TestOpenStore_WithoutMigrate(t *testing.T) {
	var buf bytes.Buffer
	cfg := &config.Config{SQLiteDBPath: filepath.Join(t.TempDir(), "ledger.db")}

	repo, err := OpenStore(context.Background(), testLogger(&buf), cfg)
	require.NoError(t, err)
	defer repo.Close()

	_, err = repo.ListTransactions(context.Background(), core.DefaultPage())
	assert.Error(t, err, "tables do not exist until bootstrapped")
}

func TestSetupLogger(t *testing.T) {
	logger := SetupLogger("nonsense")
	require.NotNil(t, logger)
	assert.Equal(t, log.ComponentApp, logger.Component())
}
