package api

import (
	"io/fs"
	"testing"

	"stabledesk/internal/database/migrations"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionTableIsMigrated(t *testing.T) {
	up, err := fs.ReadFile(migrations.FS, "000001_init.up.sql")
	require.NoError(t, err)
	assert.Contains(t, string(up), "CREATE TABLE IF NOT EXISTS "+SessionTable+" (")

	down, err := fs.ReadFile(migrations.FS, "000001_init.down.sql")
	require.NoError(t, err)
	assert.Contains(t, string(down), "DROP TABLE IF EXISTS "+SessionTable+";")
}
