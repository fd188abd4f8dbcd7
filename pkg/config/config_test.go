package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_LoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sectoken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ledger_path: /tmp/x.db\nunmetered: true\nrent:\n  lamports_per_byte_year: 10\n"), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x.db", cfg.LedgerPath)
	assert.Equal(t, uint64(10), cfg.Rent.LamportsPerByteYear)
	assert.Equal(t, 2.0, cfg.Rent.ExemptionThreshold)
	assert.Equal(t, DefaultProgramId, cfg.ProgramId)
	assert.Equal(t, DefaultTransferHookId, cfg.TransferHookId)
	assert.True(t, cfg.Unmetered)
}

func TestConfig_EmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestConfig_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rent: [1, 2"), 0600))
	_, err = Load(path)
	assert.Error(t, err)
}
