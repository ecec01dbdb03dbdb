package config_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftfs/driftfs/pkg/config"
	"github.com/driftfs/driftfs/pkg/fs"
)

func TestCreateFileSystemMemory(t *testing.T) {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)

	f, closer, err := config.CreateFileSystem(context.Background(), cfg)
	require.NoError(t, err)
	defer func() { _ = closer() }()

	require.NoError(t, f.WriteFile("probe.txt", []byte("ok")))
	data, err := f.ReadFile("probe.txt", fs.UnlimitedSize)
	require.NoError(t, err)
	assert.Equal(t, []byte("ok"), data)
}

func TestCreateFileSystemDisk(t *testing.T) {
	cfg := &config.Config{
		Backend: config.BackendConfig{
			Type: "disk",
			Disk: map[string]any{"root": t.TempDir()},
		},
	}
	config.ApplyDefaults(cfg)

	f, closer, err := config.CreateFileSystem(context.Background(), cfg)
	require.NoError(t, err)
	defer func() { _ = closer() }()

	require.NoError(t, f.WriteFile("probe.txt", []byte("ok")))
}

func TestCreateFileSystemBadgerInMemory(t *testing.T) {
	cfg := &config.Config{
		Backend: config.BackendConfig{
			Type:   "badger",
			Badger: map[string]any{"in_memory": true},
		},
	}
	config.ApplyDefaults(cfg)

	f, closer, err := config.CreateFileSystem(context.Background(), cfg)
	require.NoError(t, err)

	require.NoError(t, f.WriteFile("probe.txt", []byte("ok")))
	require.NoError(t, closer(), "the closer shuts the database down")
}

func TestCreateBackendUnknownType(t *testing.T) {
	_, _, err := config.CreateBackend(context.Background(), &config.BackendConfig{
		Type: "tape",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown backend type")
}

func TestCreateBackendBadgerRequiresPath(t *testing.T) {
	_, _, err := config.CreateBackend(context.Background(), &config.BackendConfig{
		Type:   "badger",
		Badger: map[string]any{},
	})
	require.Error(t, err)
}
