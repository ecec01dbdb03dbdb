package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/driftfs/driftfs/pkg/config"
)

// writeConfigFile marshals the fixture to YAML in a temp dir and returns
// its path.
func writeConfigFile(t *testing.T, fixture map[string]any) string {
	t.Helper()

	data, err := yaml.Marshal(fixture)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfigFile(t, map[string]any{})

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, "stderr", cfg.Logging.Output)
	assert.Equal(t, "memory", cfg.Backend.Type)
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfigFile(t, map[string]any{
		"logging": map[string]any{
			"level": "debug",
		},
		"backend": map[string]any{
			"type": "disk",
			"disk": map[string]any{
				"root": "/srv/files",
			},
		},
	})

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "DEBUG", cfg.Logging.Level, "level is normalized to uppercase")
	assert.Equal(t, "disk", cfg.Backend.Type)
	assert.Equal(t, "/srv/files", cfg.Backend.Disk["root"])
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, map[string]any{
		"logging": map[string]any{
			"level": "info",
		},
	})

	t.Setenv("DRIFTFS_LOGGING_LEVEL", "ERROR")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "ERROR", cfg.Logging.Level)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Backend.Type)
}

func TestLoadRejectsUnknownBackendType(t *testing.T) {
	path := writeConfigFile(t, map[string]any{
		"backend": map[string]any{
			"type": "carrier-pigeon",
		},
	})

	_, err := config.Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oneof")
}

func TestLoadRejectsBadLogLevel(t *testing.T) {
	path := writeConfigFile(t, map[string]any{
		"logging": map[string]any{
			"level": "verbose",
		},
	})

	_, err := config.Load(path)
	require.Error(t, err)
}

func TestValidateS3RequiresBucketAndRegion(t *testing.T) {
	path := writeConfigFile(t, map[string]any{
		"backend": map[string]any{
			"type": "s3",
			"s3": map[string]any{
				"region": "eu-west-1",
			},
		},
	})

	_, err := config.Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket")
}
