package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nspcc-dev/neo-mpt/pkg/core/storage/dbconfig"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, data string) string {
	p := filepath.Join(t.TempDir(), DefaultConfigFile)
	require.NoError(t, os.WriteFile(p, []byte(data), 0644))
	return p
}

func TestLoad(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "config"))
	require.NoError(t, err)
	require.Equal(t, dbconfig.LevelDB, cfg.ApplicationConfiguration.DBConfiguration.Type)
	require.Equal(t, 10000, cfg.ApplicationConfiguration.StateRoot.NodeCacheSize)
	require.False(t, cfg.ApplicationConfiguration.StateRoot.KeepOnlyLatestState)

	cfg, err = LoadFile(filepath.Join("..", "..", "config", "neo-mpt.latest.yml"))
	require.NoError(t, err)
	require.Equal(t, dbconfig.BoltDB, cfg.ApplicationConfiguration.DBConfiguration.Type)
	require.True(t, cfg.ApplicationConfiguration.StateRoot.KeepOnlyLatestState)
	require.Equal(t, 4, cfg.ApplicationConfiguration.StateRoot.CollapseDepth)
}

func TestLoadFile(t *testing.T) {
	t.Run("missing", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(t.TempDir(), "nothing.yml"))
		require.Error(t, err)
	})
	t.Run("empty", func(t *testing.T) {
		cfg, err := LoadFile(writeConfig(t, ""))
		require.NoError(t, err)
		require.Equal(t, Default(), cfg)
	})
	t.Run("defaults", func(t *testing.T) {
		cfg, err := LoadFile(writeConfig(t, `
ApplicationConfiguration:
  LogLevel: debug
`))
		require.NoError(t, err)
		require.Equal(t, "debug", cfg.ApplicationConfiguration.LogLevel)
		require.Equal(t, dbconfig.InMemoryDB, cfg.ApplicationConfiguration.DBConfiguration.Type)
		require.Equal(t, DefaultCollapseDepth, cfg.ApplicationConfiguration.StateRoot.CollapseDepth)
	})
	t.Run("unknown field", func(t *testing.T) {
		_, err := LoadFile(writeConfig(t, `
ApplicationConfiguration:
  Unknown: 1
`))
		require.Error(t, err)
	})
	t.Run("bad yaml", func(t *testing.T) {
		_, err := LoadFile(writeConfig(t, "ApplicationConfiguration: ["))
		require.Error(t, err)
	})
}

func TestApplicationConfiguration_Validate(t *testing.T) {
	testCases := []struct {
		name  string
		yml   string
		valid bool
	}{
		{"bad log level", "LogLevel: loud", false},
		{"bad db type", "DBConfiguration:\n    Type: mongo", false},
		{"negative cache", "StateRoot:\n    NodeCacheSize: -1", false},
		{"negative collapse depth", "StateRoot:\n    CollapseDepth: -1", false},
		{"redis", "DBConfiguration:\n    Type: redisdb\n    RedisDBOptions:\n      Addr: localhost:6379", true},
		{"zero collapse depth", "StateRoot:\n    CollapseDepth: 0", true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadFile(writeConfig(t, "ApplicationConfiguration:\n  "+tc.yml+"\n"))
			if tc.valid {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
		})
	}
}
