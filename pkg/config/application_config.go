package config

import (
	"errors"
	"fmt"

	"github.com/nspcc-dev/neo-mpt/pkg/core/storage/dbconfig"
	"go.uber.org/zap/zapcore"
)

// ApplicationConfiguration config specific to the node.
type ApplicationConfiguration struct {
	LogLevel        string                   `yaml:"LogLevel"`
	LogPath         string                   `yaml:"LogPath"`
	DBConfiguration dbconfig.DBConfiguration `yaml:"DBConfiguration"`
	StateRoot       StateRoot                `yaml:"StateRoot"`
}

// StateRoot contains state root module configuration.
type StateRoot struct {
	// KeepOnlyLatestState enables reference counting of trie nodes, so that
	// nodes unreachable from the latest root are removed from the DB.
	KeepOnlyLatestState bool `yaml:"KeepOnlyLatestState"`
	// NodeCacheSize is the number of trie nodes cached in memory, zero
	// disables the cache.
	NodeCacheSize int `yaml:"NodeCacheSize"`
	// CollapseDepth is the number of trie levels kept in memory between
	// commits.
	CollapseDepth int `yaml:"CollapseDepth"`
}

// Validate checks ApplicationConfiguration for internal consistency and returns
// an error if any invalid settings are found.
func (a *ApplicationConfiguration) Validate() error {
	if len(a.LogLevel) != 0 {
		if _, err := zapcore.ParseLevel(a.LogLevel); err != nil {
			return fmt.Errorf("invalid LogLevel: %w", err)
		}
	}
	switch a.DBConfiguration.Type {
	case dbconfig.LevelDB, dbconfig.BoltDB, dbconfig.BadgerDB, dbconfig.RedisDB, dbconfig.InMemoryDB:
	default:
		return fmt.Errorf("unknown storage type: %q", a.DBConfiguration.Type)
	}
	if a.StateRoot.NodeCacheSize < 0 {
		return errors.New("negative NodeCacheSize")
	}
	if a.StateRoot.CollapseDepth < 0 {
		return errors.New("negative CollapseDepth")
	}
	return nil
}
