/*
Package dbconfig is a micropackage that contains storage DB configuration options.
*/
package dbconfig

// Supported storage types.
const (
	LevelDB    = "leveldb"
	BoltDB     = "boltdb"
	BadgerDB   = "badgerdb"
	RedisDB    = "redisdb"
	InMemoryDB = "inmemory"
)

type (
	// DBConfiguration describes configuration for DB. Supported types:
	// [LevelDB], [BoltDB], [BadgerDB], [RedisDB] or [InMemoryDB] (not
	// recommended for production usage).
	DBConfiguration struct {
		Type            string          `yaml:"Type"`
		LevelDBOptions  LevelDBOptions  `yaml:"LevelDBOptions"`
		BoltDBOptions   BoltDBOptions   `yaml:"BoltDBOptions"`
		BadgerDBOptions BadgerDBOptions `yaml:"BadgerDBOptions"`
		RedisDBOptions  RedisDBOptions  `yaml:"RedisDBOptions"`
	}
	// LevelDBOptions configuration for LevelDB.
	LevelDBOptions struct {
		DataDirectoryPath string `yaml:"DataDirectoryPath"`
		ReadOnly          bool   `yaml:"ReadOnly"`
		// BloomFilterBits is the number of bits per key for the table
		// bloom filter, 10 is used when not set.
		BloomFilterBits int `yaml:"BloomFilterBits"`
	}
	// BoltDBOptions configuration for BoltDB.
	BoltDBOptions struct {
		FilePath string `yaml:"FilePath"`
		ReadOnly bool   `yaml:"ReadOnly"`
	}
	// BadgerDBOptions configuration for BadgerDB.
	BadgerDBOptions struct {
		Dir      string `yaml:"BadgerDir"`
		ReadOnly bool   `yaml:"ReadOnly"`
	}
	// RedisDBOptions configuration for RedisDB.
	RedisDBOptions struct {
		Addr     string `yaml:"Addr"`
		Password string `yaml:"Password"`
		DB       int    `yaml:"DB"`
	}
)
