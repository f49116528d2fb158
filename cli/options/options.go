/*
Package options contains a set of common CLI options and helper functions to use them.
*/
package options

import (
	"fmt"

	"github.com/nspcc-dev/neo-mpt/pkg/config"
	"github.com/nspcc-dev/neo-mpt/pkg/core/storage/dbconfig"
	"github.com/nspcc-dev/neo-mpt/pkg/io"
	"github.com/urfave/cli"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ConfigFile is a flag for commands that use node configuration and provide
// path to the specific config file.
var ConfigFile = cli.StringFlag{
	Name:  "config-file",
	Usage: "path to the node configuration file",
}

// Debug is a flag for commands that allow node in debug mode usage.
var Debug = cli.BoolFlag{
	Name:  "debug, d",
	Usage: "enable debug logging (LOTS of output, overrides configuration)",
}

// DB is a set of flags overriding the database configuration.
var DB = []cli.Flag{
	cli.StringFlag{
		Name:  "db-type",
		Usage: "database type (" + dbconfig.LevelDB + ", " + dbconfig.BoltDB + ", " + dbconfig.BadgerDB + ", " + dbconfig.RedisDB + " or " + dbconfig.InMemoryDB + "), overrides configuration",
	},
	cli.StringFlag{
		Name:  "db-path",
		Usage: "database path (Redis address for " + dbconfig.RedisDB + "), overrides configuration",
	},
}

// Node is the full set of flags for commands working with the local database.
var Node = append([]cli.Flag{ConfigFile, Debug}, DB...)

// GetConfigFromContext loads the configuration file if it's given and
// applies database flags on top of it.
func GetConfigFromContext(ctx *cli.Context) (config.Config, error) {
	var (
		cfg = config.Default()
		err error
	)
	if configFile := ctx.String("config-file"); len(configFile) != 0 {
		cfg, err = config.LoadFile(configFile)
		if err != nil {
			return config.Config{}, err
		}
	}
	db := &cfg.ApplicationConfiguration.DBConfiguration
	if typ := ctx.String("db-type"); len(typ) != 0 {
		db.Type = typ
	}
	if path := ctx.String("db-path"); len(path) != 0 {
		switch db.Type {
		case dbconfig.LevelDB:
			db.LevelDBOptions.DataDirectoryPath = path
		case dbconfig.BoltDB:
			db.BoltDBOptions.FilePath = path
		case dbconfig.BadgerDB:
			db.BadgerDBOptions.Dir = path
		case dbconfig.RedisDB:
			db.RedisDBOptions.Addr = path
		default:
			return config.Config{}, fmt.Errorf("--db-path can't be used with %q database", db.Type)
		}
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// HandleLoggingParams reads logging parameters.
// If a user selected debug level -- function enables it.
// If logPath is configured -- function creates a dir and a file for logging.
func HandleLoggingParams(debug bool, cfg config.ApplicationConfiguration) (*zap.Logger, *zap.AtomicLevel, error) {
	var (
		level = zapcore.InfoLevel
		err   error
	)
	if len(cfg.LogLevel) > 0 {
		level, err = zapcore.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, nil, fmt.Errorf("log setting: %w", err)
		}
	}
	if debug {
		level = zapcore.DebugLevel
	}

	cc := zap.NewProductionConfig()
	cc.DisableCaller = true
	cc.DisableStacktrace = true
	cc.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	cc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cc.Encoding = "console"
	cc.Level = zap.NewAtomicLevelAt(level)
	cc.Sampling = nil

	if logPath := cfg.LogPath; logPath != "" {
		if err := io.MakeDirForFile(logPath, "logger"); err != nil {
			return nil, nil, err
		}
		cc.OutputPaths = []string{logPath}
	}

	log, err := cc.Build()
	return log, &cc.Level, err
}
