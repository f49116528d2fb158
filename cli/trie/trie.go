/*
Package trie contains the commands working with the state trie stored in the
local database.
*/
package trie

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/nspcc-dev/neo-mpt/cli/options"
	"github.com/nspcc-dev/neo-mpt/pkg/core/mpt"
	"github.com/nspcc-dev/neo-mpt/pkg/core/state"
	"github.com/nspcc-dev/neo-mpt/pkg/core/stateroot"
	"github.com/nspcc-dev/neo-mpt/pkg/core/storage"
	"github.com/nspcc-dev/neo-mpt/pkg/util"
	"github.com/urfave/cli"
	"go.uber.org/zap"
)

// KVPair represents a key-value pair.
type KVPair struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

var (
	keyFlag = cli.StringFlag{
		Name:  "key, k",
		Usage: "hex-encoded key",
	}
	rootFlag = cli.StringFlag{
		Name:  "root, r",
		Usage: "state root hash (LE), the latest local state root is used if not specified",
	}
)

// NewCommands returns trie-related commands.
func NewCommands() []cli.Command {
	return []cli.Command{
		{
			Name:      "put",
			Usage:     "Put a value and commit the next state height",
			UsageText: "neo-mpt put --key <hex> --value <hex> [--config-file file] [--db-type type --db-path path]",
			Action:    put,
			Flags: append([]cli.Flag{keyFlag, cli.StringFlag{
				Name:  "value, v",
				Usage: "hex-encoded value, may be empty",
			}}, options.Node...),
		},
		{
			Name:      "delete",
			Usage:     "Delete a key and commit the next state height",
			UsageText: "neo-mpt delete --key <hex> [--config-file file] [--db-type type --db-path path]",
			Action:    del,
			Flags:     append([]cli.Flag{keyFlag}, options.Node...),
		},
		{
			Name:      "get",
			Usage:     "Print the value stored by the key",
			UsageText: "neo-mpt get --key <hex> [--root <hash>] [--config-file file] [--db-type type --db-path path]",
			Action:    get,
			Flags:     append([]cli.Flag{keyFlag, rootFlag}, options.Node...),
		},
		{
			Name:      "root",
			Usage:     "Print the state root recorded for the height",
			UsageText: "neo-mpt root [--height <N>] [--config-file file] [--db-type type --db-path path]",
			Action:    root,
			Flags: append([]cli.Flag{cli.UintFlag{
				Name:  "height",
				Usage: "state height, the latest one is used if not specified",
			}}, options.Node...),
		},
		{
			Name:      "proof",
			Usage:     "Print the base64-encoded proof of the key presence or absence",
			UsageText: "neo-mpt proof --key <hex> [--root <hash>] [--config-file file] [--db-type type --db-path path]",
			Action:    proof,
			Flags:     append([]cli.Flag{keyFlag, rootFlag}, options.Node...),
		},
		{
			Name:      "verify",
			Usage:     "Verify the proof against the state root, no database is needed",
			UsageText: "neo-mpt verify --root <hash> --proof <base64>",
			Action:    verify,
			Flags: []cli.Flag{
				rootFlag,
				cli.StringFlag{
					Name:  "proof, p",
					Usage: "base64-encoded proof",
				},
			},
		},
		{
			Name:      "find",
			Usage:     "Print the key-value pairs with keys starting with the prefix as JSON lines",
			UsageText: "neo-mpt find [--prefix <hex>] [--from <hex>] [--max <N>] [--root <hash>] [--config-file file] [--db-type type --db-path path]",
			Action:    find,
			Flags: append([]cli.Flag{
				cli.StringFlag{
					Name:  "prefix",
					Usage: "hex-encoded key prefix",
				},
				cli.StringFlag{
					Name:  "from",
					Usage: "hex-encoded key to start after, it must have the prefix",
				},
				cli.IntFlag{
					Name:  "max",
					Usage: "maximum number of pairs, all are printed if not positive",
				},
				rootFlag,
			}, options.Node...),
		},
	}
}

// openModule opens the database and initializes the state root module at
// the latest committed height. The returned function must be called to
// close the database.
func openModule(ctx *cli.Context) (*stateroot.Module, func(), error) {
	cfg, err := options.GetConfigFromContext(ctx)
	if err != nil {
		return nil, nil, err
	}
	log, _, err := options.HandleLoggingParams(ctx.Bool("debug"), cfg.ApplicationConfiguration)
	if err != nil {
		return nil, nil, err
	}
	store, err := storage.NewStore(cfg.ApplicationConfiguration.DBConfiguration)
	if err != nil {
		_ = log.Sync()
		return nil, nil, fmt.Errorf("could not initialize storage: %w", err)
	}
	closer := func() {
		if err := store.Close(); err != nil {
			log.Warn("failed to close the DB", zap.Error(err))
		}
		_ = log.Sync()
	}
	m := stateroot.NewModule(cfg.ApplicationConfiguration.StateRoot, log, storage.NewMemCachedStore(store))
	height, err := m.LoadLocalHeight()
	if err != nil && !errors.Is(err, storage.ErrKeyNotFound) {
		closer()
		return nil, nil, err
	}
	if err := m.Init(height); err != nil {
		closer()
		return nil, nil, err
	}
	return m, closer, nil
}

func parseHex(ctx *cli.Context, name string, required bool) ([]byte, error) {
	s := ctx.String(name)
	if len(s) == 0 {
		if required && !ctx.IsSet(name) {
			return nil, fmt.Errorf("missing --%s", name)
		}
		return []byte{}, nil
	}
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid --%s: %w", name, err)
	}
	return b, nil
}

func getRoot(ctx *cli.Context, m *stateroot.Module) (util.Uint256, error) {
	s := ctx.String("root")
	if len(s) == 0 {
		if m == nil {
			return util.Uint256{}, errors.New("missing --root")
		}
		return m.CurrentLocalStateRoot(), nil
	}
	r, err := util.Uint256DecodeStringLE(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return util.Uint256{}, fmt.Errorf("invalid --root: %w", err)
	}
	return r, nil
}

func put(ctx *cli.Context) error {
	key, err := parseHex(ctx, "key", true)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	value, err := parseHex(ctx, "value", true)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	var b mpt.Batch
	b.Add(key, value)
	return commit(ctx, b)
}

func del(ctx *cli.Context) error {
	key, err := parseHex(ctx, "key", true)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	var b mpt.Batch
	b.Add(key, nil)
	return commit(ctx, b)
}

func commit(ctx *cli.Context, b mpt.Batch) error {
	m, closer, err := openModule(ctx)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer closer()

	if err := m.AddMPTBatch(m.CurrentLocalHeight()+1, b); err != nil {
		return cli.NewExitError(err, 1)
	}
	return printRoot(ctx, &state.MPTRoot{
		Index: m.CurrentLocalHeight(),
		Root:  m.CurrentLocalStateRoot(),
	})
}

func printRoot(ctx *cli.Context, r *state.MPTRoot) error {
	data, err := json.Marshal(r)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	fmt.Fprintln(ctx.App.Writer, string(data))
	return nil
}

func get(ctx *cli.Context) error {
	key, err := parseHex(ctx, "key", true)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	m, closer, err := openModule(ctx)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer closer()

	r, err := getRoot(ctx, m)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	val, err := m.GetState(r, key)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	fmt.Fprintln(ctx.App.Writer, hex.EncodeToString(val))
	return nil
}

func root(ctx *cli.Context) error {
	m, closer, err := openModule(ctx)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer closer()

	if !ctx.IsSet("height") {
		return printRoot(ctx, &state.MPTRoot{
			Index: m.CurrentLocalHeight(),
			Root:  m.CurrentLocalStateRoot(),
		})
	}
	sr, err := m.GetStateRoot(uint32(ctx.Uint("height")))
	if err != nil {
		return cli.NewExitError(fmt.Errorf("no state root for height %d: %w", ctx.Uint("height"), err), 1)
	}
	return printRoot(ctx, sr)
}

func proof(ctx *cli.Context) error {
	key, err := parseHex(ctx, "key", true)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	m, closer, err := openModule(ctx)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer closer()

	r, err := getRoot(ctx, m)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	p, err := m.GetStateProof(r, key)
	if err != nil && !errors.Is(err, mpt.ErrNotFound) {
		return cli.NewExitError(err, 1)
	}
	pk := &mpt.ProofWithKey{Key: key, Proof: p}
	fmt.Fprintln(ctx.App.Writer, pk.String())
	return nil
}

func verify(ctx *cli.Context) error {
	r, err := getRoot(ctx, nil)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	s := ctx.String("proof")
	if len(s) == 0 {
		return cli.NewExitError(errors.New("missing --proof"), 1)
	}
	var p mpt.ProofWithKey
	if err := p.FromString(s); err != nil {
		return cli.NewExitError(fmt.Errorf("invalid --proof: %w", err), 1)
	}
	val, err := mpt.VerifyProof(r, p.Key, p.Proof)
	switch {
	case err == nil:
		fmt.Fprintln(ctx.App.Writer, hex.EncodeToString(val))
	case errors.Is(err, mpt.ErrNotFound):
		fmt.Fprintf(ctx.App.Writer, "key %s is absent\n", hex.EncodeToString(p.Key))
	default:
		return cli.NewExitError(err, 1)
	}
	return nil
}

func find(ctx *cli.Context) error {
	prefix, err := parseHex(ctx, "prefix", false)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	from, err := parseHex(ctx, "from", false)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	m, closer, err := openModule(ctx)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer closer()

	r, err := getRoot(ctx, m)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	res, err := m.FindStates(r, prefix, from, ctx.Int("max"))
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	encoder := json.NewEncoder(ctx.App.Writer)
	for _, kv := range res {
		err := encoder.Encode(KVPair{
			Key:   hex.EncodeToString(kv.Key),
			Value: hex.EncodeToString(kv.Value),
		})
		if err != nil {
			return cli.NewExitError(err, 1)
		}
	}
	return nil
}
