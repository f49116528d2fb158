package app

import (
	"fmt"
	"os"
	"runtime"

	"github.com/nspcc-dev/neo-mpt/cli/trie"
	"github.com/nspcc-dev/neo-mpt/pkg/config"
	"github.com/urfave/cli"
)

func versionPrinter(c *cli.Context) {
	_, _ = fmt.Fprintf(c.App.Writer, "NeoMPT\nVersion: %s\nGoVersion: %s\n",
		config.Version,
		runtime.Version(),
	)
}

// New creates a NeoMPT instance of [cli.App] with all commands included.
func New() *cli.App {
	cli.VersionPrinter = versionPrinter
	ctl := cli.NewApp()
	ctl.Name = "neo-mpt"
	ctl.Version = config.Version
	ctl.Usage = "Neo state trie storage tool"
	ctl.ErrWriter = os.Stdout

	ctl.Commands = append(ctl.Commands, trie.NewCommands()...)
	return ctl
}
