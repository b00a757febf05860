package cmd

import (
	"io"

	"github.com/jaffee/commandeer"
	"github.com/marinedk/mdk/registry"
	"github.com/spf13/cobra"
)

// TombstoneMain is wrapped by NewTombstoneCommand and only exported for
// testing purposes.
var TombstoneMain *registry.Main

// NewTombstoneCommand returns a new cobra command wrapping TombstoneMain.
func NewTombstoneCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	var err error
	TombstoneMain = registry.NewMain()
	tombstoneCommand := &cobra.Command{
		Use:   "tombstone",
		Short: "tombstone a registry's asset documents ahead of a reload",
		Long: `Marks every asset-owned document in the registry deleted, along with
the associations referencing them, so a fresh extraction can be loaded.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return TombstoneMain.Run()
		},
	}
	flags := tombstoneCommand.Flags()
	err = commandeer.Flags(flags, TombstoneMain)
	if err != nil {
		panic(err)
	}
	return tombstoneCommand
}

func init() {
	subcommandFns["tombstone"] = NewTombstoneCommand
}
