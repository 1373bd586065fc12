package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/contractkit/deployer/internal/text"
	"github.com/contractkit/deployer/remap"
)

var (
	remapLong = text.LongDesc(`
		Prints a source file with its import lines rewritten by the project's remapping table,
		the way the compile pass sees it.

		The table is read from remappings.txt in the project root, or from the remappings of
		foundry.toml when remappings.txt does not exist. Use "-" to read standard input.
	`)

	remapExample = text.Examples(`
		deployer remap src/Bar.sol
	`)
)

func (a *app) newRemapCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "remap <file>",
		Short:   "Apply the remapping table to a source file",
		Long:    remapLong,
		Example: remapExample,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				src []byte
				err error
			)
			if args[0] == "-" {
				src, err = io.ReadAll(cmd.InOrStdin())
			} else {
				src, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}

			table := remap.NewRemapper(a.root).Table()
			a.lggr.Debugw("Loaded remapping table", "entries", len(table))

			_, err = cmd.OutOrStdout().Write(remap.TransformSource(src, table))

			return err
		},
	}
}
