package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/contractkit/deployer/compile"
	"github.com/contractkit/deployer/internal/text"
)

var compileLong = text.LongDesc(`
	Compiles the project sources with the configured solc settings and writes one artifact per
	contract. Import lines are remapped before compilation. Nothing is compiled when the sources
	and settings did not change since the last run.
`)

func (a *app) newCompileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compile",
		Short: "Compile the project sources",
		Long:  compileLong,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			summary, err := a.compile(cmd)
			if err != nil {
				return err
			}

			if summary.Cached {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), "Nothing to compile")
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Compiled %d contracts from %d sources\n",
				len(summary.Contracts), summary.Sources)

			return err
		},
	}
}

func (a *app) compile(cmd *cobra.Command) (compile.Summary, error) {
	pass := compile.NewPass(a.root, a.project, a.deps.Compiler(a.root), a.lggr)

	summary, err := pass.Run(cmd.Context())
	if err != nil {
		return compile.Summary{}, fmt.Errorf("compile: %w", err)
	}

	return summary, nil
}
