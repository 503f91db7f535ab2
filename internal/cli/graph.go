package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/frederic-klein/eapkg/internal/graph"
)

func (a *app) graphCommand() *cobra.Command {
	var (
		output       string
		displayNames bool
		noConflicts  bool
	)

	cmd := &cobra.Command{
		Use:   "graph [PACKAGE...]",
		Short: "Draw the requirement graph",
		Long: `Draw the requirements and conflicts of the given packages, or of the whole
catalog. Output is DOT, or SVG when the output file ends in .svg.`,
		Example: `  eapkg graph ea-php82 -o php82.svg
  eapkg graph ea-apache24-mod_cgid --display-names | dot -Tpng > cgid.png`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := a.loadCatalog(ctx)
			if err != nil {
				return err
			}
			for _, name := range args {
				if _, ok := c.Lookup(name); !ok {
					return fmt.Errorf("package %s is not in the catalog", name)
				}
			}
			marked, err := a.markSelection(ctx, c)
			if err != nil {
				return err
			}

			dot := graph.ToDOT(marked, graph.Options{
				Roots:        args,
				NoConflicts:  noConflicts,
				DisplayNames: displayNames,
			})

			if output == "" {
				_, err := fmt.Fprint(cmd.OutOrStdout(), dot)
				return err
			}

			data := []byte(dot)
			if strings.EqualFold(filepath.Ext(output), ".svg") {
				prog := newProgress(loggerFromContext(ctx))
				if data, err = graph.RenderSVG(ctx, dot); err != nil {
					return err
				}
				prog.done("Rendered SVG")
			}
			if err := os.WriteFile(output, data, 0644); err != nil {
				return fmt.Errorf("writing %s: %w", output, err)
			}
			printSuccess(cmd.OutOrStdout(), "Wrote %s", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout (.svg renders the graph)")
	cmd.Flags().BoolVar(&displayNames, "display-names", false, "label nodes with display names")
	cmd.Flags().BoolVar(&noConflicts, "no-conflicts", false, "omit conflict edges")
	return cmd
}
