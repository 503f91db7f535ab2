package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/frederic-klein/eapkg/internal/catalog"
	"github.com/frederic-klein/eapkg/internal/resolver"
)

func (a *app) listCommand() *cobra.Command {
	var (
		kind         string
		selectedOnly bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog packages",
		Long: `List the packages in the catalog. Use --type to show one wizard category:
mpm, modules, php, extensions, ruby or additional.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := a.loadCatalog(ctx)
			if err != nil {
				return err
			}
			c, err = a.markSelection(ctx, c)
			if err != nil {
				return err
			}

			names := c.Names()
			if kind != "" {
				k, err := catalog.ParseKind(kind)
				if err != nil {
					return err
				}
				names = catalog.Subset(c, k)
			}

			t := table.New().
				Border(lipgloss.HiddenBorder()).
				Headers("", "PACKAGE", "NAME", "VERSION", "STATE").
				StyleFunc(func(row, col int) lipgloss.Style {
					if row == -1 {
						return styleDim
					}
					return lipgloss.NewStyle()
				})

			shown, marked := 0, 0
			for _, name := range names {
				p := c[name]
				if selectedOnly && !p.Selected {
					continue
				}
				mark := " "
				if p.Selected {
					mark = styleAdd.Render(iconSuccess)
					marked++
				}
				t.Row(mark, name, p.DisplayName, p.Version, string(p.State))
				shown++
			}

			out := cmd.OutOrStdout()
			if shown == 0 {
				printInfo(out, "No packages")
				return nil
			}
			fmt.Fprintln(out, t.Render())
			printDetail(out, "%d packages, %d selected", shown, marked)
			return nil
		},
	}

	cmd.Flags().StringVarP(&kind, "type", "t", "", "only list packages of this category")
	cmd.Flags().BoolVar(&selectedOnly, "selected", false, "only list selected packages")
	return cmd
}

func (a *app) depsCommand() *cobra.Command {
	var reverse bool

	cmd := &cobra.Command{
		Use:   "deps PACKAGE",
		Short: "Show what a package requires and conflicts with",
		Long: `Show the transitive requirements, conflicts and OR-groups of a package.
With --reverse, show the selected packages that would be removed along with it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := a.loadCatalog(ctx)
			if err != nil {
				return err
			}
			r := resolver.New(c, resolver.WithLogger(loggerFromContext(ctx)))
			out := cmd.OutOrStdout()
			name := args[0]

			if reverse {
				selected, err := a.initialSelection(ctx, c)
				if err != nil {
					return err
				}
				dependents, err := r.Dependents(name, selected)
				if err != nil {
					return err
				}
				if len(dependents) == 0 {
					printInfo(out, "No selected package depends on %s", name)
					return nil
				}
				fmt.Fprintln(out, styleTitle.Render("Removing "+name+" also removes"))
				for _, d := range dependents {
					fmt.Fprintln(out, styleRemove.Render(iconRemove+" "+d))
				}
				return nil
			}

			deps, err := r.Dependencies(name)
			if err != nil {
				return err
			}
			p := c[name]
			printKeyValue(out, "Package", name)
			if p.DisplayName != "" {
				printKeyValue(out, "Name", p.DisplayName)
			}
			if p.Version != "" {
				printKeyValue(out, "Version", p.Version)
			}
			printKeyValue(out, "Requires", joinOrNone(deps.Requires))
			printKeyValue(out, "Conflicts", joinOrNone(deps.Conflicts))
			for _, g := range deps.OrGroups {
				printKeyValue(out, "One of", strings.Join(g, " | "))
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&reverse, "reverse", "r", false, "show selected packages that depend on PACKAGE")
	return cmd
}

func joinOrNone(names []string) string {
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ", ")
}
