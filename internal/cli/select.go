package cli

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	apierr "github.com/frederic-klein/eapkg/internal/errors"
	"github.com/frederic-klein/eapkg/internal/profile"
	"github.com/frederic-klein/eapkg/internal/resolver"
	"github.com/frederic-klein/eapkg/internal/wizard"
)

// toggleOptions holds the flags shared by select, unselect and autoselect.
type toggleOptions struct {
	choices     []string
	interactive bool
	yes         bool
	force       bool
	save        string
	output      string
}

func (o *toggleOptions) register(cmd *cobra.Command, prompts bool) {
	flags := cmd.Flags()
	if prompts {
		flags.StringSliceVarP(&o.choices, "choose", "c", nil, "answer OR-group prompts with these packages")
		flags.BoolVarP(&o.interactive, "interactive", "i", false, "ask for OR-group choices that --choose does not answer")
		flags.BoolVarP(&o.yes, "yes", "y", false, "apply toggles that remove packages")
	}
	flags.BoolVar(&o.force, "force", false, "apply even if no MPM would be left")
	flags.StringVar(&o.save, "save", "", "save the resulting selection as a profile with this ID")
	flags.StringVarP(&o.output, "output", "o", "", "write the resulting selection as a profile document (- for stdout)")
}

// statusWriter is where progress goes: stdout, unless stdout carries the
// profile document.
func (o *toggleOptions) statusWriter(cmd *cobra.Command) io.Writer {
	if o.output == "-" {
		return cmd.ErrOrStderr()
	}
	return cmd.OutOrStdout()
}

func (a *app) selectCommand() *cobra.Command {
	var opts toggleOptions

	cmd := &cobra.Command{
		Use:   "select PACKAGE...",
		Short: "Select packages and resolve what else changes",
		Long: `Select packages in order, adding their requirements and removing what they
conflict with. OR-group prompts are answered with --choose, or interactively
with --interactive. Toggles that remove packages need --yes.`,
		Example: `  eapkg select ea-php82
  eapkg select ea-apache24-mod_cgid --choose ea-apache24-mod_mpm_worker --yes
  eapkg select ea-php82 --save php82`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runToggles(cmd, args, true, opts)
		},
	}
	opts.register(cmd, true)
	return cmd
}

func (a *app) unselectCommand() *cobra.Command {
	var opts toggleOptions

	cmd := &cobra.Command{
		Use:   "unselect PACKAGE...",
		Short: "Unselect packages along with the packages that depend on them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runToggles(cmd, args, false, opts)
		},
	}
	opts.register(cmd, false)
	return cmd
}

// runToggles applies each of names to the starting selection and writes or
// saves the result.
func (a *app) runToggles(cmd *cobra.Command, names []string, selecting bool, opts toggleOptions) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)
	out := opts.statusWriter(cmd)

	c, err := a.loadCatalog(ctx)
	if err != nil {
		return err
	}
	initial, err := a.initialSelection(ctx, c)
	if err != nil {
		return err
	}

	s := wizard.New(c, initial, wizard.WithLogger(logger))
	for _, name := range names {
		if _, ok := c.Lookup(name); !ok {
			return apierr.New(apierr.ErrCodePackageNotFound, "package %s is not in the catalog", name)
		}
		if s.IsSelected(name) == selecting {
			printInfo(out, "%s is already %s", name, selectedWord(selecting))
			continue
		}
		step, err := s.Toggle(name)
		if err != nil {
			return err
		}
		if err := a.drive(cmd, s, step, opts); err != nil {
			s.Reset()
			return err
		}
	}

	return a.finish(ctx, cmd, initial, s.Selected(), opts)
}

func selectedWord(selecting bool) string {
	if selecting {
		return "selected"
	}
	return "not selected"
}

// drive answers the wizard until the pending toggle is applied.
func (a *app) drive(cmd *cobra.Command, s *wizard.Session, step wizard.Step, opts toggleOptions) error {
	out := opts.statusWriter(cmd)
	var err error

	for {
		if len(step.Unsatisfiable) > 0 {
			for _, g := range step.Unsatisfiable {
				printWarning(out, "%s requires one of %s, none of which can be selected", step.Package, strings.Join(g, ", "))
			}
			step.Unsatisfiable = nil
		}

		switch step.Status {
		case wizard.StatusApplied, wizard.StatusIdle:
			fmt.Fprintln(out, renderResult(step.Package, step.Selecting, step.Result))
			return nil

		case wizard.StatusChoiceNeeded:
			choice, err := pickChoice(cmd, step, opts)
			if err != nil {
				return err
			}
			printDetail(out, "%s: chose %s", step.Package, choice)
			if step, err = s.Choose(choice); err != nil {
				return err
			}
			continue

		case wizard.StatusActionNeeded:
			fmt.Fprintln(out, renderResult(step.Package, step.Selecting, step.Result))
			if len(step.Result.Broken) > 0 {
				printWarning(out, "%s still requires %s, which this change removes", step.Package, strings.Join(step.Result.Broken, ", "))
			}
			if !opts.yes {
				return apierr.New(apierr.ErrCodeConflict,
					"%s removes %s; rerun with --yes to apply", step.Package, strings.Join(step.Result.RemoveList, ", "))
			}
			step, err = s.Apply()

		case wizard.StatusRetainMissing:
			fmt.Fprintln(out, renderResult(step.Package, step.Selecting, step.Result))
			if step.Retain != nil {
				printWarning(out, "%s", step.Retain.Message)
			}
			if !opts.force {
				return apierr.New(apierr.ErrCodeConflict, "%s leaves no MPM selected; rerun with --force to apply", step.Package)
			}
			step, err = s.Confirm()

		default:
			return fmt.Errorf("unexpected wizard status %q", step.Status)
		}
		if err != nil {
			return err
		}
	}
}

// pickChoice answers an OR-group prompt from --choose, or asks the user.
func pickChoice(cmd *cobra.Command, step wizard.Step, opts toggleOptions) (string, error) {
	prompt := *step.Prompt
	for _, want := range opts.choices {
		for _, c := range prompt.OrList {
			if c.Package == want {
				return want, nil
			}
		}
	}
	if opts.interactive {
		return runChooser(cmd.InOrStdin(), cmd.OutOrStdout(), step.Package, prompt)
	}
	return "", apierr.New(apierr.ErrCodeInvalidInput,
		"%s requires one of %s; pass --choose or --interactive", step.Package, strings.Join(choiceNames(prompt), ", "))
}

func choiceNames(p resolver.Prompt) []string {
	names := make([]string, 0, len(p.OrList))
	for _, c := range p.OrList {
		names = append(names, c.Package)
	}
	return names
}

// finish reports the change to the selection and saves or writes it.
func (a *app) finish(ctx context.Context, cmd *cobra.Command, initial, selected []string, opts toggleOptions) error {
	out := opts.statusWriter(cmd)
	printChanges(out, initial, selected)

	if opts.save != "" {
		if err := a.saveProfile(ctx, opts.save, selected); err != nil {
			return err
		}
		printSuccess(out, "Saved profile %s", opts.save)
	}
	if opts.output != "" {
		if err := writeProfile(cmd, opts.output, profileName(opts), selected); err != nil {
			return err
		}
		if opts.output != "-" {
			printSuccess(out, "Wrote %s", opts.output)
		}
	}
	return nil
}

func profileName(opts toggleOptions) string {
	if opts.save != "" {
		return opts.save
	}
	return "eapkg"
}

func (a *app) saveProfile(ctx context.Context, id string, selected []string) error {
	store, closeStore, err := a.profileStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()
	return store.Put(ctx, profile.FromSelection(id, id, selected))
}

// printChanges prints the net difference between two selections.
func printChanges(w io.Writer, before, after []string) {
	var added, removed []string
	for _, name := range after {
		if !slices.Contains(before, name) {
			added = append(added, name)
		}
	}
	for _, name := range before {
		if !slices.Contains(after, name) {
			removed = append(removed, name)
		}
	}
	if len(added) == 0 && len(removed) == 0 {
		printInfo(w, "Selection unchanged (%d packages)", len(after))
		return
	}
	slices.Sort(added)
	slices.Sort(removed)
	printSuccess(w, "Selection now has %d packages (+%d -%d)", len(after), len(added), len(removed))
	for _, name := range added {
		printDetail(w, "%s %s", iconAdd, name)
	}
	for _, name := range removed {
		printDetail(w, "%s %s", iconRemove, name)
	}
}

func (a *app) autoSelectCommand() *cobra.Command {
	var (
		opts toggleOptions
		php  string
	)

	cmd := &cobra.Command{
		Use:   "autoselect [PACKAGE...]",
		Short: "Select packages that need no prompt and remove nothing",
		Long: `Select each package that resolves without an OR-group prompt and without
removing anything; the rest are reported and left alone. With --php, the
extensions selected for every other selected PHP version are added to the list.`,
		Example: `  eapkg autoselect --php ea-php82
  eapkg autoselect ea-apache24-mod_headers ea-apache24-mod_expires`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && php == "" {
				return apierr.New(apierr.ErrCodeInvalidInput, "give packages or --php")
			}
			ctx := cmd.Context()
			out := opts.statusWriter(cmd)

			c, err := a.loadCatalog(ctx)
			if err != nil {
				return err
			}
			initial, err := a.initialSelection(ctx, c)
			if err != nil {
				return err
			}
			s := wizard.New(c, initial, wizard.WithLogger(loggerFromContext(ctx)))

			names := slices.Clone(args)
			if php != "" {
				candidates, err := s.ExtensionCandidates(php)
				if err != nil {
					return err
				}
				if len(candidates) == 0 {
					printInfo(out, "No common extensions missing from %s", php)
				}
				names = append(names, candidates...)
			}

			report, err := s.AutoSelect(names)
			if err != nil {
				return err
			}
			for _, name := range report.Failed {
				printWarning(out, "Skipped %s: it needs a choice or removes packages", name)
			}
			return a.finish(ctx, cmd, initial, s.Selected(), opts)
		},
	}

	cmd.Flags().StringVar(&php, "php", "", "auto-select the common extensions for this PHP version")
	opts.register(cmd, false)
	return cmd
}
