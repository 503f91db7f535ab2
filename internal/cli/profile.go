package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/frederic-klein/eapkg/internal/downloader"
	"github.com/frederic-klein/eapkg/internal/profile"
)

func (a *app) profileCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage EasyApache 4 profiles",
	}
	cmd.AddCommand(a.profileListCommand())
	cmd.AddCommand(a.profileShowCommand())
	cmd.AddCommand(a.profileFetchCommand())
	cmd.AddCommand(a.profileDeleteCommand())
	return cmd
}

func (a *app) profileListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, closeStore, err := a.profileStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			profiles, err := store.List(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(profiles) == 0 {
				printInfo(out, "No profiles")
				return nil
			}
			for _, p := range profiles {
				fmt.Fprintf(out, "%s %s\n", styleTitle.Render(p.ID), styleDim.Render(fmt.Sprintf("%s, %d packages", p.Name, len(p.Pkgs))))
			}
			return nil
		},
	}
}

func (a *app) profileShowCommand() *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "show ID",
		Short: "Show a profile and the packages this server lacks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, closeStore, err := a.profileStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			p, err := store.Get(ctx, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if raw {
				return profile.NewEmitter(out).Emit(p)
			}

			printKeyValue(out, "ID", p.ID)
			printKeyValue(out, "Name", p.Name)
			if p.Desc != "" {
				printKeyValue(out, "Description", p.Desc)
			}
			if p.Version != "" {
				printKeyValue(out, "Version", p.Version)
			}
			if len(p.Tags) > 0 {
				printKeyValue(out, "Tags", strings.Join(p.Tags, ", "))
			}
			printKeyValue(out, "Packages", fmt.Sprint(len(p.Pkgs)))
			for _, name := range p.Pkgs {
				printDetail(out, "%s", name)
			}

			c, err := a.loadCatalog(ctx)
			if err != nil {
				return err
			}
			if missing := p.MissingFrom(c); len(missing) > 0 {
				printWarning(out, "Not on this server: %s", strings.Join(missing, ", "))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&raw, "json", false, "print the profile document")
	return cmd
}

func (a *app) profileFetchCommand() *cobra.Command {
	var (
		force   bool
		workers int
	)

	cmd := &cobra.Command{
		Use:   "fetch URL...",
		Short: "Download profiles into the profile directory",
		Long: `Download profile documents in parallel. Each profile is stored under the
last element of its URL without .json. Existing profiles are kept unless
--force is given.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)
			if workers < 1 {
				workers = a.cfg.Profiles.Workers
			}

			jobs := make([]downloader.Job, len(args))
			for i, u := range args {
				jobs[i] = downloader.Job{URL: u}
			}

			prog := newProgress(logger)
			d := downloader.NewDownloader(workers, a.cfg.Profiles.Dir,
				downloader.WithForce(force),
				downloader.WithLogger(logger))
			results := d.Download(ctx, jobs)

			out := cmd.OutOrStdout()
			var failed int
			for _, res := range results {
				switch {
				case res.Error != nil:
					failed++
					printWarning(out, "%s: %v", res.Job.URL, res.Error)
				case res.Skipped:
					printInfo(out, "%s exists, skipped", res.Job.ID)
				default:
					printSuccess(out, "Fetched %s", res.Job.ID)
				}
			}
			prog.done(fmt.Sprintf("Fetched %d of %d profiles", len(results)-failed, len(results)))

			if failed > 0 {
				return fmt.Errorf("%d of %d downloads failed", failed, len(results))
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite existing profiles")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "parallel downloads (default from config)")
	return cmd
}

func (a *app) profileDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a stored profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, closeStore, err := a.profileStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			if err := store.Delete(ctx, args[0]); err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), "Deleted profile %s", args[0])
			return nil
		},
	}
}
