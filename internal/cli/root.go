// Package cli implements the eapkg command-line interface.
//
// Every command loads the package catalog, from WHM (cached for a day) or from
// a dump given with --catalog, and starts from a selection: the packages
// installed on the server, or the packages of the profile named with
// --profile. Commands that change the selection walk the same steps as the
// EasyApache customize wizard and can save the result as a profile.
//
// All commands support --verbose (-v) for debug-level logging. The logger is
// passed through the command context.
package cli

import (
	"context"
	"fmt"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/frederic-klein/eapkg/internal/catalog"
	"github.com/frederic-klein/eapkg/internal/config"
	"github.com/frederic-klein/eapkg/internal/pkginfo"
	"github.com/frederic-klein/eapkg/internal/profile"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// SetVersion sets the version information displayed by --version.
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// app holds the global flags and the configuration shared by commands.
type app struct {
	configPath  string
	catalogPath string
	profileID   string
	refresh     bool
	verbose     bool

	cfg *config.Config
}

// Execute runs the eapkg CLI. Canceling ctx stops long-running commands
// such as serve.
func Execute(ctx context.Context) error {
	return newRootCommand().ExecuteContext(ctx)
}

func newRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:          "eapkg",
		Short:        "Resolve EasyApache 4 package selections",
		Long:         `eapkg computes which EasyApache 4 packages must be added or removed when a package is selected or unselected, following the rules of the WHM customize wizard.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := charmlog.InfoLevel
			if a.verbose {
				level = charmlog.DebugLevel
			}
			cmd.SetContext(withLogger(cmd.Context(), newLogger(cmd.ErrOrStderr(), level)))

			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			if a.catalogPath != "" {
				cfg.Catalog = a.catalogPath
			}
			a.cfg = cfg
			return nil
		},
	}

	root.SetVersionTemplate(fmt.Sprintf("eapkg %s\ncommit: %s\nbuilt: %s\n", version, commit, date))

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default ~/.config/eapkg/config.toml)")
	flags.StringVar(&a.catalogPath, "catalog", "", "read the package catalog from a JSON or YAML dump instead of WHM")
	flags.StringVar(&a.profileID, "profile", "", "start from this profile instead of the installed packages")
	flags.BoolVar(&a.refresh, "refresh", false, "fetch the catalog from WHM even if the cache is fresh")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(a.listCommand())
	root.AddCommand(a.depsCommand())
	root.AddCommand(a.selectCommand())
	root.AddCommand(a.unselectCommand())
	root.AddCommand(a.autoSelectCommand())
	root.AddCommand(a.graphCommand())
	root.AddCommand(a.profileCommand())
	root.AddCommand(a.serveCommand())

	return root
}

// loadCatalog reads the catalog from the configured dump or from WHM.
func (a *app) loadCatalog(ctx context.Context) (pkginfo.Catalog, error) {
	logger := loggerFromContext(ctx)
	prog := newProgress(logger)

	var (
		c   pkginfo.Catalog
		err error
	)
	if a.cfg.Catalog != "" {
		c, err = catalog.LoadFile(a.cfg.Catalog)
	} else {
		client := catalog.NewClient(a.cfg.WHM.URL, a.cfg.CacheDir,
			catalog.WithAPIToken(a.cfg.WHM.User, a.cfg.WHM.Token),
			catalog.WithCacheTTL(a.cfg.WHM.CacheTTL.Duration),
			catalog.WithClientLogger(logger))
		if a.refresh {
			c, err = client.Refresh(ctx)
		} else {
			c, err = client.Load(ctx)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}

	prog.done(fmt.Sprintf("Loaded %d packages", len(c)))
	return c, nil
}

// profileStore opens MongoDB when configured and the profile directory
// otherwise. The returned function releases the store.
func (a *app) profileStore(ctx context.Context) (profile.Store, func(), error) {
	if a.cfg.Mongo.URI != "" {
		st, err := profile.NewMongoStore(ctx, a.cfg.Mongo.URI, a.cfg.Mongo.Database, a.cfg.Mongo.Collection)
		if err != nil {
			return nil, nil, err
		}
		return st, func() { st.Close(context.Background()) }, nil
	}
	st, err := profile.NewFileStore(a.cfg.Profiles.Dir, loggerFromContext(ctx))
	if err != nil {
		return nil, nil, err
	}
	return st, func() {}, nil
}

// initialSelection returns the packages of --profile, or the packages
// installed on the server.
func (a *app) initialSelection(ctx context.Context, c pkginfo.Catalog) ([]string, error) {
	if a.profileID == "" {
		var installed []string
		for _, name := range c.Names() {
			if c[name].State != pkginfo.StateNotInstalled && c[name].State != "" {
				installed = append(installed, name)
			}
		}
		return installed, nil
	}

	store, closeStore, err := a.profileStore(ctx)
	if err != nil {
		return nil, err
	}
	defer closeStore()

	p, err := store.Get(ctx, a.profileID)
	if err != nil {
		return nil, err
	}
	if missing := p.MissingFrom(c); len(missing) > 0 {
		loggerFromContext(ctx).Warn("profile packages not on server", "profile", p.ID, "missing", missing)
	}

	var selected []string
	for _, name := range catalog.ExpandSelection(c, p.Pkgs) {
		if _, ok := c.Lookup(name); ok {
			selected = append(selected, name)
		}
	}
	return selected, nil
}

// markSelection returns a copy of c with the starting selection flagged on
// its packages. c itself is left untouched.
func (a *app) markSelection(ctx context.Context, c pkginfo.Catalog) (pkginfo.Catalog, error) {
	selected, err := a.initialSelection(ctx, c)
	if err != nil {
		return nil, err
	}
	marked := c.Clone()
	marked.SetSelected(selected)
	loggerFromContext(ctx).Debug("selection marked", "selected", len(marked.Selected()))
	return marked, nil
}

// writeProfile writes selected as a profile document named name to path, or
// to stdout when path is "-".
func writeProfile(cmd *cobra.Command, path, name string, selected []string) error {
	p := profile.FromSelection(name, name, selected)
	if path == "-" {
		return profile.NewEmitter(cmd.OutOrStdout()).Emit(p)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()
	if err := profile.NewEmitter(f).Emit(p); err != nil {
		return err
	}
	return f.Close()
}
