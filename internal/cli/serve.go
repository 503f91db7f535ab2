package cli

import (
	"github.com/spf13/cobra"

	"github.com/frederic-klein/eapkg/internal/server"
	"github.com/frederic-klein/eapkg/internal/session"
)

func (a *app) serveCommand() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the catalog and wizard sessions over HTTP",
		Long: `Serve the package catalog and wizard sessions as a JSON API. Sessions are
kept in Redis when redis.addr is configured and in memory otherwise.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			if listen == "" {
				listen = a.cfg.Server.Listen
			}

			c, err := a.loadCatalog(ctx)
			if err != nil {
				return err
			}

			var sessions session.Store = session.NewMemoryStore()
			if a.cfg.Redis.Addr != "" {
				rs, err := session.NewRedisStore(ctx, session.RedisConfig{
					Addr:     a.cfg.Redis.Addr,
					Password: a.cfg.Redis.Password,
					DB:       a.cfg.Redis.DB,
				})
				if err != nil {
					return err
				}
				defer rs.Close()
				sessions = rs
				logger.Info("sessions in redis", "addr", a.cfg.Redis.Addr)
			}

			profiles, closeProfiles, err := a.profileStore(ctx)
			if err != nil {
				return err
			}
			defer closeProfiles()

			srv := server.New(c,
				server.WithSessionStore(sessions),
				server.WithProfileStore(profiles),
				server.WithSessionTTL(a.cfg.Server.SessionTTL.Duration),
				server.WithLogger(logger))
			return srv.ListenAndServe(ctx, listen)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "address to listen on (default from config)")
	return cmd
}
