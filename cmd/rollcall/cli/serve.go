package cli

import (
	"github.com/spf13/cobra"

	"github.com/aussiebroadwan/rollcall/internal/rollcall/app"
)

func newServeCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the rollcall API server",
		Long:  "Apply pending migrations, load the session keys and serve the HTTP API until SIGINT or SIGTERM.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.config()
			if err != nil {
				return err
			}
			application, err := app.New(cfg)
			if err != nil {
				return err
			}
			return application.Run()
		},
	}

	cmd.Flags().IntP("port", "p", 8080, "HTTP listen port")
	_ = opts.v.BindPFlag("port", cmd.Flags().Lookup("port"))

	return cmd
}
