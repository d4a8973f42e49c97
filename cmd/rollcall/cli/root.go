package cli

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aussiebroadwan/rollcall/internal/rollcall/app"
	"github.com/aussiebroadwan/rollcall/pkg/slogx"
)

// options is shared by every subcommand. Flags are bound onto v so they
// override the config file and ROLLCALL_* variables.
type options struct {
	cfgFile string
	v       *viper.Viper
}

// Execute builds the command tree and runs it.
func Execute(version, commit string) error {
	if version != "" && version != "dev" {
		app.BuildVersion = version
	}
	return NewRootCmd(version, commit).Execute()
}

// NewRootCmd returns the rollcall command tree.
func NewRootCmd(version, commit string) *cobra.Command {
	opts := &options{v: app.NewViper()}

	cmd := &cobra.Command{
		Use:   "rollcall",
		Short: "Volunteer attendance via single-use QR tokens",
		Long: `rollcall issues short-lived attendance tokens to volunteers and lets guards
redeem them exactly once at the gate, recording an attendance entry for each scan.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.cfgFile, "config", "", "config file (default is ./rollcall.yaml)")
	flags.String("database-file", "", "SQLite database file")
	flags.String("signing-key-file", "", "Ed25519 session signing key")
	_ = opts.v.BindPFlag("database_file", flags.Lookup("database-file"))
	_ = opts.v.BindPFlag("signing_key_file", flags.Lookup("signing-key-file"))

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newMigrateCmd(opts))
	cmd.AddCommand(newKeygenCmd(opts))
	cmd.AddCommand(newUserCmd(opts))
	cmd.AddCommand(newSessionCmd(opts))
	cmd.AddCommand(newVersionCmd(version, commit))

	return cmd
}

func (o *options) config() (app.Config, error) {
	return app.LoadConfig(o.v, o.cfgFile)
}

// logger writes operational logs to stderr so command output on stdout
// stays machine readable.
func newLogger(cfg app.Config, w io.Writer) *slog.Logger {
	return slogx.New(slogx.Config{
		Service: "rollcall",
		Version: app.BuildVersion,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Output:  w,
	})
}
