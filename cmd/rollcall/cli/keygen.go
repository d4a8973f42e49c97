package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aussiebroadwan/rollcall/pkg/cryptox"
	"github.com/aussiebroadwan/rollcall/pkg/jwtx"
)

func newKeygenCmd(opts *options) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate an Ed25519 session signing key",
		Long:  "Write a new PKCS8 PEM key for keyfile identity mode. Existing files are never overwritten.",
		Example: `  rollcall keygen
  rollcall keygen --out /etc/rollcall/session.key`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				cfg, err := opts.config()
				if err != nil {
					return err
				}
				out = cfg.SigningKeyFile
			}

			pemKey, err := cryptox.WriteEd25519KeyFile(out)
			if err != nil {
				return err
			}
			signer, err := jwtx.NewSignerEdDSA("", pemKey)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (kid %s)\n", out, signer.KID())
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "Key file to create (default: signing_key_file)")

	return cmd
}
