package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aussiebroadwan/rollcall/internal/rollcall/app"
	"github.com/aussiebroadwan/rollcall/internal/rollcall/service"
)

func newSessionCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Mint session tokens (keyfile identity mode)",
	}

	cmd.AddCommand(newSessionIssueCmd(opts))

	return cmd
}

func newSessionIssueCmd(opts *options) *cobra.Command {
	var (
		email      string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Sign a session for a directory user",
		Long: `Sign a bearer session for the user registered under --email. The role claim is
whatever the directory holds right now.`,
		Example: `  rollcall session issue --email gate1@example.org`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.config()
			if err != nil {
				return err
			}
			if cfg.IdentityMode != app.IdentityKeyfile {
				return fmt.Errorf("sessions can only be minted in %s identity mode", app.IdentityKeyfile)
			}
			signer, err := app.LoadSigner(cfg.SigningKeyFile)
			if err != nil {
				return err
			}

			return withDirectory(cmd, opts, func(dir *service.DirectoryService) error {
				sessions := &service.SessionService{
					Directory: dir,
					Signer:    signer,
					Issuer:    cfg.Issuer,
					Audience:  cfg.Audience,
					TTL:       cfg.SessionTTL,
				}
				issued, err := sessions.IssueSession(cmd.Context(), email)
				if err != nil {
					return cliError(err)
				}

				if jsonOutput {
					return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
						"token":     issued.Token,
						"expiresAt": issued.ExpiresAt.UnixMilli(),
						"role":      issued.Claims.Role,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), issued.Token)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email of the user (required)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print token, expiry and role as JSON")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}
