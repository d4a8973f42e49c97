package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aussiebroadwan/rollcall/internal/rollcall/app"
	"github.com/aussiebroadwan/rollcall/internal/rollcall/domain"
	"github.com/aussiebroadwan/rollcall/internal/rollcall/service"
	"github.com/aussiebroadwan/rollcall/pkg/idx"
)

// operator is the caller recorded for role changes made from the CLI.
var operator = &domain.Caller{UID: "cli", Role: domain.RoleSuperAdmin}

func newUserCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage the user directory",
		Long:  "Add directory entries and change roles. Role changes take effect on the user's next session.",
	}

	cmd.AddCommand(newUserAddCmd(opts))
	cmd.AddCommand(newUserSetRoleCmd(opts))
	cmd.AddCommand(newUserListCmd(opts))

	return cmd
}

// ---------- user add ----------

func newUserAddCmd(opts *options) *cobra.Command {
	var id, name, email, role string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a user to the directory",
		Example: `  rollcall user add --email vera@example.org --name "Vera" --role volunteer
  rollcall user add --id 9f1c --email gate1@example.org --role guard`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if id == "" {
				id = idx.New().String()
			}
			return withDirectory(cmd, opts, func(dir *service.DirectoryService) error {
				u, err := dir.AddUser(cmd.Context(), id, name, email, role)
				if err != nil {
					return cliError(err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "added %s <%s> as %s (id %s)\n", u.Name, u.Email, u.Role, u.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "User id, as it appears in session subjects (default: generated)")
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&email, "email", "", "Email address (required)")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleVolunteer), "One of volunteer, guard, admin, superadmin")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

// ---------- user set-role ----------

func newUserSetRoleCmd(opts *options) *cobra.Command {
	var email, role string

	cmd := &cobra.Command{
		Use:     "set-role",
		Short:   "Change a user's role",
		Example: `  rollcall user set-role --email vera@example.org --role guard`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDirectory(cmd, opts, func(dir *service.DirectoryService) error {
				got, err := dir.AssignRole(cmd.Context(), operator, email, role)
				if err != nil {
					return cliError(err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), got.Message)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address (required)")
	cmd.Flags().StringVar(&role, "role", "", "New role (required)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("role")

	return cmd
}

// ---------- user list ----------

func newUserListCmd(opts *options) *cobra.Command {
	var (
		role       string
		limit      int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List directory users, newest first",
		Example: `  rollcall user list --role volunteer
  rollcall user list --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDirectory(cmd, opts, func(dir *service.DirectoryService) error {
				users, err := dir.ListUsers(cmd.Context(), operator, role, limit)
				if err != nil {
					return cliError(err)
				}
				return printUsers(cmd, users, jsonOutput)
			})
		},
	}

	cmd.Flags().StringVar(&role, "role", "", "Only list users with this role")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of users (default: 50)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func printUsers(cmd *cobra.Command, users []domain.User, jsonOutput bool) error {
	w := cmd.OutOrStdout()

	if jsonOutput {
		type userRow struct {
			ID        string `json:"id"`
			Name      string `json:"name"`
			Email     string `json:"email"`
			Role      string `json:"role"`
			CreatedAt int64  `json:"createdAt"`
		}
		rows := make([]userRow, len(users))
		for i, u := range users {
			rows[i] = userRow{
				ID:        u.ID,
				Name:      u.Name,
				Email:     u.Email,
				Role:      string(u.Role),
				CreatedAt: u.CreatedAt.UnixMilli(),
			}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	if len(users) == 0 {
		fmt.Fprintln(w, "No users found. Use 'rollcall user add' to add one.")
		return nil
	}

	fmt.Fprintf(w, "%-28s %-24s %-32s %-10s\n", "ID", "NAME", "EMAIL", "ROLE")
	for _, u := range users {
		fmt.Fprintf(w, "%-28s %-24s %-32s %-10s\n", u.ID, u.Name, u.Email, u.Role)
	}
	return nil
}

// withDirectory opens the migrated store for the duration of fn.
func withDirectory(cmd *cobra.Command, opts *options, fn func(*service.DirectoryService) error) error {
	cfg, err := opts.config()
	if err != nil {
		return err
	}
	db, err := app.OpenMigratedStore(cmd.Context(), cfg, newLogger(cfg, cmd.ErrOrStderr()))
	if err != nil {
		return err
	}
	defer db.Close()

	return fn(&service.DirectoryService{Store: db})
}

// cliError keeps the caller-safe message and drops internal detail unless
// the failure is internal, where the detail is the useful part.
func cliError(err error) error {
	if service.KindOf(err) == service.KindInternal {
		return err
	}
	return fmt.Errorf("%s", service.MessageOf(err))
}
