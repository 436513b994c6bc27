package cli

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"civic-portal/internal/models"
	"civic-portal/internal/services"
	"civic-portal/internal/store"

	"github.com/spf13/cobra"
)

func newMigrateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the tables and seed the defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			if err := e.setup.EnsureSchema(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Schema ready (%s)\n", e.cfg.Database.Type)
			return nil
		},
	}
}

func newResetAdminCmd(opts *options) *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "reset-admin",
		Short: "Restore the administrator account",
		Long: `Sets the password of the configured administrator, reactivates the account
and gives it the admin role. The account is created when missing.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			if err := models.Migrate(e.db); err != nil {
				return err
			}
			admin, created, err := e.setup.ResetAdmin(cmd.Context(), password)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if created {
				fmt.Fprintf(out, "Administrator created: %s\n", admin.Email)
			} else {
				fmt.Fprintf(out, "Administrator restored: %s\n", admin.Email)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "New password (defaults to admin.default_password)")
	return cmd
}

func newUsersCmd(opts *options) *cobra.Command {
	var filter services.UserFilter

	cmd := &cobra.Command{
		Use:   "users",
		Short: "List registered users",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			users, err := services.NewUserService(e.db, e.auth).List(cmd.Context(), filter)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tROLE\tACTIVE\tCREATED")
			for _, u := range users {
				role := "citizen"
				if u.IsAdmin() {
					role = "admin"
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%t\t%s\n", u.ID, u.Name, u.Email, role, u.Active, u.CreatedAt.Format("2006-01-02 15:04"))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d user(s)\n", len(users))
			return nil
		},
	}
	cmd.Flags().StringVar(&filter.Role, "role", "", "Only users with this role id (1 admin, 2 citizen)")
	cmd.Flags().StringVar(&filter.Search, "search", "", "Match name or email")
	return cmd
}

func newCheckDBCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "check-db",
		Short: "Show tables, row counts and the users table layout",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			gw, err := store.FromGorm(e.db)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if err := gw.Ping(ctx); err != nil {
				return fmt.Errorf("database unreachable: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Database: %s (driver %s)\n\n", e.cfg.Database.Type, gw.DriverName())

			tables, err := models.TableNames(e.db)
			if err != nil {
				return err
			}
			counts := services.NewStatsService(gw, e.log).TableCounts(ctx, tables)
			sort.Strings(tables)

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TABLE\tEXISTS\tROWS")
			migrator := e.db.WithContext(ctx).Migrator()
			for _, t := range tables {
				fmt.Fprintf(tw, "%s\t%t\t%d\n", t, migrator.HasTable(t), counts[t])
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			if !migrator.HasTable(&models.User{}) {
				return nil
			}
			columns, err := migrator.ColumnTypes(&models.User{})
			if err != nil {
				return fmt.Errorf("read users columns: %w", err)
			}
			fmt.Fprintln(out, "\nusers columns:")
			for _, c := range columns {
				nullable, _ := c.Nullable()
				fmt.Fprintf(out, "  %s %s nullable=%t\n", c.Name(), c.DatabaseTypeName(), nullable)
			}
			return nil
		},
	}
}

func newCleanupSessionsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup-sessions",
		Short: "Delete expired login sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			n, err := e.auth.DeleteExpiredSessions(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d expired session(s)\n", n)
			return nil
		},
	}
}

func newBackupCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Archive the CSV exports and uploaded files",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			svc, err := e.backups()
			if err != nil {
				return err
			}
			path, err := svc.CreateBackup(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Backup written to %s\n", path)
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List existing archives",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			svc, err := e.backups()
			if err != nil {
				return err
			}
			backups, err := svc.ListBackups()
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tSIZE\tCREATED")
			for _, b := range backups {
				fmt.Fprintf(tw, "%s\t%d\t%s\n", b.Name, b.Size, b.CreatedAt.Format("2006-01-02 15:04"))
			}
			return tw.Flush()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <name>",
		Short: "Delete one archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			svc, err := e.backups()
			if err != nil {
				return err
			}
			if err := svc.DeleteBackup(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	})
	return cmd
}
