// Package cli implements portalctl, the maintenance tool run next to the
// portal: schema setup, admin recovery and database inspection.
package cli

import (
	"context"
	"fmt"
	"os"

	"civic-portal/internal/config"
	"civic-portal/internal/logger"
	"civic-portal/internal/models"
	"civic-portal/internal/services"
	"civic-portal/internal/store"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// env is what every subcommand works with once the config is loaded.
type env struct {
	cfg   *config.Config
	db    *gorm.DB
	log   *logger.Logger
	auth  *services.AuthService
	setup *services.SetupService
}

func (e *env) backups() (*services.BackupService, error) {
	gw, err := store.FromGorm(e.db)
	if err != nil {
		return nil, err
	}
	return services.NewBackupService(e.cfg.Backups.Dir, e.cfg.Uploads.Dir, services.NewExportService(gw)), nil
}

func (e *env) close() {
	if err := models.Close(e.db); err != nil {
		e.log.WithError(err).Warn("failed to close database")
	}
}

type options struct {
	configPath string
}

func (o *options) open(cmd *cobra.Command) (*env, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	log := logger.NewWithOutput(cfg.Log, cmd.ErrOrStderr())

	db, err := models.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	auth := services.NewAuthService(db, cfg)
	return &env{
		cfg:   cfg,
		db:    db,
		log:   log,
		auth:  auth,
		setup: services.NewSetupService(db, auth, cfg, log),
	}, nil
}

// NewRootCommand builds the portalctl command tree.
func NewRootCommand() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "portalctl",
		Short: "Maintenance tool for the municipal portal",
		Long: `portalctl works directly on the portal database configured in the
config file: it creates the schema, restores the administrator account and
inspects users and tables, and archives the portal data.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "configs/config.yaml", "Path to the config file")

	root.AddCommand(newMigrateCmd(opts))
	root.AddCommand(newResetAdminCmd(opts))
	root.AddCommand(newUsersCmd(opts))
	root.AddCommand(newCheckDBCmd(opts))
	root.AddCommand(newCleanupSessionsCmd(opts))
	root.AddCommand(newBackupCmd(opts))
	return root
}

func Execute() {
	if err := NewRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
