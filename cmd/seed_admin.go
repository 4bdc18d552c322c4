package cmd

import (
	"context"

	"example.com/warehouse/internal/database"
	"example.com/warehouse/internal/metrics"
	"example.com/warehouse/internal/models"
	"example.com/warehouse/internal/repository"
	"example.com/warehouse/internal/services"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	seedAdminUsername string
	seedAdminPassword string
)

var seedAdminCmd = &cobra.Command{
	Use:   "seed-admin",
	Short: "Create an admin user",
	Long:  `Create an initial admin user so the API can be bootstrapped`,
	RunE:  runSeedAdmin,
}

func init() {
	seedAdminCmd.Flags().StringVar(&seedAdminUsername, "username", "admin", "admin username")
	seedAdminCmd.Flags().StringVar(&seedAdminPassword, "password", "", "admin password (required)")
	_ = seedAdminCmd.MarkFlagRequired("password")
	rootCmd.AddCommand(seedAdminCmd)
}

func runSeedAdmin(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := database.Connect(cfg.DB)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.AutoMigrate(db); err != nil {
		return err
	}

	repo := repository.NewRepository(db)
	authService := services.NewAuthService(repo, metrics.NewMetrics(), cfg.Auth)

	user, err := authService.Register(context.Background(), seedAdminUsername, seedAdminPassword, models.RoleAdmin)
	if err != nil {
		return err
	}

	log.Info().Str("username", user.Username).Msg("Admin user created")
	return nil
}
