/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"

	"github.com/devfolio/apiserver/internal/db"
	"github.com/devfolio/apiserver/internal/services"
	"github.com/devfolio/apiserver/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var adminInput services.AdminInput

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed initial data",
}

// seedAdminCmd creates the admin account, or promotes and resets an
// existing account with the same email.
var seedAdminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Create or reset the admin user",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		input := adminInput
		if input.Email == "" {
			input.Email = os.Getenv("ADMIN_EMAIL")
		}
		if input.Name == "" {
			input.Name = os.Getenv("ADMIN_NAME")
		}
		if input.Password == "" {
			input.Password = os.Getenv("ADMIN_PASSWORD")
		}

		conn, err := db.Open(cmd.Context(), cfg.Database)
		if err != nil {
			return err
		}
		defer conn.Close()

		user, created, err := services.NewUserService(store.NewUserRepository(conn)).EnsureAdmin(cmd.Context(), input)
		if err != nil {
			return err
		}
		logger.Info("admin ready",
			zap.String("id", user.ID),
			zap.String("email", user.Email),
			zap.Bool("created", created),
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedAdminCmd.Flags().StringVar(&adminInput.Email, "email", "", "admin email (or ADMIN_EMAIL)")
	seedAdminCmd.Flags().StringVar(&adminInput.Name, "name", "", "admin display name (or ADMIN_NAME)")
	seedAdminCmd.Flags().StringVar(&adminInput.Password, "password", "", "admin password (or ADMIN_PASSWORD)")
	seedCmd.AddCommand(seedAdminCmd)
}
