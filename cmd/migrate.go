/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/cobra"

	"github.com/cloudacct/accountsvc/config"
	"github.com/cloudacct/accountsvc/internal/db"
	"github.com/cloudacct/accountsvc/internal/secrets"
)

// migrateCmd represents the migrate command.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all up migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		if err := resolveDBPassword(cmd.Context(), &cfg); err != nil {
			return err
		}

		migrationsURL := "file://internal/db/migrations"
		migrator, err := migrate.New(migrationsURL, db.DSN(cfg.Database))
		if err != nil {
			return fmt.Errorf("init migrator failed: %w", err)
		}
		defer func() {
			_, _ = migrator.Close()
		}()

		if err := migrator.Up(); err != nil {
			if errors.Is(err, migrate.ErrNoChange) {
				return nil
			}
			return fmt.Errorf("migrate up failed: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd)
}

func resolveDBPassword(ctx context.Context, cfg *config.Config) error {
	if cfg.Database.PasswordEncrypted == "" {
		return nil
	}

	decrypter, err := secrets.NewAESDecrypter(cfg.Secrets.MasterKey)
	if err != nil {
		return err
	}
	plaintext, err := decrypter.Decrypt(ctx, cfg.Database.PasswordEncrypted)
	if err != nil {
		return err
	}
	cfg.Database.Password = plaintext
	return nil
}
