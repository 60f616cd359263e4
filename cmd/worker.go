/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cloudacct/accountsvc/config"
	"github.com/cloudacct/accountsvc/internal/db"
	"github.com/cloudacct/accountsvc/internal/mq"
	"github.com/cloudacct/accountsvc/internal/notify"
	"github.com/cloudacct/accountsvc/internal/secrets"
	"github.com/cloudacct/accountsvc/internal/services"
	"github.com/cloudacct/accountsvc/internal/store"
	"github.com/cloudacct/accountsvc/internal/token"
	"github.com/cloudacct/accountsvc/internal/worker"
)

// workerCmd represents the worker command
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Starts the async signup ingest worker",
	Long: `Starts the async signup ingest worker. It consumes signup records
from the ingest queue and issues verification tokens for them. Usage:

	accountsvc worker
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		logger := newLogger()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := resolveWorkerSecrets(ctx, &cfg); err != nil {
			return err
		}

		dbConn, err := db.Open(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer func() {
			_ = dbConn.Close()
		}()

		codec, err := token.New(cfg.Token)
		if err != nil {
			return err
		}
		mailer, err := notify.NewSMTPMailer(cfg.Mail)
		if err != nil {
			return err
		}

		broker, err := mq.NewBroker(ctx, cfg)
		if err != nil {
			return fmt.Errorf("connect broker: %w", err)
		}
		defer func() {
			_ = broker.Close()
		}()

		dispatcher := notify.NewDispatcher(mailer, broker, cfg.Broker.EventTopic, cfg.TestMode, logger)
		accountService := services.NewAccountService(
			store.NewAccountRepository(dbConn),
			store.NewEventRepository(dbConn),
			codec,
			dispatcher,
			cfg.VerifyBaseURL,
			cfg.Token.TTL,
			logger,
		)

		ingest := worker.NewIngestWorker(accountService, cfg.Broker.IngestQueue, logger)
		logger.WithField("queue", cfg.Broker.IngestQueue).Info("ingest worker started")

		if err := ingest.Run(ctx, broker); err != nil && !errors.Is(err, ctx.Err()) {
			return fmt.Errorf("worker stopped: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func resolveWorkerSecrets(ctx context.Context, cfg *config.Config) error {
	if cfg.Database.PasswordEncrypted == "" &&
		cfg.Mail.PasswordEncrypted == "" &&
		cfg.Token.SecretEncrypted == "" {
		return nil
	}

	decrypter, err := secrets.NewAESDecrypter(cfg.Secrets.MasterKey)
	if err != nil {
		return err
	}
	return secrets.ResolveConfig(ctx, secrets.NewCache(decrypter), cfg)
}
