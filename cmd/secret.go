/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cloudacct/accountsvc/config"
	"github.com/cloudacct/accountsvc/internal/secrets"
)

// secretCmd represents the secret command.
var secretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Manage encrypted configuration values",
}

var secretEncryptCmd = &cobra.Command{
	Use:   "encrypt <value>",
	Short: "Encrypt a value under the configured master key",
	Long: `Encrypts a plaintext value under SECRETS_MASTER_KEY and prints
the ciphertext suitable for the *_ENCRYPTED environment variables.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()

		decrypter, err := secrets.NewAESDecrypter(cfg.Secrets.MasterKey)
		if err != nil {
			return err
		}
		ciphertext, err := decrypter.Encrypt(args[0])
		if err != nil {
			return fmt.Errorf("encrypt failed: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), ciphertext)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(secretCmd)
	secretCmd.AddCommand(secretEncryptCmd)
}
