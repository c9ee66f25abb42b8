package main

import (
	"fmt"

	"chatgate/internal/security"

	"github.com/spf13/cobra"
)

var secretCmd = &cobra.Command{
	Use:   "secret [api-key|webhook-secret|encryption-key]",
	Short: "Generate a random secret",
	Long: `Generate a cryptographically secure random secret sized for one of
the gateway's credentials:

  api-key         caller API key (X-API-Key header)
  webhook-secret  HMAC signing secret for request bodies
  encryption-key  key for encrypting stored secrets`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"api-key", "webhook-secret", "encryption-key"},
	RunE:      runSecret,
}

func runSecret(cmd *cobra.Command, args []string) error {
	var length int
	switch args[0] {
	case "api-key":
		length = 2 * security.MinAPIKeyLength
	case "webhook-secret":
		length = security.MinWebhookSecretLength
	case "encryption-key":
		length = security.EncryptionKeyLength
	default:
		return fmt.Errorf("unknown secret kind %q", args[0])
	}

	secret, err := security.GenerateSecret(length)
	if err != nil {
		return err
	}
	fmt.Println(secret)
	return nil
}
