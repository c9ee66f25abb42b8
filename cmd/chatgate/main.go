package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev" // Will be set during build

var rootCmd = &cobra.Command{
	Use:   "chatgate",
	Short: "Admission gateway for chat platform APIs",
	Long: `Chatgate is a hardened HTTP gateway in front of a chat platform's
messaging and administrative API.

Every request passes rate limiting, payload checks, and the authentication
required by the active security profile before it reaches the platform.`,
	Version: version,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(secretCmd)
}
