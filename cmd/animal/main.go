// Package main provides the animal CLI: the paid matching server plus local
// match and fetch helpers.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "animal",
	Short:        "Guess the Animal behind an x402 payment gate",
	Long:         "Matches a name to the catalog animal with the closest letter-repetition profile, served per request behind an x402 USDC payment on Solana.",
	SilenceUsage: true,
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
