package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the safegate application
var rootCmd = &cobra.Command{
	Use:   "safegate",
	Short: "Google OAuth gateway for a browser dashboard",
	Long: `safegate is a small HTTP gateway between a browser dashboard and Google.

It runs the OAuth authorization-code flow for each browser session, keeps the
resulting tokens server-side, and proxies the dashboard's calls to Google
Tasks, Calendar, Search Console and Sheets.`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "safegate version %s\n" .Version}}`)

	// If no subcommand is provided, run the gateway
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())
}
