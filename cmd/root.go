package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// rootCmd represents the base command for the inboxpilot application
var rootCmd = &cobra.Command{
	Use:   "inboxpilot",
	Short: "Email assistant MCP server for Gmail, Outlook and Yahoo Mail",
	Long: `inboxpilot links Google, Microsoft and Yahoo mail accounts and exposes one
set of email tools and prompts for AI assistants.

It can run as:
  - An MCP (Model Context Protocol) server over stdio or streamable HTTP
  - A CLI for linking accounts and chatting with a mailbox`,
	SilenceUsage: true,
}

// settings collects flag bindings; environment variables fill the rest.
var settings = viper.New()

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "inboxpilot version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn or error. Can also use LOG_LEVEL env var.")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format: text or json. Can also use LOG_FORMAT env var.")
	_ = settings.BindPFlag("LOG_LEVEL", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = settings.BindPFlag("LOG_FORMAT", rootCmd.PersistentFlags().Lookup("log-format"))

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newLinkCmd())
	rootCmd.AddCommand(newLogoutCmd())
	rootCmd.AddCommand(newChatCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
	rootCmd.AddCommand(newVersionCmd())
}
