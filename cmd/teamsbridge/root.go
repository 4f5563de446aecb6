package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "teamsbridge",
	Short: "teamsbridge is a protocol adapter connecting a chat-bot runtime to Microsoft Teams",
	Long: `teamsbridge bridges a generic chat-bot runtime to the Microsoft Bot
Framework protocol. It accepts inbound Teams activities over HTTP, normalizes
them into platform-neutral messages for the bot's command dispatcher, and
delivers the bot's replies back through the live turn or a previously seen
conversation.`,
}

// Execute executes the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}
