package main

import (
	"github.com/spf13/cobra"
)

// commandContext carries the persistent flags shared by all subcommands.
type commandContext struct {
	logLevel  string
	userAgent string
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "dashrip",
		Short:         "Archive DASH playlists into per-episode media files",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&ctx.logLevel, "log-level", "info", "Log level (error, warn, info, debug)")
	rootCmd.PersistentFlags().StringVar(&ctx.userAgent, "user-agent", "", "User-Agent header for origin requests")

	rootCmd.AddCommand(newRipCommand(ctx))
	rootCmd.AddCommand(newPlanCommand(ctx))

	return rootCmd
}
