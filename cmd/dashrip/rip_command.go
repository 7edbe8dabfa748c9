package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"dashrip/internal/fetch"
	"dashrip/internal/logger"
	"dashrip/internal/mux"
	"dashrip/internal/playlist"
	"dashrip/internal/rip"
)

func newRipCommand(cmdCtx *commandContext) *cobra.Command {
	var outDir string
	var force bool
	var noProgress bool

	cmd := &cobra.Command{
		Use:   "rip <playlist.toml>",
		Short: "Download, decrypt and mux every episode of a playlist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logger.New(os.Stderr, cmdCtx.logLevel)

			pl, err := playlist.Load(args[0])
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			client := fetch.NewClient(log, cmdCtx.userAgent)
			downloader := fetch.NewDownloader(client.HTTPClient(), log, cmdCtx.userAgent)
			downloader.Progress = !noProgress
			ripper := rip.New(log, client, downloader, mux.NewFFmpeg(log), rip.Options{
				OutDir: outDir,
				Force:  force,
			})

			return ripper.Playlist(ctx, pl)
		},
	}

	cmd.Flags().StringVarP(&outDir, "output", "o", ".", "Output directory for chapter folders")
	cmd.Flags().BoolVar(&force, "force", false, "Re-rip episodes whose output already exists")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "Disable per-track progress bars")

	return cmd
}
