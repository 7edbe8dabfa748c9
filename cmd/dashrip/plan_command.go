package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"

	"dashrip/internal/fetch"
	"dashrip/internal/logger"
	"dashrip/internal/mux"
	"dashrip/internal/playlist"
	"dashrip/internal/rip"
)

// newPlanCommand prints each episode's fetch plan (chosen representations,
// segment counts, key bindings) without downloading any segment.
func newPlanCommand(cmdCtx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan <playlist.toml>",
		Short: "Show what rip would fetch, without downloading segments",
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
			ripper := rip.New(log, client, downloader, mux.NewFFmpeg(log), rip.Options{})

			out := cmd.OutOrStdout()
			var failures int
			for _, chapterName := range sortedNames(pl.Chapters) {
				chapter := pl.Chapters[chapterName]
				fmt.Fprintf(out, "chapter %q\n", chapterName)
				for _, episodeName := range sortedNames(chapter.Episodes) {
					episode := chapter.Episodes[episodeName]
					plan, err := ripper.PlanEpisode(ctx, &pl.Source, episode)
					if err != nil {
						failures++
						fmt.Fprintf(out, "  episode %q: UNPLANNABLE: %v\n", episodeName, err)
						continue
					}
					fmt.Fprintf(out, "  episode %q (%s)\n", episodeName, plan.ManifestURL)
					for i, pp := range plan.Periods {
						fmt.Fprintf(out, "    period %d:\n", i)
						printTrack(out, &pp.Video)
						printTrack(out, &pp.Audio)
					}
				}
			}

			if failures > 0 {
				return fmt.Errorf("%d episode(s) cannot be planned", failures)
			}
			return nil
		},
	}

	return cmd
}

func printTrack(out io.Writer, track *rip.TrackPlan) {
	binding := "clear"
	if track.Encrypted() {
		binding = "key bound for " + track.KeyID
	}
	fmt.Fprintf(out, "      %-5s %s  %d bps  %s  %d segment(s)  [%s]\n",
		track.ContentType, track.RepID, track.Bandwidth, track.Codecs, len(track.Segments), binding)
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
