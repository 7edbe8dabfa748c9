package rip

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gofrs/flock"

	"dashrip/internal/dash"
	"dashrip/internal/fetch"
	"dashrip/internal/keys"
	"dashrip/internal/logger"
	"dashrip/internal/mux"
	"dashrip/internal/playlist"
)

// Ripper executes archive runs against one output directory.
type Ripper struct {
	log        logger.Logger
	client     *fetch.Client
	downloader *fetch.Downloader
	muxer      *mux.FFmpeg
	outDir     string
	force      bool
}

// Options configures a Ripper.
type Options struct {
	OutDir string
	// Force re-rips episodes whose output file already exists.
	Force bool
}

// New assembles a Ripper from its collaborators.
func New(log logger.Logger, client *fetch.Client, downloader *fetch.Downloader, muxer *mux.FFmpeg, opts Options) *Ripper {
	outDir := opts.OutDir
	if outDir == "" {
		outDir = "."
	}
	return &Ripper{
		log:        log,
		client:     client,
		downloader: downloader,
		muxer:      muxer,
		outDir:     outDir,
		force:      opts.Force,
	}
}

// Playlist archives every episode of every chapter. A failed episode is
// reported and the run continues; the returned error summarizes any
// failures once the whole playlist has been attempted.
func (r *Ripper) Playlist(ctx context.Context, pl *playlist.Playlist) error {
	if err := os.MkdirAll(r.outDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	lock := flock.New(filepath.Join(r.outDir, ".dashrip.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("lock output directory: %w", err)
	}
	if !locked {
		return fmt.Errorf("another dashrip run holds %s", lock.Path())
	}
	defer lock.Unlock()

	var failed []string
	for _, chapterName := range sortedKeys(pl.Chapters) {
		chapter := pl.Chapters[chapterName]
		chapterDir := filepath.Join(r.outDir, sanitizeName(chapterName))
		if err := os.MkdirAll(chapterDir, 0o755); err != nil {
			return fmt.Errorf("create chapter directory %s: %w", chapterDir, err)
		}
		r.log.Infof("Chapter %q -> %s", chapterName, chapterDir)

		for _, episodeName := range sortedKeys(chapter.Episodes) {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			episode := chapter.Episodes[episodeName]
			if err := r.Episode(ctx, &pl.Source, chapterDir, sanitizeName(episodeName), episode); err != nil {
				kind := "transport/tool"
				if IsManifestError(err) {
					kind = "manifest"
				}
				r.log.Errorf("Episode %q failed (%s): %v", episodeName, kind, err)
				failed = append(failed, chapterName+"/"+episodeName)
			}
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("%d episode(s) failed: %s", len(failed), strings.Join(failed, ", "))
	}
	return nil
}

// Episode archives a single episode into chapterDir/name.mp4. An existing
// output file is kept unless the Ripper was created with Force.
func (r *Ripper) Episode(ctx context.Context, src *playlist.Source, chapterDir, name string, episode playlist.Episode) error {
	out := filepath.Join(chapterDir, name+".mp4")
	if !r.force {
		if _, err := os.Stat(out); err == nil {
			r.log.Infof("Skipping %s: already exists", out)
			return nil
		}
	}

	plan, err := r.PlanEpisode(ctx, src, episode)
	if err != nil {
		return err
	}

	r.log.Infof("Ripping episode %s (%d period(s))", plan.Episode, len(plan.Periods))
	parts := make([]string, 0, len(plan.Periods))
	var intermediates []string
	defer func() {
		for _, path := range intermediates {
			os.Remove(path)
		}
	}()

	for i, pp := range plan.Periods {
		videoPath := partPath(chapterDir, name, i, "video")
		audioPath := partPath(chapterDir, name, i, "audio")
		intermediates = append(intermediates, videoPath, audioPath)

		for _, dl := range []struct {
			track *TrackPlan
			path  string
		}{
			{&pp.Video, videoPath},
			{&pp.Audio, audioPath},
		} {
			label := fmt.Sprintf("%s %s (%s)", name, dl.track.ContentType, dl.track.RepID)
			if _, err := r.downloader.DownloadTrack(ctx, dl.track.Segments, dl.path, label); err != nil {
				return fmt.Errorf("download %s track: %w", dl.track.ContentType, err)
			}
		}

		partOut := out
		if len(plan.Periods) > 1 {
			partOut = partPath(chapterDir, name, i, "part")
			parts = append(parts, partOut)
			intermediates = append(intermediates, partOut)
		}

		video := mux.TrackInput{Path: videoPath, Key: pp.Video.Key}
		audio := mux.TrackInput{Path: audioPath, Key: pp.Audio.Key}
		if err := r.muxer.Combine(ctx, video, audio, partOut); err != nil {
			return fmt.Errorf("decrypt and mux period %d: %w", i, err)
		}
	}

	if len(parts) > 1 {
		if err := r.muxer.Concat(ctx, parts, out); err != nil {
			return fmt.Errorf("concatenate periods: %w", err)
		}
	}

	r.log.Infof("Finished %s", out)
	return nil
}

// PlanEpisode fetches and interprets the episode's manifest without
// downloading any segments.
func (r *Ripper) PlanEpisode(ctx context.Context, src *playlist.Source, episode playlist.Episode) (*Plan, error) {
	keySet, err := keys.NewSet(episode.Keys)
	if err != nil {
		return nil, fmt.Errorf("episode %s: %w", episode.ID, err)
	}

	data, finalURL, err := r.client.FetchManifest(ctx, src.ManifestURL(episode.ID))
	if err != nil {
		return nil, err
	}

	m, err := dash.Parse(data, finalURL)
	if err != nil {
		return nil, fmt.Errorf("episode %s: %w", episode.ID, err)
	}

	return BuildPlan(m, episode.ID, keySet)
}

// IsManifestError reports whether err comes from manifest interpretation
// (parse, selection, addressing or key resolution) as opposed to transport
// or tool failures.
func IsManifestError(err error) bool {
	var parseErr *dash.ParseError
	var selErr *dash.SelectionError
	var addrErr *dash.AddressingError
	var keyErr *keys.ResolutionError
	return errors.As(err, &parseErr) || errors.As(err, &selErr) ||
		errors.As(err, &addrErr) || errors.As(err, &keyErr)
}

func partPath(dir, name string, period int, kind string) string {
	return filepath.Join(dir, fmt.Sprintf("%s.p%d.%s.mp4", name, period, kind))
}

// sanitizeName keeps playlist display names from escaping the chapter
// directory.
func sanitizeName(name string) string {
	return strings.ReplaceAll(name, "/", "-")
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
