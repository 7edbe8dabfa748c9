// Package mux drives the external ffmpeg tool: per-episode decryption and
// muxing of the downloaded audio and video tracks, and concatenation of
// multi-period parts.
package mux

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"dashrip/internal/logger"
)

// TrackInput is one encrypted (or clear) track file handed to ffmpeg.
// A nil Key means the track is clear and passes through undecrypted.
type TrackInput struct {
	Path string
	Key  []byte
}

// FFmpeg invokes the ffmpeg binary on the PATH.
type FFmpeg struct {
	logger logger.Logger
	binary string
}

// NewFFmpeg creates an invoker using the default "ffmpeg" binary.
func NewFFmpeg(log logger.Logger) *FFmpeg {
	return &FFmpeg{logger: log, binary: "ffmpeg"}
}

// Combine decrypts the video and audio tracks and muxes them into out,
// copying both streams without re-encoding.
func (f *FFmpeg) Combine(ctx context.Context, video, audio TrackInput, out string) error {
	return f.run(ctx, combineArgs(video, audio, out))
}

// combineArgs builds the argument list for one decrypt-and-mux invocation.
// The -decryption_key option applies to the input that follows it.
func combineArgs(video, audio TrackInput, out string) []string {
	args := []string{"-y", "-nostdin"}
	for _, in := range []TrackInput{video, audio} {
		if in.Key != nil {
			args = append(args, "-decryption_key", hex.EncodeToString(in.Key))
		}
		args = append(args, "-i", in.Path)
	}
	args = append(args,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c", "copy",
		out,
	)
	return args
}

// Concat joins already-muxed part files into out using the concat demuxer.
func (f *FFmpeg) Concat(ctx context.Context, parts []string, out string) error {
	list, err := os.CreateTemp(filepath.Dir(out), "concat-*.txt")
	if err != nil {
		return fmt.Errorf("create concat list: %w", err)
	}
	defer os.Remove(list.Name())

	for _, part := range parts {
		abs, err := filepath.Abs(part)
		if err != nil {
			return fmt.Errorf("resolve part path %s: %w", part, err)
		}
		if _, err := fmt.Fprintf(list, "file '%s'\n", abs); err != nil {
			return fmt.Errorf("write concat list: %w", err)
		}
	}
	if err := list.Close(); err != nil {
		return fmt.Errorf("close concat list: %w", err)
	}

	return f.run(ctx, []string{
		"-y", "-nostdin",
		"-f", "concat",
		"-safe", "0",
		"-i", list.Name(),
		"-c", "copy",
		out,
	})
}

func (f *FFmpeg) run(ctx context.Context, args []string) error {
	f.logger.Debugf("Running %s %s", f.binary, strings.Join(args, " "))
	cmd := exec.CommandContext(ctx, f.binary, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s failed: %w: %s", f.binary, err, tail(string(out), 2048))
	}
	return nil
}

// tail keeps error output readable when ffmpeg dumps its whole banner.
func tail(s string, n int) string {
	if len(s) <= n {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(s[len(s)-n:])
}
