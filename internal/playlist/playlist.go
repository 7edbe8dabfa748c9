// Package playlist loads the TOML playlist file that drives an archive run:
// the source URL layout plus the chapters, episodes and content keys to rip.
package playlist

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Source describes the origin's URL layout. Manifest URLs are formed as
// base/<episode id>/<mpd suffix>.
type Source struct {
	Base string `toml:"base"`
	MPD  string `toml:"mpd"`
}

// ManifestURL returns the manifest URL for one episode.
func (s *Source) ManifestURL(episodeID string) string {
	return joinURL(s.Base, episodeID, s.MPD)
}

// Episode names one episode at the origin and carries its content keys as a
// key-id → hex-key mapping.
type Episode struct {
	ID   string            `toml:"id"`
	Keys map[string]string `toml:"keys"`
}

// Chapter groups episodes under one output directory, keyed by episode
// display name.
type Chapter struct {
	Episodes map[string]Episode `toml:"episodes"`
}

// Playlist is the fully parsed playlist file.
type Playlist struct {
	Source   Source             `toml:"source"`
	Chapters map[string]Chapter `toml:"chapters"`
}

// Load reads and parses a playlist file, rejecting structurally incomplete
// entries up front so a long run does not die halfway on a missing field.
func Load(path string) (*Playlist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read playlist file: %w", err)
	}

	var pl Playlist
	if err := toml.Unmarshal(data, &pl); err != nil {
		return nil, fmt.Errorf("unmarshal playlist TOML: %w", err)
	}

	if pl.Source.Base == "" {
		return nil, fmt.Errorf("playlist %s: source.base is required", path)
	}
	if pl.Source.MPD == "" {
		return nil, fmt.Errorf("playlist %s: source.mpd is required", path)
	}
	for chapterName, chapter := range pl.Chapters {
		for episodeName, episode := range chapter.Episodes {
			if episode.ID == "" {
				return nil, fmt.Errorf("playlist %s: episode %q in chapter %q has no id",
					path, episodeName, chapterName)
			}
		}
	}

	return &pl, nil
}

// joinURL joins URL path pieces with single slashes, tolerating stray
// slashes in the playlist values.
func joinURL(parts ...string) string {
	trimmed := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed = append(trimmed, strings.Trim(p, "/"))
	}
	return strings.Join(trimmed, "/")
}
