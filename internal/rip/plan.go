// Package rip runs the per-episode pipeline: manifest fetch, parse, best
// representation selection, segment resolution, key binding, download and
// decrypt/mux. Each episode is all-or-nothing; a failed stage aborts that
// episode without touching the others.
package rip

import (
	"fmt"

	"dashrip/internal/dash"
	"dashrip/internal/keys"
)

// TrackPlan is the fetch plan for one chosen representation: every location
// to download, plus the content key bound to it (nil for clear content).
type TrackPlan struct {
	RepID       string
	ContentType string
	Bandwidth   int
	Codecs      string
	KeyID       string
	Key         []byte
	Segments    []dash.SegmentLocation
}

// Encrypted reports whether the track needs decryption.
func (t *TrackPlan) Encrypted() bool { return t.Key != nil }

// PeriodPlan pairs the video and audio tracks chosen for one Period.
type PeriodPlan struct {
	ID    string
	Video TrackPlan
	Audio TrackPlan
}

// Plan is the complete fetch plan for one episode, one PeriodPlan per
// manifest Period in document order.
type Plan struct {
	Episode     string
	ManifestURL string
	Periods     []PeriodPlan
}

// BuildPlan walks a parsed manifest and derives the episode's fetch plan:
// for each Period it selects the best audio and video representation,
// resolves their segment locations against the manifest location, and binds
// each declared key id to a content key. Any stage failure is returned with
// its typed cause intact, so callers can tell a selection problem from a
// missing key.
func BuildPlan(m *dash.MPD, episodeID string, keySet *keys.Set) (*Plan, error) {
	plan := &Plan{
		Episode:     episodeID,
		ManifestURL: m.Location,
		Periods:     make([]PeriodPlan, 0, len(m.Periods)),
	}

	for i := range m.Periods {
		period := &m.Periods[i]
		pp := PeriodPlan{ID: period.ID}

		for _, track := range []struct {
			contentType string
			dest        *TrackPlan
		}{
			{"video", &pp.Video},
			{"audio", &pp.Audio},
		} {
			tp, err := buildTrack(period, track.contentType, m.Location, keySet)
			if err != nil {
				return nil, fmt.Errorf("episode %s, period %d: %w", episodeID, i, err)
			}
			*track.dest = tp
		}

		plan.Periods = append(plan.Periods, pp)
	}

	return plan, nil
}

// buildTrack runs selection, resolution and key binding for one content type
// of one Period. Parse guarantees the set exists; more than one set of the
// same type is a caller concern, the first in document order wins here.
func buildTrack(period *dash.Period, contentType, baseURL string, keySet *keys.Set) (TrackPlan, error) {
	set := period.Set(contentType)

	rep, err := dash.SelectBest(set)
	if err != nil {
		return TrackPlan{}, err
	}

	segments, err := dash.Resolve(period, set, rep, baseURL)
	if err != nil {
		return TrackPlan{}, err
	}

	kid := dash.DefaultKID(set, rep)
	key, err := keySet.Bind(rep.ID, kid)
	if err != nil {
		return TrackPlan{}, err
	}

	return TrackPlan{
		RepID:       rep.ID,
		ContentType: contentType,
		Bandwidth:   rep.Bandwidth,
		Codecs:      rep.Codecs,
		KeyID:       kid,
		Key:         key,
		Segments:    segments,
	}, nil
}
