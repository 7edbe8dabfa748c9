package dash

import (
	"encoding/xml"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// MPD is the root element of a Media Presentation Description.
// The tree below it is read-only after parsing: Periods own AdaptationSets
// own Representations, with no back-references.
type MPD struct {
	XMLName                   xml.Name `xml:"MPD"`
	Type                      string   `xml:"type,attr"`
	Profiles                  string   `xml:"profiles,attr"`
	MediaPresentationDuration string   `xml:"mediaPresentationDuration,attr"`
	MinBufferTime             string   `xml:"minBufferTime,attr"`
	BaseURL                   string   `xml:"BaseURL"`
	Periods                   []Period `xml:"Period"`

	// Location is the URL the document was fetched from, recorded by Parse.
	// Relative references resolve against it.
	Location string `xml:"-"`
}

// Duration returns the presentation duration, or zero when the manifest does
// not declare one.
func (m *MPD) Duration() (time.Duration, error) {
	if m.MediaPresentationDuration == "" {
		return 0, nil
	}
	return parseDuration(m.MediaPresentationDuration)
}

// Period groups the AdaptationSets of one stretch of the presentation.
// Multi-period manifests concatenate in document order.
type Period struct {
	ID       string          `xml:"id,attr"`
	Duration string          `xml:"duration,attr"`
	BaseURL  string          `xml:"BaseURL"`
	Sets     []AdaptationSet `xml:"AdaptationSet"`
}

// Set returns the first AdaptationSet of the given content type in document
// order, or nil when the Period has none.
func (p *Period) Set(contentType string) *AdaptationSet {
	for i := range p.Sets {
		if p.Sets[i].Is(contentType) {
			return &p.Sets[i]
		}
	}
	return nil
}

// AdaptationSet groups interchangeable Representations of one logical track.
type AdaptationSet struct {
	ID              string              `xml:"id,attr"`
	ContentType     string              `xml:"contentType,attr"`
	Lang            string              `xml:"lang,attr"`
	MimeType        string              `xml:"mimeType,attr"`
	MaxWidth        int                 `xml:"maxWidth,attr"`
	MaxHeight       int                 `xml:"maxHeight,attr"`
	Par             string              `xml:"par,attr"`
	Protections     []ContentProtection `xml:"ContentProtection"`
	SegmentTemplate *SegmentTemplate    `xml:"SegmentTemplate"`
	SegmentList     *SegmentList        `xml:"SegmentList"`
	Representations []Representation    `xml:"Representation"`
}

// Is reports whether the set carries the given content type, falling back to
// the mimeType prefix for manifests that omit the contentType attribute.
func (as *AdaptationSet) Is(contentType string) bool {
	if as.ContentType != "" {
		return as.ContentType == contentType
	}
	return strings.HasPrefix(as.MimeType, contentType+"/")
}

// Representation is a single encoded variant of a track. Bandwidth is the
// quality metric used for selection.
type Representation struct {
	ID                string              `xml:"id,attr"`
	Bandwidth         int                 `xml:"bandwidth,attr"`
	Codecs            string              `xml:"codecs,attr"`
	MimeType          string              `xml:"mimeType,attr"`
	Width             int                 `xml:"width,attr"`
	Height            int                 `xml:"height,attr"`
	AudioSamplingRate int                 `xml:"audioSamplingRate,attr"`
	BaseURL           string              `xml:"BaseURL"`
	Protections       []ContentProtection `xml:"ContentProtection"`
	SegmentTemplate   *SegmentTemplate    `xml:"SegmentTemplate"`
	SegmentList       *SegmentList        `xml:"SegmentList"`
	SegmentBase       *SegmentBase        `xml:"SegmentBase"`
}

// ContentProtection declares DRM signalling for a set or representation.
// The unqualified attribute name matches cenc:default_KID regardless of the
// namespace prefix the document uses.
type ContentProtection struct {
	SchemeIDURI string `xml:"schemeIdUri,attr"`
	Value       string `xml:"value,attr"`
	DefaultKID  string `xml:"default_KID,attr"`
	PSSH        string `xml:"pssh"`
}

// DefaultKID returns the representation's declared key id, preferring its own
// ContentProtection over the enclosing AdaptationSet's. Empty means the
// content is clear.
func DefaultKID(as *AdaptationSet, rep *Representation) string {
	if kid := kidFrom(rep.Protections); kid != "" {
		return kid
	}
	return kidFrom(as.Protections)
}

func kidFrom(protections []ContentProtection) string {
	for _, cp := range protections {
		if cp.DefaultKID != "" {
			return cp.DefaultKID
		}
	}
	return ""
}

// SegmentTemplate describes pattern-based segment addressing. Either a
// SegmentTimeline or an explicit startNumber/endNumber range declares the
// media segment indices.
type SegmentTemplate struct {
	Timescale      int              `xml:"timescale,attr"`
	Initialization string           `xml:"initialization,attr"`
	Media          string           `xml:"media,attr"`
	StartNumber    int              `xml:"startNumber,attr"`
	EndNumber      int              `xml:"endNumber,attr"`
	Duration       uint64           `xml:"duration,attr"`
	Timeline       *SegmentTimeline `xml:"SegmentTimeline"`
}

// SegmentTimeline lists segment start times and durations.
type SegmentTimeline struct {
	Segments []S `xml:"S"`
}

// S is one timeline entry: start time T, duration D, and R additional
// segments of the same duration following it.
type S struct {
	T uint64 `xml:"t,attr"`
	D uint64 `xml:"d,attr"`
	R int    `xml:"r,attr"`
}

// SegmentList describes explicit per-segment addressing: one initialization
// entry plus the media entries in presentation order.
type SegmentList struct {
	Timescale      int             `xml:"timescale,attr"`
	Duration       uint64          `xml:"duration,attr"`
	Initialization *Initialization `xml:"Initialization"`
	Segments       []SegmentURL    `xml:"SegmentURL"`
}

// SegmentURL is one media entry of a SegmentList. Media may be empty when
// the entry is a byte range into the representation's BaseURL resource.
type SegmentURL struct {
	Media      string `xml:"media,attr"`
	MediaRange string `xml:"mediaRange,attr"`
}

// SegmentBase describes single-resource addressing: the representation's
// BaseURL is the whole track, with the initialization held in a byte range.
type SegmentBase struct {
	IndexRange     string          `xml:"indexRange,attr"`
	Timescale      int             `xml:"timescale,attr"`
	Initialization *Initialization `xml:"Initialization"`
}

// Initialization locates an initialization segment by URL, byte range, or
// both.
type Initialization struct {
	SourceURL string `xml:"sourceURL,attr"`
	Range     string `xml:"range,attr"`
}

var durationPart = regexp.MustCompile(`(\d+\.?\d*)([HMS])`)

// parseDuration parses an ISO 8601 duration string like "PT24M18.5S".
func parseDuration(duration string) (time.Duration, error) {
	idx := strings.Index(duration, "T")
	if !strings.HasPrefix(duration, "P") || idx < 0 {
		return 0, errors.New("invalid ISO 8601 duration: " + duration)
	}

	var total time.Duration
	for _, match := range durationPart.FindAllStringSubmatch(duration[idx+1:], -1) {
		value, err := strconv.ParseFloat(match[1], 64)
		if err != nil {
			return 0, err
		}
		switch match[2] {
		case "H":
			total += time.Duration(value * float64(time.Hour))
		case "M":
			total += time.Duration(value * float64(time.Minute))
		case "S":
			total += time.Duration(value * float64(time.Second))
		}
	}
	return total, nil
}
