package dash

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// SegmentLocation is one fetchable unit of a representation: an absolute URL,
// optionally narrowed to a byte range ("first-last", or "first-" to the end
// of the resource).
type SegmentLocation struct {
	URL   string
	Range string
	Init  bool
}

// Resolve expands a chosen Representation into the ordered, finite list of
// locations to fetch: the initialization segment first, then the media
// segments in presentation order. It is a pure function of its inputs and
// performs no network access; calling it twice yields identical lists.
//
// Addressing is a tagged choice between pattern expansion (SegmentTemplate)
// and explicit entries (SegmentList, or SegmentBase byte ranges into the
// representation's BaseURL). Representation-level addressing wins over the
// enclosing AdaptationSet's.
func Resolve(period *Period, as *AdaptationSet, rep *Representation, baseURL string) ([]SegmentLocation, error) {
	base, err := segmentBase(period, rep, baseURL)
	if err != nil {
		return nil, err
	}

	switch {
	case rep.SegmentList != nil:
		return expandList(rep.SegmentList, rep, base)
	case rep.SegmentTemplate != nil:
		return expandTemplate(rep.SegmentTemplate, rep, base)
	case rep.SegmentBase != nil:
		return expandSingleResource(rep.SegmentBase, rep, base)
	case as.SegmentList != nil:
		return expandList(as.SegmentList, rep, base)
	case as.SegmentTemplate != nil:
		return expandTemplate(as.SegmentTemplate, rep, base)
	}
	return nil, &AddressingError{RepID: rep.ID, Reason: "no segment addressing info"}
}

// segmentBase resolves the Period's BaseURL against the manifest location.
func segmentBase(period *Period, rep *Representation, baseURL string) (*url.URL, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, &AddressingError{RepID: rep.ID, Reason: "invalid base URL: " + baseURL}
	}
	if period.BaseURL != "" {
		base, err = resolveRef(base, period.BaseURL)
		if err != nil {
			return nil, &AddressingError{RepID: rep.ID, Reason: "invalid period BaseURL: " + period.BaseURL}
		}
	}
	return base, nil
}

func resolveRef(base *url.URL, ref string) (*url.URL, error) {
	parsed, err := url.Parse(ref)
	if err != nil {
		return nil, fmt.Errorf("parse reference %q: %w", ref, err)
	}
	return base.ResolveReference(parsed), nil
}

// expandTemplate walks the declared index range or timeline and substitutes
// each index into the media pattern, after emitting the initialization
// location.
func expandTemplate(tmpl *SegmentTemplate, rep *Representation, base *url.URL) ([]SegmentLocation, error) {
	if tmpl.Initialization == "" {
		return nil, &AddressingError{RepID: rep.ID, Reason: "template has no initialization pattern"}
	}
	if tmpl.Media == "" {
		return nil, &AddressingError{RepID: rep.ID, Reason: "template has no media pattern"}
	}

	initURL, err := resolveRef(base, fillTemplate(tmpl.Initialization, rep, 0, 0))
	if err != nil {
		return nil, &AddressingError{RepID: rep.ID, Reason: err.Error()}
	}
	locations := []SegmentLocation{{URL: initURL.String(), Init: true}}

	start := tmpl.StartNumber
	if start == 0 {
		start = 1
	}

	if tmpl.Timeline != nil {
		number := start
		var current uint64
		for _, s := range tmpl.Timeline.Segments {
			if s.R < 0 {
				return nil, &AddressingError{RepID: rep.ID, Reason: "open-ended timeline repeat"}
			}
			if s.T > 0 {
				current = s.T
			}
			for i := 0; i <= s.R; i++ {
				mediaURL, err := resolveRef(base, fillTemplate(tmpl.Media, rep, number, current))
				if err != nil {
					return nil, &AddressingError{RepID: rep.ID, Reason: err.Error()}
				}
				locations = append(locations, SegmentLocation{URL: mediaURL.String()})
				current += s.D
				number++
			}
		}
		if len(locations) == 1 {
			return nil, &AddressingError{RepID: rep.ID, Reason: "timeline declares no segments"}
		}
		return locations, nil
	}

	if tmpl.EndNumber == 0 {
		return nil, &AddressingError{RepID: rep.ID, Reason: "template declares neither timeline nor endNumber"}
	}
	if tmpl.EndNumber < start {
		return nil, &AddressingError{RepID: rep.ID, Reason: "template declares an empty index range"}
	}

	for number := start; number <= tmpl.EndNumber; number++ {
		t := uint64(number-start) * tmpl.Duration
		mediaURL, err := resolveRef(base, fillTemplate(tmpl.Media, rep, number, t))
		if err != nil {
			return nil, &AddressingError{RepID: rep.ID, Reason: err.Error()}
		}
		locations = append(locations, SegmentLocation{URL: mediaURL.String()})
	}
	return locations, nil
}

// templateVar matches $RepresentationID$, $Bandwidth$, $Number$ and $Time$,
// with an optional %0Nd width on the numeric identifiers.
var templateVar = regexp.MustCompile(`\$(RepresentationID|Bandwidth|Number|Time)(%0\d+d)?\$`)

func fillTemplate(pattern string, rep *Representation, number int, t uint64) string {
	return templateVar.ReplaceAllStringFunc(pattern, func(m string) string {
		parts := templateVar.FindStringSubmatch(m)
		var value int64
		switch parts[1] {
		case "RepresentationID":
			return rep.ID
		case "Bandwidth":
			value = int64(rep.Bandwidth)
		case "Number":
			value = int64(number)
		case "Time":
			value = int64(t)
		}
		if parts[2] != "" {
			return fmt.Sprintf(parts[2], value)
		}
		return strconv.FormatInt(value, 10)
	})
}

// expandList returns the explicit entries in document order. The
// initialization entry always comes out first; a list that interleaves it
// elsewhere is a manifest inconsistency corrected here, not propagated.
func expandList(list *SegmentList, rep *Representation, base *url.URL) ([]SegmentLocation, error) {
	if list.Initialization == nil {
		return nil, &AddressingError{RepID: rep.ID, Reason: "segment list has no initialization entry"}
	}

	init, err := entryLocation(list.Initialization.SourceURL, list.Initialization.Range, rep, base)
	if err != nil {
		return nil, err
	}
	init.Init = true
	locations := []SegmentLocation{init}

	for _, seg := range list.Segments {
		loc, err := entryLocation(seg.Media, seg.MediaRange, rep, base)
		if err != nil {
			return nil, err
		}
		locations = append(locations, loc)
	}
	return locations, nil
}

// entryLocation builds a location from an explicit entry. An entry without
// its own URL is a byte range into the representation's BaseURL resource.
func entryLocation(ref, byteRange string, rep *Representation, base *url.URL) (SegmentLocation, error) {
	if ref == "" {
		ref = rep.BaseURL
	}
	if ref == "" && byteRange == "" {
		return SegmentLocation{}, &AddressingError{RepID: rep.ID, Reason: "segment list entry has neither URL nor byte range"}
	}
	resolved, err := resolveRef(base, ref)
	if err != nil {
		return SegmentLocation{}, &AddressingError{RepID: rep.ID, Reason: err.Error()}
	}
	return SegmentLocation{URL: resolved.String(), Range: byteRange}, nil
}

// expandSingleResource handles SegmentBase addressing: the initialization
// byte range first, then the remainder of the resource in one open-ended
// range.
func expandSingleResource(sb *SegmentBase, rep *Representation, base *url.URL) ([]SegmentLocation, error) {
	if rep.BaseURL == "" {
		return nil, &AddressingError{RepID: rep.ID, Reason: "SegmentBase without a BaseURL resource"}
	}
	if sb.Initialization == nil || sb.Initialization.Range == "" {
		return nil, &AddressingError{RepID: rep.ID, Reason: "SegmentBase without an initialization range"}
	}

	resource, err := resolveRef(base, rep.BaseURL)
	if err != nil {
		return nil, &AddressingError{RepID: rep.ID, Reason: err.Error()}
	}

	_, end, err := parseByteRange(sb.Initialization.Range)
	if err != nil {
		return nil, &AddressingError{RepID: rep.ID, Reason: err.Error()}
	}

	return []SegmentLocation{
		{URL: resource.String(), Range: sb.Initialization.Range, Init: true},
		{URL: resource.String(), Range: strconv.FormatUint(end+1, 10) + "-"},
	}, nil
}

// parseByteRange splits a "first-last" byte range.
func parseByteRange(r string) (first, last uint64, err error) {
	parts := strings.SplitN(r, "-", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("malformed byte range %q", r)
	}
	first, err = strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed byte range %q: %w", r, err)
	}
	last, err = strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed byte range %q: %w", r, err)
	}
	return first, last, nil
}
