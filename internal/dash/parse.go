package dash

import (
	"encoding/xml"
	"fmt"
)

// Parse converts raw manifest markup into an MPD tree. baseURL is the URL
// the document was fetched from; it is recorded on the returned MPD so that
// relative references resolve against it.
//
// The downstream pipeline needs both tracks of every Period, so a document
// with no Periods, or with a Period lacking an audio or video AdaptationSet,
// is rejected here rather than surfacing later as a selection failure.
func Parse(data []byte, baseURL string) (*MPD, error) {
	var mpd MPD
	if err := xml.Unmarshal(data, &mpd); err != nil {
		return nil, &ParseError{Location: baseURL, Reason: "malformed document", Err: err}
	}

	if len(mpd.Periods) == 0 {
		return nil, &ParseError{Location: baseURL, Reason: "manifest declares no Period"}
	}

	for i := range mpd.Periods {
		p := &mpd.Periods[i]
		for _, contentType := range []string{"audio", "video"} {
			if p.Set(contentType) == nil {
				return nil, &ParseError{
					Location: baseURL,
					Reason:   fmt.Sprintf("period %d (%q) has no %s adaptation set", i, p.ID, contentType),
				}
			}
		}
	}

	mpd.Location = baseURL
	return &mpd, nil
}
