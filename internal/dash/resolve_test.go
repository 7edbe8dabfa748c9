package dash_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dashrip/internal/dash"
)

const baseURL = "https://cdn.example.com/show/ep1/manifest.mpd"

func templateRep(tmpl *dash.SegmentTemplate) (*dash.Period, *dash.AdaptationSet, *dash.Representation) {
	period := &dash.Period{}
	as := &dash.AdaptationSet{ContentType: "video", SegmentTemplate: tmpl}
	rep := &dash.Representation{ID: "v1000", Bandwidth: 1000000}
	return period, as, rep
}

func TestResolveTemplateNumberRange(t *testing.T) {
	period, as, rep := templateRep(&dash.SegmentTemplate{
		Initialization: "$RepresentationID$/init.mp4",
		Media:          "$RepresentationID$/seg-$Number$.m4s",
		StartNumber:    1,
		EndNumber:      5,
	})

	locations, err := dash.Resolve(period, as, rep, baseURL)
	require.NoError(t, err)

	// 1 init + 5 media, init first.
	require.Len(t, locations, 6)
	assert.True(t, locations[0].Init)
	assert.Equal(t, "https://cdn.example.com/show/ep1/v1000/init.mp4", locations[0].URL)
	for i := 1; i < len(locations); i++ {
		assert.False(t, locations[i].Init)
	}
	assert.Equal(t, "https://cdn.example.com/show/ep1/v1000/seg-1.m4s", locations[1].URL)
	assert.Equal(t, "https://cdn.example.com/show/ep1/v1000/seg-5.m4s", locations[5].URL)
}

func TestResolveTemplateIsIdempotent(t *testing.T) {
	period, as, rep := templateRep(&dash.SegmentTemplate{
		Initialization: "$RepresentationID$/init.mp4",
		Media:          "$RepresentationID$/seg-$Number%05d$-$Time$.m4s",
		StartNumber:    1,
		EndNumber:      3,
		Duration:       90000,
	})

	first, err := dash.Resolve(period, as, rep, baseURL)
	require.NoError(t, err)
	second, err := dash.Resolve(period, as, rep, baseURL)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, "https://cdn.example.com/show/ep1/v1000/seg-00002-90000.m4s", first[2].URL)
}

func TestResolveTemplateTimeline(t *testing.T) {
	period, as, rep := templateRep(&dash.SegmentTemplate{
		Initialization: "init-$RepresentationID$.mp4",
		Media:          "seg-$Time$.m4s",
		Timeline: &dash.SegmentTimeline{
			Segments: []dash.S{
				{T: 0, D: 1000, R: 2}, // three segments at 0, 1000, 2000
				{T: 5000, D: 500},     // explicit jump
			},
		},
	})

	locations, err := dash.Resolve(period, as, rep, baseURL)
	require.NoError(t, err)

	require.Len(t, locations, 5)
	assert.Equal(t, "https://cdn.example.com/show/ep1/init-v1000.mp4", locations[0].URL)
	assert.Equal(t, "https://cdn.example.com/show/ep1/seg-0.m4s", locations[1].URL)
	assert.Equal(t, "https://cdn.example.com/show/ep1/seg-1000.m4s", locations[2].URL)
	assert.Equal(t, "https://cdn.example.com/show/ep1/seg-2000.m4s", locations[3].URL)
	assert.Equal(t, "https://cdn.example.com/show/ep1/seg-5000.m4s", locations[4].URL)
}

func TestResolveTemplateHonorsPeriodBaseURL(t *testing.T) {
	period, as, rep := templateRep(&dash.SegmentTemplate{
		Initialization: "init.mp4",
		Media:          "seg-$Number$.m4s",
		EndNumber:      1,
	})
	period.BaseURL = "media/"

	locations, err := dash.Resolve(period, as, rep, baseURL)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/show/ep1/media/init.mp4", locations[0].URL)
	assert.Equal(t, "https://cdn.example.com/show/ep1/media/seg-1.m4s", locations[1].URL)
}

func TestResolveSegmentList(t *testing.T) {
	period := &dash.Period{}
	as := &dash.AdaptationSet{ContentType: "audio"}
	rep := &dash.Representation{
		ID: "a128",
		SegmentList: &dash.SegmentList{
			Initialization: &dash.Initialization{SourceURL: "a128/init.mp4"},
			Segments: []dash.SegmentURL{
				{Media: "a128/seg-1.m4s"},
				{Media: "a128/seg-2.m4s"},
			},
		},
	}

	locations, err := dash.Resolve(period, as, rep, baseURL)
	require.NoError(t, err)

	require.Len(t, locations, 3)
	assert.True(t, locations[0].Init, "initialization entry must come first")
	assert.Equal(t, "https://cdn.example.com/show/ep1/a128/init.mp4", locations[0].URL)
	assert.Equal(t, "https://cdn.example.com/show/ep1/a128/seg-2.m4s", locations[2].URL)
}

func TestResolveSegmentListByteRanges(t *testing.T) {
	period := &dash.Period{}
	as := &dash.AdaptationSet{ContentType: "audio"}
	rep := &dash.Representation{
		ID:      "a128",
		BaseURL: "audio.mp4",
		SegmentList: &dash.SegmentList{
			Initialization: &dash.Initialization{Range: "0-720"},
			Segments: []dash.SegmentURL{
				{MediaRange: "721-2000"},
				{MediaRange: "2001-4000"},
			},
		},
	}

	locations, err := dash.Resolve(period, as, rep, baseURL)
	require.NoError(t, err)

	require.Len(t, locations, 3)
	assert.Equal(t, "https://cdn.example.com/show/ep1/audio.mp4", locations[0].URL)
	assert.Equal(t, "0-720", locations[0].Range)
	assert.True(t, locations[0].Init)
	assert.Equal(t, "721-2000", locations[1].Range)
	assert.Equal(t, "2001-4000", locations[2].Range)
}

func TestResolveSegmentBase(t *testing.T) {
	period := &dash.Period{}
	as := &dash.AdaptationSet{ContentType: "video"}
	rep := &dash.Representation{
		ID:      "video_high",
		BaseURL: "video_high.mp4",
		SegmentBase: &dash.SegmentBase{
			IndexRange:     "881-1040",
			Initialization: &dash.Initialization{Range: "0-880"},
		},
	}

	locations, err := dash.Resolve(period, as, rep, baseURL)
	require.NoError(t, err)

	require.Len(t, locations, 2)
	assert.True(t, locations[0].Init)
	assert.Equal(t, "https://cdn.example.com/show/ep1/video_high.mp4", locations[0].URL)
	assert.Equal(t, "0-880", locations[0].Range)
	assert.Equal(t, "881-", locations[1].Range, "remainder starts right after the init range")
	assert.False(t, locations[1].Init)
}

func TestResolveFailsWithoutAddressingInfo(t *testing.T) {
	period := &dash.Period{}
	as := &dash.AdaptationSet{ContentType: "video"}
	rep := &dash.Representation{ID: "bare"}

	_, err := dash.Resolve(period, as, rep, baseURL)

	var addrErr *dash.AddressingError
	require.True(t, errors.As(err, &addrErr))
	assert.Equal(t, "bare", addrErr.RepID)
}

func TestResolveFailsOnEmptyIndexRange(t *testing.T) {
	period, as, rep := templateRep(&dash.SegmentTemplate{
		Initialization: "init.mp4",
		Media:          "seg-$Number$.m4s",
		StartNumber:    10,
		EndNumber:      5,
	})

	_, err := dash.Resolve(period, as, rep, baseURL)

	var addrErr *dash.AddressingError
	require.True(t, errors.As(err, &addrErr))
	assert.Contains(t, addrErr.Reason, "empty index range")
}

func TestResolveFailsOnEmptyTimeline(t *testing.T) {
	period, as, rep := templateRep(&dash.SegmentTemplate{
		Initialization: "init.mp4",
		Media:          "seg-$Time$.m4s",
		Timeline:       &dash.SegmentTimeline{},
	})

	_, err := dash.Resolve(period, as, rep, baseURL)

	var addrErr *dash.AddressingError
	require.True(t, errors.As(err, &addrErr))
}

func TestResolvePrefersRepresentationLevelAddressing(t *testing.T) {
	period := &dash.Period{}
	as := &dash.AdaptationSet{
		ContentType: "video",
		SegmentTemplate: &dash.SegmentTemplate{
			Initialization: "set-init.mp4",
			Media:          "set-seg-$Number$.m4s",
			EndNumber:      2,
		},
	}
	rep := &dash.Representation{
		ID:      "v1",
		BaseURL: "v1.mp4",
		SegmentBase: &dash.SegmentBase{
			Initialization: &dash.Initialization{Range: "0-100"},
		},
	}

	locations, err := dash.Resolve(period, as, rep, baseURL)
	require.NoError(t, err)
	require.Len(t, locations, 2)
	assert.Equal(t, "https://cdn.example.com/show/ep1/v1.mp4", locations[0].URL)
}
