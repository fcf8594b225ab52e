package dash

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const timelineManifest = `<?xml version="1.0"?>
<MPD type="dynamic" minimumUpdatePeriod="PT2S">
  <BaseURL>https://cdn.example.com/live/</BaseURL>
  <Period>
    <AdaptationSet contentType="video" mimeType="video/mp4">
      <SegmentTemplate initialization="$RepresentationID$/init.mp4" media="$RepresentationID$/$Number%05d$.m4s" startNumber="1" timescale="90000">
        <SegmentTimeline>
          <S t="0" d="180000" r="2"/>
          <S d="90000"/>
        </SegmentTimeline>
      </SegmentTemplate>
      <Representation id="video-720" bandwidth="2500000" codecs="avc1.4d401f" width="1280" height="720"/>
      <Representation id="video-360" bandwidth="800000" codecs="avc1.4d401e" width="640" height="360"/>
    </AdaptationSet>
    <AdaptationSet contentType="audio" mimeType="audio/mp4">
      <ContentProtection default_KID="12345678-1234-1234-1234-123456789ABC" schemeIdUri="urn:mpeg:dash:mp4protection:2011"/>
      <SegmentTemplate initialization="$RepresentationID$/init.mp4" media="$RepresentationID$/$Number%05d$.m4s" startNumber="1" timescale="48000">
        <SegmentTimeline>
          <S t="0" d="96000" r="3"/>
        </SegmentTimeline>
      </SegmentTemplate>
      <Representation id="audio-en" bandwidth="128000" codecs="mp4a.40.2"/>
    </AdaptationSet>
    <AdaptationSet contentType="text" mimeType="application/ttml+xml">
      <Representation id="subs-en" bandwidth="1000"/>
    </AdaptationSet>
  </Period>
</MPD>`

const numberedManifest = `<?xml version="1.0"?>
<MPD type="static" mediaPresentationDuration="PT10S">
  <BaseURL>https://cdn.example.com/vod/</BaseURL>
  <Period duration="PT10S">
    <AdaptationSet contentType="video" mimeType="video/mp4">
      <SegmentTemplate initialization="init-$RepresentationID$.mp4" media="chunk-$RepresentationID$-$Number$.m4s" startNumber="1" duration="20" timescale="10"/>
      <Representation id="v1" bandwidth="1000000"/>
    </AdaptationSet>
  </Period>
</MPD>`

const multiPeriodManifest = `<?xml version="1.0"?>
<MPD type="static">
  <Period><AdaptationSet contentType="video"><Representation id="v1" bandwidth="1"/></AdaptationSet></Period>
  <Period><AdaptationSet contentType="video"><Representation id="v2" bandwidth="1"/></AdaptationSet></Period>
</MPD>`

func TestParse_TimelineExpansion(t *testing.T) {
	m, err := Parse([]byte(timelineManifest), "https://origin.example.com/live/stream.mpd")
	require.NoError(t, err)
	assert.True(t, m.IsLive)
	assert.Equal(t, 2*time.Second, m.MinimumUpdatePeriod)

	video := m.VideoTracks()
	require.Len(t, video, 2)

	var v720 *Track
	for i := range video {
		if video[i].ID == "video-720" {
			v720 = &video[i]
		}
	}
	require.NotNil(t, v720)
	// r="2" repeats the first S three times, plus the one implicit-start S: 4 segments.
	require.Len(t, v720.Segments, 4)
	assert.Equal(t, int64(1), v720.Segments[0].Number)
	assert.InDelta(t, 2.0, v720.Segments[0].Duration, 1e-9)
	assert.Equal(t, "https://cdn.example.com/live/video-720/00001.m4s", v720.Segments[0].URL)
	assert.Equal(t, "https://cdn.example.com/live/video-720/init.mp4", v720.InitURL)

	audio := m.AudioTracks()
	require.Len(t, audio, 1)
}

func TestParse_KIDNormalization(t *testing.T) {
	got := normalizeKID("12345678-1234-1234-1234-123456789ABC")
	assert.Equal(t, "12345678123412341234123456789abc", got)
}

func TestParse_SkipsTextTracks(t *testing.T) {
	m, err := Parse([]byte(timelineManifest), "https://origin.example.com/live/stream.mpd")
	require.NoError(t, err)
	for _, tr := range m.Tracks {
		assert.NotEqual(t, "subs-en", tr.ID)
	}
}

func TestParse_NumberedTemplateWithKnownDuration(t *testing.T) {
	m, err := Parse([]byte(numberedManifest), "https://origin.example.com/vod/stream.mpd")
	require.NoError(t, err)
	require.Len(t, m.Tracks, 1)
	tr := m.Tracks[0]
	// segmentDuration = 20/10 = 2s, totalDuration = 10s -> ceil(10/2) = 5 segments.
	require.Len(t, tr.Segments, 5)
	assert.Equal(t, int64(1), tr.Segments[0].Number)
	assert.Equal(t, "https://cdn.example.com/vod/chunk-v1-1.m4s", tr.Segments[0].URL)
}

func TestParse_LiveFixedDurationGatesOnAvailabilityStartTime(t *testing.T) {
	ast := time.Now().Add(-42 * time.Second).UTC().Format(time.RFC3339)
	manifest := `<?xml version="1.0"?>
<MPD type="dynamic" availabilityStartTime="` + ast + `">
  <BaseURL>https://cdn.example.com/live/</BaseURL>
  <Period>
    <AdaptationSet contentType="video" mimeType="video/mp4">
      <SegmentTemplate initialization="init-$RepresentationID$.mp4" media="chunk-$RepresentationID$-$Number$.m4s" startNumber="1" duration="4" timescale="1"/>
      <Representation id="v1" bandwidth="1000000"/>
    </AdaptationSet>
  </Period>
</MPD>`

	m, err := Parse([]byte(manifest), "https://origin.example.com/live/stream.mpd")
	require.NoError(t, err)
	require.Len(t, m.Tracks, 1)
	// segmentDuration = 4s, ~42s elapsed -> N_live = 1 + floor(42/4) = 11, so 11 segments (1..11).
	segs := m.Tracks[0].Segments
	assert.InDelta(t, 11, len(segs), 1)
	assert.Equal(t, int64(1), segs[0].Number)
}

func TestParse_LiveFixedDurationWithoutAvailabilityStartTimeFallsBack(t *testing.T) {
	manifest := `<?xml version="1.0"?>
<MPD type="dynamic">
  <BaseURL>https://cdn.example.com/live/</BaseURL>
  <Period>
    <AdaptationSet contentType="video" mimeType="video/mp4">
      <SegmentTemplate initialization="init-$RepresentationID$.mp4" media="chunk-$RepresentationID$-$Number$.m4s" startNumber="1" duration="4" timescale="1"/>
      <Representation id="v1" bandwidth="1000000"/>
    </AdaptationSet>
  </Period>
</MPD>`

	m, err := Parse([]byte(manifest), "https://origin.example.com/live/stream.mpd")
	require.NoError(t, err)
	require.Len(t, m.Tracks, 1)
	assert.Len(t, m.Tracks[0].Segments, fallbackSegmentCount)
}

func TestParse_RejectsMultiPeriod(t *testing.T) {
	_, err := Parse([]byte(multiPeriodManifest), "https://origin.example.com/x.mpd")
	require.Error(t, err)
	var mErr *ManifestError
	require.ErrorAs(t, err, &mErr)
	assert.Equal(t, KindUnsupported, mErr.Kind)
}

func TestFillTemplate_WidthSpecifier(t *testing.T) {
	got := fillTemplate("seg-$Number%05d$.m4s", "rep1", 42, 0, 0)
	assert.Equal(t, "seg-00042.m4s", got)
}

func TestFillTemplate_EscapedDollar(t *testing.T) {
	got := fillTemplate("literal$$sign-$Number$", "rep1", 7, 0, 0)
	assert.Equal(t, "literal$sign-7", got)
}

func TestSelectRepresentations_HighestBandwidth(t *testing.T) {
	m, err := Parse([]byte(timelineManifest), "https://origin.example.com/live/stream.mpd")
	require.NoError(t, err)

	video, audio, err := SelectRepresentations(m, "")
	require.NoError(t, err)
	require.NotNil(t, video)
	require.NotNil(t, audio)
	assert.Equal(t, "video-720", video.ID)
	assert.Equal(t, "audio-en", audio.ID)
}

func TestSelectRepresentations_ExplicitID(t *testing.T) {
	m, err := Parse([]byte(timelineManifest), "https://origin.example.com/live/stream.mpd")
	require.NoError(t, err)

	video, audio, err := SelectRepresentations(m, "video-360")
	require.NoError(t, err)
	require.NotNil(t, video)
	assert.Equal(t, "video-360", video.ID)
	assert.Nil(t, audio)
}

func TestSelectRepresentations_ExplicitAudioID(t *testing.T) {
	m, err := Parse([]byte(timelineManifest), "https://origin.example.com/live/stream.mpd")
	require.NoError(t, err)

	video, audio, err := SelectRepresentations(m, "audio-en")
	require.NoError(t, err)
	require.Nil(t, video)
	require.NotNil(t, audio)
	assert.Equal(t, "audio-en", audio.ID)
}

func TestSelectRepresentations_UnknownID(t *testing.T) {
	m, err := Parse([]byte(timelineManifest), "https://origin.example.com/live/stream.mpd")
	require.NoError(t, err)

	_, _, err = SelectRepresentations(m, "does-not-exist")
	require.Error(t, err)
}

func TestParseISODuration(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"PT2S", 2 * time.Second},
		{"PT1M30S", 90 * time.Second},
		{"PT1H", time.Hour},
		{"", 0},
		{"P0D", 0},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, parseISODuration(c.in), c.in)
	}
}
