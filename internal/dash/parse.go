package dash

import (
	"encoding/xml"
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// fallbackSegmentCount is used when a SegmentTemplate has a fixed duration
// but no segment count can be derived: a live manifest without
// availabilityStartTime, or a static one where neither the Period nor the
// MPD advertise a total duration.
const fallbackSegmentCount = 200

// maxTimelineRepeat bounds the segment count produced by an open-ended
// SegmentTimeline repeat (`r="-1"`) on a live manifest, which otherwise
// has no natural terminator.
const maxTimelineRepeat = 30

// Parse unmarshals raw MPD bytes and resolves them, relative to requestURL,
// into a flat Manifest. requestURL is the URL the manifest was fetched
// from and anchors any relative BaseURL chain.
func Parse(data []byte, requestURL string) (*Manifest, error) {
	var mpd MPD
	if err := xml.Unmarshal(data, &mpd); err != nil {
		return nil, &ManifestError{Kind: KindMalformed, Msg: "invalid XML", Err: err}
	}
	return resolve(&mpd, requestURL)
}

func resolve(mpd *MPD, requestURL string) (*Manifest, error) {
	if len(mpd.Periods) > 1 {
		return nil, newManifestError(KindUnsupported, fmt.Sprintf("manifest has %d periods, only single-period manifests are supported", len(mpd.Periods)))
	}
	if len(mpd.Periods) == 0 {
		return nil, newManifestError(KindEmpty, "manifest has no periods")
	}

	isLive := strings.EqualFold(mpd.Type, "dynamic")

	mediaDuration := parseISODuration(mpd.MediaPresentationDuration)
	minUpdate := parseISODuration(mpd.MinimumUpdatePeriod)
	availabilityStartTime := parseDateTime(mpd.AvailabilityStartTime)

	baseDir := dirOf(requestURL)
	manifestBase := applyBaseURL(baseDir, mpd.BaseURL)

	period := mpd.Periods[0]
	periodDuration := parseISODuration(period.Duration)
	periodStart := parseISODuration(period.Start)
	periodBase := applyBaseURL(manifestBase, period.BaseURL)

	totalDuration := periodDuration
	if totalDuration == 0 {
		totalDuration = mediaDuration
	}

	var tracks []Track

	for _, as := range period.AdaptationSets {
		if skipAdaptationSet(as) {
			continue
		}
		adaptationBase := applyBaseURL(periodBase, as.BaseURL)

		for _, rep := range as.Representations {
			if rep.ID == "" {
				continue
			}

			mimeType := firstNonEmpty(rep.MimeType, as.MimeType)
			codecs := firstNonEmpty(rep.Codecs, as.Codecs)
			kind, ok := classify(as, rep)
			if !ok {
				continue
			}

			defaultKID := resolveDefaultKID(as, rep)
			repBase := applyBaseURL(adaptationBase, rep.BaseURL)

			tmpl := resolveSegmentTemplate(mpd, &period, &as, &rep)

			var initURL string
			var segments []Segment

			switch {
			case tmpl != nil && tmpl.Media != "":
				initURL, segments = parseSegmentTemplate(tmpl, rep.ID, repBase, rep.Bandwidth, totalDuration, isLive, availabilityStartTime, periodStart)
			case rep.SegmentList != nil:
				initURL, segments = parseSegmentList(rep.SegmentList, repBase)
			case rep.SegmentBase != nil:
				initURL, segments = parseSegmentBase(rep.SegmentBase, repBase, totalDuration)
			default:
				continue
			}

			if initURL == "" || len(segments) == 0 {
				continue
			}

			tracks = append(tracks, Track{
				ID:         rep.ID,
				Kind:       kind,
				Bandwidth:  rep.Bandwidth,
				Codecs:     codecs,
				MimeType:   mimeType,
				Width:      rep.Width,
				Height:     rep.Height,
				DefaultKID: defaultKID,
				InitURL:    initURL,
				Segments:   segments,
			})
		}
	}

	if len(tracks) == 0 {
		return nil, newManifestError(KindEmpty, "no usable representation found")
	}

	return &Manifest{
		IsLive:              isLive,
		MinimumUpdatePeriod: minUpdate,
		TotalDuration:       totalDuration,
		Tracks:              tracks,
	}, nil
}

func dirOf(u string) string {
	if strings.HasSuffix(u, "/") {
		return u
	}
	if i := strings.LastIndex(u, "/"); i >= 0 {
		return u[:i+1]
	}
	return u + "/"
}

func applyBaseURL(current string, candidates []BaseURL) string {
	if len(candidates) == 0 {
		return current
	}
	text := strings.TrimSpace(candidates[0].Value)
	if text == "" {
		return current
	}
	return resolveURL(current, text)
}

func resolveURL(base, relative string) string {
	if parsed, err := url.Parse(relative); err == nil && parsed.IsAbs() {
		return relative
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return relative
	}
	relURL, err := url.Parse(relative)
	if err != nil {
		return base
	}
	return baseURL.ResolveReference(relURL).String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func skipAdaptationSet(as AdaptationSet) bool {
	contentType := strings.ToLower(as.ContentType)
	mimeType := strings.ToLower(as.MimeType)
	if contentType != "" && contentType != "audio" && contentType != "video" {
		return true
	}
	for _, key := range []string{"text", "ttml", "vtt", "srt"} {
		if strings.Contains(mimeType, key) {
			return true
		}
	}
	return false
}

func classify(as AdaptationSet, rep Representation) (ContentKind, bool) {
	mimeCandidates := []string{strings.ToLower(rep.MimeType), strings.ToLower(as.MimeType)}
	contentCandidates := []string{strings.ToLower(rep.ContentType), strings.ToLower(as.ContentType)}

	isVideo := containsAny(mimeCandidates, "video") || equalsAny(contentCandidates, "video")
	isAudio := containsAny(mimeCandidates, "audio") || equalsAny(contentCandidates, "audio")

	if !isVideo && !isAudio {
		codecs := strings.ToLower(firstNonEmpty(rep.Codecs, as.Codecs))
		for _, prefix := range []string{"mp4a", "ac-3", "ec-3"} {
			isAudio = isAudio || strings.HasPrefix(codecs, prefix)
		}
		for _, prefix := range []string{"avc", "hev", "hvc", "vp", "av01"} {
			isVideo = isVideo || strings.HasPrefix(codecs, prefix)
		}
	}

	switch {
	case isVideo:
		return KindVideo, true
	case isAudio:
		return KindAudio, true
	default:
		return 0, false
	}
}

func containsAny(values []string, needle string) bool {
	for _, v := range values {
		if strings.Contains(v, needle) {
			return true
		}
	}
	return false
}

func equalsAny(values []string, needle string) bool {
	for _, v := range values {
		if v == needle {
			return true
		}
	}
	return false
}

var kidCleaner = regexp.MustCompile(`[-{}]`)

func resolveDefaultKID(as AdaptationSet, rep Representation) string {
	if rep.DefaultKID != "" {
		return normalizeKID(rep.DefaultKID)
	}
	for _, cp := range rep.ContentProtection {
		if cp.DefaultKID != "" {
			return normalizeKID(cp.DefaultKID)
		}
	}
	if as.DefaultKID != "" {
		return normalizeKID(as.DefaultKID)
	}
	for _, cp := range as.ContentProtection {
		if cp.DefaultKID != "" {
			return normalizeKID(cp.DefaultKID)
		}
	}
	return ""
}

func normalizeKID(raw string) string {
	return strings.ToLower(kidCleaner.ReplaceAllString(raw, ""))
}

// resolvedTemplate merges SegmentTemplate attributes inherited from the
// AdaptationSet down to the Representation, with the Representation's
// value winning per attribute.
type resolvedTemplate struct {
	Initialization         string
	Media                  string
	Timescale              int64
	Duration               *int64
	StartNumber            int64
	PresentationTimeOffset int64
	Timeline               *SegmentTimeline
}

// resolveSegmentTemplate merges the AdaptationSet- and Representation-level
// SegmentTemplate, the two levels DASH-IF live profiles actually use.
// MPD- and Period-level SegmentTemplate are rare enough in practice that
// this gateway does not model them.
func resolveSegmentTemplate(mpd *MPD, period *Period, as *AdaptationSet, rep *Representation) *resolvedTemplate {
	var found []*SegmentTemplate
	if as.SegmentTemplate != nil {
		found = append(found, as.SegmentTemplate)
	}
	if rep.SegmentTemplate != nil {
		found = append(found, rep.SegmentTemplate)
	}
	if len(found) == 0 {
		return nil
	}

	out := &resolvedTemplate{Timescale: 1, StartNumber: 1}
	for _, t := range found {
		if t.Initialization != "" {
			out.Initialization = t.Initialization
		}
		if t.Media != "" {
			out.Media = t.Media
		}
		if t.Timescale != nil {
			out.Timescale = *t.Timescale
		}
		if t.Duration != nil {
			out.Duration = t.Duration
		}
		if t.StartNumber != nil {
			out.StartNumber = *t.StartNumber
		}
		if t.PresentationTimeOffset != nil {
			out.PresentationTimeOffset = *t.PresentationTimeOffset
		}
		if t.SegmentTimeline != nil {
			out.Timeline = t.SegmentTimeline
		}
	}
	if out.Timescale <= 0 {
		out.Timescale = 1
	}
	return out
}

func parseSegmentTemplate(t *resolvedTemplate, repID, baseURL string, bandwidth int, totalDuration time.Duration, isLive bool, availabilityStartTime time.Time, periodStart time.Duration) (string, []Segment) {
	var initURL string
	if t.Initialization != "" {
		initPath := fillTemplate(t.Initialization, repID, t.StartNumber, 0, bandwidth)
		if initPath != "" {
			initURL = resolveURL(baseURL, initPath)
		}
	}

	if t.Media == "" {
		return initURL, nil
	}

	if t.Timeline != nil {
		return initURL, parseSegmentTimeline(t, repID, baseURL, bandwidth, isLive)
	}

	if t.Duration == nil || *t.Duration <= 0 {
		return initURL, nil
	}

	durationUnits := *t.Duration
	segmentDuration := float64(durationUnits) / float64(t.Timescale)

	numSegments := fallbackSegmentCount
	switch {
	case isLive && !availabilityStartTime.IsZero() && segmentDuration > 0:
		// Live, no SegmentTimeline: the set of segments actually
		// available is bounded by wall clock, not by totalDuration
		// (dynamic manifests rarely advertise one). N_live is the
		// segment number available right now.
		elapsed := time.Since(availabilityStartTime) - periodStart
		nLive := t.StartNumber - 1
		if elapsed > 0 {
			nLive = t.StartNumber + int64(math.Floor(elapsed.Seconds()/segmentDuration))
		}
		if count := nLive - t.StartNumber + 1; count > 0 {
			numSegments = int(count)
		} else {
			numSegments = 0
		}
	case !isLive && totalDuration > 0 && segmentDuration > 0:
		estimate := int(math.Ceil(totalDuration.Seconds() / segmentDuration))
		if estimate > 0 {
			numSegments = estimate
		} else {
			numSegments = 1
		}
	}

	segments := make([]Segment, 0, numSegments)
	timeCursor := t.PresentationTimeOffset
	for offset := 0; offset < numSegments; offset++ {
		segNumber := t.StartNumber + int64(offset)
		mediaPath := fillTemplate(t.Media, repID, segNumber, timeCursor, bandwidth)
		if mediaPath == "" {
			break
		}
		segments = append(segments, Segment{
			Number:   segNumber,
			Time:     timeCursor,
			Duration: segmentDuration,
			URL:      resolveURL(baseURL, mediaPath),
		})
		timeCursor += durationUnits
	}
	return initURL, segments
}

func parseSegmentTimeline(t *resolvedTemplate, repID, baseURL string, bandwidth int, isLive bool) []Segment {
	if t.Timeline == nil || t.Media == "" {
		return nil
	}

	var segments []Segment
	number := t.StartNumber
	currentTime := t.PresentationTimeOffset
	var lastDuration int64

	for _, s := range t.Timeline.S {
		if s.T != nil {
			currentTime = *s.T
		}

		durationUnits := s.D
		if durationUnits <= 0 {
			if lastDuration <= 0 {
				continue
			}
			durationUnits = lastDuration
		} else {
			lastDuration = durationUnits
		}

		repeat := int64(0)
		if s.R != nil {
			repeat = *s.R
		}
		if repeat < 0 {
			if isLive {
				repeat = maxTimelineRepeat
			} else {
				repeat = 0
			}
		}

		for i := int64(0); i <= repeat; i++ {
			timeValue := currentTime - t.PresentationTimeOffset
			mediaPath := fillTemplate(t.Media, repID, number, timeValue, bandwidth)
			if mediaPath == "" {
				break
			}
			segments = append(segments, Segment{
				Number:   number,
				Time:     timeValue,
				Duration: float64(durationUnits) / float64(t.Timescale),
				URL:      resolveURL(baseURL, mediaPath),
			})
			number++
			currentTime += durationUnits
		}
	}
	return segments
}

func parseSegmentList(sl *SegmentList, baseURL string) (string, []Segment) {
	var initURL string
	if sl.Initialization != nil && sl.Initialization.SourceURL != "" {
		initURL = resolveURL(baseURL, sl.Initialization.SourceURL)
	}

	timescale := int64(1)
	if sl.Timescale != nil && *sl.Timescale > 0 {
		timescale = *sl.Timescale
	}
	var defaultDuration float64
	if sl.Duration != nil && *sl.Duration > 0 {
		defaultDuration = float64(*sl.Duration) / float64(timescale)
	}

	startNumber := int64(1)
	if sl.StartNumber != nil {
		startNumber = *sl.StartNumber
	}

	segments := make([]Segment, 0, len(sl.SegmentURLs))
	for i, su := range sl.SegmentURLs {
		if su.Media == "" {
			continue
		}
		duration := defaultDuration
		if su.Duration != nil && *su.Duration > 0 {
			duration = float64(*su.Duration) / float64(timescale)
		}
		segments = append(segments, Segment{
			Number:   startNumber + int64(i),
			Duration: duration,
			URL:      resolveURL(baseURL, su.Media),
		})
	}
	return initURL, segments
}

func parseSegmentBase(sb *SegmentBase, baseURL string, totalDuration time.Duration) (string, []Segment) {
	var initURL string
	if sb.Initialization != nil && sb.Initialization.SourceURL != "" {
		initURL = resolveURL(baseURL, sb.Initialization.SourceURL)
	}
	var segments []Segment
	if totalDuration > 0 {
		segments = append(segments, Segment{Number: 1, Duration: totalDuration.Seconds(), URL: baseURL})
	}
	return initURL, segments
}

var isoDurationRe = regexp.MustCompile(`^P(?:(\d+)Y)?(?:(\d+)M)?(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:([\d.]+)S)?)?$`)
var isoDurationPTOnlyRe = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?(?:([\d.]+)S)?$`)

// parseISODuration parses a (possibly empty) ISO-8601 duration string,
// returning zero for an empty or unparseable input.
func parseISODuration(s string) time.Duration {
	if s == "" {
		return 0
	}
	if m := isoDurationRe.FindStringSubmatch(s); m != nil {
		years := atoiOr(m[1], 0)
		months := atoiOr(m[2], 0)
		days := atoiOr(m[3], 0)
		hours := atoiOr(m[4], 0)
		minutes := atoiOr(m[5], 0)
		seconds := atofOr(m[6], 0)
		totalDays := years*365 + months*30 + days
		total := float64(totalDays)*86400 + float64(hours)*3600 + float64(minutes)*60 + seconds
		return time.Duration(total * float64(time.Second))
	}
	if m := isoDurationPTOnlyRe.FindStringSubmatch(s); m != nil {
		hours := atoiOr(m[1], 0)
		minutes := atoiOr(m[2], 0)
		seconds := atofOr(m[3], 0)
		total := float64(hours)*3600 + float64(minutes)*60 + seconds
		return time.Duration(total * float64(time.Second))
	}
	return 0
}

// parseDateTime parses an xs:dateTime value such as availabilityStartTime,
// returning the zero Time for an empty or unparseable input. A missing
// timezone offset is treated as UTC, as DASH-IF live profiles assume.
func parseDateTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
		return t.UTC()
	}
	return time.Time{}
}

func atoiOr(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}

func atofOr(s string, fallback float64) float64 {
	if s == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fallback
	}
	return f
}
