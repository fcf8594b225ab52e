package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"dash2hls/internal/dash"
	"dash2hls/internal/decrypt"
	"dash2hls/internal/downloader"
	"dash2hls/internal/hls"
	"dash2hls/internal/platform/metrics"
)

// maxConsecutiveSegmentFailures bounds how many refresh cycles in a row
// the same segment number may fail to download/decrypt before the
// variant (and therefore the session) is considered errored.
const maxConsecutiveSegmentFailures = 10

// variantRuntime tracks one video or audio track across manifest
// refresh cycles: which segments have already been written, how many
// times in a row the current segment has failed, and the writer it
// feeds.
type variantRuntime struct {
	kind      dash.ContentKind
	writer    *hls.VariantWriter
	processed *processedSet
	log       *slog.Logger
	metrics   *metrics.Metrics

	track       dash.Track
	lastInitURL string
	haveLast    bool
	lastNumber  int64
	failCounts  map[int64]int
}

func newVariantRuntime(kind dash.ContentKind, writer *hls.VariantWriter, historySize int, log *slog.Logger, m *metrics.Metrics) *variantRuntime {
	return &variantRuntime{
		kind:       kind,
		writer:     writer,
		processed:  newProcessedSet(historySize),
		log:        log,
		metrics:    m,
		failCounts: make(map[int64]int),
	}
}

// setTrack updates the representation this variant follows. Callers
// supply the current manifest's selected Track on every refresh.
func (v *variantRuntime) setTrack(t dash.Track) {
	v.track = t
}

// newSegments returns the track's segments not yet processed, in
// ascending order.
func (v *variantRuntime) newSegments() []dash.Segment {
	var fresh []dash.Segment
	for _, seg := range v.track.Segments {
		if v.processed.Has(seg.Number) {
			continue
		}
		if v.haveLast && seg.Number <= v.lastNumber {
			continue
		}
		fresh = append(fresh, seg)
	}
	return fresh
}

// runCycle ensures the init segment is current and downloads/decrypts/
// writes any new segments. A failure to fetch, decrypt or write the init
// segment is returned at once. For media segments it returns a fatal
// error only once a segment has failed maxConsecutiveSegmentFailures
// times in a row; transient failures are recorded and retried on the
// next manifest refresh.
func (v *variantRuntime) runCycle(ctx context.Context, dl *downloader.Downloader, dec decrypt.Decryptor) error {
	if v.track.InitURL != v.lastInitURL {
		payload, err := dl.Fetch(ctx, v.track.InitURL)
		if err != nil {
			return fmt.Errorf("fetch init segment: %w", err)
		}
		decrypted, err := dec.Decrypt(ctx, payload)
		if err != nil {
			return fmt.Errorf("decrypt init segment: %w", err)
		}
		if err := v.writer.WriteInit(decrypted, 0); err != nil {
			return fmt.Errorf("write init segment: %w", err)
		}
		v.lastInitURL = v.track.InitURL
	}

	for _, seg := range v.newSegments() {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		payload, err := dl.Fetch(ctx, seg.URL)
		if err != nil {
			var nf *downloader.NotFoundError
			if errors.As(err, &nf) {
				// Not yet published; try again next refresh, same segment.
				return nil
			}
			return v.recordFailure(seg.Number, err)
		}
		if v.metrics != nil {
			v.metrics.IncSegmentsDownloaded()
		}

		decrypted, err := dec.Decrypt(ctx, payload)
		if err != nil {
			if v.metrics != nil {
				v.metrics.IncDecryptFailures()
			}
			return v.recordFailure(seg.Number, err)
		}
		if v.metrics != nil {
			v.metrics.IncSegmentsDecrypted()
		}

		if err := v.writer.AddSegment(seg.Number, seg.Duration, decrypted); err != nil {
			return v.recordFailure(seg.Number, err)
		}

		delete(v.failCounts, seg.Number)
		v.processed.Mark(seg.Number)
		v.lastNumber = seg.Number
		v.haveLast = true
	}

	return nil
}

func (v *variantRuntime) recordFailure(number int64, cause error) error {
	v.failCounts[number]++
	count := v.failCounts[number]
	if v.log != nil {
		v.log.Warn("segment failed", "number", number, "attempt", count, "error", cause)
	}
	if count >= maxConsecutiveSegmentFailures {
		return fmt.Errorf("segment %d failed %d consecutive times: %w", number, count, cause)
	}
	return nil
}
