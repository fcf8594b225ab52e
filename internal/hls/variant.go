// Package hls writes fMP4-based HLS output: per-variant media playlists
// and a master playlist, with atomic file writes and a sliding window
// for live streams.
package hls

import (
	"container/list"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
)

// segmentEntry is one media segment tracked by a VariantWriter.
type segmentEntry struct {
	number        int64
	duration      float64
	filename      string
	discontinuity bool
}

// VariantWriter maintains one video or audio track's init segment, media
// segments, and media playlist on disk.
type VariantWriter struct {
	dir        string
	isLive     bool
	windowSize int

	mu             sync.Mutex
	window         *list.List // of segmentEntry, oldest first
	targetDuration float64
	finalized      bool
	initWritten    bool

	lastInitBytes        []byte
	lastTimescale        int64
	lastNumber           int64
	haveLast             bool
	pendingDiscontinuity bool
}

// NewVariantWriter creates the variant's output directory and returns a
// writer for it. windowSize is ignored for VOD (isLive false): VOD
// playlists never evict segments.
func NewVariantWriter(dir string, isLive bool, windowSize int) (*VariantWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &VariantWriter{
		dir:            dir,
		isLive:         isLive,
		windowSize:     windowSize,
		window:         list.New(),
		targetDuration: 1,
	}, nil
}

// PlaylistPath is the on-disk path of this variant's media playlist.
func (v *VariantWriter) PlaylistPath() string { return filepath.Join(v.dir, "index.m3u8") }

// InitPath is the on-disk path of this variant's initialization segment.
func (v *VariantWriter) InitPath() string { return filepath.Join(v.dir, "init.mp4") }

// WriteInit persists the initialization segment. If the init segment's
// bytes differ from a previously written one (a mid-stream codec or
// timescale change signaled by the origin), the next added segment is
// marked with a playlist discontinuity.
func (v *VariantWriter) WriteInit(payload []byte, timescale int64) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	changed := v.initWritten && !bytesEqual(v.lastInitBytes, payload)
	timescaleChanged := v.initWritten && v.lastTimescale != 0 && timescale != 0 && v.lastTimescale != timescale

	if err := writeFileAtomic(v.InitPath(), payload); err != nil {
		return err
	}

	v.lastInitBytes = append([]byte(nil), payload...)
	v.lastTimescale = timescale
	v.initWritten = true

	if changed || timescaleChanged {
		v.pendingDiscontinuity = true
	}
	return nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// AddSegment writes a decrypted media segment to disk, updates the
// sliding window (evicting the oldest segment file for live streams once
// windowSize is exceeded), and rewrites the media playlist. A gap in
// segment numbers relative to the previously added segment inserts a
// discontinuity marker before this one.
func (v *VariantWriter) AddSegment(number int64, duration float64, payload []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	filename := fmt.Sprintf("segment_%d.m4s", number)
	path := filepath.Join(v.dir, filename)
	if err := writeFileAtomic(path, payload); err != nil {
		return err
	}

	discontinuity := v.pendingDiscontinuity
	if v.haveLast && number != v.lastNumber+1 {
		discontinuity = true
	}
	v.pendingDiscontinuity = false
	v.lastNumber = number
	v.haveLast = true

	v.window.PushBack(segmentEntry{number: number, duration: duration, filename: filename, discontinuity: discontinuity})
	if duration > v.targetDuration {
		v.targetDuration = math.Ceil(duration)
	}

	if v.isLive && v.windowSize > 0 {
		for v.window.Len() > v.windowSize {
			oldest := v.window.Front()
			v.window.Remove(oldest)
			old := oldest.Value.(segmentEntry)
			os.Remove(filepath.Join(v.dir, old.filename))
		}
	}

	return v.writePlaylistLocked()
}

// Finalize marks the playlist complete (VOD #EXT-X-ENDLIST) and
// rewrites it.
func (v *VariantWriter) Finalize() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.finalized = true
	return v.writePlaylistLocked()
}

func (v *VariantWriter) writePlaylistLocked() error {
	if v.window.Len() == 0 {
		return nil
	}

	var b []byte
	b = append(b, "#EXTM3U\n"...)
	b = append(b, "#EXT-X-VERSION:7\n"...)
	b = append(b, fmt.Sprintf("#EXT-X-TARGETDURATION:%d\n", int(v.targetDuration))...)
	if !v.isLive {
		b = append(b, "#EXT-X-PLAYLIST-TYPE:VOD\n"...)
	}
	first := v.window.Front().Value.(segmentEntry)
	b = append(b, fmt.Sprintf("#EXT-X-MEDIA-SEQUENCE:%d\n", first.number)...)
	b = append(b, fmt.Sprintf("#EXT-X-MAP:URI=%q\n", "init.mp4")...)

	for e := v.window.Front(); e != nil; e = e.Next() {
		seg := e.Value.(segmentEntry)
		if seg.discontinuity {
			b = append(b, "#EXT-X-DISCONTINUITY\n"...)
		}
		b = append(b, fmt.Sprintf("#EXTINF:%.3f,\n", seg.duration)...)
		b = append(b, seg.filename...)
		b = append(b, '\n')
	}

	if v.finalized && !v.isLive {
		b = append(b, "#EXT-X-ENDLIST\n"...)
	}

	return writeFileAtomic(v.PlaylistPath(), b)
}

// TargetDuration returns the current playlist target duration in seconds.
func (v *VariantWriter) TargetDuration() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return int(v.targetDuration)
}
