package hls

import (
	"fmt"
	"path/filepath"
	"sync"
)

// VariantInfo describes the static attributes of a variant needed to
// render master-playlist entries. It is supplied once per representation
// change (a new manifest refresh can update bandwidth/codecs/resolution
// without recreating the VariantWriter).
type VariantInfo struct {
	Bandwidth  int
	Codecs     string
	Width      int
	Height     int
}

// MasterWriter composes a video VariantWriter and an optional audio
// VariantWriter into one multivariant master playlist.
type MasterWriter struct {
	dir string

	mu    sync.Mutex
	video *VariantWriter
	audio *VariantWriter
	info  map[string]VariantInfo // keyed by "video" / "audio"
}

// NewMasterWriter returns a MasterWriter rooted at dir. Variant
// directories are created by NewVariantWriter; SetVideo/SetAudio only
// attach the writers.
func NewMasterWriter(dir string) *MasterWriter {
	return &MasterWriter{dir: dir, info: make(map[string]VariantInfo)}
}

// MasterPlaylistPath is the on-disk path of the multivariant master playlist.
func (m *MasterWriter) MasterPlaylistPath() string {
	return filepath.Join(m.dir, "master.m3u8")
}

// SetVideo attaches the video VariantWriter (rooted directly at the
// stream's output directory, so its playlist is "index.m3u8" at the top
// level) and its current bandwidth/codecs/resolution.
func (m *MasterWriter) SetVideo(w *VariantWriter, info VariantInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.video = w
	m.info["video"] = info
}

// SetAudio attaches the audio VariantWriter (rooted at an "audio"
// subdirectory) and its current bandwidth/codecs.
func (m *MasterWriter) SetAudio(w *VariantWriter, info VariantInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audio = w
	m.info["audio"] = info
}

// Write renders and atomically persists the master playlist. It is a
// no-op if no variant writer has been attached yet.
func (m *MasterWriter) Write() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.video == nil && m.audio == nil {
		return nil
	}

	var b []byte
	b = append(b, "#EXTM3U\n"...)
	b = append(b, "#EXT-X-VERSION:7\n"...)

	if m.audio != nil {
		audioURI, err := filepath.Rel(m.dir, m.audio.PlaylistPath())
		if err != nil {
			return err
		}
		b = append(b, fmt.Sprintf(
			"#EXT-X-MEDIA:TYPE=AUDIO,GROUP-ID=\"audio\",NAME=\"audio\",DEFAULT=YES,AUTOSELECT=YES,URI=%q\n",
			toSlash(audioURI),
		)...)
	}

	if m.video != nil {
		videoURI, err := filepath.Rel(m.dir, m.video.PlaylistPath())
		if err != nil {
			return err
		}
		info := m.info["video"]
		streamInf := fmt.Sprintf("#EXT-X-STREAM-INF:BANDWIDTH=%d", info.Bandwidth)
		if info.Codecs != "" {
			streamInf += fmt.Sprintf(",CODECS=%q", info.Codecs)
		}
		if info.Width > 0 && info.Height > 0 {
			streamInf += fmt.Sprintf(",RESOLUTION=%dx%d", info.Width, info.Height)
		}
		if m.audio != nil {
			streamInf += ",AUDIO=\"audio\""
		}
		b = append(b, streamInf+"\n"...)
		b = append(b, toSlash(videoURI)+"\n"...)
	} else if m.audio != nil {
		info := m.info["audio"]
		streamInf := fmt.Sprintf("#EXT-X-STREAM-INF:BANDWIDTH=%d", info.Bandwidth)
		if info.Codecs != "" {
			streamInf += fmt.Sprintf(",CODECS=%q", info.Codecs)
		}
		audioURI, err := filepath.Rel(m.dir, m.audio.PlaylistPath())
		if err != nil {
			return err
		}
		b = append(b, streamInf+"\n"...)
		b = append(b, toSlash(audioURI)+"\n"...)
	}

	return writeFileAtomic(m.MasterPlaylistPath(), b)
}

func toSlash(p string) string {
	out := make([]byte, len(p))
	for i := 0; i < len(p); i++ {
		if p[i] == '\\' {
			out[i] = '/'
		} else {
			out[i] = p[i]
		}
	}
	return string(out)
}
