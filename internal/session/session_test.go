package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// buildVODOrigin serves a two-segment static MPD and its segments so a
// session can run to completion deterministically.
func buildVODOrigin(t *testing.T) *httptest.Server {
	t.Helper()
	const mpd = `<?xml version="1.0"?>
<MPD type="static" mediaPresentationDuration="PT4S">
  <Period duration="PT4S">
    <AdaptationSet contentType="video" mimeType="video/mp4">
      <SegmentTemplate initialization="init-$RepresentationID$.mp4" media="chunk-$RepresentationID$-$Number$.m4s" startNumber="1" duration="20" timescale="10"/>
      <Representation id="v1" bandwidth="500000" codecs="avc1" width="640" height="360"/>
    </AdaptationSet>
  </Period>
</MPD>`

	mux := http.NewServeMux()
	mux.HandleFunc("/stream.mpd", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(mpd))
	})
	mux.HandleFunc("/init-v1.mp4", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("initsegmentbytes"))
	})
	for i := 1; i <= 2; i++ {
		path := fmt.Sprintf("/chunk-v1-%d.m4s", i)
		i := i
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(fmt.Sprintf("segment-%d-data", i)))
		})
	}
	return httptest.NewServer(mux)
}

func TestSession_RunsVODToCompletion(t *testing.T) {
	srv := buildVODOrigin(t)
	defer srv.Close()

	dir := t.TempDir()
	cfg := Config{
		MPDURL:       srv.URL + "/stream.mpd",
		PollInterval: 10 * time.Millisecond,
		OutputDir:    dir,
	}
	s, err := New("test-stream", cfg, discardLogger(), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(4 * time.Second):
		t.Fatal("session did not complete in time")
	}

	info := s.Info()
	assert.Equal(t, StatusStopped, info.Status)
	assert.Equal(t, "v1", info.VideoRepID)

	assert.FileExists(t, filepath.Join(dir, "master.m3u8"))
	assert.FileExists(t, filepath.Join(dir, "index.m3u8"))
	assert.FileExists(t, filepath.Join(dir, "segment_1.m4s"))
	assert.FileExists(t, filepath.Join(dir, "segment_2.m4s"))

	playlist, err := os.ReadFile(filepath.Join(dir, "index.m3u8"))
	require.NoError(t, err)
	assert.Contains(t, string(playlist), "#EXT-X-ENDLIST")
}

func TestSession_StopCancelsRunLoop(t *testing.T) {
	var hits int32
	mux := http.NewServeMux()
	mux.HandleFunc("/stream.mpd", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	dir := t.TempDir()
	cfg := Config{
		MPDURL:       srv.URL + "/stream.mpd",
		PollInterval: 20 * time.Millisecond,
		OutputDir:    dir,
	}
	s, err := New("test-stream-2", cfg, discardLogger(), nil)
	require.NoError(t, err)

	ctx := context.Background()
	go s.Run(ctx)

	time.Sleep(50 * time.Millisecond)
	s.Stop()

	info := s.Info()
	assert.Equal(t, StatusStopped, info.Status)
}

func TestSession_RequiresOutputDir(t *testing.T) {
	_, err := New("x", Config{MPDURL: "https://example.com/x.mpd"}, discardLogger(), nil)
	require.Error(t, err)
}

func TestConfig_Defaults(t *testing.T) {
	cfg := Config{}.Defaults()
	assert.Equal(t, 4*time.Second, cfg.PollInterval)
	assert.Equal(t, 6, cfg.WindowSize)
	assert.Equal(t, 128, cfg.HistorySize)
}

func TestProcessedSet_EvictsOldest(t *testing.T) {
	p := newProcessedSet(2)
	p.Mark(1)
	p.Mark(2)
	p.Mark(3)
	assert.False(t, p.Has(1))
	assert.True(t, p.Has(2))
	assert.True(t, p.Has(3))
}
