// Package session drives a single DASH-to-HLS stream end to end: polling
// the manifest, selecting video/audio representations, downloading and
// decrypting segments, and feeding them to an HLS writer, until stopped
// or until a VOD stream is exhausted.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"dash2hls/internal/dash"
	"dash2hls/internal/decrypt"
	"dash2hls/internal/downloader"
	"dash2hls/internal/hls"
	"dash2hls/internal/platform/metrics"
)

// maxConsecutiveManifestFailures bounds how many refresh cycles in a row
// may fail to download or parse the manifest before the session
// transitions to error.
const maxConsecutiveManifestFailures = 10

// Error reports a session-level failure (not tied to one segment).
type Error struct {
	Msg string
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("session: %s: %v", e.Msg, e.Err)
	}
	return fmt.Sprintf("session: %s", e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Session owns the lifecycle of one DASH-to-HLS conversion.
type Session struct {
	ID      string
	config  Config
	log     *slog.Logger
	metrics *metrics.Metrics

	dl  *downloader.Downloader
	dec decrypt.Decryptor

	mu         sync.RWMutex
	status     Status
	errMsg     string
	isLive     bool
	videoTrack *dash.Track
	audioTrack *dash.Track

	master *hls.MasterWriter
	video  *variantRuntime
	audio  *variantRuntime

	cancel context.CancelFunc
	done   chan struct{}
}

// New builds a Session. The returned Session has not started running
// until Run is called. m may be nil to disable metric recording.
func New(id string, cfg Config, log *slog.Logger, m *metrics.Metrics) (*Session, error) {
	cfg = cfg.Defaults()
	if cfg.OutputDir == "" {
		return nil, &Error{Msg: "output_dir is required"}
	}

	dec, err := decrypt.Build(cfg.Key, cfg.KID, cfg.KeyMap, cfg.Mp4decryptPath, cfg.SubprocessTimeout)
	if err != nil {
		return nil, &Error{Msg: "building decryptor", Err: err}
	}

	dlCfg := downloader.DefaultConfig()
	if cfg.HTTPClientTimeout > 0 {
		dlCfg.RequestTimeout = cfg.HTTPClientTimeout
	}

	return &Session{
		ID:      id,
		config:  cfg,
		log:     log.With("stream_id", id),
		metrics: m,
		dl:      downloader.New(dlCfg, cfg.Headers),
		dec:     dec,
		status:  StatusStarting,
		master:  hls.NewMasterWriter(cfg.OutputDir),
		done:    make(chan struct{}),
	}, nil
}

// Run drives the session's poll loop until ctx is canceled or the
// stream errors out / completes (VOD exhausted). It is meant to be
// called once, from its own goroutine, by the Manager.
func (s *Session) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	if s.status == StatusStopping {
		cancel()
	}
	s.mu.Unlock()
	defer close(s.done)
	defer cancel()

	manifestFailures := 0

	for {
		if ctx.Err() != nil {
			s.transitionStopped()
			return
		}

		manifest, err := s.refreshManifest(ctx)
		if err != nil {
			manifestFailures++
			s.log.Warn("manifest refresh failed", "attempt", manifestFailures, "error", err)
			if s.metrics != nil {
				s.metrics.IncManifestRefreshFailures()
			}
			if manifestFailures >= maxConsecutiveManifestFailures {
				s.transitionError(fmt.Sprintf("manifest refresh failed %d times: %v", manifestFailures, err))
				return
			}
			if s.sleep(ctx, s.config.PollInterval) {
				s.transitionStopped()
				return
			}
			continue
		}
		manifestFailures = 0

		s.mu.Lock()
		s.isLive = manifest.IsLive
		s.mu.Unlock()

		if err := s.ensureWriters(manifest); err != nil {
			s.transitionError(err.Error())
			return
		}

		if err := s.processCycle(ctx); err != nil {
			s.transitionError(err.Error())
			return
		}

		s.mu.Lock()
		if s.status != StatusError {
			s.status = StatusRunning
		}
		s.mu.Unlock()

		if !manifest.IsLive && s.vodExhausted() {
			s.finalizeVOD()
			s.transitionStopped()
			return
		}

		poll := s.config.PollInterval
		if manifest.MinimumUpdatePeriod > poll {
			poll = manifest.MinimumUpdatePeriod
		}
		if s.sleep(ctx, poll) {
			s.transitionStopped()
			return
		}
	}
}

func (s *Session) refreshManifest(ctx context.Context) (*dash.Manifest, error) {
	body, err := s.dl.Fetch(ctx, s.config.MPDURL)
	if err != nil {
		return nil, fmt.Errorf("download manifest: %w", err)
	}
	manifest, err := dash.Parse(body, s.config.MPDURL)
	if err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return manifest, s.selectTracks(manifest)
}

func (s *Session) selectTracks(manifest *dash.Manifest) error {
	video, audio, err := dash.SelectRepresentations(manifest, s.config.RepresentationID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.videoTrack = video
	s.audioTrack = audio
	s.mu.Unlock()
	if s.video != nil && video != nil {
		s.video.setTrack(*video)
	}
	if s.audio != nil && audio != nil {
		s.audio.setTrack(*audio)
	}
	return nil
}

func (s *Session) ensureWriters(manifest *dash.Manifest) error {
	s.mu.RLock()
	video, audio := s.videoTrack, s.audioTrack
	isLive := s.isLive
	s.mu.RUnlock()

	if video != nil && s.video == nil {
		w, err := hls.NewVariantWriter(s.config.OutputDir, isLive, s.config.WindowSize)
		if err != nil {
			return fmt.Errorf("create video writer: %w", err)
		}
		s.video = newVariantRuntime(dash.KindVideo, w, s.config.HistorySize, s.log, s.metrics)
		s.video.setTrack(*video)
		s.master.SetVideo(w, hls.VariantInfo{Bandwidth: video.Bandwidth, Codecs: video.Codecs, Width: video.Width, Height: video.Height})
	} else if video != nil {
		s.master.SetVideo(s.video.writer, hls.VariantInfo{Bandwidth: video.Bandwidth, Codecs: video.Codecs, Width: video.Width, Height: video.Height})
	}

	if audio != nil && s.audio == nil {
		w, err := hls.NewVariantWriter(s.config.OutputDir+"/audio", isLive, s.config.WindowSize)
		if err != nil {
			return fmt.Errorf("create audio writer: %w", err)
		}
		s.audio = newVariantRuntime(dash.KindAudio, w, s.config.HistorySize, s.log, s.metrics)
		s.audio.setTrack(*audio)
		s.master.SetAudio(w, hls.VariantInfo{Bandwidth: audio.Bandwidth, Codecs: audio.Codecs})
	} else if audio != nil {
		s.master.SetAudio(s.audio.writer, hls.VariantInfo{Bandwidth: audio.Bandwidth, Codecs: audio.Codecs})
	}

	return nil
}

// processCycle runs the video and audio sub-tasks in parallel and joins
// them before returning, per the gateway's per-cycle concurrency model.
// Both sub-tasks always run to completion even if one fails, so a
// transient audio failure never starves video progress (and vice
// versa); their errors are combined rather than the first one winning.
func (s *Session) processCycle(ctx context.Context) error {
	var g errgroup.Group
	var mu sync.Mutex
	var combined *multierror.Error

	if s.video != nil {
		g.Go(func() error {
			if err := s.video.runCycle(ctx, s.dl, s.dec); err != nil && !errors.Is(err, context.Canceled) {
				mu.Lock()
				combined = multierror.Append(combined, fmt.Errorf("video: %w", err))
				mu.Unlock()
			}
			return nil
		})
	}
	if s.audio != nil {
		g.Go(func() error {
			if err := s.audio.runCycle(ctx, s.dl, s.dec); err != nil && !errors.Is(err, context.Canceled) {
				mu.Lock()
				combined = multierror.Append(combined, fmt.Errorf("audio: %w", err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if combined.ErrorOrNil() != nil {
		return combined
	}

	return s.master.Write()
}

func (s *Session) vodExhausted() bool {
	exhausted := func(v *variantRuntime) bool {
		if v == nil || len(v.track.Segments) == 0 {
			return true
		}
		last := v.track.Segments[len(v.track.Segments)-1].Number
		return v.haveLast && v.lastNumber >= last
	}
	return exhausted(s.video) && exhausted(s.audio)
}

func (s *Session) finalizeVOD() {
	if s.video != nil {
		_ = s.video.writer.Finalize()
	}
	if s.audio != nil {
		_ = s.audio.writer.Finalize()
	}
	_ = s.master.Write()
}

// sleep waits for d or cancellation, returning true if ctx was canceled
// (so the caller can distinguish "time to stop" from "time to poll
// again").
func (s *Session) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() != nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return true
	case <-timer.C:
		return false
	}
}

// Stop requests cancellation and blocks until the run loop has exited.
func (s *Session) Stop() {
	s.mu.Lock()
	if s.status != StatusStopped && s.status != StatusError {
		s.status = StatusStopping
	}
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	<-s.done
}

func (s *Session) transitionStopped() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusError {
		s.status = StatusStopped
	}
}

func (s *Session) transitionError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = StatusError
	s.errMsg = msg
	s.log.Error("session entered error state", "error", msg)
}

// OutputDir returns the directory this session writes its HLS output to.
func (s *Session) OutputDir() string { return s.config.OutputDir }

// Info returns a point-in-time snapshot of the session's visible state.
func (s *Session) Info() Info {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info := Info{
		ID:     s.ID,
		MPDURL: s.config.MPDURL,
		Status: s.status,
		IsLive: s.isLive,
		Label:  s.config.Label,
		Error:  s.errMsg,
	}
	if s.videoTrack != nil {
		info.VideoRepID = s.videoTrack.ID
		info.VideoBandwidth = s.videoTrack.Bandwidth
		info.VideoCodecs = s.videoTrack.Codecs
		info.VideoWidth = s.videoTrack.Width
		info.VideoHeight = s.videoTrack.Height
	}
	if s.audioTrack != nil {
		info.AudioRepID = s.audioTrack.ID
		info.AudioBandwidth = s.audioTrack.Bandwidth
		info.AudioCodecs = s.audioTrack.Codecs
	}
	if s.video != nil {
		info.LastVideoSequence = s.video.lastNumber
	}
	if s.audio != nil {
		info.LastAudioSequence = s.audio.lastNumber
	}
	return info
}
