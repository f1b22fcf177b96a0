package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/stagecue/stagecue/audiocapture"
	"github.com/stagecue/stagecue/config"
	"github.com/stagecue/stagecue/cue"
	"github.com/stagecue/stagecue/match"
	"github.com/stagecue/stagecue/playback"
	"github.com/stagecue/stagecue/stt"
)

// ErrRunning is returned when Start is called on a running service.
var ErrRunning = errors.New("pipeline already running")

// Status is a point-in-time snapshot of the pipeline, served verbatim by the
// remote API.
type Status struct {
	CurrentCueIndex int       `json:"current_cue_index"`
	LastMatch       MatchInfo `json:"last_match"`
	IsListening     bool      `json:"is_listening"`
	IsPlaying       bool      `json:"is_playing"`
	UptimeSeconds   int64     `json:"uptime_s"`
	TotalCues       int       `json:"total_cues"`
	RemoteMode      bool      `json:"remote_mode"`
}

// Service runs the full pipeline: frames from the capture device (or remote
// ingest) are segmented into utterances, transcribed, matched against the
// catalog, and arbitrated into playback.
type Service struct {
	cfg      *config.Config
	catalog  *cue.Catalog
	capturer audiocapture.Capturer
	provider stt.Provider
	player   playback.Player

	state   *State
	gate    *Gate
	listen  *ListenControl
	matcher *Matcher
	arbiter *Arbiter

	frames      chan []float32
	utterances  chan []float32
	transcripts chan Transcript
	requests    chan Request

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	logger *slog.Logger
}

// New wires a service from its stages. The capturer may be audiocapture.Nop
// when no input device is available; frames then arrive via PushFrames only.
func New(cfg *config.Config, catalog *cue.Catalog, capturer audiocapture.Capturer, provider stt.Provider, player playback.Player) *Service {
	state := NewState()
	gate := NewGate()
	listen := NewListenControl(gate, capturer)
	s := &Service{
		cfg:      cfg,
		catalog:  catalog,
		capturer: capturer,
		provider: provider,
		player:   player,
		state:    state,
		gate:     gate,
		listen:   listen,
		matcher: NewMatcher(catalog, match.PartialRatioScorer{}, cfg.MatchingPolicy,
			cfg.MatchThreshold, cfg.MatchCooldown.Std(), state),
		// frames buffers roughly four seconds of audio at the default
		// frame size before the handler starts dropping.
		frames: make(chan []float32, 64),
		// At most one utterance waits for the transcriber; the
		// segmenter parks until the slot frees up.
		utterances:  make(chan []float32, 1),
		transcripts: make(chan Transcript, 16),
		requests:    make(chan Request, 16),
		logger:      slog.With("component", "pipeline"),
	}
	s.arbiter = NewArbiter(catalog, player, state, listen, cfg.AudioDir)
	return s
}

// Start launches every stage and begins capturing.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(3)
	go s.runSegmenter(ctx)
	go s.runTranscriber(ctx)
	go s.runMatcher(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.arbiter.Run(ctx, s.requests)
	}()

	if err := s.capturer.Start(s.pushFrame); err != nil {
		cancel()
		s.wg.Wait()
		return fmt.Errorf("start capture: %w", err)
	}

	s.running = true
	s.logger.Info("pipeline started",
		"cues", s.catalog.Len(),
		"provider", s.provider.Name(),
		"policy", s.cfg.MatchingPolicy)
	return nil
}

// Stop cancels all stages and stops the capture device.
func (s *Service) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	s.cancel()
	err := s.capturer.Stop()
	s.wg.Wait()
	s.running = false
	s.logger.Info("pipeline stopped")
	return err
}

// pushFrame is the capture callback. Frames are dropped rather than blocking
// the audio thread when the pipeline falls behind.
func (s *Service) pushFrame(frame []float32) {
	select {
	case s.frames <- frame:
	default:
		s.logger.Debug("frame queue full, dropping frame")
	}
}

// PushFrames feeds externally captured samples into the segmenter, chunked to
// the configured frame size. A short trailing chunk is zero-padded.
func (s *Service) PushFrames(samples []float32) {
	size := s.cfg.FrameSize
	for start := 0; start < len(samples); start += size {
		end := start + size
		frame := make([]float32, size)
		if end > len(samples) {
			end = len(samples)
		}
		copy(frame, samples[start:end])
		s.pushFrame(frame)
	}
}

// Next advances playback to the cue after the current one.
func (s *Service) Next() { s.enqueue(Request{Action: ActionNext, Source: SourceManual}) }

// Previous steps playback back to the cue before the current one.
func (s *Service) Previous() { s.enqueue(Request{Action: ActionPrevious, Source: SourceManual}) }

// Repeat replays the last played cue.
func (s *Service) Repeat() { s.enqueue(Request{Action: ActionRepeat, Source: SourceManual}) }

// PlayCueID plays a specific cue by id. Unknown ids are rejected before the
// request is queued so callers can report them.
func (s *Service) PlayCueID(id int) error {
	if s.catalog.IndexOf(id) < 0 {
		return fmt.Errorf("unknown cue id %d", id)
	}
	s.enqueue(Request{Action: ActionPlayID, Source: SourceManual, CueID: id})
	return nil
}

func (s *Service) enqueue(req Request) {
	select {
	case s.requests <- req:
	default:
		s.logger.Warn("request queue full, dropping request", "action", int(req.Action))
	}
}

// PauseListening suspends matching and capture until ResumeListening.
func (s *Service) PauseListening() {
	if !s.state.Listening() {
		return
	}
	s.state.SetListening(false)
	s.listen.Hold()
	s.logger.Info("listening paused")
}

// ResumeListening lifts an operator pause.
func (s *Service) ResumeListening() {
	if s.state.Listening() {
		return
	}
	s.state.SetListening(true)
	s.listen.Release()
	s.logger.Info("listening resumed")
}

// SetRemoteMode switches the frame source between the local microphone and
// remote ingest. In remote mode the local device is paused so the two sources
// do not interleave.
func (s *Service) SetRemoteMode(on bool) {
	if s.state.RemoteMode() == on {
		return
	}
	s.state.SetRemoteMode(on)
	s.listen.SetRemote(on)
	s.logger.Info("remote mode changed", "enabled", on)
}

// Status returns a snapshot for operators and the remote API.
func (s *Service) Status() Status {
	return Status{
		CurrentCueIndex: s.state.CurrentIndex(),
		LastMatch:       s.state.LastMatch(),
		IsListening:     s.state.Listening() && !s.state.RemoteMode(),
		IsPlaying:       s.state.IsPlaying(),
		UptimeSeconds:   int64(s.state.Uptime().Seconds()),
		TotalCues:       s.catalog.Len(),
		RemoteMode:      s.state.RemoteMode(),
	}
}

// runSegmenter accumulates frames into utterances. A one second poll closes
// stale utterances even when the capture callback has gone quiet.
func (s *Service) runSegmenter(ctx context.Context) {
	defer s.wg.Done()
	seg := NewSegmenter(s.cfg.SilenceThreshold, s.cfg.SilenceDuration.Std())
	for {
		if err := s.gate.Wait(ctx); err != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case frame := <-s.frames:
			if utterance, ok := seg.Push(frame); ok {
				s.emitUtterance(ctx, utterance)
			}
		case <-time.After(time.Second):
			if utterance, ok := seg.FlushStale(); ok {
				s.emitUtterance(ctx, utterance)
			}
		}
	}
}

func (s *Service) emitUtterance(ctx context.Context, utterance []float32) {
	select {
	case s.utterances <- utterance:
	case <-ctx.Done():
	}
}

// runTranscriber hands utterances to the speech engine one at a time. Engine
// errors are logged and the utterance is discarded; the pipeline keeps
// running.
func (s *Service) runTranscriber(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case utterance := <-s.utterances:
			result, err := s.provider.Transcribe(utterance, s.cfg.Language)
			if err != nil {
				s.logger.Error("transcription failed",
					"provider", s.provider.Name(),
					"samples", len(utterance),
					"error", err)
				continue
			}
			text := transcriptText(result)
			if text == "" {
				continue
			}
			s.logger.Debug("transcript", "text", text)
			select {
			case s.transcripts <- Transcript{Text: text, ProducedAt: time.Now()}:
			case <-ctx.Done():
				return
			}
		}
	}
}

// runMatcher evaluates transcripts in arrival order.
func (s *Service) runMatcher(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-s.transcripts:
			if req, ok := s.matcher.Handle(t); ok {
				select {
				case s.requests <- req:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}
