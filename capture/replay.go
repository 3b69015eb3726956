package capture

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-audio/wav"
	"github.com/spf13/afero"
)

// Replay plays a WAV file through the capture callback at device cadence, in
// place of a microphone. Each opened stream starts at the beginning of the
// file and feeds silence once the file is exhausted.
type Replay struct {
	samples         []int16
	framesPerBuffer int
	interval        time.Duration
}

type ReplayConfig struct {
	FileSys         afero.Fs
	Path            string
	SampleRate      int
	FramesPerBuffer int
	// Interval between buffers; zero paces buffers at SampleRate.
	Interval time.Duration
	Logger   *slog.Logger
}

func NewReplay(cfg *ReplayConfig) (*Replay, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if cfg.FileSys == nil {
		return nil, fmt.Errorf("fileSys is nil")
	}

	if cfg.FramesPerBuffer <= 0 {
		return nil, fmt.Errorf("framesPerBuffer must be positive")
	}

	f, err := cfg.FileSys.Open(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("capture: open replay file: %w", err)
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("capture: %s is not a valid wav file", cfg.Path)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("capture: decode replay file: %w", err)
	}

	channels := buf.Format.NumChannels
	if channels <= 0 {
		channels = 1
	}

	if cfg.Logger != nil && cfg.SampleRate > 0 && buf.Format.SampleRate != cfg.SampleRate {
		cfg.Logger.Warn("replay file sample rate differs from capture rate",
			"file", buf.Format.SampleRate,
			"capture", cfg.SampleRate,
		)
	}

	// keep the first channel only
	samples := make([]int16, 0, len(buf.Data)/channels)
	for i := 0; i < len(buf.Data); i += channels {
		samples = append(samples, int16(buf.Data[i]))
	}

	interval := cfg.Interval
	if interval == 0 && cfg.SampleRate > 0 {
		interval = time.Duration(cfg.FramesPerBuffer) * time.Second / time.Duration(cfg.SampleRate)
	}

	return &Replay{
		samples:         samples,
		framesPerBuffer: cfg.FramesPerBuffer,
		interval:        interval,
	}, nil
}

func (r *Replay) Open(cb func(in []int16)) (Stream, error) {
	return &replayStream{replay: r, cb: cb}, nil
}

type replayStream struct {
	replay *Replay
	cb     func(in []int16)

	mu   sync.Mutex
	stop chan struct{}
	wg   sync.WaitGroup
}

func (s *replayStream) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stop != nil {
		return fmt.Errorf("replay stream already started")
	}

	s.stop = make(chan struct{})
	s.wg.Add(1)
	go s.run(s.stop)

	return nil
}

// Stop returns once no callback is running.
func (s *replayStream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stop == nil {
		return nil
	}

	close(s.stop)
	s.wg.Wait()
	s.stop = nil

	return nil
}

func (s *replayStream) Close() error {
	return s.Stop()
}

func (s *replayStream) run(stop chan struct{}) {
	defer s.wg.Done()

	var tick <-chan time.Time
	if s.replay.interval > 0 {
		ticker := time.NewTicker(s.replay.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	pos := 0
	for {
		if tick != nil {
			select {
			case <-stop:
				return
			case <-tick:
			}
		} else {
			select {
			case <-stop:
				return
			default:
			}
		}

		in := make([]int16, s.replay.framesPerBuffer)
		if pos < len(s.replay.samples) {
			pos += copy(in, s.replay.samples[pos:])
		}

		s.cb(in)
	}
}
