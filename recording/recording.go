package recording

import (
	"encoding/binary"
	"fmt"

	"github.com/spf13/afero"
	"github.com/zenwerk/go-wave"
)

type recorderImpl struct {
	fileSys    afero.Fs
	path       string
	sampleRate int
	samples    []int16
}

type Config struct {
	FileSys    afero.Fs
	Path       string
	SampleRate int
}

func New(cfg *Config) (Interface, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if cfg.FileSys == nil {
		return nil, fmt.Errorf("fileSys is nil")
	}

	if cfg.Path == "" {
		return nil, fmt.Errorf("path is empty")
	}

	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("sampleRate must be positive")
	}

	return &recorderImpl{
		fileSys:    cfg.FileSys,
		path:       cfg.Path,
		sampleRate: cfg.SampleRate,
	}, nil
}

func (r *recorderImpl) Begin() {
	r.samples = r.samples[:0]
}

func (r *recorderImpl) Append(pcm []byte) {
	for i := 0; i+1 < len(pcm); i += 2 {
		r.samples = append(r.samples, int16(binary.LittleEndian.Uint16(pcm[i:])))
	}
}

func (r *recorderImpl) Finish() error {
	waveFile, err := r.fileSys.Create(r.path)
	if err != nil {
		return fmt.Errorf("recording: create %s: %w", r.path, err)
	}

	param := wave.WriterParam{
		Out:           waveFile,
		Channel:       1,
		SampleRate:    r.sampleRate,
		BitsPerSample: 16,
	}

	waveWriter, err := wave.NewWriter(param)
	if err != nil {
		waveFile.Close()
		return fmt.Errorf("recording: %w", err)
	}

	if _, err = waveWriter.WriteSample16(r.samples); err != nil {
		waveWriter.Close()
		return fmt.Errorf("recording: write samples: %w", err)
	}

	if err = waveWriter.Close(); err != nil {
		return fmt.Errorf("recording: close %s: %w", r.path, err)
	}

	return nil
}
