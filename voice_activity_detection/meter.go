package voice_activity_detection

import (
	"encoding/binary"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

// Meter turns one chunk of 16-bit little-endian mono PCM into an energy level.
type Meter interface {
	Level(pcm []byte) float64
	Reset()
}

const (
	MeterRMS  = "rms"
	MeterFlux = "flux"
)

// NewMeter returns the meter registered under name, or nil.
func NewMeter(name string) Meter {
	switch name {
	case MeterRMS, "":
		return &rmsImpl{}
	case MeterFlux:
		return &fluxImpl{}
	}
	return nil
}

// RMS is the root-mean-square amplitude of the chunk, in sample units.
func RMS(pcm []byte) float64 {
	n := len(pcm) / 2
	if n == 0 {
		return 0
	}

	var sum float64
	for i := 0; i < n; i++ {
		s := float64(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
		sum += s * s
	}

	return math.Sqrt(sum / float64(n))
}

type rmsImpl struct{}

func (rmsImpl) Level(pcm []byte) float64 { return RMS(pcm) }

func (rmsImpl) Reset() {}

// fluxImpl measures positive spectral flux between consecutive chunks. The
// first chunk after a reset only primes the previous spectrum and reads 0.
type fluxImpl struct {
	prev []float64
}

func (f *fluxImpl) Level(pcm []byte) float64 {
	n := len(pcm) / 2
	if n == 0 {
		return 0
	}

	samples := make([]float64, n)
	for i := range samples {
		samples[i] = float64(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
	}

	window.Apply(samples, window.Hann)

	spectrum := fft.FFTReal(samples)
	magnitudes := make([]float64, n/2+1)
	for i := range magnitudes {
		magnitudes[i] = cmplx.Abs(spectrum[i])
	}

	prev := f.prev
	f.prev = magnitudes

	if len(prev) != len(magnitudes) {
		return 0
	}

	var flux float64
	for i, m := range magnitudes {
		if d := m - prev[i]; d > 0 {
			flux += d
		}
	}

	return flux / float64(n)
}

func (f *fluxImpl) Reset() {
	f.prev = nil
}
