package capture

import (
	"fmt"
	"log/slog"

	"github.com/gordonklaus/portaudio"
)

// PortAudio opens mono 16-bit input streams on a PortAudio device.
type PortAudio struct {
	SampleRate      float64
	FramesPerBuffer int
	// Device selects an input device by name; empty uses the default.
	Device string
}

// InitPortAudio initialises the PortAudio library and logs the input devices
// found. The returned function terminates the library.
func InitPortAudio(logger *slog.Logger) (func(), error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("capture: initialize portaudio: %w", err)
	}

	devices, err := portaudio.Devices()
	if err != nil {
		logger.Warn("error listing audio devices", "err", err)
	}

	for i, dev := range devices {
		if dev.MaxInputChannels == 0 {
			continue
		}

		logger.Info("audio input device",
			"index", i,
			"name", dev.Name,
			"channels", dev.MaxInputChannels,
			"default_sample_rate", dev.DefaultSampleRate,
		)
	}

	return func() {
		if err := portaudio.Terminate(); err != nil {
			logger.Warn("error while freeing audio", "err", err)
		}
	}, nil
}

func (p *PortAudio) Open(cb func(in []int16)) (Stream, error) {
	if p.Device == "" {
		stream, err := portaudio.OpenDefaultStream(1, 0, p.SampleRate, p.FramesPerBuffer, cb)
		if err != nil {
			return nil, err
		}
		return stream, nil
	}

	dev, err := p.findDevice()
	if err != nil {
		return nil, err
	}

	params := portaudio.HighLatencyParameters(dev, nil)
	params.Input.Channels = 1
	params.SampleRate = p.SampleRate
	params.FramesPerBuffer = p.FramesPerBuffer

	stream, err := portaudio.OpenStream(params, cb)
	if err != nil {
		return nil, err
	}
	return stream, nil
}

func (p *PortAudio) findDevice() (*portaudio.DeviceInfo, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}

	for _, dev := range devices {
		if dev.Name == p.Device && dev.MaxInputChannels > 0 {
			return dev, nil
		}
	}

	return nil, fmt.Errorf("no input device named %q", p.Device)
}
