package recording

import (
	"encoding/binary"
	"testing"

	"github.com/go-audio/wav"
	"github.com/spf13/afero"
)

func pcm(samples ...int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

func TestNew(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Errorf("expected error for nil config")
	}

	if _, err := New(&Config{FileSys: afero.NewMemMapFs(), SampleRate: 16000}); err == nil {
		t.Errorf("expected error for empty path")
	}
}

func TestRecorder(t *testing.T) {
	t.Run("writes the last session as a mono 16-bit wav", func(t *testing.T) {
		fs := afero.NewMemMapFs()

		r, err := New(&Config{FileSys: fs, Path: "last_recording.wav", SampleRate: 48000})
		if err != nil {
			t.Fatalf("error creating recorder: %v", err)
		}

		r.Begin()
		r.Append(pcm(9, 9, 9))
		if err := r.Finish(); err != nil {
			t.Fatalf("finish: %v", err)
		}

		r.Begin()
		r.Append(pcm(1, -2))
		r.Append(pcm(3))
		if err := r.Finish(); err != nil {
			t.Fatalf("finish: %v", err)
		}

		f, err := fs.Open("last_recording.wav")
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		defer f.Close()

		decoder := wav.NewDecoder(f)
		buf, err := decoder.FullPCMBuffer()
		if err != nil {
			t.Fatalf("decode: %v", err)
		}

		if buf.Format.SampleRate != 48000 || buf.Format.NumChannels != 1 {
			t.Errorf("expected 48000 Hz mono, got %d Hz %d channels", buf.Format.SampleRate, buf.Format.NumChannels)
		}

		expected := []int{1, -2, 3}
		if len(buf.Data) != len(expected) {
			t.Fatalf("expected %v, got %v", expected, buf.Data)
		}

		for i := range expected {
			if buf.Data[i] != expected[i] {
				t.Errorf("expected %d, got %d", expected[i], buf.Data[i])
			}
		}
	})
}
