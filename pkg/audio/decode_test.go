package audio

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// writeTestWAV encodes a sine tone as a PCM WAV file and returns its path.
func writeTestWAV(t *testing.T, sampleRate, channels int, seconds float64) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "tone.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create wav: %v", err)
	}
	defer f.Close()

	frames := int(float64(sampleRate) * seconds)
	data := make([]int, frames*channels)
	for i := range frames {
		v := int(0.5 * 32767 * math.Sin(2*math.Pi*440*float64(i)/float64(sampleRate)))
		for c := range channels {
			data[i*channels+c] = v
		}
	}

	enc := wav.NewEncoder(f, sampleRate, 16, channels, 1)
	buf := &gaudio.IntBuffer{
		Format:         &gaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode wav: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder: %v", err)
	}
	return path
}

func TestDecodeFileWAV(t *testing.T) {
	t.Parallel()

	t.Run("stereo 44.1kHz resampled to mono 16kHz", func(t *testing.T) {
		t.Parallel()
		path := writeTestWAV(t, 44100, 2, 0.5)

		w, err := DecodeFile(path, 16000)
		if err != nil {
			t.Fatalf("DecodeFile: %v", err)
		}
		if w.SampleRate != 16000 {
			t.Fatalf("sample rate = %d, want 16000", w.SampleRate)
		}
		if d := w.Duration(); math.Abs(d-0.5) > 0.01 {
			t.Fatalf("duration = %v, want ~0.5s", d)
		}
		for i, s := range w.Samples {
			if s < -1 || s > 1 {
				t.Fatalf("sample %d = %v out of [-1, 1]", i, s)
			}
		}
	})

	t.Run("native rate kept when target is zero", func(t *testing.T) {
		t.Parallel()
		path := writeTestWAV(t, 8000, 1, 0.25)

		w, err := DecodeFile(path, 0)
		if err != nil {
			t.Fatalf("DecodeFile: %v", err)
		}
		if w.SampleRate != 8000 {
			t.Fatalf("sample rate = %d, want native 8000", w.SampleRate)
		}
	})
}

func TestDecodeUnsupportedFormat(t *testing.T) {
	t.Parallel()

	data := append([]byte("OggS\x00\x02"), make([]byte, 32)...)
	if _, err := Decode(data, 16000); err == nil {
		t.Fatal("expected error for ogg input")
	}
}
