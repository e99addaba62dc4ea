package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/hajimehoshi/go-mp3"

	"github.com/go-audio/wav"
)

// ErrUnsupportedFormat is returned when a recording's container format is
// recognised but no decoder is available for it.
var ErrUnsupportedFormat = errors.New("audio: unsupported format")

// Decode sniffs the container format of data and decodes it into a mono
// waveform at targetRate Hz. targetRate <= 0 keeps the native rate.
func Decode(data []byte, targetRate int) (*Waveform, error) {
	switch f := Sniff(data); f {
	case FormatWAV:
		return decodeWAV(data, targetRate)
	case FormatMP3:
		return decodeMP3(data, targetRate)
	default:
		return nil, fmt.Errorf("audio: decode %s: %w", f, ErrUnsupportedFormat)
	}
}

// DecodeFile reads and decodes the recording at path. See Decode.
func DecodeFile(path string, targetRate int) (*Waveform, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("audio: read %s: %w", path, err)
	}
	return Decode(data, targetRate)
}

func decodeWAV(data []byte, targetRate int) (*Waveform, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("audio: decode wav: %w", err)
	}
	if buf.Format == nil || buf.Format.NumChannels <= 0 || buf.Format.SampleRate <= 0 {
		return nil, fmt.Errorf("audio: decode wav: missing PCM format")
	}

	bitDepth := int(dec.BitDepth)
	if bitDepth <= 0 {
		bitDepth = 16
	}
	scale := float64(int64(1) << (bitDepth - 1))

	samples := make([]float64, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = float64(v) / scale
	}

	mono := DownmixMono(samples, buf.Format.NumChannels)
	rate := buf.Format.SampleRate
	if targetRate > 0 && targetRate != rate {
		mono = Resample(mono, rate, targetRate)
		rate = targetRate
	}
	return &Waveform{Samples: mono, SampleRate: rate}, nil
}

func decodeMP3(data []byte, targetRate int) (*Waveform, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("audio: decode mp3: %w", err)
	}
	pcm, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("audio: decode mp3: read samples: %w", err)
	}

	// go-mp3 always emits 16-bit little-endian stereo PCM.
	mono := DownmixMono(pcm16ToFloat(pcm), 2)
	rate := dec.SampleRate()
	if targetRate > 0 && targetRate != rate {
		mono = Resample(mono, rate, targetRate)
		rate = targetRate
	}
	return &Waveform{Samples: mono, SampleRate: rate}, nil
}
