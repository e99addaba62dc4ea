// Package audio loads recorded call audio into analyzable waveforms.
//
// Recordings arrive as WAV or MP3 blobs, often with missing or wrong file
// extensions, so the container format is sniffed from magic bytes before
// decoding. Decoded audio is downmixed to mono and resampled to the analysis
// rate so every downstream consumer sees one uniform representation.
package audio

import "time"

// Waveform is a decoded recording: mono samples in [-1, 1] at SampleRate Hz.
// Immutable once loaded; one analysis run owns one waveform.
type Waveform struct {
	Samples    []float64
	SampleRate int
}

// Duration returns the waveform length in seconds.
func (w *Waveform) Duration() float64 {
	if w.SampleRate <= 0 {
		return 0
	}
	return float64(len(w.Samples)) / float64(w.SampleRate)
}

// Len returns the sample count.
func (w *Waveform) Len() int { return len(w.Samples) }

// DurationTime returns the waveform length as a time.Duration.
func (w *Waveform) DurationTime() time.Duration {
	return time.Duration(w.Duration() * float64(time.Second))
}
