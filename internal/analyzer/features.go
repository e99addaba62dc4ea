package analyzer

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
)

// features holds the framewise signal features the detectors vote on. Frames
// are centered on i*hop and clamped at the clip edges; times[i] is the frame
// center in seconds.
type features struct {
	times   []float64
	rms     []float64
	zcr     []float64
	rolloff []float64

	sampleRate int
	hopLength  int
}

// nearestFrame returns the index of the frame whose center time is closest
// to t. The frame grid is uniform, so this is pure arithmetic.
func (f *features) nearestFrame(t float64) int {
	if len(f.times) == 0 {
		return 0
	}
	idx := int(math.Round(t * float64(f.sampleRate) / float64(f.hopLength)))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(f.times) {
		idx = len(f.times) - 1
	}
	return idx
}

// computeFeatures extracts RMS energy, zero-crossing rate and spectral
// rolloff per frame over the whole clip.
func computeFeatures(samples []float64, cfg Config) *features {
	if len(samples) == 0 || cfg.SampleRate <= 0 {
		return &features{sampleRate: cfg.SampleRate, hopLength: cfg.HopLength}
	}

	hop := cfg.HopLength
	frame := cfg.FrameLength
	numFrames := len(samples)/hop + 1

	f := &features{
		times:      make([]float64, numFrames),
		rms:        make([]float64, numFrames),
		zcr:        make([]float64, numFrames),
		rolloff:    make([]float64, numFrames),
		sampleRate: cfg.SampleRate,
		hopLength:  hop,
	}

	fft := fourier.NewFFT(frame)
	buf := make([]float64, frame)
	coeffs := make([]complex128, frame/2+1)
	mags := make([]float64, frame/2+1)

	for i := range numFrames {
		center := i * hop
		lo := center - frame/2
		if lo < 0 {
			lo = 0
		}
		hi := center + frame/2
		if hi > len(samples) {
			hi = len(samples)
		}
		win := samples[lo:hi]

		f.times[i] = float64(i*hop) / float64(cfg.SampleRate)
		f.rms[i] = frameRMS(win)
		f.zcr[i] = frameZCR(win)

		// Spectral rolloff over a Hann-windowed, zero-padded frame.
		for j := range buf {
			if j < len(win) {
				buf[j] = win[j]
			} else {
				buf[j] = 0
			}
		}
		window.Hann(buf)
		fft.Coefficients(coeffs, buf)
		for k, c := range coeffs {
			mags[k] = cmplx.Abs(c)
		}
		f.rolloff[i] = spectralRolloff(mags, cfg.SampleRate, frame, cfg.RolloffPoint)
	}

	return f
}

func frameRMS(win []float64) float64 {
	if len(win) == 0 {
		return 0
	}
	var sum float64
	for _, s := range win {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(win)))
}

func frameZCR(win []float64) float64 {
	if len(win) < 2 {
		return 0
	}
	crossings := 0
	for i := 1; i < len(win); i++ {
		if (win[i] >= 0) != (win[i-1] >= 0) {
			crossings++
		}
	}
	return float64(crossings) / float64(len(win))
}

// spectralRolloff returns the frequency below which rolloffPoint of the
// spectral magnitude is concentrated.
func spectralRolloff(mags []float64, sampleRate, frameLen int, rolloffPoint float64) float64 {
	var total float64
	for _, m := range mags {
		total += m
	}
	if total == 0 {
		return 0
	}
	target := rolloffPoint * total
	var cum float64
	for k, m := range mags {
		cum += m
		if cum >= target {
			return float64(k) * float64(sampleRate) / float64(frameLen)
		}
	}
	return float64(len(mags)-1) * float64(sampleRate) / float64(frameLen)
}
