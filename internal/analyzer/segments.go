package analyzer

import "github.com/sonavox/callaudit/internal/stats"

// detectSegments converts framewise features into ordered, non-overlapping
// speech segments using majority voting across three features, morphological
// smoothing and a close-gap merge pass.
func detectSegments(f *features, cfg Config) []Segment {
	if len(f.times) == 0 {
		return nil
	}

	rolloffThr := stats.Percentile(f.rolloff, cfg.RolloffPercentile)
	energyThr := stats.Percentile(f.rms, cfg.EnergyPercentile)
	zcrThr := stats.Percentile(f.zcr, cfg.ZCRPercentile)

	// A frame is speech when at least two of the three features vote for it.
	// Single features are too noisy on their own.
	mask := make([]bool, len(f.times))
	for i := range mask {
		votes := 0
		if f.rolloff[i] > rolloffThr {
			votes++
		}
		if f.rms[i] > energyThr {
			votes++
		}
		if f.zcr[i] > zcrThr {
			votes++
		}
		mask[i] = votes >= 2
	}

	// Closing then opening suppresses single-frame flicker.
	mask = binaryClose(mask, 3)
	mask = binaryOpen(mask, 2)

	var segments []Segment
	inSpeech := false
	var segStart float64

	for i, isSpeech := range mask {
		t := f.times[i]
		switch {
		case isSpeech && !inSpeech:
			segStart = t
			inSpeech = true
		case !isSpeech && inSpeech:
			if t-segStart > cfg.MinSegmentDuration {
				segments = append(segments, Segment{Start: segStart, End: t, Duration: t - segStart})
			}
			inSpeech = false
		}
	}
	// Audio that ends mid-speech closes the final segment at the clip end.
	if inSpeech {
		end := f.times[len(f.times)-1]
		segments = append(segments, Segment{Start: segStart, End: end, Duration: end - segStart})
	}

	return mergeSegments(segments, cfg.MergeGapThreshold)
}

// mergeSegments joins adjacent segments separated by gaps below maxGap.
// Such gaps are almost always one utterance split by detector noise; larger
// gaps are genuine pauses and are never merged.
func mergeSegments(segments []Segment, maxGap float64) []Segment {
	if len(segments) == 0 {
		return segments
	}

	merged := make([]Segment, 0, len(segments))
	current := segments[0]

	for _, next := range segments[1:] {
		gap := next.Start - current.End
		if gap < maxGap {
			current.End = next.End
			current.Duration = current.End - current.Start
		} else {
			merged = append(merged, current)
			current = next
		}
	}
	return append(merged, current)
}

// binaryDilate grows true runs by a structuring element of the given size,
// centered the way scipy centers even-sized elements (extra reach backwards).
func binaryDilate(mask []bool, size int) []bool {
	out := make([]bool, len(mask))
	lo := -(size / 2)
	hi := size - 1 + lo
	for i := range mask {
		for off := lo; off <= hi; off++ {
			j := i + off
			if j >= 0 && j < len(mask) && mask[j] {
				out[i] = true
				break
			}
		}
	}
	return out
}

// binaryErode shrinks true runs by a structuring element of the given size.
func binaryErode(mask []bool, size int) []bool {
	out := make([]bool, len(mask))
	lo := -(size / 2)
	hi := size - 1 + lo
	for i := range mask {
		ok := true
		for off := lo; off <= hi; off++ {
			j := i + off
			if j < 0 || j >= len(mask) || !mask[j] {
				ok = false
				break
			}
		}
		out[i] = ok
	}
	return out
}

// binaryClose fills gaps smaller than the structuring element.
func binaryClose(mask []bool, size int) []bool {
	return binaryErode(binaryDilate(mask, size), size)
}

// binaryOpen removes true runs smaller than the structuring element.
func binaryOpen(mask []bool, size int) []bool {
	return binaryDilate(binaryErode(mask, size), size)
}
