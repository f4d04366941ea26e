package audio

import (
	"math"

	"github.com/okian/fluency/internal/domain/model"
)

// DetectNonsilent returns the ordered non-silent ranges of clip in ms.
//
// A window of minSilenceMS starting at every millisecond is silent when its
// RMS over all channels is at or below threshDBFS relative to the maximum
// amplitude. Overlapping silent windows merge into silent ranges and the
// complement over [0, len] is returned. A clip shorter than minSilenceMS is a
// single range; a fully silent clip has none.
func DetectNonsilent(clip *Clip, minSilenceMS int, threshDBFS float64) []model.SpeechRange {
	segLen := clip.DurationMS()
	silent := detectSilence(clip, int64(minSilenceMS), threshDBFS)
	if len(silent) == 0 {
		return []model.SpeechRange{{StartMS: 0, EndMS: segLen}}
	}
	if silent[0].StartMS == 0 && silent[0].EndMS == segLen {
		return []model.SpeechRange{}
	}

	out := make([]model.SpeechRange, 0, len(silent)+1)
	var prevEnd int64
	for _, s := range silent {
		out = append(out, model.SpeechRange{StartMS: prevEnd, EndMS: s.StartMS})
		prevEnd = s.EndMS
	}
	if prevEnd != segLen {
		out = append(out, model.SpeechRange{StartMS: prevEnd, EndMS: segLen})
	}
	if out[0].StartMS == 0 && out[0].EndMS == 0 {
		out = out[1:]
	}
	return out
}

func detectSilence(clip *Clip, minSilenceMS int64, threshDBFS float64) []model.SpeechRange {
	segLen := clip.DurationMS()
	if minSilenceMS <= 0 || segLen < minSilenceMS {
		return nil
	}
	thresh := math.Pow(10, threshDBFS/20) * clip.MaxAmplitude()

	// prefix[f] holds the sum of squared samples of frames [0, f).
	frames := clip.Frames()
	ch := clip.Channels
	prefix := make([]float64, frames+1)
	for f := 0; f < frames; f++ {
		var sq float64
		for c := 0; c < ch; c++ {
			s := float64(clip.Samples[f*ch+c])
			sq += s * s
		}
		prefix[f+1] = prefix[f] + sq
	}

	rate := int64(clip.SampleRate)
	frameAt := func(ms int64) int64 { return ms * rate / 1000 }

	var starts []int64
	for i := int64(0); i <= segLen-minSilenceMS; i++ {
		fs, fe := frameAt(i), frameAt(i+minSilenceMS)
		n := fe - fs
		if n <= 0 {
			starts = append(starts, i)
			continue
		}
		// frames past the end count as digital silence
		hi := min(fe, int64(frames))
		lo := min(fs, hi)
		rms := math.Floor(math.Sqrt((prefix[hi] - prefix[lo]) / float64(n*int64(ch))))
		if rms <= thresh {
			starts = append(starts, i)
		}
	}
	if len(starts) == 0 {
		return nil
	}

	var ranges []model.SpeechRange
	prev := starts[0]
	cur := prev
	for _, s := range starts[1:] {
		continuous := s == prev+1
		hasGap := s > prev+minSilenceMS
		if !continuous && hasGap {
			ranges = append(ranges, model.SpeechRange{StartMS: cur, EndMS: prev + minSilenceMS})
			cur = s
		}
		prev = s
	}
	return append(ranges, model.SpeechRange{StartMS: cur, EndMS: prev + minSilenceMS})
}
