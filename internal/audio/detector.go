// Package audio provides speech-activity detection over raw telephony frames.
package audio

// SpeechActivityDetector classifies one inbound audio frame. Implementations
// must be cheap enough to run on every frame of every active call.
type SpeechActivityDetector interface {
	// IsSpeech reports whether the frame contains caller speech.
	IsSpeech(frame []byte) bool
}

// DefaultEnergyThreshold is the empirical mean-magnitude cutoff (normalized
// to [0,1]) that reliably catches a caller starting to talk over the line's
// background hiss. Tuned against 8kHz mu-law handset audio.
const DefaultEnergyThreshold = 0.03

// EnergyDetector is a coarse energy-based detector: mean absolute sample
// magnitude over the frame against a fixed threshold. It trades accuracy for
// latency; its only correctness requirement is catching a human starting to
// talk while playback is running.
type EnergyDetector struct {
	threshold float64
}

// NewEnergyDetector creates a detector with the given normalized threshold.
// A non-positive threshold selects the default.
func NewEnergyDetector(threshold float64) *EnergyDetector {
	if threshold <= 0 {
		threshold = DefaultEnergyThreshold
	}
	return &EnergyDetector{threshold: threshold}
}

// IsSpeech classifies a mu-law frame as speech or silence.
func (d *EnergyDetector) IsSpeech(frame []byte) bool {
	return d.Energy(frame) >= d.threshold
}

// Energy returns the frame's mean absolute magnitude normalized to [0,1].
func (d *EnergyDetector) Energy(frame []byte) float64 {
	if len(frame) == 0 {
		return 0
	}
	var sum float64
	for _, b := range frame {
		s := mulawTable[b]
		if s < 0 {
			s = -s
		}
		sum += float64(s)
	}
	return sum / float64(len(frame)) / 32768.0
}
