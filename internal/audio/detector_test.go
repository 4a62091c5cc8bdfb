package audio

import "testing"

// silenceFrame is 20ms of mu-law silence (0xFF decodes to 0).
func silenceFrame() []byte {
	f := make([]byte, 160)
	for i := range f {
		f[i] = 0xFF
	}
	return f
}

// loudFrame alternates near-full-scale positive and negative samples.
func loudFrame() []byte {
	f := make([]byte, 160)
	for i := range f {
		if i%2 == 0 {
			f[i] = 0x80 // loudest positive
		} else {
			f[i] = 0x00 // loudest negative
		}
	}
	return f
}

func TestDecodeMulaw_Silence(t *testing.T) {
	samples := DecodeMulaw([]byte{0xFF, 0x7F})
	for i, s := range samples {
		if s != 0 {
			t.Errorf("sample %d: expected 0, got %d", i, s)
		}
	}
}

func TestDecodeMulaw_FullScale(t *testing.T) {
	samples := DecodeMulaw([]byte{0x80, 0x00})
	if samples[0] != 32124 {
		t.Errorf("expected max positive 32124, got %d", samples[0])
	}
	if samples[1] != -32124 {
		t.Errorf("expected max negative -32124, got %d", samples[1])
	}
}

func TestEnergyDetector_Silence(t *testing.T) {
	d := NewEnergyDetector(0)
	if d.IsSpeech(silenceFrame()) {
		t.Error("expected silence frame to be classified as silence")
	}
}

func TestEnergyDetector_Speech(t *testing.T) {
	d := NewEnergyDetector(0)
	if !d.IsSpeech(loudFrame()) {
		t.Error("expected loud frame to be classified as speech")
	}
}

func TestEnergyDetector_EmptyFrame(t *testing.T) {
	d := NewEnergyDetector(0)
	if d.IsSpeech(nil) {
		t.Error("expected empty frame to be silence")
	}
}

func TestEnergyDetector_ThresholdBoundary(t *testing.T) {
	frame := loudFrame()
	strict := NewEnergyDetector(0.999)
	if strict.IsSpeech(frame) {
		t.Error("expected frame below an extreme threshold to be silence")
	}
	loose := NewEnergyDetector(0.0001)
	if !loose.IsSpeech(frame) {
		t.Error("expected frame above a tiny threshold to be speech")
	}
}

func TestEnergyDetector_DefaultThreshold(t *testing.T) {
	d := NewEnergyDetector(-1)
	if d.threshold != DefaultEnergyThreshold {
		t.Errorf("expected default threshold %v, got %v", DefaultEnergyThreshold, d.threshold)
	}
}
