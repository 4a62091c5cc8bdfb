package audio

// mu-law (G.711) decoding for the 8kHz telephony frames the media stream
// carries. Only decode is needed; synthesized audio arrives already encoded.

const mulawBias = 0x84

var mulawTable [256]int16

func init() {
	for i := range mulawTable {
		mulawTable[i] = decodeMulawSample(byte(i))
	}
}

func decodeMulawSample(u byte) int16 {
	u = ^u
	sign := u & 0x80
	exponent := (u >> 4) & 0x07
	mantissa := u & 0x0F

	sample := (int16(mantissa)<<3 + mulawBias) << exponent
	sample -= mulawBias

	if sign != 0 {
		return -sample
	}
	return sample
}

// DecodeMulaw expands 8-bit mu-law samples to 16-bit linear PCM.
func DecodeMulaw(data []byte) []int16 {
	out := make([]int16, len(data))
	for i, b := range data {
		out[i] = mulawTable[b]
	}
	return out
}
