package audioio

import "math"

// StereoToMono averages interleaved stereo samples to mono.
func StereoToMono(samples []int16) []int16 {
	mono := make([]int16, len(samples)/2)
	for i := range mono {
		left := int32(samples[i*2])
		right := int32(samples[i*2+1])
		mono[i] = int16((left + right) / 2)
	}
	return mono
}

// PCMToFloat converts PCM16 samples to floats in [-1, 1].
func PCMToFloat(samples []int16) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = float64(s) / 32768.0
	}
	return out
}

// FloatToPCM converts a float sample in [-1, 1] to PCM16, clipping.
func FloatToPCM(v float64) int16 {
	v = math.Max(-1, math.Min(1, v))
	return int16(v * 32767)
}

// CalculateRMS returns the normalized mean square of samples in [0, 1].
func CalculateRMS(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return sum / float64(len(samples)) / (32767 * 32767)
}
