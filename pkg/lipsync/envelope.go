package lipsync

import (
	"math"
	"sync"

	"github.com/teslashibe/go-face/pkg/audioio"
	"github.com/teslashibe/go-face/pkg/expression"
)

// Tunable parameters of the envelope decoder.
const (
	SampleRate = 16000 // Internal analysis rate
	FrameMS    = 20    // RMS window (ms)
	HopMS      = 10    // Hop between updates (ms)
	FrameSize  = SampleRate * FrameMS / 1000
	HopSize    = SampleRate * HopMS / 1000

	// Voice activity thresholds (dBFS)
	VADOnThreshold  = -35.0
	VADOffThreshold = -45.0
	VADAttackMS     = 20
	VADReleaseMS    = 150

	// Envelope follower
	EnvFollowGain = 0.65
	EnvAttackMS   = 30
	EnvReleaseMS  = 120

	// Loudness mapping
	LoudDBLow     = -46.0
	LoudDBHigh    = -12.0
	LoudnessGamma = 0.9

	// Zero-crossing rates that separate voiced sounds from fricatives
	FricativeZCRLow  = 0.15
	FricativeZCRHigh = 0.35
)

var (
	vadAttackHops  = max(1, VADAttackMS/HopMS)
	vadReleaseHops = max(1, VADReleaseMS/HopMS)
	envAttackHops  = max(1, EnvAttackMS/HopMS)
	envReleaseHops = max(1, EnvReleaseMS/HopMS)
)

// EnvelopeDecoder is a lightweight stand-in for a phoneme recognizer. It
// tracks voice activity and loudness and maps them onto the open-vowel,
// fricative and silence visemes.
type EnvelopeDecoder struct {
	mu sync.Mutex

	samples []float64

	vadOn    bool
	vadAbove int
	vadBelow int

	env     float64
	envUp   int
	envDown int

	smoothing int
	frame     Frame
}

// NewEnvelopeDecoder creates a decoder with smoothing 1 (none).
func NewEnvelopeDecoder() *EnvelopeDecoder {
	d := &EnvelopeDecoder{
		samples:   make([]float64, 0, FrameSize*2),
		smoothing: 1,
	}
	d.frame.Set(expression.VisemeSil, 1)
	return d
}

// SetSmoothing sets output smoothing in [1,100]; 1 follows the audio
// exactly, 100 barely moves.
func (d *EnvelopeDecoder) SetSmoothing(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.smoothing = ClampSmoothing(n)
}

// Reset clears analysis state and returns to silence.
func (d *EnvelopeDecoder) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.samples = d.samples[:0]
	d.vadOn = false
	d.vadAbove = 0
	d.vadBelow = 0
	d.env = 0
	d.envUp = 0
	d.envDown = 0
	d.frame = Frame{}
	d.frame.Set(expression.VisemeSil, 1)
}

// Visemes returns the current frame.
func (d *EnvelopeDecoder) Visemes() Frame {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.frame
}

// Feed analyses mono samples in [-1,1] recorded at sampleRate.
func (d *EnvelopeDecoder) Feed(samples []float64, sampleRate int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(samples) == 0 {
		return
	}
	if sampleRate != SampleRate {
		samples = resampleLinear(samples, sampleRate, SampleRate)
	}
	d.samples = append(d.samples, samples...)
	for len(d.samples) >= FrameSize {
		d.processHop()
	}
}

// FeedPCM analyses PCM16 mono samples.
func (d *EnvelopeDecoder) FeedPCM(samples []int16, sampleRate int) {
	d.Feed(audioio.PCMToFloat(samples), sampleRate)
}

func (d *EnvelopeDecoder) processHop() {
	window := d.samples[:FrameSize]
	db := rmsDBFS(window)
	zcr := zeroCrossingRate(window)
	d.samples = d.samples[HopSize:]

	if db >= VADOnThreshold {
		d.vadAbove++
		d.vadBelow = 0
		if !d.vadOn && d.vadAbove >= vadAttackHops {
			d.vadOn = true
		}
	} else if db <= VADOffThreshold {
		d.vadBelow++
		d.vadAbove = 0
		if d.vadOn && d.vadBelow >= vadReleaseHops {
			d.vadOn = false
		}
	}

	var target float64
	if d.vadOn {
		d.envUp = min(envAttackHops, d.envUp+1)
		d.envDown = 0
		target = float64(d.envUp) / float64(envAttackHops)
	} else {
		d.envDown = min(envReleaseHops, d.envDown+1)
		d.envUp = 0
		target = 1 - float64(d.envDown)/float64(envReleaseHops)
	}
	d.env = clamp(d.env+EnvFollowGain*(target-d.env), 0, 1)

	open := d.env * loudnessGain(db)
	fricative := clamp((zcr-FricativeZCRLow)/(FricativeZCRHigh-FricativeZCRLow), 0, 1)

	var next Frame
	next.Set(expression.VisemeSil, 1-open)
	next.Set(expression.VisemeAA, open*(1-fricative))
	next.Set(expression.VisemeSS, open*fricative)

	alpha := smoothingAlpha(d.smoothing)
	for i := range d.frame {
		d.frame[i] += alpha * (next[i] - d.frame[i])
	}
}

// ClampSmoothing limits n to [1,100].
func ClampSmoothing(n int) int {
	return max(1, min(100, n))
}

func smoothingAlpha(n int) float64 {
	return 1 - float64(ClampSmoothing(n)-1)/100
}

func rmsDBFS(samples []float64) float64 {
	if len(samples) == 0 {
		return -100.0
	}
	var sum float64
	for _, s := range samples {
		sum += s * s
	}
	rms := math.Sqrt(sum/float64(len(samples)) + 1e-12)
	return 20.0 * math.Log10(rms+1e-12)
}

func zeroCrossingRate(samples []float64) float64 {
	if len(samples) < 2 {
		return 0
	}
	crossings := 0
	for i := 1; i < len(samples); i++ {
		if (samples[i-1] >= 0) != (samples[i] >= 0) {
			crossings++
		}
	}
	return float64(crossings) / float64(len(samples)-1)
}

func loudnessGain(db float64) float64 {
	t := clamp((db-LoudDBLow)/(LoudDBHigh-LoudDBLow), 0, 1)
	return math.Pow(t, LoudnessGamma)
}

func resampleLinear(samples []float64, srIn, srOut int) []float64 {
	if srIn == srOut || len(samples) == 0 {
		return samples
	}
	nOut := int(math.Round(float64(len(samples)) * float64(srOut) / float64(srIn)))
	if nOut <= 1 {
		return nil
	}
	out := make([]float64, nOut)
	for i := range out {
		t := float64(i) / float64(nOut-1) * float64(len(samples)-1)
		idx := int(t)
		frac := t - float64(idx)
		if idx >= len(samples)-1 {
			out[i] = samples[len(samples)-1]
		} else {
			out[i] = samples[idx]*(1-frac) + samples[idx+1]*frac
		}
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
