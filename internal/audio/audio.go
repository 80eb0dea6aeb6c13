package audio

import (
	"math"
	"time"
)

// SampleRate is the rate every recognizer in livesub expects (mono float32).
const SampleRate = 16000

// SampleBlock is one capture callback's worth of mono float PCM.
// Timestamp is monotonic time since the listening session started.
type SampleBlock struct {
	Samples   []float32
	Timestamp time.Duration
	RMS       float32
}

// NewSampleBlock builds a block and computes its RMS.
func NewSampleBlock(samples []float32, ts time.Duration) SampleBlock {
	return SampleBlock{Samples: samples, Timestamp: ts, RMS: RMS(samples)}
}

// Duration returns how much audio the block holds at the given rate.
func (b SampleBlock) Duration(sampleRate int) time.Duration {
	return SamplesToDuration(len(b.Samples), sampleRate)
}

// RMS returns the root-mean-square amplitude of normalized samples.
func RMS(samples []float32) float32 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		v := float64(s)
		sum += v * v
	}
	return float32(math.Sqrt(sum / float64(len(samples))))
}

// SamplesToDuration converts a sample count to wall time.
func SamplesToDuration(n, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(n) / float64(sampleRate) * float64(time.Second))
}

// DurationToSamples converts wall time to a sample count, rounding down.
func DurationToSamples(d time.Duration, sampleRate int) int {
	return int(d.Seconds() * float64(sampleRate))
}

// DecodeS16LE converts little-endian 16-bit PCM to float32 in [-1, 1).
// A trailing odd byte is ignored; callers that stream should carry it over.
func DecodeS16LE(b []byte) []float32 {
	out := make([]float32, len(b)/2)
	for i := range out {
		v := int16(uint16(b[2*i]) | uint16(b[2*i+1])<<8)
		out[i] = float32(v) / 32768.0
	}
	return out
}

// Downmix averages interleaved channels into mono.
func Downmix(samples []float32, channels int) []float32 {
	if channels <= 1 {
		return samples
	}
	out := make([]float32, len(samples)/channels)
	for i := range out {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += samples[i*channels+c]
		}
		out[i] = sum / float32(channels)
	}
	return out
}

// ResampleLinear resamples mono PCM from inRate to outRate using linear interpolation.
func ResampleLinear(samples []float32, inRate, outRate int) []float32 {
	if inRate <= 0 || outRate <= 0 || inRate == outRate || len(samples) == 0 {
		return samples
	}
	ratio := float64(outRate) / float64(inRate)
	outLen := int(float64(len(samples)) * ratio)
	if outLen < 1 {
		outLen = 1
	}
	out := make([]float32, outLen)
	for i := range out {
		srcPos := float64(i) / ratio
		i0 := int(srcPos)
		if i0 >= len(samples)-1 {
			out[i] = samples[len(samples)-1]
			continue
		}
		frac := float32(srcPos - float64(i0))
		out[i] = samples[i0] + (samples[i0+1]-samples[i0])*frac
	}
	return out
}
