package audio

import (
	"math"
	"os"
	"testing"
	"time"
)

func TestRMS(t *testing.T) {
	tests := []struct {
		name    string
		samples []float32
		want    float32
	}{
		{"empty", nil, 0},
		{"silence", []float32{0, 0, 0, 0}, 0},
		{"constant", []float32{0.5, -0.5, 0.5, -0.5}, 0.5},
		{"full scale", []float32{1, -1}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RMS(tt.samples)
			if math.Abs(float64(got-tt.want)) > 1e-6 {
				t.Errorf("RMS() = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestNewSampleBlock(t *testing.T) {
	block := NewSampleBlock([]float32{0.1, -0.1, 0.1, -0.1}, 250*time.Millisecond)
	if block.Timestamp != 250*time.Millisecond {
		t.Errorf("timestamp = %v, want 250ms", block.Timestamp)
	}
	if math.Abs(float64(block.RMS-0.1)) > 1e-6 {
		t.Errorf("rms = %f, want 0.1", block.RMS)
	}
	if got := block.Duration(4); got != time.Second {
		t.Errorf("Duration(4) = %v, want 1s", got)
	}
}

func TestDurationConversions(t *testing.T) {
	if got := SamplesToDuration(16000, SampleRate); got != time.Second {
		t.Errorf("SamplesToDuration(16000) = %v, want 1s", got)
	}
	if got := SamplesToDuration(100, 0); got != 0 {
		t.Errorf("SamplesToDuration with zero rate = %v, want 0", got)
	}
	if got := DurationToSamples(1500*time.Millisecond, SampleRate); got != 24000 {
		t.Errorf("DurationToSamples(1.5s) = %d, want 24000", got)
	}
}

func TestDecodeS16LE(t *testing.T) {
	// 0x0000, 0x7fff, 0x8000, plus a dangling byte
	raw := []byte{0x00, 0x00, 0xff, 0x7f, 0x00, 0x80, 0x12}
	got := DecodeS16LE(raw)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0] != 0 {
		t.Errorf("sample 0 = %f, want 0", got[0])
	}
	if math.Abs(float64(got[1])-32767.0/32768.0) > 1e-6 {
		t.Errorf("sample 1 = %f, want ~1", got[1])
	}
	if got[2] != -1 {
		t.Errorf("sample 2 = %f, want -1", got[2])
	}
}

func TestDownmix(t *testing.T) {
	got := Downmix([]float32{1, 0, 0.5, 0.5}, 2)
	if len(got) != 2 || got[0] != 0.5 || got[1] != 0.5 {
		t.Errorf("Downmix() = %v, want [0.5 0.5]", got)
	}

	mono := []float32{0.1, 0.2}
	if got := Downmix(mono, 1); len(got) != 2 {
		t.Errorf("mono downmix changed length: %v", got)
	}
}

func TestResampleLinear(t *testing.T) {
	in := make([]float32, 48000)
	got := ResampleLinear(in, 48000, 16000)
	if len(got) != 16000 {
		t.Errorf("len = %d, want 16000", len(got))
	}

	same := []float32{0.1, 0.2}
	if got := ResampleLinear(same, 16000, 16000); len(got) != 2 {
		t.Errorf("same-rate resample changed length: %v", got)
	}
}

func TestWAVRoundTrip(t *testing.T) {
	samples := make([]float32, 1600)
	for i := range samples {
		samples[i] = float32(math.Sin(float64(i) / 10))
	}

	path, err := WriteTempWAV(samples, SampleRate)
	if err != nil {
		t.Fatalf("WriteTempWAV() error = %v", err)
	}
	defer os.Remove(path)

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	decoded, rate, err := DecodeWAV(f)
	if err != nil {
		t.Fatalf("DecodeWAV() error = %v", err)
	}
	if rate != SampleRate {
		t.Errorf("rate = %d, want %d", rate, SampleRate)
	}
	if len(decoded) != len(samples) {
		t.Fatalf("decoded %d samples, want %d", len(decoded), len(samples))
	}
	for i := range samples {
		if math.Abs(float64(decoded[i]-samples[i])) > 1e-3 {
			t.Fatalf("sample %d = %f, want %f", i, decoded[i], samples[i])
		}
	}
}
