// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"bytes"
	"errors"
	"io"
	"math"
	"testing"
	"time"

	"github.com/ik5/audmix/audio"
	"github.com/ik5/audmix/internal/audiotest"
)

func TestDecoder_Properties(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		rate     int
		channels int
		frames   int
		duration time.Duration
	}{
		{"mono 8k", 8000, 1, 8000, time.Second},
		{"stereo 22k", 22050, 2, 11025, 500 * time.Millisecond},
		{"empty", 44100, 2, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			data := audiotest.WAV16(tt.rate, tt.channels, make([]int16, tt.frames*tt.channels))
			src, err := Decoder{}.Decode(bytes.NewReader(data))
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}

			if got := src.SampleRate(); got != tt.rate {
				t.Errorf("SampleRate() = %d, want %d", got, tt.rate)
			}
			if got := src.Channels(); got != tt.channels {
				t.Errorf("Channels() = %d, want %d", got, tt.channels)
			}

			d, err := src.(audio.Durationer).Duration()
			if err != nil {
				t.Fatalf("Duration() error = %v", err)
			}
			if d != tt.duration {
				t.Errorf("Duration() = %v, want %v", d, tt.duration)
			}
		})
	}
}

func TestDecoder_ReadSamples(t *testing.T) {
	t.Parallel()

	samples := []int16{0, 16384, -16384, math.MaxInt16, math.MinInt16}
	src, err := Decoder{}.Decode(bytes.NewReader(audiotest.WAV16(8000, 1, samples)))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	buf := make([]float32, 16)
	n, err := src.ReadSamples(buf)
	if n != len(samples) {
		t.Fatalf("ReadSamples() n = %d, want %d", n, len(samples))
	}
	if err != nil && !errors.Is(err, io.EOF) {
		t.Fatalf("ReadSamples() error = %v", err)
	}

	want := []float32{0, 0.5, -0.5, 32767.0 / 32768.0, -1}
	for i := range want {
		if buf[i] != want[i] {
			t.Errorf("sample %d = %v, want %v", i, buf[i], want[i])
		}
	}

	if n, err := src.ReadSamples(buf); n != 0 || !errors.Is(err, io.EOF) {
		t.Errorf("ReadSamples() after end = (%d, %v), want (0, EOF)", n, err)
	}
}

func TestDecoder_Chunked(t *testing.T) {
	t.Parallel()

	src, err := Decoder{}.Decode(bytes.NewReader(audiotest.WAV16(8000, 2, audiotest.Ramp16(1000, 2))))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	buf := make([]float32, 300)
	total := 0
	for {
		n, err := src.ReadSamples(buf)
		total += n
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("ReadSamples() error = %v", err)
		}
	}

	if total != 2000 {
		t.Errorf("total samples = %d, want 2000", total)
	}
}

func TestDecoder_NonSeekableReader(t *testing.T) {
	t.Parallel()

	data := audiotest.WAV16(16000, 1, make([]int16, 100))
	src, err := Decoder{}.Decode(io.MultiReader(bytes.NewReader(data)))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if src.SampleRate() != 16000 {
		t.Errorf("SampleRate() = %d, want 16000", src.SampleRate())
	}
}

func TestDecoder_Errors(t *testing.T) {
	t.Parallel()

	float := audiotest.WAV16(8000, 1, make([]int16, 4))
	float[20] = 3

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"not riff", []byte("this is not a wav file at all, not even close"), ErrNotWavFile},
		{"empty", nil, ErrNotWavFile},
		{"float format", float, ErrOnlyPCMSupported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Decoder{}.Decode(bytes.NewReader(tt.data))
			if !errors.Is(err, tt.want) {
				t.Errorf("Decode() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestWriter_RoundTrip(t *testing.T) {
	t.Parallel()

	f := new(audiotest.MemFile)
	w, err := NewWriter(f, 22050, 2)
	if err != nil {
		t.Fatalf("NewWriter() error = %v", err)
	}

	if err := w.WriteFloat32([]float32{0.5, -0.5, 0, 0}); err != nil {
		t.Fatalf("WriteFloat32() error = %v", err)
	}
	if err := w.WriteInt16([]int16{100, -100}); err != nil {
		t.Fatalf("WriteInt16() error = %v", err)
	}
	if got := w.Frames(); got != 3 {
		t.Errorf("Frames() = %d, want 3", got)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if got, want := f.Len(), 44+3*2*2; got != want {
		t.Errorf("file size = %d, want %d", got, want)
	}

	src, err := Decoder{}.Decode(bytes.NewReader(f.Bytes()))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if src.Channels() != 2 || src.SampleRate() != 22050 {
		t.Fatalf("decoded format = %dch %dHz, want 2ch 22050Hz", src.Channels(), src.SampleRate())
	}

	buf := make([]float32, 6)
	n, _ := src.ReadSamples(buf)
	if n != 6 {
		t.Fatalf("ReadSamples() n = %d, want 6", n)
	}

	want := []int16{16383, -16383, 0, 0, 100, -100}
	for i := range want {
		if got := int16(math.Round(float64(buf[i]) * 32768)); got != want[i] {
			t.Errorf("sample %d = %d, want %d", i, got, want[i])
		}
	}
}

func TestNewWriter_InvalidChannels(t *testing.T) {
	t.Parallel()

	if _, err := NewWriter(new(audiotest.MemFile), 8000, 0); !errors.Is(err, ErrInvalidChannels) {
		t.Errorf("NewWriter() error = %v, want %v", err, ErrInvalidChannels)
	}
}

func BenchmarkDecoder_ReadSamples(b *testing.B) {
	data := audiotest.WAV16(44100, 2, audiotest.Ramp16(44100, 2))
	buf := make([]float32, 4096)

	b.ReportAllocs()

	for b.Loop() {
		src, err := Decoder{}.Decode(bytes.NewReader(data))
		if err != nil {
			b.Fatal(err)
		}
		for {
			if _, err := src.ReadSamples(buf); err != nil {
				break
			}
		}
	}
}
