// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"errors"
	"io"
	"math"
	"testing"

	"github.com/ik5/audmix/internal/audiotest"
)

func TestChannelMixer_Passthrough(t *testing.T) {
	t.Parallel()

	src := audiotest.NewConstantSource(8000, 2, 100, 0.5)
	mixer, err := NewChannelMixer(src, 2)
	if err != nil {
		t.Fatalf("NewChannelMixer() error = %v", err)
	}

	buf := make([]float32, 10)
	n, err := mixer.ReadSamples(buf)
	if err != nil {
		t.Fatalf("ReadSamples() error = %v", err)
	}
	if n != 10 {
		t.Errorf("ReadSamples() n = %d, want 10", n)
	}
}

func TestChannelMixer_StereoToMono(t *testing.T) {
	t.Parallel()

	src := audiotest.NewMockSource(8000, 2, 100, func(_ int, channel int) float32 {
		if channel == 0 {
			return 0.4
		}
		return 0.6
	})
	mixer := NewMonoMixer(src)

	if mixer.Channels() != 1 {
		t.Errorf("Channels() = %d, want 1", mixer.Channels())
	}

	buf := make([]float32, 10)
	n, err := mixer.ReadSamples(buf)
	if err != nil {
		t.Fatalf("ReadSamples() error = %v", err)
	}
	if n != 10 {
		t.Fatalf("ReadSamples() n = %d, want 10", n)
	}

	for i := range n {
		if math.Abs(float64(buf[i]-0.5)) > 0.001 {
			t.Errorf("buf[%d] = %v, want 0.5", i, buf[i])
		}
	}
}

func TestChannelMixer_QuadToMono(t *testing.T) {
	t.Parallel()

	src := audiotest.NewMockSource(8000, 4, 16, func(_ int, channel int) float32 {
		return float32(channel) * 0.1
	})
	mixer := NewMonoMixer(src)

	buf := make([]float32, 4)
	n, _ := mixer.ReadSamples(buf)
	if n != 4 {
		t.Fatalf("ReadSamples() n = %d, want 4", n)
	}

	// (0 + 0.1 + 0.2 + 0.3) / 4
	if math.Abs(float64(buf[0]-0.15)) > 0.0001 {
		t.Errorf("buf[0] = %v, want 0.15", buf[0])
	}
}

func TestChannelMixer_MonoToStereo(t *testing.T) {
	t.Parallel()

	src := audiotest.NewRampSource(8000, 1, 8)
	mixer, err := NewChannelMixer(src, 2)
	if err != nil {
		t.Fatalf("NewChannelMixer() error = %v", err)
	}

	buf := make([]float32, 16)
	n, err := mixer.ReadSamples(buf)
	if err != io.EOF {
		t.Errorf("ReadSamples() error = %v, want io.EOF", err)
	}
	if n != 16 {
		t.Fatalf("ReadSamples() n = %d, want 16", n)
	}

	for f := range 8 {
		if buf[2*f] != buf[2*f+1] {
			t.Errorf("frame %d: left %v != right %v", f, buf[2*f], buf[2*f+1])
		}
	}
}

func TestChannelMixer_UnsupportedLayout(t *testing.T) {
	t.Parallel()

	src := audiotest.NewSilentSource(8000, 6, 10)
	_, err := NewChannelMixer(src, 2)
	if !errors.Is(err, ErrUnsupportedLayout) {
		t.Errorf("NewChannelMixer(6 -> 2) error = %v, want ErrUnsupportedLayout", err)
	}
}

func TestChannelMixer_InvalidDstSize(t *testing.T) {
	t.Parallel()

	mixer, _ := NewChannelMixer(audiotest.NewSilentSource(8000, 1, 10), 2)
	_, err := mixer.ReadSamples(make([]float32, 3))
	if !errors.Is(err, ErrInvalidDstSize) {
		t.Errorf("ReadSamples() error = %v, want ErrInvalidDstSize", err)
	}
}

func BenchmarkChannelMixer_StereoToMono(b *testing.B) {
	buf := make([]float32, 4096)

	b.ReportAllocs()

	for b.Loop() {
		mixer := NewMonoMixer(audiotest.NewSineSource(44100, 2, 4096, 440))
		_, _ = mixer.ReadSamples(buf)
	}
}
