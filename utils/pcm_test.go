// SPDX-License-Identifier: EPL-2.0

package utils

import (
	"math"
	"testing"
)

func TestFloat32ToInt16(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input float32
		want  int16
	}{
		{"zero", 0.0, 0},
		{"max positive", 1.0, math.MaxInt16},
		{"max negative", -1.0, -math.MaxInt16},
		{"half positive", 0.5, 16383},
		{"half negative", -0.5, -16383},
		{"clamp over max", 1.5, math.MaxInt16},
		{"clamp under min", -100.0, -math.MaxInt16},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := Float32ToInt16(tt.input); got != tt.want {
				t.Errorf("Float32ToInt16(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestPutS16LE_RoundTrip(t *testing.T) {
	t.Parallel()

	src := []float32{0, 0.25, -0.25, 0.999, -0.999}
	raw := make([]byte, 2*len(src))

	if n := PutS16LE(raw, src); n != len(raw) {
		t.Fatalf("PutS16LE() = %d, want %d", n, len(raw))
	}

	back := make([]float32, len(src))
	if n := S16LEToFloat32(back, raw); n != len(src) {
		t.Fatalf("S16LEToFloat32() = %d, want %d", n, len(src))
	}

	for i := range src {
		if math.Abs(float64(back[i]-src[i])) > 1.0/16384 {
			t.Errorf("sample %d: got %v, want ≈%v", i, back[i], src[i])
		}
	}
}

func TestS16LEToFloat32_ShortDst(t *testing.T) {
	t.Parallel()

	raw := []byte{0x00, 0x40, 0x00, 0xC0, 0xFF, 0x7F}
	dst := make([]float32, 2)

	if n := S16LEToFloat32(dst, raw); n != 2 {
		t.Fatalf("S16LEToFloat32() = %d, want 2", n)
	}
	if dst[0] != 0.5 || dst[1] != -0.5 {
		t.Errorf("S16LEToFloat32() = %v, want [0.5 -0.5]", dst)
	}
}

func TestU8ToFloat32(t *testing.T) {
	t.Parallel()

	dst := make([]float32, 3)
	U8ToFloat32(dst, []byte{0, 128, 192})

	want := []float32{-1, 0, 0.5}
	for i := range want {
		if dst[i] != want[i] {
			t.Errorf("U8ToFloat32()[%d] = %v, want %v", i, dst[i], want[i])
		}
	}
}

func BenchmarkPutS16LE(b *testing.B) {
	src := make([]float32, 4096)
	for i := range src {
		src[i] = float32(math.Sin(float64(i) * 0.1))
	}
	dst := make([]byte, 2*len(src))

	b.ReportAllocs()

	for b.Loop() {
		PutS16LE(dst, src)
	}
}

func TestPutS16LE_ZeroAllocs(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping allocation test in short mode")
	}

	src := make([]float32, 1024)
	dst := make([]byte, 2048)
	allocs := testing.AllocsPerRun(100, func() {
		PutS16LE(dst, src)
	})
	if allocs > 0 {
		t.Errorf("PutS16LE allocated %v times, want 0", allocs)
	}
}
