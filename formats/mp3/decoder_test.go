// SPDX-License-Identifier: EPL-2.0

package mp3

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"
	"time"
)

// mockMP3Reader simulates gomp3.Decoder output.
type mockMP3Reader struct {
	sampleRate int
	samples    []int16
	offset     int
	length     int64
	err        error
}

func (m *mockMP3Reader) SampleRate() int { return m.sampleRate }
func (m *mockMP3Reader) Length() int64   { return m.length }

func (m *mockMP3Reader) Read(buf []byte) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	if m.offset >= len(m.samples) {
		return 0, io.EOF
	}

	count := min(len(buf)/2, len(m.samples)-m.offset)
	for i := range count {
		binary.LittleEndian.PutUint16(buf[2*i:], uint16(m.samples[m.offset+i]))
	}
	m.offset += count

	return count * 2, nil
}

func newTestSource(m *mockMP3Reader) *source {
	return &source{dec: m, sampleRate: m.sampleRate}
}

func TestDecoder_InvalidInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data []byte
	}{
		{"garbage", []byte("This is not MP3 data")},
		{"empty", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if _, err := (Decoder{}).Decode(bytes.NewReader(tt.data)); !errors.Is(err, ErrNotMP3File) {
				t.Errorf("Decode() error = %v, want %v", err, ErrNotMP3File)
			}
		})
	}
}

func TestSource_ReadSamples(t *testing.T) {
	t.Parallel()

	src := newTestSource(&mockMP3Reader{
		sampleRate: 44100,
		samples:    []int16{0, 16384, -16384, -32768},
	})

	dst := make([]float32, 4)
	n, err := src.ReadSamples(dst)
	if n != 4 || err != nil {
		t.Fatalf("ReadSamples() = (%d, %v), want (4, nil)", n, err)
	}

	want := []float32{0, 0.5, -0.5, -1}
	for i := range want {
		if dst[i] != want[i] {
			t.Errorf("sample %d = %v, want %v", i, dst[i], want[i])
		}
	}

	if n, err := src.ReadSamples(dst); n != 0 || !errors.Is(err, io.EOF) {
		t.Errorf("ReadSamples() at end = (%d, %v), want (0, EOF)", n, err)
	}
}

func TestSource_ReadSamples_Partial(t *testing.T) {
	t.Parallel()

	src := newTestSource(&mockMP3Reader{sampleRate: 22050, samples: make([]int16, 6)})

	n, err := src.ReadSamples(make([]float32, 10))
	if n != 6 || !errors.Is(err, io.EOF) {
		t.Errorf("ReadSamples() = (%d, %v), want (6, EOF)", n, err)
	}
}

func TestSource_ReadSamples_Error(t *testing.T) {
	t.Parallel()

	src := newTestSource(&mockMP3Reader{sampleRate: 44100, err: errors.New("corrupt frame")})

	if _, err := src.ReadSamples(make([]float32, 8)); err == nil || errors.Is(err, io.EOF) {
		t.Errorf("ReadSamples() error = %v, want decode error", err)
	}
}

func TestSource_Duration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		length int64
		want   time.Duration
		err    error
	}{
		{"one second", 44100 * outFrameSize, time.Second, nil},
		{"unknown", -1, -1, ErrUnknownLength},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			src := newTestSource(&mockMP3Reader{sampleRate: 44100, length: tt.length})
			got, err := src.Duration()
			if got != tt.want || !errors.Is(err, tt.err) {
				t.Errorf("Duration() = (%v, %v), want (%v, %v)", got, err, tt.want, tt.err)
			}
		})
	}
}

func BenchmarkSource_ReadSamples(b *testing.B) {
	dst := make([]float32, 4096)

	b.ReportAllocs()

	for b.Loop() {
		src := newTestSource(&mockMP3Reader{sampleRate: 44100, samples: make([]int16, 4096)})
		_, _ = src.ReadSamples(dst)
	}
}
