// SPDX-License-Identifier: EPL-2.0

package vorbis

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"
)

// mockOggVorbisReader returns at most chunk values per Read, like the real
// decoder handing out one packet at a time.
type mockOggVorbisReader struct {
	sampleRate int
	channels   int
	samples    []float32
	offset     int
	chunk      int
	length     int64
	err        error
}

func (m *mockOggVorbisReader) SampleRate() int { return m.sampleRate }
func (m *mockOggVorbisReader) Channels() int   { return m.channels }
func (m *mockOggVorbisReader) Length() int64   { return m.length }

func (m *mockOggVorbisReader) Read(buf []float32) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	if m.offset >= len(m.samples) {
		return 0, io.EOF
	}

	limit := len(buf)
	if m.chunk > 0 {
		limit = min(limit, m.chunk)
	}
	n := copy(buf[:limit], m.samples[m.offset:])
	m.offset += n

	return n, nil
}

func newTestSource(m *mockOggVorbisReader) *source {
	return &source{dec: m, sampleRate: m.sampleRate, channels: m.channels}
}

func TestDecoder_InvalidInput(t *testing.T) {
	t.Parallel()

	for _, data := range [][]byte{[]byte("This is not Ogg data"), nil} {
		if _, err := (Decoder{}).Decode(bytes.NewReader(data)); !errors.Is(err, ErrNotVorbisFile) {
			t.Errorf("Decode(%q) error = %v, want %v", data, err, ErrNotVorbisFile)
		}
	}
}

func TestSource_ReadSamples_FillsAcrossPackets(t *testing.T) {
	t.Parallel()

	samples := []float32{0.1, -0.1, 0.2, -0.2, 0.3, -0.3, 0.4, -0.4}
	src := newTestSource(&mockOggVorbisReader{
		sampleRate: 44100,
		channels:   2,
		samples:    samples,
		chunk:      2,
	})

	dst := make([]float32, 6)
	n, err := src.ReadSamples(dst)
	if n != 6 || err != nil {
		t.Fatalf("ReadSamples() = (%d, %v), want (6, nil)", n, err)
	}
	for i := range n {
		if dst[i] != samples[i] {
			t.Errorf("sample %d = %v, want %v", i, dst[i], samples[i])
		}
	}

	n, err = src.ReadSamples(dst)
	if n != 2 || !errors.Is(err, io.EOF) {
		t.Errorf("ReadSamples() = (%d, %v), want (2, EOF)", n, err)
	}
}

func TestSource_ReadSamples_WholeFrames(t *testing.T) {
	t.Parallel()

	src := newTestSource(&mockOggVorbisReader{
		sampleRate: 48000,
		channels:   2,
		samples:    make([]float32, 64),
	})

	// A five-value buffer holds two stereo frames.
	if n, err := src.ReadSamples(make([]float32, 5)); n != 4 || err != nil {
		t.Errorf("ReadSamples() = (%d, %v), want (4, nil)", n, err)
	}
	if n, err := src.ReadSamples(make([]float32, 1)); n != 0 || err != nil {
		t.Errorf("ReadSamples() = (%d, %v), want (0, nil)", n, err)
	}
}

func TestSource_ReadSamples_Error(t *testing.T) {
	t.Parallel()

	src := newTestSource(&mockOggVorbisReader{sampleRate: 44100, channels: 1, err: io.ErrUnexpectedEOF})
	if _, err := src.ReadSamples(make([]float32, 4)); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("ReadSamples() error = %v, want %v", err, io.ErrUnexpectedEOF)
	}
}

func TestSource_Duration(t *testing.T) {
	t.Parallel()

	src := newTestSource(&mockOggVorbisReader{sampleRate: 22050, channels: 1, length: 11025})
	if d, err := src.Duration(); d != 500*time.Millisecond || err != nil {
		t.Errorf("Duration() = (%v, %v), want (500ms, nil)", d, err)
	}

	src = newTestSource(&mockOggVorbisReader{sampleRate: 22050, channels: 1})
	if d, err := src.Duration(); d != -1 || !errors.Is(err, ErrUnknownLength) {
		t.Errorf("Duration() = (%v, %v), want (-1, %v)", d, err, ErrUnknownLength)
	}
}

func BenchmarkSource_ReadSamples(b *testing.B) {
	dst := make([]float32, 4096)

	b.ReportAllocs()

	for b.Loop() {
		src := newTestSource(&mockOggVorbisReader{sampleRate: 44100, channels: 2, samples: dst})
		_, _ = src.ReadSamples(dst)
	}
}
