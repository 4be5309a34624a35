// SPDX-License-Identifier: EPL-2.0

package mixer

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ik5/audmix/audio"
	"github.com/ik5/audmix/formats/wav"
	"github.com/ik5/audmix/internal/audiotest"
)

func TestDurationMs(t *testing.T) {
	t.Parallel()

	cd := audio.S16(44100, 2)

	tests := []struct {
		name  string
		bytes uint32
		f     audio.Format
		want  uint32
	}{
		{"zero", 0, cd, 0},
		{"one second", 176400, cd, 1000},
		{"exact", 88, audio.S16(1000, 1), 44},
		{"half up", 3, audio.S16(1000, 1), 2},
		{"unsigned 8-bit", 1, audio.Format{SampleRate: 1000, Channels: 1, BitsPerSample: 8, Unsigned: true}, 1},
		{"invalid format", 100, audio.Format{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := DurationMs(tt.bytes, tt.f); got != tt.want {
				t.Errorf("DurationMs(%d) = %d, want %d", tt.bytes, got, tt.want)
			}
		})
	}
}

func TestBytesForMs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		ms   uint32
		f    audio.Format
		want uint32
	}{
		{0, audio.S16(44100, 2), 0},
		{1000, audio.S16(44100, 2), 176400},
		{1, audio.S16(44100, 2), 176},
		{3, audio.S16(22050, 1), 132},
		{5, audio.S16(11025, 2), 220},
	}

	for _, tt := range tests {
		if got := BytesForMs(tt.ms, tt.f); got != tt.want {
			t.Errorf("BytesForMs(%d, %s) = %d, want %d", tt.ms, tt.f, got, tt.want)
		}
	}
}

func TestDuration_RoundTrip(t *testing.T) {
	t.Parallel()

	formats := []audio.Format{
		audio.S16(44100, 2),
		audio.S16(22050, 1),
		audio.S16(48000, 2),
		{SampleRate: 11025, Channels: 1, BitsPerSample: 8, Unsigned: true},
	}

	for _, f := range formats {
		frame := uint32(f.FrameSize())
		for frames := uint32(0); frames < 50000; frames += 997 {
			b := frames * frame
			if got := BytesForDuration(Duration(b, f), f); got != b {
				t.Fatalf("%s: BytesForDuration(Duration(%d)) = %d", f, b, got)
			}

			ms := DurationMs(b, f)
			back := BytesForMs(ms, f)
			diff := int64(back) - int64(b)
			bound := int64(BytesForMs(1, f)/2 + frame + 1)
			if diff < -bound || diff > bound {
				t.Fatalf("%s: BytesForMs(DurationMs(%d)) = %d, off by %d", f, b, back, diff)
			}
			if back%frame != 0 {
				t.Fatalf("%s: BytesForMs(%d) = %d, not a whole frame", f, ms, back)
			}
		}
	}
}

func TestDuration(t *testing.T) {
	t.Parallel()

	f := audio.S16(1000, 1)

	if got := Duration(2000, f); got != time.Second {
		t.Errorf("Duration(2000) = %v, want 1s", got)
	}
	// The trailing odd byte is not a whole frame.
	if got := Duration(2001, f); got != time.Second {
		t.Errorf("Duration(2001) = %v, want 1s", got)
	}
	if got := BytesForDuration(-time.Second, f); got != 0 {
		t.Errorf("BytesForDuration(-1s) = %d, want 0", got)
	}
}

func TestMsToBytePos(t *testing.T) {
	t.Parallel()

	tests := []struct {
		ms   uint32
		f    audio.Format
		want uint32
	}{
		{0, audio.S16(44100, 2), 0},
		{1000, audio.S16(44100, 2), 176400},
		{1, audio.S16(44100, 2), 176},
		{1, audio.S16(22050, 2), 88},
		{10, audio.S16(1000, 1), 20},
	}

	for _, tt := range tests {
		got := msToBytePos(tt.ms, tt.f)
		if got != tt.want {
			t.Errorf("msToBytePos(%d, %s) = %d, want %d", tt.ms, tt.f, got, tt.want)
		}
		if got%uint32(tt.f.FrameSize()) != 0 {
			t.Errorf("msToBytePos(%d, %s) = %d is not frame aligned", tt.ms, tt.f, got)
		}
	}
}

func TestLoadSample_Empty(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{Channels: 2})

	for _, predecode := range []bool{false, true} {
		s := newFakeSample(0)
		_, err := h.eng.LoadSample(s, LoadOptions{Predecode: predecode, BufferSize: 200})

		assert.ErrorIs(t, err, ErrDecodeFailed)
		assert.True(t, s.closed)
	}
	assert.Empty(t, h.eng.data)
}

func TestLoadSample_UnsupportedFormat(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{Channels: 2})
	s := newFakeSample(100)
	s.format = audio.Format{SampleRate: testRate, Channels: 6, BitsPerSample: 16}

	_, err := h.eng.LoadSample(s, LoadOptions{})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.Empty(t, h.eng.data)
	assert.Contains(t, h.eng.LastError(), "unsupported")
}

func TestLoadSample_DecodeError(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{Channels: 2})
	s := newFakeSample(500)
	s.decodeErr = errDecode

	_, err := h.eng.LoadSample(s, LoadOptions{BufferSize: 200})
	assert.ErrorIs(t, err, ErrDecodeFailed)
	assert.ErrorIs(t, err, errDecode)
}

func TestLoadSample_ShortStreamBecomesPredecoded(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{Channels: 2})
	d, s := h.load(t, 60, LoadOptions{})

	assert.Equal(t, Predecoded, d.Mode())
	assert.Len(t, d.buffers, 1)
	assert.Equal(t, uint32(120), d.totalBytes)
	assert.True(t, s.closed)
	assert.True(t, h.eng.IsPredecoded(d))
	assert.Equal(t, 60*time.Millisecond, h.eng.TotalTime(d))
}

func TestLoadSample_Streaming(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{Channels: 2})
	d, s := h.load(t, 1000, LoadOptions{MaxQueueBuffers: 5, StartupBuffers: 9, AccessData: true})

	assert.Equal(t, Streaming, d.Mode())
	assert.Len(t, d.buffers, 5)
	assert.Equal(t, 5, d.startup)
	assert.Equal(t, DefaultBuffersPerPass, d.perPass)
	assert.Equal(t, 1, s.rewinds)
	assert.False(t, s.closed)
	require.NotNil(t, d.shadow)
	assert.Equal(t, 5, d.shadow.Cap())
	assert.Len(t, d.access, 5)
	assert.Equal(t, time.Second, h.eng.TotalTime(d))
	assert.Contains(t, h.eng.data, d)
}

func TestLoadSample_StreamingRewindFails(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{Channels: 2})
	s := newFakeSample(1000)
	s.rewindErr = errRewind

	_, err := h.eng.LoadSample(s, LoadOptions{BufferSize: 200})
	assert.ErrorIs(t, err, ErrDecodeFailed)
	assert.ErrorIs(t, err, errRewind)
	assert.Empty(t, h.eng.data)
}

func TestLoadSample_EAgainRetry(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{Channels: 2})

	s := newFakeSample(1000)
	s.eagain = 1
	d, err := h.eng.LoadSample(s, LoadOptions{BufferSize: 200})
	require.NoError(t, err)
	assert.Equal(t, Streaming, d.Mode())

	s = newFakeSample(1000)
	s.eagain = 2
	_, err = h.eng.LoadSample(s, LoadOptions{BufferSize: 200})
	assert.ErrorIs(t, err, ErrDecodeFailed)
}

func TestLoadSample_Predecoded(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{Channels: 2})

	d, s := h.load(t, 1000, LoadOptions{Predecode: true})
	assert.Equal(t, Predecoded, d.Mode())
	assert.Equal(t, uint32(2000), d.totalBytes)
	assert.Equal(t, d.totalBytes, d.loadedBytes)
	assert.True(t, s.closed)
	assert.Nil(t, d.pcm)

	d, s = h.load(t, 1000, LoadOptions{Predecode: true, AccessData: true})
	assert.False(t, s.closed)
	assert.Equal(t, s.pcm, d.pcm)
}

func TestLoadReader_WAV(t *testing.T) {
	t.Parallel()

	reg := audio.NewRegistry()
	reg.Register("wav", wav.Decoder{})
	h := newHarness(t, Config{Channels: 2, Registry: reg})

	data := audiotest.WAV16(testRate, 1, audiotest.Ramp16(500, 1))
	d, err := h.eng.LoadReader(bytes.NewReader(data), "wav", LoadOptions{Predecode: true})
	require.NoError(t, err)
	assert.Equal(t, uint32(1000), d.totalBytes)
	assert.Equal(t, testFormat, d.Format())

	_, err = h.eng.LoadReader(bytes.NewReader(data), "flac", LoadOptions{})
	assert.ErrorIs(t, err, ErrDecodeFailed)
}

func TestFreeData(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{Channels: 2})
	d, s := h.load(t, 1000, LoadOptions{})

	ch, err := h.eng.PlayChannel(-1, d, 0)
	require.NoError(t, err)

	err = h.eng.FreeData(d)
	assert.ErrorIs(t, err, ErrDataInUse)
	assert.Contains(t, h.eng.data, d)

	_, err = h.eng.HaltChannel(ch)
	require.NoError(t, err)
	require.NoError(t, h.eng.FreeData(d))

	assert.True(t, s.closed)
	assert.Nil(t, d.buffers)
	assert.NotContains(t, h.eng.data, d)
}
