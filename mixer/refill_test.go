// SPDX-License-Identifier: EPL-2.0

package mixer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ik5/audmix/voice"
)

func TestPlanRefill(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		s    refillState
		want refillAction
	}{
		{"eof wins", refillState{eof: true, stopped: true, buffersInUse: 1, maxQueue: 4, processed: 1}, refillDrain},
		{"stopped", refillState{stopped: true, buffersInUse: 4, maxQueue: 4, processed: 4}, refillUnderrun},
		{"unused buffer first", refillState{buffersInUse: 2, maxQueue: 4, processed: 1}, refillFresh},
		{"recycle", refillState{buffersInUse: 4, maxQueue: 4, processed: 2}, refillRecycle},
		{"full and busy", refillState{buffersInUse: 4, maxQueue: 4}, refillIdle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := planRefill(tt.s); got != tt.want {
				t.Errorf("planRefill(%+v) = %s, want %s", tt.s, got, tt.want)
			}
		})
	}
}

func TestAfterEmptyDecode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		loops      int
		wantRewind bool
		wantLoops  int
	}{
		{-1, true, -1},
		{0, false, 0},
		{1, true, 0},
		{5, true, 4},
	}

	for _, tt := range tests {
		rewind, loops := afterEmptyDecode(tt.loops)
		if rewind != tt.wantRewind || loops != tt.wantLoops {
			t.Errorf("afterEmptyDecode(%d) = %v, %d, want %v, %d", tt.loops, rewind, loops, tt.wantRewind, tt.wantLoops)
		}
	}
}

func TestRefillAction_String(t *testing.T) {
	t.Parallel()

	if got := refillRecycle.String(); got != "recycle" {
		t.Errorf("refillRecycle.String() = %q, want %q", got, "recycle")
	}
	if got := refillAction(42).String(); got != "unknown" {
		t.Errorf("refillAction(42).String() = %q, want %q", got, "unknown")
	}
}

func TestUpdate_QueueStaysBounded(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{Channels: 2})
	d, _ := h.load(t, 1000, LoadOptions{MaxQueueBuffers: 3, StartupBuffers: 2, BuffersPerPass: 1, AccessData: true})

	ch, err := h.eng.PlayChannel(-1, d, -1)
	require.NoError(t, err)
	v, err := h.eng.VoiceForChannel(ch)
	require.NoError(t, err)

	steps := []int{0, 37, 100, 250, 999, 150, 1}
	for i := range 300 {
		h.dev.Advance(steps[i%len(steps)])
		n := h.eng.Update()
		require.GreaterOrEqual(t, n, 0, "update %d", i)

		queued, err := h.dev.Queued(v)
		require.NoError(t, err)
		require.LessOrEqual(t, queued, d.maxQueue, "update %d", i)
		require.LessOrEqual(t, d.buffersInUse, d.maxQueue, "update %d", i)
		require.LessOrEqual(t, d.shadow.Len(), d.maxQueue, "update %d", i)
	}

	assert.Equal(t, 1, h.eng.IsActiveChannel(ch))
	assert.Empty(t, h.finishedEvents())
}

func TestUpdate_Underrun(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{Channels: 2})
	d, _ := h.load(t, 1000, LoadOptions{MaxQueueBuffers: 3, StartupBuffers: 2, BuffersPerPass: 1})

	ch, err := h.eng.PlayChannel(-1, d, 0)
	require.NoError(t, err)
	v, err := h.eng.VoiceForChannel(ch)
	require.NoError(t, err)

	// Both startup buffers play out and the voice stops.
	h.dev.Advance(500)
	st, err := h.dev.State(v)
	require.NoError(t, err)
	require.Equal(t, voice.Stopped, st)

	assert.Equal(t, 2, h.eng.Update())

	st, err = h.dev.State(v)
	require.NoError(t, err)
	assert.Equal(t, voice.Playing, st)

	queued, err := h.dev.Queued(v)
	require.NoError(t, err)
	assert.Equal(t, 2, queued)
	assert.Equal(t, 2, d.buffersInUse)
	assert.Equal(t, 1, h.eng.IsPlayingChannel(ch))
	assert.Empty(t, h.finishedEvents())
}

func TestUpdate_DecodeError(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{Channels: 2})
	d, s := h.load(t, 1000, LoadOptions{})

	ch, err := h.eng.PlayChannel(-1, d, 0)
	require.NoError(t, err)

	s.decodeErr = errDecode
	assert.Equal(t, -1, h.eng.Update())
	assert.Equal(t, 1, h.eng.IsActiveChannel(ch))
	assert.True(t, d.eof)

	// The primed buffers play out and the channel is released.
	h.run(ch, 100, 50)

	assert.Equal(t, 0, h.eng.IsActiveChannel(ch))
	assert.Equal(t, 0, d.inUse)
	assert.Equal(t, 0, h.eng.Update())

	events := h.finishedEvents()
	require.Len(t, events, 1)
	assert.Equal(t, ch, events[0].Channel)
	assert.True(t, events[0].Natural)
}

func TestUpdate_DecoderNotReady(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{Channels: 2})
	d, s := h.load(t, 1000, LoadOptions{})

	ch, err := h.eng.PlayChannel(-1, d, 0)
	require.NoError(t, err)

	s.eagain = 2
	assert.Equal(t, 0, h.eng.Update())
	assert.Equal(t, 1, h.eng.IsActiveChannel(ch))

	h.eng.Update()
	assert.Equal(t, DefaultBuffersPerPass, h.eng.Update())
}
