// SPDX-License-Identifier: EPL-2.0

package voice

import "github.com/ik5/audmix/audio"

// Handle names a voice. The zero value is never issued.
type Handle uint32

// Buffer names a PCM buffer. The zero value is never issued.
type Buffer uint32

const (
	// None is the null voice handle.
	None Handle = 0
	// NoBuffer detaches every buffer when passed to SetBuffer.
	NoBuffer Buffer = 0
)

// State is the transport state of a voice.
type State int

const (
	Initial State = iota
	Playing
	Paused
	Stopped
)

func (s State) String() string {
	switch s {
	case Initial:
		return "initial"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// GainKind selects which gain value SetGain and Gain address.
type GainKind int

const (
	GainCurrent GainKind = iota
	GainMin
	GainMax
)

// Device is a fixed-function voice API: voices play queued PCM buffers and
// report how many of them have been consumed.
//
// A voice either has one static buffer bound with SetBuffer or a FIFO of
// buffers appended with QueueBuffers. Processed counts the queued buffers
// already played, and only those can be unqueued.
type Device interface {
	GenVoices(n int) ([]Handle, error)
	DeleteVoices(v ...Handle) error

	GenBuffers(n int) ([]Buffer, error)
	DeleteBuffers(b ...Buffer) error
	BufferData(b Buffer, format audio.Format, data []byte) error

	SetBuffer(v Handle, b Buffer) error
	QueueBuffers(v Handle, b ...Buffer) error
	UnqueueBuffers(v Handle, n int) ([]Buffer, error)

	Play(v Handle) error
	Pause(v Handle) error
	Stop(v Handle) error
	Rewind(v Handle) error

	State(v Handle) (State, error)
	Processed(v Handle) (int, error)
	Queued(v Handle) (int, error)

	SetLooping(v Handle, loop bool) error
	// SetOffset moves the play cursor of the current buffer to sec seconds.
	SetOffset(v Handle, sec float64) error

	SetGain(v Handle, kind GainKind, gain float32) error
	Gain(v Handle, kind GainKind) (float32, error)
	SetListenerGain(gain float32) error
	ListenerGain() (float32, error)

	SupportsFormat(format audio.Format) bool

	Suspend() error
	Resume() error
	Close() error
}
