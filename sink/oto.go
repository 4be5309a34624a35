// SPDX-License-Identifier: EPL-2.0

package sink

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/ik5/audmix/voice/soft"
)

// OtoOptions configure the output device. Zero values let oto choose.
type OtoOptions struct {
	// BufferSize is the length of audio the device buffers ahead.
	BufferSize time.Duration
	Logger     *slog.Logger
}

// Oto plays a soft device on the default output. oto allows one context per
// process, so only one Oto may be open at a time.
type Oto struct {
	mu     sync.Mutex
	ctx    *oto.Context
	player *oto.Player
	log    *slog.Logger
	closed bool
}

// NewOto opens the output at the rate of dev and starts pulling its mix.
func NewOto(dev *soft.Device, opts OtoOptions) (*Oto, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   dev.SampleRate(),
		ChannelCount: 2,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   opts.BufferSize,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}
	<-ready

	player := ctx.NewPlayer(dev.Reader())
	player.Play()

	log.Debug("oto output started", "rate", dev.SampleRate(), "buffer", opts.BufferSize)

	return &Oto{ctx: ctx, player: player, log: log}, nil
}

// Suspend pauses the output device. Pair it with mixer.Engine.BeginInterruption.
func (o *Oto) Suspend() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return ErrClosed
	}
	if err := o.ctx.Suspend(); err != nil {
		return fmt.Errorf("%w", err)
	}

	return nil
}

func (o *Oto) Resume() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return ErrClosed
	}
	if err := o.ctx.Resume(); err != nil {
		return fmt.Errorf("%w", err)
	}

	return nil
}

// SetVolume scales the device output, 1 being unchanged.
func (o *Oto) SetVolume(v float64) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.closed {
		o.player.SetVolume(v)
	}
}

// Err reports an asynchronous failure of the player or the device.
func (o *Oto) Err() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.player.Err(); err != nil {
		return fmt.Errorf("%w", err)
	}
	if err := o.ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}

	return nil
}

func (o *Oto) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return nil
	}
	o.closed = true
	o.log.Debug("oto output closed")

	if err := o.player.Close(); err != nil {
		return fmt.Errorf("%w", err)
	}

	return nil
}
