// SPDX-License-Identifier: EPL-2.0

package mixer

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/time/rate"

	"github.com/ik5/audmix/audio"
	"github.com/ik5/audmix/voice"
)

// FinishedEvent reports a channel that stopped playing.
type FinishedEvent struct {
	Channel int
	Voice   voice.Handle
	Data    *Data
	// Natural is true when the sound ran out, false when it was halted or
	// expired.
	Natural bool
}

// DataEvent carries the PCM a channel is about to play. It only fires for
// data loaded with AccessData.
type DataEvent struct {
	Channel    int
	Voice      voice.Handle
	Bytes      []byte
	Format     audio.Format
	Predecoded bool
	DurationMs uint32
}

// Engine schedules sounds onto the voices of a device. All methods are safe
// for concurrent use.
type Engine struct {
	mu  sync.Mutex
	dev voice.Device
	cfg Config
	log *slog.Logger

	clock  Clock
	quirks Quirks

	channels []channel
	byVoice  []mapEntry
	reserved int
	playing  int

	data map[*Data]struct{}

	initialized bool
	interrupted atomic.Bool

	errMu   sync.Mutex
	lastErr string

	onFinished func(FinishedEvent)
	onData     func(DataEvent)
	pending    []func()

	pollMu sync.Mutex
	poller *poller
	warn   rate.Sometimes
}

// New allocates cfg.Channels voices on dev. On failure every voice created
// so far is deleted.
func New(dev voice.Device, cfg Config) (*Engine, error) {
	cfg.setDefaults()

	e := &Engine{
		dev:    dev,
		cfg:    cfg,
		log:    cfg.Logger,
		clock:  cfg.Clock,
		quirks: cfg.Quirks,
		data:   make(map[*Data]struct{}),
		warn:   rate.Sometimes{First: 1, Interval: warnInterval},
	}

	e.mu.Lock()
	if _, err := e.allocate(cfg.Channels); err != nil {
		e.deleteAllVoices()
		e.mu.Unlock()
		return nil, err
	}
	if len(e.channels) != cfg.Channels {
		e.deleteAllVoices()
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: allocated %d of %d channels", ErrOutOfMemory, len(e.channels), cfg.Channels)
	}
	e.reserved = cfg.Reserved
	e.initialized = true
	e.mu.Unlock()

	e.log.Debug("engine ready", "channels", cfg.Channels, "reserved", cfg.Reserved, "threaded", cfg.Threaded)

	if cfg.Threaded {
		e.startPoller()
	}

	return e, nil
}

func (e *Engine) deleteAllVoices() {
	voices := make([]voice.Handle, 0, len(e.channels))
	for i := range e.channels {
		voices = append(voices, e.channels[i].voice)
	}
	if err := e.dev.DeleteVoices(voices...); err != nil {
		e.log.Warn("deleting voices", "err", err)
	}
	e.channels = nil
	e.byVoice = nil
}

// Quit halts every channel, stops the poller, deletes all voices and frees
// all loaded data. The device is not closed.
func (e *Engine) Quit() error {
	e.stopPoller()

	e.mu.Lock()
	if !e.initialized {
		e.mu.Unlock()
		return ErrNotInitialized
	}

	e.haltAll(false)
	e.deleteAllVoices()

	var errs []error
	for d := range e.data {
		// Channels are gone, so nothing can still hold the data.
		d.inUse = 0
		if err := e.freeData(d); err != nil {
			errs = append(errs, err)
		}
	}
	e.initialized = false
	e.playing = 0
	e.end()

	return errors.Join(errs...)
}

// IsInitialized reports whether the engine is usable, that is New succeeded
// and Quit has not been called.
func (e *Engine) IsInitialized() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.initialized
}

// begin takes the engine lock for a public call. It fails without blocking
// during an interruption.
func (e *Engine) begin() error {
	if e.interrupted.Load() {
		return ErrInterrupted
	}

	e.mu.Lock()
	if !e.initialized {
		e.mu.Unlock()
		return e.fail(ErrNotInitialized)
	}

	return nil
}

// end releases the lock taken by begin and runs the callbacks queued while
// it was held.
func (e *Engine) end() {
	pending := e.pending
	e.pending = nil
	e.mu.Unlock()

	for _, fn := range pending {
		fn()
	}
}

// fail records err as the last error and returns it.
func (e *Engine) fail(err error) error {
	if err != nil {
		e.SetError(err.Error())
	}

	return err
}

// LastError returns the message of the most recent failing call.
func (e *Engine) LastError() string {
	e.errMu.Lock()
	defer e.errMu.Unlock()

	return e.lastErr
}

// SetError replaces the message returned by LastError.
func (e *Engine) SetError(msg string) {
	e.errMu.Lock()
	e.lastErr = msg
	e.errMu.Unlock()
}

// SetPlaybackFinishedCallback registers fn to run whenever a channel stops.
// fn runs outside the engine lock and may call back into the engine.
func (e *Engine) SetPlaybackFinishedCallback(fn func(FinishedEvent)) {
	e.mu.Lock()
	e.onFinished = fn
	e.mu.Unlock()
}

// SetPlaybackDataCallback registers fn to receive PCM as channels move to a
// new buffer.
func (e *Engine) SetPlaybackDataCallback(fn func(DataEvent)) {
	e.mu.Lock()
	e.onData = fn
	e.mu.Unlock()
}

func (e *Engine) notifyFinished(ch int, natural bool) {
	if e.onFinished == nil {
		return
	}
	fn := e.onFinished
	ev := FinishedEvent{
		Channel: ch,
		Voice:   e.channels[ch].voice,
		Data:    e.channels[ch].data,
		Natural: natural,
	}
	e.pending = append(e.pending, func() { fn(ev) })
}

func (e *Engine) notifyData(ch int, pcm []byte) {
	if e.onData == nil || len(pcm) == 0 {
		return
	}
	d := e.channels[ch].data
	fn := e.onData
	ev := DataEvent{
		Channel:    ch,
		Voice:      e.channels[ch].voice,
		Bytes:      append([]byte(nil), pcm...),
		Format:     d.format,
		Predecoded: d.mode == Predecoded,
		DurationMs: DurationMs(uint32(len(pcm)), d.format),
	}
	e.pending = append(e.pending, func() { fn(ev) })
}
