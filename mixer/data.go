// SPDX-License-Identifier: EPL-2.0

package mixer

import (
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/ik5/audmix/audio"
	"github.com/ik5/audmix/decoder"
	"github.com/ik5/audmix/internal/ring"
	"github.com/ik5/audmix/voice"
)

// Sample is the decoder a Data pulls PCM from. *decoder.Sample implements it.
type Sample interface {
	Info() audio.Format
	Decode() (int, error)
	DecodeAll() (int, error)
	Buffer() []byte
	SetBufferSize(size int) error
	Rewind() error
	Seek(ms uint32) error
	Flags() decoder.Flags
	Duration() time.Duration
	Close() error
}

var _ Sample = (*decoder.Sample)(nil)

// Mode tells whether a sound is uploaded whole or streamed.
type Mode int

const (
	Predecoded Mode = iota
	Streaming
)

func (m Mode) String() string {
	if m == Streaming {
		return "streaming"
	}

	return "predecoded"
}

// Load defaults.
const (
	DefaultBufferSize      = 8192
	DefaultMaxQueueBuffers = 12
	DefaultStartupBuffers  = 4
	DefaultBuffersPerPass  = 2
)

// LoadOptions tune how a sound is decoded and queued.
type LoadOptions struct {
	// BufferSize is the decode chunk size in bytes.
	BufferSize int
	// Predecode uploads the whole sound as one buffer.
	Predecode bool
	// MaxQueueBuffers is the number of buffers a stream rotates through.
	MaxQueueBuffers int
	// StartupBuffers are filled before a stream starts playing.
	StartupBuffers int
	// BuffersPerPass caps the refills per channel in one Update.
	BuffersPerPass int
	// AccessData keeps copies of the PCM for the data callback and lets
	// predecoded sounds be seeked.
	AccessData bool
}

func (o *LoadOptions) setDefaults() {
	if o.BufferSize <= 0 {
		o.BufferSize = DefaultBufferSize
	}
	if o.MaxQueueBuffers < 2 {
		o.MaxQueueBuffers = DefaultMaxQueueBuffers
	}
	if o.StartupBuffers <= 0 {
		o.StartupBuffers = DefaultStartupBuffers
	}
	if o.BuffersPerPass <= 0 {
		o.BuffersPerPass = DefaultBuffersPerPass
	}
	o.StartupBuffers = min(o.StartupBuffers, o.MaxQueueBuffers)
	o.BuffersPerPass = min(o.BuffersPerPass, o.MaxQueueBuffers)
}

// Data is a loaded sound. Streaming data plays on one channel at a time;
// predecoded data may be shared.
type Data struct {
	mode   Mode
	format audio.Format
	sample Sample

	inUse int
	eof   bool

	totalBytes  uint32
	loadedBytes uint32
	total       time.Duration

	buffers      []voice.Buffer
	buffersInUse int
	maxQueue     int
	startup      int
	perPass      int

	access map[voice.Buffer][]byte
	shadow *ring.Queue[voice.Buffer]
	pcm    []byte
}

func (d *Data) Mode() Mode           { return d.mode }
func (d *Data) Format() audio.Format { return d.format }

// DurationMs converts a byte count of f to milliseconds, rounding half up.
func DurationMs(bytes uint32, f audio.Format) uint32 {
	if bytes == 0 || f.BytesPerSecond() == 0 {
		return 0
	}

	return uint32(float64(bytes)/float64(f.BytesPerSecond())*1000 + 0.5)
}

// BytesForMs converts milliseconds of f to bytes, rounding half up and then
// down to a whole frame.
func BytesForMs(ms uint32, f audio.Format) uint32 {
	n := uint32(float64(f.BytesPerSecond())*float64(ms)/1000 + 0.5)
	if frameSize := uint32(f.FrameSize()); frameSize > 0 {
		n -= n % frameSize
	}

	return n
}

// Duration converts a byte count of f to a duration. Partial frames are
// dropped.
func Duration(bytes uint32, f audio.Format) time.Duration {
	frameSize := f.FrameSize()
	if frameSize == 0 || f.SampleRate == 0 {
		return 0
	}
	frames := int64(bytes) / int64(frameSize)

	return time.Duration(frames * int64(time.Second) / int64(f.SampleRate))
}

// BytesForDuration converts a duration of f to bytes, rounded to the
// nearest whole frame.
func BytesForDuration(d time.Duration, f audio.Format) uint32 {
	if d <= 0 {
		return 0
	}
	frames := math.Round(d.Seconds() * float64(f.SampleRate))

	return uint32(frames) * uint32(f.FrameSize())
}

// msToBytePos is the frame-aligned byte offset of ms into a stream of f.
func msToBytePos(ms uint32, f audio.Format) uint32 {
	frameSize := uint32(f.FrameSize())
	if frameSize == 0 {
		return 0
	}
	pos := uint32(float64(frameSize)*float64(f.SampleRate)/1000*float64(ms) + 0.5)

	return pos - pos%frameSize
}

// LoadSample wraps s in a Data. The engine owns s from then on and closes it
// when the load fails or the data is freed.
func (e *Engine) LoadSample(s Sample, opts LoadOptions) (*Data, error) {
	if err := e.begin(); err != nil {
		return nil, err
	}
	defer e.end()

	d, err := e.load(s, opts)
	if err != nil {
		_ = s.Close()
		return nil, e.fail(err)
	}

	return d, nil
}

// LoadFile decodes path with the decoder registered for its extension.
func (e *Engine) LoadFile(path string, opts LoadOptions) (*Data, error) {
	s, err := decoder.OpenFile(e.cfg.Registry, path, decoder.Options{BufferSize: opts.BufferSize})
	if err != nil {
		return nil, e.fail(fmt.Errorf("%w: %s: %w", ErrDecodeFailed, path, err))
	}

	return e.LoadSample(s, opts)
}

// LoadReader decodes rs with the decoder registered for ext.
func (e *Engine) LoadReader(rs io.ReadSeeker, ext string, opts LoadOptions) (*Data, error) {
	s, err := decoder.Open(e.cfg.Registry, ext, rs, decoder.Options{BufferSize: opts.BufferSize})
	if err != nil {
		return nil, e.fail(fmt.Errorf("%w: %w", ErrDecodeFailed, err))
	}

	return e.LoadSample(s, opts)
}

func (e *Engine) load(s Sample, opts LoadOptions) (*Data, error) {
	opts.setDefaults()

	format := s.Info()
	if !e.dev.SupportsFormat(format) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	if err := s.SetBufferSize(opts.BufferSize); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecodeFailed, err)
	}

	d := &Data{
		format:   format,
		sample:   s,
		maxQueue: opts.MaxQueueBuffers,
		startup:  opts.StartupBuffers,
		perPass:  opts.BuffersPerPass,
	}

	var err error
	if opts.Predecode {
		err = e.loadPredecoded(d, opts)
	} else {
		err = e.loadStreaming(d, opts)
	}
	if err != nil {
		return nil, err
	}

	e.data[d] = struct{}{}
	e.log.Debug("sound loaded",
		"mode", d.mode.String(),
		"format", format.String(),
		"size", humanize.Bytes(uint64(d.totalBytes)),
		"length", d.total,
	)

	return d, nil
}

func (e *Engine) loadStreaming(d *Data, opts LoadOptions) error {
	s := d.sample

	n, err := s.Decode()
	if err == nil && n == 0 && s.Flags().Has(decoder.EAgain) {
		n, err = s.Decode()
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDecodeFailed, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: no data", ErrDecodeFailed)
	}

	// The whole sound fit in the probe chunk.
	if s.Flags().Has(decoder.EOF) {
		return e.uploadPredecoded(d, s.Buffer()[:n], opts.AccessData)
	}

	d.mode = Streaming
	d.total = s.Duration()

	bufs, err := e.dev.GenBuffers(d.maxQueue)
	if err != nil {
		return fmt.Errorf("%w: %w: %w", ErrOutOfMemory, ErrHardwareCallFailed, err)
	}
	d.buffers = bufs

	if err := s.Rewind(); err != nil {
		_ = e.dev.DeleteBuffers(bufs...)
		return fmt.Errorf("%w: rewind after probe: %w", ErrDecodeFailed, err)
	}

	if opts.AccessData {
		d.access = make(map[voice.Buffer][]byte, len(bufs))
		for _, b := range bufs {
			d.access[b] = make([]byte, 0, opts.BufferSize)
		}
		d.shadow = ring.New[voice.Buffer](d.maxQueue)
	}

	return nil
}

func (e *Engine) loadPredecoded(d *Data, opts LoadOptions) error {
	s := d.sample

	if length := s.Duration(); length > 0 {
		size := int(BytesForDuration(length, d.format)) + d.format.FrameSize()
		if err := s.SetBufferSize(size); err != nil {
			e.log.Debug("keeping default decode buffer", "err", err)
		}
	}

	n, err := s.DecodeAll()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDecodeFailed, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: no data", ErrDecodeFailed)
	}

	return e.uploadPredecoded(d, s.Buffer()[:n], opts.AccessData)
}

func (e *Engine) uploadPredecoded(d *Data, pcm []byte, keep bool) error {
	d.mode = Predecoded

	bufs, err := e.dev.GenBuffers(1)
	if err != nil {
		return fmt.Errorf("%w: %w: %w", ErrOutOfMemory, ErrHardwareCallFailed, err)
	}
	if err := e.dev.BufferData(bufs[0], d.format, pcm); err != nil {
		_ = e.dev.DeleteBuffers(bufs...)
		return fmt.Errorf("%w: upload: %w", ErrHardwareCallFailed, err)
	}

	d.buffers = bufs
	d.totalBytes = uint32(len(pcm))
	d.loadedBytes = d.totalBytes
	d.total = Duration(d.totalBytes, d.format)

	if keep {
		d.pcm = append([]byte(nil), pcm...)
		return nil
	}

	if err := d.sample.Close(); err != nil {
		e.log.Debug("closing decoder", "err", err)
	}
	d.sample = nil

	return nil
}

// FreeData releases the buffers and decoder of d. Data bound to a channel
// is left alone and ErrDataInUse is returned.
func (e *Engine) FreeData(d *Data) error {
	if err := e.begin(); err != nil {
		return err
	}
	defer e.end()

	return e.fail(e.freeData(d))
}

func (e *Engine) freeData(d *Data) error {
	if d == nil {
		return nil
	}
	if d.inUse > 0 {
		e.log.Warn("refusing to free sound still playing", "channels", d.inUse)
		return fmt.Errorf("%w: bound to %d channel(s)", ErrDataInUse, d.inUse)
	}

	var errs []error
	if err := e.dev.DeleteBuffers(d.buffers...); err != nil {
		errs = append(errs, fmt.Errorf("%w: %w", ErrHardwareCallFailed, err))
	}
	d.buffers = nil
	if d.sample != nil {
		if err := d.sample.Close(); err != nil {
			errs = append(errs, err)
		}
		d.sample = nil
	}
	d.access = nil
	d.shadow = nil
	d.pcm = nil
	delete(e.data, d)

	return errors.Join(errs...)
}

// TotalTime is the length of d, or -1 when a stream cannot report it or d
// is nil.
func (e *Engine) TotalTime(d *Data) time.Duration {
	if err := e.begin(); err != nil {
		return -1
	}
	defer e.end()

	if d == nil {
		e.fail(fmt.Errorf("%w: nil data", ErrNotFound))
		return -1
	}

	return d.total
}

// IsPredecoded reports whether d is held in a single buffer.
func (e *Engine) IsPredecoded(d *Data) bool {
	if err := e.begin(); err != nil {
		return false
	}
	defer e.end()

	if d == nil {
		e.fail(fmt.Errorf("%w: nil data", ErrNotFound))
		return false
	}

	return d.mode == Predecoded
}
