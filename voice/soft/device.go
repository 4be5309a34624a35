// SPDX-License-Identifier: EPL-2.0

package soft

import (
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/dustin/go-humanize"

	"github.com/ik5/audmix/audio"
	"github.com/ik5/audmix/utils"
	"github.com/ik5/audmix/voice"
)

// DefaultSampleRate is the mix rate used when Config.SampleRate is zero.
const DefaultSampleRate = 44100

// Config holds the device settings. Zero values select the defaults.
type Config struct {
	SampleRate int
	Logger     *slog.Logger
}

type pcmBuffer struct {
	format  audio.Format
	samples []float32
	frames  int
	refs    int
}

type voiceState struct {
	state   voice.State
	static  voice.Buffer
	queue   []voice.Buffer
	cur     int
	pos     float64
	startAt float64
	looping bool

	gain    float32
	minGain float32
	maxGain float32
}

// Device is an in-memory voice.Device. Voices are mixed to interleaved
// float32 stereo at the device rate whenever Mix is called.
type Device struct {
	mu sync.Mutex

	rate       int
	log        *slog.Logger
	nextVoice  voice.Handle
	nextBuffer voice.Buffer
	voices     map[voice.Handle]*voiceState
	buffers    map[voice.Buffer]*pcmBuffer
	listener   float32
	suspended  bool
	closed     bool
}

var _ voice.Device = (*Device)(nil)

func New(cfg Config) *Device {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = DefaultSampleRate
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Device{
		rate:     cfg.SampleRate,
		log:      cfg.Logger,
		voices:   make(map[voice.Handle]*voiceState),
		buffers:  make(map[voice.Buffer]*pcmBuffer),
		listener: 1,
	}
}

// SampleRate is the rate of the mixed output.
func (d *Device) SampleRate() int { return d.rate }

func (d *Device) check() error {
	if d.closed {
		return voice.ErrClosed
	}

	return nil
}

func (d *Device) lookup(v voice.Handle) (*voiceState, error) {
	if err := d.check(); err != nil {
		return nil, err
	}
	vs, ok := d.voices[v]
	if !ok {
		return nil, fmt.Errorf("%w: %d", voice.ErrInvalidVoice, v)
	}

	return vs, nil
}

func (d *Device) GenVoices(n int) ([]voice.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.check(); err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, fmt.Errorf("%w: %d voices", voice.ErrInvalidValue, n)
	}

	out := make([]voice.Handle, n)
	for i := range out {
		d.nextVoice++
		d.voices[d.nextVoice] = &voiceState{gain: 1, maxGain: 1, startAt: -1}
		out[i] = d.nextVoice
	}

	return out, nil
}

func (d *Device) DeleteVoices(handles ...voice.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, v := range handles {
		if _, err := d.lookup(v); err != nil {
			return err
		}
	}
	for _, v := range handles {
		d.detach(d.voices[v])
		delete(d.voices, v)
	}

	return nil
}

func (d *Device) GenBuffers(n int) ([]voice.Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.check(); err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, fmt.Errorf("%w: %d buffers", voice.ErrInvalidValue, n)
	}

	out := make([]voice.Buffer, n)
	for i := range out {
		d.nextBuffer++
		d.buffers[d.nextBuffer] = &pcmBuffer{}
		out[i] = d.nextBuffer
	}

	return out, nil
}

func (d *Device) buffer(b voice.Buffer) (*pcmBuffer, error) {
	pb, ok := d.buffers[b]
	if !ok {
		return nil, fmt.Errorf("%w: %d", voice.ErrInvalidBuffer, b)
	}

	return pb, nil
}

func (d *Device) DeleteBuffers(bufs ...voice.Buffer) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.check(); err != nil {
		return err
	}
	for _, b := range bufs {
		pb, err := d.buffer(b)
		if err != nil {
			return err
		}
		if pb.refs > 0 {
			return fmt.Errorf("%w: %d", voice.ErrBufferInUse, b)
		}
	}
	for _, b := range bufs {
		delete(d.buffers, b)
	}

	return nil
}

// BufferData replaces the contents of b. Attached buffers cannot be changed.
func (d *Device) BufferData(b voice.Buffer, format audio.Format, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.check(); err != nil {
		return err
	}
	pb, err := d.buffer(b)
	if err != nil {
		return err
	}
	if pb.refs > 0 {
		return fmt.Errorf("%w: %d", voice.ErrBufferInUse, b)
	}
	if !supports(format) {
		return fmt.Errorf("%w: %s", voice.ErrUnsupported, format)
	}
	if len(data)%format.FrameSize() != 0 {
		return fmt.Errorf("%w: %d bytes is not a whole number of %s frames", voice.ErrInvalidValue, len(data), format)
	}

	count := len(data) / format.BytesPerSample()
	if cap(pb.samples) < count {
		pb.samples = make([]float32, count)
	}
	pb.samples = pb.samples[:count]
	if format.BitsPerSample == 8 {
		utils.U8ToFloat32(pb.samples, data)
	} else {
		utils.S16LEToFloat32(pb.samples, data)
	}
	pb.format = format
	pb.frames = count / format.Channels

	d.log.Debug("buffer data", "buffer", b, "format", format.String(), "size", humanize.Bytes(uint64(len(data))))

	return nil
}

func (d *Device) detach(vs *voiceState) {
	if vs.static != voice.NoBuffer {
		if pb, ok := d.buffers[vs.static]; ok {
			pb.refs--
		}
		vs.static = voice.NoBuffer
	}
	for _, b := range vs.queue {
		if pb, ok := d.buffers[b]; ok {
			pb.refs--
		}
	}
	vs.queue = vs.queue[:0]
	vs.cur = 0
	vs.pos = 0
}

// SetBuffer binds b as the static buffer of v, or detaches everything when b
// is voice.NoBuffer. The voice must be Initial or Stopped.
func (d *Device) SetBuffer(v voice.Handle, b voice.Buffer) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	vs, err := d.lookup(v)
	if err != nil {
		return err
	}
	if vs.state == voice.Playing || vs.state == voice.Paused {
		return fmt.Errorf("%w: set buffer on %s voice", voice.ErrInvalidOperation, vs.state)
	}

	var pb *pcmBuffer
	if b != voice.NoBuffer {
		if pb, err = d.buffer(b); err != nil {
			return err
		}
	}

	d.detach(vs)
	if pb != nil {
		pb.refs++
		vs.static = b
	}

	return nil
}

func (d *Device) QueueBuffers(v voice.Handle, bufs ...voice.Buffer) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	vs, err := d.lookup(v)
	if err != nil {
		return err
	}
	if vs.static != voice.NoBuffer {
		return fmt.Errorf("%w: queue on a voice with a static buffer", voice.ErrInvalidOperation)
	}

	for _, b := range bufs {
		if _, err := d.buffer(b); err != nil {
			return err
		}
	}
	for _, b := range bufs {
		d.buffers[b].refs++
		vs.queue = append(vs.queue, b)
	}

	return nil
}

// UnqueueBuffers removes the n oldest processed buffers from v.
func (d *Device) UnqueueBuffers(v voice.Handle, n int) ([]voice.Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	vs, err := d.lookup(v)
	if err != nil {
		return nil, err
	}
	if n < 0 || n > processed(vs) || vs.static != voice.NoBuffer {
		return nil, fmt.Errorf("%w: unqueue %d of %d processed", voice.ErrInvalidValue, n, processed(vs))
	}

	out := make([]voice.Buffer, n)
	copy(out, vs.queue[:n])
	for _, b := range out {
		if pb, ok := d.buffers[b]; ok {
			pb.refs--
		}
	}
	vs.queue = append(vs.queue[:0], vs.queue[n:]...)
	vs.cur = max(vs.cur-n, 0)

	return out, nil
}

func processed(vs *voiceState) int {
	if vs.static != voice.NoBuffer {
		return 0
	}
	if vs.state == voice.Stopped {
		return len(vs.queue)
	}
	if vs.state == voice.Initial {
		return 0
	}

	return min(vs.cur, len(vs.queue))
}

func (d *Device) hasData(vs *voiceState) bool {
	return vs.static != voice.NoBuffer || len(vs.queue) > 0
}

// Play starts v from the beginning unless it is paused, in which case it
// resumes. Every queued buffer is pending again after a restart.
func (d *Device) Play(v voice.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	vs, err := d.lookup(v)
	if err != nil {
		return err
	}

	if vs.state == voice.Paused {
		vs.state = voice.Playing
		return nil
	}

	vs.cur = 0
	vs.pos = 0
	if vs.startAt >= 0 {
		d.seek(vs, vs.startAt)
		vs.startAt = -1
	}

	if !d.hasData(vs) {
		vs.state = voice.Stopped
		return nil
	}
	vs.state = voice.Playing

	return nil
}

func (d *Device) Pause(v voice.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	vs, err := d.lookup(v)
	if err != nil {
		return err
	}
	if vs.state == voice.Playing {
		vs.state = voice.Paused
	}

	return nil
}

func (d *Device) Stop(v voice.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	vs, err := d.lookup(v)
	if err != nil {
		return err
	}
	vs.state = voice.Stopped
	vs.cur = len(vs.queue)
	vs.pos = 0
	vs.startAt = -1

	return nil
}

func (d *Device) Rewind(v voice.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	vs, err := d.lookup(v)
	if err != nil {
		return err
	}
	vs.state = voice.Initial
	vs.cur = 0
	vs.pos = 0
	vs.startAt = -1

	return nil
}

func (d *Device) State(v voice.Handle) (voice.State, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	vs, err := d.lookup(v)
	if err != nil {
		return voice.Initial, err
	}

	return vs.state, nil
}

func (d *Device) Processed(v voice.Handle) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	vs, err := d.lookup(v)
	if err != nil {
		return 0, err
	}

	return processed(vs), nil
}

func (d *Device) Queued(v voice.Handle) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	vs, err := d.lookup(v)
	if err != nil {
		return 0, err
	}
	if vs.static != voice.NoBuffer {
		return 1, nil
	}

	return len(vs.queue), nil
}

func (d *Device) SetLooping(v voice.Handle, loop bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	vs, err := d.lookup(v)
	if err != nil {
		return err
	}
	vs.looping = loop

	return nil
}

// SetOffset moves the cursor sec seconds into the attached data. On an
// Initial or Stopped voice the offset applies at the next Play.
func (d *Device) SetOffset(v voice.Handle, sec float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	vs, err := d.lookup(v)
	if err != nil {
		return err
	}
	if sec < 0 || sec*float64(d.rate) >= float64(d.totalDeviceFrames(vs)) {
		return fmt.Errorf("%w: offset %.3fs", voice.ErrInvalidValue, sec)
	}

	if vs.state == voice.Playing || vs.state == voice.Paused {
		d.seek(vs, sec)
		return nil
	}
	vs.startAt = sec

	return nil
}

// totalDeviceFrames is the length of the attached data at the device rate.
func (d *Device) totalDeviceFrames(vs *voiceState) int {
	total := 0.0
	for _, b := range d.attached(vs) {
		if pb, ok := d.buffers[b]; ok && pb.frames > 0 {
			total += float64(pb.frames) * float64(d.rate) / float64(pb.format.SampleRate)
		}
	}

	return int(total)
}

func (d *Device) attached(vs *voiceState) []voice.Buffer {
	if vs.static != voice.NoBuffer {
		return []voice.Buffer{vs.static}
	}

	return vs.queue
}

func (d *Device) seek(vs *voiceState, sec float64) {
	for i, b := range d.attached(vs) {
		pb, ok := d.buffers[b]
		if !ok || pb.frames == 0 {
			continue
		}
		frames := sec * float64(pb.format.SampleRate)
		if frames < float64(pb.frames) {
			vs.cur = i
			vs.pos = frames
			return
		}
		sec -= float64(pb.frames) / float64(pb.format.SampleRate)
	}
}

func (d *Device) SetGain(v voice.Handle, kind voice.GainKind, gain float32) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	vs, err := d.lookup(v)
	if err != nil {
		return err
	}
	if gain < 0 || math.IsNaN(float64(gain)) {
		return fmt.Errorf("%w: gain %v", voice.ErrInvalidValue, gain)
	}

	switch kind {
	case voice.GainCurrent:
		vs.gain = gain
	case voice.GainMin:
		if gain > 1 {
			return fmt.Errorf("%w: min gain %v", voice.ErrInvalidValue, gain)
		}
		vs.minGain = gain
	case voice.GainMax:
		if gain > 1 {
			return fmt.Errorf("%w: max gain %v", voice.ErrInvalidValue, gain)
		}
		vs.maxGain = gain
	default:
		return fmt.Errorf("%w: gain kind %d", voice.ErrInvalidValue, kind)
	}

	return nil
}

func (d *Device) Gain(v voice.Handle, kind voice.GainKind) (float32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	vs, err := d.lookup(v)
	if err != nil {
		return 0, err
	}

	switch kind {
	case voice.GainCurrent:
		return vs.gain, nil
	case voice.GainMin:
		return vs.minGain, nil
	case voice.GainMax:
		return vs.maxGain, nil
	default:
		return 0, fmt.Errorf("%w: gain kind %d", voice.ErrInvalidValue, kind)
	}
}

func (d *Device) SetListenerGain(gain float32) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.check(); err != nil {
		return err
	}
	if gain < 0 || math.IsNaN(float64(gain)) {
		return fmt.Errorf("%w: listener gain %v", voice.ErrInvalidValue, gain)
	}
	d.listener = gain

	return nil
}

func (d *Device) ListenerGain() (float32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.check(); err != nil {
		return 0, err
	}

	return d.listener, nil
}

func supports(f audio.Format) bool {
	if f.SampleRate <= 0 || (f.Channels != 1 && f.Channels != 2) {
		return false
	}

	switch f.BitsPerSample {
	case 8:
		return f.Unsigned
	case 16:
		return !f.Unsigned
	default:
		return false
	}
}

// SupportsFormat accepts unsigned 8-bit and signed 16-bit mono or stereo.
func (d *Device) SupportsFormat(f audio.Format) bool { return supports(f) }

// Suspend freezes every voice; Mix produces silence until Resume.
func (d *Device) Suspend() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.check(); err != nil {
		return err
	}
	d.suspended = true

	return nil
}

func (d *Device) Resume() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.check(); err != nil {
		return err
	}
	d.suspended = false

	return nil
}

func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	d.log.Debug("soft device closed", "voices", len(d.voices), "buffers", len(d.buffers))
	clear(d.voices)
	clear(d.buffers)

	return nil
}
