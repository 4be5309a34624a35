// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"

	"github.com/ik5/audmix/utils"
)

// Writer streams float32 frames into a 16-bit PCM WAV file.
// The header sizes are patched on Close, so w must be seekable.
type Writer struct {
	enc    *gowav.Encoder
	buf    *goaudio.IntBuffer
	frames int
}

func NewWriter(w io.WriteSeeker, sampleRate, channels int) (*Writer, error) {
	if channels <= 0 {
		return nil, ErrInvalidChannels
	}

	return &Writer{
		enc: gowav.NewEncoder(w, sampleRate, 16, channels, wavFormatPCM),
		buf: &goaudio.IntBuffer{
			Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
			SourceBitDepth: 16,
		},
	}, nil
}

// WriteFloat32 appends interleaved samples in [-1,1].
func (w *Writer) WriteFloat32(samples []float32) error {
	if cap(w.buf.Data) < len(samples) {
		w.buf.Data = make([]int, len(samples))
	}
	w.buf.Data = w.buf.Data[:len(samples)]

	for i, v := range samples {
		w.buf.Data[i] = int(utils.Float32ToInt16(v))
	}

	return w.write()
}

// WriteInt16 appends interleaved 16-bit samples.
func (w *Writer) WriteInt16(samples []int16) error {
	if cap(w.buf.Data) < len(samples) {
		w.buf.Data = make([]int, len(samples))
	}
	w.buf.Data = w.buf.Data[:len(samples)]

	for i, v := range samples {
		w.buf.Data[i] = int(v)
	}

	return w.write()
}

func (w *Writer) write() error {
	if err := w.enc.Write(w.buf); err != nil {
		return fmt.Errorf("%w", err)
	}
	w.frames += len(w.buf.Data) / w.buf.Format.NumChannels

	return nil
}

// Frames is the number of frames written so far.
func (w *Writer) Frames() int { return w.frames }

func (w *Writer) Close() error {
	if err := w.enc.Close(); err != nil {
		return fmt.Errorf("%w", err)
	}

	return nil
}

// WriteWAV16 writes interleaved 16-bit samples as a PCM WAV file.
func WriteWAV16(w io.WriteSeeker, sampleRate, channels int, samples []int16) error {
	wr, err := NewWriter(w, sampleRate, channels)
	if err != nil {
		return err
	}
	if err := wr.WriteInt16(samples); err != nil {
		return err
	}

	return wr.Close()
}
