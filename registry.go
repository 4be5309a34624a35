// SPDX-License-Identifier: EPL-2.0

package audmix

import (
	"fmt"
	"io"

	"github.com/ik5/audmix/audio"
	"github.com/ik5/audmix/decoder"
	"github.com/ik5/audmix/formats/aiff"
	"github.com/ik5/audmix/formats/midi"
	"github.com/ik5/audmix/formats/mp3"
	"github.com/ik5/audmix/formats/vorbis"
	"github.com/ik5/audmix/formats/wav"
)

// NewRegistry returns a registry holding every bundled decoder that needs no
// extra data, keyed by the usual file extensions.
func NewRegistry() *audio.Registry {
	reg := audio.NewRegistry()

	reg.Register("wav", wav.Decoder{})
	reg.Register("wave", wav.Decoder{})
	reg.Register("aiff", aiff.Decoder{})
	reg.Register("aif", aiff.Decoder{})
	reg.Register("mp3", mp3.Decoder{})
	reg.Register("ogg", vorbis.Decoder{})
	reg.Register("oga", vorbis.Decoder{})

	return reg
}

// RegisterMIDI loads the SoundFont in sf and registers a MIDI decoder that
// renders at sampleRate.
func RegisterMIDI(reg *audio.Registry, sf io.Reader, sampleRate int) error {
	dec, err := midi.NewDecoder(sf, sampleRate)
	if err != nil {
		return fmt.Errorf("%w", err)
	}

	reg.Register("mid", dec)
	reg.Register("midi", dec)

	return nil
}

// OpenFile opens path as a pull decoder using the bundled formats.
func OpenFile(path string, opts decoder.Options) (*decoder.Sample, error) {
	return decoder.OpenFile(NewRegistry(), path, opts)
}
