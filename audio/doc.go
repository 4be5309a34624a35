// SPDX-License-Identifier: EPL-2.0

// Package audio provides the low-level building blocks shared by the format
// decoders and the mixing engine.
//
// This package contains:
//   - Source interface for float32 audio input
//   - Format, the integer PCM layout handed to voices
//   - Resampler for sample rate conversion
//   - ChannelMixer for mono/stereo layout conversion
//   - Format registry for decoder lookup by file extension
//
// # Source Interface
//
// The Source interface is the foundation of audio processing:
//
//	type Source interface {
//	    SampleRate() int
//	    Channels() int
//	    ReadSamples(dst []float32) (int, error)
//	    BufSize() int
//	    Close() error
//	}
//
// All audio decoders and processors implement this interface, allowing
// them to be chained together. Sources that know their length up front
// also implement Durationer.
//
// # Resampling and Layout
//
//	resampler := audio.NewResampler(source, 48000)
//	stereo, err := audio.NewChannelMixer(resampler, 2)
//
// The decoder package uses both to deliver a sound in the layout a caller
// asked for at load time.
//
// # Format Registry
//
//	registry := audio.NewRegistry()
//	registry.Register("wav", wav.Decoder{})
//	decoder, ok := registry.Get(".WAV")
//
// Keys are case-insensitive and a leading dot is ignored, so
// filepath.Ext output can be used directly.
//
// # Sample Format
//
// Sources produce float32 samples in the range [-1.0, 1.0]. The decoder
// package converts them to signed 16-bit PCM before they reach a voice.
//
// # Error Handling
//
// ReadSamples returns io.EOF when no more data is available. It may return
// the final samples together with io.EOF.
package audio
