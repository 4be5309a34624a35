// SPDX-License-Identifier: EPL-2.0

// Package decoder turns an audio.Source into a chunked PCM stream.
//
// A Sample produces signed 16-bit little-endian chunks of a fixed byte size,
// reports EOF, Error and EAgain through Flags, and can restart or seek the
// stream by decoding the underlying io.ReadSeeker again. Options may ask for a
// different sample rate or channel count, which inserts an audio.Resampler or
// audio.ChannelMixer in front of the encoder.
//
//	s, err := decoder.OpenFile(reg, "music.ogg", decoder.Options{BufferSize: 16384})
//	for {
//	    n, err := s.Decode()
//	    consume(s.Buffer()[:n])
//	    if err != nil || s.Flags().Has(decoder.EOF) {
//	        break
//	    }
//	}
package decoder
