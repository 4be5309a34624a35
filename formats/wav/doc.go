// SPDX-License-Identifier: EPL-2.0

// Package wav decodes and encodes RIFF/WAVE files on top of
// github.com/go-audio/wav.
//
// Decoder accepts integer PCM at 8, 16, 24 or 32 bits and yields an
// audio.Source of float32 samples in [-1, 1]. 8-bit data is unsigned as the
// format requires. The returned source also reports its length:
//
//	src, err := wav.Decoder{}.Decode(f)
//	if d, ok := src.(audio.Durationer); ok {
//	    length, _ := d.Duration()
//	}
//
// Writer encodes 16-bit PCM. The destination must be an io.WriteSeeker
// because the RIFF and data sizes are patched when the writer is closed:
//
//	f, _ := os.Create("out.wav")
//	w, _ := wav.NewWriter(f, 44100, 2)
//	_ = w.WriteFloat32(mix)
//	_ = w.Close()
package wav
