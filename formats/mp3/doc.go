// SPDX-License-Identifier: EPL-2.0

// Package mp3 decodes MPEG-1/2 Layer III streams with
// github.com/hajimehoshi/go-mp3.
//
// The decoder always yields interleaved stereo, whatever the channel mode of
// the stream. When the input is an io.Seeker the source also reports its
// length through audio.Durationer.
package mp3
