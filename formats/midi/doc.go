// SPDX-License-Identifier: EPL-2.0

// Package midi renders Standard MIDI Files to PCM with
// github.com/sinshu/go-meltysynth.
//
// A Decoder needs a SoundFont 2 bank. Rendering stops once the song length is
// reached; release tails past the last event are cut.
package midi
