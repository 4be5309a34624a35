// SPDX-License-Identifier: EPL-2.0

// Package audmix is a channel mixer for games and tools: it schedules decoded
// sounds onto the voices of a voice device, streaming long sounds through a
// rotating buffer queue and keeping short ones predecoded.
//
// The engine lives in package mixer. This package wires it to the rest of the
// module: a decoder registry covering every bundled format, file opening by
// extension, and an offline bounce of the mix to a WAV file.
//
// # Supported Formats
//
//   - WAV (8/16/24/32-bit PCM) via formats/wav
//   - AIFF via formats/aiff
//   - MP3 via formats/mp3
//   - Ogg Vorbis via formats/vorbis
//   - MIDI via formats/midi, rendered through a SoundFont (see RegisterMIDI)
//
// # Quick Start
//
//	dev := soft.New(soft.Config{})
//	eng, err := mixer.New(dev, mixer.Config{Registry: audmix.NewRegistry()})
//	if err != nil {
//	    return err
//	}
//	defer eng.Quit()
//
//	out, err := sink.NewOto(dev, sink.OtoOptions{})
//	if err != nil {
//	    return err
//	}
//	defer out.Close()
//
//	music, _ := eng.LoadFile("theme.ogg", mixer.LoadOptions{})
//	shot, _ := eng.LoadFile("shot.wav", mixer.LoadOptions{Predecode: true})
//
//	eng.PlayChannel(-1, music, -1)
//	eng.PlayChannel(-1, shot, 0)
//
// Call eng.Update from the main loop, or set mixer.Config.Threaded.
//
// # Offline Rendering
//
// RenderWAV steps the engine and the soft device together and writes the
// result, which makes mixes reproducible in tests:
//
//	f, _ := os.Create("bounce.wav")
//	frames, err := audmix.RenderWAV(f, eng, dev, 10*44100, 1024)
//
// See the individual subpackages for more detailed documentation.
package audmix
