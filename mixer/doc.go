// SPDX-License-Identifier: EPL-2.0

// Package mixer schedules decoded sounds onto the voices of a voice.Device.
//
// An Engine owns a table of channels. Each channel owns one voice and tracks
// what plays on it: the bound Data, loop count, expire timer and fade.
// Sounds are loaded either predecoded, as one buffer that several channels
// may share, or streaming, as a rotating set of buffers refilled from the
// decoder while the channel plays. A stream plays on one channel at a time.
//
// Nothing happens between calls unless Update runs. Call it once per frame,
// or set Config.Threaded to run it on a background goroutine:
//
//	dev := soft.New(soft.Config{})
//	eng, err := mixer.New(dev, mixer.Config{Channels: 8, Registry: reg})
//	if err != nil {
//	    return err
//	}
//	defer eng.Quit()
//
//	music, err := eng.LoadFile("theme.ogg", mixer.LoadOptions{})
//	if err != nil {
//	    return err
//	}
//	ch, err := eng.PlayChannel(-1, music, -1)
//	...
//	for running {
//	    eng.Update()
//	}
//
// Channel arguments accept -1 to mean "any free channel" for the play
// calls and "every channel" for the others. The *Voice variants address a
// channel by its voice handle instead, with voice.None in the role of -1.
//
// Finished and data callbacks are queued while the engine lock is held and
// run after it is released, so they may call back into the engine.
//
// Failing calls return an error wrapping one of the Err* sentinels and also
// store its message, available through LastError.
package mixer
