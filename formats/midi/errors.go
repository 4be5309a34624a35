// SPDX-License-Identifier: EPL-2.0

package midi

import "errors"

var (
	ErrNoSoundFont      = errors.New("no SoundFont loaded")
	ErrInvalidSoundFont = errors.New("invalid SoundFont")
	ErrNotMidiFile      = errors.New("not a Standard MIDI File")
	ErrRender           = errors.New("synthesizer failed")
)
