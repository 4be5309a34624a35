// SPDX-License-Identifier: EPL-2.0

package audmix

import (
	"io"

	"github.com/ik5/audmix/mixer"
	"github.com/ik5/audmix/sink"
	"github.com/ik5/audmix/voice/soft"
)

// RenderWAV bounces the mix of eng into w as 16-bit stereo WAV at the rate of
// dev, which must be the device eng was created on.
//
// It alternates eng.Update with chunk frames of mixing until every channel is
// free or limit frames are written, and returns the number of frames written.
// Looping sounds therefore run until the limit. Do not combine it with a
// threaded engine, whose poller would race the render loop.
func RenderWAV(w io.WriteSeeker, eng *mixer.Engine, dev *soft.Device, limit, chunk int) (int, error) {
	if chunk <= 0 {
		return 0, ErrInvalidChunk
	}
	if limit < 0 {
		return 0, ErrInvalidLimit
	}

	s, err := sink.NewWAV(w, dev)
	if err != nil {
		return 0, err
	}

	for s.Frames() < limit {
		// Per-channel failures are logged by the engine.
		eng.Update()
		if eng.CountUsedChannels() == 0 {
			break
		}
		if err := s.Render(min(chunk, limit-s.Frames())); err != nil {
			_ = s.Close()
			return s.Frames(), err
		}
	}

	return s.Frames(), s.Close()
}
