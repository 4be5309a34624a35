// SPDX-License-Identifier: EPL-2.0

package audio

import "fmt"

// Format describes interleaved integer PCM as it is handed to a voice.
type Format struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
	Unsigned      bool
}

// S16 is the signed 16-bit layout every decoder in this module produces.
func S16(sampleRate, channels int) Format {
	return Format{
		SampleRate:    sampleRate,
		Channels:      channels,
		BitsPerSample: 16,
	}
}

func (f Format) BytesPerSample() int { return f.BitsPerSample / 8 }

// FrameSize is the number of bytes holding one sample for every channel.
func (f Format) FrameSize() int { return f.BytesPerSample() * f.Channels }

func (f Format) BytesPerSecond() int { return f.FrameSize() * f.SampleRate }

func (f Format) Valid() bool {
	return f.SampleRate > 0 && f.Channels > 0 && f.BitsPerSample > 0 && f.BitsPerSample%8 == 0
}

func (f Format) String() string {
	sign := "s"
	if f.Unsigned {
		sign = "u"
	}

	return fmt.Sprintf("%s%d %dch %dHz", sign, f.BitsPerSample, f.Channels, f.SampleRate)
}
