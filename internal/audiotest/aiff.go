// SPDX-License-Identifier: EPL-2.0

package audiotest

import (
	"bytes"
	"encoding/binary"

	goaudio "github.com/go-audio/audio"
)

// AIFF16 builds a 16-bit big-endian AIFF file with a COMM and an SSND chunk
// holding samples.
func AIFF16(sampleRate, channels int, samples []int16) []byte {
	buf := new(bytes.Buffer)

	dataSize := uint32(len(samples) * 2)
	frames := uint32(0)
	if channels > 0 {
		frames = uint32(len(samples) / channels)
	}

	buf.WriteString("FORM")
	_ = binary.Write(buf, binary.BigEndian, 4+(8+18)+(8+8+dataSize))
	buf.WriteString("AIFF")

	buf.WriteString("COMM")
	_ = binary.Write(buf, binary.BigEndian, uint32(18))
	_ = binary.Write(buf, binary.BigEndian, uint16(channels))
	_ = binary.Write(buf, binary.BigEndian, frames)
	_ = binary.Write(buf, binary.BigEndian, uint16(16))
	rate := goaudio.IntToIEEEFloat(sampleRate)
	buf.Write(rate[:])

	buf.WriteString("SSND")
	_ = binary.Write(buf, binary.BigEndian, 8+dataSize)
	_ = binary.Write(buf, binary.BigEndian, uint32(0)) // offset
	_ = binary.Write(buf, binary.BigEndian, uint32(0)) // block size
	_ = binary.Write(buf, binary.BigEndian, samples)

	return buf.Bytes()
}
