// SPDX-License-Identifier: EPL-2.0

package utils

import "encoding/binary"

func Float32ToInt16(x float32) int16 {
	// Clamp and scale
	if x > 1 {
		x = 1
	} else if x < -1 {
		x = -1
	}

	// Use 32767 for positive max to avoid overflow
	return int16(x * 32767.0)
}

// PutS16LE encodes src as signed 16-bit little-endian PCM into dst and
// returns the number of bytes written. dst must hold 2*len(src) bytes.
func PutS16LE(dst []byte, src []float32) int {
	for i, v := range src {
		binary.LittleEndian.PutUint16(dst[2*i:], uint16(Float32ToInt16(v)))
	}

	return 2 * len(src)
}

// S16LEToFloat32 decodes signed 16-bit little-endian PCM from src into dst
// and returns the number of samples written.
func S16LEToFloat32(dst []float32, src []byte) int {
	n := min(len(dst), len(src)/2)
	for i := range n {
		dst[i] = float32(int16(binary.LittleEndian.Uint16(src[2*i:]))) / 32768.0
	}

	return n
}

// U8ToFloat32 decodes unsigned 8-bit PCM from src into dst.
func U8ToFloat32(dst []float32, src []byte) int {
	n := min(len(dst), len(src))
	for i := range n {
		dst[i] = (float32(src[i]) - 128) / 128.0
	}

	return n
}
