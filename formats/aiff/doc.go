// SPDX-License-Identifier: EPL-2.0

// Package aiff decodes Audio Interchange File Format files using
// github.com/go-audio/aiff.
//
// Integer PCM at 8, 16, 24 and 32 bits is accepted. Samples are returned as
// interleaved float32 values in [-1, 1] and the source implements
// audio.Durationer using the frame count from the COMM chunk.
package aiff
