// SPDX-License-Identifier: EPL-2.0

package vorbis

import "errors"

var (
	ErrNotVorbisFile = errors.New("not an Ogg Vorbis stream")
	ErrUnknownLength = errors.New("Ogg Vorbis length unknown on a non-seekable input")
)
