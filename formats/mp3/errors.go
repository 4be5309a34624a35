// SPDX-License-Identifier: EPL-2.0

package mp3

import "errors"

var (
	ErrNotMP3File    = errors.New("not an MP3 stream")
	ErrUnknownLength = errors.New("MP3 length unknown on a non-seekable input")
)
