// SPDX-License-Identifier: EPL-2.0

package decoder

import "errors"

var (
	ErrUnknownFormat    = errors.New("no decoder registered for format")
	ErrInvalidBuffer    = errors.New("buffer size must hold at least one frame")
	ErrNotSeekable      = errors.New("input is not seekable")
	ErrClosed           = errors.New("sample is closed")
	ErrInvalidSourceFmt = errors.New("source reports an invalid format")
)
