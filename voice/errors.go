// SPDX-License-Identifier: EPL-2.0

package voice

import "errors"

var (
	ErrInvalidVoice     = errors.New("invalid voice")
	ErrInvalidBuffer    = errors.New("invalid buffer")
	ErrInvalidValue     = errors.New("invalid value")
	ErrInvalidOperation = errors.New("invalid operation")
	ErrBufferInUse      = errors.New("buffer is attached to a voice")
	ErrUnsupported      = errors.New("unsupported format")
	ErrSuspended        = errors.New("device suspended")
	ErrClosed           = errors.New("device closed")
)
