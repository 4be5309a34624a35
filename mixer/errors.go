// SPDX-License-Identifier: EPL-2.0

package mixer

import "errors"

var (
	ErrInvalidChannel      = errors.New("invalid channel")
	ErrChannelInUse        = errors.New("channel already in use")
	ErrNoChannelsAvailable = errors.New("no free channels available")
	ErrNotFound            = errors.New("not found")
	ErrUnsupportedFormat   = errors.New("unsupported sound format")
	ErrOutOfMemory         = errors.New("out of memory")
	ErrHardwareCallFailed  = errors.New("voice device call failed")
	ErrDecodeFailed        = errors.New("decode failed")
	ErrPlayFailed          = errors.New("play failed")
	ErrDataInUse           = errors.New("sound data is in use")
	ErrNotInitialized      = errors.New("engine not initialized")
	ErrInterrupted         = errors.New("engine is in an interruption")
)
