// SPDX-License-Identifier: EPL-2.0

package audmix

import "errors"

var (
	ErrInvalidChunk = errors.New("chunk size must be positive")
	ErrInvalidLimit = errors.New("frame limit must not be negative")
)
