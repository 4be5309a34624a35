// SPDX-License-Identifier: EPL-2.0

package pcmsrc

import "errors"

var ErrUnknownLength = errors.New("stream length unknown")
