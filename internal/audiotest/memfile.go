// SPDX-License-Identifier: EPL-2.0

package audiotest

import (
	"errors"
	"io"
)

var errNegativeOffset = errors.New("negative offset")

// MemFile is an in-memory io.WriteSeeker for encoders that patch headers.
type MemFile struct {
	data []byte
	pos  int
}

func (m *MemFile) Write(p []byte) (int, error) {
	if end := m.pos + len(p); end > len(m.data) {
		m.data = append(m.data, make([]byte, end-len(m.data))...)
	}
	n := copy(m.data[m.pos:], p)
	m.pos += n

	return n, nil
}

func (m *MemFile) Seek(offset int64, whence int) (int64, error) {
	var base int
	switch whence {
	case io.SeekCurrent:
		base = m.pos
	case io.SeekEnd:
		base = len(m.data)
	}

	next := base + int(offset)
	if next < 0 {
		return 0, errNegativeOffset
	}
	m.pos = next

	return int64(next), nil
}

func (m *MemFile) Bytes() []byte { return m.data }
func (m *MemFile) Len() int      { return len(m.data) }
