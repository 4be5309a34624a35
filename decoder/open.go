// SPDX-License-Identifier: EPL-2.0

package decoder

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ik5/audmix/audio"
)

// Open looks up the decoder registered for ext and decodes rs with it.
func Open(reg *audio.Registry, ext string, rs io.ReadSeeker, opts Options) (*Sample, error) {
	dec, ok := reg.Get(ext)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, ext)
	}

	return New(rs, dec, opts)
}

// OpenFile opens path and picks the decoder from its extension. The file is
// closed together with the sample.
func OpenFile(reg *audio.Registry, path string, opts Options) (*Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w", err)
	}

	s, err := Open(reg, filepath.Ext(path), f, opts)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	s.closer = f

	return s, nil
}
