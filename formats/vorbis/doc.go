// SPDX-License-Identifier: EPL-2.0

// Package vorbis decodes Ogg Vorbis streams with github.com/jfreymuth/oggvorbis.
//
// ReadSamples keeps reading packets until the destination holds as many whole
// frames as fit, so callers that pull fixed-size chunks get full chunks until
// the end of the stream.
package vorbis
