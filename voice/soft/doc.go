// SPDX-License-Identifier: EPL-2.0

// Package soft is a pure Go voice.Device.
//
// Voices and buffers live in memory. Nothing plays until Mix, Advance, or a
// read from Source or Reader pulls frames out of the device, so tests can step
// time deterministically and a real output (see package sink) can drive it
// from its own goroutine.
//
// Playback follows the OpenAL source model, including its rough edges: Play
// on a stopped voice marks every queued buffer pending again, so buffers that
// were already processed are heard twice unless they are unqueued first.
package soft
