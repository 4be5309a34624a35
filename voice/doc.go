// SPDX-License-Identifier: EPL-2.0

// Package voice defines the hardware voice API the mixer drives.
//
// The contract follows the fixed-function model of OpenAL sources: a voice
// plays either a single bound buffer or a queue of buffers, reports its
// transport State and the number of processed and queued buffers, and has a
// current gain clamped between a per-voice min and max. Device
// implementations live in sub-packages; soft is a pure Go one.
package voice
