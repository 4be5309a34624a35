// SPDX-License-Identifier: EPL-2.0

// Package sink moves the mix of a soft voice device somewhere audible.
//
// Oto plays it on the default output device through ebitengine/oto. WAV
// renders it into a 16-bit PCM file, which is how tests and offline bounces
// listen to the engine.
package sink
