// Package osc implements decoding of OSC 1.0 messages and bundles as used
// by TUIO touch and tangible-object trackers. It handles the binary wire
// format including type-tag strings, 4-byte argument alignment, and
// length-prefixed bundle entries.
package osc
