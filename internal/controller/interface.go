// Package controller turns physical input (keyboard, Bluetooth media keys)
// into transport commands.
package controller

import "time"

// Transport is the set of commands a controller can issue. Satisfied by
// the session.
type Transport interface {
	TogglePlayback()
	Next()
	Previous()
	Stop()
	SeekBy(delta time.Duration)
	VolumeUp()
	VolumeDown()
}

type Controller interface {
	// Run blocks reading input until the user quits or the device fails.
	Run(t Transport) error
	Stop() error
}

const seekStep = 5 * time.Second
