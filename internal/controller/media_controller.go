//go:build linux

package controller

import (
	"fmt"
	"strings"

	"github.com/gvalkov/golang-evdev"
)

// MediaController listens to a Bluetooth headset's AVRCP media keys via
// evdev.
type MediaController struct {
	device *evdev.InputDevice
}

func New() (Controller, error) {
	devices, err := evdev.ListInputDevices()
	if err != nil {
		return nil, err
	}

	var bestCandidate *evdev.InputDevice

	for _, dev := range devices {
		// Bluetooth media devices almost always have "AVRCP" in the name
		// e.g., "Sony WH-1000XM3 (AVRCP)" or "Pixel Buds (AVRCP)"
		if strings.Contains(dev.Name, "AVRCP") {
			fmt.Printf("Found Bluetooth Media Device: %s (%s)\n", dev.Name, dev.Fn)
			bestCandidate = dev
			break
		}
	}

	if bestCandidate == nil {
		return nil, fmt.Errorf("no Bluetooth headphones found. Is the device connected?")
	}

	return &MediaController{device: bestCandidate}, nil
}

func (b *MediaController) Run(t Transport) error {
	b.device.Grab()
	defer b.device.Release()

	fmt.Printf("Listening for controls from: %s\n", b.device.Name)

	for {
		readEvents, err := b.device.Read()
		if err != nil {
			// If reading fails, the device probably disconnected.
			return fmt.Errorf("device disconnected: %v", err)
		}

		for _, event := range readEvents {
			// Only care about Key Presses (Value 1)
			if event.Type != evdev.EV_KEY || event.Value != 1 {
				continue
			}

			switch event.Code {
			case evdev.KEY_PLAYPAUSE, evdev.KEY_PAUSECD, evdev.KEY_PLAY, evdev.KEY_PLAYCD:
				t.TogglePlayback()

			case evdev.KEY_NEXTSONG, evdev.KEY_NEXT:
				t.Next()

			case evdev.KEY_PREVIOUSSONG, evdev.KEY_PREVIOUS:
				t.Previous()

			case evdev.KEY_REWIND:
				t.SeekBy(-seekStep)

			case evdev.KEY_FASTFORWARD:
				t.SeekBy(seekStep)

			// Some headphones send volume keys, some don't (Absolute Volume)
			case evdev.KEY_VOLUMEUP:
				t.VolumeUp()
			case evdev.KEY_VOLUMEDOWN:
				t.VolumeDown()
			}
		}
	}
}

func (b *MediaController) Stop() error {
	return nil
}
