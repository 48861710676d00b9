//go:build !linux

package controller

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

type KeyboardController struct {
	oldState *term.State
}

func New() (Controller, error) {
	return &KeyboardController{}, nil
}

func (k *KeyboardController) Run(t Transport) error {
	fmt.Print("\033[H\033[2J")
	fmt.Print("wavepod\r\n")
	fmt.Print("Controls:\tspace=play/pause\tn=next\tp=prev\t[=back 5s\t]=fwd 5s\t+=vol up\t-=vol down\tq=quit\r\n")

	fd := int(os.Stdin.Fd())

	state, err := term.MakeRaw(fd)
	if err != nil {
		return err
	}
	k.oldState = state
	defer term.Restore(fd, state)

	buf := make([]byte, 1)

	for {
		if _, err := os.Stdin.Read(buf); err != nil {
			return err
		}

		switch buf[0] {
		case ' ':
			t.TogglePlayback()

		case 'n':
			t.Next()

		case 'p':
			t.Previous()

		case '[':
			t.SeekBy(-seekStep)

		case ']':
			t.SeekBy(seekStep)

		case '+':
			t.VolumeUp()

		case '-':
			t.VolumeDown()

		case 'q':
			t.Stop()
			return nil
		}
	}
}

func (k *KeyboardController) Stop() error {
	if k.oldState != nil {
		return term.Restore(int(os.Stdin.Fd()), k.oldState)
	}
	return nil
}
