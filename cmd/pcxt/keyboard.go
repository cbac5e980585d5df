/*
 * pcxt - reference host, raw-mode keyboard input.
 *
 * Copyright (c) 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a
 * copy of this software and associated documentation files (the "Software"),
 * to deal in the Software without restriction, including without limitation
 * the rights to use, copy, modify, merge, publish, distribute, sublicense,
 * and/or sell copies of the Software, and to permit persons to whom the
 * Software is furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.  IN NO EVENT SHALL
 * ROBERT M SUPNIK BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
 * IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
 * CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
 *
 */

package main

import (
	"log/slog"
	"os"

	"golang.org/x/term"

	"github.com/pcxt/pcxt/emu/device"
)

// asciiScancode is a best-effort ASCII-to-XT-scancode table covering the
// printable US layout; terminal keyboard decoding is explicitly the
// host's problem (spec.md §1 Non-goals), so this does not attempt to
// track shift/ctrl/alt modifier state the way a real keyboard controller
// would.
var asciiScancode = map[byte]uint8{
	'1': 0x02, '2': 0x03, '3': 0x04, '4': 0x05, '5': 0x06,
	'6': 0x07, '7': 0x08, '8': 0x09, '9': 0x0A, '0': 0x0B,
	'q': 0x10, 'w': 0x11, 'e': 0x12, 'r': 0x13, 't': 0x14,
	'y': 0x15, 'u': 0x16, 'i': 0x17, 'o': 0x18, 'p': 0x19,
	'a': 0x1E, 's': 0x1F, 'd': 0x20, 'f': 0x21, 'g': 0x22,
	'h': 0x23, 'j': 0x24, 'k': 0x25, 'l': 0x26,
	'z': 0x2C, 'x': 0x2D, 'c': 0x2E, 'v': 0x2F, 'b': 0x30,
	'n': 0x31, 'm': 0x32,
	' ': 0x39, '\r': 0x1C, '\n': 0x1C, '\t': 0x0F, 0x7F: 0x0E, 0x08: 0x0E,
	0x1B: 0x01,
}

// rawKeyboard puts stdin into raw mode and feeds decoded keystrokes into a
// buffered channel terminalVideo.GetKey drains.
type rawKeyboard struct {
	oldState *term.State
	keys     chan device.Key
	stop     chan struct{}
}

func newRawKeyboard() (*rawKeyboard, error) {
	fd := int(os.Stdin.Fd())
	old, err := term.MakeRaw(fd)
	if err != nil {
		return nil, err
	}
	kb := &rawKeyboard{
		oldState: old,
		keys:     make(chan device.Key, 32),
		stop:     make(chan struct{}),
	}
	go kb.readLoop()
	return kb, nil
}

func (kb *rawKeyboard) readLoop() {
	buf := make([]byte, 1)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil {
			return
		}
		if n == 0 {
			continue
		}
		by := buf[0]
		scan, ok := asciiScancode[by]
		if !ok {
			scan, ok = asciiScancode[by|0x20] // fold upper case onto the lower-case map
		}
		if !ok {
			slog.Debug("keyboard: no scancode mapping", "byte", by)
			continue
		}
		select {
		case kb.keys <- device.Key{Scancode: scan, ASCII: by}:
		case <-kb.stop:
			return
		default:
			// Drop the keystroke rather than block stdin reading; the
			// guest is expected to poll the keyboard buffer regularly.
		}
	}
}

func (kb *rawKeyboard) Close() {
	close(kb.stop)
	_ = term.Restore(int(os.Stdin.Fd()), kb.oldState)
}
