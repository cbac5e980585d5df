/*
 * pcxt - reference host, terminal video renderer.
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
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/pcxt/pcxt/emu/device"
)

// cgaAttrFg maps a CGA text attribute's low nibble to an ANSI SGR
// foreground color code; the terminal can't reproduce blink or the full
// 16-color palette faithfully, so this is a best-effort mapping, not a
// pixel-accurate one (SPEC_FULL.md §4.10).
var cgaAttrFg = [16]int{30, 34, 32, 36, 31, 35, 33, 37, 90, 94, 92, 96, 91, 95, 93, 97}

// terminalVideo renders VXT_TEXT frames with ANSI cursor positioning and
// SGR color codes; graphics modes are logged, not rendered, per
// SPEC_FULL.md §4.10.
type terminalVideo struct {
	mu      sync.Mutex
	out     *os.File
	mode    device.VideoMode
	cols    int
	rows    int
	keys    chan device.Key
}

func newTerminalVideo(keys chan device.Key) *terminalVideo {
	return &terminalVideo{out: os.Stdout, keys: keys}
}

func (v *terminalVideo) GetKey() (device.Key, bool) {
	select {
	case k := <-v.keys:
		return k, true
	default:
		return device.Key{}, false
	}
}

func (v *terminalVideo) Initialize(mode device.VideoMode, columns, rows int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.mode = mode
	v.cols, v.rows = columns, rows
	fmt.Fprint(v.out, "\x1b[2J\x1b[H")
	if mode != device.ModeText {
		slog.Info("video mode changed to graphics, terminal host does not render pixels", "mode", mode)
	}
}

func (v *terminalVideo) Backbuffer(frame []byte, width, height int) {
	// No pixel rendering to a terminal; frame content is intentionally
	// dropped (SPEC_FULL.md §4.10 graphics-mode stub).
}

func (v *terminalVideo) TextMode(cells []byte, columns, rows int, cursorRow, cursorCol int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fmt.Fprint(v.out, "\x1b[H")
	for row := 0; row < rows; row++ {
		for col := 0; col < columns; col++ {
			i := (row*columns + col) * 2
			if i+1 >= len(cells) {
				continue
			}
			ch, attr := cells[i], cells[i+1]
			if ch < 0x20 || ch >= 0x7F {
				ch = ' '
			}
			fmt.Fprintf(v.out, "\x1b[%dm%c", cgaAttrFg[attr&0x0F], ch)
		}
		fmt.Fprint(v.out, "\x1b[0m\r\n")
	}
	fmt.Fprintf(v.out, "\x1b[%d;%dH", cursorRow+1, cursorCol+1)
}
