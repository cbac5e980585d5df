/*
pcxt Host capability interfaces for the PC/XT emulator core.

	Copyright (c) 2024, Richard Cornwell

	Permission is hereby granted, free of charge, to any person obtaining a
	copy of this software and associated documentation files (the "Software"),
	to deal in the Software without restriction, including without limitation
	the rights to use, copy, modify, merge, publish, distribute, sublicense,
	and/or sell copies of the Software, and to permit persons to whom the
	Software is furnished to do so, subject to the following conditions:

	The above copyright notice and this permission notice shall be included in
	all copies or substantial portions of the Software.

	THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
	IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
	FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.  IN NO EVENT SHALL
	RICHARD CORNWELL BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
	IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
	CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
*/
package device

// The core never talks to a terminal, a socket, or a sound card directly:
// it calls these small capability interfaces, one per concern, and a host
// (cmd/pcxt, or a test) supplies the implementation. This mirrors the
// function-pointer structs (vxt_video_t, vxt_drive_t, ...) the original
// host used to plug itself into the core.

// VideoMode identifies the adapter mode the BIOS has programmed.
type VideoMode int

const (
	ModeText VideoMode = iota
	ModeCGA
	ModeHercules
)

// Key is a single keystroke delivered to the guest's keyboard buffer.
type Key struct {
	Scancode uint8
	ASCII    uint8
}

// Video renders or logs frames produced by the video refresher.
type Video interface {
	// GetKey returns the next pending key, or ok=false if none is queued.
	GetKey() (key Key, ok bool)
	// Initialize is called whenever the adapter mode changes.
	Initialize(mode VideoMode, columns, rows int)
	// Backbuffer receives a full graphics-mode frame as packed RGB332 bytes.
	Backbuffer(frame []byte, width, height int)
	// TextMode receives a full text-mode frame as (char, attribute) pairs.
	TextMode(cells []byte, columns, rows int, cursorRow, cursorCol int)
}

// Clock supplies wall-clock time for the RTC host opcode.
type Clock interface {
	Now() (hour, minute, second int, millis int)
}

// Disk backs a single floppy or hard drive image.
type Disk interface {
	// Boot reports whether this is the drive the BIOS should boot from.
	Boot() bool
	// Sectors reports the drive's capacity in 512-byte sectors.
	Sectors() uint32
	ReadSector(lba uint32, buf []byte) error
	WriteSector(lba uint32, buf []byte) error
}

// SerialStatus mirrors the UART line/modem status bits the BIOS polls.
type SerialStatus struct {
	DataReady bool
	TxEmpty   bool
}

// Serial backs one of up to four COM ports.
type Serial interface {
	Init(baud uint32, lineControl uint8) error
	Status() SerialStatus
	Send(b uint8) error
	Receive() (b uint8, ok bool)
}

// Audio receives the live speaker enable state and divisor so a host
// driver can pull PCM samples through the mixer on its own thread.
type Audio interface {
	SetSpeaker(enabled bool, divisor uint16)
}

// PortFilter lets a host intercept port I/O before the synthesized port
// table handles it. Returning handled=false falls through to the default
// synthesized behavior.
type PortFilter interface {
	In(port uint16) (value uint8, handled bool)
	Out(port uint16, value uint8) (handled bool)
}

// NoDrive is a placeholder for an undefined floppy or hard disk slot.
const NoDrive = -1

// NoDev is the configparser sentinel for a model line with no address
// field (an option that isn't addressed to a particular COM port).
const NoDev uint16 = 0xffff
