// Package ports implements the PC/XT's 64K I/O address space: a flat byte
// array plus the handful of synthesized side effects the BIOS depends on
// for the PIC, PIT, CGA/Hercules CRTC, and speaker, layered the way
// emu/sys_channel dispatches channel commands over a unit address space in
// the teacher repo — here the "units" are fixed port addresses instead of
// attached devices.
package ports

import (
	"github.com/pcxt/pcxt/emu/memory"
	"github.com/pcxt/pcxt/util/debug"
)

const (
	debugNone = 1 << iota
	debugTrace
)

var debugMsk int

// SetDebugMask enables or disables port I/O tracing, toggled by the
// reference host's --debug ports=<mask> flag.
func SetDebugMask(mask int) { debugMsk = mask }

// CGA/Hercules and PIT port addresses the synthesized behavior keys off.
const (
	portPIC0x20   = 0x20
	portPIT0      = 0x40
	portPIT2      = 0x42
	portPITCmd    = 0x43
	portSpeaker   = 0x61
	portKbCtl     = 0x64
	portKbData    = 0x60
	portCGAStatus = 0x3DA
	portCRTCIndex = 0x3D4
	portCRTCData  = 0x3D5
	portModeCtl   = 0x3B8
	portHercIndex = 0x3B4
	portHercData  = 0x3B5
)

// Memory offsets the CRTC cursor-position synthesis reads and writes.
const (
	memCursorCol  = 0x49D
	memCursorRow  = 0x49E
	memVRAMStart  = 0x4AD
)

// Filter intercepts port I/O before the synthesized table below runs.
// Returning handled=false falls through to the default behavior.
type Filter interface {
	In(port uint16) (value uint8, handled bool)
	Out(port uint16, value uint8) (handled bool)
}

// SpeakerSink receives live speaker state for a host audio driver.
type SpeakerSink interface {
	SetSpeaker(enabled bool, divisor uint16)
}

// Ports is the 64K port address space plus the small amount of state the
// synthesized behaviors need to carry across calls.
type Ports struct {
	data       [0x10000]byte
	ioHiLo     bool
	speakerRaw uint8

	GraphicsX uint16
	GraphicsY uint16
}

func New() *Ports {
	return &Ports{}
}

// Graphics reports the currently programmed graphics resolution.
func (p *Ports) Graphics() (x, y uint16) { return p.GraphicsX, p.GraphicsY }

func (p *Ports) Byte(port uint16) uint8     { return p.data[port] }
func (p *Ports) SetByte(port uint16, v uint8) { p.data[port] = v }

// In reads a port, applying the same synthesized side effects the BIOS
// relies on: a PIC end-of-interrupt reset, a PIT channel-0/2 decrementing
// placeholder, the CGA refresh-toggle bit, a scancode-ready flag reset, the
// CRTC cursor-position readback, and a host filter fallback.
func (p *Ports) In(mem *memory.Memory, port uint16, filter Filter) uint8 {
	p.data[portPIC0x20] = 0
	p.data[portPIT2] = p.data[portPIT0] - 1
	p.data[portPIT0]--
	p.data[portCGAStatus] ^= 9

	if port == portKbData {
		p.data[portKbCtl] = 0
	}
	if port == portCRTCData && p.data[portCRTCIndex]>>1 == 7 {
		pos := uint16(mem.Byte(memCursorRow))*80 + uint16(mem.Byte(memCursorCol)) + uint16(mem.Word(memVRAMStart))
		if p.data[portCRTCIndex]&1 != 0 {
			p.data[portCRTCData] = uint8(pos & 0xFF)
		} else {
			p.data[portCRTCData] = uint8((pos & 0xFF00) >> 8)
		}
	}

	if filter != nil {
		if v, handled := filter.In(port); handled {
			p.data[port] = v
		}
	}
	return p.data[port]
}

// Out writes a port, applying the synthesized side effects: speaker
// enable, PIT rate programming, the PIT command register's speaker-pause
// bit, CRTC video-RAM-start and cursor-position programming, Hercules
// resolution reprogramming, and a host filter fallback.
func (p *Ports) Out(mem *memory.Memory, port uint16, value uint8, speaker SpeakerSink, filter Filter) {
	debug.DebugPortf(port, debugMsk, debugTrace, "out value=%#02x", value)
	p.data[port] = value

	switch port {
	case portSpeaker:
		p.ioHiLo = false
		p.speakerRaw |= value & 3
		if speaker != nil {
			speaker.SetSpeaker(p.speakerRaw == 3, mem.Word(0x4AA))
		}
	case portPIT0, portPIT2:
		if p.data[portPITCmd]&6 != 0 {
			p.ioHiLo = !p.ioHiLo
			idx := uint32(0x469) + uint32(port) - uint32(boolToUint16(p.ioHiLo))
			mem.PutByte(idx, value)
		}
	case portPITCmd:
		p.ioHiLo = false
	case portCRTCData:
		switch p.data[portCRTCIndex] >> 1 {
		case 6:
			if p.data[portCRTCIndex]&1 != 0 {
				mem.PutByte(memVRAMStart, value)
			} else {
				mem.PutByte(memVRAMStart+1, value)
			}
		case 7:
			cur := mem.Word(memVRAMStart)
			pos := uint16(mem.Byte(memCursorRow))*80 + uint16(mem.Byte(memCursorCol)) + cur
			var next uint16
			if p.data[portCRTCIndex]&1 != 0 {
				next = (pos & 0xFF00) + uint16(value)
			} else {
				next = (pos & 0xFF) + uint16(value)<<8
			}
			delta := next - cur
			mem.PutByte(memCursorCol, uint8(delta%80))
			mem.PutByte(memCursorRow, uint8(delta/80))
		}
	case portHercData:
		switch p.data[portHercIndex] {
		case 1:
			p.GraphicsX = uint16(value) * 16
		case 6:
			p.GraphicsY = uint16(value) * 4
		}
	}

	if filter != nil {
		filter.Out(port, value)
	}
}

func boolToUint16(b bool) uint16 {
	if b {
		return 1
	}
	return 0
}
