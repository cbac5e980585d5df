// Package video implements the 60Hz video refresher: mode-change
// detection between text, CGA, and Hercules, the graphics-address
// translation table, and the CGA/Hercules-to-RGB332 palette.
//
// There is no teacher equivalent for this (the S/370 has no raster
// video); the refresh algorithm is ported from the original emulator's
// video-refresh block, wired through the emu/device.Video capability the
// way emu/core wires its other host callbacks.
package video

import "github.com/pcxt/pcxt/emu/device"

const (
	cgaColor0 = 0
	cgaColor1 = 0x1F1F
	cgaColor2 = 0xE3E3
	cgaColor3 = 0xFFFF
)

var cgaColors = [4]uint32{cgaColor0, cgaColor1, cgaColor2, cgaColor3}

// Refresher holds the address-translation table and palette state that
// are recomputed only when the video mode changes, so a steady-state
// refresh is cheap.
type Refresher struct {
	addrLookup [0x4000]uint16
	palette    [16]uint32
	lastMode   uint8
	initialized bool
}

func New() *Refresher { return &Refresher{lastMode: 0xFF} }

// PortSource adapts emu/ports.Ports (or a test double) to what Refresh needs.
type PortSource interface {
	Byte(port uint16) uint8
	Graphics() (x, y uint16)
}

type memSource interface {
	Byte(addr uint32) uint8
	Slice(addr uint32, length int) []byte
}

const (
	portModeCtl = 0x3B8
	memCGAFlag  = 0x4AC
	memCursorCol = 0x49D
	memCursorRow = 0x49E
	memBlinkEnb  = 0x4A1
)

// Refresh runs one 60Hz tick: detects mode changes, recomputes the
// address-translation table and palette when needed, and pushes a frame
// to the host Video capability.
func (r *Refresher) Refresh(mem memSource, p PortSource, v device.Video) {
	vm := p.Byte(portModeCtl)
	graphicsX, graphicsY := p.Graphics()
	cgaMode := mem.Byte(memCGAFlag) != 0

	if vm != r.lastMode || !r.initialized {
		r.lastMode = vm
		r.initialized = true

		if vm&2 != 0 {
			for i := 0; i < int(graphicsX)*int(graphicsY)/4; i++ {
				bank := uint32(0)
				if cgaMode {
					bank = uint32((2*i/int(graphicsX))%2) * 0x2000
				} else {
					bank = uint32((4*i/int(graphicsX))%4) * 0x2000
				}
				r.addrLookup[i] = uint16(i/int(graphicsX)*(int(graphicsX)/8) + (i/2)%(int(graphicsX)/8)) + uint16(bank)
			}
			mode := device.ModeHercules
			if cgaMode {
				mode = device.ModeCGA
			}
			v.Initialize(mode, int(graphicsX), int(graphicsY))
		} else {
			v.Initialize(device.ModeText, 640, 200)
		}
	}

	if vm&2 != 0 {
		if cgaMode {
			for i := 0; i < 16; i++ {
				r.palette[i] = cgaColors[(i&12)>>2] + cgaColors[i&3]<<16
			}
		} else {
			for i := 0; i < 16; i++ {
				r.palette[i] = 0xFF * (uint32((i&1)<<24) + uint32((i&2)<<15) + uint32((i&4)<<6) + uint32((i&8)>>3))
			}
		}

		base := uint32(0xB0000)
		if cgaMode {
			base += 0x8000
		} else if p.Byte(portModeCtl)>>7 != 0 {
			base += 0x8000
		}
		vram := mem.Slice(base, 0x8000)

		frame := make([]byte, int(graphicsX)*int(graphicsY)/4)
		for i := range frame {
			shift := uint(4)
			if i&1 != 0 {
				shift = 0
			}
			nibble := (vram[r.addrLookup[i]] >> shift) & 0xF
			frame[i] = byte(r.palette[nibble])
		}
		v.Backbuffer(frame, int(graphicsX), int(graphicsY))
	} else {
		cells := mem.Slice(0xB8000, 80*25*2)
		v.TextMode(cells, 80, 25, int(mem.Byte(memCursorRow)), int(mem.Byte(memCursorCol)))
	}
}
