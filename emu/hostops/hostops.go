// Package hostops implements the emulator-specific "0F xx" opcodes the
// BIOS uses to request host services: a character out, a real-time-clock
// read, disk sector read/write, serial port I/O, and a register dump.
// This is new relative to the teacher (the S/370 has no analogous
// escape-to-host opcode) but follows emu/cpu_system.go's shape: a small
// switch over a subcode driving capability calls, with util/hex and
// util/debug doing the formatting/logging exactly as the teacher's own
// device debug traces do.
package hostops

import (
	"strings"

	"github.com/pcxt/pcxt/emu/device"
	"github.com/pcxt/pcxt/emu/memory"
	"github.com/pcxt/pcxt/util/debug"
	"github.com/pcxt/pcxt/util/hex"
)

// Subcodes, matching the byte immediately following the 0F prefix.
const (
	PutChar = iota
	GetRTC
	DiskRead
	DiskWrite
	SerialCom
	Debug
)

const (
	debugNone = 1 << iota
	debugTrace
)

var debugMsk int

// SetDebugMask enables or disables host-op tracing, toggled by the
// reference host's --debug hostops=trace flag.
func SetDebugMask(mask int) { debugMsk = mask }

// Host bundles the capabilities a host-op subcode may need.
type Host struct {
	Disks  [2]device.Disk // index by DL: 0=floppy, 1=hard disk, matching vxt_drive_t slot order
	Serial [4]device.Serial
	Clock  device.Clock
	Putc   func(byte)
}

// Dispatch executes one 0F-prefixed host-service opcode. subcode is the
// byte following the 0F prefix in the instruction stream; mem is the guest
// address space the call reads and writes registers/buffers through.
func Dispatch(mem *memory.Memory, h *Host, subcode byte) {
	debug.Debugf("HOSTOPS", debugMsk, debugTrace, "subcode=%d", subcode)

	switch subcode {
	case PutChar:
		if h.Putc != nil {
			h.Putc(mem.Reg8(memory.AL))
		}

	case GetRTC:
		dest := memory.Linear(mem.Reg16(memory.ES), mem.Reg16(memory.BX))
		hour, minute, second, millis := h.Clock.Now()
		buf := mem.Slice(dest, 38)
		buf[2] = byte(second)
		buf[1] = byte(minute)
		buf[0] = byte(hour)
		mem.PutWord(dest+36, uint16(millis))

	case DiskRead, DiskWrite:
		drive := mem.Reg8(memory.DL)
		if drive > 1 || h.Disks[drive] == nil {
			mem.SetReg8(memory.AL, 0)
			return
		}
		disk := h.Disks[drive]
		lba := uint32(mem.Reg16(memory.BP))
		dest := memory.Linear(mem.Reg16(memory.ES), mem.Reg16(memory.BX))
		count := mem.Reg16(memory.AX)
		buf := mem.Slice(dest, int(count))
		var err error
		if subcode == DiskWrite {
			err = disk.WriteSector(lba, buf)
		} else {
			err = disk.ReadSector(lba, buf)
		}
		if err != nil {
			mem.SetReg8(memory.AL, 0)
			return
		}
		mem.SetReg8(memory.AL, 1)

	case SerialCom:
		port := mem.Reg16(memory.DX)
		if port >= 4 || h.Serial[port] == nil {
			mem.SetReg16(memory.AX, 0)
			return
		}
		com := h.Serial[port]
		switch mem.Reg8(memory.AH) {
		case 0:
			com.Init(uint32(mem.Reg8(memory.AL)), 0)
			fallthrough
		case 3:
			status := com.Status()
			mem.SetReg8(memory.AL, boolByte(status.DataReady))
			mem.SetReg8(memory.AH, boolByte(status.TxEmpty))
		case 1:
			com.Send(mem.Reg8(memory.AL))
			mem.SetReg8(memory.AH, boolByte(com.Status().TxEmpty))
		case 2:
			b, _ := com.Receive()
			mem.SetReg8(memory.AL, b)
			mem.SetReg8(memory.AH, boolByte(com.Status().TxEmpty))
		}

	case Debug:
		var b strings.Builder
		b.WriteString("AX: 0x")
		hex.FormatHalf(&b, false, []uint16{mem.Reg16(memory.AX)})
		b.WriteString(" BX: 0x")
		hex.FormatHalf(&b, false, []uint16{mem.Reg16(memory.BX)})
		b.WriteString(" CX: 0x")
		hex.FormatHalf(&b, false, []uint16{mem.Reg16(memory.CX)})
		b.WriteString(" DX: 0x")
		hex.FormatHalf(&b, false, []uint16{mem.Reg16(memory.DX)})
		debug.Debugf("HOSTOPS", debugMsk|debugNone, debugNone, "%s", b.String())
	}
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
