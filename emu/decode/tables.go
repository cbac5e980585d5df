// Package decode holds the fixed lookup tables that collapse the 8086's
// ~256 raw opcodes into the instruction engine's ~50 semantic forms, plus
// the tables that drive flag-update class, instruction length, and
// conditional-jump predicates.
//
// The tables are bundled as canonical Go data (ported from the BIOS image
// this emulator was built against) and can also be parsed out of a BIOS
// image's own embedded copy, per the image format: twenty little-endian
// 16-bit offsets starting at 0x81 relative to the image's load point, each
// pointing to a 256-byte table.
package decode

import "encoding/binary"

// Table indices within a BIOS image's table-pointer directory.
const (
	XlatOpcode = iota
	XlatSubfunction
	StdFlags
	Parity
	BaseInstSize
	IWSizeAdder
	IModSizeAdder
	CondJumpA
	CondJumpB
	CondJumpC
	CondJumpD
	FlagsBitfield
	numBIOSTables = 20 // twenty slots are reserved; only 12 are named today
)

// Bits within a StdFlags entry.
const (
	UpdateSZP      = 1
	UpdateAOArith  = 2
	UpdateOCLogic  = 4
)

// directoryOffset is the byte offset, relative to the BIOS image's load
// point (F000:0100), of the 20-entry table-pointer directory.
const directoryOffset = 0x81

// Tables is the full set of decode tables an instruction engine needs.
// XlatOpcode..FlagsBitfield come from the BIOS image's directory (or the
// canonical bundle); the R/M-mode tables are fixed decoding logic, not
// part of the BIOS-supplied directory, and are never overridden.
type Tables struct {
	raw [numBIOSTables][256]byte
}

func (t *Tables) Byte(table, index int) byte { return t.raw[table][index&0xFF] }

// LoadFromImage parses the 20-entry table-pointer directory out of a BIOS
// image and copies each referenced 256-byte table. The image slice must be
// the raw BIOS blob as loaded at F000:0100 (so offsets in the directory are
// relative to image[0]).
func LoadFromImage(image []byte) (*Tables, error) {
	if len(image) < directoryOffset+numBIOSTables*2 {
		return nil, errShortImage
	}
	var t Tables
	for i := 0; i < numBIOSTables; i++ {
		off := binary.LittleEndian.Uint16(image[directoryOffset+2*i:])
		if int(off)+256 > len(image) {
			return nil, errShortImage
		}
		copy(t.raw[i][:], image[off:int(off)+256])
	}
	return &t, nil
}

type decodeError string

func (e decodeError) Error() string { return string(e) }

const errShortImage = decodeError("decode: BIOS image too short to hold table directory")

// R/M-mode tables: fixed 8086 ModR/M decoding logic, indexed by the rm
// field (0-7). Not part of the BIOS table directory — these encode how a
// ModR/M byte's rm field picks base registers, a displacement multiplier,
// and a default segment, which is wiring logic rather than data the BIOS
// customizes.
var (
	RMMode0Reg1  = [8]byte{memRegBX, memRegBX, memRegBP, memRegBP, memRegSI, memRegDI, memRegBP, memRegBX}
	RMMode012Reg2 = [8]byte{memRegSI, memRegDI, memRegSI, memRegDI, memRegZero, memRegZero, memRegZero, memRegZero}
	RMMode0Disp  = [8]byte{0, 0, 0, 0, 0, 0, 1, 0}
	RMMode0DefSeg = [8]byte{memRegDS, memRegDS, memRegSS, memRegSS, memRegDS, memRegDS, memRegDS, memRegDS}

	RMMode12Reg1  = [8]byte{memRegBX, memRegBX, memRegBP, memRegBP, memRegSI, memRegDI, memRegBP, memRegBX}
	RMMode12Disp  = [8]byte{1, 1, 1, 1, 1, 1, 1, 1}
	RMMode12DefSeg = [8]byte{memRegDS, memRegDS, memRegSS, memRegSS, memRegDS, memRegDS, memRegSS, memRegDS}
)

// Mirrors the emu/memory register ids without importing that package, to
// keep these tables free of any dependency beyond their own data; emu/cpu
// reconciles the numbering (both packages assign AX=0..DI=7, ES=8..DS=11,
// matching the 8086's own register numbering, so the values line up).
const (
	memRegBX   = 3
	memRegBP   = 5
	memRegSI   = 6
	memRegDI   = 7
	memRegZero = 12
	memRegDS   = 11
	memRegSS   = 10
)

// FlagsMult gives the bit position of each of the 9 flags within the
// 16-bit FLAGS word, in FLAG_CF..FLAG_OF order; this mirrors
// emu/memory.FlagBit and is kept here too because it is, in the original
// design, one of the 20 BIOS-supplied tables (FlagsBitfield).
var FlagsMult = [9]byte{0, 2, 4, 6, 7, 8, 9, 10, 11}

// JxxDecodeA..D are the four tables used to derive a conditional jump's
// predicate from the flag bits, indexed by (raw opcode / 2) & 7.
var (
	JxxDecodeA = [8]byte{48, 40, 43, 40, 44, 41, 49, 49}
	JxxDecodeB = [8]byte{49, 49, 49, 43, 49, 49, 49, 43}
	JxxDecodeC = [8]byte{49, 49, 49, 49, 49, 49, 44, 44}
	JxxDecodeD = [8]byte{49, 49, 49, 49, 49, 49, 48, 48}
)

// Canonical returns the bundled decode tables, ported from the reference
// BIOS image this emulator targets. Used as a fallback (or a cross-check)
// when a BIOS image is too short to carry its own copy.
func Canonical() *Tables {
	var t Tables
	copy(t.raw[XlatOpcode][:], canonicalXlatOpcode[:])
	copy(t.raw[XlatSubfunction][:], canonicalExData[:])
	copy(t.raw[StdFlags][:], canonicalStdFlags[:])
	copy(t.raw[Parity][:], canonicalParity[:])
	copy(t.raw[BaseInstSize][:], canonicalBaseSize[:])
	copy(t.raw[IWSizeAdder][:], canonicalIWAdder[:])
	copy(t.raw[IModSizeAdder][:], canonicalIModAdder[:])
	for i, v := range JxxDecodeA {
		t.raw[CondJumpA][i] = v
	}
	for i, v := range JxxDecodeB {
		t.raw[CondJumpB][i] = v
	}
	for i, v := range JxxDecodeC {
		t.raw[CondJumpC][i] = v
	}
	for i, v := range JxxDecodeD {
		t.raw[CondJumpD][i] = v
	}
	for i, v := range FlagsMult {
		t.raw[FlagsBitfield][i] = v
	}
	return &t
}
