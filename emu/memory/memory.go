package memory

/*
 * PCXT - Guest memory and register/flag overlay.
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// Registers and flags are not kept in separate Go fields: they live inside
// the flat guest address space at a fixed offset, the same way the 8086
// decodes a ModR/M byte into a single address whether the operand is a
// register or memory. This lets the decoder treat "register operand" and
// "memory operand" as the same case everywhere except computing the
// address, instead of two.

const (
	// Size is the size of the flat guest address space, including the
	// register/flag overlay that sits above the 1MiB conventional limit.
	Size = 0x110000

	// RegBase is the guest address at which the word register file starts.
	RegBase = 0xF0000
)

// 16-bit register ids, in storage order starting at RegBase.
const (
	AX = iota
	CX
	DX
	BX
	SP
	BP
	SI
	DI
	ES
	CS
	SS
	DS
	Zero     // always reads as 0, used by forms that need a throwaway segment
	Scratch  // scratch word used by string-operation segment override defaults
	numWordRegs
)

// 8-bit register ids. Because the word registers are stored little-endian
// and consecutively, AL..BH alias directly onto the first 8 bytes of the
// word register file: no separate byte table is needed.
const (
	AL = iota
	AH
	CL
	CH
	DL
	DH
	BL
	BH
)

// Flag ids, stored as single bytes immediately after the word register file.
const (
	FlagCF = iota
	FlagPF
	FlagAF
	FlagZF
	FlagSF
	FlagTF
	FlagIF
	FlagDF
	FlagOF
	numFlags
)

const flagBase = RegBase + numWordRegs*2

// FlagBit gives the bit position of each flag within the 16-bit FLAGS word,
// matching the 8086's documented layout (bit 1 and bits 3, 5 are reserved
// and always read as 1/0/0 respectively).
var FlagBit = [numFlags]uint{
	FlagCF: 0,
	FlagPF: 2,
	FlagAF: 4,
	FlagZF: 6,
	FlagSF: 7,
	FlagTF: 8,
	FlagIF: 9,
	FlagDF: 10,
	FlagOF: 11,
}

const flagsReserved = 0xF002

type Memory struct {
	mem [Size]byte
}

// New returns a zeroed guest address space with CS:IP already pointed at the
// conventional BIOS entry segment; the host still has to copy a BIOS image
// in and set IP.
func New() *Memory {
	m := &Memory{}
	m.PutWord(RegBase+CS*2, 0xF000)
	return m
}

// Byte reads a byte at a guest linear address, without range checking:
// callers are expected to have validated the address, matching the
// teacher's memory package convention of trusting the caller.
func (m *Memory) Byte(addr uint32) uint8 {
	return m.mem[addr%Size]
}

func (m *Memory) PutByte(addr uint32, v uint8) {
	m.mem[addr%Size] = v
}

// Word reads a little-endian 16-bit value at a guest linear address.
func (m *Memory) Word(addr uint32) uint16 {
	a := addr % Size
	return uint16(m.mem[a]) | uint16(m.mem[(a+1)%Size])<<8
}

func (m *Memory) PutWord(addr uint32, v uint16) {
	a := addr % Size
	m.mem[a] = uint8(v)
	m.mem[(a+1)%Size] = uint8(v >> 8)
}

// Slice exposes a read/write view of a contiguous guest region, used by the
// video refresher and BIOS image loader. The caller is responsible for not
// letting the returned slice outlive its validity.
func (m *Memory) Slice(addr uint32, length int) []byte {
	return m.mem[addr : addr+uint32(length)]
}

// Reg returns the guest address of a 16-bit register.
func Reg(id int) uint32 {
	return RegBase + uint32(id)*2
}

// RegByteAddr returns the guest address of an 8-bit register (AL..BH).
func RegByteAddr(id int) uint32 {
	return RegBase + uint32(id)
}

func (m *Memory) Reg16(id int) uint16 {
	return m.Word(Reg(id))
}

func (m *Memory) SetReg16(id int, v uint16) {
	m.PutWord(Reg(id), v)
}

func (m *Memory) Reg8(id int) uint8 {
	return m.Byte(RegByteAddr(id))
}

func (m *Memory) SetReg8(id int, v uint8) {
	m.PutByte(RegByteAddr(id), v)
}

// Flag returns a flag as a bool.
func (m *Memory) Flag(id int) bool {
	return m.mem[flagBase+id] != 0
}

func (m *Memory) SetFlag(id int, v bool) {
	if v {
		m.mem[flagBase+id] = 1
	} else {
		m.mem[flagBase+id] = 0
	}
}

// Flags assembles the 16-bit FLAGS word from the individual flag bytes.
func (m *Memory) Flags() uint16 {
	f := uint16(flagsReserved)
	for i := 0; i < numFlags; i++ {
		if m.mem[flagBase+i] != 0 {
			f |= 1 << FlagBit[i]
		}
	}
	return f
}

// SetFlags unpacks a 16-bit FLAGS word into the individual flag bytes, as
// used by POPF, IRET, and interrupt delivery.
func (m *Memory) SetFlags(f uint16) {
	for i := 0; i < numFlags; i++ {
		m.SetFlag(i, f&(1<<FlagBit[i]) != 0)
	}
}

// Linear computes a 20-bit segment:offset physical address with wraparound,
// matching the 8086's address-wrap behavior at the top of the segment.
func Linear(seg, off uint16) uint32 {
	return (uint32(seg)<<4 + uint32(off)) & 0xFFFFF
}
