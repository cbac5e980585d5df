package cpu

import (
	"github.com/pcxt/pcxt/emu/decode"
	"github.com/pcxt/pcxt/emu/memory"
)

// topBit is 16 for word operands, 8 for byte operands — the boundary the
// sign bit and the AF/OF derivation live at.
func (c *CPU) topBit() uint32 {
	if c.iW != 0 {
		return 16
	}
	return 8
}

func (c *CPU) mask(v uint32) uint32 {
	if c.iW != 0 {
		return v & 0xFFFF
	}
	return v & 0xFF
}

func (c *CPU) signOf(v uint32) bool {
	if c.iW != 0 {
		return v&0x8000 != 0
	}
	return v&0x80 != 0
}

func (c *CPU) setCF(v bool) bool {
	c.Mem.SetFlag(memory.FlagCF, v)
	return v
}

func (c *CPU) setOF(v bool) bool {
	c.Mem.SetFlag(memory.FlagOF, v)
	return v
}

func (c *CPU) setAF(v bool) bool {
	c.Mem.SetFlag(memory.FlagAF, v)
	return v
}

func boolToU32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// setAFOFArith derives AF and OF from the last op_dest/op_source/op_result
// triple, the way every arithmetic form does after storing its result.
func (c *CPU) setAFOFArith() {
	src := c.opSource ^ c.opDest ^ uint32(c.opResult)
	c.setAF(src&0x10 != 0)
	if uint32(c.opResult) == c.opDest {
		c.setOF(false)
		return
	}
	cf := boolToU32(c.Mem.Flag(memory.FlagCF))
	c.setOF((cf^(src>>(c.topBit()-1)))&1 != 0)
}

// szp applies the shared sign/zero/parity update every flagged form uses.
func (c *CPU) szp() {
	c.Mem.SetFlag(memory.FlagSF, c.signOf(uint32(c.opResult)))
	c.Mem.SetFlag(memory.FlagZF, c.mask(uint32(c.opResult)) == 0)
	c.Mem.SetFlag(memory.FlagPF, c.Tables.Byte(decode.Parity, int(uint8(c.opResult)))&1 != 0)
}
