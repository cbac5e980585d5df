package cpu

import "github.com/pcxt/pcxt/emu/memory"

// shiftGroup is opcodes 0xC0/0xC1 (imm8 count), 0xD0-0xD3 (count 1 or CL):
// ROL/ROR/RCL/RCR/SHL/SHR/SAL/SAR over a ModR/M operand. Rather than
// transliterate the original's bit-trick macros (which reuse a single
// scratch word for both the rotate-carry-in and the sign-extension mask,
// depending on which sub-op is running), this implements the documented
// 8086 shift/rotate semantics directly per form.
func (c *CPU) shiftGroup() {
	var count uint32
	switch {
	case c.extra != 0:
		c.ip++
		count = uint32(uint8(c.iData1))
	case c.iD != 0:
		count = uint32(c.Mem.Reg8(memory.CL)) & 0x1F
	default:
		count = 1
	}
	if count == 0 {
		return
	}

	top := c.topBit()
	val := c.ld(c.rmAddr)
	oldCF := c.Mem.Flag(memory.FlagCF)

	var result uint32
	var newCF, newOF bool

	switch c.iReg {
	case 0: // ROL
		n := count % top
		result = c.mask((val << n) | (val >> (top - n)))
		newCF = result&1 != 0
		newOF = c.signOf(result) != (result&1 != 0)

	case 1: // ROR
		n := count % top
		result = c.mask((val >> n) | (val << (top - n)))
		newCF = c.signOf(result)
		newOF = c.signOf(result) != ((result>>(top-2))&1 != 0)

	case 2: // RCL
		n := count % (top + 1)
		ext := uint64(val) | uint64(boolToU32(oldCF))<<top
		mask := uint64(1)<<(top+1) - 1
		rotated := ((ext << n) | (ext >> (top + 1 - n))) & mask
		result = c.mask(uint32(rotated))
		newCF = (rotated>>top)&1 != 0
		newOF = c.signOf(result) != newCF

	case 3: // RCR
		n := count % (top + 1)
		ext := uint64(val) | uint64(boolToU32(oldCF))<<top
		mask := uint64(1)<<(top+1) - 1
		rotated := ((ext >> n) | (ext << (top + 1 - n))) & mask
		result = c.mask(uint32(rotated))
		newCF = (rotated>>top)&1 != 0
		newOF = c.signOf(result) != c.signOf(result<<1)

	case 4: // SHL/SAL
		result = c.mask(val << count)
		newCF = count <= top && (val>>(top-count))&1 != 0
		newOF = c.signOf(result) != newCF

	case 5: // SHR
		result = c.mask(val >> count)
		newCF = count >= 1 && count <= top && (val>>(count-1))&1 != 0
		newOF = c.signOf(val)

	case 7: // SAR
		var signed int32
		if top == 8 {
			signed = int32(int8(val))
		} else {
			signed = int32(int16(val))
		}
		shiftAmt := count
		if shiftAmt > top-1 {
			newCF = c.signOf(val)
		} else {
			newCF = (val>>(shiftAmt-1))&1 != 0
		}
		result = c.mask(uint32(signed >> count))
		newOF = false

	default:
		return
	}

	c.opDest = val
	c.opSource = count
	c.opResult = int32(result)
	c.st(c.rmAddr, result)
	c.setCF(newCF)
	c.setOF(newOF)
	if c.iReg > 3 {
		c.setOpcode(0x10)
	}
}

// daaDas implements DAA (isAdd true) and DAS (isAdd false).
func (c *CPU) daaDas(isAdd bool) {
	al := c.Mem.Reg8(memory.AL)
	oldAL := al
	oldCF := c.Mem.Flag(memory.FlagCF)

	afSet := (al&0x0F) > 9 || c.Mem.Flag(memory.FlagAF)
	newCF := oldCF
	if afSet {
		if isAdd {
			al += 6
			newCF = oldCF || al < oldAL
		} else {
			al -= 6
			newCF = oldCF || al >= oldAL
		}
	}
	c.setAF(afSet)

	var testVal uint8
	if isAdd {
		testVal = al & 0xF0
	} else {
		testVal = oldAL
	}
	var min uint8 = 0x90
	if !isAdd {
		min = 0x99
	}
	cf2 := testVal > min || newCF
	if cf2 {
		if isAdd {
			al += 0x60
		} else {
			al -= 0x60
		}
	}
	c.setCF(cf2)
	c.Mem.SetReg8(memory.AL, al)
	c.opResult = int32(al)
}

// aaaAas implements AAA (which=+1) and AAS (which=-1).
func (c *CPU) aaaAas(which int32) {
	al := c.Mem.Reg8(memory.AL)
	adjust := (al&0x0F) > 9 || c.Mem.Flag(memory.FlagAF)
	c.setAF(adjust)
	c.setCF(adjust)
	if adjust {
		ax := c.Mem.Reg16(memory.AX)
		ax = uint16(int32(ax) + 262*which)
		c.Mem.SetReg16(memory.AX, ax)
	}
	c.Mem.SetReg8(memory.AL, c.Mem.Reg8(memory.AL)&0x0F)
	c.opResult = int32(c.Mem.Reg8(memory.AL))
}
