package cpu

import (
	"github.com/pcxt/pcxt/emu/decode"
	"github.com/pcxt/pcxt/emu/hostops"
	"github.com/pcxt/pcxt/emu/memory"
)

// dispatch runs the semantic form decodeRMReg/setOpcode selected for this
// instruction. Form numbers follow emu/decode's XlatOpcode table: 0-48,
// the same condensation the BIOS image's own table uses to collapse the
// raw opcode space.
func (c *CPU) dispatch() {
	switch c.xlatOpcodeID {
	case 0:
		c.condJump()
	case 1:
		c.movRegImm()
	case 2:
		c.incDecReg()
		fallthrough
	case 5:
		c.incDecCallJmpPush()
	case 3:
		c.push(c.Mem.Reg16(c.iReg4bit))
	case 4:
		c.Mem.SetReg16(c.iReg4bit, c.pop())
	case 6:
		c.group1()
	case 7:
		c.aluAccumImm()
		fallthrough
	case 8:
		c.aluRegImm()
		fallthrough
	case 9:
		c.aluDispatch()
	case 10:
		c.movSregPopLEA()
	case 11:
		c.movAccumDirect()
	case 12:
		c.shiftGroup()
	case 13:
		c.loopJcxz()
	case 14:
		c.jmpCallShortNear()
	case 15:
		c.memOp(c.opFromAddr, c.opToAddr, false, func(d, s uint32) uint32 { return d & s })
	case 16:
		c.iW = 1
		c.opToAddr = memory.RegBase
		c.opFromAddr = c.regAddr(c.iReg4bit)
		fallthrough
	case 24:
		c.xchg()
	case 17:
		c.stringMoveStoreLoad()
	case 18:
		c.stringCmpScan()
	case 19:
		c.ret()
	case 20:
		c.memOpImm(c.opFromAddr, uint32(uint16(c.iData2)), true, assign)
	case 21:
		c.in()
	case 22:
		c.out()
	case 23:
		c.repOverrideEn = 2
		c.repMode = c.iW
		if c.segOverrideEn > 0 {
			c.segOverrideEn++
		}
	case 25:
		c.push(c.Mem.Reg16(c.extra))
	case 26:
		c.Mem.SetReg16(c.extra, c.pop())
	case 27:
		c.segOverrideEn = 2
		c.segOverride = c.extra
		if c.repOverrideEn > 0 {
			c.repOverrideEn++
		}
	case 28:
		c.iW = 0
		c.daaDas(c.extra == 0)
	case 29:
		c.aaaAas(int32(c.extra) - 1)
	case 30:
		c.cbw()
	case 31:
		c.cwd()
	case 32:
		c.callFar()
	case 33:
		c.push(c.Mem.Flags())
	case 34:
		c.Mem.SetFlags(c.pop())
	case 35:
		f := c.Mem.Flags()
		c.Mem.SetFlags((f & 0xFF00) | uint16(c.Mem.Reg8(memory.AH)))
	case 36:
		c.Mem.SetReg8(memory.AH, uint8(c.Mem.Flags()))
	case 37:
		c.lesLds()
	case 38:
		c.ip++
		c.deliver(3)
	case 39:
		c.ip += 2
		c.deliver(uint8(c.iData0))
	case 40:
		c.ip++
		if c.Mem.Flag(memory.FlagOF) {
			c.deliver(4)
		}
	case 41:
		c.aam()
	case 42:
		c.aad()
	case 43:
		if c.Mem.Flag(memory.FlagCF) {
			c.Mem.SetReg8(memory.AL, 0xFF)
		} else {
			c.Mem.SetReg8(memory.AL, 0)
		}
	case 44:
		c.xlat()
	case 45:
		c.Mem.SetFlag(memory.FlagCF, !c.Mem.Flag(memory.FlagCF))
	case 46:
		c.Mem.SetFlag(c.extra/2-40, c.extra&1 != 0)
	case 47:
		c.memOpImm(memory.RegBase, uint32(uint16(c.iData0)), false, func(d, s uint32) uint32 { return d & s })
	case 48:
		hostops.Dispatch(c.Mem, c.Host, uint8(c.iData0&0xFF))
	}
}

func (c *CPU) condJump() {
	idx := (c.rawOpcodeID / 2) & 7
	a := c.jccFlag(c.Tables.Byte(decode.CondJumpA, int(idx)))
	b := c.jccFlag(c.Tables.Byte(decode.CondJumpB, int(idx)))
	cc := c.jccFlag(c.Tables.Byte(decode.CondJumpC, int(idx)))
	d := c.jccFlag(c.Tables.Byte(decode.CondJumpD, int(idx)))
	cond := a || b || (cc != d)
	if (boolToU32(cond) ^ uint32(c.iW)) != 0 {
		c.ip += uint16(int16(int8(c.iData0)))
	}
}

func (c *CPU) movRegImm() {
	c.iW = boolToInt(c.rawOpcodeID&8 != 0)
	dest := c.regAddr(c.iReg4bit)
	c.memOpImm(dest, uint32(uint16(c.iData0)), true, assign)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// incDecReg handles opcodes 0x40-0x47 (INC/DEC regs16, single byte, no
// ModR/M): it forges the from-address decodeRMReg would have produced had
// this opcode carried one, then falls into the shared INC/DEC/JMP/CALL/
// PUSH group logic that also serves the ModR/M-carrying FE/FF forms.
func (c *CPU) incDecReg() {
	c.iW = 1
	c.iD = 0
	c.iReg = c.iReg4bit
	c.decodeRMReg()
	c.iReg = c.extra
}

func (c *CPU) incDecCallJmpPush() {
	switch {
	case c.iReg < 2:
		old := c.ld(c.opFromAddr)
		var res uint32
		if c.iReg == 0 {
			res = c.mask(old + 1)
		} else {
			res = c.mask(old - 1)
		}
		c.opDest = old
		c.opSource = 1
		c.opResult = int32(res)
		c.st(c.opFromAddr, res)
		c.setAFOFArith()
		c.setOF(c.mask(old+1-uint32(c.iReg)) == 1<<(c.topBit()-1))
		if c.xlatOpcodeID == 5 {
			c.setOpcode(0x10)
		}

	case c.iReg != 6:
		if c.iReg == 3 {
			c.push(c.Mem.Reg16(memory.CS))
		}
		if c.iReg&2 != 0 {
			extraLen := uint16(0)
			if c.iMod != 3 {
				extraLen = uint16(c.iMod)
			}
			if c.iMod == 0 && c.iRM == 6 {
				extraLen += 2
			}
			c.push(c.ip + 2 + extraLen)
		}
		if c.iReg&1 != 0 {
			c.Mem.SetReg16(memory.CS, c.Mem.Word(c.opFromAddr+2))
		}
		c.ip = c.Mem.Word(c.opFromAddr)
		c.setOpcode(0x9A)

	default:
		c.push(c.Mem.Word(c.rmAddr))
	}
}

// group1 is opcodes 0xF6/0xF7: TEST r/m,imm plus the NOT/NEG/MUL/IMUL/
// DIV/IDIV r/m group, selected by the ModR/M reg field.
func (c *CPU) group1() {
	c.opToAddr = c.opFromAddr
	switch c.iReg {
	case 0:
		c.setOpcode(0x20)
		c.ip += uint16(c.iW + 1)
		c.memOpImm(c.opToAddr, uint32(uint16(c.iData2)), false, func(d, s uint32) uint32 { return d & s })
	case 2:
		c.memOp(c.opToAddr, c.opFromAddr, true, func(d, s uint32) uint32 { return ^s })
	case 3:
		c.memOp(c.opToAddr, c.opFromAddr, true, func(d, s uint32) uint32 { return uint32(-int32(s)) })
		c.opDest = 0
		c.setOpcode(0x28)
		c.setCF(uint32(c.opResult) > c.opDest)
	case 4:
		c.mul(false)
	case 5:
		c.mul(true)
	case 6:
		c.div(false)
	case 7:
		c.div(true)
	}
}

func (c *CPU) mul(signed bool) {
	c.setOpcode(0x10)
	m := c.ld(c.rmAddr)
	var product uint32
	var interesting bool
	if c.iW != 0 {
		ax := c.Mem.Reg16(memory.AX)
		if signed {
			product = uint32(int32(int16(m)) * int32(int16(ax)))
			interesting = int32(product) != int32(int16(uint16(product)))
		} else {
			product = uint32(uint16(m)) * uint32(ax)
			interesting = product != uint32(uint16(product))
		}
		c.Mem.SetReg16(memory.DX, uint16(product>>16))
		c.Mem.SetReg16(memory.AX, uint16(product))
	} else {
		al := uint32(c.Mem.Reg8(memory.AL))
		if signed {
			product = uint32(int32(int8(m)) * int32(int8(al)))
			interesting = int32(product) != int32(int8(uint8(product)))
		} else {
			product = uint32(uint8(m)) * al
			interesting = product != uint32(uint8(product))
		}
		c.Mem.SetReg16(memory.AX, uint16(product))
	}
	c.opResult = int32(product)
	c.setOF(c.setCF(interesting))
}

func (c *CPU) div(signed bool) {
	divisor := c.ld(c.rmAddr)
	if c.iW != 0 {
		if signed {
			if int16(divisor) == 0 {
				c.deliver(0)
				return
			}
			dividend := int32(int16(c.Mem.Reg16(memory.DX)))<<16 | int32(uint16(c.Mem.Reg16(memory.AX)))
			q := dividend / int32(int16(divisor))
			r := dividend % int32(int16(divisor))
			if q != int32(int16(uint16(q))) {
				c.deliver(0)
				return
			}
			c.Mem.SetReg16(memory.AX, uint16(q))
			c.Mem.SetReg16(memory.DX, uint16(r))
		} else {
			if uint16(divisor) == 0 {
				c.deliver(0)
				return
			}
			dividend := uint32(c.Mem.Reg16(memory.DX))<<16 | uint32(c.Mem.Reg16(memory.AX))
			q := dividend / uint32(uint16(divisor))
			r := dividend % uint32(uint16(divisor))
			if q != uint32(uint16(q)) {
				c.deliver(0)
				return
			}
			c.Mem.SetReg16(memory.AX, uint16(q))
			c.Mem.SetReg16(memory.DX, uint16(r))
		}
		return
	}
	if signed {
		if int8(divisor) == 0 {
			c.deliver(0)
			return
		}
		dividend := int16(c.Mem.Reg16(memory.AX))
		q := dividend / int16(int8(divisor))
		r := dividend % int16(int8(divisor))
		if q != int16(int8(uint8(q))) {
			c.deliver(0)
			return
		}
		c.Mem.SetReg8(memory.AL, uint8(q))
		c.Mem.SetReg8(memory.AH, uint8(r))
	} else {
		if uint8(divisor) == 0 {
			c.deliver(0)
			return
		}
		dividend := c.Mem.Reg16(memory.AX)
		q := dividend / uint16(uint8(divisor))
		r := dividend % uint16(uint8(divisor))
		if q != uint16(uint8(q)) {
			c.deliver(0)
			return
		}
		c.Mem.SetReg8(memory.AL, uint8(q))
		c.Mem.SetReg8(memory.AH, uint8(r))
	}
}

// aluAccumImm is opcodes ending in 04/0C/14/.../3C (ALU AL/AX,imm): it
// forces the instruction to look like the reg,imm form (case 8) operating
// on the accumulator, then falls through into the shared ALU dispatch.
func (c *CPU) aluAccumImm() {
	c.rmAddr = memory.RegBase
	c.iData2 = c.iData0
	c.iMod = 3
	c.iReg = c.extra
	c.ip--
}

// aluRegImm is opcodes 0x80-0x83 (ADD/OR/.../CMP r/m,imm) and the
// fallthrough continuation from aluAccumImm.
func (c *CPU) aluRegImm() {
	c.opToAddr = c.rmAddr
	c.iD = boolToInt(c.iD != 0 || c.iW == 0)
	var scratch int16
	if c.iD != 0 {
		scratch = int16(int8(c.iData2))
	} else {
		scratch = int16(c.iData2)
	}
	c.Mem.SetReg16(memory.Scratch, uint16(scratch))
	c.opFromAddr = memory.Reg(memory.Scratch)
	if c.iD == 0 {
		c.ip += 2
	} else {
		c.ip++
	}
	c.extra = c.iReg
	c.setOpcode(byte(8 * c.extra))
}

// aluDispatch is opcodes 0x00-0x3B (ADD/OR/ADC/SBB/AND/SUB/XOR/CMP
// reg,r/m and r/m,reg, plus MOV) and the fallthrough continuation from
// aluRegImm, selected by extra (0-8, ALU op or MOV).
func (c *CPU) aluDispatch() {
	switch c.extra {
	case 0:
		c.memOp(c.opToAddr, c.opFromAddr, true, func(d, s uint32) uint32 { return d + s })
		c.setCF(uint32(c.opResult) < c.opDest)
	case 1:
		c.memOp(c.opToAddr, c.opFromAddr, true, func(d, s uint32) uint32 { return d | s })
	case 2:
		c.adcSbb(true)
	case 3:
		c.adcSbb(false)
	case 4:
		c.memOp(c.opToAddr, c.opFromAddr, true, func(d, s uint32) uint32 { return d & s })
	case 5:
		c.memOp(c.opToAddr, c.opFromAddr, true, func(d, s uint32) uint32 { return d - s })
		c.setCF(uint32(c.opResult) > c.opDest)
	case 6:
		c.memOp(c.opToAddr, c.opFromAddr, true, func(d, s uint32) uint32 { return d ^ s })
	case 7:
		c.memOp(c.opToAddr, c.opFromAddr, false, func(d, s uint32) uint32 { return d - s })
		c.setCF(uint32(c.opResult) > c.opDest)
	case 8:
		c.memOp(c.opToAddr, c.opFromAddr, true, assign)
	}
}

func (c *CPU) adcSbb(isAdd bool) {
	cf := c.Mem.Flag(memory.FlagCF)
	cfv := boolToU32(cf)
	if isAdd {
		c.memOp(c.opToAddr, c.opFromAddr, true, func(d, s uint32) uint32 { return d + cfv + s })
	} else {
		c.memOp(c.opToAddr, c.opFromAddr, true, func(d, s uint32) uint32 { return d - cfv - s })
	}
	var cond bool
	if isAdd {
		cond = int32(c.opResult) < int32(c.opDest)
	} else {
		cond = int32(c.opResult) > int32(c.opDest)
	}
	newCF := (cf && uint32(c.opResult) == c.opDest) || cond
	c.setCF(newCF)
	c.setAFOFArith()
}

func (c *CPU) movSregPopLEA() {
	switch {
	case c.iW == 0: // MOV sreg,r/m or r/m,sreg (0x8C/0x8E)
		c.iW = 1
		c.iReg += 8
		c.decodeRMReg()
		c.memOp(c.opToAddr, c.opFromAddr, true, assign)
	case c.iD == 0: // LEA (0x8D)
		c.segOverrideEn = 1
		c.segOverride = memory.Zero
		c.decodeRMReg()
		c.memOpImm(c.opFromAddr, c.rmAddr, true, assign)
	default: // POP r/m (0x8F)
		c.Mem.PutWord(c.rmAddr, c.pop())
	}
}

func (c *CPU) movAccumDirect() {
	c.iMod = 0
	c.iReg = 0
	c.iRM = 6
	c.iData1 = c.iData0
	c.decodeRMReg()
	c.memOp(c.opFromAddr, c.opToAddr, true, assign)
}

func (c *CPU) loopJcxz() {
	cx := c.Mem.Reg16(memory.CX) - 1
	c.Mem.SetReg16(memory.CX, cx)
	taken := cx != 0
	switch c.iReg4bit {
	case 0:
		taken = taken && !c.Mem.Flag(memory.FlagZF)
	case 1:
		taken = taken && c.Mem.Flag(memory.FlagZF)
	case 3:
		cx = c.Mem.Reg16(memory.CX) + 1
		c.Mem.SetReg16(memory.CX, cx)
		taken = cx == 0
	}
	if taken {
		c.ip += uint16(int16(int8(c.iData0)))
	}
}

func (c *CPU) jmpCallShortNear() {
	c.ip += uint16(3 - c.iD)
	if c.iW == 0 {
		if c.iD != 0 {
			c.ip = 0
			c.Mem.SetReg16(memory.CS, uint16(c.iData2))
		} else {
			c.push(c.ip)
		}
	}
	if c.iD != 0 && c.iW != 0 {
		c.ip += uint16(int16(int8(c.iData0)))
	} else {
		c.ip += uint16(c.iData0)
	}
}

func (c *CPU) xchg() {
	if c.opToAddr == c.opFromAddr {
		return
	}
	tmp := c.ld(c.opToAddr)
	c.st(c.opToAddr, c.ld(c.opFromAddr))
	c.st(c.opFromAddr, tmp)
}

// stringMoveStoreLoad is MOVSx/STOSx/LODSx, selected by extra (0/1/2).
func (c *CPU) stringMoveStoreLoad() {
	segReg := memory.DS
	if c.segOverrideEn > 0 {
		segReg = c.segOverride
	}
	count := uint32(1)
	if c.repOverrideEn > 0 {
		count = uint32(c.Mem.Reg16(memory.CX))
	}
	for ; count > 0; count-- {
		var destAddr, srcAddr uint32
		if c.extra < 2 {
			destAddr = memory.Linear(c.Mem.Reg16(memory.ES), c.Mem.Reg16(memory.DI))
		} else {
			destAddr = memory.RegBase
		}
		if c.extra&1 != 0 {
			srcAddr = memory.RegBase
		} else {
			srcAddr = memory.Linear(c.Mem.Reg16(segReg), c.Mem.Reg16(memory.SI))
		}
		c.memOp(destAddr, srcAddr, true, assign)
		if c.extra&1 == 0 {
			c.indexInc(memory.SI)
		}
		if c.extra&2 == 0 {
			c.indexInc(memory.DI)
		}
	}
	if c.repOverrideEn > 0 {
		c.Mem.SetReg16(memory.CX, 0)
	}
}

// stringCmpScan is CMPSx/SCASx, selected by extra (0=CMPS,1=SCAS).
func (c *CPU) stringCmpScan() {
	segReg := memory.DS
	if c.segOverrideEn > 0 {
		segReg = c.segOverride
	}
	ran := false
	step := func() {
		var srcAddr uint32
		if c.extra != 0 {
			srcAddr = memory.RegBase
		} else {
			srcAddr = memory.Linear(c.Mem.Reg16(segReg), c.Mem.Reg16(memory.SI))
		}
		destAddr := memory.Linear(c.Mem.Reg16(memory.ES), c.Mem.Reg16(memory.DI))
		c.memOp(srcAddr, destAddr, false, func(d, s uint32) uint32 { return d - s })
		if c.extra == 0 {
			c.indexInc(memory.SI)
		}
		c.indexInc(memory.DI)
	}

	if c.repOverrideEn > 0 {
		for {
			cxBefore := c.Mem.Reg16(memory.CX)
			if cxBefore == 0 {
				break
			}
			step()
			ran = true
			cx := cxBefore - 1
			c.Mem.SetReg16(memory.CX, cx)
			zf := c.mask(uint32(c.opResult)) == 0
			wantEqual := c.repMode != 0
			if cx == 0 || zf != wantEqual {
				break
			}
		}
	} else {
		step()
		ran = true
	}

	if ran {
		c.setFlagsType = decode.UpdateSZP | decode.UpdateAOArith
		c.setCF(uint32(c.opResult) > c.opDest)
	}
}

func (c *CPU) ret() {
	c.iD = c.iW
	c.ip = c.pop()
	if c.extra != 0 {
		c.Mem.SetReg16(memory.CS, c.pop())
	}
	if c.extra&2 != 0 {
		c.Mem.SetFlags(c.pop())
	} else if c.iD == 0 {
		c.Mem.SetReg16(memory.SP, c.Mem.Reg16(memory.SP)+uint16(c.iData0))
	}
}

func (c *CPU) in() {
	port := uint16(uint8(c.iData0))
	if c.extra != 0 {
		port = c.Mem.Reg16(memory.DX)
	}
	val := c.Ports.In(c.Mem, port, c.Filter)
	c.memOpImm(memory.RegBase, uint32(val), true, assign)
}

func (c *CPU) out() {
	port := uint16(uint8(c.iData0))
	if c.extra != 0 {
		port = c.Mem.Reg16(memory.DX)
	}
	c.Ports.Out(c.Mem, port, c.Mem.Reg8(memory.AL), c.Speaker, c.Filter)
}

func (c *CPU) cbw() {
	al := c.Mem.Reg8(memory.AL)
	if al&0x80 != 0 {
		c.Mem.SetReg8(memory.AH, 0xFF)
	} else {
		c.Mem.SetReg8(memory.AH, 0)
	}
}

func (c *CPU) cwd() {
	ax := c.Mem.Reg16(memory.AX)
	if ax&0x8000 != 0 {
		c.Mem.SetReg16(memory.DX, 0xFFFF)
	} else {
		c.Mem.SetReg16(memory.DX, 0)
	}
}

func (c *CPU) callFar() {
	c.push(c.Mem.Reg16(memory.CS))
	c.push(c.ip + 5)
	c.Mem.SetReg16(memory.CS, uint16(c.iData2))
	c.ip = uint16(c.iData0)
}

func (c *CPU) lesLds() {
	c.iW = 1
	c.iD = 1
	c.decodeRMReg()
	c.memOp(c.opToAddr, c.opFromAddr, true, assign)
	c.Mem.SetReg16(c.extra, c.Mem.Word(c.rmAddr+2))
}

func (c *CPU) aam() {
	imm := c.iData0 & 0xFF
	if imm == 0 {
		c.deliver(0)
		return
	}
	al := c.Mem.Reg8(memory.AL)
	c.Mem.SetReg8(memory.AH, al/uint8(imm))
	newAL := al % uint8(imm)
	c.Mem.SetReg8(memory.AL, newAL)
	c.opResult = int32(newAL)
}

func (c *CPU) aad() {
	c.iW = 0
	al := uint32(c.Mem.Reg8(memory.AL))
	ah := uint32(c.Mem.Reg8(memory.AH))
	result := (al + uint32(uint8(c.iData0))*ah) & 0xFF
	c.Mem.SetReg16(memory.AX, uint16(result))
	c.opResult = int32(result)
}

func (c *CPU) xlat() {
	seg := memory.DS
	if c.segOverrideEn > 0 {
		seg = c.segOverride
	}
	al := c.Mem.Reg8(memory.AL)
	addr := memory.Linear(c.Mem.Reg16(seg), c.Mem.Reg16(memory.BX)+uint16(al))
	c.Mem.SetReg8(memory.AL, c.Mem.Byte(addr))
}
