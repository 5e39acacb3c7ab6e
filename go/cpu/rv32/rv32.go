// Package rv32 implements an RV32IM decode/execute loop in the idiom
// of the teacher's other hand-rolled bytecode interpreters
// (go/cpu/bpf, go/cpu/ndh): a CPU struct embeds the shared register
// file, memory, and trace hooks, and Step switches on the decoded
// instruction's mnemonic.
package rv32

import (
	"github.com/pkg/errors"

	"github.com/riscvcorn/rv32vm/go/models/cpu"
)

// StopReason tells the caller (the ECALL dispatcher, a debugger, or a
// plain run loop) why Step returned control instead of just advancing
// the PC.
type StopReason int

const (
	// StepOK means the instruction executed normally; keep stepping.
	StepOK StopReason = iota
	// StepEcall means an ECALL instruction was reached; the PC points
	// at it. The caller dispatches the syscall named in x17 (a7) then
	// advances PC by 4 before resuming.
	StepEcall
	// StepEbreak means an EBREAK instruction was reached; execution
	// should stop for debugger attention.
	StepEbreak
)

// CPU holds the full interpreter state: 32 registers, a program
// counter, and the memory it executes against. Hooks is optional and
// nil by default.
type CPU struct {
	Regs  *cpu.RegisterFile
	Mem   *cpu.Memory
	Hooks *cpu.Hooks
	PC    uint32
}

// NewCPU builds a CPU over the given memory, starting execution at pc.
func NewCPU(mem *cpu.Memory, pc uint32) *CPU {
	return &CPU{
		Regs: cpu.NewRegisterFile(),
		Mem:  mem,
		PC:   pc,
	}
}

func (c *CPU) reg(i int) uint32  { return c.Regs.RegRead(i) }
func (c *CPU) setReg(i int, v uint32) { c.Regs.RegWrite(i, v) }

// Step fetches, decodes, and executes exactly one instruction at PC.
// It returns StepOK having already advanced PC, or StepEcall/StepEbreak
// with PC left pointing at the ECALL/EBREAK word.
func (c *CPU) Step() (StopReason, error) {
	if c.PC%4 != 0 {
		return StepOK, errors.Errorf("misaligned fetch at %#x", c.PC)
	}
	word, err := c.Mem.ReadUint(c.PC, 4, true)
	if err != nil {
		return StepOK, errors.Wrapf(err, "fetch at %#x", c.PC)
	}
	ins, err := Decode(uint32(word))
	if err != nil {
		return StepOK, errors.Wrapf(err, "decode %#08x at %#x", word, c.PC)
	}
	if c.Hooks != nil {
		c.Hooks.Step(c.PC)
	}

	switch ins.Name {
	case "ecall":
		return StepEcall, nil
	case "ebreak":
		return StepEbreak, nil
	}

	nextPC := c.PC + 4
	if err := c.execute(ins, &nextPC); err != nil {
		return StepOK, err
	}
	c.PC = nextPC
	return StepOK, nil
}

func (c *CPU) execute(ins Instruction, nextPC *uint32) error {
	rs1 := c.reg(ins.Rs1)
	rs2 := c.reg(ins.Rs2)
	imm := uint32(ins.Imm)

	switch ins.Name {
	case "lui":
		c.setReg(ins.Rd, imm)
	case "auipc":
		c.setReg(ins.Rd, c.PC+imm)
	case "jal":
		c.setReg(ins.Rd, c.PC+4)
		*nextPC = c.PC + imm
	case "jalr":
		link := c.PC + 4
		*nextPC = (rs1 + imm) &^ 1
		c.setReg(ins.Rd, link)

	case "beq":
		if rs1 == rs2 {
			*nextPC = c.PC + imm
		}
	case "bne":
		if rs1 != rs2 {
			*nextPC = c.PC + imm
		}
	case "blt":
		if int32(rs1) < int32(rs2) {
			*nextPC = c.PC + imm
		}
	case "bge":
		if int32(rs1) >= int32(rs2) {
			*nextPC = c.PC + imm
		}
	case "bltu":
		if rs1 < rs2 {
			*nextPC = c.PC + imm
		}
	case "bgeu":
		if rs1 >= rs2 {
			*nextPC = c.PC + imm
		}

	case "lb", "lh", "lw", "lbu", "lhu":
		return c.execLoad(ins, rs1)
	case "sb", "sh", "sw":
		return c.execStore(ins, rs1, rs2)

	case "addi":
		c.setReg(ins.Rd, rs1+imm)
	case "slti":
		c.setReg(ins.Rd, boolu32(int32(rs1) < ins.Imm))
	case "sltiu":
		c.setReg(ins.Rd, boolu32(rs1 < imm))
	case "xori":
		c.setReg(ins.Rd, rs1^imm)
	case "ori":
		c.setReg(ins.Rd, rs1|imm)
	case "andi":
		c.setReg(ins.Rd, rs1&imm)
	case "slli":
		c.setReg(ins.Rd, rs1<<uint(ins.Imm&0x1f))
	case "srli":
		c.setReg(ins.Rd, rs1>>uint(ins.Imm&0x1f))
	case "srai":
		c.setReg(ins.Rd, uint32(int32(rs1)>>uint(ins.Imm&0x1f)))

	case "add":
		c.setReg(ins.Rd, rs1+rs2)
	case "sub":
		c.setReg(ins.Rd, rs1-rs2)
	case "sll":
		c.setReg(ins.Rd, rs1<<(rs2&0x1f))
	case "slt":
		c.setReg(ins.Rd, boolu32(int32(rs1) < int32(rs2)))
	case "sltu":
		c.setReg(ins.Rd, boolu32(rs1 < rs2))
	case "xor":
		c.setReg(ins.Rd, rs1^rs2)
	case "srl":
		c.setReg(ins.Rd, rs1>>(rs2&0x1f))
	case "sra":
		c.setReg(ins.Rd, uint32(int32(rs1)>>(rs2&0x1f)))
	case "or":
		c.setReg(ins.Rd, rs1|rs2)
	case "and":
		c.setReg(ins.Rd, rs1&rs2)

	case "mul":
		c.setReg(ins.Rd, rs1*rs2)
	case "mulh":
		prod := int64(int32(rs1)) * int64(int32(rs2))
		c.setReg(ins.Rd, uint32(prod>>32))
	case "mulhsu":
		prod := int64(int32(rs1)) * int64(uint64(rs2))
		c.setReg(ins.Rd, uint32(prod>>32))
	case "mulhu":
		prod := uint64(rs1) * uint64(rs2)
		c.setReg(ins.Rd, uint32(prod>>32))
	case "div":
		c.setReg(ins.Rd, execDiv(rs1, rs2))
	case "divu":
		c.setReg(ins.Rd, execDivu(rs1, rs2))
	case "rem":
		c.setReg(ins.Rd, execRem(rs1, rs2))
	case "remu":
		c.setReg(ins.Rd, execRemu(rs1, rs2))

	default:
		return errors.Errorf("unimplemented instruction %q", ins.Name)
	}
	return nil
}

func (c *CPU) execLoad(ins Instruction, rs1 uint32) error {
	addr := rs1 + uint32(ins.Imm)
	switch ins.Name {
	case "lb":
		v, err := c.Mem.ReadUint(addr, 1, false)
		if err != nil {
			return err
		}
		c.setReg(ins.Rd, uint32(int32(int8(v))))
	case "lh":
		v, err := c.Mem.ReadUint(addr, 2, false)
		if err != nil {
			return err
		}
		c.setReg(ins.Rd, uint32(int32(int16(v))))
	case "lw":
		v, err := c.Mem.ReadUint(addr, 4, false)
		if err != nil {
			return err
		}
		c.setReg(ins.Rd, uint32(v))
	case "lbu":
		v, err := c.Mem.ReadUint(addr, 1, false)
		if err != nil {
			return err
		}
		c.setReg(ins.Rd, uint32(v))
	case "lhu":
		v, err := c.Mem.ReadUint(addr, 2, false)
		if err != nil {
			return err
		}
		c.setReg(ins.Rd, uint32(v))
	}
	return nil
}

func (c *CPU) execStore(ins Instruction, rs1, rs2 uint32) error {
	addr := rs1 + uint32(ins.Imm)
	switch ins.Name {
	case "sb":
		return c.Mem.WriteUint(addr, 1, uint64(rs2))
	case "sh":
		return c.Mem.WriteUint(addr, 2, uint64(rs2))
	case "sw":
		return c.Mem.WriteUint(addr, 4, uint64(rs2))
	}
	return nil
}

func boolu32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// execDiv implements signed division with RV32IM's fixed results for
// divide-by-zero (-1) and the INT_MIN / -1 overflow case (INT_MIN).
func execDiv(a, b uint32) uint32 {
	if b == 0 {
		return 0xffffffff
	}
	sa, sb := int32(a), int32(b)
	if sa == -(1<<31) && sb == -1 {
		return a
	}
	return uint32(sa / sb)
}

func execDivu(a, b uint32) uint32 {
	if b == 0 {
		return 0xffffffff
	}
	return a / b
}

// execRem implements signed remainder, returning the dividend on
// divide-by-zero and 0 in the INT_MIN % -1 overflow case, per RV32M.
func execRem(a, b uint32) uint32 {
	if b == 0 {
		return a
	}
	sa, sb := int32(a), int32(b)
	if sa == -(1<<31) && sb == -1 {
		return 0
	}
	return uint32(sa % sb)
}

func execRemu(a, b uint32) uint32 {
	if b == 0 {
		return a
	}
	return a % b
}
