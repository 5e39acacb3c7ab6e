package rv32

import "github.com/pkg/errors"

// Opcode values, bits [6:0] of every RV32I/M instruction word.
const (
	opLoad   = 0x03
	opOpImm  = 0x13
	opAuipc  = 0x17
	opStore  = 0x23
	opOp     = 0x33
	opLui    = 0x37
	opBranch = 0x63
	opJalr   = 0x67
	opJal    = 0x6f
	opSystem = 0x73
)

const funct7M = 0x01
const funct7Alt = 0x20

// Instruction is the result of decoding one 32-bit word. Name is the
// mnemonic used to dispatch execution; Rd/Rs1/Rs2 are register indices
// (0-31, meaningless when the format doesn't use them); Imm is already
// sign-extended where the encoding calls for it.
type Instruction struct {
	Name string
	Rd   int
	Rs1  int
	Rs2  int
	Imm  int32
}

// ErrIllegalInstruction is returned for any opcode/funct3/funct7
// combination this decoder doesn't recognize.
var ErrIllegalInstruction = errors.New("illegal instruction")

func signExtend(val uint32, bits uint) int32 {
	shift := 32 - bits
	return int32(val<<shift) >> shift
}

func immI(word uint32) int32 {
	return signExtend(word>>20, 12)
}

func immS(word uint32) int32 {
	hi := (word >> 25) & 0x7f
	lo := (word >> 7) & 0x1f
	return signExtend(hi<<5|lo, 12)
}

func immB(word uint32) int32 {
	b12 := (word >> 31) & 0x1
	b11 := (word >> 7) & 0x1
	b10_5 := (word >> 25) & 0x3f
	b4_1 := (word >> 8) & 0xf
	raw := b12<<12 | b11<<11 | b10_5<<5 | b4_1<<1
	return signExtend(raw, 13)
}

func immU(word uint32) int32 {
	return int32(word & 0xfffff000)
}

func immJ(word uint32) int32 {
	b20 := (word >> 31) & 0x1
	b19_12 := (word >> 12) & 0xff
	b11 := (word >> 20) & 0x1
	b10_1 := (word >> 21) & 0x3ff
	raw := b20<<20 | b19_12<<12 | b11<<11 | b10_1<<1
	return signExtend(raw, 21)
}

// Decode extracts opcode/funct3/funct7/register/immediate fields from
// word and returns the named, ready-to-execute instruction, or
// ErrIllegalInstruction if no RV32IM encoding matches.
func Decode(word uint32) (Instruction, error) {
	opcode := word & 0x7f
	rd := int((word >> 7) & 0x1f)
	funct3 := (word >> 12) & 0x7
	rs1 := int((word >> 15) & 0x1f)
	rs2 := int((word >> 20) & 0x1f)
	funct7 := (word >> 25) & 0x7f

	switch opcode {
	case opLui:
		return Instruction{Name: "lui", Rd: rd, Imm: immU(word)}, nil
	case opAuipc:
		return Instruction{Name: "auipc", Rd: rd, Imm: immU(word)}, nil
	case opJal:
		return Instruction{Name: "jal", Rd: rd, Imm: immJ(word)}, nil
	case opJalr:
		if funct3 != 0 {
			return Instruction{}, errors.Wrapf(ErrIllegalInstruction, "jalr funct3 %#x", funct3)
		}
		return Instruction{Name: "jalr", Rd: rd, Rs1: rs1, Imm: immI(word)}, nil
	case opBranch:
		name, ok := branchNames[funct3]
		if !ok {
			return Instruction{}, errors.Wrapf(ErrIllegalInstruction, "branch funct3 %#x", funct3)
		}
		return Instruction{Name: name, Rs1: rs1, Rs2: rs2, Imm: immB(word)}, nil
	case opLoad:
		name, ok := loadNames[funct3]
		if !ok {
			return Instruction{}, errors.Wrapf(ErrIllegalInstruction, "load funct3 %#x", funct3)
		}
		return Instruction{Name: name, Rd: rd, Rs1: rs1, Imm: immI(word)}, nil
	case opStore:
		name, ok := storeNames[funct3]
		if !ok {
			return Instruction{}, errors.Wrapf(ErrIllegalInstruction, "store funct3 %#x", funct3)
		}
		return Instruction{Name: name, Rs1: rs1, Rs2: rs2, Imm: immS(word)}, nil
	case opOpImm:
		return decodeOpImm(word, rd, rs1, funct3, funct7)
	case opOp:
		return decodeOp(rd, rs1, rs2, funct3, funct7)
	case opSystem:
		if funct3 != 0 || rd != 0 || rs1 != 0 {
			return Instruction{}, errors.Wrapf(ErrIllegalInstruction, "system funct3 %#x", funct3)
		}
		switch immI(word) {
		case 0:
			return Instruction{Name: "ecall"}, nil
		case 1:
			return Instruction{Name: "ebreak"}, nil
		default:
			return Instruction{}, errors.Wrap(ErrIllegalInstruction, "system imm")
		}
	default:
		return Instruction{}, errors.Wrapf(ErrIllegalInstruction, "opcode %#x", opcode)
	}
}

var branchNames = map[uint32]string{
	0b000: "beq", 0b001: "bne", 0b100: "blt", 0b101: "bge", 0b110: "bltu", 0b111: "bgeu",
}

var loadNames = map[uint32]string{
	0b000: "lb", 0b001: "lh", 0b010: "lw", 0b100: "lbu", 0b101: "lhu",
}

var storeNames = map[uint32]string{
	0b000: "sb", 0b001: "sh", 0b010: "sw",
}

func decodeOpImm(word uint32, rd, rs1 int, funct3, funct7 uint32) (Instruction, error) {
	switch funct3 {
	case 0b000:
		return Instruction{Name: "addi", Rd: rd, Rs1: rs1, Imm: immI(word)}, nil
	case 0b010:
		return Instruction{Name: "slti", Rd: rd, Rs1: rs1, Imm: immI(word)}, nil
	case 0b011:
		return Instruction{Name: "sltiu", Rd: rd, Rs1: rs1, Imm: immI(word)}, nil
	case 0b100:
		return Instruction{Name: "xori", Rd: rd, Rs1: rs1, Imm: immI(word)}, nil
	case 0b110:
		return Instruction{Name: "ori", Rd: rd, Rs1: rs1, Imm: immI(word)}, nil
	case 0b111:
		return Instruction{Name: "andi", Rd: rd, Rs1: rs1, Imm: immI(word)}, nil
	case 0b001:
		if funct7 != 0 {
			return Instruction{}, errors.Wrap(ErrIllegalInstruction, "slli funct7")
		}
		return Instruction{Name: "slli", Rd: rd, Rs1: rs1, Imm: int32((word >> 20) & 0x1f)}, nil
	case 0b101:
		shamt := int32((word >> 20) & 0x1f)
		switch funct7 {
		case 0:
			return Instruction{Name: "srli", Rd: rd, Rs1: rs1, Imm: shamt}, nil
		case funct7Alt:
			return Instruction{Name: "srai", Rd: rd, Rs1: rs1, Imm: shamt}, nil
		default:
			return Instruction{}, errors.Wrap(ErrIllegalInstruction, "shift-right funct7")
		}
	default:
		return Instruction{}, errors.Wrapf(ErrIllegalInstruction, "op-imm funct3 %#x", funct3)
	}
}

var opBaseNames = map[uint32]string{
	0b000: "add", 0b001: "sll", 0b010: "slt", 0b011: "sltu",
	0b100: "xor", 0b101: "srl", 0b110: "or", 0b111: "and",
}

var opMNames = map[uint32]string{
	0b000: "mul", 0b001: "mulh", 0b010: "mulhsu", 0b011: "mulhu",
	0b100: "div", 0b101: "divu", 0b110: "rem", 0b111: "remu",
}

func decodeOp(rd, rs1, rs2 int, funct3, funct7 uint32) (Instruction, error) {
	switch funct7 {
	case funct7M:
		name, ok := opMNames[funct3]
		if !ok {
			return Instruction{}, errors.Wrapf(ErrIllegalInstruction, "op-m funct3 %#x", funct3)
		}
		return Instruction{Name: name, Rd: rd, Rs1: rs1, Rs2: rs2}, nil
	case funct7Alt:
		switch funct3 {
		case 0b000:
			return Instruction{Name: "sub", Rd: rd, Rs1: rs1, Rs2: rs2}, nil
		case 0b101:
			return Instruction{Name: "sra", Rd: rd, Rs1: rs1, Rs2: rs2}, nil
		default:
			return Instruction{}, errors.Wrapf(ErrIllegalInstruction, "op funct7 0x20 funct3 %#x", funct3)
		}
	case 0:
		name, ok := opBaseNames[funct3]
		if !ok {
			return Instruction{}, errors.Wrapf(ErrIllegalInstruction, "op funct3 %#x", funct3)
		}
		return Instruction{Name: name, Rd: rd, Rs1: rs1, Rs2: rs2}, nil
	default:
		return Instruction{}, errors.Wrapf(ErrIllegalInstruction, "op funct7 %#x", funct7)
	}
}
