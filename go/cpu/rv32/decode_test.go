package rv32

import "testing"

func encodeR(funct7, rs2, rs1, funct3, rd, opcode uint32) uint32 {
	return funct7<<25 | rs2<<20 | rs1<<15 | funct3<<12 | rd<<7 | opcode
}

func encodeI(imm uint32, rs1, funct3, rd, opcode uint32) uint32 {
	return (imm&0xfff)<<20 | rs1<<15 | funct3<<12 | rd<<7 | opcode
}

func encodeS(imm uint32, rs2, rs1, funct3, opcode uint32) uint32 {
	hi := (imm >> 5) & 0x7f
	lo := imm & 0x1f
	return hi<<25 | rs2<<20 | rs1<<15 | funct3<<12 | lo<<7 | opcode
}

func encodeB(imm uint32, rs2, rs1, funct3, opcode uint32) uint32 {
	b12 := (imm >> 12) & 0x1
	b10_5 := (imm >> 5) & 0x3f
	b4_1 := (imm >> 1) & 0xf
	b11 := (imm >> 11) & 0x1
	return b12<<31 | b10_5<<25 | rs2<<20 | rs1<<15 | funct3<<12 | b4_1<<8 | b11<<7 | opcode
}

func encodeU(imm uint32, rd, opcode uint32) uint32 {
	return (imm & 0xfffff000) | rd<<7 | opcode
}

func encodeJ(imm uint32, rd, opcode uint32) uint32 {
	b20 := (imm >> 20) & 0x1
	b19_12 := (imm >> 12) & 0xff
	b11 := (imm >> 11) & 0x1
	b10_1 := (imm >> 1) & 0x3ff
	return b20<<31 | b10_1<<21 | b11<<20 | b19_12<<12 | rd<<7 | opcode
}

func TestDecodeAddi(t *testing.T) {
	word := encodeI(^uint32(0)-9, 2, 0b000, 5, opOpImm) // imm = -10
	ins, err := Decode(word)
	if err != nil {
		t.Fatal(err)
	}
	if ins.Name != "addi" || ins.Rd != 5 || ins.Rs1 != 2 || ins.Imm != -10 {
		t.Fatalf("got %+v", ins)
	}
}

func TestDecodeAddSub(t *testing.T) {
	add := encodeR(0, 2, 1, 0b000, 3, opOp)
	ins, err := Decode(add)
	if err != nil || ins.Name != "add" || ins.Rd != 3 || ins.Rs1 != 1 || ins.Rs2 != 2 {
		t.Fatalf("add: got %+v, err %v", ins, err)
	}

	sub := encodeR(funct7Alt, 2, 1, 0b000, 3, opOp)
	ins, err = Decode(sub)
	if err != nil || ins.Name != "sub" {
		t.Fatalf("sub: got %+v, err %v", ins, err)
	}
}

func TestDecodeSra(t *testing.T) {
	word := encodeR(funct7Alt, 2, 1, 0b101, 3, opOp)
	ins, err := Decode(word)
	if err != nil || ins.Name != "sra" {
		t.Fatalf("got %+v, err %v", ins, err)
	}
}

func TestDecodeMDiv(t *testing.T) {
	word := encodeR(funct7M, 2, 1, 0b100, 3, opOp)
	ins, err := Decode(word)
	if err != nil || ins.Name != "div" {
		t.Fatalf("got %+v, err %v", ins, err)
	}
}

func TestDecodeBeq(t *testing.T) {
	negFour := int32(-4)
	word := encodeB(uint32(negFour), 2, 1, 0b000, opBranch)
	ins, err := Decode(word)
	if err != nil {
		t.Fatal(err)
	}
	if ins.Name != "beq" || ins.Rs1 != 1 || ins.Rs2 != 2 || ins.Imm != -4 {
		t.Fatalf("got %+v", ins)
	}
}

func TestDecodeJal(t *testing.T) {
	word := encodeJ(uint32(int32(16)), 1, opJal)
	ins, err := Decode(word)
	if err != nil {
		t.Fatal(err)
	}
	if ins.Name != "jal" || ins.Rd != 1 || ins.Imm != 16 {
		t.Fatalf("got %+v", ins)
	}
}

func TestDecodeLui(t *testing.T) {
	word := encodeU(0x12345000, 5, opLui)
	ins, err := Decode(word)
	if err != nil {
		t.Fatal(err)
	}
	if ins.Name != "lui" || ins.Rd != 5 || ins.Imm != 0x12345000 {
		t.Fatalf("got %+v", ins)
	}
}

func TestDecodeStoreLoad(t *testing.T) {
	negEight := int32(-8)
	sw := encodeS(uint32(negEight), 2, 1, 0b010, opStore)
	ins, err := Decode(sw)
	if err != nil || ins.Name != "sw" || ins.Rs1 != 1 || ins.Rs2 != 2 || ins.Imm != -8 {
		t.Fatalf("sw: got %+v, err %v", ins, err)
	}

	lw := encodeI(uint32(negEight), 1, 0b010, 3, opLoad)
	ins, err = Decode(lw)
	if err != nil || ins.Name != "lw" || ins.Rd != 3 || ins.Rs1 != 1 || ins.Imm != -8 {
		t.Fatalf("lw: got %+v, err %v", ins, err)
	}
}

func TestDecodeEcallEbreak(t *testing.T) {
	ins, err := Decode(opSystem)
	if err != nil || ins.Name != "ecall" {
		t.Fatalf("ecall: got %+v, err %v", ins, err)
	}
	ebreak := encodeI(1, 0, 0, 0, opSystem)
	ins, err = Decode(ebreak)
	if err != nil || ins.Name != "ebreak" {
		t.Fatalf("ebreak: got %+v, err %v", ins, err)
	}
}

func TestDecodeIllegalOpcode(t *testing.T) {
	if _, err := Decode(0x7f); err == nil {
		t.Fatal("expected error for illegal opcode")
	}
}
