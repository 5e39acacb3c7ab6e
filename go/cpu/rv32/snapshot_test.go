package rv32

import (
	"bytes"
	"testing"

	"github.com/riscvcorn/rv32vm/go/models/cpu"
)

func TestSnapshotRoundTrip(t *testing.T) {
	mem := cpu.NewMemory(0x1000)
	c := NewCPU(mem, 0x40)
	c.Regs.RegWrite(5, 0xdeadbeef)
	if err := mem.WriteRange(0x100, []byte("hello snapshot")); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := c.Snapshot(&buf); err != nil {
		t.Fatal(err)
	}

	restored := NewCPU(cpu.NewMemory(0x1000), 0)
	if err := restored.RestoreSnapshot(&buf); err != nil {
		t.Fatal(err)
	}
	if restored.PC != 0x40 {
		t.Fatalf("PC = %#x, want %#x", restored.PC, 0x40)
	}
	if v := restored.Regs.RegRead(5); v != 0xdeadbeef {
		t.Fatalf("x5 = %#x, want 0xdeadbeef", v)
	}
	got, err := restored.Mem.ReadRange(0x100, 14)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hello snapshot" {
		t.Fatalf("mem = %q, want %q", got, "hello snapshot")
	}
}

func TestRestoreSnapshotRejectsBadMagic(t *testing.T) {
	restored := NewCPU(cpu.NewMemory(0x1000), 0)
	if err := restored.RestoreSnapshot(bytes.NewReader([]byte("not a snapshot!!"))); err == nil {
		t.Fatal("expected error for bad magic")
	}
}

func TestFirstRegisterMismatch(t *testing.T) {
	mem := cpu.NewMemory(0x1000)
	c := NewCPU(mem, 0x10)
	c.Regs.RegWrite(9, 7)

	var buf bytes.Buffer
	if err := c.Snapshot(&buf); err != nil {
		t.Fatal(err)
	}
	before := c.Regs.ContextSave()

	restored := NewCPU(cpu.NewMemory(0x1000), 0)
	if err := restored.RestoreSnapshot(&buf); err != nil {
		t.Fatal(err)
	}
	after := restored.Regs.ContextSave()

	if _, ok := FirstRegisterMismatch(before, after); !ok {
		t.Fatal("expected registers to match after round trip")
	}

	after[9] = 0xff
	if reg, ok := FirstRegisterMismatch(before, after); ok || reg != 9 {
		t.Fatalf("FirstRegisterMismatch = (%d, %v), want (9, false)", reg, ok)
	}
}
