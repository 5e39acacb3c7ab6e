package ecall

import (
	"bytes"
	"testing"
	"time"

	"github.com/riscvcorn/rv32vm/go/cpu/rv32"
	"github.com/riscvcorn/rv32vm/go/hostos"
	"github.com/riscvcorn/rv32vm/go/models/cpu"
)

func newTestCPU() *rv32.CPU {
	mem := cpu.NewMemory(0x10000)
	return rv32.NewCPU(mem, 0)
}

func TestDispatchPrint(t *testing.T) {
	c := newTestCPU()
	msg := []byte("hi")
	if err := c.Mem.WriteRange(0x100, msg); err != nil {
		t.Fatal(err)
	}
	c.Regs.RegWrite(regA7, SyscallPrint)
	c.Regs.RegWrite(regA0, 0x100)
	c.Regs.RegWrite(regA1, uint32(len(msg)))

	var out bytes.Buffer
	d := &Dispatcher{Console: &out}
	if err := d.Dispatch(c); err != nil {
		t.Fatal(err)
	}
	if out.String() != "hi" {
		t.Fatalf("console got %q, want %q", out.String(), "hi")
	}
	if ret := c.Regs.RegRead(regA0); ret != 2 {
		t.Fatalf("a0 = %d, want 2", ret)
	}
	if c.PC != 4 {
		t.Fatalf("PC = %#x, want 4", c.PC)
	}
}

// TestDispatchPrintClickHouseVector reproduces the ecall_print vector
// from original_source/'s instruction_test.go verbatim (message,
// buffer address, a0/a1/a7 values) rather than an arbitrary string.
func TestDispatchPrintClickHouseVector(t *testing.T) {
	c := newTestCPU()
	const romSize = 128
	msg := []byte("ClickHouse!")
	if err := c.Mem.WriteRange(romSize, msg); err != nil {
		t.Fatal(err)
	}
	c.Regs.RegWrite(regA7, SyscallPrint)
	c.Regs.RegWrite(regA0, romSize)
	c.Regs.RegWrite(regA1, uint32(len(msg)))

	var out bytes.Buffer
	d := &Dispatcher{Console: &out}
	if err := d.Dispatch(c); err != nil {
		t.Fatal(err)
	}
	if out.String() != "ClickHouse!" {
		t.Fatalf("console got %q, want %q", out.String(), "ClickHouse!")
	}
	if c.PC != 4 {
		t.Fatalf("PC = %#x, want 4", c.PC)
	}
}

func TestDispatchUnknownSyscallFails(t *testing.T) {
	c := newTestCPU()
	c.Regs.RegWrite(regA7, SyscallFailed)
	d := &Dispatcher{}
	if err := d.Dispatch(c); err != nil {
		t.Fatal(err)
	}
	if ret := c.Regs.RegRead(regA0); ret != 0xffffffff {
		t.Fatalf("a0 = %#x, want 0xffffffff", ret)
	}
}

// TestDispatchUnassignedSyscallIsNotForwarded guards against a7 values
// outside both the built-in and HostOS tables leaking a HostOS-internal
// status sentinel back to the guest instead of -1.
func TestDispatchUnassignedSyscallIsNotForwarded(t *testing.T) {
	c := newTestCPU()
	c.Regs.RegWrite(regA7, 0x20)
	server := hostos.NewServer(3, 16)
	d := &Dispatcher{Host: &hostos.InProcessClient{Server: server}, Deadline: time.Second}
	if err := d.Dispatch(c); err != nil {
		t.Fatal(err)
	}
	if ret := c.Regs.RegRead(regA0); ret != 0xffffffff {
		t.Fatalf("a0 = %#x, want 0xffffffff", ret)
	}
}

func TestDispatchHostWriteBadFdFails(t *testing.T) {
	c := newTestCPU()
	data := []byte("host")
	if err := c.Mem.WriteRange(0x200, data); err != nil {
		t.Fatal(err)
	}

	server := hostos.NewServer(3, 16)
	d := &Dispatcher{Host: &hostos.InProcessClient{Server: server}, Deadline: time.Second}

	c.Regs.RegWrite(regA7, hostos.SyscallWrite)
	c.Regs.RegWrite(regA0, 99) // bad fd, expect negative status
	c.Regs.RegWrite(regA1, 0x200)
	c.Regs.RegWrite(regA2, uint32(len(data)))

	if err := d.Dispatch(c); err != nil {
		t.Fatal(err)
	}
	if ret := int32(c.Regs.RegRead(regA0)); ret >= 0 {
		t.Fatalf("write to bad fd a0 = %d, want negative", ret)
	}
}

func TestDispatchResetWithNoHostSucceeds(t *testing.T) {
	c := newTestCPU()
	c.Regs.RegWrite(regA7, SyscallReset)
	d := &Dispatcher{}
	if err := d.Dispatch(c); err != nil {
		t.Fatal(err)
	}
	if ret := c.Regs.RegRead(regA0); ret != 0 {
		t.Fatalf("a0 = %d, want 0", ret)
	}
}
