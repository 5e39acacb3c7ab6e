package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/mgutz/ansi"

	"github.com/riscvcorn/rv32vm/go/cpu/rv32"
)

// Command mirrors the teacher's go/debug/cmd.Command{Name,Desc,Run}
// table, but Run takes a plain []string instead of going through
// argjoy's reflection-based argument binding — this debugger has about
// a dozen commands, each with simple positional arguments, so a direct
// switch on len(args) reads more plainly than a reflection layer built
// to bind arbitrary typed parameters.
type Command struct {
	Name string
	Desc string
	Run  func(s *Session, args []string) error
}

var commands = map[string]*Command{}

func register(c *Command) { commands[c.Name] = c }

func init() {
	register(&Command{Name: "step", Desc: "execute n instructions (default 1)", Run: cmdStep})
	register(&Command{Name: "run", Desc: "run until ebreak or error, servicing ecalls along the way", Run: cmdRun})
	register(&Command{Name: "reg", Desc: "show or set a register: reg | reg x5 | reg x5=42", Run: cmdReg})
	register(&Command{Name: "mem", Desc: "hex-dump memory: mem <addr> <len>", Run: cmdMem})
	register(&Command{Name: "pc", Desc: "show or set the program counter", Run: cmdPC})
	register(&Command{Name: "save", Desc: "save a snapshot: save <path>", Run: cmdSave})
	register(&Command{Name: "load", Desc: "load a snapshot: load <path>", Run: cmdLoad})
	register(&Command{Name: "verify", Desc: "check a snapshot round-trips the live registers: verify <path>", Run: cmdVerify})
	register(&Command{Name: "help", Desc: "list commands", Run: cmdHelp})
	register(&Command{Name: "quit", Desc: "exit the debugger", Run: cmdQuit})
}

func cmdStep(s *Session, args []string) error {
	n := uint64(1)
	if len(args) > 0 {
		v, err := strconv.ParseUint(args[0], 0, 64)
		if err != nil {
			return err
		}
		n = v
	}
	for i := uint64(0); i < n; i++ {
		reason, err := s.CPU.Step()
		if err != nil {
			return err
		}
		s.steps++
		if reason == rv32.StepEcall {
			if err := s.Dispatch.Dispatch(s.CPU); err != nil {
				return err
			}
			continue
		}
		if reason == rv32.StepEbreak {
			s.printf("%s\n", s.color("yellow", fmt.Sprintf("ebreak @ %#x", s.CPU.PC)))
			return nil
		}
	}
	s.printf("pc = %#08x (%d steps total)\n", s.CPU.PC, s.steps)
	return nil
}

func cmdRun(s *Session, args []string) error {
	for {
		reason, err := s.CPU.Step()
		if err != nil {
			return err
		}
		s.steps++
		switch reason {
		case rv32.StepEcall:
			if err := s.Dispatch.Dispatch(s.CPU); err != nil {
				return err
			}
		case rv32.StepEbreak:
			s.printf("%s\n", s.color("yellow", fmt.Sprintf("ebreak @ %#x, %d steps", s.CPU.PC, s.steps)))
			return nil
		}
	}
}

var regAliases = map[string]int{
	"zero": 0, "ra": 1, "sp": 2, "gp": 3, "tp": 4,
	"a0": 10, "a1": 11, "a2": 12, "a3": 13, "a7": 17,
}

func regIndex(name string) (int, error) {
	if i, ok := regAliases[name]; ok {
		return i, nil
	}
	if strings.HasPrefix(name, "x") {
		return strconv.Atoi(name[1:])
	}
	return 0, fmt.Errorf("unknown register %q", name)
}

func cmdReg(s *Session, args []string) error {
	if len(args) == 0 {
		for i := 0; i < 32; i++ {
			s.printf("x%-2d = %#08x\n", i, s.CPU.Regs.RegRead(i))
		}
		return nil
	}
	for _, arg := range args {
		if eq := strings.IndexByte(arg, '='); eq >= 0 {
			idx, err := regIndex(arg[:eq])
			if err != nil {
				return err
			}
			val, err := strconv.ParseUint(arg[eq+1:], 0, 32)
			if err != nil {
				return err
			}
			s.CPU.Regs.RegWrite(idx, uint32(val))
			continue
		}
		idx, err := regIndex(arg)
		if err != nil {
			return err
		}
		s.printf("%s = %#08x\n", arg, s.CPU.Regs.RegRead(idx))
	}
	return nil
}

func cmdPC(s *Session, args []string) error {
	if len(args) == 0 {
		s.printf("pc = %#08x\n", s.CPU.PC)
		return nil
	}
	v, err := strconv.ParseUint(args[0], 0, 32)
	if err != nil {
		return err
	}
	s.CPU.PC = uint32(v)
	return nil
}

func cmdMem(s *Session, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: mem <addr> <len>")
	}
	addr, err := strconv.ParseUint(args[0], 0, 32)
	if err != nil {
		return err
	}
	length, err := strconv.ParseUint(args[1], 0, 32)
	if err != nil {
		return err
	}
	buf, err := s.CPU.Mem.ReadRange(uint32(addr), uint32(length))
	if err != nil {
		return err
	}
	for _, line := range hexDump(uint32(addr), buf) {
		s.printf("  %s\n", line)
	}
	return nil
}

func cmdSave(s *Session, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: save <path>")
	}
	f, err := os.Create(args[0])
	if err != nil {
		return err
	}
	defer f.Close()
	return s.CPU.Snapshot(f)
}

func cmdLoad(s *Session, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: load <path>")
	}
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()
	return s.CPU.RestoreSnapshot(f)
}

func cmdVerify(s *Session, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: verify <path>")
	}
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()
	before := s.CPU.Regs.ContextSave()
	if err := s.CPU.RestoreSnapshot(f); err != nil {
		return err
	}
	after := s.CPU.Regs.ContextSave()
	if reg, ok := rv32.FirstRegisterMismatch(before, after); !ok {
		s.printf("%s\n", s.color("red", fmt.Sprintf("x%-2d before 0x%08x != after 0x%08x", reg, before[reg], after[reg])))
		return nil
	}
	s.printf("%s\n", s.color("green", "registers match"))
	return nil
}

func cmdHelp(s *Session, args []string) error {
	for _, name := range sortedCommandNames() {
		s.printf("  %-6s %s\n", name, commands[name].Desc)
	}
	return nil
}

func sortedCommandNames() []string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	for i := 1; i < len(names); i++ {
		for j := i; j > 0 && names[j] < names[j-1]; j-- {
			names[j], names[j-1] = names[j-1], names[j]
		}
	}
	return names
}

var errQuit = fmt.Errorf("quit")

func cmdQuit(s *Session, args []string) error { return errQuit }

// hexDump formats mem the way go/debug.go's HexDump does: an address
// column, a hex byte block, and an ASCII gutter.
func hexDump(base uint32, mem []byte) []string {
	const width = 16
	var out []string
	for off := 0; off < len(mem); off += width {
		end := off + width
		if end > len(mem) {
			end = len(mem)
		}
		chunk := mem[off:end]
		var hexPart, asciiPart strings.Builder
		for _, b := range chunk {
			fmt.Fprintf(&hexPart, "%02x ", b)
			if b >= 0x20 && b <= 0x7e {
				asciiPart.WriteByte(b)
			} else {
				asciiPart.WriteByte('.')
			}
		}
		out = append(out, fmt.Sprintf("%#08x: %-48s %s", base+uint32(off), hexPart.String(), asciiPart.String()))
	}
	return out
}

func (s *Session) color(name, text string) string {
	if !s.useColor {
		return text
	}
	return ansi.Color(text, name)
}
