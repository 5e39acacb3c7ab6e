// Command rv32vm loads a hex-encoded RV32IM program and runs it to
// completion, in the spirit of the teacher's go/cli.go entry point but
// retargeted from "load an ELF/Mach-O binary under Unicorn" to "load a
// raw instruction stream under the native decode/execute loop."
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/mgutz/ansi"

	"github.com/riscvcorn/rv32vm/go/cpu/rv32"
	"github.com/riscvcorn/rv32vm/go/ecall"
	"github.com/riscvcorn/rv32vm/go/hostos"
	"github.com/riscvcorn/rv32vm/go/loader"
	"github.com/riscvcorn/rv32vm/go/models/cpu"
	"github.com/riscvcorn/rv32vm/internal/config"
)

func main() {
	verbose := flag.Bool("v", false, "verbose output")
	strace := flag.Bool("strace", false, "trace syscalls")
	mtrace := flag.Bool("mtrace", false, "trace memory access")
	etrace := flag.Bool("etrace", false, "trace execution")
	configPath := flag.String("config", config.UserConfigPath(), "path to config.yaml")
	maxSteps := flag.Uint64("max-steps", 0, "stop after this many steps (0 = unlimited)")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	config.RegisterFlags(flag.CommandLine, &cfg)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <hexfile>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if *configPath != cfg.ConfigPath {
		// -config named another file: load it, then re-apply the
		// command-line overrides on top of it.
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatal(err)
		}
		flag.CommandLine.Parse(os.Args[1:])
	}
	args := flag.Args()
	if len(args) < 1 {
		flag.Usage()
		os.Exit(1)
	}

	blob, err := os.ReadFile(args[0])
	if err != nil {
		log.Fatal(err)
	}
	program, err := loader.LoadHex(string(blob))
	if err != nil {
		log.Fatal(err)
	}

	mem := cpu.NewMemory(cfg.MemSize)
	if err := mem.WriteRange(0, program); err != nil {
		log.Fatal(err)
	}
	c := rv32.NewCPU(mem, cfg.InitialPC)

	out := consoleWriter()
	traceColor := traceColorFunc()
	server := hostos.NewServer(cfg.DescriptorStart, cfg.PipeQueueCapacity)
	dispatch := &ecall.Dispatcher{
		Console:  out,
		Host:     &hostos.InProcessClient{Server: server},
		Deadline: cfg.HostCallDeadline,
	}
	if *strace {
		dispatch.Trace = func(num uint32, args [4]uint32, ret uint32) {
			fmt.Fprintln(os.Stderr, traceColor(fmt.Sprintf("[ecall %#x(%#x,%#x,%#x,%#x) = %#x]",
				num, args[0], args[1], args[2], args[3], ret)))
		}
	}
	if *etrace || *verbose {
		c.Hooks = cpu.NewHooks(mem)
		c.Hooks.OnStepHook(func(pc uint32) {
			fmt.Fprintln(os.Stderr, traceColor(fmt.Sprintf("[pc %#08x]", pc)))
		})
	}
	if *mtrace {
		if c.Hooks == nil {
			c.Hooks = cpu.NewHooks(mem)
		}
		c.Hooks.OnMemHook(func(access cpu.AccessKind, addr uint32, size int) {
			fmt.Fprintln(os.Stderr, traceColor(fmt.Sprintf("[mem %s %#x %d]", access, addr, size)))
		})
	}

	steps := uint64(0)
	for {
		if *maxSteps != 0 && steps >= *maxSteps {
			break
		}
		reason, err := c.Step()
		if err != nil {
			log.Fatalf("step %d at pc %#x: %v", steps, c.PC, err)
		}
		steps++
		switch reason {
		case rv32.StepEcall:
			if err := dispatch.Dispatch(c); err != nil {
				log.Fatalf("ecall at pc %#x: %v", c.PC, err)
			}
		case rv32.StepEbreak:
			fmt.Fprintf(os.Stderr, "[ebreak @ %#x, %d steps]\n", c.PC, steps)
			return
		}
	}
}

// consoleWriter is where PRINT ecalls write: an ANSI-safe stdout on
// Windows, plain stdout everywhere else, matching go/ui/stream.go's
// go-colorable/go-isatty pairing.
func consoleWriter() io.Writer {
	return colorable.NewColorableStdout()
}

// traceColorFunc dims trace lines when stderr is a real terminal, and
// passes them through unchanged when piped to a file or another process.
func traceColorFunc() func(string) string {
	if !isatty.IsTerminal(os.Stderr.Fd()) {
		return func(s string) string { return s }
	}
	dim := ansi.ColorFunc("black+h")
	return dim
}
