// Command rv32dbg is an interactive debugger for the RV32IM
// interpreter: single-step, register/memory inspection, and
// snapshot save/load, grounded in the teacher's go/debug/cmd command
// table and go/repl's readline loop, minus the Lua scripting bridge
// (no scripting surface is named for this machine).
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/mattn/go-isatty"
	"github.com/shibukawa/configdir"

	"github.com/riscvcorn/rv32vm/go/cpu/rv32"
	"github.com/riscvcorn/rv32vm/go/ecall"
	"github.com/riscvcorn/rv32vm/go/hostos"
	"github.com/riscvcorn/rv32vm/go/loader"
	"github.com/riscvcorn/rv32vm/go/models/cpu"
	"github.com/riscvcorn/rv32vm/internal/config"
)

// Session holds the debugger's live VM state across commands.
type Session struct {
	CPU      *rv32.CPU
	Dispatch *ecall.Dispatcher
	steps    uint64
	useColor bool
	out      io.Writer
}

func (s *Session) printf(format string, a ...interface{}) {
	fmt.Fprintf(s.out, format, a...)
}

func main() {
	configPath := config.UserConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <hexfile>\n", os.Args[0])
		os.Exit(1)
	}
	blob, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	program, err := loader.LoadHex(string(blob))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	mem := cpu.NewMemory(cfg.MemSize)
	if err := mem.WriteRange(0, program); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	c := rv32.NewCPU(mem, cfg.InitialPC)
	server := hostos.NewServer(cfg.DescriptorStart, cfg.PipeQueueCapacity)

	session := &Session{
		CPU: c,
		Dispatch: &ecall.Dispatcher{
			Console:  os.Stdout,
			Host:     &hostos.InProcessClient{Server: server},
			Deadline: cfg.HostCallDeadline,
		},
		useColor: isatty.IsTerminal(os.Stdout.Fd()),
		out:      os.Stdout,
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "rv32dbg> ",
		HistoryFile:     historyPath(),
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return
		}
		if err := dispatchLine(session, line); err != nil {
			if err == errQuit {
				return
			}
			fmt.Fprintln(os.Stderr, session.color("red", err.Error()))
		}
	}
}

func dispatchLine(s *Session, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	name, args := fields[0], fields[1:]
	cmd, ok := commands[name]
	if !ok {
		return fmt.Errorf("unknown command %q (try help)", name)
	}
	return cmd.Run(s, args)
}

// historyPath locates a per-user command history file the way
// go/ui/tui.go locates its own history cache path via configdir.
func historyPath() string {
	dirs := configdir.New("rv32vm", "rv32dbg")
	cacheDir := dirs.QueryCacheFolder()
	if cacheDir == nil {
		return ""
	}
	if err := cacheDir.MkdirAll(); err != nil {
		return ""
	}
	return filepath.Join(cacheDir.Path, "history")
}
