package main

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mips32sim/mips32sim/config"
	"github.com/mips32sim/mips32sim/loader"
	"github.com/mips32sim/mips32sim/scheduler"
	"github.com/mips32sim/mips32sim/vm"
)

// Version information - can be overridden at build time with:
// go build -ldflags "-X main.Version=v1.2.3"
var (
	Version = "dev"     // Version number (set by git tag at build time)
	Commit  = "unknown" // Git commit hash
	Date    = "unknown" // Build date
)

// objectFile is the on-disk shape a program is loaded from: the assembler's
// output contract, given a plain JSON encoding since the
// assembler itself is out of scope here. Text/KText are raw instruction
// words, decoded on load; Data/KData are base64-encoded byte images.
type objectFile struct {
	Entry   string            `json:"entry"`
	Text    []string          `json:"text"`
	KText   []string          `json:"ktext"`
	Data    string            `json:"data"`
	KData   string            `json:"kdata"`
	Symbols map[string]string `json:"symbols"`
}

func main() {
	var (
		showVersion = flag.Bool("version", false, "Show version information")
		objPath     = flag.String("program", "", "Path to the assembled object file (JSON)")
		configPath  = flag.String("config", "", "Path to a config file (default: platform config path)")

		delayedBranches = flag.Bool("delayed-branches", false, "Enable delayed branch semantics")
		delayedLoads    = flag.Bool("delayed-loads", false, "Enable delayed load semantics")
		bareMachine     = flag.Bool("bare", false, "Bare machine mode flag (syscalls use the same table either way)")
		bigEndian       = flag.Bool("big-endian", false, "Big-endian memory image")

		dataLimit  = flag.Uint64("data-limit", 0, "Data segment growth limit in bytes (0 = config default)")
		stackLimit = flag.Uint64("stack-limit", 0, "Stack segment growth limit in bytes (0 = config default)")
		kdataLimit = flag.Uint64("kdata-limit", 0, "Kernel data segment growth limit in bytes (0 = config default)")

		breakpoints = flag.String("break", "", "Comma-separated breakpoint addresses (hex or decimal)")
		stepMode    = flag.Bool("step", false, "Single-step with a register trace after every cycle")
		cycleDelay  = flag.Uint64("delay", 0, "Inter-cycle delay in microseconds, to throttle execution")
		quiet       = flag.Bool("quiet", false, "Suppress the startup run banner")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("mips32sim %s (commit %s, built %s)\n", Version, Commit, Date)
		return
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mips32sim: %v\n", err)
		os.Exit(1)
	}

	if *objPath == "" {
		fmt.Fprintln(os.Stderr, "mips32sim: -program is required")
		flag.Usage()
		os.Exit(2)
	}

	mode := vm.ModeFlags{
		DelayedBranches:   *delayedBranches || cfg.Mode.DelayedBranches,
		DelayedLoads:      *delayedLoads || cfg.Mode.DelayedLoads,
		BareMachine:       *bareMachine || cfg.Mode.BareMachine,
		AcceptPseudoInsts: cfg.Mode.AcceptPseudoInsts,
		BigEndian:         *bigEndian || cfg.Mode.BigEndian,
	}

	limits := resolveLimits(cfg, *dataLimit, *kdataLimit, *stackLimit)

	prog, err := loadObjectFile(*objPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mips32sim: %v\n", err)
		os.Exit(1)
	}

	resolver := vm.NewSymbolResolver(prog.Symbols)

	ctx := vm.NewContext(0, mode, limits.data, limits.kdata, limits.stack)
	ctx.Stdin = bufio.NewReader(os.Stdin)
	ctx.Memory.MMIO = vm.NewConsoleDevice(os.Stdout)

	if err := loader.Load(ctx, prog); err != nil {
		fmt.Fprintf(os.Stderr, "mips32sim: %v\n", err)
		os.Exit(1)
	}

	sched := scheduler.NewScheduler()
	sched.SetSimLockTimeout(time.Duration(cfg.Scheduler.SimLockTimeoutMS) * time.Millisecond)
	sched.SetDelay(time.Duration(*cycleDelay) * time.Microsecond)
	if err := sched.AddContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "mips32sim: %v\n", err)
		os.Exit(1)
	}

	for _, addr := range parseBreakpoints(*breakpoints) {
		if err := sched.AddBreakpoint(ctx.ID, addr); err != nil {
			fmt.Fprintf(os.Stderr, "mips32sim: %v\n", err)
			os.Exit(1)
		}
	}

	runCtx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if !*quiet {
		fmt.Fprintf(os.Stderr, "mips32sim: running context %d from %s\n", ctx.ID, resolver.FormatAddress(ctx.Registers.PC))
	}

	sched.Start()

	exitCode := run(runCtx, sched, ctx.ID, resolver, *stepMode)
	sched.Stop()
	os.Exit(exitCode)
}

// statusPoll is how often the run loop wakes to check for an interrupt
// signal while waiting on scheduler status transitions.
const statusPoll = 200 * time.Millisecond

func run(runCtx context.Context, sched *scheduler.Scheduler, id int, resolver *vm.SymbolResolver, stepMode bool) int {
	sched.GetStatus() // drain the initial Waiting edge
	if !stepMode {
		sched.Play()
	}

	for {
		if runCtx.Err() != nil {
			fmt.Fprintln(os.Stderr, "mips32sim: interrupted")
			return 130
		}

		if stepMode {
			sched.Step(1)
		}
		st := sched.WaitStatus(statusPoll)

		if stepMode && st == scheduler.StatusStepped {
			snap, ok := sched.Snapshot(id)
			if ok {
				fmt.Fprintf(os.Stderr, "pc=0x%08X v0=0x%08X v1=0x%08X a0=0x%08X\n",
					snap.PC, snap.GPR[2], snap.GPR[3], snap.GPR[4])
			}
			continue
		}

		switch st {
		case scheduler.StatusFinished:
			snap, ok := sched.Snapshot(id)
			if !ok {
				fmt.Fprintln(os.Stderr, "mips32sim: context vanished before completion")
				return 1
			}
			if snap.LastErr != "" {
				fmt.Fprintf(os.Stderr, "mips32sim: halted at %s: %s\n", resolver.FormatAddress(snap.PC), snap.LastErr)
				return -1
			}
			return int(snap.ExitCode)

		case scheduler.StatusBreakpoint:
			snap, _ := sched.Snapshot(id)
			fmt.Fprintf(os.Stderr, "mips32sim: paused at breakpoint %s\n", resolver.FormatAddress(snap.PC))
			return 0
		}
	}
}

type segmentLimits struct {
	data, kdata, stack uint32
}

func resolveLimits(cfg *config.Config, data, kdata, stack uint64) segmentLimits {
	limits := segmentLimits{
		data:  cfg.Segments.DataLimit,
		kdata: cfg.Segments.KDataLimit,
		stack: cfg.Segments.StackLimit,
	}
	if data != 0 {
		limits.data = uint32(data)
	}
	if kdata != 0 {
		limits.kdata = uint32(kdata)
	}
	if stack != 0 {
		limits.stack = uint32(stack)
	}
	return limits
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	return config.LoadFrom(path)
}

func parseBreakpoints(list string) []uint32 {
	if list == "" {
		return nil
	}
	var out []uint32
	for _, tok := range strings.Split(list, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		addr, err := parseAddress(tok)
		if err != nil {
			continue
		}
		out = append(out, addr)
	}
	return out
}

func parseAddress(s string) (uint32, error) {
	s = strings.TrimSpace(s)
	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s = s[2:]
		base = 16
	}
	v, err := strconv.ParseUint(s, base, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %w", s, err)
	}
	return uint32(v), nil
}

func loadObjectFile(path string) (*loader.Program, error) {
	raw, err := os.ReadFile(path) // #nosec G304 -- user-supplied program path
	if err != nil {
		return nil, fmt.Errorf("reading object file: %w", err)
	}

	var obj objectFile
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("parsing object file: %w", err)
	}

	entry, err := parseAddress(obj.Entry)
	if err != nil {
		return nil, fmt.Errorf("entry: %w", err)
	}

	text, err := decodeWords(vm.TextBase, obj.Text)
	if err != nil {
		return nil, fmt.Errorf("text segment: %w", err)
	}
	ktext, err := decodeWords(vm.KTextBase, obj.KText)
	if err != nil {
		return nil, fmt.Errorf("ktext segment: %w", err)
	}

	data, err := decodeData(obj.Data)
	if err != nil {
		return nil, fmt.Errorf("data segment: %w", err)
	}
	kdata, err := decodeData(obj.KData)
	if err != nil {
		return nil, fmt.Errorf("kdata segment: %w", err)
	}

	symbols := make(map[string]uint32, len(obj.Symbols))
	for name, addrStr := range obj.Symbols {
		addr, err := parseAddress(addrStr)
		if err != nil {
			return nil, fmt.Errorf("symbol %q: %w", name, err)
		}
		symbols[name] = addr
	}

	return &loader.Program{
		Text:    text,
		Data:    data,
		KText:   ktext,
		KData:   kdata,
		Entry:   entry,
		Symbols: symbols,
	}, nil
}

func decodeWords(base uint32, words []string) ([]*vm.Instruction, error) {
	if len(words) == 0 {
		return nil, nil
	}
	out := make([]*vm.Instruction, len(words))
	for i, w := range words {
		if w == "" {
			continue
		}
		raw, err := parseAddress(w)
		if err != nil {
			return nil, fmt.Errorf("word %d: %w", i, err)
		}
		out[i] = vm.Decode(base+uint32(i)*4, raw)
	}
	return out, nil
}

func decodeData(encoded string) ([]byte, error) {
	if encoded == "" {
		return nil, nil
	}
	return base64.StdEncoding.DecodeString(encoded)
}
