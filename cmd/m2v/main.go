package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	m2v "github.com/m2v/m2v"
	"github.com/m2v/m2v/canvas"
)

const (
	appName     = "m2v"
	historyFile = ".m2v_history"
	promptMain  = "==> "
)

// M2VPath is the environment variable listing module search roots.
const M2VPath = "M2VPATH"

const moduleExt = ".m2v"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	switch os.Args[1] {
	case "run":
		os.Exit(cmdRun(os.Args[2:]))
	case "repl":
		os.Exit(cmdRepl(os.Args[2:]))
	case "version":
		fmt.Println(m2v.Version)
	case "-h", "--help", "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", os.Args[1])
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `usage: %s <command> [args]

Commands:
  run <file>   Compile and execute a script; the process exits with the
               script's exit status.
  repl         Interactive session.
  version      Print the engine version.
`, appName)
}

// newVM wires a fresh VM with the standard hosts, the canvas bridge, and a
// filesystem module loader rooted at dir.
func newVM(dir string, trace bool) *m2v.VM {
	vm := m2v.New()
	if trace {
		vm.Trace = os.Stderr
	}
	m2v.RegisterStdlib(vm, os.Stdout)
	canvas.Bind(vm, canvas.NewViewport())
	vm.Loader = func(name string) (*m2v.ExecutionModule, error) {
		path, err := resolveModule(name, dir)
		if err != nil {
			return nil, err
		}
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return m2v.CompileSource(name, string(src))
	}
	return vm
}

// resolveModule searches dir, the working directory, then each M2VPATH
// root for name(.m2v).
func resolveModule(name, dir string) (string, error) {
	var bases []string
	if dir != "" {
		bases = append(bases, dir)
	}
	if cwd, err := os.Getwd(); err == nil {
		bases = append(bases, cwd)
	}
	for _, root := range filepath.SplitList(os.Getenv(M2VPath)) {
		if root != "" {
			bases = append(bases, root)
		}
	}
	for _, base := range bases {
		cands := []string{filepath.Join(base, name)}
		if filepath.Ext(name) == "" {
			cands = []string{filepath.Join(base, name+moduleExt), filepath.Join(base, name)}
		}
		for _, c := range cands {
			if fi, err := os.Stat(c); err == nil && !fi.IsDir() {
				return c, nil
			}
		}
	}
	return "", fmt.Errorf("module not found: %s", name)
}

func cmdRun(args []string) int {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	trace := fs.Bool("trace", false, "write GC and panic diagnostics to stderr")
	fs.Parse(args)
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: m2v run [-trace] <file>")
		return 2
	}
	path := fs.Arg(0)
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	mod, err := m2v.CompileSource(name, string(src))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	vm := newVM(filepath.Dir(path), *trace)
	status, err := vm.ExecuteModule(mod, "")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return int(status)
}

func cmdRepl(args []string) int {
	fs := flag.NewFlagSet("repl", flag.ExitOnError)
	trace := fs.Bool("trace", false, "write GC and panic diagnostics to stderr")
	fs.Parse(args)

	fmt.Printf("m2v %s\nCtrl+D or :quit exits.\n", m2v.Version)

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	histPath := filepath.Join(os.TempDir(), historyFile)
	if home, err := os.UserHomeDir(); err == nil {
		histPath = filepath.Join(home, historyFile)
	}
	if f, err := os.Open(histPath); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	vm := newVM("", *trace)
	serial := 0
	for {
		input, err := line.Prompt(promptMain)
		if err == liner.ErrPromptAborted {
			fmt.Println("(cancelled)")
			continue
		}
		if err != nil {
			fmt.Println()
			return 0
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if input == ":quit" {
			return 0
		}
		line.AppendHistory(input)

		// Each input is its own module; names must stay unique because
		// modules are singletons per VM.
		serial++
		mod, err := m2v.CompileSource(fmt.Sprintf("repl$%d", serial), input)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		status, err := vm.ExecuteModule(mod, "")
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			// A panicked VM cannot continue; start a fresh one.
			vm = newVM("", *trace)
			continue
		}
		fmt.Println(status)
	}
}
