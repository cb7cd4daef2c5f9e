package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/objc-bridge/proxy"
	"github.com/wippyai/objc-bridge/runtime"
	"github.com/wippyai/objc-bridge/sim"
)

func main() {
	var (
		catalog     = flag.String("catalog", "", "TOML class catalog to install into the simulated process")
		className   = flag.String("class", "", "Class to inspect or call")
		methodName  = flag.String("method", "", "Method to call, selector with ':' written as '_'")
		args        = flag.String("arg", "", "Arguments (comma-separated)")
		list        = flag.Bool("list", false, "List classes, or the methods of -class, and exit")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
		verbose     = flag.Bool("v", false, "Debug logging")
	)
	flag.Parse()

	if !*list && !*interactive && (*className == "" || *methodName == "") {
		fmt.Fprintln(os.Stderr, "Usage: objcrun [-catalog file.toml] -list [-class name]")
		fmt.Fprintln(os.Stderr, "       objcrun [-catalog file.toml] -class name -method name [-arg a,b]")
		fmt.Fprintln(os.Stderr, "       objcrun [-catalog file.toml] -i  (interactive mode)")
		os.Exit(1)
	}

	logger := zap.NewNop()
	if *verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		logger = l
	}
	defer logger.Sync()

	env, err := setup(*catalog, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer env.rt.Close()

	if *interactive {
		if err := runInteractive(env, *catalog); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(env, *className, *methodName, *args, *list); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// environment is a simulated process with a runtime attached.
type environment struct {
	proc *sim.Process
	rt   *runtime.Runtime
}

func setup(catalog string, logger *zap.Logger) (*environment, error) {
	p := sim.New()
	if catalog != "" {
		cat, err := sim.LoadCatalogFile(catalog)
		if err != nil {
			return nil, fmt.Errorf("load catalog: %w", err)
		}
		if err := p.Install(cat); err != nil {
			return nil, fmt.Errorf("install catalog: %w", err)
		}
	}

	rt := runtime.New(runtime.Config{
		Resolver: p,
		Memory:   p.Memory(),
		Binder:   p,
		Logger:   logger,
		Defer:    p.Defer,
	})
	if !rt.Available() {
		return nil, fmt.Errorf("runtime unavailable: %w", rt.Err())
	}
	return &environment{proc: p, rt: rt}, nil
}

func run(env *environment, className, methodName, argStr string, listOnly bool) error {
	if listOnly && className == "" {
		fmt.Printf("Classes:\n")
		for _, name := range env.rt.Classes() {
			fmt.Printf("  %s\n", name)
		}
		return nil
	}

	cls, err := env.rt.Use(className)
	if err != nil {
		return err
	}

	if listOnly {
		printClass(cls.Class())
		return nil
	}

	m, ok := cls.Method(methodName)
	if !ok {
		return fmt.Errorf("%s does not respond to %s", className, methodName)
	}

	var raw []string
	if argStr != "" {
		raw = strings.Split(argStr, ",")
	}
	callArgs, err := parseArgs(env, m, raw)
	if err != nil {
		return err
	}

	recv, err := receiver(cls, m)
	if err != nil {
		return err
	}

	fmt.Printf("Calling %s %s(%s)...\n", className, formatName(m), strings.Join(raw, ", "))
	result, err := m.Call(recv, callArgs...)
	if err != nil {
		return fmt.Errorf("call %s: %w", methodName, err)
	}
	fmt.Printf("Result: %s\n", formatResult(result))

	if errs := env.proc.Drain(); len(errs) > 0 {
		for _, err := range errs {
			fmt.Printf("queued work failed: %v\n", err)
		}
	}
	return nil
}

// receiver returns cls for class-side methods and a fresh instance otherwise.
func receiver(cls *proxy.Object, m *proxy.Method) (*proxy.Object, error) {
	if m.Static() {
		return cls, nil
	}
	obj, err := cls.CallObject("alloc")
	if err != nil {
		return nil, fmt.Errorf("alloc: %w", err)
	}
	if obj, err = obj.CallObject("init"); err != nil {
		return nil, fmt.Errorf("init: %w", err)
	}
	return obj, nil
}

func printClass(cls *proxy.Class) {
	chain := cls.Name()
	for s := cls.Super(); s != nil; s = s.Super() {
		chain += " : " + s.Name()
	}
	fmt.Printf("Class: %s\n", chain)

	fmt.Printf("\nMethods:\n")
	for _, name := range cls.Methods() {
		m, _ := cls.Lookup(name)
		fmt.Printf("  %s\n", formatMethod(m))
	}

	if skipped := cls.Skipped(); len(skipped) > 0 {
		fmt.Printf("\nSkipped:\n")
		for _, s := range skipped {
			fmt.Printf("  %s %s: %v\n", s.Selector, s.Types, s.Err)
		}
	}
}
