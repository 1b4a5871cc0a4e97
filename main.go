package main

import (
	"flag"
	"fmt"
	"io/ioutil"
	"os"

	"github.com/pkg/errors"

	"github.com/rimplang/gorimp/internal/logio"
)

func main() {
	var (
		interpret bool
		machine   bool
		compile   bool
		output    string
		trace     bool
	)
	flag.BoolVar(&interpret, "interpret", false, "interpret the program")
	flag.BoolVar(&machine, "machine", false, "run the program on the reversible abstract machine")
	flag.BoolVar(&compile, "compile", false, "compile the program to JVM assembly")
	flag.StringVar(&output, "o", "", "output file for -compile (defaults to stdout)")
	flag.BoolVar(&trace, "trace", false, "enable trace logging")
	flag.Parse()

	log := logio.Logger{}
	log.SetOutput(os.Stderr)
	defer func() { os.Exit(log.ExitCode()) }()

	modes := 0
	for _, on := range []bool{interpret, machine, compile} {
		if on {
			modes++
		}
	}
	if modes > 1 {
		log.Errorf("-interpret, -machine and -compile are mutually exclusive")
		return
	}
	if modes == 0 {
		interpret = true
	}

	if flag.NArg() != 1 {
		log.Errorf("usage: %v [flags] <input file>", os.Args[0])
		return
	}

	src, err := ioutil.ReadFile(flag.Arg(0))
	if err != nil {
		log.ErrorIf(errors.Wrap(err, "read input"))
		return
	}

	var opts []Option
	if trace {
		opts = append(opts, WithLogf(log.Leveledf("TRACE")))
	}

	switch {
	case compile:
		log.ErrorIf(runCompile(string(src), output))
	case machine:
		log.ErrorIf(runMachine(string(src), opts...))
	default:
		log.ErrorIf(runInterpret(string(src), opts...))
	}
}

func runInterpret(src string, opts ...Option) error {
	in, err := InterpretSource(src, opts...)
	if err != nil {
		return err
	}
	if snap := in.ReversePointSnapshot(); snap != nil {
		fmt.Printf("result: \n%v\n", snap)
	}
	return nil
}

func runMachine(src string, opts ...Option) error {
	en, err := MachineFromSource(src, opts...)
	if err != nil {
		return err
	}
	repl := newMachineREPL(en, Options(
		WithInput(os.Stdin),
		WithOutput(os.Stdout),
		Options(opts...),
	))
	return repl.run()
}

func runCompile(src, output string) error {
	asm, err := CompileSource(src)
	if err != nil {
		return err
	}
	if output == "" {
		fmt.Print(asm)
		return nil
	}
	return errors.Wrap(ioutil.WriteFile(output, []byte(asm), 0644), "write output")
}
