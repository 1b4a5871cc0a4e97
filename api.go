package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/rimplang/gorimp/internal/panicerr"
)

// ParseSource lexes and parses src into an untransformed program.
func ParseSource(src string) (Program, error) {
	ts, err := tokenise(src)
	if err != nil {
		return Program{}, errors.Wrap(err, "lex")
	}
	p, err := parse(ts)
	if err != nil {
		return Program{}, errors.Wrap(err, "parse")
	}
	return p, nil
}

// PrepareSource parses src and applies the full semantic transform,
// yielding the program the interpreter and compiler consume.
func PrepareSource(src string) (Program, error) {
	p, err := ParseSource(src)
	if err != nil {
		return Program{}, err
	}
	return transform(p), nil
}

// Interpret runs the transformed-and-inverted form of program under the
// forward interpreter. Store invariant violations surface as errors.
func Interpret(program Program, opts ...Option) (*Interp, error) {
	in := NewInterp(opts...)
	err := panicerr.Recover("interpreter", func() error {
		return in.Run(invertAndCombine(program))
	})
	if err != nil {
		return nil, errors.Wrap(err, "interpret")
	}
	return in, nil
}

// InterpretSource is the full interpreter pipeline from source text.
func InterpretSource(src string, opts ...Option) (*Interp, error) {
	p, err := PrepareSource(src)
	if err != nil {
		return nil, err
	}
	return Interpret(p, opts...)
}

// MachineFromSource builds the abstract machine for src. The machine takes
// the untransformed program; its builder applies the if-only transform and
// its engine keeps the loop counters.
func MachineFromSource(src string, opts ...Option) (*Engine, error) {
	p, err := ParseSource(src)
	if err != nil {
		return nil, err
	}
	return NewEngine(p, opts...), nil
}

// Run steps the engine to quiescence, stopping early if ctx expires. Engine
// invariant violations surface as errors.
func (en *Engine) Run(ctx context.Context) error {
	return panicerr.Recover("machine", func() error {
		for !en.IsDone() {
			en.Step()
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		return nil
	})
}

// CompileSource compiles src to JVM assembly text: parse, transform, invert
// and combine, then emit.
func CompileSource(src string) (out string, err error) {
	p, err := PrepareSource(src)
	if err != nil {
		return "", err
	}
	err = panicerr.Recover("compiler", func() error {
		out = jvmCompile(invertAndCombine(p))
		return nil
	})
	if err != nil {
		return "", errors.Wrap(err, "compile")
	}
	return out, nil
}
