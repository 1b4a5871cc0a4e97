package main

import (
	"io"
	"io/ioutil"
	"strings"
)

// Option configures an interpreter, engine, or the REPL driver.
type Option interface{ apply(cfg *config) }

type config struct {
	logf func(mess string, args ...interface{})
	in   io.Reader
	out  io.Writer
}

func (cfg *config) apply(opts ...Option) {
	cfg.in = strings.NewReader("")
	cfg.out = ioutil.Discard
	for _, opt := range opts {
		if opt != nil {
			opt.apply(cfg)
		}
	}
}

// Options combines several options into one.
func Options(opts ...Option) Option {
	var res options
	for _, opt := range opts {
		switch impl := opt.(type) {
		case nil, noption:
		case options:
			res = append(res, impl...)
		default:
			res = append(res, opt)
		}
	}
	switch len(res) {
	case 0:
		return noption{}
	case 1:
		return res[0]
	default:
		return res
	}
}

type noption struct{}

func (noption) apply(cfg *config) {}

type options []Option

func (opts options) apply(cfg *config) {
	for _, opt := range opts {
		if opt != nil {
			opt.apply(cfg)
		}
	}
}

// WithLogf routes trace logging through the given printf-style function.
func WithLogf(logfn func(mess string, args ...interface{})) Option {
	return withLogfn(logfn)
}

type withLogfn func(mess string, args ...interface{})

func (logfn withLogfn) apply(cfg *config) { cfg.logf = logfn }

// WithInput sets the REPL command source.
func WithInput(r io.Reader) Option { return inputOption{r} }

// WithOutput sets the REPL output sink.
func WithOutput(w io.Writer) Option { return outputOption{w} }

type inputOption struct{ io.Reader }
type outputOption struct{ io.Writer }

func (i inputOption) apply(cfg *config)  { cfg.in = i.Reader }
func (o outputOption) apply(cfg *config) { cfg.out = o.Writer }
