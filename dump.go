package main

import (
	"fmt"
	"io"
	"strings"
)

// engineDumper prints machine configurations for the REPL and for test
// failure output.
type engineDumper struct {
	en  *Engine
	out io.Writer
}

func (d engineDumper) dumpAll() {
	d.dumpControl()
	d.dumpResult()
	d.dumpStore()
	d.dumpBack()
}

func (d engineDumper) dumpControl() {
	fmt.Fprintf(d.out, "control stack: \n%v\n", cellStackString(d.en.ControlStack()))
}

func (d engineDumper) dumpBack() {
	fmt.Fprintf(d.out, "back stack: \n%v\n", cellStackString(d.en.BackStack()))
}

func (d engineDumper) dumpResult() {
	fmt.Fprintf(d.out, "result stack: \n%v\n", resStackString(d.en.ResultStack()))
}

func (d engineDumper) dumpStore() {
	fmt.Fprintf(d.out, "store: \n%v\n", d.en.Store())
}

// cellStackString renders a stack top-first in nil-terminated cons form.
func cellStackString(cells []cell) string {
	var sb strings.Builder
	for _, c := range cells {
		sb.WriteString(c.String())
		sb.WriteString(" · ")
	}
	sb.WriteString("Nil")
	return sb.String()
}

func resStackString(rs []res) string {
	var sb strings.Builder
	for _, r := range rs {
		sb.WriteString(r.String())
		sb.WriteString(" · ")
	}
	sb.WriteString("Nil")
	return sb.String()
}
