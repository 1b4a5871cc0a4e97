/* Package main: gorimp -- a reversible IMP toolchain

RIMP is a small imperative language (skip, assignment, sequencing,
conditionals, while loops, typed integer and float variables) whose defining
property is reversible execution: any program can be run forward to its
termination state and then stepped back to its initial state by executing a
mechanically derived inverse.

The pipeline is

	source -> tokens -> AST -> semantic transform -> { interpret | machine | compile }

The semantic transformer (transform.go) rewrites the program so inversion is
sound: conditions whose variables are reassigned inside a branch are shadowed
into fresh names, and every while loop gains a fresh integer counter that is
zeroed before the loop and incremented once per iteration. The inverter
(invert.go) then produces the backward program statement by statement and
fuses it with the forward program across a reverse point.

Execution comes in two interchangeable flavours. The forward interpreter
(interp.go) tree-walks the combined program against a history-preserving
store (store.go) that records every increment ever applied to a variable, so
assignments can be undone in strict LIFO order. The abstract machine
(machine.go, build.go, engine.go) runs the same semantics on four stacks --
control, back, result, store -- where every rule that consumes work from the
control stack deposits onto the back stack exactly the information needed to
undo it. Reversing direction is a single swap of the control and back stacks.

The compile mode (jvm.go) emits Krakatau-style JVM assembly against small
RIMPInt / RIMPFloat runtime cells whose assign/unAssign methods mirror the
store contract. Assembling the text into class files is left to an external
assembler.

Tokens come from a regular-expression-derivative lexer (lex.go on top of
internal/rex): the token language is a single Re value with named Record
captures, and lexing proceeds by Brzozowski derivatives with value injection,
so longest-match and keyword precedence fall out of the regex structure
rather than scanner special cases.
*/
package main
