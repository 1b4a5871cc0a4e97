package main

import (
	"fmt"
	"sort"
)

// nameGenerator produces fresh variable names from a monotonically
// increasing counter. Names collide with user variables only if the user
// themselves used the reserved generated_name_ prefix. One generator lives
// for one pipeline invocation, so repeated runs are deterministic.
type nameGenerator struct {
	base    string
	counter int
}

func newNameGenerator(base string) *nameGenerator {
	return &nameGenerator{base: "generated_name_" + base}
}

func (g *nameGenerator) generate() string {
	name := fmt.Sprintf("%v%d", g.base, g.counter)
	g.counter++
	return name
}

// transform rewrites a parsed program so that inversion is sound: both the
// if-shadowing and while-counter rewrites are applied.
func transform(p Program) Program {
	g := newNameGenerator("semantic_transformer")
	return Program{Stmts: transformBlock(p.Stmts, g, true)}
}

// transformIfOnly applies just the if-shadowing rewrite. The abstract
// machine uses this: its engine maintains its own per-loop counters, so the
// while rewrite would be redundant there.
func transformIfOnly(p Program) Program {
	g := newNameGenerator("semantic_transformer")
	return Program{Stmts: transformBlock(p.Stmts, g, false)}
}

func transformBlock(block Block, g *nameGenerator, whiles bool) Block {
	out := make(Block, 0, len(block))
	for _, stmt := range block {
		if repl := transformStatement(stmt, g, whiles); repl != nil {
			out = append(out, repl...)
		} else {
			out = append(out, stmt)
		}
	}
	return out
}

func transformStatement(stmt Stmt, g *nameGenerator, whiles bool) Block {
	switch s := stmt.(type) {
	case If:
		then := transformBlock(s.Then, g, whiles)
		els := transformBlock(s.Else, g, whiles)
		return transformIf(s.Cond, then, els, g)
	case While:
		body := transformBlock(s.Body, g, whiles)
		if !whiles {
			return Block{While{Cond: s.Cond, Body: body}}
		}
		return transformWhile(s.Cond, body, g)
	}
	return nil
}

// transformIf shadows every condition variable that some branch reassigns:
// the condition is rewritten onto fresh names which are assigned from the
// originals just before the conditional, so the same truth value is
// re-evaluable after the branch has run.
func transformIf(cond BoolExpr, then, els Block, g *nameGenerator) Block {
	assigned := make(map[Var]bool)
	for v := range assignedVarsInBlock(then) {
		assigned[v] = true
	}
	for v := range assignedVarsInBlock(els) {
		assigned[v] = true
	}

	condVars := boolExprVars(cond)

	var shadowed []Var
	for v := range condVars {
		if assigned[v] {
			shadowed = append(shadowed, v)
		}
	}
	if len(shadowed) == 0 {
		// still rebuild with the transformed branches
		return Block{If{Cond: cond, Then: then, Else: els}}
	}
	sort.Slice(shadowed, func(i, j int) bool { return shadowed[i].Name < shadowed[j].Name })

	remap := make(map[Var]string, len(shadowed))
	block := make(Block, 0, len(shadowed)+1)
	for _, v := range shadowed {
		fresh := g.generate()
		remap[v] = fresh
		block = append(block, Assign{
			Var:  Var{Name: fresh, Type: v.Type},
			Expr: VarExpr{Var: v},
		})
	}

	block = append(block, If{
		Cond: remapBoolExpr(cond, remap),
		Then: then,
		Else: els,
	})
	return block
}

// transformWhile gives the loop a fresh integer counter: zeroed immediately
// before the loop, incremented once at the end of every iteration. The
// inverter turns the loop condition into counter > 0.
func transformWhile(cond BoolExpr, body Block, g *nameGenerator) Block {
	counter := IntVar(g.generate())

	increment := Assign{
		Var: counter,
		Expr: ArithBin{
			Op:    Add,
			Left:  VarExpr{Var: counter},
			Right: IntLit(1),
		},
	}

	loopBody := make(Block, 0, len(body)+1)
	loopBody = append(loopBody, body...)
	loopBody = append(loopBody, increment)

	return Block{
		Assign{Var: counter, Expr: IntLit(0)},
		While{Cond: cond, Body: loopBody},
	}
}

// assignedVarsInBlock collects every variable assigned anywhere in the
// block, including nested conditionals and loops. Only valid before
// inversion: reverse assignments and reverse points cannot occur yet.
func assignedVarsInBlock(block Block) map[Var]bool {
	vars := make(map[Var]bool)
	for _, stmt := range block {
		collectAssignedVars(stmt, vars)
	}
	return vars
}

func collectAssignedVars(stmt Stmt, vars map[Var]bool) {
	switch s := stmt.(type) {
	case Skip:
	case Assign:
		vars[s.Var] = true
	case If:
		for _, inner := range s.Then {
			collectAssignedVars(inner, vars)
		}
		for _, inner := range s.Else {
			collectAssignedVars(inner, vars)
		}
	case While:
		for _, inner := range s.Body {
			collectAssignedVars(inner, vars)
		}
	default:
		panic(fmt.Sprintf("transform: %T statement before inversion", stmt))
	}
}

func boolExprVars(e BoolExpr) map[Var]bool {
	vars := make(map[Var]bool)
	collectBoolExprVars(e, vars)
	return vars
}

func collectBoolExprVars(e BoolExpr, vars map[Var]bool) {
	switch e := e.(type) {
	case Rel:
		collectArithExprVars(e.Left, vars)
		collectArithExprVars(e.Right, vars)
	case Logic:
		collectBoolExprVars(e.Left, vars)
		collectBoolExprVars(e.Right, vars)
	case Not:
		collectBoolExprVars(e.Expr, vars)
	}
}

func collectArithExprVars(e ArithExpr, vars map[Var]bool) {
	switch e := e.(type) {
	case VarExpr:
		vars[e.Var] = true
	case Neg:
		collectArithExprVars(e.Expr, vars)
	case ArithBin:
		collectArithExprVars(e.Left, vars)
		collectArithExprVars(e.Right, vars)
	}
}

func remapBoolExpr(e BoolExpr, remap map[Var]string) BoolExpr {
	switch e := e.(type) {
	case Rel:
		return Rel{
			Op:    e.Op,
			Left:  remapArithExpr(e.Left, remap),
			Right: remapArithExpr(e.Right, remap),
		}
	case Logic:
		return Logic{
			Op:    e.Op,
			Left:  remapBoolExpr(e.Left, remap),
			Right: remapBoolExpr(e.Right, remap),
		}
	case Not:
		return Not{Expr: remapBoolExpr(e.Expr, remap)}
	}
	panic(fmt.Sprintf("transform: unknown boolean expression %T", e))
}

func remapArithExpr(e ArithExpr, remap map[Var]string) ArithExpr {
	switch e := e.(type) {
	case IntLit, FloatLit:
		return e
	case VarExpr:
		if fresh, ok := remap[e.Var]; ok {
			return VarExpr{Var: Var{Name: fresh, Type: e.Var.Type}}
		}
		return e
	case Neg:
		return Neg{Expr: remapArithExpr(e.Expr, remap)}
	case ArithBin:
		return ArithBin{
			Op:    e.Op,
			Left:  remapArithExpr(e.Left, remap),
			Right: remapArithExpr(e.Right, remap),
		}
	}
	panic(fmt.Sprintf("transform: unknown arithmetic expression %T", e))
}
