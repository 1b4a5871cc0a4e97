package main

import "fmt"

// builder converts a transformed program into the machine's initial control
// stack. Every while loop receives a globally unique index from a
// monotonically increasing counter; the builder also records each loop's
// original condition so the engine can tell forward loops from reversed ones.
type builder struct {
	loopCount int
}

// build applies the if-only transform (the engine maintains its own loop
// counters) and lays the program onto a fresh control stack, first statement
// on top.
func (bld *builder) build(p Program) cellStack {
	p = transformIfOnly(p)

	var stack cellStack
	for i := len(p.Stmts) - 1; i >= 0; i-- {
		stack.push(progCell(bld.fromStatement(p.Stmts[i])))
	}
	return stack
}

func (bld *builder) fromStatement(stmt Stmt) prog {
	switch s := stmt.(type) {
	case Skip:
		return skipP{}
	case Assign:
		return asgnP{v: s.Var, e: bld.fromArith(s.Expr)}
	case If:
		return ifP{
			e:  bld.fromBool(s.Cond),
			c1: bld.fromBlock(s.Then),
			c2: bld.fromBlock(s.Else),
		}
	case While:
		i := bld.loopCount
		bld.loopCount++
		return whileP{e: bld.fromBool(s.Cond), c: bld.fromBlock(s.Body), i: i}
	}
	machinePanicf("build: unsupported statement %T", stmt)
	return nil
}

// fromBlock folds a multi-statement block right to left into nested
// sequences; a singleton block is its statement.
func (bld *builder) fromBlock(block Block) prog {
	if len(block) == 0 {
		return skipP{}
	}
	if len(block) == 1 {
		return bld.fromStatement(block[0])
	}
	seq := bld.fromStatement(block[len(block)-1])
	for i := len(block) - 2; i >= 0; i-- {
		seq = seqP{c1: bld.fromStatement(block[i]), c2: seq}
	}
	return seq
}

func (bld *builder) fromBool(e BoolExpr) prog {
	switch e := e.(type) {
	case Logic:
		op := bAnd
		if e.Op == Or {
			op = bOr
		}
		return binP{e1: bld.fromBool(e.Left), e2: bld.fromBool(e.Right), op: op}
	case Rel:
		var op binOp
		switch e.Op {
		case Eq:
			op = bEq
		case Neq:
			op = bNeq
		case Lt:
			op = bLt
		case Gt:
			op = bGt
		}
		return binP{e1: bld.fromArith(e.Left), e2: bld.fromArith(e.Right), op: op}
	case Not:
		return unP{e: bld.fromBool(e.Expr), op: uNot}
	}
	machinePanicf("build: unknown boolean expression %T", e)
	return nil
}

func (bld *builder) fromArith(e ArithExpr) prog {
	switch e := e.(type) {
	case IntLit:
		return numP{n: IntValue(int32(e))}
	case FloatLit:
		return numP{n: FloatValue(float32(e))}
	case VarExpr:
		return varP{v: e.Var}
	case Neg:
		return unP{e: bld.fromArith(e.Expr), op: uNeg}
	case ArithBin:
		var op binOp
		switch e.Op {
		case Add:
			op = bAdd
		case Sub:
			op = bSub
		case Mul:
			op = bMul
		case Div:
			op = bDiv
		case Pow:
			op = bExp
		}
		return binP{e1: bld.fromArith(e.Left), e2: bld.fromArith(e.Right), op: op}
	}
	machinePanicf("build: unknown arithmetic expression %T", e)
	return nil
}

// whileConditions walks the built control stack and maps every loop index to
// its original condition fragment. During backward execution the reversed
// loop's condition no longer matches this record, which is how the engine
// knows to decrement the loop's counter instead of incrementing it.
func whileConditions(stack cellStack) map[int]prog {
	conds := make(map[int]prog)
	for _, c := range stack {
		if c.p != nil {
			collectWhileConditions(c.p, conds)
		}
	}
	return conds
}

func collectWhileConditions(p prog, conds map[int]prog) {
	switch p := p.(type) {
	case whileP:
		conds[p.i] = p.e
		collectWhileConditions(p.c, conds)
	case ifP:
		collectWhileConditions(p.c1, conds)
		collectWhileConditions(p.c2, conds)
	case seqP:
		collectWhileConditions(p.c1, conds)
		collectWhileConditions(p.c2, conds)
	}
}

// whileCounterName is the engine's store slot for loop index i, distinct
// from but synchronized with the transformer's counter variable.
func whileCounterName(i int) string {
	return fmt.Sprintf("while_counter_%d", i)
}

// whileCounterCond is the rewritten condition of a reversed loop:
// while_counter_i > 0.
func whileCounterCond(i int) prog {
	return binP{
		e1: varP{v: IntVar(whileCounterName(i))},
		e2: numP{n: IntValue(0)},
		op: bGt,
	}
}
