package main

import "fmt"

// evalError is a semantic error raised while evaluating an expression:
// division by zero, exponentiation with a non-positive exponent, or a read of
// an undefined variable.
type evalError string

func (e evalError) Error() string { return string(e) }

func evalErrorf(format string, args ...interface{}) error {
	return evalError(fmt.Sprintf(format, args...))
}

// Interp tree-walks a transformed-and-inverted program directly against a
// history-preserving store. It exists both as the reference semantics the
// abstract machine is validated against and as the fast execution path.
type Interp struct {
	store *Store

	reversePoint *Store
	final        *Store

	logf func(mess string, args ...interface{})
}

// NewInterp returns an interpreter over a fresh store.
func NewInterp(opts ...Option) *Interp {
	var in Interp
	in.store = NewStore()
	var cfg config
	cfg.apply(opts...)
	in.logf = cfg.logf
	return &in
}

// Store exposes the live store.
func (in *Interp) Store() *Store { return in.store }

// ReversePointSnapshot returns the store as it was at the reverse point, or
// nil if no reverse point has been executed.
func (in *Interp) ReversePointSnapshot() *Store { return in.reversePoint }

// FinalSnapshot returns the store as it was when Run returned, or nil if Run
// has not completed.
func (in *Interp) FinalSnapshot() *Store { return in.final }

// Result looks a variable up in the reverse-point snapshot.
func (in *Interp) Result(name string) *Elem {
	if in.reversePoint == nil {
		return nil
	}
	return in.reversePoint.Get(name)
}

// Run executes the program to completion.
func (in *Interp) Run(p Program) error {
	for _, stmt := range p.Stmts {
		if err := in.runStatement(stmt); err != nil {
			return err
		}
	}
	in.final = in.store.Clone()
	return nil
}

func (in *Interp) runStatement(stmt Stmt) error {
	switch s := stmt.(type) {
	case Skip:
		return nil
	case Assign:
		v, err := in.evalArith(s.Expr)
		if err != nil {
			return err
		}
		in.tracef("%v := %v", s.Var, v)
		in.store.Assign(s.Var.Name, convertFor(s.Var, v))
		return nil
	case ReverseAssign:
		v, err := in.evalArith(s.Expr)
		if err != nil {
			return err
		}
		in.tracef("%v =: %v", s.Var, v)
		in.store.UnAssign(s.Var.Name, convertFor(s.Var, v))
		return nil
	case ReversePoint:
		in.tracef("reverse point")
		in.reversePoint = in.store.Clone()
		return nil
	case If:
		cond, err := in.evalBool(s.Cond)
		if err != nil {
			return err
		}
		if cond {
			return in.runBlock(s.Then)
		}
		return in.runBlock(s.Else)
	case While:
		return in.runWhile(s)
	}
	panic(fmt.Sprintf("interp: unknown statement %T", stmt))
}

func (in *Interp) runWhile(s While) error {
	for {
		cond, err := in.evalBool(s.Cond)
		if err != nil {
			return err
		}
		if !cond {
			return nil
		}
		if err := in.runBlock(s.Body); err != nil {
			return err
		}
	}
}

func (in *Interp) runBlock(block Block) error {
	for _, stmt := range block {
		if err := in.runStatement(stmt); err != nil {
			return err
		}
	}
	return nil
}

// convertFor adapts a value to the declared type of the variable it is being
// stored into: assigning an integer result to a float slot widens it.
// Narrowing a float into an int slot is fatal, including on a variable's
// first assignment, where the store alone would create a float slot.
func convertFor(v Var, val Value) Value {
	if v.Type == Float && val.Type == Integer {
		return FloatValue(float32(val.I))
	}
	if v.Type == Integer && val.Type == Float {
		storePanicf("store: cannot assign %v value %v into %v slot", val.Type, val, v.Type)
	}
	return val
}

func (in *Interp) evalArith(e ArithExpr) (Value, error) {
	switch e := e.(type) {
	case IntLit:
		return IntValue(int32(e)), nil
	case FloatLit:
		return FloatValue(float32(e)), nil
	case VarExpr:
		elem := in.store.Get(e.Var.Name)
		if elem == nil {
			return Value{}, evalErrorf("variable %v is not defined", e.Var.Name)
		}
		return elem.Get(), nil
	case Neg:
		v, err := in.evalArith(e.Expr)
		if err != nil {
			return Value{}, err
		}
		return v.Neg(), nil
	case ArithBin:
		lhs, err := in.evalArith(e.Left)
		if err != nil {
			return Value{}, err
		}
		rhs, err := in.evalArith(e.Right)
		if err != nil {
			return Value{}, err
		}
		switch e.Op {
		case Add:
			return lhs.Add(rhs), nil
		case Sub:
			return lhs.Sub(rhs), nil
		case Mul:
			return lhs.Mul(rhs), nil
		case Div:
			return lhs.Div(rhs)
		case Pow:
			return lhs.Exp(rhs)
		}
	}
	panic(fmt.Sprintf("interp: unknown arithmetic expression %T", e))
}

// evalBool evaluates a boolean expression. Both sides of a logical operator
// are always evaluated; there is deliberately no short circuiting, so the
// evaluation order of a program is independent of its store.
func (in *Interp) evalBool(e BoolExpr) (bool, error) {
	switch e := e.(type) {
	case Rel:
		lhs, err := in.evalArith(e.Left)
		if err != nil {
			return false, err
		}
		rhs, err := in.evalArith(e.Right)
		if err != nil {
			return false, err
		}
		switch e.Op {
		case Eq:
			return lhs.Equal(rhs), nil
		case Neq:
			return !lhs.Equal(rhs), nil
		case Lt:
			return lhs.Less(rhs), nil
		case Gt:
			return lhs.Greater(rhs), nil
		}
	case Logic:
		lhs, err := in.evalBool(e.Left)
		if err != nil {
			return false, err
		}
		rhs, err := in.evalBool(e.Right)
		if err != nil {
			return false, err
		}
		if e.Op == And {
			return lhs && rhs, nil
		}
		return lhs || rhs, nil
	case Not:
		v, err := in.evalBool(e.Expr)
		if err != nil {
			return false, err
		}
		return !v, nil
	}
	panic(fmt.Sprintf("interp: unknown boolean expression %T", e))
}

func (in *Interp) tracef(mess string, args ...interface{}) {
	if in.logf != nil {
		in.logf(mess, args...)
	}
}
