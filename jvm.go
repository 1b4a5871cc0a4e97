package main

import (
	"fmt"
	"sort"
	"strings"
)

// The JVM back end emits Krakatau-style assembly against two tiny runtime
// classes, RIMPInt and RIMPFloat, whose assign/unAssign/get/print methods
// mirror the memory-store contract. Each RIMP variable becomes one runtime
// cell held in a JVM local; the reverse point compiles to a print of every
// cell. Assembling the emitted text into class files is the assembler's job,
// not ours.

const jvmMainTemplate = `.class public Main
.super java/lang/Object

.method public <init> : ()V
    .code stack 1 locals 1
        aload_0
        invokespecial Method java/lang/Object <init> ()V
        return
    .end code
.end method

.method public static main : ([Ljava/lang/String;)V
    .code stack <stack> locals <locals>
<code>
        return
    .end code
.end method
.end class
`

// jvmCompile emits assembly for a transformed-and-inverted program. It may
// not rewrite or reorder statements; the program's shape is the contract.
func jvmCompile(p Program) string {
	c := newJVMCompiler()
	body := c.compileBlock(p.Stmts)
	code := c.compilePreamble() + body

	out := strings.Replace(jvmMainTemplate, "<code>", code, 1)
	out = strings.Replace(out, "<stack>", fmt.Sprintf("%d", c.maxStack+1), 1)
	out = strings.Replace(out, "<locals>", fmt.Sprintf("%d", c.lastVarIndex+1), 1)
	return out
}

type jvmVar struct {
	index int
	typ   Type
}

type jvmCompiler struct {
	vars         map[string]jvmVar
	lastVarIndex int

	labelIndex int

	maxStack     int
	currentStack int
}

func newJVMCompiler() *jvmCompiler {
	return &jvmCompiler{vars: make(map[string]jvmVar)}
}

func (c *jvmCompiler) pushStack() {
	c.currentStack++
	if c.currentStack > c.maxStack {
		c.maxStack = c.currentStack
	}
}

func (c *jvmCompiler) popStack() { c.currentStack-- }

func (c *jvmCompiler) newLabel(prefix string) string {
	label := fmt.Sprintf("L%v%d", prefix, c.labelIndex)
	c.labelIndex++
	return label
}

func (c *jvmCompiler) runtimeClass(typ Type) string {
	if typ == Float {
		return "RIMPFloat"
	}
	return "RIMPInt"
}

func (c *jvmCompiler) slotOf(variable Var) jvmVar {
	v, ok := c.vars[variable.Name]
	if !ok {
		c.lastVarIndex++
		v = jvmVar{index: c.lastVarIndex, typ: variable.Type}
		c.vars[variable.Name] = v
	}
	return v
}

// compilePreamble allocates one runtime cell per variable, in slot order.
func (c *jvmCompiler) compilePreamble() string {
	vars := c.sortedVars()
	var sb strings.Builder
	for _, nv := range vars {
		class := c.runtimeClass(nv.v.typ)
		fmt.Fprintf(&sb, "new %v\ndup\nldc %q\ninvokespecial Method %v <init> (Ljava/lang/String;)V\nastore %d\n",
			class, nv.name, class, nv.v.index)
	}
	return sb.String()
}

type namedJVMVar struct {
	name string
	v    jvmVar
}

func (c *jvmCompiler) sortedVars() []namedJVMVar {
	out := make([]namedJVMVar, 0, len(c.vars))
	for name, v := range c.vars {
		out = append(out, namedJVMVar{name: name, v: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].v.index < out[j].v.index })
	return out
}

func (c *jvmCompiler) compileBlock(block Block) string {
	var sb strings.Builder
	for _, stmt := range block {
		sb.WriteString(c.compileStatement(stmt))
	}
	return sb.String()
}

func (c *jvmCompiler) compileStatement(stmt Stmt) string {
	switch s := stmt.(type) {
	case Skip:
		return ""
	case Assign:
		return c.compileAssign(s)
	case ReverseAssign:
		return c.compileReverseAssign(s)
	case ReversePoint:
		return c.compileReversePoint()
	case If:
		return c.compileIf(s)
	case While:
		return c.compileWhile(s)
	}
	panic(fmt.Sprintf("jvm: unknown statement %T", stmt))
}

func (c *jvmCompiler) compileAssign(s Assign) string {
	c.pushStack()
	c.popStack()

	exprCode, exprType := c.compileArith(s.Expr)
	v := c.slotOf(s.Var)
	class := c.runtimeClass(v.typ)
	desc := "(I)V"
	if v.typ == Float {
		desc = "(F)V"
	}

	conv := ""
	if exprType != v.typ {
		conv = conversion(exprType, v.typ)
	}
	return fmt.Sprintf("aload %d\n%v%vinvokevirtual Method %v assign %v\n",
		v.index, exprCode, conv, class, desc)
}

func (c *jvmCompiler) compileReverseAssign(s ReverseAssign) string {
	v, ok := c.vars[s.Var.Name]
	if !ok {
		panic(fmt.Sprintf("jvm: variable %v unassigned before assignment", s.Var.Name))
	}
	return fmt.Sprintf("aload %d\ninvokevirtual Method %v unAssign ()V\n",
		v.index, c.runtimeClass(v.typ))
}

func (c *jvmCompiler) compileReversePoint() string {
	c.pushStack()
	c.pushStack()
	c.popStack()
	c.popStack()

	var sb strings.Builder
	for _, nv := range c.sortedVars() {
		fmt.Fprintf(&sb, "aload %d\ninvokevirtual Method %v print ()V\n",
			nv.v.index, c.runtimeClass(nv.v.typ))
	}
	return sb.String()
}

func (c *jvmCompiler) compileIf(s If) string {
	elseLabel := c.newLabel("ELSE")
	endLabel := c.newLabel("ENDELSE")

	condCode := c.compileBool(s.Cond, elseLabel)
	thenCode := c.compileBlock(s.Then)
	elseCode := c.compileBlock(s.Else)

	return fmt.Sprintf("%v%vgoto %v\n%v:\n%v%v:\n",
		condCode, thenCode, endLabel, elseLabel, elseCode, endLabel)
}

func (c *jvmCompiler) compileWhile(s While) string {
	startLabel := c.newLabel("START")
	endLabel := c.newLabel("ENDLOOP")

	condCode := c.compileBool(s.Cond, endLabel)
	bodyCode := c.compileBlock(s.Body)

	return fmt.Sprintf("%v:\n%v%vgoto %v\n%v:\n",
		startLabel, condCode, bodyCode, startLabel, endLabel)
}

func conversion(from, to Type) string {
	switch {
	case from == Integer && to == Float:
		return "i2f\n"
	case from == Float && to == Integer:
		return "f2i\n"
	}
	panic("jvm: identity conversion")
}

func (c *jvmCompiler) compileArith(e ArithExpr) (string, Type) {
	switch e := e.(type) {
	case IntLit:
		c.pushStack()
		return fmt.Sprintf("ldc %d\n", int32(e)), Integer
	case FloatLit:
		c.pushStack()
		return fmt.Sprintf("ldc %vf\n", floatLiteral(float32(e))), Float
	case VarExpr:
		return c.compileLoadVar(e.Var)
	case Neg:
		code, typ := c.compileArith(e.Expr)
		c.pushStack()
		c.popStack()
		if typ == Float {
			return code + "fneg\n", Float
		}
		return code + "ineg\n", Integer
	case ArithBin:
		return c.compileArithBin(e)
	}
	panic(fmt.Sprintf("jvm: unknown arithmetic expression %T", e))
}

func floatLiteral(f float32) string {
	s := fmt.Sprintf("%v", f)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func (c *jvmCompiler) compileLoadVar(v Var) (string, Type) {
	c.pushStack()
	c.pushStack()
	c.popStack()

	slot, ok := c.vars[v.Name]
	if !ok {
		panic(fmt.Sprintf("jvm: variable %v used before assignment", v.Name))
	}
	desc := "()I"
	if slot.typ == Float {
		desc = "()F"
	}
	return fmt.Sprintf("aload %d\ninvokevirtual Method %v get %v\n",
		slot.index, c.runtimeClass(slot.typ), desc), slot.typ
}

func (c *jvmCompiler) compileArithBin(e ArithBin) (string, Type) {
	lhs, lhsType := c.compileArith(e.Left)
	rhs, rhsType := c.compileArith(e.Right)

	if e.Op == Pow {
		// the JVM has no integer power; both sides widen to double for
		// Math.pow and the result narrows back to float
		c.popStack()
		widenL := "f2d\n"
		if lhsType == Integer {
			widenL = "i2d\n"
		}
		widenR := "f2d\n"
		if rhsType == Integer {
			widenR = "i2d\n"
		}
		return fmt.Sprintf("%v%v%v%vinvokestatic Method java/lang/Math pow (DD)D\nd2f\n",
			lhs, widenL, rhs, widenR), Float
	}

	c.popStack()
	if lhsType != rhsType {
		conv := conversion(rhsType, lhsType)
		return lhs + rhs + conv + arithInstruction(e.Op, lhsType) + "\n", lhsType
	}
	return lhs + rhs + arithInstruction(e.Op, lhsType) + "\n", lhsType
}

func arithInstruction(op ArithOp, typ Type) string {
	prefix := "i"
	if typ == Float {
		prefix = "f"
	}
	switch op {
	case Add:
		return prefix + "add"
	case Sub:
		return prefix + "sub"
	case Mul:
		return prefix + "mul"
	case Div:
		return prefix + "div"
	}
	panic(fmt.Sprintf("jvm: no instruction for %v", op))
}

// compileBool emits code that falls through when the condition holds and
// jumps to jumpIfFalse otherwise.
func (c *jvmCompiler) compileBool(e BoolExpr, jumpIfFalse string) string {
	switch e := e.(type) {
	case Not:
		// the negated expression jumps to a fresh label when ITS condition
		// fails, which for the negation means the overall condition held
		holds := c.newLabel("NOT")
		inner := c.compileBool(e.Expr, holds)
		return fmt.Sprintf("%vgoto %v\n%v:\n", inner, jumpIfFalse, holds)
	case Logic:
		if e.Op == And {
			lhs := c.compileBool(e.Left, jumpIfFalse)
			rhs := c.compileBool(e.Right, jumpIfFalse)
			return lhs + rhs
		}
		nextOr := c.newLabel("OR")
		endOr := c.newLabel("ENDOR")
		lhs := c.compileBool(e.Left, nextOr)
		rhs := c.compileBool(e.Right, jumpIfFalse)
		return fmt.Sprintf("%vgoto %v\n%v:\n%v%v:\n", lhs, endOr, nextOr, rhs, endOr)
	case Rel:
		return c.compileRel(e, jumpIfFalse)
	}
	panic(fmt.Sprintf("jvm: unknown boolean expression %T", e))
}

func (c *jvmCompiler) compileRel(e Rel, jumpIfFalse string) string {
	lhs, lhsType := c.compileArith(e.Left)
	rhs, rhsType := c.compileArith(e.Right)
	c.popStack()
	c.popStack()

	if lhsType != rhsType {
		conv := conversion(rhsType, lhsType)
		return fmt.Sprintf("%v%v%v%v %v\n", lhs, rhs, conv, relInstruction(e.Op, lhsType), jumpIfFalse)
	}
	return fmt.Sprintf("%v%v%v %v\n", lhs, rhs, relInstruction(e.Op, lhsType), jumpIfFalse)
}

// relInstruction picks the comparison that jumps when the relation FAILS.
func relInstruction(op RelOp, typ Type) string {
	if typ == Float {
		switch op {
		case Eq:
			return "fcmpg\nifne"
		case Neq:
			return "fcmpg\nifeq"
		case Lt:
			return "fcmpg\nifge"
		case Gt:
			return "fcmpl\nifle"
		}
	}
	switch op {
	case Eq:
		return "if_icmpne"
	case Neq:
		return "if_icmpeq"
	case Lt:
		return "if_icmpge"
	case Gt:
		return "if_icmple"
	}
	panic(fmt.Sprintf("jvm: no comparison for %v", op))
}
