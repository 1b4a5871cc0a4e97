package main

// Engine is the reversible abstract machine: a four-stack operational
// interpreter whose forward and backward modes are structurally identical.
// Reverse() swaps the control and back stacks in O(1); stepping after that
// undoes the work the forward steps recorded.
type Engine struct {
	control cellStack
	back    cellStack
	result  resStack
	store   *Store

	// whileCond maps each loop index to its originally built condition.
	// During backward execution a loop's condition has been rewritten to a
	// counter comparison, and that mismatch is what tells the engine which
	// direction the loop is running in.
	whileCond map[int]prog

	logf func(mess string, args ...interface{})
}

// NewEngine builds the machine for a parsed program: the if-only semantic
// transform is applied, the program is laid onto the control stack, and
// every loop gets its unique index and recorded condition.
func NewEngine(p Program, opts ...Option) *Engine {
	var bld builder
	cs := bld.build(p)

	var cfg config
	cfg.apply(opts...)

	return &Engine{
		control:   cs,
		store:     NewStore(),
		whileCond: whileConditions(cs),
		logf:      cfg.logf,
	}
}

// ControlStack returns the current control stack, top first.
func (en *Engine) ControlStack() []cell { return en.control.peekN(len(en.control)) }

// BackStack returns the current back stack, top first.
func (en *Engine) BackStack() []cell { return en.back.peekN(len(en.back)) }

// ResultStack returns the current result stack, top first.
func (en *Engine) ResultStack() []res { return en.result.peekN(len(en.result)) }

// Store returns the machine's store.
func (en *Engine) Store() *Store { return en.store }

// IsDone reports whether the control stack is exhausted.
func (en *Engine) IsDone() bool { return en.control.empty() }

// Reverse flips the direction of execution by swapping the control and back
// stacks.
func (en *Engine) Reverse() {
	en.control, en.back = en.back, en.control
}

// rule identifies one of the engine's dispatch rules.
type rule int

const (
	// expression rules
	rNum rule = iota
	rMun
	rVar
	rRav
	rExp
	rUnExp
	rPxe
	rUnPxe
	rBinOp
	rBinPo
	rUnOp
	rUnPo
	// statement rules
	rSkip
	rAsgn
	rNgsa
	rAssign
	rAsgnR
	rNgsaR
	rNgissa
	rSeq
	rQes
	rSequence
	// conditional rules
	rCond
	rDnoc
	rIfT
	rFiT
	rIfF
	rFiF
	rEndIf
	rIfRexp
	// loop rules
	rLoop
	rPool
	rLoopT
	rPoolT
	rLoopF
	rPoolF
	rEndWF
	rWEndF
	rEndWT
	rWEndT
	rEndW
	rWRexp
)

var ruleNames = [...]string{
	rNum: "Num", rMun: "Mun", rVar: "Var", rRav: "Rav",
	rExp: "Exp", rUnExp: "UnExp", rPxe: "Pxe", rUnPxe: "UnPxe",
	rBinOp: "BinOp", rBinPo: "BinPo", rUnOp: "UnOp", rUnPo: "UnPo",
	rSkip: "Skip", rAsgn: "Asgn", rNgsa: "Ngsa", rAssign: "Assign",
	rAsgnR: "AsgnR", rNgsaR: "NgsaR", rNgissa: "Ngissa",
	rSeq: "Seq", rQes: "Qes", rSequence: "Sequence",
	rCond: "Cond", rDnoc: "Dnoc", rIfT: "IfT", rFiT: "FiT",
	rIfF: "IfF", rFiF: "FiF", rEndIf: "EndIf", rIfRexp: "IfRexp",
	rLoop: "Loop", rPool: "Pool", rLoopT: "LoopT", rPoolT: "PoolT",
	rLoopF: "LoopF", rPoolF: "PoolF", rEndWF: "EndWF", rWEndF: "WEndF",
	rEndWT: "EndWT", rWEndT: "WEndT", rEndW: "EndW", rWRexp: "WRexp",
}

func (r rule) String() string { return ruleNames[r] }

// NextRule returns the rule Step would apply on the current configuration.
// Undefined when IsDone.
func (en *Engine) NextRule() rule { return en.checkRule() }

// checkRule selects the next rule from the top three control cells, falling
// back to the result-stack top and (for loop endings) the back-stack top
// five where the control stack alone is ambiguous. Selection is total on
// every reachable configuration; anything else is an invariant violation.
func (en *Engine) checkRule() rule {
	top := en.control.peekN(3)
	for len(top) < 3 {
		top = append(top, progCell(skipP{}))
	}

	// expressions and plain statements are unambiguous from the control
	// stack alone
	if top[0].p != nil {
		switch top[0].p.(type) {
		case numP:
			return rNum
		case munP:
			return rMun
		case varP:
			return rVar
		case ravP:
			return rRav
		case binP:
			return rExp
		case unP:
			return rUnExp
		case skipP:
			return rSkip
		case asgnP:
			return rAsgn
		case ngsaP:
			return rAsgnR
		case seqP:
			return rSeq
		}
	} else {
		switch top[0].l.(type) {
		case expLab:
			if top[1].isReverseExpression() && top[2].isReverseExpression() {
				return rPxe
			}
		case binOpLab:
			return rBinOp
		case binPoLab:
			return rBinPo
		case unexpLab:
			if top[1].isReverseExpression() {
				return rUnPxe
			}
		case unOpLab:
			return rUnOp
		case unPoLab:
			return rUnPo
		case asgnLab:
			return rNgsa
		case assignLab:
			return rAssign
		case ngsaLab:
			return rNgsaR
		case ngissaLab:
			return rNgissa
		case seqLab:
			return rQes
		case sequenceLab:
			return rSequence
		}
	}

	// conditionals and loops can need the result stack to disambiguate
	result, hasResult := en.result.peek()
	truthy := func() bool {
		rv, ok := result.(resVal)
		return ok && rv.truthy()
	}
	falsy := func() bool {
		rv, ok := result.(resVal)
		return ok && !rv.truthy()
	}

	if top[0].p != nil {
		switch top[0].p.(type) {
		case ifP:
			return rCond
		case whileP:
			return rLoop
		case rexpP:
			if top[1].l != nil {
				switch top[1].l.(type) {
				case dnocLab:
					return rIfRexp
				case poolLab:
					return rWRexp
				}
			}
		}
	}

	if top[0].l != nil {
		switch top[0].l.(type) {
		case dnocLab:
			return rDnoc
		case ifLab:
			if _, ok := top[1].l.(condLab); ok && hasResult {
				if truthy() {
					return rIfT
				}
				if falsy() {
					return rIfF
				}
			}
		case fiLab:
			if _, ok := top[1].l.(dnocLab); ok && hasResult {
				if truthy() {
					return rFiT
				}
				if falsy() {
					return rFiF
				}
			}
		case condLab:
			return rEndIf
		case whileLab:
			if _, ok := top[1].l.(loopLab); ok && hasResult {
				if truthy() {
					return rLoopT
				}
				if falsy() {
					return rLoopF
				}
			}
		case elihwLab:
			if _, ok := top[1].l.(poolLab); ok && hasResult {
				if truthy() {
					return rPoolT
				}
				if falsy() {
					return rPoolF
				}
			}
		case endwLab:
			if rv, ok := result.(resVal); ok && rv.n.Type == Integer {
				if rv.n.I == 0 {
					return rWEndF
				}
				return rWEndT
			}
		case poolLab:
			return rPool
		}

		// a loop-scope label with values beneath it: decide between closing
		// the loop, counting another recorded iteration, or starting the
		// count
		if _, ok := result.(resVal); ok {
			under := en.result.peekN(4)
			if loop, isLoop := top[0].l.(loopLab); isLoop && len(under) == 4 {
				w, okW := under[1].(resProg)
				_, okE := under[2].(resProg)
				c, okC := under[3].(resProg)
				if okW && okE && okC {
					if _, isWhile := w.p.(whileP); isWhile {
						if en.backTopIsLoopIteration(loop.i, en.rev(c.p)) {
							return rEndWT
						}
						return rEndW
					}
				}
			}
			return rEndW
		}
		return rEndWF
	}

	machinePanicf("machine: no rule for control stack top %v", top[0])
	return 0
}

// backTopIsLoopIteration reports whether the back stack's top five items
// record one completed truthy iteration of loop i: end_w_i · rev(C) · true ·
// elihw_i · pool_i. The body and index checks keep an enclosing loop's
// partially traced iteration from being miscounted as one of loop i's.
func (en *Engine) backTopIsLoopIteration(i int, revC prog) bool {
	top := en.back.peekN(5)
	if len(top) < 5 {
		return false
	}
	if endw, ok := top[0].l.(endwLab); !ok || endw.i != i {
		return false
	}
	if top[1].p == nil || !progEqual(top[1].p, revC) {
		return false
	}
	t, ok := top[2].p.(numP)
	if !ok || t.n.IsZero() {
		return false
	}
	if elihw, ok := top[3].l.(elihwLab); !ok || elihw.i != i {
		return false
	}
	if pool, ok := top[4].l.(poolLab); !ok || pool.i != i {
		return false
	}
	return true
}

// Step applies one rule. Undefined when IsDone.
func (en *Engine) Step() {
	r := en.checkRule()
	if en.logf != nil {
		en.logf("%v c:%d r:%d b:%d", r, len(en.control), len(en.result), len(en.back))
	}

	switch r {
	// Expressions

	case rNum:
		// (n · c, r, m, b) -> (c, n · r, m, n' · b)
		n := en.control.pop().unwrapProg().(numP)
		en.result.push(resVal{n: n.n})
		en.back.push(progCell(munP{n: n.n}))

	case rMun:
		// (n' · b, n · r, m, c) -> (b, r, m, n · c)
		n := en.control.pop().unwrapProg().(munP)
		en.result.pop()
		en.back.push(progCell(numP{n: n.n}))

	case rVar:
		// (!l · c, r, m, b) -> (c, m(l) · r, m, (!l)' · b)
		v := en.control.pop().unwrapProg().(varP)
		en.result.push(resVal{n: en.readVar(v.v)})
		en.back.push(progCell(ravP{v: v.v}))

	case rRav:
		// ((!l)' · b, n · r, m, c) -> (b, r, m, !l · c)
		v := en.control.pop().unwrapProg().(ravP)
		en.result.pop()
		en.back.push(progCell(varP{v: v.v}))

	case rExp:
		// ((E1 op E2) · c, r, m, b) -> (E1 · E2 · op · c, r, m, exp · E1' · E2' · b)
		e := en.control.pop().unwrapProg().(binP)
		en.control.push(labCell(binOpLab{op: e.op}))
		en.control.push(progCell(e.e2))
		en.control.push(progCell(e.e1))
		en.back.push(progCell(rexpP{e: e.e2}))
		en.back.push(progCell(rexpP{e: e.e1}))
		en.back.push(labCell(expLab{}))

	case rPxe:
		// (exp · E1' · E2' · b, r, m, E1 · E2 · op · c) -> (b, r, m, (E1 op E2) · c)
		en.control.pop()
		unwrapRexp(en.control.pop().unwrapProg())
		unwrapRexp(en.control.pop().unwrapProg())
		e1 := en.back.pop().unwrapProg()
		e2 := en.back.pop().unwrapProg()
		op := unwrapBinOpLab(en.back.pop().unwrapLab())
		en.back.push(progCell(binP{e1: e1, e2: e2, op: op}))

	case rBinOp:
		// (op · c, n2 · n1 · r, m, E2' · E1' · exp · E1' · E2' · b) ->
		// (c, (n1 op n2) · r, m, (E1 op E2)' · b)
		op := unwrapBinOpLab(en.control.pop().unwrapLab())
		n2 := unwrapResVal(en.result.pop())
		n1 := unwrapResVal(en.result.pop())

		en.back.pop()
		en.back.pop()
		en.back.pop() // exp label
		e1 := unwrapRexp(en.back.pop().unwrapProg())
		e2 := unwrapRexp(en.back.pop().unwrapProg())

		en.result.push(resVal{n: op.apply(n1, n2)})
		en.back.push(progCell(rexpP{e: binP{e1: e1, e2: e2, op: op}}))

	case rBinPo:
		// (op' · b, n2 · n1 · n · r, m, E2' · E1' · exp · E1' · E2' · c) ->
		// (b, r, m, (E1 op E2) · c)
		op := unwrapBinPoLab(en.control.pop().unwrapLab())
		en.result.pop()
		en.result.pop()
		en.result.pop()

		en.back.pop()
		en.back.pop()
		en.back.pop() // exp label
		e1 := unwrapRexp(en.back.pop().unwrapProg())
		e2 := unwrapRexp(en.back.pop().unwrapProg())

		en.back.push(progCell(binP{e1: e1, e2: e2, op: op}))

	case rUnExp:
		// ((op E) · c, r, m, b) -> (E · op · c, r, m, unexp · E' · b)
		e := en.control.pop().unwrapProg().(unP)
		en.control.push(labCell(unOpLab{op: e.op}))
		en.control.push(progCell(e.e))
		en.back.push(progCell(rexpP{e: e.e}))
		en.back.push(labCell(unexpLab{}))

	case rUnPxe:
		// (unexp · E' · b, r, m, E · op · c) -> (b, r, m, (op E) · c)
		en.control.pop()
		unwrapRexp(en.control.pop().unwrapProg())
		e := en.back.pop().unwrapProg()
		op := unwrapUnOpLab(en.back.pop().unwrapLab())
		en.back.push(progCell(unP{e: e, op: op}))

	case rUnOp:
		// (op · c, n0 · r, m, E' · unexp · E' · b) -> (c, (op n0) · r, m, (op E)' · b)
		op := unwrapUnOpLab(en.control.pop().unwrapLab())
		n0 := unwrapResVal(en.result.pop())

		en.back.pop()
		en.back.pop() // unexp label
		e := unwrapRexp(en.back.pop().unwrapProg())

		en.result.push(resVal{n: op.apply(n0)})
		en.back.push(progCell(rexpP{e: unP{e: e, op: op}}))

	case rUnPo:
		// (op' · b, n0 · n · r, m, E' · unexp · E' · c) -> (b, r, m, (op E) · c)
		op := unwrapUnPoLab(en.control.pop().unwrapLab())
		en.result.pop()
		en.result.pop()

		en.back.pop()
		en.back.pop() // unexp label
		e := unwrapRexp(en.back.pop().unwrapProg())

		en.back.push(progCell(unP{e: e, op: op}))

	// Statements

	case rSkip:
		// (skip · c, r, m, b) -> (c, r, m, skip · b)
		en.control.pop()
		en.back.push(progCell(skipP{}))

	case rAsgn:
		// ((l := E) · c, r, m, b) -> (E · !l · := · c, l · r, m, asgn · E · b)
		a := en.control.pop().unwrapProg().(asgnP)
		en.control.push(labCell(assignLab{}))
		en.control.push(progCell(varP{v: a.v}))
		en.control.push(progCell(a.e))
		en.result.push(resVar{v: a.v})
		en.back.push(progCell(a.e))
		en.back.push(labCell(asgnLab{}))

	case rNgsa:
		// (asgn · E · b, l · r, m, E · !l · := · c) -> (b, r, m, (l := E) · c)
		en.control.pop()
		en.control.pop()
		l := unwrapResVar(en.result.pop())
		e := en.back.pop().unwrapProg()
		en.back.pop()
		en.back.pop()
		en.back.push(progCell(asgnP{v: l, e: e}))

	case rAssign:
		// (:= · c, n2 · n1 · l · r, m, (!l)' · E' · asgn · E · b) ->
		// (c, r, m[l -> n1], (l =: E) · b)
		en.control.pop()
		unwrapResVal(en.result.pop()) // n2, l's prior value read by !l
		n1 := unwrapResVal(en.result.pop())
		l := unwrapResVar(en.result.pop())

		en.back.pop()
		en.back.pop()
		en.back.pop() // asgn label
		e := en.back.pop().unwrapProg()

		en.store.Assign(l.Name, coerceValue(l.Type, n1))
		en.back.push(progCell(ngsaP{v: l, e: e}))

	case rAsgnR:
		// ((l =: E) · c, r, m, b) -> (E · !l · =: · c, l · r, m', asgnr · n · E · b)
		// where m' has the newest delta of l popped and n was l's value
		a := en.control.pop().unwrapProg().(ngsaP)
		en.control.push(labCell(ngissaLab{}))
		en.control.push(progCell(varP{v: a.v}))
		en.control.push(progCell(a.e))
		en.result.push(resVar{v: a.v})

		elem := en.store.Get(a.v.Name)
		if elem == nil {
			machinePanicf("machine: reverse assignment of unknown variable %v", a.v.Name)
		}
		n := elem.Get()
		en.store.UnAssign(a.v.Name, n)

		en.back.push(progCell(a.e))
		en.back.push(progCell(numP{n: n}))
		en.back.push(labCell(ngsaLab{}))

	case rNgsaR:
		// (asgnr · n · E · b, l · r, m, E · !l · =: · c) ->
		// (b, r, m[l -> n], (l =: E) · c)
		en.control.pop()
		n := en.control.pop().unwrapProg().(numP)
		en.control.pop()
		l := unwrapResVar(en.result.pop())

		e := en.back.pop().unwrapProg()
		en.back.pop()
		en.back.pop()

		en.store.Assign(l.Name, coerceValue(l.Type, n.n))
		en.back.push(progCell(ngsaP{v: l, e: e}))

	case rNgissa:
		// (=: · c, n2 · n1 · l · r, m, (!l)' · E' · asgnr · n · E · b) ->
		// (c, r, m, (l := E) · b)
		en.control.pop()
		en.result.pop()
		en.result.pop()
		l := unwrapResVar(en.result.pop())

		en.back.pop()
		en.back.pop()
		en.back.pop() // asgnr label
		en.back.pop() // n
		e := en.back.pop().unwrapProg()

		en.back.push(progCell(asgnP{v: l, e: e}))

	case rSeq:
		// ((C1 ; C2) · c, r, m, b) -> (C1 · C2 · ; · c, r, m, seq · b)
		s := en.control.pop().unwrapProg().(seqP)
		en.control.push(labCell(sequenceLab{}))
		en.control.push(progCell(s.c2))
		en.control.push(progCell(s.c1))
		en.back.push(labCell(seqLab{}))

	case rQes:
		// (seq · b, r, m, C1 · C2 · ; · c) -> (b, r, m, (C1 ; C2) · c)
		en.control.pop()
		c1 := en.back.pop().unwrapProg()
		c2 := en.back.pop().unwrapProg()
		en.back.pop()
		en.back.push(progCell(seqP{c1: c1, c2: c2}))

	case rSequence:
		// (; · c, r, m, rev(C2) · rev(C1) · seq · b) ->
		// (c, r, m, (rev(C2) ; rev(C1)) · b)
		en.control.pop()
		revC2 := en.back.pop().unwrapProg()
		revC1 := en.back.pop().unwrapProg()
		en.back.pop()
		en.back.push(progCell(seqP{c1: revC2, c2: revC1}))

	// Conditionals

	case rCond:
		// ((if E then C1 else C2) · c, r, m, b) ->
		// (E · if · cond · c, C1 · C2 · r, m, cond' · b)
		f := en.control.pop().unwrapProg().(ifP)
		en.control.push(labCell(condLab{}))
		en.control.push(labCell(ifLab{}))
		en.control.push(progCell(f.e))
		en.result.push(resProg{p: f.c2})
		en.result.push(resProg{p: f.c1})
		en.back.push(labCell(dnocLab{}))

	case rDnoc:
		// (cond' · b, C1 · C2 · r, m, E · if · cond · c) ->
		// (b, r, m, (if E then C1 else C2) · c)
		en.control.pop()
		c1 := unwrapResProg(en.result.pop())
		c2 := unwrapResProg(en.result.pop())
		e := en.back.pop().unwrapProg()
		en.back.pop()
		en.back.pop()
		en.back.push(progCell(ifP{e: e, c1: c1, c2: c2}))

	case rIfT, rIfF:
		// (if · cond · c, v · C1 · C2 · r, m, E' · cond' · b) ->
		// (C · cond · c, C1 · C2 · r, m, E · if' · cond' · b)
		// where C is C1 when v is true, C2 otherwise
		en.control.pop()
		cond := en.control.pop()
		en.result.pop()
		c1 := unwrapResProg(en.result.pop())
		c2 := unwrapResProg(en.result.pop())
		eRev := en.back.pop().unwrapProg()
		en.back.pop() // cond' label

		en.control.push(cond)
		if r == rIfT {
			en.control.push(progCell(c1))
		} else {
			en.control.push(progCell(c2))
		}

		en.result.push(resProg{p: c2})
		en.result.push(resProg{p: c1})

		e := unwrapRexp(eRev)
		en.back.push(labCell(dnocLab{}))
		en.back.push(labCell(fiLab{}))
		en.back.push(progCell(e))

	case rFiT, rFiF:
		// (if' · cond' · b, v · C1 · C2 · r, m, E' · C · cond · c) ->
		// (E' · cond' · b, v · C1 · C2 · r, m, if · cond · c)
		en.control.pop()
		condRev := en.control.pop()
		v := unwrapResVal(en.result.pop())
		c1 := unwrapResProg(en.result.pop())
		c2 := unwrapResProg(en.result.pop())

		eRev := en.back.pop()
		en.back.pop() // the branch copy
		en.back.pop() // cond label

		en.control.push(condRev)
		en.control.push(eRev)

		en.result.push(resProg{p: c2})
		en.result.push(resProg{p: c1})
		en.result.push(resVal{n: v})

		en.back.push(labCell(condLab{}))
		en.back.push(labCell(ifLab{}))

	case rEndIf:
		// (cond · c, C1 · C2 · r, m, rev(C) · E · if' · cond' · b) ->
		// (c, r, m, (if E then rev(C1) else rev(C2)) · b)
		en.control.pop()
		c1 := unwrapResProg(en.result.pop())
		c2 := unwrapResProg(en.result.pop())

		en.back.pop() // the executed branch's reverse
		e := en.back.pop().unwrapProg()
		en.back.pop() // if' label
		en.back.pop() // cond' label

		en.back.push(progCell(ifP{e: e, c1: en.rev(c1), c2: en.rev(c2)}))

	case rIfRexp:
		// (E' · cond' · b, v · C1 · C2 · r, m, c) ->
		// (cond' · b, C1 · C2 · r, m, rev(C) · E · c)
		// where C = C1 if v is true, C2 otherwise
		eRev := unwrapRexp(en.control.pop().unwrapProg())
		en.back.push(progCell(eRev))

		v := en.result.pop()
		c1 := en.result.pop()
		c2 := en.result.pop()

		if rv, ok := v.(resVal); ok && rv.truthy() {
			en.back.push(progCell(en.rev(unwrapResProg(c1))))
		} else {
			en.back.push(progCell(en.rev(unwrapResProg(c2))))
		}

		en.result.push(c2)
		en.result.push(c1)

	// Loops

	case rLoop:
		// ((while_i E do C) · c, r, m, b) ->
		// (E · while_i · loop_i · c, E · C · r, m, loop_i' · b)
		w := en.control.pop().unwrapProg().(whileP)
		en.control.push(labCell(loopLab{i: w.i}))
		en.control.push(labCell(whileLab{i: w.i}))
		en.control.push(progCell(w.e))
		en.result.push(resProg{p: w.c})
		en.result.push(resProg{p: w.e})
		en.back.push(labCell(poolLab{i: w.i}))

	case rPool:
		// (loop_i' · b, E · C · r, m, E · while_i · loop_i · c) ->
		// (b, r, m, (while_i E do C) · c)
		pool := en.control.pop().unwrapLab().(poolLab)
		e := unwrapResProg(en.result.pop())
		c := unwrapResProg(en.result.pop())
		en.back.pop()
		en.back.pop()
		en.back.pop()
		en.back.push(progCell(whileP{e: e, c: c, i: pool.i}))

	case rLoopT:
		// (while_i · loop_i · c, true · E · C · r, m, E' · loop_i' · b) ->
		// (C · (while_i E do C) · c, E · C · r, m, true · while_i' · loop_i' · b)
		en.control.pop()
		loop := en.control.pop().unwrapLab().(loopLab)
		t := unwrapResVal(en.result.pop())
		e := unwrapResProg(en.result.pop())
		c := unwrapResProg(en.result.pop())
		en.back.pop() // E'
		en.back.pop() // loop_i'

		i := loop.i
		en.control.push(progCell(whileP{e: e, c: c, i: i}))
		en.control.push(progCell(c))

		en.result.push(resProg{p: c})
		en.result.push(resProg{p: e})

		en.back.push(labCell(poolLab{i: i}))
		en.back.push(labCell(elihwLab{i: i}))
		en.back.push(progCell(numP{n: t}))

		// the loop-scope store side effect: forward loops (condition still
		// matches the built original) count up, reversed loops count down
		if en.checkWhile(i, e) {
			en.incrementWhileCounter(i)
		} else {
			en.decrementWhileCounter(i)
		}

	case rPoolT:
		// (while_i' · loop_i' · b, true · E · C · r, m, true' · C · (while_i E do C) · c) ->
		// (E' · loop_i' · b, true · E · C · r, m, while_i · loop_i · c)
		elihw := en.control.pop().unwrapLab().(elihwLab)
		en.control.pop()
		t := unwrapResVal(en.result.pop())
		e := unwrapResProg(en.result.pop())
		c := unwrapResProg(en.result.pop())

		en.back.pop() // true marker
		en.back.pop() // the body copy
		en.back.pop() // the while fragment

		i := elihw.i
		en.control.push(labCell(poolLab{i: i}))
		en.control.push(progCell(rexpP{e: e}))

		en.result.push(resProg{p: c})
		en.result.push(resProg{p: e})
		en.result.push(resVal{n: t})

		en.back.push(labCell(loopLab{i: i}))
		en.back.push(labCell(whileLab{i: i}))

	case rLoopF:
		// (while_i · loop_i · c, false · E · C · r, m, E' · loop_i' · b) ->
		// (loop_i · c, E · C · r, m, false · while_i' · loop_i' · b)
		en.control.pop()
		loop := en.control.pop().unwrapLab().(loopLab)
		f := unwrapResVal(en.result.pop())
		e := unwrapResProg(en.result.pop())
		c := unwrapResProg(en.result.pop())
		en.back.pop() // E'
		en.back.pop() // loop_i'

		i := loop.i
		en.control.push(labCell(loopLab{i: i}))

		en.result.push(resProg{p: c})
		en.result.push(resProg{p: e})

		en.back.push(labCell(poolLab{i: i}))
		en.back.push(labCell(elihwLab{i: i}))
		en.back.push(progCell(numP{n: f}))

	case rPoolF:
		// (while_i' · loop_i' · b, false · E · C · r, m, false' · loop_i · c) ->
		// (E' · loop_i' · b, false · E · C · r, m, while_i · loop_i · c)
		elihw := en.control.pop().unwrapLab().(elihwLab)
		en.control.pop()
		f := unwrapResVal(en.result.pop())
		e := unwrapResProg(en.result.pop())
		c := unwrapResProg(en.result.pop())

		en.back.pop() // false marker
		en.back.pop() // loop label

		i := elihw.i
		en.control.push(labCell(poolLab{i: i}))
		en.control.push(progCell(rexpP{e: e}))

		en.result.push(resProg{p: c})
		en.result.push(resProg{p: e})
		en.result.push(resVal{n: f})

		en.back.push(labCell(loopLab{i: i}))
		en.back.push(labCell(whileLab{i: i}))

	case rEndWF:
		// (loop_i · c, E · C · r, m, false · while_i' · loop_i' · b) ->
		// (loop_i · c, 0 · C1 · E · C · r, m, end_w_i' · b)
		// where C1 = rev(while_i E do C)
		e := unwrapResProg(en.result.pop())
		c := unwrapResProg(en.result.pop())

		en.back.pop() // false marker
		en.back.pop() // elihw
		pool := en.back.pop().unwrapLab().(poolLab)

		i := pool.i
		w := whileP{e: e, c: c, i: i}

		en.result.push(resProg{p: c})
		en.result.push(resProg{p: e})
		en.result.push(resProg{p: en.rev(w)})
		en.result.push(resVal{n: IntValue(0)})

		en.back.push(labCell(endwLab{i: i}))

	case rWEndF:
		// (end_w_i' · b, 0 · C1 · E · C · r, m, loop_i · c) ->
		// (false · while_i' · loop_i' · b, E · C · r, m, loop_i · c)
		endw := en.control.pop().unwrapLab().(endwLab)
		en.result.pop() // 0
		en.result.pop() // C1
		e := unwrapResProg(en.result.pop())
		c := unwrapResProg(en.result.pop())

		en.back.pop() // loop_i

		i := endw.i
		en.control.push(labCell(poolLab{i: i}))
		en.control.push(labCell(elihwLab{i: i}))
		en.control.push(progCell(numP{n: IntValue(0)}))

		en.result.push(resProg{p: c})
		en.result.push(resProg{p: e})

		en.back.push(labCell(loopLab{i: i}))

	case rEndWT:
		// (loop_i · c, n · C1 · E · C · r, m, end_w_i' · rev(C) · true · while_i' · loop_i' · b) ->
		// (loop_i · c, n+1 · C1 · E · C · r, m, end_w_i' · b)
		n := unwrapResVal(en.result.pop())

		endw := en.back.pop()
		en.back.pop() // rev(C)
		en.back.pop() // true marker
		en.back.pop() // elihw
		en.back.pop() // pool

		if n.Type != Integer {
			machinePanicf("machine: loop count must be an integer, got %v", n)
		}
		en.result.push(resVal{n: IntValue(n.I + 1)})
		en.back.push(endw)

	case rWEndT:
		// (end_w_i' · b, n+1 · C1 · E · C · r, m, loop_i · c) ->
		// (end_w_i' · rev(C) · true · while_i' · loop_i' · b, n · C1 · E · C · r, m, loop_i · c)
		endw := en.control.pop().unwrapLab().(endwLab)
		n := unwrapResVal(en.result.pop())
		c1 := unwrapResProg(en.result.pop())
		e := unwrapResProg(en.result.pop())
		c := unwrapResProg(en.result.pop())

		en.back.pop() // loop_i

		i := endw.i
		en.control.push(labCell(poolLab{i: i}))
		en.control.push(labCell(elihwLab{i: i}))
		en.control.push(progCell(numP{n: IntValue(1)}))
		en.control.push(progCell(en.rev(c)))
		en.control.push(labCell(endwLab{i: i}))

		if n.Type != Integer {
			machinePanicf("machine: loop count must be an integer, got %v", n)
		}

		en.result.push(resProg{p: c})
		en.result.push(resProg{p: e})
		en.result.push(resProg{p: c1})
		en.result.push(resVal{n: IntValue(n.I - 1)})

		en.back.push(labCell(loopLab{i: i}))

	case rEndW:
		// (loop_i · c, n · C1 · E · C · r, m, end_w_i' · b) -> (c, r, m, C1 · b)
		en.control.pop()
		en.result.pop() // n
		c1 := unwrapResProg(en.result.pop())
		e := unwrapResProg(en.result.pop())
		c := unwrapResProg(en.result.pop())

		en.back.pop() // end_w_i marker
		en.back.push(progCell(c1))

		// unrolled iterations can leave stale E · C pairs under the loop's
		// result entries; drop them
		for {
			under := en.result.peekN(2)
			if len(under) != 2 {
				break
			}
			ue, okE := under[0].(resProg)
			uc, okC := under[1].(resProg)
			if !okE || !okC || !progEqual(ue.p, e) || !progEqual(uc.p, c) {
				break
			}
			en.result.pop()
			en.result.pop()
		}

	case rWRexp:
		// (E' · loop_i' · b, v · E · C · r, m, while_i · loop_i · c) ->
		// (loop_i' · b, E · C · r, m, E · while_i · loop_i · c)
		eRev := unwrapRexp(en.control.pop().unwrapProg())
		en.result.pop()
		en.back.push(progCell(eRev))

	default:
		machinePanicf("machine: rule %v not implemented", r)
	}
}

// readVar reads a variable for the Var rule. On first read a missing
// variable is initialised to the zero of its declared type, recording the
// default in the store history.
func (en *Engine) readVar(v Var) Value {
	elem := en.store.Get(v.Name)
	if elem == nil {
		zero := IntValue(0)
		if v.Type == Float {
			zero = FloatValue(0)
		}
		en.store.Assign(v.Name, zero)
		return zero
	}
	if elem.Type() != v.Type {
		machinePanicf("machine: variable %v type mismatch", v.Name)
	}
	return elem.Get()
}

func coerceValue(typ Type, n Value) Value {
	if typ == Float {
		return FloatValue(n.AsFloat())
	}
	return n
}

// rev is the machine-level reverser: it maps an executed fragment to the
// fragment that undoes it. A loop still carrying its original condition
// reverses into a loop over its counter slot; a loop already reversed gets
// its recorded original condition back.
func (en *Engine) rev(p prog) prog {
	switch p := p.(type) {
	case asgnP:
		return ngsaP{v: p.v, e: p.e}
	case ngsaP:
		return asgnP{v: p.v, e: p.e}
	case skipP:
		return skipP{}
	case seqP:
		return seqP{c1: en.rev(p.c2), c2: en.rev(p.c1)}
	case ifP:
		return ifP{e: p.e, c1: en.rev(p.c1), c2: en.rev(p.c2)}
	case whileP:
		if en.checkWhile(p.i, p.e) {
			return whileP{e: whileCounterCond(p.i), c: en.rev(p.c), i: p.i}
		}
		orig, ok := en.whileCond[p.i]
		if !ok {
			machinePanicf("machine: loop %d has no recorded condition", p.i)
		}
		return whileP{e: orig, c: en.rev(p.c), i: p.i}
	}
	return p
}

// checkWhile reports whether e is loop i's recorded original condition.
func (en *Engine) checkWhile(i int, e prog) bool {
	orig, ok := en.whileCond[i]
	return ok && progEqual(e, orig)
}

func (en *Engine) incrementWhileCounter(i int) {
	name := whileCounterName(i)
	if elem := en.store.Get(name); elem != nil {
		en.store.Assign(name, IntValue(elem.Get().I+1))
	} else {
		en.store.Assign(name, IntValue(1))
	}
}

func (en *Engine) decrementWhileCounter(i int) {
	name := whileCounterName(i)
	en.store.UnAssign(name, IntValue(0))
}

func unwrapBinOpLab(l lab) binOp {
	switch l := l.(type) {
	case binOpLab:
		return l.op
	case binPoLab:
		return l.op
	}
	machinePanicf("machine: expected binary operator label, got %v", l)
	return 0
}

func unwrapBinPoLab(l lab) binOp {
	if po, ok := l.(binPoLab); ok {
		return po.op
	}
	machinePanicf("machine: expected reversed binary operator label, got %v", l)
	return 0
}

func unwrapUnOpLab(l lab) unOp {
	switch l := l.(type) {
	case unOpLab:
		return l.op
	case unPoLab:
		return l.op
	}
	machinePanicf("machine: expected unary operator label, got %v", l)
	return 0
}

func unwrapUnPoLab(l lab) unOp {
	if po, ok := l.(unPoLab); ok {
		return po.op
	}
	machinePanicf("machine: expected reversed unary operator label, got %v", l)
	return 0
}
