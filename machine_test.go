package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_operatorPairing(t *testing.T) {
	for op := bAdd; op <= bTg; op++ {
		assert.Equal(t, op, op.inverse().inverse(), "%v pairing must be involutive", op)
		assert.NotEqual(t, op, op.inverse())
		assert.NotEqual(t, op.isReverse(), op.inverse().isReverse(),
			"exactly one of %v / %v is the reverse form", op, op.inverse())
	}
	for op := uNeg; op <= uTon; op++ {
		assert.Equal(t, op, op.inverse().inverse())
	}
}

func Test_binOp_apply(t *testing.T) {
	for _, tc := range []struct {
		name   string
		op     binOp
		n1, n2 Value
		want   Value
	}{
		{"int add", bAdd, IntValue(2), IntValue(3), IntValue(5)},
		{"int sub", bSub, IntValue(2), IntValue(3), IntValue(-1)},
		{"int mul", bMul, IntValue(4), IntValue(3), IntValue(12)},
		{"int div", bDiv, IntValue(7), IntValue(2), IntValue(3)},
		{"int exp", bExp, IntValue(2), IntValue(8), IntValue(256)},
		{"float add", bAdd, FloatValue(1.5), FloatValue(2), FloatValue(3.5)},
		{"float lhs keeps type", bAdd, FloatValue(2), IntValue(1), FloatValue(3)},
		{"eq true", bEq, IntValue(3), IntValue(3), IntValue(1)},
		{"eq false", bEq, IntValue(3), IntValue(4), IntValue(0)},
		{"lt", bLt, IntValue(3), IntValue(4), IntValue(1)},
		{"gt", bGt, IntValue(3), IntValue(4), IntValue(0)},
		{"and", bAnd, IntValue(1), IntValue(1), IntValue(1)},
		{"or", bOr, IntValue(0), IntValue(1), IntValue(1)},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.op.apply(tc.n1, tc.n2)
			assert.True(t, valueIdentical(tc.want, got), "expected %v, got %v", tc.want, got)
		})
	}
}

func Test_binOp_applyPanics(t *testing.T) {
	assert.Panics(t, func() { bDiv.apply(IntValue(1), IntValue(0)) })
	assert.Panics(t, func() { bExp.apply(IntValue(2), IntValue(0)) })
	assert.Panics(t, func() { bAnd.apply(FloatValue(1), IntValue(1)) })
	assert.Panics(t, func() { bDda.apply(IntValue(1), IntValue(1)) },
		"reverse operators are never applied")
}

func Test_unOp_apply(t *testing.T) {
	assert.True(t, valueIdentical(IntValue(-3), uNeg.apply(IntValue(3))))
	assert.True(t, valueIdentical(FloatValue(-1.5), uNeg.apply(FloatValue(1.5))))
	assert.True(t, valueIdentical(IntValue(0), uNot.apply(IntValue(1))))
	assert.True(t, valueIdentical(IntValue(1), uNot.apply(IntValue(0))))
}

func Test_progEqual(t *testing.T) {
	a := binP{e1: varP{v: IntVar("x")}, e2: numP{n: IntValue(0)}, op: bGt}
	b := binP{e1: varP{v: IntVar("x")}, e2: numP{n: IntValue(0)}, op: bGt}
	c := binP{e1: varP{v: IntVar("y")}, e2: numP{n: IntValue(0)}, op: bGt}

	assert.True(t, progEqual(a, b))
	assert.False(t, progEqual(a, c))
	assert.False(t, progEqual(a, numP{n: IntValue(0)}))
	assert.True(t, progEqual(
		seqP{c1: skipP{}, c2: asgnP{v: IntVar("x"), e: a}},
		seqP{c1: skipP{}, c2: asgnP{v: IntVar("x"), e: b}},
	))
}
