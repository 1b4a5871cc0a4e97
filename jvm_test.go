package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compileToAsm(t *testing.T, src string) string {
	t.Helper()
	out, err := CompileSource(src)
	require.NoError(t, err, "must compile")
	return out
}

func Test_jvm_template(t *testing.T) {
	asm := compileToAsm(t, `int a = 1;`)

	assert.Contains(t, asm, ".class public Main")
	assert.Contains(t, asm, ".method public static main : ([Ljava/lang/String;)V")
	assert.NotContains(t, asm, "<code>", "template placeholders must be filled")
	assert.NotContains(t, asm, "<stack>")
	assert.NotContains(t, asm, "<locals>")
}

func Test_jvm_runtimeCells(t *testing.T) {
	asm := compileToAsm(t, `
		int a = 1;
		float f = 2.5;
	`)

	assert.Contains(t, asm, "new RIMPInt\ndup\nldc \"a\"\ninvokespecial Method RIMPInt <init> (Ljava/lang/String;)V\nastore 1\n")
	assert.Contains(t, asm, "new RIMPFloat\ndup\nldc \"f\"\ninvokespecial Method RIMPFloat <init> (Ljava/lang/String;)V\nastore 2\n")
	assert.Contains(t, asm, "invokevirtual Method RIMPInt assign (I)V")
	assert.Contains(t, asm, "invokevirtual Method RIMPFloat assign (F)V")
}

func Test_jvm_reverseHalf(t *testing.T) {
	asm := compileToAsm(t, `int a = 1;`)

	// the combined program un-assigns on the backward half and prints every
	// cell at the reverse point
	assert.Contains(t, asm, "invokevirtual Method RIMPInt unAssign ()V")
	assert.Contains(t, asm, "invokevirtual Method RIMPInt print ()V")
}

func Test_jvm_arithmetic(t *testing.T) {
	asm := compileToAsm(t, `int a = 1 + 2 * 3;`)

	iadd := strings.Index(asm, "imul")
	require.GreaterOrEqual(t, iadd, 0)
	assert.Contains(t, asm, "ldc 1\n")
	assert.Contains(t, asm, "ldc 2\n")
	assert.Contains(t, asm, "ldc 3\n")
	assert.Less(t, strings.Index(asm, "imul"), strings.Index(asm, "iadd"),
		"the inner product evaluates before the sum")
}

func Test_jvm_floatLiterals(t *testing.T) {
	asm := compileToAsm(t, `float f = 2;`)
	assert.Contains(t, asm, "ldc 2.0f\n", "whole floats carry an explicit fraction")
}

func Test_jvm_pow(t *testing.T) {
	asm := compileToAsm(t, `int a = 2 ^ 3;`)
	assert.Contains(t, asm, "i2d\n")
	assert.Contains(t, asm, "invokestatic Method java/lang/Math pow (DD)D\nd2f\n")
}

func Test_jvm_controlFlow(t *testing.T) {
	asm := compileToAsm(t, `
		int n = 3;
		while n > 0 do {
			n = n - 1;
		};
	`)

	assert.Contains(t, asm, "LSTART0:")
	assert.Contains(t, asm, "goto LSTART0")
	assert.Contains(t, asm, "LENDLOOP1:")
	assert.Contains(t, asm, "if_icmple LENDLOOP1",
		"the loop condition jumps out when it fails")
}

func Test_jvm_conversion(t *testing.T) {
	asm := compileToAsm(t, `
		float f = 1.5;
		f = f + 1;
	`)
	assert.Contains(t, asm, "i2f\n", "the integer operand widens to float")
	assert.Contains(t, asm, "fadd")
}

func Test_jvm_statementOrderPreserved(t *testing.T) {
	asm := compileToAsm(t, `
		int a = 1;
		int b = 2;
	`)

	firstAssign := strings.Index(asm, "ldc 1\n")
	secondAssign := strings.Index(asm, "ldc 2\n")
	require.GreaterOrEqual(t, firstAssign, 0)
	require.GreaterOrEqual(t, secondAssign, 0)
	assert.Less(t, firstAssign, secondAssign, "statements compile in program order")
}
