package main

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sprintf(format string, args ...interface{}) string {
	return fmt.Sprintf(format, args...)
}

// stepLimit bounds a test run so a dispatch bug cannot hang the suite.
const stepLimit = 5_000_000

type machineTestCases []machineTestCase

func (mts machineTestCases) run(t *testing.T) {
	{
		var exclusive []machineTestCase
		for _, mt := range mts {
			if mt.exclusive {
				exclusive = append(exclusive, mt)
			}
		}
		if len(exclusive) > 0 {
			mts = exclusive
		}
	}
	for _, mt := range mts {
		if !t.Run(mt.name, mt.run) {
			return
		}
	}
}

func machineTest(name string) (mt machineTestCase) {
	mt.name = name
	return mt
}

type machineTestCase struct {
	name   string
	source string
	ops    []func(t *testing.T, en *Engine)

	exclusive bool
}

func (mt machineTestCase) apply(wraps ...func(machineTestCase) machineTestCase) machineTestCase {
	for _, wrap := range wraps {
		mt = wrap(mt)
	}
	return mt
}

func (mt machineTestCase) exclusiveTest() machineTestCase {
	mt.exclusive = true
	return mt
}

func (mt machineTestCase) withSource(src string) machineTestCase {
	mt.source = src
	return mt
}

func (mt machineTestCase) do(ops ...func(t *testing.T, en *Engine)) machineTestCase {
	mt.ops = append(mt.ops, ops...)
	return mt
}

func (mt machineTestCase) runForward() machineTestCase {
	return mt.do(func(t *testing.T, en *Engine) {
		stepToDone(t, en)
	})
}

func (mt machineTestCase) thenReverse() machineTestCase {
	return mt.do(func(t *testing.T, en *Engine) {
		en.Reverse()
	})
}

func (mt machineTestCase) runBackward() machineTestCase {
	return mt.do(func(t *testing.T, en *Engine) {
		stepToDone(t, en)
	})
}

func (mt machineTestCase) expectDone() machineTestCase {
	mt.ops = append(mt.ops, func(t *testing.T, en *Engine) {
		assert.True(t, en.IsDone(), "expected the control stack exhausted")
	})
	return mt
}

func (mt machineTestCase) expectValue(name string, want Value) machineTestCase {
	mt.ops = append(mt.ops, func(t *testing.T, en *Engine) {
		elem := en.Store().Get(name)
		if !assert.NotNil(t, elem, "expected %v in store", name) {
			return
		}
		assert.True(t, want.Equal(elem.Get()),
			"expected %v = %v, got %v", name, want, elem.Get())
	})
	return mt
}

func (mt machineTestCase) expectHistory(name string, deltas ...Value) machineTestCase {
	mt.ops = append(mt.ops, func(t *testing.T, en *Engine) {
		assert.Equal(t, deltas, en.Store().GetHistory(name), "expected %v history", name)
	})
	return mt
}

func (mt machineTestCase) expectAllZero() machineTestCase {
	mt.ops = append(mt.ops, func(t *testing.T, en *Engine) {
		store := en.Store()
		for _, name := range store.Names() {
			v := store.Get(name).Get()
			assert.True(t, v.IsZero(), "expected %v restored to zero, got %v", name, v)
		}
	})
	return mt
}

func (mt machineTestCase) expectResultEmpty() machineTestCase {
	mt.ops = append(mt.ops, func(t *testing.T, en *Engine) {
		assert.Empty(t, en.ResultStack(), "expected an empty result stack")
	})
	return mt
}

func (mt machineTestCase) run(t *testing.T) {
	en, err := MachineFromSource(mt.source)
	require.NoError(t, err, "must build machine")

	for _, op := range mt.ops {
		op(t, en)
		if t.Failed() {
			break
		}
	}
	if t.Failed() {
		var out strings.Builder
		engineDumper{en: en, out: &out}.dumpAll()
		t.Logf("machine state:\n%v", out.String())
	}
}

func stepToDone(t *testing.T, en *Engine) {
	t.Helper()
	for i := 0; !en.IsDone(); i++ {
		require.Less(t, i, stepLimit, "step limit exceeded; machine seems stuck")
		en.Step()
	}
}

func Test_machine(t *testing.T) {
	machineTestCases{

		machineTest("skip only").
			withSource(`skip;`).
			runForward().
			expectDone().
			expectResultEmpty(),

		machineTest("single assignment forward").
			withSource(`int x = 5;`).
			runForward().
			expectValue("x", IntValue(5)).
			expectHistory("x", IntValue(0), IntValue(0), IntValue(5)),

		machineTest("single assignment round trip").
			withSource(`int x = 5;`).
			runForward().
			thenReverse().
			runBackward().
			expectDone().
			expectAllZero().
			expectHistory("x", IntValue(0), IntValue(0)),

		machineTest("expression evaluation").
			withSource(`int x = 1 + 2 * 3;`).
			runForward().
			expectValue("x", IntValue(7)),

		machineTest("sequencing").
			withSource(`
				int a = 1;
				int b = a + 1;
				int c = a + b;
			`).
			runForward().
			expectValue("a", IntValue(1)).
			expectValue("b", IntValue(2)).
			expectValue("c", IntValue(3)),

		machineTest("conditional then branch").
			withSource(`
				int x = 3;
				if (x == 3) then {
					x = 1;
				} else {
					x = x - 1;
				};
			`).
			runForward().
			expectValue("x", IntValue(1)),

		machineTest("conditional else branch round trip").
			withSource(`
				int x = 5;
				if (x == 3) then {
					x = 1;
				} else {
					x = x - 1;
				};
			`).
			runForward().
			expectValue("x", IntValue(4)).
			thenReverse().
			runBackward().
			expectDone().
			expectAllZero(),

		machineTest("empty while").
			withSource(`
				while (1 < 1) do {
					skip;
				};
			`).
			runForward().
			expectDone().
			thenReverse().
			runBackward().
			expectDone().
			expectAllZero(),

		machineTest("counted loop forward").
			withSource(`
				int n = 3;
				while n > 0 do {
					n = n - 1;
				};
			`).
			runForward().
			expectValue("n", IntValue(0)).
			expectValue("while_counter_0", IntValue(3)),

		machineTest("counted loop round trip").
			withSource(`
				int n = 3;
				while n > 0 do {
					n = n - 1;
				};
			`).
			runForward().
			thenReverse().
			runBackward().
			expectDone().
			expectAllZero().
			expectHistory("while_counter_0", IntValue(0)).
			expectHistory("n", IntValue(0), IntValue(0)),

		machineTest("fibonacci 5 forward").
			withSource(sprintf(fibSource, 5)).
			runForward().
			expectValue("b", IntValue(5)).
			expectValue("a", IntValue(3)).
			expectValue("n", IntValue(0)),

		machineTest("fibonacci 10 round trip").
			withSource(sprintf(fibSource, 10)).
			runForward().
			expectValue("b", IntValue(55)).
			thenReverse().
			runBackward().
			expectDone().
			expectAllZero(),

		machineTest("shadowed if inside while round trip").
			withSource(`
				int x = 5;
				while (x > 0) do {
					if (x == 3) then {
						x = 1;
					} else {
						x = x - 1;
					};
				};
			`).
			runForward().
			expectValue("x", IntValue(0)).
			expectValue("while_counter_0", IntValue(4)).
			thenReverse().
			runBackward().
			expectDone().
			expectAllZero(),

		machineTest("float promotion round trip").
			withSource(`
				float f = 2;
				f = f + 1;
			`).
			runForward().
			expectValue("f", FloatValue(3)).
			thenReverse().
			runBackward().
			expectDone().
			expectAllZero(),

		machineTest("wrapped expectations").
			withSource(`int x = 2;`).
			runForward().
			apply(
				expectMachineValue("x", IntValue(2)),
				expectMachineHistory("x", IntValue(0), IntValue(0), IntValue(2)),
			),

		machineTest("nested loops round trip").
			withSource(`
				int x = 3;
				int total = 0;
				while x > 0 do {
					int y = 2;
					while y > 0 do {
						total = total + 1;
						y = y - 1;
					};
					x = x - 1;
				};
			`).
			runForward().
			expectValue("total", IntValue(6)).
			thenReverse().
			runBackward().
			expectDone().
			expectAllZero(),
	}.run(t)
}

func Test_machine_interpreterAgreement(t *testing.T) {
	for _, tc := range []struct {
		name   string
		source string
		vars   []string
	}{
		{"fibonacci 5", sprintf(fibSource, 5), []string{"n", "a", "b", "t"}},
		{"fibonacci 10", sprintf(fibSource, 10), []string{"n", "a", "b", "t"}},
		{"shadowed conditional", `
			int x = 5;
			while (x > 0) do {
				if (x == 3) then {
					x = 1;
				} else {
					x = x - 1;
				};
			};
		`, []string{"x"}},
		{"promotion", `
			float f = 2;
			f = f + 1;
		`, []string{"f"}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			in := interpret(t, tc.source)
			snap := in.ReversePointSnapshot()
			require.NotNil(t, snap)

			en, err := MachineFromSource(tc.source)
			require.NoError(t, err)
			stepToDone(t, en)

			for _, name := range tc.vars {
				ielem := snap.Get(name)
				melem := en.Store().Get(name)
				require.NotNil(t, ielem, "interpreter must know %v", name)
				require.NotNil(t, melem, "machine must know %v", name)
				assert.True(t, ielem.Get().Equal(melem.Get()),
					"expected %v: interpreter %v == machine %v", name, ielem.Get(), melem.Get())
			}

			en.Reverse()
			stepToDone(t, en)
			for _, name := range en.Store().Names() {
				v := en.Store().Get(name).Get()
				assert.True(t, v.IsZero(), "expected %v restored to zero, got %v", name, v)
			}
		})
	}
}

func Test_machine_loopCountSymmetry(t *testing.T) {
	src := sprintf(fibSource, 5)
	en, err := MachineFromSource(src)
	require.NoError(t, err)

	countLoopT := func() int {
		count := 0
		for i := 0; !en.IsDone(); i++ {
			require.Less(t, i, stepLimit)
			if en.NextRule() == rLoopT {
				count++
			}
			en.Step()
		}
		return count
	}

	forward := countLoopT()
	en.Reverse()
	backward := countLoopT()

	assert.Equal(t, 5, forward, "five truthy iterations forward")
	assert.Equal(t, forward, backward,
		"the backward leg unrolls exactly the forward iteration count")

	elem := en.Store().Get("while_counter_0")
	require.NotNil(t, elem)
	assert.Equal(t, []Value{IntValue(0)}, elem.History(),
		"the loop counter history drains back to the synthetic 0")
}

func Test_machine_stepUndefinedWhenDone(t *testing.T) {
	en, err := MachineFromSource(`skip;`)
	require.NoError(t, err)
	stepToDone(t, en)
	assert.Panics(t, func() { en.Step() }, "stepping a done machine is an invariant violation")
}

func Test_machine_ruleNamesTotal(t *testing.T) {
	for r := rNum; r <= rWRexp; r++ {
		assert.NotEmpty(t, r.String(), "rule %d must have a name", int(r))
	}
	assert.Equal(t, 42, int(rWRexp)+1, "the engine has 42 rules")
}
