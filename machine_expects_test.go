package main

// @generated from engine_test.go

//go:generate go run scripts/gen_machine_expects.go -- engine_test.go machine_expects_test.go

func withMachineSource(src string) func(machineTestCase) machineTestCase {
	return func(mt machineTestCase) machineTestCase {
		return mt.withSource(src)
	}
}

func expectMachineDone() func(machineTestCase) machineTestCase {
	return func(mt machineTestCase) machineTestCase {
		return mt.expectDone()
	}
}

func expectMachineValue(name string, want Value) func(machineTestCase) machineTestCase {
	return func(mt machineTestCase) machineTestCase {
		return mt.expectValue(name, want)
	}
}

func expectMachineHistory(name string, deltas ...Value) func(machineTestCase) machineTestCase {
	return func(mt machineTestCase) machineTestCase {
		return mt.expectHistory(name, deltas...)
	}
}

func expectMachineAllZero() func(machineTestCase) machineTestCase {
	return func(mt machineTestCase) machineTestCase {
		return mt.expectAllZero()
	}
}

func expectMachineResultEmpty() func(machineTestCase) machineTestCase {
	return func(mt machineTestCase) machineTestCase {
		return mt.expectResultEmpty()
	}
}
